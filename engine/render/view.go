// Package render holds the reusable rendering framework: views, render
// target sets, the G-buffer fill and deferred lighting passes, and the
// common blit pass. Shading math lives in the shader assets; this
// package only assembles device state around them.
package render

import (
	"github.com/torus-gfx/torus/engine/math"
	"github.com/torus-gfx/torus/engine/rhi"
)

// PlanarView is a single rectangular view: a viewport plus view and
// projection matrices. UpdateCache recomputes the derived matrices
// after the inputs changed.
type PlanarView struct {
	viewport   rhi.Viewport
	viewMatrix math.Mat4
	projMatrix math.Mat4

	viewProjMatrix math.Mat4
	invViewMatrix  math.Mat4
}

func NewPlanarView() *PlanarView {
	return &PlanarView{
		viewMatrix: math.NewMat4Identity(),
		projMatrix: math.NewMat4Identity(),
	}
}

func (v *PlanarView) SetViewport(viewport rhi.Viewport) {
	v.viewport = viewport
}

// SetMatrices sets the world-to-view and view-to-clip matrices. Call
// UpdateCache before reading the derived values.
func (v *PlanarView) SetMatrices(viewMatrix, projMatrix math.Mat4) {
	v.viewMatrix = viewMatrix
	v.projMatrix = projMatrix
}

// UpdateCache recomputes the view-projection matrix and the inverse
// view matrix.
func (v *PlanarView) UpdateCache() {
	v.viewProjMatrix = v.projMatrix.Mul(v.viewMatrix)
	v.invViewMatrix = v.viewMatrix.Inverse()
}

func (v *PlanarView) Viewport() rhi.Viewport { return v.viewport }

func (v *PlanarView) ViewMatrix() math.Mat4 { return v.viewMatrix }

func (v *PlanarView) ProjMatrix() math.Mat4 { return v.projMatrix }

// ViewProjMatrix returns the cached world-to-clip matrix.
func (v *PlanarView) ViewProjMatrix() math.Mat4 { return v.viewProjMatrix }

// ViewOrigin returns the camera position in world space, from the
// cached inverse view matrix.
func (v *PlanarView) ViewOrigin() math.Vec3 {
	return math.NewVec3(v.invViewMatrix.Data[12], v.invViewMatrix.Data[13], v.invViewMatrix.Data[14])
}
