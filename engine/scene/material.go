package scene

import (
	"bytes"
	"encoding/binary"

	"github.com/torus-gfx/torus/engine/math"
	"github.com/torus-gfx/torus/engine/rhi"
)

/**
 * @brief The byte layout of the material constant buffer, mirroring
 * the material cbuffer the G-buffer fill shader declares.
 */
type MaterialConstants struct {
	BaseOrDiffuseColor math.Vec3
	Opacity            float32
	SpecularColor      math.Vec3
	Shininess          float32
	/** @brief x: specular-gloss model, y: diffuse texture bound. */
	Flags [4]uint32
}

// Material owns the texture and shading parameters of one geometry.
// The texture belongs to the texture cache; the constant buffer
// belongs to the material.
type Material struct {
	Name                       string
	UseSpecularGlossModel      bool
	EnableBaseOrDiffuseTexture bool

	BaseOrDiffuseColor math.Vec3
	SpecularColor      math.Vec3
	Shininess          float32
	Opacity            float32

	BaseOrDiffuseTexture rhi.Texture
	MaterialConstants    rhi.Buffer
}

// NewMaterial returns a material with neutral defaults: white base
// color, no specular, fully opaque.
func NewMaterial(name string) *Material {
	return &Material{
		Name:               name,
		BaseOrDiffuseColor: math.NewVec3One(),
		SpecularColor:      math.NewVec3Zero(),
		Shininess:          16,
		Opacity:            1,
	}
}

// FillConstantBuffer serializes the shading parameters in the layout
// the shaders read.
func (m *Material) FillConstantBuffer() ([]byte, error) {
	constants := MaterialConstants{
		BaseOrDiffuseColor: m.BaseOrDiffuseColor,
		Opacity:            m.Opacity,
		SpecularColor:      m.SpecularColor,
		Shininess:          m.Shininess,
	}
	if m.UseSpecularGlossModel {
		constants.Flags[0] = 1
	}
	if m.EnableBaseOrDiffuseTexture && m.BaseOrDiffuseTexture != nil {
		constants.Flags[1] = 1
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, constants); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Destroy releases the constant buffer. The texture stays with the
// cache that loaded it.
func (m *Material) Destroy() {
	if m.MaterialConstants != nil {
		m.MaterialConstants.Destroy()
		m.MaterialConstants = nil
	}
}
