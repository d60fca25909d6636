package render

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/torus-gfx/torus/engine/rhi"
)

/**
 * @brief The texture set a geometry pass renders into: a depth buffer
 * plus albedo, specular and normal color targets, bundled into one
 * framebuffer. All targets share the same size and are recreated
 * together when the output size changes.
 */
type GBufferRenderTargets struct {
	Depth           rhi.Texture
	GBufferDiffuse  rhi.Texture
	GBufferSpecular rhi.Texture
	GBufferNormals  rhi.Texture

	GBufferFramebuffer rhi.Framebuffer

	device rhi.Device
	width  uint32
	height uint32
}

// Init creates the G-buffer textures and the framebuffer over them.
// Previously created targets are not released here; call Destroy first
// when reinitializing.
func (t *GBufferRenderTargets) Init(device rhi.Device, width, height uint32) error {
	t.device = device
	t.width = width
	t.height = height

	var err error
	if t.Depth, err = newRenderTarget(device, "GBufferDepth", width, height, rhi.FormatD32Float, false); err != nil {
		return err
	}
	if t.GBufferDiffuse, err = newRenderTarget(device, "GBufferDiffuse", width, height, rhi.FormatSRGBA8Unorm, false); err != nil {
		return err
	}
	if t.GBufferSpecular, err = newRenderTarget(device, "GBufferSpecular", width, height, rhi.FormatRGBA8Unorm, false); err != nil {
		return err
	}
	if t.GBufferNormals, err = newRenderTarget(device, "GBufferNormals", width, height, rhi.FormatRGBA16Float, false); err != nil {
		return err
	}

	t.GBufferFramebuffer, err = device.NewFramebuffer(rhi.FramebufferDesc{
		ColorAttachments: []rhi.Texture{t.GBufferDiffuse, t.GBufferSpecular, t.GBufferNormals},
		DepthAttachment:  t.Depth,
	})
	return err
}

// Clear resets the color targets to black and the depth buffer to the
// far plane.
func (t *GBufferRenderTargets) Clear(commandList rhi.CommandList) {
	commandList.ClearDepthStencilAttachment(t.GBufferFramebuffer, 1.0, 0)
	for i := range t.GBufferFramebuffer.Desc().ColorAttachments {
		commandList.ClearColorAttachment(t.GBufferFramebuffer, uint32(i), rhi.NewColorUniform(0))
	}
}

func (t *GBufferRenderTargets) Size() (uint32, uint32) {
	return t.width, t.height
}

// SameSize reports whether the targets already match the given output
// size, so callers can skip reallocation.
func (t *GBufferRenderTargets) SameSize(width, height uint32) bool {
	return t.width == width && t.height == height
}

func (t *GBufferRenderTargets) Destroy() {
	if t.GBufferFramebuffer != nil {
		t.GBufferFramebuffer.Destroy()
		t.GBufferFramebuffer = nil
	}
	for _, texture := range []rhi.Texture{t.Depth, t.GBufferDiffuse, t.GBufferSpecular, t.GBufferNormals} {
		if texture != nil {
			texture.Destroy()
		}
	}
	t.Depth = nil
	t.GBufferDiffuse = nil
	t.GBufferSpecular = nil
	t.GBufferNormals = nil
}

/**
 * @brief A G-buffer plus the shaded output the deferred lighting pass
 * writes. The shaded output lives in unordered access state so a
 * compute pass can fill it without an extra transition.
 */
type DeferredRenderTargets struct {
	GBufferRenderTargets

	ShadedColor rhi.Texture
}

func (t *DeferredRenderTargets) Init(device rhi.Device, width, height uint32) error {
	if err := t.GBufferRenderTargets.Init(device, width, height); err != nil {
		return err
	}
	var err error
	t.ShadedColor, err = newRenderTarget(device, "ShadedColor", width, height, rhi.FormatRGBA16Float, true)
	return err
}

func (t *DeferredRenderTargets) Destroy() {
	if t.ShadedColor != nil {
		t.ShadedColor.Destroy()
		t.ShadedColor = nil
	}
	t.GBufferRenderTargets.Destroy()
}

// newRenderTarget creates one target texture. Debug names carry a uuid
// suffix so reallocated generations stay distinguishable in captures.
func newRenderTarget(device rhi.Device, name string, width, height uint32, format rhi.Format, storage bool) (rhi.Texture, error) {
	initialState := rhi.StateRenderTarget
	if format.HasDepth() {
		initialState = rhi.StateDepthWrite
	}
	if storage {
		initialState = rhi.StateUnorderedAccess
	}
	return device.NewTexture(rhi.TextureDesc{
		Width:            width,
		Height:           height,
		MipLevels:        1,
		SampleCount:      1,
		Format:           format,
		DebugName:        fmt.Sprintf("%s-%s", name, uuid.New().String()),
		IsRenderTarget:   !storage,
		IsUAV:            storage,
		InitialState:     initialState,
		KeepInitialState: true,
	})
}
