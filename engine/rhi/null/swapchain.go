package null

import (
	"github.com/torus-gfx/torus/engine/rhi"
)

// SwapChain implements rhi.SwapChain with a single CPU-side back
// buffer. Present is a counter; there is nothing to display.
type SwapChain struct {
	device *Device
	color  rhi.Texture
	fb     rhi.Framebuffer

	presented int
	resizes   int
}

var _ rhi.SwapChain = (*SwapChain)(nil)

func NewSwapChain(device *Device, width, height uint32) (*SwapChain, error) {
	sc := &SwapChain{device: device}
	if err := sc.createBackBuffer(width, height); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *SwapChain) createBackBuffer(width, height uint32) error {
	color, err := sc.device.NewTexture(rhi.TextureDesc{
		Width:            width,
		Height:           height,
		Format:           rhi.FormatBGRA8Unorm,
		DebugName:        "SwapChainBuffer",
		IsRenderTarget:   true,
		InitialState:     rhi.StatePresent,
		KeepInitialState: true,
	})
	if err != nil {
		return err
	}
	fb, err := sc.device.NewFramebuffer(rhi.FramebufferDesc{
		ColorAttachments: []rhi.Texture{color},
	})
	if err != nil {
		color.Destroy()
		return err
	}
	sc.color = color
	sc.fb = fb
	return nil
}

func (sc *SwapChain) BeginFrame() error {
	return nil
}

func (sc *SwapChain) CurrentFramebuffer() rhi.Framebuffer {
	return sc.fb
}

func (sc *SwapChain) Present() error {
	sc.presented++
	return nil
}

func (sc *SwapChain) Resize(width, height uint32) error {
	sc.fb.Destroy()
	sc.color.Destroy()
	if err := sc.createBackBuffer(width, height); err != nil {
		return err
	}
	sc.resizes++
	return nil
}

// PresentedFrames returns how many frames were presented.
func (sc *SwapChain) PresentedFrames() int { return sc.presented }

// ResizeCount returns how many times the chain was resized.
func (sc *SwapChain) ResizeCount() int { return sc.resizes }

func (sc *SwapChain) Destroy() {
	sc.fb.Destroy()
	sc.color.Destroy()
}
