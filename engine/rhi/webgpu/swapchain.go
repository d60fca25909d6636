package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/rhi"
)

// SwapChain presents through a configured wgpu surface. The surface
// owns the per frame texture; a stable wrapper texture and framebuffer
// are re-pointed at the acquired one on every BeginFrame, so callers
// can hold on to the framebuffer across frames.
type SwapChain struct {
	ctx    *context
	device *Device

	format      rhi.Format
	backBuffer  *Texture
	framebuffer *Framebuffer
	current     *wgpu.Texture
	acquired    bool

	width  uint32
	height uint32
	vsync  bool
}

func newSwapChain(device *Device, width, height uint32, vsync bool) (*SwapChain, error) {
	sc := &SwapChain{
		ctx:    device.ctx,
		device: device,
		vsync:  vsync,
	}
	if err := sc.configure(width, height); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *SwapChain) configure(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("surface extent is zero, the window is likely minimized")
	}

	capabilities := sc.ctx.surface.GetCapabilities(sc.ctx.adapter)
	surfaceFormat, format, err := chooseSurfaceFormat(capabilities.Formats)
	if err != nil {
		return err
	}
	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		alphaMode = capabilities.AlphaModes[0]
	}

	sc.ctx.surface.Configure(sc.ctx.adapter, sc.ctx.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: sc.choosePresentMode(capabilities.PresentModes),
		AlphaMode:   alphaMode,
	})

	sc.format = format
	sc.width = width
	sc.height = height

	if sc.backBuffer == nil {
		sc.backBuffer = &Texture{ctx: sc.ctx}
	}
	sc.backBuffer.desc = rhi.TextureDesc{
		Width:          width,
		Height:         height,
		MipLevels:      1,
		SampleCount:    1,
		Format:         format,
		DebugName:      "SwapChainBuffer",
		IsRenderTarget: true,
	}
	sc.backBuffer.state = rhi.StateUndefined
	sc.backBuffer.permanent = false

	desc := rhi.FramebufferDesc{ColorAttachments: []rhi.Texture{sc.backBuffer}}
	sc.framebuffer = &Framebuffer{desc: desc, info: rhi.NewFramebufferInfo(desc)}

	core.LogDebug("surface configured at %dx%d, %s", width, height, format)
	return nil
}

func chooseSurfaceFormat(formats []wgpu.TextureFormat) (wgpu.TextureFormat, rhi.Format, error) {
	for _, format := range formats {
		if format == wgpu.TextureFormatBGRA8Unorm {
			return format, rhi.FormatBGRA8Unorm, nil
		}
	}
	for _, format := range formats {
		if mapped := fromWgpuTextureFormat(format); mapped != rhi.FormatUnknown {
			return format, mapped, nil
		}
	}
	return wgpu.TextureFormatUndefined, rhi.FormatUnknown, fmt.Errorf("the surface offers no supported format")
}

func (sc *SwapChain) choosePresentMode(modes []wgpu.PresentMode) wgpu.PresentMode {
	if sc.vsync {
		return wgpu.PresentModeFifo
	}
	for _, mode := range modes {
		if mode == wgpu.PresentModeMailbox {
			return mode
		}
	}
	for _, mode := range modes {
		if mode == wgpu.PresentModeImmediate {
			return mode
		}
	}
	// Fifo is always available.
	return wgpu.PresentModeFifo
}

func (sc *SwapChain) BeginFrame() error {
	if sc.acquired {
		return fmt.Errorf("the previous frame was not presented")
	}

	texture, err := sc.ctx.surface.GetCurrentTexture()
	if err != nil {
		// the surface no longer matches the window
		return core.ErrSwapchainOutOfDate
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return fmt.Errorf("failed to create a view for the back buffer: %w", err)
	}

	sc.current = texture
	sc.backBuffer.handle = texture
	sc.backBuffer.view = view
	// A freshly acquired texture has no contents worth keeping.
	sc.backBuffer.state = rhi.StateUndefined
	sc.acquired = true
	return nil
}

func (sc *SwapChain) CurrentFramebuffer() rhi.Framebuffer {
	if !sc.acquired {
		core.LogWarn("CurrentFramebuffer called outside of a frame")
	}
	return sc.framebuffer
}

func (sc *SwapChain) Present() error {
	if !sc.acquired {
		return fmt.Errorf("no back buffer was acquired")
	}
	sc.ctx.surface.Present()
	sc.releaseAcquired()
	return nil
}

// releaseAcquired drops the per frame texture and view, whether the
// frame was presented or abandoned.
func (sc *SwapChain) releaseAcquired() {
	if sc.backBuffer != nil {
		if sc.backBuffer.view != nil {
			sc.backBuffer.view.Release()
			sc.backBuffer.view = nil
		}
		sc.backBuffer.handle = nil
	}
	if sc.current != nil {
		sc.current.Release()
		sc.current = nil
	}
	sc.acquired = false
}

func (sc *SwapChain) Resize(width, height uint32) error {
	sc.releaseAcquired()
	sc.ctx.device.Poll(true, nil)
	core.LogDebug("reconfiguring the surface at %dx%d", width, height)
	return sc.configure(width, height)
}

func (sc *SwapChain) Destroy() {
	sc.releaseAcquired()
	if sc.ctx.device != nil {
		sc.ctx.device.Poll(true, nil)
	}
	sc.backBuffer = nil
	sc.framebuffer = nil
}
