package app

import (
	"errors"
	"fmt"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/platform"
	"github.com/torus-gfx/torus/engine/rhi"
	"github.com/torus-gfx/torus/engine/rhi/null"
	"github.com/torus-gfx/torus/engine/rhi/vulkan"
	"github.com/torus-gfx/torus/engine/rhi/webgpu"
)

// DeviceManager owns the window, the device and the swapchain, and
// runs the frame loop over the registered render passes. With the null
// backend it stays headless and the loop renders a single frame, which
// is how tests drive it.
type DeviceManager struct {
	api       rhi.GraphicsAPI
	params    DeviceParams
	platform  *platform.Platform
	device    rhi.Device
	swapChain rhi.SwapChain

	passes []RenderPass

	clock     *core.Clock
	baseTitle string
	titleTime float64

	width  uint32
	height uint32

	resizePending bool
	resizeWidth   uint32
	resizeHeight  uint32

	running bool
}

// NewDeviceManager prepares a manager for the given backend. Nothing
// is created until CreateWindowDeviceAndSwapChain runs.
func NewDeviceManager(api rhi.GraphicsAPI) *DeviceManager {
	return &DeviceManager{
		api:   api,
		clock: core.NewClock(),
	}
}

// CreateWindowDeviceAndSwapChain opens the window and brings up the
// device and swapchain of the selected backend. The null backend skips
// the window entirely.
func (dm *DeviceManager) CreateWindowDeviceAndSwapChain(params DeviceParams, windowTitle string) error {
	dm.params = params
	dm.baseTitle = windowTitle
	dm.width = params.BackBufferWidth
	dm.height = params.BackBufferHeight

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	if dm.api == rhi.GraphicsAPINull {
		device, swapChain, err := null.CreateDeviceAndSwapChain(dm.width, dm.height)
		if err != nil {
			return err
		}
		dm.device = device
		dm.swapChain = swapChain
		dm.running = true
		core.LogInfo("headless device ready, no window was created")
		return nil
	}

	p, err := platform.New()
	if err != nil {
		return err
	}
	if err := p.Startup(windowTitle, params.WindowPosX, params.WindowPosY, dm.width, dm.height); err != nil {
		return err
	}
	dm.platform = p

	// The framebuffer can be larger than the requested window on high
	// dpi displays; the swapchain has to match the pixels.
	if fbWidth, fbHeight := p.FramebufferSize(); fbWidth > 0 && fbHeight > 0 {
		dm.width = fbWidth
		dm.height = fbHeight
	}

	switch dm.api {
	case rhi.GraphicsAPIVulkan:
		device, swapChain, err := vulkan.CreateDeviceAndSwapChain(p, windowTitle, dm.width, dm.height, params.EnableValidation, params.VsyncEnabled)
		if err != nil {
			dm.shutdownPlatform()
			return fmt.Errorf("vulkan device creation failed: %w", err)
		}
		dm.device = device
		dm.swapChain = swapChain
	case rhi.GraphicsAPIWebGPU:
		device, swapChain, err := webgpu.CreateDeviceAndSwapChain(p, windowTitle, dm.width, dm.height, params.VsyncEnabled)
		if err != nil {
			dm.shutdownPlatform()
			return fmt.Errorf("webgpu device creation failed: %w", err)
		}
		dm.device = device
		dm.swapChain = swapChain
	default:
		dm.shutdownPlatform()
		return fmt.Errorf("unsupported graphics API %s", dm.api)
	}

	p.OnFramebufferResize(func(width, height uint32) {
		dm.resizePending = true
		dm.resizeWidth = width
		dm.resizeHeight = height
	})

	core.EventInitialize()
	if err := core.InputInitialize(); err != nil {
		return err
	}
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, dm, dm.onKey)

	dm.running = true
	core.LogInfo("%s device and swapchain ready at %dx%d", dm.api, dm.width, dm.height)
	return nil
}

// Device returns the graphics device. Nil before creation succeeds.
func (dm *DeviceManager) Device() rhi.Device {
	return dm.device
}

// SwapChain returns the swapchain. Nil before creation succeeds.
func (dm *DeviceManager) SwapChain() rhi.SwapChain {
	return dm.swapChain
}

// FramebufferSize returns the current back buffer size in pixels.
func (dm *DeviceManager) FramebufferSize() (uint32, uint32) {
	return dm.width, dm.height
}

// AddRenderPassToBack appends a pass to the frame loop. Passes render
// in registration order.
func (dm *DeviceManager) AddRenderPassToBack(pass RenderPass) {
	dm.passes = append(dm.passes, pass)
}

// RemoveRenderPass detaches a pass from the loop.
func (dm *DeviceManager) RemoveRenderPass(pass RenderPass) {
	for i, p := range dm.passes {
		if p == pass {
			dm.passes = append(dm.passes[:i], dm.passes[i+1:]...)
			return
		}
	}
}

// SetInformativeWindowTitle sets a title carrying the backend name,
// the framebuffer size and the rolling frame statistics. The loop
// refreshes it once per second.
func (dm *DeviceManager) SetInformativeWindowTitle(applicationName string) {
	dm.baseTitle = applicationName
	if dm.platform == nil {
		return
	}
	fps, frameMS := core.MetricsFrame()
	dm.platform.SetTitle(fmt.Sprintf("%s (%s, %dx%d) - %.0f fps / %.2f ms",
		applicationName, dm.api, dm.width, dm.height, fps, frameMS))
}

// RunMessageLoop blocks until the window closes: pump events, animate,
// render into the acquired back buffer, present. An out of date
// swapchain triggers a resize before the next frame. Headless devices
// run exactly one frame.
func (dm *DeviceManager) RunMessageLoop() {
	dm.clock.Start()
	dm.clock.Update()
	previousTime := dm.clock.Elapsed()

	for dm.running {
		if dm.platform != nil && !dm.platform.PumpMessages() {
			break
		}

		dm.clock.Update()
		currentTime := dm.clock.Elapsed()
		elapsed := currentTime - previousTime
		previousTime = currentTime

		// A zero sized pending resize means the window is minimized;
		// keep pumping events without rendering until it comes back.
		if dm.resizePending && !dm.applyResize() {
			continue
		}

		for _, pass := range dm.passes {
			pass.Animate(elapsed)
		}

		if err := dm.renderFrame(); err != nil {
			if errors.Is(err, core.ErrSwapchainOutOfDate) {
				dm.scheduleResizeToFramebuffer()
				continue
			}
			core.LogError("frame failed: %s", err)
			break
		}

		core.InputUpdate(elapsed)
		core.MetricsUpdate(elapsed)
		dm.titleTime += elapsed
		if dm.titleTime >= 1.0 && dm.baseTitle != "" {
			dm.titleTime = 0
			dm.SetInformativeWindowTitle(dm.baseTitle)
		}

		if dm.platform == nil {
			break
		}
	}

	if dm.device != nil {
		dm.device.WaitIdle()
	}
}

func (dm *DeviceManager) renderFrame() error {
	if err := dm.swapChain.BeginFrame(); err != nil {
		return err
	}

	framebuffer := dm.swapChain.CurrentFramebuffer()
	for _, pass := range dm.passes {
		pass.Render(framebuffer)
	}

	return dm.swapChain.Present()
}

// applyResize recreates the swapchain at the pending size after every
// pass released its size dependent state. Returns false while the
// window stays minimized.
func (dm *DeviceManager) applyResize() bool {
	if dm.resizeWidth == 0 || dm.resizeHeight == 0 {
		return false
	}

	for _, pass := range dm.passes {
		pass.BackBufferResizing()
	}

	if err := dm.swapChain.Resize(dm.resizeWidth, dm.resizeHeight); err != nil {
		core.LogError("swapchain resize failed: %s", err)
		return false
	}

	dm.width = dm.resizeWidth
	dm.height = dm.resizeHeight
	dm.resizePending = false
	return true
}

func (dm *DeviceManager) scheduleResizeToFramebuffer() {
	if dm.platform == nil {
		return
	}
	width, height := dm.platform.FramebufferSize()
	dm.resizePending = true
	dm.resizeWidth = width
	dm.resizeHeight = height
}

// onKey closes the window when the escape key goes down.
func (dm *DeviceManager) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE && dm.platform != nil {
		dm.platform.RequestClose()
		return true
	}
	return false
}

// Shutdown tears everything down in reverse creation order. Call it
// after RunMessageLoop returns.
func (dm *DeviceManager) Shutdown() {
	dm.running = false
	core.EventUnregister(core.EVENT_CODE_KEY_PRESSED, dm)

	if dm.device != nil {
		dm.device.WaitIdle()
	}
	if dm.swapChain != nil {
		dm.swapChain.Destroy()
		dm.swapChain = nil
	}
	if dm.device != nil {
		dm.device.Destroy()
		dm.device = nil
	}
	dm.shutdownPlatform()
}

func (dm *DeviceManager) shutdownPlatform() {
	if dm.platform == nil {
		return
	}
	if err := dm.platform.Shutdown(); err != nil {
		core.LogError("platform shutdown failed: %s", err)
	}
	dm.platform = nil
}
