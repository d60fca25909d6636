package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/platform"
)

// context bundles the instance scoped wgpu objects that every resource
// created by the device needs access to.
type context struct {
	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
}

func (ctx *context) create(p *platform.Platform, applicationName string) error {
	ctx.instance = wgpu.CreateInstance(nil)
	if ctx.instance == nil {
		return fmt.Errorf("failed to create the WebGPU instance")
	}

	ctx.surface = ctx.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(p.Window))
	if ctx.surface == nil {
		ctx.destroy()
		return fmt.Errorf("failed to create a surface for the window")
	}

	adapter, err := ctx.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: ctx.surface,
	})
	if err != nil {
		ctx.destroy()
		return fmt.Errorf("no adapter can present to this window: %w", err)
	}
	ctx.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: applicationName,
	})
	if err != nil {
		ctx.destroy()
		return fmt.Errorf("failed to create the WebGPU device: %w", err)
	}
	ctx.device = device
	ctx.queue = device.GetQueue()

	core.LogDebug("WebGPU adapter and device created")
	return nil
}

func (ctx *context) destroy() {
	if ctx.device != nil {
		ctx.device.Poll(true, nil)
		ctx.device.Release()
		ctx.device = nil
		ctx.queue = nil
	}
	if ctx.adapter != nil {
		ctx.adapter.Release()
		ctx.adapter = nil
	}
	if ctx.surface != nil {
		ctx.surface.Release()
		ctx.surface = nil
	}
	if ctx.instance != nil {
		ctx.instance.Release()
		ctx.instance = nil
	}
}
