// Package webgpu implements the rhi interfaces on top of wgpu-native
// through the cogentcore/webgpu binding. wgpu tracks resource hazards
// and inserts barriers on its own, so the state tracking entry points
// here only maintain the bookkeeping the engine relies on instead of
// encoding transitions.
package webgpu

import (
	"fmt"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/platform"
	"github.com/torus-gfx/torus/engine/rhi"
)

// Device implements rhi.Device for WebGPU.
type Device struct {
	ctx *context
}

// CreateDeviceAndSwapChain brings up the wgpu instance, requests an
// adapter that can present to the platform window, creates a device on
// it and configures the window surface. Validation comes from the wgpu
// runtime itself and has no toggle here.
func CreateDeviceAndSwapChain(p *platform.Platform, applicationName string, width, height uint32, vsync bool) (*Device, *SwapChain, error) {
	ctx := &context{}
	if err := ctx.create(p, applicationName); err != nil {
		return nil, nil, err
	}

	device := &Device{ctx: ctx}
	swapChain, err := newSwapChain(device, width, height, vsync)
	if err != nil {
		ctx.destroy()
		return nil, nil, err
	}

	core.LogInfo("WebGPU device initialized for '%s'", applicationName)
	return device, swapChain, nil
}

func (d *Device) GraphicsAPI() rhi.GraphicsAPI {
	return rhi.GraphicsAPIWebGPU
}

func (d *Device) QueryFeatureSupport(feature rhi.Feature) bool {
	switch feature {
	case rhi.FeatureComputeShaders:
		return true
	case rhi.FeatureMeshlets:
		// wgpu exposes no mesh or amplification stages.
		return false
	}
	return false
}

func (d *Device) NewCommandList() (rhi.CommandList, error) {
	return &CommandList{ctx: d.ctx}, nil
}

// ExecuteCommandList submits the finished command buffer and waits for
// the queue to drain, matching the synchronous submission model of the
// other backends.
func (d *Device) ExecuteCommandList(list rhi.CommandList) error {
	cl, ok := list.(*CommandList)
	if !ok {
		return fmt.Errorf("command list was not created by this device")
	}
	if cl.open {
		return fmt.Errorf("command list must be closed before execution")
	}
	if cl.commands == nil {
		return fmt.Errorf("command list has no recorded commands")
	}

	d.ctx.queue.Submit(cl.commands)
	cl.commands.Release()
	cl.commands = nil

	d.ctx.device.Poll(true, nil)
	return nil
}

func (d *Device) WaitIdle() error {
	d.ctx.device.Poll(true, nil)
	return nil
}

func (d *Device) Destroy() {
	d.ctx.destroy()
}
