// Package vulkan implements the rhi interfaces on top of the Vulkan
// API through the goki/vulkan binding. The implementation favors
// simplicity over throughput: submissions complete before returning,
// which keeps uploads, barriers and resource lifetimes easy to reason
// about.
package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/platform"
	"github.com/torus-gfx/torus/engine/rhi"
)

type Device struct {
	ctx *context
}

// CreateDeviceAndSwapChain brings up the instance, picks a physical
// device that can present to the platform window and builds a
// swapchain for it.
func CreateDeviceAndSwapChain(p *platform.Platform, applicationName string, width, height uint32, enableValidation, vsync bool) (*Device, *SwapChain, error) {
	if !platform.VulkanSupported() {
		return nil, nil, fmt.Errorf("the Vulkan loader is not available on this system")
	}

	ctx := &context{}
	if err := ctx.createInstance(applicationName, enableValidation, p); err != nil {
		return nil, nil, err
	}
	if err := ctx.createSurface(p); err != nil {
		ctx.destroy()
		return nil, nil, err
	}
	if err := ctx.selectPhysicalDevice(); err != nil {
		ctx.destroy()
		return nil, nil, err
	}
	if err := ctx.createLogicalDevice(); err != nil {
		ctx.destroy()
		return nil, nil, err
	}

	device := &Device{ctx: ctx}
	swapChain, err := newSwapChain(device, width, height, vsync)
	if err != nil {
		ctx.destroy()
		return nil, nil, err
	}

	core.LogInfo("Vulkan device ready")
	return device, swapChain, nil
}

func (d *Device) GraphicsAPI() rhi.GraphicsAPI { return rhi.GraphicsAPIVulkan }

func (d *Device) QueryFeatureSupport(feature rhi.Feature) bool {
	switch feature {
	case rhi.FeatureComputeShaders:
		return true
	case rhi.FeatureMeshlets:
		return d.ctx.deviceExtensions[meshShaderExtensionName]
	}
	return false
}

// ExecuteCommandList submits the list and waits for it to finish, then
// releases any staging memory the recording produced.
func (d *Device) ExecuteCommandList(list rhi.CommandList) error {
	cl, ok := list.(*CommandList)
	if !ok {
		return fmt.Errorf("command list was not created by this device")
	}
	if cl.open {
		return fmt.Errorf("command list must be closed before execution")
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cl.handle},
	}
	if result := vk.QueueSubmit(d.ctx.graphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); result != vk.Success {
		return resultErr("vkQueueSubmit", result)
	}
	if result := vk.QueueWaitIdle(d.ctx.graphicsQueue); result != vk.Success {
		return resultErr("vkQueueWaitIdle", result)
	}
	cl.freeStaging()
	return nil
}

func (d *Device) WaitIdle() error {
	if result := vk.DeviceWaitIdle(d.ctx.device); result != vk.Success {
		return resultErr("vkDeviceWaitIdle", result)
	}
	return nil
}

func (d *Device) Destroy() {
	d.ctx.destroy()
}
