package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/math"
	"github.com/torus-gfx/torus/engine/rhi"
)

// SwapChain presents through a Vulkan swapchain. Acquisition signals a
// fence and waits on it immediately, so frames are fully serialized
// with the device.
type SwapChain struct {
	ctx    *context
	device *Device

	handle       vk.Swapchain
	format       rhi.Format
	textures     []*Texture
	framebuffers []*Framebuffer

	imageIndex   uint32
	acquired     bool
	acquireFence vk.Fence
	presentList  *CommandList

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

	fenceCreateInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	var fence vk.Fence
	if result := vk.CreateFence(sc.ctx.device, &fenceCreateInfo, sc.ctx.allocator, &fence); result != vk.Success {
		return nil, resultErr("vkCreateFence", result)
	}
	sc.acquireFence = fence

	list, err := device.NewCommandList()
	if err != nil {
		vk.DestroyFence(sc.ctx.device, fence, sc.ctx.allocator)
		return nil, err
	}
	sc.presentList = list.(*CommandList)

	if err := sc.create(width, height); err != nil {
		sc.presentList.Destroy()
		vk.DestroyFence(sc.ctx.device, fence, sc.ctx.allocator)
		return nil, err
	}
	return sc, nil
}

func (sc *SwapChain) create(width, height uint32) error {
	ctx := sc.ctx

	var capabilities vk.SurfaceCapabilities
	if result := vk.GetPhysicalDeviceSurfaceCapabilities(ctx.gpu, ctx.surface, &capabilities); result != vk.Success {
		return resultErr("vkGetPhysicalDeviceSurfaceCapabilities", result)
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()

	surfaceFormat, err := sc.chooseSurfaceFormat()
	if err != nil {
		return err
	}
	presentMode := sc.choosePresentMode()

	extent := vk.Extent2D{Width: width, Height: height}
	if capabilities.CurrentExtent.Width != ^uint32(0) {
		extent = capabilities.CurrentExtent
	} else {
		extent.Width = uint32(math.Clamp(
			float64(extent.Width),
			float64(capabilities.MinImageExtent.Width),
			float64(capabilities.MaxImageExtent.Width),
		))
		extent.Height = uint32(math.Clamp(
			float64(extent.Height),
			float64(capabilities.MinImageExtent.Height),
			float64(capabilities.MaxImageExtent.Height),
		))
	}
	if extent.Width == 0 || extent.Height == 0 {
		return fmt.Errorf("surface extent is zero, the window is likely minimized")
	}

	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          ctx.surface,
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) |
			vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if ctx.graphicsQueueIndex != ctx.presentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{ctx.graphicsQueueIndex, ctx.presentQueueIndex}
	}

	var handle vk.Swapchain
	if result := vk.CreateSwapchain(ctx.device, &swapchainCreateInfo, ctx.allocator, &handle); result != vk.Success {
		return resultErr("vkCreateSwapchainKHR", result)
	}
	sc.handle = handle
	sc.format = fromVkFormat(surfaceFormat.Format)
	sc.width = extent.Width
	sc.height = extent.Height

	var actualCount uint32
	vk.GetSwapchainImages(ctx.device, sc.handle, &actualCount, nil)
	images := make([]vk.Image, actualCount)
	if result := vk.GetSwapchainImages(ctx.device, sc.handle, &actualCount, images); result != vk.Success {
		return resultErr("vkGetSwapchainImagesKHR", result)
	}

	sc.textures = make([]*Texture, 0, actualCount)
	sc.framebuffers = make([]*Framebuffer, 0, actualCount)
	for _, image := range images {
		texture, err := wrapImage(ctx, image, rhi.TextureDesc{
			Width:          sc.width,
			Height:         sc.height,
			MipLevels:      1,
			Format:         sc.format,
			DebugName:      "SwapChainBuffer",
			IsRenderTarget: true,
		})
		if err != nil {
			return err
		}
		framebuffer, err := newFramebuffer(ctx, rhi.FramebufferDesc{
			ColorAttachments: []rhi.Texture{texture},
		})
		if err != nil {
			texture.Destroy()
			return err
		}
		sc.textures = append(sc.textures, texture)
		sc.framebuffers = append(sc.framebuffers, framebuffer)
	}

	core.LogDebug(
		"swapchain created with %d images at %dx%d, %s",
		actualCount, sc.width, sc.height, sc.format,
	)
	return nil
}

func (sc *SwapChain) chooseSurfaceFormat() (vk.SurfaceFormat, error) {
	ctx := sc.ctx

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(ctx.gpu, ctx.surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	if result := vk.GetPhysicalDeviceSurfaceFormats(ctx.gpu, ctx.surface, &formatCount, formats); result != vk.Success {
		return vk.SurfaceFormat{}, resultErr("vkGetPhysicalDeviceSurfaceFormats", result)
	}
	for index := range formats {
		formats[index].Deref()
	}

	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format, nil
		}
	}
	for _, format := range formats {
		if fromVkFormat(format.Format) != rhi.FormatUnknown {
			return format, nil
		}
	}
	return vk.SurfaceFormat{}, fmt.Errorf("the surface offers no supported format")
}

func (sc *SwapChain) choosePresentMode() vk.PresentMode {
	if sc.vsync {
		return vk.PresentModeFifo
	}

	ctx := sc.ctx
	var modeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(ctx.gpu, ctx.surface, &modeCount, nil)
	modes := make([]vk.PresentMode, modeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(ctx.gpu, ctx.surface, &modeCount, modes)

	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	for _, mode := range modes {
		if mode == vk.PresentModeImmediate {
			return mode
		}
	}
	// Fifo is the only mode the standard guarantees.
	return vk.PresentModeFifo
}

func (sc *SwapChain) BeginFrame() error {
	result := vk.AcquireNextImage(
		sc.ctx.device, sc.handle, ^uint64(0),
		vk.NullSemaphore, sc.acquireFence, &sc.imageIndex,
	)
	switch result {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		return core.ErrSwapchainOutOfDate
	default:
		return resultErr("vkAcquireNextImageKHR", result)
	}

	vk.WaitForFences(sc.ctx.device, 1, []vk.Fence{sc.acquireFence}, vk.True, ^uint64(0))
	vk.ResetFences(sc.ctx.device, 1, []vk.Fence{sc.acquireFence})

	// A freshly acquired image has no contents worth keeping.
	sc.textures[sc.imageIndex].state = rhi.StateUndefined
	sc.acquired = true
	return nil
}

func (sc *SwapChain) CurrentFramebuffer() rhi.Framebuffer {
	if !sc.acquired {
		core.LogWarn("CurrentFramebuffer called outside of a frame")
	}
	return sc.framebuffers[sc.imageIndex]
}

func (sc *SwapChain) Present() error {
	if !sc.acquired {
		return fmt.Errorf("no back buffer was acquired")
	}
	sc.acquired = false

	texture := sc.textures[sc.imageIndex]
	if texture.state != rhi.StatePresent {
		if err := sc.presentList.Open(); err != nil {
			return err
		}
		sc.presentList.textureBarrier(texture, rhi.StatePresent)
		if err := sc.presentList.Close(); err != nil {
			return err
		}
		if err := sc.device.ExecuteCommandList(sc.presentList); err != nil {
			return err
		}
	}

	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{sc.handle},
		PImageIndices:  []uint32{sc.imageIndex},
	}
	result := vk.QueuePresent(sc.ctx.presentQueue, &presentInfo)
	switch result {
	case vk.Success:
	case vk.Suboptimal, vk.ErrorOutOfDate:
		return core.ErrSwapchainOutOfDate
	default:
		return resultErr("vkQueuePresentKHR", result)
	}
	vk.QueueWaitIdle(sc.ctx.presentQueue)
	return nil
}

func (sc *SwapChain) Resize(width, height uint32) error {
	vk.DeviceWaitIdle(sc.ctx.device)
	sc.releaseImages()
	if sc.handle != vk.NullSwapchain {
		vk.DestroySwapchain(sc.ctx.device, sc.handle, sc.ctx.allocator)
		sc.handle = vk.NullSwapchain
	}
	core.LogDebug("recreating swapchain at %dx%d", width, height)
	return sc.create(width, height)
}

func (sc *SwapChain) releaseImages() {
	for _, framebuffer := range sc.framebuffers {
		framebuffer.Destroy()
	}
	for _, texture := range sc.textures {
		texture.Destroy()
	}
	sc.framebuffers = nil
	sc.textures = nil
}

func (sc *SwapChain) Destroy() {
	vk.DeviceWaitIdle(sc.ctx.device)
	sc.releaseImages()
	if sc.presentList != nil {
		sc.presentList.Destroy()
		sc.presentList = nil
	}
	if sc.acquireFence != vk.NullFence {
		vk.DestroyFence(sc.ctx.device, sc.acquireFence, sc.ctx.allocator)
		sc.acquireFence = vk.NullFence
	}
	if sc.handle != vk.NullSwapchain {
		vk.DestroySwapchain(sc.ctx.device, sc.handle, sc.ctx.allocator)
		sc.handle = vk.NullSwapchain
	}
}
