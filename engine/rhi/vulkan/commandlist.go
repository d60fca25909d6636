package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/rhi"
)

// CommandList records into one primary command buffer. Render passes
// begin lazily on SetGraphicsState and end whenever a barrier, clear or
// compute dispatch needs to run outside of one.
type CommandList struct {
	ctx    *context
	handle vk.CommandBuffer

	open             bool
	renderPassActive bool
	boundFramebuffer *Framebuffer

	staging []stagingAllocation
}

type stagingAllocation struct {
	buffer vk.Buffer
	memory vk.DeviceMemory
}

func (d *Device) NewCommandList() (rhi.CommandList, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.ctx.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	commandBuffers := make([]vk.CommandBuffer, 1)
	if result := vk.AllocateCommandBuffers(d.ctx.device, &allocateInfo, commandBuffers); result != vk.Success {
		return nil, resultErr("vkAllocateCommandBuffers", result)
	}
	return &CommandList{ctx: d.ctx, handle: commandBuffers[0]}, nil
}

func (cl *CommandList) Open() error {
	if cl.open {
		return fmt.Errorf("command list is already open")
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if result := vk.BeginCommandBuffer(cl.handle, &beginInfo); result != vk.Success {
		return resultErr("vkBeginCommandBuffer", result)
	}
	cl.open = true
	return nil
}

func (cl *CommandList) Close() error {
	if !cl.open {
		return fmt.Errorf("command list is not open")
	}
	cl.endRenderPass()
	if result := vk.EndCommandBuffer(cl.handle); result != vk.Success {
		return resultErr("vkEndCommandBuffer", result)
	}
	cl.open = false
	return nil
}

func (cl *CommandList) endRenderPass() {
	if cl.renderPassActive {
		vk.CmdEndRenderPass(cl.handle)
		cl.renderPassActive = false
		cl.boundFramebuffer = nil
	}
}

// WriteBuffer applies immediately: buffer memory is host visible and
// the queue is idle between submissions.
func (cl *CommandList) WriteBuffer(buffer rhi.Buffer, data []byte, destOffset int64) error {
	vkBuffer, ok := buffer.(*Buffer)
	if !ok {
		return fmt.Errorf("buffer was not created by this device")
	}
	return vkBuffer.upload(data, destOffset)
}

func (cl *CommandList) WriteTexture(texture rhi.Texture, mipLevel uint32, data []byte, rowPitch uint32) error {
	vkTexture, ok := texture.(*Texture)
	if !ok {
		return fmt.Errorf("texture was not created by this device")
	}
	if mipLevel >= vkTexture.desc.MipLevels {
		return fmt.Errorf(
			"mip level %d out of range for texture %q with %d levels",
			mipLevel, vkTexture.desc.DebugName, vkTexture.desc.MipLevels,
		)
	}

	width := vkTexture.desc.Width >> mipLevel
	if width == 0 {
		width = 1
	}
	height := vkTexture.desc.Height >> mipLevel
	if height == 0 {
		height = 1
	}

	bytesPerTexel := vkTexture.desc.Format.BytesPerElement()
	bufferRowLength := uint32(0)
	if rowPitch > 0 {
		if rowPitch%bytesPerTexel != 0 {
			return fmt.Errorf(
				"row pitch %d is not a multiple of the %d byte texel size of %s",
				rowPitch, bytesPerTexel, vkTexture.desc.Format,
			)
		}
		bufferRowLength = rowPitch / bytesPerTexel
	}

	staging, memory, err := createHostBuffer(cl.ctx, int64(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return fmt.Errorf("staging upload for texture %q: %w", vkTexture.desc.DebugName, err)
	}
	if err := writeDeviceMemory(cl.ctx, memory, 0, data); err != nil {
		vk.DestroyBuffer(cl.ctx.device, staging, cl.ctx.allocator)
		vk.FreeMemory(cl.ctx.device, memory, cl.ctx.allocator)
		return err
	}
	cl.staging = append(cl.staging, stagingAllocation{buffer: staging, memory: memory})

	cl.textureBarrier(vkTexture, rhi.StateCopyDest)
	region := vk.BufferImageCopy{
		BufferOffset:    0,
		BufferRowLength: bufferRowLength,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     imageAspect(vkTexture.desc.Format),
			MipLevel:       mipLevel,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(
		cl.handle, staging, vkTexture.image,
		vk.ImageLayoutTransferDstOptimal,
		1, []vk.BufferImageCopy{region},
	)
	return nil
}

func (cl *CommandList) BeginTrackingBufferState(buffer rhi.Buffer, state rhi.ResourceState) {
	vkBuffer, ok := buffer.(*Buffer)
	if !ok {
		core.LogError("buffer was not created by this device")
		return
	}
	vkBuffer.state = state
}

func (cl *CommandList) SetBufferState(buffer rhi.Buffer, state rhi.ResourceState) {
	vkBuffer, ok := buffer.(*Buffer)
	if !ok {
		core.LogError("buffer was not created by this device")
		return
	}
	cl.bufferBarrier(vkBuffer, state)
}

func (cl *CommandList) SetPermanentBufferState(buffer rhi.Buffer, state rhi.ResourceState) {
	vkBuffer, ok := buffer.(*Buffer)
	if !ok {
		core.LogError("buffer was not created by this device")
		return
	}
	cl.bufferBarrier(vkBuffer, state)
	vkBuffer.permanent = true
}

func (cl *CommandList) BeginTrackingTextureState(texture rhi.Texture, state rhi.ResourceState) {
	vkTexture, ok := texture.(*Texture)
	if !ok {
		core.LogError("texture was not created by this device")
		return
	}
	vkTexture.state = state
}

func (cl *CommandList) SetTextureState(texture rhi.Texture, state rhi.ResourceState) {
	vkTexture, ok := texture.(*Texture)
	if !ok {
		core.LogError("texture was not created by this device")
		return
	}
	cl.textureBarrier(vkTexture, state)
}

func (cl *CommandList) SetPermanentTextureState(texture rhi.Texture, state rhi.ResourceState) {
	vkTexture, ok := texture.(*Texture)
	if !ok {
		core.LogError("texture was not created by this device")
		return
	}
	cl.textureBarrier(vkTexture, state)
	vkTexture.permanent = true
}

// bufferBarrier transitions a buffer to a new state. Barriers cannot be
// recorded inside a render pass, so an active pass ends first.
func (cl *CommandList) bufferBarrier(b *Buffer, newState rhi.ResourceState) {
	if b.state == newState {
		return
	}
	if b.permanent {
		core.LogError(
			"buffer %q state is permanent, cannot transition from %s to %s",
			b.desc.DebugName, b.state, newState,
		)
		return
	}
	cl.endRenderPass()

	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       stateAccess(b.state),
		DstAccessMask:       stateAccess(newState),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              b.handle,
		Offset:              0,
		Size:                vk.DeviceSize(b.desc.ByteSize),
	}
	stage := vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	vk.CmdPipelineBarrier(cl.handle, stage, stage, 0, 0, nil, 1, []vk.BufferMemoryBarrier{barrier}, 0, nil)
	b.state = newState
}

func (cl *CommandList) textureBarrier(t *Texture, newState rhi.ResourceState) {
	if t.state == newState {
		return
	}
	if t.permanent {
		core.LogError(
			"texture %q state is permanent, cannot transition from %s to %s",
			t.desc.DebugName, t.state, newState,
		)
		return
	}
	cl.endRenderPass()

	// Coming from Undefined or Common the previous contents are
	// discarded, which is what acquisition and first use want.
	oldLayout := vk.ImageLayoutUndefined
	if t.state != rhi.StateUndefined && t.state != rhi.StateCommon {
		oldLayout = stateLayout(t.state, t.desc.Format)
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           stateLayout(newState, t.desc.Format),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               t.image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     imageAspect(t.desc.Format),
			BaseMipLevel:   0,
			LevelCount:     t.desc.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		SrcAccessMask: stateAccess(t.state),
		DstAccessMask: stateAccess(newState),
	}
	stage := vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	vk.CmdPipelineBarrier(cl.handle, stage, stage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	t.state = newState
}

func (cl *CommandList) ClearColorAttachment(fb rhi.Framebuffer, attachmentIndex uint32, color rhi.Color) {
	vkFramebuffer, ok := fb.(*Framebuffer)
	if !ok {
		core.LogError("framebuffer was not created by this device")
		return
	}
	if int(attachmentIndex) >= len(vkFramebuffer.desc.ColorAttachments) {
		core.LogError("clear of color attachment %d out of range", attachmentIndex)
		return
	}
	texture, ok := vkFramebuffer.desc.ColorAttachments[attachmentIndex].(*Texture)
	if !ok {
		core.LogError("framebuffer attachment was not created by this device")
		return
	}
	cl.textureBarrier(texture, rhi.StateCopyDest)
	cl.clearColorImage(texture, color)
}

func (cl *CommandList) ClearDepthStencilAttachment(fb rhi.Framebuffer, depth float32, stencil uint8) {
	vkFramebuffer, ok := fb.(*Framebuffer)
	if !ok {
		core.LogError("framebuffer was not created by this device")
		return
	}
	if vkFramebuffer.desc.DepthAttachment == nil {
		core.LogError("framebuffer has no depth attachment to clear")
		return
	}
	texture, ok := vkFramebuffer.desc.DepthAttachment.(*Texture)
	if !ok {
		core.LogError("framebuffer attachment was not created by this device")
		return
	}
	cl.textureBarrier(texture, rhi.StateCopyDest)
	cl.clearDepthStencilImage(texture, depth, stencil)
}

func (cl *CommandList) ClearTextureFloat(texture rhi.Texture, color rhi.Color) {
	vkTexture, ok := texture.(*Texture)
	if !ok {
		core.LogError("texture was not created by this device")
		return
	}
	cl.textureBarrier(vkTexture, rhi.StateCopyDest)
	if vkTexture.desc.Format.HasDepth() {
		cl.clearDepthStencilImage(vkTexture, color.R, 0)
		return
	}
	cl.clearColorImage(vkTexture, color)
}

func (cl *CommandList) clearColorImage(t *Texture, color rhi.Color) {
	var clearValue vk.ClearColorValue
	channels := (*[4]float32)(unsafe.Pointer(&clearValue))
	channels[0] = color.R
	channels[1] = color.G
	channels[2] = color.B
	channels[3] = color.A

	subresourceRange := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: t.desc.MipLevels,
		LayerCount: 1,
	}
	vk.CmdClearColorImage(
		cl.handle, t.image, vk.ImageLayoutTransferDstOptimal,
		&clearValue, 1, []vk.ImageSubresourceRange{subresourceRange},
	)
}

func (cl *CommandList) clearDepthStencilImage(t *Texture, depth float32, stencil uint8) {
	clearValue := vk.ClearDepthStencilValue{Depth: depth, Stencil: uint32(stencil)}
	subresourceRange := vk.ImageSubresourceRange{
		AspectMask: imageAspect(t.desc.Format),
		LevelCount: t.desc.MipLevels,
		LayerCount: 1,
	}
	vk.CmdClearDepthStencilImage(
		cl.handle, t.image, vk.ImageLayoutTransferDstOptimal,
		&clearValue, 1, []vk.ImageSubresourceRange{subresourceRange},
	)
}

// applyBindingTransitions moves every resource a binding set references
// into the state its descriptor expects.
func (cl *CommandList) applyBindingTransitions(set rhi.BindingSet) {
	vkSet, ok := set.(*BindingSet)
	if !ok {
		core.LogError("binding set was not created by this device")
		return
	}
	for _, item := range vkSet.desc.Bindings {
		switch item.Type {
		case rhi.ResourceTypeConstantBuffer:
			if buffer, ok := item.Buffer.(*Buffer); ok {
				cl.bufferBarrier(buffer, rhi.StateConstantBuffer)
			}
		case rhi.ResourceTypeTextureSRV:
			if texture, ok := item.Texture.(*Texture); ok {
				cl.textureBarrier(texture, rhi.StateShaderResource)
			}
		case rhi.ResourceTypeTextureUAV:
			if texture, ok := item.Texture.(*Texture); ok {
				cl.textureBarrier(texture, rhi.StateUnorderedAccess)
			}
		}
	}
}

func (cl *CommandList) SetGraphicsState(state rhi.GraphicsState) {
	pipeline, ok := state.Pipeline.(*GraphicsPipeline)
	if !ok || pipeline == nil {
		core.LogError("graphics state has no usable pipeline")
		return
	}
	vkFramebuffer, ok := state.Framebuffer.(*Framebuffer)
	if !ok || vkFramebuffer == nil {
		core.LogError("graphics state has no usable framebuffer")
		return
	}

	for _, attachment := range vkFramebuffer.desc.ColorAttachments {
		if texture, ok := attachment.(*Texture); ok {
			cl.textureBarrier(texture, rhi.StateRenderTarget)
		}
	}
	if vkFramebuffer.desc.DepthAttachment != nil {
		if texture, ok := vkFramebuffer.desc.DepthAttachment.(*Texture); ok {
			cl.textureBarrier(texture, rhi.StateDepthWrite)
		}
	}
	for _, set := range state.BindingSets {
		cl.applyBindingTransitions(set)
	}
	for _, binding := range state.VertexBuffers {
		if buffer, ok := binding.Buffer.(*Buffer); ok {
			cl.bufferBarrier(buffer, rhi.StateVertexBuffer)
		}
	}
	if state.IndexBuffer.Buffer != nil {
		if buffer, ok := state.IndexBuffer.Buffer.(*Buffer); ok {
			cl.bufferBarrier(buffer, rhi.StateIndexBuffer)
		}
	}

	cl.beginRenderPass(vkFramebuffer)
	vk.CmdBindPipeline(cl.handle, vk.PipelineBindPointGraphics, pipeline.handle)

	viewport := vkFramebuffer.info.GetViewport()
	if len(state.Viewports) > 0 {
		viewport = state.Viewports[0]
	}
	cl.setViewport(viewport)
	cl.bindDescriptorSets(vk.PipelineBindPointGraphics, pipeline.layout, state.BindingSets)

	for _, binding := range state.VertexBuffers {
		buffer, ok := binding.Buffer.(*Buffer)
		if !ok {
			continue
		}
		vk.CmdBindVertexBuffers(
			cl.handle, binding.Slot, 1,
			[]vk.Buffer{buffer.handle},
			[]vk.DeviceSize{vk.DeviceSize(binding.Offset)},
		)
	}
	if state.IndexBuffer.Buffer != nil {
		if buffer, ok := state.IndexBuffer.Buffer.(*Buffer); ok {
			vk.CmdBindIndexBuffer(
				cl.handle, buffer.handle,
				vk.DeviceSize(state.IndexBuffer.Offset),
				vk.IndexTypeUint32,
			)
		}
	}
}

func (cl *CommandList) beginRenderPass(fb *Framebuffer) {
	if cl.renderPassActive && cl.boundFramebuffer == fb {
		return
	}
	cl.endRenderPass()

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  fb.renderPass,
		Framebuffer: fb.handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: fb.info.Width, Height: fb.info.Height},
		},
	}
	vk.CmdBeginRenderPass(cl.handle, &beginInfo, vk.SubpassContentsInline)
	cl.renderPassActive = true
	cl.boundFramebuffer = fb
}

func (cl *CommandList) setViewport(v rhi.Viewport) {
	viewport := vk.Viewport{
		X:        v.MinX,
		Y:        v.MinY,
		Width:    v.Width(),
		Height:   v.Height(),
		MinDepth: v.MinZ,
		MaxDepth: v.MaxZ,
	}
	vk.CmdSetViewport(cl.handle, 0, 1, []vk.Viewport{viewport})

	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: int32(v.MinX), Y: int32(v.MinY)},
		Extent: vk.Extent2D{Width: uint32(v.Width()), Height: uint32(v.Height())},
	}
	vk.CmdSetScissor(cl.handle, 0, 1, []vk.Rect2D{scissor})
}

func (cl *CommandList) bindDescriptorSets(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, sets []rhi.BindingSet) {
	if len(sets) == 0 {
		return
	}
	handles := make([]vk.DescriptorSet, 0, len(sets))
	for _, set := range sets {
		vkSet, ok := set.(*BindingSet)
		if !ok {
			core.LogError("binding set was not created by this device")
			return
		}
		handles = append(handles, vkSet.set)
	}
	vk.CmdBindDescriptorSets(cl.handle, bindPoint, layout, 0, uint32(len(handles)), handles, 0, nil)
}

func (cl *CommandList) Draw(args rhi.DrawArguments) {
	if !cl.renderPassActive {
		core.LogError("Draw called without a graphics state")
		return
	}
	vk.CmdDraw(cl.handle, args.VertexCount, args.InstanceCount, uint32(args.StartVertex), args.StartInstance)
}

func (cl *CommandList) DrawIndexed(args rhi.DrawArguments) {
	if !cl.renderPassActive {
		core.LogError("DrawIndexed called without a graphics state")
		return
	}
	vk.CmdDrawIndexed(cl.handle, args.VertexCount, args.InstanceCount, args.StartIndex, args.StartVertex, args.StartInstance)
}

func (cl *CommandList) SetComputeState(state rhi.ComputeState) {
	pipeline, ok := state.Pipeline.(*ComputePipeline)
	if !ok || pipeline == nil {
		core.LogError("compute state has no usable pipeline")
		return
	}
	cl.endRenderPass()
	for _, set := range state.BindingSets {
		cl.applyBindingTransitions(set)
	}
	vk.CmdBindPipeline(cl.handle, vk.PipelineBindPointCompute, pipeline.handle)
	cl.bindDescriptorSets(vk.PipelineBindPointCompute, pipeline.layout, state.BindingSets)
}

func (cl *CommandList) Dispatch(groupsX, groupsY, groupsZ uint32) {
	if cl.renderPassActive {
		core.LogError("Dispatch called without a compute state")
		return
	}
	vk.CmdDispatch(cl.handle, groupsX, groupsY, groupsZ)
}

func (cl *CommandList) SetMeshletState(state rhi.MeshletState) {
	pipeline, ok := state.Pipeline.(*MeshletPipeline)
	if !ok || pipeline == nil {
		core.LogError("meshlet state has no usable pipeline")
		return
	}
	vkFramebuffer, ok := state.Framebuffer.(*Framebuffer)
	if !ok || vkFramebuffer == nil {
		core.LogError("meshlet state has no usable framebuffer")
		return
	}

	for _, attachment := range vkFramebuffer.desc.ColorAttachments {
		if texture, ok := attachment.(*Texture); ok {
			cl.textureBarrier(texture, rhi.StateRenderTarget)
		}
	}
	if vkFramebuffer.desc.DepthAttachment != nil {
		if texture, ok := vkFramebuffer.desc.DepthAttachment.(*Texture); ok {
			cl.textureBarrier(texture, rhi.StateDepthWrite)
		}
	}
	for _, set := range state.BindingSets {
		cl.applyBindingTransitions(set)
	}

	cl.beginRenderPass(vkFramebuffer)
	vk.CmdBindPipeline(cl.handle, vk.PipelineBindPointGraphics, pipeline.handle)

	viewport := vkFramebuffer.info.GetViewport()
	if len(state.Viewports) > 0 {
		viewport = state.Viewports[0]
	}
	cl.setViewport(viewport)
	cl.bindDescriptorSets(vk.PipelineBindPointGraphics, pipeline.layout, state.BindingSets)
}

func (cl *CommandList) DispatchMesh(groupsX uint32) {
	if !cl.renderPassActive {
		core.LogError("DispatchMesh called without a meshlet state")
		return
	}
	vk.CmdDrawMeshTasksNv(cl.handle, groupsX, 0)
}

func (cl *CommandList) freeStaging() {
	for _, allocation := range cl.staging {
		vk.DestroyBuffer(cl.ctx.device, allocation.buffer, cl.ctx.allocator)
		vk.FreeMemory(cl.ctx.device, allocation.memory, cl.ctx.allocator)
	}
	cl.staging = nil
}

func (cl *CommandList) Destroy() {
	cl.freeStaging()
	if cl.handle != nil {
		vk.FreeCommandBuffers(cl.ctx.device, cl.ctx.commandPool, 1, []vk.CommandBuffer{cl.handle})
		cl.handle = nil
	}
}
