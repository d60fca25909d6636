package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/rhi"
)

// CommandList records into a wgpu command encoder. Render and compute
// passes begin lazily on SetGraphicsState and SetComputeState and end
// whenever a clear or a pass of the other kind needs the encoder.
// Close finishes the encoder into a command buffer that the device
// submits on ExecuteCommandList.
type CommandList struct {
	ctx *context

	open     bool
	encoder  *wgpu.CommandEncoder
	commands *wgpu.CommandBuffer

	renderPass       *wgpu.RenderPassEncoder
	boundFramebuffer *Framebuffer
	computePass      *wgpu.ComputePassEncoder
}

func (cl *CommandList) Open() error {
	if cl.open {
		return fmt.Errorf("command list is already open")
	}
	if cl.commands != nil {
		// recorded but never executed
		cl.commands.Release()
		cl.commands = nil
	}

	encoder, err := cl.ctx.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create a command encoder: %w", err)
	}
	cl.encoder = encoder
	cl.open = true
	return nil
}

func (cl *CommandList) Close() error {
	if !cl.open {
		return fmt.Errorf("command list is not open")
	}
	cl.endComputePass()
	cl.endRenderPass()

	commands, err := cl.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish the command encoder: %w", err)
	}
	cl.encoder.Release()
	cl.encoder = nil
	cl.commands = commands
	cl.open = false
	return nil
}

func (cl *CommandList) endRenderPass() {
	if cl.renderPass != nil {
		cl.renderPass.End()
		cl.renderPass.Release()
		cl.renderPass = nil
		cl.boundFramebuffer = nil
	}
}

func (cl *CommandList) endComputePass() {
	if cl.computePass != nil {
		cl.computePass.End()
		cl.computePass = nil
	}
}

// WriteBuffer applies immediately through the queue. Queue writes order
// before command buffers submitted later, which covers everything this
// list records.
func (cl *CommandList) WriteBuffer(buffer rhi.Buffer, data []byte, destOffset int64) error {
	wbuffer, ok := buffer.(*Buffer)
	if !ok {
		return fmt.Errorf("buffer was not created by this device")
	}
	return wbuffer.upload(data, destOffset)
}

func (cl *CommandList) WriteTexture(texture rhi.Texture, mipLevel uint32, data []byte, rowPitch uint32) error {
	wtexture, ok := texture.(*Texture)
	if !ok {
		return fmt.Errorf("texture was not created by this device")
	}
	if mipLevel >= wtexture.desc.MipLevels {
		return fmt.Errorf(
			"mip level %d out of range for texture %q with %d levels",
			mipLevel, wtexture.desc.DebugName, wtexture.desc.MipLevels,
		)
	}

	width := mipExtent(wtexture.desc.Width, mipLevel)
	height := mipExtent(wtexture.desc.Height, mipLevel)

	bytesPerTexel := wtexture.desc.Format.BytesPerElement()
	if rowPitch == 0 {
		rowPitch = width * bytesPerTexel
	} else if rowPitch%bytesPerTexel != 0 {
		return fmt.Errorf(
			"row pitch %d is not a multiple of the %d byte texel size of %s",
			rowPitch, bytesPerTexel, wtexture.desc.Format,
		)
	}

	cl.ctx.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  wtexture.handle,
			MipLevel: mipLevel,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  rowPitch,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	return nil
}

func (cl *CommandList) BeginTrackingBufferState(buffer rhi.Buffer, state rhi.ResourceState) {
	wbuffer, ok := buffer.(*Buffer)
	if !ok {
		core.LogError("buffer was not created by this device")
		return
	}
	wbuffer.state = state
}

func (cl *CommandList) SetBufferState(buffer rhi.Buffer, state rhi.ResourceState) {
	wbuffer, ok := buffer.(*Buffer)
	if !ok {
		core.LogError("buffer was not created by this device")
		return
	}
	cl.bufferState(wbuffer, state)
}

func (cl *CommandList) SetPermanentBufferState(buffer rhi.Buffer, state rhi.ResourceState) {
	wbuffer, ok := buffer.(*Buffer)
	if !ok {
		core.LogError("buffer was not created by this device")
		return
	}
	cl.bufferState(wbuffer, state)
	wbuffer.permanent = true
}

func (cl *CommandList) BeginTrackingTextureState(texture rhi.Texture, state rhi.ResourceState) {
	wtexture, ok := texture.(*Texture)
	if !ok {
		core.LogError("texture was not created by this device")
		return
	}
	wtexture.state = state
}

func (cl *CommandList) SetTextureState(texture rhi.Texture, state rhi.ResourceState) {
	wtexture, ok := texture.(*Texture)
	if !ok {
		core.LogError("texture was not created by this device")
		return
	}
	cl.textureState(wtexture, state)
}

func (cl *CommandList) SetPermanentTextureState(texture rhi.Texture, state rhi.ResourceState) {
	wtexture, ok := texture.(*Texture)
	if !ok {
		core.LogError("texture was not created by this device")
		return
	}
	cl.textureState(wtexture, state)
	wtexture.permanent = true
}

// bufferState tracks a transition. wgpu synchronizes on its own, so no
// barrier is recorded; the bookkeeping still enforces permanence.
func (cl *CommandList) bufferState(b *Buffer, newState rhi.ResourceState) {
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
	b.state = newState
}

func (cl *CommandList) textureState(t *Texture, newState rhi.ResourceState) {
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
	t.state = newState
}

func (cl *CommandList) ClearColorAttachment(fb rhi.Framebuffer, attachmentIndex uint32, color rhi.Color) {
	wframebuffer, ok := fb.(*Framebuffer)
	if !ok {
		core.LogError("framebuffer was not created by this device")
		return
	}
	if int(attachmentIndex) >= len(wframebuffer.desc.ColorAttachments) {
		core.LogError("clear of color attachment %d out of range", attachmentIndex)
		return
	}
	texture, ok := wframebuffer.desc.ColorAttachments[attachmentIndex].(*Texture)
	if !ok {
		core.LogError("framebuffer attachment was not created by this device")
		return
	}
	cl.textureState(texture, rhi.StateRenderTarget)
	cl.clearColorView(texture, color)
}

func (cl *CommandList) ClearDepthStencilAttachment(fb rhi.Framebuffer, depth float32, stencil uint8) {
	wframebuffer, ok := fb.(*Framebuffer)
	if !ok {
		core.LogError("framebuffer was not created by this device")
		return
	}
	if wframebuffer.desc.DepthAttachment == nil {
		core.LogError("framebuffer has no depth attachment to clear")
		return
	}
	texture, ok := wframebuffer.desc.DepthAttachment.(*Texture)
	if !ok {
		core.LogError("framebuffer attachment was not created by this device")
		return
	}
	cl.textureState(texture, rhi.StateDepthWrite)
	cl.clearDepthStencilView(texture, depth, stencil)
}

// ClearTextureFloat clears through an attachment load op, which needs
// the texture to be usable as an attachment. Render targets and storage
// targets are created that way.
func (cl *CommandList) ClearTextureFloat(texture rhi.Texture, color rhi.Color) {
	wtexture, ok := texture.(*Texture)
	if !ok {
		core.LogError("texture was not created by this device")
		return
	}
	if wtexture.desc.Format.HasDepth() {
		cl.textureState(wtexture, rhi.StateDepthWrite)
		cl.clearDepthStencilView(wtexture, color.R, 0)
		return
	}
	if !wtexture.desc.IsRenderTarget && !wtexture.desc.IsUAV {
		core.LogError("texture %q cannot be cleared, it is not an attachment", wtexture.desc.DebugName)
		return
	}
	cl.textureState(wtexture, rhi.StateRenderTarget)
	cl.clearColorView(wtexture, color)
}

// clearColorView runs an empty render pass whose load op clears the
// texture; wgpu has no dedicated clear command for textures.
func (cl *CommandList) clearColorView(t *Texture, color rhi.Color) {
	if cl.encoder == nil {
		core.LogError("command list is not open")
		return
	}
	if t.view == nil {
		core.LogError("texture %q has no view to clear", t.desc.DebugName)
		return
	}
	cl.endComputePass()
	cl.endRenderPass()

	pass := cl.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    t.view,
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(color.R),
				G: float64(color.G),
				B: float64(color.B),
				A: float64(color.A),
			},
		}},
	})
	pass.End()
	pass.Release()
}

func (cl *CommandList) clearDepthStencilView(t *Texture, depth float32, stencil uint8) {
	if cl.encoder == nil {
		core.LogError("command list is not open")
		return
	}
	if t.view == nil {
		core.LogError("texture %q has no view to clear", t.desc.DebugName)
		return
	}
	cl.endComputePass()
	cl.endRenderPass()

	attachment := &wgpu.RenderPassDepthStencilAttachment{
		View:            t.view,
		DepthLoadOp:     wgpu.LoadOpClear,
		DepthStoreOp:    wgpu.StoreOpStore,
		DepthClearValue: depth,
	}
	if t.desc.Format.HasStencil() {
		attachment.StencilLoadOp = wgpu.LoadOpClear
		attachment.StencilStoreOp = wgpu.StoreOpStore
		attachment.StencilClearValue = uint32(stencil)
	}
	pass := cl.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		DepthStencilAttachment: attachment,
	})
	pass.End()
	pass.Release()
}

// applyBindingStates moves every resource a binding set references into
// the state its binding implies, keeping the tracked states in step
// with the other backends.
func (cl *CommandList) applyBindingStates(set rhi.BindingSet) {
	wset, ok := set.(*BindingSet)
	if !ok {
		core.LogError("binding set was not created by this device")
		return
	}
	for _, item := range wset.desc.Bindings {
		switch item.Type {
		case rhi.ResourceTypeConstantBuffer:
			if buffer, ok := item.Buffer.(*Buffer); ok {
				cl.bufferState(buffer, rhi.StateConstantBuffer)
			}
		case rhi.ResourceTypeTextureSRV:
			if texture, ok := item.Texture.(*Texture); ok {
				cl.textureState(texture, rhi.StateShaderResource)
			}
		case rhi.ResourceTypeTextureUAV:
			if texture, ok := item.Texture.(*Texture); ok {
				cl.textureState(texture, rhi.StateUnorderedAccess)
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
	wframebuffer, ok := state.Framebuffer.(*Framebuffer)
	if !ok || wframebuffer == nil {
		core.LogError("graphics state has no usable framebuffer")
		return
	}
	if cl.encoder == nil {
		core.LogError("command list is not open")
		return
	}

	for _, attachment := range wframebuffer.desc.ColorAttachments {
		if texture, ok := attachment.(*Texture); ok {
			cl.textureState(texture, rhi.StateRenderTarget)
		}
	}
	if wframebuffer.desc.DepthAttachment != nil {
		if texture, ok := wframebuffer.desc.DepthAttachment.(*Texture); ok {
			cl.textureState(texture, rhi.StateDepthWrite)
		}
	}
	for _, set := range state.BindingSets {
		cl.applyBindingStates(set)
	}
	for _, binding := range state.VertexBuffers {
		if buffer, ok := binding.Buffer.(*Buffer); ok {
			cl.bufferState(buffer, rhi.StateVertexBuffer)
		}
	}
	if state.IndexBuffer.Buffer != nil {
		if buffer, ok := state.IndexBuffer.Buffer.(*Buffer); ok {
			cl.bufferState(buffer, rhi.StateIndexBuffer)
		}
	}

	cl.beginRenderPass(wframebuffer)
	if cl.renderPass == nil {
		return
	}
	cl.renderPass.SetPipeline(pipeline.handle)

	viewport := wframebuffer.info.GetViewport()
	if len(state.Viewports) > 0 {
		viewport = state.Viewports[0]
	}
	cl.setViewport(viewport)

	for i, set := range state.BindingSets {
		wset, ok := set.(*BindingSet)
		if !ok {
			core.LogError("binding set was not created by this device")
			return
		}
		cl.renderPass.SetBindGroup(uint32(i), wset.group, nil)
	}

	for _, binding := range state.VertexBuffers {
		buffer, ok := binding.Buffer.(*Buffer)
		if !ok {
			continue
		}
		cl.renderPass.SetVertexBuffer(binding.Slot, buffer.handle, uint64(binding.Offset), wgpu.WholeSize)
	}
	if state.IndexBuffer.Buffer != nil {
		if buffer, ok := state.IndexBuffer.Buffer.(*Buffer); ok {
			cl.renderPass.SetIndexBuffer(buffer.handle, wgpu.IndexFormatUint32, uint64(state.IndexBuffer.Offset), wgpu.WholeSize)
		}
	}
}

func (cl *CommandList) beginRenderPass(fb *Framebuffer) {
	if cl.renderPass != nil && cl.boundFramebuffer == fb {
		return
	}
	cl.endComputePass()
	cl.endRenderPass()

	colorAttachments := make([]wgpu.RenderPassColorAttachment, 0, len(fb.desc.ColorAttachments))
	for _, attachment := range fb.desc.ColorAttachments {
		texture, ok := attachment.(*Texture)
		if !ok || texture.view == nil {
			core.LogError("framebuffer color attachment has no view")
			return
		}
		colorAttachments = append(colorAttachments, wgpu.RenderPassColorAttachment{
			View:    texture.view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		})
	}
	descriptor := &wgpu.RenderPassDescriptor{ColorAttachments: colorAttachments}
	if fb.desc.DepthAttachment != nil {
		texture, ok := fb.desc.DepthAttachment.(*Texture)
		if !ok || texture.view == nil {
			core.LogError("framebuffer depth attachment has no view")
			return
		}
		depthAttachment := &wgpu.RenderPassDepthStencilAttachment{
			View:         texture.view,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
		if texture.desc.Format.HasStencil() {
			depthAttachment.StencilLoadOp = wgpu.LoadOpLoad
			depthAttachment.StencilStoreOp = wgpu.StoreOpStore
		}
		descriptor.DepthStencilAttachment = depthAttachment
	}

	cl.renderPass = cl.encoder.BeginRenderPass(descriptor)
	cl.boundFramebuffer = fb
}

func (cl *CommandList) setViewport(v rhi.Viewport) {
	cl.renderPass.SetViewport(v.MinX, v.MinY, v.Width(), v.Height(), v.MinZ, v.MaxZ)
	cl.renderPass.SetScissorRect(uint32(v.MinX), uint32(v.MinY), uint32(v.Width()), uint32(v.Height()))
}

func (cl *CommandList) Draw(args rhi.DrawArguments) {
	if cl.renderPass == nil {
		core.LogError("Draw called without a graphics state")
		return
	}
	cl.renderPass.Draw(args.VertexCount, args.InstanceCount, uint32(args.StartVertex), args.StartInstance)
}

func (cl *CommandList) DrawIndexed(args rhi.DrawArguments) {
	if cl.renderPass == nil {
		core.LogError("DrawIndexed called without a graphics state")
		return
	}
	cl.renderPass.DrawIndexed(args.VertexCount, args.InstanceCount, args.StartIndex, args.StartVertex, args.StartInstance)
}

func (cl *CommandList) SetComputeState(state rhi.ComputeState) {
	pipeline, ok := state.Pipeline.(*ComputePipeline)
	if !ok || pipeline == nil {
		core.LogError("compute state has no usable pipeline")
		return
	}
	if cl.encoder == nil {
		core.LogError("command list is not open")
		return
	}

	cl.endRenderPass()
	for _, set := range state.BindingSets {
		cl.applyBindingStates(set)
	}

	if cl.computePass == nil {
		cl.computePass = cl.encoder.BeginComputePass(nil)
	}
	cl.computePass.SetPipeline(pipeline.handle)
	for i, set := range state.BindingSets {
		wset, ok := set.(*BindingSet)
		if !ok {
			core.LogError("binding set was not created by this device")
			return
		}
		cl.computePass.SetBindGroup(uint32(i), wset.group, nil)
	}
}

func (cl *CommandList) Dispatch(groupsX, groupsY, groupsZ uint32) {
	if cl.computePass == nil {
		core.LogError("Dispatch called without a compute state")
		return
	}
	cl.computePass.DispatchWorkgroups(groupsX, groupsY, groupsZ)
}

func (cl *CommandList) SetMeshletState(state rhi.MeshletState) {
	core.LogError("meshlet state set on a device without meshlet support")
}

func (cl *CommandList) DispatchMesh(groupsX uint32) {
	core.LogError("DispatchMesh called on a device without meshlet support")
}

func (cl *CommandList) Destroy() {
	cl.endComputePass()
	cl.endRenderPass()
	if cl.encoder != nil {
		cl.encoder.Release()
		cl.encoder = nil
		cl.open = false
	}
	if cl.commands != nil {
		cl.commands.Release()
		cl.commands = nil
	}
}
