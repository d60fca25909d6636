package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/torus-gfx/torus/engine/rhi"
)

/**
 * @brief GPU buffer memory. wgpu picks the heap; the usage flags follow
 * the desc so the buffer can be filled through the queue and bound for
 * its declared roles.
 */
type Buffer struct {
	ctx       *context
	desc      rhi.BufferDesc
	handle    *wgpu.Buffer
	state     rhi.ResourceState
	permanent bool
}

func (d *Device) NewBuffer(desc rhi.BufferDesc) (rhi.Buffer, error) {
	if desc.ByteSize <= 0 {
		return nil, fmt.Errorf("buffer %q must have a positive size", desc.DebugName)
	}

	usage := wgpu.BufferUsageCopyDst
	if desc.IsVertexBuffer {
		usage |= wgpu.BufferUsageVertex
	}
	if desc.IsIndexBuffer {
		usage |= wgpu.BufferUsageIndex
	}
	if desc.IsConstantBuffer {
		usage |= wgpu.BufferUsageUniform
	}

	handle, err := d.ctx.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: safeString(desc.DebugName, "buffer"),
		Size:  uint64(desc.ByteSize),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", desc.DebugName, err)
	}

	return &Buffer{ctx: d.ctx, desc: desc, handle: handle, state: desc.InitialState}, nil
}

func (b *Buffer) Desc() rhi.BufferDesc { return b.desc }

func (b *Buffer) Destroy() {
	if b.handle != nil {
		b.handle.Release()
		b.handle = nil
	}
}

// upload validates a queue write against the buffer bounds.
func (b *Buffer) upload(data []byte, destOffset int64) error {
	if destOffset < 0 || destOffset+int64(len(data)) > b.desc.ByteSize {
		return fmt.Errorf("write of %d bytes at offset %d overflows buffer %q of size %d",
			len(data), destOffset, b.desc.DebugName, b.desc.ByteSize)
	}
	b.ctx.queue.WriteBuffer(b.handle, uint64(destOffset), data)
	return nil
}

/**
 * @brief A 2D texture and its default view. The view covers the whole
 * mip chain and is what bindings and render passes attach. Swapchain
 * textures do not own their handle; it is swapped in per frame.
 */
type Texture struct {
	ctx        *context
	desc       rhi.TextureDesc
	handle     *wgpu.Texture
	view       *wgpu.TextureView
	state      rhi.ResourceState
	permanent  bool
	ownsHandle bool
}

func (d *Device) NewTexture(desc rhi.TextureDesc) (rhi.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture %q must have a non zero extent", desc.DebugName)
	}
	format := toWgpuTextureFormat(desc.Format)
	if format == wgpu.TextureFormatUndefined {
		return nil, fmt.Errorf("texture %q: format %s is not supported here", desc.DebugName, desc.Format)
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	if desc.SampleCount == 0 {
		desc.SampleCount = 1
	}

	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if desc.IsRenderTarget {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	if desc.IsUAV {
		// storage targets keep the attachment usage so ClearTextureFloat
		// can run as a render pass
		usage |= wgpu.TextureUsageStorageBinding | wgpu.TextureUsageRenderAttachment
	}

	handle, err := d.ctx.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         safeString(desc.DebugName, "texture"),
		Usage:         usage,
		Dimension:     wgpu.TextureDimension2D,
		Size:          wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		Format:        format,
		MipLevelCount: desc.MipLevels,
		SampleCount:   desc.SampleCount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", desc.DebugName, err)
	}

	view, err := handle.CreateView(nil)
	if err != nil {
		handle.Release()
		return nil, fmt.Errorf("failed to create a view for texture %q: %w", desc.DebugName, err)
	}

	return &Texture{
		ctx:        d.ctx,
		desc:       desc,
		handle:     handle,
		view:       view,
		state:      desc.InitialState,
		ownsHandle: true,
	}, nil
}

func (t *Texture) Desc() rhi.TextureDesc { return t.desc }

func (t *Texture) Destroy() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.handle != nil && t.ownsHandle {
		t.handle.Release()
	}
	t.handle = nil
}

/** @brief Sampler state object. */
type Sampler struct {
	desc   rhi.SamplerDesc
	handle *wgpu.Sampler
}

func (d *Device) NewSampler(desc rhi.SamplerDesc) (rhi.Sampler, error) {
	maxAnisotropy := uint16(1)
	if desc.MaxAnisotropy > 1 {
		maxAnisotropy = uint16(desc.MaxAnisotropy)
	}

	handle, err := d.ctx.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "sampler",
		AddressModeU:  toWgpuAddressMode(desc.AddressU),
		AddressModeV:  toWgpuAddressMode(desc.AddressV),
		AddressModeW:  toWgpuAddressMode(desc.AddressW),
		MagFilter:     toWgpuFilter(desc.MagFilter),
		MinFilter:     toWgpuFilter(desc.MinFilter),
		MipmapFilter:  toWgpuMipmapFilter(desc.MipFilter),
		LodMinClamp:   0,
		LodMaxClamp:   16,
		MaxAnisotropy: maxAnisotropy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create a sampler: %w", err)
	}

	return &Sampler{desc: desc, handle: handle}, nil
}

func (s *Sampler) Desc() rhi.SamplerDesc { return s.desc }

func (s *Sampler) Destroy() {
	if s.handle != nil {
		s.handle.Release()
		s.handle = nil
	}
}

/** @brief A compiled WGSL shader module. */
type Shader struct {
	desc   rhi.ShaderDesc
	module *wgpu.ShaderModule
}

func (d *Device) NewShader(desc rhi.ShaderDesc, bytecode []byte) (rhi.Shader, error) {
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("shader %q has no source", desc.DebugName)
	}
	if desc.Type == rhi.ShaderTypeAmplification || desc.Type == rhi.ShaderTypeMesh {
		return nil, fmt.Errorf("shader %q: wgpu has no %s stage", desc.DebugName, desc.Type)
	}

	module, err := d.ctx.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          safeString(desc.DebugName, "shader"),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: string(bytecode)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create shader %q: %w", desc.DebugName, err)
	}

	return &Shader{desc: desc, module: module}, nil
}

func (s *Shader) Desc() rhi.ShaderDesc { return s.desc }

func (s *Shader) Destroy() {
	if s.module != nil {
		s.module.Release()
		s.module = nil
	}
}

/**
 * @brief Vertex input layout translated to wgpu vertex buffer layouts.
 * Attribute locations follow declaration order; buffer slots are
 * positional, so every slot up to the highest index must be covered.
 */
type InputLayout struct {
	attributes []rhi.VertexAttributeDesc
	layouts    []wgpu.VertexBufferLayout
}

func (d *Device) NewInputLayout(attributes []rhi.VertexAttributeDesc) (rhi.InputLayout, error) {
	layout := &InputLayout{attributes: append([]rhi.VertexAttributeDesc(nil), attributes...)}
	if len(attributes) == 0 {
		return layout, nil
	}

	var maxSlot uint32
	for _, attribute := range attributes {
		if attribute.BufferIndex > maxSlot {
			maxSlot = attribute.BufferIndex
		}
	}

	layouts := make([]wgpu.VertexBufferLayout, maxSlot+1)
	perSlot := make([][]wgpu.VertexAttribute, maxSlot+1)
	for location, attribute := range attributes {
		format := toWgpuVertexFormat(attribute.Format)
		if format == wgpu.VertexFormatUndefined {
			return nil, fmt.Errorf("vertex attribute %q: format %s cannot feed vertex input", attribute.Name, attribute.Format)
		}
		slot := attribute.BufferIndex
		if layouts[slot].ArrayStride != 0 && layouts[slot].ArrayStride != uint64(attribute.ElementStride) {
			return nil, fmt.Errorf("vertex attribute %q: stride %d conflicts with earlier attributes of buffer slot %d",
				attribute.Name, attribute.ElementStride, slot)
		}
		stepMode := wgpu.VertexStepModeVertex
		if attribute.IsInstanced {
			stepMode = wgpu.VertexStepModeInstance
		}
		if len(perSlot[slot]) > 0 && layouts[slot].StepMode != stepMode {
			return nil, fmt.Errorf("vertex attribute %q: per-instance flag conflicts with earlier attributes of buffer slot %d",
				attribute.Name, slot)
		}
		layouts[slot].ArrayStride = uint64(attribute.ElementStride)
		layouts[slot].StepMode = stepMode
		perSlot[slot] = append(perSlot[slot], wgpu.VertexAttribute{
			Format:         format,
			Offset:         uint64(attribute.Offset),
			ShaderLocation: uint32(location),
		})
	}
	for slot := range layouts {
		if len(perSlot[slot]) == 0 {
			return nil, fmt.Errorf("vertex buffer slot %d has no attributes", slot)
		}
		layouts[slot].Attributes = perSlot[slot]
	}

	layout.layouts = layouts
	return layout, nil
}

func (l *InputLayout) Attributes() []rhi.VertexAttributeDesc { return l.attributes }

func (l *InputLayout) Destroy() {}

/** @brief A bind group layout plus the desc it was built from. */
type BindingLayout struct {
	desc   rhi.BindingLayoutDesc
	handle *wgpu.BindGroupLayout
}

func (d *Device) NewBindingLayout(desc rhi.BindingLayoutDesc) (rhi.BindingLayout, error) {
	visibility := toWgpuShaderStage(desc.Visibility)

	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(desc.Bindings))
	for i, item := range desc.Bindings {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: visibility,
		}
		switch item.Type {
		case rhi.ResourceTypeConstantBuffer:
			entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
		case rhi.ResourceTypeTextureSRV:
			sampleType := wgpu.TextureSampleTypeFloat
			if item.Format.HasDepth() {
				// depth formats are not filterable, shaders read them
				// with loads
				sampleType = wgpu.TextureSampleTypeUnfilterableFloat
			}
			entry.Texture = wgpu.TextureBindingLayout{SampleType: sampleType}
		case rhi.ResourceTypeTextureUAV:
			if item.Format == rhi.FormatUnknown {
				return nil, fmt.Errorf("binding layout item %d (slot %d): storage textures need a format in the layout", i, item.Slot)
			}
			entry.StorageTexture = wgpu.StorageTextureBindingLayout{
				Access: wgpu.StorageTextureAccessWriteOnly,
				Format: toWgpuTextureFormat(item.Format),
			}
		case rhi.ResourceTypeSampler:
			entry.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
		default:
			return nil, fmt.Errorf("binding layout item %d (slot %d) has no resource type", i, item.Slot)
		}
		entries = append(entries, entry)
	}

	handle, err := d.ctx.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "binding layout",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create a bind group layout: %w", err)
	}

	return &BindingLayout{desc: desc, handle: handle}, nil
}

func (l *BindingLayout) Desc() rhi.BindingLayoutDesc { return l.desc }

func (l *BindingLayout) Destroy() {
	if l.handle != nil {
		l.handle.Release()
		l.handle = nil
	}
}

/** @brief A bind group holding the concrete resources of one set. */
type BindingSet struct {
	desc   rhi.BindingSetDesc
	layout *BindingLayout
	group  *wgpu.BindGroup
}

func (d *Device) NewBindingSet(desc rhi.BindingSetDesc, layout rhi.BindingLayout) (rhi.BindingSet, error) {
	wlayout, ok := layout.(*BindingLayout)
	if !ok {
		return nil, fmt.Errorf("binding layout was not created by this device")
	}
	layoutDesc := wlayout.desc
	if len(desc.Bindings) != len(layoutDesc.Bindings) {
		return nil, fmt.Errorf("binding set has %d items, the layout expects %d", len(desc.Bindings), len(layoutDesc.Bindings))
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(desc.Bindings))
	for i, item := range desc.Bindings {
		expected := layoutDesc.Bindings[i]
		if item.Slot != expected.Slot || item.Type != expected.Type {
			return nil, fmt.Errorf("binding set item %d (slot %d, %s) does not match layout item (slot %d, %s)",
				i, item.Slot, item.Type, expected.Slot, expected.Type)
		}

		entry := wgpu.BindGroupEntry{Binding: uint32(i)}
		switch item.Type {
		case rhi.ResourceTypeConstantBuffer:
			buffer, ok := item.Buffer.(*Buffer)
			if !ok || buffer == nil {
				return nil, fmt.Errorf("binding set item %d (slot %d) has no buffer", i, item.Slot)
			}
			resolved := item.Range.Resolve(buffer.desc)
			entry.Buffer = buffer.handle
			entry.Offset = uint64(resolved.ByteOffset)
			entry.Size = uint64(resolved.ByteSize)
		case rhi.ResourceTypeTextureSRV, rhi.ResourceTypeTextureUAV:
			texture, ok := item.Texture.(*Texture)
			if !ok || texture == nil {
				return nil, fmt.Errorf("binding set item %d (slot %d) has no texture", i, item.Slot)
			}
			entry.TextureView = texture.view
		case rhi.ResourceTypeSampler:
			sampler, ok := item.Sampler.(*Sampler)
			if !ok || sampler == nil {
				return nil, fmt.Errorf("binding set item %d (slot %d) has no sampler", i, item.Slot)
			}
			entry.Sampler = sampler.handle
		}
		entries = append(entries, entry)
	}

	group, err := d.ctx.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "binding set",
		Layout:  wlayout.handle,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create a bind group: %w", err)
	}

	return &BindingSet{desc: desc, layout: wlayout, group: group}, nil
}

func (s *BindingSet) Desc() rhi.BindingSetDesc { return s.desc }

func (s *BindingSet) Layout() rhi.BindingLayout { return s.layout }

func (s *BindingSet) Destroy() {
	if s.group != nil {
		s.group.Release()
		s.group = nil
	}
}

/**
 * @brief Framebuffers are virtual in this backend. wgpu render passes
 * take attachment views directly, so only the attachment list and the
 * info derived from it survive creation.
 */
type Framebuffer struct {
	desc rhi.FramebufferDesc
	info rhi.FramebufferInfo
}

func (d *Device) NewFramebuffer(desc rhi.FramebufferDesc) (rhi.Framebuffer, error) {
	if len(desc.ColorAttachments) == 0 && desc.DepthAttachment == nil {
		return nil, fmt.Errorf("framebuffer needs at least one attachment")
	}
	for i, attachment := range desc.ColorAttachments {
		if _, ok := attachment.(*Texture); !ok {
			return nil, fmt.Errorf("color attachment %d was not created by this device", i)
		}
	}
	if desc.DepthAttachment != nil {
		if _, ok := desc.DepthAttachment.(*Texture); !ok {
			return nil, fmt.Errorf("depth attachment was not created by this device")
		}
	}

	return &Framebuffer{desc: desc, info: rhi.NewFramebufferInfo(desc)}, nil
}

func (f *Framebuffer) Desc() rhi.FramebufferDesc { return f.desc }

func (f *Framebuffer) Info() rhi.FramebufferInfo { return f.info }

func (f *Framebuffer) Destroy() {}
