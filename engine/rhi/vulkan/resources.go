package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/torus-gfx/torus/engine/rhi"
)

/**
 * @brief Buffer is a Vulkan buffer backed by host visible memory, so
 * uploads map and copy without a staging step.
 */
type Buffer struct {
	ctx    *context
	desc   rhi.BufferDesc
	handle vk.Buffer
	memory vk.DeviceMemory

	state     rhi.ResourceState
	permanent bool
}

func (d *Device) NewBuffer(desc rhi.BufferDesc) (rhi.Buffer, error) {
	if desc.ByteSize <= 0 {
		return nil, fmt.Errorf("buffer %q has no size", desc.DebugName)
	}

	usage := vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	if desc.IsVertexBuffer {
		usage |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if desc.IsIndexBuffer {
		usage |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if desc.IsConstantBuffer {
		usage |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}

	handle, memory, err := createHostBuffer(d.ctx, desc.ByteSize, usage)
	if err != nil {
		return nil, fmt.Errorf("buffer %q: %w", desc.DebugName, err)
	}

	buffer := &Buffer{
		ctx:       d.ctx,
		desc:      desc,
		handle:    handle,
		memory:    memory,
		state:     desc.InitialState,
		permanent: desc.KeepInitialState,
	}
	return buffer, nil
}

// createHostBuffer allocates a buffer in host visible, coherent memory
// and binds it. The caller owns both handles.
func createHostBuffer(ctx *context, size int64, usage vk.BufferUsageFlags) (vk.Buffer, vk.DeviceMemory, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if result := vk.CreateBuffer(ctx.device, &bufferCreateInfo, ctx.allocator, &handle); result != vk.Success {
		return vk.NullBuffer, vk.NullDeviceMemory, resultErr("vkCreateBuffer", result)
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(ctx.device, handle, &memoryRequirements)
	memoryRequirements.Deref()

	properties := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) |
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	memoryTypeIndex := ctx.findMemoryIndex(memoryRequirements.MemoryTypeBits, properties)
	if memoryTypeIndex < 0 {
		vk.DestroyBuffer(ctx.device, handle, ctx.allocator)
		return vk.NullBuffer, vk.NullDeviceMemory, fmt.Errorf("no host visible memory type available")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryTypeIndex),
	}
	var memory vk.DeviceMemory
	if result := vk.AllocateMemory(ctx.device, &allocateInfo, ctx.allocator, &memory); result != vk.Success {
		vk.DestroyBuffer(ctx.device, handle, ctx.allocator)
		return vk.NullBuffer, vk.NullDeviceMemory, resultErr("vkAllocateMemory", result)
	}
	if result := vk.BindBufferMemory(ctx.device, handle, memory, 0); result != vk.Success {
		vk.FreeMemory(ctx.device, memory, ctx.allocator)
		vk.DestroyBuffer(ctx.device, handle, ctx.allocator)
		return vk.NullBuffer, vk.NullDeviceMemory, resultErr("vkBindBufferMemory", result)
	}
	return handle, memory, nil
}

// writeDeviceMemory maps a host visible allocation and copies data into
// it at the given offset.
func writeDeviceMemory(ctx *context, memory vk.DeviceMemory, offset int64, data []byte) error {
	var pData unsafe.Pointer
	if result := vk.MapMemory(ctx.device, memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &pData); result != vk.Success {
		return resultErr("vkMapMemory", result)
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(ctx.device, memory)
	return nil
}

func (b *Buffer) Desc() rhi.BufferDesc { return b.desc }

// upload copies data into the buffer at the given offset.
func (b *Buffer) upload(data []byte, destOffset int64) error {
	if destOffset+int64(len(data)) > b.desc.ByteSize {
		return fmt.Errorf(
			"write of %d bytes at offset %d overflows buffer %q of size %d",
			len(data), destOffset, b.desc.DebugName, b.desc.ByteSize,
		)
	}
	return writeDeviceMemory(b.ctx, b.memory, destOffset, data)
}

func (b *Buffer) Destroy() {
	if b.handle != vk.NullBuffer {
		vk.DestroyBuffer(b.ctx.device, b.handle, b.ctx.allocator)
		b.handle = vk.NullBuffer
	}
	if b.memory != vk.NullDeviceMemory {
		vk.FreeMemory(b.ctx.device, b.memory, b.ctx.allocator)
		b.memory = vk.NullDeviceMemory
	}
}

/**
 * @brief Texture is a device local image with a single 2D view over
 * all of its mip levels. Swapchain images are wrapped as textures that
 * do not own the underlying image.
 */
type Texture struct {
	ctx    *context
	desc   rhi.TextureDesc
	image  vk.Image
	memory vk.DeviceMemory
	view   vk.ImageView

	ownsImage bool
	state     rhi.ResourceState
	permanent bool
}

func (d *Device) NewTexture(desc rhi.TextureDesc) (rhi.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture %q has a zero extent", desc.DebugName)
	}
	format := toVkFormat(desc.Format)
	if format == vk.FormatUndefined {
		return nil, fmt.Errorf("texture %q uses an unsupported format %s", desc.DebugName, desc.Format)
	}
	mipLevels := desc.MipLevels
	if mipLevels == 0 {
		mipLevels = 1
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) |
		vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) |
		vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	if desc.IsRenderTarget {
		if desc.Format.HasDepth() {
			usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
		} else {
			usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
		}
	}
	if desc.IsUAV {
		usage |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  1,
		},
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if result := vk.CreateImage(d.ctx.device, &imageCreateInfo, d.ctx.allocator, &image); result != vk.Success {
		return nil, resultErr("vkCreateImage", result)
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.ctx.device, image, &memoryRequirements)
	memoryRequirements.Deref()

	memoryTypeIndex := d.ctx.findMemoryIndex(
		memoryRequirements.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if memoryTypeIndex < 0 {
		vk.DestroyImage(d.ctx.device, image, d.ctx.allocator)
		return nil, fmt.Errorf("no device local memory type for texture %q", desc.DebugName)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryTypeIndex),
	}
	var memory vk.DeviceMemory
	if result := vk.AllocateMemory(d.ctx.device, &allocateInfo, d.ctx.allocator, &memory); result != vk.Success {
		vk.DestroyImage(d.ctx.device, image, d.ctx.allocator)
		return nil, resultErr("vkAllocateMemory", result)
	}
	if result := vk.BindImageMemory(d.ctx.device, image, memory, 0); result != vk.Success {
		vk.FreeMemory(d.ctx.device, memory, d.ctx.allocator)
		vk.DestroyImage(d.ctx.device, image, d.ctx.allocator)
		return nil, resultErr("vkBindImageMemory", result)
	}

	view, err := createImageView(d.ctx, image, format, imageAspect(desc.Format), mipLevels)
	if err != nil {
		vk.FreeMemory(d.ctx.device, memory, d.ctx.allocator)
		vk.DestroyImage(d.ctx.device, image, d.ctx.allocator)
		return nil, err
	}

	normalized := desc
	normalized.MipLevels = mipLevels
	texture := &Texture{
		ctx:       d.ctx,
		desc:      normalized,
		image:     image,
		memory:    memory,
		view:      view,
		ownsImage: true,
		state:     rhi.StateUndefined,
		permanent: false,
	}
	return texture, nil
}

// wrapImage builds a texture around an image the swapchain owns.
func wrapImage(ctx *context, image vk.Image, desc rhi.TextureDesc) (*Texture, error) {
	view, err := createImageView(ctx, image, toVkFormat(desc.Format), imageAspect(desc.Format), 1)
	if err != nil {
		return nil, err
	}
	desc.MipLevels = 1
	return &Texture{
		ctx:       ctx,
		desc:      desc,
		image:     image,
		view:      view,
		ownsImage: false,
		state:     rhi.StateUndefined,
	}, nil
}

func createImageView(ctx *context, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags, mipLevels uint32) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if result := vk.CreateImageView(ctx.device, &viewCreateInfo, ctx.allocator, &view); result != vk.Success {
		return vk.NullImageView, resultErr("vkCreateImageView", result)
	}
	return view, nil
}

func (t *Texture) Desc() rhi.TextureDesc { return t.desc }

func (t *Texture) Destroy() {
	if t.view != vk.NullImageView {
		vk.DestroyImageView(t.ctx.device, t.view, t.ctx.allocator)
		t.view = vk.NullImageView
	}
	if !t.ownsImage {
		return
	}
	if t.image != vk.NullImage {
		vk.DestroyImage(t.ctx.device, t.image, t.ctx.allocator)
		t.image = vk.NullImage
	}
	if t.memory != vk.NullDeviceMemory {
		vk.FreeMemory(t.ctx.device, t.memory, t.ctx.allocator)
		t.memory = vk.NullDeviceMemory
	}
}

type Sampler struct {
	ctx    *context
	desc   rhi.SamplerDesc
	handle vk.Sampler
}

func (d *Device) NewSampler(desc rhi.SamplerDesc) (rhi.Sampler, error) {
	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    toVkFilter(desc.MagFilter),
		MinFilter:    toVkFilter(desc.MinFilter),
		MipmapMode:   toVkMipmapMode(desc.MipFilter),
		AddressModeU: toVkAddressMode(desc.AddressU),
		AddressModeV: toVkAddressMode(desc.AddressV),
		AddressModeW: toVkAddressMode(desc.AddressW),
		MinLod:       0,
		MaxLod:       16,
		BorderColor:  vk.BorderColorFloatOpaqueBlack,
	}
	if desc.MaxAnisotropy > 1 {
		samplerCreateInfo.AnisotropyEnable = vk.True
		samplerCreateInfo.MaxAnisotropy = desc.MaxAnisotropy
	}

	var handle vk.Sampler
	if result := vk.CreateSampler(d.ctx.device, &samplerCreateInfo, d.ctx.allocator, &handle); result != vk.Success {
		return nil, resultErr("vkCreateSampler", result)
	}
	return &Sampler{ctx: d.ctx, desc: desc, handle: handle}, nil
}

func (s *Sampler) Desc() rhi.SamplerDesc { return s.desc }

func (s *Sampler) Destroy() {
	if s.handle != vk.NullSampler {
		vk.DestroySampler(s.ctx.device, s.handle, s.ctx.allocator)
		s.handle = vk.NullSampler
	}
}

type Shader struct {
	ctx    *context
	desc   rhi.ShaderDesc
	module vk.ShaderModule
}

func (d *Device) NewShader(desc rhi.ShaderDesc, bytecode []byte) (rhi.Shader, error) {
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("shader %q has no bytecode", desc.DebugName)
	}
	code, err := bytesToUint32(bytecode)
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", desc.DebugName, err)
	}

	moduleCreateInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(bytecode)),
		PCode:    code,
	}
	var module vk.ShaderModule
	if result := vk.CreateShaderModule(d.ctx.device, &moduleCreateInfo, d.ctx.allocator, &module); result != vk.Success {
		return nil, resultErr("vkCreateShaderModule", result)
	}
	return &Shader{ctx: d.ctx, desc: desc, module: module}, nil
}

func (s *Shader) Desc() rhi.ShaderDesc { return s.desc }

func (s *Shader) Destroy() {
	if s.module != vk.NullShaderModule {
		vk.DestroyShaderModule(s.ctx.device, s.module, s.ctx.allocator)
		s.module = vk.NullShaderModule
	}
}

// InputLayout precomputes the vertex input structures consumed at
// pipeline creation.
type InputLayout struct {
	attributes []rhi.VertexAttributeDesc
	bindings   []vk.VertexInputBindingDescription
	vkAttrs    []vk.VertexInputAttributeDescription
}

func (d *Device) NewInputLayout(attributes []rhi.VertexAttributeDesc) (rhi.InputLayout, error) {
	layout := &InputLayout{attributes: append([]rhi.VertexAttributeDesc(nil), attributes...)}

	seen := make(map[uint32]bool)
	for location, attribute := range attributes {
		if !seen[attribute.BufferIndex] {
			seen[attribute.BufferIndex] = true
			inputRate := vk.VertexInputRateVertex
			if attribute.IsInstanced {
				inputRate = vk.VertexInputRateInstance
			}
			layout.bindings = append(layout.bindings, vk.VertexInputBindingDescription{
				Binding:   attribute.BufferIndex,
				Stride:    attribute.ElementStride,
				InputRate: inputRate,
			})
		}
		format := toVkFormat(attribute.Format)
		if format == vk.FormatUndefined {
			return nil, fmt.Errorf("vertex attribute %q uses an unsupported format %s", attribute.Name, attribute.Format)
		}
		layout.vkAttrs = append(layout.vkAttrs, vk.VertexInputAttributeDescription{
			Location: uint32(location),
			Binding:  attribute.BufferIndex,
			Format:   format,
			Offset:   attribute.Offset,
		})
	}
	return layout, nil
}

func (l *InputLayout) Attributes() []rhi.VertexAttributeDesc { return l.attributes }

func (l *InputLayout) Destroy() {}

/**
 * @brief BindingLayout is a descriptor set layout. Descriptor binding
 * indices follow the position of each item in the layout, and shaders
 * are authored against that numbering.
 */
type BindingLayout struct {
	ctx    *context
	desc   rhi.BindingLayoutDesc
	handle vk.DescriptorSetLayout
}

func (d *Device) NewBindingLayout(desc rhi.BindingLayoutDesc) (rhi.BindingLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(desc.Bindings))
	for i, item := range desc.Bindings {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  toVkDescriptorType(item.Type),
			DescriptorCount: 1,
			StageFlags:      toVkStageFlags(desc.Visibility),
		}
	}

	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var handle vk.DescriptorSetLayout
	if result := vk.CreateDescriptorSetLayout(d.ctx.device, &layoutCreateInfo, d.ctx.allocator, &handle); result != vk.Success {
		return nil, resultErr("vkCreateDescriptorSetLayout", result)
	}
	return &BindingLayout{ctx: d.ctx, desc: desc, handle: handle}, nil
}

func (l *BindingLayout) Desc() rhi.BindingLayoutDesc { return l.desc }

func (l *BindingLayout) Destroy() {
	if l.handle != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(l.ctx.device, l.handle, l.ctx.allocator)
		l.handle = vk.NullDescriptorSetLayout
	}
}

// BindingSet allocates one descriptor set from its own pool and writes
// every descriptor once at creation. Sets are immutable afterwards.
type BindingSet struct {
	ctx    *context
	desc   rhi.BindingSetDesc
	layout *BindingLayout
	pool   vk.DescriptorPool
	set    vk.DescriptorSet
}

func (d *Device) NewBindingSet(desc rhi.BindingSetDesc, layout rhi.BindingLayout) (rhi.BindingSet, error) {
	vkLayout, ok := layout.(*BindingLayout)
	if !ok {
		return nil, fmt.Errorf("binding layout was not created by this device")
	}
	if len(desc.Bindings) != len(vkLayout.desc.Bindings) {
		return nil, fmt.Errorf(
			"binding set has %d items, layout expects %d",
			len(desc.Bindings), len(vkLayout.desc.Bindings),
		)
	}

	poolSizes := make(map[vk.DescriptorType]uint32)
	for i, item := range desc.Bindings {
		expected := vkLayout.desc.Bindings[i]
		if item.Slot != expected.Slot || item.Type != expected.Type {
			return nil, fmt.Errorf(
				"binding set item %d (slot %d, %s) does not match layout item (slot %d, %s)",
				i, item.Slot, item.Type, expected.Slot, expected.Type,
			)
		}
		poolSizes[toVkDescriptorType(item.Type)]++
	}

	sizes := make([]vk.DescriptorPoolSize, 0, len(poolSizes))
	for descriptorType, count := range poolSizes {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: descriptorType, DescriptorCount: count})
	}

	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if result := vk.CreateDescriptorPool(d.ctx.device, &poolCreateInfo, d.ctx.allocator, &pool); result != vk.Success {
		return nil, resultErr("vkCreateDescriptorPool", result)
	}

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{vkLayout.handle},
	}
	var set vk.DescriptorSet
	if result := vk.AllocateDescriptorSets(d.ctx.device, &allocateInfo, &set); result != vk.Success {
		vk.DestroyDescriptorPool(d.ctx.device, pool, d.ctx.allocator)
		return nil, resultErr("vkAllocateDescriptorSets", result)
	}

	writes := make([]vk.WriteDescriptorSet, 0, len(desc.Bindings))
	for i, item := range desc.Bindings {
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uint32(i),
			DescriptorCount: 1,
			DescriptorType:  toVkDescriptorType(item.Type),
		}
		switch item.Type {
		case rhi.ResourceTypeConstantBuffer:
			buffer, ok := item.Buffer.(*Buffer)
			if !ok {
				vk.DestroyDescriptorPool(d.ctx.device, pool, d.ctx.allocator)
				return nil, fmt.Errorf("binding set item %d references a foreign buffer", i)
			}
			resolved := item.Range.Resolve(buffer.desc)
			write.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: buffer.handle,
				Offset: vk.DeviceSize(resolved.ByteOffset),
				Range:  vk.DeviceSize(resolved.ByteSize),
			}}
		case rhi.ResourceTypeTextureSRV:
			texture, ok := item.Texture.(*Texture)
			if !ok {
				vk.DestroyDescriptorPool(d.ctx.device, pool, d.ctx.allocator)
				return nil, fmt.Errorf("binding set item %d references a foreign texture", i)
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{
				ImageView:   texture.view,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}}
		case rhi.ResourceTypeTextureUAV:
			texture, ok := item.Texture.(*Texture)
			if !ok {
				vk.DestroyDescriptorPool(d.ctx.device, pool, d.ctx.allocator)
				return nil, fmt.Errorf("binding set item %d references a foreign texture", i)
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{
				ImageView:   texture.view,
				ImageLayout: vk.ImageLayoutGeneral,
			}}
		case rhi.ResourceTypeSampler:
			sampler, ok := item.Sampler.(*Sampler)
			if !ok {
				vk.DestroyDescriptorPool(d.ctx.device, pool, d.ctx.allocator)
				return nil, fmt.Errorf("binding set item %d references a foreign sampler", i)
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{
				Sampler: sampler.handle,
			}}
		default:
			vk.DestroyDescriptorPool(d.ctx.device, pool, d.ctx.allocator)
			return nil, fmt.Errorf("binding set item %d has unsupported type %s", i, item.Type)
		}
		writes = append(writes, write)
	}
	vk.UpdateDescriptorSets(d.ctx.device, uint32(len(writes)), writes, 0, nil)

	bindingSet := &BindingSet{
		ctx:    d.ctx,
		desc:   desc,
		layout: vkLayout,
		pool:   pool,
		set:    set,
	}
	return bindingSet, nil
}

func (s *BindingSet) Desc() rhi.BindingSetDesc  { return s.desc }
func (s *BindingSet) Layout() rhi.BindingLayout { return s.layout }

func (s *BindingSet) Destroy() {
	if s.pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(s.ctx.device, s.pool, s.ctx.allocator)
		s.pool = vk.NullDescriptorPool
	}
}

/**
 * @brief Framebuffer pairs a render pass with the image views it
 * writes. Attachments load and store their contents, so clears happen
 * through transfer operations before rendering begins.
 */
type Framebuffer struct {
	ctx        *context
	desc       rhi.FramebufferDesc
	info       rhi.FramebufferInfo
	renderPass vk.RenderPass
	handle     vk.Framebuffer
}

func (d *Device) NewFramebuffer(desc rhi.FramebufferDesc) (rhi.Framebuffer, error) {
	return newFramebuffer(d.ctx, desc)
}

func newFramebuffer(ctx *context, desc rhi.FramebufferDesc) (*Framebuffer, error) {
	if len(desc.ColorAttachments) == 0 && desc.DepthAttachment == nil {
		return nil, fmt.Errorf("framebuffer needs at least one attachment")
	}
	info := rhi.NewFramebufferInfo(desc)

	var attachments []vk.AttachmentDescription
	var views []vk.ImageView
	colorRefs := make([]vk.AttachmentReference, 0, len(desc.ColorAttachments))

	for _, attachment := range desc.ColorAttachments {
		texture, ok := attachment.(*Texture)
		if !ok {
			return nil, fmt.Errorf("framebuffer color attachment was not created by this device")
		}
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(len(attachments)),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         toVkFormat(texture.desc.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		})
		views = append(views, texture.view)
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}

	if desc.DepthAttachment != nil {
		texture, ok := desc.DepthAttachment.(*Texture)
		if !ok {
			return nil, fmt.Errorf("framebuffer depth attachment was not created by this device")
		}
		depthRef := vk.AttachmentReference{
			Attachment: uint32(len(attachments)),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         toVkFormat(texture.desc.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		views = append(views, texture.view)
		subpass.PDepthStencilAttachment = &depthRef
	}

	renderPassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}
	var renderPass vk.RenderPass
	if result := vk.CreateRenderPass(ctx.device, &renderPassCreateInfo, ctx.allocator, &renderPass); result != vk.Success {
		return nil, resultErr("vkCreateRenderPass", result)
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           info.Width,
		Height:          info.Height,
		Layers:          1,
	}
	var handle vk.Framebuffer
	if result := vk.CreateFramebuffer(ctx.device, &framebufferCreateInfo, ctx.allocator, &handle); result != vk.Success {
		vk.DestroyRenderPass(ctx.device, renderPass, ctx.allocator)
		return nil, resultErr("vkCreateFramebuffer", result)
	}

	framebuffer := &Framebuffer{
		ctx:        ctx,
		desc:       desc,
		info:       info,
		renderPass: renderPass,
		handle:     handle,
	}
	return framebuffer, nil
}

func (f *Framebuffer) Desc() rhi.FramebufferDesc { return f.desc }
func (f *Framebuffer) Info() rhi.FramebufferInfo { return f.info }

func (f *Framebuffer) Destroy() {
	if f.handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(f.ctx.device, f.handle, f.ctx.allocator)
		f.handle = vk.NullFramebuffer
	}
	if f.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(f.ctx.device, f.renderPass, f.ctx.allocator)
		f.renderPass = vk.NullRenderPass
	}
}
