package rhi

/** @brief The kind of resource attached at a binding slot. */
type BindingResourceType uint8

const (
	ResourceTypeNone BindingResourceType = iota
	ResourceTypeConstantBuffer
	ResourceTypeTextureSRV
	ResourceTypeTextureUAV
	ResourceTypeSampler
)

func (t BindingResourceType) String() string {
	switch t {
	case ResourceTypeConstantBuffer:
		return "constant-buffer"
	case ResourceTypeTextureSRV:
		return "texture-srv"
	case ResourceTypeTextureUAV:
		return "texture-uav"
	case ResourceTypeSampler:
		return "sampler"
	}
	return "none"
}

/**
 * @brief One resource attached to a binding set. Exactly one of Buffer,
 * Texture or Sampler is non nil depending on Type.
 */
type BindingSetItem struct {
	Slot    uint32
	Type    BindingResourceType
	Buffer  Buffer
	Range   BufferRange
	Texture Texture
	Sampler Sampler
}

// BindingConstantBuffer attaches a whole buffer as a constant buffer.
func BindingConstantBuffer(slot uint32, buffer Buffer) BindingSetItem {
	return BindingSetItem{Slot: slot, Type: ResourceTypeConstantBuffer, Buffer: buffer, Range: EntireBuffer}
}

// BindingConstantBufferRange attaches a slice of a buffer as a constant
// buffer. The offset must be a multiple of ConstantBufferAlignment.
func BindingConstantBufferRange(slot uint32, buffer Buffer, rng BufferRange) BindingSetItem {
	return BindingSetItem{Slot: slot, Type: ResourceTypeConstantBuffer, Buffer: buffer, Range: rng}
}

// BindingTextureSRV attaches a texture for sampling or reading.
func BindingTextureSRV(slot uint32, texture Texture) BindingSetItem {
	return BindingSetItem{Slot: slot, Type: ResourceTypeTextureSRV, Texture: texture}
}

// BindingTextureUAV attaches a texture for storage reads and writes.
func BindingTextureUAV(slot uint32, texture Texture) BindingSetItem {
	return BindingSetItem{Slot: slot, Type: ResourceTypeTextureUAV, Texture: texture}
}

// BindingSampler attaches a sampler.
func BindingSampler(slot uint32, sampler Sampler) BindingSetItem {
	return BindingSetItem{Slot: slot, Type: ResourceTypeSampler, Sampler: sampler}
}

/**
 * @brief Describes a binding set: the concrete resources bound for one
 * draw or dispatch.
 */
type BindingSetDesc struct {
	Bindings []BindingSetItem
}

/** @brief The slot and type shape of one entry in a binding layout.
 * Format carries the texture format for texture entries; backends that
 * type their storage bindings, such as WebGPU, require it for UAVs. */
type BindingLayoutItem struct {
	Slot   uint32
	Type   BindingResourceType
	Format Format
}

/**
 * @brief Describes a binding layout: the resource shape a pipeline
 * expects, without the concrete resources.
 */
type BindingLayoutDesc struct {
	/** @brief The shader stages that can see these bindings. */
	Visibility ShaderType
	Bindings   []BindingLayoutItem
}

type BindingLayout interface {
	Desc() BindingLayoutDesc
	Destroy()
}

type BindingSet interface {
	Desc() BindingSetDesc
	Layout() BindingLayout
	Destroy()
}

// LayoutFromBindingSet derives the layout desc matching a binding set
// desc, keeping slot order. Texture entries carry their format into the
// layout so backends that need it there can pick it up.
func LayoutFromBindingSet(visibility ShaderType, setDesc BindingSetDesc) BindingLayoutDesc {
	layout := BindingLayoutDesc{Visibility: visibility}
	for _, item := range setDesc.Bindings {
		layoutItem := BindingLayoutItem{Slot: item.Slot, Type: item.Type}
		if item.Texture != nil {
			layoutItem.Format = item.Texture.Desc().Format
		}
		layout.Bindings = append(layout.Bindings, layoutItem)
	}
	return layout
}

// CreateBindingSetAndLayout creates a layout matching setDesc and then
// the binding set itself. Most passes bind one set built this way.
func CreateBindingSetAndLayout(device Device, visibility ShaderType, setDesc BindingSetDesc) (BindingLayout, BindingSet, error) {
	layout, err := device.NewBindingLayout(LayoutFromBindingSet(visibility, setDesc))
	if err != nil {
		return nil, nil, err
	}
	set, err := device.NewBindingSet(setDesc, layout)
	if err != nil {
		layout.Destroy()
		return nil, nil, err
	}
	return layout, set, nil
}
