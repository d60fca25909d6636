package null

import (
	"fmt"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/rhi"
)

// Buffer keeps its contents in Data so tests can inspect uploads.
type Buffer struct {
	device *Device
	desc   rhi.BufferDesc
	Data   []byte

	state     rhi.ResourceState
	permanent bool
	destroyed bool
}

func (d *Device) NewBuffer(desc rhi.BufferDesc) (rhi.Buffer, error) {
	if desc.ByteSize <= 0 {
		return nil, fmt.Errorf("null: buffer %q has invalid size %d", desc.DebugName, desc.ByteSize)
	}
	d.liveBuffers++
	return &Buffer{
		device: d,
		desc:   desc,
		Data:   make([]byte, desc.ByteSize),
		state:  desc.InitialState,
	}, nil
}

func (b *Buffer) Desc() rhi.BufferDesc { return b.desc }

// State returns the buffer's current tracked resource state.
func (b *Buffer) State() rhi.ResourceState { return b.state }

// IsPermanentState reports whether the state was fixed with
// SetPermanentBufferState.
func (b *Buffer) IsPermanentState() bool { return b.permanent }

func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.device.liveBuffers--
}

// Texture keeps uploaded pixel data per mip level.
type Texture struct {
	device *Device
	desc   rhi.TextureDesc
	Mips   map[uint32][]byte

	state     rhi.ResourceState
	permanent bool
	destroyed bool
}

func (d *Device) NewTexture(desc rhi.TextureDesc) (rhi.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("null: texture %q has zero extent", desc.DebugName)
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	if desc.SampleCount == 0 {
		desc.SampleCount = 1
	}
	d.liveTextures++
	return &Texture{
		device: d,
		desc:   desc,
		Mips:   make(map[uint32][]byte),
		state:  desc.InitialState,
	}, nil
}

func (t *Texture) Desc() rhi.TextureDesc { return t.desc }

func (t *Texture) State() rhi.ResourceState { return t.state }

func (t *Texture) IsPermanentState() bool { return t.permanent }

func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.device.liveTextures--
}

type Sampler struct {
	device *Device
	desc   rhi.SamplerDesc
}

func (d *Device) NewSampler(desc rhi.SamplerDesc) (rhi.Sampler, error) {
	d.liveSamplers++
	return &Sampler{device: d, desc: desc}, nil
}

func (s *Sampler) Desc() rhi.SamplerDesc { return s.desc }

func (s *Sampler) Destroy() { s.device.liveSamplers-- }

// Shader retains the bytecode it was created from.
type Shader struct {
	device   *Device
	desc     rhi.ShaderDesc
	Bytecode []byte
}

func (d *Device) NewShader(desc rhi.ShaderDesc, bytecode []byte) (rhi.Shader, error) {
	// Empty bytecode is allowed; nothing here would execute it anyway.
	d.liveShaders++
	return &Shader{device: d, desc: desc, Bytecode: bytecode}, nil
}

func (s *Shader) Desc() rhi.ShaderDesc { return s.desc }

func (s *Shader) Destroy() { s.device.liveShaders-- }

type InputLayout struct {
	attributes []rhi.VertexAttributeDesc
}

func (d *Device) NewInputLayout(attributes []rhi.VertexAttributeDesc) (rhi.InputLayout, error) {
	out := make([]rhi.VertexAttributeDesc, len(attributes))
	copy(out, attributes)
	return &InputLayout{attributes: out}, nil
}

func (l *InputLayout) Attributes() []rhi.VertexAttributeDesc { return l.attributes }

func (l *InputLayout) Destroy() {}

type BindingLayout struct {
	desc rhi.BindingLayoutDesc
}

func (d *Device) NewBindingLayout(desc rhi.BindingLayoutDesc) (rhi.BindingLayout, error) {
	return &BindingLayout{desc: desc}, nil
}

func (l *BindingLayout) Desc() rhi.BindingLayoutDesc { return l.desc }

func (l *BindingLayout) Destroy() {}

type BindingSet struct {
	desc   rhi.BindingSetDesc
	layout rhi.BindingLayout
}

func (d *Device) NewBindingSet(desc rhi.BindingSetDesc, layout rhi.BindingLayout) (rhi.BindingSet, error) {
	if layout == nil {
		return nil, fmt.Errorf("null: binding set created without a layout")
	}
	ld := layout.Desc()
	if len(ld.Bindings) != len(desc.Bindings) {
		return nil, fmt.Errorf("null: binding set has %d items, layout expects %d",
			len(desc.Bindings), len(ld.Bindings))
	}
	for i, item := range desc.Bindings {
		if item.Type != ld.Bindings[i].Type || item.Slot != ld.Bindings[i].Slot {
			return nil, fmt.Errorf("null: binding set item %d does not match the layout", i)
		}
	}
	return &BindingSet{desc: desc, layout: layout}, nil
}

func (s *BindingSet) Desc() rhi.BindingSetDesc { return s.desc }

func (s *BindingSet) Layout() rhi.BindingLayout { return s.layout }

func (s *BindingSet) Destroy() {}

type Framebuffer struct {
	desc rhi.FramebufferDesc
	info rhi.FramebufferInfo
}

func (d *Device) NewFramebuffer(desc rhi.FramebufferDesc) (rhi.Framebuffer, error) {
	if len(desc.ColorAttachments) == 0 && desc.DepthAttachment == nil {
		return nil, fmt.Errorf("null: framebuffer without attachments")
	}
	return &Framebuffer{desc: desc, info: rhi.NewFramebufferInfo(desc)}, nil
}

func (f *Framebuffer) Desc() rhi.FramebufferDesc { return f.desc }

func (f *Framebuffer) Info() rhi.FramebufferInfo { return f.info }

func (f *Framebuffer) Destroy() {}

type GraphicsPipeline struct {
	device *Device
	desc   rhi.GraphicsPipelineDesc
}

func (d *Device) NewGraphicsPipeline(desc rhi.GraphicsPipelineDesc, fb rhi.Framebuffer) (rhi.GraphicsPipeline, error) {
	if desc.VertexShader == nil || desc.PixelShader == nil {
		return nil, fmt.Errorf("null: graphics pipeline %q is missing shader stages", desc.DebugName)
	}
	if fb == nil {
		return nil, fmt.Errorf("null: graphics pipeline %q created without a framebuffer", desc.DebugName)
	}
	d.livePipelines++
	return &GraphicsPipeline{device: d, desc: desc}, nil
}

func (p *GraphicsPipeline) Desc() rhi.GraphicsPipelineDesc { return p.desc }

func (p *GraphicsPipeline) Destroy() { p.device.livePipelines-- }

type ComputePipeline struct {
	device *Device
	desc   rhi.ComputePipelineDesc
}

func (d *Device) NewComputePipeline(desc rhi.ComputePipelineDesc) (rhi.ComputePipeline, error) {
	if !d.features[rhi.FeatureComputeShaders] {
		return nil, core.ErrFeatureUnsupported
	}
	if desc.ComputeShader == nil {
		return nil, fmt.Errorf("null: compute pipeline %q is missing its shader", desc.DebugName)
	}
	d.livePipelines++
	return &ComputePipeline{device: d, desc: desc}, nil
}

func (p *ComputePipeline) Desc() rhi.ComputePipelineDesc { return p.desc }

func (p *ComputePipeline) Destroy() { p.device.livePipelines-- }

type MeshletPipeline struct {
	device *Device
	desc   rhi.MeshletPipelineDesc
}

func (d *Device) NewMeshletPipeline(desc rhi.MeshletPipelineDesc, fb rhi.Framebuffer) (rhi.MeshletPipeline, error) {
	if !d.features[rhi.FeatureMeshlets] {
		return nil, core.ErrFeatureUnsupported
	}
	if desc.MeshShader == nil || desc.PixelShader == nil {
		return nil, fmt.Errorf("null: meshlet pipeline %q is missing shader stages", desc.DebugName)
	}
	if fb == nil {
		return nil, fmt.Errorf("null: meshlet pipeline %q created without a framebuffer", desc.DebugName)
	}
	d.livePipelines++
	return &MeshletPipeline{device: d, desc: desc}, nil
}

func (p *MeshletPipeline) Desc() rhi.MeshletPipelineDesc { return p.desc }

func (p *MeshletPipeline) Destroy() { p.device.livePipelines-- }
