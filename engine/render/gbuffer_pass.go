package render

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/torus-gfx/torus/engine/math"
	"github.com/torus-gfx/torus/engine/rhi"
	"github.com/torus-gfx/torus/engine/scene"
	"github.com/torus-gfx/torus/engine/shaders"
)

/**
 * @brief A pass that draws geometry into a framebuffer. RenderView
 * drives one of these over every item a draw strategy yields.
 */
type GeometryPass interface {
	/** @brief Uploads the per view constants before any item is drawn. */
	PrepareForView(commandList rhi.CommandList, view *PlanarView) error
	/** @brief Records the draw for one item. */
	RenderItem(commandList rhi.CommandList, item *DrawItem, view *PlanarView, framebuffer rhi.Framebuffer) error
}

// RenderView draws every item the strategy yields into the framebuffer
// through the given pass.
func RenderView(commandList rhi.CommandList, view *PlanarView, framebuffer rhi.Framebuffer, strategy DrawStrategy, pass GeometryPass) error {
	if err := pass.PrepareForView(commandList, view); err != nil {
		return err
	}
	for item := strategy.Next(); item != nil; item = strategy.Next() {
		if err := pass.RenderItem(commandList, item, view, framebuffer); err != nil {
			return err
		}
	}
	return nil
}

type gbufferViewConstants struct {
	ViewProjMatrix math.Mat4
}

/**
 * @brief Fills the G-buffer targets with material attributes. Vertex
 * data arrives through four per vertex buffer slots plus one per
 * instance slot carrying the world transform rows.
 */
type GBufferFillPass struct {
	device       rhi.Device
	commonPasses *CommonPasses

	vertexShader  rhi.Shader
	pixelShader   rhi.Shader
	inputLayout   rhi.InputLayout
	bindingLayout rhi.BindingLayout
	viewConstants rhi.Buffer

	materialBindings map[*scene.Material]rhi.BindingSet

	pipelines  map[rhi.CullMode]rhi.GraphicsPipeline
	targetInfo rhi.FramebufferInfo
	hasTarget  bool
}

func NewGBufferFillPass(device rhi.Device, commonPasses *CommonPasses) *GBufferFillPass {
	return &GBufferFillPass{
		device:           device,
		commonPasses:     commonPasses,
		materialBindings: make(map[*scene.Material]rhi.BindingSet),
		pipelines:        make(map[rhi.CullMode]rhi.GraphicsPipeline),
	}
}

func (p *GBufferFillPass) Init(factory *shaders.Factory) error {
	var err error
	if p.vertexShader, err = factory.CreateShader("gbuffer", "main_vs", rhi.ShaderTypeVertex); err != nil {
		return err
	}
	if p.pixelShader, err = factory.CreateShader("gbuffer", "main_ps", rhi.ShaderTypePixel); err != nil {
		return err
	}

	// The transform occupies four instanced attributes, one matrix
	// column each.
	attributes := []rhi.VertexAttributeDesc{
		{Name: "POSITION", Format: rhi.FormatRGB32Float, BufferIndex: 0, Offset: 0, ElementStride: 12},
		{Name: "TEXCOORD", Format: rhi.FormatRG32Float, BufferIndex: 1, Offset: 0, ElementStride: 8},
		{Name: "NORMAL", Format: rhi.FormatRGB32Float, BufferIndex: 2, Offset: 0, ElementStride: 12},
		{Name: "TANGENT", Format: rhi.FormatRGB32Float, BufferIndex: 3, Offset: 0, ElementStride: 12},
		{Name: "TRANSFORM0", Format: rhi.FormatRGBA32Float, BufferIndex: 4, Offset: 0, ElementStride: 64, IsInstanced: true},
		{Name: "TRANSFORM1", Format: rhi.FormatRGBA32Float, BufferIndex: 4, Offset: 16, ElementStride: 64, IsInstanced: true},
		{Name: "TRANSFORM2", Format: rhi.FormatRGBA32Float, BufferIndex: 4, Offset: 32, ElementStride: 64, IsInstanced: true},
		{Name: "TRANSFORM3", Format: rhi.FormatRGBA32Float, BufferIndex: 4, Offset: 48, ElementStride: 64, IsInstanced: true},
	}
	if p.inputLayout, err = p.device.NewInputLayout(attributes); err != nil {
		return err
	}

	if p.viewConstants, err = p.device.NewBuffer(rhi.BufferDesc{
		ByteSize:         rhi.ConstantBufferAlignment,
		DebugName:        "GBufferViewConstants",
		IsConstantBuffer: true,
		InitialState:     rhi.StateConstantBuffer,
		KeepInitialState: true,
	}); err != nil {
		return err
	}

	p.bindingLayout, err = p.device.NewBindingLayout(rhi.BindingLayoutDesc{
		Visibility: rhi.ShaderTypeVertex | rhi.ShaderTypePixel,
		Bindings: []rhi.BindingLayoutItem{
			{Slot: 0, Type: rhi.ResourceTypeConstantBuffer},
			{Slot: 1, Type: rhi.ResourceTypeConstantBuffer},
			{Slot: 0, Type: rhi.ResourceTypeTextureSRV, Format: rhi.FormatSRGBA8Unorm},
			{Slot: 0, Type: rhi.ResourceTypeSampler},
		},
	})
	return err
}

func (p *GBufferFillPass) PrepareForView(commandList rhi.CommandList, view *PlanarView) error {
	data, err := constantBytes(gbufferViewConstants{ViewProjMatrix: view.ViewProjMatrix()})
	if err != nil {
		return err
	}
	return commandList.WriteBuffer(p.viewConstants, data, 0)
}

func (p *GBufferFillPass) RenderItem(commandList rhi.CommandList, item *DrawItem, view *PlanarView, framebuffer rhi.Framebuffer) error {
	pipeline, err := p.pipelineFor(item.CullMode, framebuffer)
	if err != nil {
		return err
	}
	bindingSet, err := p.bindingSetFor(item.Material)
	if err != nil {
		return err
	}

	buffers := item.Buffers
	state := rhi.GraphicsState{
		Pipeline:    pipeline,
		Framebuffer: framebuffer,
		Viewports:   []rhi.Viewport{view.Viewport()},
		BindingSets: []rhi.BindingSet{bindingSet},
		VertexBuffers: []rhi.VertexBufferBinding{
			{Buffer: buffers.VertexBuffer, Slot: 0, Offset: buffers.VertexBufferRange(scene.VertexAttributePosition).ByteOffset},
			{Buffer: buffers.VertexBuffer, Slot: 1, Offset: buffers.VertexBufferRange(scene.VertexAttributeTexCoord1).ByteOffset},
			{Buffer: buffers.VertexBuffer, Slot: 2, Offset: buffers.VertexBufferRange(scene.VertexAttributeNormal).ByteOffset},
			{Buffer: buffers.VertexBuffer, Slot: 3, Offset: buffers.VertexBufferRange(scene.VertexAttributeTangent).ByteOffset},
			{Buffer: buffers.InstanceBuffer, Slot: 4, Offset: 0},
		},
		IndexBuffer: rhi.IndexBufferBinding{Buffer: buffers.IndexBuffer, Format: rhi.FormatR32Uint},
	}
	commandList.SetGraphicsState(state)
	commandList.DrawIndexed(rhi.DrawArguments{
		VertexCount:   item.Geometry.NumIndices,
		InstanceCount: 1,
	})
	return nil
}

// ResetBindingCache drops the per material binding sets, needed when
// material resources are recreated.
func (p *GBufferFillPass) ResetBindingCache() {
	for _, set := range p.materialBindings {
		set.Destroy()
	}
	p.materialBindings = make(map[*scene.Material]rhi.BindingSet)
}

func (p *GBufferFillPass) Destroy() {
	p.ResetBindingCache()
	for _, pipeline := range p.pipelines {
		pipeline.Destroy()
	}
	p.pipelines = make(map[rhi.CullMode]rhi.GraphicsPipeline)
	if p.bindingLayout != nil {
		p.bindingLayout.Destroy()
		p.bindingLayout = nil
	}
	if p.viewConstants != nil {
		p.viewConstants.Destroy()
		p.viewConstants = nil
	}
	if p.inputLayout != nil {
		p.inputLayout.Destroy()
		p.inputLayout = nil
	}
}

func (p *GBufferFillPass) pipelineFor(cullMode rhi.CullMode, framebuffer rhi.Framebuffer) (rhi.GraphicsPipeline, error) {
	info := framebuffer.Info()
	if p.hasTarget && !p.targetInfo.Equal(info) {
		for _, pipeline := range p.pipelines {
			pipeline.Destroy()
		}
		p.pipelines = make(map[rhi.CullMode]rhi.GraphicsPipeline)
		p.hasTarget = false
	}
	if pipeline, ok := p.pipelines[cullMode]; ok {
		return pipeline, nil
	}
	pipeline, err := p.device.NewGraphicsPipeline(rhi.GraphicsPipelineDesc{
		PrimType:       rhi.PrimitiveTriangleList,
		VertexShader:   p.vertexShader,
		PixelShader:    p.pixelShader,
		InputLayout:    p.inputLayout,
		BindingLayouts: []rhi.BindingLayout{p.bindingLayout},
		RenderState: rhi.RenderState{
			DepthTestEnable:  true,
			DepthWriteEnable: true,
			CullMode:         cullMode,
		},
		DebugName: "GBufferFillPipeline",
	}, framebuffer)
	if err != nil {
		return nil, err
	}
	p.pipelines[cullMode] = pipeline
	p.targetInfo = info
	p.hasTarget = true
	return pipeline, nil
}

func (p *GBufferFillPass) bindingSetFor(material *scene.Material) (rhi.BindingSet, error) {
	if set, ok := p.materialBindings[material]; ok {
		return set, nil
	}
	if material.BaseOrDiffuseTexture == nil {
		return nil, fmt.Errorf("material %s has no diffuse texture", material.Name)
	}
	set, err := p.device.NewBindingSet(rhi.BindingSetDesc{
		Bindings: []rhi.BindingSetItem{
			rhi.BindingConstantBuffer(0, p.viewConstants),
			rhi.BindingConstantBuffer(1, material.MaterialConstants),
			rhi.BindingTextureSRV(0, material.BaseOrDiffuseTexture),
			rhi.BindingSampler(0, p.commonPasses.AnisotropicWrapSampler),
		},
	}, p.bindingLayout)
	if err != nil {
		return nil, err
	}
	p.materialBindings[material] = set
	return set, nil
}

// constantBytes serializes a fixed size constant block the way the
// shaders read it.
func constantBytes(value any) ([]byte, error) {
	var buffer bytes.Buffer
	if err := binary.Write(&buffer, binary.LittleEndian, value); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
