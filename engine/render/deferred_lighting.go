package render

import (
	"github.com/torus-gfx/torus/engine/math"
	"github.com/torus-gfx/torus/engine/rhi"
	"github.com/torus-gfx/torus/engine/scene"
	"github.com/torus-gfx/torus/engine/shaders"
)

// lightingGroupSize matches the workgroup size declared in the
// deferred_lighting compute shader.
const lightingGroupSize = 16

type deferredLightingConstants struct {
	LightDirection math.Vec3
	Pad0           float32
	LightColor     math.Vec3
	Pad1           float32
	AmbientTop     math.Vec3
	Pad2           float32
	AmbientBottom  math.Vec3
	Pad3           float32
}

/**
 * @brief Everything the lighting dispatch reads and writes: the
 * G-buffer targets, the ambient gradient, the scene lights and the
 * output texture.
 */
type DeferredLightingInputs struct {
	Depth           rhi.Texture
	GBufferDiffuse  rhi.Texture
	GBufferSpecular rhi.Texture
	GBufferNormals  rhi.Texture

	AmbientColorTop    math.Vec3
	AmbientColorBottom math.Vec3

	Lights []scene.Light

	Output rhi.Texture
}

// SetGBuffer points the inputs at the four textures of a target set.
func (in *DeferredLightingInputs) SetGBuffer(targets *GBufferRenderTargets) {
	in.Depth = targets.Depth
	in.GBufferDiffuse = targets.GBufferDiffuse
	in.GBufferSpecular = targets.GBufferSpecular
	in.GBufferNormals = targets.GBufferNormals
}

/**
 * @brief Shades the G-buffer with a compute dispatch, writing lit color
 * into a storage texture. One directional light plus an ambient
 * gradient.
 */
type DeferredLightingPass struct {
	device rhi.Device

	computeShader rhi.Shader
	bindingLayout rhi.BindingLayout
	pipeline      rhi.ComputePipeline
	constants     rhi.Buffer

	bindingSet   rhi.BindingSet
	bindingDepth rhi.Texture
	bindingOut   rhi.Texture
}

func NewDeferredLightingPass(device rhi.Device) *DeferredLightingPass {
	return &DeferredLightingPass{device: device}
}

func (p *DeferredLightingPass) Init(factory *shaders.Factory) error {
	var err error
	if p.computeShader, err = factory.CreateShader("deferred_lighting", "main_cs", rhi.ShaderTypeCompute); err != nil {
		return err
	}

	if p.constants, err = p.device.NewBuffer(rhi.BufferDesc{
		ByteSize:         rhi.ConstantBufferAlignment,
		DebugName:        "DeferredLightingConstants",
		IsConstantBuffer: true,
		InitialState:     rhi.StateConstantBuffer,
		KeepInitialState: true,
	}); err != nil {
		return err
	}

	if p.bindingLayout, err = p.device.NewBindingLayout(rhi.BindingLayoutDesc{
		Visibility: rhi.ShaderTypeCompute,
		Bindings: []rhi.BindingLayoutItem{
			{Slot: 0, Type: rhi.ResourceTypeConstantBuffer},
			{Slot: 0, Type: rhi.ResourceTypeTextureSRV, Format: rhi.FormatD32Float},
			{Slot: 1, Type: rhi.ResourceTypeTextureSRV, Format: rhi.FormatSRGBA8Unorm},
			{Slot: 2, Type: rhi.ResourceTypeTextureSRV, Format: rhi.FormatRGBA8Unorm},
			{Slot: 3, Type: rhi.ResourceTypeTextureSRV, Format: rhi.FormatRGBA16Float},
			{Slot: 0, Type: rhi.ResourceTypeTextureUAV, Format: rhi.FormatRGBA16Float},
		},
	}); err != nil {
		return err
	}

	p.pipeline, err = p.device.NewComputePipeline(rhi.ComputePipelineDesc{
		ComputeShader:  p.computeShader,
		BindingLayouts: []rhi.BindingLayout{p.bindingLayout},
		DebugName:      "DeferredLightingPipeline",
	})
	return err
}

func (p *DeferredLightingPass) Render(commandList rhi.CommandList, view *PlanarView, inputs *DeferredLightingInputs) error {
	constants := deferredLightingConstants{
		AmbientTop:    inputs.AmbientColorTop,
		AmbientBottom: inputs.AmbientColorBottom,
	}
	for _, light := range inputs.Lights {
		directional, ok := light.(*scene.DirectionalLight)
		if !ok {
			continue
		}
		constants.LightDirection = directional.Direction()
		constants.LightColor = directional.Color.MulScalar(directional.Irradiance)
		break
	}
	data, err := constantBytes(constants)
	if err != nil {
		return err
	}
	if err := commandList.WriteBuffer(p.constants, data, 0); err != nil {
		return err
	}

	bindingSet, err := p.bindingSetFor(inputs)
	if err != nil {
		return err
	}

	commandList.SetComputeState(rhi.ComputeState{
		Pipeline:    p.pipeline,
		BindingSets: []rhi.BindingSet{bindingSet},
	})

	desc := inputs.Output.Desc()
	groupsX := (desc.Width + lightingGroupSize - 1) / lightingGroupSize
	groupsY := (desc.Height + lightingGroupSize - 1) / lightingGroupSize
	commandList.Dispatch(groupsX, groupsY, 1)
	return nil
}

// ResetBindingCache drops the cached binding set, needed when the
// G-buffer targets are recreated.
func (p *DeferredLightingPass) ResetBindingCache() {
	if p.bindingSet != nil {
		p.bindingSet.Destroy()
		p.bindingSet = nil
	}
	p.bindingDepth = nil
	p.bindingOut = nil
}

func (p *DeferredLightingPass) Destroy() {
	p.ResetBindingCache()
	if p.pipeline != nil {
		p.pipeline.Destroy()
		p.pipeline = nil
	}
	if p.bindingLayout != nil {
		p.bindingLayout.Destroy()
		p.bindingLayout = nil
	}
	if p.constants != nil {
		p.constants.Destroy()
		p.constants = nil
	}
}

func (p *DeferredLightingPass) bindingSetFor(inputs *DeferredLightingInputs) (rhi.BindingSet, error) {
	if p.bindingSet != nil && p.bindingDepth == inputs.Depth && p.bindingOut == inputs.Output {
		return p.bindingSet, nil
	}
	p.ResetBindingCache()

	set, err := p.device.NewBindingSet(rhi.BindingSetDesc{
		Bindings: []rhi.BindingSetItem{
			rhi.BindingConstantBuffer(0, p.constants),
			rhi.BindingTextureSRV(0, inputs.Depth),
			rhi.BindingTextureSRV(1, inputs.GBufferDiffuse),
			rhi.BindingTextureSRV(2, inputs.GBufferSpecular),
			rhi.BindingTextureSRV(3, inputs.GBufferNormals),
			rhi.BindingTextureUAV(0, inputs.Output),
		},
	}, p.bindingLayout)
	if err != nil {
		return nil, err
	}
	p.bindingSet = set
	p.bindingDepth = inputs.Depth
	p.bindingOut = inputs.Output
	return set, nil
}
