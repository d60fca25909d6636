package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/rhi"
)

func buildPipelineLayout(ctx *context, bindingLayouts []rhi.BindingLayout) (vk.PipelineLayout, error) {
	setLayouts := make([]vk.DescriptorSetLayout, 0, len(bindingLayouts))
	for _, layout := range bindingLayouts {
		vkLayout, ok := layout.(*BindingLayout)
		if !ok {
			return vk.NullPipelineLayout, fmt.Errorf("binding layout was not created by this device")
		}
		setLayouts = append(setLayouts, vkLayout.handle)
	}

	layoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	var layout vk.PipelineLayout
	if result := vk.CreatePipelineLayout(ctx.device, &layoutCreateInfo, ctx.allocator, &layout); result != vk.Success {
		return vk.NullPipelineLayout, resultErr("vkCreatePipelineLayout", result)
	}
	return layout, nil
}

func shaderStage(shader rhi.Shader) (vk.PipelineShaderStageCreateInfo, error) {
	vkShader, ok := shader.(*Shader)
	if !ok {
		return vk.PipelineShaderStageCreateInfo{}, fmt.Errorf("shader was not created by this device")
	}
	entryPoint := vkShader.desc.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}
	stageCreateInfo := vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  toVkShaderStage(vkShader.desc.Type),
		Module: vkShader.module,
		PName:  safeString(entryPoint),
	}
	return stageCreateInfo, nil
}

type GraphicsPipeline struct {
	ctx    *context
	desc   rhi.GraphicsPipelineDesc
	layout vk.PipelineLayout
	handle vk.Pipeline
}

func (d *Device) NewGraphicsPipeline(desc rhi.GraphicsPipelineDesc, framebuffer rhi.Framebuffer) (rhi.GraphicsPipeline, error) {
	if desc.VertexShader == nil || desc.PixelShader == nil {
		return nil, fmt.Errorf("graphics pipeline %q is missing a shader", desc.DebugName)
	}
	vkFramebuffer, ok := framebuffer.(*Framebuffer)
	if !ok || vkFramebuffer == nil {
		return nil, fmt.Errorf("graphics pipeline %q needs a framebuffer for render pass compatibility", desc.DebugName)
	}

	vertexStage, err := shaderStage(desc.VertexShader)
	if err != nil {
		return nil, err
	}
	pixelStage, err := shaderStage(desc.PixelShader)
	if err != nil {
		return nil, err
	}
	stages := []vk.PipelineShaderStageCreateInfo{vertexStage, pixelStage}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if desc.InputLayout != nil {
		vkInputLayout, ok := desc.InputLayout.(*InputLayout)
		if !ok {
			return nil, fmt.Errorf("input layout was not created by this device")
		}
		vertexInput.VertexBindingDescriptionCount = uint32(len(vkInputLayout.bindings))
		vertexInput.PVertexBindingDescriptions = vkInputLayout.bindings
		vertexInput.VertexAttributeDescriptionCount = uint32(len(vkInputLayout.vkAttrs))
		vertexInput.PVertexAttributeDescriptions = vkInputLayout.vkAttrs
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               toVkTopology(desc.PrimType),
		PrimitiveRestartEnable: vk.False,
	}

	layout, err := buildPipelineLayout(d.ctx, desc.BindingLayouts)
	if err != nil {
		return nil, err
	}

	pipelineCreateInfo := graphicsPipelineInfo(stages, &vertexInput, &inputAssembly, desc.RenderState, layout, vkFramebuffer)
	pipelines := make([]vk.Pipeline, 1)
	result := vk.CreateGraphicsPipelines(
		d.ctx.device, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		d.ctx.allocator, pipelines,
	)
	if result != vk.Success {
		vk.DestroyPipelineLayout(d.ctx.device, layout, d.ctx.allocator)
		return nil, resultErr("vkCreateGraphicsPipelines", result)
	}

	core.LogDebug("created graphics pipeline %q", desc.DebugName)
	pipeline := &GraphicsPipeline{
		ctx:    d.ctx,
		desc:   desc,
		layout: layout,
		handle: pipelines[0],
	}
	return pipeline, nil
}

// graphicsPipelineInfo assembles the fixed function state shared by
// vertex and meshlet pipelines. Viewport and scissor are dynamic, one
// of each per draw. Front faces wind clockwise.
func graphicsPipelineInfo(
	stages []vk.PipelineShaderStageCreateInfo,
	vertexInput *vk.PipelineVertexInputStateCreateInfo,
	inputAssembly *vk.PipelineInputAssemblyStateCreateInfo,
	renderState rhi.RenderState,
	layout vk.PipelineLayout,
	framebuffer *Framebuffer,
) vk.GraphicsPipelineCreateInfo {
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                toVkCullMode(renderState.CullMode),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.False,
		DepthWriteEnable:      vk.False,
		DepthCompareOp:        vk.CompareOpLess,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
	}
	if renderState.DepthTestEnable {
		depthStencil.DepthTestEnable = vk.True
	}
	if renderState.DepthWriteEnable {
		depthStencil.DepthWriteEnable = vk.True
	}

	writeMask := vk.ColorComponentFlags(vk.ColorComponentRBit) |
		vk.ColorComponentFlags(vk.ColorComponentGBit) |
		vk.ColorComponentFlags(vk.ColorComponentBBit) |
		vk.ColorComponentFlags(vk.ColorComponentABit)
	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(framebuffer.info.ColorFormats))
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:    vk.False,
			ColorWriteMask: writeMask,
		}
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   vertexInput,
		PInputAssemblyState: inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          framebuffer.renderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}
	if framebuffer.info.DepthFormat != rhi.FormatUnknown {
		pipelineCreateInfo.PDepthStencilState = &depthStencil
	}
	return pipelineCreateInfo
}

func (p *GraphicsPipeline) Desc() rhi.GraphicsPipelineDesc { return p.desc }

func (p *GraphicsPipeline) Destroy() {
	if p.handle != vk.NullPipeline {
		vk.DestroyPipeline(p.ctx.device, p.handle, p.ctx.allocator)
		p.handle = vk.NullPipeline
	}
	if p.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(p.ctx.device, p.layout, p.ctx.allocator)
		p.layout = vk.NullPipelineLayout
	}
}

type ComputePipeline struct {
	ctx    *context
	desc   rhi.ComputePipelineDesc
	layout vk.PipelineLayout
	handle vk.Pipeline
}

func (d *Device) NewComputePipeline(desc rhi.ComputePipelineDesc) (rhi.ComputePipeline, error) {
	if desc.ComputeShader == nil {
		return nil, fmt.Errorf("compute pipeline %q is missing its shader", desc.DebugName)
	}
	stage, err := shaderStage(desc.ComputeShader)
	if err != nil {
		return nil, err
	}
	layout, err := buildPipelineLayout(d.ctx, desc.BindingLayouts)
	if err != nil {
		return nil, err
	}

	pipelineCreateInfo := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  stage,
		Layout: layout,
	}
	pipelines := make([]vk.Pipeline, 1)
	result := vk.CreateComputePipelines(
		d.ctx.device, vk.NullPipelineCache, 1,
		[]vk.ComputePipelineCreateInfo{pipelineCreateInfo},
		d.ctx.allocator, pipelines,
	)
	if result != vk.Success {
		vk.DestroyPipelineLayout(d.ctx.device, layout, d.ctx.allocator)
		return nil, resultErr("vkCreateComputePipelines", result)
	}

	core.LogDebug("created compute pipeline %q", desc.DebugName)
	pipeline := &ComputePipeline{
		ctx:    d.ctx,
		desc:   desc,
		layout: layout,
		handle: pipelines[0],
	}
	return pipeline, nil
}

func (p *ComputePipeline) Desc() rhi.ComputePipelineDesc { return p.desc }

func (p *ComputePipeline) Destroy() {
	if p.handle != vk.NullPipeline {
		vk.DestroyPipeline(p.ctx.device, p.handle, p.ctx.allocator)
		p.handle = vk.NullPipeline
	}
	if p.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(p.ctx.device, p.layout, p.ctx.allocator)
		p.layout = vk.NullPipelineLayout
	}
}

type MeshletPipeline struct {
	ctx    *context
	desc   rhi.MeshletPipelineDesc
	layout vk.PipelineLayout
	handle vk.Pipeline
}

func (d *Device) NewMeshletPipeline(desc rhi.MeshletPipelineDesc, framebuffer rhi.Framebuffer) (rhi.MeshletPipeline, error) {
	if !d.QueryFeatureSupport(rhi.FeatureMeshlets) {
		return nil, fmt.Errorf("meshlet pipeline %q: %w", desc.DebugName, core.ErrFeatureUnsupported)
	}
	if desc.MeshShader == nil || desc.PixelShader == nil {
		return nil, fmt.Errorf("meshlet pipeline %q is missing a shader", desc.DebugName)
	}
	vkFramebuffer, ok := framebuffer.(*Framebuffer)
	if !ok || vkFramebuffer == nil {
		return nil, fmt.Errorf("meshlet pipeline %q needs a framebuffer for render pass compatibility", desc.DebugName)
	}

	var stages []vk.PipelineShaderStageCreateInfo
	if desc.AmplificationShader != nil {
		stage, err := shaderStage(desc.AmplificationShader)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	meshStage, err := shaderStage(desc.MeshShader)
	if err != nil {
		return nil, err
	}
	pixelStage, err := shaderStage(desc.PixelShader)
	if err != nil {
		return nil, err
	}
	stages = append(stages, meshStage, pixelStage)

	// Meshlet pipelines generate geometry in the mesh stage, there is
	// no vertex input.
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               toVkTopology(desc.PrimType),
		PrimitiveRestartEnable: vk.False,
	}

	layout, err := buildPipelineLayout(d.ctx, desc.BindingLayouts)
	if err != nil {
		return nil, err
	}

	pipelineCreateInfo := graphicsPipelineInfo(stages, &vertexInput, &inputAssembly, desc.RenderState, layout, vkFramebuffer)
	pipelines := make([]vk.Pipeline, 1)
	result := vk.CreateGraphicsPipelines(
		d.ctx.device, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		d.ctx.allocator, pipelines,
	)
	if result != vk.Success {
		vk.DestroyPipelineLayout(d.ctx.device, layout, d.ctx.allocator)
		return nil, resultErr("vkCreateGraphicsPipelines", result)
	}

	core.LogDebug("created meshlet pipeline %q", desc.DebugName)
	pipeline := &MeshletPipeline{
		ctx:    d.ctx,
		desc:   desc,
		layout: layout,
		handle: pipelines[0],
	}
	return pipeline, nil
}

func (p *MeshletPipeline) Desc() rhi.MeshletPipelineDesc { return p.desc }

func (p *MeshletPipeline) Destroy() {
	if p.handle != vk.NullPipeline {
		vk.DestroyPipeline(p.ctx.device, p.handle, p.ctx.allocator)
		p.handle = vk.NullPipeline
	}
	if p.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(p.ctx.device, p.layout, p.ctx.allocator)
		p.layout = vk.NullPipelineLayout
	}
}
