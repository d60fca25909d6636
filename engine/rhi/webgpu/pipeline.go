package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/rhi"
)

func buildPipelineLayout(ctx *context, bindingLayouts []rhi.BindingLayout) (*wgpu.PipelineLayout, error) {
	groupLayouts := make([]*wgpu.BindGroupLayout, 0, len(bindingLayouts))
	for _, layout := range bindingLayouts {
		wlayout, ok := layout.(*BindingLayout)
		if !ok {
			return nil, fmt.Errorf("binding layout was not created by this device")
		}
		groupLayouts = append(groupLayouts, wlayout.handle)
	}

	layout, err := ctx.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "pipeline layout",
		BindGroupLayouts: groupLayouts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create a pipeline layout: %w", err)
	}
	return layout, nil
}

func stageShader(shader rhi.Shader) (*Shader, string, error) {
	wshader, ok := shader.(*Shader)
	if !ok {
		return nil, "", fmt.Errorf("shader was not created by this device")
	}
	entryPoint := wshader.desc.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}
	return wshader, entryPoint, nil
}

// depthStencilState translates the depth part of the render state; the
// stencil faces stay pass through. Returns nil when the framebuffer has
// no depth attachment.
func depthStencilState(renderState rhi.RenderState, info rhi.FramebufferInfo) *wgpu.DepthStencilState {
	if info.DepthFormat == rhi.FormatUnknown {
		return nil
	}
	state := &wgpu.DepthStencilState{
		Format:            toWgpuTextureFormat(info.DepthFormat),
		DepthWriteEnabled: renderState.DepthWriteEnable,
		DepthCompare:      wgpu.CompareFunctionAlways,
		StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
	if renderState.DepthTestEnable {
		state.DepthCompare = wgpu.CompareFunctionLess
	}
	return state
}

func colorTargets(info rhi.FramebufferInfo) []wgpu.ColorTargetState {
	targets := make([]wgpu.ColorTargetState, len(info.ColorFormats))
	for i, format := range info.ColorFormats {
		targets[i] = wgpu.ColorTargetState{
			Format:    toWgpuTextureFormat(format),
			WriteMask: wgpu.ColorWriteMaskAll,
		}
	}
	return targets
}

type GraphicsPipeline struct {
	desc   rhi.GraphicsPipelineDesc
	layout *wgpu.PipelineLayout
	handle *wgpu.RenderPipeline
}

func (d *Device) NewGraphicsPipeline(desc rhi.GraphicsPipelineDesc, framebuffer rhi.Framebuffer) (rhi.GraphicsPipeline, error) {
	if desc.VertexShader == nil || desc.PixelShader == nil {
		return nil, fmt.Errorf("graphics pipeline %q is missing a shader", desc.DebugName)
	}
	wframebuffer, ok := framebuffer.(*Framebuffer)
	if !ok || wframebuffer == nil {
		return nil, fmt.Errorf("graphics pipeline %q needs a framebuffer for attachment compatibility", desc.DebugName)
	}

	vertexShader, vertexEntry, err := stageShader(desc.VertexShader)
	if err != nil {
		return nil, err
	}
	pixelShader, pixelEntry, err := stageShader(desc.PixelShader)
	if err != nil {
		return nil, err
	}

	vertex := wgpu.VertexState{
		Module:     vertexShader.module,
		EntryPoint: vertexEntry,
	}
	if desc.InputLayout != nil {
		winputLayout, ok := desc.InputLayout.(*InputLayout)
		if !ok {
			return nil, fmt.Errorf("input layout was not created by this device")
		}
		vertex.Buffers = winputLayout.layouts
	}

	layout, err := buildPipelineLayout(d.ctx, desc.BindingLayouts)
	if err != nil {
		return nil, err
	}

	// Front faces wind clockwise, same as the Vulkan backend.
	handle, err := d.ctx.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  safeString(desc.DebugName, "graphics pipeline"),
		Layout: layout,
		Vertex: vertex,
		Primitive: wgpu.PrimitiveState{
			Topology:  toWgpuTopology(desc.PrimType),
			FrontFace: wgpu.FrontFaceCW,
			CullMode:  toWgpuCullMode(desc.RenderState.CullMode),
		},
		DepthStencil: depthStencilState(desc.RenderState, wframebuffer.info),
		Multisample:  wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		Fragment: &wgpu.FragmentState{
			Module:     pixelShader.module,
			EntryPoint: pixelEntry,
			Targets:    colorTargets(wframebuffer.info),
		},
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("failed to create graphics pipeline %q: %w", desc.DebugName, err)
	}

	core.LogDebug("created graphics pipeline %q", desc.DebugName)
	return &GraphicsPipeline{desc: desc, layout: layout, handle: handle}, nil
}

func (p *GraphicsPipeline) Desc() rhi.GraphicsPipelineDesc { return p.desc }

func (p *GraphicsPipeline) Destroy() {
	if p.handle != nil {
		p.handle.Release()
		p.handle = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
}

type ComputePipeline struct {
	desc   rhi.ComputePipelineDesc
	layout *wgpu.PipelineLayout
	handle *wgpu.ComputePipeline
}

func (d *Device) NewComputePipeline(desc rhi.ComputePipelineDesc) (rhi.ComputePipeline, error) {
	if desc.ComputeShader == nil {
		return nil, fmt.Errorf("compute pipeline %q is missing its shader", desc.DebugName)
	}
	computeShader, computeEntry, err := stageShader(desc.ComputeShader)
	if err != nil {
		return nil, err
	}

	layout, err := buildPipelineLayout(d.ctx, desc.BindingLayouts)
	if err != nil {
		return nil, err
	}

	handle, err := d.ctx.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  safeString(desc.DebugName, "compute pipeline"),
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     computeShader.module,
			EntryPoint: computeEntry,
		},
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("failed to create compute pipeline %q: %w", desc.DebugName, err)
	}

	core.LogDebug("created compute pipeline %q", desc.DebugName)
	return &ComputePipeline{desc: desc, layout: layout, handle: handle}, nil
}

func (p *ComputePipeline) Desc() rhi.ComputePipelineDesc { return p.desc }

func (p *ComputePipeline) Destroy() {
	if p.handle != nil {
		p.handle.Release()
		p.handle = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
}

// NewMeshletPipeline always fails on this backend: wgpu exposes no mesh
// or amplification stages, so FeatureMeshlets is never reported.
func (d *Device) NewMeshletPipeline(desc rhi.MeshletPipelineDesc, framebuffer rhi.Framebuffer) (rhi.MeshletPipeline, error) {
	return nil, fmt.Errorf("meshlet pipeline %q: %w", desc.DebugName, core.ErrFeatureUnsupported)
}
