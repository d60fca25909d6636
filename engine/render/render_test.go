package render

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torus-gfx/torus/engine/math"
	"github.com/torus-gfx/torus/engine/rhi"
	"github.com/torus-gfx/torus/engine/rhi/null"
	"github.com/torus-gfx/torus/engine/scene"
	"github.com/torus-gfx/torus/engine/shaders"
)

func newTestDeviceAndFactory(t *testing.T) (*null.Device, *shaders.Factory) {
	t.Helper()
	device := null.NewDevice()
	factory, err := shaders.NewFactory(device, rhi.GraphicsAPINull, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, factory.Close())
	})
	return device, factory
}

func openList(t *testing.T, device *null.Device) rhi.CommandList {
	t.Helper()
	cl, err := device.NewCommandList()
	require.NoError(t, err)
	require.NoError(t, cl.Open())
	return cl
}

func TestPlanarViewDerivedMatrices(t *testing.T) {
	view := NewPlanarView()
	view.SetViewport(rhi.NewViewport(1280, 720))

	viewMatrix := math.NewMat4Translation(math.NewVec3(1, 2, 3))
	projMatrix := math.NewMat4PerspectiveD3D(math.DegToRad(60), 16.0/9.0, 0.1, 10)
	view.SetMatrices(viewMatrix, projMatrix)
	view.UpdateCache()

	assert.Equal(t, float32(1280), view.Viewport().Width())

	expected := projMatrix.Mul(viewMatrix)
	for i := 0; i < 16; i++ {
		assert.InDelta(t, expected.Data[i], view.ViewProjMatrix().Data[i], 1e-5)
	}

	// The camera position is the translation of the inverted view
	// matrix.
	origin := view.ViewOrigin()
	assert.InDelta(t, -1.0, origin.X, 1e-5)
	assert.InDelta(t, -2.0, origin.Y, 1e-5)
	assert.InDelta(t, -3.0, origin.Z, 1e-5)
}

func TestPassthroughDrawStrategy(t *testing.T) {
	strategy := &PassthroughDrawStrategy{}
	assert.Nil(t, strategy.Next())

	items := []DrawItem{{CullMode: rhi.CullBack}, {CullMode: rhi.CullNone}}
	strategy.SetData(items)

	first := strategy.Next()
	require.NotNil(t, first)
	assert.Equal(t, rhi.CullBack, first.CullMode)
	second := strategy.Next()
	require.NotNil(t, second)
	assert.Equal(t, rhi.CullNone, second.CullMode)
	assert.Nil(t, strategy.Next())

	// SetData rewinds.
	strategy.SetData(items)
	assert.NotNil(t, strategy.Next())
}

func TestNewDrawItemFlattensInstance(t *testing.T) {
	material := scene.NewMaterial("M")
	mesh := &scene.MeshInfo{
		Name:    "Cube",
		Buffers: &scene.BufferGroup{},
		Geometries: []*scene.MeshGeometry{
			{Material: material, NumIndices: 36, NumVertices: 24},
		},
	}
	instance := scene.NewMeshInstance(mesh)

	item := NewDrawItem(instance)
	assert.Same(t, instance, item.Instance)
	assert.Same(t, mesh, item.Mesh)
	assert.Same(t, material, item.Material)
	assert.Same(t, mesh.Buffers, item.Buffers)
	assert.Equal(t, rhi.CullBack, item.CullMode)
}

func TestBindingCacheReusesSets(t *testing.T) {
	device := null.NewDevice()
	cache := NewBindingCache(device)

	texture, err := device.NewTexture(rhi.TextureDesc{Width: 4, Height: 4, Format: rhi.FormatRGBA16Float, DebugName: "Src"})
	require.NoError(t, err)
	sampler, err := device.NewSampler(rhi.NewLinearClampSamplerDesc())
	require.NoError(t, err)
	layout, err := device.NewBindingLayout(rhi.BindingLayoutDesc{
		Visibility: rhi.ShaderTypePixel,
		Bindings: []rhi.BindingLayoutItem{
			{Slot: 0, Type: rhi.ResourceTypeTextureSRV},
			{Slot: 0, Type: rhi.ResourceTypeSampler},
		},
	})
	require.NoError(t, err)

	desc := rhi.BindingSetDesc{Bindings: []rhi.BindingSetItem{
		rhi.BindingTextureSRV(0, texture),
		rhi.BindingSampler(0, sampler),
	}}

	set, err := cache.GetOrCreateBindingSet(desc, layout)
	require.NoError(t, err)
	again, err := cache.GetOrCreateBindingSet(desc, layout)
	require.NoError(t, err)
	assert.Same(t, set, again)

	// A different texture resolves to its own set.
	other, err := device.NewTexture(rhi.TextureDesc{Width: 4, Height: 4, Format: rhi.FormatRGBA16Float, DebugName: "Other"})
	require.NoError(t, err)
	otherDesc := rhi.BindingSetDesc{Bindings: []rhi.BindingSetItem{
		rhi.BindingTextureSRV(0, other),
		rhi.BindingSampler(0, sampler),
	}}
	otherSet, err := cache.GetOrCreateBindingSet(otherDesc, layout)
	require.NoError(t, err)
	assert.NotSame(t, set, otherSet)

	cache.Clear()
	fresh, err := cache.GetOrCreateBindingSet(desc, layout)
	require.NoError(t, err)
	assert.NotSame(t, set, fresh)
}

func TestDeferredRenderTargets(t *testing.T) {
	device := null.NewDevice()

	targets := &DeferredRenderTargets{}
	require.NoError(t, targets.Init(device, 128, 128))
	assert.Equal(t, 5, device.LiveTextureCount())

	assert.Equal(t, rhi.FormatD32Float, targets.Depth.Desc().Format)
	assert.Equal(t, rhi.FormatSRGBA8Unorm, targets.GBufferDiffuse.Desc().Format)
	assert.Equal(t, rhi.FormatRGBA8Unorm, targets.GBufferSpecular.Desc().Format)
	assert.Equal(t, rhi.FormatRGBA16Float, targets.GBufferNormals.Desc().Format)
	assert.Contains(t, targets.Depth.Desc().DebugName, "GBufferDepth")

	// The shaded output is a storage texture born in unordered access
	// state.
	assert.True(t, targets.ShadedColor.Desc().IsUAV)
	assert.False(t, targets.ShadedColor.Desc().IsRenderTarget)
	assert.Equal(t, rhi.StateUnorderedAccess, targets.ShadedColor.(*null.Texture).State())

	info := targets.GBufferFramebuffer.Info()
	assert.Equal(t, uint32(128), info.Width)
	assert.Equal(t, []rhi.Format{rhi.FormatSRGBA8Unorm, rhi.FormatRGBA8Unorm, rhi.FormatRGBA16Float}, info.ColorFormats)
	assert.Equal(t, rhi.FormatD32Float, info.DepthFormat)

	assert.True(t, targets.SameSize(128, 128))
	assert.False(t, targets.SameSize(256, 128))
	width, height := targets.Size()
	assert.Equal(t, uint32(128), width)
	assert.Equal(t, uint32(128), height)

	cl := openList(t, device)
	targets.Clear(cl)
	commands := cl.(*null.CommandList).Commands()
	require.Len(t, commands, 4)
	assert.Equal(t, null.OpClearDepthStencil, commands[0].Op)
	assert.Equal(t, float32(1.0), commands[0].Depth)
	for i := 1; i <= 3; i++ {
		assert.Equal(t, null.OpClearColor, commands[i].Op)
		assert.Equal(t, uint32(i-1), commands[i].AttachmentIndex)
	}

	targets.Destroy()
	assert.Equal(t, 0, device.LiveTextureCount())
}

func TestBlitTextureReusesPipelineAndBindings(t *testing.T) {
	device, factory := newTestDeviceAndFactory(t)
	common, err := NewCommonPasses(device, factory)
	require.NoError(t, err)
	cache := NewBindingCache(device)

	source, err := device.NewTexture(rhi.TextureDesc{Width: 64, Height: 64, Format: rhi.FormatRGBA16Float, DebugName: "Shaded"})
	require.NoError(t, err)

	makeTarget := func(size uint32) rhi.Framebuffer {
		color, err := device.NewTexture(rhi.TextureDesc{
			Width: size, Height: size, Format: rhi.FormatBGRA8Unorm, IsRenderTarget: true, DebugName: "Back",
		})
		require.NoError(t, err)
		fb, err := device.NewFramebuffer(rhi.FramebufferDesc{ColorAttachments: []rhi.Texture{color}})
		require.NoError(t, err)
		return fb
	}
	target := makeTarget(64)

	cl := openList(t, device)
	require.NoError(t, common.BlitTexture(cl, target, source, cache))
	require.NoError(t, common.BlitTexture(cl, target, source, cache))
	assert.Equal(t, 1, device.LivePipelineCount(), "one pipeline covers every blit to the same target shape")

	commands := cl.(*null.CommandList).Commands()
	require.Len(t, commands, 4)
	assert.Equal(t, null.OpGraphicsState, commands[0].Op)
	assert.Equal(t, null.OpDraw, commands[1].Op)
	assert.Equal(t, uint32(3), commands[1].Draw.VertexCount, "the blit draws one fullscreen triangle")
	assert.Same(t, commands[0].Graphics.BindingSets[0], commands[2].Graphics.BindingSets[0],
		"the binding cache hands back the same set for the same source")
	assert.Equal(t, float32(64), commands[0].Graphics.Viewports[0].Width())

	firstPipeline := commands[0].Graphics.Pipeline

	// A target with a different shape forces a pipeline rebuild; the
	// old pipeline is released.
	resized := makeTarget(128)
	require.NoError(t, common.BlitTexture(cl, resized, source, cache))
	assert.Equal(t, 1, device.LivePipelineCount())
	commands = cl.(*null.CommandList).Commands()
	assert.NotSame(t, firstPipeline, commands[4].Graphics.Pipeline)

	cache.Clear()
	common.Destroy()
	assert.Equal(t, 0, device.LivePipelineCount())
}

// buildSceneItem assembles the buffers, material and mesh instance of
// one textured cube the way the example scenes do.
func buildSceneItem(t *testing.T, device *null.Device) DrawItem {
	t.Helper()

	buffers := &scene.BufferGroup{}
	var err error
	buffers.IndexBuffer, err = device.NewBuffer(rhi.BufferDesc{ByteSize: 144, IsIndexBuffer: true, DebugName: "IB"})
	require.NoError(t, err)
	buffers.VertexBuffer, err = device.NewBuffer(rhi.BufferDesc{ByteSize: 960, IsVertexBuffer: true, DebugName: "VB"})
	require.NoError(t, err)
	buffers.InstanceBuffer, err = device.NewBuffer(rhi.BufferDesc{ByteSize: 64, IsVertexBuffer: true, DebugName: "Instance"})
	require.NoError(t, err)

	buffers.SetVertexBufferRange(scene.VertexAttributePosition, 0, 288)
	buffers.SetVertexBufferRange(scene.VertexAttributeTexCoord1, 288, 192)
	buffers.SetVertexBufferRange(scene.VertexAttributeNormal, 480, 288)
	buffers.SetVertexBufferRange(scene.VertexAttributeTangent, 768, 192)
	require.NoError(t, buffers.ValidateRanges())

	material := scene.NewMaterial("CubeMaterial")
	material.BaseOrDiffuseTexture, err = device.NewTexture(rhi.TextureDesc{
		Width: 64, Height: 64, Format: rhi.FormatSRGBA8Unorm, DebugName: "CubeTexture",
	})
	require.NoError(t, err)
	material.MaterialConstants, err = device.NewBuffer(rhi.BufferDesc{
		ByteSize: rhi.ConstantBufferAlignment, IsConstantBuffer: true, DebugName: "CubeMaterial",
	})
	require.NoError(t, err)

	mesh := &scene.MeshInfo{
		Name:          "Cube",
		Buffers:       buffers,
		TotalIndices:  36,
		TotalVertices: 24,
		Geometries:    []*scene.MeshGeometry{{Material: material, NumIndices: 36, NumVertices: 24}},
	}
	return NewDrawItem(scene.NewMeshInstance(mesh))
}

func TestGBufferFillPassRendersItems(t *testing.T) {
	device, factory := newTestDeviceAndFactory(t)
	common, err := NewCommonPasses(device, factory)
	require.NoError(t, err)

	pass := NewGBufferFillPass(device, common)
	require.NoError(t, pass.Init(factory))

	targets := &GBufferRenderTargets{}
	require.NoError(t, targets.Init(device, 128, 128))

	view := NewPlanarView()
	view.SetViewport(rhi.NewViewport(128, 128))
	view.SetMatrices(math.NewMat4Translation(math.NewVec3(0, 0, 2)), math.NewMat4PerspectiveD3D(math.DegToRad(60), 1, 0.1, 10))
	view.UpdateCache()

	item := buildSceneItem(t, device)
	strategy := &PassthroughDrawStrategy{}
	strategy.SetData([]DrawItem{item})

	cl := openList(t, device)
	require.NoError(t, RenderView(cl, view, targets.GBufferFramebuffer, strategy, pass))

	commands := cl.(*null.CommandList).Commands()
	require.Len(t, commands, 3)

	// The per view constants go first: one matrix, 64 bytes.
	assert.Equal(t, null.OpWriteBuffer, commands[0].Op)
	assert.Equal(t, int64(64), commands[0].ByteSize)

	require.Equal(t, null.OpGraphicsState, commands[1].Op)
	state := commands[1].Graphics
	require.Len(t, state.VertexBuffers, 5)
	for slot := 0; slot < 4; slot++ {
		assert.Equal(t, uint32(slot), state.VertexBuffers[slot].Slot)
		assert.Same(t, item.Buffers.VertexBuffer, state.VertexBuffers[slot].Buffer)
	}
	assert.Equal(t, int64(288), state.VertexBuffers[1].Offset, "texcoords start after the positions")
	assert.Equal(t, int64(480), state.VertexBuffers[2].Offset)
	assert.Equal(t, int64(768), state.VertexBuffers[3].Offset)
	assert.Same(t, item.Buffers.InstanceBuffer, state.VertexBuffers[4].Buffer)
	assert.Equal(t, rhi.FormatR32Uint, state.IndexBuffer.Format)

	pipelineDesc := state.Pipeline.Desc()
	assert.True(t, pipelineDesc.RenderState.DepthTestEnable)
	assert.True(t, pipelineDesc.RenderState.DepthWriteEnable)
	assert.Equal(t, rhi.CullBack, pipelineDesc.RenderState.CullMode)

	require.Equal(t, null.OpDrawIndexed, commands[2].Op)
	assert.Equal(t, uint32(36), commands[2].Draw.VertexCount)
	assert.Equal(t, uint32(1), commands[2].Draw.InstanceCount)
}

func TestGBufferFillPassCachesPipelinesPerCullMode(t *testing.T) {
	device, factory := newTestDeviceAndFactory(t)
	common, err := NewCommonPasses(device, factory)
	require.NoError(t, err)

	pass := NewGBufferFillPass(device, common)
	require.NoError(t, pass.Init(factory))
	targets := &GBufferRenderTargets{}
	require.NoError(t, targets.Init(device, 64, 64))

	view := NewPlanarView()
	view.SetViewport(rhi.NewViewport(64, 64))
	view.UpdateCache()

	item := buildSceneItem(t, device)
	cl := openList(t, device)

	require.NoError(t, pass.RenderItem(cl, &item, view, targets.GBufferFramebuffer))
	require.NoError(t, pass.RenderItem(cl, &item, view, targets.GBufferFramebuffer))
	assert.Equal(t, 1, device.LivePipelineCount())

	noCull := item
	noCull.CullMode = rhi.CullNone
	require.NoError(t, pass.RenderItem(cl, &noCull, view, targets.GBufferFramebuffer))
	assert.Equal(t, 2, device.LivePipelineCount(), "each cull mode gets its own pipeline")

	pass.Destroy()
	assert.Equal(t, 0, device.LivePipelineCount())
}

func TestGBufferFillPassRequiresDiffuseTexture(t *testing.T) {
	device, factory := newTestDeviceAndFactory(t)
	common, err := NewCommonPasses(device, factory)
	require.NoError(t, err)

	pass := NewGBufferFillPass(device, common)
	require.NoError(t, pass.Init(factory))
	targets := &GBufferRenderTargets{}
	require.NoError(t, targets.Init(device, 64, 64))

	view := NewPlanarView()
	view.UpdateCache()

	item := buildSceneItem(t, device)
	item.Material.BaseOrDiffuseTexture = nil

	cl := openList(t, device)
	err = pass.RenderItem(cl, &item, view, targets.GBufferFramebuffer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no diffuse texture")
}

func TestDeferredLightingPassDispatch(t *testing.T) {
	device, factory := newTestDeviceAndFactory(t)

	pass := NewDeferredLightingPass(device)
	require.NoError(t, pass.Init(factory))

	targets := &DeferredRenderTargets{}
	require.NoError(t, targets.Init(device, 100, 60))

	sun := scene.NewDirectionalLight()
	sun.SetDirection(math.NewVec3(0, -1, 0))
	sun.Irradiance = 2

	inputs := &DeferredLightingInputs{
		AmbientColorTop:    math.NewVec3(0.2, 0.2, 0.2),
		AmbientColorBottom: math.NewVec3(0.06, 0.08, 0.06),
		Lights:             []scene.Light{sun},
		Output:             targets.ShadedColor,
	}
	inputs.SetGBuffer(&targets.GBufferRenderTargets)
	assert.Same(t, targets.Depth, inputs.Depth)
	assert.Same(t, targets.GBufferNormals, inputs.GBufferNormals)

	view := NewPlanarView()
	view.UpdateCache()

	cl := openList(t, device)
	require.NoError(t, pass.Render(cl, view, inputs))

	commands := cl.(*null.CommandList).Commands()
	require.Len(t, commands, 3)

	assert.Equal(t, null.OpWriteBuffer, commands[0].Op)
	assert.Equal(t, int64(64), commands[0].ByteSize, "four padded vec3 slots")

	// The written constants carry the light direction and the color
	// scaled by irradiance.
	data := pass.constants.(*null.Buffer).Data
	readFloat := func(offset int) float32 {
		return gomath.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
	}
	assert.InDelta(t, 0.0, readFloat(0), 1e-6)
	assert.InDelta(t, -1.0, readFloat(4), 1e-6)
	assert.InDelta(t, 2.0, readFloat(16), 1e-6, "light color is premultiplied by irradiance")
	assert.InDelta(t, 0.2, readFloat(32), 1e-6)
	assert.InDelta(t, 0.08, readFloat(52), 1e-6)

	assert.Equal(t, null.OpComputeState, commands[1].Op)
	require.Equal(t, null.OpDispatch, commands[2].Op)
	assert.Equal(t, [3]uint32{7, 4, 1}, commands[2].Groups, "one group per 16x16 tile, rounded up")
}

func TestDeferredLightingPassRebuildsBindingsOnNewTargets(t *testing.T) {
	device, factory := newTestDeviceAndFactory(t)

	pass := NewDeferredLightingPass(device)
	require.NoError(t, pass.Init(factory))

	targets := &DeferredRenderTargets{}
	require.NoError(t, targets.Init(device, 64, 64))

	inputs := &DeferredLightingInputs{Output: targets.ShadedColor}
	inputs.SetGBuffer(&targets.GBufferRenderTargets)

	view := NewPlanarView()
	view.UpdateCache()

	cl := openList(t, device)
	require.NoError(t, pass.Render(cl, view, inputs))
	firstSet := pass.bindingSet
	require.NoError(t, pass.Render(cl, view, inputs))
	assert.Same(t, firstSet, pass.bindingSet, "unchanged targets keep the cached binding set")

	// Recreated targets invalidate the cached set.
	resized := &DeferredRenderTargets{}
	require.NoError(t, resized.Init(device, 128, 128))
	inputs.SetGBuffer(&resized.GBufferRenderTargets)
	inputs.Output = resized.ShadedColor

	require.NoError(t, pass.Render(cl, view, inputs))
	assert.NotSame(t, firstSet, pass.bindingSet)
}
