package null

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/rhi"
)

func newDeviceAndList(t *testing.T) (*Device, rhi.CommandList) {
	t.Helper()
	device := NewDevice()
	cl, err := device.NewCommandList()
	require.NoError(t, err)
	return device, cl
}

func newColorFramebuffer(t *testing.T, device *Device, width, height uint32) rhi.Framebuffer {
	t.Helper()
	color, err := device.NewTexture(rhi.TextureDesc{
		Width:          width,
		Height:         height,
		Format:         rhi.FormatBGRA8Unorm,
		IsRenderTarget: true,
		DebugName:      "TestColor",
	})
	require.NoError(t, err)
	fb, err := device.NewFramebuffer(rhi.FramebufferDesc{ColorAttachments: []rhi.Texture{color}})
	require.NoError(t, err)
	return fb
}

func TestDeviceFeatureDefaults(t *testing.T) {
	device := NewDevice()

	assert.Equal(t, rhi.GraphicsAPINull, device.GraphicsAPI())
	assert.True(t, device.QueryFeatureSupport(rhi.FeatureComputeShaders))
	assert.False(t, device.QueryFeatureSupport(rhi.FeatureMeshlets))

	device.SetFeatureSupport(rhi.FeatureMeshlets, true)
	assert.True(t, device.QueryFeatureSupport(rhi.FeatureMeshlets))
}

func TestCommandListLifecycle(t *testing.T) {
	device, cl := newDeviceAndList(t)

	require.NoError(t, cl.Open())
	assert.Error(t, cl.Open(), "opening twice is a recording error")
	assert.Error(t, device.ExecuteCommandList(cl), "executing an open list is rejected")

	require.NoError(t, cl.Close())
	assert.Error(t, cl.Close(), "closing twice is a recording error")
	assert.NoError(t, device.ExecuteCommandList(cl))
}

func TestCommandListRecordingResetsOnOpen(t *testing.T) {
	device, cl := newDeviceAndList(t)
	fb := newColorFramebuffer(t, device, 16, 16)

	require.NoError(t, cl.Open())
	cl.ClearColorAttachment(fb, 0, rhi.NewColorUniform(0))
	cl.Draw(rhi.NewDrawArguments(3))
	require.NoError(t, cl.Close())
	require.NoError(t, device.ExecuteCommandList(cl))

	// The second recording starts fresh but the device history keeps
	// accumulating across submissions.
	require.NoError(t, cl.Open())
	cl.Draw(rhi.NewDrawArguments(6))
	require.NoError(t, cl.Close())
	require.NoError(t, device.ExecuteCommandList(cl))

	ncl := cl.(*CommandList)
	require.Len(t, ncl.Commands(), 1)
	assert.Equal(t, uint32(6), ncl.Commands()[0].Draw.VertexCount)

	executed := device.ExecutedCommands()
	require.Len(t, executed, 3)
	assert.Equal(t, OpClearColor, executed[0].Op)
	assert.Equal(t, OpDraw, executed[1].Op)
	assert.Equal(t, uint32(3), executed[1].Draw.VertexCount)
	assert.Equal(t, uint32(6), executed[2].Draw.VertexCount)

	device.ResetExecutedCommands()
	assert.Empty(t, device.ExecutedCommands())
}

func TestWriteBufferStoresDataAndChecksBounds(t *testing.T) {
	device, cl := newDeviceAndList(t)

	buffer, err := device.NewBuffer(rhi.BufferDesc{ByteSize: 16, DebugName: "Upload"})
	require.NoError(t, err)
	require.NoError(t, cl.Open())

	require.NoError(t, cl.WriteBuffer(buffer, []byte{1, 2, 3, 4}, 0))
	require.NoError(t, cl.WriteBuffer(buffer, []byte{5, 6}, 8))

	nb := buffer.(*Buffer)
	assert.Equal(t, []byte{1, 2, 3, 4}, nb.Data[:4])
	assert.Equal(t, []byte{5, 6}, nb.Data[8:10])

	err = cl.WriteBuffer(buffer, []byte{1, 2, 3, 4, 5, 6, 7, 8}, 12)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflows")

	require.NoError(t, cl.Close())

	buffer.Destroy()
	require.NoError(t, cl.Open())
	assert.Error(t, cl.WriteBuffer(buffer, []byte{1}, 0), "writes to destroyed buffers are rejected")
}

func TestInvalidBufferSizeFails(t *testing.T) {
	device := NewDevice()
	_, err := device.NewBuffer(rhi.BufferDesc{ByteSize: 0, DebugName: "Empty"})
	assert.Error(t, err)
}

func TestBufferStateTracking(t *testing.T) {
	device, cl := newDeviceAndList(t)

	buffer, err := device.NewBuffer(rhi.BufferDesc{
		ByteSize:       64,
		DebugName:      "Tracked",
		IsVertexBuffer: true,
		InitialState:   rhi.StateCopyDest,
	})
	require.NoError(t, err)
	nb := buffer.(*Buffer)
	assert.Equal(t, rhi.StateCopyDest, nb.State())
	assert.False(t, nb.IsPermanentState())

	require.NoError(t, cl.Open())
	cl.BeginTrackingBufferState(buffer, rhi.StateCopyDest)
	cl.SetPermanentBufferState(buffer, rhi.StateVertexBuffer)
	require.NoError(t, cl.Close())

	assert.Equal(t, rhi.StateVertexBuffer, nb.State())
	assert.True(t, nb.IsPermanentState())

	// Once permanent, later transitions are ignored and record nothing.
	before := len(cl.(*CommandList).Commands())
	cl.SetBufferState(buffer, rhi.StateCopySource)
	assert.Equal(t, rhi.StateVertexBuffer, nb.State())
	assert.Len(t, cl.(*CommandList).Commands(), before)
}

func TestTextureDefaultsAndWrites(t *testing.T) {
	device, cl := newDeviceAndList(t)

	_, err := device.NewTexture(rhi.TextureDesc{Width: 0, Height: 4, DebugName: "Degenerate"})
	assert.Error(t, err)

	texture, err := device.NewTexture(rhi.TextureDesc{
		Width:     4,
		Height:    4,
		Format:    rhi.FormatRGBA8Unorm,
		DebugName: "Mips",
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), texture.Desc().MipLevels)
	assert.Equal(t, uint32(1), texture.Desc().SampleCount)

	require.NoError(t, cl.Open())
	pixels := make([]byte, 4*4*4)
	pixels[0] = 0xFF
	require.NoError(t, cl.WriteTexture(texture, 0, pixels, 4*4))
	require.NoError(t, cl.Close())

	nt := texture.(*Texture)
	require.Contains(t, nt.Mips, uint32(0))
	assert.Equal(t, byte(0xFF), nt.Mips[0][0])
}

func TestBindingSetMustMatchLayout(t *testing.T) {
	device := NewDevice()

	buffer, err := device.NewBuffer(rhi.BufferDesc{ByteSize: 256, IsConstantBuffer: true, DebugName: "CB"})
	require.NoError(t, err)
	texture, err := device.NewTexture(rhi.TextureDesc{Width: 4, Height: 4, Format: rhi.FormatRGBA8Unorm, DebugName: "Tex"})
	require.NoError(t, err)

	layout, err := device.NewBindingLayout(rhi.BindingLayoutDesc{
		Visibility: rhi.ShaderTypePixel,
		Bindings: []rhi.BindingLayoutItem{
			{Slot: 0, Type: rhi.ResourceTypeConstantBuffer},
			{Slot: 1, Type: rhi.ResourceTypeTextureSRV},
		},
	})
	require.NoError(t, err)

	set, err := device.NewBindingSet(rhi.BindingSetDesc{
		Bindings: []rhi.BindingSetItem{
			rhi.BindingConstantBuffer(0, buffer),
			rhi.BindingTextureSRV(1, texture),
		},
	}, layout)
	require.NoError(t, err)
	assert.Same(t, layout, set.Layout())

	// Fewer items than the layout expects.
	_, err = device.NewBindingSet(rhi.BindingSetDesc{
		Bindings: []rhi.BindingSetItem{rhi.BindingConstantBuffer(0, buffer)},
	}, layout)
	assert.Error(t, err)

	// Matching count but the wrong resource type at a slot.
	_, err = device.NewBindingSet(rhi.BindingSetDesc{
		Bindings: []rhi.BindingSetItem{
			rhi.BindingConstantBuffer(0, buffer),
			rhi.BindingConstantBuffer(1, buffer),
		},
	}, layout)
	assert.Error(t, err)

	_, err = device.NewBindingSet(rhi.BindingSetDesc{}, nil)
	assert.Error(t, err)
}

func TestGraphicsPipelineValidation(t *testing.T) {
	device := NewDevice()
	fb := newColorFramebuffer(t, device, 8, 8)

	vs, err := device.NewShader(rhi.ShaderDesc{Type: rhi.ShaderTypeVertex, EntryPoint: "main_vs"}, nil)
	require.NoError(t, err)
	ps, err := device.NewShader(rhi.ShaderDesc{Type: rhi.ShaderTypePixel, EntryPoint: "main_ps"}, nil)
	require.NoError(t, err)

	_, err = device.NewGraphicsPipeline(rhi.GraphicsPipelineDesc{VertexShader: vs}, fb)
	assert.Error(t, err, "both shader stages are required")

	_, err = device.NewGraphicsPipeline(rhi.GraphicsPipelineDesc{VertexShader: vs, PixelShader: ps}, nil)
	assert.Error(t, err, "a framebuffer is required for the attachment formats")

	pipeline, err := device.NewGraphicsPipeline(rhi.GraphicsPipelineDesc{
		VertexShader: vs,
		PixelShader:  ps,
		DebugName:    "TestPipeline",
	}, fb)
	require.NoError(t, err)
	assert.Equal(t, 1, device.LivePipelineCount())

	pipeline.Destroy()
	assert.Equal(t, 0, device.LivePipelineCount())
}

func TestComputePipelineHonorsFeatureGate(t *testing.T) {
	device := NewDevice()
	cs, err := device.NewShader(rhi.ShaderDesc{Type: rhi.ShaderTypeCompute, EntryPoint: "main_cs"}, nil)
	require.NoError(t, err)

	device.SetFeatureSupport(rhi.FeatureComputeShaders, false)
	_, err = device.NewComputePipeline(rhi.ComputePipelineDesc{ComputeShader: cs})
	assert.ErrorIs(t, err, core.ErrFeatureUnsupported)

	device.SetFeatureSupport(rhi.FeatureComputeShaders, true)
	pipeline, err := device.NewComputePipeline(rhi.ComputePipelineDesc{ComputeShader: cs})
	require.NoError(t, err)
	assert.Equal(t, 1, device.LivePipelineCount())
	pipeline.Destroy()
}

func TestMeshletPipelineHonorsFeatureGate(t *testing.T) {
	device := NewDevice()
	fb := newColorFramebuffer(t, device, 8, 8)

	ms, err := device.NewShader(rhi.ShaderDesc{Type: rhi.ShaderTypeMesh, EntryPoint: "main_ms"}, nil)
	require.NoError(t, err)
	ps, err := device.NewShader(rhi.ShaderDesc{Type: rhi.ShaderTypePixel, EntryPoint: "main_ps"}, nil)
	require.NoError(t, err)

	desc := rhi.MeshletPipelineDesc{MeshShader: ms, PixelShader: ps, DebugName: "Meshlets"}

	_, err = device.NewMeshletPipeline(desc, fb)
	assert.ErrorIs(t, err, core.ErrFeatureUnsupported, "meshlets are off by default")

	device.SetFeatureSupport(rhi.FeatureMeshlets, true)
	pipeline, err := device.NewMeshletPipeline(desc, fb)
	require.NoError(t, err)
	pipeline.Destroy()
}

func TestGraphicsStateIsDeepCopied(t *testing.T) {
	_, cl := newDeviceAndList(t)

	require.NoError(t, cl.Open())
	viewports := []rhi.Viewport{rhi.NewViewport(100, 100)}
	cl.SetGraphicsState(rhi.GraphicsState{Viewports: viewports})

	// Mutating the caller's slice after recording must not change what
	// was recorded.
	viewports[0] = rhi.NewViewport(1, 1)

	recorded := cl.(*CommandList).Commands()[0]
	assert.Equal(t, float32(100), recorded.Graphics.Viewports[0].MaxX)
}

func TestDispatchRecording(t *testing.T) {
	_, cl := newDeviceAndList(t)

	require.NoError(t, cl.Open())
	cl.Dispatch(80, 45, 1)
	cl.DispatchMesh(7)
	require.NoError(t, cl.Close())

	commands := cl.(*CommandList).Commands()
	require.Len(t, commands, 2)
	assert.Equal(t, OpDispatch, commands[0].Op)
	assert.Equal(t, [3]uint32{80, 45, 1}, commands[0].Groups)
	assert.Equal(t, OpDispatchMesh, commands[1].Op)
	assert.Equal(t, [3]uint32{7, 1, 1}, commands[1].Groups)
}

func TestSwapChainLifecycle(t *testing.T) {
	device, sc, err := CreateDeviceAndSwapChain(640, 480)
	require.NoError(t, err)
	assert.Equal(t, 1, device.LiveTextureCount())

	info := sc.CurrentFramebuffer().Info()
	assert.Equal(t, uint32(640), info.Width)
	assert.Equal(t, uint32(480), info.Height)
	assert.Equal(t, []rhi.Format{rhi.FormatBGRA8Unorm}, info.ColorFormats)

	require.NoError(t, sc.BeginFrame())
	require.NoError(t, sc.Present())
	require.NoError(t, sc.BeginFrame())
	require.NoError(t, sc.Present())
	assert.Equal(t, 2, sc.PresentedFrames())

	require.NoError(t, sc.Resize(800, 600))
	assert.Equal(t, 1, sc.ResizeCount())
	assert.Equal(t, uint32(800), sc.CurrentFramebuffer().Info().Width)
	assert.Equal(t, 1, device.LiveTextureCount(), "the old back buffer is released on resize")

	sc.Destroy()
	assert.Equal(t, 0, device.LiveTextureCount())
}
