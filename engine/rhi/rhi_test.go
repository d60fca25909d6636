package rhi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torus-gfx/torus/engine/rhi"
	"github.com/torus-gfx/torus/engine/rhi/null"
)

func TestGraphicsAPIFromString(t *testing.T) {
	for name, want := range map[string]rhi.GraphicsAPI{
		"vulkan": rhi.GraphicsAPIVulkan,
		"vk":     rhi.GraphicsAPIVulkan,
		"webgpu": rhi.GraphicsAPIWebGPU,
		"wgpu":   rhi.GraphicsAPIWebGPU,
		"null":   rhi.GraphicsAPINull,
	} {
		api, err := rhi.GraphicsAPIFromString(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, api, name)
	}

	_, err := rhi.GraphicsAPIFromString("direct3d")
	assert.Error(t, err)

	assert.Equal(t, "vulkan", rhi.GraphicsAPIVulkan.String())
	assert.Equal(t, "webgpu", rhi.GraphicsAPIWebGPU.String())
	assert.Equal(t, "null", rhi.GraphicsAPINull.String())
}

func TestFormatProperties(t *testing.T) {
	assert.Equal(t, uint32(4), rhi.FormatRGBA8Unorm.BytesPerElement())
	assert.Equal(t, uint32(4), rhi.FormatR32Uint.BytesPerElement())
	assert.Equal(t, uint32(8), rhi.FormatRGBA16Float.BytesPerElement())
	assert.Equal(t, uint32(12), rhi.FormatRGB32Float.BytesPerElement())
	assert.Equal(t, uint32(16), rhi.FormatRGBA32Float.BytesPerElement())
	assert.Equal(t, uint32(0), rhi.FormatUnknown.BytesPerElement())

	assert.True(t, rhi.FormatD24UnormS8Uint.HasDepth())
	assert.True(t, rhi.FormatD24UnormS8Uint.HasStencil())
	assert.True(t, rhi.FormatD32Float.HasDepth())
	assert.False(t, rhi.FormatD32Float.HasStencil())
	assert.False(t, rhi.FormatRGBA8Unorm.HasDepth())
}

func TestBufferRangeResolve(t *testing.T) {
	desc := rhi.BufferDesc{ByteSize: 1024}

	whole := rhi.EntireBuffer.Resolve(desc)
	assert.Equal(t, int64(0), whole.ByteOffset)
	assert.Equal(t, int64(1024), whole.ByteSize)

	tail := rhi.BufferRange{ByteOffset: 256}.Resolve(desc)
	assert.Equal(t, int64(768), tail.ByteSize)

	explicit := rhi.BufferRange{ByteOffset: 256, ByteSize: 256}.Resolve(desc)
	assert.Equal(t, int64(256), explicit.ByteSize)
}

func TestLayoutFromBindingSetKeepsSlotOrderAndFormats(t *testing.T) {
	device := null.NewDevice()

	buffer, err := device.NewBuffer(rhi.BufferDesc{ByteSize: 256, IsConstantBuffer: true, DebugName: "CB"})
	require.NoError(t, err)
	texture, err := device.NewTexture(rhi.TextureDesc{
		Width: 4, Height: 4, Format: rhi.FormatRGBA16Float, IsUAV: true, DebugName: "Storage",
	})
	require.NoError(t, err)
	sampler, err := device.NewSampler(rhi.NewLinearClampSamplerDesc())
	require.NoError(t, err)

	layout := rhi.LayoutFromBindingSet(rhi.ShaderTypeCompute, rhi.BindingSetDesc{
		Bindings: []rhi.BindingSetItem{
			rhi.BindingConstantBuffer(0, buffer),
			rhi.BindingTextureUAV(1, texture),
			rhi.BindingSampler(2, sampler),
		},
	})

	assert.Equal(t, rhi.ShaderTypeCompute, layout.Visibility)
	require.Len(t, layout.Bindings, 3)
	assert.Equal(t, rhi.ResourceTypeConstantBuffer, layout.Bindings[0].Type)
	assert.Equal(t, uint32(0), layout.Bindings[0].Slot)
	assert.Equal(t, rhi.ResourceTypeTextureUAV, layout.Bindings[1].Type)
	// Storage texture bindings carry their format into the layout.
	assert.Equal(t, rhi.FormatRGBA16Float, layout.Bindings[1].Format)
	assert.Equal(t, rhi.ResourceTypeSampler, layout.Bindings[2].Type)
}

func TestCreateBindingSetAndLayout(t *testing.T) {
	device := null.NewDevice()

	buffer, err := device.NewBuffer(rhi.BufferDesc{ByteSize: 256, IsConstantBuffer: true, DebugName: "CB"})
	require.NoError(t, err)

	layout, set, err := rhi.CreateBindingSetAndLayout(device, rhi.ShaderTypeAll, rhi.BindingSetDesc{
		Bindings: []rhi.BindingSetItem{rhi.BindingConstantBuffer(0, buffer)},
	})
	require.NoError(t, err)
	require.NotNil(t, layout)
	require.NotNil(t, set)
	assert.Same(t, layout, set.Layout())
	assert.Equal(t, rhi.ShaderTypeAll, layout.Desc().Visibility)
}

func TestViewportGeometry(t *testing.T) {
	full := rhi.NewViewport(1280, 720)
	assert.Equal(t, float32(1280), full.Width())
	assert.Equal(t, float32(720), full.Height())
	assert.Equal(t, float32(1), full.MaxZ)

	quadrant := rhi.NewViewportAt(640, 360, 640, 360)
	assert.Equal(t, float32(640), quadrant.MinX)
	assert.Equal(t, float32(1280), quadrant.MaxX)
	assert.Equal(t, float32(360), quadrant.MinY)
	assert.Equal(t, float32(720), quadrant.MaxY)
	assert.Equal(t, float32(640), quadrant.Width())
	assert.Equal(t, float32(360), quadrant.Height())
}

func TestFramebufferInfoEquality(t *testing.T) {
	device := null.NewDevice()

	makeFramebuffer := func(width, height uint32, format rhi.Format, withDepth bool) rhi.Framebuffer {
		color, err := device.NewTexture(rhi.TextureDesc{
			Width: width, Height: height, Format: format, IsRenderTarget: true, DebugName: "Color",
		})
		require.NoError(t, err)
		desc := rhi.FramebufferDesc{ColorAttachments: []rhi.Texture{color}}
		if withDepth {
			depth, err := device.NewTexture(rhi.TextureDesc{
				Width: width, Height: height, Format: rhi.FormatD24UnormS8Uint, IsRenderTarget: true, DebugName: "Depth",
			})
			require.NoError(t, err)
			desc.DepthAttachment = depth
		}
		fb, err := device.NewFramebuffer(desc)
		require.NoError(t, err)
		return fb
	}

	a := makeFramebuffer(640, 480, rhi.FormatBGRA8Unorm, true)
	b := makeFramebuffer(640, 480, rhi.FormatBGRA8Unorm, true)
	assert.True(t, a.Info().Equal(b.Info()))

	assert.Equal(t, uint32(640), a.Info().Width)
	assert.Equal(t, rhi.FormatD24UnormS8Uint, a.Info().DepthFormat)
	assert.Equal(t, uint32(1), a.Info().SampleCount)

	viewport := a.Info().GetViewport()
	assert.Equal(t, float32(640), viewport.Width())
	assert.Equal(t, float32(480), viewport.Height())

	differentSize := makeFramebuffer(800, 600, rhi.FormatBGRA8Unorm, true)
	assert.False(t, a.Info().Equal(differentSize.Info()))

	differentFormat := makeFramebuffer(640, 480, rhi.FormatRGBA16Float, true)
	assert.False(t, a.Info().Equal(differentFormat.Info()))

	noDepth := makeFramebuffer(640, 480, rhi.FormatBGRA8Unorm, false)
	assert.False(t, a.Info().Equal(noDepth.Info()))
}

func TestNewDrawArguments(t *testing.T) {
	args := rhi.NewDrawArguments(36)
	assert.Equal(t, uint32(36), args.VertexCount)
	assert.Equal(t, uint32(1), args.InstanceCount)
	assert.Zero(t, args.StartIndex)
	assert.Zero(t, args.StartVertex)
	assert.Zero(t, args.StartInstance)
}

func TestColorConstructors(t *testing.T) {
	assert.Equal(t, rhi.Color{R: 1, G: 0.5, B: 0.25, A: 1}, rhi.NewColor(1, 0.5, 0.25, 1))
	assert.Equal(t, rhi.Color{R: 0.2, G: 0.2, B: 0.2, A: 0.2}, rhi.NewColorUniform(0.2))
}
