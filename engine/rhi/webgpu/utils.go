package webgpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/torus-gfx/torus/engine/rhi"
)

func toWgpuTextureFormat(format rhi.Format) wgpu.TextureFormat {
	switch format {
	case rhi.FormatR8Unorm:
		return wgpu.TextureFormatR8Unorm
	case rhi.FormatRG8Unorm:
		return wgpu.TextureFormatRG8Unorm
	case rhi.FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case rhi.FormatSRGBA8Unorm:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case rhi.FormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case rhi.FormatR16Float:
		return wgpu.TextureFormatR16Float
	case rhi.FormatRG16Float:
		return wgpu.TextureFormatRG16Float
	case rhi.FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case rhi.FormatR32Uint:
		return wgpu.TextureFormatR32Uint
	case rhi.FormatR32Float:
		return wgpu.TextureFormatR32Float
	case rhi.FormatRG32Float:
		return wgpu.TextureFormatRG32Float
	case rhi.FormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float
	case rhi.FormatD24UnormS8Uint:
		return wgpu.TextureFormatDepth24PlusStencil8
	case rhi.FormatD32Float:
		return wgpu.TextureFormatDepth32Float
	}
	return wgpu.TextureFormatUndefined
}

func fromWgpuTextureFormat(format wgpu.TextureFormat) rhi.Format {
	switch format {
	case wgpu.TextureFormatR8Unorm:
		return rhi.FormatR8Unorm
	case wgpu.TextureFormatRG8Unorm:
		return rhi.FormatRG8Unorm
	case wgpu.TextureFormatRGBA8Unorm:
		return rhi.FormatRGBA8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return rhi.FormatSRGBA8Unorm
	case wgpu.TextureFormatBGRA8Unorm:
		return rhi.FormatBGRA8Unorm
	case wgpu.TextureFormatR16Float:
		return rhi.FormatR16Float
	case wgpu.TextureFormatRG16Float:
		return rhi.FormatRG16Float
	case wgpu.TextureFormatRGBA16Float:
		return rhi.FormatRGBA16Float
	case wgpu.TextureFormatR32Uint:
		return rhi.FormatR32Uint
	case wgpu.TextureFormatR32Float:
		return rhi.FormatR32Float
	case wgpu.TextureFormatRG32Float:
		return rhi.FormatRG32Float
	case wgpu.TextureFormatRGBA32Float:
		return rhi.FormatRGBA32Float
	case wgpu.TextureFormatDepth24PlusStencil8:
		return rhi.FormatD24UnormS8Uint
	case wgpu.TextureFormatDepth32Float:
		return rhi.FormatD32Float
	}
	return rhi.FormatUnknown
}

// toWgpuVertexFormat covers the formats vertex attributes use; anything
// else maps to the undefined format and fails input layout creation.
func toWgpuVertexFormat(format rhi.Format) wgpu.VertexFormat {
	switch format {
	case rhi.FormatR32Float:
		return wgpu.VertexFormatFloat32
	case rhi.FormatRG32Float:
		return wgpu.VertexFormatFloat32x2
	case rhi.FormatRGB32Float:
		return wgpu.VertexFormatFloat32x3
	case rhi.FormatRGBA32Float:
		return wgpu.VertexFormatFloat32x4
	case rhi.FormatR32Uint:
		return wgpu.VertexFormatUint32
	case rhi.FormatRGBA8Unorm:
		return wgpu.VertexFormatUnorm8x4
	}
	return wgpu.VertexFormatUndefined
}

func toWgpuTopology(prim rhi.PrimitiveType) wgpu.PrimitiveTopology {
	switch prim {
	case rhi.PrimitiveTriangleList:
		return wgpu.PrimitiveTopologyTriangleList
	case rhi.PrimitiveTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	case rhi.PrimitiveLineList:
		return wgpu.PrimitiveTopologyLineList
	case rhi.PrimitivePointList:
		return wgpu.PrimitiveTopologyPointList
	}
	return wgpu.PrimitiveTopologyTriangleList
}

func toWgpuCullMode(mode rhi.CullMode) wgpu.CullMode {
	switch mode {
	case rhi.CullBack:
		return wgpu.CullModeBack
	case rhi.CullFront:
		return wgpu.CullModeFront
	case rhi.CullNone:
		return wgpu.CullModeNone
	}
	return wgpu.CullModeBack
}

func toWgpuShaderStage(visibility rhi.ShaderType) wgpu.ShaderStage {
	var stages wgpu.ShaderStage
	if visibility&rhi.ShaderTypeVertex != 0 {
		stages |= wgpu.ShaderStageVertex
	}
	if visibility&rhi.ShaderTypePixel != 0 {
		stages |= wgpu.ShaderStageFragment
	}
	if visibility&rhi.ShaderTypeCompute != 0 {
		stages |= wgpu.ShaderStageCompute
	}
	return stages
}

func toWgpuFilter(filter rhi.Filter) wgpu.FilterMode {
	if filter == rhi.FilterNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func toWgpuMipmapFilter(filter rhi.Filter) wgpu.MipmapFilterMode {
	if filter == rhi.FilterNearest {
		return wgpu.MipmapFilterModeNearest
	}
	return wgpu.MipmapFilterModeLinear
}

func toWgpuAddressMode(mode rhi.AddressMode) wgpu.AddressMode {
	switch mode {
	case rhi.AddressWrap:
		return wgpu.AddressModeRepeat
	case rhi.AddressClamp:
		return wgpu.AddressModeClampToEdge
	case rhi.AddressMirror:
		return wgpu.AddressModeMirrorRepeat
	}
	return wgpu.AddressModeRepeat
}

// safeString returns s, or fallback when the desc carried no debug name.
func safeString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// mipExtent clamps a full resolution extent to a mip level.
func mipExtent(size, mipLevel uint32) uint32 {
	size >>= mipLevel
	if size == 0 {
		return 1
	}
	return size
}
