package rhi

/** @brief The pixel or element format of a texture, vertex attribute or
 * index buffer. */
type Format uint8

const (
	FormatUnknown Format = iota
	FormatR8Unorm
	FormatRG8Unorm
	FormatRGBA8Unorm
	FormatSRGBA8Unorm
	FormatBGRA8Unorm
	FormatR16Float
	FormatRG16Float
	FormatRGBA16Float
	FormatR32Uint
	FormatR32Float
	FormatRG32Float
	FormatRGB32Float
	FormatRGBA32Float
	FormatD24UnormS8Uint
	FormatD32Float
)

func (f Format) String() string {
	switch f {
	case FormatR8Unorm:
		return "R8_UNORM"
	case FormatRG8Unorm:
		return "RG8_UNORM"
	case FormatRGBA8Unorm:
		return "RGBA8_UNORM"
	case FormatSRGBA8Unorm:
		return "SRGBA8_UNORM"
	case FormatBGRA8Unorm:
		return "BGRA8_UNORM"
	case FormatR16Float:
		return "R16_FLOAT"
	case FormatRG16Float:
		return "RG16_FLOAT"
	case FormatRGBA16Float:
		return "RGBA16_FLOAT"
	case FormatR32Uint:
		return "R32_UINT"
	case FormatR32Float:
		return "R32_FLOAT"
	case FormatRG32Float:
		return "RG32_FLOAT"
	case FormatRGB32Float:
		return "RGB32_FLOAT"
	case FormatRGBA32Float:
		return "RGBA32_FLOAT"
	case FormatD24UnormS8Uint:
		return "D24_UNORM_S8_UINT"
	case FormatD32Float:
		return "D32_FLOAT"
	}
	return "UNKNOWN"
}

// BytesPerElement returns the size of one pixel, attribute or index in
// this format.
func (f Format) BytesPerElement() uint32 {
	switch f {
	case FormatR8Unorm:
		return 1
	case FormatRG8Unorm:
		return 2
	case FormatRGBA8Unorm, FormatSRGBA8Unorm, FormatBGRA8Unorm,
		FormatR32Uint, FormatR32Float, FormatRG16Float,
		FormatD24UnormS8Uint, FormatD32Float:
		return 4
	case FormatR16Float:
		return 2
	case FormatRGBA16Float, FormatRG32Float:
		return 8
	case FormatRGB32Float:
		return 12
	case FormatRGBA32Float:
		return 16
	}
	return 0
}

// HasDepth reports whether the format carries a depth component.
func (f Format) HasDepth() bool {
	return f == FormatD24UnormS8Uint || f == FormatD32Float
}

// HasStencil reports whether the format carries a stencil component.
func (f Format) HasStencil() bool {
	return f == FormatD24UnormS8Uint
}

/** @brief The state a buffer or texture is in with respect to GPU
 * access. Backends translate transitions between states into the
 * barriers their API requires. */
type ResourceState uint32

const (
	StateUndefined       ResourceState = 0
	StateCommon          ResourceState = 1 << 0
	StateCopyDest        ResourceState = 1 << 1
	StateCopySource      ResourceState = 1 << 2
	StateVertexBuffer    ResourceState = 1 << 3
	StateIndexBuffer     ResourceState = 1 << 4
	StateConstantBuffer  ResourceState = 1 << 5
	StateShaderResource  ResourceState = 1 << 6
	StateUnorderedAccess ResourceState = 1 << 7
	StateRenderTarget    ResourceState = 1 << 8
	StateDepthWrite      ResourceState = 1 << 9
	StatePresent         ResourceState = 1 << 10
)

func (s ResourceState) String() string {
	switch s {
	case StateUndefined:
		return "undefined"
	case StateCommon:
		return "common"
	case StateCopyDest:
		return "copy-dest"
	case StateCopySource:
		return "copy-source"
	case StateVertexBuffer:
		return "vertex-buffer"
	case StateIndexBuffer:
		return "index-buffer"
	case StateConstantBuffer:
		return "constant-buffer"
	case StateShaderResource:
		return "shader-resource"
	case StateUnorderedAccess:
		return "unordered-access"
	case StateRenderTarget:
		return "render-target"
	case StateDepthWrite:
		return "depth-write"
	case StatePresent:
		return "present"
	}
	return "mixed"
}
