package rhi

/**
 * @brief Describes a GPU buffer. The usage flags decide which bind
 * points the buffer may be attached to; constant buffers are padded to
 * ConstantBufferAlignment by the backends.
 */
type BufferDesc struct {
	/** @brief The size of the buffer in bytes. */
	ByteSize int64
	/** @brief A name for debugging and log output. */
	DebugName string
	/** @brief Usable as a vertex buffer. */
	IsVertexBuffer bool
	/** @brief Usable as an index buffer. */
	IsIndexBuffer bool
	/** @brief Usable as a constant buffer. */
	IsConstantBuffer bool
	/** @brief The state the buffer is created in. */
	InitialState ResourceState
	/** @brief When set, the buffer stays in InitialState unless a command
	 * list explicitly tracks and transitions it. */
	KeepInitialState bool
}

// ConstantBufferAlignment is the offset alignment every backend
// guarantees for constant buffer ranges.
const ConstantBufferAlignment = 256

type Buffer interface {
	Desc() BufferDesc
	Destroy()
}

/**
 * @brief A byte range into a buffer, used to bind a slice of a larger
 * buffer, for example one 256 byte entry of a constant buffer array.
 */
type BufferRange struct {
	ByteOffset int64
	/** @brief The size of the range; 0 means to the end of the buffer. */
	ByteSize int64
}

// EntireBuffer is the range covering a whole buffer.
var EntireBuffer = BufferRange{}

// Resolve returns the range with ByteSize filled in from the buffer
// size when it was left at 0.
func (r BufferRange) Resolve(desc BufferDesc) BufferRange {
	if r.ByteSize == 0 {
		r.ByteSize = desc.ByteSize - r.ByteOffset
	}
	return r
}

/**
 * @brief Describes a texture. Textures are always sampleable; render
 * target and storage usage are opt in.
 */
type TextureDesc struct {
	Width  uint32
	Height uint32
	/** @brief Number of mip levels, at least 1. */
	MipLevels uint32
	/** @brief MSAA sample count, at least 1. */
	SampleCount uint32
	Format      Format
	/** @brief A name for debugging and log output. */
	DebugName string
	/** @brief Usable as a color or depth attachment. */
	IsRenderTarget bool
	/** @brief Usable as a storage (unordered access) texture. */
	IsUAV bool
	/** @brief The state the texture is created in. */
	InitialState ResourceState
	/** @brief When set, the texture stays in InitialState unless a
	 * command list explicitly tracks and transitions it. */
	KeepInitialState bool
}

type Texture interface {
	Desc() TextureDesc
	Destroy()
}

/** @brief Texel filtering mode. */
type Filter uint8

const (
	FilterNearest Filter = iota
	FilterLinear
)

/** @brief How texture coordinates outside [0, 1] are treated. */
type AddressMode uint8

const (
	AddressWrap AddressMode = iota
	AddressClamp
	AddressMirror
)

/**
 * @brief Describes a texture sampler.
 */
type SamplerDesc struct {
	MinFilter Filter
	MagFilter Filter
	MipFilter Filter
	AddressU  AddressMode
	AddressV  AddressMode
	AddressW  AddressMode
	/** @brief Anisotropic filtering level; values <= 1 disable it. */
	MaxAnisotropy float32
}

// NewLinearWrapSamplerDesc returns a trilinear wrapping sampler with
// the given anisotropy, the usual choice for material textures.
func NewLinearWrapSamplerDesc(maxAnisotropy float32) SamplerDesc {
	return SamplerDesc{
		MinFilter:     FilterLinear,
		MagFilter:     FilterLinear,
		MipFilter:     FilterLinear,
		AddressU:      AddressWrap,
		AddressV:      AddressWrap,
		AddressW:      AddressWrap,
		MaxAnisotropy: maxAnisotropy,
	}
}

// NewLinearClampSamplerDesc returns a bilinear clamping sampler, the
// usual choice for sampling render targets in post passes.
func NewLinearClampSamplerDesc() SamplerDesc {
	return SamplerDesc{
		MinFilter: FilterLinear,
		MagFilter: FilterLinear,
		AddressU:  AddressClamp,
		AddressV:  AddressClamp,
		AddressW:  AddressClamp,
	}
}

type Sampler interface {
	Desc() SamplerDesc
	Destroy()
}

/** @brief The pipeline stage a shader runs at. Values are flags so a
 * binding layout can be visible to several stages at once. */
type ShaderType uint8

const (
	ShaderTypeVertex        ShaderType = 1 << 0
	ShaderTypePixel         ShaderType = 1 << 1
	ShaderTypeCompute       ShaderType = 1 << 2
	ShaderTypeAmplification ShaderType = 1 << 3
	ShaderTypeMesh          ShaderType = 1 << 4

	ShaderTypeAll = ShaderTypeVertex | ShaderTypePixel | ShaderTypeCompute |
		ShaderTypeAmplification | ShaderTypeMesh
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypePixel:
		return "pixel"
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeAmplification:
		return "amplification"
	case ShaderTypeMesh:
		return "mesh"
	case ShaderTypeAll:
		return "all"
	}
	return "mixed"
}

/**
 * @brief Describes a shader stage. The bytecode itself is passed to
 * Device.NewShader separately since it is loaded from disk.
 */
type ShaderDesc struct {
	Type ShaderType
	/** @brief The entry point symbol inside the bytecode. */
	EntryPoint string
	/** @brief A name for debugging and log output. */
	DebugName string
}

type Shader interface {
	Desc() ShaderDesc
	Destroy()
}
