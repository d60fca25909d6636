package rhi

/**
 * @brief Describes one vertex attribute: where it comes from in the
 * vertex buffers and how it is laid out.
 */
type VertexAttributeDesc struct {
	/** @brief The attribute name as declared in the vertex shader. */
	Name   string
	Format Format
	/** @brief Which vertex buffer binding slot the attribute reads from. */
	BufferIndex uint32
	/** @brief Byte offset of the attribute inside one element. */
	Offset uint32
	/** @brief Byte stride between consecutive elements. */
	ElementStride uint32
	/** @brief Advances once per instance instead of once per vertex.
	 * All attributes sharing a buffer slot must agree on this. */
	IsInstanced bool
}

type InputLayout interface {
	Attributes() []VertexAttributeDesc
	Destroy()
}

/** @brief Primitive assembly mode. */
type PrimitiveType uint8

const (
	PrimitiveTriangleList PrimitiveType = iota
	PrimitiveTriangleStrip
	PrimitiveLineList
	PrimitivePointList
)

/** @brief Which triangle faces get culled. */
type CullMode uint8

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

/**
 * @brief Fixed function state baked into a graphics pipeline.
 */
type RenderState struct {
	DepthTestEnable  bool
	DepthWriteEnable bool
	CullMode         CullMode
}

/**
 * @brief Describes a graphics pipeline. The framebuffer passed to
 * Device.NewGraphicsPipeline supplies the attachment formats.
 */
type GraphicsPipelineDesc struct {
	PrimType       PrimitiveType
	VertexShader   Shader
	PixelShader    Shader
	InputLayout    InputLayout
	BindingLayouts []BindingLayout
	RenderState    RenderState
	/** @brief A name for debugging and log output. */
	DebugName string
}

type GraphicsPipeline interface {
	Desc() GraphicsPipelineDesc
	Destroy()
}

/**
 * @brief Describes a compute pipeline.
 */
type ComputePipelineDesc struct {
	ComputeShader  Shader
	BindingLayouts []BindingLayout
	DebugName      string
}

type ComputePipeline interface {
	Desc() ComputePipelineDesc
	Destroy()
}

/**
 * @brief Describes a meshlet pipeline: amplification and mesh stages in
 * place of the vertex stage. Requires FeatureMeshlets.
 */
type MeshletPipelineDesc struct {
	PrimType            PrimitiveType
	AmplificationShader Shader
	MeshShader          Shader
	PixelShader         Shader
	BindingLayouts      []BindingLayout
	RenderState         RenderState
	DebugName           string
}

type MeshletPipeline interface {
	Desc() MeshletPipelineDesc
	Destroy()
}

/**
 * @brief A viewport rectangle with a depth range. Backends derive the
 * scissor rectangle from the viewport bounds.
 */
type Viewport struct {
	MinX, MaxX float32
	MinY, MaxY float32
	MinZ, MaxZ float32
}

// NewViewport returns a viewport from the origin to (width, height)
// with a 0..1 depth range.
func NewViewport(width, height float32) Viewport {
	return Viewport{MaxX: width, MaxY: height, MaxZ: 1}
}

// NewViewportAt returns a viewport of the given size at an offset, with
// a 0..1 depth range.
func NewViewportAt(left, top, width, height float32) Viewport {
	return Viewport{MinX: left, MaxX: left + width, MinY: top, MaxY: top + height, MaxZ: 1}
}

func (v Viewport) Width() float32 {
	return v.MaxX - v.MinX
}

func (v Viewport) Height() float32 {
	return v.MaxY - v.MinY
}

/** @brief A vertex buffer bound at a slot of the input assembler. */
type VertexBufferBinding struct {
	Buffer Buffer
	Slot   uint32
	Offset int64
}

/** @brief An index buffer binding; Format must be R32Uint or a 16 bit
 * equivalent supported by the backend. */
type IndexBufferBinding struct {
	Buffer Buffer
	Format Format
	Offset int64
}

/**
 * @brief The full state for a draw: pipeline, framebuffer, viewports,
 * bindings and geometry buffers.
 */
type GraphicsState struct {
	Pipeline      GraphicsPipeline
	Framebuffer   Framebuffer
	Viewports     []Viewport
	BindingSets   []BindingSet
	VertexBuffers []VertexBufferBinding
	IndexBuffer   IndexBufferBinding
}

/**
 * @brief The full state for a dispatch.
 */
type ComputeState struct {
	Pipeline    ComputePipeline
	BindingSets []BindingSet
}

/**
 * @brief The full state for a meshlet dispatch.
 */
type MeshletState struct {
	Pipeline    MeshletPipeline
	Framebuffer Framebuffer
	Viewports   []Viewport
	BindingSets []BindingSet
}

/**
 * @brief Arguments for draw calls, mirroring the indirect draw layout.
 */
type DrawArguments struct {
	/** @brief Vertex count for Draw, index count for DrawIndexed. */
	VertexCount   uint32
	InstanceCount uint32
	StartIndex    uint32
	StartVertex   int32
	StartInstance uint32
}

// NewDrawArguments returns draw arguments for one instance of
// vertexCount vertices.
func NewDrawArguments(vertexCount uint32) DrawArguments {
	return DrawArguments{VertexCount: vertexCount, InstanceCount: 1}
}
