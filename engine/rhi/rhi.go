// Package rhi defines the render hardware interface: a thin, backend
// neutral abstraction over a graphics device, its resources and its
// command lists. Backends live in the subpackages vulkan, webgpu and
// null; application code depends only on the interfaces defined here.
package rhi

import "fmt"

// GraphicsAPI identifies a rendering backend implementation.
type GraphicsAPI uint8

const (
	GraphicsAPIVulkan GraphicsAPI = iota
	GraphicsAPIWebGPU
	GraphicsAPINull
)

func (a GraphicsAPI) String() string {
	switch a {
	case GraphicsAPIVulkan:
		return "vulkan"
	case GraphicsAPIWebGPU:
		return "webgpu"
	case GraphicsAPINull:
		return "null"
	}
	return "unknown"
}

// GraphicsAPIFromString parses a backend name as accepted on the
// command line.
func GraphicsAPIFromString(s string) (GraphicsAPI, error) {
	switch s {
	case "vulkan", "vk":
		return GraphicsAPIVulkan, nil
	case "webgpu", "wgpu":
		return GraphicsAPIWebGPU, nil
	case "null":
		return GraphicsAPINull, nil
	}
	return 0, fmt.Errorf("unknown graphics API %q", s)
}

// Feature is an optional device capability that can be queried before
// it is used.
type Feature uint8

const (
	FeatureComputeShaders Feature = iota
	FeatureMeshlets
)

// Color is a four channel float color used for clears and constants.
type Color struct {
	R, G, B, A float32
}

// NewColor returns a color with the given channel values.
func NewColor(r, g, b, a float32) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// NewColorUniform returns a color with every channel set to v.
func NewColorUniform(v float32) Color {
	return Color{R: v, G: v, B: v, A: v}
}

// Device creates resources and executes command lists. Implementations
// are not safe for concurrent use; all calls are expected on the render
// thread, matching the windowing layer.
type Device interface {
	// GraphicsAPI reports which backend this device belongs to.
	GraphicsAPI() GraphicsAPI
	// QueryFeatureSupport reports whether the device implements an
	// optional capability. Pipelines that need an unsupported feature
	// fail to create with core.ErrFeatureUnsupported.
	QueryFeatureSupport(feature Feature) bool

	NewBuffer(desc BufferDesc) (Buffer, error)
	NewTexture(desc TextureDesc) (Texture, error)
	NewSampler(desc SamplerDesc) (Sampler, error)
	// NewShader wraps already compiled bytecode. Compilation happens
	// offline; the device only validates and uploads the blob.
	NewShader(desc ShaderDesc, bytecode []byte) (Shader, error)
	NewInputLayout(attributes []VertexAttributeDesc) (InputLayout, error)
	NewBindingLayout(desc BindingLayoutDesc) (BindingLayout, error)
	NewBindingSet(desc BindingSetDesc, layout BindingLayout) (BindingSet, error)
	NewFramebuffer(desc FramebufferDesc) (Framebuffer, error)
	// NewGraphicsPipeline builds a pipeline compatible with framebuffers
	// that share fb's attachment formats and sample count.
	NewGraphicsPipeline(desc GraphicsPipelineDesc, fb Framebuffer) (GraphicsPipeline, error)
	NewComputePipeline(desc ComputePipelineDesc) (ComputePipeline, error)
	NewMeshletPipeline(desc MeshletPipelineDesc, fb Framebuffer) (MeshletPipeline, error)

	NewCommandList() (CommandList, error)
	// ExecuteCommandList submits a closed command list to the queue.
	ExecuteCommandList(cl CommandList) error
	// WaitIdle blocks until the device has finished all submitted work.
	WaitIdle() error
	// Destroy releases the device. All resources must be destroyed first.
	Destroy()
}

// SwapChain presents rendered frames to a window surface.
type SwapChain interface {
	// BeginFrame acquires the next back buffer. It returns
	// core.ErrSwapchainOutOfDate when the surface changed and the chain
	// needs a Resize before rendering can continue.
	BeginFrame() error
	// CurrentFramebuffer returns the framebuffer wrapping the acquired
	// back buffer. Only valid between BeginFrame and Present.
	CurrentFramebuffer() Framebuffer
	// Present queues the acquired back buffer for display.
	Present() error
	// Resize recreates the chain for the new framebuffer size.
	Resize(width, height uint32) error
	Destroy()
}

// CommandList records work for later submission. Open and Close bracket
// a recording; recorded commands are only valid once Close returned nil
// and the list was handed to Device.ExecuteCommandList.
type CommandList interface {
	Open() error
	Close() error

	// WriteBuffer copies data into buffer at destOffset. Backends may
	// apply the write immediately instead of recording it.
	WriteBuffer(buffer Buffer, data []byte, destOffset int64) error
	// WriteTexture copies one mip level of pixel data into texture.
	// rowPitch is the byte stride between rows in data.
	WriteTexture(texture Texture, mipLevel uint32, data []byte, rowPitch uint32) error

	// State transitions. BeginTracking* declares the state a resource is
	// in when the list starts using it; Set*State transitions it;
	// SetPermanent*State transitions it one final time and promises it
	// will never change again, so later lists skip barriers for it.
	BeginTrackingBufferState(buffer Buffer, state ResourceState)
	SetBufferState(buffer Buffer, state ResourceState)
	SetPermanentBufferState(buffer Buffer, state ResourceState)
	BeginTrackingTextureState(texture Texture, state ResourceState)
	SetTextureState(texture Texture, state ResourceState)
	SetPermanentTextureState(texture Texture, state ResourceState)

	ClearColorAttachment(fb Framebuffer, attachmentIndex uint32, color Color)
	ClearDepthStencilAttachment(fb Framebuffer, depth float32, stencil uint8)
	ClearTextureFloat(texture Texture, color Color)

	SetGraphicsState(state GraphicsState)
	Draw(args DrawArguments)
	DrawIndexed(args DrawArguments)

	SetComputeState(state ComputeState)
	Dispatch(groupsX, groupsY, groupsZ uint32)

	SetMeshletState(state MeshletState)
	DispatchMesh(groupsX uint32)

	Destroy()
}
