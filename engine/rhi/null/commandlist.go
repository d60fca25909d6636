package null

import (
	"fmt"

	"github.com/torus-gfx/torus/engine/rhi"
)

// Op enumerates the kinds of commands a command list records.
type Op uint8

const (
	OpWriteBuffer Op = iota
	OpWriteTexture
	OpBufferState
	OpTextureState
	OpClearColor
	OpClearDepthStencil
	OpClearTexture
	OpGraphicsState
	OpDraw
	OpDrawIndexed
	OpComputeState
	OpDispatch
	OpMeshletState
	OpDispatchMesh
)

// Command is one recorded command list entry. Only the fields relevant
// to Op are populated.
type Command struct {
	Op Op

	Buffer    *Buffer
	Texture   *Texture
	State     rhi.ResourceState
	Permanent bool

	Offset   int64
	ByteSize int64
	MipLevel uint32

	Framebuffer     rhi.Framebuffer
	AttachmentIndex uint32
	Color           rhi.Color
	Depth           float32
	Stencil         uint8

	Graphics rhi.GraphicsState
	Compute  rhi.ComputeState
	Meshlets rhi.MeshletState
	Draw     rhi.DrawArguments
	Groups   [3]uint32
}

// CommandList implements rhi.CommandList by recording every call.
type CommandList struct {
	device   *Device
	open     bool
	commands []Command
}

var _ rhi.CommandList = (*CommandList)(nil)

func (cl *CommandList) Open() error {
	if cl.open {
		return fmt.Errorf("null: command list opened twice")
	}
	// A new recording starts fresh, matching the real backends.
	cl.commands = cl.commands[:0]
	cl.open = true
	return nil
}

func (cl *CommandList) Close() error {
	if !cl.open {
		return fmt.Errorf("null: command list closed while not open")
	}
	cl.open = false
	return nil
}

// Commands returns the recorded commands in order.
func (cl *CommandList) Commands() []Command {
	return cl.commands
}

func (cl *CommandList) record(c Command) {
	cl.commands = append(cl.commands, c)
}

func (cl *CommandList) WriteBuffer(buffer rhi.Buffer, data []byte, destOffset int64) error {
	nb, ok := buffer.(*Buffer)
	if !ok {
		return fmt.Errorf("null: foreign buffer %T", buffer)
	}
	if nb.destroyed {
		return fmt.Errorf("null: write to destroyed buffer %q", nb.desc.DebugName)
	}
	if destOffset+int64(len(data)) > nb.desc.ByteSize {
		return fmt.Errorf("null: write of %d bytes at %d overflows buffer %q (%d bytes)",
			len(data), destOffset, nb.desc.DebugName, nb.desc.ByteSize)
	}
	copy(nb.Data[destOffset:], data)
	cl.record(Command{Op: OpWriteBuffer, Buffer: nb, Offset: destOffset, ByteSize: int64(len(data))})
	return nil
}

func (cl *CommandList) WriteTexture(texture rhi.Texture, mipLevel uint32, data []byte, rowPitch uint32) error {
	nt, ok := texture.(*Texture)
	if !ok {
		return fmt.Errorf("null: foreign texture %T", texture)
	}
	if nt.destroyed {
		return fmt.Errorf("null: write to destroyed texture %q", nt.desc.DebugName)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	nt.Mips[mipLevel] = stored
	cl.record(Command{Op: OpWriteTexture, Texture: nt, MipLevel: mipLevel, ByteSize: int64(len(data))})
	return nil
}

func (cl *CommandList) BeginTrackingBufferState(buffer rhi.Buffer, state rhi.ResourceState) {
	if nb, ok := buffer.(*Buffer); ok {
		nb.state = state
	}
}

func (cl *CommandList) SetBufferState(buffer rhi.Buffer, state rhi.ResourceState) {
	if nb, ok := buffer.(*Buffer); ok && !nb.permanent {
		nb.state = state
		cl.record(Command{Op: OpBufferState, Buffer: nb, State: state})
	}
}

func (cl *CommandList) SetPermanentBufferState(buffer rhi.Buffer, state rhi.ResourceState) {
	if nb, ok := buffer.(*Buffer); ok {
		nb.state = state
		nb.permanent = true
		cl.record(Command{Op: OpBufferState, Buffer: nb, State: state, Permanent: true})
	}
}

func (cl *CommandList) BeginTrackingTextureState(texture rhi.Texture, state rhi.ResourceState) {
	if nt, ok := texture.(*Texture); ok {
		nt.state = state
	}
}

func (cl *CommandList) SetTextureState(texture rhi.Texture, state rhi.ResourceState) {
	if nt, ok := texture.(*Texture); ok && !nt.permanent {
		nt.state = state
		cl.record(Command{Op: OpTextureState, Texture: nt, State: state})
	}
}

func (cl *CommandList) SetPermanentTextureState(texture rhi.Texture, state rhi.ResourceState) {
	if nt, ok := texture.(*Texture); ok {
		nt.state = state
		nt.permanent = true
		cl.record(Command{Op: OpTextureState, Texture: nt, State: state, Permanent: true})
	}
}

func (cl *CommandList) ClearColorAttachment(fb rhi.Framebuffer, attachmentIndex uint32, color rhi.Color) {
	cl.record(Command{Op: OpClearColor, Framebuffer: fb, AttachmentIndex: attachmentIndex, Color: color})
}

func (cl *CommandList) ClearDepthStencilAttachment(fb rhi.Framebuffer, depth float32, stencil uint8) {
	cl.record(Command{Op: OpClearDepthStencil, Framebuffer: fb, Depth: depth, Stencil: stencil})
}

func (cl *CommandList) ClearTextureFloat(texture rhi.Texture, color rhi.Color) {
	nt, _ := texture.(*Texture)
	cl.record(Command{Op: OpClearTexture, Texture: nt, Color: color})
}

func (cl *CommandList) SetGraphicsState(state rhi.GraphicsState) {
	cl.record(Command{Op: OpGraphicsState, Graphics: copyGraphicsState(state)})
}

func (cl *CommandList) Draw(args rhi.DrawArguments) {
	cl.record(Command{Op: OpDraw, Draw: args})
}

func (cl *CommandList) DrawIndexed(args rhi.DrawArguments) {
	cl.record(Command{Op: OpDrawIndexed, Draw: args})
}

func (cl *CommandList) SetComputeState(state rhi.ComputeState) {
	cl.record(Command{Op: OpComputeState, Compute: state})
}

func (cl *CommandList) Dispatch(groupsX, groupsY, groupsZ uint32) {
	cl.record(Command{Op: OpDispatch, Groups: [3]uint32{groupsX, groupsY, groupsZ}})
}

func (cl *CommandList) SetMeshletState(state rhi.MeshletState) {
	cl.record(Command{Op: OpMeshletState, Meshlets: state})
}

func (cl *CommandList) DispatchMesh(groupsX uint32) {
	cl.record(Command{Op: OpDispatchMesh, Groups: [3]uint32{groupsX, 1, 1}})
}

func (cl *CommandList) Destroy() {
	cl.commands = nil
}

// copyGraphicsState deep copies the slices so later mutation by the
// caller does not change what was recorded.
func copyGraphicsState(state rhi.GraphicsState) rhi.GraphicsState {
	out := state
	out.Viewports = append([]rhi.Viewport(nil), state.Viewports...)
	out.BindingSets = append([]rhi.BindingSet(nil), state.BindingSets...)
	out.VertexBuffers = append([]rhi.VertexBufferBinding(nil), state.VertexBuffers...)
	return out
}
