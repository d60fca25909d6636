package scene

import (
	"fmt"

	"github.com/torus-gfx/torus/engine/rhi"
)

/** @brief A vertex data stream a mesh can carry. Transform is special:
 * it advances per instance and lives in the instance buffer. */
type VertexAttribute uint8

const (
	VertexAttributePosition VertexAttribute = iota
	VertexAttributeTexCoord1
	VertexAttributeNormal
	VertexAttributeTangent
	VertexAttributeTransform

	vertexAttributeCount
)

func (a VertexAttribute) String() string {
	switch a {
	case VertexAttributePosition:
		return "position"
	case VertexAttributeTexCoord1:
		return "texcoord1"
	case VertexAttributeNormal:
		return "normal"
	case VertexAttributeTangent:
		return "tangent"
	case VertexAttributeTransform:
		return "transform"
	}
	return "unknown"
}

// BufferGroup packs the vertex streams of a mesh into one device
// buffer, each stream in its own byte range, alongside the index and
// instance buffers.
type BufferGroup struct {
	VertexBuffer   rhi.Buffer
	IndexBuffer    rhi.Buffer
	InstanceBuffer rhi.Buffer

	ranges   [vertexAttributeCount]rhi.BufferRange
	assigned [vertexAttributeCount]bool
}

// SetVertexBufferRange assigns the byte range one attribute stream
// occupies inside VertexBuffer.
func (g *BufferGroup) SetVertexBufferRange(attribute VertexAttribute, byteOffset, byteSize int64) {
	g.ranges[attribute] = rhi.BufferRange{ByteOffset: byteOffset, ByteSize: byteSize}
	g.assigned[attribute] = true
}

// VertexBufferRange returns the byte range of one attribute stream.
func (g *BufferGroup) VertexBufferRange(attribute VertexAttribute) rhi.BufferRange {
	return g.ranges[attribute]
}

// HasAttribute reports whether a range was assigned for the attribute.
func (g *BufferGroup) HasAttribute(attribute VertexAttribute) bool {
	return g.assigned[attribute]
}

// ValidateRanges checks that the assigned streams do not overlap each
// other and stay inside the vertex buffer.
func (g *BufferGroup) ValidateRanges() error {
	for a := VertexAttribute(0); a < vertexAttributeCount; a++ {
		if !g.assigned[a] {
			continue
		}
		ra := g.ranges[a]
		if g.VertexBuffer != nil && ra.ByteOffset+ra.ByteSize > g.VertexBuffer.Desc().ByteSize {
			return fmt.Errorf(
				"%s range [%d..%d) overflows the %d byte vertex buffer",
				a, ra.ByteOffset, ra.ByteOffset+ra.ByteSize, g.VertexBuffer.Desc().ByteSize,
			)
		}
		for b := a + 1; b < vertexAttributeCount; b++ {
			if !g.assigned[b] {
				continue
			}
			rb := g.ranges[b]
			if ra.ByteOffset < rb.ByteOffset+rb.ByteSize && rb.ByteOffset < ra.ByteOffset+ra.ByteSize {
				return fmt.Errorf("%s and %s ranges overlap", a, b)
			}
		}
	}
	return nil
}

// Destroy releases the device buffers.
func (g *BufferGroup) Destroy() {
	if g.VertexBuffer != nil {
		g.VertexBuffer.Destroy()
		g.VertexBuffer = nil
	}
	if g.IndexBuffer != nil {
		g.IndexBuffer.Destroy()
		g.IndexBuffer = nil
	}
	if g.InstanceBuffer != nil {
		g.InstanceBuffer.Destroy()
		g.InstanceBuffer = nil
	}
}
