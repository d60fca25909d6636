package render

import (
	"github.com/torus-gfx/torus/engine/rhi"
	"github.com/torus-gfx/torus/engine/scene"
)

/**
 * @brief One draw call worth of scene data, flattened so a pass can
 * bind buffers and material state without walking the graph.
 */
type DrawItem struct {
	Instance *scene.MeshInstance
	Mesh     *scene.MeshInfo
	Geometry *scene.MeshGeometry
	Material *scene.Material
	Buffers  *scene.BufferGroup

	DistanceToCamera float32
	CullMode         rhi.CullMode
}

// NewDrawItem flattens a mesh instance into a draw item for its first
// geometry.
func NewDrawItem(instance *scene.MeshInstance) DrawItem {
	mesh := instance.Mesh()
	geometry := mesh.Geometries[0]
	return DrawItem{
		Instance: instance,
		Mesh:     mesh,
		Geometry: geometry,
		Material: geometry.Material,
		Buffers:  mesh.Buffers,
		CullMode: rhi.CullBack,
	}
}

// DrawStrategy decides the order in which a pass draws its items.
type DrawStrategy interface {
	// Next returns the next item to draw, or nil when exhausted.
	Next() *DrawItem
}

// PassthroughDrawStrategy hands items over in the order they were set,
// once each.
type PassthroughDrawStrategy struct {
	items []DrawItem
	next  int
}

// SetData replaces the item list and rewinds the strategy.
func (s *PassthroughDrawStrategy) SetData(items []DrawItem) {
	s.items = items
	s.next = 0
}

func (s *PassthroughDrawStrategy) Next() *DrawItem {
	if s.next >= len(s.items) {
		return nil
	}
	item := &s.items[s.next]
	s.next++
	return item
}
