package scene

import "github.com/torus-gfx/torus/engine/math"

// MeshGeometry is one drawable span of a mesh with its material.
type MeshGeometry struct {
	Material    *Material
	NumIndices  uint32
	NumVertices uint32
}

// MeshInfo aggregates the geometries of one mesh and the buffers that
// back them.
type MeshInfo struct {
	Name              string
	Buffers           *BufferGroup
	ObjectSpaceBounds math.Box3
	TotalIndices      uint32
	TotalVertices     uint32
	Geometries        []*MeshGeometry
}

// MeshInstance places a mesh in the scene graph as a leaf.
type MeshInstance struct {
	name string
	mesh *MeshInfo
	node *SceneGraphNode
}

func NewMeshInstance(mesh *MeshInfo) *MeshInstance {
	return &MeshInstance{name: mesh.Name, mesh: mesh}
}

func (mi *MeshInstance) Mesh() *MeshInfo { return mi.mesh }

// Node returns the scene graph node carrying the instance, nil while
// detached.
func (mi *MeshInstance) Node() *SceneGraphNode { return mi.node }

func (mi *MeshInstance) Name() string { return mi.name }

func (mi *MeshInstance) SetName(name string) {
	mi.name = name
	if mi.node != nil {
		mi.node.SetName(name)
	}
}

func (mi *MeshInstance) attachNode(node *SceneGraphNode) { mi.node = node }
