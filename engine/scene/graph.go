// Package scene holds the mesh, material and scene graph types the
// render passes consume. The types are plain data with a few helpers;
// assembling them into a scene is the application's job.
package scene

import (
	"strings"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/math"
)

// Leaf is the payload a scene graph node carries: a mesh instance or a
// light.
type Leaf interface {
	Name() string
	SetName(name string)
	attachNode(node *SceneGraphNode)
}

// SceneGraphNode is one node of the tree. Transforms are local to the
// parent; the world transform is a cache filled in by Refresh.
type SceneGraphNode struct {
	name     string
	parent   *SceneGraphNode
	children []*SceneGraphNode
	leaf     Leaf

	localTransform math.Mat4
	worldTransform math.Mat4
}

func NewSceneGraphNode() *SceneGraphNode {
	return &SceneGraphNode{
		localTransform: math.NewMat4Identity(),
		worldTransform: math.NewMat4Identity(),
	}
}

func (n *SceneGraphNode) Name() string { return n.name }

func (n *SceneGraphNode) SetName(name string) { n.name = name }

// SetLeaf attaches the payload and points it back at this node.
func (n *SceneGraphNode) SetLeaf(leaf Leaf) {
	n.leaf = leaf
	leaf.attachNode(n)
}

func (n *SceneGraphNode) Leaf() Leaf { return n.leaf }

func (n *SceneGraphNode) Parent() *SceneGraphNode { return n.parent }

func (n *SceneGraphNode) Children() []*SceneGraphNode { return n.children }

// SetTransform replaces the local transform. The world transform stays
// stale until the owning graph refreshes.
func (n *SceneGraphNode) SetTransform(local math.Mat4) { n.localTransform = local }

func (n *SceneGraphNode) Transform() math.Mat4 { return n.localTransform }

// WorldTransform returns the cached world transform, valid after the
// owning graph's last Refresh.
func (n *SceneGraphNode) WorldTransform() math.Mat4 { return n.worldTransform }

// SceneGraph owns a tree of nodes with exactly one root. After any
// structural or transform change, Refresh must run before world
// transforms or the light list are read again.
type SceneGraph struct {
	root   *SceneGraphNode
	lights []Light
}

func NewSceneGraph() *SceneGraph {
	return &SceneGraph{}
}

// SetRootNode installs the root, replacing any previous one.
func (sg *SceneGraph) SetRootNode(root *SceneGraphNode) {
	sg.root = root
}

func (sg *SceneGraph) RootNode() *SceneGraphNode { return sg.root }

// AttachLeafNode creates a child node under parent carrying the leaf
// and returns it.
func (sg *SceneGraph) AttachLeafNode(parent *SceneGraphNode, leaf Leaf) *SceneGraphNode {
	node := NewSceneGraphNode()
	node.SetLeaf(leaf)
	node.name = leaf.Name()
	node.parent = parent
	parent.children = append(parent.children, node)
	return node
}

// Refresh recomputes the cached world transforms and rebuilds the
// flattened light list.
func (sg *SceneGraph) Refresh() {
	sg.lights = sg.lights[:0]
	if sg.root == nil {
		return
	}
	sg.refreshNode(sg.root, math.NewMat4Identity())
}

func (sg *SceneGraph) refreshNode(node *SceneGraphNode, parentWorld math.Mat4) {
	node.worldTransform = parentWorld.Mul(node.localTransform)
	if light, ok := node.leaf.(Light); ok {
		sg.lights = append(sg.lights, light)
	}
	for _, child := range node.children {
		sg.refreshNode(child, node.worldTransform)
	}
}

// Lights returns the lights collected by the last Refresh.
func (sg *SceneGraph) Lights() []Light { return sg.lights }

// PrintGraph logs the tree, one indented line per node.
func (sg *SceneGraph) PrintGraph() {
	if sg.root == nil {
		core.LogInfo("scene graph is empty")
		return
	}
	printNode(sg.root, 0)
}

func printNode(node *SceneGraphNode, depth int) {
	indent := strings.Repeat("  ", depth)
	name := node.Name()
	if name == "" {
		name = "<unnamed>"
	}

	switch leaf := node.Leaf().(type) {
	case *MeshInstance:
		core.LogInfo("%s%s [mesh %s]", indent, name, leaf.Mesh().Name)
	case *DirectionalLight:
		core.LogInfo("%s%s [directional light]", indent, name)
	default:
		core.LogInfo("%s%s", indent, name)
	}

	for _, child := range node.Children() {
		printNode(child, depth+1)
	}
}
