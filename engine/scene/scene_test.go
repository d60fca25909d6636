package scene_test

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torus-gfx/torus/engine/math"
	"github.com/torus-gfx/torus/engine/rhi"
	"github.com/torus-gfx/torus/engine/rhi/null"
	"github.com/torus-gfx/torus/engine/scene"
)

func assertMat4Equal(t *testing.T, expected, actual math.Mat4) {
	t.Helper()
	for i := 0; i < 16; i++ {
		assert.InDelta(t, expected.Data[i], actual.Data[i], 1e-5, "element %d", i)
	}
}

func TestBufferGroupRangeAssignment(t *testing.T) {
	group := &scene.BufferGroup{}

	assert.False(t, group.HasAttribute(scene.VertexAttributePosition))

	group.SetVertexBufferRange(scene.VertexAttributePosition, 0, 288)
	group.SetVertexBufferRange(scene.VertexAttributeTexCoord1, 288, 192)

	assert.True(t, group.HasAttribute(scene.VertexAttributePosition))
	assert.True(t, group.HasAttribute(scene.VertexAttributeTexCoord1))
	assert.False(t, group.HasAttribute(scene.VertexAttributeNormal))

	r := group.VertexBufferRange(scene.VertexAttributeTexCoord1)
	assert.Equal(t, int64(288), r.ByteOffset)
	assert.Equal(t, int64(192), r.ByteSize)
}

func TestValidateRangesAcceptsPackedStreams(t *testing.T) {
	device := null.NewDevice()
	buffer, err := device.NewBuffer(rhi.BufferDesc{ByteSize: 480, IsVertexBuffer: true, DebugName: "VB"})
	require.NoError(t, err)

	group := &scene.BufferGroup{VertexBuffer: buffer}
	group.SetVertexBufferRange(scene.VertexAttributePosition, 0, 288)
	group.SetVertexBufferRange(scene.VertexAttributeTexCoord1, 288, 192)

	assert.NoError(t, group.ValidateRanges())
}

func TestValidateRangesRejectsOverflow(t *testing.T) {
	device := null.NewDevice()
	buffer, err := device.NewBuffer(rhi.BufferDesc{ByteSize: 100, IsVertexBuffer: true, DebugName: "VB"})
	require.NoError(t, err)

	group := &scene.BufferGroup{VertexBuffer: buffer}
	group.SetVertexBufferRange(scene.VertexAttributePosition, 64, 64)

	err = group.ValidateRanges()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflows the 100 byte vertex buffer")
}

func TestValidateRangesRejectsOverlap(t *testing.T) {
	group := &scene.BufferGroup{}
	group.SetVertexBufferRange(scene.VertexAttributePosition, 0, 100)
	group.SetVertexBufferRange(scene.VertexAttributeNormal, 50, 100)

	err := group.ValidateRanges()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position and normal ranges overlap")
}

func TestBufferGroupDestroyReleasesBuffers(t *testing.T) {
	device := null.NewDevice()
	vb, err := device.NewBuffer(rhi.BufferDesc{ByteSize: 64, IsVertexBuffer: true, DebugName: "VB"})
	require.NoError(t, err)
	ib, err := device.NewBuffer(rhi.BufferDesc{ByteSize: 64, IsIndexBuffer: true, DebugName: "IB"})
	require.NoError(t, err)

	group := &scene.BufferGroup{VertexBuffer: vb, IndexBuffer: ib}
	group.Destroy()
	assert.Nil(t, group.VertexBuffer)
	assert.Nil(t, group.IndexBuffer)

	// Destroying an already empty group is harmless.
	group.Destroy()
}

func TestMaterialDefaults(t *testing.T) {
	material := scene.NewMaterial("CubeMaterial")

	assert.Equal(t, "CubeMaterial", material.Name)
	assert.Equal(t, math.NewVec3One(), material.BaseOrDiffuseColor)
	assert.Equal(t, math.NewVec3Zero(), material.SpecularColor)
	assert.Equal(t, float32(16), material.Shininess)
	assert.Equal(t, float32(1), material.Opacity)
	assert.False(t, material.UseSpecularGlossModel)
}

func TestMaterialConstantBufferLayout(t *testing.T) {
	material := scene.NewMaterial("Layout")
	material.BaseOrDiffuseColor = math.NewVec3(0.25, 0.5, 0.75)
	material.Opacity = 0.5
	material.Shininess = 64

	data, err := material.FillConstantBuffer()
	require.NoError(t, err)
	require.Len(t, data, 48)

	readFloat := func(offset int) float32 {
		return gomath.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
	}
	assert.InDelta(t, 0.25, readFloat(0), 1e-6)
	assert.InDelta(t, 0.5, readFloat(12), 1e-6, "opacity packs after the base color")
	assert.InDelta(t, 64.0, readFloat(28), 1e-6, "shininess packs after the specular color")

	// Both flags stay clear by default.
	assert.Zero(t, binary.LittleEndian.Uint32(data[32:]))
	assert.Zero(t, binary.LittleEndian.Uint32(data[36:]))
}

func TestMaterialConstantBufferFlags(t *testing.T) {
	device := null.NewDevice()

	material := scene.NewMaterial("Flags")
	material.UseSpecularGlossModel = true
	material.EnableBaseOrDiffuseTexture = true

	// The texture flag needs both the toggle and an actual texture.
	data, err := material.FillConstantBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[32:]))
	assert.Zero(t, binary.LittleEndian.Uint32(data[36:]))

	texture, err := device.NewTexture(rhi.TextureDesc{Width: 4, Height: 4, Format: rhi.FormatSRGBA8Unorm, DebugName: "Base"})
	require.NoError(t, err)
	material.BaseOrDiffuseTexture = texture

	data, err = material.FillConstantBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[36:]))
}

func newCubeMesh() *scene.MeshInfo {
	return &scene.MeshInfo{
		Name:          "Cube",
		Buffers:       &scene.BufferGroup{},
		TotalIndices:  36,
		TotalVertices: 24,
		Geometries: []*scene.MeshGeometry{
			{Material: scene.NewMaterial("CubeMaterial"), NumIndices: 36, NumVertices: 24},
		},
	}
}

func TestSceneGraphWorldTransforms(t *testing.T) {
	graph := scene.NewSceneGraph()
	root := scene.NewSceneGraphNode()
	root.SetName("Root")
	root.SetTransform(math.NewMat4Translation(math.NewVec3(10, 0, 0)))
	graph.SetRootNode(root)

	instance := scene.NewMeshInstance(newCubeMesh())
	assert.Nil(t, instance.Node())

	child := graph.AttachLeafNode(root, instance)
	child.SetTransform(math.NewMat4Translation(math.NewVec3(0, 5, 0)))
	assert.Same(t, child, instance.Node())
	assert.Equal(t, "Cube", child.Name())
	assert.Same(t, root, child.Parent())

	graph.Refresh()

	assertMat4Equal(t, math.NewMat4Translation(math.NewVec3(10, 0, 0)), root.WorldTransform())
	assertMat4Equal(t, math.NewMat4Translation(math.NewVec3(10, 5, 0)), child.WorldTransform())

	// Moving the root and refreshing rolls down to the children.
	root.SetTransform(math.NewMat4Translation(math.NewVec3(-1, 0, 0)))
	graph.Refresh()
	assertMat4Equal(t, math.NewMat4Translation(math.NewVec3(-1, 5, 0)), child.WorldTransform())
}

func TestSceneGraphCollectsLights(t *testing.T) {
	graph := scene.NewSceneGraph()
	root := scene.NewSceneGraphNode()
	graph.SetRootNode(root)

	assert.Empty(t, graph.Lights())

	sun := scene.NewDirectionalLight()
	node := graph.AttachLeafNode(root, sun)
	sun.SetName("Sun")
	assert.Equal(t, "Sun", node.Name(), "renaming the leaf renames its node")

	graph.Refresh()
	require.Len(t, graph.Lights(), 1)
	assert.Same(t, sun, graph.Lights()[0].(*scene.DirectionalLight))

	// A second refresh does not duplicate the light.
	graph.Refresh()
	assert.Len(t, graph.Lights(), 1)
}

func TestDirectionalLightDefaultsAndDirection(t *testing.T) {
	light := scene.NewDirectionalLight()

	assert.Equal(t, math.NewVec3(0, -1, 0), light.Direction())
	assert.Equal(t, float32(0.53), light.AngularSize)
	assert.Equal(t, float32(1), light.Irradiance)
	assert.Equal(t, math.NewVec3One(), light.Color)

	light.SetDirection(math.NewVec3(0, -2, 0))
	assert.InDelta(t, 1.0, light.Direction().Length(), 1e-5, "directions are stored normalized")
	assert.InDelta(t, -1.0, light.Direction().Y, 1e-5)
}
