package raytracing

import (
	"encoding/binary"
	"testing"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quad(indices IndexBuffer) *Mesh {
	return &Mesh{
		Key: core.NewObjectKey(),
		Vertices: []math.Vec3{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 1, Y: 1, Z: 0},
			{X: 0, Y: 1, Z: 0},
		},
		Indices: indices,
	}
}

func TestFacesUseStrideThree(t *testing.T) {
	expected := []math.UVec4{{X: 0, Y: 1, Z: 2}, {X: 2, Y: 3, Z: 0}}

	assert.Equal(t, expected, Indices[uint16]{0, 1, 2, 2, 3, 0}.Faces())
	assert.Equal(t, expected, Indices[uint32]{0, 1, 2, 2, 3, 0}.Faces())
	// trailing indices that do not form a triangle are dropped
	assert.Equal(t, expected, Indices[uint32]{0, 1, 2, 2, 3, 0, 1}.Faces())
	assert.Empty(t, Indices[uint16]{}.Faces())
}

func TestBottomLevelCacheIdentity(t *testing.T) {
	bt := NewBuildTraversal()
	a := quad(Indices[uint16]{0, 1, 2, 2, 3, 0})
	b := quad(Indices[uint32]{0, 1, 2})

	blasA := bt.Apply(a)
	blasB := bt.Apply(b)
	again := bt.Apply(a)

	require.NotNil(t, blasA)
	require.NotNil(t, blasB)
	assert.Same(t, blasA, again)
	assert.NotSame(t, blasA, blasB)
	assert.Equal(t, uint32(0), blasA.InstanceID)
	assert.Equal(t, uint32(1), blasB.InstanceID)
	assert.Equal(t, 2, bt.NumBottomLevels())

	cached, ok := bt.BottomLevel(a.Key)
	require.True(t, ok)
	assert.Same(t, blasA, cached)
	_, ok = bt.BottomLevel(core.NewObjectKey())
	assert.False(t, ok)

	require.Len(t, bt.TopLevel.Instances, 3)
	ids := []uint32{}
	for _, inst := range bt.TopLevel.Instances {
		ids = append(ids, inst.ID)
	}
	assert.Equal(t, []uint32{0, 1, 0}, ids)

	// mesh data is extracted once per distinct mesh
	assert.Len(t, bt.Faces(), 2)
	assert.Len(t, bt.MeshAttributes(), 2)
	assert.Equal(t, [][]uint32{{0, 0}, {0}}, bt.MaterialIDs())
}

func TestApplySkipsUnbuildableMeshes(t *testing.T) {
	bt := NewBuildTraversal()

	assert.Nil(t, bt.Apply(nil))
	assert.Nil(t, bt.Apply(&Mesh{Key: core.NewObjectKey()}))

	noKey := quad(Indices[uint16]{0, 1, 2})
	noKey.Key = core.NilObjectKey
	assert.Nil(t, bt.Apply(noKey))

	assert.Empty(t, bt.TopLevel.Instances)
	assert.Zero(t, bt.NumBottomLevels())

	// vertices without triangles would yield an empty faces block
	assert.Nil(t, bt.Apply(quad(nil)))
	assert.Nil(t, bt.Apply(quad(Indices[uint32]{0, 1})))
	assert.Empty(t, bt.Faces())

	// the next id is still the first one
	blas := bt.Apply(quad(Indices[uint16]{0, 1, 2}))
	require.NotNil(t, blas)
	assert.Equal(t, uint32(0), blas.InstanceID)
	assert.Equal(t, [][]math.UVec4{{{X: 0, Y: 1, Z: 2}}}, bt.Faces())
}

func TestMeshBufferDescriptorsCompile(t *testing.T) {
	bt := NewBuildTraversal()
	bt.Apply(quad(nil))
	bt.Apply(quad(Indices[uint32]{0, 1, 2}))

	md, err := bt.CreateMeshBufferDescriptors(0, 1, 2)
	require.NoError(t, err)
	for _, d := range md.List() {
		assert.Equal(t, uint32(1), d.NumDescriptors())
		for _, data := range d.(*vulkan.DescriptorBuffer).DataList {
			assert.NotZero(t, data.Size())
		}
	}
}

func TestInstanceTransforms(t *testing.T) {
	bt := NewBuildTraversal()
	mesh := quad(Indices[uint16]{0, 1, 2})

	bt.Apply(mesh)
	bt.PushTransform(math.NewMat4Translation(math.Vec3{X: 1}))
	bt.PushTransform(math.NewMat4Translation(math.Vec3{Y: 2}))
	bt.Apply(mesh)
	bt.PopTransform()
	bt.Apply(mesh)
	bt.PopTransform()
	bt.PopTransform()
	bt.Apply(mesh)

	require.Len(t, bt.TopLevel.Instances, 4)
	assert.Equal(t, math.NewMat4Identity(), bt.TopLevel.Instances[0].Transform)
	assert.Equal(t, math.NewMat4Translation(math.Vec3{X: 1, Y: 2}), bt.TopLevel.Instances[1].Transform)
	assert.Equal(t, math.NewMat4Translation(math.Vec3{X: 1}), bt.TopLevel.Instances[2].Transform)
	assert.Equal(t, math.NewMat4Identity(), bt.TopLevel.Instances[3].Transform)
}

func TestMeshAttributeDefaults(t *testing.T) {
	bt := NewBuildTraversal()
	mesh := quad(Indices[uint16]{0, 1, 2})
	mesh.Normals = []math.Vec3{{X: 0, Y: 0, Z: 1}}
	mesh.TexCoords = []math.Vec2{{X: 0.5, Y: 0.5}, {X: 1, Y: 1}}
	bt.Apply(mesh)

	attributes := bt.MeshAttributes()
	require.Len(t, attributes, 1)
	require.Len(t, attributes[0], 4)
	assert.Equal(t, MeshAttribute{Normal: math.Vec3{Z: 1}, TexCoord: math.Vec2{X: 0.5, Y: 0.5}}, attributes[0][0])
	assert.Equal(t, MeshAttribute{Normal: math.Vec3{Y: 1}, TexCoord: math.Vec2{X: 1, Y: 1}}, attributes[0][1])
	assert.Equal(t, MeshAttribute{Normal: math.Vec3{Y: 1}}, attributes[0][3])
}

func TestCreateMeshBufferDescriptors(t *testing.T) {
	bt := NewBuildTraversal()
	bt.Apply(quad(Indices[uint16]{0, 1, 2, 2, 3, 0}))
	bt.Apply(quad(Indices[uint32]{3, 2, 1}))

	md, err := bt.CreateMeshBufferDescriptors(0, 1, 2)
	require.NoError(t, err)

	for i, d := range md.List() {
		assert.Equal(t, uint32(i), d.Binding().Binding)
		assert.Equal(t, vulkan.DescriptorKindStorageBuffer, d.Binding().Kind)
		assert.False(t, d.IsCompiled())
		assert.Equal(t, uint32(2), d.NumDescriptors())
	}

	// 4 vertices of normal + texcoord
	assert.Equal(t, uint64(4*20), md.Attributes.DataList[0].Size())
	assert.Equal(t, uint64(2*16), md.Faces.DataList[0].Size())
	assert.Equal(t, uint64(4), md.MaterialIDs.DataList[1].Size())

	face := md.Faces.DataList[1].Bytes()
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(face[0:]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(face[4:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(face[8:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(face[12:]))
}
