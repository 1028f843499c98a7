package raytracing

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
)

// AccelerationGeometry is the triangle data one bottom level structure is built from.
type AccelerationGeometry struct {
	Vertices []math.Vec3
	Indices  IndexBuffer
}

/** @brief One bottom level acceleration structure per distinct mesh. */
type BottomLevel struct {
	/** @brief Assigned on first sight of the mesh, in traversal order. */
	InstanceID uint32
	Geometries []AccelerationGeometry
}

// GeometryInstance places a bottom level structure in the scene.
type GeometryInstance struct {
	BottomLevel *BottomLevel
	ID          uint32
	Transform   math.Mat4
}

// TopLevel collects every instance met during the traversal.
type TopLevel struct {
	Instances []GeometryInstance
}

/**
 * @brief Walks the scene once, building a bottom level structure per mesh
 * and an instance per visit. Meshes reached through several paths share the
 * structure of their first visit, keyed by Mesh.Key.
 *
 * The per mesh buffers (attributes, faces, material ids) are appended in
 * instance id order, so the id of an instance indexes them in the shaders.
 */
type BuildTraversal struct {
	mu sync.Mutex

	TopLevel TopLevel

	cache          map[core.ObjectKey]*BottomLevel
	nextInstanceID uint32
	transforms     []math.Mat4

	meshAttributes [][]MeshAttribute
	faces          [][]math.UVec4
	materialIDs    [][]uint32
}

func NewBuildTraversal() *BuildTraversal {
	return &BuildTraversal{
		cache:      make(map[core.ObjectKey]*BottomLevel),
		transforms: []math.Mat4{math.NewMat4Identity()},
	}
}

// PushTransform enters a transform node; m is applied before the current transform.
func (bt *BuildTraversal) PushTransform(m math.Mat4) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.transforms = append(bt.transforms, bt.transforms[len(bt.transforms)-1].Mul(m))
}

func (bt *BuildTraversal) PopTransform() {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if len(bt.transforms) == 1 {
		core.LogWarn("transform stack underflow, pop ignored")
		return
	}
	bt.transforms = bt.transforms[:len(bt.transforms)-1]
}

// Apply visits a mesh under the current transform. It returns the bottom level
// structure the new instance uses, or nil when the mesh has nothing to build.
func (bt *BuildTraversal) Apply(mesh *Mesh) *BottomLevel {
	if mesh.empty() {
		return nil
	}
	if mesh.Key.IsNil() {
		core.LogWarn("mesh without key skipped by acceleration build")
		return nil
	}
	if mesh.Indices == nil || mesh.Indices.Count() < 3 {
		core.LogWarn("mesh %s has no triangles, skipped by acceleration build", mesh.Key)
		return nil
	}

	bt.mu.Lock()
	defer bt.mu.Unlock()

	blas, ok := bt.cache[mesh.Key]
	if !ok {
		blas = &BottomLevel{
			InstanceID: bt.nextInstanceID,
			Geometries: []AccelerationGeometry{{Vertices: mesh.Vertices, Indices: mesh.Indices}},
		}
		bt.cache[mesh.Key] = blas
		bt.addMeshBufferData(mesh)
		bt.nextInstanceID++
	}

	bt.TopLevel.Instances = append(bt.TopLevel.Instances, GeometryInstance{
		BottomLevel: blas,
		ID:          blas.InstanceID,
		Transform:   bt.transforms[len(bt.transforms)-1],
	})
	return blas
}

func (bt *BuildTraversal) addMeshBufferData(mesh *Mesh) {
	faces := mesh.Indices.Faces()
	// one material per scene for now
	materialIDs := make([]uint32, len(faces))

	bt.faces = append(bt.faces, faces)
	bt.materialIDs = append(bt.materialIDs, materialIDs)
	bt.meshAttributes = append(bt.meshAttributes, meshAttributes(mesh))
}

// BottomLevel returns the cached structure of the mesh with key.
func (bt *BuildTraversal) BottomLevel(key core.ObjectKey) (*BottomLevel, bool) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	blas, ok := bt.cache[key]
	return blas, ok
}

func (bt *BuildTraversal) NumBottomLevels() int {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return len(bt.cache)
}

func (bt *BuildTraversal) Faces() [][]math.UVec4 {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return append([][]math.UVec4(nil), bt.faces...)
}

func (bt *BuildTraversal) MeshAttributes() [][]MeshAttribute {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return append([][]MeshAttribute(nil), bt.meshAttributes...)
}

func (bt *BuildTraversal) MaterialIDs() [][]uint32 {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return append([][]uint32(nil), bt.materialIDs...)
}

// MeshDescriptors are the storage buffers the hit shaders read, one element per mesh.
type MeshDescriptors struct {
	Attributes  *vulkan.DescriptorBuffer
	Faces       *vulkan.DescriptorBuffer
	MaterialIDs *vulkan.DescriptorBuffer
}

func (md *MeshDescriptors) List() []vulkan.Descriptor {
	return []vulkan.Descriptor{md.Attributes, md.Faces, md.MaterialIDs}
}

func packBlocks[T any](blocks [][]T) ([]*metadata.Data, error) {
	out := make([]*metadata.Data, 0, len(blocks))
	for _, block := range blocks {
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, block); err != nil {
			core.LogError(err.Error())
			return nil, err
		}
		out = append(out, metadata.NewData(buf.Bytes()))
	}
	return out, nil
}

/**
 * @brief Packs the collected mesh data into three uncompiled storage buffer
 * descriptors at the given bindings. Attributes are tightly packed (normal,
 * texcoord), faces are uvec4 with w unused, material ids are uint.
 */
func (bt *BuildTraversal) CreateMeshBufferDescriptors(attributeIndex, facesIndex, materialIDsIndex uint32) (*MeshDescriptors, error) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	attributes, err := packBlocks(bt.meshAttributes)
	if err != nil {
		return nil, err
	}
	faces, err := packBlocks(bt.faces)
	if err != nil {
		return nil, err
	}
	materialIDs, err := packBlocks(bt.materialIDs)
	if err != nil {
		return nil, err
	}

	return &MeshDescriptors{
		Attributes:  vulkan.NewStorageBuffer(attributeIndex, attributes...),
		Faces:       vulkan.NewStorageBuffer(facesIndex, faces...),
		MaterialIDs: vulkan.NewStorageBuffer(materialIDsIndex, materialIDs...),
	}, nil
}
