package raytracing

import (
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"golang.org/x/exp/constraints"
)

// IndexBuffer is the triangle list of a mesh, 16 or 32 bit.
type IndexBuffer interface {
	Count() int
	// Faces groups the indices by triangle; a trailing partial triangle is dropped.
	Faces() []math.UVec4
}

type Indices[T constraints.Unsigned] []T

func (ix Indices[T]) Count() int {
	return len(ix)
}

func (ix Indices[T]) Faces() []math.UVec4 {
	return extractFaces(ix)
}

func extractFaces[T constraints.Unsigned](indices []T) []math.UVec4 {
	triangles := len(indices) / 3
	faces := make([]math.UVec4, triangles)
	for i := 0; i < triangles; i++ {
		faces[i] = math.UVec4{
			X: uint32(indices[3*i]),
			Y: uint32(indices[3*i+1]),
			Z: uint32(indices[3*i+2]),
		}
	}
	return faces
}

/**
 * @brief The drawable data the acceleration build reads. Key identifies the
 * mesh across traversals; Normals and TexCoords are optional per vertex.
 */
type Mesh struct {
	Key       core.ObjectKey
	Vertices  []math.Vec3
	Normals   []math.Vec3
	TexCoords []math.Vec2
	Indices   IndexBuffer
}

func (m *Mesh) empty() bool {
	return m == nil || len(m.Vertices) == 0
}

// MeshAttribute is the per vertex shading data read by the hit shaders.
type MeshAttribute struct {
	Normal   math.Vec3
	TexCoord math.Vec2
}

var defaultNormal = math.Vec3{X: 0, Y: 1, Z: 0}

func meshAttributes(m *Mesh) []MeshAttribute {
	attributes := make([]MeshAttribute, len(m.Vertices))
	for i := range attributes {
		attributes[i].Normal = defaultNormal
		if i < len(m.Normals) {
			attributes[i].Normal = m.Normals[i]
		}
		if i < len(m.TexCoords) {
			attributes[i].TexCoord = m.TexCoords[i]
		}
	}
	return attributes
}
