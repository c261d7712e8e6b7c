// Package mesh provides triangle mesh types, normalization into the
// canonical rig frame, and ray intersection queries.
package mesh

import (
	"github.com/Faultbox/rigbench/pkg/math"
)

// Vertex represents a mesh vertex with position, normal, and texture coordinates.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Material describes how a surface group is shaded. Every material produced
// by the loaders is renderable and double-sided; loaders fill in a neutral
// base color when the source file has none.
type Material struct {
	Name      string
	BaseColor [4]float32
	DoubleSided bool
}

// Group is a range of indices sharing one material.
type Group struct {
	MaterialIdx int
	StartIndex  int32
	IndexCount  int32
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() [3]float32 {
	return [3]float32{
		b.Max[0] - b.Min[0],
		b.Max[1] - b.Min[1],
		b.Max[2] - b.Min[2],
	}
}

// Center returns the geometric center of the box.
func (b Bounds) Center() math.Vec3 {
	return math.Vec3{
		X: (b.Min[0] + b.Max[0]) / 2,
		Y: (b.Min[1] + b.Max[1]) / 2,
		Z: (b.Min[2] + b.Max[2]) / 2,
	}
}

// MaxDimension returns the largest axis extent.
func (b Bounds) MaxDimension() float32 {
	s := b.Size()
	m := s[0]
	if s[1] > m {
		m = s[1]
	}
	if s[2] > m {
		m = s[2]
	}
	return m
}

// TriMesh holds complete triangle mesh data ready for GPU upload.
type TriMesh struct {
	Name      string
	Vertices  []Vertex
	Indices   []uint32
	Materials []Material
	Groups    []Group
	Bounds    Bounds
}

// RecomputeBounds recalculates the bounding box from vertex positions.
func (m *TriMesh) RecomputeBounds() {
	if len(m.Vertices) == 0 {
		m.Bounds = Bounds{}
		return
	}

	b := Bounds{
		Min: m.Vertices[0].Position,
		Max: m.Vertices[0].Position,
	}
	for i := 1; i < len(m.Vertices); i++ {
		p := m.Vertices[i].Position
		for a := 0; a < 3; a++ {
			if p[a] < b.Min[a] {
				b.Min[a] = p[a]
			}
			if p[a] > b.Max[a] {
				b.Max[a] = p[a]
			}
		}
	}
	m.Bounds = b
}

// Clone returns a deep copy of the mesh. Bind operations work on clones so
// the viewer's mesh is never mutated by export.
func (m *TriMesh) Clone() *TriMesh {
	c := &TriMesh{
		Name:      m.Name,
		Vertices:  make([]Vertex, len(m.Vertices)),
		Indices:   make([]uint32, len(m.Indices)),
		Materials: make([]Material, len(m.Materials)),
		Groups:    make([]Group, len(m.Groups)),
		Bounds:    m.Bounds,
	}
	copy(c.Vertices, m.Vertices)
	copy(c.Indices, m.Indices)
	copy(c.Materials, m.Materials)
	copy(c.Groups, m.Groups)
	return c
}

// EnsureRenderable guarantees every group has a double-sided material with a
// visible base color, adding a default material where the source had none.
func (m *TriMesh) EnsureRenderable() {
	if len(m.Materials) == 0 {
		m.Materials = []Material{DefaultMaterial()}
	}
	for i := range m.Materials {
		mat := &m.Materials[i]
		mat.DoubleSided = true
		if mat.BaseColor == ([4]float32{}) {
			mat.BaseColor = DefaultMaterial().BaseColor
		}
	}
	if len(m.Groups) == 0 {
		m.Groups = []Group{{MaterialIdx: 0, StartIndex: 0, IndexCount: int32(len(m.Indices))}}
	}
	for i := range m.Groups {
		if m.Groups[i].MaterialIdx < 0 || m.Groups[i].MaterialIdx >= len(m.Materials) {
			m.Groups[i].MaterialIdx = 0
		}
	}
}

// DefaultMaterial returns the neutral gray material used when a source file
// declares no usable material.
func DefaultMaterial() Material {
	return Material{
		Name:        "default",
		BaseColor:   [4]float32{0.72, 0.72, 0.75, 1},
		DoubleSided: true,
	}
}
