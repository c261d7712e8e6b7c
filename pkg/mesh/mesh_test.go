package mesh

import (
	"testing"
)

func boxMesh(w, h, d float32) *TriMesh {
	m := &TriMesh{
		Vertices: []Vertex{
			{Position: [3]float32{0, 0, 0}},
			{Position: [3]float32{w, 0, 0}},
			{Position: [3]float32{w, h, 0}},
			{Position: [3]float32{0, h, d}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
	m.RecomputeBounds()
	return m
}

func TestRecomputeBounds(t *testing.T) {
	m := boxMesh(2, 4, 1)

	if m.Bounds.Min != [3]float32{0, 0, 0} {
		t.Errorf("Min = %v", m.Bounds.Min)
	}
	if m.Bounds.Max != [3]float32{2, 4, 1} {
		t.Errorf("Max = %v", m.Bounds.Max)
	}
	if got := m.Bounds.MaxDimension(); got != 4 {
		t.Errorf("MaxDimension = %v, want 4", got)
	}
	c := m.Bounds.Center()
	if c.X != 1 || c.Y != 2 {
		t.Errorf("Center = %v", c)
	}
}

func TestNormalize(t *testing.T) {
	m := boxMesh(1, 9, 1)
	Normalize(m, NormalizeOptions{TargetHeight: 1.8, GroundY: 0})

	size := m.Bounds.Size()
	if diff := size[1] - 1.8; diff < -1e-5 || diff > 1e-5 {
		t.Errorf("height = %v, want 1.8", size[1])
	}
	if m.Bounds.Min[1] < -1e-5 || m.Bounds.Min[1] > 1e-5 {
		t.Errorf("bottom = %v, want resting on ground", m.Bounds.Min[1])
	}
	c := m.Bounds.Center()
	if c.X < -1e-5 || c.X > 1e-5 || c.Z < -1e-5 || c.Z > 1e-5 {
		t.Errorf("center = %v, want X=0 Z=0", c)
	}
}

func TestNormalizeDegenerateHeight(t *testing.T) {
	// Flat geometry must not divide by zero; it just recenters.
	m := &TriMesh{
		Vertices: []Vertex{
			{Position: [3]float32{0, 1, 0}},
			{Position: [3]float32{2, 1, 0}},
			{Position: [3]float32{2, 1, 2}},
		},
		Indices: []uint32{0, 1, 2},
	}
	Normalize(m, DefaultNormalizeOptions())

	if m.Bounds.Min[1] != 0 || m.Bounds.Max[1] != 0 {
		t.Errorf("flat mesh Y bounds = %v..%v, want 0..0", m.Bounds.Min[1], m.Bounds.Max[1])
	}
}

func TestEnsureRenderable(t *testing.T) {
	m := boxMesh(1, 1, 1)
	m.Groups = []Group{{MaterialIdx: 7, StartIndex: 0, IndexCount: 6}}
	m.EnsureRenderable()

	if len(m.Materials) != 1 {
		t.Fatalf("material count = %d, want default added", len(m.Materials))
	}
	if !m.Materials[0].DoubleSided {
		t.Error("materials must be forced double-sided")
	}
	if m.Materials[0].BaseColor == ([4]float32{}) {
		t.Error("material must have a visible base color")
	}
	if m.Groups[0].MaterialIdx != 0 {
		t.Errorf("out-of-range material index = %d, want clamped to 0", m.Groups[0].MaterialIdx)
	}
}

func TestEnsureRenderableAddsGroup(t *testing.T) {
	m := boxMesh(1, 1, 1)
	m.EnsureRenderable()

	if len(m.Groups) != 1 {
		t.Fatalf("group count = %d, want 1", len(m.Groups))
	}
	if m.Groups[0].IndexCount != int32(len(m.Indices)) {
		t.Errorf("group covers %d indices, want %d", m.Groups[0].IndexCount, len(m.Indices))
	}
}

func TestClone(t *testing.T) {
	m := boxMesh(1, 2, 3)
	m.EnsureRenderable()

	c := m.Clone()
	c.Vertices[0].Position[0] = 99
	c.Indices[0] = 3
	c.Materials[0].Name = "changed"

	if m.Vertices[0].Position[0] == 99 {
		t.Error("clone shares vertex storage with the original")
	}
	if m.Indices[0] == 3 {
		t.Error("clone shares index storage with the original")
	}
	if m.Materials[0].Name == "changed" {
		t.Error("clone shares material storage with the original")
	}
}

func TestPlaceholder(t *testing.T) {
	m := Placeholder()

	if len(m.Indices) == 0 || len(m.Indices)%3 != 0 {
		t.Fatalf("placeholder has %d indices", len(m.Indices))
	}
	size := m.Bounds.Size()
	if diff := size[1] - 1.8; diff < -0.01 || diff > 0.01 {
		t.Errorf("placeholder height = %v, want 1.8", size[1])
	}
	if m.Bounds.Min[1] < -0.01 {
		t.Errorf("placeholder sinks below ground: minY = %v", m.Bounds.Min[1])
	}
	if len(m.Materials) == 0 || len(m.Groups) == 0 {
		t.Error("placeholder must be renderable as-is")
	}
}
