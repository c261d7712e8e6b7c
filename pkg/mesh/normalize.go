package mesh

// NormalizeOptions control how a loaded mesh is fitted into the canonical
// rig frame.
type NormalizeOptions struct {
	// TargetHeight is the bounding-box height after uniform scaling.
	TargetHeight float32
	// GroundY is the Y level the mesh bottom rests on after normalization.
	GroundY float32
}

// DefaultNormalizeOptions returns the canonical frame used by the editor:
// a 1.8 unit tall character standing on Y=0.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{TargetHeight: 1.8, GroundY: 0}
}

// Normalize scales the mesh uniformly so its bounding-box height matches
// opts.TargetHeight, centers it at X=0, Z=0, and rests its minimum Y on
// opts.GroundY. The bounding box is recomputed afterwards so callers can
// rely on it reflecting the normalized geometry.
func Normalize(m *TriMesh, opts NormalizeOptions) {
	m.RecomputeBounds()

	size := m.Bounds.Size()
	scale := float32(1)
	if size[1] > 0 && opts.TargetHeight > 0 {
		scale = opts.TargetHeight / size[1]
	}

	center := m.Bounds.Center()
	minY := m.Bounds.Min[1]

	for i := range m.Vertices {
		p := &m.Vertices[i].Position
		p[0] = (p[0] - center.X) * scale
		p[1] = (p[1] - minY) * scale + opts.GroundY
		p[2] = (p[2] - center.Z) * scale
	}

	m.RecomputeBounds()
}
