package mesh

import (
	gomath "math"
)

// Placeholder builds the procedural capsule shown when an asset fails to
// load or its format is unsupported. It is already in the canonical frame:
// 1.8 units tall, standing at the origin.
func Placeholder() *TriMesh {
	const (
		segments = 24
		rings    = 8
		radius   = float32(0.3)
		height   = float32(1.8)
	)

	// Cylinder body spans [radius, height-radius]; hemispheres cap it.
	cylBottom := radius
	cylTop := height - radius

	m := &TriMesh{Name: "placeholder"}

	// Rings of vertices from bottom pole to top pole.
	addRing := func(y, r float32) {
		for s := 0; s <= segments; s++ {
			a := float64(s) / segments * 2 * gomath.Pi
			nx := float32(gomath.Cos(a))
			nz := float32(gomath.Sin(a))
			m.Vertices = append(m.Vertices, Vertex{
				Position: [3]float32{nx * r, y, nz * r},
				Normal:   [3]float32{nx, 0, nz},
				TexCoord: [2]float32{float32(s) / segments, y / height},
			})
		}
	}

	// Bottom hemisphere rings
	for i := 0; i <= rings; i++ {
		lat := float64(i) / rings * gomath.Pi / 2
		y := cylBottom - radius*float32(gomath.Cos(lat))
		r := radius * float32(gomath.Sin(lat))
		addRing(y, r)
	}
	// Top hemisphere rings
	for i := 0; i <= rings; i++ {
		lat := float64(i) / rings * gomath.Pi / 2
		y := cylTop + radius*float32(gomath.Sin(lat))
		r := radius * float32(gomath.Cos(lat))
		addRing(y, r)
	}

	ringCount := 2 * (rings + 1)
	stride := uint32(segments + 1)
	for ring := 0; ring < ringCount-1; ring++ {
		base := uint32(ring) * stride
		for s := uint32(0); s < segments; s++ {
			a := base + s
			b := base + s + 1
			c := a + stride
			d := b + stride
			m.Indices = append(m.Indices, a, c, b, b, c, d)
		}
	}

	m.Materials = []Material{DefaultMaterial()}
	m.Groups = []Group{{MaterialIdx: 0, StartIndex: 0, IndexCount: int32(len(m.Indices))}}
	m.RecomputeBounds()
	return m
}
