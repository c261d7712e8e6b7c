package picking

import (
	"testing"

	"github.com/Faultbox/rigbench/pkg/math"
	"github.com/Faultbox/rigbench/pkg/mesh"
)

func approxVec3(a, b math.Vec3, eps float32) bool {
	return a.Distance(b) <= eps
}

func TestRayAt(t *testing.T) {
	r := Ray{Origin: math.Vec3{X: 1}, Direction: math.Vec3{Z: 1}}
	got := r.At(2.5)
	if !approxVec3(got, math.Vec3{X: 1, Z: 2.5}, 1e-6) {
		t.Errorf("At(2.5) = %v", got)
	}
}

func TestIntersectPlane(t *testing.T) {
	down := Ray{Origin: math.Vec3{Y: 5}, Direction: math.Vec3{Y: -1}}

	hit, ok := down.IntersectPlane(math.Vec3{}, math.Vec3{Y: 1})
	if !ok {
		t.Fatal("ray straight down must hit the ground plane")
	}
	if !approxVec3(hit, math.Vec3{}, 1e-6) {
		t.Errorf("hit = %v, want origin", hit)
	}

	// Parallel ray misses.
	side := Ray{Origin: math.Vec3{Y: 5}, Direction: math.Vec3{X: 1}}
	if _, ok := side.IntersectPlane(math.Vec3{}, math.Vec3{Y: 1}); ok {
		t.Error("parallel ray must not hit")
	}

	// Plane behind the origin misses.
	up := Ray{Origin: math.Vec3{Y: 5}, Direction: math.Vec3{Y: 1}}
	if _, ok := up.IntersectPlane(math.Vec3{}, math.Vec3{Y: 1}); ok {
		t.Error("intersection behind the origin must be rejected")
	}
}

func TestIntersectTriangle(t *testing.T) {
	v0 := math.Vec3{X: -1, Y: -1}
	v1 := math.Vec3{X: 1, Y: -1}
	v2 := math.Vec3{Y: 1}

	r := Ray{Origin: math.Vec3{Z: 5}, Direction: math.Vec3{Z: -1}}
	dist, hit := r.IntersectTriangle(v0, v1, v2)
	if !hit {
		t.Fatal("ray through the centroid must hit")
	}
	if dist < 4.99 || dist > 5.01 {
		t.Errorf("dist = %v, want 5", dist)
	}

	miss := Ray{Origin: math.Vec3{X: 10, Z: 5}, Direction: math.Vec3{Z: -1}}
	if _, hit := miss.IntersectTriangle(v0, v1, v2); hit {
		t.Error("ray outside the triangle must miss")
	}
}

func TestIntersectAABB(t *testing.T) {
	box := AABB{Min: [3]float32{-1, -1, -1}, Max: [3]float32{1, 1, 1}}

	tests := []struct {
		name string
		ray  Ray
		hit  bool
		dist float32
	}{
		{"head on", Ray{Origin: math.Vec3{Z: 5}, Direction: math.Vec3{Z: -1}}, true, 4},
		{"from inside", Ray{Direction: math.Vec3{Z: 1}}, true, 1},
		{"miss", Ray{Origin: math.Vec3{X: 5, Z: 5}, Direction: math.Vec3{Z: -1}}, false, 0},
		{"behind", Ray{Origin: math.Vec3{Z: 5}, Direction: math.Vec3{Z: 1}}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, hit := tt.ray.IntersectAABB(box)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if hit && (dist < tt.dist-1e-4 || dist > tt.dist+1e-4) {
				t.Errorf("dist = %v, want %v", dist, tt.dist)
			}
		})
	}
}

func TestIntersectMesh(t *testing.T) {
	// Two parallel triangles; the nearer one must win.
	m := &mesh.TriMesh{
		Vertices: []mesh.Vertex{
			{Position: [3]float32{-1, -1, 0}},
			{Position: [3]float32{1, -1, 0}},
			{Position: [3]float32{0, 1, 0}},
			{Position: [3]float32{-1, -1, 2}},
			{Position: [3]float32{1, -1, 2}},
			{Position: [3]float32{0, 1, 2}},
		},
		Indices: []uint32{0, 1, 2, 3, 4, 5},
	}
	m.RecomputeBounds()

	r := Ray{Origin: math.Vec3{Z: 5}, Direction: math.Vec3{Z: -1}}
	hit, ok := r.IntersectMesh(m)
	if !ok {
		t.Fatal("ray must hit the mesh")
	}
	if hit.Z < 1.99 || hit.Z > 2.01 {
		t.Errorf("hit.Z = %v, want nearest surface at 2", hit.Z)
	}

	miss := Ray{Origin: math.Vec3{X: 50, Z: 5}, Direction: math.Vec3{Z: -1}}
	if _, ok := miss.IntersectMesh(m); ok {
		t.Error("ray missing the bounding box must miss the mesh")
	}
}

func TestScreenToRayCenter(t *testing.T) {
	// Identity view-projection: NDC equals world. The center pixel maps to
	// the NDC origin, looking down +Z from the near plane.
	r := ScreenToRay(400, 300, 800, 600, math.Identity())

	if !approxVec3(r.Origin, math.Vec3{Z: -1}, 1e-5) {
		t.Errorf("origin = %v, want near plane center", r.Origin)
	}
	if !approxVec3(r.Direction, math.Vec3{Z: 1}, 1e-5) {
		t.Errorf("direction = %v, want +Z", r.Direction)
	}
}
