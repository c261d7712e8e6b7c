// Package picking provides ray casting queries used by the marker editor.
package picking

import (
	gomath "math"

	"github.com/Faultbox/rigbench/pkg/mesh"
	"github.com/Faultbox/rigbench/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates, viewportW/H are viewport dimensions.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj math.Mat4) Ray {
	// Convert screen coords to normalized device coords (-1 to 1)
	ndcX := (2.0*screenX/viewportW - 1.0)
	ndcY := (1.0 - 2.0*screenY/viewportH) // Flip Y

	// Unproject near and far points
	nearPoint := math.Vec4{ndcX, ndcY, -1.0, 1.0}
	farPoint := math.Vec4{ndcX, ndcY, 1.0, 1.0}

	nearWorld := invViewProj.MulVec4(nearPoint)
	farWorld := invViewProj.MulVec4(farPoint)

	// Perspective divide
	if nearWorld[3] != 0 {
		nearWorld[0] /= nearWorld[3]
		nearWorld[1] /= nearWorld[3]
		nearWorld[2] /= nearWorld[3]
	}
	if farWorld[3] != 0 {
		farWorld[0] /= farWorld[3]
		farWorld[1] /= farWorld[3]
		farWorld[2] /= farWorld[3]
	}

	origin := math.Vec3{X: nearWorld[0], Y: nearWorld[1], Z: nearWorld[2]}
	dir := math.Vec3{
		X: farWorld[0] - nearWorld[0],
		Y: farWorld[1] - nearWorld[1],
		Z: farWorld[2] - nearWorld[2],
	}.Normalize()

	return Ray{Origin: origin, Direction: dir}
}

// IntersectPlane intersects the ray with the plane through point with the
// given normal. Returns the hit point and whether the intersection is valid
// (in front of the ray origin, ray not parallel to the plane).
func (r Ray) IntersectPlane(point, normal math.Vec3) (math.Vec3, bool) {
	denom := r.Direction.Dot(normal)
	if gomath.Abs(float64(denom)) < 1e-6 {
		return math.Vec3{}, false // Ray parallel to plane
	}

	t := point.Sub(r.Origin).Dot(normal) / denom
	if t < 0 {
		return math.Vec3{}, false // Intersection behind ray origin
	}
	return r.At(t), true
}

// IntersectTriangle tests the ray against a single triangle using the
// Moller-Trumbore algorithm. Returns the distance along the ray and whether
// the triangle was hit.
func (r Ray) IntersectTriangle(v0, v1, v2 math.Vec3) (float32, bool) {
	const epsilon = 1e-7

	e1 := v1.Sub(v0)
	e2 := v2.Sub(v0)

	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if gomath.Abs(float64(det)) < epsilon {
		return 0, false // Ray parallel to triangle plane
	}
	invDet := 1 / det

	s := r.Origin.Sub(v0)
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(e1)
	v := r.Direction.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := e2.Dot(q) * invDet
	if t < epsilon {
		return 0, false
	}
	return t, true
}

// IntersectMesh finds the nearest intersection of the ray with the mesh
// surface. Returns the hit point and whether any triangle was hit.
func (r Ray) IntersectMesh(m *mesh.TriMesh) (math.Vec3, bool) {
	// Cheap reject against the bounding box first.
	box := AABB{Min: m.Bounds.Min, Max: m.Bounds.Max}
	if _, hit := r.IntersectAABB(box); !hit {
		return math.Vec3{}, false
	}

	best := float32(gomath.MaxFloat32)
	found := false
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a := m.Vertices[m.Indices[i]].Position
		b := m.Vertices[m.Indices[i+1]].Position
		c := m.Vertices[m.Indices[i+2]].Position
		t, hit := r.IntersectTriangle(
			math.Vec3{X: a[0], Y: a[1], Z: a[2]},
			math.Vec3{X: b[0], Y: b[1], Z: b[2]},
			math.Vec3{X: c[0], Y: c[1], Z: c[2]},
		)
		if hit && t < best {
			best = t
			found = true
		}
	}
	if !found {
		return math.Vec3{}, false
	}
	return r.At(best), true
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min [3]float32
	Max [3]float32
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box AABB) (t float32, hit bool) {
	tmin := float32(-gomath.MaxFloat32)
	tmax := float32(gomath.MaxFloat32)

	origin := [3]float32{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float32{r.Direction.X, r.Direction.Y, r.Direction.Z}

	for axis := 0; axis < 3; axis++ {
		if dir[axis] != 0 {
			t1 := (box.Min[axis] - origin[axis]) / dir[axis]
			t2 := (box.Max[axis] - origin[axis]) / dir[axis]
			if t1 > t2 {
				t1, t2 = t2, t1
			}
			if t1 > tmin {
				tmin = t1
			}
			if t2 < tmax {
				tmax = t2
			}
		} else if origin[axis] < box.Min[axis] || origin[axis] > box.Max[axis] {
			return 0, false
		}
	}

	// Check if intersection is valid
	if tmax < tmin || tmax < 0 {
		return 0, false
	}

	// Return entry point, or exit point if starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}
