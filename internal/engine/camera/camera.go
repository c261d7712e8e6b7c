// Package camera provides the orbit camera used by the rig viewport.
package camera

import (
	gomath "math"

	"github.com/Faultbox/rigbench/pkg/math"
)

// FrameMargin is the slack factor applied when framing a bounding box so
// the subject does not touch the viewport edges.
const FrameMargin = 1.5

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	// Center point to orbit around
	CenterX, CenterY, CenterZ float32

	// Spherical coordinates
	Distance  float32 // Distance from center
	RotationX float32 // Pitch (vertical angle, radians)
	RotationY float32 // Yaw (horizontal angle, radians)

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates a new orbit camera with defaults sized for a
// person-scale subject in meters.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        4.0,
		RotationX:       0.25,
		RotationY:       0.0,
		MinDistance:     0.5,
		MaxDistance:     50.0,
		MinPitch:        -1.4,
		MaxPitch:        1.4,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	x := c.Distance * float32(gomath.Cos(float64(c.RotationX))*gomath.Sin(float64(c.RotationY)))
	y := c.Distance * float32(gomath.Sin(float64(c.RotationX)))
	z := c.Distance * float32(gomath.Cos(float64(c.RotationX))*gomath.Cos(float64(c.RotationY)))

	return math.Vec3{
		X: c.CenterX + x,
		Y: c.CenterY + y,
		Z: c.CenterZ + z,
	}
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	pos := c.Position()
	center := math.Vec3{X: c.CenterX, Y: c.CenterY, Z: c.CenterZ}
	up := math.Vec3{X: 0, Y: 1, Z: 0}
	return math.LookAt(pos, center, up)
}

// ViewDirection returns the normalized direction from the camera toward
// its center point. Marker dragging uses it for the fallback drag plane.
func (c *OrbitCamera) ViewDirection() math.Vec3 {
	center := math.Vec3{X: c.CenterX, Y: c.CenterY, Z: c.CenterZ}
	return center.Sub(c.Position()).Normalize()
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.RotationY -= deltaX * c.DragSensitivity
	c.RotationX += deltaY * c.DragSensitivity

	// Clamp pitch
	if c.RotationX < c.MinPitch {
		c.RotationX = c.MinPitch
	}
	if c.RotationX > c.MaxPitch {
		c.RotationX = c.MaxPitch
	}
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	if c.Distance < c.MinDistance {
		c.Distance = c.MinDistance
	}
	if c.Distance > c.MaxDistance {
		c.Distance = c.MaxDistance
	}
}

// HandleMovement pans the camera center point based on keyboard input.
func (c *OrbitCamera) HandleMovement(forward, right, up float32) {
	// Speed scales with distance for consistent feel
	speed := c.Distance * 0.01

	dirX := float32(gomath.Sin(float64(c.RotationY)))
	dirZ := float32(gomath.Cos(float64(c.RotationY)))

	rightX := float32(gomath.Cos(float64(c.RotationY)))
	rightZ := float32(-gomath.Sin(float64(c.RotationY)))

	// Negate forward so W moves "into" the scene.
	c.CenterX += (-dirX*forward + rightX*right) * speed
	c.CenterZ += (-dirZ*forward + rightZ*right) * speed
	c.CenterY += up * speed
}

// SetCenter sets the camera's center point.
func (c *OrbitCamera) SetCenter(x, y, z float32) {
	c.CenterX = x
	c.CenterY = y
	c.CenterZ = z
}

// FrameBounds aims the camera at the center of a bounding box and sets the
// distance so the box's largest dimension fits the vertical field of view
// with the framing margin applied.
func (c *OrbitCamera) FrameBounds(min, max [3]float32, fovY float32) {
	c.CenterX = (min[0] + max[0]) / 2
	c.CenterY = (min[1] + max[1]) / 2
	c.CenterZ = (min[2] + max[2]) / 2

	largest := max[0] - min[0]
	if s := max[1] - min[1]; s > largest {
		largest = s
	}
	if s := max[2] - min[2]; s > largest {
		largest = s
	}

	half := float64(fovY) / 2
	dist := float32(float64(largest) * FrameMargin / 2 / gomath.Tan(half))
	if dist < c.MinDistance {
		dist = c.MinDistance
	}
	if dist > c.MaxDistance {
		dist = c.MaxDistance
	}
	c.Distance = dist
}
