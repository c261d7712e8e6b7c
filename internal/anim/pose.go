package anim

import (
	"github.com/Faultbox/rigbench/internal/rig"
	"github.com/Faultbox/rigbench/pkg/math"
)

// WorldPositions resolves a local-transform pose against the skeleton
// hierarchy into world-space joint positions, indexed like s.Joints.
// Joints missing from the pose use their rest transform.
func WorldPositions(s *rig.Skeleton, p Pose) []math.Vec3 {
	world := make([]math.Mat4, len(s.Joints))
	out := make([]math.Vec3, len(s.Joints))
	one := math.Vec3{X: 1, Y: 1, Z: 1}

	for _, ji := range s.Flatten() {
		j := s.Joints[ji]
		tf, ok := p[j.Name]
		if !ok {
			tf = Transform{Position: j.Offset, Rotation: math.QuatIdentity()}
		}
		local := math.Compose(tf.Position, tf.Rotation, one)
		if j.Parent >= 0 {
			world[ji] = world[j.Parent].Mul(local)
		} else {
			world[ji] = local
		}
		pos := world[ji].TransformPoint([3]float32{0, 0, 0})
		out[ji] = math.Vec3{X: pos[0], Y: pos[1], Z: pos[2]}
	}
	return out
}

// PoseSegments builds world-space parent-to-child line segments for the
// posed skeleton, for bone visualization during playback.
func PoseSegments(s *rig.Skeleton, p Pose) [][2]math.Vec3 {
	world := WorldPositions(s, p)
	reachable := s.Reachable()

	var out [][2]math.Vec3
	for i := range s.Joints {
		parent := s.Joints[i].Parent
		if parent < 0 || !reachable[i] {
			continue
		}
		out = append(out, [2]math.Vec3{world[parent], world[i]})
	}
	return out
}
