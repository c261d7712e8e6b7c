package rig

import (
	"errors"

	"github.com/Faultbox/rigbench/pkg/math"
)

// ErrMissingRoot is returned when synthesis runs without a placed groin
// marker. No joints are fabricated in that case.
var ErrMissingRoot = errors.New("groin marker not placed: skeleton has no root")

// Joint is one node in the synthesized hierarchy. Joints live in the
// skeleton's arena and reference each other by index; Parent is -1 for the
// root. Offset is parent-relative for non-root joints and the absolute
// world position for the root.
type Joint struct {
	Name     string
	Marker   MarkerName
	Parent   int
	Children []int
	Offset   math.Vec3
}

// Segment is one visualization line from a joint to its parent, in world
// space.
type Segment struct {
	From, To math.Vec3
}

// Skeleton is the arena of joints produced by synthesis. The joint order is
// stable across re-synthesis: a marker's joint keeps its index for the
// lifetime of the skeleton, so external references stay valid while markers
// move.
type Skeleton struct {
	Joints []Joint
	byName map[string]int
	root   int
}

// Synthesize derives a joint tree from the placed markers. One joint is
// created per placed marker; a child attaches to its parent only when both
// ends are placed, so a placed marker whose parent is unplaced yields a
// joint that stays unreachable from the root and is excluded from export.
func Synthesize(positions map[MarkerName]math.Vec3) (*Skeleton, error) {
	rootPos, ok := positions[RootMarker]
	if !ok {
		return nil, ErrMissingRoot
	}

	s := &Skeleton{byName: make(map[string]int)}

	// Arena slots in fixed marker order for stable identities.
	index := make(map[MarkerName]int)
	for _, m := range AllMarkers {
		if _, placed := positions[m]; !placed {
			continue
		}
		j := Joint{Name: m.JointName(), Marker: m, Parent: -1}
		index[m] = len(s.Joints)
		s.byName[j.Name] = len(s.Joints)
		s.Joints = append(s.Joints, j)
	}

	for m, idx := range index {
		if m == RootMarker {
			s.Joints[idx].Offset = rootPos
			s.root = idx
			continue
		}
		parent := m.Parent()
		pIdx, ok := index[parent]
		if !ok {
			// Parent unplaced: joint stays detached. Its offset is its
			// absolute position so visualization still has somewhere to
			// draw it.
			s.Joints[idx].Offset = positions[m]
			continue
		}
		s.Joints[idx].Parent = pIdx
		s.Joints[idx].Offset = positions[m].Sub(positions[parent])
		s.Joints[pIdx].Children = append(s.Joints[pIdx].Children, idx)
	}

	return s, nil
}

// Resync updates joint offsets in place from moved marker positions. Joint
// identities (indices, names, parent links) are preserved; only offsets
// change. Markers placed after the original synthesis are ignored; run
// Synthesize again to add joints.
func (s *Skeleton) Resync(positions map[MarkerName]math.Vec3) error {
	if _, ok := positions[RootMarker]; !ok {
		return ErrMissingRoot
	}
	for i := range s.Joints {
		j := &s.Joints[i]
		pos, ok := positions[j.Marker]
		if !ok {
			continue
		}
		if j.Parent < 0 {
			j.Offset = pos
			continue
		}
		parentPos, ok := positions[s.Joints[j.Parent].Marker]
		if !ok {
			continue
		}
		j.Offset = pos.Sub(parentPos)
	}
	return nil
}

// Clone returns a deep copy. Export snapshots the skeleton with it so the
// editor can keep resyncing offsets while the export goroutine reads.
func (s *Skeleton) Clone() *Skeleton {
	c := &Skeleton{
		Joints: make([]Joint, len(s.Joints)),
		byName: make(map[string]int, len(s.byName)),
		root:   s.root,
	}
	copy(c.Joints, s.Joints)
	for i := range c.Joints {
		children := make([]int, len(s.Joints[i].Children))
		copy(children, s.Joints[i].Children)
		c.Joints[i].Children = children
	}
	for name, idx := range s.byName {
		c.byName[name] = idx
	}
	return c
}

// Root returns the arena index of the root joint.
func (s *Skeleton) Root() int {
	return s.root
}

// JointByName looks a joint up by its rig-compatible name.
func (s *Skeleton) JointByName(name string) (int, bool) {
	idx, ok := s.byName[name]
	return idx, ok
}

// WorldPositions resolves every joint's world position by walking offsets
// from the root. Detached joints (unreachable from the root) resolve from
// their stored absolute offsets.
func (s *Skeleton) WorldPositions() []math.Vec3 {
	out := make([]math.Vec3, len(s.Joints))
	resolved := make([]bool, len(s.Joints))

	var resolve func(i int) math.Vec3
	resolve = func(i int) math.Vec3 {
		if resolved[i] {
			return out[i]
		}
		resolved[i] = true
		j := s.Joints[i]
		if j.Parent < 0 {
			out[i] = j.Offset
		} else {
			out[i] = resolve(j.Parent).Add(j.Offset)
		}
		return out[i]
	}
	for i := range s.Joints {
		resolve(i)
	}
	return out
}

// Reachable reports which joints are reachable from the root. Joints whose
// parent markers were unplaced at synthesis time come back false.
func (s *Skeleton) Reachable() []bool {
	out := make([]bool, len(s.Joints))
	var walk func(i int)
	walk = func(i int) {
		out[i] = true
		for _, c := range s.Joints[i].Children {
			walk(c)
		}
	}
	if len(s.Joints) > 0 {
		walk(s.root)
	}
	return out
}

// Flatten returns the joints reachable from the root in parent-before-child
// order, as arena indices. This is the joint list the binder exports.
func (s *Skeleton) Flatten() []int {
	var out []int
	var walk func(i int)
	walk = func(i int) {
		out = append(out, i)
		for _, c := range s.Joints[i].Children {
			walk(c)
		}
	}
	if len(s.Joints) > 0 {
		walk(s.root)
	}
	return out
}

// Segments rebuilds the visualization line list connecting each reachable
// joint to its parent at current world positions.
func (s *Skeleton) Segments() []Segment {
	world := s.WorldPositions()
	reachable := s.Reachable()
	var out []Segment
	for i := range s.Joints {
		p := s.Joints[i].Parent
		if p < 0 || !reachable[i] {
			continue
		}
		out = append(out, Segment{From: world[p], To: world[i]})
	}
	return out
}
