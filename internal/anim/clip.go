// Package anim drives a bound skeleton with a retargeted motion clip. A
// clip is immutable once loaded; in-place playback works on a filtered
// derivative, and the amplitude and limb-spacing controls are applied per
// frame from the live animated pose, never accumulated.
package anim

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/rigbench/internal/rig"
	"github.com/Faultbox/rigbench/pkg/math"
)

var (
	// ErrNoClip indicates the source document carries no animation.
	ErrNoClip = errors.New("document contains no animation")
	// ErrIncompatibleClip indicates no animation track targets a
	// rig-compatible joint name.
	ErrIncompatibleClip = errors.New("clip targets no rig-compatible joints")
)

// Property identifies which transform component a track animates.
type Property uint8

const (
	PropertyPosition Property = iota
	PropertyRotation
)

// Track holds the keyframes of one transform property of one joint.
// Tracks are never mutated after loading.
type Track struct {
	Joint    string
	Property Property
	Times    []float32
	Vec3s    []math.Vec3 // position values, parallel to Times
	Quats    []math.Quat // rotation values, parallel to Times
}

// SampleVec3 linearly interpolates the position track at the given time,
// clamping outside the keyed range.
func (t *Track) SampleVec3(at float32) math.Vec3 {
	i, frac := t.locate(at)
	if frac == 0 || i+1 >= len(t.Vec3s) {
		return t.Vec3s[i]
	}
	return t.Vec3s[i].Lerp(t.Vec3s[i+1], frac)
}

// SampleQuat spherically interpolates the rotation track at the given time,
// clamping outside the keyed range.
func (t *Track) SampleQuat(at float32) math.Quat {
	i, frac := t.locate(at)
	if frac == 0 || i+1 >= len(t.Quats) {
		return t.Quats[i]
	}
	return t.Quats[i].Slerp(t.Quats[i+1], frac)
}

// locate finds the keyframe interval containing the given time and the
// fractional position inside it.
func (t *Track) locate(at float32) (int, float32) {
	n := len(t.Times)
	if n == 0 {
		return 0, 0
	}
	if at <= t.Times[0] {
		return 0, 0
	}
	if at >= t.Times[n-1] {
		return n - 1, 0
	}
	// First key strictly after at; the interval starts one before it.
	hi := sort.Search(n, func(i int) bool { return t.Times[i] > at })
	lo := hi - 1
	span := t.Times[hi] - t.Times[lo]
	if span <= 0 {
		return lo, 0
	}
	return lo, (at - t.Times[lo]) / span
}

// Clip is an ordered set of per-joint transform tracks. The struct is
// treated as immutable after LoadClip; derived clips share track pointers.
type Clip struct {
	Name     string
	Duration float32
	Tracks   []*Track
}

// TrackCount returns the number of tracks in the clip.
func (c *Clip) TrackCount() int { return len(c.Tracks) }

// Compatible reports whether at least one track targets a joint carrying
// the rig naming prefix.
func (c *Clip) Compatible() bool {
	for _, t := range c.Tracks {
		if strings.HasPrefix(t.Joint, rig.JointNamePrefix) {
			return true
		}
	}
	return false
}

// WithoutRootMotion returns a derived clip with every position track
// targeting the named root joint removed. Rotation tracks and all other
// joints pass through unchanged; the receiver is not modified. An empty
// root name returns the clip itself.
func (c *Clip) WithoutRootMotion(root string) *Clip {
	if root == "" {
		return c
	}
	d := &Clip{Name: c.Name, Duration: c.Duration}
	for _, t := range c.Tracks {
		if t.Property == PropertyPosition && t.Joint == root {
			continue
		}
		d.Tracks = append(d.Tracks, t)
	}
	return d
}

// Sample evaluates every track at the given clip time on top of a base
// pose. Joints without a track for a property keep the base value, which
// makes a root-motion-filtered clip hold the root at its base position.
func (c *Clip) Sample(at float32, base Pose) Pose {
	out := base.Clone()
	for _, t := range c.Tracks {
		tf := out[t.Joint]
		switch t.Property {
		case PropertyPosition:
			tf.Position = t.SampleVec3(at)
		case PropertyRotation:
			tf.Rotation = t.SampleQuat(at)
		}
		out[t.Joint] = tf
	}
	return out
}

// LoadClip extracts the indexed animation of a glTF document into a Clip.
// The clip must target at least one rig-compatible joint or the load is
// rejected with ErrIncompatibleClip.
func LoadClip(doc *gltf.Document, index int) (*Clip, error) {
	if len(doc.Animations) == 0 {
		return nil, ErrNoClip
	}
	if index < 0 || index >= len(doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", index)
	}
	a := doc.Animations[index]

	clip := &Clip{Name: a.Name}
	if clip.Name == "" {
		clip.Name = fmt.Sprintf("clip_%d", index)
	}

	for i, ch := range a.Channels {
		if ch.Target.Node == nil || ch.Sampler == nil {
			continue
		}
		if int(*ch.Target.Node) >= len(doc.Nodes) {
			return nil, fmt.Errorf("animation %q channel %d: node %d out of range", a.Name, i, *ch.Target.Node)
		}
		joint := doc.Nodes[*ch.Target.Node].Name
		if int(*ch.Sampler) >= len(a.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: sampler %d out of range", a.Name, i, *ch.Sampler)
		}
		sampler := a.Samplers[*ch.Sampler]

		times, err := readTimes(doc, sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: %w", a.Name, i, err)
		}
		if len(times) > 0 && times[len(times)-1] > clip.Duration {
			clip.Duration = times[len(times)-1]
		}

		switch ch.Target.Path {
		case gltf.TRSTranslation:
			values, err := readVec3s(doc, sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %w", a.Name, i, err)
			}
			clip.Tracks = append(clip.Tracks, &Track{
				Joint:    joint,
				Property: PropertyPosition,
				Times:    times[:min(len(times), len(values))],
				Vec3s:    values,
			})
		case gltf.TRSRotation:
			values, err := readQuats(doc, sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %w", a.Name, i, err)
			}
			clip.Tracks = append(clip.Tracks, &Track{
				Joint:    joint,
				Property: PropertyRotation,
				Times:    times[:min(len(times), len(values))],
				Quats:    values,
			})
		default:
			// Scale and morph weight channels are not retargeted.
		}
	}

	if !clip.Compatible() {
		return nil, ErrIncompatibleClip
	}
	return clip, nil
}

func readTimes(doc *gltf.Document, acc uint32) ([]float32, error) {
	data, err := modeler.ReadAccessor(doc, doc.Accessors[acc], nil)
	if err != nil {
		return nil, err
	}
	times, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("keyframe times are %T, want []float32", data)
	}
	return times, nil
}

func readVec3s(doc *gltf.Document, acc uint32) ([]math.Vec3, error) {
	data, err := modeler.ReadAccessor(doc, doc.Accessors[acc], nil)
	if err != nil {
		return nil, err
	}
	raw, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("translation values are %T, want [][3]float32", data)
	}
	out := make([]math.Vec3, len(raw))
	for i, v := range raw {
		out[i] = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
	}
	return out, nil
}

func readQuats(doc *gltf.Document, acc uint32) ([]math.Quat, error) {
	data, err := modeler.ReadAccessor(doc, doc.Accessors[acc], nil)
	if err != nil {
		return nil, err
	}
	raw, ok := data.([][4]float32)
	if !ok {
		return nil, fmt.Errorf("rotation values are %T, want [][4]float32", data)
	}
	out := make([]math.Quat, len(raw))
	for i, v := range raw {
		out[i] = math.Quat{X: v[0], Y: v[1], Z: v[2], W: v[3]}.Normalize()
	}
	return out, nil
}
