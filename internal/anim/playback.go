package anim

import (
	gomath "math"
	"strings"

	"github.com/Faultbox/rigbench/internal/rig"
	"github.com/Faultbox/rigbench/pkg/math"
)

// FramesPerSecond is the assumed frame rate for frame/time reporting.
const FramesPerSecond = 30

// rootNameFragments identify a root joint by name among joints with no
// bone parent.
var rootNameFragments = []string{"hips", "pelvis", "root", "groin"}

// Transform is one joint's local pose.
type Transform struct {
	Position math.Vec3
	Rotation math.Quat
}

// Pose maps joint names to local transforms.
type Pose map[string]Transform

// Clone returns an independent copy of the pose.
func (p Pose) Clone() Pose {
	out := make(Pose, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Controls holds the per-frame retarget inputs, all normalized 0-100.
type Controls struct {
	Enthusiasm float32
	Spacing    float32
}

// mapBreakpoints interpolates v in 0-100 across lo (at 0), mid (at 50),
// and hi (at 100), linear between breakpoints.
func mapBreakpoints(v, lo, mid, hi float32) float32 {
	if v <= 0 {
		return lo
	}
	if v >= 100 {
		return hi
	}
	if v <= 50 {
		return lo + (mid-lo)*(v/50)
	}
	return mid + (hi-mid)*((v-50)/50)
}

// SpeedScale maps a 0-100 speed input to a clip time multiplier.
func SpeedScale(v float32) float32 { return mapBreakpoints(v, 0.1, 1.0, 3.0) }

// EnthusiasmScale maps a 0-100 enthusiasm input to a blend factor.
func EnthusiasmScale(v float32) float32 { return mapBreakpoints(v, 0.2, 1.0, 2.0) }

// SpacingAngle maps a 0-100 limb-spacing input to a Z rotation bias in
// radians for left-side joints; right-side joints use the negated angle.
func SpacingAngle(v float32) float32 {
	deg := mapBreakpoints(v, -30, 0, 60)
	return deg * gomath.Pi / 180
}

// isSpacingJoint reports whether the limb-spacing bias applies to the
// named joint: shoulder and upper-arm joints only, forearms excluded.
func isSpacingJoint(name string) bool {
	n := strings.ToLower(name)
	if strings.Contains(n, "forearm") || strings.Contains(n, "lowerarm") {
		return false
	}
	return strings.Contains(n, "shoulder") || strings.Contains(n, "arm")
}

// isRightSide reports whether the joint belongs to the right side of the
// body by name-fragment match.
func isRightSide(name string) bool {
	return strings.Contains(strings.ToLower(name), "right")
}

// DetectRootJoint returns the name of the skeleton's root joint for
// root-motion filtering: a joint with no bone parent whose lowercase name
// contains a canonical root fragment. Empty when no joint qualifies, which
// leaves in-place mode inert.
func DetectRootJoint(s *rig.Skeleton) string {
	for i := range s.Joints {
		j := &s.Joints[i]
		if j.Parent >= 0 {
			continue
		}
		lower := strings.ToLower(j.Name)
		for _, frag := range rootNameFragments {
			if strings.Contains(lower, frag) {
				return j.Name
			}
		}
	}
	return ""
}

// NeutralPose captures the skeleton's rest transforms: every joint at its
// local offset with identity rotation. This is the reference pose for the
// enthusiasm and spacing controls and the pose restored on stop.
func NeutralPose(s *rig.Skeleton) Pose {
	p := make(Pose, len(s.Joints))
	for i := range s.Joints {
		j := &s.Joints[i]
		p[j.Name] = Transform{Position: j.Offset, Rotation: math.QuatIdentity()}
	}
	return p
}

// ApplyFrame produces the final local transforms for one rendered frame
// from the live animated pose, the captured neutral pose, and the control
// inputs. It is pure: neither input pose is mutated, and the result is
// recomputed from scratch every call so repeated control changes never
// accumulate.
func ApplyFrame(animated, neutral Pose, root string, c Controls) Pose {
	factor := EnthusiasmScale(c.Enthusiasm)
	spacing := SpacingAngle(c.Spacing)
	zAxis := math.Vec3{Z: 1}

	out := make(Pose, len(animated))
	for name, anim := range animated {
		base, hasBase := neutral[name]
		tf := anim

		// Enthusiasm blends or extrapolates every non-root joint between
		// its neutral and animated pose.
		if hasBase && name != root {
			tf = blendTransform(base, anim, factor)
		}

		if spacing != 0 && isSpacingJoint(name) {
			bias := spacing
			if isRightSide(name) {
				bias = -bias
			}
			tf.Rotation = tf.Rotation.Mul(math.QuatFromAxisAngle(zAxis, bias))
		}

		out[name] = tf
	}
	return out
}

// blendTransform applies the amplitude factor to one joint. Factor 0 is
// the exact neutral transform and factor 1 the exact animated one; factors
// below 1 interpolate, factors above 1 extrapolate the neutral-to-animated
// delta as a scaled axis-angle rotation plus a scaled positional offset.
func blendTransform(base, anim Transform, factor float32) Transform {
	switch {
	case factor == 1:
		return anim
	case factor < 1:
		return Transform{
			Position: base.Position.Lerp(anim.Position, factor),
			Rotation: base.Rotation.Slerp(anim.Rotation, factor),
		}
	default:
		delta := anim.Rotation.Mul(base.Rotation.Conjugate())
		axis, angle := delta.ToAxisAngle()
		return Transform{
			Position: base.Position.Add(anim.Position.Sub(base.Position).Scale(factor)),
			Rotation: math.QuatFromAxisAngle(axis, angle*factor).Mul(base.Rotation),
		}
	}
}

// Playback owns one clip driving one skeleton: the source clip, the active
// (possibly root-filtered) clip, the captured neutral pose, and the
// control state. It replaces any notion of shared mixer state; sessions
// hold exactly one Playback at a time.
type Playback struct {
	source  *Clip
	active  *Clip
	neutral Pose
	root    string

	time    float64
	playing bool
	inPlace bool

	speed      float32
	enthusiasm float32
	spacing    float32
}

// Start creates playback state for a clip on a synthesized skeleton,
// capturing the neutral pose and detecting the root joint. Playback
// begins immediately at time zero with all controls at their midpoints.
func Start(clip *Clip, s *rig.Skeleton) (*Playback, error) {
	if clip == nil {
		return nil, ErrNoClip
	}
	p := &Playback{
		source:     clip,
		active:     clip,
		neutral:    NeutralPose(s),
		root:       DetectRootJoint(s),
		playing:    true,
		speed:      50,
		enthusiasm: 50,
		spacing:    50,
	}
	return p, nil
}

// Source returns the unmodified source clip.
func (p *Playback) Source() *Clip { return p.source }

// ActiveTrackCount returns the track count of the clip currently driving
// the skeleton.
func (p *Playback) ActiveTrackCount() int { return p.active.TrackCount() }

// Playing reports whether clip time advances.
func (p *Playback) Playing() bool { return p.playing }

// Pause freezes clip time; Resume continues from the same time.
func (p *Playback) Pause()  { p.playing = false }
func (p *Playback) Resume() { p.playing = true }

// InPlace reports whether root motion is filtered out.
func (p *Playback) InPlace() bool { return p.inPlace }

// SetInPlace re-derives the active clip with or without the root position
// tracks. Playback time and play/pause state carry over unchanged; the
// source clip is never touched.
func (p *Playback) SetInPlace(on bool) {
	if on == p.inPlace {
		return
	}
	p.inPlace = on
	if on {
		p.active = p.source.WithoutRootMotion(p.root)
	} else {
		p.active = p.source
	}
}

// SetSpeed, SetEnthusiasm, and SetSpacing accept normalized 0-100 inputs,
// clamped.
func (p *Playback) SetSpeed(v float32)      { p.speed = clamp100(v) }
func (p *Playback) SetEnthusiasm(v float32) { p.enthusiasm = clamp100(v) }
func (p *Playback) SetSpacing(v float32)    { p.spacing = clamp100(v) }

func clamp100(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Advance moves clip time forward by dt wall seconds scaled by the speed
// control, looping at the clip duration.
func (p *Playback) Advance(dt float64) {
	if !p.playing {
		return
	}
	p.time += dt * float64(SpeedScale(p.speed))
	if d := float64(p.source.Duration); d > 0 {
		for p.time >= d {
			p.time -= d
		}
	}
}

// Time returns the current clip time in seconds.
func (p *Playback) Time() float64 { return p.time }

// Frame returns the current playback frame at the assumed clip rate.
func (p *Playback) Frame() int {
	return int(p.time * FramesPerSecond)
}

// SeekFrame sets clip time directly from a frame number, clamped to the
// clip duration.
func (p *Playback) SeekFrame(frame int) {
	if frame < 0 {
		frame = 0
	}
	t := float64(frame) / FramesPerSecond
	if d := float64(p.source.Duration); d > 0 && t > d {
		t = d
	}
	p.time = t
}

// CurrentPose samples the active clip at the current time and applies the
// retarget controls. The result is a fresh pose each call.
func (p *Playback) CurrentPose() Pose {
	animated := p.active.Sample(float32(p.time), p.neutral)
	return ApplyFrame(animated, p.neutral, p.root, Controls{
		Enthusiasm: p.enthusiasm,
		Spacing:    p.spacing,
	})
}

// Stop ends playback and returns a copy of the captured neutral pose so
// every affected joint can be restored exactly. The playback value is
// inert afterwards; callers drop their reference to release the clip.
func (p *Playback) Stop() Pose {
	p.playing = false
	p.active = p.source
	p.inPlace = false
	p.time = 0
	return p.neutral.Clone()
}
