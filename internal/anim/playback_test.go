package anim

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/rigbench/internal/rig"
	"github.com/Faultbox/rigbench/pkg/math"
)

func testSkeleton(t *testing.T) *rig.Skeleton {
	t.Helper()
	placed := map[rig.MarkerName]math.Vec3{
		rig.MarkerGroin:         {X: 0, Y: 1.0, Z: 0},
		rig.MarkerNeckBase:      {X: 0, Y: 1.5, Z: 0},
		rig.MarkerChin:          {X: 0, Y: 1.65, Z: 0.05},
		rig.MarkerLeftShoulder:  {X: 0.2, Y: 1.45, Z: 0},
		rig.MarkerRightShoulder: {X: -0.2, Y: 1.45, Z: 0},
		rig.MarkerLeftElbow:     {X: 0.45, Y: 1.4, Z: 0},
		rig.MarkerRightElbow:    {X: -0.45, Y: 1.4, Z: 0},
		rig.MarkerLeftWrist:     {X: 0.7, Y: 1.35, Z: 0},
		rig.MarkerRightWrist:    {X: -0.7, Y: 1.35, Z: 0},
		rig.MarkerLeftKnee:      {X: 0.1, Y: 0.5, Z: 0},
		rig.MarkerRightKnee:     {X: -0.1, Y: 0.5, Z: 0},
		rig.MarkerLeftAnkle:     {X: 0.1, Y: 0.08, Z: 0},
		rig.MarkerRightAnkle:    {X: -0.1, Y: 0.08, Z: 0},
	}
	s, err := rig.Synthesize(placed)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	return s
}

func TestSpeedScale(t *testing.T) {
	tests := []struct {
		in, want float32
	}{
		{0, 0.1},
		{25, 0.55},
		{50, 1.0},
		{75, 2.0},
		{100, 3.0},
	}
	for _, tt := range tests {
		if got := SpeedScale(tt.in); gomath.Abs(float64(got-tt.want)) > 1e-5 {
			t.Errorf("SpeedScale(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEnthusiasmScale(t *testing.T) {
	tests := []struct {
		in, want float32
	}{
		{0, 0.2},
		{50, 1.0},
		{100, 2.0},
	}
	for _, tt := range tests {
		if got := EnthusiasmScale(tt.in); gomath.Abs(float64(got-tt.want)) > 1e-5 {
			t.Errorf("EnthusiasmScale(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSpacingAngle(t *testing.T) {
	deg := func(rad float32) float64 { return float64(rad) * 180 / gomath.Pi }
	tests := []struct {
		in      float32
		wantDeg float64
	}{
		{0, -30},
		{50, 0},
		{100, 60},
	}
	for _, tt := range tests {
		if got := deg(SpacingAngle(tt.in)); gomath.Abs(got-tt.wantDeg) > 1e-4 {
			t.Errorf("SpacingAngle(%v) = %v deg, want %v", tt.in, got, tt.wantDeg)
		}
	}
}

func TestBlendTransformEndpoints(t *testing.T) {
	base := Transform{Position: math.Vec3{X: 1}, Rotation: math.QuatIdentity()}
	anim := Transform{
		Position: math.Vec3{X: 2, Y: 1},
		Rotation: math.QuatFromAxisAngle(math.Vec3{Z: 1}, 0.8),
	}

	if got := blendTransform(base, anim, 0); got != base {
		t.Errorf("factor 0 = %+v, want neutral %+v", got, base)
	}
	if got := blendTransform(base, anim, 1); got != anim {
		t.Errorf("factor 1 = %+v, want animated %+v", got, anim)
	}
}

func TestBlendTransformExtrapolates(t *testing.T) {
	base := Transform{Position: math.Vec3{}, Rotation: math.QuatIdentity()}
	anim := Transform{
		Position: math.Vec3{X: 0.5},
		Rotation: math.QuatFromAxisAngle(math.Vec3{Z: 1}, 0.4),
	}

	got := blendTransform(base, anim, 2)
	if gomath.Abs(float64(got.Position.X-1.0)) > 1e-5 {
		t.Errorf("position delta not doubled: %v", got.Position)
	}
	_, angle := got.Rotation.ToAxisAngle()
	if gomath.Abs(float64(angle-0.8)) > 1e-4 {
		t.Errorf("rotation angle = %v, want 0.8", angle)
	}
}

func TestApplyFrameIdentityAtMidpoint(t *testing.T) {
	s := testSkeleton(t)
	neutral := NeutralPose(s)
	animated := neutral.Clone()
	animated["mixamorigLeftElbow"] = Transform{
		Position: animated["mixamorigLeftElbow"].Position,
		Rotation: math.QuatFromAxisAngle(math.Vec3{X: 1}, 0.5),
	}

	out := ApplyFrame(animated, neutral, "mixamorigGroin", Controls{Enthusiasm: 50, Spacing: 50})
	for name, want := range animated {
		if got := out[name]; got != want {
			t.Errorf("joint %s changed under identity controls: %+v != %+v", name, got, want)
		}
	}
}

func TestApplyFrameRootKeepsAnimatedPose(t *testing.T) {
	s := testSkeleton(t)
	neutral := NeutralPose(s)
	animated := neutral.Clone()
	moved := Transform{Position: math.Vec3{X: 0, Y: 1, Z: 3}, Rotation: math.QuatIdentity()}
	animated["mixamorigGroin"] = moved

	// Enthusiasm must not blend the root toward neutral.
	out := ApplyFrame(animated, neutral, "mixamorigGroin", Controls{Enthusiasm: 0, Spacing: 50})
	if got := out["mixamorigGroin"]; got != moved {
		t.Errorf("root = %+v, want animated %+v", got, moved)
	}
}

func TestApplyFrameSpacingSigns(t *testing.T) {
	s := testSkeleton(t)
	neutral := NeutralPose(s)
	animated := neutral.Clone()

	out := ApplyFrame(animated, neutral, "mixamorigGroin", Controls{Enthusiasm: 50, Spacing: 100})

	_, leftAngle := out["mixamorigLeftShoulder"].Rotation.ToAxisAngle()
	_, rightAngle := out["mixamorigRightShoulder"].Rotation.ToAxisAngle()
	if gomath.Abs(float64(leftAngle-rightAngle)) > 1e-5 {
		t.Errorf("spacing magnitudes differ: left %v, right %v", leftAngle, rightAngle)
	}
	leftAxis, _ := out["mixamorigLeftShoulder"].Rotation.ToAxisAngle()
	rightAxis, _ := out["mixamorigRightShoulder"].Rotation.ToAxisAngle()
	if leftAxis.Dot(rightAxis) > -0.999 {
		t.Errorf("spacing rotations not opposite-signed: axes %v and %v", leftAxis, rightAxis)
	}

	// Non-arm joints are untouched.
	if got := out["mixamorigLeftKnee"]; got != neutral["mixamorigLeftKnee"] {
		t.Errorf("knee affected by limb spacing: %+v", got)
	}
	// Midpoint input applies no bias at all.
	mid := ApplyFrame(animated, neutral, "mixamorigGroin", Controls{Enthusiasm: 50, Spacing: 50})
	if got := mid["mixamorigLeftShoulder"]; got != neutral["mixamorigLeftShoulder"] {
		t.Errorf("spacing 50 biased the shoulder: %+v", got)
	}
}

func TestApplyFrameDoesNotMutateInputs(t *testing.T) {
	s := testSkeleton(t)
	neutral := NeutralPose(s)
	animated := neutral.Clone()
	animated["mixamorigLeftShoulder"] = Transform{
		Position: math.Vec3{X: 0.3},
		Rotation: math.QuatFromAxisAngle(math.Vec3{Z: 1}, 1.2),
	}
	animSnapshot := animated.Clone()
	neutralSnapshot := neutral.Clone()

	ApplyFrame(animated, neutral, "mixamorigGroin", Controls{Enthusiasm: 80, Spacing: 20})

	for name := range animSnapshot {
		if animated[name] != animSnapshot[name] {
			t.Errorf("animated pose mutated at %s", name)
		}
		if neutral[name] != neutralSnapshot[name] {
			t.Errorf("neutral pose mutated at %s", name)
		}
	}
}

func TestDetectRootJoint(t *testing.T) {
	s := testSkeleton(t)
	if got := DetectRootJoint(s); got != "mixamorigGroin" {
		t.Errorf("DetectRootJoint = %q, want mixamorigGroin", got)
	}
}

func TestPlaybackInPlaceTogglePreservesProgress(t *testing.T) {
	clip := makeTestClip()
	p, err := Start(clip, testSkeleton(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	originalTracks := p.ActiveTrackCount()

	p.Advance(0.75)
	before := p.Time()

	p.SetInPlace(true)
	if p.Time() != before {
		t.Errorf("time jumped on in-place toggle: %v -> %v", before, p.Time())
	}
	if !p.Playing() {
		t.Error("play state lost on toggle")
	}
	if p.ActiveTrackCount() != originalTracks-1 {
		t.Errorf("in-place track count = %d, want %d", p.ActiveTrackCount(), originalTracks-1)
	}

	p.SetInPlace(false)
	if p.ActiveTrackCount() != originalTracks {
		t.Errorf("track count after restore = %d, want %d", p.ActiveTrackCount(), originalTracks)
	}
	if p.Time() != before {
		t.Errorf("time jumped on restore: %v -> %v", before, p.Time())
	}
	if clip.TrackCount() != 3 {
		t.Errorf("source clip mutated across toggles: %d tracks", clip.TrackCount())
	}
}

func TestPlaybackInPlaceHoldsRootPosition(t *testing.T) {
	p, err := Start(makeTestClip(), testSkeleton(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.SetInPlace(true)
	p.Advance(1.5)

	pose := p.CurrentPose()
	want := p.neutral["mixamorigGroin"].Position
	if got := pose["mixamorigGroin"].Position; got.Distance(want) > 1e-6 {
		t.Errorf("root traveled in in-place mode: %v, want %v", got, want)
	}
}

func TestPlaybackSpeedAndFrames(t *testing.T) {
	p, err := Start(makeTestClip(), testSkeleton(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	p.Advance(1.0) // default speed input 50 -> 1x
	if p.Frame() != FramesPerSecond {
		t.Errorf("frame after 1s = %d, want %d", p.Frame(), FramesPerSecond)
	}

	p.SeekFrame(15)
	if p.Time() != 0.5 {
		t.Errorf("time after SeekFrame(15) = %v, want 0.5", p.Time())
	}

	p.SetSpeed(100) // 3x
	p.Advance(0.25)
	if gomath.Abs(p.Time()-1.25) > 1e-9 {
		t.Errorf("time at 3x = %v, want 1.25", p.Time())
	}

	// Looping wraps at the clip duration (2s).
	p.SetSpeed(50)
	p.Advance(1.0)
	if p.Time() >= 2 || p.Time() < 0 {
		t.Errorf("time did not wrap: %v", p.Time())
	}
}

func TestPlaybackPause(t *testing.T) {
	p, err := Start(makeTestClip(), testSkeleton(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Advance(0.5)
	p.Pause()
	p.Advance(1.0)
	if p.Time() != 0.5 {
		t.Errorf("time advanced while paused: %v", p.Time())
	}
	p.Resume()
	p.Advance(0.25)
	if gomath.Abs(p.Time()-0.75) > 1e-9 {
		t.Errorf("time after resume = %v, want 0.75", p.Time())
	}
}

func TestStopRestoresNeutral(t *testing.T) {
	s := testSkeleton(t)
	p, err := Start(makeTestClip(), s)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Advance(1.3)
	p.SetEnthusiasm(90)

	restored := p.Stop()
	want := NeutralPose(s)
	if len(restored) != len(want) {
		t.Fatalf("restored pose has %d joints, want %d", len(restored), len(want))
	}
	for name, tf := range want {
		if restored[name] != tf {
			t.Errorf("joint %s restored to %+v, want %+v", name, restored[name], tf)
		}
	}
	if p.Playing() {
		t.Error("still playing after Stop")
	}
}

func TestStartWithoutClip(t *testing.T) {
	if _, err := Start(nil, testSkeleton(t)); err == nil {
		t.Fatal("Start accepted a nil clip")
	}
}
