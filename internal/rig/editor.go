package rig

import (
	gomath "math"

	"github.com/Faultbox/rigbench/internal/engine/picking"
	"github.com/Faultbox/rigbench/pkg/math"
	"github.com/Faultbox/rigbench/pkg/mesh"
)

// Highlight pulse tuning. A highlighted marker's visual scale oscillates
// around the base scale and the highlight clears itself after
// highlightDuration unless retriggered.
const (
	highlightDuration = 3.0  // seconds
	pulseFrequency    = 2.0  // oscillations per second
	pulseAmplitude    = 0.35 // fraction of base scale
)

// Spacing between staged markers along +X, in model units.
const stageStep = 0.15

// Marker is one landmark owned by the editing session.
type Marker struct {
	Name     MarkerName
	Position math.Vec3
	Placed   bool
}

// Editor owns the 13 markers, their placement state, drag capture, and the
// highlight pulse. It is driven from the render loop only.
type Editor struct {
	markers [13]Marker
	bounds  mesh.Bounds

	dragging    MarkerName
	hasDrag     bool
	highlighted MarkerName
	hasHighlight bool
	highlightAt float64
}

// NewEditor creates an editor with every marker unplaced. bounds is the
// normalized model's bounding box, used to stage new markers outside it.
func NewEditor(bounds mesh.Bounds) *Editor {
	e := &Editor{bounds: bounds}
	for i, name := range AllMarkers {
		e.markers[i] = Marker{Name: name}
	}
	return e
}

// SetBounds updates the staging bounds after a model reload.
func (e *Editor) SetBounds(bounds mesh.Bounds) {
	e.bounds = bounds
}

// marker returns the marker slot for name, or nil for unknown names.
func (e *Editor) marker(name MarkerName) *Marker {
	idx := name.Index()
	if idx < 0 {
		return nil
	}
	return &e.markers[idx]
}

// Markers returns a snapshot of all markers in placement order.
func (e *Editor) Markers() []Marker {
	out := make([]Marker, len(e.markers))
	copy(out[:], e.markers[:])
	return out
}

// Placed reports whether the named marker has been placed this session.
func (e *Editor) Placed(name MarkerName) bool {
	m := e.marker(name)
	return m != nil && m.Placed
}

// Position returns the marker's current model-space position. The zero
// vector is returned for unplaced or unknown markers.
func (e *Editor) Position(name MarkerName) math.Vec3 {
	if m := e.marker(name); m != nil && m.Placed {
		return m.Position
	}
	return math.Vec3{}
}

// PlacedPositions returns the positions of every placed marker, keyed by
// name. This is the synthesizer's input.
func (e *Editor) PlacedPositions() map[MarkerName]math.Vec3 {
	out := make(map[MarkerName]math.Vec3)
	for i := range e.markers {
		if e.markers[i].Placed {
			out[e.markers[i].Name] = e.markers[i].Position
		}
	}
	return out
}

// Place marks the named marker as placed at its staging position: beyond
// the model's +X face, offset further by marker index so freshly placed
// markers never overlap. Placing an already placed marker is a no-op.
func (e *Editor) Place(name MarkerName) {
	m := e.marker(name)
	if m == nil || m.Placed {
		return
	}
	idx := name.Index()
	m.Position = math.Vec3{
		X: e.bounds.Max[0] + stageStep + stageStep*float32(idx),
		Y: (e.bounds.Min[1] + e.bounds.Max[1]) / 2,
		Z: 0,
	}
	m.Placed = true
}

// SetPosition moves a placed marker directly (scripted placement, tests,
// and placement-file loading). Unplaced markers are placed at the position.
func (e *Editor) SetPosition(name MarkerName, pos math.Vec3) {
	m := e.marker(name)
	if m == nil {
		return
	}
	m.Position = pos
	m.Placed = true
}

// Reset returns every marker to the unplaced state and clears drag and
// highlight.
func (e *Editor) Reset() {
	for i := range e.markers {
		e.markers[i] = Marker{Name: e.markers[i].Name}
	}
	e.hasDrag = false
	e.hasHighlight = false
}

// BeginDrag captures the named marker for dragging. Only placed markers can
// be captured.
func (e *Editor) BeginDrag(name MarkerName) bool {
	if !e.Placed(name) {
		return false
	}
	e.dragging = name
	e.hasDrag = true
	return true
}

// EndDrag releases the drag capture.
func (e *Editor) EndDrag() {
	e.hasDrag = false
}

// Dragging returns the captured marker name, if any.
func (e *Editor) Dragging() (MarkerName, bool) {
	return e.dragging, e.hasDrag
}

// Drag moves the captured marker along the pointer ray:
//
//  1. snap to the nearest model surface intersection,
//  2. otherwise slide on the plane through the marker's current position
//     perpendicular to the camera view direction,
//  3. otherwise leave the marker where it is.
//
// viewDir is the camera's forward direction. Returns whether the marker
// moved.
func (e *Editor) Drag(ray picking.Ray, viewDir math.Vec3, model *mesh.TriMesh) bool {
	if !e.hasDrag {
		return false
	}
	m := e.marker(e.dragging)
	if m == nil || !m.Placed {
		return false
	}

	if model != nil {
		if hit, ok := ray.IntersectMesh(model); ok {
			m.Position = hit
			return true
		}
	}
	if hit, ok := ray.IntersectPlane(m.Position, viewDir); ok {
		m.Position = hit
		return true
	}
	return false
}

// Highlight pulses the named marker. Re-triggering restarts the timeout.
func (e *Editor) Highlight(name MarkerName, now float64) {
	if e.marker(name) == nil {
		return
	}
	e.highlighted = name
	e.hasHighlight = true
	e.highlightAt = now
}

// Update advances the highlight timeout.
func (e *Editor) Update(now float64) {
	if e.hasHighlight && now-e.highlightAt >= highlightDuration {
		e.hasHighlight = false
	}
}

// VisualScale returns the marker's render scale factor at the given time:
// 1.0 normally, an oscillation around 1.0 while highlighted. Clearing the
// highlight restores exactly 1.0.
func (e *Editor) VisualScale(name MarkerName, now float64) float32 {
	if !e.hasHighlight || e.highlighted != name {
		return 1
	}
	t := now - e.highlightAt
	if t >= highlightDuration {
		return 1
	}
	return 1 + pulseAmplitude*float32(gomath.Sin(2*gomath.Pi*pulseFrequency*t))
}
