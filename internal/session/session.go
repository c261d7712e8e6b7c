// Package session owns one editing session: the subject mesh, marker set,
// synthesized skeleton, playback state, and the async loaders feeding
// them. Every mutable resource here is touched only from the render
// goroutine; loader and export goroutines communicate over channels
// drained each frame.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/rigbench/internal/anim"
	"github.com/Faultbox/rigbench/internal/assets"
	"github.com/Faultbox/rigbench/internal/config"
	"github.com/Faultbox/rigbench/internal/engine/viewport"
	"github.com/Faultbox/rigbench/internal/logger"
	"github.com/Faultbox/rigbench/internal/rig"
	"github.com/Faultbox/rigbench/internal/rig/bind"
	"github.com/Faultbox/rigbench/pkg/formats"
	"github.com/Faultbox/rigbench/pkg/math"
	"github.com/Faultbox/rigbench/pkg/mesh"
)

type exportResult struct {
	path string
	err  error
}

// Session ties the workbench components together for one editing run.
type Session struct {
	cfg *config.Config
	vp  *viewport.Viewport

	mesh     *mesh.TriMesh
	editor   *rig.Editor
	skeleton *rig.Skeleton
	clip     *anim.Clip
	playback *anim.Playback

	modelLoader *assets.Loader
	clipLoader  *assets.Loader
	exports     chan exportResult

	meshInstalled bool
	alive         bool
	notice        string
}

// New creates a session with an uninitialized viewport and a placeholder
// subject so the scene is never blank.
func New(cfg *config.Config) *Session {
	source := assets.NewAutoSource(cfg.Assets.FetchTimeout.Std())
	s := &Session{
		cfg: cfg,
		vp: viewport.New(viewport.Config{
			Title:      "rigbench",
			Width:      cfg.Viewer.Width,
			Height:     cfg.Viewer.Height,
			Fullscreen: cfg.Viewer.Fullscreen,
			VSync:      cfg.Viewer.VSync,
			FOVDegrees: cfg.Viewer.FOVDegrees,
			ShowGrid:   cfg.Viewer.ShowGrid,
		}),
		modelLoader: assets.NewLoader(source),
		clipLoader:  assets.NewLoader(source),
		exports:     make(chan exportResult, 4),
		alive:       true,
	}
	s.installMesh(mesh.Placeholder())
	return s
}

// Viewport returns the session's viewport.
func (s *Session) Viewport() *viewport.Viewport { return s.vp }

// Mesh returns the current subject mesh.
func (s *Session) Mesh() *mesh.TriMesh { return s.mesh }

// Editor returns the marker editor.
func (s *Session) Editor() *rig.Editor { return s.editor }

// Skeleton returns the synthesized skeleton, nil before synthesis.
func (s *Session) Skeleton() *rig.Skeleton { return s.skeleton }

// Playback returns the active playback state, nil when stopped.
func (s *Session) Playback() *anim.Playback { return s.playback }

// Notice returns the latest user-visible notice, empty when none.
func (s *Session) Notice() string { return s.notice }

func (s *Session) setNotice(format string, args ...any) {
	s.notice = fmt.Sprintf(format, args...)
	logger.Warn(s.notice)
}

// LoadModel requests an asynchronous model load. A newer request
// supersedes any in-flight one.
func (s *Session) LoadModel(url string) {
	s.modelLoader.Request(context.Background(), s.resolveURL(url))
}

// LoadClip requests an asynchronous motion clip load.
func (s *Session) LoadClip(url string) {
	s.clipLoader.Request(context.Background(), s.resolveURL(url))
}

func (s *Session) resolveURL(url string) string {
	if s.cfg.Assets.BaseURL == "" {
		return url
	}
	if len(url) > 0 && (url[0] == '/' || url[0] == '.') {
		return url
	}
	return s.cfg.Assets.BaseURL + "/" + url
}

// Update runs one frame of session work: viewport bring-up, async
// completion draining, highlight timers, and playback advancement.
func (s *Session) Update(now time.Time, dt float64) {
	if !s.alive {
		return
	}

	s.vp.Tick(now)

	// A mesh that arrived before the viewport came up is uploaded here.
	if s.vp.Ready() && !s.meshInstalled && s.mesh != nil {
		if err := s.vp.InstallMesh(s.mesh); err != nil {
			s.setNotice("viewport install failed: %v", err)
		}
		s.meshInstalled = true
	}

	s.drainLoaders()
	s.drainExports()

	if s.editor != nil {
		s.editor.Update(float64(now.UnixNano()) / float64(time.Second))
	}
	if s.playback != nil {
		s.playback.Advance(dt)
	}
}

func (s *Session) drainLoaders() {
	for {
		select {
		case r := <-s.modelLoader.Results():
			s.handleModelResult(r)
		case r := <-s.clipLoader.Results():
			s.handleClipResult(r)
		default:
			return
		}
	}
}

func (s *Session) drainExports() {
	for {
		select {
		case r := <-s.exports:
			if !s.alive {
				return
			}
			if r.err != nil {
				s.setNotice("export failed: %v", r.err)
			} else {
				s.notice = ""
				logger.Info("model exported", zap.String("path", r.path))
			}
		default:
			return
		}
	}
}

// handleModelResult applies a finished model load. Stale results are
// discarded without touching the scene; failures fall back to the
// placeholder subject.
func (s *Session) handleModelResult(r assets.Result) {
	if !s.alive || s.modelLoader.Stale(r) {
		logger.Debug("discarding superseded model load", zap.String("url", r.URL))
		return
	}

	m, err := decodeModel(r)
	if err != nil {
		s.setNotice("could not load %s: %v", r.URL, err)
		m = mesh.Placeholder()
	} else {
		s.notice = ""
	}

	mesh.Normalize(m, mesh.NormalizeOptions{
		TargetHeight: s.cfg.Rig.TargetHeight,
		GroundY:      s.cfg.Rig.GroundY,
	})
	m.EnsureRenderable()
	s.installMesh(m)
}

func decodeModel(r assets.Result) (*mesh.TriMesh, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	f := formats.Detect(r.URL)
	return formats.Decode(f, r.Data)
}

// installMesh swaps in a new subject: the marker set resets and any
// skeleton or playback built for the old subject is discarded.
func (s *Session) installMesh(m *mesh.TriMesh) {
	s.mesh = m
	s.editor = rig.NewEditor(m.Bounds)
	s.skeleton = nil
	s.StopPlayback()

	if s.vp.Ready() {
		if err := s.vp.InstallMesh(m); err != nil {
			s.setNotice("viewport install failed: %v", err)
		}
		s.meshInstalled = true
	} else {
		s.meshInstalled = false
		s.vp.FrameMesh(m.Bounds)
	}
}

// handleClipResult applies a finished clip load, gating on joint-name
// compatibility before any playback state exists.
func (s *Session) handleClipResult(r assets.Result) {
	if !s.alive || s.clipLoader.Stale(r) {
		logger.Debug("discarding superseded clip load", zap.String("url", r.URL))
		return
	}
	if r.Err != nil {
		s.setNotice("could not load clip %s: %v", r.URL, r.Err)
		return
	}

	doc, err := formats.DecodeGLTFDocument(r.Data)
	if err != nil {
		s.setNotice("could not parse clip %s: %v", r.URL, err)
		return
	}
	clip, err := anim.LoadClip(doc, 0)
	if err != nil {
		if errors.Is(err, anim.ErrIncompatibleClip) {
			s.setNotice("clip %s targets no compatible joints", r.URL)
		} else {
			s.setNotice("could not load clip %s: %v", r.URL, err)
		}
		return
	}

	s.clip = clip
	s.notice = ""
	if s.skeleton != nil {
		if err := s.StartPlayback(); err != nil {
			s.setNotice("playback failed: %v", err)
		}
	}
}

// PlaceMarker stages an unplaced marker next to the subject. Placement
// changes the joint structure, so the skeleton is rebuilt rather than
// resynced.
func (s *Session) PlaceMarker(name rig.MarkerName) {
	s.editor.Place(name)
	s.rebuild()
}

// PickMarker finds the placed marker nearest to the pick ray within a
// small screen-space tolerance, for starting a drag.
func (s *Session) PickMarker(x, y float32) (rig.MarkerName, bool) {
	ray, err := s.vp.ScreenToRay(x, y)
	if err != nil {
		return "", false
	}

	const pickRadius = 0.05
	best := rig.MarkerName("")
	bestDist := float32(pickRadius)
	for _, m := range s.editor.Markers() {
		if !m.Placed {
			continue
		}
		// Distance from the ray to the marker center.
		toMarker := m.Position.Sub(ray.Origin)
		along := toMarker.Dot(ray.Direction)
		if along < 0 {
			continue
		}
		d := ray.At(along).Distance(m.Position)
		if d < bestDist {
			bestDist = d
			best = m.Name
		}
	}
	return best, best != ""
}

// BeginMarkerDrag starts dragging the named marker.
func (s *Session) BeginMarkerDrag(name rig.MarkerName) bool {
	return s.editor.BeginDrag(name)
}

// DragMarker moves the dragged marker under the cursor, snapping to the
// mesh surface when the ray hits it. The skeleton re-synthesizes so bones
// follow live.
func (s *Session) DragMarker(x, y float32) {
	ray, err := s.vp.ScreenToRay(x, y)
	if err != nil {
		return
	}
	if s.editor.Drag(ray, s.vp.Camera.ViewDirection(), s.mesh) {
		s.resync()
	}
}

// EndMarkerDrag releases the drag capture.
func (s *Session) EndMarkerDrag() {
	s.editor.EndDrag()
}

// rebuild synthesizes the skeleton from scratch. A missing root is not an
// error here: markers placed before the groin simply have no skeleton yet.
func (s *Session) rebuild() {
	sk, err := rig.Synthesize(s.editor.PlacedPositions())
	if err != nil {
		if !errors.Is(err, rig.ErrMissingRoot) {
			s.setNotice("skeleton synthesis failed: %v", err)
		}
		return
	}
	s.skeleton = sk
}

// resync updates joint offsets after a marker moved. Joint identities are
// preserved so any running playback keeps its references.
func (s *Session) resync() {
	if s.skeleton == nil {
		s.rebuild()
		return
	}
	if err := s.skeleton.Resync(s.editor.PlacedPositions()); err != nil {
		s.rebuild()
	}
}

// Synthesize builds the skeleton explicitly, surfacing a missing root.
func (s *Session) Synthesize() error {
	sk, err := rig.Synthesize(s.editor.PlacedPositions())
	if err != nil {
		s.setNotice("cannot build skeleton: %v", err)
		return err
	}
	s.skeleton = sk
	s.notice = ""
	return nil
}

// StartPlayback begins driving the skeleton with the loaded clip.
func (s *Session) StartPlayback() error {
	if s.clip == nil {
		return anim.ErrNoClip
	}
	if s.skeleton == nil {
		return rig.ErrMissingRoot
	}
	p, err := anim.Start(s.clip, s.skeleton)
	if err != nil {
		return err
	}
	p.SetSpeed(s.cfg.Playback.Speed)
	p.SetEnthusiasm(s.cfg.Playback.Enthusiasm)
	p.SetSpacing(s.cfg.Playback.Spacing)
	p.SetInPlace(s.cfg.Playback.InPlace)
	s.playback = p
	return nil
}

// StopPlayback restores the neutral pose and drops the playback state.
func (s *Session) StopPlayback() {
	if s.playback == nil {
		return
	}
	s.playback.Stop()
	s.playback = nil
}

// ExportGLB binds the mesh to the skeleton and writes a skinned GLB in
// the background. The in-memory mesh and skeleton stay untouched.
func (s *Session) ExportGLB(path string) error {
	if s.skeleton == nil {
		return rig.ErrMissingRoot
	}
	m := s.mesh.Clone()
	sk := s.skeleton.Clone()

	go func() {
		err := exportGLB(m, sk, path)
		s.exports <- exportResult{path: path, err: err}
	}()
	return nil
}

func exportGLB(m *mesh.TriMesh, sk *rig.Skeleton, path string) error {
	doc, err := bind.Bind(m, sk)
	if err != nil {
		return err
	}
	data, err := bind.EncodeGLB(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Frame assembles everything the viewport draws this frame.
func (s *Session) Frame() viewport.Frame {
	now := float64(time.Now().UnixNano()) / float64(time.Second)

	f := viewport.Frame{ActiveMarker: -1}
	for _, m := range s.editor.Markers() {
		if !m.Placed {
			continue
		}
		f.Markers = append(f.Markers, m.Position)
		f.MarkerScales = append(f.MarkerScales, s.editor.VisualScale(m.Name, now))
		// ActiveMarker indexes the compacted placed-marker list.
		if dragging, ok := s.editor.Dragging(); ok && dragging == m.Name {
			f.ActiveMarker = len(f.Markers) - 1
		}
	}

	if s.skeleton != nil {
		if s.playback != nil {
			f.Bones = anim.PoseSegments(s.skeleton, s.playback.CurrentPose())
		} else {
			for _, seg := range s.skeleton.Segments() {
				f.Bones = append(f.Bones, [2]math.Vec3{seg.From, seg.To})
			}
		}
	}
	return f
}

// Reset returns the session to a fresh state for the current subject:
// all markers unplaced, skeleton discarded, playback stopped.
func (s *Session) Reset() {
	s.editor.Reset()
	s.skeleton = nil
	s.StopPlayback()
	s.notice = ""
}

// Dispose tears the session down. The liveness flag drops first so
// results arriving later are ignored.
func (s *Session) Dispose() {
	if !s.alive {
		return
	}
	s.alive = false
	s.StopPlayback()
	s.vp.Dispose()
}

// Alive reports whether the session has not been disposed.
func (s *Session) Alive() bool { return s.alive }
