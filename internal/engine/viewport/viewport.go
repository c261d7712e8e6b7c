// Package viewport owns the 3D view: window and GL bring-up with bounded
// retries, the orbit camera, screen-to-world picking, and per-frame
// drawing. Bring-up failures degrade to a terminal "3D unavailable" state
// instead of tearing the application down.
package viewport

import (
	"errors"
	"fmt"
	gomath "math"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/rigbench/internal/engine/camera"
	"github.com/Faultbox/rigbench/internal/engine/picking"
	"github.com/Faultbox/rigbench/internal/engine/renderer"
	"github.com/Faultbox/rigbench/internal/engine/window"
	"github.com/Faultbox/rigbench/internal/logger"
	"github.com/Faultbox/rigbench/pkg/math"
	"github.com/Faultbox/rigbench/pkg/mesh"
)

// ErrUnavailable is returned by operations that need a live GL context
// after initialization has terminally failed or the viewport was disposed.
var ErrUnavailable = errors.New("3D viewport unavailable")

// State is the viewport initialization state.
type State int

const (
	StateNotStarted State = iota
	StateRetrying
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateRetrying:
		return "retrying"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

const (
	maxInitAttempts = 8
	retryBackoff    = 250 * time.Millisecond
)

// Config holds viewport configuration.
type Config struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	VSync      bool
	FOVDegrees float32
	ShowGrid   bool
}

// Viewport drives window/GL initialization and rendering. All methods must
// be called from the render goroutine.
type Viewport struct {
	cfg Config

	state     State
	attempts  int
	nextRetry time.Time
	alive     bool

	win    *window.Window
	rend   *renderer.Renderer
	Camera *camera.OrbitCamera

	width  int
	height int

	// initFn performs one bring-up attempt. Tests substitute it to drive
	// the state machine without a GPU.
	initFn func() error
}

// New creates a viewport in the NotStarted state. Nothing touches SDL or
// GL until the first Tick.
func New(cfg Config) *Viewport {
	v := &Viewport{
		cfg:    cfg,
		state:  StateNotStarted,
		alive:  true,
		Camera: camera.NewOrbitCamera(),
		width:  cfg.Width,
		height: cfg.Height,
	}
	v.initFn = v.initGL
	return v
}

// State returns the current initialization state.
func (v *Viewport) State() State { return v.state }

// Alive reports whether the viewport has not been disposed. Callbacks that
// may arrive after teardown must check it before touching resources.
func (v *Viewport) Alive() bool { return v.alive }

// Ready reports whether rendering operations are available.
func (v *Viewport) Ready() bool { return v.alive && v.state == StateReady }

// Tick advances the initialization state machine. It attempts bring-up
// when due, schedules a bounded retry on failure, and is a no-op once the
// viewport is Ready, Failed, or disposed.
func (v *Viewport) Tick(now time.Time) {
	if !v.alive || v.state == StateReady || v.state == StateFailed {
		return
	}
	if v.state == StateRetrying && now.Before(v.nextRetry) {
		return
	}

	v.attempts++
	err := v.initFn()
	if err == nil {
		v.state = StateReady
		logger.Info("viewport ready", zap.Int("attempt", v.attempts))
		return
	}

	if v.attempts >= maxInitAttempts {
		v.state = StateFailed
		logger.Error("viewport initialization failed permanently",
			zap.Int("attempts", v.attempts),
			zap.Error(err),
		)
		return
	}

	v.state = StateRetrying
	v.nextRetry = now.Add(retryBackoff)
	logger.Warn("viewport initialization failed, will retry",
		zap.Int("attempt", v.attempts),
		zap.Error(err),
	)
}

// Attempts returns how many bring-up attempts have run.
func (v *Viewport) Attempts() int { return v.attempts }

// initGL performs one real window+renderer bring-up attempt.
func (v *Viewport) initGL() error {
	win, err := window.New(window.Config{
		Title:      v.cfg.Title,
		Width:      v.cfg.Width,
		Height:     v.cfg.Height,
		Fullscreen: v.cfg.Fullscreen,
		VSync:      v.cfg.VSync,
	})
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}

	rend, err := renderer.New(renderer.Config{Width: v.cfg.Width, Height: v.cfg.Height})
	if err != nil {
		win.Close()
		return fmt.Errorf("creating renderer: %w", err)
	}

	v.win = win
	v.rend = rend
	return nil
}

// Window exposes the underlying window for event polling and buffer swaps.
func (v *Viewport) Window() *window.Window { return v.win }

// Resize updates the GL viewport and the picking aspect ratio.
func (v *Viewport) Resize(width, height int) {
	v.width = width
	v.height = height
	if v.Ready() {
		v.rend.Resize(width, height)
	}
}

// projection returns the current projection matrix.
func (v *Viewport) projection() math.Mat4 {
	fov := v.cfg.FOVDegrees * float32(gomath.Pi) / 180
	aspect := float32(v.width) / float32(v.height)
	return math.Perspective(fov, aspect, 0.01, 100)
}

// ScreenToRay converts window pixel coordinates into a world-space picking
// ray through the current camera.
func (v *Viewport) ScreenToRay(x, y float32) (picking.Ray, error) {
	if !v.Ready() {
		return picking.Ray{}, ErrUnavailable
	}
	viewProj := v.projection().Mul(v.Camera.ViewMatrix())
	inv := viewProj.Inverse()
	return picking.ScreenToRay(x, y, float32(v.width), float32(v.height), inv), nil
}

// FrameMesh aims the camera so the mesh bounds fill the view.
func (v *Viewport) FrameMesh(b mesh.Bounds) {
	fov := v.cfg.FOVDegrees * float32(gomath.Pi) / 180
	v.Camera.FrameBounds(b.Min, b.Max, fov)
}

// InstallMesh uploads a mesh to the GPU and frames it.
func (v *Viewport) InstallMesh(m *mesh.TriMesh) error {
	if !v.Ready() {
		return ErrUnavailable
	}
	v.rend.UploadMesh(m)
	v.FrameMesh(m.Bounds)
	return nil
}

// ReleaseMesh frees the GPU buffers of the installed mesh. Safe to call in
// any state; stale load results use it to discard their upload.
func (v *Viewport) ReleaseMesh() {
	if v.Ready() {
		v.rend.ReleaseMesh()
	}
}

// Frame describes everything drawn in one render pass.
type Frame struct {
	Markers      []math.Vec3
	MarkerScales []float32
	ActiveMarker int
	Bones        [][2]math.Vec3
}

// Render draws the scene and swaps buffers.
func (v *Viewport) Render(f Frame) error {
	if !v.Ready() {
		return ErrUnavailable
	}
	viewProj := v.projection().Mul(v.Camera.ViewMatrix())

	v.rend.Begin()
	if v.cfg.ShowGrid {
		v.rend.DrawGrid(viewProj)
	}
	v.rend.DrawMesh(viewProj)
	v.rend.DrawBones(viewProj, f.Bones)
	v.rend.DrawMarkers(viewProj, f.Markers, f.MarkerScales, f.ActiveMarker)
	v.rend.End()
	v.win.SwapBuffers()
	return nil
}

// Dispose tears the viewport down and releases every GPU resource. The
// liveness flag drops first so late callbacks see a dead viewport.
func (v *Viewport) Dispose() {
	if !v.alive {
		return
	}
	v.alive = false
	if v.rend != nil {
		v.rend.Close()
		v.rend = nil
	}
	if v.win != nil {
		v.win.Close()
		v.win = nil
	}
	v.state = StateFailed
}
