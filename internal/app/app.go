// Package app implements the main workbench loop: input routing, session
// updates, and frame presentation.
package app

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/rigbench/internal/config"
	"github.com/Faultbox/rigbench/internal/engine/input"
	"github.com/Faultbox/rigbench/internal/engine/viewport"
	"github.com/Faultbox/rigbench/internal/logger"
	"github.com/Faultbox/rigbench/internal/rig"
	"github.com/Faultbox/rigbench/internal/session"
)

// control adjustment per keypress, on the 0..100 scale.
const controlStep = 5

// App is the main workbench instance.
type App struct {
	cfg     *config.Config
	session *session.Session
	input   *input.Input
	running bool

	// Control values live here so adjustments survive playback restarts.
	speed      float32
	enthusiasm float32
	spacing    float32
	inPlace    bool

	draggingMarker bool
	orbiting       bool
}

// New creates the workbench around a fresh session.
func New(cfg *config.Config) *App {
	return &App{
		cfg:        cfg,
		session:    session.New(cfg),
		input:      input.New(),
		speed:      cfg.Playback.Speed,
		enthusiasm: cfg.Playback.Enthusiasm,
		spacing:    cfg.Playback.Spacing,
		inPlace:    cfg.Playback.InPlace,
	}
}

// Session exposes the underlying session, mainly for initial asset loads.
func (a *App) Session() *session.Session { return a.session }

// Run starts the main loop and blocks until quit.
func (a *App) Run() error {
	a.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	logger.Info("starting workbench loop")

	for a.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		if a.input.Update() {
			break
		}
		for _, e := range a.input.Events() {
			a.handleEvent(e)
		}

		a.session.Update(now, dt)

		vp := a.session.Viewport()
		if vp.State() == viewport.StateFailed {
			return fmt.Errorf("viewport failed after %d attempts", vp.Attempts())
		}
		if vp.Ready() {
			if err := vp.Render(a.session.Frame()); err != nil {
				return fmt.Errorf("render error: %w", err)
			}
		} else {
			// No context yet, don't spin hot while the retry timer runs.
			time.Sleep(10 * time.Millisecond)
		}

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			logger.Debug("fps", zap.Int("count", frameCount))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

// Close saves the control settings and cleans up workbench resources.
func (a *App) Close() {
	logger.Info("closing workbench")

	a.cfg.Playback.Speed = a.speed
	a.cfg.Playback.Enthusiasm = a.enthusiasm
	a.cfg.Playback.Spacing = a.spacing
	a.cfg.Playback.InPlace = a.inPlace
	if err := a.cfg.Save(); err != nil {
		logger.Warn("saving config", zap.Error(err))
	}

	a.session.Dispose()
}

func (a *App) handleEvent(e input.Event) {
	switch e.Type {
	case input.EventQuit:
		a.running = false
	case input.EventWindowResize:
		a.session.Viewport().Resize(e.Width, e.Height)
	case input.EventKeyDown:
		a.handleKey(e.Key)
	case input.EventMouseDown:
		a.handleMouseDown(e)
	case input.EventMouseUp:
		a.handleMouseUp(e)
	case input.EventMouseMove:
		a.handleMouseMove(e)
	case input.EventMouseWheel:
		a.session.Viewport().Camera.HandleZoom(e.WheelY)
	}
}

func (a *App) handleMouseDown(e input.Event) {
	switch e.Button {
	case sdl.BUTTON_LEFT:
		if name, ok := a.session.PickMarker(float32(e.MouseX), float32(e.MouseY)); ok {
			a.draggingMarker = a.session.BeginMarkerDrag(name)
		}
	case sdl.BUTTON_RIGHT:
		a.orbiting = true
	}
}

func (a *App) handleMouseUp(e input.Event) {
	switch e.Button {
	case sdl.BUTTON_LEFT:
		if a.draggingMarker {
			a.session.EndMarkerDrag()
			a.draggingMarker = false
		}
	case sdl.BUTTON_RIGHT:
		a.orbiting = false
	}
}

func (a *App) handleMouseMove(e input.Event) {
	if a.draggingMarker {
		a.session.DragMarker(float32(e.MouseX), float32(e.MouseY))
		return
	}
	if a.orbiting {
		a.session.Viewport().Camera.HandleDrag(float32(e.RelX), float32(e.RelY))
	}
}

func (a *App) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		a.running = false

	case sdl.SCANCODE_TAB:
		a.placeNextMarker()

	case sdl.SCANCODE_RETURN:
		if err := a.session.Synthesize(); err != nil {
			logger.Warn("synthesis", zap.Error(err))
		}

	case sdl.SCANCODE_SPACE:
		a.togglePlayback()

	case sdl.SCANCODE_S:
		a.session.StopPlayback()

	case sdl.SCANCODE_I:
		a.inPlace = !a.inPlace
		if p := a.session.Playback(); p != nil {
			p.SetInPlace(a.inPlace)
		}

	case sdl.SCANCODE_R:
		a.session.Reset()

	case sdl.SCANCODE_F:
		a.session.Viewport().FrameMesh(a.session.Mesh().Bounds)

	case sdl.SCANCODE_E:
		path := fmt.Sprintf("rigbench-%s.glb", time.Now().Format("20060102-150405"))
		if err := a.session.ExportGLB(path); err != nil {
			logger.Warn("export", zap.Error(err))
		}

	case sdl.SCANCODE_UP:
		a.adjustSpeed(controlStep)
	case sdl.SCANCODE_DOWN:
		a.adjustSpeed(-controlStep)
	case sdl.SCANCODE_RIGHT:
		a.adjustEnthusiasm(controlStep)
	case sdl.SCANCODE_LEFT:
		a.adjustEnthusiasm(-controlStep)
	case sdl.SCANCODE_RIGHTBRACKET:
		a.adjustSpacing(controlStep)
	case sdl.SCANCODE_LEFTBRACKET:
		a.adjustSpacing(-controlStep)
	}
}

// placeNextMarker stages the first unplaced marker in anatomical order.
func (a *App) placeNextMarker() {
	for _, name := range rig.AllMarkers {
		if !a.session.Editor().Placed(name) {
			a.session.PlaceMarker(name)
			logger.Info("placed marker", zap.String("marker", string(name)))
			return
		}
	}
}

func (a *App) togglePlayback() {
	p := a.session.Playback()
	if p == nil {
		if err := a.session.StartPlayback(); err != nil {
			logger.Warn("playback", zap.Error(err))
			return
		}
		a.pushControls()
		return
	}
	if p.Playing() {
		p.Pause()
	} else {
		p.Resume()
	}
}

// pushControls applies the app-held control values to a fresh playback.
func (a *App) pushControls() {
	p := a.session.Playback()
	if p == nil {
		return
	}
	p.SetSpeed(a.speed)
	p.SetEnthusiasm(a.enthusiasm)
	p.SetSpacing(a.spacing)
	p.SetInPlace(a.inPlace)
}

func clampControl(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (a *App) adjustSpeed(d float32) {
	a.speed = clampControl(a.speed + d)
	if p := a.session.Playback(); p != nil {
		p.SetSpeed(a.speed)
	}
}

func (a *App) adjustEnthusiasm(d float32) {
	a.enthusiasm = clampControl(a.enthusiasm + d)
	if p := a.session.Playback(); p != nil {
		p.SetEnthusiasm(a.enthusiasm)
	}
}

func (a *App) adjustSpacing(d float32) {
	a.spacing = clampControl(a.spacing + d)
	if p := a.session.Playback(); p != nil {
		p.SetSpacing(a.spacing)
	}
}
