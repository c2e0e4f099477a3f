// Package viewer runs the interactive studio window: SDL2 input, a wireframe
// OpenGL view of the scene and the key bindings for catalog actions.
package viewer

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/config"
	"github.com/Faultbox/van-studio/internal/engine/debug"
	"github.com/Faultbox/van-studio/internal/engine/input"
	"github.com/Faultbox/van-studio/internal/engine/renderer"
	"github.com/Faultbox/van-studio/internal/engine/window"
	"github.com/Faultbox/van-studio/internal/logger"
	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/internal/studio"
)

const title = "Van Studio"

// Thumbnail size for saved designs.
const (
	thumbWidth  = 320
	thumbHeight = 240
)

// noticeTTL is how long a notification stays in the title bar.
const noticeTTL = 4 * time.Second

// Viewer owns the window and drives a Studio once per frame.
type Viewer struct {
	cfg      *config.Config
	running  bool
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	shots    *debug.ScreenshotCapture

	studio  *studio.Studio
	browser *Browser

	notice      string
	noticeUntil time.Time
	lastTitle   string
	pointer     bool

	log *zap.Logger
}

// New opens the window and the GL renderer. Attach a studio with Bind before Run.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{cfg: cfg, log: logger.Named("viewer")}

	var err error
	v.window, err = window.New(window.FromViewer(title, cfg.Viewer))
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	v.renderer, err = renderer.New(renderer.Config{Width: cfg.Viewer.Width, Height: cfg.Viewer.Height})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	v.input = input.New()
	v.shots = debug.NewScreenshotCapture(cfg.Viewer.ScreenshotDir, "vanstudio")
	return v, nil
}

// Confirm asks through a modal dialog.
func (v *Viewer) Confirm(prompt string) bool { return v.window.Confirm(prompt) }

// Notify shows msg in the title bar for a few seconds. Errors also get a dialog.
func (v *Viewer) Notify(msg string, err error) {
	v.notice = msg
	v.noticeUntil = time.Now().Add(noticeTTL)
	if err != nil {
		v.window.ShowMessage(title, fmt.Sprintf("%s: %v", msg, err), true)
	}
}

// Bind attaches the studio the viewer drives.
func (v *Viewer) Bind(s *studio.Studio) {
	v.studio = s
	v.browser = NewBrowser(s, v.Notify)
	w, h := v.window.GetSize()
	s.Resize(w, h)
}

// Run starts the main loop and returns when the window closes.
func (v *Viewer) Run() error {
	if v.studio == nil {
		return fmt.Errorf("viewer: no studio bound")
	}
	v.running = true
	frames := 0
	fpsTimer := time.Now()

	v.log.Info("starting main loop")
	for v.running {
		now := time.Now()
		if v.input.Update() {
			v.running = false
			break
		}
		for _, ev := range v.input.Events() {
			v.handle(ev)
		}

		v.studio.Update(now)
		v.render()
		v.window.SwapBuffers()
		v.updateChrome(now)

		frames++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps", zap.Int("count", frames))
			frames = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

func (v *Viewer) handle(ev input.Event) {
	s := v.studio
	switch ev.Type {
	case input.EventWindowResize:
		v.renderer.Resize(ev.Width, ev.Height)
		s.Resize(ev.Width, ev.Height)
	case input.EventMouseDown:
		s.PointerDown(ev.Pointer)
	case input.EventMouseMove:
		s.PointerMove(ev.Pointer)
	case input.EventMouseUp:
		s.PointerUp(ev.Pointer)
	case input.EventWheel:
		s.Wheel(ev.Wheel)
	case input.EventKeyDown:
		if ev.Key == "f12" {
			v.screenshot()
			return
		}
		k := studio.KeyEvent{Key: ev.Key, Ctrl: ev.Ctrl, Shift: ev.Shift}
		if !v.browser.KeyDown(k) {
			s.KeyDown(k)
			return
		}
		if k.Ctrl && k.Key == "s" {
			v.thumbnail()
		}
	}
}

func (v *Viewer) render() {
	sc := v.studio.Scene()
	v.renderer.Begin()
	v.renderer.DrawLines(debug.SceneLines(sc, v.studio.Gizmo()), sc.Camera().ViewProjection(), 1)
}

// updateChrome refreshes the title bar and cursor when they change.
func (v *Viewer) updateChrome(now time.Time) {
	t := title
	if name := v.studio.DesignName(); name != "" {
		t += " - " + name
	}
	if v.studio.Busy() {
		t += " (loading)"
	}
	if v.notice != "" && now.Before(v.noticeUntil) {
		t += " | " + v.notice
	}
	if t != v.lastTitle {
		v.window.SetTitle(t)
		v.lastTitle = t
	}
	if p := v.studio.Cursor() == scene.CursorPointer; p != v.pointer {
		v.window.SetPointerCursor(p)
		v.pointer = p
	}
}

func (v *Viewer) screenshot() {
	pixels, w, h := v.renderer.ReadPixels()
	img, err := debug.FlipRGBA(pixels, w, h)
	if err != nil {
		v.Notify("Screenshot failed", err)
		return
	}
	name, err := v.shots.CaptureFromImage(img)
	if err != nil {
		v.Notify("Screenshot failed", err)
		return
	}
	v.Notify("Saved "+name, nil)
}

// thumbnail renders the scene offscreen, without gizmo handles, and stores it
// next to the saved design.
func (v *Viewer) thumbnail() {
	sc := v.studio.Scene()
	cam := *sc.Camera()
	cam.Aspect = float64(thumbWidth) / thumbHeight
	img, err := v.renderer.Thumbnail(debug.SceneLines(sc, nil), cam.ViewProjection(), thumbWidth, thumbHeight)
	if err == nil {
		err = v.studio.SaveThumbnail(img)
	}
	if err != nil {
		v.log.Warn("thumbnail", zap.Error(err))
	}
}

// Close releases the renderer and the window. The studio is closed by its owner.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}
