// Package studio wires the editing tools around one scene and exposes the
// operations the viewer and keyboard drive.
package studio

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/assets"
	"github.com/Faultbox/van-studio/internal/config"
	"github.com/Faultbox/van-studio/internal/design"
	"github.com/Faultbox/van-studio/internal/editor"
	"github.com/Faultbox/van-studio/internal/editor/drag"
	"github.com/Faultbox/van-studio/internal/editor/gizmo"
	"github.com/Faultbox/van-studio/internal/editor/history"
	"github.com/Faultbox/van-studio/internal/editor/toolbar"
	"github.com/Faultbox/van-studio/internal/engine/camera"
	"github.com/Faultbox/van-studio/internal/logger"
	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/internal/tasks"
)

// clickSlop is how far in pixels a press may travel and still count as a click.
const clickSlop = 4.0

// Loader provides models, materials and the catalog.
type Loader interface {
	history.Loader
	Catalog() *assets.Catalog
}

// Deps are the collaborators a Studio needs.
type Deps struct {
	Loader   Loader
	Store    design.Store
	Confirm  toolbar.Confirmer
	Notifier editor.Notifier
	Clock    toolbar.Clock
}

type owner uint8

const (
	ownerNone owner = iota
	ownerGizmo
	ownerDrag
	ownerOrbit
	ownerPan
)

// Studio is the editor application state. All methods must be called from the
// main loop goroutine.
type Studio struct {
	cfg *config.Config

	scene   *scene.Controller
	drag    *drag.Engine
	gizmo   *gizmo.Controller
	toolbar *toolbar.Toolbar
	history *history.Manager
	queue   *tasks.Queue

	loader   Loader
	store    design.Store
	confirm  toolbar.Confirmer
	notifier editor.Notifier
	clock    toolbar.Clock

	user       string
	designID   int64
	designName string

	owner   owner
	press   editor.PointerEvent
	last    editor.PointerEvent
	pending int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *zap.Logger
}

// New builds the scene and the tools in dependency order: scene first, then
// history, drag engine, gizmo and toolbar.
func New(cfg *config.Config, deps Deps) *Studio {
	if cfg == nil {
		cfg = config.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = toolbar.SystemClock
	}

	cam := camera.NewOrbitCamera(cfg.Viewer.FOV, 1)
	sc := scene.NewController(cam, cfg.Viewer.Width, cfg.Viewer.Height)
	queue := tasks.NewQueue()

	hist := history.New(sc, deps.Loader, queue, history.Options{
		Cap:         cfg.Editor.HistoryCap,
		Concurrency: cfg.Editor.RestoreConcurrency,
	})

	dr := drag.New(sc, hist)
	if cfg.Editor.DragEpsilon > 0 {
		dr.Epsilon = cfg.Editor.DragEpsilon
	}

	gz := gizmo.New(sc, hist)
	gz.SetSnapEnabled(cfg.Editor.SnapRotation)
	log := logger.Named("studio")
	if err := gz.SetSnapAngle(cfg.Editor.SnapAngle); err != nil {
		log.Warn("snap angle from config", zap.Error(err))
	}
	if err := gz.SetRotationSensitivity(cfg.Editor.RotationSensitivity); err != nil {
		log.Warn("rotation sensitivity from config", zap.Error(err))
	}
	dr.SetPeer(gz)
	gz.SetPeer(dr)

	tb := toolbar.New(sc, gz, hist, deps.Confirm, clock)
	tb.SetTimings(toolbar.Timings{
		ShowDelay:         cfg.Editor.ShowDelay,
		ReselectSuppress:  cfg.Editor.ReselectSuppress,
		TransformSuppress: cfg.Editor.TransformSuppress,
		Fade:              cfg.Editor.FadeDuration,
	})
	off := cfg.Editor.DuplicateOffset
	tb.DuplicateOffset = mgl64.Vec3{off[0], off[1], off[2]}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Studio{
		cfg:      cfg,
		scene:    sc,
		drag:     dr,
		gizmo:    gz,
		toolbar:  tb,
		history:  hist,
		queue:    queue,
		loader:   deps.Loader,
		store:    deps.Store,
		confirm:  deps.Confirm,
		notifier: deps.Notifier,
		clock:    clock,
		user:     cfg.Store.User,
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}
	hist.OnRestored(func(r history.Result) {
		if r.Applied && len(r.Failed) > 0 {
			s.notify("Some items could not be restored", r.Err())
		}
	})
	return s
}

// Close cancels pending loads and detaches the tools.
func (s *Studio) Close() {
	s.cancel()
	s.wg.Wait()
	s.history.Close()
	s.toolbar.Close()
	s.gizmo.Close()
	s.drag.Close()
}

// Scene returns the scene controller.
func (s *Studio) Scene() *scene.Controller { return s.scene }

// Gizmo returns the transform gizmo.
func (s *Studio) Gizmo() *gizmo.Controller { return s.gizmo }

// Drag returns the drag engine.
func (s *Studio) Drag() *drag.Engine { return s.drag }

// Toolbar returns the selection toolbar.
func (s *Studio) Toolbar() *toolbar.Toolbar { return s.toolbar }

// History returns the undo history.
func (s *Studio) History() *history.Manager { return s.history }

// Catalog returns the loader's current catalog.
func (s *Studio) Catalog() *assets.Catalog {
	if s.loader == nil {
		return nil
	}
	return s.loader.Catalog()
}

// Queue returns the main-loop task queue.
func (s *Studio) Queue() *tasks.Queue { return s.queue }

// Busy reports whether loads or restores are still running.
func (s *Studio) Busy() bool { return s.pending > 0 || s.history.Restoring() }

// Wait blocks until every started load has posted its result. Results are
// applied by the next Update.
func (s *Studio) Wait() {
	s.wg.Wait()
	s.history.Wait()
}

// Update runs queued completions and advances the toolbar timers. Call once per frame.
func (s *Studio) Update(now time.Time) {
	s.queue.Drain()
	s.toolbar.Update(now)
}

// Resize updates the viewport.
func (s *Studio) Resize(width, height int) {
	s.scene.SetViewport(width, height)
}

func (s *Studio) notify(msg string, err error) {
	if err != nil {
		s.log.Warn(msg, zap.Error(err))
	} else {
		s.log.Info(msg)
	}
	if s.notifier != nil {
		s.notifier.Notify(msg, err)
	}
}

// PointerDown routes a press: gizmo handles first, then the toolbar's
// background handling, then the drag engine, and finally the orbit camera.
func (s *Studio) PointerDown(ev editor.PointerEvent) {
	s.press, s.last = ev, ev
	if s.gizmo.PointerDown(ev) {
		s.owner = ownerGizmo
		return
	}
	if ev.Button == editor.ButtonPrimary {
		s.toolbar.BackgroundPointerDown(ev)
	}
	if s.drag.PointerDown(ev) {
		s.owner = ownerDrag
		return
	}
	switch ev.Button {
	case editor.ButtonPrimary:
		s.owner = ownerOrbit
	default:
		s.owner = ownerPan
	}
}

// PointerMove forwards motion to whichever tool owns the press, or updates
// hover feedback when nothing is pressed.
func (s *Studio) PointerMove(ev editor.PointerEvent) {
	dx, dy := ev.X-s.last.X, ev.Y-s.last.Y
	s.last = ev
	switch s.owner {
	case ownerGizmo:
		s.gizmo.PointerMove(ev)
	case ownerDrag:
		s.drag.PointerMove(ev)
	case ownerOrbit:
		s.scene.Camera().HandleDrag(dx, dy)
	case ownerPan:
		s.scene.Camera().HandlePan(dx, dy)
	default:
		s.scene.Hover(ev.X, ev.Y)
	}
}

// PointerUp ends the press. A press that barely moved is a click: it selects
// what is under the pointer, or clears the selection on a miss.
func (s *Studio) PointerUp(ev editor.PointerEvent) {
	o := s.owner
	s.owner = ownerNone
	switch o {
	case ownerGizmo:
		s.gizmo.PointerUp(ev)
		return
	case ownerDrag:
		s.drag.PointerUp(ev)
	case ownerNone:
		return
	}
	if ev.Button != editor.ButtonPrimary {
		return
	}
	if math.Hypot(ev.X-s.press.X, ev.Y-s.press.Y) > clickSlop {
		return
	}
	s.scene.Click(ev.X, ev.Y)
}

// Wheel zooms the orbit camera.
func (s *Studio) Wheel(delta float64) {
	s.scene.Camera().HandleZoom(delta)
}

// Cursor returns the cursor to show over the viewport.
func (s *Studio) Cursor() scene.Cursor {
	if s.owner == ownerDrag || s.owner == ownerGizmo {
		return scene.CursorPointer
	}
	return s.scene.Cursor()
}
