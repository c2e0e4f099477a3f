// Package toolbar drives the floating transform toolbar shown for selected
// furniture. The panel is never removed; it fades in and out and timed
// suppression windows keep it from flickering during reselection and transforms.
package toolbar

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/editor"
	"github.com/Faultbox/van-studio/internal/editor/gizmo"
	"github.com/Faultbox/van-studio/internal/logger"
	"github.com/Faultbox/van-studio/internal/scene"
)

// DeletePrompt is the question put to the Confirmer before deleting.
const DeletePrompt = "Are you sure you want to delete this item?"

// State is the visible state of the toolbar.
type State uint8

const (
	Hidden State = iota
	VisibleIdle
	VisibleTransforming
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case VisibleIdle:
		return "visible"
	case VisibleTransforming:
		return "transforming"
	default:
		return "unknown"
	}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// ErrNoConfirmer is returned by Delete when no Confirmer was supplied.
var ErrNoConfirmer = fmt.Errorf("%w: delete needs a confirmer", scene.ErrInvalidOperation)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Timings holds the suppression windows and the fade length.
type Timings struct {
	ShowDelay         time.Duration // new selection to visible
	ReselectSuppress  time.Duration // hide requests ignored after reselecting the same node
	TransformSuppress time.Duration // hide requests ignored after a transform ends
	Fade              time.Duration
}

// DefaultTimings returns the stock toolbar timings.
func DefaultTimings() Timings {
	return Timings{
		ShowDelay:         50 * time.Millisecond,
		ReselectSuppress:  100 * time.Millisecond,
		TransformSuppress: 300 * time.Millisecond,
		Fade:              300 * time.Millisecond,
	}
}

// DefaultDuplicateOffset is added to a duplicate's position.
var DefaultDuplicateOffset = mgl64.Vec3{0.5, 0, 0.5}

// Toolbar is the selection toolbar state machine.
type Toolbar struct {
	scene   *scene.Controller
	gizmo   *gizmo.Controller
	history editor.Committer
	confirm Confirmer
	clock   Clock
	timings Timings

	// DuplicateOffset is added to the position of duplicated nodes.
	DuplicateOffset mgl64.Vec3

	state  State
	mode   editor.Mode
	active *scene.Node

	reselecting   bool
	showAt        time.Time
	suppressUntil time.Time
	restoreAt     time.Time

	opacity    float64
	fade       *gween.Tween
	lastUpdate time.Time

	unsubscribe []func()
	log         *zap.Logger
}

// New creates a hidden toolbar bound to the scene selection and the gizmo.
func New(sc *scene.Controller, gz *gizmo.Controller, history editor.Committer, confirm Confirmer, clock Clock) *Toolbar {
	if clock == nil {
		clock = SystemClock
	}
	t := &Toolbar{
		scene:           sc,
		gizmo:           gz,
		history:         history,
		confirm:         confirm,
		clock:           clock,
		timings:         DefaultTimings(),
		DuplicateOffset: DefaultDuplicateOffset,
		mode:            editor.ModeTranslate,
		lastUpdate:      clock.Now(),
		log:             logger.Named("toolbar"),
	}
	t.unsubscribe = append(t.unsubscribe,
		sc.OnSelected(t.onSelected),
		sc.OnDeselected(func(*scene.Node) { t.hide() }),
		sc.OnNodeRemoved(func(n *scene.Node) {
			if n == t.active {
				t.reset()
				t.hide()
			}
		}),
	)
	if gz != nil {
		t.unsubscribe = append(t.unsubscribe, gz.OnInteraction(t.onInteraction))
	}
	return t
}

// SetTimings replaces the suppression windows and fade length.
func (t *Toolbar) SetTimings(tm Timings) { t.timings = tm }

// Close stops listening to the scene and the gizmo.
func (t *Toolbar) Close() {
	for _, u := range t.unsubscribe {
		u()
	}
	t.unsubscribe = nil
}

// State returns the toolbar state.
func (t *Toolbar) State() State { return t.state }

// Visible reports whether the toolbar is logically shown.
func (t *Toolbar) Visible() bool { return t.state != Hidden }

// Interactive reports whether the buttons accept input.
func (t *Toolbar) Interactive() bool { return t.state != Hidden }

// Opacity returns the current fade value in [0, 1].
func (t *Toolbar) Opacity() float64 { return t.opacity }

// Mode returns the mode button that is lit.
func (t *Toolbar) Mode() editor.Mode { return t.mode }

// Active returns the node the toolbar acts on.
func (t *Toolbar) Active() *scene.Node { return t.active }

// Transforming reports whether a gizmo interaction is running.
func (t *Toolbar) Transforming() bool { return t.state == VisibleTransforming }

// Suppressed reports whether hide requests are currently ignored.
func (t *Toolbar) Suppressed() bool {
	return t.reselecting || t.state == VisibleTransforming || t.clock.Now().Before(t.suppressUntil)
}

func (t *Toolbar) onSelected(e scene.SelectionEvent) {
	n := e.Node
	if !n.IsFurniture() {
		t.reset()
		t.hide()
		return
	}
	now := t.clock.Now()
	if e.Repeat && n == t.active {
		t.suppressUntil = now.Add(t.timings.ReselectSuppress)
		t.show()
		return
	}
	t.active = n
	t.reselecting = true
	t.showAt = now.Add(t.timings.ShowDelay)
}

func (t *Toolbar) onInteraction(e gizmo.InteractionEvent) {
	if e.Node == nil || !e.Node.IsFurniture() {
		return
	}
	now := t.clock.Now()
	if e.Started {
		t.active = e.Node
		t.setState(VisibleTransforming)
		return
	}
	if t.state == VisibleTransforming {
		t.setState(VisibleIdle)
	}
	if e.Aborted {
		return
	}
	t.suppressUntil = now.Add(t.timings.TransformSuppress)
	t.restoreAt = t.suppressUntil
}

func (t *Toolbar) show() {
	if t.active == nil {
		return
	}
	if t.state == Hidden {
		t.setState(VisibleIdle)
	}
	if t.gizmo != nil && t.gizmo.Active() == t.active && t.gizmo.Mode() != t.mode {
		if err := t.gizmo.SetMode(t.mode); err != nil {
			t.log.Debug("sync mode", zap.Error(err))
		}
	}
}

// hide fades the toolbar out unless a suppression window is open.
func (t *Toolbar) hide() {
	if t.Suppressed() {
		t.log.Debug("hide suppressed")
		return
	}
	t.setState(Hidden)
}

// reset clears the bookkeeping that keeps the toolbar up.
func (t *Toolbar) reset() {
	t.active = nil
	t.reselecting = false
	t.showAt = time.Time{}
	t.restoreAt = time.Time{}
	t.suppressUntil = time.Time{}
	if t.state == VisibleTransforming {
		t.state = VisibleIdle
	}
}

func (t *Toolbar) setState(s State) {
	if s == t.state {
		return
	}
	wasVisible := t.state != Hidden
	t.state = s
	if wasVisible != (s != Hidden) {
		target := float32(0)
		if s != Hidden {
			target = 1
		}
		t.fade = gween.New(float32(t.opacity), target, float32(t.timings.Fade.Seconds()), ease.OutQuad)
	}
	t.log.Debug("state", zap.Stringer("state", s), zap.Stringer("node", t.active))
}

// Update advances the timers and the fade to now.
func (t *Toolbar) Update(now time.Time) {
	dt := now.Sub(t.lastUpdate)
	if dt < 0 {
		dt = 0
	}
	t.lastUpdate = now

	if t.reselecting && !now.Before(t.showAt) {
		t.reselecting = false
		if t.active != nil && t.scene.Contains(t.active) {
			t.show()
		}
	}
	if !t.restoreAt.IsZero() && !now.Before(t.restoreAt) {
		t.restoreAt = time.Time{}
		if t.active != nil && t.scene.Selected() == t.active {
			t.show()
		}
	}
	// A hide that arrived inside a suppression window is carried out once it closes.
	if t.state != Hidden && !t.Suppressed() && (t.active == nil || t.scene.Selected() != t.active) {
		t.setState(Hidden)
	}

	if t.fade != nil {
		v, done := t.fade.Update(float32(dt.Seconds()))
		t.opacity = mgl64.Clamp(float64(v), 0, 1)
		if done {
			t.fade = nil
		}
	}
}

// BackgroundPointerDown reacts to a press in the viewport that no tool consumed.
// A press on empty space or on another pickable node tears down the current
// selection; the node under the pointer is selected by the click that follows.
func (t *Toolbar) BackgroundPointerDown(ev editor.PointerEvent) {
	if t.Suppressed() {
		return
	}
	hit := t.scene.Pick(ev.X, ev.Y)
	if sel := t.scene.Selected(); hit != nil && (sel == nil || hit == sel) {
		return
	}
	t.hide()
	t.detach()
	t.scene.Deselect()
}

func (t *Toolbar) detach() {
	if t.gizmo != nil {
		t.gizmo.Detach()
	}
	t.reset()
}

// SetMode lights a mode button and switches the gizmo when it is attached.
func (t *Toolbar) SetMode(m editor.Mode) error {
	if t.gizmo != nil && t.gizmo.Active() != nil {
		if err := t.gizmo.SetMode(m); err != nil {
			return err
		}
	}
	t.mode = m
	return nil
}

// Duplicate clones the active node next to itself, selects the clone and commits.
func (t *Toolbar) Duplicate() (*scene.Node, error) {
	n := t.active
	if n == nil {
		return nil, fmt.Errorf("%w: nothing to duplicate", scene.ErrInvalidOperation)
	}
	if !n.IsFurniture() {
		return nil, fmt.Errorf("%w: duplicate %s", scene.ErrInvalidOperation, n)
	}
	clone, err := n.Clone()
	if err != nil {
		return nil, fmt.Errorf("duplicate %s: %w", n, err)
	}
	clone.Position = clone.Position.Add(t.DuplicateOffset)

	if err := t.scene.AddNode(clone); err != nil {
		return nil, err
	}
	if err := t.scene.Select(clone); err != nil {
		return nil, err
	}
	if t.history != nil {
		t.history.Commit()
	}
	t.log.Info("duplicated", zap.Stringer("from", n), zap.Stringer("to", clone))
	return clone, nil
}

// Delete removes the active node after confirmation. It reports whether the
// node was removed.
func (t *Toolbar) Delete() (bool, error) {
	n := t.active
	if n == nil {
		return false, fmt.Errorf("%w: nothing to delete", scene.ErrInvalidOperation)
	}
	if !n.Deletable() {
		return false, fmt.Errorf("%w: %s", scene.ErrNotDeletable, n)
	}
	if t.confirm == nil {
		return false, ErrNoConfirmer
	}
	if !t.confirm.Confirm(DeletePrompt) {
		return false, nil
	}

	t.detach()
	if err := t.scene.RemoveNode(n); err != nil {
		return false, err
	}
	t.hide()
	if t.history != nil {
		t.history.Commit()
	}
	t.log.Info("deleted", zap.Stringer("node", n))
	return true, nil
}
