// Package drag slides furniture along the floor plane without the gizmo.
package drag

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/editor"
	"github.com/Faultbox/van-studio/internal/logger"
	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/pkg/geom"
)

// DefaultEpsilon is the smallest displacement that produces an undo step.
const DefaultEpsilon = 1e-3

// Engine implements ground-plane dragging of registered nodes.
type Engine struct {
	scene   *scene.Controller
	history editor.Committer
	peer    editor.Peer

	draggables map[uint32]*scene.Node

	enabled   bool
	suspended bool

	node     *scene.Node
	offset   mgl64.Vec3
	startPos mgl64.Vec3
	height   float64

	// Epsilon is the displacement below which a drag is not committed.
	Epsilon float64

	unsubscribe []func()
	log         *zap.Logger
}

// New creates an enabled engine that tracks furniture added to or removed from sc.
func New(sc *scene.Controller, history editor.Committer) *Engine {
	e := &Engine{
		scene:      sc,
		history:    history,
		draggables: make(map[uint32]*scene.Node),
		enabled:    true,
		Epsilon:    DefaultEpsilon,
		log:        logger.Named("drag"),
	}
	e.unsubscribe = append(e.unsubscribe,
		sc.OnNodeAdded(func(n *scene.Node) {
			if n.Draggable() {
				_ = e.Add(n)
			}
		}),
		sc.OnNodeRemoved(func(n *scene.Node) { e.Remove(n) }),
	)
	for _, n := range sc.Objects() {
		if n.Draggable() {
			_ = e.Add(n)
		}
	}
	return e
}

// SetPeer sets the tool that must stand down while a drag runs.
func (e *Engine) SetPeer(p editor.Peer) { e.peer = p }

// Close stops listening to the scene.
func (e *Engine) Close() {
	e.abort()
	for _, u := range e.unsubscribe {
		u()
	}
	e.unsubscribe = nil
}

// Add registers n as draggable and records its current Y as its resting height.
func (e *Engine) Add(n *scene.Node) error {
	if n == nil || !n.Draggable() {
		return fmt.Errorf("%w: %s", scene.ErrNotDraggable, n)
	}
	n.Tags.CurrentHeight = n.Position.Y()
	n.Tags.HasHeight = true
	e.draggables[n.ID] = n
	return nil
}

// Remove unregisters n, aborting a drag on it.
func (e *Engine) Remove(n *scene.Node) {
	if n == nil {
		return
	}
	if e.node == n {
		e.log.Debug("draggable removed mid-drag", zap.Stringer("node", n))
		e.node = nil
		e.finish()
	}
	if e.draggables[n.ID] == n {
		delete(e.draggables, n.ID)
	}
}

// IsDraggable reports whether n is registered.
func (e *Engine) IsDraggable(n *scene.Node) bool {
	return n != nil && e.draggables[n.ID] == n
}

// Enabled reports whether the user has dragging switched on.
func (e *Engine) Enabled() bool { return e.enabled }

// Enable switches dragging on.
func (e *Engine) Enable() { e.enabled = true }

// Disable switches dragging off, aborting a drag in progress.
func (e *Engine) Disable() {
	e.abort()
	e.enabled = false
}

// Toggle flips the enabled state and returns it.
func (e *Engine) Toggle() bool {
	if e.enabled {
		e.Disable()
	} else {
		e.Enable()
	}
	return e.enabled
}

// Live reports whether the engine would accept a pointer-down right now.
func (e *Engine) Live() bool { return e.enabled && !e.suspended }

// Dragging reports whether a drag is in progress.
func (e *Engine) Dragging() bool { return e.node != nil }

// Suspend puts the engine on hold, aborting a drag in progress.
func (e *Engine) Suspend() {
	e.abort()
	e.suspended = true
}

// Resume lifts a Suspend.
func (e *Engine) Resume() { e.suspended = false }

// Owns reports whether n is being dragged.
func (e *Engine) Owns(n *scene.Node) bool { return n != nil && e.node == n }

func (e *Engine) groundHit(ev editor.PointerEvent) (mgl64.Vec3, bool) {
	w, h := e.scene.Viewport()
	ray := e.scene.Camera().Ray(ev.X, ev.Y, w, h)
	return ray.IntersectPlane(mgl64.Vec3{}, geom.AxisY)
}

// PointerDown starts a drag when the primary button lands on a draggable node.
// It returns true when the event was consumed.
func (e *Engine) PointerDown(ev editor.PointerEvent) bool {
	if !e.Live() || e.node != nil || ev.Button != editor.ButtonPrimary {
		return false
	}
	n := e.scene.Pick(ev.X, ev.Y)
	if !e.IsDraggable(n) {
		return false
	}
	if e.peer != nil && e.peer.Owns(n) {
		return false
	}
	hit, ok := e.groundHit(ev)
	if !ok {
		return false
	}

	e.node = n
	e.offset = n.Position.Sub(hit)
	e.startPos = n.Position
	e.height = n.Position.Y()
	if n.Tags.HasHeight {
		e.height = n.Tags.CurrentHeight
	}

	e.scene.Camera().SetEnabled(false)
	if e.peer != nil {
		e.peer.Suspend()
	}
	e.log.Debug("drag start", zap.Stringer("node", n), zap.Float64("height", e.height))
	return true
}

// PointerMove slides the dragged node. Y stays at the node's resting height.
func (e *Engine) PointerMove(ev editor.PointerEvent) bool {
	n := e.node
	if n == nil {
		return false
	}
	if !e.scene.Contains(n) {
		e.node = nil
		e.finish()
		return false
	}
	hit, ok := e.groundHit(ev)
	if !ok {
		return true
	}
	n.Position = mgl64.Vec3{hit.X() + e.offset.X(), e.height, hit.Z() + e.offset.Z()}
	return true
}

// PointerUp ends the drag and commits it when the node actually moved.
func (e *Engine) PointerUp(editor.PointerEvent) bool {
	n := e.node
	if n == nil {
		return false
	}
	e.node = nil
	e.finish()

	n.Tags.CurrentHeight = n.Position.Y()
	n.Tags.HasHeight = true
	moved := n.Position.Sub(e.startPos).Len()
	if moved > e.Epsilon && e.history != nil {
		e.log.Debug("drag commit", zap.Stringer("node", n), zap.Float64("distance", moved))
		e.history.Commit()
	}
	return true
}

// abort cancels a drag and puts the node back where it started.
func (e *Engine) abort() {
	n := e.node
	if n == nil {
		return
	}
	e.node = nil
	n.Position = e.startPos
	e.finish()
	e.log.Debug("drag aborted", zap.Stringer("node", n))
}

func (e *Engine) finish() {
	e.scene.Camera().SetEnabled(true)
	if e.peer != nil {
		e.peer.Resume()
	}
}
