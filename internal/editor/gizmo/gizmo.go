// Package gizmo implements the transform gizmo: an invisible proxy placed at the
// selected node's bounding-box centre whose per-frame changes are converted into
// translate, snapped rotate-about-centre and centre-preserving scale of the node.
package gizmo

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/editor"
	"github.com/Faultbox/van-studio/internal/logger"
	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/pkg/geom"
)

// ErrNilNode is returned when attaching nothing.
var ErrNilNode = fmt.Errorf("%w: attach nil node", scene.ErrInvalidOperation)

// Defaults.
const (
	DefaultSnapAngle = 5.0 // degrees
	rawRotateEpsilon = 0.001
)

// State is the gizmo lifecycle state.
type State uint8

const (
	Detached State = iota
	AttachedIdle
	Dragging
)

func (s State) String() string {
	switch s {
	case Detached:
		return "detached"
	case AttachedIdle:
		return "attached-idle"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Proxy is the invisible helper the gizmo handles move. Rotation is XYZ Euler radians.
type Proxy struct {
	Position mgl64.Vec3
	Rotation geom.Euler
	Scale    mgl64.Vec3
	Visible  bool
}

// InteractionEvent reports the start or end of a handle drag.
type InteractionEvent struct {
	Node    *scene.Node
	Mode    editor.Mode
	Started bool
	// Aborted is set when the interaction ended by detach rather than release.
	Aborted bool
}

// Controller is the transform gizmo. It is driven from the main loop only.
type Controller struct {
	scene   *scene.Controller
	history editor.Committer
	peer    editor.Peer

	state  State
	mode   editor.Mode
	active *scene.Node
	proxy  *Proxy

	// Visible handles per axis. Vehicles only get the vertical rotation ring.
	show [3]bool

	objectCenter mgl64.Vec3
	lastPos      mgl64.Vec3
	lastRot      geom.Euler
	lastScale    mgl64.Vec3
	acc          [3]float64

	snapEnabled bool
	snapAngle   float64 // degrees
	sensitivity float64

	suspended bool
	gesture   gesture

	// AttachVehicles gives vehicles the restricted gizmo on selection.
	AttachVehicles bool

	interaction scene.Signal[InteractionEvent]
	unsubscribe []func()
	log         *zap.Logger
}

// New creates a detached gizmo that follows the selection of sc.
func New(sc *scene.Controller, history editor.Committer) *Controller {
	g := &Controller{
		scene:          sc,
		history:        history,
		mode:           editor.ModeTranslate,
		lastScale:      mgl64.Vec3{1, 1, 1},
		snapEnabled:    true,
		snapAngle:      DefaultSnapAngle,
		sensitivity:    1,
		AttachVehicles: true,
		log:            logger.Named("gizmo"),
	}
	g.unsubscribe = append(g.unsubscribe,
		sc.OnSelected(func(e scene.SelectionEvent) {
			if e.Repeat {
				return
			}
			if e.Node.IsFurniture() || (e.Node.IsVehicle() && g.AttachVehicles) {
				if err := g.Attach(e.Node); err != nil {
					g.log.Warn("attach on select", zap.Error(err))
				}
			}
		}),
		sc.OnDeselected(func(*scene.Node) { g.Detach() }),
		sc.OnNodeRemoved(func(n *scene.Node) {
			if g.active == n {
				g.Detach()
			}
		}),
	)
	return g
}

// SetPeer sets the tool that must stand down while a handle is dragged.
func (g *Controller) SetPeer(p editor.Peer) { g.peer = p }

// Close detaches and stops following the scene.
func (g *Controller) Close() {
	g.Detach()
	for _, u := range g.unsubscribe {
		u()
	}
	g.unsubscribe = nil
}

// OnInteraction subscribes to handle drag start and end.
func (g *Controller) OnInteraction(fn func(InteractionEvent)) func() {
	return g.interaction.Subscribe(fn)
}

// State returns the lifecycle state.
func (g *Controller) State() State { return g.state }

// Mode returns the transform mode.
func (g *Controller) Mode() editor.Mode { return g.mode }

// Active returns the attached node or nil.
func (g *Controller) Active() *scene.Node { return g.active }

// Proxy returns the helper the handles are drawn around, nil when detached.
func (g *Controller) Proxy() *Proxy { return g.proxy }

// ShowAxis reports whether the handle for axis i is exposed.
func (g *Controller) ShowAxis(i int) bool { return g.active != nil && g.show[i] }

// ObjectCenter returns the pivot used for rotation and scale.
func (g *Controller) ObjectCenter() mgl64.Vec3 { return g.objectCenter }

// Accumulators returns the unapplied snapped rotation per axis, in radians.
func (g *Controller) Accumulators() [3]float64 { return g.acc }

// Live reports whether the gizmo would accept a handle grab.
func (g *Controller) Live() bool { return g.active != nil && !g.suspended }

// Suspend puts the gizmo on hold while another tool owns the pointer.
func (g *Controller) Suspend() {
	if g.state == Dragging {
		g.abortInteraction()
	}
	g.suspended = true
}

// Resume lifts a Suspend.
func (g *Controller) Resume() { g.suspended = false }

// Owns reports whether n is attached.
func (g *Controller) Owns(n *scene.Node) bool { return n != nil && g.active == n }

// SnapEnabled reports whether rotation snaps.
func (g *Controller) SnapEnabled() bool { return g.snapEnabled }

// SetSnapEnabled turns rotation snapping on or off and clears the accumulators.
func (g *Controller) SetSnapEnabled(on bool) {
	g.snapEnabled = on
	g.acc = [3]float64{}
}

// ToggleSnap flips rotation snapping and returns the new state.
func (g *Controller) ToggleSnap() bool {
	g.SetSnapEnabled(!g.snapEnabled)
	return g.snapEnabled
}

// SnapAngle returns the snap increment in degrees.
func (g *Controller) SnapAngle() float64 { return g.snapAngle }

// SetSnapAngle sets the snap increment in degrees.
func (g *Controller) SetSnapAngle(deg float64) error {
	if deg <= 0 || math.IsNaN(deg) {
		return fmt.Errorf("%w: snap angle %.3f", scene.ErrInvalidOperation, deg)
	}
	g.snapAngle = deg
	g.acc = [3]float64{}
	return nil
}

// SetRotationSensitivity scales rotation deltas, 0 < s <= 1.
func (g *Controller) SetRotationSensitivity(s float64) error {
	if s <= 0 || s > 1 {
		return fmt.Errorf("%w: rotation sensitivity %.3f", scene.ErrInvalidOperation, s)
	}
	g.sensitivity = s
	return nil
}

// Attach binds the gizmo to n through a proxy at n's bounding-box centre.
// Attaching the already attached node changes nothing.
func (g *Controller) Attach(n *scene.Node) error {
	if n == nil {
		g.log.Error("attach called without a node")
		return ErrNilNode
	}
	if !g.scene.Contains(n) {
		return fmt.Errorf("%w: attach %s not in scene", scene.ErrInvalidOperation, n)
	}
	if !n.Pickable() {
		return fmt.Errorf("%w: attach %s node", scene.ErrInvalidOperation, n.Kind)
	}
	if g.active == n {
		return nil
	}
	if g.active != nil {
		g.Detach()
	}

	g.active = n
	if !n.Tags.HasHeight {
		n.Tags.CurrentHeight = n.Position.Y()
		n.Tags.HasHeight = true
	}
	if n.IsVehicle() {
		g.mode = editor.ModeRotate
		g.show = [3]bool{false, true, false}
	} else {
		g.show = [3]bool{true, true, true}
	}

	g.proxy = &Proxy{Scale: mgl64.Vec3{1, 1, 1}, Visible: true}
	g.recenter()
	g.state = AttachedIdle
	g.log.Debug("attached", zap.Stringer("node", n), zap.Stringer("mode", g.mode))
	return nil
}

// Detach releases the node, aborting a handle drag in progress. No-op when detached.
func (g *Controller) Detach() {
	n := g.active
	if n == nil {
		return
	}
	if g.state == Dragging {
		g.abortInteraction()
	}
	n.Tags.CurrentHeight = n.Position.Y()
	n.Tags.HasHeight = true

	if g.proxy != nil {
		g.proxy.Visible = false
	}
	g.proxy = nil
	g.active = nil
	g.state = Detached
	g.resetTracking()
	g.log.Debug("detached", zap.Stringer("node", n))
}

// SetMode switches the transform mode and recentres the proxy.
// Vehicles only rotate.
func (g *Controller) SetMode(m editor.Mode) error {
	if g.state == Dragging {
		return fmt.Errorf("%w: change mode while dragging", scene.ErrInvalidOperation)
	}
	if g.active != nil && g.active.IsVehicle() && m != editor.ModeRotate {
		return fmt.Errorf("%w: vehicles can only be rotated", scene.ErrInvalidOperation)
	}
	g.mode = m
	if g.active != nil {
		g.recenter()
	}
	return nil
}

// Refresh recentres the proxy after the node was changed by something other than the gizmo.
func (g *Controller) Refresh() {
	if g.active != nil && g.state != Dragging {
		g.recenter()
	}
}

// recenter moves the proxy to the node's current centre and resets all delta tracking.
func (g *Controller) recenter() {
	c := g.active.Center()
	g.objectCenter = c
	g.proxy.Position = c
	g.proxy.Rotation = geom.Euler{}
	g.proxy.Scale = mgl64.Vec3{1, 1, 1}
	g.resetTracking()
}

func (g *Controller) resetTracking() {
	if g.proxy != nil {
		g.lastPos = g.proxy.Position
		g.lastRot = g.proxy.Rotation
		g.lastScale = g.proxy.Scale
	} else {
		g.lastPos = mgl64.Vec3{}
		g.lastRot = geom.Euler{}
		g.lastScale = mgl64.Vec3{1, 1, 1}
	}
	g.acc = [3]float64{}
}

// BeginInteraction starts a handle drag. It returns false when nothing is attached
// or the gizmo is suspended.
func (g *Controller) BeginInteraction() bool {
	if g.active == nil || g.suspended || g.state == Dragging {
		return false
	}
	g.state = Dragging
	g.resetTracking()
	g.scene.Camera().SetEnabled(false)
	if g.peer != nil {
		g.peer.Suspend()
	}
	g.interaction.Emit(InteractionEvent{Node: g.active, Mode: g.mode, Started: true})
	return true
}

// ObjectChange applies the proxy's change since the previous call to the node.
// Calls outside a drag or without a node are ignored.
func (g *Controller) ObjectChange() {
	n := g.active
	if n == nil || g.proxy == nil || g.state != Dragging {
		return
	}
	if !g.scene.Contains(n) {
		g.Detach()
		return
	}

	switch g.mode {
	case editor.ModeTranslate:
		if n.IsVehicle() {
			return
		}
		delta := g.proxy.Position.Sub(g.lastPos)
		n.Position = n.Position.Add(delta)
		g.lastPos = g.proxy.Position

	case editor.ModeRotate:
		g.applyRotation(n)

	case editor.ModeScale:
		if n.IsVehicle() {
			return
		}
		g.applyScale(n)
	}
}

func (g *Controller) applyRotation(n *scene.Node) {
	snapRad := mgl64.DegToRad(g.snapAngle)
	for axis := 0; axis < 3; axis++ {
		delta := geom.WrapAngle(g.proxy.Rotation[axis]-g.lastRot[axis]) * g.sensitivity
		if !g.show[axis] {
			continue
		}
		if g.snapEnabled {
			g.acc[axis] += delta
			if math.Abs(g.acc[axis]) >= snapRad-1e-9 {
				snaps := math.Floor(math.Abs(g.acc[axis])/snapRad + 1e-9)
				apply := math.Copysign(snaps*snapRad, g.acc[axis])
				g.rotate(n, axis, apply)
				g.acc[axis] -= apply
			}
		} else if math.Abs(delta) > rawRotateEpsilon {
			g.rotate(n, axis, delta)
		}
	}
	g.lastRot = g.proxy.Rotation
}

func (g *Controller) rotate(n *scene.Node, axis int, angle float64) {
	n.Position, n.Rotation = geom.RotateAroundWorldAxis(n.Position, n.Rotation, g.objectCenter, geom.Axes[axis], angle)
}

func (g *Controller) applyScale(n *scene.Node) {
	var factor mgl64.Vec3
	for i := 0; i < 3; i++ {
		if g.lastScale[i] == 0 {
			return
		}
		factor[i] = g.proxy.Scale[i] / g.lastScale[i]
	}
	n.Scale = mgl64.Vec3{n.Scale[0] * factor[0], n.Scale[1] * factor[1], n.Scale[2] * factor[2]}

	shift := g.objectCenter.Sub(n.Center())
	n.Position = n.Position.Add(shift)
	g.lastScale = g.proxy.Scale
}

// EndInteraction finishes a handle drag: the change is committed, the proxy scale
// and accumulators are reset and the node's resting height is updated.
func (g *Controller) EndInteraction() {
	if g.state != Dragging {
		return
	}
	n := g.active
	g.state = AttachedIdle
	g.gesture = gesture{}

	if g.proxy != nil {
		g.proxy.Scale = mgl64.Vec3{1, 1, 1}
	}
	g.lastScale = mgl64.Vec3{1, 1, 1}
	g.acc = [3]float64{}
	if n != nil {
		n.Tags.CurrentHeight = n.Position.Y()
		n.Tags.HasHeight = true
	}

	g.scene.Camera().SetEnabled(true)
	if g.peer != nil {
		g.peer.Resume()
	}
	if g.history != nil {
		g.history.Commit()
	}
	g.interaction.Emit(InteractionEvent{Node: n, Mode: g.mode})
}

// abortInteraction ends a drag without committing. The node keeps what was applied so far.
func (g *Controller) abortInteraction() {
	n := g.active
	g.state = AttachedIdle
	g.gesture = gesture{}
	if g.proxy != nil {
		g.proxy.Scale = mgl64.Vec3{1, 1, 1}
	}
	g.resetTracking()
	g.scene.Camera().SetEnabled(true)
	if g.peer != nil {
		g.peer.Resume()
	}
	g.interaction.Emit(InteractionEvent{Node: n, Mode: g.mode, Aborted: true})
}
