package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/engine/camera"
	"github.com/Faultbox/van-studio/internal/engine/lighting"
	"github.com/Faultbox/van-studio/internal/logger"
)

// ErrInvalidOperation marks requests the scene refuses, such as selecting a light.
var ErrInvalidOperation = errors.New("invalid operation")

// Refusals tied to the node kind.
var (
	ErrNotDeletable = fmt.Errorf("%w: node cannot be deleted", ErrInvalidOperation)
	ErrNotDraggable = fmt.Errorf("%w: node cannot be dragged", ErrInvalidOperation)
)

// Environment helper names.
const (
	GridName         = "grid"
	MeasurementsName = "measurements"
)

// Cursor is the pointer affordance suggested by hover picking.
type Cursor uint8

const (
	CursorDefault Cursor = iota
	CursorPointer
)

// SelectionEvent describes a selection change.
type SelectionEvent struct {
	Node *Node
	// Repeat is set when the node was already selected.
	Repeat bool
}

// Controller owns the scene graph, the camera and the selection.
// It is not safe for concurrent use; all calls happen on the main loop.
type Controller struct {
	nodes  []*Node
	byID   map[uint32]*Node
	nextID uint32

	camera   *camera.OrbitCamera
	viewport [2]int

	selected *Node
	hovered  *Node

	gridVisible         bool
	measurementsVisible bool

	selectedSig   Signal[SelectionEvent]
	deselectedSig Signal[*Node]
	addedSig      Signal[*Node]
	removedSig    Signal[*Node]

	log *zap.Logger
}

// NewController creates a scene with the default lights, a grid and a measurement helper.
func NewController(cam *camera.OrbitCamera, width, height int) *Controller {
	c := &Controller{
		byID:        make(map[uint32]*Node),
		nextID:      1,
		camera:      cam,
		viewport:    [2]int{width, height},
		gridVisible: true,
		log:         logger.Named("scene"),
	}
	cam.SetViewport(width, height)
	c.addEnvironment()
	return c
}

func (c *Controller) addEnvironment() {
	for _, l := range lighting.StudioRig() {
		n := NewNode(KindLight, l.Name)
		n.Position = l.Position
		n.Tags.Extra = l.Tags()
		_ = c.AddNode(n)
	}

	grid := NewNode(KindHelper, GridName)
	grid.Visible = c.gridVisible
	_ = c.AddNode(grid)

	meas := NewNode(KindHelper, MeasurementsName)
	meas.Visible = c.measurementsVisible
	_ = c.AddNode(meas)
}

// Camera returns the scene camera.
func (c *Controller) Camera() *camera.OrbitCamera { return c.camera }

// Viewport returns the viewport size in pixels.
func (c *Controller) Viewport() (int, int) { return c.viewport[0], c.viewport[1] }

// SetViewport records a new viewport size.
func (c *Controller) SetViewport(width, height int) {
	c.viewport = [2]int{width, height}
	c.camera.SetViewport(width, height)
}

// OnSelected subscribes to selection changes.
func (c *Controller) OnSelected(fn func(SelectionEvent)) func() { return c.selectedSig.Subscribe(fn) }

// OnDeselected subscribes to deselection.
func (c *Controller) OnDeselected(fn func(*Node)) func() { return c.deselectedSig.Subscribe(fn) }

// OnNodeAdded subscribes to node insertion.
func (c *Controller) OnNodeAdded(fn func(*Node)) func() { return c.addedSig.Subscribe(fn) }

// OnNodeRemoved subscribes to node removal.
func (c *Controller) OnNodeRemoved(fn func(*Node)) func() { return c.removedSig.Subscribe(fn) }

// AddNode inserts a top-level node. Nodes without an ID get the next free one.
func (c *Controller) AddNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("%w: add nil node", ErrInvalidOperation)
	}
	if n.parent != nil {
		return fmt.Errorf("%w: node %s already has a parent", ErrInvalidOperation, n)
	}
	var dup error
	n.Walk(func(x *Node) bool {
		if x.ID != 0 {
			if _, ok := c.byID[x.ID]; ok {
				dup = fmt.Errorf("%w: duplicate node id %d", ErrInvalidOperation, x.ID)
				return false
			}
		}
		return true
	})
	if dup != nil {
		return dup
	}

	n.Walk(func(x *Node) bool {
		if x.ID == 0 {
			x.ID = c.NextID()
		} else {
			c.Reserve(x.ID)
		}
		c.byID[x.ID] = x
		return true
	})
	c.nodes = append(c.nodes, n)

	c.log.Debug("node added", zap.Stringer("node", n))
	c.addedSig.Emit(n)
	return nil
}

// RemoveNode removes a node (top-level or nested). A selected node, or one whose
// descendant is selected, is deselected first.
func (c *Controller) RemoveNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("%w: remove nil node", ErrInvalidOperation)
	}
	if c.byID[n.ID] != n {
		return fmt.Errorf("%w: node %s is not in the scene", ErrInvalidOperation, n)
	}

	if c.selected != nil {
		for cur := c.selected; cur != nil; cur = cur.parent {
			if cur == n {
				c.Deselect()
				break
			}
		}
	}
	if c.hovered != nil && c.hovered.PickableAncestor() == n {
		c.hovered = nil
	}

	if n.parent != nil {
		n.parent.removeChild(n)
	} else {
		for i, x := range c.nodes {
			if x == n {
				c.nodes = append(c.nodes[:i], c.nodes[i+1:]...)
				break
			}
		}
	}
	n.Walk(func(x *Node) bool {
		delete(c.byID, x.ID)
		return true
	})

	c.log.Debug("node removed", zap.Stringer("node", n))
	c.removedSig.Emit(n)
	return nil
}

// Nodes returns top-level nodes in insertion order.
func (c *Controller) Nodes() []*Node {
	out := make([]*Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Objects returns the top-level vehicle and furniture nodes in insertion order.
func (c *Controller) Objects() []*Node {
	var out []*Node
	for _, n := range c.nodes {
		if n.Pickable() {
			out = append(out, n)
		}
	}
	return out
}

// Vehicle returns the first vehicle node, if any.
func (c *Controller) Vehicle() *Node {
	for _, n := range c.nodes {
		if n.IsVehicle() {
			return n
		}
	}
	return nil
}

// Find returns the node with the given id.
func (c *Controller) Find(id uint32) *Node { return c.byID[id] }

// FindByName returns the first top-level node with the given name.
func (c *Controller) FindByName(name string) *Node {
	for _, n := range c.nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// Contains reports whether n is part of the scene.
func (c *Controller) Contains(n *Node) bool {
	return n != nil && c.byID[n.ID] == n
}

// NextID returns a fresh node id.
func (c *Controller) NextID() uint32 {
	id := c.nextID
	c.nextID++
	return id
}

// Reserve makes sure future ids are larger than id.
func (c *Controller) Reserve(id uint32) {
	if id >= c.nextID {
		c.nextID = id + 1
	}
}

// Selected returns the selected node or nil.
func (c *Controller) Selected() *Node { return c.selected }

// Select makes n the single selected node. Selecting the current node again
// changes nothing visible and emits a Repeat event.
func (c *Controller) Select(n *Node) error {
	if n == nil {
		c.Deselect()
		return nil
	}
	if !c.Contains(n) {
		return fmt.Errorf("%w: select node %s not in scene", ErrInvalidOperation, n)
	}
	if !n.Pickable() {
		return fmt.Errorf("%w: select %s node %s", ErrInvalidOperation, n.Kind, n)
	}

	if c.selected == n {
		c.selectedSig.Emit(SelectionEvent{Node: n, Repeat: true})
		return nil
	}
	if c.selected != nil {
		c.Deselect()
	}

	c.selected = n
	applyOutline(n)
	c.log.Debug("selected", zap.Stringer("node", n))
	c.selectedSig.Emit(SelectionEvent{Node: n})
	return nil
}

// Deselect clears the selection. No-op when nothing is selected.
func (c *Controller) Deselect() {
	n := c.selected
	if n == nil {
		return
	}
	clearOutline(n)
	c.selected = nil
	c.log.Debug("deselected", zap.Stringer("node", n))
	c.deselectedSig.Emit(n)
}

// Pick returns the vehicle or furniture node under the pixel, or nil.
// Each mesh hit is resolved to its nearest vehicle or furniture ancestor; hits
// without one are ignored. Furniture wins over the vehicle because the vehicle
// shell's bounds enclose everything placed inside it.
func (c *Controller) Pick(x, y float64) *Node {
	ray := c.camera.Ray(x, y, c.viewport[0], c.viewport[1])

	var furniture, vehicle *Node
	bestF, bestV := math.Inf(1), math.Inf(1)
	var visit func(n *Node)
	visit = func(n *Node) {
		if !n.Visible {
			return
		}
		if owner := n.PickableAncestor(); owner != nil && len(n.Meshes) > 0 {
			w := n.WorldMatrix()
			for _, m := range n.Meshes {
				t, ok := ray.IntersectAABB(m.Bounds.Transform(w))
				if !ok {
					continue
				}
				switch owner.Kind {
				case KindFurniture:
					if t < bestF {
						bestF, furniture = t, owner
					}
				case KindVehicle:
					if t < bestV {
						bestV, vehicle = t, owner
					}
				case KindHelper, KindLight:
				}
			}
		}
		for _, ch := range n.children {
			visit(ch)
		}
	}
	for _, top := range c.nodes {
		visit(top)
	}
	if furniture != nil {
		return furniture
	}
	return vehicle
}

// Hover picks under the pointer without touching the selection and reports whether
// something selectable is there.
func (c *Controller) Hover(x, y float64) bool {
	c.hovered = c.Pick(x, y)
	return c.hovered != nil
}

// Hovered returns the node found by the last Hover call.
func (c *Controller) Hovered() *Node { return c.hovered }

// Cursor returns the pointer affordance for the last hover.
func (c *Controller) Cursor() Cursor {
	if c.hovered != nil {
		return CursorPointer
	}
	return CursorDefault
}

// Click selects the node under the pointer, or clears the selection on a miss.
func (c *Controller) Click(x, y float64) *Node {
	n := c.Pick(x, y)
	if n == nil {
		c.Deselect()
		return nil
	}
	if err := c.Select(n); err != nil {
		c.log.Warn("click select failed", zap.Error(err))
		return nil
	}
	return n
}

// ClearScene removes nodes and clears the selection. With keepEnvironment the
// lights, grid and measurement helper stay.
func (c *Controller) ClearScene(keepEnvironment bool) {
	c.Deselect()
	c.hovered = nil
	for _, n := range c.Nodes() {
		if keepEnvironment && !n.Pickable() {
			continue
		}
		if err := c.RemoveNode(n); err != nil {
			c.log.Warn("clear scene", zap.Error(err))
		}
	}
}

// GridVisible reports whether the floor grid is shown.
func (c *Controller) GridVisible() bool { return c.gridVisible }

// MeasurementsVisible reports whether the dimension overlay is shown.
func (c *Controller) MeasurementsVisible() bool { return c.measurementsVisible }

// SetGridVisible shows or hides the floor grid.
func (c *Controller) SetGridVisible(on bool) {
	c.gridVisible = on
	if g := c.FindByName(GridName); g != nil && g.Kind == KindHelper {
		g.Visible = on
	}
}

// SetMeasurementsVisible shows or hides the dimension overlay.
func (c *Controller) SetMeasurementsVisible(on bool) {
	c.measurementsVisible = on
	if m := c.FindByName(MeasurementsName); m != nil && m.Kind == KindHelper {
		m.Visible = on
	}
}

// ToggleGrid flips grid visibility and returns the new state.
func (c *Controller) ToggleGrid() bool {
	c.SetGridVisible(!c.gridVisible)
	return c.gridVisible
}

// ToggleMeasurements flips the dimension overlay and returns the new state.
func (c *Controller) ToggleMeasurements() bool {
	c.SetMeasurementsVisible(!c.measurementsVisible)
	return c.measurementsVisible
}

// PositionInFront returns a floor point ahead of the camera for new items.
func (c *Controller) PositionInFront(distance float64) mgl64.Vec3 {
	return c.camera.PositionInFront(distance)
}

// FocusOn frames n with the camera.
func (c *Controller) FocusOn(n *Node) {
	if n == nil {
		return
	}
	c.camera.FocusOnBounds(n.WorldBounds())
}
