package drag

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/van-studio/internal/editor"
	"github.com/Faultbox/van-studio/internal/engine/camera"
	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/pkg/geom"
)

type countingCommitter struct{ n int }

func (c *countingCommitter) Commit() { c.n++ }

type fakePeer struct {
	suspended int
	resumed   int
	owned     *scene.Node
}

func (p *fakePeer) Suspend()                { p.suspended++ }
func (p *fakePeer) Resume()                 { p.resumed++ }
func (p *fakePeer) Owns(n *scene.Node) bool { return n != nil && n == p.owned }

func setup(t *testing.T) (*scene.Controller, *Engine, *countingCommitter) {
	t.Helper()
	sc := scene.NewController(camera.NewOrbitCamera(45, 1), 800, 800)
	hist := &countingCommitter{}
	return sc, New(sc, hist), hist
}

func furniture(t *testing.T, sc *scene.Controller, name string) *scene.Node {
	t.Helper()
	n := scene.NewNode(scene.KindFurniture, name)
	n.Meshes = []*scene.Mesh{{
		ID:       "body",
		Bounds:   geom.NewAABB(mgl64.Vec3{-0.5, -0.5, -0.5}, mgl64.Vec3{0.5, 0.5, 0.5}),
		Material: &scene.Material{Color: "#aaaaaa"},
	}}
	require.NoError(t, sc.AddNode(n))
	return n
}

// screenOf projects a world point to viewport pixels.
func screenOf(sc *scene.Controller, p mgl64.Vec3) editor.PointerEvent {
	w, h := sc.Viewport()
	clip := sc.Camera().ViewProjection().Mul4x1(p.Vec4(1))
	ndc := clip.Vec3().Mul(1 / clip[3])
	return editor.PointerEvent{
		X: (ndc[0] + 1) / 2 * float64(w),
		Y: (1 - ndc[1]) / 2 * float64(h),
	}
}

func TestAddRecordsHeight(t *testing.T) {
	sc, e, _ := setup(t)
	n := scene.NewNode(scene.KindFurniture, "shelf")
	n.Position = mgl64.Vec3{0, 1.2, 0}
	require.NoError(t, sc.AddNode(n))

	assert.True(t, e.IsDraggable(n))
	assert.True(t, n.Tags.HasHeight)
	assert.Equal(t, 1.2, n.Tags.CurrentHeight)
}

func TestVehicleIsNeverDraggable(t *testing.T) {
	sc, e, _ := setup(t)
	van := scene.NewNode(scene.KindVehicle, "sprinter")
	van.Meshes = []*scene.Mesh{{ID: "shell", Bounds: geom.NewAABB(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})}}
	require.NoError(t, sc.AddNode(van))

	assert.False(t, e.IsDraggable(van))
	assert.ErrorIs(t, e.Add(van), scene.ErrInvalidOperation)
	assert.False(t, e.PointerDown(screenOf(sc, mgl64.Vec3{})))
}

func TestDragHoldsCurrentHeight(t *testing.T) {
	sc, e, hist := setup(t)
	n := furniture(t, sc, "table")
	n.Tags.CurrentHeight = 0.5

	require.True(t, e.PointerDown(screenOf(sc, mgl64.Vec3{0, 0, 0})))
	assert.True(t, e.Dragging())
	assert.False(t, sc.Camera().Enabled(), "orbit off during drag")

	require.True(t, e.PointerMove(screenOf(sc, mgl64.Vec3{2, 0, 3})))
	require.True(t, e.PointerUp(editor.PointerEvent{}))

	assert.True(t, n.Position.ApproxEqualThreshold(mgl64.Vec3{2, 0.5, 3}, 1e-6), "got %v", n.Position)
	assert.True(t, sc.Camera().Enabled())
	assert.False(t, e.Dragging())
	assert.Equal(t, 1, hist.n)
}

func TestDragKeepsGrabOffset(t *testing.T) {
	sc, e, _ := setup(t)
	n := furniture(t, sc, "table")

	// Grab the front-right of the table rather than its centre.
	require.True(t, e.PointerDown(screenOf(sc, mgl64.Vec3{0.3, 0, 0.3})))
	e.PointerMove(screenOf(sc, mgl64.Vec3{1.3, 0, 0.3}))
	e.PointerUp(editor.PointerEvent{})

	assert.True(t, n.Position.ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, 1e-6), "got %v", n.Position)
}

func TestTinyDragDoesNotCommit(t *testing.T) {
	sc, e, hist := setup(t)
	furniture(t, sc, "table")

	ev := screenOf(sc, mgl64.Vec3{})
	require.True(t, e.PointerDown(ev))
	e.PointerMove(ev)
	e.PointerUp(ev)
	assert.Zero(t, hist.n)
}

func TestIgnoresOtherButtonsAndMisses(t *testing.T) {
	sc, e, _ := setup(t)
	furniture(t, sc, "table")

	ev := screenOf(sc, mgl64.Vec3{})
	ev.Button = editor.ButtonSecondary
	assert.False(t, e.PointerDown(ev))
	assert.False(t, e.PointerDown(editor.PointerEvent{X: 2, Y: 2}))
	assert.False(t, e.PointerMove(ev))
	assert.False(t, e.PointerUp(ev))
}

func TestDisableAbortsDrag(t *testing.T) {
	sc, e, hist := setup(t)
	n := furniture(t, sc, "table")

	require.True(t, e.PointerDown(screenOf(sc, mgl64.Vec3{})))
	e.PointerMove(screenOf(sc, mgl64.Vec3{1, 0, 1}))
	e.Disable()

	assert.False(t, e.Dragging())
	assert.True(t, sc.Camera().Enabled())
	assert.Equal(t, mgl64.Vec3{}, n.Position, "no residue from the aborted drag")
	assert.False(t, e.PointerDown(screenOf(sc, mgl64.Vec3{})))
	assert.Zero(t, hist.n)

	assert.True(t, e.Toggle())
	assert.True(t, e.Live())
}

func TestRemoveMidDrag(t *testing.T) {
	sc, e, hist := setup(t)
	n := furniture(t, sc, "table")

	require.True(t, e.PointerDown(screenOf(sc, mgl64.Vec3{})))
	require.NoError(t, sc.RemoveNode(n))

	assert.False(t, e.Dragging())
	assert.False(t, e.IsDraggable(n))
	assert.True(t, sc.Camera().Enabled())
	assert.False(t, e.PointerMove(screenOf(sc, mgl64.Vec3{1, 0, 1})))
	assert.False(t, e.PointerUp(editor.PointerEvent{}))
	assert.Zero(t, hist.n)
}

func TestPeerCoordination(t *testing.T) {
	sc, e, _ := setup(t)
	n := furniture(t, sc, "table")
	peer := &fakePeer{owned: n}
	e.SetPeer(peer)

	assert.False(t, e.PointerDown(screenOf(sc, mgl64.Vec3{})), "node held by the gizmo")

	peer.owned = nil
	require.True(t, e.PointerDown(screenOf(sc, mgl64.Vec3{})))
	assert.Equal(t, 1, peer.suspended)
	assert.True(t, e.Owns(n))
	e.PointerUp(editor.PointerEvent{})
	assert.Equal(t, 1, peer.resumed)
}

func TestSuspendedEngineIgnoresPointer(t *testing.T) {
	sc, e, _ := setup(t)
	furniture(t, sc, "table")

	e.Suspend()
	assert.False(t, e.Live())
	assert.False(t, e.PointerDown(screenOf(sc, mgl64.Vec3{})))
	e.Resume()
	assert.True(t, e.PointerDown(screenOf(sc, mgl64.Vec3{})))
}
