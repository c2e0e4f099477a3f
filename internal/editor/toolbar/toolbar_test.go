package toolbar

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/van-studio/internal/editor"
	"github.com/Faultbox/van-studio/internal/editor/gizmo"
	"github.com/Faultbox/van-studio/internal/engine/camera"
	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/pkg/geom"
)

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

type countingCommitter struct{ n int }

func (c *countingCommitter) Commit() { c.n++ }

type fixture struct {
	scene   *scene.Controller
	gizmo   *gizmo.Controller
	toolbar *Toolbar
	clock   *manualClock
	history *countingCommitter
	answer  bool
	asked   []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		scene:   scene.NewController(camera.NewOrbitCamera(45, 1), 800, 800),
		clock:   &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		history: &countingCommitter{},
		answer:  true,
	}
	f.gizmo = gizmo.New(f.scene, f.history)
	f.toolbar = New(f.scene, f.gizmo, f.history, ConfirmFunc(func(p string) bool {
		f.asked = append(f.asked, p)
		return f.answer
	}), f.clock)
	return f
}

// advance moves the clock forward and runs one update.
func (f *fixture) advance(d time.Duration) {
	f.clock.now = f.clock.now.Add(d)
	f.toolbar.Update(f.clock.now)
}

func (f *fixture) add(t *testing.T, kind scene.NodeKind, pos mgl64.Vec3) *scene.Node {
	t.Helper()
	n := scene.NewNode(kind, kind.String())
	n.Position = pos
	n.Meshes = []*scene.Mesh{{
		ID:       "body",
		Bounds:   geom.NewAABB(mgl64.Vec3{-0.5, -0.5, -0.5}, mgl64.Vec3{0.5, 0.5, 0.5}),
		Material: &scene.Material{Color: "#bbbbbb"},
	}}
	require.NoError(t, f.scene.AddNode(n))
	return n
}

func TestShowsAfterSelectionDelay(t *testing.T) {
	f := newFixture(t)
	n := f.add(t, scene.KindFurniture, mgl64.Vec3{})

	require.NoError(t, f.scene.Select(n))
	assert.Equal(t, Hidden, f.toolbar.State())
	assert.True(t, f.toolbar.Suppressed())

	f.advance(30 * time.Millisecond)
	assert.Equal(t, Hidden, f.toolbar.State())

	f.advance(20 * time.Millisecond)
	assert.Equal(t, VisibleIdle, f.toolbar.State())
	assert.True(t, f.toolbar.Interactive())
	assert.Same(t, n, f.toolbar.Active())

	f.advance(150 * time.Millisecond)
	assert.Greater(t, f.toolbar.Opacity(), 0.0)
	assert.Less(t, f.toolbar.Opacity(), 1.0)

	f.advance(200 * time.Millisecond)
	assert.InDelta(t, 1, f.toolbar.Opacity(), 1e-6)
}

func TestFadesOutOnDeselect(t *testing.T) {
	f := newFixture(t)
	n := f.add(t, scene.KindFurniture, mgl64.Vec3{})
	require.NoError(t, f.scene.Select(n))
	f.advance(400 * time.Millisecond)
	require.Equal(t, VisibleIdle, f.toolbar.State())

	f.scene.Deselect()
	assert.Equal(t, Hidden, f.toolbar.State())
	assert.False(t, f.toolbar.Interactive())
	f.advance(100 * time.Millisecond)
	assert.Greater(t, f.toolbar.Opacity(), 0.0, "fade, not a cut")
	f.advance(300 * time.Millisecond)
	assert.InDelta(t, 0, f.toolbar.Opacity(), 1e-6)
}

func TestNeverShowsForVehicles(t *testing.T) {
	f := newFixture(t)
	van := f.add(t, scene.KindVehicle, mgl64.Vec3{})
	require.NoError(t, f.scene.Select(van))
	f.advance(time.Second)

	assert.Equal(t, Hidden, f.toolbar.State())
	assert.Nil(t, f.toolbar.Active())
	assert.Same(t, van, f.gizmo.Active(), "vehicles still get the rotate gizmo")

	require.True(t, f.gizmo.BeginInteraction())
	assert.Equal(t, Hidden, f.toolbar.State())
	f.gizmo.EndInteraction()
	assert.Equal(t, Hidden, f.toolbar.State())
}

func TestReselectSuppressesBackgroundClick(t *testing.T) {
	f := newFixture(t)
	n := f.add(t, scene.KindFurniture, mgl64.Vec3{})
	require.NoError(t, f.scene.Select(n))
	f.advance(400 * time.Millisecond)

	require.NoError(t, f.scene.Select(n))
	assert.Equal(t, VisibleIdle, f.toolbar.State())

	f.advance(60 * time.Millisecond)
	f.toolbar.BackgroundPointerDown(editor.PointerEvent{X: 2, Y: 2})
	assert.Same(t, n, f.scene.Selected(), "ignored inside the reselect window")

	f.advance(50 * time.Millisecond)
	f.toolbar.BackgroundPointerDown(editor.PointerEvent{X: 2, Y: 2})
	assert.Nil(t, f.scene.Selected())
	assert.Nil(t, f.gizmo.Active())
	assert.Equal(t, Hidden, f.toolbar.State())
}

func TestTransformWindow(t *testing.T) {
	f := newFixture(t)
	n := f.add(t, scene.KindFurniture, mgl64.Vec3{})
	require.NoError(t, f.scene.Select(n))
	f.advance(400 * time.Millisecond)

	require.True(t, f.gizmo.BeginInteraction())
	assert.Equal(t, VisibleTransforming, f.toolbar.State())
	assert.True(t, f.toolbar.Transforming())

	f.toolbar.BackgroundPointerDown(editor.PointerEvent{X: 2, Y: 2})
	assert.Same(t, n, f.scene.Selected())

	f.gizmo.EndInteraction()
	assert.Equal(t, VisibleIdle, f.toolbar.State())
	assert.Equal(t, 1, f.history.n)

	f.advance(200 * time.Millisecond)
	f.toolbar.BackgroundPointerDown(editor.PointerEvent{X: 2, Y: 2})
	assert.Same(t, n, f.scene.Selected(), "still inside the post-transform window")

	f.advance(150 * time.Millisecond)
	assert.Equal(t, VisibleIdle, f.toolbar.State())
	f.toolbar.BackgroundPointerDown(editor.PointerEvent{X: 2, Y: 2})
	assert.Nil(t, f.scene.Selected())
	assert.Equal(t, Hidden, f.toolbar.State())
}

func TestSuppressedHideCatchesUp(t *testing.T) {
	f := newFixture(t)
	n := f.add(t, scene.KindFurniture, mgl64.Vec3{})
	require.NoError(t, f.scene.Select(n))
	f.advance(400 * time.Millisecond)
	require.True(t, f.gizmo.BeginInteraction())
	f.gizmo.EndInteraction()

	f.scene.Deselect()
	assert.Equal(t, VisibleIdle, f.toolbar.State(), "hide held back by the transform window")
	f.advance(300 * time.Millisecond)
	assert.Equal(t, Hidden, f.toolbar.State())
}

func TestPressOnOtherNodeClearsSelection(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, scene.KindFurniture, mgl64.Vec3{-3, 0, 3})
	other := f.add(t, scene.KindFurniture, mgl64.Vec3{})
	require.NoError(t, f.scene.Select(a))
	f.advance(400 * time.Millisecond)

	// The viewport centre looks at other.
	f.toolbar.BackgroundPointerDown(editor.PointerEvent{X: 400, Y: 400})
	assert.Nil(t, f.gizmo.Active())
	assert.Nil(t, f.toolbar.Active())
	assert.Equal(t, Hidden, f.toolbar.State())
	assert.Nil(t, f.scene.Selected(), "the old selection is torn down before the click")
	assert.False(t, a.Meshes[0].Outlined())

	require.NoError(t, f.scene.Select(other))
	f.advance(50 * time.Millisecond)
	assert.Same(t, other, f.toolbar.Active())
	assert.Equal(t, VisibleIdle, f.toolbar.State())
}

func TestSetMode(t *testing.T) {
	f := newFixture(t)
	n := f.add(t, scene.KindFurniture, mgl64.Vec3{})
	require.NoError(t, f.toolbar.SetMode(editor.ModeScale))
	assert.Equal(t, editor.ModeScale, f.toolbar.Mode())

	require.NoError(t, f.scene.Select(n))
	f.advance(50 * time.Millisecond)
	assert.Equal(t, editor.ModeScale, f.gizmo.Mode(), "gizmo picks up the lit button on show")

	require.NoError(t, f.toolbar.SetMode(editor.ModeRotate))
	assert.Equal(t, editor.ModeRotate, f.gizmo.Mode())
}

// Select, delete, confirm: the node is gone, the toolbar hidden, the gizmo
// detached and exactly one history entry added.
func TestDeleteConfirmed(t *testing.T) {
	f := newFixture(t)
	n := f.add(t, scene.KindFurniture, mgl64.Vec3{})
	require.NoError(t, f.scene.Select(n))
	f.advance(400 * time.Millisecond)

	ok, err := f.toolbar.Delete()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{DeletePrompt}, f.asked)
	assert.False(t, f.scene.Contains(n))
	assert.Equal(t, Hidden, f.toolbar.State())
	assert.Nil(t, f.gizmo.Active())
	assert.Nil(t, f.gizmo.Proxy())
	assert.Equal(t, 1, f.history.n)
}

func TestDeleteDeclined(t *testing.T) {
	f := newFixture(t)
	n := f.add(t, scene.KindFurniture, mgl64.Vec3{})
	require.NoError(t, f.scene.Select(n))
	f.answer = false

	ok, err := f.toolbar.Delete()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, f.scene.Contains(n))
	assert.Same(t, n, f.gizmo.Active())
	assert.Zero(t, f.history.n)
}

func TestDeleteNeedsConfirmer(t *testing.T) {
	f := newFixture(t)
	f.toolbar.Close()
	f.toolbar = New(f.scene, f.gizmo, f.history, nil, f.clock)
	n := f.add(t, scene.KindFurniture, mgl64.Vec3{})
	require.NoError(t, f.scene.Select(n))
	f.advance(400 * time.Millisecond)

	ok, err := f.toolbar.Delete()
	assert.ErrorIs(t, err, ErrNoConfirmer)
	assert.ErrorIs(t, err, scene.ErrInvalidOperation)
	assert.False(t, ok)
	assert.True(t, f.scene.Contains(n))
	assert.Zero(t, f.history.n)
}

func TestDeleteWithoutSelection(t *testing.T) {
	f := newFixture(t)
	_, err := f.toolbar.Delete()
	assert.ErrorIs(t, err, scene.ErrInvalidOperation)
	assert.Empty(t, f.asked)
}

func TestDuplicate(t *testing.T) {
	f := newFixture(t)
	n := f.add(t, scene.KindFurniture, mgl64.Vec3{1, 0.25, 1})
	n.Tags.Extra = map[string]string{"category": "kitchen"}
	require.NoError(t, f.scene.Select(n))

	clone, err := f.toolbar.Duplicate()
	require.NoError(t, err)
	assert.NotEqual(t, n.ID, clone.ID)
	assert.True(t, clone.Position.ApproxEqualThreshold(mgl64.Vec3{1.5, 0.25, 1.5}, 1e-12))
	assert.Equal(t, "kitchen", clone.Tags.Extra["category"])
	assert.Same(t, clone, f.scene.Selected())
	assert.Same(t, clone, f.gizmo.Active())
	assert.False(t, n.Meshes[0].Outlined())
	assert.True(t, clone.Meshes[0].Outlined())
	assert.Equal(t, 1, f.history.n)

	f.advance(50 * time.Millisecond)
	assert.Same(t, clone, f.toolbar.Active())
}

func TestDuplicateWithoutSelection(t *testing.T) {
	f := newFixture(t)
	_, err := f.toolbar.Duplicate()
	assert.ErrorIs(t, err, scene.ErrInvalidOperation)
	assert.Zero(t, f.history.n)
}
