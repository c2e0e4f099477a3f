package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/van-studio/internal/design"
	"github.com/Faultbox/van-studio/internal/editor/gizmo"
	"github.com/Faultbox/van-studio/internal/engine/camera"
	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/internal/tasks"
	"github.com/Faultbox/van-studio/pkg/geom"
)

var errBroken = errors.New("broken model")

type fakeLoader struct {
	mu    sync.Mutex
	calls int
	gates map[string]chan struct{}
}

func (l *fakeLoader) gate(modelID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gates == nil {
		l.gates = map[string]chan struct{}{}
	}
	ch := make(chan struct{})
	l.gates[modelID] = ch
	return ch
}

func (l *fakeLoader) LoadModel(ctx context.Context, kind scene.NodeKind, modelID string) (*scene.Node, error) {
	l.mu.Lock()
	l.calls++
	gate := l.gates[modelID]
	l.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if modelID == "broken" {
		return nil, errBroken
	}
	return model(kind, modelID), nil
}

func (l *fakeLoader) LoadMaterial(_ context.Context, id string) (*scene.Material, error) {
	if id == "missing" {
		return nil, errors.New("no such material")
	}
	return &scene.Material{MaterialID: id, Texture: &scene.Texture{URL: id + ".png"}}, nil
}

func model(kind scene.NodeKind, modelID string) *scene.Node {
	n := scene.NewNode(kind, modelID)
	n.ModelID = modelID
	n.Meshes = []*scene.Mesh{{
		ID:       "body",
		Bounds:   geom.NewAABB(mgl64.Vec3{-0.5, 0, -0.5}, mgl64.Vec3{0.5, 1, 0.5}),
		Material: &scene.Material{Color: "#cccccc"},
	}}
	return n
}

type fixture struct {
	scene  *scene.Controller
	queue  *tasks.Queue
	loader *fakeLoader
	hist   *Manager
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		scene:  scene.NewController(camera.NewOrbitCamera(45, 1), 800, 800),
		queue:  tasks.NewQueue(),
		loader: &fakeLoader{},
	}
	f.hist = New(f.scene, f.loader, f.queue, opts)
	t.Cleanup(f.hist.Close)
	return f
}

func (f *fixture) add(t *testing.T, kind scene.NodeKind, modelID string, pos mgl64.Vec3) *scene.Node {
	t.Helper()
	n := model(kind, modelID)
	n.Position = pos
	require.NoError(t, f.scene.AddNode(n))
	return n
}

// settle waits for pending restores and runs their finalize step.
func (f *fixture) settle() {
	f.hist.Wait()
	f.queue.Drain()
}

func TestCommitAppendsAndTruncates(t *testing.T) {
	f := newFixture(t, Options{})
	assert.Equal(t, -1, f.hist.Index())
	assert.False(t, f.hist.CanUndo())
	assert.False(t, f.hist.CanRedo())

	f.hist.Commit()
	f.add(t, scene.KindFurniture, "table", mgl64.Vec3{})
	f.hist.Commit()
	f.add(t, scene.KindFurniture, "bench", mgl64.Vec3{2, 0, 0})
	f.hist.Commit()
	require.Equal(t, 3, f.hist.Len())
	assert.Equal(t, 2, f.hist.Index())

	require.True(t, f.hist.Undo())
	require.True(t, f.hist.Undo())
	f.settle()
	assert.True(t, f.hist.CanRedo())

	f.add(t, scene.KindFurniture, "cushion", mgl64.Vec3{})
	f.hist.Commit()
	assert.Equal(t, 2, f.hist.Len(), "redo tail dropped")
	assert.Equal(t, 1, f.hist.Index())
	assert.False(t, f.hist.CanRedo())

	cur, ok := f.hist.Current()
	require.True(t, ok)
	require.Len(t, cur.Objects, 1)
	assert.Equal(t, "cushion", cur.Objects[0].ModelID)
}

func TestUndoRedoAtEndsAreNoOps(t *testing.T) {
	f := newFixture(t, Options{})
	assert.False(t, f.hist.Undo())
	assert.False(t, f.hist.Redo())

	f.hist.Commit()
	assert.False(t, f.hist.Undo())
	assert.False(t, f.hist.Redo())
	assert.Zero(t, f.queue.Len())
}

func TestCapEvictsOldest(t *testing.T) {
	f := newFixture(t, Options{Cap: 3})
	for i := 0; i < 5; i++ {
		f.add(t, scene.KindFurniture, "table", mgl64.Vec3{float64(i), 0, 0})
		f.hist.Commit()
	}
	assert.Equal(t, 3, f.hist.Len())
	assert.Equal(t, 2, f.hist.Index())

	oldest, ok := f.hist.Entry(0)
	require.True(t, ok)
	assert.Len(t, oldest.Objects, 3)

	_, ok = f.hist.Entry(3)
	assert.False(t, ok)
}

func TestEntryIsACopy(t *testing.T) {
	f := newFixture(t, Options{})
	f.add(t, scene.KindFurniture, "table", mgl64.Vec3{})
	f.hist.Commit()

	e, _ := f.hist.Entry(0)
	e.Objects[0].ModelID = "changed"
	again, _ := f.hist.Entry(0)
	assert.Equal(t, "table", again.Objects[0].ModelID)
}

// Undo followed by redo lands on a scene equivalent to the one that was committed.
func TestUndoRedoInverse(t *testing.T) {
	f := newFixture(t, Options{})
	van := f.add(t, scene.KindVehicle, "sprinter", mgl64.Vec3{})
	f.hist.Commit()

	table := f.add(t, scene.KindFurniture, "table", mgl64.Vec3{1, 0.5, -1})
	table.Rotation = geom.QuatFromEuler(geom.Euler{0, 0.7, 0})
	table.Scale = mgl64.Vec3{1, 1.5, 1}
	table.Meshes[0].SetMaterial(&scene.Material{Color: "#8b4513", MaterialID: "walnut"})
	f.scene.Camera().SetPose(mgl64.Vec3{4, 2, 6}, mgl64.Vec3{0, 0.5, 0})
	f.scene.ToggleMeasurements()
	f.hist.Commit()
	committed, _ := f.hist.Current()

	require.True(t, f.hist.Undo())
	f.settle()
	assert.True(t, design.Capture(f.scene).ApproxEqual(mustEntry(t, f.hist, 0), 1e-9))
	assert.Nil(t, f.scene.Find(table.ID))
	assert.NotNil(t, f.scene.Find(van.ID), "ids survive a restore")

	require.True(t, f.hist.Redo())
	f.settle()
	got := design.Capture(f.scene)
	assert.True(t, got.ApproxEqual(committed, 1e-9), "got %+v", got)

	restored := f.scene.Find(table.ID)
	require.NotNil(t, restored)
	assert.NotSame(t, table, restored)
	mat := restored.Meshes[0].Material
	assert.Equal(t, "walnut", mat.MaterialID)
	require.NotNil(t, mat.Texture, "library texture resolved")
	assert.InDelta(t, 0.5, restored.Tags.CurrentHeight, 1e-12)
	assert.True(t, f.scene.MeasurementsVisible())
	assert.Nil(t, f.scene.Selected())
}

func TestUndoRedoInverseSeveralSteps(t *testing.T) {
	for _, k := range []int{2, 3, 5} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			f := newFixture(t, Options{})
			f.add(t, scene.KindVehicle, "sprinter", mgl64.Vec3{})
			f.hist.Commit()
			table := f.add(t, scene.KindFurniture, "table", mgl64.Vec3{})
			for i := 1; i <= k; i++ {
				table.Position = mgl64.Vec3{float64(i), 0, -float64(i)}
				f.hist.Commit()
			}
			last := f.hist.Index()
			want := mustEntry(t, f.hist, last)

			var applied int
			f.hist.OnRestored(func(r Result) {
				if r.Applied {
					applied++
				}
			})

			for i := 0; i < k; i++ {
				require.True(t, f.hist.Undo())
			}
			assert.Equal(t, last-k, f.hist.Index())
			for i := 0; i < k; i++ {
				require.True(t, f.hist.Redo())
			}
			f.settle()

			assert.Equal(t, last, f.hist.Index())
			assert.Equal(t, 1, applied, "only the newest restore lands")
			got := design.Capture(f.scene)
			assert.True(t, got.ApproxEqual(want, 1e-9), "got %+v", got)
			assert.False(t, f.hist.Restoring())
		})
	}
}

func mustEntry(t *testing.T, m *Manager, i int) design.State {
	t.Helper()
	e, ok := m.Entry(i)
	require.True(t, ok)
	return e
}

func TestRestoreDeselectsImmediately(t *testing.T) {
	f := newFixture(t, Options{})
	n := f.add(t, scene.KindFurniture, "table", mgl64.Vec3{})
	f.hist.Commit()
	require.NoError(t, f.scene.Select(n))

	f.hist.Restore(mustEntry(t, f.hist, 0), nil)
	assert.Nil(t, f.scene.Selected())
	assert.True(t, f.hist.Restoring())
	f.settle()
	assert.False(t, f.hist.Restoring())
}

// Load vehicle, add a table, move it one unit along X with the gizmo: three
// entries, and undo/redo toggle the move.
func TestVehicleTableTranslateScenario(t *testing.T) {
	f := newFixture(t, Options{})
	g := gizmo.New(f.scene, f.hist)
	t.Cleanup(g.Close)

	f.add(t, scene.KindVehicle, "sprinter", mgl64.Vec3{})
	f.hist.Commit()
	table := f.add(t, scene.KindFurniture, "table", mgl64.Vec3{})
	f.hist.Commit()

	require.NoError(t, f.scene.Select(table))
	require.True(t, g.BeginInteraction())
	g.Proxy().Position = g.Proxy().Position.Add(mgl64.Vec3{1, 0, 0})
	g.ObjectChange()
	g.EndInteraction()

	assert.Equal(t, 2, f.hist.Index())
	assert.True(t, table.Position.ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, 1e-9))

	require.True(t, f.hist.Undo())
	f.settle()
	assert.Nil(t, g.Active())
	moved := f.scene.Find(table.ID)
	require.NotNil(t, moved)
	assert.True(t, moved.Position.ApproxEqualThreshold(mgl64.Vec3{}, 1e-9), "got %v", moved.Position)
	assert.Equal(t, 1, f.hist.Index())

	require.True(t, f.hist.Redo())
	f.settle()
	moved = f.scene.Find(table.ID)
	require.NotNil(t, moved)
	assert.True(t, moved.Position.ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, 1e-9), "got %v", moved.Position)
	assert.Equal(t, 2, f.hist.Index())
}

func TestStaleRestoreIsDiscarded(t *testing.T) {
	f := newFixture(t, Options{})
	slow := design.State{Objects: []design.Object{
		{ID: 11, Type: design.TypeFurniture, ModelID: "slow", Scale: design.Vec3{X: 1, Y: 1, Z: 1}},
	}}
	fast := design.State{Objects: []design.Object{
		{ID: 15, Type: design.TypeFurniture, ModelID: "bench", Scale: design.Vec3{X: 1, Y: 1, Z: 1}},
	}}
	gate := f.loader.gate("slow")

	var first, second Result
	f.hist.Restore(slow, func(r Result) { first = r })
	f.hist.Restore(fast, func(r Result) { second = r })
	close(gate)
	f.settle()

	assert.False(t, first.Applied)
	assert.True(t, second.Applied)
	require.Len(t, f.scene.Objects(), 1)
	assert.Equal(t, "bench", f.scene.Objects()[0].ModelID)
	assert.Equal(t, 2, f.loader.calls)
}

func TestCommitSupersedesRestore(t *testing.T) {
	f := newFixture(t, Options{})
	gate := f.loader.gate("slow")
	var res Result
	f.hist.Restore(design.State{Objects: []design.Object{
		{ID: 11, Type: design.TypeFurniture, ModelID: "slow", Scale: design.Vec3{X: 1, Y: 1, Z: 1}},
	}}, func(r Result) { res = r })

	f.add(t, scene.KindFurniture, "table", mgl64.Vec3{})
	f.hist.Commit()
	close(gate)
	f.settle()

	assert.False(t, res.Applied)
	require.Len(t, f.scene.Objects(), 1)
	assert.Equal(t, "table", f.scene.Objects()[0].ModelID)
}

func TestFailedObjectDegradesOnlyItself(t *testing.T) {
	f := newFixture(t, Options{Concurrency: 2})
	st := design.State{
		Objects: []design.Object{
			{ID: 21, Type: design.TypeVehicle, ModelID: "sprinter", Scale: design.Vec3{X: 1, Y: 1, Z: 1}},
			{ID: 22, Type: design.TypeFurniture, ModelID: "broken", Scale: design.Vec3{X: 1, Y: 1, Z: 1}},
			{
				ID: 23, Type: design.TypeFurniture, ModelID: "table", Scale: design.Vec3{X: 1, Y: 1, Z: 1},
				Meshes: []design.MeshState{{ID: "body", Material: design.MeshMaterial{Color: "#00ff00", MaterialID: "missing"}}},
			},
		},
		CameraPosition: design.Vec3{X: 1, Y: 2, Z: 3},
		ShowGrid:       false,
	}
	var notified []Result
	unsubscribe := f.hist.OnRestored(func(r Result) { notified = append(notified, r) })
	defer unsubscribe()

	f.hist.Restore(st, nil)
	f.settle()

	require.Len(t, notified, 1)
	res := notified[0]
	assert.True(t, res.Applied)
	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Err(), errBroken)

	assert.Len(t, f.scene.Objects(), 2)
	assert.Nil(t, f.scene.Find(22))
	table := f.scene.Find(23)
	require.NotNil(t, table)
	assert.Equal(t, "#00ff00", table.Meshes[0].Material.Color, "colour kept when the library material fails")
	assert.Nil(t, table.Meshes[0].Material.Texture)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, f.scene.Camera().Position())
	assert.False(t, f.scene.GridVisible())
}

func TestResetKeepsSingleEntry(t *testing.T) {
	f := newFixture(t, Options{})
	for i := 0; i < 3; i++ {
		f.hist.Commit()
	}
	f.hist.Reset()
	assert.Equal(t, 1, f.hist.Len())
	assert.Equal(t, 0, f.hist.Index())
	assert.False(t, f.hist.CanUndo())
}
