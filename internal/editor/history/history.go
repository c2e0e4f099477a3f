// Package history implements snapshot-based undo/redo. Each entry is a full
// design.State; restoring one rebuilds the scene from the model loader.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/van-studio/internal/design"
	"github.com/Faultbox/van-studio/internal/logger"
	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/internal/tasks"
	"github.com/Faultbox/van-studio/pkg/geom"
)

// Defaults.
const (
	DefaultCap         = 20
	DefaultConcurrency = 4
)

// Loader builds scene content for restored objects. Calls arrive from worker
// goroutines; returned nodes must not be shared with the live scene.
type Loader interface {
	LoadModel(ctx context.Context, kind scene.NodeKind, modelID string) (*scene.Node, error)
	LoadMaterial(ctx context.Context, materialID string) (*scene.Material, error)
}

// Result reports how a restore ended.
type Result struct {
	// Applied is false when a newer restore or commit superseded this one.
	Applied bool
	// Failed lists the objects that could not be rebuilt and were left out.
	Failed []error
}

// Err joins the object failures.
func (r Result) Err() error { return errors.Join(r.Failed...) }

// Options configures a Manager.
type Options struct {
	Cap         int
	Concurrency int
}

// Manager owns the undo stack. Commit, Undo, Redo and Restore are called on
// the main loop; restores finish there through the task queue.
type Manager struct {
	scene  *scene.Controller
	loader Loader
	queue  *tasks.Queue

	cap     int
	limit   int
	entries []design.State
	index   int

	generation uint64
	inflight   sync.WaitGroup
	pending    int

	ctx    context.Context
	cancel context.CancelFunc

	onRestored scene.Signal[Result]
	log        *zap.Logger
}

// New creates an empty history. Index starts at -1.
func New(sc *scene.Controller, loader Loader, queue *tasks.Queue, opts Options) *Manager {
	if opts.Cap <= 0 {
		opts.Cap = DefaultCap
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		scene:  sc,
		loader: loader,
		queue:  queue,
		cap:    opts.Cap,
		limit:  opts.Concurrency,
		index:  -1,
		ctx:    ctx,
		cancel: cancel,
		log:    logger.Named("history"),
	}
}

// Close cancels in-flight loads and waits for their goroutines.
func (m *Manager) Close() {
	m.cancel()
	m.inflight.Wait()
}

// OnRestored subscribes to restore completions.
func (m *Manager) OnRestored(fn func(Result)) func() { return m.onRestored.Subscribe(fn) }

// Commit records the current scene as a new entry, dropping the redo tail
// and the oldest entry once over capacity. A restore still in flight is
// superseded.
func (m *Manager) Commit() {
	m.generation++
	st := design.Capture(m.scene)

	m.entries = append(m.entries[:m.index+1], st)
	m.index = len(m.entries) - 1
	if over := len(m.entries) - m.cap; over > 0 {
		m.entries = append([]design.State(nil), m.entries[over:]...)
		m.index -= over
	}
	m.log.Debug("commit", zap.Int("index", m.index), zap.Int("len", len(m.entries)),
		zap.Int("objects", len(st.Objects)))
}

// Reset clears the history and commits the current scene as the only entry.
func (m *Manager) Reset() {
	m.entries = nil
	m.index = -1
	m.Commit()
}

// CanUndo reports whether Undo would move.
func (m *Manager) CanUndo() bool { return m.index > 0 }

// CanRedo reports whether Redo would move.
func (m *Manager) CanRedo() bool { return m.index >= 0 && m.index < len(m.entries)-1 }

// Len returns the number of entries.
func (m *Manager) Len() int { return len(m.entries) }

// Index returns the position of the current entry, -1 when empty.
func (m *Manager) Index() int { return m.index }

// Entry returns a copy of entry i.
func (m *Manager) Entry(i int) (design.State, bool) {
	if i < 0 || i >= len(m.entries) {
		return design.State{}, false
	}
	return m.entries[i].Clone(), true
}

// Current returns a copy of the current entry.
func (m *Manager) Current() (design.State, bool) { return m.Entry(m.index) }

// Undo steps back one entry and restores it.
func (m *Manager) Undo() bool {
	if !m.CanUndo() {
		return false
	}
	m.index--
	m.log.Debug("undo", zap.Int("index", m.index))
	m.Restore(m.entries[m.index], nil)
	return true
}

// Redo steps forward one entry and restores it.
func (m *Manager) Redo() bool {
	if !m.CanRedo() {
		return false
	}
	m.index++
	m.log.Debug("redo", zap.Int("index", m.index))
	m.Restore(m.entries[m.index], nil)
	return true
}

// Restoring reports whether a restore has not been finalized yet.
func (m *Manager) Restoring() bool { return m.pending > 0 }

// Wait blocks until every restore's loads have finished and their finalize
// step is queued. The caller still has to drain the queue.
func (m *Manager) Wait() { m.inflight.Wait() }

// Restore rebuilds the scene from st. Selection is cleared at once; object
// loads run concurrently and the scene is replaced in one step on the main
// loop after all of them finished. An object that fails to load is left out.
// done, if set, runs on the main loop when the restore ends.
func (m *Manager) Restore(st design.State, done func(Result)) {
	m.scene.Deselect()
	m.generation++
	gen := m.generation
	st = st.Clone()
	m.pending++

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		nodes, failed := m.load(st)
		m.queue.Post(func() {
			m.pending--
			res := m.finalize(gen, st, nodes, failed)
			if done != nil {
				done(res)
			}
			m.onRestored.Emit(res)
		})
	}()
}

// load fans out one model load per object. Failures never cancel siblings.
func (m *Manager) load(st design.State) ([]*scene.Node, []error) {
	nodes := make([]*scene.Node, len(st.Objects))
	var (
		mu     sync.Mutex
		failed []error
	)

	var g errgroup.Group
	g.SetLimit(m.limit)
	for i, obj := range st.Objects {
		g.Go(func() error {
			n, err := m.build(obj)
			if err != nil {
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
				return nil
			}
			nodes[i] = n
			return nil
		})
	}
	_ = g.Wait()
	return nodes, failed
}

func (m *Manager) build(obj design.Object) (*scene.Node, error) {
	kind, err := obj.Type.Kind()
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", obj.ID, err)
	}
	n, err := m.loader.LoadModel(m.ctx, kind, obj.ModelID)
	if err != nil {
		return nil, fmt.Errorf("object %d (%s): %w", obj.ID, obj.ModelID, err)
	}
	if n == nil {
		return nil, fmt.Errorf("object %d (%s): loader returned no node", obj.ID, obj.ModelID)
	}

	n.ID = obj.ID
	n.Kind = kind
	n.ModelID = obj.ModelID
	n.Position = obj.Position.Vec()
	n.Rotation = geom.QuatFromEuler(obj.Rotation.Vec())
	n.Scale = obj.Scale.Vec()
	n.Tags.CurrentHeight = n.Position.Y()
	n.Tags.HasHeight = true

	for _, ms := range obj.Meshes {
		mesh := n.Mesh(ms.ID)
		if mesh == nil {
			continue
		}
		mat := &scene.Material{Color: ms.Material.Color, MaterialID: ms.Material.MaterialID}
		if ms.Material.MaterialID != "" {
			if lib, err := m.loader.LoadMaterial(m.ctx, ms.Material.MaterialID); err != nil {
				m.log.Warn("material fallback to colour", zap.String("material", ms.Material.MaterialID), zap.Error(err))
			} else if lib != nil {
				mat.Texture = lib.Texture
			}
		}
		mesh.SetMaterial(mat)
	}
	return n, nil
}

// finalize swaps the scene contents. It runs on the main loop.
func (m *Manager) finalize(gen uint64, st design.State, nodes []*scene.Node, failed []error) Result {
	if gen != m.generation {
		m.log.Debug("restore superseded", zap.Uint64("generation", gen))
		return Result{Failed: failed}
	}

	m.scene.ClearScene(true)
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.ID != 0 && m.scene.Find(n.ID) != nil {
			m.log.Warn("restored id collides, assigning a new one", zap.Uint32("id", n.ID))
			n.ID = 0
		}
		if err := m.scene.AddNode(n); err != nil {
			failed = append(failed, err)
		}
	}

	m.scene.Camera().SetPose(st.CameraPosition.Vec(), st.CameraTarget.Vec())
	m.scene.SetGridVisible(st.ShowGrid)
	m.scene.SetMeasurementsVisible(st.ShowMeasurements)
	m.scene.Deselect()

	for _, err := range failed {
		m.log.Warn("object left out of restore", zap.Error(err))
	}
	m.log.Info("restored", zap.Int("objects", len(st.Objects)), zap.Int("failed", len(failed)))
	return Result{Applied: true, Failed: failed}
}
