package studio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"regexp"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/design"
	"github.com/Faultbox/van-studio/internal/editor/history"
	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/pkg/geom"
)

// Errors returned by studio actions.
var (
	ErrNothingSelected = fmt.Errorf("%w: nothing selected", scene.ErrInvalidOperation)
	ErrInvalidValue    = fmt.Errorf("%w: invalid value", scene.ErrInvalidOperation)
	ErrNoStore         = fmt.Errorf("%w: no design store", design.ErrPersistence)
)

// Prompts shown through the confirmer.
const (
	DesignDeletePrompt = "Are you sure you want to delete this design? This action cannot be undone."
	NewDesignPrompt    = "Discard the current design and start a new one?"
)

// furnitureDistance is how far in front of the camera new furniture lands.
const furnitureDistance = 2.0

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// load runs fetch on a goroutine and applies its result on the main loop.
// done, if set, receives the final error on the main loop.
func (s *Studio) load(what string, fetch func(context.Context) (func() error, error), done func(error)) {
	s.pending++
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		apply, err := fetch(s.ctx)
		s.queue.Post(func() {
			s.pending--
			if err == nil {
				err = apply()
			}
			if err != nil {
				s.notify("Failed to load "+what, err)
			}
			if done != nil {
				done(err)
			}
		})
	}()
}

// LoadVehicle replaces the scene contents with a vehicle resting on the floor.
func (s *Studio) LoadVehicle(id string, done func(error)) {
	s.load("vehicle "+id, func(ctx context.Context) (func() error, error) {
		n, err := s.loader.LoadModel(ctx, scene.KindVehicle, id)
		if err != nil {
			return nil, err
		}
		return func() error {
			s.gizmo.Detach()
			s.scene.ClearScene(true)
			ground(n)
			if err := s.scene.AddNode(n); err != nil {
				return err
			}
			s.scene.FocusOn(n)
			s.history.Commit()
			s.notify("Loaded "+n.Name, nil)
			return nil
		}, nil
	}, done)
}

// ground lifts or lowers n so the bottom of its bounds sits at y=0.
func ground(n *scene.Node) {
	b := n.WorldBounds()
	if b.IsEmpty() {
		return
	}
	n.Position[1] -= b.Min.Y()
	n.Tags.CurrentHeight = n.Position.Y()
	n.Tags.HasHeight = true
}

// AddFurniture places a catalog item on the floor in front of the camera,
// selects it and commits.
func (s *Studio) AddFurniture(id string, done func(error)) {
	s.load("furniture "+id, func(ctx context.Context) (func() error, error) {
		n, err := s.loader.LoadModel(ctx, scene.KindFurniture, id)
		if err != nil {
			return nil, err
		}
		return func() error {
			n.Position = s.scene.PositionInFront(furnitureDistance)
			n.Tags.CurrentHeight = n.Position.Y()
			n.Tags.HasHeight = true
			if err := s.scene.AddNode(n); err != nil {
				return err
			}
			if err := s.scene.Select(n); err != nil {
				return err
			}
			s.history.Commit()
			return nil
		}, nil
	}, done)
}

func (s *Studio) selected() (*scene.Node, error) {
	n := s.scene.Selected()
	if n == nil {
		return nil, ErrNothingSelected
	}
	return n, nil
}

// SetPosition moves the selected node and commits.
func (s *Studio) SetPosition(p mgl64.Vec3) error {
	n, err := s.selected()
	if err != nil {
		return err
	}
	if !finite(p) {
		return fmt.Errorf("%w: position %v", ErrInvalidValue, p)
	}
	n.Position = p
	n.Tags.CurrentHeight = p.Y()
	n.Tags.HasHeight = true
	s.gizmo.Refresh()
	s.history.Commit()
	return nil
}

// SetRotationDegrees sets the selected node's XYZ Euler angles in degrees and commits.
func (s *Studio) SetRotationDegrees(deg mgl64.Vec3) error {
	n, err := s.selected()
	if err != nil {
		return err
	}
	if !finite(deg) {
		return fmt.Errorf("%w: rotation %v", ErrInvalidValue, deg)
	}
	e := geom.Euler{mgl64.DegToRad(deg[0]), mgl64.DegToRad(deg[1]), mgl64.DegToRad(deg[2])}
	n.Rotation = geom.QuatFromEuler(e)
	s.gizmo.Refresh()
	s.history.Commit()
	return nil
}

// SetScale sets a per-axis scale on the selected node and commits.
func (s *Studio) SetScale(v mgl64.Vec3) error {
	n, err := s.selected()
	if err != nil {
		return err
	}
	if !finite(v) || v[0] <= 0 || v[1] <= 0 || v[2] <= 0 {
		return fmt.Errorf("%w: scale %v", ErrInvalidValue, v)
	}
	n.Scale = v
	s.gizmo.Refresh()
	s.history.Commit()
	return nil
}

// SetUniformScale sets the same scale on every axis.
func (s *Studio) SetUniformScale(f float64) error {
	return s.SetScale(mgl64.Vec3{f, f, f})
}

func finite(v mgl64.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// ApplyMaterial loads a catalog material and puts it on every mesh of the
// selected furniture.
func (s *Studio) ApplyMaterial(id string, done func(error)) {
	n, err := s.selectedFurniture()
	if err != nil {
		if done != nil {
			done(err)
		}
		return
	}
	s.load("material "+id, func(ctx context.Context) (func() error, error) {
		mat, err := s.loader.LoadMaterial(ctx, id)
		if err != nil {
			return nil, err
		}
		return func() error {
			if !s.scene.Contains(n) {
				return fmt.Errorf("%w: %s was removed", scene.ErrInvalidOperation, n)
			}
			for _, m := range n.AllMeshes() {
				m.SetMaterial(mat.Clone())
			}
			s.history.Commit()
			return nil
		}, nil
	}, done)
}

// RemoveMaterial replaces library materials on the selected furniture with
// the plain colour.
func (s *Studio) RemoveMaterial(color string) error {
	n, err := s.selectedFurniture()
	if err != nil {
		return err
	}
	if !hexColor.MatchString(color) {
		return fmt.Errorf("%w: colour %q", ErrInvalidValue, color)
	}
	for _, m := range n.AllMeshes() {
		m.SetMaterial(&scene.Material{Color: strings.ToLower(color)})
	}
	s.history.Commit()
	return nil
}

// ApplyColor tints every mesh of the selected furniture, keeping textures.
func (s *Studio) ApplyColor(color string) error {
	n, err := s.selectedFurniture()
	if err != nil {
		return err
	}
	if !hexColor.MatchString(color) {
		return fmt.Errorf("%w: colour %q", ErrInvalidValue, color)
	}
	for _, m := range n.AllMeshes() {
		mat := m.BaseMaterial().Clone()
		mat.Color = strings.ToLower(color)
		m.SetMaterial(mat)
	}
	s.history.Commit()
	return nil
}

func (s *Studio) selectedFurniture() (*scene.Node, error) {
	n, err := s.selected()
	if err != nil {
		return nil, err
	}
	if !n.IsFurniture() {
		return nil, fmt.Errorf("%w: materials apply to furniture, not %s", scene.ErrInvalidOperation, n)
	}
	return n, nil
}

// DeleteSelected removes the selected furniture after confirmation.
func (s *Studio) DeleteSelected() (bool, error) {
	n := s.scene.Selected()
	if n == nil {
		return false, nil
	}
	if !n.Deletable() {
		return false, fmt.Errorf("%w: %s", scene.ErrNotDeletable, n)
	}
	return s.toolbar.Delete()
}

// Duplicate clones the selected furniture.
func (s *Studio) Duplicate() (*scene.Node, error) {
	return s.toolbar.Duplicate()
}

// FocusSelection frames the selected node, or the vehicle when nothing is selected.
func (s *Studio) FocusSelection() {
	n := s.scene.Selected()
	if n == nil {
		n = s.scene.Vehicle()
	}
	s.scene.FocusOn(n)
}

// ResetCamera returns to the default view.
func (s *Studio) ResetCamera() {
	s.scene.Camera().Reset()
}

// ToggleGrid flips the floor grid and commits.
func (s *Studio) ToggleGrid() bool {
	on := s.scene.ToggleGrid()
	s.history.Commit()
	return on
}

// ToggleMeasurements flips the dimension overlay and commits.
func (s *Studio) ToggleMeasurements() bool {
	on := s.scene.ToggleMeasurements()
	s.history.Commit()
	return on
}

// DesignID returns the id of the design being edited, 0 when unsaved.
func (s *Studio) DesignID() int64 { return s.designID }

// DesignName returns the name the design was last saved or loaded under.
func (s *Studio) DesignName() string { return s.designName }

// NewDesign clears the scene and the history after confirmation.
func (s *Studio) NewDesign() bool {
	if s.confirm != nil && len(s.scene.Objects()) > 0 && !s.confirm.Confirm(NewDesignPrompt) {
		return false
	}
	s.gizmo.Detach()
	s.scene.ClearScene(true)
	s.scene.Camera().Reset()
	s.history.Reset()
	s.designID, s.designName = 0, ""
	return true
}

// SaveDesign stores the current scene. A design that was saved or loaded
// before is overwritten; otherwise a new one is created.
func (s *Studio) SaveDesign(ctx context.Context, name string) (int64, error) {
	if s.store == nil {
		return 0, ErrNoStore
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: please enter a design name", design.ErrPersistence)
	}
	id, err := s.store.Save(ctx, s.user, name, s.designID, design.Capture(s.scene))
	if errors.Is(err, design.ErrNotFound) && s.designID != 0 {
		// The stored copy was deleted meanwhile; save as new.
		id, err = s.store.Save(ctx, s.user, name, 0, design.Capture(s.scene))
	}
	if err != nil {
		s.notify("Failed to save design", err)
		return 0, err
	}
	s.designID, s.designName = id, name
	s.notify("Design saved", nil)
	return id, nil
}

// thumbnailer is implemented by stores that keep preview images.
type thumbnailer interface {
	SaveThumbnail(user string, id int64, img image.Image) (string, error)
}

// SaveThumbnail stores a preview of the current design when the store supports it.
func (s *Studio) SaveThumbnail(img image.Image) error {
	t, ok := s.store.(thumbnailer)
	if !ok || s.designID == 0 {
		return nil
	}
	path, err := t.SaveThumbnail(s.user, s.designID, img)
	if err != nil {
		return err
	}
	s.log.Debug("thumbnail saved", zap.String("path", path))
	return nil
}

// LoadDesign reads a saved design and restores it. The history is reset to
// the loaded state once the restore finishes.
func (s *Studio) LoadDesign(ctx context.Context, id int64, done func(error)) {
	fail := func(err error) {
		s.notify("Failed to load design", err)
		if done != nil {
			done(err)
		}
	}
	if s.store == nil {
		fail(ErrNoStore)
		return
	}
	rec, err := s.store.Load(ctx, s.user, id)
	if err != nil {
		fail(err)
		return
	}
	s.gizmo.Detach()
	s.history.Restore(rec.Design, func(res history.Result) {
		if !res.Applied {
			if done != nil {
				done(fmt.Errorf("load of design %d superseded", id))
			}
			return
		}
		s.history.Reset()
		s.designID, s.designName = rec.ID, rec.Name
		s.notify("Loaded design "+rec.Name, nil)
		if done != nil {
			done(res.Err())
		}
	})
}

// DeleteDesign removes a saved design after confirmation. It reports whether
// the design was deleted.
func (s *Studio) DeleteDesign(ctx context.Context, id int64) (bool, error) {
	if s.store == nil {
		return false, ErrNoStore
	}
	if s.confirm != nil && !s.confirm.Confirm(DesignDeletePrompt) {
		return false, nil
	}
	if err := s.store.Delete(ctx, s.user, id); err != nil {
		s.notify("Failed to delete design", err)
		return false, err
	}
	if id == s.designID {
		s.designID, s.designName = 0, ""
	}
	s.notify("Design deleted", nil)
	return true, nil
}

// ListDesigns returns the user's saved designs, newest first.
func (s *Studio) ListDesigns(ctx context.Context) ([]design.Summary, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.List(ctx, s.user)
}
