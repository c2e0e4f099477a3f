// Package design defines the serialized scene state shared by undo history and
// saved designs, and the store that persists designs per user.
package design

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/pkg/geom"
)

// ObjectType is the persisted kind of an object.
type ObjectType string

const (
	TypeVehicle   ObjectType = "vehicle"
	TypeFurniture ObjectType = "furniture"

	// typeLegacyVan is written by older designs and read as a vehicle.
	typeLegacyVan ObjectType = "van"
)

// Kind maps the type onto a scene node kind.
func (t ObjectType) Kind() (scene.NodeKind, error) {
	switch t {
	case TypeVehicle, typeLegacyVan:
		return scene.KindVehicle, nil
	case TypeFurniture:
		return scene.KindFurniture, nil
	default:
		return 0, fmt.Errorf("unknown object type %q", string(t))
	}
}

// TypeOf returns the persisted type for a node kind.
func TypeOf(k scene.NodeKind) (ObjectType, bool) {
	switch k {
	case scene.KindVehicle:
		return TypeVehicle, true
	case scene.KindFurniture:
		return TypeFurniture, true
	default:
		return "", false
	}
}

// Vec3 is the {x,y,z} object used throughout the blob.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// V converts an mgl64 vector.
func V(v mgl64.Vec3) Vec3 { return Vec3{v[0], v[1], v[2]} }

// Vec returns the mgl64 vector.
func (v Vec3) Vec() mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

// MeshMaterial is the material override of one mesh.
type MeshMaterial struct {
	Color      string `json:"color"`
	MaterialID string `json:"materialId,omitempty"`
}

// MeshState pairs a mesh id with its material.
type MeshState struct {
	ID       string       `json:"id"`
	Material MeshMaterial `json:"material"`
}

// Object is one vehicle or furniture node. Rotation is XYZ Euler radians.
type Object struct {
	ID       uint32      `json:"id"`
	Type     ObjectType  `json:"type"`
	ModelID  string      `json:"modelId"`
	Position Vec3        `json:"position"`
	Rotation Vec3        `json:"rotation"`
	Scale    Vec3        `json:"scale"`
	Meshes   []MeshState `json:"meshes,omitempty"`
}

// State is a full scene snapshot: the design blob and one undo history entry.
type State struct {
	Objects          []Object `json:"objects"`
	CameraPosition   Vec3     `json:"cameraPosition"`
	CameraTarget     Vec3     `json:"cameraTarget"`
	ShowGrid         bool     `json:"showGrid"`
	ShowMeasurements bool     `json:"showMeasurements"`
}

// Capture serializes the vehicle and furniture nodes of sc together with the
// camera pose and helper visibility. Materials are read from the meshes'
// base materials so the selection outline never leaks into a snapshot.
func Capture(sc *scene.Controller) State {
	cam := sc.Camera()
	st := State{
		Objects:          []Object{},
		CameraPosition:   V(cam.Position()),
		CameraTarget:     V(cam.Target()),
		ShowGrid:         sc.GridVisible(),
		ShowMeasurements: sc.MeasurementsVisible(),
	}
	for _, n := range sc.Objects() {
		typ, ok := TypeOf(n.Kind)
		if !ok {
			continue
		}
		obj := Object{
			ID:       n.ID,
			Type:     typ,
			ModelID:  n.ModelID,
			Position: V(n.Position),
			Rotation: V(geom.EulerFromQuat(n.Rotation)),
			Scale:    V(n.Scale),
		}
		for _, m := range n.AllMeshes() {
			mat := m.BaseMaterial()
			if mat == nil {
				continue
			}
			obj.Meshes = append(obj.Meshes, MeshState{
				ID:       m.ID,
				Material: MeshMaterial{Color: mat.Color, MaterialID: mat.MaterialID},
			})
		}
		st.Objects = append(st.Objects, obj)
	}
	return st
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Objects = make([]Object, len(s.Objects))
	for i, o := range s.Objects {
		if o.Meshes != nil {
			o.Meshes = append([]MeshState(nil), o.Meshes...)
		}
		out.Objects[i] = o
	}
	return out
}

// Find returns the object with the given id.
func (s State) Find(id uint32) (Object, bool) {
	for _, o := range s.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return Object{}, false
}

// ApproxEqual compares two states, allowing eps on every number.
func (s State) ApproxEqual(o State, eps float64) bool {
	if len(s.Objects) != len(o.Objects) ||
		s.ShowGrid != o.ShowGrid || s.ShowMeasurements != o.ShowMeasurements ||
		!vecNear(s.CameraPosition, o.CameraPosition, eps) ||
		!vecNear(s.CameraTarget, o.CameraTarget, eps) {
		return false
	}
	for i := range s.Objects {
		a, b := s.Objects[i], o.Objects[i]
		if a.ID != b.ID || a.Type != b.Type || a.ModelID != b.ModelID ||
			!vecNear(a.Position, b.Position, eps) || !vecNear(a.Scale, b.Scale, eps) ||
			!rotationNear(a.Rotation, b.Rotation, eps) || len(a.Meshes) != len(b.Meshes) {
			return false
		}
		for j := range a.Meshes {
			if a.Meshes[j] != b.Meshes[j] {
				return false
			}
		}
	}
	return true
}

func vecNear(a, b Vec3, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps && math.Abs(a.Z-b.Z) <= eps
}

// rotationNear compares orientations rather than angle triples, since several
// Euler triples describe the same rotation.
func rotationNear(a, b Vec3, eps float64) bool {
	qa := geom.QuatFromEuler(a.Vec())
	qb := geom.QuatFromEuler(b.Vec())
	return math.Abs(qa.Dot(qb)) >= 1-eps
}

// Marshal encodes the blob.
func Marshal(s State) ([]byte, error) {
	if s.Objects == nil {
		s.Objects = []Object{}
	}
	return json.Marshal(s)
}

// Parse decodes and validates a blob. Objects typed "van" are read as vehicles.
func Parse(data []byte) (State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decode design: %w", err)
	}
	seen := make(map[uint32]bool, len(st.Objects))
	for i := range st.Objects {
		o := &st.Objects[i]
		kind, err := o.Type.Kind()
		if err != nil {
			return State{}, fmt.Errorf("object %d: %w", o.ID, err)
		}
		o.Type, _ = TypeOf(kind)
		if o.ModelID == "" {
			return State{}, fmt.Errorf("object %d: missing modelId", o.ID)
		}
		if o.ID != 0 && seen[o.ID] {
			return State{}, fmt.Errorf("object %d: duplicate id", o.ID)
		}
		seen[o.ID] = true
		if o.Scale == (Vec3{}) {
			o.Scale = Vec3{1, 1, 1}
		}
	}
	if st.Objects == nil {
		st.Objects = []Object{}
	}
	return st, nil
}
