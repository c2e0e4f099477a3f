// Package scene owns the studio scene graph: nodes, selection, picking and the
// environment helpers (lights, grid, measurements).
package scene

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jinzhu/copier"

	"github.com/Faultbox/van-studio/pkg/geom"
)

// NodeKind distinguishes what a node is and therefore what the editor may do with it.
type NodeKind uint8

const (
	KindHelper NodeKind = iota
	KindLight
	KindVehicle
	KindFurniture
)

func (k NodeKind) String() string {
	switch k {
	case KindHelper:
		return "helper"
	case KindLight:
		return "light"
	case KindVehicle:
		return "vehicle"
	case KindFurniture:
		return "furniture"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Transform is a node's local position, orientation and scale.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

// IdentityTransform returns a transform that leaves geometry unchanged.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.QuatIdent(), Scale: mgl64.Vec3{1, 1, 1}}
}

// Matrix composes the transform into a local-to-parent matrix.
func (t Transform) Matrix() mgl64.Mat4 {
	return geom.TRS(t.Position, t.Rotation, t.Scale)
}

// Tags carries editor bookkeeping attached to a node.
type Tags struct {
	// CurrentHeight is the last known resting Y of a draggable node.
	// Ground drags keep the node at this height.
	CurrentHeight float64
	HasHeight     bool
	Extra         map[string]string
}

// Texture is a decoded image referenced by materials.
type Texture struct {
	URL    string
	Image  image.Image
	Width  int
	Height int
}

// Material is the surface description of a mesh.
type Material struct {
	Color             string // "#rrggbb"
	MaterialID        string // catalog material, empty for plain colours
	Texture           *Texture
	Emissive          mgl64.Vec3
	EmissiveIntensity float64
}

// Clone returns a shallow copy. The texture is shared.
func (m *Material) Clone() *Material {
	if m == nil {
		return &Material{Color: "#ffffff"}
	}
	c := *m
	return &c
}

// Mesh is a piece of renderable geometry inside a node. Bounds are in node-local space.
type Mesh struct {
	ID       string
	Bounds   geom.AABB
	Material *Material

	// base holds the real material while the selection outline is applied.
	base *Material
}

// BaseMaterial returns the material the mesh has when not outlined.
func (m *Mesh) BaseMaterial() *Material {
	if m.base != nil {
		return m.base
	}
	return m.Material
}

// SetMaterial replaces the mesh material. An applied outline is kept on top.
func (m *Mesh) SetMaterial(mat *Material) {
	if m.base != nil {
		m.base = mat
		m.Material = outlineOf(mat)
		return
	}
	m.Material = mat
}

// Outlined reports whether the selection outline is currently applied.
func (m *Mesh) Outlined() bool { return m.base != nil }

// Node is an element of the scene graph.
type Node struct {
	ID      uint32
	Kind    NodeKind
	Name    string
	ModelID string
	Transform
	Meshes  []*Mesh
	Tags    Tags
	Visible bool

	parent   *Node
	children []*Node
}

// NewNode creates a visible node with an identity transform.
func NewNode(kind NodeKind, name string) *Node {
	return &Node{
		Kind:      kind,
		Name:      name,
		Transform: IdentityTransform(),
		Visible:   true,
	}
}

// IsVehicle reports whether the node is the vehicle shell.
func (n *Node) IsVehicle() bool { return n.Kind == KindVehicle }

// IsFurniture reports whether the node is a placed furniture item.
func (n *Node) IsFurniture() bool { return n.Kind == KindFurniture }

// Pickable reports whether clicking the node can select it.
func (n *Node) Pickable() bool {
	switch n.Kind {
	case KindVehicle, KindFurniture:
		return true
	case KindHelper, KindLight:
		return false
	default:
		return false
	}
}

// Draggable reports whether the node may be slid along the ground.
func (n *Node) Draggable() bool {
	switch n.Kind {
	case KindFurniture:
		return true
	case KindVehicle, KindHelper, KindLight:
		return false
	default:
		return false
	}
}

// Deletable reports whether the user may remove the node.
func (n *Node) Deletable() bool {
	switch n.Kind {
	case KindFurniture:
		return true
	case KindVehicle, KindHelper, KindLight:
		return false
	default:
		return false
	}
}

// Parent returns the parent node, nil for top-level nodes.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the direct children.
func (n *Node) Children() []*Node { return n.children }

// AddChild attaches c under n, detaching it from any previous parent.
func (n *Node) AddChild(c *Node) {
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	c.parent = n
	n.children = append(n.children, c)
}

func (n *Node) removeChild(c *Node) {
	for i, ch := range n.children {
		if ch == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent = nil
			return
		}
	}
}

// Walk visits n and all descendants depth-first until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// PickableAncestor walks up from n to the first vehicle or furniture node.
func (n *Node) PickableAncestor() *Node {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.Pickable() {
			return cur
		}
	}
	return nil
}

// WorldMatrix returns the local-to-world matrix.
func (n *Node) WorldMatrix() mgl64.Mat4 {
	m := n.Matrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.Matrix().Mul4(m)
	}
	return m
}

// WorldBounds returns the world box of every mesh of n and its descendants.
func (n *Node) WorldBounds() geom.AABB {
	box := geom.Empty()
	n.Walk(func(c *Node) bool {
		w := c.WorldMatrix()
		for _, m := range c.Meshes {
			box = box.Union(m.Bounds.Transform(w))
		}
		return true
	})
	return box
}

// Center returns the centre of the world bounds, or the world position for empty nodes.
func (n *Node) Center() mgl64.Vec3 {
	b := n.WorldBounds()
	if b.IsEmpty() {
		return mgl64.TransformCoordinate(mgl64.Vec3{}, n.WorldMatrix())
	}
	return b.Center()
}

// Mesh returns the mesh with the given id.
func (n *Node) Mesh(id string) *Mesh {
	var found *Mesh
	n.Walk(func(c *Node) bool {
		for _, m := range c.Meshes {
			if m.ID == id {
				found = m
				return false
			}
		}
		return true
	})
	return found
}

// AllMeshes returns the meshes of n and its descendants in walk order.
func (n *Node) AllMeshes() []*Mesh {
	var out []*Mesh
	n.Walk(func(c *Node) bool {
		out = append(out, c.Meshes...)
		return true
	})
	return out
}

// Clone copies the node tree. Mesh bounds and base materials are shared with the
// source; transforms and tags are copied. The clone has ID 0 and no parent.
func (n *Node) Clone() (*Node, error) {
	c := &Node{
		Kind:      n.Kind,
		Name:      n.Name,
		ModelID:   n.ModelID,
		Transform: n.Transform,
		Visible:   n.Visible,
	}
	if err := copier.CopyWithOption(&c.Tags, &n.Tags, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("copy tags of node %d: %w", n.ID, err)
	}
	c.Meshes = make([]*Mesh, len(n.Meshes))
	for i, m := range n.Meshes {
		c.Meshes[i] = &Mesh{ID: m.ID, Bounds: m.Bounds, Material: m.BaseMaterial()}
	}
	for _, ch := range n.children {
		cc, err := ch.Clone()
		if err != nil {
			return nil, err
		}
		c.AddChild(cc)
	}
	return c, nil
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d(%s)", n.Kind, n.ID, n.Name)
}
