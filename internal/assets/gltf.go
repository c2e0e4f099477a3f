package assets

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/pkg/geom"
)

const (
	maxNodeDepth  = 64
	fallbackColor = "#cccccc"
)

// decodeGLTF turns a glTF document into a node tree. Only what the studio needs
// is read: node transforms, per-primitive bounds from the POSITION accessor
// and base colours.
func decodeGLTF(data []byte, kind scene.NodeKind, url string) (*scene.Node, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding gltf: %w", err)
	}

	roots, err := sceneRoots(doc)
	if err != nil {
		return nil, err
	}

	b := &gltfBuilder{doc: doc, ids: map[string]int{}}
	top := scene.NewNode(kind, path.Base(stripQuery(url)))
	for _, idx := range roots {
		child, err := b.node(idx, 0)
		if err != nil {
			return nil, err
		}
		top.AddChild(child)
	}
	if len(top.AllMeshes()) == 0 {
		return nil, errors.New("model has no meshes")
	}
	return top, nil
}

func sceneRoots(doc *gltf.Document) ([]int, error) {
	if len(doc.Scenes) == 0 {
		return nil, errors.New("document has no scenes")
	}
	si := 0
	if doc.Scene != nil {
		si = int(*doc.Scene)
	}
	if si < 0 || si >= len(doc.Scenes) {
		return nil, fmt.Errorf("scene index %d out of range", si)
	}
	roots := make([]int, 0, len(doc.Scenes[si].Nodes))
	for _, n := range doc.Scenes[si].Nodes {
		roots = append(roots, int(n))
	}
	return roots, nil
}

type gltfBuilder struct {
	doc *gltf.Document
	ids map[string]int
}

func (b *gltfBuilder) node(idx, depth int) (*scene.Node, error) {
	if depth > maxNodeDepth {
		return nil, errors.New("node hierarchy too deep")
	}
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	gn := b.doc.Nodes[idx]

	n := scene.NewNode(scene.KindHelper, gn.Name)
	n.Transform = nodeTransform(gn)
	if gn.Mesh != nil {
		meshes, err := b.meshes(int(*gn.Mesh))
		if err != nil {
			return nil, err
		}
		n.Meshes = meshes
	}
	for _, c := range gn.Children {
		child, err := b.node(int(c), depth+1)
		if err != nil {
			return nil, err
		}
		n.AddChild(child)
	}
	return n, nil
}

func (b *gltfBuilder) meshes(idx int) ([]*scene.Mesh, error) {
	if idx < 0 || idx >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", idx)
	}
	gm := b.doc.Meshes[idx]
	base := gm.Name
	if base == "" {
		base = "mesh" + strconv.Itoa(idx)
	}

	out := make([]*scene.Mesh, 0, len(gm.Primitives))
	for pi, p := range gm.Primitives {
		pos, ok := p.Attributes["POSITION"]
		if !ok {
			continue
		}
		if int(pos) >= len(b.doc.Accessors) {
			return nil, fmt.Errorf("mesh %q: accessor %d out of range", base, pos)
		}
		acc := b.doc.Accessors[pos]
		if len(acc.Min) < 3 || len(acc.Max) < 3 {
			return nil, fmt.Errorf("mesh %q: POSITION accessor without min/max", base)
		}

		id := base
		if len(gm.Primitives) > 1 {
			id += "/" + strconv.Itoa(pi)
		}
		out = append(out, &scene.Mesh{
			ID: b.unique(id),
			Bounds: geom.NewAABB(
				mgl64.Vec3{float64(acc.Min[0]), float64(acc.Min[1]), float64(acc.Min[2])},
				mgl64.Vec3{float64(acc.Max[0]), float64(acc.Max[1]), float64(acc.Max[2])},
			),
			Material: &scene.Material{Color: b.baseColor(p)},
		})
	}
	return out, nil
}

// unique keeps mesh ids distinct within one model so material overrides
// address exactly one mesh.
func (b *gltfBuilder) unique(id string) string {
	n := b.ids[id]
	b.ids[id] = n + 1
	if n == 0 {
		return id
	}
	return id + "#" + strconv.Itoa(n)
}

func (b *gltfBuilder) baseColor(p *gltf.Primitive) string {
	if p.Material == nil || int(*p.Material) >= len(b.doc.Materials) {
		return fallbackColor
	}
	mat := b.doc.Materials[*p.Material]
	if mat.PBRMetallicRoughness == nil || mat.PBRMetallicRoughness.BaseColorFactor == nil {
		return fallbackColor
	}
	f := mat.PBRMetallicRoughness.BaseColorFactor
	return hexColor(float64(f[0]), float64(f[1]), float64(f[2]))
}

func nodeTransform(gn *gltf.Node) scene.Transform {
	t := scene.IdentityTransform()

	var m mgl64.Mat4
	for i, v := range gn.Matrix {
		m[i] = float64(v)
	}
	if m != (mgl64.Mat4{}) && m != mgl64.Ident4() {
		return decompose(m)
	}

	t.Position = mgl64.Vec3{float64(gn.Translation[0]), float64(gn.Translation[1]), float64(gn.Translation[2])}
	r := gn.Rotation
	if q := (mgl64.Quat{W: float64(r[3]), V: mgl64.Vec3{float64(r[0]), float64(r[1]), float64(r[2])}}); q.Len() > 0 {
		t.Rotation = q.Normalize()
	}
	if s := (mgl64.Vec3{float64(gn.Scale[0]), float64(gn.Scale[1]), float64(gn.Scale[2])}); s != (mgl64.Vec3{}) {
		t.Scale = s
	}
	return t
}

// decompose splits a column-major TRS matrix. Shear is dropped.
func decompose(m mgl64.Mat4) scene.Transform {
	t := scene.IdentityTransform()
	t.Position = m.Col(3).Vec3()
	sx, sy, sz := m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()
	if sx == 0 || sy == 0 || sz == 0 {
		return t
	}
	t.Scale = mgl64.Vec3{sx, sy, sz}
	rot := mgl64.Mat3FromCols(m.Col(0).Vec3().Mul(1/sx), m.Col(1).Vec3().Mul(1/sy), m.Col(2).Vec3().Mul(1/sz))
	t.Rotation = mgl64.Mat4ToQuat(rot.Mat4()).Normalize()
	return t
}

func hexColor(r, g, b float64) string {
	c := func(v float64) int {
		return int(mgl64.Clamp(v, 0, 1)*255 + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", c(r), c(g), c(b))
}
