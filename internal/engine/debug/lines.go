// Package debug builds line geometry for the wireframe viewport and writes screenshots.
package debug

import (
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/van-studio/internal/editor"
	"github.com/Faultbox/van-studio/internal/editor/gizmo"
	"github.com/Faultbox/van-studio/internal/scene"
	"github.com/Faultbox/van-studio/pkg/geom"
)

// Vertex is one end of a line, format [x, y, z, r, g, b].
type Vertex struct {
	X, Y, Z float32
	R, G, B float32
}

// Color is a linear RGB triple.
type Color [3]float32

// Palette.
var (
	GridColor        = Color{0.35, 0.35, 0.4}
	MeasurementColor = Color{1, 0.85, 0.2}
	HoverColor       = Color{1, 1, 1}
	AxisColors       = [3]Color{{0.9, 0.2, 0.2}, {0.2, 0.9, 0.2}, {0.2, 0.4, 0.95}}
)

// GridHalfSize and GridStep match a 20x20 floor grid of one unit cells.
const (
	GridHalfSize = 10
	GridStep     = 1.0
	ringSegments = 48
)

// ParseColor converts "#rrggbb". Invalid input yields mid grey.
func ParseColor(hex string) Color {
	if len(hex) != 7 || hex[0] != '#' {
		return Color{0.5, 0.5, 0.5}
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return Color{0.5, 0.5, 0.5}
	}
	return Color{float32(v>>16&0xff) / 255, float32(v>>8&0xff) / 255, float32(v&0xff) / 255}
}

func vert(p mgl64.Vec3, c Color) Vertex {
	return Vertex{float32(p[0]), float32(p[1]), float32(p[2]), c[0], c[1], c[2]}
}

func line(out []Vertex, a, b mgl64.Vec3, c Color) []Vertex {
	return append(out, vert(a, c), vert(b, c))
}

// boxEdges indexes AABB.Corners pairs: bottom face, top face, then verticals.
var boxEdges = [12][2]int{
	{0, 1}, {1, 5}, {5, 4}, {4, 0},
	{2, 3}, {3, 7}, {7, 6}, {6, 2},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
}

// BoxLines appends the 12 edges of b transformed by m.
func BoxLines(out []Vertex, b geom.AABB, m mgl64.Mat4, c Color) []Vertex {
	if b.IsEmpty() {
		return out
	}
	corners := b.Corners()
	for i := range corners {
		corners[i] = mgl64.TransformCoordinate(corners[i], m)
	}
	for _, e := range boxEdges {
		out = line(out, corners[e[0]], corners[e[1]], c)
	}
	return out
}

// GridLines appends a square floor grid centred on the origin.
func GridLines(out []Vertex, half int, step float64, c Color) []Vertex {
	ext := float64(half) * step
	for i := -half; i <= half; i++ {
		d := float64(i) * step
		out = line(out, mgl64.Vec3{d, 0, -ext}, mgl64.Vec3{d, 0, ext}, c)
		out = line(out, mgl64.Vec3{-ext, 0, d}, mgl64.Vec3{ext, 0, d}, c)
	}
	return out
}

// RingLines appends a circle around center in the plane normal to axis.
func RingLines(out []Vertex, center mgl64.Vec3, axis int, radius float64, c Color) []Vertex {
	u := geom.Axes[(axis+1)%3]
	v := geom.Axes[(axis+2)%3]
	point := func(i int) mgl64.Vec3 {
		a := 2 * math.Pi * float64(i) / ringSegments
		return center.Add(u.Mul(radius * math.Cos(a))).Add(v.Mul(radius * math.Sin(a)))
	}
	for i := 0; i < ringSegments; i++ {
		out = line(out, point(i), point(i+1), c)
	}
	return out
}

// SceneLines builds the whole frame: grid, every visible mesh box in its
// material colour, the measurement box around the vehicle and the gizmo handles.
func SceneLines(sc *scene.Controller, gz *gizmo.Controller) []Vertex {
	out := make([]Vertex, 0, 1024)
	if sc.GridVisible() {
		out = GridLines(out, GridHalfSize, GridStep, GridColor)
	}
	hovered := sc.Hovered()
	var visit func(n *scene.Node)
	visit = func(n *scene.Node) {
		if !n.Visible {
			return
		}
		if len(n.Meshes) > 0 {
			w := n.WorldMatrix()
			for _, m := range n.Meshes {
				c := ParseColor(m.BaseMaterial().Clone().Color)
				if m.Outlined() {
					c = AxisColors[1]
				} else if owner := n.PickableAncestor(); owner != nil && owner == hovered {
					c = HoverColor
				}
				out = BoxLines(out, m.Bounds, w, c)
			}
		}
		for _, ch := range n.Children() {
			visit(ch)
		}
	}
	for _, top := range sc.Nodes() {
		visit(top)
	}
	if v := sc.Vehicle(); v != nil && sc.MeasurementsVisible() {
		out = BoxLines(out, v.WorldBounds(), mgl64.Ident4(), MeasurementColor)
	}
	if gz != nil {
		out = HandleLines(out, gz)
	}
	return out
}

// HandleLines appends the gizmo handles for its current mode.
func HandleLines(out []Vertex, gz *gizmo.Controller) []Vertex {
	p := gz.Proxy()
	if gz.Active() == nil || p == nil {
		return out
	}
	length := gz.HandleLength()
	for i := 0; i < 3; i++ {
		if !gz.ShowAxis(i) {
			continue
		}
		switch gz.Mode() {
		case editor.ModeRotate:
			out = RingLines(out, p.Position, i, gz.RingRadius(), AxisColors[i])
		default:
			out = line(out, p.Position, p.Position.Add(geom.Axes[i].Mul(length)), AxisColors[i])
		}
	}
	return out
}
