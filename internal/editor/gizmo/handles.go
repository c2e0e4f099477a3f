package gizmo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/editor"
	"github.com/Faultbox/van-studio/internal/engine/picking"
	"github.com/Faultbox/van-studio/pkg/geom"
)

// Handle geometry, relative to the on-screen handle length.
const (
	handleScale   = 0.15 // handle length per unit of camera distance
	axisTolerance = 0.12
	ringRadius    = 0.8
	ringTolerance = 0.1
	minScale      = 0.01
)

// ringBasis gives the in-plane axes used to measure the angle on each ring.
var ringBasis = [3][2]int{
	{1, 2}, // X ring: Y, Z
	{2, 0}, // Y ring: Z, X
	{0, 1}, // Z ring: X, Y
}

// gesture is the handle drag in progress.
type gesture struct {
	active bool
	axis   int
	length float64
	origin mgl64.Vec3
	startS float64
	angle  float64
}

// HandleLength returns the world length of the handles at the current camera distance.
func (g *Controller) HandleLength() float64 {
	if g.proxy == nil {
		return 0
	}
	return g.scene.Camera().Position().Sub(g.proxy.Position).Len() * handleScale
}

// RingRadius returns the world radius of the rotation rings.
func (g *Controller) RingRadius() float64 { return g.HandleLength() * ringRadius }

func (g *Controller) pointerRay(ev editor.PointerEvent) picking.Ray {
	w, h := g.scene.Viewport()
	return g.scene.Camera().Ray(ev.X, ev.Y, w, h)
}

// HitHandle returns the axis of the handle under ray for the current mode.
func (g *Controller) HitHandle(ray picking.Ray) (axis int, ok bool) {
	if g.proxy == nil {
		return 0, false
	}
	center := g.proxy.Position
	length := g.HandleLength()
	best := math.Inf(1)
	axis = -1

	for i, dir := range geom.Axes {
		if !g.show[i] {
			continue
		}
		switch g.mode {
		case editor.ModeRotate:
			p, hit := ray.IntersectPlane(center, dir)
			if !hit {
				continue
			}
			miss := math.Abs(p.Sub(center).Len() - ringRadius*length)
			if miss < ringTolerance*length && miss < best {
				best, axis = miss, i
			}
		default:
			_, s, dist, hit := ray.ClosestApproach(center, dir)
			if !hit || s < 0 || s > length {
				continue
			}
			if dist < axisTolerance*length && dist < best {
				best, axis = dist, i
			}
		}
	}
	return axis, axis >= 0
}

func (g *Controller) ringAngle(ray picking.Ray, axis int) (float64, bool) {
	center := g.objectCenter
	p, ok := ray.IntersectPlane(center, geom.Axes[axis])
	if !ok {
		return 0, false
	}
	d := p.Sub(center)
	b := ringBasis[axis]
	return math.Atan2(d.Dot(geom.Axes[b[1]]), d.Dot(geom.Axes[b[0]])), true
}

func (g *Controller) axisParam(ray picking.Ray, axis int) (float64, bool) {
	_, s, _, ok := ray.ClosestApproach(g.gesture.origin, geom.Axes[axis])
	return s, ok
}

// PointerDown grabs a handle under the pointer. It returns true when consumed.
func (g *Controller) PointerDown(ev editor.PointerEvent) bool {
	if !g.Live() || g.state == Dragging || ev.Button != editor.ButtonPrimary {
		return false
	}
	ray := g.pointerRay(ev)
	axis, ok := g.HitHandle(ray)
	if !ok {
		return false
	}

	gs := gesture{active: true, axis: axis, length: g.HandleLength(), origin: g.proxy.Position}
	switch g.mode {
	case editor.ModeRotate:
		a, hit := g.ringAngle(ray, axis)
		if !hit {
			return false
		}
		gs.angle = a
	default:
		g.gesture = gs
		s, hit := g.axisParam(ray, axis)
		if !hit {
			g.gesture = gesture{}
			return false
		}
		gs.startS = s
	}

	if !g.BeginInteraction() {
		return false
	}
	g.gesture = gs
	g.log.Debug("handle grabbed", zap.Int("axis", axis), zap.Stringer("mode", g.mode))
	return true
}

// PointerMove drives the proxy along the grabbed handle and applies the change.
func (g *Controller) PointerMove(ev editor.PointerEvent) bool {
	if g.state != Dragging || !g.gesture.active {
		return false
	}
	ray := g.pointerRay(ev)
	gs := &g.gesture

	switch g.mode {
	case editor.ModeTranslate:
		s, ok := g.axisParam(ray, gs.axis)
		if !ok {
			return true
		}
		g.proxy.Position = gs.origin.Add(geom.Axes[gs.axis].Mul(s - gs.startS))

	case editor.ModeRotate:
		a, ok := g.ringAngle(ray, gs.axis)
		if !ok {
			return true
		}
		g.proxy.Rotation[gs.axis] += geom.WrapAngle(a - gs.angle)
		gs.angle = a

	case editor.ModeScale:
		s, ok := g.axisParam(ray, gs.axis)
		if !ok || gs.length == 0 {
			return true
		}
		factor := math.Max((gs.length+s-gs.startS)/gs.length, minScale)
		g.proxy.Scale[gs.axis] = factor
	}

	g.ObjectChange()
	return true
}

// PointerUp releases the handle and commits the interaction.
func (g *Controller) PointerUp(editor.PointerEvent) bool {
	if g.state != Dragging {
		return false
	}
	g.EndInteraction()
	return true
}
