// Package geom provides the small amount of 3D math the editor needs on top of mgl64:
// axis-aligned boxes, Euler angle conversion and rotation about a world axis.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box. The zero value is a degenerate box at the origin;
// use Empty for a box that absorbs the first point it is extended with.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// Empty returns an inverted box that any Extend call overwrites.
func Empty() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// NewAABB creates a box from two corners in any order.
func NewAABB(a, b mgl64.Vec3) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])},
		Max: mgl64.Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])},
	}
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// Extend grows the box to contain p.
func (b AABB) Extend(p mgl64.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

// Union returns the smallest box containing both boxes. Empty boxes are ignored.
func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the box extent along each axis.
func (b AABB) Size() mgl64.Vec3 {
	if b.IsEmpty() {
		return mgl64.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// MaxDim returns the largest extent.
func (b AABB) MaxDim() float64 {
	s := b.Size()
	return math.Max(s[0], math.Max(s[1], s[2]))
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]mgl64.Vec3 {
	return [8]mgl64.Vec3{
		{b.Min[0], b.Min[1], b.Min[2]},
		{b.Max[0], b.Min[1], b.Min[2]},
		{b.Min[0], b.Max[1], b.Min[2]},
		{b.Max[0], b.Max[1], b.Min[2]},
		{b.Min[0], b.Min[1], b.Max[2]},
		{b.Max[0], b.Min[1], b.Max[2]},
		{b.Min[0], b.Max[1], b.Max[2]},
		{b.Max[0], b.Max[1], b.Max[2]},
	}
}

// Transform returns the world box enclosing all eight corners of b under m.
func (b AABB) Transform(m mgl64.Mat4) AABB {
	if b.IsEmpty() {
		return b
	}
	out := Empty()
	for _, c := range b.Corners() {
		out = out.Extend(mgl64.TransformCoordinate(c, m))
	}
	return out
}

// Contains reports whether p lies inside or on the box.
func (b AABB) Contains(p mgl64.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}
