// Package picking provides ray casting against the ground plane, boxes and gizmo handles.
package picking

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/van-studio/pkg/geom"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3 // normalized
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// NDC converts pixel coordinates to normalized device coordinates (-1..1, Y up).
func NDC(screenX, screenY, viewportW, viewportH float64) (float64, float64) {
	return 2*screenX/viewportW - 1, 1 - 2*screenY/viewportH
}

// ScreenToRay converts pixel coordinates to a world-space ray.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float64, invViewProj mgl64.Mat4) Ray {
	ndcX, ndcY := NDC(screenX, screenY, viewportW, viewportH)
	return NDCToRay(ndcX, ndcY, invViewProj)
}

// NDCToRay unprojects a normalized device coordinate into a world-space ray.
func NDCToRay(ndcX, ndcY float64, invViewProj mgl64.Mat4) Ray {
	near := invViewProj.Mul4x1(mgl64.Vec4{ndcX, ndcY, -1, 1})
	far := invViewProj.Mul4x1(mgl64.Vec4{ndcX, ndcY, 1, 1})

	origin := near.Vec3()
	if near[3] != 0 {
		origin = origin.Mul(1 / near[3])
	}
	end := far.Vec3()
	if far[3] != 0 {
		end = end.Mul(1 / far[3])
	}

	dir := end.Sub(origin)
	if l := dir.Len(); l > 0 {
		dir = dir.Mul(1 / l)
	}
	return Ray{Origin: origin, Direction: dir}
}

// IntersectPlane intersects the ray with the plane through point with the given normal.
// Hits behind the origin and near-parallel rays are rejected.
func (r Ray) IntersectPlane(point, normal mgl64.Vec3) (mgl64.Vec3, bool) {
	denom := r.Direction.Dot(normal)
	if math.Abs(denom) < 1e-6 {
		return mgl64.Vec3{}, false
	}
	t := point.Sub(r.Origin).Dot(normal) / denom
	if t < 0 {
		return mgl64.Vec3{}, false
	}
	return r.At(t), true
}

// IntersectPlaneY intersects the ray with the horizontal plane y = planeY.
func (r Ray) IntersectPlaneY(planeY float64) (mgl64.Vec3, bool) {
	return r.IntersectPlane(mgl64.Vec3{0, planeY, 0}, geom.AxisY)
}

// IntersectAABB tests the ray against a box using the slab method.
// If the ray starts inside the box, the exit distance is returned.
func (r Ray) IntersectAABB(box geom.AABB) (t float64, hit bool) {
	if box.IsEmpty() {
		return 0, false
	}
	tmin := math.Inf(-1)
	tmax := math.Inf(1)

	for i := 0; i < 3; i++ {
		if r.Direction[i] != 0 {
			t1 := (box.Min[i] - r.Origin[i]) / r.Direction[i]
			t2 := (box.Max[i] - r.Origin[i]) / r.Direction[i]
			if t1 > t2 {
				t1, t2 = t2, t1
			}
			tmin = math.Max(tmin, t1)
			tmax = math.Min(tmax, t2)
		} else if r.Origin[i] < box.Min[i] || r.Origin[i] > box.Max[i] {
			return 0, false
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// ClosestApproach finds the closest points between the ray and the line b + s*v.
// It returns the ray parameter t, the line parameter s and the distance between the points.
// Parallel lines report ok=false.
func (r Ray) ClosestApproach(b, v mgl64.Vec3) (t, s, dist float64, ok bool) {
	u := r.Direction
	w := r.Origin.Sub(b)
	uu := u.Dot(u)
	uv := u.Dot(v)
	vv := v.Dot(v)
	uw := u.Dot(w)
	vw := v.Dot(w)

	denom := uu*vv - uv*uv
	if denom < 1e-9 {
		return 0, 0, math.Inf(1), false
	}

	t = (uv*vw - vv*uw) / denom
	s = (uu*vw - uv*uw) / denom
	p1 := r.At(t)
	p2 := b.Add(v.Mul(s))
	return t, s, p1.Sub(p2).Len(), true
}
