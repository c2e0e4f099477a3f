// Package camera provides the orbit camera used by the studio viewport.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/van-studio/internal/engine/picking"
	"github.com/Faultbox/van-studio/pkg/geom"
)

// Default pose used on startup and by Reset.
var (
	DefaultEye    = mgl64.Vec3{5, 3, 5}
	DefaultTarget = mgl64.Vec3{0, 0, 0}
)

// OrbitCamera orbits around a target point. The pose is stored as eye and target
// so it round-trips exactly through saved designs; orbit gestures convert to
// spherical coordinates on the fly.
type OrbitCamera struct {
	eye    mgl64.Vec3
	target mgl64.Vec3

	FOV    float64 // vertical, degrees
	Aspect float64
	Near   float64
	Far    float64

	// Constraints
	MinDistance float64
	MaxDistance float64
	MinPitch    float64
	MaxPitch    float64

	// Sensitivity
	DragSensitivity float64
	ZoomSensitivity float64
	PanSensitivity  float64

	enabled bool
}

// NewOrbitCamera creates an orbit camera at the default pose.
func NewOrbitCamera(fovDeg, aspect float64) *OrbitCamera {
	return &OrbitCamera{
		eye:             DefaultEye,
		target:          DefaultTarget,
		FOV:             fovDeg,
		Aspect:          aspect,
		Near:            0.1,
		Far:             1000,
		MinDistance:     0.5,
		MaxDistance:     200,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		PanSensitivity:  0.002,
		enabled:         true,
	}
}

// Enabled reports whether orbit gestures are accepted.
func (c *OrbitCamera) Enabled() bool { return c.enabled }

// SetEnabled turns orbit gestures on or off. Drag and gizmo interactions
// switch it off for their duration.
func (c *OrbitCamera) SetEnabled(on bool) { c.enabled = on }

// Position returns the eye position.
func (c *OrbitCamera) Position() mgl64.Vec3 { return c.eye }

// Target returns the look-at point.
func (c *OrbitCamera) Target() mgl64.Vec3 { return c.target }

// SetPose places the camera at eye looking at target.
func (c *OrbitCamera) SetPose(eye, target mgl64.Vec3) {
	c.eye = eye
	c.target = target
}

// Reset returns the camera to the default pose.
func (c *OrbitCamera) Reset() {
	c.SetPose(DefaultEye, DefaultTarget)
}

// SetViewport updates the aspect ratio from a viewport size.
func (c *OrbitCamera) SetViewport(width, height int) {
	if height > 0 {
		c.Aspect = float64(width) / float64(height)
	}
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(c.eye, c.target, geom.AxisY)
}

// ProjectionMatrix returns the perspective projection.
func (c *OrbitCamera) ProjectionMatrix() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// ViewProjection returns projection * view.
func (c *OrbitCamera) ViewProjection() mgl64.Mat4 {
	return c.ProjectionMatrix().Mul4(c.ViewMatrix())
}

// Ray returns the world ray through a pixel of a viewport of the given size.
func (c *OrbitCamera) Ray(screenX, screenY float64, width, height int) picking.Ray {
	return picking.ScreenToRay(screenX, screenY, float64(width), float64(height), c.ViewProjection().Inv())
}

// Forward returns the normalized view direction.
func (c *OrbitCamera) Forward() mgl64.Vec3 {
	d := c.target.Sub(c.eye)
	if d.Len() == 0 {
		return mgl64.Vec3{0, 0, -1}
	}
	return d.Normalize()
}

// spherical returns distance, pitch and yaw of the eye around the target.
func (c *OrbitCamera) spherical() (dist, pitch, yaw float64) {
	off := c.eye.Sub(c.target)
	dist = off.Len()
	if dist == 0 {
		return 0, 0, 0
	}
	pitch = math.Asin(mgl64.Clamp(off.Y()/dist, -1, 1))
	yaw = math.Atan2(off.X(), off.Z())
	return dist, pitch, yaw
}

func (c *OrbitCamera) setSpherical(dist, pitch, yaw float64) {
	off := mgl64.Vec3{
		dist * math.Cos(pitch) * math.Sin(yaw),
		dist * math.Sin(pitch),
		dist * math.Cos(pitch) * math.Cos(yaw),
	}
	c.eye = c.target.Add(off)
}

// HandleDrag orbits the eye based on a mouse drag delta in pixels.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float64) {
	if !c.enabled {
		return
	}
	dist, pitch, yaw := c.spherical()
	yaw -= deltaX * c.DragSensitivity
	pitch = mgl64.Clamp(pitch+deltaY*c.DragSensitivity, c.MinPitch, c.MaxPitch)
	c.setSpherical(dist, pitch, yaw)
}

// HandleZoom moves the eye along the view direction based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float64) {
	if !c.enabled {
		return
	}
	dist, pitch, yaw := c.spherical()
	dist -= delta * dist * c.ZoomSensitivity
	c.setSpherical(mgl64.Clamp(dist, c.MinDistance, c.MaxDistance), pitch, yaw)
}

// HandlePan shifts eye and target together in the view plane.
func (c *OrbitCamera) HandlePan(deltaX, deltaY float64) {
	if !c.enabled {
		return
	}
	fwd := c.Forward()
	right := fwd.Cross(geom.AxisY)
	if right.Len() == 0 {
		right = geom.AxisX
	}
	right = right.Normalize()
	up := right.Cross(fwd).Normalize()

	scale := c.eye.Sub(c.target).Len() * c.PanSensitivity
	shift := right.Mul(-deltaX * scale).Add(up.Mul(deltaY * scale))
	c.eye = c.eye.Add(shift)
	c.target = c.target.Add(shift)
}

// FocusOnBounds frames a box: the eye backs off along the (1,1,1) diagonal by a
// distance derived from the box size and the field of view.
func (c *OrbitCamera) FocusOnBounds(box geom.AABB) {
	if box.IsEmpty() {
		return
	}
	center := box.Center()
	dist := box.MaxDim() / math.Sin(mgl64.DegToRad(c.FOV)/2)
	c.SetPose(center.Add(mgl64.Vec3{dist * 0.5, dist * 0.5, dist * 0.5}), center)
}

// PositionInFront returns the point distance units ahead of the eye, dropped onto the floor.
func (c *OrbitCamera) PositionInFront(distance float64) mgl64.Vec3 {
	p := c.eye.Add(c.Forward().Mul(distance))
	p[1] = 0
	return p
}
