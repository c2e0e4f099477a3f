package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/van-studio/pkg/geom"
)

func TestDefaults(t *testing.T) {
	c := NewOrbitCamera(45, 16.0/9.0)
	assert.Equal(t, mgl64.Vec3{5, 3, 5}, c.Position())
	assert.Equal(t, mgl64.Vec3{}, c.Target())
	assert.True(t, c.Enabled())
	assert.Equal(t, 0.1, c.Near)
	assert.Equal(t, 1000.0, c.Far)
}

func TestPoseRoundTripIsExact(t *testing.T) {
	c := NewOrbitCamera(45, 1)
	eye := mgl64.Vec3{1.234567, 8.9, -3.21}
	target := mgl64.Vec3{0.1, 0.2, 0.3}
	c.SetPose(eye, target)
	assert.Equal(t, eye, c.Position())
	assert.Equal(t, target, c.Target())

	c.HandleDrag(10, 0)
	c.Reset()
	assert.Equal(t, DefaultEye, c.Position())
}

func TestDisabledIgnoresGestures(t *testing.T) {
	c := NewOrbitCamera(45, 1)
	c.SetEnabled(false)
	c.HandleDrag(100, 50)
	c.HandleZoom(1)
	c.HandlePan(30, 30)
	assert.Equal(t, DefaultEye, c.Position())
	assert.Equal(t, DefaultTarget, c.Target())
}

func TestDragKeepsDistance(t *testing.T) {
	c := NewOrbitCamera(45, 1)
	before := c.Position().Len()
	c.HandleDrag(120, -40)
	assert.InDelta(t, before, c.Position().Len(), 1e-9)
	assert.NotEqual(t, DefaultEye, c.Position())
}

func TestZoomClamps(t *testing.T) {
	c := NewOrbitCamera(45, 1)
	for i := 0; i < 100; i++ {
		c.HandleZoom(5)
	}
	assert.InDelta(t, c.MinDistance, c.Position().Sub(c.Target()).Len(), 1e-9)
}

func TestPanMovesBoth(t *testing.T) {
	c := NewOrbitCamera(45, 1)
	c.HandlePan(50, 0)
	off := c.Position().Sub(c.Target())
	assert.True(t, off.ApproxEqualThreshold(DefaultEye.Sub(DefaultTarget), 1e-9))
	assert.NotEqual(t, DefaultTarget, c.Target())
}

func TestFocusOnBounds(t *testing.T) {
	c := NewOrbitCamera(90, 1)
	box := geom.NewAABB(mgl64.Vec3{-1, 0, -1}, mgl64.Vec3{1, 2, 1})
	c.FocusOnBounds(box)

	dist := 2 / math.Sin(math.Pi/4)
	want := mgl64.Vec3{dist * 0.5, 1 + dist*0.5, dist * 0.5}
	assert.True(t, c.Position().ApproxEqualThreshold(want, 1e-9), "eye %v", c.Position())
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, c.Target())
}

func TestPositionInFront(t *testing.T) {
	c := NewOrbitCamera(45, 1)
	c.SetPose(mgl64.Vec3{0, 2, 5}, mgl64.Vec3{0, 2, 0})
	p := c.PositionInFront(2)
	assert.True(t, p.ApproxEqualThreshold(mgl64.Vec3{0, 0, 3}, 1e-9), "got %v", p)
}

func TestRayThroughCenterHitsTarget(t *testing.T) {
	c := NewOrbitCamera(45, 800.0/600.0)
	r := c.Ray(400, 300, 800, 600)
	assert.True(t, r.Direction.ApproxEqualThreshold(c.Forward(), 1e-6))
}
