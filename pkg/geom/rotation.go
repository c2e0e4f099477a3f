package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// World axes.
var (
	AxisX = mgl64.Vec3{1, 0, 0}
	AxisY = mgl64.Vec3{0, 1, 0}
	AxisZ = mgl64.Vec3{0, 0, 1}
)

// Axes lists the world axes by index.
var Axes = [3]mgl64.Vec3{AxisX, AxisY, AxisZ}

// Euler angles in radians, applied in XYZ order (rotation = Rx * Ry * Rz).
type Euler = mgl64.Vec3

// QuatFromEuler converts XYZ-order Euler angles to a quaternion.
func QuatFromEuler(e Euler) mgl64.Quat {
	qx := mgl64.QuatRotate(e[0], AxisX)
	qy := mgl64.QuatRotate(e[1], AxisY)
	qz := mgl64.QuatRotate(e[2], AxisZ)
	return qx.Mul(qy).Mul(qz).Normalize()
}

// EulerFromQuat converts a quaternion to XYZ-order Euler angles.
// Near gimbal lock (|pitch| = 90°) the Z angle is folded into X.
func EulerFromQuat(q mgl64.Quat) Euler {
	m := q.Normalize().Mat4()
	m11, m12, m13 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	m22, m23 := m.At(1, 1), m.At(1, 2)
	m32, m33 := m.At(2, 1), m.At(2, 2)

	var e Euler
	e[1] = math.Asin(mgl64.Clamp(m13, -1, 1))
	if math.Abs(m13) < 0.9999999 {
		e[0] = math.Atan2(-m23, m33)
		e[2] = math.Atan2(-m12, m11)
	} else {
		e[0] = math.Atan2(m32, m22)
		e[2] = 0
	}
	return e
}

// RotateAroundWorldAxis orbits pos about the line through pivot along axis by angle,
// and left-multiplies rot by the same rotation so the object also spins.
func RotateAroundWorldAxis(pos mgl64.Vec3, rot mgl64.Quat, pivot, axis mgl64.Vec3, angle float64) (mgl64.Vec3, mgl64.Quat) {
	q := mgl64.QuatRotate(angle, axis.Normalize())
	offset := q.Rotate(pos.Sub(pivot))
	return pivot.Add(offset), q.Mul(rot).Normalize()
}

// TRS composes translation, rotation and scale into one matrix.
func TRS(pos mgl64.Vec3, rot mgl64.Quat, scale mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(pos[0], pos[1], pos[2]).
		Mul4(rot.Mat4()).
		Mul4(mgl64.Scale3D(scale[0], scale[1], scale[2]))
}

// WrapAngle maps a radian angle into (-π, π].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
