// Package mathx holds the transform conventions shared by the transform
// tracker, the physics sync and the renderer.
package mathx

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ModelMatrix composes Translate(position) · RotateXYZ(rotation) · Scale(scale).
// Translation is outermost and scale innermost.
func ModelMatrix(position, rotation, scale mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).
		Mul4(RotationMatrix(rotation)).
		Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}

// RotationMatrix builds Rz(r.z) · Ry(r.y) · Rx(r.x) from Euler radians
// (roll about X, pitch about Y, yaw about Z).
func RotationMatrix(r mgl32.Vec3) mgl32.Mat4 {
	return mgl32.HomogRotate3DZ(r.Z()).
		Mul4(mgl32.HomogRotate3DY(r.Y())).
		Mul4(mgl32.HomogRotate3DX(r.X()))
}

// EulerToQuat converts Euler radians to the equivalent unit quaternion.
func EulerToQuat(r mgl32.Vec3) mgl32.Quat {
	return mgl32.Mat4ToQuat(RotationMatrix(r)).Normalize()
}

// QuatToEuler is the inverse of EulerToQuat. Pitch is kept in [-π/2, π/2];
// at gimbal lock roll is reported as zero.
func QuatToEuler(q mgl32.Quat) mgl32.Vec3 {
	m := q.Normalize().Mat4()
	sp := float64(-m.At(2, 0))
	sp = math.Max(-1, math.Min(1, sp))
	pitch := math.Asin(sp)

	var roll, yaw float64
	if math.Abs(sp) < 0.99999 {
		roll = math.Atan2(float64(m.At(2, 1)), float64(m.At(2, 2)))
		yaw = math.Atan2(float64(m.At(1, 0)), float64(m.At(0, 0)))
	} else {
		yaw = math.Atan2(float64(-m.At(0, 1)), float64(m.At(1, 1)))
	}
	return mgl32.Vec3{float32(roll), float32(pitch), float32(yaw)}
}

// Forward is the camera look direction for an Euler rotation.
func Forward(r mgl32.Vec3) mgl32.Vec3 {
	x, y := float64(r.X()), float64(r.Y())
	return mgl32.Vec3{
		float32(math.Cos(x) * math.Cos(y)),
		float32(math.Sin(x)),
		float32(math.Cos(x) * math.Sin(y)),
	}
}

func Splat(v float32) mgl32.Vec3 { return mgl32.Vec3{v, v, v} }
