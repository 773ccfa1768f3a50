package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Orientation is a unit quaternion rotating the local frame
// (right = +X, up = +Y, forward = +Z) into world space.
type Orientation struct {
	q mgl64.Quat
}

// Identity returns the orientation whose forward axis is +Z.
func Identity() Orientation {
	return Orientation{q: mgl64.QuatIdent()}
}

// FromEuler builds an orientation from angles in degrees. The rotation is
// applied around Z first, then X, then Y.
func FromEuler(xDeg, yDeg, zDeg float64) Orientation {
	qx := mgl64.QuatRotate(mgl64.DegToRad(xDeg), Right.Vec3())
	qy := mgl64.QuatRotate(mgl64.DegToRad(yDeg), Up.Vec3())
	qz := mgl64.QuatRotate(mgl64.DegToRad(zDeg), Forward.Vec3())
	return Orientation{q: qy.Mul(qx).Mul(qz).Normalize()}
}

// LookRotation returns the orientation whose forward axis points along
// forward and whose up axis is as close to up as possible.
// A zero forward yields the identity; an up parallel to forward is replaced
// by another reference axis.
func LookRotation(forward, up Vector3D) Orientation {
	f := forward.Normalize()
	if f.IsZero() {
		return Identity()
	}
	r := up.Cross(f).Normalize()
	if r.IsZero() {
		ref := Up
		if math.Abs(f.Y) > 0.99 {
			ref = Forward
		}
		r = ref.Cross(f).Normalize()
	}
	u := f.Cross(r)
	m := mgl64.Mat3FromCols(r.Vec3(), u.Vec3(), f.Vec3())
	return Orientation{q: mgl64.Mat4ToQuat(m.Mat4()).Normalize()}
}

// Forward is the world-space direction of the local +Z axis.
func (o Orientation) Forward() Vector3D {
	return FromVec3(o.q.Rotate(Forward.Vec3()))
}

// Up is the world-space direction of the local +Y axis.
func (o Orientation) Up() Vector3D {
	return FromVec3(o.q.Rotate(Up.Vec3()))
}

// Right is the world-space direction of the local +X axis.
func (o Orientation) Right() Vector3D {
	return FromVec3(o.q.Rotate(Right.Vec3()))
}

// Quat exposes the underlying quaternion for renderers.
func (o Orientation) Quat() mgl64.Quat {
	return o.q
}

// AngleTo returns the angle in degrees of the rotation between o and other.
func (o Orientation) AngleTo(other Orientation) float64 {
	d := math.Abs(o.q.Dot(other.q))
	if d >= 1 {
		return 0
	}
	return mgl64.RadToDeg(2 * math.Acos(d))
}

// RotateTowards rotates o toward target by at most maxDegrees.
// The target is reached exactly when it is within maxDegrees.
func (o Orientation) RotateTowards(target Orientation, maxDegrees float64) Orientation {
	angle := o.AngleTo(target)
	if angle == 0 || angle <= maxDegrees {
		return target
	}
	if maxDegrees <= 0 {
		return o
	}
	to := target.q
	// take the short way around
	if o.q.Dot(to) < 0 {
		to = to.Scale(-1)
	}
	return Orientation{q: mgl64.QuatSlerp(o.q, to, maxDegrees/angle).Normalize()}
}

// ApproxEqual reports whether both orientations describe the same rotation
// within tolerance degrees.
func (o Orientation) ApproxEqual(other Orientation, toleranceDeg float64) bool {
	return o.AngleTo(other) <= toleranceDeg
}
