package simulation

import (
	"fmt"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
)

const (
	ObstacleCylinder = "cylinder"
	ObstaclePlane    = "plane"

	// capFraction of the half height above which a cylinder pushes over its cap instead of sideways
	capFraction = 0.95
)

// Obstacle is one of the static shapes boids steer around: Cylinder or Plane.
// The set is closed; use TestCollision to query any of them.
type Obstacle interface {
	obstacle()
}

// Cylinder is a vertical cylinder standing on the Y axis through Center.
type Cylinder struct {
	Center geometry.Vector3D
	Radius float64
	Height float64
}

// Plane is an infinite half-space bounded by the plane through Point with the
// outward Normal. Width and Length only describe the rectangle drawn by viewers.
type Plane struct {
	Point  geometry.Vector3D
	Normal geometry.Vector3D
	Width  float64
	Length float64
}

func (Cylinder) obstacle() {}
func (Plane) obstacle()    {}

// TestCollision reports whether point q is inside the obstacle and, if so,
// the direction to push it out. Push vectors are not normalized.
func TestCollision(o Obstacle, q geometry.Vector3D) (bool, geometry.Vector3D) {
	switch s := o.(type) {
	case Cylinder:
		return s.collides(q)
	case *Cylinder:
		return s.collides(q)
	case Plane:
		return s.collides(q)
	case *Plane:
		return s.collides(q)
	default:
		panic(fmt.Sprintf("simulation: unknown obstacle type %T", o))
	}
}

func (c Cylinder) collides(q geometry.Vector3D) (bool, geometry.Vector3D) {
	dx, dz := q.X-c.Center.X, q.Z-c.Center.Z
	if dx*dx+dz*dz > c.Radius*c.Radius {
		return false, geometry.Zero
	}

	halfHeight := c.Height / 2
	dy := q.Y - c.Center.Y
	if dy >= halfHeight || dy <= -halfHeight {
		return false, geometry.Zero
	}

	switch {
	case dy > halfHeight*capFraction:
		return true, geometry.Up
	case dy < -halfHeight*capFraction:
		return true, geometry.Down
	default:
		return true, geometry.Vector3D{X: dx, Z: dz}
	}
}

func (p Plane) collides(q geometry.Vector3D) (bool, geometry.Vector3D) {
	n := p.Normal.Normalize()
	if n.IsZero() {
		return false, geometry.Zero
	}
	if q.Sub(p.Point).Dot(n) <= 0 {
		return true, p.Normal
	}
	return false, geometry.Zero
}

// Axes returns the in-plane right and forward axes used to lay out the display rectangle.
func (p Plane) Axes() (right, forward geometry.Vector3D) {
	n := p.Normal
	right = geometry.Vector3D{X: n.Y, Y: n.Z, Z: n.X}
	forward = n.Cross(right)
	return right, forward
}

// Corners returns the display rectangle as top-left, top-right, bottom-right, bottom-left.
func (p Plane) Corners() [4]geometry.Vector3D {
	right, forward := p.Axes()
	hw := right.Mul(p.Width / 2)
	hl := forward.Mul(p.Length / 2)
	return [4]geometry.Vector3D{
		p.Point.Sub(hw).Add(hl),
		p.Point.Add(hw).Add(hl),
		p.Point.Add(hw).Sub(hl),
		p.Point.Sub(hw).Sub(hl),
	}
}

// Avoidance sums the push vectors of every obstacle containing q and
// normalizes the total. No collision, or pushes that cancel out, give zero.
func Avoidance(obstacles []Obstacle, q geometry.Vector3D) geometry.Vector3D {
	var total geometry.Vector3D
	for _, o := range obstacles {
		if hit, push := TestCollision(o, q); hit {
			total = total.Add(push)
		}
	}
	return total.Normalize()
}

// ObstacleConfig is the file representation of an obstacle.
type ObstacleConfig struct {
	Type     string            `json:"type"`
	Position geometry.Vector3D `json:"position"`

	// cylinder
	Radius float64 `json:"radius,omitempty"`
	Height float64 `json:"height,omitempty"`

	// plane
	Normal geometry.Vector3D `json:"normal"`
	Width  float64           `json:"width,omitempty"`
	Length float64           `json:"length,omitempty"`
}

// Build turns the file representation into an Obstacle.
func (oc ObstacleConfig) Build() (Obstacle, error) {
	switch oc.Type {
	case ObstacleCylinder:
		if oc.Radius <= 0 || oc.Height <= 0 {
			return nil, configErrorf("cylinder needs a positive radius and height (radius %g, height %g)", oc.Radius, oc.Height)
		}
		return Cylinder{Center: oc.Position, Radius: oc.Radius, Height: oc.Height}, nil
	case ObstaclePlane:
		if oc.Normal.Normalize().IsZero() {
			return nil, configErrorf("plane normal must not be the zero vector")
		}
		return Plane{Point: oc.Position, Normal: oc.Normal, Width: oc.Width, Length: oc.Length}, nil
	default:
		return nil, configErrorf("unknown obstacle type %q", oc.Type)
	}
}
