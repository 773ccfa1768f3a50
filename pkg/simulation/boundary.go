package simulation

import (
	"math"
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
)

// Boundary is the axis-aligned box the flock lives in. Its faces are
// connected toroidally: leaving through one face re-enters through the opposite one.
type Boundary struct {
	Min geometry.Vector3D
	Max geometry.Vector3D
}

// NewBoundary checks that the box has a positive extent on every axis.
func NewBoundary(min, max geometry.Vector3D) (Boundary, error) {
	for _, axis := range geometry.Axes {
		lo, hi := min.Component(axis), max.Component(axis)
		if math.IsNaN(lo) || math.IsNaN(hi) || !(lo < hi) {
			return Boundary{}, configErrorf("boundary extent on axis %d must be positive (min %g, max %g)", axis, lo, hi)
		}
	}
	return Boundary{Min: min, Max: max}, nil
}

// Wrap maps a position that left the box back inside through the opposite face,
// keeping the overshoot distance. Only one wrap step is applied per axis, which is
// enough while maxSpeed * dt stays below the smallest extent.
func (b Boundary) Wrap(p geometry.Vector3D) geometry.Vector3D {
	for _, axis := range geometry.Axes {
		c := p.Component(axis)
		lo, hi := b.Min.Component(axis), b.Max.Component(axis)
		switch {
		case c < lo:
			p = p.WithComponent(axis, hi-(lo-c))
		case c > hi:
			p = p.WithComponent(axis, lo+(c-hi))
		}
	}
	return p
}

// Contains reports whether p lies inside the box, faces included.
func (b Boundary) Contains(p geometry.Vector3D) bool {
	for _, axis := range geometry.Axes {
		c := p.Component(axis)
		if c < b.Min.Component(axis) || c > b.Max.Component(axis) {
			return false
		}
	}
	return true
}

// Size returns the extent of the box on each axis.
func (b Boundary) Size() geometry.Vector3D {
	return b.Max.Sub(b.Min)
}

// Center returns the middle of the box.
func (b Boundary) Center() geometry.Vector3D {
	return b.Min.Lerp(b.Max, 0.5)
}

// MinExtent is the smallest of the three extents.
func (b Boundary) MinExtent() float64 {
	s := b.Size()
	return math.Min(s.X, math.Min(s.Y, s.Z))
}

// RandomPoint draws a point uniformly inside the box.
func (b Boundary) RandomPoint(rng *rand.Rand) geometry.Vector3D {
	s := b.Size()
	return geometry.Vector3D{
		X: b.Min.X + rng.Float64()*s.X,
		Y: b.Min.Y + rng.Float64()*s.Y,
		Z: b.Min.Z + rng.Float64()*s.Z,
	}
}
