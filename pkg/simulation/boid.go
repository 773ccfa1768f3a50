package simulation

import (
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
)

// Boid is a single flock member.
// Boids is an artificial life program, developed by Craig Reynolds in 1986,
// which simulates the flocking behaviour of birds. The name "boid" is short
// for "bird-oid object". https://en.wikipedia.org/wiki/Boids
type Boid struct {
	ID          int
	Position    geometry.Vector3D
	Velocity    geometry.Vector3D
	Orientation geometry.Orientation

	// indices of the boids within the neighbour radius, valid during the current tick only
	neighbours []int
}

// newBoid allocates the neighbour set once; it is reused every tick.
func newBoid(id int, pos geometry.Vector3D, o geometry.Orientation, speed float64, capacity int) Boid {
	return Boid{
		ID:          id,
		Position:    pos,
		Velocity:    o.Forward().Mul(speed),
		Orientation: o,
		neighbours:  make([]int, 0, capacity),
	}
}

func (b *Boid) AddNeighbour(index int) {
	b.neighbours = append(b.neighbours, index)
}

// ClearNeighbours empties the set in place, keeping its storage.
func (b *Boid) ClearNeighbours() {
	b.neighbours = b.neighbours[:0]
}

func (b *Boid) NeighbourCount() int {
	return len(b.neighbours)
}

// Neighbours returns the current neighbour indices. The slice is reused on the next tick.
func (b *Boid) Neighbours() []int {
	return b.neighbours
}

// Forward is the direction the boid is facing.
func (b *Boid) Forward() geometry.Vector3D {
	return b.Orientation.Forward()
}

// upAxis is a vector perpendicular to the velocity used to roll the boid.
func upAxis(v geometry.Vector3D) geometry.Vector3D {
	return v.Cross(geometry.Vector3D{X: v.Y, Y: v.Z, Z: v.X}).Normalize()
}

// integrate moves the boid one step with the desired velocity:
// a zero desired velocity keeps the current one, speed is clamped to
// [MinSpeed, MaxSpeed], the heading turns at most MaxTurnRate*dt degrees,
// the position advances by velocity*dt and is wrapped when enabled.
func (b *Boid) integrate(desired geometry.Vector3D, cfg *Config, bounds Boundary, dt float64) {
	if desired.LenSqr() > 0 {
		b.Velocity = desired
	}
	if b.Velocity.Normalize().IsZero() {
		b.Velocity = b.Forward()
	}

	b.Velocity = b.Velocity.ClampLen(cfg.MinSpeed, cfg.MaxSpeed)

	target := geometry.LookRotation(b.Velocity, upAxis(b.Velocity))
	b.Orientation = b.Orientation.RotateTowards(target, cfg.MaxTurnRate*dt)

	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	if cfg.WrapEnabled {
		b.Position = bounds.Wrap(b.Position)
	}
}

// BoidState is a copy of a boid's public state handed to renderers.
type BoidState struct {
	ID          int                 `json:"id"`
	Position    geometry.Vector3D   `json:"position"`
	Velocity    geometry.Vector3D   `json:"velocity"`
	Orientation geometry.Orientation `json:"-"`
}

func (b *Boid) State() BoidState {
	return BoidState{ID: b.ID, Position: b.Position, Velocity: b.Velocity, Orientation: b.Orientation}
}
