package simulation

import (
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
)

// Forces are the raw, unweighted outputs of the four steering rules for one boid.
type Forces struct {
	Separation geometry.Vector3D
	Alignment  geometry.Vector3D
	Cohesion   geometry.Vector3D
	Avoidance  geometry.Vector3D
}

// Steering evaluates the flocking rules. It only reads the shared configuration,
// so one value serves every boid and every worker.
type Steering struct {
	cfg *Config
}

func NewSteering(cfg *Config) Steering {
	return Steering{cfg: cfg}
}

// Separation steers away from neighbours closer than the separation value,
// each one weighted by the inverse of its squared distance.
func (s Steering) Separation(self *Boid, boids []Boid) geometry.Vector3D {
	if self.NeighbourCount() == 0 {
		return geometry.Zero
	}
	minDistSq := s.cfg.Separation.Value * s.cfg.Separation.Value

	var force geometry.Vector3D
	for _, n := range self.neighbours {
		diff := self.Position.Sub(boids[n].Position)
		distSq := diff.LenSqr()
		// coincident boids have no direction to push along
		if distSq >= minDistSq || distSq == 0 {
			continue
		}
		force = force.Add(diff.Normalize().Mul(1 / distSq))
	}
	return force
}

// Alignment steers toward the average heading of the neighbours.
func (s Steering) Alignment(self *Boid, boids []Boid) geometry.Vector3D {
	count := self.NeighbourCount()
	if count == 0 {
		return geometry.Zero
	}
	var sumHeading geometry.Vector3D
	for _, n := range self.neighbours {
		sumHeading = sumHeading.Add(boids[n].Velocity.Normalize())
	}
	return sumHeading.Mul(1 / float64(count))
}

// Cohesion steers toward the centroid of the neighbours.
func (s Steering) Cohesion(self *Boid, boids []Boid) geometry.Vector3D {
	count := self.NeighbourCount()
	if count == 0 {
		return geometry.Zero
	}
	var centroid geometry.Vector3D
	for _, n := range self.neighbours {
		centroid = centroid.Add(boids[n].Position)
	}
	centroid = centroid.Mul(1 / float64(count))
	return centroid.Sub(self.Position)
}

// Avoidance probes one avoidance distance ahead of the boid and returns the
// normalized push out of every obstacle containing that point.
func (s Steering) Avoidance(self *Boid, obstacles []Obstacle) geometry.Vector3D {
	if len(obstacles) == 0 {
		return geometry.Zero
	}
	ahead := self.Position.Add(self.Velocity.Normalize().Mul(s.cfg.Avoidance.Distance))
	return Avoidance(obstacles, ahead)
}

// Evaluate computes the four rules for boids[i]. Rules that are disabled are skipped.
func (s Steering) Evaluate(i int, boids []Boid, obstacles []Obstacle) Forces {
	self := &boids[i]
	var f Forces
	if s.cfg.Separation.Enabled {
		f.Separation = s.Separation(self, boids)
	}
	if s.cfg.Alignment.Enabled {
		f.Alignment = s.Alignment(self, boids)
	}
	if s.cfg.Cohesion.Enabled {
		f.Cohesion = s.Cohesion(self, boids)
	}
	if s.cfg.Avoidance.Enabled {
		f.Avoidance = s.Avoidance(self, obstacles)
	}
	return f
}

// Compose weights the enabled rules by their factors and sums them into the
// desired velocity for the tick.
func (s Steering) Compose(f Forces) geometry.Vector3D {
	var v geometry.Vector3D
	if s.cfg.Separation.Enabled {
		v = v.Add(f.Separation.Mul(s.cfg.Separation.Factor))
	}
	if s.cfg.Alignment.Enabled {
		v = v.Add(f.Alignment.Mul(s.cfg.Alignment.Factor))
	}
	if s.cfg.Cohesion.Enabled {
		v = v.Add(f.Cohesion.Mul(s.cfg.Cohesion.Factor))
	}
	if s.cfg.Avoidance.Enabled {
		v = v.Add(f.Avoidance.Mul(s.cfg.Avoidance.Factor))
	}
	return v
}
