package simulation

import (
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Simulation owns the flock, the obstacles and the boundary, and advances
// them one fixed tick at a time. It is not safe for concurrent use.
type Simulation struct {
	cfg       Config
	bounds    Boundary
	obstacles []Obstacle
	boids     []Boid

	index    NeighbourIndex
	steering Steering

	// per-boid scratch written during Evaluate, one slot per boid
	desired []geometry.Vector3D
	forces  []Forces

	tick  uint64
	runID uuid.UUID
	log   *zap.Logger
}

type options struct {
	logger    *zap.Logger
	positions []geometry.Vector3D
	index     NeighbourIndex
}

// Option customizes New.
type Option func(*options)

// WithLogger sets the logger used by the engine. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithPositions places the boids at the given positions instead of random points.
// The slice length must equal Config.NumBoids.
func WithPositions(positions []geometry.Vector3D) Option {
	return func(o *options) {
		o.positions = positions
	}
}

// WithNeighbourIndex overrides the index selected by Config.NeighbourStrategy.
func WithNeighbourIndex(idx NeighbourIndex) Option {
	return func(o *options) {
		o.index = idx
	}
}

// New validates cfg and spawns the flock. Boids get a random orientation and
// start at MinSpeed along their forward axis.
func New(cfg *Config, opts ...Option) (*Simulation, error) {
	if cfg == nil {
		return nil, configErrorf("nil config")
	}
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.positions != nil && len(o.positions) != cfg.NumBoids {
		return nil, configErrorf("got %d positions for %d boids", len(o.positions), cfg.NumBoids)
	}

	bounds, err := NewBoundary(cfg.Boundary.Min, cfg.Boundary.Max)
	if err != nil {
		return nil, err
	}

	obstacles := make([]Obstacle, 0, len(cfg.Obstacles))
	for i, oc := range cfg.Obstacles {
		obs, err := oc.Build()
		if err != nil {
			return nil, configErrorf("obstacle %d: %v", i, err)
		}
		obstacles = append(obstacles, obs)
	}

	index := o.index
	if index == nil {
		index, err = NewNeighbourIndex(cfg.NeighbourStrategy, cfg.Workers)
		if err != nil {
			return nil, err
		}
	}

	s := &Simulation{
		cfg:       *cfg,
		bounds:    bounds,
		obstacles: obstacles,
		index:     index,
		desired:   make([]geometry.Vector3D, cfg.NumBoids),
		forces:    make([]Forces, cfg.NumBoids),
		runID:     uuid.New(),
	}
	s.cfg.Obstacles = append([]ObstacleConfig(nil), cfg.Obstacles...)
	s.steering = NewSteering(&s.cfg)

	s.log = o.logger.With(
		zap.String("run_id", s.runID.String()),
		zap.Int("boids", cfg.NumBoids),
		zap.String("strategy", index.Name()),
	)

	s.spawn(o.positions)

	if step := cfg.MaxSpeed / cfg.TickRate; step >= bounds.MinExtent() {
		s.log.Warn("a boid can cross the whole boundary in one tick, wrapping will be inaccurate",
			zap.Float64("max_step", step),
			zap.Float64("min_extent", bounds.MinExtent()))
	}
	s.log.Info("flock initialized",
		zap.Uint64("seed", cfg.Seed),
		zap.Int("obstacles", len(obstacles)),
		zap.Float64("neighbour_radius", cfg.NeighbourRadius))

	return s, nil
}

func (s *Simulation) spawn(positions []geometry.Vector3D) {
	rng := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed))
	capacity := neighbourCapacity(s.cfg.NumBoids, s.cfg.NeighbourRadius, s.bounds)

	s.boids = make([]Boid, s.cfg.NumBoids)
	for i := range s.boids {
		var pos geometry.Vector3D
		if positions != nil {
			pos = positions[i]
		} else {
			pos = s.bounds.RandomPoint(rng)
		}
		o := geometry.FromEuler(rng.Float64()*360, rng.Float64()*360, rng.Float64()*360)
		s.boids[i] = newBoid(i, pos, o, s.cfg.MinSpeed, capacity)
	}
}

// neighbourCapacity estimates how many neighbours a boid has in a uniformly
// filled box, so most sets never grow after the first tick.
func neighbourCapacity(n int, radius float64, b Boundary) int {
	if n <= 1 {
		return 0
	}
	size := b.Size()
	volume := size.X * size.Y * size.Z
	sphere := 4.0 / 3.0 * math.Pi * radius * radius * radius
	expected := int(math.Ceil(float64(n-1) * math.Min(sphere/volume, 1)))
	return min(max(expected*2, 8), n-1)
}

// Tick advances the flock by dt seconds: search, evaluate, integrate, reset.
// No boid sees another boid's integrated state within the same tick.
func (s *Simulation) Tick(dt float64) {
	if !(dt > 0) {
		s.log.Warn("ignoring tick with non-positive dt", zap.Float64("dt", dt))
		return
	}

	s.search()
	s.evaluate()
	s.integrate(dt)
	s.reset()

	s.tick++
	if ce := s.log.Check(zap.DebugLevel, "tick"); ce != nil {
		ce.Write(zap.Uint64("tick", s.tick), zap.Float64("dt", dt))
	}
}

func (s *Simulation) search() {
	s.index.FindNeighbours(s.boids, s.cfg.NeighbourRadius)
}

func (s *Simulation) evaluate() {
	n := len(s.boids)
	workers := s.cfg.Workers
	if workers <= 1 || n < 2 {
		s.evaluateRange(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			s.evaluateRange(start, end)
			return nil
		})
	}
	_ = g.Wait()
}

// evaluateRange only reads boids and writes the scratch slots of [start, end).
func (s *Simulation) evaluateRange(start, end int) {
	for i := start; i < end; i++ {
		f := s.steering.Evaluate(i, s.boids, s.obstacles)
		s.forces[i] = f
		s.desired[i] = s.steering.Compose(f)
	}
}

func (s *Simulation) integrate(dt float64) {
	for i := range s.boids {
		s.boids[i].integrate(s.desired[i], &s.cfg, s.bounds, dt)
	}
}

func (s *Simulation) reset() {
	for i := range s.boids {
		s.boids[i].ClearNeighbours()
	}
}

// WrapPosition applies the toroidal boundary to p, whatever Config.WrapEnabled says.
func (s *Simulation) WrapPosition(p geometry.Vector3D) geometry.Vector3D {
	return s.bounds.Wrap(p)
}

func (s *Simulation) AgentCount() int {
	return len(s.boids)
}

func (s *Simulation) AgentPosition(i int) geometry.Vector3D {
	return s.boids[i].Position
}

func (s *Simulation) AgentVelocity(i int) geometry.Vector3D {
	return s.boids[i].Velocity
}

func (s *Simulation) AgentOrientation(i int) geometry.Orientation {
	return s.boids[i].Orientation
}

// LastForces returns the unweighted rule outputs of boid i during the last tick.
func (s *Simulation) LastForces(i int) Forces {
	return s.forces[i]
}

// Obstacles returns the obstacle set. Callers must not modify it.
func (s *Simulation) Obstacles() []Obstacle {
	return s.obstacles
}

func (s *Simulation) Boundary() Boundary {
	return s.bounds
}

func (s *Simulation) TickCount() uint64 {
	return s.tick
}

func (s *Simulation) RunID() uuid.UUID {
	return s.runID
}

// Config returns a copy of the configuration the run started with.
func (s *Simulation) Config() Config {
	c := s.cfg
	c.Obstacles = append([]ObstacleConfig(nil), s.cfg.Obstacles...)
	return c
}

// Snapshot is a copy of the flock state between two ticks.
type Snapshot struct {
	RunID string      `json:"runId"`
	Tick  uint64      `json:"tick"`
	Boids []BoidState `json:"boids"`
}

func (s *Simulation) Snapshot() Snapshot {
	states := make([]BoidState, len(s.boids))
	for i := range s.boids {
		states[i] = s.boids[i].State()
	}
	return Snapshot{RunID: s.runID.String(), Tick: s.tick, Boids: states}
}

// Digest fingerprints every position and velocity bit for bit. Two runs
// with the same configuration and seed have the same digest after the same ticks.
func (s *Simulation) Digest() uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 6*8)
	for i := range s.boids {
		b := &s.boids[i]
		buf = buf[:0]
		for _, v := range [...]float64{
			b.Position.X, b.Position.Y, b.Position.Z,
			b.Velocity.X, b.Velocity.Y, b.Velocity.Z,
		} {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
		_, _ = d.Write(buf)
	}
	return d.Sum64()
}
