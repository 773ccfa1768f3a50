package simulation

import (
	"testing"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func smallConfig() *Config {
	cfg := DefaultConfig()
	cfg.NumBoids = 60
	cfg.Seed = 99
	return cfg
}

func TestNew_InitialFlock(t *testing.T) {
	cfg := smallConfig()
	sim, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, 60, sim.AgentCount())
	assert.Len(t, sim.Obstacles(), 1)
	assert.Zero(t, sim.TickCount())
	assert.NotEmpty(t, sim.RunID().String())

	for i := 0; i < sim.AgentCount(); i++ {
		assert.True(t, sim.Boundary().Contains(sim.AgentPosition(i)), "boid %d spawned outside", i)
		assert.InDelta(t, cfg.MinSpeed, sim.AgentVelocity(i).Len(), 1e-9)
		assert.True(t, sim.AgentVelocity(i).Normalize().EqWithin(sim.AgentOrientation(i).Forward(), 1e-9))
	}
}

func TestNew_SameSeedSameFlock(t *testing.T) {
	a, err := New(smallConfig())
	require.NoError(t, err)
	b, err := New(smallConfig())
	require.NoError(t, err)
	assert.Equal(t, a.Digest(), b.Digest())
	assert.NotEqual(t, a.RunID(), b.RunID())

	cfg := smallConfig()
	cfg.Seed = 100
	c, err := New(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.Digest(), c.Digest())
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min above max speed", func(c *Config) { c.MinSpeed, c.MaxSpeed = 7, 6 }},
		{"negative speed", func(c *Config) { c.MinSpeed = -1 }},
		{"flat boundary", func(c *Config) { c.Boundary.Max.Y = c.Boundary.Min.Y }},
		{"zero radius", func(c *Config) { c.NeighbourRadius = 0 }},
		{"negative boids", func(c *Config) { c.NumBoids = -3 }},
		{"bad cylinder", func(c *Config) { c.Obstacles[0].Radius = 0 }},
		{"zero plane normal", func(c *Config) {
			c.Obstacles = append(c.Obstacles, ObstacleConfig{Type: ObstaclePlane})
		}},
		{"unknown strategy", func(c *Config) { c.NeighbourStrategy = "kd-tree" }},
		{"zero turn rate", func(c *Config) { c.MaxTurnRate = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			tt.mutate(cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := New(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_ReportsEveryProblem(t *testing.T) {
	cfg := smallConfig()
	cfg.NeighbourRadius = -1
	cfg.MaxTurnRate = -1
	cfg.NumBoids = -1

	err := cfg.Validate()
	require.Error(t, err)
	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok, "validation errors are joined")
	assert.Len(t, joined.Unwrap(), 3)
}

func TestNew_WithPositions(t *testing.T) {
	cfg := smallConfig()
	cfg.NumBoids = 2
	positions := []geometry.Vector3D{{X: 1}, {X: -1, Y: 3}}

	sim, err := New(cfg, WithPositions(positions))
	require.NoError(t, err)
	assert.Equal(t, positions[0], sim.AgentPosition(0))
	assert.Equal(t, positions[1], sim.AgentPosition(1))

	_, err = New(cfg, WithPositions(positions[:1]))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTick_SpeedStaysInRange(t *testing.T) {
	for _, strategy := range []string{StrategyBruteForce, StrategyGrid, StrategyParallel} {
		t.Run(strategy, func(t *testing.T) {
			cfg := smallConfig()
			cfg.NumBoids = 120
			cfg.NeighbourStrategy = strategy
			sim, err := New(cfg)
			require.NoError(t, err)

			for range 50 {
				sim.Tick(1.0 / cfg.TickRate)
				for i := 0; i < sim.AgentCount(); i++ {
					speed := sim.AgentVelocity(i).Len()
					require.GreaterOrEqual(t, speed, cfg.MinSpeed-1e-9)
					require.LessOrEqual(t, speed, cfg.MaxSpeed+1e-9)
					require.True(t, sim.Boundary().Contains(sim.AgentPosition(i)))
				}
			}
			assert.Equal(t, uint64(50), sim.TickCount())
		})
	}
}

func TestTick_SingleBoid(t *testing.T) {
	cfg := smallConfig()
	cfg.NumBoids = 1
	cfg.Obstacles = nil
	cfg.Boundary = BoundaryConfig{Min: geometry.Vector3D{}, Max: geometry.Vector3D{X: 10, Y: 10, Z: 10}}

	sim, err := New(cfg, WithPositions([]geometry.Vector3D{{X: 9.99, Y: 5, Z: 5}}))
	require.NoError(t, err)

	v0 := sim.AgentVelocity(0)
	p0 := sim.AgentPosition(0)
	const dt = 0.5
	sim.Tick(dt)

	want := v0.ClampLen(cfg.MinSpeed, cfg.MaxSpeed)
	assert.True(t, sim.AgentVelocity(0).EqWithin(want, 1e-12))
	assert.True(t, sim.AgentPosition(0).EqWithin(sim.WrapPosition(p0.Add(want.Mul(dt))), 1e-12))
	assert.Equal(t, Forces{}, sim.LastForces(0))
}

func TestTick_NonPositiveDtIsNoop(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sim, err := New(smallConfig(), WithLogger(zap.New(core)))
	require.NoError(t, err)

	before := sim.Digest()
	sim.Tick(0)
	sim.Tick(-0.1)

	assert.Equal(t, before, sim.Digest())
	assert.Zero(t, sim.TickCount())
	assert.Equal(t, 2, logs.FilterMessage("ignoring tick with non-positive dt").Len())
}

func TestTick_NeighbourSetsClearedAfterTick(t *testing.T) {
	sim, err := New(smallConfig())
	require.NoError(t, err)
	sim.Tick(0.02)
	for i := range sim.boids {
		assert.Zero(t, sim.boids[i].NeighbourCount())
	}
}

func TestTick_SerialAndParallelAgree(t *testing.T) {
	run := func(strategy string, workers int) uint64 {
		cfg := smallConfig()
		cfg.NumBoids = 150
		cfg.NeighbourStrategy = strategy
		cfg.Workers = workers
		sim, err := New(cfg)
		require.NoError(t, err)
		for range 40 {
			sim.Tick(0.02)
		}
		return sim.Digest()
	}

	want := run(StrategyBruteForce, 0)
	assert.Equal(t, want, run(StrategyBruteForce, 4), "parallel evaluation")
	assert.Equal(t, want, run(StrategyGrid, 0), "grid search")
	assert.Equal(t, want, run(StrategyParallel, 3), "parallel search and evaluation")
}

func TestTick_WithNeighbourIndexOption(t *testing.T) {
	cfg := smallConfig()
	sim, err := New(cfg, WithNeighbourIndex(NewGrid()))
	require.NoError(t, err)
	ref, err := New(cfg)
	require.NoError(t, err)

	for range 10 {
		sim.Tick(0.02)
		ref.Tick(0.02)
	}
	assert.Equal(t, ref.Digest(), sim.Digest())
}

func TestTick_GridStaysBoundedWithoutWrap(t *testing.T) {
	cfg := smallConfig()
	cfg.NumBoids = 30
	cfg.WrapEnabled = false
	grid := NewGrid()
	sim, err := New(cfg, WithNeighbourIndex(grid))
	require.NoError(t, err)

	// the flock leaves the box and keeps visiting new cells
	for range 3000 {
		sim.Tick(0.02)
	}
	assert.LessOrEqual(t, len(grid.cells), 2*cfg.NumBoids)
	assert.LessOrEqual(t, grid.Len(), cfg.NumBoids)
}

func TestNew_EmptyStrategyIsBruteForce(t *testing.T) {
	cfg := smallConfig()
	cfg.NeighbourStrategy = ""
	require.NoError(t, cfg.Validate())
	sim, err := New(cfg)
	require.NoError(t, err)
	ref, err := New(smallConfig())
	require.NoError(t, err)

	for range 5 {
		sim.Tick(0.02)
		ref.Tick(0.02)
	}
	assert.Equal(t, ref.Digest(), sim.Digest())
}

func TestSnapshot(t *testing.T) {
	sim, err := New(smallConfig())
	require.NoError(t, err)
	sim.Tick(0.02)

	snap := sim.Snapshot()
	assert.Equal(t, uint64(1), snap.Tick)
	assert.Equal(t, sim.RunID().String(), snap.RunID)
	require.Len(t, snap.Boids, sim.AgentCount())
	for i, b := range snap.Boids {
		assert.Equal(t, i, b.ID)
		assert.Equal(t, sim.AgentPosition(i), b.Position)
		assert.Equal(t, sim.AgentVelocity(i), b.Velocity)
	}

	// the snapshot is a copy
	snap.Boids[0].Position = geometry.Vector3D{X: 1e6}
	assert.NotEqual(t, snap.Boids[0].Position, sim.AgentPosition(0))
}

func TestConfigAccessorIsACopy(t *testing.T) {
	cfg := smallConfig()
	sim, err := New(cfg)
	require.NoError(t, err)

	cfg.MaxSpeed = 1000
	got := sim.Config()
	assert.Equal(t, 6.0, got.MaxSpeed)

	got.Obstacles[0].Radius = 99
	assert.Equal(t, 4.0, sim.Config().Obstacles[0].Radius)
}

func TestNeighbourCapacity(t *testing.T) {
	b := cube(-25, 25)
	assert.Zero(t, neighbourCapacity(1, 10, b))
	assert.Equal(t, 1, neighbourCapacity(2, 10, b))
	assert.LessOrEqual(t, neighbourCapacity(200, 10, b), 199)
	assert.GreaterOrEqual(t, neighbourCapacity(200, 10, b), 8)
	assert.Equal(t, 199, neighbourCapacity(200, 1000, b))
}

func BenchmarkTick_Default(b *testing.B) {
	sim, err := New(DefaultConfig())
	require.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sim.Tick(0.02)
	}
}
