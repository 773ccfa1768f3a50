package simulation

import (
	"math"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCylinder_Collision(t *testing.T) {
	c := Cylinder{Center: geometry.Vector3D{X: 0, Y: 0, Z: 0}, Radius: 4, Height: 20}

	tests := []struct {
		name     string
		q        geometry.Vector3D
		collides bool
		push     geometry.Vector3D
	}{
		{"radial inside", geometry.Vector3D{X: 2, Y: 0, Z: 1}, true, geometry.Vector3D{X: 2, Z: 1}},
		{"on the wall counts", geometry.Vector3D{X: 4, Y: 0, Z: 0}, true, geometry.Vector3D{X: 4}},
		{"near top cap", geometry.Vector3D{X: 1, Y: 9.8, Z: 0}, true, geometry.Up},
		{"near bottom cap", geometry.Vector3D{X: 0, Y: -9.6, Z: 1}, true, geometry.Down},
		{"outside radius", geometry.Vector3D{X: 5, Y: 0, Z: 0}, false, geometry.Zero},
		{"above", geometry.Vector3D{X: 0, Y: 10, Z: 0}, false, geometry.Zero},
		{"below", geometry.Vector3D{X: 1, Y: -11, Z: 0}, false, geometry.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, push := TestCollision(c, tt.q)
			assert.Equal(t, tt.collides, hit)
			assert.Equal(t, tt.push, push)
		})
	}
}

func TestCylinder_OffsetCenter(t *testing.T) {
	c := &Cylinder{Center: geometry.Vector3D{X: 10, Y: 5, Z: -10}, Radius: 1, Height: 2}

	hit, push := TestCollision(c, geometry.Vector3D{X: 10.5, Y: 5, Z: -10})
	require.True(t, hit)
	assert.InDelta(t, 0.5, push.X, 1e-12)
	assert.Zero(t, push.Y)

	hit, _ = TestCollision(c, geometry.Vector3D{X: 0, Y: 0, Z: 0})
	assert.False(t, hit)
}

func TestPlane_Collision(t *testing.T) {
	p := Plane{Point: geometry.Vector3D{Y: 2}, Normal: geometry.Vector3D{Y: 3}}

	hit, push := TestCollision(p, geometry.Vector3D{X: 100, Y: 1, Z: -40})
	require.True(t, hit)
	assert.Equal(t, p.Normal, push, "push is the raw normal")

	hit, _ = TestCollision(p, geometry.Vector3D{Y: 2})
	assert.True(t, hit, "a point on the plane collides")

	hit, push = TestCollision(&p, geometry.Vector3D{Y: 2.5})
	assert.False(t, hit)
	assert.Equal(t, geometry.Zero, push)

	hit, _ = TestCollision(Plane{}, geometry.Vector3D{})
	assert.False(t, hit, "zero normal never collides")
}

func TestPlane_Corners(t *testing.T) {
	p := Plane{Point: geometry.Vector3D{}, Normal: geometry.Up, Width: 4, Length: 2}

	right, forward := p.Axes()
	assert.Equal(t, geometry.Vector3D{X: 1}, right)
	assert.Equal(t, geometry.Vector3D{Z: -1}, forward)

	corners := p.Corners()
	for _, c := range corners {
		assert.Zero(t, c.Y, "corners lie in the plane")
		assert.InDelta(t, 2, math.Abs(c.X), 1e-12)
		assert.InDelta(t, 1, math.Abs(c.Z), 1e-12)
	}
}

func TestAvoidance(t *testing.T) {
	floor := Plane{Point: geometry.Vector3D{}, Normal: geometry.Up}
	pillar := Cylinder{Center: geometry.Vector3D{}, Radius: 2, Height: 10}

	t.Run("no obstacle", func(t *testing.T) {
		assert.Equal(t, geometry.Zero, Avoidance(nil, geometry.Vector3D{X: 1}))
	})
	t.Run("normalized push", func(t *testing.T) {
		got := Avoidance([]Obstacle{floor}, geometry.Vector3D{Y: -1})
		assert.True(t, got.EqWithin(geometry.Up, 1e-12))
	})
	t.Run("summed pushes", func(t *testing.T) {
		got := Avoidance([]Obstacle{floor, pillar}, geometry.Vector3D{X: 1, Y: -1})
		assert.InDelta(t, 1, got.Len(), 1e-12)
		assert.InDelta(t, got.X, got.Y, 1e-12, "equal parts radial and up")
	})
	t.Run("cancelling pushes", func(t *testing.T) {
		ceiling := Plane{Point: geometry.Vector3D{}, Normal: geometry.Down}
		got := Avoidance([]Obstacle{floor, ceiling}, geometry.Vector3D{})
		assert.Equal(t, geometry.Zero, got)
	})
}

func TestObstacleConfig_Build(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ObstacleConfig
		want    Obstacle
		wantErr bool
	}{
		{
			name: "cylinder",
			cfg:  ObstacleConfig{Type: ObstacleCylinder, Position: geometry.Vector3D{X: 1}, Radius: 2, Height: 3},
			want: Cylinder{Center: geometry.Vector3D{X: 1}, Radius: 2, Height: 3},
		},
		{
			name: "plane",
			cfg:  ObstacleConfig{Type: ObstaclePlane, Normal: geometry.Up, Width: 5, Length: 6},
			want: Plane{Normal: geometry.Up, Width: 5, Length: 6},
		},
		{name: "cylinder without height", cfg: ObstacleConfig{Type: ObstacleCylinder, Radius: 2}, wantErr: true},
		{name: "plane without normal", cfg: ObstacleConfig{Type: ObstaclePlane}, wantErr: true},
		{name: "unknown", cfg: ObstacleConfig{Type: "sphere"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Build()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
