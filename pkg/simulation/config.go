package simulation

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var configSchema string

type BoundaryConfig struct {
	Min geometry.Vector3D `json:"min"`
	Max geometry.Vector3D `json:"max"`
}

type SeparationConfig struct {
	Enabled bool    `json:"enabled"`
	Value   float64 `json:"value"`  // minimum distance kept between two boids
	Factor  float64 `json:"factor"` // strength of the separation force
}

type RuleConfig struct {
	Enabled bool    `json:"enabled"`
	Factor  float64 `json:"factor"`
}

type AvoidanceConfig struct {
	Enabled  bool    `json:"enabled"`
	Factor   float64 `json:"factor"`
	Distance float64 `json:"distance"` // look-ahead along the heading
}

// Config holds every parameter fixed when a run starts.
type Config struct {
	Boundary BoundaryConfig `json:"boundary"`

	// Population
	NumBoids int    `json:"numBoids"`
	Seed     uint64 `json:"seed"`

	// Neighbour search
	NeighbourRadius   float64 `json:"neighbourRadius"`
	NeighbourStrategy string  `json:"neighbourStrategy"` // brute-force, grid or parallel
	Workers           int     `json:"workers"`           // 0 or 1 evaluates serially

	// Physics
	MinSpeed    float64 `json:"minSpeed"`
	MaxSpeed    float64 `json:"maxSpeed"`
	MaxTurnRate float64 `json:"maxTurnRate"` // degrees per second
	WrapEnabled bool    `json:"wrapEnabled"`
	TickRate    float64 `json:"tickRate"` // nominal fixed ticks per second of the host loop

	// Steering rules
	Separation SeparationConfig `json:"separation"`
	Alignment  RuleConfig       `json:"alignment"`
	Cohesion   RuleConfig       `json:"cohesion"`
	Avoidance  AvoidanceConfig  `json:"avoidance"`

	Obstacles []ObstacleConfig `json:"obstacles"`
}

func DefaultConfig() *Config {
	return &Config{
		Boundary: BoundaryConfig{
			Min: geometry.Vector3D{X: -25, Y: -25, Z: -25},
			Max: geometry.Vector3D{X: 25, Y: 25, Z: 25},
		},
		NumBoids:          200,
		Seed:              1,
		NeighbourRadius:   10.0,
		NeighbourStrategy: StrategyBruteForce,
		Workers:           0,
		MinSpeed:          2.0,
		MaxSpeed:          6.0,
		MaxTurnRate:       50.0,
		WrapEnabled:       true,
		TickRate:          50,
		Separation:        SeparationConfig{Enabled: true, Value: 2.0, Factor: 0.1},
		Alignment:         RuleConfig{Enabled: true, Factor: 50.0},
		Cohesion:          RuleConfig{Enabled: true, Factor: 0.01},
		Avoidance:         AvoidanceConfig{Enabled: true, Factor: 1.0, Distance: 0.1},
		Obstacles: []ObstacleConfig{
			{Type: ObstacleCylinder, Position: geometry.Vector3D{}, Radius: 4, Height: 30},
		},
	}
}

// Validate reports every configuration problem at once, each wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error

	if _, err := NewBoundary(c.Boundary.Min, c.Boundary.Max); err != nil {
		errs = append(errs, err)
	}
	if c.NumBoids < 0 {
		errs = append(errs, configErrorf("numBoids must not be negative, got %d", c.NumBoids))
	}
	if c.NeighbourRadius <= 0 {
		errs = append(errs, configErrorf("neighbourRadius must be positive, got %g", c.NeighbourRadius))
	}
	if !isKnownStrategy(c.NeighbourStrategy) {
		errs = append(errs, configErrorf("unknown neighbour strategy %q", c.NeighbourStrategy))
	}
	if c.Workers < 0 {
		errs = append(errs, configErrorf("workers must not be negative, got %d", c.Workers))
	}
	if c.MinSpeed < 0 {
		errs = append(errs, configErrorf("minSpeed must not be negative, got %g", c.MinSpeed))
	}
	if c.MaxSpeed <= 0 {
		errs = append(errs, configErrorf("maxSpeed must be positive, got %g", c.MaxSpeed))
	}
	if c.MinSpeed > c.MaxSpeed {
		errs = append(errs, configErrorf("minSpeed (%g) is greater than maxSpeed (%g)", c.MinSpeed, c.MaxSpeed))
	}
	if c.MaxTurnRate <= 0 {
		errs = append(errs, configErrorf("maxTurnRate must be positive, got %g", c.MaxTurnRate))
	}
	if c.TickRate <= 0 {
		errs = append(errs, configErrorf("tickRate must be positive, got %g", c.TickRate))
	}
	if c.Separation.Value < 0 {
		errs = append(errs, configErrorf("separation value must not be negative, got %g", c.Separation.Value))
	}
	if c.Avoidance.Distance < 0 {
		errs = append(errs, configErrorf("avoidance distance must not be negative, got %g", c.Avoidance.Distance))
	}
	for i, o := range c.Obstacles {
		if _, err := o.Build(); err != nil {
			errs = append(errs, fmt.Errorf("obstacle %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// LoadConfig reads a JSON, YAML or TOML file over DefaultConfig, validates the
// document against the embedded JSON schema and then checks Validate.
func LoadConfig(configFile string) (*Config, error) {
	sch, err := jsonschema.CompileString("config.schema.json", configSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	raw, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	doc, err := toJSON(configFile, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", configFile, err)
	}

	var v interface{}
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := DefaultConfig()
	if m, ok := v.(map[string]interface{}); ok {
		if _, listed := m["obstacles"]; listed {
			// a file listing obstacles replaces the default scene instead of merging into it
			cfg.Obstacles = nil
		}
	}
	if err := json.Unmarshal(doc, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// toJSON normalises the supported file formats to JSON so a single schema
// and a single set of struct tags serve all of them.
func toJSON(name string, raw []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return raw, nil
	case ".yaml", ".yml":
		var m map[string]interface{}
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return json.Marshal(m)
	case ".toml":
		var m map[string]interface{}
		if _, err := toml.Decode(string(raw), &m); err != nil {
			return nil, err
		}
		return json.Marshal(m)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(name))
	}
}
