package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/lao-tseu-is-alive/go-flock3d/internal/simulation"
	flock "github.com/lao-tseu-is-alive/go-flock3d/pkg/simulation"
	golog "github.com/tochemey/goakt/v3/log"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "configuration file (.json, .yaml, .yml or .toml), defaults are used when empty")
	headless := flag.Bool("headless", false, "run without a window and print the digest of the final state")
	ticks := flag.Int("ticks", 500, "number of ticks to run in headless mode")
	dt := flag.Float64("dt", 0, "tick length in seconds in headless mode, 0 means 1/tickRate")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := run(*configFile, *headless, *ticks, *dt, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "flock: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, headless bool, ticks int, dt float64, debug bool) error {
	logger, err := newLogger(debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := flock.DefaultConfig()
	if configFile != "" {
		cfg, err = flock.LoadConfig(configFile)
		if err != nil {
			return err
		}
		logger.Info("configuration loaded", zap.String("file", configFile))
	}
	if dt <= 0 {
		dt = 1 / cfg.TickRate
	}

	ctx := context.Background()
	var actorLogger golog.Logger = golog.DiscardLogger
	if debug {
		actorLogger = golog.DefaultLogger
	}
	system, err := simulation.NewActorSystem(ctx, actorLogger)
	if err != nil {
		return err
	}
	defer func() { _ = system.Stop(ctx) }()

	if headless {
		sim, err := flock.New(cfg, flock.WithLogger(logger))
		if err != nil {
			return err
		}
		digest, err := simulation.RunHeadless(ctx, system, sim, ticks, dt)
		if err != nil {
			return err
		}
		fmt.Printf("run %s: %d boids, %d ticks of %gs, digest %016x\n",
			sim.RunID(), sim.AgentCount(), ticks, dt, digest)
		return nil
	}

	game, err := simulation.NewGame(ctx, cfg, system, flock.WithLogger(logger))
	if err != nil {
		return err
	}
	ebiten.SetWindowSize(simulation.ScreenWidth, simulation.ScreenHeight)
	ebiten.SetWindowTitle("Flock 3D (top view)")
	ebiten.SetTPS(int(math.Round(cfg.TickRate)))
	return ebiten.RunGame(game)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
