package simulation

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
	flock "github.com/lao-tseu-is-alive/go-flock3d/pkg/simulation"
	"github.com/lao-tseu-is-alive/go-flock3d/pkg/ui"
	"github.com/tochemey/goakt/v3/actor"
)

const (
	panelWidth = 220
	viewSize   = 720
	viewX      = panelWidth + 20
	viewY      = 10

	ScreenWidth  = viewX + viewSize + 10
	ScreenHeight = viewSize + 20

	boidLength = 7.0
	boidWidth  = 4.0
)

// whiteImage is the 1x1 source texture of the batched boid triangles
var whiteImage = ebiten.NewImage(3, 3)

func init() {
	whiteImage.Fill(color.White)
}

// Game is a top-down (XZ plane) viewer of the flock. Height is shown by colour.
type Game struct {
	ctx        context.Context
	System     actor.ActorSystem
	flockPID   *actor.PID
	snapshotCh chan *flock.Snapshot
	lastState  *flock.Snapshot

	bounds    flock.Boundary
	obstacles []flock.Obstacle
	tickDt    float64

	// UI Controls
	panel                *ui.Panel
	widgetPause          *ui.Checkbox
	widgetShowObstacles  *ui.Checkbox
	widgetShowVelocities *ui.Checkbox
	widgetTimeScale      *ui.Slider
	stepRequested        bool

	// reused every frame for the batched triangles
	vertices []ebiten.Vertex
	indices  []uint16

	// Timing instrumentation
	updateAvg float64 // Rolling average in ms
	drawAvg   float64 // Rolling average in ms
}

// NewGame builds the simulation from cfg and spawns its FlockActor in system.
func NewGame(ctx context.Context, cfg *flock.Config, system actor.ActorSystem, opts ...flock.Option) (*Game, error) {
	sim, err := flock.New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	// Buffer to avoid blocking the actor
	snapshotCh := make(chan *flock.Snapshot, 10)
	flockPID, err := system.Spawn(ctx, "flock", NewFlockActor(sim, snapshotCh))
	if err != nil {
		return nil, fmt.Errorf("failed to spawn flock: %w", err)
	}

	g := &Game{
		ctx:        ctx,
		System:     system,
		flockPID:   flockPID,
		snapshotCh: snapshotCh,
		lastState:  &flock.Snapshot{},
		bounds:     sim.Boundary(),
		obstacles:  sim.Obstacles(),
		tickDt:     1 / cfg.TickRate,
	}

	panel := ui.NewPanel("Flock", 10, 10, panelWidth, ScreenHeight-20)
	panel.AddSection("Simulation")
	g.widgetPause = panel.AddCheckbox("Pause (space)", false)
	g.widgetPause.OnChange = func(paused bool) {
		_ = actor.Tell(g.ctx, g.flockPID, PauseMessage(paused))
	}
	panel.AddButton("Step (s)", func() { g.stepRequested = true })
	g.widgetTimeScale = panel.AddSlider("Time scale", 0.1, 3, 1)

	panel.AddSection("Visualization")
	g.widgetShowObstacles = panel.AddCheckbox("Show obstacles", true)
	g.widgetShowVelocities = panel.AddCheckbox("Show velocities", false)
	g.panel = panel

	return g, nil
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		// Rolling average (exponential moving average)
		g.updateAvg = g.updateAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	// 1. Update UI Panel and keyboard shortcuts
	g.panel.Update()
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.widgetPause.Toggle()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.stepRequested = true
	}

	// 2. Retrieve Latest State (Non-blocking)
	select {
	case snap := <-g.snapshotCh:
		g.lastState = snap
	default:
		// Use previous state if new one isn't ready
	}

	// 3. Trigger Simulation Step
	dt := g.tickDt * g.widgetTimeScale.Value
	switch {
	case g.stepRequested:
		g.stepRequested = false
		return actor.Tell(g.ctx, g.flockPID, StepMessage(dt))
	case !g.widgetPause.Value:
		return actor.Tell(g.ctx, g.flockPID, TickMessage(SecondsToDuration(dt)))
	}
	return nil
}

// project maps a world position to screen pixels looking down the Y axis, +Z up the screen.
func (g *Game) project(p geometry.Vector3D) (float32, float32) {
	size := g.bounds.Size()
	u := (p.X - g.bounds.Min.X) / size.X
	v := (p.Z - g.bounds.Min.Z) / size.Z
	return float32(viewX + u*viewSize), float32(viewY + (1-v)*viewSize)
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.drawAvg = g.drawAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	screen.Fill(color.RGBA{R: 10, G: 10, B: 30, A: 255})
	vector.StrokeRect(screen, viewX, viewY, viewSize, viewSize, 1, color.RGBA{R: 80, G: 80, B: 100, A: 255}, true)

	if g.widgetShowObstacles.Value {
		g.drawObstacles(screen)
	}
	g.drawBoids(screen)

	g.panel.Draw(screen)

	// Display timing breakdown for performance analysis
	msg := fmt.Sprintf("FPS: %.2f\nTPS: %.2f\nTick: %d\nBoids: %d\n\nUpdate: %.2fms\nDraw:   %.2fms",
		ebiten.ActualFPS(),
		ebiten.ActualTPS(),
		g.lastState.Tick,
		len(g.lastState.Boids),
		g.updateAvg,
		g.drawAvg)
	ebitenutil.DebugPrintAt(screen, msg, ScreenWidth-140, 15)
}

func (g *Game) drawObstacles(screen *ebiten.Image) {
	clr := color.RGBA{R: 255, G: 160, B: 60, A: 200}
	scale := float32(viewSize / g.bounds.Size().X)

	for _, o := range g.obstacles {
		switch s := o.(type) {
		case flock.Cylinder:
			cx, cy := g.project(s.Center)
			vector.StrokeCircle(screen, cx, cy, float32(s.Radius)*scale, 2, clr, true)
		case flock.Plane:
			corners := s.Corners()
			for i := range corners {
				x0, y0 := g.project(corners[i])
				x1, y1 := g.project(corners[(i+1)%len(corners)])
				vector.StrokeLine(screen, x0, y0, x1, y1, 1, clr, true)
			}
		}
	}
}

// drawBoids batches every boid into a single DrawTriangles call.
func (g *Game) drawBoids(screen *ebiten.Image) {
	g.vertices = g.vertices[:0]
	g.indices = g.indices[:0]
	height := g.bounds.Size().Y

	for _, b := range g.lastState.Boids {
		x, y := g.project(b.Position)
		// screen Y grows downward while world Z grows up the screen
		angle := math.Atan2(-b.Velocity.Z, b.Velocity.X)

		// low boids are blue, high boids are white
		t := float32((b.Position.Y - g.bounds.Min.Y) / height)
		r, gr, bl := 0.3+0.7*t, 0.5+0.5*t, float32(1)

		base := uint16(len(g.vertices))
		for _, v := range [3]struct{ a, l float64 }{
			{0, boidLength},
			{2.5, boidWidth},
			{-2.5, boidWidth},
		} {
			g.vertices = append(g.vertices, ebiten.Vertex{
				DstX:   x + float32(math.Cos(angle+v.a)*v.l),
				DstY:   y + float32(math.Sin(angle+v.a)*v.l),
				SrcX:   1,
				SrcY:   1,
				ColorR: r, ColorG: gr, ColorB: bl, ColorA: 1,
			})
		}
		g.indices = append(g.indices, base, base+1, base+2)

		if g.widgetShowVelocities.Value {
			vx, vy := g.project(b.Position.Add(b.Velocity.Mul(0.5)))
			vector.StrokeLine(screen, x, y, vx, vy, 1, color.RGBA{R: 120, G: 255, B: 120, A: 160}, true)
		}

		// DrawTriangles takes at most 65535 vertices per call
		if len(g.vertices) > math.MaxUint16-3 {
			screen.DrawTriangles(g.vertices, g.indices, whiteImage, &ebiten.DrawTrianglesOptions{})
			g.vertices = g.vertices[:0]
			g.indices = g.indices[:0]
		}
	}
	if len(g.indices) > 0 {
		screen.DrawTriangles(g.vertices, g.indices, whiteImage, &ebiten.DrawTrianglesOptions{})
	}
}

func (g *Game) Layout(w, h int) (int, int) { return ScreenWidth, ScreenHeight }
