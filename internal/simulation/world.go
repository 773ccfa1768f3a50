package simulation

import (
	"time"

	flock "github.com/lao-tseu-is-alive/go-flock3d/pkg/simulation"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// FlockActor owns the simulation and is the only goroutine touching it.
// The game loop (or the headless runner) drives it with messages:
//
//	*durationpb.Duration   advance one tick of that length, ignored while paused
//	*wrapperspb.BoolValue   pause (true) or resume (false)
//	*wrapperspb.DoubleValue advance one tick of that many seconds, even while paused
//	*emptypb.Empty          reply with the state digest as *wrapperspb.UInt64Value
type FlockActor struct {
	sim *flock.Simulation
	// Communication with UI
	snapshotCh chan<- *flock.Snapshot
	paused     bool

	// --- Benchmark Stats ---
	tickCount   int
	skipCount   int
	lastLogTime time.Time
}

// NewFlockActor wraps sim. snapshotCh may be nil when nobody renders.
func NewFlockActor(sim *flock.Simulation, snapshotCh chan<- *flock.Snapshot) *FlockActor {
	return &FlockActor{
		sim:         sim,
		snapshotCh:  snapshotCh,
		lastLogTime: time.Now(),
	}
}

func (f *FlockActor) PreStart(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("Flock %s is taking off with %d boids...", f.sim.RunID(), f.sim.AgentCount())
	return nil
}

func (f *FlockActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		ctx.Logger().Info("Flock Started.")
		f.pushSnapshot()

	// The Main Simulation Step (Driven by Game Loop)
	case *durationpb.Duration:
		if f.paused {
			f.skipCount++
			return
		}
		f.step(ctx, msg.AsDuration().Seconds())

	case *wrapperspb.BoolValue:
		if f.paused != msg.GetValue() {
			f.paused = msg.GetValue()
			ctx.Logger().Infof("Flock paused: %t at tick %d", f.paused, f.sim.TickCount())
		}

	// Single step, used to advance a paused flock frame by frame
	case *wrapperspb.DoubleValue:
		f.step(ctx, msg.GetValue())

	case *emptypb.Empty:
		ctx.Response(wrapperspb.UInt64(f.sim.Digest()))

	default:
		ctx.Unhandled()
	}
}

func (f *FlockActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("Flock %s landed after %d ticks", f.sim.RunID(), f.sim.TickCount())
	return nil
}

func (f *FlockActor) step(ctx *actor.ReceiveContext, dt float64) {
	f.sim.Tick(dt)
	f.tickCount++

	// 1. Telemetry
	f.logBenchmarks(ctx)

	// 2. UI Update
	f.pushSnapshot()
}

func (f *FlockActor) logBenchmarks(ctx *actor.ReceiveContext) {
	if time.Since(f.lastLogTime) >= time.Second {
		ctx.Logger().Infof("📊 TICK RATE: %d/sec (skipped while paused: %d) | Boids: %d | Tick: %d",
			f.tickCount, f.skipCount, f.sim.AgentCount(), f.sim.TickCount())
		f.tickCount = 0
		f.skipCount = 0
		f.lastLogTime = time.Now()
	}
}

func (f *FlockActor) pushSnapshot() {
	if f.snapshotCh == nil {
		return
	}
	snap := f.sim.Snapshot()
	select {
	case f.snapshotCh <- &snap:
	default:
		// UI busy, skip frame
	}
}

// TickMessage asks the flock to advance by dt unless it is paused.
func TickMessage(dt time.Duration) *durationpb.Duration {
	return durationpb.New(dt)
}

// PauseMessage pauses (true) or resumes (false) the flock.
func PauseMessage(paused bool) *wrapperspb.BoolValue {
	return wrapperspb.Bool(paused)
}

// StepMessage advances the flock by seconds even while it is paused.
func StepMessage(seconds float64) *wrapperspb.DoubleValue {
	return wrapperspb.Double(seconds)
}

// DigestQuery is answered with the flock digest.
func DigestQuery() *emptypb.Empty {
	return &emptypb.Empty{}
}

// SecondsToDuration converts a tick length in seconds for TickMessage.
func SecondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
