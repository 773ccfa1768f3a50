package simulation

import (
	"context"
	"fmt"
	"time"

	flock "github.com/lao-tseu-is-alive/go-flock3d/pkg/simulation"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// digestTimeout bounds the wait for the flock to drain its mailbox and answer.
const digestTimeout = time.Minute

// NewActorSystem starts the actor system hosting the flock.
func NewActorSystem(ctx context.Context, logger golog.Logger) (actor.ActorSystem, error) {
	if logger == nil {
		logger = golog.DiscardLogger
	}
	system, err := actor.NewActorSystem("FlockWorld",
		actor.WithLogger(logger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		return nil, fmt.Errorf("failed to create actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start actor system: %w", err)
	}
	return system, nil
}

// RunHeadless drives sim for ticks fixed steps of dt seconds through a
// FlockActor and returns the digest of the final state.
func RunHeadless(ctx context.Context, system actor.ActorSystem, sim *flock.Simulation, ticks int, dt float64) (uint64, error) {
	pid, err := system.Spawn(ctx, "flock-headless", NewFlockActor(sim, nil))
	if err != nil {
		return 0, fmt.Errorf("failed to spawn flock: %w", err)
	}
	defer func() { _ = pid.Shutdown(ctx) }()

	for i := 0; i < ticks; i++ {
		if err := actor.Tell(ctx, pid, StepMessage(dt)); err != nil {
			return 0, fmt.Errorf("failed to send tick %d: %w", i, err)
		}
	}

	// the mailbox is FIFO: the answer comes after every tick above
	reply, err := actor.Ask(ctx, pid, DigestQuery(), digestTimeout)
	if err != nil {
		return 0, fmt.Errorf("failed to query flock digest: %w", err)
	}
	digest, ok := reply.(*wrapperspb.UInt64Value)
	if !ok {
		return 0, fmt.Errorf("unexpected digest reply %T", reply)
	}
	return digest.GetValue(), nil
}
