package converge

import (
	"context"
	"fmt"

	"github.com/MJE43/nh-parity-go/internal/fixture"
	"github.com/MJE43/nh-parity-go/internal/oracle"
	"github.com/MJE43/nh-parity-go/internal/snapshot"
)

// Record replays f on o and returns a copy of f whose checkpoints are the
// oracle's states at turn 0, every `every` turns, and at the end. An every of
// zero records only the final state.
func Record(ctx context.Context, o oracle.Oracle, f *fixture.Fixture, every uint64) (*fixture.Fixture, error) {
	sess, err := o.Start(ctx, f.Seed, f.Options)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", f.Name, err)
	}
	defer sess.Close()

	out := *f
	out.Checkpoints = nil
	capture := func() error {
		raw, err := sess.ReadState(ctx)
		if err != nil {
			return err
		}
		if _, err := sess.Trace(ctx); err != nil {
			return err
		}
		if n := len(out.Checkpoints); n > 0 && out.Checkpoints[n-1].Turn == raw.Turn {
			return nil
		}
		raw.Messages = nil
		out.Checkpoints = append(out.Checkpoints, fixture.Checkpoint{
			Turn:   raw.Turn,
			Digest: snapshot.FromRaw(raw).Digest(),
			State:  &raw,
		})
		return nil
	}

	if every > 0 {
		if err := capture(); err != nil {
			return nil, fmt.Errorf("record %s: %w", f.Name, err)
		}
	}
	var turn uint64
	for i, cmd := range f.Commands {
		step, err := sess.Apply(ctx, cmd)
		if err != nil {
			return nil, fmt.Errorf("record %s: command %d: %w", f.Name, i, err)
		}
		if step.Ended {
			break
		}
		if step.Illegal || step.Turn == turn {
			continue
		}
		turn = step.Turn
		if every > 0 && turn%every == 0 {
			if err := capture(); err != nil {
				return nil, fmt.Errorf("record %s: %w", f.Name, err)
			}
		}
	}
	if err := capture(); err != nil {
		return nil, fmt.Errorf("record %s: %w", f.Name, err)
	}
	return &out, nil
}
