package converge

import (
	"context"
	"errors"
	"fmt"

	"github.com/MJE43/nh-parity-go/internal/engine"
	"github.com/MJE43/nh-parity-go/internal/fixture"
	"github.com/MJE43/nh-parity-go/internal/snapshot"
)

// ReplayStep is the kernel's account of one fixture command.
type ReplayStep struct {
	Index    int      `json:"index"`
	Command  string   `json:"command"`
	Turn     uint64   `json:"turn"`
	Phase    string   `json:"phase"`
	Draws    uint64   `json:"draws"`
	Illegal  bool     `json:"illegal,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Messages []string `json:"messages,omitempty"`
	Digest   string   `json:"digest"`
}

// CheckpointMatch compares a stored checkpoint with the kernel's state at the
// same turn.
type CheckpointMatch struct {
	Turn     uint64 `json:"turn"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Match    bool   `json:"match"`
}

// Transcript is a kernel-only replay of a fixture.
type Transcript struct {
	Fixture     string            `json:"fixture"`
	Seed        uint64            `json:"seed"`
	Steps       []ReplayStep      `json:"steps"`
	Checkpoints []CheckpointMatch `json:"checkpoints,omitempty"`
	Final       snapshot.Raw      `json:"final"`
	FinalDigest string            `json:"final_digest"`
}

// Mismatches returns the checkpoints the kernel disagreed with.
func (t *Transcript) Mismatches() []CheckpointMatch {
	var out []CheckpointMatch
	for _, c := range t.Checkpoints {
		if !c.Match {
			out = append(out, c)
		}
	}
	return out
}

// Replay runs f on the kernel alone. Illegal commands are recorded and
// skipped; the replay stops when the session ends.
func Replay(ctx context.Context, f *fixture.Fixture) (*Transcript, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	sess, err := engine.New(f.Seed, f.Options)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", f.Name, err)
	}

	t := &Transcript{Fixture: f.Name, Seed: f.Seed}
	digest := func() string { return snapshot.Extract(sess.State).Digest() }
	check := func() {
		cp, ok := f.Checkpoint(sess.State.Turn)
		if !ok {
			return
		}
		if n := len(t.Checkpoints); n > 0 && t.Checkpoints[n-1].Turn == cp.Turn {
			return
		}
		want := cp.Digest
		if cp.State != nil {
			want = snapshot.FromRaw(*cp.State).Digest()
		}
		got := digest()
		t.Checkpoints = append(t.Checkpoints, CheckpointMatch{Turn: cp.Turn, Expected: want, Actual: got, Match: want == got})
	}

	check()
	for i, cmd := range f.Commands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := sess.Submit(cmd)
		step := ReplayStep{
			Index:    i,
			Command:  cmd.String(),
			Turn:     out.Turn,
			Phase:    out.Phase.String(),
			Draws:    out.Draws,
			Messages: out.Messages,
		}
		switch {
		case err == nil:
		case errors.Is(err, engine.ErrIllegalCommand):
			step.Illegal, step.Reason = true, err.Error()
		case errors.Is(err, engine.ErrSessionEnded):
			step.Reason = err.Error()
		default:
			return nil, fmt.Errorf("replay %s: command %d: %w", f.Name, i, err)
		}
		step.Digest = digest()
		t.Steps = append(t.Steps, step)
		check()
		if errors.Is(err, engine.ErrSessionEnded) || sess.Phase() == engine.SessionEnded {
			break
		}
	}

	t.Final = snapshot.Project(sess.State)
	t.FinalDigest = digest()
	return t, nil
}
