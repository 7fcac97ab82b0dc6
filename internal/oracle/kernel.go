package oracle

import (
	"context"
	"errors"

	"github.com/MJE43/nh-parity-go/internal/engine"
	"github.com/MJE43/nh-parity-go/internal/rng"
	"github.com/MJE43/nh-parity-go/internal/snapshot"
)

// Kernel is an in-process oracle backed by the Go kernel. It makes a sweep a
// self-parity check and backs the worker binary.
type Kernel struct{}

func (Kernel) Name() string { return "kernel" }

func (Kernel) Start(ctx context.Context, seed uint64, opts engine.Options) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts.Trace = true
	s, err := engine.New(seed, opts)
	if err != nil {
		return nil, err
	}
	return &kernelSession{s: s}, nil
}

type kernelSession struct {
	s *engine.Session
}

func (k *kernelSession) Apply(ctx context.Context, cmd engine.Command) (Step, error) {
	if err := ctx.Err(); err != nil {
		return Step{}, err
	}
	out, err := k.s.Submit(cmd)
	switch {
	case err == nil:
		return Step{
			Turn:     out.Turn,
			Phase:    out.Phase.String(),
			Progress: out.Progress,
			Messages: out.Messages,
			Ended:    out.Phase == engine.SessionEnded,
		}, nil
	case errors.Is(err, engine.ErrIllegalCommand):
		return k.rejected(err, false), nil
	case errors.Is(err, engine.ErrSessionEnded):
		return k.rejected(err, true), nil
	}
	return Step{}, err
}

func (k *kernelSession) rejected(err error, ended bool) Step {
	return Step{
		Turn:    k.s.State.Turn,
		Phase:   k.s.Phase().String(),
		Illegal: !ended,
		Reason:  err.Error(),
		Ended:   ended,
	}
}

func (k *kernelSession) ReadState(ctx context.Context) (snapshot.Raw, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Raw{}, err
	}
	return snapshot.Project(k.s.State), nil
}

func (k *kernelSession) Trace(ctx context.Context) ([]rng.TraceEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return k.s.State.RNG.DrainTrace(), nil
}

func (k *kernelSession) Close() error { return nil }
