// Package oracle defines the reference engine a convergence sweep compares the
// kernel against, and provides two implementations: the kernel itself and an
// external worker process speaking JSON lines.
package oracle

import (
	"context"
	"errors"

	"github.com/MJE43/nh-parity-go/internal/engine"
	"github.com/MJE43/nh-parity-go/internal/rng"
	"github.com/MJE43/nh-parity-go/internal/snapshot"
)

var (
	// ErrOracleUnavailable means the oracle could not be started or stopped
	// answering.
	ErrOracleUnavailable = errors.New("oracle unavailable")
	// ErrTimeout means a request outlived its context deadline.
	ErrTimeout = errors.New("oracle timeout")
	// ErrProtocol means the oracle answered with something unparseable.
	ErrProtocol = errors.New("oracle protocol error")
	// ErrRemote wraps an error reported by the oracle itself.
	ErrRemote = errors.New("oracle error")
)

// Oracle starts independent game sessions.
type Oracle interface {
	Name() string
	Start(ctx context.Context, seed uint64, opts engine.Options) (Session, error)
}

// Session is one game on the oracle side.
type Session interface {
	// Apply submits one command. Illegal commands and commands after the
	// game ended are reported in the Step, not as errors.
	Apply(ctx context.Context, cmd engine.Command) (Step, error)
	// ReadState returns the current state in wire form.
	ReadState(ctx context.Context) (snapshot.Raw, error)
	// Trace returns the draws made since the previous call.
	Trace(ctx context.Context) ([]rng.TraceEntry, error)
	Close() error
}

// Step is the oracle's account of one Apply.
type Step struct {
	Turn     uint64   `json:"turn"`
	Phase    string   `json:"phase"`
	Progress int      `json:"progress,omitempty"`
	Messages []string `json:"messages,omitempty"`
	Illegal  bool     `json:"illegal,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Ended    bool     `json:"ended,omitempty"`
}
