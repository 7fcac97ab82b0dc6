package oracle

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/MJE43/nh-parity-go/internal/engine"
	"github.com/MJE43/nh-parity-go/internal/rng"
	"github.com/MJE43/nh-parity-go/internal/snapshot"
)

const (
	defaultStartTimeout = 5 * time.Second
	defaultRetries      = 2
	retryBase           = 50 * time.Millisecond
	closeGrace          = 2 * time.Second
	maxLineBytes        = 16 << 20
)

// Process runs an external worker per session and talks to it over
// stdin/stdout.
type Process struct {
	Path string
	Args []string
	// Env is appended to the parent's environment.
	Env []string
	// StartTimeout bounds each spawn and handshake attempt.
	StartTimeout time.Duration
	// Retries is how many failed spawns are retried before giving up.
	Retries uint64
	Logger  *slog.Logger
}

func (p *Process) Name() string { return "process:" + p.Path }

func (p *Process) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Start spawns a worker, handshakes, and resets it to seed. Spawn and
// handshake failures are retried with exponential backoff.
func (p *Process) Start(ctx context.Context, seed uint64, opts engine.Options) (Session, error) {
	timeout := p.StartTimeout
	if timeout <= 0 {
		timeout = defaultStartTimeout
	}
	retries := p.Retries
	if retries == 0 {
		retries = defaultRetries
	}

	var sess *processSession
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		s, err := p.spawn(attempt)
		if err != nil {
			p.logger().Warn("oracle spawn failed", "path", p.Path, "error", err)
			return retry.RetryableError(err)
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: start %s: %w: %v", p.Path, ErrOracleUnavailable, err)
	}

	opts.Trace = true
	if _, err := sess.call(ctx, Request{Op: OpReset, Seed: seed, Options: &opts}); err != nil {
		return nil, multierr.Append(fmt.Errorf("oracle: reset: %w", err), sess.Close())
	}
	return sess, nil
}

func (p *Process) spawn(ctx context.Context) (*processSession, error) {
	cmd := exec.Command(p.Path, p.Args...)
	cmd.Env = append(os.Environ(), p.Env...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	s := &processSession{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan result, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		logger: p.logger().With("pid", cmd.Process.Pid),
	}
	go s.read(stdout)

	resp, err := s.call(ctx, Request{Op: OpHello})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("handshake: %w", err), s.Close())
	}
	if resp.Version != ProtocolVersion {
		return nil, multierr.Append(fmt.Errorf("handshake: protocol version %q, want %q", resp.Version, ProtocolVersion), s.Close())
	}
	return s, nil
}

type result struct {
	resp Response
	err  error
}

type processSession struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan result
	done   chan struct{}
	exited chan struct{}
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// read forwards protocol lines until stdout closes. exited is closed once
// it has stopped reading, after which cmd.Wait may run.
func (s *processSession) read(stdout io.Reader) {
	defer close(s.exited)
	defer close(s.lines)
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		resp, ok, err := decodeResponse(sc.Bytes())
		if !ok {
			if len(sc.Bytes()) > 0 {
				s.logger.Debug("worker output", "line", sc.Text())
			}
			continue
		}
		if !s.forward(result{resp: resp, err: err}) {
			return
		}
	}
	if err := sc.Err(); err != nil {
		s.forward(result{err: fmt.Errorf("%w: read: %v", ErrOracleUnavailable, err)})
	}
}

func (s *processSession) forward(r result) bool {
	select {
	case s.lines <- r:
		return true
	case <-s.done:
		return false
	}
}

func (s *processSession) call(ctx context.Context, req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Response{}, fmt.Errorf("oracle: %s: session closed: %w", req.Op, ErrOracleUnavailable)
	}

	line, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("oracle: encode %s: %w", req.Op, err)
	}
	if _, err := s.stdin.Write(append(line, '\n')); err != nil {
		s.abort()
		return Response{}, fmt.Errorf("oracle: send %s: %w: %v", req.Op, ErrOracleUnavailable, err)
	}

	select {
	case <-ctx.Done():
		s.abort()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Response{}, fmt.Errorf("oracle: %s: %w", req.Op, ErrTimeout)
		}
		return Response{}, ctx.Err()
	case r, ok := <-s.lines:
		if !ok {
			s.abort()
			return Response{}, fmt.Errorf("oracle: %s: worker exited: %w", req.Op, ErrOracleUnavailable)
		}
		if r.err != nil {
			return Response{}, fmt.Errorf("oracle: %s: %w", req.Op, r.err)
		}
		if !r.resp.OK {
			return Response{}, fmt.Errorf("oracle: %s: %w: %s", req.Op, ErrRemote, r.resp.Error)
		}
		return r.resp, nil
	}
}

// abort kills the worker after a failed exchange. The caller holds mu.
func (s *processSession) abort() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	go func() {
		<-s.exited
		_ = s.cmd.Wait()
	}()
}

func (s *processSession) Apply(ctx context.Context, cmd engine.Command) (Step, error) {
	text, err := cmd.MarshalText()
	if err != nil {
		return Step{}, err
	}
	resp, err := s.call(ctx, Request{Op: OpApply, Command: string(text)})
	if err != nil {
		return Step{}, err
	}
	if resp.Step == nil {
		return Step{}, fmt.Errorf("oracle: apply: %w: missing step", ErrProtocol)
	}
	return *resp.Step, nil
}

func (s *processSession) ReadState(ctx context.Context) (snapshot.Raw, error) {
	resp, err := s.call(ctx, Request{Op: OpState})
	if err != nil {
		return snapshot.Raw{}, err
	}
	if resp.State == nil {
		return snapshot.Raw{}, fmt.Errorf("oracle: state: %w: missing state", ErrProtocol)
	}
	return *resp.State, nil
}

func (s *processSession) Trace(ctx context.Context) ([]rng.TraceEntry, error) {
	resp, err := s.call(ctx, Request{Op: OpTrace})
	if err != nil {
		return nil, err
	}
	return resp.Trace, nil
}

// Close asks the worker to exit and waits briefly before killing it.
func (s *processSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	var errs error
	if line, err := json.Marshal(Request{Op: OpExit}); err == nil {
		_, _ = s.stdin.Write(append(line, '\n'))
	}
	errs = multierr.Append(errs, ignoreClosed(s.stdin.Close()))

	select {
	case <-s.exited:
	case <-time.After(closeGrace):
		errs = multierr.Append(errs, s.cmd.Process.Kill())
		<-s.exited
		errs = multierr.Append(errs, fmt.Errorf("oracle: worker did not exit within %s", closeGrace))
	}
	return multierr.Append(errs, s.cmd.Wait())
}

func ignoreClosed(err error) error {
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
