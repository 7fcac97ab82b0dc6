// Package converge runs fixtures through the kernel and an oracle side by side
// and grades how far they agree.
package converge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MJE43/nh-parity-go/internal/diff"
	"github.com/MJE43/nh-parity-go/internal/engine"
	"github.com/MJE43/nh-parity-go/internal/fixture"
	"github.com/MJE43/nh-parity-go/internal/oracle"
	"github.com/MJE43/nh-parity-go/internal/snapshot"
)

const defaultFixtureTimeout = 30 * time.Second

// Runner drives a sweep. The zero value is not usable: Oracle is required.
type Runner struct {
	Oracle oracle.Oracle
	// Table grades records. Nil means diff.DefaultTable().
	Table *diff.Table
	// Threshold is the lowest severity that fails a fixture.
	Threshold diff.Severity
	// Workers bounds concurrent fixtures. Zero means GOMAXPROCS.
	Workers        int
	FixtureTimeout time.Duration
	Label          string
	Observer       Observer
	Logger         *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (r *Runner) observer() Observer {
	if r.Observer != nil {
		return r.Observer
	}
	return nopObserver{}
}

func (r *Runner) table() *diff.Table {
	if r.Table != nil {
		return r.Table
	}
	return diff.DefaultTable()
}

// Run sweeps fixtures on a bounded worker pool. Cancelling ctx stops
// scheduling; fixtures that never started are reported Inconclusive.
func (r *Runner) Run(ctx context.Context, fixtures []*fixture.Fixture) (*Report, error) {
	if r.Oracle == nil {
		return nil, ErrNoOracle
	}
	if len(fixtures) == 0 {
		return nil, ErrNoFixtures
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rep := &Report{
		ID:        uuid.NewString(),
		Label:     r.Label,
		Oracle:    r.Oracle.Name(),
		Threshold: r.Threshold,
		StartedAt: time.Now().UTC(),
		Fixtures:  make([]FixtureResult, len(fixtures)),
	}
	log := r.logger().With("sweep_id", rep.ID)
	log.Info("sweep started", "fixtures", len(fixtures), "workers", workers, "oracle", rep.Oracle)
	r.observer().SweepStarted(rep.ID, rep.Label, len(fixtures))

	var g errgroup.Group
	g.SetLimit(workers)
	scheduled := 0
	for i, f := range fixtures {
		if ctx.Err() != nil {
			break
		}
		scheduled = i + 1
		g.Go(func() error {
			res := r.RunFixture(ctx, f)
			rep.Fixtures[i] = res
			log.Info("fixture finished",
				"fixture", res.Fixture,
				"verdict", res.Verdict,
				"records", len(res.Records),
				"duration", res.Duration)
			r.observer().FixtureFinished(rep.ID, res)
			return nil
		})
	}
	_ = g.Wait()

	for i := scheduled; i < len(fixtures); i++ {
		res := FixtureResult{
			ID:       uuid.NewString(),
			Fixture:  fixtures[i].Name,
			Seed:     fixtures[i].Seed,
			Commands: len(fixtures[i].Commands),
			Verdict:  Inconclusive,
			Reason:   "cancelled",
		}
		rep.Fixtures[i] = res
		r.observer().FixtureFinished(rep.ID, res)
	}

	rep.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
	rep.Duration = time.Since(rep.StartedAt)
	rep.finalize()
	log.Info("sweep finished", "verdict", rep.Verdict, "parity_rate", rep.ParityRate.String(), "duration", rep.Duration)
	r.observer().SweepFinished(rep)
	return rep, nil
}

// RunFixture compares one fixture. It never returns an error: failures of
// either side become the result's verdict.
func (r *Runner) RunFixture(ctx context.Context, f *fixture.Fixture) (res FixtureResult) {
	start := time.Now()
	res = FixtureResult{
		ID:       uuid.NewString(),
		Fixture:  f.Name,
		Seed:     f.Seed,
		Commands: len(f.Commands),
	}
	defer func() {
		if p := recover(); p != nil {
			res.Verdict = Error
			res.Reason = fmt.Sprintf("panic: %v", p)
			r.logger().Error("fixture panicked", "fixture", f.Name, "panic", p)
		}
		res.Duration = time.Since(start)
	}()

	timeout := r.FixtureTimeout
	if timeout <= 0 {
		timeout = defaultFixtureTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := &comparison{runner: r, fixture: f, table: r.table()}
	if err := c.run(ctx); err != nil {
		res.Verdict, res.Reason = classify(err)
		res.Turns = c.turns
		return res
	}

	tl := diff.CompareTimelines(c.expected, c.actual, c.table)
	res.Records = append(c.extra, tl.Records...)
	res.Histogram = diff.Count(res.Records)
	res.Diverged = tl.Diverged
	res.DivergenceTurn = tl.DivergenceTurn
	res.Divergence = tl.Divergence
	res.SuppressedTurns = tl.SuppressedTurns
	res.Turns = c.turns
	res.FinalDigest = c.finalDigest

	failing := diff.AtLeast(res.Records, r.Threshold)
	switch {
	case tl.Diverged:
		res.Verdict = Fail
		res.Reason = fmt.Sprintf("rng trace diverged at turn %d: %s", tl.DivergenceTurn, tl.Divergence.Description)
	case len(failing) > 0:
		res.Verdict = Fail
		res.Reason = fmt.Sprintf("%d record(s) at or above %s, first %s", len(failing), r.Threshold, failing[0].Path)
	default:
		res.Verdict = Pass
	}
	return res
}

func classify(err error) (Verdict, string) {
	switch {
	case errors.Is(err, oracle.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return Inconclusive, "timeout: " + err.Error()
	case errors.Is(err, context.Canceled):
		return Inconclusive, "cancelled"
	case errors.Is(err, oracle.ErrOracleUnavailable):
		return Inconclusive, err.Error()
	}
	return Error, err.Error()
}

// comparison is the state of one fixture run.
type comparison struct {
	runner  *Runner
	fixture *fixture.Fixture
	table   *diff.Table

	expected    []diff.Checkpoint
	actual      []diff.Checkpoint
	extra       []diff.Record
	turns       uint64
	finalDigest string
}

func (c *comparison) run(ctx context.Context) error {
	f := c.fixture
	opts := f.Options
	opts.Trace = true
	kernel, err := engine.New(f.Seed, opts)
	if err != nil {
		return fmt.Errorf("kernel: %w", err)
	}
	sess, err := c.runner.Oracle.Start(ctx, f.Seed, f.Options)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			c.runner.logger().Warn("oracle close failed", "fixture", f.Name, "error", err)
		}
	}()

	if err := c.checkpoint(ctx, kernel, sess); err != nil {
		return err
	}
	for i, cmd := range f.Commands {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, kerr := kernel.Submit(cmd)
		kIllegal := errors.Is(kerr, engine.ErrIllegalCommand)
		kEnded := errors.Is(kerr, engine.ErrSessionEnded)
		if kerr != nil && !kIllegal && !kEnded {
			return fmt.Errorf("kernel: command %d: %w", i, kerr)
		}
		step, err := sess.Apply(ctx, cmd)
		if err != nil {
			return err
		}

		if kIllegal != step.Illegal {
			c.extra = append(c.extra, diff.Record{
				Turn:        step.Turn,
				Path:        fmt.Sprintf("commands[%d].legal", i),
				Severity:    diff.Divergent,
				Expected:    fmt.Sprint(!step.Illegal),
				Actual:      fmt.Sprint(!kIllegal),
				Explanation: fmt.Sprintf("%q accepted by only one side", cmd),
			})
		}
		if kEnded && step.Ended {
			break
		}
		if (kIllegal || kEnded) && (step.Illegal || step.Ended) {
			continue
		}
		if err := c.checkpoint(ctx, kernel, sess); err != nil {
			return err
		}
	}
	c.turns = kernel.State.Turn
	c.finalDigest = snapshot.Extract(kernel.State).Digest()
	return nil
}

// checkpoint captures both sides after a turn and checks any expectation the
// fixture recorded for it.
func (c *comparison) checkpoint(ctx context.Context, kernel *engine.Session, sess oracle.Session) error {
	raw, err := sess.ReadState(ctx)
	if err != nil {
		return err
	}
	trace, err := sess.Trace(ctx)
	if err != nil {
		return err
	}
	gs := kernel.State
	got := snapshot.Extract(gs)
	c.expected = append(c.expected, diff.Checkpoint{Turn: raw.Turn, State: snapshot.FromRaw(raw), Trace: trace, Traced: true})
	c.actual = append(c.actual, diff.Checkpoint{Turn: gs.Turn, State: got, Trace: gs.RNG.DrainTrace(), Traced: true})
	c.turns = gs.Turn

	want, ok := c.fixture.Checkpoint(gs.Turn)
	if !ok {
		return nil
	}
	if want.State != nil {
		recs := diff.Diff(snapshot.FromRaw(*want.State), got, c.table)
		for i := range recs {
			recs[i].Turn = gs.Turn
			recs[i].Explanation = joinNote("fixture checkpoint", recs[i].Explanation)
		}
		c.extra = append(c.extra, recs...)
	} else if d := got.Digest(); d != want.Digest {
		sev, _ := c.table.Classify("digest")
		c.extra = append(c.extra, diff.Record{
			Turn:        gs.Turn,
			Path:        "digest",
			Severity:    sev,
			Expected:    want.Digest,
			Actual:      d,
			Explanation: "fixture checkpoint digest",
		})
	}
	return nil
}

func joinNote(a, b string) string {
	if b == "" {
		return a
	}
	return a + ": " + b
}
