package converge

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/nh-parity-go/internal/diff"
	"github.com/MJE43/nh-parity-go/internal/engine"
	"github.com/MJE43/nh-parity-go/internal/fixture"
	"github.com/MJE43/nh-parity-go/internal/oracle"
	"github.com/MJE43/nh-parity-go/internal/rng"
	"github.com/MJE43/nh-parity-go/internal/snapshot"
	"github.com/MJE43/nh-parity-go/internal/world"
)

func walk(name string, seed uint64) *fixture.Fixture {
	return &fixture.Fixture{
		Name: name,
		Seed: seed,
		Commands: []engine.Command{
			engine.Move(world.East), engine.Move(world.East), engine.Search(),
			engine.PickUp(), engine.Rest(), engine.Move(world.North), engine.Rest(),
		},
	}
}

// skewed wraps the kernel oracle and lets a test corrupt what it reports.
type skewed struct {
	state func(*snapshot.Raw)
	trace func([]rng.TraceEntry)
	start error
	apply func(ctx context.Context) error
}

func (s *skewed) Name() string { return "skewed" }

func (s *skewed) Start(ctx context.Context, seed uint64, opts engine.Options) (oracle.Session, error) {
	if s.start != nil {
		return nil, s.start
	}
	inner, err := oracle.Kernel{}.Start(ctx, seed, opts)
	if err != nil {
		return nil, err
	}
	return &skewedSession{Session: inner, o: s}, nil
}

type skewedSession struct {
	oracle.Session
	o *skewed
}

func (s *skewedSession) Apply(ctx context.Context, cmd engine.Command) (oracle.Step, error) {
	if s.o.apply != nil {
		if err := s.o.apply(ctx); err != nil {
			return oracle.Step{}, err
		}
	}
	return s.Session.Apply(ctx, cmd)
}

func (s *skewedSession) ReadState(ctx context.Context) (snapshot.Raw, error) {
	raw, err := s.Session.ReadState(ctx)
	if err == nil && s.o.state != nil {
		s.o.state(&raw)
	}
	return raw, err
}

func (s *skewedSession) Trace(ctx context.Context) ([]rng.TraceEntry, error) {
	tr, err := s.Session.Trace(ctx)
	if err == nil && s.o.trace != nil {
		s.o.trace(tr)
	}
	return tr, err
}

func TestSelfParityPasses(t *testing.T) {
	r := &Runner{Oracle: oracle.Kernel{}, Threshold: diff.Cosmetic, Workers: 2}
	rep, err := r.Run(context.Background(), []*fixture.Fixture{walk("a", 1), walk("b", 2), walk("c", 3)})
	require.NoError(t, err)

	assert.Equal(t, Pass, rep.Verdict)
	assert.True(t, rep.Passed())
	assert.Equal(t, "1", rep.ParityRate.String())
	require.Len(t, rep.Fixtures, 3)
	for _, f := range rep.Fixtures {
		assert.Equal(t, Pass, f.Verdict, f.Reason)
		assert.Empty(t, f.Records)
		assert.NotEmpty(t, f.FinalDigest)
		assert.NotEmpty(t, f.ID)
	}
	assert.Equal(t, "a", rep.Fixtures[0].Fixture, "results keep fixture order")
}

func TestMonsterHPMismatchFails(t *testing.T) {
	o := &skewed{state: func(raw *snapshot.Raw) {
		if raw.Turn >= 2 && len(raw.Monsters) > 0 {
			raw.Monsters[0].HP++
		}
	}}
	r := &Runner{Oracle: o, Threshold: diff.Major}
	res := r.RunFixture(context.Background(), walk("hp", 5))

	assert.Equal(t, Fail, res.Verdict)
	assert.False(t, res.Diverged)
	require.NotEmpty(t, res.Records)
	assert.Equal(t, "monsters[id=1].hp", res.Records[0].Path)
	assert.Equal(t, diff.Divergent, res.Records[0].Severity)
	assert.Equal(t, uint64(2), res.Records[0].Turn)
}

func TestThresholdAdmitsMinorRecords(t *testing.T) {
	o := &skewed{state: func(raw *snapshot.Raw) { raw.Player.Nutrition++ }}
	res := (&Runner{Oracle: o, Threshold: diff.Major}).RunFixture(context.Background(), walk("food", 5))
	assert.Equal(t, Pass, res.Verdict)
	assert.NotEmpty(t, res.Records)
	assert.Equal(t, len(res.Records), res.Histogram[diff.Minor])

	res = (&Runner{Oracle: o, Threshold: diff.Minor}).RunFixture(context.Background(), walk("food", 5))
	assert.Equal(t, Fail, res.Verdict)
}

func TestTraceDivergenceFails(t *testing.T) {
	o := &skewed{trace: func(tr []rng.TraceEntry) {
		for i := range tr {
			tr[i].Raw ^= 1
		}
	}}
	f := walk("trace", 5)
	f.Options = engine.Options{Monsters: []engine.MonsterSpec{{Species: "newt", At: world.Coord{X: 7, Y: 3}}}}

	res := (&Runner{Oracle: o, Threshold: diff.Divergent}).RunFixture(context.Background(), f)
	assert.Equal(t, Fail, res.Verdict)
	assert.True(t, res.Diverged)
	require.NotNil(t, res.Divergence)
	assert.Equal(t, 0, res.Divergence.Index)
	assert.Contains(t, res.Reason, "rng trace diverged")
}

func TestInconclusiveAndError(t *testing.T) {
	tests := []struct {
		name   string
		oracle *skewed
		want   Verdict
	}{
		{"unavailable", &skewed{start: oracle.ErrOracleUnavailable}, Inconclusive},
		{"timeout", &skewed{apply: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}}, Inconclusive},
		{"panic", &skewed{apply: func(context.Context) error { panic("oracle exploded") }}, Error},
		{"remote", &skewed{apply: func(context.Context) error { return oracle.ErrRemote }}, Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Runner{Oracle: tt.oracle, FixtureTimeout: 100 * time.Millisecond}
			res := r.RunFixture(context.Background(), walk(tt.name, 1))
			assert.Equal(t, tt.want, res.Verdict)
			assert.NotEmpty(t, res.Reason)
		})
	}
}

func TestOverallVerdict(t *testing.T) {
	v := func(vs ...Verdict) []FixtureResult {
		out := make([]FixtureResult, len(vs))
		for i, x := range vs {
			out[i].Verdict = x
		}
		return out
	}
	assert.Equal(t, Pass, Overall(v(Pass, Pass)))
	assert.Equal(t, Fail, Overall(v(Pass, Inconclusive, Fail)))
	assert.Equal(t, Partial, Overall(v(Pass, Inconclusive)))
	assert.Equal(t, Partial, Overall(v(Error)))
}

func TestPartialSweepAndParityRate(t *testing.T) {
	flaky := &skewed{}
	var mu sync.Mutex
	calls := 0
	flaky.apply = func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	}
	r := &Runner{Oracle: flaky, Workers: 1}
	good := []*fixture.Fixture{walk("a", 1), walk("b", 2), walk("c", 3)}
	rep, err := r.Run(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, Pass, rep.Verdict)
	assert.Equal(t, 3*len(good[0].Commands), calls)

	rep.Fixtures = append(rep.Fixtures, FixtureResult{Fixture: "d", Verdict: Inconclusive})
	rep.finalize()
	assert.Equal(t, Partial, rep.Verdict)
	assert.Equal(t, "0.75", rep.ParityRate.String())
}

func TestCancelledSweep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := (&Runner{Oracle: oracle.Kernel{}}).Run(ctx, []*fixture.Fixture{walk("a", 1), walk("b", 2)})
	require.NoError(t, err)
	assert.Equal(t, Partial, rep.Verdict)
	for _, f := range rep.Fixtures {
		assert.Equal(t, Inconclusive, f.Verdict)
		assert.Equal(t, "cancelled", f.Reason)
	}
}

func TestRunValidation(t *testing.T) {
	_, err := (&Runner{}).Run(context.Background(), []*fixture.Fixture{walk("a", 1)})
	assert.ErrorIs(t, err, ErrNoOracle)
	_, err = (&Runner{Oracle: oracle.Kernel{}}).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFixtures)
}

type recorder struct {
	mu       sync.Mutex
	started  int
	finished []string
	done     *Report
}

func (r *recorder) SweepStarted(id, label string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = n
}

func (r *recorder) FixtureFinished(id string, res FixtureResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, res.Fixture)
}

func (r *recorder) SweepFinished(rep *Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = rep
}

func TestObserverSeesEveryFixture(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	r := &Runner{Oracle: oracle.Kernel{}, Observer: Observers{a, b}, Label: "nightly"}
	rep, err := r.Run(context.Background(), []*fixture.Fixture{walk("a", 1), walk("b", 2)})
	require.NoError(t, err)
	for _, o := range []*recorder{a, b} {
		assert.Equal(t, 2, o.started)
		assert.ElementsMatch(t, []string{"a", "b"}, o.finished)
		assert.Same(t, rep, o.done)
	}
}

func TestRecordedCheckpointsAreCompared(t *testing.T) {
	ctx := context.Background()
	f, err := Record(ctx, oracle.Kernel{}, walk("rec", 11), 2)
	require.NoError(t, err)
	require.NotEmpty(t, f.Checkpoints)
	assert.Equal(t, uint64(0), f.Checkpoints[0].Turn)
	for i := 1; i < len(f.Checkpoints); i++ {
		assert.Greater(t, f.Checkpoints[i].Turn, f.Checkpoints[i-1].Turn)
	}
	require.NoError(t, f.Validate())

	res := (&Runner{Oracle: oracle.Kernel{}}).RunFixture(ctx, f)
	assert.Equal(t, Pass, res.Verdict, res.Reason)

	last := &f.Checkpoints[len(f.Checkpoints)-1]
	last.State.Player.HP += 3
	res = (&Runner{Oracle: oracle.Kernel{}}).RunFixture(ctx, f)
	assert.Equal(t, Fail, res.Verdict)
	require.NotEmpty(t, res.Records)
	assert.Equal(t, "player.hp", res.Records[0].Path)
	assert.Contains(t, res.Records[0].Explanation, "fixture checkpoint")

	last.State = nil
	last.Digest = "feed"
	res = (&Runner{Oracle: oracle.Kernel{}}).RunFixture(ctx, f)
	assert.Equal(t, Fail, res.Verdict)
	assert.Equal(t, "digest", res.Records[0].Path)
}

func TestGate(t *testing.T) {
	rep := &Report{
		Histogram: map[diff.Severity]int{diff.Divergent: 1, diff.Major: 3},
		Fixtures:  []FixtureResult{{Fixture: "a", Verdict: Pass}},
	}
	assert.NoError(t, Gate{MaxDivergent: 1, MaxMajor: 3}.Check(rep))
	assert.NoError(t, Gate{MaxDivergent: -1, MaxMajor: -1}.Check(rep))
	assert.ErrorIs(t, Gate{MaxDivergent: 0, MaxMajor: 5}.Check(rep), ErrGateFailed)
	assert.ErrorIs(t, Gate{MaxDivergent: 5, MaxMajor: 2}.Check(rep), ErrGateFailed)

	rep.Fixtures = append(rep.Fixtures, FixtureResult{Fixture: "b", Verdict: Error})
	assert.ErrorIs(t, Gate{MaxDivergent: 5, MaxMajor: 5}.Check(rep), ErrGateFailed)
}

func TestReportOutput(t *testing.T) {
	o := &skewed{state: func(raw *snapshot.Raw) { raw.Player.Luck = 3 }}
	rep, err := (&Runner{Oracle: o, Label: "unit"}).Run(context.Background(), []*fixture.Fixture{walk("luck", 4)})
	require.NoError(t, err)
	assert.Equal(t, Fail, rep.Verdict)

	sum := rep.Summary()
	assert.Contains(t, sum, "FAIL")
	assert.Contains(t, sum, "luck [fail]")
	assert.Contains(t, sum, "parity: 0.00%")

	var buf bytes.Buffer
	require.NoError(t, rep.WriteJSON(&buf))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "fail", decoded["verdict"])
	assert.Equal(t, "0", decoded["parity_rate"])
	assert.Contains(t, decoded["histogram"], "major")
}
