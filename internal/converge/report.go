package converge

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJE43/nh-parity-go/internal/diff"
)

// Verdict is the outcome of a fixture or of a whole sweep.
type Verdict string

const (
	Pass         Verdict = "pass"
	Fail         Verdict = "fail"
	Inconclusive Verdict = "inconclusive"
	Error        Verdict = "error"
	// Partial is only used for sweeps: nothing failed but not everything
	// passed.
	Partial Verdict = "partial"
)

// FixtureResult is the outcome of one fixture.
type FixtureResult struct {
	ID              string                `json:"id"`
	Fixture         string                `json:"fixture"`
	Seed            uint64                `json:"seed"`
	Verdict         Verdict               `json:"verdict"`
	Reason          string                `json:"reason,omitempty"`
	Commands        int                   `json:"commands"`
	Turns           uint64                `json:"turns"`
	Records         []diff.Record         `json:"records,omitempty"`
	Histogram       map[diff.Severity]int `json:"histogram,omitempty"`
	Diverged        bool                  `json:"diverged"`
	DivergenceTurn  uint64                `json:"divergence_turn,omitempty"`
	Divergence      *diff.TraceDivergence `json:"divergence,omitempty"`
	SuppressedTurns int                   `json:"suppressed_turns,omitempty"`
	FinalDigest     string                `json:"final_digest,omitempty"`
	Duration        time.Duration         `json:"duration_ns"`
}

// Worst returns the highest record severity, if any.
func (r FixtureResult) Worst() (diff.Severity, bool) {
	return diff.Worst(r.Records)
}

// Report is the outcome of a sweep.
type Report struct {
	ID         string                `json:"id"`
	Label      string                `json:"label,omitempty"`
	Oracle     string                `json:"oracle"`
	Verdict    Verdict               `json:"verdict"`
	Threshold  diff.Severity         `json:"threshold"`
	Fixtures   []FixtureResult       `json:"fixtures"`
	Histogram  map[diff.Severity]int `json:"histogram"`
	Counts     map[Verdict]int       `json:"counts"`
	ParityRate decimal.Decimal       `json:"parity_rate"`
	StartedAt  time.Time             `json:"started_at"`
	Duration   time.Duration         `json:"duration_ns"`
	TimedOut   bool                  `json:"timed_out,omitempty"`
}

// Passed reports whether every fixture passed.
func (r *Report) Passed() bool { return r.Verdict == Pass }

// Fixture finds a result by fixture name.
func (r *Report) Fixture(name string) (FixtureResult, bool) {
	for _, f := range r.Fixtures {
		if f.Fixture == name {
			return f, true
		}
	}
	return FixtureResult{}, false
}

// finalize fills the aggregate fields from Fixtures.
func (r *Report) finalize() {
	r.Histogram = make(map[diff.Severity]int)
	r.Counts = make(map[Verdict]int)
	for _, f := range r.Fixtures {
		r.Counts[f.Verdict]++
		for s, n := range f.Histogram {
			r.Histogram[s] += n
		}
	}
	r.Verdict = Overall(r.Fixtures)
	r.ParityRate = decimal.Zero
	if n := len(r.Fixtures); n > 0 {
		r.ParityRate = decimal.NewFromInt(int64(r.Counts[Pass])).
			Div(decimal.NewFromInt(int64(n))).
			Round(4)
	}
}

// Overall folds fixture verdicts: Pass when all passed, Fail when any failed,
// Partial otherwise.
func Overall(results []FixtureResult) Verdict {
	if len(results) == 0 {
		return Partial
	}
	all := true
	for _, f := range results {
		if f.Verdict == Fail {
			return Fail
		}
		if f.Verdict != Pass {
			all = false
		}
	}
	if all {
		return Pass
	}
	return Partial
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Summary renders a short human readable account of the sweep.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sweep %s", r.ID)
	if r.Label != "" {
		fmt.Fprintf(&b, " (%s)", r.Label)
	}
	fmt.Fprintf(&b, " against %s: %s\n", r.Oracle, strings.ToUpper(string(r.Verdict)))
	fmt.Fprintf(&b, "  fixtures: %d  pass: %d  fail: %d  inconclusive: %d  error: %d\n",
		len(r.Fixtures), r.Counts[Pass], r.Counts[Fail], r.Counts[Inconclusive], r.Counts[Error])
	fmt.Fprintf(&b, "  parity: %s%%  threshold: %s  duration: %s\n",
		r.ParityRate.Mul(decimal.NewFromInt(100)).StringFixed(2), r.Threshold, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  records:")
	for _, s := range diff.All() {
		fmt.Fprintf(&b, " %s=%d", s, r.Histogram[s])
	}
	b.WriteByte('\n')
	for _, f := range r.Fixtures {
		if f.Verdict == Pass {
			continue
		}
		fmt.Fprintf(&b, "  - %s [%s]", f.Fixture, f.Verdict)
		if f.Reason != "" {
			fmt.Fprintf(&b, ": %s", f.Reason)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
