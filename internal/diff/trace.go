package diff

import (
	"fmt"
	"strings"

	"github.com/MJE43/nh-parity-go/internal/rng"
)

// ContextWindow is how many entries CompareTraces keeps on each side of a
// divergence.
const ContextWindow = 5

// DiffTraces returns the index of the first draw whose consumed value or
// checksum differs. Checksums are compared only when both entries carry one.
// When one trace is a prefix of the other the index is the shorter length.
func DiffTraces(a, b []rng.TraceEntry) (int, bool) {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if !sameDraw(a[i], b[i]) {
			return i, true
		}
	}
	if len(a) != len(b) {
		return n, true
	}
	return -1, false
}

func sameDraw(a, b rng.TraceEntry) bool {
	if a.Raw != b.Raw {
		return false
	}
	if a.Checksum != 0 && b.Checksum != 0 && a.Checksum != b.Checksum {
		return false
	}
	return true
}

// TraceDivergence describes where two traces part ways.
type TraceDivergence struct {
	Index int `json:"index"`
	// Expected and Actual are nil when that trace ended before Index.
	Expected *rng.TraceEntry `json:"expected,omitempty"`
	Actual   *rng.TraceEntry `json:"actual,omitempty"`
	// ContextStart is the trace index of the first context entry.
	ContextStart    int              `json:"context_start"`
	ExpectedContext []rng.TraceEntry `json:"expected_context"`
	ActualContext   []rng.TraceEntry `json:"actual_context"`
	Description     string           `json:"description"`
}

// CompareTraces is DiffTraces with up to ContextWindow entries of context on
// either side of the first mismatch.
func CompareTraces(expected, actual []rng.TraceEntry) (*TraceDivergence, bool) {
	i, ok := DiffTraces(expected, actual)
	if !ok {
		return nil, false
	}
	start := max(0, i-ContextWindow)
	d := &TraceDivergence{
		Index:           i,
		ContextStart:    start,
		ExpectedContext: window(expected, start, i+ContextWindow+1),
		ActualContext:   window(actual, start, i+ContextWindow+1),
	}
	if i < len(expected) {
		e := expected[i]
		d.Expected = &e
	}
	if i < len(actual) {
		a := actual[i]
		d.Actual = &a
	}
	d.Description = describe(d)
	return d, true
}

func window(t []rng.TraceEntry, from, to int) []rng.TraceEntry {
	from = min(from, len(t))
	to = min(to, len(t))
	return append([]rng.TraceEntry(nil), t[from:to]...)
}

func describe(d *TraceDivergence) string {
	switch {
	case d.Expected == nil:
		return fmt.Sprintf("expected trace ends after %d draws; actual continues with %s", d.Index, call(*d.Actual))
	case d.Actual == nil:
		return fmt.Sprintf("actual trace ends after %d draws; expected continues with %s", d.Index, call(*d.Expected))
	}
	e, a := *d.Expected, *d.Actual
	var parts []string
	if e.Func != a.Func {
		parts = append(parts, fmt.Sprintf("function %s vs %s", e.Func, a.Func))
	}
	if e.Arg != a.Arg {
		parts = append(parts, fmt.Sprintf("argument %d vs %d", e.Arg, a.Arg))
	}
	if e.Result != a.Result {
		parts = append(parts, fmt.Sprintf("result %d vs %d", e.Result, a.Result))
	}
	if e.Site != a.Site && e.Site != "" && a.Site != "" {
		parts = append(parts, fmt.Sprintf("site %s vs %s", e.Site, a.Site))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("raw %016x vs %016x", e.Raw, a.Raw))
	}
	return fmt.Sprintf("draw %d: %s", d.Index, strings.Join(parts, ", "))
}

func call(e rng.TraceEntry) string {
	s := fmt.Sprintf("%s(%d)=%d", e.Func, e.Arg, e.Result)
	if e.Site != "" {
		s += " at " + e.Site
	}
	return s
}
