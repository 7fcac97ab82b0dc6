package converge

import (
	"fmt"
	"strings"

	"github.com/MJE43/nh-parity-go/internal/diff"
)

// Gate is a CI threshold on a report. A negative limit disables that check.
type Gate struct {
	MaxDivergent int `json:"max_divergent" yaml:"max_divergent"`
	MaxMajor     int `json:"max_major" yaml:"max_major"`
}

// Check returns an error wrapping ErrGateFailed when the report exceeds a
// limit. Fixtures that did not pass or fail count as violations too.
func (g Gate) Check(r *Report) error {
	var problems []string
	if g.MaxDivergent >= 0 && r.Histogram[diff.Divergent] > g.MaxDivergent {
		problems = append(problems, fmt.Sprintf("%d divergent records (max %d)", r.Histogram[diff.Divergent], g.MaxDivergent))
	}
	if g.MaxMajor >= 0 && r.Histogram[diff.Major] > g.MaxMajor {
		problems = append(problems, fmt.Sprintf("%d major records (max %d)", r.Histogram[diff.Major], g.MaxMajor))
	}
	for _, f := range r.Fixtures {
		if f.Verdict == Error || f.Verdict == Inconclusive {
			problems = append(problems, fmt.Sprintf("%s: %s", f.Fixture, f.Verdict))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrGateFailed, strings.Join(problems, "; "))
}
