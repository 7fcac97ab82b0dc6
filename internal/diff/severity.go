// Package diff compares snapshots and generator traces from two engines and
// grades every mismatch.
package diff

import (
	"fmt"
	"strings"
)

// Severity grades a mismatch. The order is significant: a threshold admits
// every severity at or above it.
type Severity uint8

const (
	Cosmetic Severity = iota
	Minor
	Major
	Divergent
)

var severityNames = [...]string{"cosmetic", "minor", "major", "divergent"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", s)
}

// ParseSeverity accepts the lower-case names, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	for i, n := range severityNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("diff: unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	if int(s) >= len(severityNames) {
		return nil, fmt.Errorf("diff: invalid severity %d", s)
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// AtLeast reports whether s meets threshold t.
func (s Severity) AtLeast(t Severity) bool { return s >= t }

// All lists severities from lowest to highest.
func All() []Severity { return []Severity{Cosmetic, Minor, Major, Divergent} }
