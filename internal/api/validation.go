package api

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/diff"
)

const (
	maxSweepFixtures = 500
	maxPerPage       = 1000
)

// fieldError names the request field a validation failure is about.
type fieldError struct {
	field   string
	message string
}

func (e *fieldError) Error() string { return e.field + ": " + e.message }

func invalidField(field, format string, args ...any) error {
	return &fieldError{field: field, message: fmt.Sprintf(format, args...)}
}

// ValidateSweepRequest checks a sweep request before any fixture runs.
func ValidateSweepRequest(req *SweepRequest) error {
	if len(req.Fixtures) == 0 {
		return invalidField("fixtures", "at least one fixture is required")
	}
	if len(req.Fixtures) > maxSweepFixtures {
		return invalidField("fixtures", "too many fixtures (max %d)", maxSweepFixtures)
	}
	if len(req.Label) > 200 {
		return invalidField("label", "label too long (max 200 characters)")
	}

	seen := make(map[string]int, len(req.Fixtures))
	for i, f := range req.Fixtures {
		if f == nil {
			return invalidField(fmt.Sprintf("fixtures[%d]", i), "fixture is null")
		}
		if prev, dup := seen[f.Name]; dup {
			return invalidField(fmt.Sprintf("fixtures[%d]", i), "name %q already used by fixtures[%d]", f.Name, prev)
		}
		seen[f.Name] = i
		if err := f.Validate(); err != nil {
			return fmt.Errorf("fixtures[%d]: %w", i, err)
		}
	}
	return nil
}

// parsePage reads page and per_page. Zero means the store default.
func parsePage(q url.Values) (page, perPage int, err error) {
	if page, err = intParam(q, "page"); err != nil {
		return 0, 0, err
	}
	if perPage, err = intParam(q, "per_page"); err != nil {
		return 0, 0, err
	}
	if perPage > maxPerPage {
		return 0, 0, invalidField("per_page", "must be <= %d", maxPerPage)
	}
	return page, perPage, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalidField(name, "must be a non-negative integer")
	}
	return n, nil
}

func parseVerdict(raw string) (converge.Verdict, error) {
	v := converge.Verdict(strings.ToLower(strings.TrimSpace(raw)))
	switch v {
	case "", converge.Pass, converge.Fail, converge.Partial, converge.Inconclusive, converge.Error:
		return v, nil
	}
	return "", invalidField("verdict", "unknown verdict %q", raw)
}

func parseMinSeverity(raw string) (diff.Severity, error) {
	if strings.TrimSpace(raw) == "" {
		return diff.Cosmetic, nil
	}
	s, err := diff.ParseSeverity(raw)
	if err != nil {
		return 0, invalidField("min_severity", "unknown severity %q", raw)
	}
	return s, nil
}

// fixtureFormat picks the decoder for a replay body from its content type.
func fixtureFormat(contentType string) string {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "yaml") {
		return "yaml"
	}
	return "json"
}

func asFieldError(err error) (*fieldError, bool) {
	var fe *fieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
