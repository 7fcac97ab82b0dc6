package api

import (
	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/diff"
	"github.com/MJE43/nh-parity-go/internal/fixture"
	"github.com/MJE43/nh-parity-go/internal/store"
)

// EngineError is the body of every error response.
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types
const (
	// Input validation errors
	ErrTypeInvalidParams  = "invalid_params"
	ErrTypeValidation     = "validation_error"
	ErrTypeInvalidFixture = "invalid_fixture"

	// Lookup errors
	ErrTypeNotFound = "not_found"

	// Sweep errors
	ErrTypeOracleUnavailable = "oracle_unavailable"
	ErrTypeSweep             = "sweep_error"

	// System errors
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory groups error types for monitoring.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryLookup     ErrorCategory = "lookup"
	CategorySweep      ErrorCategory = "sweep"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeInvalidParams, ErrTypeValidation, ErrTypeInvalidFixture:
		return CategoryValidation
	case ErrTypeNotFound:
		return CategoryLookup
	case ErrTypeOracleUnavailable, ErrTypeSweep:
		return CategorySweep
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// SweepRequest starts a sweep over the posted fixtures.
type SweepRequest struct {
	Label     string             `json:"label,omitempty"`
	Threshold *diff.Severity     `json:"threshold,omitempty"`
	Fixtures  []*fixture.Fixture `json:"fixtures"`
}

// SweepResponse carries a finished sweep.
type SweepResponse struct {
	Report        *converge.Report `json:"report"`
	Gate          string           `json:"gate,omitempty"`
	EngineVersion string           `json:"engine_version"`
}

// SweepDetail is a stored sweep with its fixture rows.
type SweepDetail struct {
	Sweep    *store.Sweep       `json:"sweep"`
	Fixtures []store.FixtureRow `json:"fixtures"`
}

// ReplayResponse carries a kernel-only replay.
type ReplayResponse struct {
	Transcript    *converge.Transcript `json:"transcript"`
	EngineVersion string               `json:"engine_version"`
}

// SeverityTableResponse lists the effective severity table.
type SeverityTableResponse struct {
	Default diff.Severity `json:"default"`
	Rules   []diff.Rule   `json:"rules"`
}
