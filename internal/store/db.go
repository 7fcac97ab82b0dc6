// Package store persists sweep reports in SQLite so that convergence can be
// tracked across kernel changes.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/diff"
)

// DB is the results store.
type DB interface {
	Close() error
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	SaveReport(ctx context.Context, r *converge.Report, engineVersion string) error
	GetSweep(ctx context.Context, id string) (*Sweep, error)
	GetReport(ctx context.Context, id string) (*converge.Report, error)
	ListSweeps(ctx context.Context, query SweepsQuery) (*SweepsList, error)
	GetFixtureResults(ctx context.Context, sweepID string) ([]FixtureRow, error)
	ListRecords(ctx context.Context, query RecordsQuery) (*RecordsPage, error)
	DeleteSweep(ctx context.Context, id string) error
}

// SweepsQuery filters and pages the sweep list.
type SweepsQuery struct {
	Label   string           `json:"label,omitempty"`
	Verdict converge.Verdict `json:"verdict,omitempty"`
	Page    int              `json:"page"`
	PerPage int              `json:"perPage"`
}

// SweepsList is one page of sweeps, newest first.
type SweepsList struct {
	Sweeps     []Sweep `json:"sweeps"`
	TotalCount int     `json:"totalCount"`
	Page       int     `json:"page"`
	PerPage    int     `json:"perPage"`
	TotalPages int     `json:"totalPages"`
}

// RecordsQuery pages the diff records of a sweep. MinSeverity drops records
// below it; Fixture narrows to one fixture.
type RecordsQuery struct {
	SweepID     string        `json:"sweepId"`
	Fixture     string        `json:"fixture,omitempty"`
	MinSeverity diff.Severity `json:"minSeverity"`
	Page        int           `json:"page"`
	PerPage     int           `json:"perPage"`
}

// RecordsPage is one page of records, worst first.
type RecordsPage struct {
	Records    []RecordRow `json:"records"`
	TotalCount int         `json:"totalCount"`
	Page       int         `json:"page"`
	PerPage    int         `json:"perPage"`
	TotalPages int         `json:"totalPages"`
}

// Sweep is the summary row of a stored report.
type Sweep struct {
	ID                string           `json:"id" db:"id"`
	Label             string           `json:"label" db:"label"`
	Oracle            string           `json:"oracle" db:"oracle"`
	Verdict           converge.Verdict `json:"verdict" db:"verdict"`
	Threshold         diff.Severity    `json:"threshold" db:"threshold"`
	ParityRate        decimal.Decimal  `json:"parity_rate" db:"parity_rate"`
	FixtureCount      int              `json:"fixture_count" db:"fixture_count"`
	PassCount         int              `json:"pass_count" db:"pass_count"`
	FailCount         int              `json:"fail_count" db:"fail_count"`
	InconclusiveCount int              `json:"inconclusive_count" db:"inconclusive_count"`
	ErrorCount        int              `json:"error_count" db:"error_count"`
	DivergentCount    int              `json:"divergent_count" db:"divergent_count"`
	MajorCount        int              `json:"major_count" db:"major_count"`
	MinorCount        int              `json:"minor_count" db:"minor_count"`
	CosmeticCount     int              `json:"cosmetic_count" db:"cosmetic_count"`
	TimedOut          bool             `json:"timed_out" db:"timed_out"`
	StartedAt         time.Time        `json:"started_at" db:"started_at"`
	Duration          time.Duration    `json:"duration_ns" db:"duration_ns"`
	EngineVersion     string           `json:"engine_version" db:"engine_version"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
}

// FixtureRow is the stored outcome of one fixture.
type FixtureRow struct {
	ID              string           `json:"id" db:"id"`
	SweepID         string           `json:"sweep_id" db:"sweep_id"`
	Fixture         string           `json:"fixture" db:"fixture"`
	Seed            uint64           `json:"seed" db:"seed"`
	Verdict         converge.Verdict `json:"verdict" db:"verdict"`
	Reason          string           `json:"reason,omitempty" db:"reason"`
	Commands        int              `json:"commands" db:"commands"`
	Turns           uint64           `json:"turns" db:"turns"`
	RecordCount     int              `json:"record_count" db:"record_count"`
	Diverged        bool             `json:"diverged" db:"diverged"`
	DivergenceTurn  *uint64          `json:"divergence_turn,omitempty" db:"divergence_turn"`
	SuppressedTurns int              `json:"suppressed_turns" db:"suppressed_turns"`
	FinalDigest     string           `json:"final_digest,omitempty" db:"final_digest"`
	Duration        time.Duration    `json:"duration_ns" db:"duration_ns"`
}

// RecordRow is a stored diff record.
type RecordRow struct {
	ID       int64  `json:"id" db:"id"`
	SweepID  string `json:"sweep_id" db:"sweep_id"`
	ResultID string `json:"result_id" db:"result_id"`
	Fixture  string `json:"fixture" db:"fixture"`
	diff.Record
}
