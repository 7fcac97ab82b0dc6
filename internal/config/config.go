// Package config loads process configuration from NHP_* environment
// variables. Command-line flags override the loaded values.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/diff"
)

// Config is shared by the CLI commands and the report server.
type Config struct {
	DBPath        string        `env:"NHP_DB_PATH"        envDefault:"nhparity.db"`
	Addr          string        `env:"NHP_ADDR"           envDefault:":8080"`
	FixtureDir    string        `env:"NHP_FIXTURES"       envDefault:"fixtures"`
	SeverityTable string        `env:"NHP_SEVERITY_TABLE"`
	Threshold     diff.Severity `env:"NHP_THRESHOLD"      envDefault:"major"`

	Workers        int           `env:"NHP_WORKERS"         envDefault:"0"`
	FixtureTimeout time.Duration `env:"NHP_FIXTURE_TIMEOUT" envDefault:"30s"`
	SweepTimeout   time.Duration `env:"NHP_SWEEP_TIMEOUT"   envDefault:"0s"`

	// OraclePath is the worker executable. Empty runs the in-process kernel.
	OraclePath         string        `env:"NHP_ORACLE"`
	OracleArgs         []string      `env:"NHP_ORACLE_ARGS"          envSeparator:" "`
	OracleStartTimeout time.Duration `env:"NHP_ORACLE_START_TIMEOUT" envDefault:"10s"`
	OracleRetries      uint64        `env:"NHP_ORACLE_RETRIES"       envDefault:"2"`

	// Negative limits disable the gate.
	GateMaxDivergent int `env:"NHP_GATE_MAX_DIVERGENT" envDefault:"-1"`
	GateMaxMajor     int `env:"NHP_GATE_MAX_MAJOR"     envDefault:"-1"`

	LogLevel  string `env:"NHP_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"NHP_LOG_FORMAT" envDefault:"text"`

	// RuntimeMetrics adds Go runtime collectors to /metrics.
	RuntimeMetrics bool `env:"NHP_RUNTIME_METRICS" envDefault:"true"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env parsing cannot.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("config: workers must not be negative, got %d", c.Workers))
	}
	if c.FixtureTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config: fixture timeout must be positive, got %s", c.FixtureTimeout))
	}
	if c.SweepTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: sweep timeout must not be negative, got %s", c.SweepTimeout))
	}
	if c.OracleStartTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config: oracle start timeout must be positive, got %s", c.OracleStartTimeout))
	}
	return errors.Join(errs...)
}

// Gate returns the configured CI gate.
func (c Config) Gate() converge.Gate {
	return converge.Gate{MaxDivergent: c.GateMaxDivergent, MaxMajor: c.GateMaxMajor}
}

// GateEnabled reports whether either gate limit is active.
func (c Config) GateEnabled() bool { return c.GateMaxDivergent >= 0 || c.GateMaxMajor >= 0 }
