package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MJE43/nh-parity-go/internal/config"
	"github.com/MJE43/nh-parity-go/internal/diff"
	"github.com/MJE43/nh-parity-go/internal/oracle"
	"github.com/MJE43/nh-parity-go/internal/platform/logging"
)

// errParityFailed marks outcomes that should exit 1 rather than 2: a failed
// sweep, a tripped gate or a replay that disagrees with its checkpoints.
var errParityFailed = errors.New("parity check failed")

// app carries what every subcommand needs once the root has been set up.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

// flag values that override the environment when set.
type rootFlags struct {
	logLevel       string
	logFormat      string
	dbPath         string
	fixtureDir     string
	severityTable  string
	threshold      string
	oraclePath     string
	workers        int
	fixtureTimeout time.Duration
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	var flags rootFlags

	root := &cobra.Command{
		Use:   "nhparity",
		Short: "Measure how closely the Go kernel tracks a reference NetHack",
		Long: `nhparity replays scripted fixtures through the Go kernel and a reference
oracle side by side, grades every disagreement by severity and stores the
reports so convergence can be tracked over time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, &cfg); err != nil {
				return err
			}
			logger, err := logging.New(a.stderr, cfg.LogLevel, cfg.LogFormat, "nhparity")
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			a.cfg, a.logger = cfg, logger
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (env NHP_LOG_LEVEL)")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: text or json (env NHP_LOG_FORMAT)")
	pf.StringVar(&flags.dbPath, "db", "", "results database path (env NHP_DB_PATH)")
	pf.StringVar(&flags.fixtureDir, "fixtures", "", "fixture directory (env NHP_FIXTURES)")
	pf.StringVar(&flags.severityTable, "severity-table", "", "severity table YAML file (env NHP_SEVERITY_TABLE)")
	pf.StringVar(&flags.threshold, "threshold", "", "lowest severity that fails a fixture (env NHP_THRESHOLD)")
	pf.StringVar(&flags.oraclePath, "oracle", "", "oracle worker executable; empty uses the in-process kernel (env NHP_ORACLE)")
	pf.IntVar(&flags.workers, "workers", 0, "concurrent fixtures, 0 for GOMAXPROCS (env NHP_WORKERS)")
	pf.DurationVar(&flags.fixtureTimeout, "fixture-timeout", 0, "per-fixture timeout (env NHP_FIXTURE_TIMEOUT)")

	root.AddCommand(
		newSweepCmd(a),
		newReplayCmd(a),
		newRecordCmd(a),
		newGenCmd(a),
		newServeCmd(a),
		newTableCmd(a),
	)
	return root
}

// apply copies explicitly set flags over the loaded config.
func (f *rootFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if changed("db") {
		cfg.DBPath = f.dbPath
	}
	if changed("fixtures") {
		cfg.FixtureDir = f.fixtureDir
	}
	if changed("severity-table") {
		cfg.SeverityTable = f.severityTable
	}
	if changed("threshold") {
		s, err := diff.ParseSeverity(f.threshold)
		if err != nil {
			return fmt.Errorf("--threshold: %w", err)
		}
		cfg.Threshold = s
	}
	if changed("oracle") {
		cfg.OraclePath = f.oraclePath
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("fixture-timeout") {
		cfg.FixtureTimeout = f.fixtureTimeout
	}
	return cfg.Validate()
}

func (a *app) oracle() oracle.Oracle {
	if a.cfg.OraclePath == "" {
		return oracle.Kernel{}
	}
	return &oracle.Process{
		Path:         a.cfg.OraclePath,
		Args:         a.cfg.OracleArgs,
		StartTimeout: a.cfg.OracleStartTimeout,
		Retries:      a.cfg.OracleRetries,
		Logger:       a.logger.With("component", "oracle"),
	}
}

func (a *app) table() (*diff.Table, error) {
	if a.cfg.SeverityTable == "" {
		return diff.DefaultTable(), nil
	}
	return diff.LoadTable(a.cfg.SeverityTable)
}
