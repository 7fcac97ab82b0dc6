package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MJE43/nh-parity-go/internal/api"
	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/fixture"
	"github.com/MJE43/nh-parity-go/internal/store"
)

type sweepOptions struct {
	label   string
	asJSON  bool
	out     string
	noStore bool
	timeout time.Duration
}

func newSweepCmd(a *app) *cobra.Command {
	var opts sweepOptions
	cmd := &cobra.Command{
		Use:   "sweep [pattern...]",
		Short: "Run fixtures against the oracle and grade the differences",
		Long: `Run every fixture in the fixture directory, or those whose names match the
given glob patterns, through the kernel and the oracle. The report is printed,
stored in the results database and checked against the gate. The command exits
1 when the sweep fails or the gate trips.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSweep(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.label, "label", "", "label stored with the sweep, e.g. a branch or commit")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full report as JSON instead of a summary")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "also write the JSON report to this file")
	cmd.Flags().BoolVar(&opts.noStore, "no-store", false, "do not save the report in the results database")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "overall sweep timeout (env NHP_SWEEP_TIMEOUT)")
	return cmd
}

func (a *app) runSweep(ctx context.Context, patterns []string, opts sweepOptions) error {
	all, err := fixture.LoadDir(a.cfg.FixtureDir)
	if err != nil {
		return err
	}
	fixtures, err := fixture.Select(all, patterns...)
	if err != nil {
		return err
	}
	table, err := a.table()
	if err != nil {
		return err
	}

	timeout := a.cfg.SweepTimeout
	if opts.timeout > 0 {
		timeout = opts.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runner := converge.Runner{
		Oracle:         a.oracle(),
		Table:          table,
		Threshold:      a.cfg.Threshold,
		Workers:        a.cfg.Workers,
		FixtureTimeout: a.cfg.FixtureTimeout,
		Label:          opts.label,
		Logger:         a.logger,
	}
	rep, err := runner.Run(ctx, fixtures)
	if err != nil {
		return err
	}

	if opts.asJSON {
		if err := rep.WriteJSON(a.stdout); err != nil {
			return err
		}
	} else {
		fmt.Fprint(a.stdout, rep.Summary())
	}
	if opts.out != "" {
		if err := writeReport(rep, opts.out); err != nil {
			return err
		}
	}

	if !opts.noStore {
		if err := a.store(context.WithoutCancel(ctx), rep); err != nil {
			return err
		}
	}

	if a.cfg.GateEnabled() {
		if err := a.cfg.Gate().Check(rep); err != nil {
			return fmt.Errorf("%w: %w", errParityFailed, err)
		}
	}
	if rep.Verdict == converge.Fail {
		return fmt.Errorf("%w: sweep %s failed", errParityFailed, rep.ID)
	}
	return nil
}

func (a *app) store(ctx context.Context, rep *converge.Report) error {
	db, err := store.NewSQLiteDB(a.cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	if err := db.SaveReport(ctx, rep, api.EngineVersion); err != nil {
		return err
	}
	a.logger.Info("sweep stored", "sweep_id", rep.ID, "db", a.cfg.DBPath)
	return nil
}

func writeReport(rep *converge.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := rep.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
