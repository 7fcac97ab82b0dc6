package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/fixture"
)

func newRecordCmd(a *app) *cobra.Command {
	var (
		every uint64
		out   string
	)
	cmd := &cobra.Command{
		Use:   "record <fixture>",
		Short: "Capture checkpoints from the oracle into a fixture",
		Long: `Play a fixture on the oracle and store its state as checkpoints at turn 0,
every --every turns and at the end. Existing checkpoints are replaced. The
fixture is rewritten in place unless --out is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.resolveFixture(args[0])
			if err != nil {
				return err
			}
			dest := out
			if dest == "" {
				dest = f.Path
			}
			return a.record(cmd.Context(), f, every, dest)
		},
	}
	cmd.Flags().Uint64Var(&every, "every", 0, "checkpoint interval in turns; 0 records only the start and end")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the recorded fixture here instead of in place")
	return cmd
}

func (a *app) record(ctx context.Context, f *fixture.Fixture, every uint64, dest string) error {
	if dest == "" {
		return fmt.Errorf("record %s: no destination; pass --out", f.Name)
	}
	o := a.oracle()
	recorded, err := converge.Record(ctx, o, f, every)
	if err != nil {
		return err
	}
	if err := fixture.Save(recorded, dest); err != nil {
		return err
	}
	a.logger.Info("fixture recorded",
		"fixture", f.Name,
		"oracle", o.Name(),
		"checkpoints", len(recorded.Checkpoints),
		"path", dest)
	return nil
}
