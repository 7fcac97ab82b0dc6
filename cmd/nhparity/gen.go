package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MJE43/nh-parity-go/internal/fixture"
)

type genOptions struct {
	name        string
	seed        uint64
	out         string
	every       uint64
	record      bool
	timeout     time.Duration
	maxCommands int
}

func newGenCmd(a *app) *cobra.Command {
	var opts genOptions
	cmd := &cobra.Command{
		Use:   "gen <script.js>",
		Short: "Generate a fixture from a command script",
		Long: `Run a JavaScript command generator and write the fixture it produces. The
script sees the fixture seed and a seeded rn2, and emits commands with
emit("move e"). With --record the oracle's checkpoints are captured too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("gen: %w", err)
			}
			name := opts.name
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			out := opts.out
			if out == "" {
				out = filepath.Join(a.cfg.FixtureDir, fmt.Sprintf("%s_%d.yaml", name, opts.seed))
			}

			script := fixture.Script{Source: string(src), Timeout: opts.timeout, MaxCommands: opts.maxCommands}
			res, err := script.Generate(name, opts.seed)
			if err != nil {
				return err
			}
			for _, line := range res.Logs {
				a.logger.Info("script", "fixture", name, "log", line)
			}

			if opts.record {
				return a.record(cmd.Context(), res.Fixture, opts.every, out)
			}
			if err := fixture.Save(res.Fixture, out); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s (%d commands)\n", out, len(res.Fixture.Commands))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "fixture name (default: script file name)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "game seed passed to the script and stored in the fixture")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output path (default: <fixtures>/<name>_<seed>.yaml)")
	cmd.Flags().BoolVar(&opts.record, "record", false, "record oracle checkpoints into the generated fixture")
	cmd.Flags().Uint64Var(&opts.every, "every", 0, "checkpoint interval when recording")
	cmd.Flags().DurationVar(&opts.timeout, "script-timeout", 0, "script run time limit (default 2s)")
	cmd.Flags().IntVar(&opts.maxCommands, "max-commands", 0, "most commands a script may emit (default 10000)")
	return cmd
}
