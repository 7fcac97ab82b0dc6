package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/fixture"
)

func newReplayCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "replay <fixture>",
		Short: "Replay a fixture on the kernel and print every step",
		Long: `Replay a fixture on the kernel alone. The argument is a fixture file or the
name of a fixture in the fixture directory. Each step's turn, draw count and
state digest is printed, followed by any stored checkpoint the kernel
disagrees with.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReplay(cmd.Context(), args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the transcript as JSON")
	return cmd
}

func (a *app) runReplay(ctx context.Context, ref string, asJSON bool) error {
	f, err := a.resolveFixture(ref)
	if err != nil {
		return err
	}
	t, err := converge.Replay(ctx, f)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(t); err != nil {
			return err
		}
	} else {
		printTranscript(a, t)
	}

	if bad := t.Mismatches(); len(bad) > 0 {
		return fmt.Errorf("%w: %s: %d checkpoint(s) differ, first at turn %d",
			errParityFailed, f.Name, len(bad), bad[0].Turn)
	}
	return nil
}

func printTranscript(a *app, t *converge.Transcript) {
	fmt.Fprintf(a.stdout, "%s (seed %d)\n", t.Fixture, t.Seed)
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCOMMAND\tTURN\tDRAWS\tDIGEST\tNOTE")
	for _, s := range t.Steps {
		note := strings.Join(s.Messages, " ")
		if s.Illegal {
			note = "illegal: " + s.Reason
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\n", s.Index, s.Command, s.Turn, s.Draws, shortDigest(s.Digest), note)
	}
	tw.Flush()

	for _, c := range t.Checkpoints {
		status := "ok"
		if !c.Match {
			status = fmt.Sprintf("MISMATCH expected %s got %s", shortDigest(c.Expected), shortDigest(c.Actual))
		}
		fmt.Fprintf(a.stdout, "checkpoint turn %d: %s\n", c.Turn, status)
	}
	fmt.Fprintf(a.stdout, "final digest %s\n", t.FinalDigest)
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// resolveFixture loads ref as a file when it exists, otherwise looks it up
// by name in the fixture directory.
func (a *app) resolveFixture(ref string) (*fixture.Fixture, error) {
	if _, err := os.Stat(ref); err == nil {
		return fixture.Load(ref)
	}
	all, err := fixture.LoadDir(a.cfg.FixtureDir)
	if err != nil {
		return nil, err
	}
	for _, f := range all {
		if f.Name == ref {
			return f, nil
		}
	}
	return nil, fmt.Errorf("fixture %q: not a file and not in %s", ref, a.cfg.FixtureDir)
}
