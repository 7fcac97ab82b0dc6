package main

import (
	"github.com/spf13/cobra"

	"github.com/MJE43/nh-parity-go/internal/api"
	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/metrics"
	"github.com/MJE43/nh-parity-go/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored reports, on-demand sweeps and the live sweep stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr = addr
			}
			ctx := cmd.Context()

			db, err := store.NewSQLiteDB(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				return err
			}

			table, err := a.table()
			if err != nil {
				return err
			}
			var gate *converge.Gate
			if a.cfg.GateEnabled() {
				g := a.cfg.Gate()
				gate = &g
			}

			srv := api.NewServer(api.Config{
				DB:             db,
				Oracle:         a.oracle(),
				Table:          table,
				Threshold:      a.cfg.Threshold,
				Gate:           gate,
				Workers:        a.cfg.Workers,
				FixtureTimeout: a.cfg.FixtureTimeout,
				Metrics:        metrics.New(a.cfg.RuntimeMetrics),
				Logger:         a.logger,
			})
			return srv.ListenAndServe(ctx, a.cfg.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (env NHP_ADDR)")
	return cmd
}
