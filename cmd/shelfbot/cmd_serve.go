package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/monitor"
	"github.com/banshee-data/shelfbot/internal/search"
	"github.com/banshee-data/shelfbot/internal/sim"
)

type serveOptions struct {
	sim simFlags

	listen   string
	simulate int
}

func newServeCmd(g *globalOptions) *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recorded runs, live snapshots and metrics over HTTP",
		Long: `Starts the monitor server:

  /                 status page listing recent runs
  /api/runs         recorded runs as JSON (needs --db)
  /ws               live snapshots over WebSocket
  /metrics          Prometheus metrics
  /debug/           admin pages, SQL console and database backup

With --simulate N the server also runs N simulations with consecutive seeds
and streams them to /ws.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, o)
		},
	}
	addSimFlags(cmd, &o.sim)
	cmd.Flags().StringVarP(&o.listen, "listen", "l", ":8080", "HTTP listen address")
	cmd.Flags().IntVar(&o.simulate, "simulate", 0, "Run this many simulations while serving")
	return cmd
}

func runServe(cmd *cobra.Command, g *globalOptions, o *serveOptions) error {
	cfg, err := g.loadSimConfig(cmd, &o.sim)
	if err != nil {
		return err
	}
	store, err := g.openDB()
	if err != nil {
		return err
	}
	defer closeDB(store)

	ws, err := monitor.NewWebServer(monitor.WebServerConfig{
		Address: o.listen,
		DB:      store,
		Layout:  cfg.GetLayout(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return ws.Start(egCtx)
	})
	if o.simulate > 0 {
		eg.Go(func() error {
			return simulate(egCtx, g, ws, cfg, o.simulate)
		})
	}
	return eg.Wait()
}

// simulate runs n simulations through the server's hub and metrics. It
// returns nil when ctx is cancelled.
func simulate(ctx context.Context, g *globalOptions, ws *monitor.WebServer, cfg *config.SimConfig, n int) error {
	runner := &sim.Runner{
		DB:        ws.DB(),
		Observers: []search.Observer{ws.Hub(), ws.Metrics()},
	}
	for i := range n {
		c := *cfg
		seed := cfg.GetSeed() + int64(i)
		c.Seed = &seed

		out, err := runner.Run(ctx, &c)
		if out != nil {
			ws.Metrics().RecordResult(out.Result)
		}
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, search.ErrActionBudget):
			if g.logger != nil {
				g.logger.Warn("simulation aborted", zap.Int64("seed", seed), zap.Error(err))
			}
		case err != nil:
			return err
		}
	}
	if g.logger != nil {
		g.logger.Info("simulations finished", zap.Int("runs", n))
	}
	return nil
}
