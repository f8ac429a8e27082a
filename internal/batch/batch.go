// Package batch runs many seeded simulations in parallel and summarises
// them.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/monitoring"
	"github.com/banshee-data/shelfbot/internal/search"
	"github.com/banshee-data/shelfbot/internal/sim"
)

// Options configures a batch.
type Options struct {
	Runs int
	// Concurrency caps parallel runs; zero means GOMAXPROCS.
	Concurrency int
	// BaseSeed is the seed of run 0; run i uses BaseSeed+i.
	BaseSeed int64
	// RotateHomes starts run i from home i mod len(homes) instead of the
	// configured home.
	RotateHomes bool
	// Config is the template every run starts from. Nil means defaults.
	Config *config.SimConfig
}

// RunSummary is the outcome of one run in a batch.
type RunSummary struct {
	Index     int           `json:"index"`
	Seed      int64         `json:"seed"`
	Home      int           `json:"home"`
	RunID     string        `json:"run_id,omitempty"`
	Status    search.Status `json:"status"`
	Actions   int           `json:"actions"`
	Anomalies int           `json:"anomalies"`
	Err       string        `json:"error,omitempty"`
}

// Summary aggregates a batch.
type Summary struct {
	Runs          int          `json:"runs"`
	Retrieved     int          `json:"retrieved"`
	PickupMissed  int          `json:"pickup_missed"`
	NotFound      int          `json:"not_found"`
	Aborted       int          `json:"aborted"`
	FoundRatio    float64      `json:"found_ratio"`
	MeanActions   float64      `json:"mean_actions"`
	StdDevActions float64      `json:"stddev_actions"`
	MedianActions float64      `json:"median_actions"`
	MinActions    int          `json:"min_actions"`
	MaxActions    int          `json:"max_actions"`
	Anomalies     int          `json:"anomalies"`
	Results       []RunSummary `json:"results"`
}

// configFor derives the config of run i from the template.
func configFor(tmpl *config.SimConfig, opts Options, i int) *config.SimConfig {
	cfg := *tmpl
	seed := opts.BaseSeed + int64(i)
	cfg.Seed = &seed
	if opts.RotateHomes {
		home := i % len(tmpl.GetLayout().Homes)
		cfg.Home = &home
	}
	return &cfg
}

// Run executes opts.Runs simulations through r. Runs that end early on
// their action budget are reported as aborted; any other run error, or
// cancellation of ctx, stops the batch.
func Run(ctx context.Context, r *sim.Runner, opts Options) (*Summary, error) {
	if opts.Runs <= 0 {
		return nil, fmt.Errorf("runs must be positive, got %d", opts.Runs)
	}
	tmpl := opts.Config
	if tmpl == nil {
		tmpl = config.DefaultSimConfig()
	}
	if err := tmpl.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]RunSummary, opts.Runs)
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range opts.Runs {
		cfg := configFor(tmpl, opts, i)
		g.Go(func() error {
			out, err := r.Run(gctx, cfg)
			rs := RunSummary{Index: i, Seed: cfg.GetSeed(), Home: cfg.GetHome()}
			if out != nil {
				rs.RunID = out.RunID
				rs.Status = out.Result.Status
				rs.Actions = out.Result.Actions
				rs.Anomalies = out.Result.Anomalies
			}
			if err != nil {
				rs.Err = err.Error()
				if !errors.Is(err, search.ErrActionBudget) {
					return fmt.Errorf("run %d (seed %d): %w", i, rs.Seed, err)
				}
			}
			results[i] = rs

			mu.Lock()
			done++
			if done%100 == 0 {
				monitoring.Logf("batch: %d/%d runs finished", done, opts.Runs)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Summarise(results), nil
}

// Summarise computes the aggregate statistics of results.
func Summarise(results []RunSummary) *Summary {
	s := &Summary{Runs: len(results), Results: results}
	if len(results) == 0 {
		return s
	}
	actions := make([]float64, 0, len(results))
	for _, r := range results {
		switch r.Status {
		case search.StatusRetrieved:
			s.Retrieved++
		case search.StatusPickupMissed:
			s.PickupMissed++
		case search.StatusNotFound:
			s.NotFound++
		case search.StatusAborted:
			s.Aborted++
		}
		s.Anomalies += r.Anomalies
		actions = append(actions, float64(r.Actions))
	}
	s.FoundRatio = float64(s.Retrieved) / float64(s.Runs)

	slices.Sort(actions)
	s.MinActions = int(actions[0])
	s.MaxActions = int(actions[len(actions)-1])
	s.MedianActions = stat.Quantile(0.5, stat.Empirical, actions, nil)
	if len(actions) > 1 {
		s.MeanActions, s.StdDevActions = stat.MeanStdDev(actions, nil)
	} else {
		s.MeanActions = actions[0]
	}
	return s
}
