// Package sim wires one simulation end to end: placement from a SimConfig,
// the search engine, its observers and, optionally, persistence of the run.
package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/shelfbot/internal/board"
	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/db"
	"github.com/banshee-data/shelfbot/internal/layout"
	"github.com/banshee-data/shelfbot/internal/monitoring"
	"github.com/banshee-data/shelfbot/internal/search"
	"github.com/banshee-data/shelfbot/internal/timeutil"
)

// Runner runs simulations described by SimConfig values.
type Runner struct {
	// DB, when set, receives one sim_runs row per run and the full action
	// trail.
	DB *db.DB
	// Observers are attached to every run after the recorder.
	Observers []search.Observer
	// Clock paces runs whose config sets a pace. Defaults to the real clock.
	Clock timeutil.Clock
}

// Outcome is what one run produced.
type Outcome struct {
	RunID     string
	Result    search.Result
	Placement layout.Placement
}

// Prepare turns cfg into engine options with a generated placement.
func Prepare(cfg *config.SimConfig) (search.Options, layout.Placement, error) {
	if err := cfg.Validate(); err != nil {
		return search.Options{}, layout.Placement{}, fmt.Errorf("invalid configuration: %w", err)
	}
	l := cfg.GetLayout()
	target := cfg.GetTarget()
	placement := layout.Generate(l, layout.Options{
		Target:          target,
		Seed:            cfg.GetSeed(),
		Rocks:           cfg.GetRockCount(),
		GuaranteeTarget: cfg.GetGuaranteeTarget(),
	})
	return search.Options{
		Layout:     l,
		Target:     target,
		Home:       cfg.GetHome(),
		MaxActions: cfg.GetMaxActions(),
		Boxes:      placement.Boxes,
		Rocks:      placement.Rocks,
	}, placement, nil
}

// Run generates a placement for cfg and searches it. A run that hits its
// action budget still returns an Outcome alongside the error.
func (r *Runner) Run(ctx context.Context, cfg *config.SimConfig, extra ...search.Observer) (*Outcome, error) {
	opts, placement, err := Prepare(cfg)
	if err != nil {
		return nil, err
	}
	return r.RunOptions(ctx, opts, placement, cfg, extra...)
}

// RunOptions searches an already prepared placement.
func (r *Runner) RunOptions(ctx context.Context, opts search.Options, placement layout.Placement, cfg *config.SimConfig, extra ...search.Observer) (*Outcome, error) {
	out := &Outcome{Placement: placement}

	var rec *db.Recorder
	if r.DB != nil {
		run := &db.Run{Target: opts.Target.String(), Home: opts.Home, Seed: cfg.GetSeed()}
		if err := r.DB.CreateRun(run); err != nil {
			return nil, err
		}
		out.RunID = run.RunID
		rec = db.NewRecorder(r.DB, run.RunID, 0)
		opts.Observers = append(opts.Observers, rec)
	}
	opts.Observers = append(opts.Observers, r.Observers...)
	opts.Observers = append(opts.Observers, extra...)
	if pace := cfg.GetPace(); pace > 0 {
		clock := r.Clock
		if clock == nil {
			clock = timeutil.RealClock{}
		}
		opts.Observers = append(opts.Observers, search.Pacer(clock, pace))
	}

	e, err := search.New(opts)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("sim: run %s target %s home %d seed %d boxes %d rocks %d",
		out.RunID, opts.Target, opts.Home, cfg.GetSeed(), len(placement.Boxes), len(placement.Rocks))

	res, runErr := e.Run(ctx)
	out.Result = res

	if rec != nil {
		if err := rec.Flush(); err != nil {
			runErr = errors.Join(runErr, err)
		}
		if err := r.DB.FinishRun(out.RunID, res); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	monitoring.Logf("sim: run %s finished %s after %d actions", out.RunID, res.Status, res.Actions)
	return out, runErr
}

// WantedBoxes counts the boxes in p that carry the target.
func WantedBoxes(p layout.Placement) int {
	return board.NewRegistry(p.Boxes).Wanted()
}
