package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/render"
	"github.com/banshee-data/shelfbot/internal/search"
	"github.com/banshee-data/shelfbot/internal/sim"
)

type runOptions struct {
	sim simFlags

	watch   bool
	every   int
	plain   bool
	pngPath string
	html    string
	json    bool
}

func newRunCmd(g *globalOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation",
		Long: `Generates a placement from the configuration and runs the search until the
wanted box is home, every quadrant was swept or the action budget runs out.

Example:
  shelfbot run --target 1222 --seed 7 --watch --pace 20ms
  shelfbot run --db runs.db --png trail.png --html trail.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim(cmd, g, o)
		},
	}
	addSimFlags(cmd, &o.sim)
	cmd.Flags().BoolVarP(&o.watch, "watch", "w", false, "Draw the floor in the terminal while running")
	cmd.Flags().IntVar(&o.every, "every", 1, "With --watch, draw one action in every N")
	cmd.Flags().BoolVar(&o.plain, "plain", false, "With --watch, draw without colours or screen clears")
	cmd.Flags().StringVar(&o.pngPath, "png", "", "Write the robot trail as a PNG plot")
	cmd.Flags().StringVar(&o.html, "html", "", "Write the robot trail as an interactive HTML chart")
	cmd.Flags().BoolVar(&o.json, "json", false, "Print the result as JSON")
	return cmd
}

func runSim(cmd *cobra.Command, g *globalOptions, o *runOptions) error {
	cfg, err := g.loadSimConfig(cmd, &o.sim)
	if err != nil {
		return err
	}
	store, err := g.openDB()
	if err != nil {
		return err
	}
	defer closeDB(store)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	var extra []search.Observer
	if o.watch {
		frame := render.NewFrame(cfg.GetLayout())
		frame.Plain = o.plain
		term := render.NewTerminal(out, frame)
		term.Every = o.every
		term.Clear = !o.plain
		extra = append(extra, term)
	}
	var trail *render.Trail
	if o.pngPath != "" || o.html != "" {
		trail = render.NewTrail(fmt.Sprintf("target %s seed %d", cfg.GetTarget(), cfg.GetSeed()))
		extra = append(extra, trail)
	}

	runner := &sim.Runner{DB: store}
	outcome, runErr := runner.Run(ctx, cfg, extra...)
	if outcome == nil {
		return runErr
	}
	if g.logger != nil {
		g.logger.Info("run finished",
			zap.String("run_id", outcome.RunID),
			zap.String("status", string(outcome.Result.Status)),
			zap.Int("actions", outcome.Result.Actions))
	}

	if trail != nil {
		if err := writeTrail(trail, cfg.GetLayout(), o); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if o.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome.Result); err != nil {
			return errors.Join(runErr, err)
		}
	} else {
		printOutcome(out, outcome)
	}
	return runErr
}

func writeTrail(trail *render.Trail, l *config.Layout, o *runOptions) error {
	if o.pngPath != "" {
		if err := trail.SavePNG(l, o.pngPath); err != nil {
			return fmt.Errorf("write trail plot: %w", err)
		}
	}
	if o.html != "" {
		f, err := os.Create(o.html)
		if err != nil {
			return fmt.Errorf("create trail chart: %w", err)
		}
		defer f.Close()
		if err := trail.RenderHTML(l, trail.Title, f); err != nil {
			return fmt.Errorf("write trail chart: %w", err)
		}
	}
	return nil
}

func printOutcome(w io.Writer, o *sim.Outcome) {
	res := o.Result
	if o.RunID != "" {
		fmt.Fprintf(w, "run:       %s\n", o.RunID)
	}
	fmt.Fprintf(w, "target:    %s (%d matching boxes placed)\n", res.Target, sim.WantedBoxes(o.Placement))
	fmt.Fprintf(w, "status:    %s\n", res.Status)
	fmt.Fprintf(w, "actions:   %d\n", res.Actions)
	fmt.Fprintf(w, "quadrants: %d finished\n", res.QuadrantsFinished)
	if res.Picked != nil {
		fmt.Fprintf(w, "picked:    %s at %s\n", res.Picked.Barcode, res.Picked.BottomLeft)
	}
	fmt.Fprintf(w, "scans:     %d (%d anomalies)\n", len(res.Scans), res.Anomalies)
	fmt.Fprintf(w, "final:     %s\n", res.Final)
}
