package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/shelfbot/internal/batch"
	"github.com/banshee-data/shelfbot/internal/sim"
)

type batchOptions struct {
	sim simFlags

	runs        int
	concurrency int
	rotateHomes bool
	details     bool
	json        bool
}

func newBatchCmd(g *globalOptions) *cobra.Command {
	o := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run many seeded simulations in parallel",
		Long: `Runs --runs simulations with consecutive seeds starting at --seed and prints
how often the wanted box was retrieved and how many actions runs took.

Example:
  shelfbot batch --runs 500 --rotate-homes --rocks 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, g, o)
		},
	}
	addSimFlags(cmd, &o.sim)
	cmd.Flags().IntVarP(&o.runs, "runs", "n", 100, "Number of simulations")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 0, "Parallel runs (default GOMAXPROCS)")
	cmd.Flags().BoolVar(&o.rotateHomes, "rotate-homes", false, "Cycle the start home across runs")
	cmd.Flags().BoolVar(&o.details, "details", false, "List every run")
	cmd.Flags().BoolVar(&o.json, "json", false, "Print the summary as JSON")
	return cmd
}

func runBatch(cmd *cobra.Command, g *globalOptions, o *batchOptions) error {
	cfg, err := g.loadSimConfig(cmd, &o.sim)
	if err != nil {
		return err
	}
	// Pacing a batch only slows it down.
	cfg.Pace = nil

	store, err := g.openDB()
	if err != nil {
		return err
	}
	defer closeDB(store)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	summary, err := batch.Run(ctx, &sim.Runner{DB: store}, batch.Options{
		Runs:        o.runs,
		Concurrency: o.concurrency,
		BaseSeed:    cfg.GetSeed(),
		RotateHomes: o.rotateHomes,
		Config:      cfg,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.json {
		if !o.details {
			summary.Results = nil
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printSummary(out, summary, o.details)
	return nil
}

func printSummary(w io.Writer, s *batch.Summary, details bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "runs\t%d\n", s.Runs)
	fmt.Fprintf(tw, "retrieved\t%d (%.1f%%)\n", s.Retrieved, 100*s.FoundRatio)
	fmt.Fprintf(tw, "missed\t%d\n", s.PickupMissed)
	fmt.Fprintf(tw, "not found\t%d\n", s.NotFound)
	fmt.Fprintf(tw, "aborted\t%d\n", s.Aborted)
	fmt.Fprintf(tw, "actions\tmean %.1f sd %.1f median %.0f min %d max %d\n",
		s.MeanActions, s.StdDevActions, s.MedianActions, s.MinActions, s.MaxActions)
	fmt.Fprintf(tw, "anomalies\t%d\n", s.Anomalies)
	tw.Flush()

	if !details {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSEED\tHOME\tSTATUS\tACTIONS\tRUN")
	for _, r := range s.Results {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%d\t%s\n", r.Index, r.Seed, r.Home, r.Status, r.Actions, r.RunID)
	}
	tw.Flush()
}
