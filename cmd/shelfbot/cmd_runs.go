package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/shelfbot/internal/db"
	"github.com/banshee-data/shelfbot/internal/render"
)

func newRunsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs recorded with --db",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(g, func(store *db.DB) error {
				runs, err := store.ListRuns(limit)
				if err != nil {
					return err
				}
				printRuns(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "Maximum number of runs")

	var trail bool
	show := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show one run with its barcode scans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(g, func(store *db.DB) error {
				return showRun(cmd.OutOrStdout(), store, args[0], trail)
			})
		},
	}
	show.Flags().BoolVar(&trail, "trail", false, "Also list every recorded action")

	var pngPath, htmlPath string
	plot := &cobra.Command{
		Use:   "plot [run-id]",
		Short: "Plot the recorded trail of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pngPath == "" && htmlPath == "" {
				return errors.New("one of --png or --html is required")
			}
			cfg, err := g.loadSimConfig(cmd, nil)
			if err != nil {
				return err
			}
			return withDB(g, func(store *db.DB) error {
				points, err := store.RunTrail(args[0])
				if err != nil {
					return err
				}
				t := render.NewTrail("run " + args[0])
				for _, p := range points {
					t.Add(p.Center, p.Phase)
				}
				return writeTrail(t, cfg.GetLayout(), &runOptions{pngPath: pngPath, html: htmlPath})
			})
		},
	}
	plot.Flags().StringVar(&pngPath, "png", "", "Write the trail as a PNG plot")
	plot.Flags().StringVar(&htmlPath, "html", "", "Write the trail as an interactive HTML chart")

	del := &cobra.Command{
		Use:   "delete [run-id]",
		Short: "Delete a run with its trail and scans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(g, func(store *db.DB) error {
				if err := store.DeleteRun(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(list, show, plot, del)
	return cmd
}

func withDB(g *globalOptions, fn func(*db.DB) error) error {
	if g.dbPath == "" {
		return errors.New("--db is required")
	}
	if _, err := os.Stat(g.dbPath); err != nil {
		return fmt.Errorf("database %s: %w", g.dbPath, err)
	}
	store, err := g.openDB()
	if err != nil {
		return err
	}
	defer closeDB(store)
	return fn(store)
}

func formatNs(ns int64) string {
	return time.Unix(0, ns).UTC().Format(time.RFC3339)
}

func printRuns(w io.Writer, runs []*db.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tTARGET\tHOME\tSEED\tSTATUS\tACTIONS")
	for _, r := range runs {
		status := r.Status
		if !r.Finished() {
			status = "running"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%d\n",
			r.RunID, formatNs(r.StartedAtNs), r.Target, r.Home, r.Seed, status, r.Actions)
	}
	tw.Flush()
}

func showRun(w io.Writer, store *db.DB, id string, withTrail bool) error {
	run, err := store.GetRun(id)
	if err != nil {
		return err
	}
	scans, err := store.RunScans(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "run:       %s\n", run.RunID)
	fmt.Fprintf(w, "started:   %s\n", formatNs(run.StartedAtNs))
	if run.FinishedAtNs != nil {
		fmt.Fprintf(w, "finished:  %s\n", formatNs(*run.FinishedAtNs))
	}
	fmt.Fprintf(w, "target:    %s from home %d, seed %d\n", run.Target, run.Home, run.Seed)
	fmt.Fprintf(w, "status:    %s after %d actions\n", run.Status, run.Actions)
	fmt.Fprintf(w, "quadrants: %d finished\n", run.QuadrantsFinished)
	if run.Picked != nil {
		fmt.Fprintf(w, "picked:    box at %s\n", *run.Picked)
	}
	if run.Final != nil {
		fmt.Fprintf(w, "final:     %s\n", *run.Final)
	}
	fmt.Fprintf(w, "anomalies: %d\n", run.Anomalies)
	for _, s := range scans {
		mark := ""
		if s.Matched {
			mark = " match"
		}
		fmt.Fprintf(w, "scan %d:    %s%s\n", s.Index, s.Decoded, mark)
	}

	if !withTrail {
		return nil
	}
	points, err := store.RunTrail(id)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tACTION\tPHASE\tCENTER\tHEADING\tSTORAGE")
	for _, p := range points {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\n", p.Seq, p.Action, p.Phase, p.Center, p.Direction, p.StorageFull)
	}
	return tw.Flush()
}
