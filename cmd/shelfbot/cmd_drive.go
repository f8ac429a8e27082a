package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/shelfbot/internal/geom"
	"github.com/banshee-data/shelfbot/internal/render"
	"github.com/banshee-data/shelfbot/internal/robot"
	"github.com/banshee-data/shelfbot/internal/script"
	"github.com/banshee-data/shelfbot/internal/search"
	"github.com/banshee-data/shelfbot/internal/sim"
)

type driveOptions struct {
	sim simFlags

	watch bool
	plain bool
	json  bool
}

func newDriveCmd(g *globalOptions) *cobra.Command {
	o := &driveOptions{}
	cmd := &cobra.Command{
		Use:   "drive [script]",
		Short: "Drive the robot with a script",
		Long: `Places boxes as "run" would, puts the robot on its home and executes the
drive script statement by statement.

Example script:
  forward 13; right; forward 6; left;
  goto (22, 7); face up; pickup;`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrive(cmd, g, o, args[0])
		},
	}
	addSimFlags(cmd, &o.sim)
	cmd.Flags().BoolVarP(&o.watch, "watch", "w", false, "Draw the floor after every action")
	cmd.Flags().BoolVar(&o.plain, "plain", false, "With --watch, draw without colours or screen clears")
	cmd.Flags().BoolVar(&o.json, "json", false, "Print the report as JSON")
	return cmd
}

func runDrive(cmd *cobra.Command, g *globalOptions, o *driveOptions, path string) error {
	prog, err := script.ParseFile(path)
	if err != nil {
		return err
	}
	cfg, err := g.loadSimConfig(cmd, &o.sim)
	if err != nil {
		return err
	}
	opts, _, err := sim.Prepare(cfg)
	if err != nil {
		return err
	}

	l := opts.Layout
	home := l.Homes[opts.Home]
	act := search.NewActuator(l, geom.DefaultRotation, robot.NewPose(home.Position, home.Facing), opts.Boxes, opts.Rocks)
	act.SetBudget(opts.MaxActions)

	out := cmd.OutOrStdout()
	if o.watch {
		frame := render.NewFrame(l)
		frame.Plain = o.plain
		term := render.NewTerminal(out, frame)
		term.Clear = !o.plain
		act.AddObserver(term)
		act.Announce()
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	rep, runErr := script.NewMachine(act, l.Maneuvers.PickupReach).Run(ctx, prog)
	if o.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return errors.Join(runErr, err)
		}
	} else {
		printReport(out, rep, act)
	}
	return runErr
}

func printReport(w io.Writer, rep script.Report, act *search.Actuator) {
	fmt.Fprintf(w, "actions: %d\n", rep.Actions)
	fmt.Fprintf(w, "pose:    %s\n", act.Pose())
	for _, r := range rep.Readings {
		fmt.Fprintf(w, "scan #%d at %s: detected=%t bit=%d\n", r.Seq, r.Center, r.Detected, r.Bit)
	}
	for _, b := range rep.Picked {
		fmt.Fprintf(w, "picked:  %s at %s\n", b.Barcode, b.BottomLeft)
	}
	if rep.Missed > 0 {
		fmt.Fprintf(w, "missed:  %d pickups\n", rep.Missed)
	}
}
