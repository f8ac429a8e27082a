// Command shelfbot runs the warehouse retrieval robot simulator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/db"
	"github.com/banshee-data/shelfbot/internal/monitoring"
	"github.com/banshee-data/shelfbot/internal/version"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	verbose    bool
	configPath string
	dbPath     string

	logger     *zap.Logger
	restoreLog func()
}

// simFlags override single SimConfig fields from the command line.
type simFlags struct {
	target     string
	home       int
	seed       int64
	maxActions int
	pace       time.Duration
	rocks      int
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "shelfbot",
		Short: "Grid warehouse retrieval robot simulator",
		Long: `shelfbot simulates a robot that escapes its home, sweeps the shelf rows
of a four-quadrant warehouse, reads box barcodes and brings the wanted box
home.

Runs can be watched in the terminal, driven by hand with a script, run in
parallel batches or served live over HTTP and WebSocket.`,
		SilenceUsage: true,
		Version:      version.String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := monitoring.NewZap(g.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			g.logger = logger
			g.restoreLog = monitoring.UseZap(logger, zapcore.DebugLevel)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.restoreLog != nil {
				g.restoreLog()
			}
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Simulation config file (.json, .yaml or .yml)")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database recording runs (disabled when empty)")

	root.AddCommand(newRunCmd(g))
	root.AddCommand(newBatchCmd(g))
	root.AddCommand(newDriveCmd(g))
	root.AddCommand(newServeCmd(g))
	root.AddCommand(newRunsCmd(g))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command, f *simFlags) {
	cmd.Flags().StringVar(&f.target, "target", "", "Target barcode, e.g. 1222")
	cmd.Flags().IntVar(&f.home, "home", 0, "Home index the robot starts from")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "Placement seed")
	cmd.Flags().IntVar(&f.maxActions, "max-actions", 20000, "Action budget")
	cmd.Flags().DurationVar(&f.pace, "pace", 0, "Pause after every action")
	cmd.Flags().IntVar(&f.rocks, "rocks", 0, "Number of hallway rocks")
}

// loadSimConfig reads the --config file, or the defaults, and applies the
// sim flags the user set explicitly.
func (g *globalOptions) loadSimConfig(cmd *cobra.Command, f *simFlags) (*config.SimConfig, error) {
	cfg := config.DefaultSimConfig()
	if g.configPath != "" {
		loaded, err := config.LoadSimConfig(g.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if f != nil {
		flags := cmd.Flags()
		if flags.Changed("target") {
			cfg.Target = &f.target
		}
		if flags.Changed("home") {
			cfg.Home = &f.home
		}
		if flags.Changed("seed") {
			cfg.Seed = &f.seed
		}
		if flags.Changed("max-actions") {
			cfg.MaxActions = &f.maxActions
		}
		if flags.Changed("pace") {
			pace := f.pace.String()
			cfg.Pace = &pace
		}
		if flags.Changed("rocks") {
			cfg.RockCount = &f.rocks
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openDB opens --db, or returns nil when no database was requested.
func (g *globalOptions) openDB() (*db.DB, error) {
	if g.dbPath == "" {
		return nil, nil
	}
	store, err := db.Open(g.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", g.dbPath, err)
	}
	return store, nil
}

func closeDB(store *db.DB) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		monitoring.Logf("close database: %v", err)
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
