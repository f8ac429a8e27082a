package batch

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/db"
	"github.com/banshee-data/shelfbot/internal/search"
	"github.com/banshee-data/shelfbot/internal/sim"
)

func TestSummarise(t *testing.T) {
	s := Summarise([]RunSummary{
		{Status: search.StatusRetrieved, Actions: 100},
		{Status: search.StatusRetrieved, Actions: 200, Anomalies: 1},
		{Status: search.StatusNotFound, Actions: 300},
		{Status: search.StatusAborted, Actions: 400},
	})
	missed := Summarise([]RunSummary{{Status: search.StatusPickupMissed, Actions: 500}})
	assert.Equal(t, 1, missed.PickupMissed)
	assert.Equal(t, 0, missed.Retrieved)
	assert.Equal(t, 0.0, missed.FoundRatio)

	assert.Equal(t, 4, s.Runs)
	assert.Equal(t, 2, s.Retrieved)
	assert.Equal(t, 1, s.NotFound)
	assert.Equal(t, 1, s.Aborted)
	assert.Equal(t, 0, s.PickupMissed)
	assert.Equal(t, 1, s.Anomalies)
	assert.InDelta(t, 0.5, s.FoundRatio, 1e-9)
	assert.InDelta(t, 250, s.MeanActions, 1e-9)
	// Sample standard deviation of 100..400.
	assert.InDelta(t, math.Sqrt(50000.0/3), s.StdDevActions, 1e-9)
	assert.Equal(t, 100, s.MinActions)
	assert.Equal(t, 400, s.MaxActions)
	assert.InDelta(t, 200, s.MedianActions, 1e-9)
}

func TestSummariseSingleAndEmpty(t *testing.T) {
	s := Summarise([]RunSummary{{Status: search.StatusNotFound, Actions: 1629}})
	assert.Equal(t, 1629.0, s.MeanActions)
	assert.Equal(t, 0.0, s.StdDevActions)
	assert.Equal(t, 0.0, s.FoundRatio)

	empty := Summarise(nil)
	assert.Equal(t, 0, empty.Runs)
}

func TestConfigForRotatesHomesAndSeeds(t *testing.T) {
	tmpl := config.DefaultSimConfig()
	opts := Options{BaseSeed: 100, RotateHomes: true}

	for i := range 6 {
		cfg := configFor(tmpl, opts, i)
		assert.Equal(t, int64(100+i), cfg.GetSeed())
		assert.Equal(t, i%4, cfg.GetHome())
	}
	assert.Equal(t, int64(1), tmpl.GetSeed(), "template untouched")
	assert.Equal(t, 0, tmpl.GetHome())
}

func TestRunGuaranteedTargets(t *testing.T) {
	s, err := Run(context.Background(), &sim.Runner{}, Options{Runs: 8, Concurrency: 3, BaseSeed: 1, RotateHomes: true})
	require.NoError(t, err)

	assert.Equal(t, 8, s.Runs)
	assert.Equal(t, 8, s.Retrieved)
	assert.Equal(t, 1.0, s.FoundRatio)
	for i, r := range s.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, int64(1+i), r.Seed)
		assert.Equal(t, i%4, r.Home)
		assert.Empty(t, r.Err)
	}
}

func TestRunBudgetAbortsAreCounted(t *testing.T) {
	cfg := config.DefaultSimConfig()
	budget := 50
	cfg.MaxActions = &budget

	s, err := Run(context.Background(), &sim.Runner{}, Options{Runs: 3, Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Aborted)
	assert.Equal(t, 50, s.MaxActions)
	for _, r := range s.Results {
		assert.NotEmpty(t, r.Err)
	}
}

func TestRunPersistsEveryRun(t *testing.T) {
	store, err := db.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	s, err := Run(context.Background(), &sim.Runner{DB: store}, Options{Runs: 4, Concurrency: 2})
	require.NoError(t, err)

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 4)
	for _, r := range s.Results {
		assert.NotEmpty(t, r.RunID)
	}
}

func TestRunRejectsBadOptions(t *testing.T) {
	_, err := Run(context.Background(), &sim.Runner{}, Options{Runs: 0})
	assert.Error(t, err)

	bad := "9999"
	_, err = Run(context.Background(), &sim.Runner{}, Options{Runs: 1, Config: &config.SimConfig{Target: &bad}})
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, &sim.Runner{}, Options{Runs: 2})
	assert.ErrorIs(t, err, context.Canceled)
}
