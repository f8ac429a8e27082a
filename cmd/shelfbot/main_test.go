package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/shelfbot/internal/batch"
	"github.com/banshee-data/shelfbot/internal/db"
	"github.com/banshee-data/shelfbot/internal/script"
	"github.com/banshee-data/shelfbot/internal/search"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "shelfbot dev"), out)
}

func TestRunPrintsOutcome(t *testing.T) {
	out, err := execute(t, "run", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "status:    retrieved")
	assert.Contains(t, out, "target:    1222")
	assert.Contains(t, out, "picked:")
}

func TestRunJSON(t *testing.T) {
	out, err := execute(t, "run", "--json", "--home", "2")
	require.NoError(t, err)

	var res search.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, search.StatusRetrieved, res.Status)
	assert.Positive(t, res.Actions)
	require.NotNil(t, res.Picked)
	assert.True(t, res.Picked.Wanted)
}

func TestRunBudgetExhausted(t *testing.T) {
	out, err := execute(t, "run", "--max-actions", "10")
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrActionBudget)
	assert.Contains(t, out, "status:    aborted")
	assert.Contains(t, out, "actions:   10")
}

func TestRunRejectsBadConfig(t *testing.T) {
	_, err := execute(t, "run", "--target", "1232x")
	assert.Error(t, err)

	_, err = execute(t, "run", "--home", "7")
	assert.Error(t, err)

	_, err = execute(t, "--config", "missing.toml", "run")
	assert.Error(t, err)
}

func TestRunWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target: \"1222\"\nmax_actions: 12\n"), 0o644))

	out, err := execute(t, "--config", path, "run")
	assert.ErrorIs(t, err, search.ErrActionBudget)
	assert.Contains(t, out, "actions:   12")

	// Flags win over the file.
	out, err = execute(t, "--config", path, "run", "--max-actions", "20000")
	require.NoError(t, err)
	assert.Contains(t, out, "status:    retrieved")
}

func TestRunWatchPlain(t *testing.T) {
	// Seed 1 needs 186 actions, so a budget of 120 cuts it short.
	out, err := execute(t, "run", "--watch", "--plain", "--every", "50", "--max-actions", "120")
	assert.ErrorIs(t, err, search.ErrActionBudget)
	assert.Contains(t, out, "#0 start")
	assert.Contains(t, out, "#100 ")
	assert.NotContains(t, out, "#75 ")
	assert.NotContains(t, out, "\x1b[2J")
}

func TestRunRecordsAndInspects(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	png := filepath.Join(dir, "trail.png")
	html := filepath.Join(dir, "trail.html")

	_, err := execute(t, "--db", dbPath, "run", "--png", png, "--html", html)
	require.NoError(t, err)
	assert.FileExists(t, png)
	assert.FileExists(t, html)

	store, err := db.Open(dbPath)
	require.NoError(t, err)
	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, runs, 1)
	id := runs[0].RunID

	out, err := execute(t, "--db", dbPath, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "retrieved")

	out, err = execute(t, "--db", dbPath, "runs", "show", id, "--trail")
	require.NoError(t, err)
	assert.Contains(t, out, "run:       "+id)
	assert.Contains(t, out, "1222 match")
	assert.Contains(t, out, "home_escape")

	replot := filepath.Join(dir, "replot.png")
	_, err = execute(t, "--db", dbPath, "runs", "plot", id, "--png", replot)
	require.NoError(t, err)
	assert.FileExists(t, replot)

	_, err = execute(t, "--db", dbPath, "runs", "plot", id)
	assert.Error(t, err)

	out, err = execute(t, "--db", dbPath, "runs", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+id)

	_, err = execute(t, "--db", dbPath, "runs", "show", id)
	assert.ErrorIs(t, err, db.ErrRunNotFound)
}

func TestRunsNeedDatabase(t *testing.T) {
	_, err := execute(t, "runs", "list")
	assert.ErrorContains(t, err, "--db is required")

	_, err = execute(t, "--db", filepath.Join(t.TempDir(), "nope.db"), "runs", "list")
	assert.Error(t, err)
}

func TestBatchJSON(t *testing.T) {
	out, err := execute(t, "batch", "--runs", "4", "--concurrency", "2", "--rotate-homes", "--json", "--details")
	require.NoError(t, err)

	var s batch.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 4, s.Runs)
	assert.Equal(t, 4, s.Retrieved)
	require.Len(t, s.Results, 4)
	assert.Equal(t, 3, s.Results[3].Home)
}

func TestBatchTable(t *testing.T) {
	out, err := execute(t, "batch", "--runs", "2", "--details")
	require.NoError(t, err)
	assert.Contains(t, out, "retrieved  2 (100.0%)")
	assert.Contains(t, out, "SEED")
}

func TestDriveScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escape.drive")
	require.NoError(t, os.WriteFile(path, []byte("scan;\nforward 13; right; forward 6; left;\n"), 0o644))

	out, err := execute(t, "drive", path, "--json")
	require.NoError(t, err)

	var rep script.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 21, rep.Actions)
	require.Len(t, rep.Readings, 1)

	out, err = execute(t, "drive", path)
	require.NoError(t, err)
	assert.Contains(t, out, "actions: 21")
}

func TestDriveErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.drive")
	require.NoError(t, os.WriteFile(bad, []byte("jump;"), 0o644))
	_, err := execute(t, "drive", bad)
	assert.Error(t, err)

	long := filepath.Join(dir, "long.drive")
	require.NoError(t, os.WriteFile(long, []byte("forward 13;"), 0o644))
	_, err = execute(t, "drive", long, "--max-actions", "5")
	assert.ErrorIs(t, err, search.ErrActionBudget)

	_, err = execute(t, "drive")
	assert.Error(t, err)
}
