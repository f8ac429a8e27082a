package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/shelfbot/internal/board"
	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/geom"
	"github.com/banshee-data/shelfbot/internal/search"
)

func TestCreateRunAssignsID(t *testing.T) {
	db := setupTestDB(t)

	run := &Run{Target: "1222", Home: 2, Seed: 7}
	require.NoError(t, db.CreateRun(run))
	assert.Len(t, run.RunID, 36)
	assert.NotZero(t, run.StartedAtNs)

	got, err := db.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "1222", got.Target)
	assert.Equal(t, 2, got.Home)
	assert.Equal(t, int64(7), got.Seed)
	assert.False(t, got.Finished())
	assert.Nil(t, got.Picked)
	assert.Nil(t, got.Final)
}

func TestCreateRunKeepsGivenID(t *testing.T) {
	db := setupTestDB(t)

	run := &Run{RunID: "fixed", Target: "1111", StartedAtNs: 42}
	require.NoError(t, db.CreateRun(run))
	assert.Equal(t, "fixed", run.RunID)

	dup := &Run{RunID: "fixed", Target: "2222"}
	assert.Error(t, db.CreateRun(dup), "duplicate run id")
}

func TestGetRunNotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetRun("missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestFinishRunStoresOutcome(t *testing.T) {
	db := setupTestDB(t)
	run := &Run{Target: "1222"}
	require.NoError(t, db.CreateRun(run))

	res := search.Result{
		Status:            search.StatusRetrieved,
		Target:            config.Barcode{1, 2, 2, 2},
		Actions:           156,
		QuadrantsFinished: 0,
		Picked:            &board.Box{BottomLeft: geom.V(20, 12), Barcode: config.Barcode{1, 2, 2, 2}},
		Scans:             [][]int{{1, 2, 1, 2}, {1, 2, 2, 2}},
		Anomalies:         1,
		Final:             geom.V(6, -6),
	}
	require.NoError(t, db.FinishRun(run.RunID, res))

	got, err := db.GetRun(run.RunID)
	require.NoError(t, err)
	assert.True(t, got.Finished())
	assert.Equal(t, "retrieved", got.Status)
	assert.Equal(t, 156, got.Actions)
	assert.Equal(t, 1, got.Anomalies)
	require.NotNil(t, got.Picked)
	assert.Equal(t, geom.V(20, 12), *got.Picked)
	require.NotNil(t, got.Final)
	assert.Equal(t, geom.V(6, -6), *got.Final)

	scans, err := db.RunScans(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, []Scan{
		{Index: 0, Decoded: "1212", Matched: false},
		{Index: 1, Decoded: "1222", Matched: true},
	}, scans)
}

func TestFinishRunUnknownID(t *testing.T) {
	db := setupTestDB(t)
	err := db.FinishRun("nope", search.Result{Status: search.StatusNotFound})
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestListRunsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	for i, ts := range []int64{100, 300, 200} {
		require.NoError(t, db.CreateRun(&Run{RunID: string(rune('a' + i)), Target: "1111", StartedAtNs: ts}))
	}

	runs, err := db.ListRuns(0)
	require.NoError(t, err)
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.RunID)
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids)

	runs, err = db.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "b", runs[0].RunID)
}

func TestDeleteRunRemovesEverything(t *testing.T) {
	db := setupTestDB(t)
	run := &Run{Target: "1222"}
	require.NoError(t, db.CreateRun(run))

	rec := NewRecorder(db, run.RunID, 0)
	e, err := search.New(search.Options{
		Target:    config.Barcode{1, 2, 2, 2},
		Boxes:     []board.Box{{BottomLeft: geom.V(20, 12), Barcode: config.Barcode{1, 2, 2, 2}, Wanted: true}},
		Observers: []search.Observer{rec},
	})
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, rec.Flush())
	require.NoError(t, db.FinishRun(run.RunID, res))

	require.NoError(t, db.DeleteRun(run.RunID))
	_, err = db.GetRun(run.RunID)
	assert.True(t, errors.Is(err, ErrRunNotFound))

	trail, err := db.RunTrail(run.RunID)
	require.NoError(t, err)
	assert.Empty(t, trail)
	scans, err := db.RunScans(run.RunID)
	require.NoError(t, err)
	assert.Empty(t, scans)
}
