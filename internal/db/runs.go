package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/shelfbot/internal/geom"
	"github.com/banshee-data/shelfbot/internal/search"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// Run is one persisted simulation.
type Run struct {
	RunID             string    `json:"run_id"`
	StartedAtNs       int64     `json:"started_at_ns"`
	FinishedAtNs      *int64    `json:"finished_at_ns,omitempty"`
	Target            string    `json:"target"`
	Home              int       `json:"home"`
	Seed              int64     `json:"seed"`
	Status            string    `json:"status"`
	Actions           int       `json:"actions"`
	QuadrantsFinished int       `json:"quadrants_finished"`
	Anomalies         int       `json:"anomalies"`
	Picked            *geom.Vec `json:"picked,omitempty"`
	Final             *geom.Vec `json:"final,omitempty"`
}

// Finished reports whether FinishRun has been called for the run.
func (r *Run) Finished() bool { return r.FinishedAtNs != nil }

// Scan is one decoded barcode recorded against a run.
type Scan struct {
	Index   int    `json:"index"`
	Decoded string `json:"decoded"`
	Matched bool   `json:"matched"`
}

// TrailPoint is the persisted form of one snapshot.
type TrailPoint struct {
	Seq         int      `json:"seq"`
	Action      string   `json:"action"`
	Phase       string   `json:"phase"`
	Center      geom.Vec `json:"center"`
	Direction   string   `json:"direction"`
	StorageFull bool     `json:"storage_full"`
}

// TrailPointFromSnapshot flattens a snapshot into a TrailPoint.
func TrailPointFromSnapshot(s search.Snapshot) TrailPoint {
	return TrailPoint{
		Seq:         s.Seq,
		Action:      string(s.Action),
		Phase:       s.Phase.String(),
		Center:      s.Pose.Center(),
		Direction:   s.Pose.Direction().String(),
		StorageFull: s.StorageFull,
	}
}

// CreateRun inserts a run. If run.RunID is empty a new UUID is generated,
// and a zero StartedAtNs is set to now.
func (db *DB) CreateRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.StartedAtNs == 0 {
		run.StartedAtNs = time.Now().UnixNano()
	}
	err := retryOnBusy(func() error {
		_, err := db.Exec(`
			INSERT INTO sim_runs (run_id, started_at_ns, target, home, seed)
			VALUES (?, ?, ?, ?, ?)`,
			run.RunID, run.StartedAtNs, run.Target, run.Home, run.Seed,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the outcome of a run together with its decoded scans.
func (db *DB) FinishRun(runID string, res search.Result) error {
	finished := time.Now().UnixNano()
	var pickedX, pickedY sql.NullInt64
	if res.Picked != nil {
		pickedX = sql.NullInt64{Int64: int64(res.Picked.BottomLeft.X), Valid: true}
		pickedY = sql.NullInt64{Int64: int64(res.Picked.BottomLeft.Y), Valid: true}
	}

	return retryOnBusy(func() error {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin finish run: %w", err)
		}
		defer tx.Rollback()

		out, err := tx.Exec(`
			UPDATE sim_runs
			SET finished_at_ns = ?, status = ?, actions = ?, quadrants_finished = ?,
			    anomalies = ?, picked_x = ?, picked_y = ?, final_x = ?, final_y = ?
			WHERE run_id = ?`,
			finished, string(res.Status), res.Actions, res.QuadrantsFinished,
			res.Anomalies, pickedX, pickedY, res.Final.X, res.Final.Y,
			runID,
		)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		if n, _ := out.RowsAffected(); n == 0 {
			return fmt.Errorf("finish %s: %w", runID, ErrRunNotFound)
		}

		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO sim_scans (run_id, idx, decoded, matched) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare scans: %w", err)
		}
		defer stmt.Close()
		for i, bits := range res.Scans {
			if _, err := stmt.Exec(runID, i, formatBits(bits), res.Target.Matches(bits)); err != nil {
				return fmt.Errorf("insert scan %d: %w", i, err)
			}
		}
		return tx.Commit()
	})
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.QueryRow(runSelect+` WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means 50.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(runSelect+` ORDER BY started_at_ns DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunScans returns the barcodes decoded during a run in scan order.
func (db *DB) RunScans(runID string) ([]Scan, error) {
	rows, err := db.Query(`SELECT idx, decoded, matched FROM sim_scans WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		var s Scan
		if err := rows.Scan(&s.Index, &s.Decoded, &s.Matched); err != nil {
			return nil, err
		}
		scans = append(scans, s)
	}
	return scans, rows.Err()
}

// RunTrail returns the recorded actions of a run in sequence order.
func (db *DB) RunTrail(runID string) ([]TrailPoint, error) {
	rows, err := db.Query(`
		SELECT seq, action, phase, center_x, center_y, direction, storage_full
		FROM sim_actions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var trail []TrailPoint
	for rows.Next() {
		var p TrailPoint
		if err := rows.Scan(&p.Seq, &p.Action, &p.Phase, &p.Center.X, &p.Center.Y, &p.Direction, &p.StorageFull); err != nil {
			return nil, err
		}
		trail = append(trail, p)
	}
	return trail, rows.Err()
}

// DeleteRun removes a run and everything recorded against it.
func (db *DB) DeleteRun(runID string) error {
	return retryOnBusy(func() error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()
		for _, q := range []string{
			`DELETE FROM sim_actions WHERE run_id = ?`,
			`DELETE FROM sim_scans WHERE run_id = ?`,
			`DELETE FROM sim_runs WHERE run_id = ?`,
		} {
			if _, err := tx.Exec(q, runID); err != nil {
				return fmt.Errorf("delete run %s: %w", runID, err)
			}
		}
		return tx.Commit()
	})
}

const runSelect = `
	SELECT run_id, started_at_ns, finished_at_ns, target, home, seed, status,
	       actions, quadrants_finished, anomalies, picked_x, picked_y, final_x, final_y
	FROM sim_runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run              Run
		finished         sql.NullInt64
		pickedX, pickedY sql.NullInt64
		finalX, finalY   sql.NullInt64
	)
	err := row.Scan(&run.RunID, &run.StartedAtNs, &finished, &run.Target, &run.Home, &run.Seed,
		&run.Status, &run.Actions, &run.QuadrantsFinished, &run.Anomalies,
		&pickedX, &pickedY, &finalX, &finalY)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAtNs = &finished.Int64
	}
	if pickedX.Valid && pickedY.Valid {
		v := geom.V(int(pickedX.Int64), int(pickedY.Int64))
		run.Picked = &v
	}
	if finalX.Valid && finalY.Valid {
		v := geom.V(int(finalX.Int64), int(finalY.Int64))
		run.Final = &v
	}
	return &run, nil
}

func formatBits(bits []int) string {
	var b strings.Builder
	for _, bit := range bits {
		b.WriteString(strconv.Itoa(bit))
	}
	return b.String()
}
