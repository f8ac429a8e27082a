package db

import (
	"fmt"
	"sync"

	"github.com/banshee-data/shelfbot/internal/monitoring"
	"github.com/banshee-data/shelfbot/internal/search"
)

// DefaultRecorderBatch is the number of buffered actions that triggers a
// write.
const DefaultRecorderBatch = 256

// Recorder is a search.Observer that persists every snapshot of one run as
// a row of sim_actions. Rows are buffered and written in batches; call
// Flush once the run has finished.
type Recorder struct {
	db    *DB
	runID string
	batch int

	mu      sync.Mutex
	pending []TrailPoint
	written int
	err     error
}

// NewRecorder returns a Recorder for runID. batch <= 0 selects
// DefaultRecorderBatch.
func NewRecorder(db *DB, runID string, batch int) *Recorder {
	if batch <= 0 {
		batch = DefaultRecorderBatch
	}
	return &Recorder{db: db, runID: runID, batch: batch}
}

// Observe buffers the snapshot and writes the buffer when it is full. The
// first write error sticks and is returned by Flush; later snapshots are
// dropped.
func (r *Recorder) Observe(s search.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	r.pending = append(r.pending, TrailPointFromSnapshot(s))
	if len(r.pending) >= r.batch {
		if err := r.flushLocked(); err != nil {
			monitoring.Logf("recorder %s: %v", r.runID, err)
		}
	}
}

// Flush writes any buffered rows and returns the first error seen.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return r.flushLocked()
}

// Written returns the number of rows committed so far.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

func (r *Recorder) flushLocked() error {
	if len(r.pending) == 0 {
		return nil
	}
	err := retryOnBusy(func() error {
		tx, err := r.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO sim_actions
			    (run_id, seq, action, phase, center_x, center_y, direction, storage_full)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range r.pending {
			if _, err := stmt.Exec(r.runID, p.Seq, p.Action, p.Phase,
				p.Center.X, p.Center.Y, p.Direction, p.StorageFull); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		r.err = fmt.Errorf("record actions: %w", err)
		return r.err
	}
	r.written += len(r.pending)
	r.pending = r.pending[:0]
	return nil
}
