package search

import (
	"github.com/banshee-data/shelfbot/internal/board"
	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/geom"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusRunning      Status = ""
	StatusRetrieved    Status = "retrieved"
	// StatusPickupMissed means the robot came home with its storage slot
	// marked full but no box was under the slot when it picked up.
	StatusPickupMissed Status = "pickup_missed"
	StatusNotFound     Status = "not_found"
	StatusAborted      Status = "aborted"
)

// finalStatus classifies a run that made it back home.
func finalStatus(storageFull bool, picked *board.Box) Status {
	switch {
	case !storageFull:
		return StatusNotFound
	case picked == nil:
		return StatusPickupMissed
	default:
		return StatusRetrieved
	}
}

// ScanAnomaly records a barcode position that returned no bit.
type ScanAnomaly struct {
	Seq   int      `json:"seq"`
	Bit   int      `json:"bit"`
	Probe geom.Vec `json:"probe"`
	Pose  geom.Vec `json:"pose"`
}

// Result summarises a run.
type Result struct {
	Status            Status         `json:"status"`
	Target            config.Barcode `json:"target"`
	Actions           int            `json:"actions"`
	QuadrantsFinished int            `json:"quadrants_finished"`
	Picked            *board.Box     `json:"picked,omitempty"`
	PickupMissed      bool           `json:"pickup_missed,omitempty"`
	Scans             [][]int        `json:"scans,omitempty"`
	Anomalies         int            `json:"anomalies"`
	AnomalyLog        []ScanAnomaly  `json:"anomaly_log,omitempty"`
	Final             geom.Vec       `json:"final"`
}
