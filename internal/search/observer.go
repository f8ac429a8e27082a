package search

import (
	"time"

	"github.com/banshee-data/shelfbot/internal/board"
	"github.com/banshee-data/shelfbot/internal/robot"
	"github.com/banshee-data/shelfbot/internal/timeutil"
)

// Action names one atomic actuator step.
type Action string

const (
	ActionStart     Action = "start"
	ActionForward   Action = "forward"
	ActionBackward  Action = "backward"
	ActionTurnRight Action = "turn_right"
	ActionTurnLeft  Action = "turn_left"
	ActionPickup    Action = "pickup"
)

// Snapshot is a read-only copy of the world taken after one action.
type Snapshot struct {
	Seq         int            `json:"seq"`
	Action      Action         `json:"action"`
	Phase       Phase          `json:"phase"`
	Pose        robot.Pose     `json:"pose"`
	Geometry    robot.Geometry `json:"geometry"`
	Boxes       []board.Box    `json:"boxes"`
	Rocks       []board.Rock   `json:"rocks"`
	StorageFull bool           `json:"storage_full"`
}

// Observer receives a Snapshot after every action. Observers run on the
// engine goroutine and must not block for long.
type Observer interface {
	Observe(Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

// Observe calls f(s).
func (f ObserverFunc) Observe(s Snapshot) { f(s) }

// Pacer returns an observer that sleeps d on clock after every snapshot,
// slowing a run down for display. Turns get twice the pause of steps.
func Pacer(clock timeutil.Clock, d time.Duration) Observer {
	return ObserverFunc(func(s Snapshot) {
		if d <= 0 {
			return
		}
		switch s.Action {
		case ActionTurnLeft, ActionTurnRight, ActionPickup:
			clock.Sleep(2 * d)
		default:
			clock.Sleep(d)
		}
	})
}
