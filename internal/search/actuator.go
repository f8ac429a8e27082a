package search

import (
	"slices"

	"github.com/banshee-data/shelfbot/internal/board"
	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/geom"
	"github.com/banshee-data/shelfbot/internal/robot"
)

// Actuator is the idealised motion layer. Every primitive it exposes is a
// sequence of atomic actions; each action mutates the pose (or the box
// registry), rebuilds the board and notifies the observers, in that order.
// A hardware drive would replace this type and leave the engine unchanged.
type Actuator struct {
	layout *config.Layout
	rot    geom.Rotation
	bounds []geom.Bounds

	pose        robot.Pose
	board       *board.Board
	boxes       *board.Registry
	rocks       []board.Rock
	storageFull bool

	observers []Observer
	phase     Phase
	seq       int
	budget    int
}

// NewActuator places the robot and builds the initial board.
func NewActuator(l *config.Layout, rot geom.Rotation, pose robot.Pose, boxes []board.Box, rocks []board.Rock) *Actuator {
	a := &Actuator{
		layout: l,
		rot:    rot,
		bounds: l.QuadrantBounds(),
		pose:   pose.WithRotation(rot),
		board:  board.New(l),
		boxes:  board.NewRegistry(boxes),
		rocks:  slices.Clone(rocks),
	}
	a.sync()
	return a
}

// SetBudget caps the number of atomic actions. Zero means unlimited.
func (a *Actuator) SetBudget(n int) { a.budget = n }

// AddObserver registers o for every following action.
func (a *Actuator) AddObserver(o Observer) { a.observers = append(a.observers, o) }

// SetPhase sets the phase stamped into later snapshots.
func (a *Actuator) SetPhase(p Phase) { a.phase = p }

// Pose returns a copy of the current pose.
func (a *Actuator) Pose() robot.Pose { return a.pose }

// Board exposes the sensed grid.
func (a *Actuator) Board() *board.Board { return a.board }

// Boxes returns the boxes still on the shelves.
func (a *Actuator) Boxes() []board.Box { return a.boxes.Boxes() }

// StorageFull reports whether a box has been picked.
func (a *Actuator) StorageFull() bool { return a.storageFull }

// Actions returns the number of atomic actions taken so far.
func (a *Actuator) Actions() int { return a.seq }

// Detect runs the ultrasonic probe pair against the board.
func (a *Actuator) Detect() bool { return a.pose.UltrasonicDetection(a.board) }

// ReadBit fires the color beam and returns the bit or robot.NoBit.
func (a *Actuator) ReadBit() int { return a.pose.ScanColorBit(a.board) }

func (a *Actuator) sync() {
	a.board.Rebuild(a.boxes.Boxes(), a.pose.Footprint())
}

// Snapshot copies the current world.
func (a *Actuator) Snapshot(action Action) Snapshot {
	return Snapshot{
		Seq:         a.seq,
		Action:      action,
		Phase:       a.phase,
		Pose:        a.pose,
		Geometry:    a.pose.Geometry(a.bounds),
		Boxes:       a.boxes.Boxes(),
		Rocks:       slices.Clone(a.rocks),
		StorageFull: a.storageFull,
	}
}

func (a *Actuator) notify(action Action) {
	if len(a.observers) == 0 {
		return
	}
	s := a.Snapshot(action)
	for _, o := range a.observers {
		o.Observe(s)
	}
}

// Announce notifies observers of the current state without acting.
func (a *Actuator) Announce() { a.notify(ActionStart) }

// apply is the single path through which the world changes.
func (a *Actuator) apply(action Action, mutate func()) error {
	if a.budget > 0 && a.seq >= a.budget {
		return ErrActionBudget
	}
	mutate()
	a.seq++
	a.sync()
	a.notify(action)
	return nil
}

// Forward steps n cells ahead, one action per cell.
func (a *Actuator) Forward(n int) error {
	for range n {
		if err := a.apply(ActionForward, func() { a.pose.StepForward(1) }); err != nil {
			return err
		}
	}
	return nil
}

// Backward steps n cells back, one action per cell.
func (a *Actuator) Backward(n int) error {
	for range n {
		if err := a.apply(ActionBackward, func() { a.pose.StepBackward(1) }); err != nil {
			return err
		}
	}
	return nil
}

// TurnRight rotates a quarter turn clockwise.
func (a *Actuator) TurnRight() error {
	return a.apply(ActionTurnRight, a.pose.TurnRight90)
}

// TurnLeft rotates a quarter turn counter-clockwise.
func (a *Actuator) TurnLeft() error {
	return a.apply(ActionTurnLeft, a.pose.TurnLeft90)
}

// Face turns to d: one right turn, one left turn, or two left turns.
func (a *Actuator) Face(d geom.Direction) error {
	cur := a.pose.Direction()
	switch d {
	case cur:
		return nil
	case a.rot.Clockwise(cur):
		return a.TurnRight()
	case a.rot.CounterClockwise(cur):
		return a.TurnLeft()
	default:
		if err := a.TurnLeft(); err != nil {
			return err
		}
		return a.TurnLeft()
	}
}

// GoToY drives along the y axis until the center reaches row y.
func (a *Actuator) GoToY(y int) error {
	dy := y - a.pose.Center().Y
	switch {
	case dy > 0:
		if err := a.Face(geom.Up); err != nil {
			return err
		}
	case dy < 0:
		if err := a.Face(geom.Down); err != nil {
			return err
		}
		dy = -dy
	}
	return a.Forward(dy)
}

// GoToX drives along the x axis until the center reaches column x.
func (a *Actuator) GoToX(x int) error {
	dx := x - a.pose.Center().X
	switch {
	case dx > 0:
		if err := a.Face(geom.Right); err != nil {
			return err
		}
	case dx < 0:
		if err := a.Face(geom.Left); err != nil {
			return err
		}
		dx = -dx
	}
	return a.Forward(dx)
}

// GoTo aligns the y axis first and then the x axis. It does not avoid
// shelves, so it is only safe between hallway cells.
func (a *Actuator) GoTo(p geom.Vec) error {
	if err := a.GoToY(p.Y); err != nil {
		return err
	}
	return a.GoToX(p.X)
}

// PickupCoord is where the box in front of the storage slot should have
// its bottom-left: reach rows beyond the slot along the heading.
func (a *Actuator) PickupCoord(reach int) geom.Vec {
	slot := a.pose.StorageSlot().Min
	if a.pose.Direction() == geom.Up {
		return slot.Add(geom.V(0, reach))
	}
	return slot.Add(geom.V(0, -reach))
}

// Pickup removes the box at PickupCoord(reach) and fills the storage slot.
// The slot is filled even when no box matched; ok reports the match.
func (a *Actuator) Pickup(reach int) (box board.Box, ok bool, err error) {
	coord := a.PickupCoord(reach)
	err = a.apply(ActionPickup, func() {
		box, ok = a.boxes.Remove(coord)
		a.storageFull = true
	})
	return box, ok, err
}
