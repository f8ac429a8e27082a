package script

import (
	"context"
	"fmt"

	"github.com/banshee-data/shelfbot/internal/board"
	"github.com/banshee-data/shelfbot/internal/geom"
	"github.com/banshee-data/shelfbot/internal/search"
)

// Reading is the sensor state captured by a scan statement.
type Reading struct {
	Seq      int      `json:"seq"`
	Center   geom.Vec `json:"center"`
	Detected bool     `json:"detected"`
	Bit      int      `json:"bit"`
}

// Report summarises an executed program.
type Report struct {
	Actions  int         `json:"actions"`
	Readings []Reading   `json:"readings,omitempty"`
	Picked   []board.Box `json:"picked,omitempty"`
	Missed   int         `json:"missed"`
}

// Machine executes programs on an actuator.
type Machine struct {
	act *search.Actuator
	// Reach is the pickup reach handed to Actuator.Pickup.
	Reach int
}

// NewMachine returns a Machine driving act.
func NewMachine(act *search.Actuator, reach int) *Machine {
	return &Machine{act: act, Reach: reach}
}

// Run executes p until it ends, a step fails or ctx is cancelled. The
// report covers everything done before the failure.
func (m *Machine) Run(ctx context.Context, p *Program) (Report, error) {
	var rep Report
	start := m.act.Actions()
	err := m.block(ctx, p.Statements, &rep)
	rep.Actions = m.act.Actions() - start
	return rep, err
}

func (m *Machine) block(ctx context.Context, stmts []*Statement, rep *Report) error {
	for _, s := range stmts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.exec(ctx, s, rep); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) exec(ctx context.Context, s *Statement, rep *Report) error {
	var err error
	switch {
	case s.Forward != nil:
		err = m.act.Forward(*s.Forward)
	case s.Backward != nil:
		err = m.act.Backward(*s.Backward)
	case s.Turn != nil:
		if *s.Turn == "left" {
			err = m.act.TurnLeft()
		} else {
			err = m.act.TurnRight()
		}
	case s.Face != nil:
		var d geom.Direction
		if d, err = geom.ParseDirection(*s.Face); err == nil {
			err = m.act.Face(d)
		}
	case s.Goto != nil:
		err = m.act.GoTo(geom.V(s.Goto.X, s.Goto.Y))
	case s.Pickup:
		var (
			box board.Box
			ok  bool
		)
		box, ok, err = m.act.Pickup(m.Reach)
		if err == nil {
			if ok {
				rep.Picked = append(rep.Picked, box)
			} else {
				rep.Missed++
			}
		}
	case s.Scan:
		rep.Readings = append(rep.Readings, Reading{
			Seq:      m.act.Actions(),
			Center:   m.act.Pose().Center(),
			Detected: m.act.Detect(),
			Bit:      m.act.ReadBit(),
		})
	case s.Repeat != nil:
		for range s.Repeat.Count {
			if err = m.block(ctx, s.Repeat.Body, rep); err != nil {
				return err
			}
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", s.Pos, err)
	}
	return nil
}
