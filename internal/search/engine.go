// Package search drives the retrieval robot through the warehouse: it
// escapes from home, scans each shelf line, decodes barcodes by
// backtracking along boxes it detects, picks up the target box, moves from
// quadrant to quadrant and finally returns home.
//
// The engine is an explicit state machine over Phase. Each call to Step
// runs the handler of the current phase to completion and hands over to
// the next phase, which must be listed in Transitions.
package search

import (
	"context"
	"fmt"

	"github.com/banshee-data/shelfbot/internal/board"
	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/geom"
	"github.com/banshee-data/shelfbot/internal/monitoring"
	"github.com/banshee-data/shelfbot/internal/robot"
)

// Options configures an Engine.
type Options struct {
	Layout *config.Layout
	// Rotation defaults to geom.DefaultRotation when its tables are nil.
	Rotation geom.Rotation
	Target   config.Barcode
	Home     int
	// MaxActions bounds the number of atomic actions; zero is unlimited.
	MaxActions int
	Boxes      []board.Box
	Rocks      []board.Rock
	Observers  []Observer
}

// ShelfLine is the x range of the shelf line being scanned.
type ShelfLine struct {
	Begin  int  `json:"begin"`
	End    int  `json:"end"`
	Active bool `json:"active"`
}

// contains reports whether x lies between Begin and End, inclusive.
func (l ShelfLine) contains(x int) bool {
	return min(l.Begin, l.End) <= x && x <= max(l.Begin, l.End)
}

// State is the engine's working state. Only the engine mutates it.
type State struct {
	Phase             Phase          `json:"phase"`
	CurrentQuadrant   int            `json:"current_quadrant"`
	ScanDirection     geom.Direction `json:"scan_direction"`
	StorageEmpty      bool           `json:"storage_empty"`
	QuadrantsFinished int            `json:"quadrants_finished"`
	Finished          bool           `json:"finished"`

	Line      ShelfLine `json:"line"`
	BackSteps int       `json:"back_steps"`
	Decoded   []int     `json:"decoded,omitempty"`
}

// Engine runs one simulation.
type Engine struct {
	layout *config.Layout
	rot    geom.Rotation
	target config.Barcode
	home   config.Home

	act    *Actuator
	state  State
	result Result
}

// New validates opts and places the robot at the chosen home.
func New(opts Options) (*Engine, error) {
	l := opts.Layout
	if l == nil {
		l = config.DefaultLayout()
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	rot := opts.Rotation
	if rot.CW == nil || rot.CCW == nil {
		rot = geom.DefaultRotation
	}
	if err := rot.Validate(); err != nil {
		return nil, fmt.Errorf("rotation: %w", err)
	}
	if !opts.Target.Valid() {
		return nil, fmt.Errorf("target barcode %v has bits other than 1 and 2", opts.Target)
	}
	if opts.Home < 0 || opts.Home >= len(l.Homes) {
		return nil, fmt.Errorf("home %d out of range [0,%d)", opts.Home, len(l.Homes))
	}
	if opts.MaxActions < 0 {
		return nil, fmt.Errorf("max actions must not be negative, got %d", opts.MaxActions)
	}

	home := l.Homes[opts.Home]
	act := NewActuator(l, rot, robot.NewPose(home.Position, home.Facing), opts.Boxes, opts.Rocks)
	act.SetBudget(opts.MaxActions)
	for _, o := range opts.Observers {
		act.AddObserver(o)
	}

	e := &Engine{
		layout: l,
		rot:    rot,
		target: opts.Target,
		home:   home,
		act:    act,
		state: State{
			Phase:           PhaseHomeEscape,
			CurrentQuadrant: home.Quadrant,
			ScanDirection:   rot.Clockwise(l.Quadrants[home.Quadrant].Facing),
			StorageEmpty:    true,
		},
	}
	e.result.Target = opts.Target
	return e, nil
}

// State returns a copy of the working state.
func (e *Engine) State() State {
	s := e.state
	s.Decoded = append([]int(nil), e.state.Decoded...)
	return s
}

// Actuator exposes the motion layer, mainly for tests and drive scripts.
func (e *Engine) Actuator() *Actuator { return e.act }

// Result returns the outcome so far.
func (e *Engine) Result() Result {
	r := e.result
	r.Actions = e.act.Actions()
	r.QuadrantsFinished = e.state.QuadrantsFinished
	r.Final = e.act.Pose().Center()
	r.AnomalyLog = append([]ScanAnomaly(nil), e.result.AnomalyLog...)
	r.Anomalies = len(r.AnomalyLog)
	return r
}

// Run steps the engine until it finishes, the action budget runs out or ctx
// is cancelled. A budget overrun returns StatusAborted with an error that
// matches ErrActionBudget.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	if e.act.Actions() == 0 {
		e.act.SetPhase(e.state.Phase)
		e.act.Announce()
	}
	for !e.state.Finished {
		if err := ctx.Err(); err != nil {
			e.abort()
			return e.Result(), err
		}
		if err := e.Step(); err != nil {
			e.abort()
			return e.Result(), fmt.Errorf("search stopped in %s after %d actions: %w",
				e.state.Phase, e.act.Actions(), err)
		}
	}
	return e.Result(), nil
}

func (e *Engine) abort() {
	e.state.Finished = true
	e.result.Status = StatusAborted
	monitoring.Logf("search: aborted in %s at %s", e.state.Phase, e.act.Pose())
}

// Step runs the current phase handler and hands over to the phase it
// returns.
func (e *Engine) Step() error {
	if e.state.Finished {
		return ErrFinished
	}

	var (
		next Phase
		err  error
	)
	switch e.state.Phase {
	case PhaseHomeEscape:
		next, err = e.escape()
	case PhaseShelfScan:
		next, err = e.shelfScan()
	case PhaseBarcodeBacktrack:
		next, err = e.backtrack()
	case PhasePickup:
		next, err = e.pickup()
	case PhaseQuadrantTransition:
		next, err = e.quadrantTransition()
	case PhaseHomeReturn:
		next, err = e.homeReturn()
	default:
		return fmt.Errorf("no handler for phase %s", e.state.Phase)
	}
	if err != nil {
		return err
	}
	return e.transition(next)
}

func (e *Engine) transition(next Phase) error {
	if !CanTransition(e.state.Phase, next) {
		return &TransitionError{From: e.state.Phase, To: next}
	}
	monitoring.Logf("search: %s -> %s at %s", e.state.Phase, next, e.act.Pose())
	e.state.Phase = next
	e.act.SetPhase(next)
	if next == PhaseDone {
		e.state.Finished = true
	}
	return nil
}

// sidestep turns toward the scan direction, moves n cells (backwards when
// n is negative) and turns back to face the shelf.
func (e *Engine) sidestep(n int) error {
	if err := e.act.TurnRight(); err != nil {
		return err
	}
	var err error
	if n >= 0 {
		err = e.act.Forward(n)
	} else {
		err = e.act.Backward(-n)
	}
	if err != nil {
		return err
	}
	return e.act.TurnLeft()
}

// escape drives from the home corner to the entry of the home's quadrant.
func (e *Engine) escape() (Phase, error) {
	m := e.layout.Maneuvers
	q := e.layout.Quadrants[e.home.Quadrant]

	if err := e.act.Forward(m.EscapeForward); err != nil {
		return 0, err
	}

	pose := e.act.Pose()
	if dx := q.Entry.X - pose.Center().X; dx != 0 {
		want, dist := geom.Right, dx
		if dx < 0 {
			want, dist = geom.Left, -dx
		}
		right := e.rot.Clockwise(pose.Direction()) == want
		turn, back := e.act.TurnLeft, e.act.TurnRight
		if right {
			turn, back = e.act.TurnRight, e.act.TurnLeft
		}
		if err := turn(); err != nil {
			return 0, err
		}
		if err := e.act.Forward(dist); err != nil {
			return 0, err
		}
		if err := back(); err != nil {
			return 0, err
		}
	}

	if c := e.act.Pose().Center(); c != q.Entry {
		monitoring.Logf("search: escape ended at %s, correcting to entry %s", c, q.Entry)
		if err := e.act.GoTo(q.Entry); err != nil {
			return 0, err
		}
	}
	if err := e.act.Face(q.Facing); err != nil {
		return 0, err
	}

	e.state.CurrentQuadrant = e.home.Quadrant
	e.state.ScanDirection = e.rot.Clockwise(q.Facing)
	e.state.Line = ShelfLine{}
	return PhaseShelfScan, nil
}

// shelfScan walks the current shelf line. It hands over to the backtrack
// on a detection and, once the head leaves the line, moves into the
// hallway past the line's end.
func (e *Engine) shelfScan() (Phase, error) {
	m := e.layout.Maneuvers
	scan := e.state.ScanDirection.Vec()

	if !e.state.Line.Active {
		begin := e.act.Pose().Center().X
		e.state.Line = ShelfLine{Begin: begin, End: begin + m.ShelfLength*scan.X, Active: true}
		monitoring.Logf("search: scanning shelf line %d..%d on row %d",
			e.state.Line.Begin, e.state.Line.End, e.act.Pose().Center().Y)
	}

	for e.state.Line.contains(e.act.Pose().Head().X) {
		if e.act.StorageFull() {
			if err := e.act.Forward(1); err != nil {
				return 0, err
			}
			continue
		}
		if e.act.Detect() {
			monitoring.Logf("search: box detected at %s", e.act.Pose().UltrasonicField())
			return PhaseBarcodeBacktrack, nil
		}
		if err := e.sidestep(m.PeekStride); err != nil {
			return 0, err
		}
	}

	line := e.state.Line
	e.state.Line = ShelfLine{}
	hall := geom.V(line.End+m.HallwayOffset*scan.X, e.act.Pose().Center().Y)
	if err := e.act.GoTo(hall); err != nil {
		return 0, err
	}

	if e.layout.IsQuadrantEnd(e.act.Pose().Center()) {
		e.state.QuadrantsFinished++
		monitoring.Logf("search: finished quadrant %d (%d of %d)",
			e.state.CurrentQuadrant, e.state.QuadrantsFinished, len(e.layout.Quadrants))
	}

	if e.act.StorageFull() || e.state.QuadrantsFinished >= len(e.layout.Quadrants) {
		return PhaseHomeReturn, nil
	}
	return PhaseQuadrantTransition, nil
}

// Approach is how the robot lines up its color probe after backtracking.
type Approach int

const (
	// ApproachIsolated re-enters from the near edge of a single box.
	ApproachIsolated Approach = iota
	// ApproachAdjacent overshoots a pair of touching boxes and re-enters
	// from the far edge.
	ApproachAdjacent
)

func (a Approach) String() string {
	if a == ApproachAdjacent {
		return "adjacent"
	}
	return "isolated"
}

// ChooseApproach picks the approach from the number of backward steps
// taken before the probes cleared. More than threshold steps means the
// robot backed along two touching boxes.
func ChooseApproach(backSteps, threshold int) Approach {
	if backSteps > threshold {
		return ApproachAdjacent
	}
	return ApproachIsolated
}

// backtrack backs off along a detected box until its edge, lines the color
// probe up with the first barcode cell and decodes the label.
func (e *Engine) backtrack() (Phase, error) {
	m := e.layout.Maneuvers
	scanRight := e.state.ScanDirection == geom.Right

	back := 0
	for e.act.Detect() {
		back++
		if err := e.sidestep(-1); err != nil {
			return 0, err
		}
	}
	e.state.BackSteps = back

	approach := ChooseApproach(back, m.AdjacentThreshold)
	monitoring.Logf("search: backed %d steps, %s approach", back, approach)

	switch approach {
	case ApproachAdjacent:
		if err := e.sidestep(m.AdjacentOvershoot); err != nil {
			return 0, err
		}
		for e.act.Detect() {
			if err := e.sidestep(1); err != nil {
				return 0, err
			}
		}
		steps := m.FarEdgeLeft
		if scanRight {
			steps = m.FarEdgeRight
		}
		if err := e.act.TurnRight(); err != nil {
			return 0, err
		}
		if err := e.act.Backward(steps); err != nil {
			return 0, err
		}
	default:
		steps := m.AlignLeft
		if scanRight {
			steps = m.AlignRight
		}
		if err := e.act.TurnRight(); err != nil {
			return 0, err
		}
		if err := e.act.Forward(steps); err != nil {
			return 0, err
		}
	}
	if err := e.act.TurnLeft(); err != nil {
		return 0, err
	}

	decoded, err := e.readBarcode()
	if err != nil {
		return 0, err
	}
	e.state.Decoded = decoded
	e.result.Scans = append(e.result.Scans, decoded)

	next := DecodeOutcome(e.target, decoded)
	monitoring.Logf("search: decoded %v, target %s, next %s", decoded, e.target, next)
	return next, nil
}

// readBarcode samples one bit per cell along the label. A position with no
// readable bit is logged as an anomaly and skipped.
func (e *Engine) readBarcode() ([]int, error) {
	code := make([]int, 0, config.BarcodeBits)
	for i := 0; i < config.BarcodeBits; i++ {
		if bit := e.act.ReadBit(); bit > 0 {
			code = append(code, bit)
		} else {
			e.recordAnomaly(i)
		}
		if err := e.sidestep(1); err != nil {
			return nil, err
		}
	}
	// Facing down, the probe sits one cell short of the label's end.
	if e.act.Pose().Direction() == geom.Down {
		if err := e.sidestep(1); err != nil {
			return nil, err
		}
	}
	return code, nil
}

func (e *Engine) recordAnomaly(bit int) {
	a := ScanAnomaly{
		Seq:   e.act.Actions(),
		Bit:   bit,
		Probe: e.act.Pose().ColorProbe(),
		Pose:  e.act.Pose().Center(),
	}
	e.result.AnomalyLog = append(e.result.AnomalyLog, a)
	monitoring.Logf("search: scan anomaly: no bit %d at probe %s", bit, a.Probe)
}

// DecodeOutcome returns PhasePickup only for an exact four-bit match.
func DecodeOutcome(target config.Barcode, decoded []int) Phase {
	if target.Matches(decoded) {
		return PhasePickup
	}
	return PhaseShelfScan
}

// pickup centers the storage slot on the decoded box, takes it and turns
// back onto the shelf line.
func (e *Engine) pickup() (Phase, error) {
	m := e.layout.Maneuvers

	if err := e.sidestep(-m.PickupBackoff); err != nil {
		return 0, err
	}
	if err := e.act.Forward(m.PickupApproach); err != nil {
		return 0, err
	}
	coord := e.act.PickupCoord(m.PickupReach)
	box, ok, err := e.act.Pickup(m.PickupReach)
	if err != nil {
		return 0, err
	}
	e.state.StorageEmpty = false
	if ok {
		e.result.Picked = &box
		monitoring.Logf("search: picked box %s at %s", box.Barcode, box.BottomLeft)
	} else {
		e.result.PickupMissed = true
		monitoring.Logf("search: pickup at %s found no box", coord)
	}
	if err := e.act.Backward(m.PickupRetreat); err != nil {
		return 0, err
	}
	if err := e.act.TurnRight(); err != nil {
		return 0, err
	}
	return PhaseShelfScan, nil
}

// quadrantTransition picks the next shelf line and drives to it. On a
// boundary row it jumps to the next quadrant's entry; elsewhere it slides
// along the hallway by the row's step and reverses the scan direction.
func (e *Engine) quadrantTransition() (Phase, error) {
	center := e.act.Pose().Center()
	scan := e.state.ScanDirection

	var next geom.Vec
	if e.layout.IsBoundaryRow(center.Y) {
		qi := (e.state.CurrentQuadrant + 1) % len(e.layout.Quadrants)
		q := e.layout.Quadrants[qi]
		e.state.CurrentQuadrant = qi
		next = q.Entry
		scan = e.rot.Clockwise(q.Facing)
		monitoring.Logf("search: moving to quadrant %d entry %s", qi, next)
	} else {
		step, ok := e.layout.HallwayStep(center.Y)
		if !ok {
			return 0, fmt.Errorf("%w %d at %s", ErrUnknownRow, center.Y, center)
		}
		facing := e.layout.Quadrants[e.state.CurrentQuadrant].Facing
		next = center.
			Add(facing.Vec().Scale(step)).
			Add(scan.Reverse().Vec().Scale(e.layout.Maneuvers.HallwayOffset))
		scan = scan.Reverse()
	}

	if err := e.act.GoTo(next); err != nil {
		return 0, err
	}
	e.state.ScanDirection = scan
	if err := e.act.Face(e.rot.CounterClockwise(scan)); err != nil {
		return 0, err
	}
	return PhaseShelfScan, nil
}

// homeReturn drives back to the starting corner.
func (e *Engine) homeReturn() (Phase, error) {
	if err := e.act.GoTo(e.home.Position); err != nil {
		return 0, err
	}
	e.result.Status = finalStatus(e.act.StorageFull(), e.result.Picked)
	switch e.result.Status {
	case StatusRetrieved:
		monitoring.Logf("search: home at %s with box", e.home.Position)
	case StatusPickupMissed:
		monitoring.Logf("search: home at %s with an empty pickup", e.home.Position)
	default:
		monitoring.Logf("search: searched %d quadrants, target %s not found",
			e.state.QuadrantsFinished, e.target)
	}
	return PhaseDone, nil
}
