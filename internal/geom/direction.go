package geom

import (
	"fmt"
	"strings"
)

// Direction is one of the four axis-aligned headings. No other heading is
// representable; the zero value is Up.
type Direction uint8

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Directions lists every heading in clockwise order starting at Up.
var Directions = [4]Direction{Up, Right, Down, Left}

var unitVectors = [4]Vec{
	Up:    {0, 1},
	Right: {1, 0},
	Down:  {0, -1},
	Left:  {-1, 0},
}

// Vec returns the unit vector of d.
func (d Direction) Vec() Vec { return unitVectors[d&3] }

// Reverse returns the opposite heading.
func (d Direction) Reverse() Direction { return (d + 2) & 3 }

// Vertical reports whether d is Up or Down.
func (d Direction) Vertical() bool { return d == Up || d == Down }

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// MarshalText encodes d by name so configs and snapshots stay readable.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText accepts the names produced by String, case-insensitively.
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection maps "up", "down", "left" or "right" to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "right":
		return Right, nil
	case "down":
		return Down, nil
	case "left":
		return Left, nil
	}
	return Up, fmt.Errorf("unknown direction %q", s)
}

// DirectionOf maps a unit vector back to its Direction. ok is false for any
// vector that is not one of the four canonical unit vectors.
func DirectionOf(v Vec) (d Direction, ok bool) {
	for _, d := range Directions {
		if unitVectors[d] == v {
			return d, true
		}
	}
	return Up, false
}

// Rotation is a pair of lookup tables giving the heading after a quarter turn.
// The tables are data rather than arithmetic so a layout may be validated
// against them, and so the inverse property can be tested directly.
type Rotation struct {
	CW  map[Direction]Direction
	CCW map[Direction]Direction
}

// DefaultRotation is the standard compass rotation.
var DefaultRotation = Rotation{
	CW:  map[Direction]Direction{Up: Right, Right: Down, Down: Left, Left: Up},
	CCW: map[Direction]Direction{Up: Left, Left: Down, Down: Right, Right: Up},
}

// Clockwise returns the heading after a right turn.
func (r Rotation) Clockwise(d Direction) Direction { return r.CW[d] }

// CounterClockwise returns the heading after a left turn.
func (r Rotation) CounterClockwise(d Direction) Direction { return r.CCW[d] }

// Validate checks that both tables cover all four headings and invert each other.
func (r Rotation) Validate() error {
	for _, d := range Directions {
		cw, ok := r.CW[d]
		if !ok {
			return fmt.Errorf("clockwise table missing %s", d)
		}
		if back, ok := r.CCW[cw]; !ok || back != d {
			return fmt.Errorf("rotation tables are not inverse at %s", d)
		}
	}
	if len(r.CW) != 4 || len(r.CCW) != 4 {
		return fmt.Errorf("rotation tables must cover exactly four headings")
	}
	return nil
}

// Clockwise turns d right using DefaultRotation.
func Clockwise(d Direction) Direction { return DefaultRotation.Clockwise(d) }

// CounterClockwise turns d left using DefaultRotation.
func CounterClockwise(d Direction) Direction { return DefaultRotation.CounterClockwise(d) }
