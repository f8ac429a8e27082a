// Package robot models the retrieval robot's pose on the warehouse grid and
// every piece of geometry derived from it.
//
// A Pose stores only a center and a head cell. The heading, the body
// corners, the sensor probes and the storage slot are recomputed from those
// two cells on every call so they can never fall out of step with the last
// movement.
package robot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/shelfbot/internal/geom"
)

// Body dimensions in grid cells.
const (
	HalfLength   = 3
	Length       = 2 * HalfLength
	Width        = 4
	StorageDepth = 4
	// ultrasonicReach is how far the probe pair sits beyond the head.
	ultrasonicReach = 2
)

// ErrGeometryInvariant is matched by every *GeometryInvariantError.
var ErrGeometryInvariant = errors.New("geometry invariant violated")

// GeometryInvariantError reports a center/head pair that is not one of the
// four canonical headings scaled by HalfLength.
type GeometryInvariantError struct {
	Center geom.Vec
	Head   geom.Vec
}

func (e *GeometryInvariantError) Error() string {
	return fmt.Sprintf("geometry invariant violated: head %s - center %s = %s is not a heading of length %d",
		e.Head, e.Center, e.Head.Sub(e.Center), HalfLength)
}

func (e *GeometryInvariantError) Unwrap() error { return ErrGeometryInvariant }

// Pose is the robot's kinematic state. The zero value is not a valid pose;
// use NewPose or PoseFromHead.
type Pose struct {
	center geom.Vec
	head   geom.Vec
	rot    geom.Rotation
}

// NewPose places the robot at center facing dir.
func NewPose(center geom.Vec, dir geom.Direction) Pose {
	return Pose{center: center, head: center.Add(dir.Vec().Scale(HalfLength))}
}

// PoseFromHead builds a pose from explicit center and head cells.
func PoseFromHead(center, head geom.Vec) (Pose, error) {
	p := Pose{center: center, head: head}
	if _, err := p.direction(); err != nil {
		return Pose{}, err
	}
	return p, nil
}

// WithRotation returns a copy of p that turns using r instead of
// geom.DefaultRotation.
func (p Pose) WithRotation(r geom.Rotation) Pose {
	p.rot = r
	return p
}

func (p Pose) rotation() geom.Rotation {
	if p.rot.CW == nil || p.rot.CCW == nil {
		return geom.DefaultRotation
	}
	return p.rot
}

// Center returns the center cell.
func (p Pose) Center() geom.Vec { return p.center }

// Head returns the head cell.
func (p Pose) Head() geom.Vec { return p.head }

func (p Pose) direction() (geom.Direction, error) {
	diff := p.head.Sub(p.center)
	if diff.X%HalfLength != 0 || diff.Y%HalfLength != 0 {
		return geom.Up, &GeometryInvariantError{Center: p.center, Head: p.head}
	}
	d, ok := geom.DirectionOf(geom.V(diff.X/HalfLength, diff.Y/HalfLength))
	if !ok {
		return geom.Up, &GeometryInvariantError{Center: p.center, Head: p.head}
	}
	return d, nil
}

// Direction derives the heading from head - center. It panics with a
// *GeometryInvariantError if the pair is not a canonical heading, which can
// only happen for a zero Pose.
func (p Pose) Direction() geom.Direction {
	d, err := p.direction()
	if err != nil {
		panic(err)
	}
	return d
}

// StepForward translates the robot n cells along its heading.
func (p *Pose) StepForward(n int) {
	delta := p.Direction().Vec().Scale(n)
	p.center = p.center.Add(delta)
	p.head = p.head.Add(delta)
}

// StepBackward translates the robot n cells against its heading.
func (p *Pose) StepBackward(n int) {
	delta := p.Direction().Vec().Scale(-n)
	p.center = p.center.Add(delta)
	p.head = p.head.Add(delta)
}

// TurnRight90 rotates the head a quarter turn clockwise about the center.
func (p *Pose) TurnRight90() {
	next := p.rotation().Clockwise(p.Direction())
	p.head = p.center.Add(next.Vec().Scale(HalfLength))
}

// TurnLeft90 rotates the head a quarter turn counter-clockwise about the center.
func (p *Pose) TurnLeft90() {
	next := p.rotation().CounterClockwise(p.Direction())
	p.head = p.center.Add(next.Vec().Scale(HalfLength))
}

// Corners walks clockwise from the head and returns the body corners as
// right-of-head, right-of-tail, left-of-tail, left-of-head.
func (p Pose) Corners() [4]geom.Vec {
	rot := p.rotation()
	dir := p.Direction()
	legs := [4]int{Width / 2, Length, Width, Length}

	var out [4]geom.Vec
	at := p.head
	for i, leg := range legs {
		dir = rot.Clockwise(dir)
		at = at.Add(dir.Vec().Scale(leg))
		out[i] = at
	}
	return out
}

// BoundingRectangle is Corners with both head-side corners pushed forward
// over the storage slot.
func (p Pose) BoundingRectangle() [4]geom.Vec {
	c := p.Corners()
	ext := p.Direction().Vec().Scale(StorageDepth)
	c[0] = c[0].Add(ext)
	c[3] = c[3].Add(ext)
	return c
}

// BottomLeft returns the lowest-x, lowest-y body corner.
func (p Pose) BottomLeft() geom.Vec {
	c := p.Corners()
	bl := c[0]
	for _, v := range c[1:] {
		bl = bl.Min(v)
	}
	return bl
}

// Footprint is the block of cells the body occupies on the board.
func (p Pose) Footprint() geom.Rect {
	if p.Direction().Vertical() {
		return geom.Rect{Min: p.BottomLeft(), W: Width, H: Length}
	}
	return geom.Rect{Min: p.BottomLeft(), W: Length, H: Width}
}

// UltrasonicField returns the two probe cells ahead of the head, right
// probe first.
func (p Pose) UltrasonicField() [2]geom.Vec {
	rot := p.rotation()
	dir := p.Direction()
	c := p.Corners()
	ahead := dir.Vec().Scale(ultrasonicReach)

	right := c[0].Add(rot.CounterClockwise(dir).Vec()).Add(ahead)
	left := c[3].Add(rot.Clockwise(dir).Vec()).Add(ahead)
	return [2]geom.Vec{right, left}
}

// ColorProbe returns the color sensor cell on the head's left side.
func (p Pose) ColorProbe() geom.Vec {
	bl := p.BottomLeft()
	switch p.Direction() {
	case geom.Up:
		return bl.Add(geom.V(0, Length))
	case geom.Down:
		return bl.Add(geom.V(Width-1, -1))
	case geom.Right:
		return bl.Add(geom.V(Length, Width-1))
	default:
		return bl.Add(geom.V(-1, 0))
	}
}

// StorageSlot is the 4x4 block at the head end that holds a picked box.
func (p Pose) StorageSlot() geom.Rect {
	bl := p.BottomLeft()
	switch p.Direction() {
	case geom.Up:
		bl = bl.Add(geom.V(0, Length-StorageDepth))
	case geom.Right:
		bl = bl.Add(geom.V(Length-StorageDepth, 0))
	}
	return geom.Rect{Min: bl, W: StorageDepth, H: StorageDepth}
}

// Hallway is the quadrant index for any center outside every quadrant.
const Hallway = 4

// Quadrant classifies the center against bounds, returning the first
// matching index or Hallway.
func (p Pose) Quadrant(bounds []geom.Bounds) int {
	for i, b := range bounds {
		if b.Contains(p.center) {
			return i
		}
	}
	return Hallway
}

func (p Pose) String() string {
	d, err := p.direction()
	if err != nil {
		return fmt.Sprintf("pose{center=%s head=%s invalid}", p.center, p.head)
	}
	return fmt.Sprintf("pose{center=%s facing %s}", p.center, d)
}

// Geometry is a flattened copy of every derived accessor, for snapshots.
type Geometry struct {
	Direction         geom.Direction `json:"direction"`
	Corners           [4]geom.Vec    `json:"corners"`
	BoundingRectangle [4]geom.Vec    `json:"bounding_rectangle"`
	BottomLeft        geom.Vec       `json:"bottom_left"`
	Footprint         geom.Rect      `json:"footprint"`
	Ultrasonic        [2]geom.Vec    `json:"ultrasonic"`
	ColorProbe        geom.Vec       `json:"color_probe"`
	Storage           geom.Rect      `json:"storage"`
	Quadrant          int            `json:"quadrant"`
}

// Geometry evaluates every derived accessor once.
func (p Pose) Geometry(bounds []geom.Bounds) Geometry {
	return Geometry{
		Direction:         p.Direction(),
		Corners:           p.Corners(),
		BoundingRectangle: p.BoundingRectangle(),
		BottomLeft:        p.BottomLeft(),
		Footprint:         p.Footprint(),
		Ultrasonic:        p.UltrasonicField(),
		ColorProbe:        p.ColorProbe(),
		Storage:           p.StorageSlot(),
		Quadrant:          p.Quadrant(bounds),
	}
}

type poseJSON struct {
	Center    geom.Vec       `json:"center"`
	Head      geom.Vec       `json:"head"`
	Direction geom.Direction `json:"direction"`
}

// MarshalJSON encodes the center, head and derived heading.
func (p Pose) MarshalJSON() ([]byte, error) {
	d, err := p.direction()
	if err != nil {
		return nil, err
	}
	return json.Marshal(poseJSON{Center: p.center, Head: p.head, Direction: d})
}

// UnmarshalJSON restores a pose from center and head, validating the pair.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var raw poseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := PoseFromHead(raw.Center, raw.Head)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
