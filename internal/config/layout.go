package config

import (
	"fmt"
	"slices"

	"github.com/banshee-data/shelfbot/internal/geom"
)

// Named defaults for the search maneuvers. The backtrack threshold and the
// alignment offsets are empirically tuned to a 4x6 robot reading 4x4 boxes;
// they are kept as-is rather than derived.
const (
	DefaultEscapeForward     = 13
	DefaultPeekStride        = 4
	DefaultShelfLength       = 38
	DefaultHallwayOffset     = 2
	DefaultAdjacentThreshold = 4
	DefaultAdjacentOvershoot = 10
	DefaultAlignRight        = 4
	DefaultAlignLeft         = 3
	DefaultFarEdgeRight      = 3
	DefaultFarEdgeLeft       = 4
	DefaultPickupBackoff     = 3
	DefaultPickupApproach    = 1
	DefaultPickupRetreat     = 1
	DefaultPickupReach       = 5
)

// Home is a start/end corner of the floor.
type Home struct {
	Position geom.Vec       `json:"position" yaml:"position"`
	Facing   geom.Direction `json:"facing" yaml:"facing"`
	Quadrant int            `json:"quadrant" yaml:"quadrant"`
}

// Quadrant describes one shelving region and how the search enters and leaves it.
type Quadrant struct {
	Entry  geom.Vec       `json:"entry" yaml:"entry"`
	End    geom.Vec       `json:"end" yaml:"end"`
	Facing geom.Direction `json:"facing" yaml:"facing"`
	Bounds geom.Bounds    `json:"bounds" yaml:"bounds"`
}

// RowStep is one entry of the hallway slide table.
type RowStep struct {
	Row  int `json:"row" yaml:"row"`
	Step int `json:"step" yaml:"step"`
}

// Span is a half-open integer interval [From, To).
type Span struct {
	From int `json:"from" yaml:"from"`
	To   int `json:"to" yaml:"to"`
}

// Maneuvers are the step counts the search engine uses.
type Maneuvers struct {
	EscapeForward     int `json:"escape_forward" yaml:"escape_forward"`
	PeekStride        int `json:"peek_stride" yaml:"peek_stride"`
	ShelfLength       int `json:"shelf_length" yaml:"shelf_length"`
	HallwayOffset     int `json:"hallway_offset" yaml:"hallway_offset"`
	AdjacentThreshold int `json:"adjacent_threshold" yaml:"adjacent_threshold"`
	AdjacentOvershoot int `json:"adjacent_overshoot" yaml:"adjacent_overshoot"`
	AlignRight        int `json:"align_right" yaml:"align_right"`
	AlignLeft         int `json:"align_left" yaml:"align_left"`
	FarEdgeRight      int `json:"far_edge_right" yaml:"far_edge_right"`
	FarEdgeLeft       int `json:"far_edge_left" yaml:"far_edge_left"`
	PickupBackoff     int `json:"pickup_backoff" yaml:"pickup_backoff"`
	PickupApproach    int `json:"pickup_approach" yaml:"pickup_approach"`
	PickupRetreat     int `json:"pickup_retreat" yaml:"pickup_retreat"`
	PickupReach       int `json:"pickup_reach" yaml:"pickup_reach"`
}

// Layout is the immutable table set describing the warehouse floor.
// It is injected into every component that needs a constant.
type Layout struct {
	// Width and Height are the board extent in cells. Board column = y + RowOffset.
	Width     int `json:"width" yaml:"width"`
	Height    int `json:"height" yaml:"height"`
	RowOffset int `json:"row_offset" yaml:"row_offset"`

	Homes     []Home     `json:"homes" yaml:"homes"`
	Barcodes  []Barcode  `json:"barcodes" yaml:"barcodes"`
	Quadrants []Quadrant `json:"quadrants" yaml:"quadrants"`

	HallwaySteps []RowStep `json:"hallway_steps" yaml:"hallway_steps"`
	BoundaryRows []int     `json:"boundary_rows" yaml:"boundary_rows"`

	// Shelves are back to back: boxes on BottomFaceRows show their label on
	// the low-y edge, boxes on TopFaceRows on the high-y edge.
	BottomFaceRows []int  `json:"bottom_face_rows" yaml:"bottom_face_rows"`
	TopFaceRows    []int  `json:"top_face_rows" yaml:"top_face_rows"`
	BoxSide        int    `json:"box_side" yaml:"box_side"`
	BoxRegions     []Span `json:"box_regions" yaml:"box_regions"`
	BoxesPerRegion int    `json:"boxes_per_region" yaml:"boxes_per_region"`
	MinBoxSpacing  int    `json:"min_box_spacing" yaml:"min_box_spacing"`

	VerticalHallways   []Span `json:"vertical_hallways" yaml:"vertical_hallways"`
	HorizontalHallways []Span `json:"horizontal_hallways" yaml:"horizontal_hallways"`

	Maneuvers Maneuvers `json:"maneuvers" yaml:"maneuvers"`
}

// DefaultLayout returns the 108x108 competition floor with four quadrants.
func DefaultLayout() *Layout {
	return &Layout{
		Width:     109,
		Height:    133,
		RowOffset: 12,
		Homes: []Home{
			{Position: geom.V(6, -6), Facing: geom.Up, Quadrant: 0},
			{Position: geom.V(102, -6), Facing: geom.Up, Quadrant: 1},
			{Position: geom.V(6, 114), Facing: geom.Down, Quadrant: 2},
			{Position: geom.V(102, 114), Facing: geom.Down, Quadrant: 3},
		},
		Barcodes: []Barcode{{1, 2, 2, 2}, {1, 2, 1, 2}, {1, 1, 2, 2}, {1, 2, 2, 1}},
		Quadrants: []Quadrant{
			{Entry: geom.V(12, 7), End: geom.V(10, 53), Facing: geom.Up, Bounds: geom.Bounds{MinX: 6, MaxX: 53, MinY: 5, MaxY: 53}},
			{Entry: geom.V(59, 7), End: geom.V(57, 53), Facing: geom.Up, Bounds: geom.Bounds{MinX: 55, MaxX: 102, MinY: 5, MaxY: 53}},
			{Entry: geom.V(49, 101), End: geom.V(51, 55), Facing: geom.Down, Bounds: geom.Bounds{MinX: 6, MaxX: 53, MinY: 55, MaxY: 103}},
			{Entry: geom.V(97, 101), End: geom.V(99, 55), Facing: geom.Down, Bounds: geom.Bounds{MinX: 55, MaxX: 102, MinY: 55, MaxY: 103}},
		},
		HallwaySteps: []RowStep{
			{Row: 7, Step: 22}, {Row: 31, Step: 22}, {Row: 77, Step: 22}, {Row: 101, Step: 22},
			{Row: 29, Step: 2}, {Row: 79, Step: 2},
		},
		BoundaryRows:       []int{53, 55},
		BottomFaceRows:     []int{12, 36, 60, 84},
		TopFaceRows:        []int{20, 44, 68, 92},
		BoxSide:            4,
		BoxRegions:         []Span{{From: 12, To: 44}, {From: 60, To: 92}},
		BoxesPerRegion:     2,
		MinBoxSpacing:      8,
		VerticalHallways:   []Span{{From: 0, To: 12}, {From: 48, To: 60}, {From: 96, To: 108}},
		HorizontalHallways: []Span{{From: 0, To: 36}, {From: 36, To: 60}, {From: 60, To: 84}, {From: 84, To: 102}},
		Maneuvers: Maneuvers{
			EscapeForward:     DefaultEscapeForward,
			PeekStride:        DefaultPeekStride,
			ShelfLength:       DefaultShelfLength,
			HallwayOffset:     DefaultHallwayOffset,
			AdjacentThreshold: DefaultAdjacentThreshold,
			AdjacentOvershoot: DefaultAdjacentOvershoot,
			AlignRight:        DefaultAlignRight,
			AlignLeft:         DefaultAlignLeft,
			FarEdgeRight:      DefaultFarEdgeRight,
			FarEdgeLeft:       DefaultFarEdgeLeft,
			PickupBackoff:     DefaultPickupBackoff,
			PickupApproach:    DefaultPickupApproach,
			PickupRetreat:     DefaultPickupRetreat,
			PickupReach:       DefaultPickupReach,
		},
	}
}

// HallwayStep returns the slide distance for a hallway row.
func (l *Layout) HallwayStep(row int) (int, bool) {
	for _, rs := range l.HallwaySteps {
		if rs.Row == row {
			return rs.Step, true
		}
	}
	return 0, false
}

// IsBoundaryRow reports whether row is a quadrant-boundary hallway row.
func (l *Layout) IsBoundaryRow(row int) bool { return slices.Contains(l.BoundaryRows, row) }

// IsQuadrantEnd reports whether p is one of the quadrant end coordinates.
func (l *Layout) IsQuadrantEnd(p geom.Vec) bool {
	for _, q := range l.Quadrants {
		if q.End == p {
			return true
		}
	}
	return false
}

// QuadrantBounds returns the classification table in quadrant order.
func (l *Layout) QuadrantBounds() []geom.Bounds {
	out := make([]geom.Bounds, len(l.Quadrants))
	for i, q := range l.Quadrants {
		out[i] = q.Bounds
	}
	return out
}

// HomeIndex returns the index of the home at p, or -1.
func (l *Layout) HomeIndex(p geom.Vec) int {
	for i, h := range l.Homes {
		if h.Position == p {
			return i
		}
	}
	return -1
}

// Validate checks the tables for internal consistency.
func (l *Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("layout extent must be positive, got %dx%d", l.Width, l.Height)
	}
	if l.RowOffset < 0 || l.RowOffset >= l.Height {
		return fmt.Errorf("row_offset %d outside board height %d", l.RowOffset, l.Height)
	}
	if len(l.Quadrants) != 4 {
		return fmt.Errorf("layout needs 4 quadrants, got %d", len(l.Quadrants))
	}
	if len(l.Homes) == 0 {
		return fmt.Errorf("layout needs at least one home")
	}
	for i, h := range l.Homes {
		if h.Quadrant < 0 || h.Quadrant >= len(l.Quadrants) {
			return fmt.Errorf("home %d: quadrant %d out of range", i, h.Quadrant)
		}
		if !h.Facing.Vertical() {
			return fmt.Errorf("home %d: facing must be up or down, got %s", i, h.Facing)
		}
	}
	for i, q := range l.Quadrants {
		if !q.Facing.Vertical() {
			return fmt.Errorf("quadrant %d: facing must be up or down, got %s", i, q.Facing)
		}
	}
	if len(l.Barcodes) == 0 {
		return fmt.Errorf("layout needs at least one barcode")
	}
	for i, b := range l.Barcodes {
		if !b.Valid() {
			return fmt.Errorf("barcode %d (%v) has bits other than 1 and 2", i, b)
		}
	}
	if len(l.BoundaryRows) == 0 {
		return fmt.Errorf("layout needs boundary rows")
	}
	for _, rs := range l.HallwaySteps {
		if rs.Step <= 0 {
			return fmt.Errorf("hallway step for row %d must be positive", rs.Row)
		}
	}
	if l.BoxSide != BarcodeBits {
		return fmt.Errorf("box_side must equal %d barcode bits, got %d", BarcodeBits, l.BoxSide)
	}
	m := l.Maneuvers
	for name, v := range map[string]int{
		"escape_forward": m.EscapeForward, "peek_stride": m.PeekStride,
		"shelf_length": m.ShelfLength, "adjacent_threshold": m.AdjacentThreshold,
		"pickup_reach": m.PickupReach,
	} {
		if v <= 0 {
			return fmt.Errorf("maneuver %s must be positive, got %d", name, v)
		}
	}
	return nil
}
