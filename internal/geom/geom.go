// Package geom holds the integer-grid primitives shared by the pose model,
// the sensing board and the search engine.
//
// Coordinates follow the warehouse floor convention: x grows to the right,
// y grows upward, and a Vec names a single grid cell.
package geom

import "fmt"

// Vec is an integer grid coordinate or displacement.
type Vec struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// V is shorthand for Vec{X: x, Y: y}.
func V(x, y int) Vec { return Vec{X: x, Y: y} }

// Add returns v + o.
func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

// Scale returns v * k.
func (v Vec) Scale(k int) Vec { return Vec{v.X * k, v.Y * k} }

// Neg returns -v.
func (v Vec) Neg() Vec { return Vec{-v.X, -v.Y} }

// Min returns the component-wise minimum of v and o.
func (v Vec) Min(o Vec) Vec { return Vec{min(v.X, o.X), min(v.Y, o.Y)} }

func (v Vec) String() string { return fmt.Sprintf("(%d,%d)", v.X, v.Y) }

// Rect is an axis-aligned block of cells starting at Min and spanning W x H.
type Rect struct {
	Min Vec `json:"min"`
	W   int `json:"w"`
	H   int `json:"h"`
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Vec) bool {
	return p.X >= r.Min.X && p.X < r.Min.X+r.W && p.Y >= r.Min.Y && p.Y < r.Min.Y+r.H
}

// Cells calls fn for every cell of r, column by column.
func (r Rect) Cells(fn func(Vec)) {
	for x := r.Min.X; x < r.Min.X+r.W; x++ {
		for y := r.Min.Y; y < r.Min.Y+r.H; y++ {
			fn(Vec{x, y})
		}
	}
}

// Bounds is an inclusive rectangular region, used for quadrant tables.
type Bounds struct {
	MinX int `json:"min_x" yaml:"min_x"`
	MaxX int `json:"max_x" yaml:"max_x"`
	MinY int `json:"min_y" yaml:"min_y"`
	MaxY int `json:"max_y" yaml:"max_y"`
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Vec) bool {
	return b.MinX <= p.X && p.X <= b.MaxX && b.MinY <= p.Y && p.Y <= b.MaxY
}
