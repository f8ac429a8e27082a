// Package board holds the sensed state of the warehouse floor: the registry
// of placed boxes and the integer grid the robot's sensors read from.
package board

import (
	"slices"

	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/geom"
)

// Cell codes. Barcode bits use config.Black and config.White directly.
const (
	Empty = 0
	Edge  = 10
	Robot = 15
)

// Board is a raster of cell codes over the layout extent. Cell (x, y) is
// stored at column x, row y+rowOffset so the home row below y=0 fits.
type Board struct {
	cells     [][]int
	rowOffset int

	bottomFace []int
	topFace    []int
	boxSide    int
}

// New allocates an empty board sized for l.
func New(l *config.Layout) *Board {
	cells := make([][]int, l.Width)
	for x := range cells {
		cells[x] = make([]int, l.Height)
	}
	return &Board{
		cells:      cells,
		rowOffset:  l.RowOffset,
		bottomFace: l.BottomFaceRows,
		topFace:    l.TopFaceRows,
		boxSide:    l.BoxSide,
	}
}

func (b *Board) index(p geom.Vec) (int, int, bool) {
	x, y := p.X, p.Y+b.rowOffset
	if x < 0 || x >= len(b.cells) || y < 0 || y >= len(b.cells[x]) {
		return 0, 0, false
	}
	return x, y, true
}

// At returns the code at p. Cells off the board read as Empty.
func (b *Board) At(p geom.Vec) int {
	x, y, ok := b.index(p)
	if !ok {
		return Empty
	}
	return b.cells[x][y]
}

// Set writes code at p. Writes off the board are dropped.
func (b *Board) Set(p geom.Vec, code int) {
	if x, y, ok := b.index(p); ok {
		b.cells[x][y] = code
	}
}

// Clear resets every cell to Empty.
func (b *Board) Clear() {
	for x := range b.cells {
		clear(b.cells[x])
	}
}

// Rebuild clears the board, stamps every box and then the robot footprint.
// It must run after any change to the boxes or the pose.
func (b *Board) Rebuild(boxes []Box, footprint geom.Rect) {
	b.Clear()
	for _, box := range boxes {
		b.stampBox(box)
	}
	footprint.Cells(func(p geom.Vec) { b.Set(p, Robot) })
}

// stampBox draws the labelled edge of a box. Shelves are back to back, so a
// box on a bottom-face row shows its edge on its own row with the barcode
// just inside, reading left to right, and a box on a top-face row shows it
// on its top row reading right to left.
func (b *Board) stampBox(box Box) {
	bl := box.BottomLeft
	switch {
	case slices.Contains(b.bottomFace, bl.Y):
		for i := 0; i < b.boxSide; i++ {
			b.Set(geom.V(bl.X+i, bl.Y), Edge)
			b.Set(geom.V(bl.X+i, bl.Y+1), box.Barcode[i])
		}
	case slices.Contains(b.topFace, bl.Y):
		top := bl.Add(geom.V(b.boxSide, b.boxSide))
		for i := 0; i < b.boxSide; i++ {
			b.Set(geom.V(top.X-i, top.Y), Edge)
			b.Set(geom.V(top.X-i, top.Y-1), box.Barcode[i])
		}
	}
}

// Cells returns a copy of the raw grid, indexed [x][y+rowOffset].
func (b *Board) Cells() [][]int {
	out := make([][]int, len(b.cells))
	for x := range b.cells {
		out[x] = slices.Clone(b.cells[x])
	}
	return out
}

// Count returns how many cells hold code.
func (b *Board) Count(code int) int {
	n := 0
	for x := range b.cells {
		for _, v := range b.cells[x] {
			if v == code {
				n++
			}
		}
	}
	return n
}
