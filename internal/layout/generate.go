// Package layout places boxes on the shelves and rocks in the hallways.
// Placement is seeded so a run can be replayed exactly.
package layout

import (
	"math/rand/v2"
	"slices"

	"github.com/banshee-data/shelfbot/internal/board"
	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/geom"
)

// Rock sizes are drawn from [minRockSize, maxRockSize].
const (
	minRockSize = 2
	maxRockSize = 5
)

// Options controls a placement.
type Options struct {
	Target config.Barcode
	Seed   int64
	Rocks  int
	// GuaranteeTarget relabels one random box with Target when the draw
	// produced none.
	GuaranteeTarget bool
}

// Placement is the generated floor contents.
type Placement struct {
	Boxes []board.Box  `json:"boxes"`
	Rocks []board.Rock `json:"rocks"`
}

// Generate draws boxes and rocks for l.
func Generate(l *config.Layout, opts Options) Placement {
	seed := uint64(opts.Seed)
	rng := rand.New(rand.NewPCG(seed, seed^0x5deece66d))

	boxes := GenerateBoxes(l, opts.Target, rng)
	if opts.GuaranteeTarget {
		EnsureTarget(boxes, opts.Target, rng)
	}
	return Placement{
		Boxes: boxes,
		Rocks: GenerateRocks(l, opts.Rocks, rng),
	}
}

// shelfRows returns every stamped row in ascending order.
func shelfRows(l *config.Layout) []int {
	rows := append(slices.Clone(l.BottomFaceRows), l.TopFaceRows...)
	slices.Sort(rows)
	return slices.Compact(rows)
}

// GenerateBoxes places BoxesPerRegion boxes per region on every shelf row.
// Boxes sharing a row and region are at least MinBoxSpacing apart.
func GenerateBoxes(l *config.Layout, target config.Barcode, rng *rand.Rand) []board.Box {
	var boxes []board.Box
	for _, y := range shelfRows(l) {
		for _, region := range l.BoxRegions {
			for _, x := range spacedColumns(rng, region, l.BoxesPerRegion, l.MinBoxSpacing) {
				code := l.Barcodes[rng.IntN(len(l.Barcodes))]
				boxes = append(boxes, board.Box{
					BottomLeft: geom.V(x, y),
					Barcode:    code,
					Wanted:     code == target,
				})
			}
		}
	}
	return boxes
}

// spacedColumns draws n columns in [span.From, span.To) that are pairwise at
// least spacing apart, redrawing the whole set on a collision.
func spacedColumns(rng *rand.Rand, span config.Span, n, spacing int) []int {
	width := span.To - span.From
	if width <= 0 || n <= 0 {
		return nil
	}
	if (n-1)*spacing >= width {
		// Cannot fit; fall back to evenly spaced columns.
		out := make([]int, n)
		for i := range out {
			out[i] = span.From + i*width/n
		}
		return out
	}
	out := make([]int, n)
	for {
		for i := range out {
			out[i] = span.From + rng.IntN(width)
		}
		if wellSpaced(out, spacing) {
			return out
		}
	}
}

func wellSpaced(cols []int, spacing int) bool {
	for i := range cols {
		for j := i + 1; j < len(cols); j++ {
			d := cols[i] - cols[j]
			if d < 0 {
				d = -d
			}
			if d < spacing {
				return false
			}
		}
	}
	return true
}

// EnsureTarget relabels a random box with target if none carries it.
// It reports whether a box was changed.
func EnsureTarget(boxes []board.Box, target config.Barcode, rng *rand.Rand) bool {
	if len(boxes) == 0 {
		return false
	}
	for _, b := range boxes {
		if b.Barcode == target {
			return false
		}
	}
	i := rng.IntN(len(boxes))
	boxes[i].Barcode = target
	boxes[i].Wanted = true
	return true
}

// GenerateRocks scatters n rocks inside the vertical hallways. No single
// vertical or horizontal hallway receives more than half of the rocks
// (at least one is always allowed).
func GenerateRocks(l *config.Layout, n int, rng *rand.Rand) []board.Rock {
	if n <= 0 || len(l.VerticalHallways) == 0 || len(l.HorizontalHallways) == 0 {
		return nil
	}
	limit := max(n/2, 1)
	perVert := make([]int, len(l.VerticalHallways))
	perHori := make([]int, len(l.HorizontalHallways))

	rocks := make([]board.Rock, 0, n)
	for range n {
		size := minRockSize + rng.IntN(maxRockSize-minRockSize+1)
		vi, ok := pickHallway(rng, perVert, limit)
		if !ok {
			break
		}
		hi, ok := pickHallway(rng, perHori, limit)
		if !ok {
			break
		}
		perVert[vi]++
		perHori[hi]++
		rocks = append(rocks, board.Rock{
			BottomLeft: geom.V(
				drawWithin(rng, l.VerticalHallways[vi], size),
				drawWithin(rng, l.HorizontalHallways[hi], size),
			),
			Size: size,
		})
	}
	return rocks
}

// pickHallway chooses uniformly among hallways still under limit.
func pickHallway(rng *rand.Rand, counts []int, limit int) (int, bool) {
	var open []int
	for i, c := range counts {
		if c < limit {
			open = append(open, i)
		}
	}
	if len(open) == 0 {
		return 0, false
	}
	return open[rng.IntN(len(open))], true
}

// drawWithin returns a start in [span.From, span.To-size] so an object of
// size fits inside span.
func drawWithin(rng *rand.Rand, span config.Span, size int) int {
	room := span.To - size - span.From
	if room <= 0 {
		return span.From
	}
	return span.From + rng.IntN(room+1)
}
