package board

import (
	"slices"

	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/geom"
)

// Box is a placed shelf box. It never changes after placement.
type Box struct {
	BottomLeft geom.Vec       `json:"bottom_left"`
	Barcode    config.Barcode `json:"barcode"`
	Wanted     bool           `json:"wanted"`
}

// Rock is a square hallway obstacle. Rocks are drawn but never sensed.
type Rock struct {
	BottomLeft geom.Vec `json:"bottom_left"`
	Size       int      `json:"size"`
}

// Registry is the set of boxes still on the shelves.
type Registry struct {
	boxes []Box
}

// NewRegistry takes ownership of a copy of boxes.
func NewRegistry(boxes []Box) *Registry {
	return &Registry{boxes: slices.Clone(boxes)}
}

// Boxes returns a copy of the remaining boxes in placement order.
func (r *Registry) Boxes() []Box { return slices.Clone(r.boxes) }

// Len returns the number of boxes left.
func (r *Registry) Len() int { return len(r.boxes) }

// Wanted returns how many remaining boxes carry the target flag.
func (r *Registry) Wanted() int {
	n := 0
	for _, b := range r.boxes {
		if b.Wanted {
			n++
		}
	}
	return n
}

// pickupTolerance lists the offsets from a box's bottom-left that still
// count as a hit, in the order they are tried. Stepping drifts by at most
// one cell along the shelf.
var pickupTolerance = []geom.Vec{geom.V(0, 0), geom.V(1, 0), geom.V(-1, 0)}

// Remove deletes the first box whose bottom-left is at coord or one cell
// either side of it along x. It reports the removed box and whether any
// box matched.
func (r *Registry) Remove(coord geom.Vec) (Box, bool) {
	for i, b := range r.boxes {
		for _, off := range pickupTolerance {
			if b.BottomLeft.Add(off) == coord {
				r.boxes = slices.Delete(r.boxes, i, i+1)
				return b, true
			}
		}
	}
	return Box{}, false
}
