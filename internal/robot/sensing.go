package robot

import "github.com/banshee-data/shelfbot/internal/geom"

// Sensor is the read side of the grid board.
type Sensor interface {
	At(p geom.Vec) int
}

// ColorRange is the length of the color sensor's beam in cells.
const ColorRange = 7

// NoBit is returned by ScanColorBit when the beam finds no barcode cell.
const NoBit = -1

// barcode bits are the only codes strictly between empty (0) and edge (10).
func isBit(v int) bool { return v > 0 && v < 10 }

// UltrasonicDetection reports whether either ultrasonic probe cell is
// occupied.
func (p Pose) UltrasonicDetection(s Sensor) bool {
	for _, c := range p.UltrasonicField() {
		if s.At(c) != 0 {
			return true
		}
	}
	return false
}

// ScanColorBit casts the color beam from the probe along the heading and
// returns the first barcode bit it meets, or NoBit.
func (p Pose) ScanColorBit(s Sensor) int {
	origin := p.ColorProbe()
	step := p.Direction().Vec()
	for i := 1; i <= ColorRange; i++ {
		if v := s.At(origin.Add(step.Scale(i))); isBit(v) {
			return v
		}
	}
	return NoBit
}
