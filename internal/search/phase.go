package search

import (
	"fmt"
	"slices"
)

// Phase is the engine's explicit state.
type Phase uint8

const (
	PhaseHomeEscape Phase = iota
	PhaseShelfScan
	PhaseBarcodeBacktrack
	PhasePickup
	PhaseQuadrantTransition
	PhaseHomeReturn
	PhaseDone
)

var phaseNames = [...]string{
	PhaseHomeEscape:         "home_escape",
	PhaseShelfScan:          "shelf_scan",
	PhaseBarcodeBacktrack:   "barcode_backtrack",
	PhasePickup:             "pickup",
	PhaseQuadrantTransition: "quadrant_transition",
	PhaseHomeReturn:         "home_return",
	PhaseDone:               "done",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a name produced by String.
func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Transitions lists the phases each phase may hand over to. Step rejects
// anything else.
var Transitions = map[Phase][]Phase{
	PhaseHomeEscape:         {PhaseShelfScan},
	PhaseShelfScan:          {PhaseBarcodeBacktrack, PhaseQuadrantTransition, PhaseHomeReturn},
	PhaseBarcodeBacktrack:   {PhasePickup, PhaseShelfScan},
	PhasePickup:             {PhaseShelfScan},
	PhaseQuadrantTransition: {PhaseShelfScan},
	PhaseHomeReturn:         {PhaseDone},
	PhaseDone:               nil,
}

// CanTransition reports whether from may hand over to to.
func CanTransition(from, to Phase) bool {
	return slices.Contains(Transitions[from], to)
}
