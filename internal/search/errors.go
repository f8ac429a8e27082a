package search

import (
	"errors"
	"fmt"
)

var (
	// ErrActionBudget is returned once the configured number of atomic
	// actions has been spent.
	ErrActionBudget = errors.New("action budget exhausted")
	// ErrUnknownRow is returned when a quadrant transition starts from a
	// row that has no hallway step and is not a boundary row.
	ErrUnknownRow = errors.New("no hallway step for row")
	// ErrFinished is returned by Step after the engine reached PhaseDone.
	ErrFinished = errors.New("search finished")
	// ErrIllegalTransition matches every *TransitionError.
	ErrIllegalTransition = errors.New("illegal phase transition")
)

// TransitionError reports a phase handler asking for a hand-over that the
// Transitions table forbids.
type TransitionError struct {
	From, To Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal phase transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }
