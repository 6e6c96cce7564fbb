package wizard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStepBlocked is returned when Advance is attempted while the current
	// step still has missing or invalid fields.
	ErrStepBlocked = errors.New("wizard: step blocked")
	// ErrIncomplete is returned when Submit is attempted while any step is
	// not satisfied.
	ErrIncomplete = errors.New("wizard: form incomplete")
	// ErrNotTerminal is returned when Submit is attempted before the last step.
	ErrNotTerminal = errors.New("wizard: not on the terminal step")
	// ErrSubmitInFlight is returned when Submit is called while a previous
	// submission has not returned yet.
	ErrSubmitInFlight = errors.New("wizard: submission already in flight")
	// ErrNoSteps is returned by New for definitions without steps.
	ErrNoSteps = errors.New("wizard: definition has no steps")
)

// BlockedError lists the fields holding a step back.
type BlockedError struct {
	Step   int
	StepID string
	Fields []string
	Err    error
}

func (e *BlockedError) Error() string {
	if e == nil {
		return ""
	}
	base := ErrStepBlocked
	if e.Err != nil {
		base = e.Err
	}
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s at %q", base, e.StepID)
	}
	return fmt.Sprintf("%s at %q: %s", base, e.StepID, strings.Join(e.Fields, ", "))
}

func (e *BlockedError) Unwrap() error {
	if e == nil || e.Err == nil {
		return ErrStepBlocked
	}
	return e.Err
}
