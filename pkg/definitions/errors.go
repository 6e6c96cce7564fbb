package definitions

import "errors"

var (
	// ErrInvalidDefinition wraps every structural problem found by Check.
	ErrInvalidDefinition = errors.New("definitions: invalid definition")
	// ErrNotFound is returned when a catalogue has no definition for an id.
	ErrNotFound = errors.New("definitions: not found")
	// ErrDuplicate is returned when an id is registered twice.
	ErrDuplicate = errors.New("definitions: duplicate id")
)
