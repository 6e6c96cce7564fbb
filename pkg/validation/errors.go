package validation

import "errors"

var (
	// ErrUnknownRule is returned when a definition uses a rule kind the
	// validator does not implement.
	ErrUnknownRule = errors.New("validation: unknown rule")
	// ErrInvalidRule is returned when a rule's parameters cannot be parsed.
	ErrInvalidRule = errors.New("validation: invalid rule parameters")
)
