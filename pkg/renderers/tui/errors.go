package tui

import "errors"

var (
	// ErrAborted signals the user quit the session (Ctrl+C or the Quit action).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoDriver is returned by New when no prompt driver is available.
	ErrNoDriver = errors.New("tui: prompt driver is nil")
)
