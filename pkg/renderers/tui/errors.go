package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrInvalidInput is returned by prompt validators for unparseable values.
	ErrInvalidInput = errors.New("tui: invalid input")
)
