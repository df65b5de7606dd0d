package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrPrecondition is returned when a conditional state transition
	// matched no row: the ride exists but its current state failed the
	// transition guard (for example a concurrent assignment won the race).
	ErrPrecondition = errors.New("state precondition failed")
)
