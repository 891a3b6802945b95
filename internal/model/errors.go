package model

import "errors"

var (
	// ErrNotFound is returned when no entry matches the requested word.
	ErrNotFound = errors.New("not found")

	// ErrEmptyGraph is returned by statistics queries when no snapshot has
	// been published, or the published snapshot covers zero entries.
	ErrEmptyGraph = errors.New("graph is empty; run a rebuild first")

	// ErrRebuildInProgress is returned when a rebuild is requested while
	// another one is running.
	ErrRebuildInProgress = errors.New("rebuild already in progress")

	// ErrInvalidInput marks caller mistakes such as an empty search prefix.
	ErrInvalidInput = errors.New("invalid input")
)
