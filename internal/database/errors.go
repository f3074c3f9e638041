package database

import "errors"

var (
	// ErrNotFound is returned when no row exists for the requested key.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a save loses an optimistic-concurrency race.
	// The caller must re-fetch, re-score, and retry the full cycle.
	ErrConflict = errors.New("record was modified concurrently")
)
