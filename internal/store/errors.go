package store

import "errors"

var (
	// ErrNotFound is returned when a Job with the given id does not exist.
	ErrNotFound = errors.New("job not found")

	// ErrConflict is returned by Insert when the id already exists.
	ErrConflict = errors.New("job already exists")
)
