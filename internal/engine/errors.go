package engine

import "errors"

// Sentinel errors the Coordinator returns, mapped by the REST layer to the
// status codes in spec.md §6.
var (
	// ErrInvalidSchedule covers both "wrong fields for schedule_type" and
	// "schedule computes no valid next_run" (spec.md §4.5 steps 1-2, 5).
	ErrInvalidSchedule = errors.New("engine: invalid schedule")

	// ErrSpecificTimeInPast is returned by Create when schedule_type is
	// SPECIFIC_TIME and the instant has already passed. The Job row is kept,
	// dormant, with a null next_run (spec.md §4.5 step 4).
	ErrSpecificTimeInPast = errors.New("engine: specific_time is in the past")

	ErrNotFound = errors.New("engine: job not found")
	ErrConflict = errors.New("engine: job id already exists")
)
