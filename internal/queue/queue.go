// Package queue defines the dispatch queue contract (spec.md §4.3): delayed
// and repeating entries ordered by due time, plus a separate dead-letter
// sub-queue that is never auto-consumed.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/open-crosspost/scheduler-service/internal/schedule"
)

// Entry is one pending dispatch. Plan is the zero RepeatPlan for a one-shot
// entry (SPECIFIC_TIME, or a RECURRING MONTH/YEAR tick that must be
// recomputed per-dispatch by the worker rather than re-enqueued here). A
// non-zero Plan means the queue itself re-arms the entry for its next
// occurrence when Consume claims it (spec.md §4.3: "registration persists
// until removed").
type Entry struct {
	JobID uuid.UUID
	DueAt time.Time
	Plan  schedule.RepeatPlan
}

// DLQEntry records why a job's delivery ended up in the dead-letter queue.
type DLQEntry struct {
	JobID     uuid.UUID
	Reason    string
	FailedAt  time.Time
	Attempts  int
}

// DispatchQueue is the at-least-once delivery queue backing the Delivery
// Worker. Consume must not return the same due entry to two concurrent
// callers (spec.md §5 invariant).
type DispatchQueue interface {
	// EnqueueDelayed schedules a one-shot dispatch at dueAt.
	EnqueueDelayed(ctx context.Context, jobID uuid.UUID, dueAt time.Time) error

	// EnqueueRepeating registers a persisting dispatch at dueAt per plan
	// (cron or fixed period). The registration survives past its first
	// occurrence: Consume re-arms it for the next occurrence rather than
	// consuming it once.
	EnqueueRepeating(ctx context.Context, jobID uuid.UUID, dueAt time.Time, plan schedule.RepeatPlan) error

	// Remove cancels any pending entry for jobID (update, delete).
	Remove(ctx context.Context, jobID uuid.UUID) error

	// Consume atomically claims up to max due entries. A claimed entry with
	// a non-zero Plan is immediately re-armed for its next occurrence before
	// Consume returns, so the registration persists; a zero-Plan entry is
	// removed and it is the caller's responsibility to re-enqueue or
	// dead-letter it.
	Consume(ctx context.Context, max int) ([]Entry, error)

	// EnqueueDLQ moves a failed job into the dead-letter sub-queue.
	EnqueueDLQ(ctx context.Context, entry DLQEntry) error

	// RemoveDLQ removes a job from the dead-letter sub-queue (after
	// Reactivate or Delete).
	RemoveDLQ(ctx context.Context, jobID uuid.UUID) error

	// ListDLQ returns every entry currently dead-lettered.
	ListDLQ(ctx context.Context) ([]DLQEntry, error)
}
