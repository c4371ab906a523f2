package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeliveryOutcome is the terminal result of one delivery attempt, recorded
// to delivery_log regardless of whether the job itself ends up ACTIVE or
// FAILED (spec.md §9's distinction between a single attempt and the job's
// retry-exhausted state is preserved at this finer grain).
type DeliveryOutcome string

const (
	DeliveryOutcomeSuccess DeliveryOutcome = "SUCCESS"
	DeliveryOutcomeFailure DeliveryOutcome = "FAILURE"
)

// DeliveryRecord is one row of the durable run log (SPEC_FULL.md §4's
// promotion of the teacher's in-memory RunLogEntry ring buffer).
type DeliveryRecord struct {
	ID          uuid.UUID
	JobID       uuid.UUID
	AttemptedAt time.Time
	Outcome     DeliveryOutcome
	ErrorClass  string // empty on success
	HTTPStatus  int    // 0 if the request never got a response
	DurationMS  int64
	BodyExcerpt string // truncated inline; full body lives under ArchiveKey
	ArchiveKey  string // empty unless the body overflowed to internal/archive
}

// DeliveryLogStore persists delivery attempts for the GET /jobs/:id/deliveries
// surface. Unlike JobStore it is append-only: there is no update or delete.
type DeliveryLogStore interface {
	Record(ctx context.Context, rec DeliveryRecord) error
	ListForJob(ctx context.Context, jobID uuid.UUID, limit int) ([]DeliveryRecord, error)
}
