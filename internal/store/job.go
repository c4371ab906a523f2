// Package store defines the Job record and the durable JobStore contract.
// Concrete backends live in sub-packages (pg for Postgres, memstore for
// in-process use in tests and standalone mode).
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType enumerates the kinds of delivery a Job performs. Only HTTP is
// supported; the field exists so a future delivery mechanism doesn't require
// a schema migration.
type JobType string

const (
	JobTypeHTTP JobType = "HTTP"
)

// ScheduleType selects which of the three schedule representations a Job uses.
type ScheduleType string

const (
	ScheduleCron         ScheduleType = "CRON"
	ScheduleSpecificTime ScheduleType = "SPECIFIC_TIME"
	ScheduleRecurring    ScheduleType = "RECURRING"
)

// Interval is the unit for a RECURRING schedule's interval_value.
type Interval string

const (
	IntervalMinute Interval = "MINUTE"
	IntervalHour   Interval = "HOUR"
	IntervalDay    Interval = "DAY"
	IntervalWeek   Interval = "WEEK"
	IntervalMonth  Interval = "MONTH"
	IntervalYear   Interval = "YEAR"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusFailed   Status = "FAILED"
)

// Job is the primary entity (spec.md §3).
type Job struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	Type        JobType   `json:"type" db:"type"`
	Target      string    `json:"target" db:"target"`
	Payload     json.RawMessage `json:"payload,omitempty" db:"payload"`

	ScheduleType   ScheduleType `json:"schedule_type" db:"schedule_type"`
	CronExpression string       `json:"cron_expression,omitempty" db:"cron_expression"`
	SpecificTime   *time.Time   `json:"specific_time,omitempty" db:"specific_time"`
	IntervalUnit   Interval     `json:"interval,omitempty" db:"interval_unit"`
	IntervalValue  int          `json:"interval_value,omitempty" db:"interval_value"`

	Status Status `json:"status" db:"status"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	LastRun   *time.Time `json:"last_run,omitempty" db:"last_run"`
	NextRun   *time.Time `json:"next_run,omitempty" db:"next_run"`

	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`
}

// Filter narrows a List call. Zero value lists everything.
type Filter struct {
	Status Status
}

// Fields patches a subset of a Job's editable attributes. A nil pointer means
// "leave unchanged"; ScheduleType is required whenever any schedule field is
// set, since the schedule must be replaced as a unit.
type Fields struct {
	Name           *string
	Description    *string
	Target         *string
	Payload        json.RawMessage
	ScheduleType   *ScheduleType
	CronExpression *string
	SpecificTime   *time.Time
	IntervalUnit   *Interval
	IntervalValue  *int
	Status         *Status
	NextRun        *time.Time
	// ClearNextRun explicitly nulls next_run — used when a schedule becomes
	// dormant (e.g. SPECIFIC_TIME moved into the past). Ignored if NextRun
	// is also set.
	ClearNextRun bool
}

// JobStore is the durable store contract (spec.md §4.2). Implementations must
// be transactional per call (single-row atomicity) and give the caller
// read-your-writes consistency.
type JobStore interface {
	Insert(ctx context.Context, job *Job) error
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	List(ctx context.Context, filter Filter) ([]*Job, error)
	Update(ctx context.Context, id uuid.UUID, fields Fields) (*Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMessage string) (*Job, error)
	Delete(ctx context.Context, id uuid.UUID) (*Job, error)
	RecordRun(ctx context.Context, id uuid.UUID, lastRun time.Time, nextRun *time.Time) (*Job, error)
}
