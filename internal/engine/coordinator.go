// Package engine implements the Engine Coordinator (spec.md §4.5): the
// façade the REST layer calls, enforcing the invariants between the Job
// Store and the Dispatch Queue on every multi-step operation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/open-crosspost/scheduler-service/internal/queue"
	"github.com/open-crosspost/scheduler-service/internal/schedule"
	"github.com/open-crosspost/scheduler-service/internal/store"
	"github.com/open-crosspost/scheduler-service/internal/tracing"
)

// Coordinator is the single entry point for job lifecycle operations.
type Coordinator struct {
	store store.JobStore
	queue queue.DispatchQueue
	now   func() time.Time
}

// New builds a Coordinator over the given Store and Queue.
func New(jobStore store.JobStore, dispatchQueue queue.DispatchQueue) *Coordinator {
	return &Coordinator{store: jobStore, queue: dispatchQueue, now: time.Now}
}

// Input is the caller-supplied job description for Create/Update.
type Input struct {
	Name           string
	Description    string
	Target         string
	Payload        []byte
	ScheduleType   store.ScheduleType
	CronExpression string
	SpecificTime   *time.Time
	IntervalUnit   store.Interval
	IntervalValue  int
	Status         store.Status // zero value defaults to ACTIVE on Create
}

func (in Input) toJob() *store.Job {
	return &store.Job{
		Name:           in.Name,
		Description:    in.Description,
		Type:           store.JobTypeHTTP,
		Target:         in.Target,
		Payload:        in.Payload,
		ScheduleType:   in.ScheduleType,
		CronExpression: in.CronExpression,
		SpecificTime:   in.SpecificTime,
		IntervalUnit:   in.IntervalUnit,
		IntervalValue:  in.IntervalValue,
	}
}

// Get reads a single job straight through to the Store; it carries no
// queue-consistency concerns of its own.
func (c *Coordinator) Get(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	job, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListAll reads jobs straight through to the Store, optionally filtered by
// status (e.g. the GET /jobs?status= query parameter).
func (c *Coordinator) ListAll(ctx context.Context, filter store.Filter) ([]*store.Job, error) {
	return c.store.List(ctx, filter)
}

// Create validates, persists, and schedules a new Job (spec.md §4.5 Create).
func (c *Coordinator) Create(ctx context.Context, in Input) (*store.Job, error) {
	ctx, span := tracing.StartCoordinatorSpan(ctx, "engine.Create", "")
	defer span.End()

	job, err := c.create(ctx, in)
	tracing.EndWithError(span, errorForSpan(err))
	return job, err
}

func errorForSpan(err error) error {
	if errors.Is(err, ErrSpecificTimeInPast) {
		return nil
	}
	return err
}

func (c *Coordinator) create(ctx context.Context, in Input) (*store.Job, error) {
	job := in.toJob()
	job.Status = in.Status
	if job.Status == "" {
		job.Status = store.StatusActive
	}

	if err := schedule.ValidateScheduleFields(job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if err := store.ValidateName(job.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if err := store.ValidatePayloadSize(job.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	now := c.now()
	specificTimeInPast := false

	if job.ScheduleType == store.ScheduleSpecificTime {
		delay := schedule.InitialDelay(job, now)
		if delay == nil {
			specificTimeInPast = true
		} else {
			job.NextRun = nextRunPtr(now.Add(*delay))
		}
	} else {
		next, err := schedule.NextRun(job, now)
		if err != nil || next == nil {
			return nil, ErrInvalidSchedule
		}
		job.NextRun = next
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	job.ID = id

	if err := c.store.Insert(ctx, job); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}

	if specificTimeInPast {
		// Row stays, dormant: next_run is null, no queue entry (spec.md
		// §4.5 step 4 / §3 invariant on past SPECIFIC_TIME).
		return job, ErrSpecificTimeInPast
	}

	if job.ScheduleType == store.ScheduleSpecificTime {
		if err := c.queue.EnqueueDelayed(ctx, job.ID, *job.NextRun); err != nil {
			return nil, fmt.Errorf("enqueue delayed: %w", err)
		}
		return job, nil
	}

	plan := schedule.RepeatPlanFor(job)
	if plan.IsZero() {
		// MONTH/YEAR and similar: no fixed period. Schedule the first tick as
		// a one-shot delayed entry; the Worker re-enqueues on each success
		// (spec.md §9).
		if err := c.queue.EnqueueDelayed(ctx, job.ID, *job.NextRun); err != nil {
			return nil, fmt.Errorf("enqueue delayed: %w", err)
		}
		return job, nil
	}

	if err := c.queue.EnqueueRepeating(ctx, job.ID, *job.NextRun, plan); err != nil {
		return nil, fmt.Errorf("enqueue repeating: %w", err)
	}
	return job, nil
}

// Update replaces a Job's fields and rewires its schedule, preserving id,
// created_at, and last_run (spec.md §4.5 Update).
func (c *Coordinator) Update(ctx context.Context, id uuid.UUID, in Input) (*store.Job, error) {
	existing, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	job := in.toJob()
	job.ID = id
	job.CreatedAt = existing.CreatedAt
	job.LastRun = existing.LastRun
	job.Status = in.Status
	if job.Status == "" {
		job.Status = existing.Status
	}

	if err := schedule.ValidateScheduleFields(job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if err := store.ValidateName(job.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if err := store.ValidatePayloadSize(job.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	now := c.now()
	specificTimeInPast := false
	var nextRun *time.Time
	if job.ScheduleType == store.ScheduleSpecificTime {
		delay := schedule.InitialDelay(job, now)
		if delay == nil {
			specificTimeInPast = true
		} else {
			nextRun = nextRunPtr(now.Add(*delay))
		}
	} else {
		next, err := schedule.NextRun(job, now)
		if err != nil || next == nil {
			return nil, ErrInvalidSchedule
		}
		nextRun = next
	}

	fields := store.Fields{
		Name:           &job.Name,
		Description:    &job.Description,
		Target:         &job.Target,
		Payload:        job.Payload,
		ScheduleType:   &job.ScheduleType,
		CronExpression: &job.CronExpression,
		SpecificTime:   job.SpecificTime,
		IntervalUnit:   &job.IntervalUnit,
		IntervalValue:  &job.IntervalValue,
		Status:         &job.Status,
		NextRun:        nextRun,
		ClearNextRun:   specificTimeInPast,
	}
	updated, err := c.store.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update job: %w", err)
	}

	if err := c.queue.Remove(ctx, id); err != nil {
		return nil, fmt.Errorf("remove stale queue entry: %w", err)
	}

	if specificTimeInPast {
		return updated, ErrSpecificTimeInPast
	}

	if job.ScheduleType == store.ScheduleSpecificTime {
		if err := c.queue.EnqueueDelayed(ctx, id, *nextRun); err != nil {
			return nil, fmt.Errorf("enqueue delayed: %w", err)
		}
		return updated, nil
	}

	plan := schedule.RepeatPlanFor(job)
	if plan.IsZero() {
		if err := c.queue.EnqueueDelayed(ctx, id, *nextRun); err != nil {
			return nil, fmt.Errorf("enqueue delayed: %w", err)
		}
	} else if err := c.queue.EnqueueRepeating(ctx, id, *nextRun, plan); err != nil {
		return nil, fmt.Errorf("enqueue repeating: %w", err)
	}
	return updated, nil
}

func nextRunPtr(t time.Time) *time.Time { return &t }

// Delete removes a Job and its queue entries (spec.md §4.5 Delete). Idempotent:
// a second call returns ErrNotFound without side effects.
func (c *Coordinator) Delete(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	job, err := c.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete job: %w", err)
	}
	if err := c.queue.Remove(ctx, id); err != nil {
		return nil, fmt.Errorf("remove queue entry: %w", err)
	}
	if err := c.queue.RemoveDLQ(ctx, id); err != nil {
		return nil, fmt.Errorf("remove dlq entry: %w", err)
	}
	return job, nil
}

// RunNow enqueues an immediate, schedule-independent delivery (spec.md §4.5
// RunNow). The manual entry is a one-shot entry under the job's own id,
// added beside the job's registration without replacing it; a later
// Update or Delete (which call Remove) cancels it along with the rest.
func (c *Coordinator) RunNow(ctx context.Context, id uuid.UUID) error {
	if _, err := c.store.Get(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get job: %w", err)
	}
	if err := c.queue.EnqueueDelayed(ctx, id, c.now()); err != nil {
		return fmt.Errorf("enqueue manual run: %w", err)
	}
	return nil
}

// ToggleStatus flips a Job's status. The Queue registration is untouched;
// the Worker enforces the INACTIVE skip (spec.md §4.5 ToggleStatus).
func (c *Coordinator) ToggleStatus(ctx context.Context, id uuid.UUID, status store.Status) (*store.Job, error) {
	job, err := c.store.UpdateStatus(ctx, id, status, "")
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("toggle status: %w", err)
	}
	return job, nil
}

// ListDLQ returns every Job currently dead-lettered.
func (c *Coordinator) ListDLQ(ctx context.Context) ([]*store.Job, error) {
	jobs, err := c.store.List(ctx, store.Filter{Status: store.StatusFailed})
	if err != nil {
		return nil, fmt.Errorf("list dlq: %w", err)
	}
	return jobs, nil
}

// Reactivate clears a FAILED job's error, recomputes its schedule, and
// re-registers it in the active queue (spec.md §4.5 reactivate).
func (c *Coordinator) Reactivate(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	job, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	now := c.now()
	next, err := schedule.NextRun(job, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	updated, err := c.store.UpdateStatus(ctx, id, store.StatusActive, "")
	if err != nil {
		return nil, fmt.Errorf("reactivate: %w", err)
	}
	if next != nil {
		updated, err = c.store.Update(ctx, id, store.Fields{NextRun: next})
		if err != nil {
			return nil, fmt.Errorf("record reactivated next_run: %w", err)
		}
		plan := schedule.RepeatPlanFor(job)
		if plan.IsZero() {
			if err := c.queue.EnqueueDelayed(ctx, id, *next); err != nil {
				return nil, fmt.Errorf("re-enqueue: %w", err)
			}
		} else if err := c.queue.EnqueueRepeating(ctx, id, *next, plan); err != nil {
			return nil, fmt.Errorf("re-enqueue: %w", err)
		}
	}

	if err := c.queue.RemoveDLQ(ctx, id); err != nil {
		return nil, fmt.Errorf("remove dlq: %w", err)
	}
	return updated, nil
}

// Complete marks a FAILED job as if it had just succeeded once, without
// re-registering it if it's already queued (spec.md §4.5 complete).
func (c *Coordinator) Complete(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	job, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	now := c.now()
	next, err := schedule.NextRun(job, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	if _, err := c.store.UpdateStatus(ctx, id, store.StatusActive, ""); err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}
	updated, err := c.store.RecordRun(ctx, id, now, next)
	if err != nil {
		return nil, fmt.Errorf("record completed run: %w", err)
	}
	if err := c.queue.RemoveDLQ(ctx, id); err != nil {
		return nil, fmt.Errorf("remove dlq: %w", err)
	}
	return updated, nil
}

// DeleteDLQ removes a dead-lettered job entirely; identical to Delete
// (spec.md §4.5 deleteDLQ).
func (c *Coordinator) DeleteDLQ(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	return c.Delete(ctx, id)
}
