package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/open-crosspost/scheduler-service/internal/store"
)

// JobStore is the Postgres-backed implementation of store.JobStore.
type JobStore struct {
	db *sqlx.DB
}

// NewJobStore wraps an already-opened pool (see OpenDB) as a store.JobStore.
func NewJobStore(db *sqlx.DB) *JobStore {
	return &JobStore{db: db}
}

// row mirrors the jobs table layout; sqlx scans directly into it via `db`
// struct tags, then toJob converts to the domain type.
type row struct {
	ID             uuid.UUID       `db:"id"`
	Name           string          `db:"name"`
	Description    string          `db:"description"`
	Type           string          `db:"type"`
	Target         string          `db:"target"`
	Payload        json.RawMessage `db:"payload"`
	ScheduleType   string          `db:"schedule_type"`
	CronExpression *string         `db:"cron_expression"`
	SpecificTime   *time.Time      `db:"specific_time"`
	IntervalUnit   *string         `db:"interval_unit"`
	IntervalValue  *int            `db:"interval_value"`
	Status         string          `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
	LastRun        *time.Time      `db:"last_run"`
	NextRun        *time.Time      `db:"next_run"`
	ErrorMessage   string          `db:"error_message"`
}

func (r *row) toJob() *store.Job {
	j := &store.Job{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		Type:           store.JobType(r.Type),
		Target:         r.Target,
		Payload:        jsonOrEmpty(r.Payload),
		ScheduleType:   store.ScheduleType(r.ScheduleType),
		CronExpression: derefStr(r.CronExpression),
		SpecificTime:   r.SpecificTime,
		IntervalValue:  derefIntVal(r.IntervalValue),
		Status:         store.Status(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		LastRun:        r.LastRun,
		NextRun:        r.NextRun,
		ErrorMessage:   r.ErrorMessage,
	}
	if r.IntervalUnit != nil {
		j.IntervalUnit = store.Interval(*r.IntervalUnit)
	}
	return j
}

func derefIntVal(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

const insertQuery = `
INSERT INTO jobs (
	id, name, description, type, target, payload,
	schedule_type, cron_expression, specific_time, interval_unit, interval_value,
	status, created_at, updated_at, last_run, next_run, error_message
) VALUES (
	:id, :name, :description, :type, :target, :payload,
	:schedule_type, :cron_expression, :specific_time, :interval_unit, :interval_value,
	:status, :created_at, :updated_at, :last_run, :next_run, :error_message
)`

// Insert persists a new job. Callers are expected to have already assigned
// an ID (uuid.NewV7, time-ordered) and an initial next_run via the schedule
// package — Insert does not compute either.
func (s *JobStore) Insert(ctx context.Context, job *store.Job) error {
	now := nowUTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	r := row{
		ID:             job.ID,
		Name:           job.Name,
		Description:    job.Description,
		Type:           string(job.Type),
		Target:         job.Target,
		Payload:        jsonOrEmpty(job.Payload),
		ScheduleType:   string(job.ScheduleType),
		CronExpression: nilStr(job.CronExpression),
		SpecificTime:   nilTime(job.SpecificTime),
		IntervalUnit:   nilStr(string(job.IntervalUnit)),
		IntervalValue:  nilInt(job.IntervalValue),
		Status:         string(job.Status),
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
		LastRun:        job.LastRun,
		NextRun:        job.NextRun,
		ErrorMessage:   job.ErrorMessage,
	}

	_, err := s.db.NamedExecContext(ctx, insertQuery, r)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get loads a single job by ID.
func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT * FROM jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return r.toJob(), nil
}

// List returns jobs matching filter, ordered by created_at for stable
// pagination-free listing (spec.md does not define pagination for this op).
func (s *JobStore) List(ctx context.Context, filter store.Filter) ([]*store.Job, error) {
	query := `SELECT * FROM jobs`
	var args []interface{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at`

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs := make([]*store.Job, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, rows[i].toJob())
	}
	return jobs, nil
}

// Update applies a partial patch and returns the updated row.
func (s *JobStore) Update(ctx context.Context, id uuid.UUID, fields store.Fields) (*store.Job, error) {
	updates := map[string]any{"updated_at": nowUTC()}

	if fields.Name != nil {
		updates["name"] = *fields.Name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.Target != nil {
		updates["target"] = *fields.Target
	}
	if fields.Payload != nil {
		updates["payload"] = jsonOrEmpty(fields.Payload)
	}
	if fields.ScheduleType != nil {
		updates["schedule_type"] = string(*fields.ScheduleType)
	}
	if fields.CronExpression != nil {
		updates["cron_expression"] = *fields.CronExpression
	}
	if fields.SpecificTime != nil {
		updates["specific_time"] = *fields.SpecificTime
	}
	if fields.IntervalUnit != nil {
		updates["interval_unit"] = string(*fields.IntervalUnit)
	}
	if fields.IntervalValue != nil {
		updates["interval_value"] = *fields.IntervalValue
	}
	if fields.Status != nil {
		updates["status"] = string(*fields.Status)
	}
	if fields.NextRun != nil {
		updates["next_run"] = *fields.NextRun
	} else if fields.ClearNextRun {
		updates["next_run"] = nil
	}

	if err := execMapUpdate(ctx, s.db.DB, "jobs", id, updates); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return s.Get(ctx, id)
}

// UpdateStatus transitions a job's status and writes errorMessage to
// error_message as given, for any status; callers pass "" to clear it
// (spec.md §3 state machine).
func (s *JobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status store.Status, errorMessage string) (*store.Job, error) {
	updates := map[string]any{
		"status":        string(status),
		"error_message": errorMessage,
		"updated_at":    nowUTC(),
	}
	if err := execMapUpdate(ctx, s.db.DB, "jobs", id, updates); err != nil {
		return nil, fmt.Errorf("update job status: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a job and returns its last known state.
func (s *JobStore) Delete(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete job: %w", err)
	}
	return job, nil
}

// RecordRun stamps last_run/next_run after a successful delivery (spec.md
// §4.4 step 6). Failed attempts go through UpdateStatus instead.
func (s *JobStore) RecordRun(ctx context.Context, id uuid.UUID, lastRun time.Time, nextRun *time.Time) (*store.Job, error) {
	updates := map[string]any{
		"last_run":   lastRun,
		"next_run":   nextRun,
		"updated_at": nowUTC(),
	}
	if err := execMapUpdate(ctx, s.db.DB, "jobs", id, updates); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return s.Get(ctx, id)
}

var _ store.JobStore = (*JobStore)(nil)
