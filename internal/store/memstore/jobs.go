// Package memstore is an in-process store.JobStore used by tests and by the
// standalone (no-Postgres) run mode.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/open-crosspost/scheduler-service/internal/store"
)

// JobStore guards a map of jobs with a single mutex. It is not meant to
// scale — it exists so engine/worker/httpapi tests don't need a Postgres
// instance, and so `scheduler-service serve --standalone` can run without one.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]store.Job
}

// New returns an empty JobStore.
func New() *JobStore {
	return &JobStore{jobs: make(map[uuid.UUID]store.Job)}
}

func (s *JobStore) Insert(ctx context.Context, job *store.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return store.ErrConflict
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	s.jobs[job.ID] = *job
	return nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

func (s *JobStore) List(ctx context.Context, filter store.Filter) ([]*store.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		j := j
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		out = append(out, &j)
	}
	return out, nil
}

func (s *JobStore) Update(ctx context.Context, id uuid.UUID, fields store.Fields) (*store.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if fields.Name != nil {
		j.Name = *fields.Name
	}
	if fields.Description != nil {
		j.Description = *fields.Description
	}
	if fields.Target != nil {
		j.Target = *fields.Target
	}
	if fields.Payload != nil {
		j.Payload = fields.Payload
	}
	if fields.ScheduleType != nil {
		j.ScheduleType = *fields.ScheduleType
	}
	if fields.CronExpression != nil {
		j.CronExpression = *fields.CronExpression
	}
	if fields.SpecificTime != nil {
		j.SpecificTime = fields.SpecificTime
	}
	if fields.IntervalUnit != nil {
		j.IntervalUnit = *fields.IntervalUnit
	}
	if fields.IntervalValue != nil {
		j.IntervalValue = *fields.IntervalValue
	}
	if fields.Status != nil {
		j.Status = *fields.Status
	}
	if fields.NextRun != nil {
		j.NextRun = fields.NextRun
	} else if fields.ClearNextRun {
		j.NextRun = nil
	}
	j.UpdatedAt = time.Now().UTC()

	s.jobs[id] = j
	out := j
	return &out, nil
}

func (s *JobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status store.Status, errorMessage string) (*store.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	j.Status = status
	j.ErrorMessage = errorMessage
	j.UpdatedAt = time.Now().UTC()
	s.jobs[id] = j
	out := j
	return &out, nil
}

func (s *JobStore) Delete(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.jobs, id)
	return &j, nil
}

func (s *JobStore) RecordRun(ctx context.Context, id uuid.UUID, lastRun time.Time, nextRun *time.Time) (*store.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	j.LastRun = &lastRun
	j.NextRun = nextRun
	j.UpdatedAt = time.Now().UTC()
	s.jobs[id] = j
	out := j
	return &out, nil
}

var _ store.JobStore = (*JobStore)(nil)
