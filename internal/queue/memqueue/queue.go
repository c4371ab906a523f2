// Package memqueue is an in-process queue.DispatchQueue for tests and for
// `scheduler-service serve --standalone` (no Redis available).
package memqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/open-crosspost/scheduler-service/internal/queue"
	"github.com/open-crosspost/scheduler-service/internal/schedule"
)

// Queue guards a slice of pending entries and a map of DLQ entries behind a
// single mutex. Not built for throughput, only for correctness in tests.
type Queue struct {
	mu      sync.Mutex
	pending []queue.Entry
	dlq     map[uuid.UUID]queue.DLQEntry
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{dlq: make(map[uuid.UUID]queue.DLQEntry)}
}

func (q *Queue) EnqueueDelayed(ctx context.Context, jobID uuid.UUID, dueAt time.Time) error {
	return q.add(jobID, dueAt, schedule.RepeatPlan{})
}

func (q *Queue) EnqueueRepeating(ctx context.Context, jobID uuid.UUID, dueAt time.Time, plan schedule.RepeatPlan) error {
	return q.add(jobID, dueAt, plan)
}

func (q *Queue) add(jobID uuid.UUID, dueAt time.Time, plan schedule.RepeatPlan) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, queue.Entry{JobID: jobID, DueAt: dueAt, Plan: plan})
	return nil
}

func (q *Queue) Remove(ctx context.Context, jobID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.pending[:0]
	for _, e := range q.pending {
		if e.JobID != jobID {
			out = append(out, e)
		}
	}
	q.pending = out
	return nil
}

func (q *Queue) Consume(ctx context.Context, max int) ([]queue.Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var due []queue.Entry
	var remaining []queue.Entry
	for _, e := range q.pending {
		if len(due) < max && !e.DueAt.After(now) {
			due = append(due, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	q.pending = remaining

	for _, e := range due {
		if e.Plan.IsZero() {
			continue
		}
		next, err := e.Plan.NextOccurrence(e.DueAt)
		if err != nil {
			slog.Error("compute next occurrence for repeating entry", "job_id", e.JobID, "error", err)
			continue
		}
		q.pending = append(q.pending, queue.Entry{JobID: e.JobID, DueAt: next, Plan: e.Plan})
	}

	return due, nil
}

func (q *Queue) EnqueueDLQ(ctx context.Context, entry queue.DLQEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dlq[entry.JobID] = entry
	return nil
}

func (q *Queue) RemoveDLQ(ctx context.Context, jobID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.dlq, jobID)
	return nil
}

func (q *Queue) ListDLQ(ctx context.Context) ([]queue.DLQEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]queue.DLQEntry, 0, len(q.dlq))
	for _, e := range q.dlq {
		out = append(out, e)
	}
	return out, nil
}

// Len reports the number of pending entries, for test assertions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

var _ queue.DispatchQueue = (*Queue)(nil)
