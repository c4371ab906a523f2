package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/open-crosspost/scheduler-service/internal/queue"
	"github.com/open-crosspost/scheduler-service/internal/queue/memqueue"
	"github.com/open-crosspost/scheduler-service/internal/store"
	"github.com/open-crosspost/scheduler-service/internal/store/memstore"
)

func newTestCoordinator() (*Coordinator, *memstore.JobStore, *memqueue.Queue) {
	s := memstore.New()
	q := memqueue.New()
	return New(s, q), s, q
}

func TestCreate_RecurringEnqueuesRepeating(t *testing.T) {
	c, _, q := newTestCoordinator()
	ctx := context.Background()

	job, err := c.Create(ctx, Input{
		Name:          "every-minute",
		Target:        "http://example.com/hook",
		ScheduleType:  store.ScheduleRecurring,
		IntervalUnit:  store.IntervalMinute,
		IntervalValue: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.Status != store.StatusActive {
		t.Errorf("expected ACTIVE by default, got %s", job.Status)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 queue entry, got %d", q.Len())
	}
}

func TestCreate_InvalidScheduleRejected(t *testing.T) {
	c, _, _ := newTestCoordinator()
	_, err := c.Create(context.Background(), Input{
		Name:         "bad",
		Target:       "http://example.com",
		ScheduleType: store.ScheduleCron,
		CronExpression: "not a cron",
	})
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
}

func TestCreate_SpecificTimeInPastKeepsDormantRow(t *testing.T) {
	c, s, q := newTestCoordinator()
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	job, err := c.Create(ctx, Input{
		Name:         "too-late",
		Target:       "http://example.com",
		ScheduleType: store.ScheduleSpecificTime,
		SpecificTime: &past,
	})
	if !errors.Is(err, ErrSpecificTimeInPast) {
		t.Fatalf("expected ErrSpecificTimeInPast, got %v", err)
	}
	if job == nil {
		t.Fatal("expected the dormant row back even on this error")
	}

	stored, getErr := s.Get(ctx, job.ID)
	if getErr != nil {
		t.Fatalf("expected row to still exist: %v", getErr)
	}
	if stored.NextRun != nil {
		t.Errorf("expected next_run nil for a past specific_time, got %v", stored.NextRun)
	}
	if q.Len() != 0 {
		t.Errorf("expected no queue entry for a past specific_time job, got %d", q.Len())
	}
}

func TestDelete_RemovesQueueAndDLQEntries(t *testing.T) {
	c, _, q := newTestCoordinator()
	ctx := context.Background()

	job, err := c.Create(ctx, Input{
		Name: "temp", Target: "http://example.com",
		ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalHour, IntervalValue: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := c.Delete(ctx, job.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if q.Len() != 0 {
		t.Errorf("expected queue entry removed, len=%d", q.Len())
	}
	if _, err := c.Delete(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second delete to 404, got %v", err)
	}
}

func TestRunNow_EnqueuesIndependentEntry(t *testing.T) {
	c, _, q := newTestCoordinator()
	ctx := context.Background()

	job, err := c.Create(ctx, Input{
		Name: "manual", Target: "http://example.com",
		ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalHour, IntervalValue: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := q.Len()

	if err := c.RunNow(ctx, job.ID); err != nil {
		t.Fatalf("run now: %v", err)
	}
	if q.Len() != before+1 {
		t.Fatalf("expected an additional manual entry, had %d now %d", before, q.Len())
	}
}

func TestReactivateThenComplete_ConvergesToActive(t *testing.T) {
	c, s, q := newTestCoordinator()
	ctx := context.Background()

	job, err := c.Create(ctx, Input{
		Name: "flaky", Target: "http://example.com",
		ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalHour, IntervalValue: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.UpdateStatus(ctx, job.ID, store.StatusFailed, "target rejected the request")
	q.EnqueueDLQ(ctx, queue.DLQEntry{JobID: job.ID, Reason: "target rejected the request", FailedAt: time.Now(), Attempts: 3})

	if _, err := c.Reactivate(ctx, job.ID); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if _, err := c.Complete(ctx, job.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := s.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != store.StatusActive || got.ErrorMessage != "" {
		t.Fatalf("expected converged ACTIVE/no-error, got status=%s error=%q", got.Status, got.ErrorMessage)
	}

	dlq, _ := q.ListDLQ(ctx)
	if len(dlq) != 0 {
		t.Fatalf("expected dlq cleared, got %+v", dlq)
	}
}

func TestToggleStatus(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	job, err := c.Create(ctx, Input{
		Name: "toggled", Target: "http://example.com",
		ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalHour, IntervalValue: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := c.ToggleStatus(ctx, job.ID, store.StatusInactive)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if updated.Status != store.StatusInactive {
		t.Fatalf("expected INACTIVE, got %s", updated.Status)
	}
}

func TestUpdate_RewiresScheduleFromRecurringToSpecificTime(t *testing.T) {
	c, _, q := newTestCoordinator()
	ctx := context.Background()

	job, err := c.Create(ctx, Input{
		Name: "rewire", Target: "http://example.com",
		ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalHour, IntervalValue: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 entry after create, got %d", q.Len())
	}

	future := time.Now().Add(time.Second)
	updated, err := c.Update(ctx, job.ID, Input{
		Name: "rewire", Target: "http://example.com",
		ScheduleType: store.ScheduleSpecificTime, SpecificTime: &future,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != job.ID || updated.CreatedAt != job.CreatedAt {
		t.Fatal("expected id and created_at preserved across update")
	}
	if q.Len() != 1 {
		t.Fatalf("expected exactly 1 entry after rewire, got %d", q.Len())
	}
}
