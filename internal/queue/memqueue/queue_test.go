package memqueue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/open-crosspost/scheduler-service/internal/queue"
	"github.com/open-crosspost/scheduler-service/internal/schedule"
)

func TestConsumeOnlyReturnsDueEntries(t *testing.T) {
	q := New()
	ctx := context.Background()

	past := uuid.New()
	future := uuid.New()
	q.EnqueueDelayed(ctx, past, time.Now().Add(-time.Minute))
	q.EnqueueDelayed(ctx, future, time.Now().Add(time.Hour))

	due, err := q.Consume(ctx, 10)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(due) != 1 || due[0].JobID != past {
		t.Fatalf("expected only the past-due entry, got %+v", due)
	}
	if q.Len() != 1 {
		t.Fatalf("expected future entry to remain queued, len=%d", q.Len())
	}
}

func TestConsumeRespectsMax(t *testing.T) {
	q := New()
	ctx := context.Background()
	due := time.Now().Add(-time.Second)

	for i := 0; i < 5; i++ {
		q.EnqueueDelayed(ctx, uuid.New(), due)
	}

	got, err := q.Consume(ctx, 2)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 entries left in queue, got %d", q.Len())
	}
}

func TestRemoveCancelsPendingEntry(t *testing.T) {
	q := New()
	ctx := context.Background()
	jobID := uuid.New()
	q.EnqueueDelayed(ctx, jobID, time.Now().Add(-time.Second))

	if err := q.Remove(ctx, jobID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	due, _ := q.Consume(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("expected removed entry not to be consumable, got %+v", due)
	}
}

func TestConsumeReArmsFixedPeriodRepeatingEntry(t *testing.T) {
	q := New()
	ctx := context.Background()
	jobID := uuid.New()
	dueAt := time.Now().Add(-time.Second)
	plan := schedule.RepeatPlan{Every: time.Minute}

	if err := q.EnqueueRepeating(ctx, jobID, dueAt, plan); err != nil {
		t.Fatalf("enqueue repeating: %v", err)
	}

	first, err := q.Consume(ctx, 10)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(first) != 1 || first[0].JobID != jobID {
		t.Fatalf("expected the repeating entry to fire once, got %+v", first)
	}
	if q.Len() != 1 {
		t.Fatalf("expected the successor entry to be re-armed, len=%d", q.Len())
	}

	// The successor isn't due yet.
	notYet, _ := q.Consume(ctx, 10)
	if len(notYet) != 0 {
		t.Fatalf("expected successor not yet due, got %+v", notYet)
	}

	// Advance past the successor's due time and confirm it fires again.
	q.mu.Lock()
	q.pending[0].DueAt = time.Now().Add(-time.Second)
	q.mu.Unlock()

	second, err := q.Consume(ctx, 10)
	if err != nil {
		t.Fatalf("consume second: %v", err)
	}
	if len(second) != 1 || second[0].JobID != jobID {
		t.Fatalf("expected a second dispatch for the repeating job, got %+v", second)
	}
	if q.Len() != 1 {
		t.Fatalf("expected a third occurrence to be re-armed after the second fire, len=%d", q.Len())
	}
}

func TestConsumeReArmsCronRepeatingEntry(t *testing.T) {
	q := New()
	ctx := context.Background()
	jobID := uuid.New()
	dueAt := time.Now().Add(-time.Second)
	plan := schedule.RepeatPlan{Cron: "* * * * *"}

	if err := q.EnqueueRepeating(ctx, jobID, dueAt, plan); err != nil {
		t.Fatalf("enqueue repeating: %v", err)
	}

	due, err := q.Consume(ctx, 10)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(due) != 1 || due[0].JobID != jobID {
		t.Fatalf("expected the cron entry to fire once, got %+v", due)
	}
	if q.Len() != 1 {
		t.Fatalf("expected the cron registration to persist past its first firing, len=%d", q.Len())
	}
}

func TestDLQLifecycle(t *testing.T) {
	q := New()
	ctx := context.Background()
	jobID := uuid.New()

	entry := queue.DLQEntry{JobID: jobID, Reason: "target rejected the request", FailedAt: time.Now(), Attempts: 3}
	if err := q.EnqueueDLQ(ctx, entry); err != nil {
		t.Fatalf("enqueue dlq: %v", err)
	}
	list, err := q.ListDLQ(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 dlq entry, got %+v err=%v", list, err)
	}

	if err := q.RemoveDLQ(ctx, jobID); err != nil {
		t.Fatalf("remove dlq: %v", err)
	}
	list, _ = q.ListDLQ(ctx)
	if len(list) != 0 {
		t.Fatalf("expected dlq empty after remove, got %+v", list)
	}
}
