package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/open-crosspost/scheduler-service/internal/queue"
	"github.com/open-crosspost/scheduler-service/internal/queue/memqueue"
	"github.com/open-crosspost/scheduler-service/internal/schedule"
	"github.com/open-crosspost/scheduler-service/internal/store"
	"github.com/open-crosspost/scheduler-service/internal/store/memstore"
)

func TestDeliver_RecordsDeliveryLogEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	jobStore := memstore.New()
	q := memqueue.New()
	deliveryLog := memstore.NewDeliveryLogStore()
	ctx := context.Background()

	job := &store.Job{ID: uuid.New(), Target: srv.URL, Status: store.StatusActive, ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalHour, IntervalValue: 1}
	jobStore.Insert(ctx, job)

	w := New(jobStore, q, "").WithDeliveryLog(deliveryLog)
	w.deliver(ctx, queue.Entry{JobID: job.ID, Plan: schedule.RepeatPlan{Every: time.Hour}})

	records, err := deliveryLog.ListForJob(ctx, job.ID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 delivery record, got %d", len(records))
	}
	if records[0].Outcome != store.DeliveryOutcomeSuccess {
		t.Fatalf("expected SUCCESS outcome, got %s", records[0].Outcome)
	}
	if records[0].HTTPStatus != http.StatusOK {
		t.Fatalf("expected status 200 recorded, got %d", records[0].HTTPStatus)
	}
}

func newTestWorker(t *testing.T, jobStore *memstore.JobStore, q *memqueue.Queue) *Worker {
	t.Helper()
	return New(jobStore, q, "")
}

func TestDeliver_SuccessRecordsLastRun(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	jobStore := memstore.New()
	q := memqueue.New()
	ctx := context.Background()

	// specific_time already in the past by delivery time: the worker has
	// already fired once for it, so NextRun must report no further occurrence.
	specificTime := time.Now().Add(-time.Second)
	job := &store.Job{
		ID:           uuid.New(),
		Target:       srv.URL,
		Status:       store.StatusActive,
		ScheduleType: store.ScheduleSpecificTime,
		SpecificTime: &specificTime,
	}
	jobStore.Insert(ctx, job)

	w := newTestWorker(t, jobStore, q)
	w.deliver(ctx, queue.Entry{JobID: job.ID})

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected exactly 1 POST, got %d", hits)
	}

	got, err := jobStore.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastRun == nil {
		t.Fatal("expected last_run to be set after success")
	}
	if got.NextRun != nil {
		t.Fatal("expected next_run nil for a one-shot SPECIFIC_TIME job")
	}
	if got.Status != store.StatusActive {
		t.Fatalf("expected status unchanged on success, got %s", got.Status)
	}
}

func TestDeliver_NonRetryableFailureDeadLetters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	jobStore := memstore.New()
	q := memqueue.New()
	ctx := context.Background()

	job := &store.Job{ID: uuid.New(), Target: srv.URL, Status: store.StatusActive, ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalHour, IntervalValue: 1}
	jobStore.Insert(ctx, job)

	w := newTestWorker(t, jobStore, q)
	w.deliver(ctx, queue.Entry{JobID: job.ID, Plan: schedule.RepeatPlan{Every: time.Hour}})

	got, err := jobStore.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != store.StatusFailed {
		t.Fatalf("expected FAILED after non-retryable failure, got %s", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Fatal("expected error_message to be set")
	}

	dlq, err := q.ListDLQ(ctx)
	if err != nil || len(dlq) != 1 || dlq[0].JobID != job.ID {
		t.Fatalf("expected job dead-lettered, got %+v err=%v", dlq, err)
	}
}

func TestDeliver_TransientFailureStaysActive(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	jobStore := memstore.New()
	q := memqueue.New()
	ctx := context.Background()

	job := &store.Job{ID: uuid.New(), Target: srv.URL, Status: store.StatusActive, ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalHour, IntervalValue: 1}
	jobStore.Insert(ctx, job)

	w := newTestWorker(t, jobStore, q)
	w.deliver(ctx, queue.Entry{JobID: job.ID, Plan: schedule.RepeatPlan{Every: time.Hour}})

	got, err := jobStore.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != store.StatusActive {
		t.Fatalf("expected ACTIVE after eventual success, got %s", got.Status)
	}
	if got.LastRun == nil {
		t.Fatal("expected last_run set after eventual success")
	}

	dlq, _ := q.ListDLQ(ctx)
	if len(dlq) != 0 {
		t.Fatalf("expected no dlq entry for transient-then-success job, got %+v", dlq)
	}
}

func TestDeliver_InactiveJobSkipsDelivery(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	jobStore := memstore.New()
	q := memqueue.New()
	ctx := context.Background()

	job := &store.Job{ID: uuid.New(), Target: srv.URL, Status: store.StatusInactive}
	jobStore.Insert(ctx, job)

	w := newTestWorker(t, jobStore, q)
	w.deliver(ctx, queue.Entry{JobID: job.ID})

	if atomic.LoadInt32(&hits) != 0 {
		t.Fatal("expected no outbound call for an INACTIVE job")
	}
}

func TestDeliver_StaleEntryNoOps(t *testing.T) {
	jobStore := memstore.New()
	q := memqueue.New()
	w := newTestWorker(t, jobStore, q)

	// No panic/error expected for a dispatch entry whose job was deleted.
	w.deliver(context.Background(), queue.Entry{JobID: uuid.New()})
}

func TestDeliver_RecurringJobReArmsForSecondDispatch(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	jobStore := memstore.New()
	q := memqueue.New()
	ctx := context.Background()

	job := &store.Job{ID: uuid.New(), Target: srv.URL, Status: store.StatusActive, ScheduleType: store.ScheduleRecurring, IntervalUnit: store.IntervalMinute, IntervalValue: 1}
	jobStore.Insert(ctx, job)

	plan := schedule.RepeatPlan{Every: time.Minute}
	if err := q.EnqueueRepeating(ctx, job.ID, time.Now().Add(-time.Second), plan); err != nil {
		t.Fatalf("enqueue repeating: %v", err)
	}

	w := newTestWorker(t, jobStore, q)

	first, err := q.Consume(ctx, 10)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected one due entry, got %+v", first)
	}
	w.deliver(ctx, first[0])

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected 1 POST after first dispatch, got %d", hits)
	}
	if q.Len() != 1 {
		t.Fatalf("expected the queue to have re-armed the registration, len=%d", q.Len())
	}

	// Fast-forward the re-armed entry and confirm a second dispatch fires.
	q.mu.Lock()
	q.pending[0].DueAt = time.Now().Add(-time.Second)
	q.mu.Unlock()

	second, err := q.Consume(ctx, 10)
	if err != nil {
		t.Fatalf("consume second: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected the recurring job to be due again, got %+v", second)
	}
	w.deliver(ctx, second[0])

	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected 2 POSTs total after the recurring job's second occurrence, got %d", hits)
	}
}

func TestDeliver_UnauthorizedTargetDeadLetters(t *testing.T) {
	jobStore := memstore.New()
	q := memqueue.New()
	ctx := context.Background()

	job := &store.Job{ID: uuid.New(), Target: "http://evil.example.com/x", Status: store.StatusActive}
	jobStore.Insert(ctx, job)

	w := New(jobStore, q, "allowed.example.com")
	w.deliver(ctx, queue.Entry{JobID: job.ID})

	got, _ := jobStore.Get(ctx, job.ID)
	if got.Status != store.StatusFailed {
		t.Fatalf("expected FAILED for unauthorized target, got %s", got.Status)
	}
}
