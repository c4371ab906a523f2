// Package worker implements the Delivery Worker (spec.md §4.4): it drains
// the dispatch queue, re-reads the authoritative job record, validates and
// sanitizes the payload, performs the outbound HTTP POST with bounded
// retries, classifies failures, and writes the outcome back to the store
// (and, for terminal failures, the dead-letter queue).
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/open-crosspost/scheduler-service/internal/archive"
	"github.com/open-crosspost/scheduler-service/internal/queue"
	"github.com/open-crosspost/scheduler-service/internal/schedule"
	"github.com/open-crosspost/scheduler-service/internal/store"
	"github.com/open-crosspost/scheduler-service/internal/tracing"
)

// maxInlineExcerptBytes bounds the delivery_log.body_excerpt column; larger
// bodies are archived instead (internal/archive) and only the key is kept.
const maxInlineExcerptBytes = 4 * 1024

// maxLoggedErrorChars truncates error payloads in logs (spec.md §7).
const maxLoggedErrorChars = 500

// Concurrency is the fixed number of in-flight deliveries per process
// (spec.md §5).
const Concurrency = 5

// Worker executes deliveries for entries claimed from a DispatchQueue.
type Worker struct {
	store       store.JobStore
	queue       queue.DispatchQueue
	deliveryLog store.DeliveryLogStore // optional; nil disables the durable run log
	archiver    *archive.Archiver      // optional; nil keeps large bodies truncated, never archived
	allowList   AllowList
	client      *http.Client
	now         func() time.Time
}

// New builds a Worker. allowListEnv is the raw ALLOWED_TARGET_HOSTS value.
func New(jobStore store.JobStore, dispatchQueue queue.DispatchQueue, allowListEnv string) *Worker {
	return &Worker{
		store:     jobStore,
		queue:     dispatchQueue,
		allowList: NewAllowList(allowListEnv),
		client:    newDeliveryClient(),
		now:       time.Now,
	}
}

// WithDeliveryLog attaches the durable run log (SPEC_FULL.md §4); returns
// the Worker for chaining at construction time.
func (w *Worker) WithDeliveryLog(log store.DeliveryLogStore) *Worker {
	w.deliveryLog = log
	return w
}

// WithArchiver attaches the S3 overflow archiver for oversized delivery
// bodies; returns the Worker for chaining at construction time.
func (w *Worker) WithArchiver(a *archive.Archiver) *Worker {
	w.archiver = a
	return w
}

// Run polls the queue forever, dispatching up to Concurrency deliveries at
// once, until ctx is cancelled. Cancellation is cooperative: in-flight
// deliveries are allowed to finish before Run returns (spec.md §5).
func (w *Worker) Run(ctx context.Context, pollInterval time.Duration) {
	sem := make(chan struct{}, Concurrency)
	var inFlight sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			inFlight.Wait()
			return
		default:
		}

		entries, err := w.queue.Consume(ctx, Concurrency)
		if err != nil {
			slog.Error("consume dispatch queue", "error", err)
			time.Sleep(pollInterval)
			continue
		}

		if len(entries) == 0 {
			time.Sleep(pollInterval)
			continue
		}

		for _, entry := range entries {
			entry := entry
			sem <- struct{}{}
			inFlight.Add(1)
			go func() {
				defer inFlight.Done()
				defer func() { <-sem }()
				w.deliver(context.WithoutCancel(ctx), entry)
			}()
		}
	}
}

// deliver runs the full procedure of spec.md §4.4 for one dispatch entry.
// Errors are logged, never returned — the queue's outer retry (for
// retryable classes) and the job's FAILED transition (for non-retryable
// ones) are the only durable record of failure.
func (w *Worker) deliver(ctx context.Context, entry queue.Entry) {
	job, err := w.store.Get(ctx, entry.JobID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Info("dispatch entry stale, job no longer exists", "job_id", entry.JobID)
		return
	}
	if err != nil {
		slog.Error("reread job for dispatch", "job_id", entry.JobID, "error", err)
		return
	}

	if job.Status == store.StatusInactive {
		slog.Info("skipping dispatch for inactive job", "job_id", job.ID)
		return
	}

	start := w.now()
	var lastBody []byte
	var lastStatus int
	err = executeWithRetry(defaultRetryConfig(), func() error {
		body, status, attemptErr := w.attempt(ctx, job)
		lastBody, lastStatus = body, status
		return attemptErr
	})
	duration := w.now().Sub(start)

	if err == nil {
		w.recordDelivery(ctx, job.ID, start, duration, store.DeliveryOutcomeSuccess, "", lastStatus, lastBody)
		w.onSuccess(ctx, job, entry)
		return
	}

	var ce *ClassifiedError
	class := ClassUnknown
	if errors.As(err, &ce) {
		class = ce.Class
	}
	w.recordDelivery(ctx, job.ID, start, duration, store.DeliveryOutcomeFailure, string(class), lastStatus, lastBody)
	w.onFailure(ctx, job, err)
}

// attempt performs one HTTP POST. Returns the (possibly empty) response
// body, its HTTP status, and a *ClassifiedError on any failure.
func (w *Worker) attempt(ctx context.Context, job *store.Job) (body []byte, status int, err error) {
	ctx, span := tracing.StartDeliverySpan(ctx, job.ID.String(), job.Target)
	defer func() {
		tracing.EndWithError(span, err)
		span.End()
	}()

	if err := ValidateTarget(job.Target, w.allowList); err != nil {
		return nil, 0, err
	}

	sanitized, err := Sanitize(job.Payload)
	if err != nil {
		return nil, 0, classify(ClassUnknown, fmt.Errorf("sanitize payload: %w", err))
	}
	if err := store.ValidatePayloadSize(sanitized); err != nil {
		return nil, 0, classify(ClassPayloadTooLarge, err)
	}

	if err := outboundLimiter.Wait(ctx); err != nil {
		return nil, 0, classify(ClassTimeout, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, job.Target, bytes.NewReader(sanitized))
	if err != nil {
		return nil, 0, classify(ClassValidation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, 0, classify(classifyTransportError(err), err)
	}
	defer resp.Body.Close()
	body, _ = io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.StatusCode, classify(classifyHTTPStatus(resp.StatusCode), fmt.Errorf("target responded %d", resp.StatusCode))
	}
	return body, resp.StatusCode, nil
}

// recordDelivery appends one row to the durable run log, archiving the body
// to S3 first if it overflows the inline excerpt size. Best-effort: a
// logging failure here never affects job or queue state.
func (w *Worker) recordDelivery(ctx context.Context, jobID uuid.UUID, attemptedAt time.Time, duration time.Duration, outcome store.DeliveryOutcome, errorClass string, status int, body []byte) {
	if w.deliveryLog == nil {
		return
	}

	excerpt := string(body)
	archiveKey := ""
	if w.archiver != nil && archive.ShouldArchive(body) {
		key, err := w.archiver.Archive(ctx, jobID, attemptedAt, body)
		if err != nil {
			slog.Error("archive delivery body", "job_id", jobID, "error", err)
		} else {
			archiveKey = key
			excerpt = ""
		}
	}
	if len(excerpt) > maxInlineExcerptBytes {
		excerpt = excerpt[:maxInlineExcerptBytes]
	}

	rec := store.DeliveryRecord{
		JobID:       jobID,
		AttemptedAt: attemptedAt,
		Outcome:     outcome,
		ErrorClass:  errorClass,
		HTTPStatus:  status,
		DurationMS:  duration.Milliseconds(),
		BodyExcerpt: excerpt,
		ArchiveKey:  archiveKey,
	}
	if err := w.deliveryLog.Record(ctx, rec); err != nil {
		slog.Error("record delivery log", "job_id", jobID, "error", err)
	}
}

// onSuccess implements step 6 of §4.4.
func (w *Worker) onSuccess(ctx context.Context, job *store.Job, entry queue.Entry) {
	now := w.now()
	next, err := schedule.NextRun(job, now)
	if err != nil {
		slog.Error("compute next_run after success", "job_id", job.ID, "error", err)
	}

	if _, err := w.store.RecordRun(ctx, job.ID, now, next); err != nil {
		slog.Error("record successful run", "job_id", job.ID, "error", err)
		return
	}

	// MONTH/YEAR recurring schedules have no fixed period (spec.md §9
	// design note): the Worker, not the Queue, re-enqueues the next tick.
	if job.ScheduleType == store.ScheduleRecurring && entry.Plan.IsZero() && next != nil {
		if err := w.queue.EnqueueDelayed(ctx, job.ID, *next); err != nil {
			slog.Error("re-enqueue month/year recurring job", "job_id", job.ID, "error", err)
		}
	}
}

// onFailure implements step 7 of §4.4.
func (w *Worker) onFailure(ctx context.Context, job *store.Job, deliveryErr error) {
	var ce *ClassifiedError
	class := ClassUnknown
	if errors.As(deliveryErr, &ce) {
		class = ce.Class
	}

	msg := truncateError(deliveryErr.Error())
	slog.Warn("delivery failed", "job_id", job.ID, "class", class, "error", msg)

	if class.Retryable() {
		_, err := w.store.UpdateStatus(ctx, job.ID, store.StatusActive,
			fmt.Sprintf("Temporary failure: %s. The job will be retried.", msg))
		if err != nil {
			slog.Error("record transient failure", "job_id", job.ID, "error", err)
		}
		return
	}

	if _, err := w.store.UpdateStatus(ctx, job.ID, store.StatusFailed, msg); err != nil {
		slog.Error("record terminal failure", "job_id", job.ID, "error", err)
	}
	dlqErr := w.queue.EnqueueDLQ(ctx, queue.DLQEntry{
		JobID:    job.ID,
		Reason:   msg,
		FailedAt: w.now(),
		Attempts: defaultRetryConfig().MaxAttempts,
	})
	if dlqErr != nil {
		slog.Error("enqueue dlq", "job_id", job.ID, "error", dlqErr)
	}
}

func truncateError(s string) string {
	if len(s) <= maxLoggedErrorChars {
		return s
	}
	return s[:maxLoggedErrorChars] + "...[truncated]"
}
