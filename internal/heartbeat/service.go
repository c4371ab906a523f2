// Package heartbeat implements the DLQ monitor (SPEC_FULL.md §4): a
// periodic ticker that watches the dead-letter queue depth and surfaces a
// log line (and an optional event) when it crosses a threshold. It never
// mutates job state — spec.md §5 calls for "one DLQ monitor (no automatic
// processing)".
package heartbeat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/open-crosspost/scheduler-service/internal/engine"
)

const defaultInterval = 1 * time.Minute
const defaultThreshold = 10

// alertDedupWindow avoids re-alerting every tick while the DLQ stays above
// threshold; a fresh alert only fires once the count changes or this window
// elapses.
const alertDedupWindow = 15 * time.Minute

// eventPublisher is the minimal interface the monitor needs to emit a
// dlq.threshold websocket event; internal/events.Bus satisfies it.
type eventPublisher interface {
	Publish(topic string, payload any)
}

// Config holds the monitor's tunables.
type Config struct {
	Interval  time.Duration
	Threshold int
}

// Service periodically polls the DLQ size via the Coordinator.
type Service struct {
	cfg         Config
	coordinator *engine.Coordinator
	events      eventPublisher

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	lastCount   int
	lastAlertAt time.Time
}

// NewService creates a DLQ monitor. events may be nil to disable the
// websocket notification (the log line is always emitted).
func NewService(cfg Config, coordinator *engine.Coordinator, events eventPublisher) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	return &Service{cfg: cfg, coordinator: coordinator, events: events}
}

// Start begins the monitor loop in a background goroutine.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	go s.loop(ctx)
	slog.Info("dlq monitor started", "interval", s.cfg.Interval, "threshold", s.cfg.Threshold)
}

// Stop halts the monitor loop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	s.running = false
	slog.Info("dlq monitor stopped")
}

// IsRunning returns whether the monitor loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	jobs, err := s.coordinator.ListDLQ(ctx)
	if err != nil {
		slog.Warn("dlq monitor: list dlq failed", "error", err)
		return
	}
	count := len(jobs)

	if count < s.cfg.Threshold {
		return
	}

	s.mu.Lock()
	if count == s.lastCount && time.Since(s.lastAlertAt) < alertDedupWindow {
		s.mu.Unlock()
		return
	}
	s.lastCount = count
	s.lastAlertAt = time.Now()
	s.mu.Unlock()

	slog.Warn("dlq threshold crossed", "count", count, "threshold", s.cfg.Threshold)
	if s.events != nil {
		s.events.Publish("dlq.threshold", map[string]int{"count": count, "threshold": s.cfg.Threshold})
	}
}
