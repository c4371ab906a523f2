package worker

import (
	"errors"
	"math/rand/v2"
	"time"
)

// retryConfig controls the inner exponential backoff around a single
// delivery attempt (spec.md §4.4 step 5): max 3 attempts, 1s-30s.
type retryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// executeWithRetry runs attempt, retrying only when the returned error
// classifies as retryable. Non-retryable errors short-circuit immediately.
func executeWithRetry(cfg retryConfig, attempt func() error) error {
	var err error
	for i := 0; i < cfg.MaxAttempts; i++ {
		err = attempt()
		if err == nil {
			return nil
		}

		var ce *ClassifiedError
		if !errors.As(err, &ce) || !ce.Class.Retryable() {
			return err
		}
		if i < cfg.MaxAttempts-1 {
			time.Sleep(backoffWithJitter(cfg.BaseDelay, cfg.MaxDelay, i))
		}
	}
	return err
}

// backoffWithJitter computes delay = min(base * 2^attempt, max) ± 25% jitter.
func backoffWithJitter(base, max time.Duration, attempt int) time.Duration {
	delay := base << uint(attempt)
	if delay > max {
		delay = max
	}

	quarter := delay / 4
	if quarter > 0 {
		jitter := time.Duration(rand.Int64N(int64(quarter*2))) - quarter
		delay += jitter
	}
	return delay
}
