package sukl

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy retries an operation with exponential backoff. Terminal
// errors (see IsRetryable) abort immediately; transient errors are retried
// until the attempt budget is exhausted, then the last error is returned.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Do runs fn under the policy. op names the operation in retry logs.
func (p RetryPolicy) Do(ctx context.Context, log *slog.Logger, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				log.Debug("operation succeeded after retry", "op", op, "attempt", attempt)
			}
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		// baseDelay * 2^(attempt-1)
		delay := p.BaseDelay << (attempt - 1)
		log.Debug("operation failed, will retry",
			"op", op, "attempt", attempt, "max_attempts", attempts,
			"delay_ms", delay.Milliseconds(), "error", lastErr.Error())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
