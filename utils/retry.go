package utils

import (
	"context"
	"log/slog"
	"time"

	"ticket-sniper/internal/status"
)

// Retry runs op up to maxAttempts times with linear backoff between attempts
// (baseDelay * attemptIndex, not exponential). Every failure is classified
// before the retry/abort decision:
//
//   - non-retryable errors abort immediately without consuming the remaining
//     attempts;
//   - unknown errors consume at most one retry;
//   - on exhaustion the last classified error is returned to the caller.
//
// This is the one place that surfaces failure upward instead of swallowing
// it; callers decide on further scheduling.
func Retry[T any](ctx context.Context, name string, maxAttempts int, baseDelay time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr *status.Error

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	unknownRetried := false
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = status.Classify(err)
		slog.Error("operation attempt failed",
			"op", name,
			"attempt", attempt,
			"kind", lastErr.Kind.String(),
			"error", lastErr.Message,
		)

		if !lastErr.Retryable() {
			return zero, lastErr
		}
		if lastErr.Kind == status.KindUnknown {
			if unknownRetried {
				return zero, lastErr
			}
			unknownRetried = true
		}
		if attempt == maxAttempts {
			break
		}

		if err := sleep(ctx, baseDelay*time.Duration(attempt)); err != nil {
			return zero, status.Classify(err)
		}
		slog.Info("retrying operation", "op", name, "attempt", attempt+1)
	}

	return zero, lastErr
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
