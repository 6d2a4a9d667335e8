package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
)

// withRetry runs op with bounded exponential backoff.
//
// Only transport failures ([shared.ErrAPIRequest]) are resent; a decode
// failure is deterministic for the same response and returns immediately.
// The whole sequence is bound to ctx: once the deadline elapses or the
// context is cancelled, a timeout error supersedes any remaining attempt
// budget.
func withRetry(ctx context.Context, maxAttempts int, baseDelay time.Duration, op func(context.Context) (string, error)) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}

	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			// delay = baseDelay * 2^(attempt-1): first retry waits
			// baseDelay, the next doubles, and so on.
			delay := baseDelay << (attempt - 1)
			if err := sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrTimeout, ctxErr)
		}

		if !errors.Is(err, shared.ErrAPIRequest) {
			return "", err
		}

		lastErr = err
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}

// sleep waits for the given delay or until ctx is done, whichever is first.
func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", shared.ErrTimeout, ctx.Err())
	case <-timer.C:
		return nil
	}
}
