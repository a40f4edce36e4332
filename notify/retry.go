package notify

import (
	"context"
	"log/slog"
	"time"
)

// Policy bounds the delivery attempts of one channel send.
type Policy struct {
	// MaxAttempts is the total number of attempts, first included.
	MaxAttempts int
	// BaseDelay is the wait after the first failed attempt; it doubles
	// after each further failure.
	BaseDelay time.Duration
	// MaxDelay caps a single wait.
	MaxDelay time.Duration
	// Sleep waits d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy is 3 attempts with waits of 4s then 8s (capped at 10s).
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   4 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, returns a permanent error, ctx is done, or
// MaxAttempts is reached. It returns the number of attempts made and the
// last error.
func (p Policy) Do(ctx context.Context, logger *slog.Logger, fn func(context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil || isPermanent(err) || attempt == maxAttempts {
			return attempt, lastErr
		}

		wait := p.Delay(attempt)
		if logger != nil {
			logger.WarnContext(ctx, "notify: retrying send",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"backoff_ms", wait.Milliseconds(),
				"error", err)
		}
		if err := sleep(ctx, wait); err != nil {
			return attempt, lastErr
		}
	}
	return maxAttempts, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
