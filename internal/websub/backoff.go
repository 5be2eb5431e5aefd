package websub

import (
	"context"
	"time"
)

// Backoff is an exponential backoff policy: attempt n (0-based) waits
// BaseDelay * 2^n before the next try. It is a value type so callers can
// unit-test retry behavior independently of the HTTP call.
type Backoff struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration

	// Sleep is injectable for tests; defaults to a context-aware wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultBackoff matches the hub's documented throttling behavior:
// 6 total attempts with delays of 1s, 2s, 4s, 8s, 16s between them.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts: 6,
		BaseDelay:   time.Second,
	}
}

// Delay returns the wait after the given 0-based attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	return b.BaseDelay << uint(attempt)
}

// Wait sleeps for the post-attempt delay, honoring context cancellation.
func (b Backoff) Wait(ctx context.Context, attempt int) error {
	sleep := b.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return sleep(ctx, b.Delay(attempt))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
