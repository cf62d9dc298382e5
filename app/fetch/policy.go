package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Policy describes the retry schedule for transient failures. No jitter is
// applied; the schedule is deterministic.
type Policy struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	Multiplier        float64
	RateLimitCooldown time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        5,
		InitialBackoff:    2 * time.Second,
		Multiplier:        2.0,
		RateLimitCooldown: 60 * time.Second,
	}
}

// Backoff returns the wait before retry number `retry` (1-based).
func (p Policy) Backoff(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	return time.Duration(float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(retry-1)))
}

// WithRetry runs op, retrying transient failures according to the policy.
// Fatal errors are returned immediately without a retry. A rate-limited
// failure waits the fixed cooldown instead of the computed backoff. After
// MaxRetries failed retries the last transient error is returned.
func WithRetry[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	for retry := 0; ; retry++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if !IsTransient(err) {
			return zero, err
		}

		if retry >= policy.MaxRetries {
			return zero, fmt.Errorf("max retries (%d) exceeded: %w", policy.MaxRetries, err)
		}

		wait := policy.Backoff(retry + 1)
		if IsRateLimited(err) {
			wait = policy.RateLimitCooldown
			slog.Warn("Rate limit hit, cooling down before retry", "cooldown", wait.String())
		}

		slog.Warn("Retrying after transient error",
			"retry", retry+1,
			"max_retries", policy.MaxRetries,
			"wait", wait.String(),
			"error", err)

		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

// sleep waits for d unless the context is cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
