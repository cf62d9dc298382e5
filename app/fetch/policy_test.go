package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func testPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:        maxRetries,
		InitialBackoff:    time.Millisecond,
		Multiplier:        2.0,
		RateLimitCooldown: 5 * time.Millisecond,
	}
}

func TestBackoffSchedule(t *testing.T) {
	policy := Policy{
		MaxRetries:     5,
		InitialBackoff: 2 * time.Second,
		Multiplier:     2.0,
	}

	expected := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}

	for i, want := range expected {
		got := policy.Backoff(i + 1)
		if got != want {
			t.Errorf("Backoff(%d): expected %v, got %v", i+1, want, got)
		}
	}
}

func TestWithRetryExhaustsTransient(t *testing.T) {
	policy := testPolicy(3)

	attempts := 0
	_, err := WithRetry(context.Background(), policy, func(ctx context.Context) (int, error) {
		attempts++
		return 0, &TransientError{Err: errors.New("connection refused")}
	})

	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	// 1 initial attempt plus MaxRetries retries
	if attempts != 4 {
		t.Errorf("Expected 4 attempts (1 + 3 retries), got %d", attempts)
	}
	if !IsTransient(err) {
		t.Errorf("Expected final error to stay transient, got: %v", err)
	}
}

func TestWithRetryFatalNotRetried(t *testing.T) {
	policy := testPolicy(5)

	attempts := 0
	_, err := WithRetry(context.Background(), policy, func(ctx context.Context) (int, error) {
		attempts++
		return 0, &FatalError{StatusCode: 404, Err: errors.New("not found")}
	})

	if err == nil {
		t.Fatal("Expected fatal error to surface")
	}
	if attempts != 1 {
		t.Errorf("Expected exactly 1 attempt for fatal error, got %d", attempts)
	}

	var fe *FatalError
	if !errors.As(err, &fe) {
		t.Errorf("Expected FatalError, got: %v", err)
	}
}

func TestWithRetryRecoversAfterTransient(t *testing.T) {
	policy := testPolicy(3)

	attempts := 0
	result, err := WithRetry(context.Background(), policy, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &TransientError{StatusCode: 503, Err: errors.New("unavailable")}
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Expected recovery, got: %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected result 'ok', got '%s'", result)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryRateLimitCooldown(t *testing.T) {
	policy := Policy{
		MaxRetries:        1,
		InitialBackoff:    time.Millisecond,
		Multiplier:        2.0,
		RateLimitCooldown: 50 * time.Millisecond,
	}

	start := time.Now()
	attempts := 0
	_, err := WithRetry(context.Background(), policy, func(ctx context.Context) (int, error) {
		attempts++
		return 0, &TransientError{StatusCode: http.StatusTooManyRequests, Err: errors.New("rate limited")}
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
	// One retry: the fixed cooldown must replace the 1ms backoff
	if elapsed < 50*time.Millisecond {
		t.Errorf("Expected at least the 50ms cooldown before retry, slept %v", elapsed)
	}
}

func TestWithRetryContextCancelsBackoff(t *testing.T) {
	policy := Policy{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Second,
		Multiplier:     2.0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := WithRetry(ctx, policy, func(ctx context.Context) (int, error) {
		return 0, &TransientError{Err: errors.New("transient")}
	})
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context deadline error, got: %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("Backoff sleep was not cancelled by context, took %v", elapsed)
	}
}

func TestIsRateLimited(t *testing.T) {
	rateLimited := &TransientError{StatusCode: 429, Err: errors.New("slow down")}
	if !IsRateLimited(rateLimited) {
		t.Error("Expected 429 transient error to be rate limited")
	}
	if !IsRateLimited(fmt.Errorf("wrapped: %w", rateLimited)) {
		t.Error("Expected wrapped 429 error to stay rate limited")
	}

	serverError := &TransientError{StatusCode: 500, Err: errors.New("boom")}
	if IsRateLimited(serverError) {
		t.Error("Expected 500 transient error to not be rate limited")
	}
	if IsRateLimited(&FatalError{StatusCode: 404, Err: errors.New("missing")}) {
		t.Error("Expected fatal error to not be rate limited")
	}
}
