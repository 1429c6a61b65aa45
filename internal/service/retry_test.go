package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

func TestRetryPolicyExecuteSuccess(t *testing.T) {
	policy := NewRetryPolicy(WithMaxAttempts(3), WithBaseDelay(time.Millisecond))

	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicyExecuteRetriesRetryable(t *testing.T) {
	policy := NewRetryPolicy(WithMaxAttempts(3), WithBaseDelay(time.Millisecond))

	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return core.ErrNetwork("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryPolicyExecuteExhausted(t *testing.T) {
	policy := NewRetryPolicy(WithMaxAttempts(2), WithBaseDelay(time.Millisecond))

	cause := core.ErrRateLimit("throttled")
	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return cause
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}

	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error type = %T, want *RetryExhaustedError", err)
	}
	if exhausted.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", exhausted.Attempts)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not preserved: %v", err)
	}
	if !IsRetryExhausted(err) {
		t.Error("IsRetryExhausted returned false")
	}
}

func TestRetryPolicyExecuteNonRetryable(t *testing.T) {
	policy := NewRetryPolicy(WithMaxAttempts(3), WithBaseDelay(time.Millisecond))

	calls := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return core.ErrAuth("invalid API key")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (non-retryable errors fail immediately)", calls)
	}
	if IsRetryExhausted(err) {
		t.Error("non-retryable failure must not be reported as exhaustion")
	}
}

func TestRetryPolicyExecuteContextCancelled(t *testing.T) {
	policy := NewRetryPolicy(WithMaxAttempts(5), WithBaseDelay(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Execute(ctx, func(ctx context.Context) error {
			calls++
			return core.ErrNetwork("unreachable")
		})
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after cancellation")
	}
}

func TestCalculateDelayExponential(t *testing.T) {
	policy := &RetryPolicy{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := policy.CalculateDelayNoJitter(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: delay = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestCalculateDelayCapped(t *testing.T) {
	policy := &RetryPolicy{
		BaseDelay:  time.Second,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}

	if got := policy.CalculateDelayNoJitter(10); got != 5*time.Second {
		t.Errorf("delay = %v, want cap of 5s", got)
	}
}

func TestCalculateDelayJitterBounds(t *testing.T) {
	policy := &RetryPolicy{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		JitterFactor: 0.2,
		Multiplier:   2.0,
	}

	for i := 0; i < 100; i++ {
		got := policy.CalculateDelay(1)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("jittered delay %v outside [800ms, 1200ms]", got)
		}
	}
}
