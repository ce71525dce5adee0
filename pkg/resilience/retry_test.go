package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kestrel-labs/promptforge/pkg/resilience"
)

func TestRetry_Execute_SucceedsWithoutRetryOnFirstAttempt(t *testing.T) {
	r := resilience.NewRetry(resilience.RetryConfig{MaxRetries: 3})

	calls := 0
	err := r.Execute(context.Background(), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetry_Execute_RetriesUntilSuccess(t *testing.T) {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        4 * time.Millisecond,
		BackoffMultiplier: 2.0,
	})

	calls := 0
	err := r.Execute(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetry_Execute_ReturnsJoinedErrorAfterMaxRetries(t *testing.T) {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2.0,
	})

	wantErr := errors.New("permanent")
	calls := 0
	err := r.Execute(context.Background(), func() error {
		calls++
		return wantErr
	})

	if !errors.Is(err, resilience.ErrMaxRetriesExceeded) {
		t.Fatalf("Execute() error = %v, want wrapping ErrMaxRetriesExceeded", err)
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("Execute() error = %v, want wrapping %v", err, wantErr)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (1 initial + 2 retries)", calls)
	}
}

func TestRetry_Execute_StopsOnNonRetryableError(t *testing.T) {
	sentinel := errors.New("do not retry me")
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxRetries:       3,
		InitialBackoff:   time.Millisecond,
		RetryableChecker: func(err error) bool { return !errors.Is(err, sentinel) },
	})

	calls := 0
	err := r.Execute(context.Background(), func() error {
		calls++
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("Execute() error = %v, want %v", err, sentinel)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retries for a non-retryable error)", calls)
	}
}

func TestRetry_Execute_RespectsContextCancellation(t *testing.T) {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxRetries:     5,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := r.Execute(ctx, func() error {
		return errors.New("always fails")
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Execute() error = %v, want context.DeadlineExceeded", err)
	}
}
