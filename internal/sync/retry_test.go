package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/anonimouzmkt/calendar-server/internal/client/calendar"
)

func newTestExecutor(maxAttempts int) (*Executor, *[]time.Duration) {
	delays := &[]time.Duration{}
	e := NewExecutor(maxAttempts, time.Second, zap.NewNop())
	e.sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return e, delays
}

func TestExecuteSucceedsFirstTry(t *testing.T) {
	e, delays := newTestExecutor(3)
	calls := 0
	err := e.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 || len(*delays) != 0 {
		t.Fatalf("calls=%d delays=%d, want 1 and 0", calls, len(*delays))
	}
}

func TestExecuteRetriesTransient(t *testing.T) {
	e, delays := newTestExecutor(3)
	calls := 0
	transient := &calendar.APIError{Status: 503, Body: "overloaded"}
	err := e.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	// Linear backoff: base, then twice the base.
	if len(*delays) != 2 || (*delays)[0] != time.Second || (*delays)[1] != 2*time.Second {
		t.Fatalf("delays = %v, want [1s 2s]", *delays)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	e, delays := newTestExecutor(3)
	calls := 0
	transient := errors.New("connection reset")
	err := e.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("expected last error back, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(*delays) != 2 {
		t.Fatalf("no sleep after the final attempt, got %d delays", len(*delays))
	}
}

func TestExecuteTerminalStopsImmediately(t *testing.T) {
	e, delays := newTestExecutor(5)
	calls := 0
	terminal := &calendar.APIError{Status: 404, Body: "gone"}
	err := e.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return terminal
	})
	if !errors.Is(err, terminal) {
		t.Fatalf("expected terminal error back, got %v", err)
	}
	if calls != 1 || len(*delays) != 0 {
		t.Fatalf("terminal errors must not be retried: calls=%d delays=%d", calls, len(*delays))
	}
}

func TestExecuteInterruptedSleepReturnsLastError(t *testing.T) {
	e := NewExecutor(3, time.Second, zap.NewNop())
	e.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}
	transient := errors.New("flaky")
	calls := 0
	err := e.Execute(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("expected last operation error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
