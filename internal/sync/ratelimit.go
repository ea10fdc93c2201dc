package sync

import (
	"context"
	"sync"
	"time"
)

const acquireFloor = 50 * time.Millisecond

// RateLimiter caps outbound remote calls across every integration in a
// cycle with a sliding window: at most capacity calls inside any trailing
// window. One shared instance is the sole authority on the combined call
// rate, however many integrations run.
type RateLimiter struct {
	Metrics Metrics

	mu       sync.Mutex
	capacity int
	window   time.Duration
	calls    []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRateLimiter(capacity int, window time.Duration) *RateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		capacity: capacity,
		window:   window,
		calls:    make([]time.Time, 0, capacity),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// TryAcquire records a call slot if capacity remains in the trailing
// window. On refusal it reports how long until the oldest recorded call
// slides out of the window.
func (l *RateLimiter) TryAcquire() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.calls[:0]
	for _, ts := range l.calls {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.calls = kept

	if len(l.calls) < l.capacity {
		l.calls = append(l.calls, now)
		return true, 0
	}
	return false, l.calls[0].Add(l.window).Sub(now)
}

// Acquire blocks until a slot frees up or the context ends. Every gateway
// call goes through here.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	for {
		ok, wait := l.TryAcquire()
		if ok {
			return nil
		}
		if l.Metrics != nil {
			l.Metrics.RateLimitHit(wait)
		}
		if wait < acquireFloor {
			wait = acquireFloor
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
