package sync

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Executor retries transient remote failures with linear backoff.
// Terminal failures propagate on the first attempt.
type Executor struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewExecutor(maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Executor{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Logger:      logger,
		sleep:       sleepCtx,
	}
}

func (e *Executor) Execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := e.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if Classify(lastErr) == ClassTerminal {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		delay := e.BaseDelay * time.Duration(attempt)
		if e.Logger != nil {
			e.Logger.Debug("retrying after transient failure",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
		}
		if err := e.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}
