package sync

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/anonimouzmkt/calendar-server/internal/models"
	"github.com/anonimouzmkt/calendar-server/internal/repository"
)

const defaultShutdownGrace = 30 * time.Second

// CycleResult aggregates one batch cycle across all integrations.
type CycleResult struct {
	Skipped   bool
	Processed int
	Succeeded int
	Failed    int
	Pushed    int
	Pulled    int
	Cancelled int
	Swept     int
	Duration  time.Duration
}

// Orchestrator runs the engine over every eligible integration. At most
// one cycle is in flight at a time; a trigger landing during a running
// cycle is a no-op.
type Orchestrator struct {
	Store   repository.Store
	Engine  *Engine
	Logger  *zap.Logger
	Metrics Metrics

	BatchSize     int
	ShutdownGrace time.Duration

	running  atomic.Bool
	draining atomic.Bool
}

// Running reports whether a cycle is currently in flight.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// RunCycle processes one batch. On external shutdown it stops starting new
// integrations and lets the in-flight one finish its current phase; a hard
// grace timeout forces termination if that takes too long.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		o.log().Debug("sync cycle already in flight, skipping trigger")
		return CycleResult{Skipped: true}, nil
	}
	defer o.running.Store(false)
	o.draining.Store(false)

	start := time.Now()
	o.metrics().CycleStarted()
	o.Engine.BeginCycle()

	// The cycle runs on a context detached from the trigger so shutdown
	// drains instead of cutting remote calls mid-flight. The grace timer
	// is the hard stop.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	runCtx = withDrainFlag(runCtx, &o.draining)
	stopWatch := context.AfterFunc(ctx, func() {
		o.draining.Store(true)
		time.AfterFunc(o.grace(), cancel)
	})
	defer stopWatch()

	result := CycleResult{}
	var lastErr error

	integrations, err := o.Store.ListEligibleIntegrations(runCtx, o.batch())
	if err != nil {
		o.log().Error("failed to list eligible integrations", zap.Error(err))
		result.Duration = time.Since(start)
		o.record(result, err)
		o.metrics().CycleFinished(result.Duration, 0, 0, 0)
		return result, err
	}

	for i := range integrations {
		if o.draining.Load() || runCtx.Err() != nil {
			o.log().Info("cycle loop halted by shutdown",
				zap.Int("remaining", len(integrations)-i),
			)
			break
		}
		integ := integrations[i]
		o.metrics().IntegrationStarted(integ.ID)
		stats, err := o.Engine.Run(runCtx, &integ)
		result.Processed++
		result.Pushed += stats.Pushed
		result.Pulled += stats.Pulled
		result.Cancelled += stats.Cancelled
		result.Swept += stats.Swept
		if err != nil {
			result.Failed++
			lastErr = err
			o.metrics().IntegrationFailed(integ.ID, errorCategory(err))
			continue
		}
		result.Succeeded++
		o.metrics().IntegrationSucceeded(integ.ID, stats)
	}

	result.Duration = time.Since(start)
	o.record(result, lastErr)
	o.metrics().CycleFinished(result.Duration, result.Processed, result.Succeeded, result.Failed)
	return result, nil
}

func (o *Orchestrator) record(result CycleResult, lastErr error) {
	now := time.Now().UTC()
	run := &models.SyncRun{
		StartedAt:  now.Add(-result.Duration),
		FinishedAt: now,
		Processed:  result.Processed,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		Pushed:     result.Pushed,
		Pulled:     result.Pulled,
		Cancelled:  result.Cancelled,
		Swept:      result.Swept,
	}
	if lastErr != nil {
		msg := lastErr.Error()
		run.LastError = &msg
	}
	if raw, err := json.Marshal(result); err == nil {
		run.StatsJSON = datatypes.JSON(raw)
	}

	// The cycle context may already be torn down; bookkeeping gets its own
	// short deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.Store.InsertSyncRun(ctx, run); err != nil {
		o.log().Warn("failed to record sync run", zap.Error(err))
	}
}

func (o *Orchestrator) log() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

func (o *Orchestrator) metrics() Metrics {
	if o.Metrics != nil {
		return o.Metrics
	}
	return NopMetrics{}
}

func (o *Orchestrator) batch() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 50
}

func (o *Orchestrator) grace() time.Duration {
	if o.ShutdownGrace > 0 {
		return o.ShutdownGrace
	}
	return defaultShutdownGrace
}

type drainFlagKey struct{}

func withDrainFlag(ctx context.Context, flag *atomic.Bool) context.Context {
	return context.WithValue(ctx, drainFlagKey{}, flag)
}

// drainRequested reports whether shutdown asked the current cycle to stop
// at the next phase boundary.
func drainRequested(ctx context.Context) bool {
	flag, ok := ctx.Value(drainFlagKey{}).(*atomic.Bool)
	return ok && flag.Load()
}
