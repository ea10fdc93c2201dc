package sync

import (
	"time"

	"go.uber.org/zap"
)

// Metrics is the observability hook the engine and orchestrator report
// through. Implementations must be safe for concurrent use.
type Metrics interface {
	CycleStarted()
	CycleFinished(d time.Duration, processed, succeeded, failed int)
	IntegrationStarted(id string)
	IntegrationSucceeded(id string, stats RunStats)
	IntegrationFailed(id string, category string)
	RemoteCall(op string, d time.Duration, err error)
	RateLimitHit(wait time.Duration)
}

// LogMetrics reports through the structured logger. It is the default
// implementation; a metrics backend can replace it without touching the
// engine.
type LogMetrics struct {
	Logger *zap.Logger
}

func (m *LogMetrics) CycleStarted() {
	m.Logger.Info("sync cycle started")
}

func (m *LogMetrics) CycleFinished(d time.Duration, processed, succeeded, failed int) {
	m.Logger.Info("sync cycle finished",
		zap.Duration("duration", d),
		zap.Int("processed", processed),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
	)
}

func (m *LogMetrics) IntegrationStarted(id string) {
	m.Logger.Debug("integration sync started", zap.String("integration_id", id))
}

func (m *LogMetrics) IntegrationSucceeded(id string, stats RunStats) {
	m.Logger.Info("integration sync ok",
		zap.String("integration_id", id),
		zap.Int("pushed", stats.Pushed),
		zap.Int("pulled", stats.Pulled),
		zap.Int("cancelled", stats.Cancelled),
		zap.Int("swept", stats.Swept),
	)
}

func (m *LogMetrics) IntegrationFailed(id string, category string) {
	m.Logger.Warn("integration sync failed",
		zap.String("integration_id", id),
		zap.String("category", category),
	)
}

func (m *LogMetrics) RemoteCall(op string, d time.Duration, err error) {
	if err != nil {
		m.Logger.Debug("remote call failed", zap.String("op", op), zap.Duration("latency", d), zap.Error(err))
		return
	}
	m.Logger.Debug("remote call ok", zap.String("op", op), zap.Duration("latency", d))
}

func (m *LogMetrics) RateLimitHit(wait time.Duration) {
	m.Logger.Debug("rate limit hit", zap.Duration("wait", wait))
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) CycleStarted()                                   {}
func (NopMetrics) CycleFinished(time.Duration, int, int, int)      {}
func (NopMetrics) IntegrationStarted(string)                       {}
func (NopMetrics) IntegrationSucceeded(string, RunStats)           {}
func (NopMetrics) IntegrationFailed(string, string)                {}
func (NopMetrics) RemoteCall(string, time.Duration, error)         {}
func (NopMetrics) RateLimitHit(time.Duration)                      {}
