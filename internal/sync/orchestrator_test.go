package sync

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/anonimouzmkt/calendar-server/internal/client/calendar"
	"github.com/anonimouzmkt/calendar-server/internal/models"
)

func newTestOrchestrator(store *stubStore, gateway CalendarGateway) *Orchestrator {
	engine := newTestEngine(store, &stubGateway{})
	engine.Gateway = gateway
	return &Orchestrator{
		Store:     store,
		Engine:    engine,
		Logger:    zap.NewNop(),
		Metrics:   NopMetrics{},
		BatchSize: 10,
	}
}

func addConnected(store *stubStore, id string) *models.Integration {
	integ := connectedIntegration()
	integ.ID = id
	integ.CalendarID = "cal-" + id
	store.addIntegration(integ)
	return integ
}

func TestRunCycleProcessesEligibleIntegrations(t *testing.T) {
	store := newStubStore()
	addConnected(store, "int-a")
	addConnected(store, "int-b")
	disabled := connectedIntegration()
	disabled.ID = "int-off"
	disabled.Enabled = false
	store.addIntegration(disabled)

	o := newTestOrchestrator(store, &stubGateway{})

	result, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped {
		t.Fatalf("cycle must not be skipped")
	}
	if result.Processed != 2 || result.Succeeded != 2 || result.Failed != 0 {
		t.Fatalf("processed=%d succeeded=%d failed=%d, want 2/2/0",
			result.Processed, result.Succeeded, result.Failed)
	}
	if len(store.syncRuns) != 1 {
		t.Fatalf("every cycle must leave one bookkeeping row")
	}
}

func TestRunCycleSkipsWhenInFlight(t *testing.T) {
	store := newStubStore()
	addConnected(store, "int-a")

	entered := make(chan struct{})
	release := make(chan struct{})
	o := newTestOrchestrator(store, &blockingGateway{
		inner:   &stubGateway{},
		entered: entered,
		release: release,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	var first CycleResult
	go func() {
		defer wg.Done()
		first, _ = o.RunCycle(context.Background())
	}()

	<-entered
	second, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Skipped {
		t.Fatalf("a trigger during a running cycle must be a no-op")
	}
	close(release)
	wg.Wait()

	if first.Skipped || first.Processed != 1 {
		t.Fatalf("first cycle must run to completion: %+v", first)
	}
}

func TestRunCycleFailureIsolation(t *testing.T) {
	store := newStubStore()
	good := addConnected(store, "int-good")
	bad := addConnected(store, "int-bad")
	bad.AccessToken = ""
	bad.TokenExpiresAt = nil
	refresh := "rt"
	bad.RefreshToken = &refresh

	o := newTestOrchestrator(store, &stubGateway{})
	// Refreshing int-bad fails terminally; int-good needs no refresh.
	o.Engine.Tokens.Refresher = &stubRefresher{err: &AuthError{Reason: "revoked"}}

	result, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("per-integration failures must not fail the cycle: %v", err)
	}
	if result.Processed != 2 || result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("processed=%d succeeded=%d failed=%d, want 2/1/1",
			result.Processed, result.Succeeded, result.Failed)
	}
	if store.integrations[good.ID].Status != models.IntegrationStatusConnected {
		t.Fatalf("healthy integration must stay connected")
	}
	if store.integrations[bad.ID].Status != models.IntegrationStatusError {
		t.Fatalf("failed integration must be parked")
	}
	if len(store.syncRuns) != 1 || store.syncRuns[0].LastError == nil {
		t.Fatalf("the bookkeeping row must carry the last error")
	}
}

func TestRunCycleWithoutLoggerOrMetrics(t *testing.T) {
	store := newStubStore()
	addConnected(store, "int-a")

	o := &Orchestrator{
		Store:  store,
		Engine: newTestEngine(store, &stubGateway{}),
	}

	result, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 1 || result.Succeeded != 1 {
		t.Fatalf("processed=%d succeeded=%d, want 1/1", result.Processed, result.Succeeded)
	}
}

func TestRunCycleBatchCap(t *testing.T) {
	store := newStubStore()
	for _, id := range []string{"int-1", "int-2", "int-3"} {
		addConnected(store, id)
	}

	o := newTestOrchestrator(store, &stubGateway{})
	o.BatchSize = 2

	result, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("processed = %d, want the batch cap of 2", result.Processed)
	}
}

func TestRunCycleShutdownStopsNewIntegrations(t *testing.T) {
	store := newStubStore()
	addConnected(store, "int-a")
	addConnected(store, "int-b")

	entered := make(chan struct{})
	release := make(chan struct{})
	o := newTestOrchestrator(store, &blockingGateway{
		inner:   &stubGateway{},
		entered: entered,
		release: release,
	})
	o.ShutdownGrace = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan CycleResult, 1)
	go func() {
		result, _ := o.RunCycle(ctx)
		done <- result
	}()

	// Cancel the trigger while the first integration is mid-pull, then let
	// it finish. The second integration must not start.
	<-entered
	cancel()
	for !o.draining.Load() {
		time.Sleep(time.Millisecond)
	}
	close(release)

	result := <-done
	if result.Processed != 1 {
		t.Fatalf("processed = %d, want 1 after shutdown drain", result.Processed)
	}
}

// blockingGateway parks the first ListEvents call until released so tests
// can observe a cycle mid-flight.
type blockingGateway struct {
	inner   CalendarGateway
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *blockingGateway) ListEvents(ctx context.Context, token, calendarID string, q calendar.ListEventsQuery) (*calendar.ListEventsResponse, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.inner.ListEvents(ctx, token, calendarID, q)
}

func (g *blockingGateway) CreateEvent(ctx context.Context, token, calendarID string, req calendar.CreateEventRequest) (*calendar.Event, error) {
	return g.inner.CreateEvent(ctx, token, calendarID, req)
}

func (g *blockingGateway) GetEvent(ctx context.Context, token, calendarID, eventID string) (*calendar.Event, error) {
	return g.inner.GetEvent(ctx, token, calendarID, eventID)
}
