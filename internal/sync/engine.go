package sync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/anonimouzmkt/calendar-server/internal/client/calendar"
	"github.com/anonimouzmkt/calendar-server/internal/models"
	"github.com/anonimouzmkt/calendar-server/internal/repository"
)

const (
	defaultPullWindowPast   = 30 * 24 * time.Hour
	defaultPullWindowFuture = 365 * 24 * time.Hour
	defaultSweepEveryCycles = 10
)

// CalendarGateway is the remote calendar surface the engine reconciles
// against. All calls are at-least-once; their local effects are idempotent.
type CalendarGateway interface {
	ListEvents(ctx context.Context, token, calendarID string, q calendar.ListEventsQuery) (*calendar.ListEventsResponse, error)
	CreateEvent(ctx context.Context, token, calendarID string, req calendar.CreateEventRequest) (*calendar.Event, error)
	GetEvent(ctx context.Context, token, calendarID, eventID string) (*calendar.Event, error)
}

// RunStats aggregates what one engine run did to one integration.
type RunStats struct {
	Pushed         int
	PushErrors     int
	Pulled         int
	Cancelled      int
	PullErrors     int
	Swept          int
	SweepErrors    int
	CursorAdvanced bool
	SweepRan       bool
}

// Engine reconciles one integration per Run call, in three phases: push
// locally authored appointments out, pull remote changes in, and sweep
// local records whose remote event vanished. A failure confined to one
// phase does not stop the following phases; item failures inside a phase
// never abort the rest of that phase.
type Engine struct {
	Store   repository.Store
	Gateway CalendarGateway
	Tokens  *TokenManager
	Limiter *RateLimiter
	Retry   *Executor
	Metrics Metrics
	Logger  *zap.Logger

	PullWindowPast   time.Duration
	PullWindowFuture time.Duration

	// SweepEvery throttles the orphan sweep to every Nth cycle, bounding
	// the extra existence probes the sweep costs.
	SweepEvery int

	cycle    uint64
	sweepDue bool

	now func() time.Time
}

// BeginCycle advances the sweep cadence. The orchestrator calls it once
// per batch cycle, never concurrently with Run.
func (e *Engine) BeginCycle() {
	every := e.SweepEvery
	if every <= 0 {
		every = defaultSweepEveryCycles
	}
	e.cycle++
	e.sweepDue = e.cycle%uint64(every) == 0
}

func (e *Engine) Run(ctx context.Context, integ *models.Integration) (RunStats, error) {
	stats := RunStats{}
	log := e.Logger.With(
		zap.String("integration_id", integ.ID),
		zap.String("tenant_id", integ.TenantID),
	)

	token, err := e.Tokens.EnsureValid(ctx, integ)
	if err != nil {
		if !storeOnly(err) {
			e.failIntegration(ctx, integ, err)
		}
		return stats, err
	}

	var phaseErr error
	if err := e.pushLocal(ctx, log, integ, token, &stats); err != nil {
		log.Warn("push phase failed", zap.Error(err))
		phaseErr = errors.Join(phaseErr, err)
	}
	if drainRequested(ctx) {
		return stats, phaseErr
	}
	if err := e.pullRemote(ctx, log, integ, token, &stats); err != nil {
		log.Warn("pull phase failed", zap.Error(err))
		phaseErr = errors.Join(phaseErr, err)
	}
	if drainRequested(ctx) {
		return stats, phaseErr
	}
	if e.sweepDue {
		stats.SweepRan = true
		if err := e.sweepOrphans(ctx, log, integ, token, &stats); err != nil {
			log.Warn("sweep phase failed", zap.Error(err))
			phaseErr = errors.Join(phaseErr, err)
		}
	}

	if phaseErr != nil {
		// Auth, terminal, and exhausted remote failures park the
		// integration; persistence failures leave its status alone so the
		// next cycle retries.
		if !storeOnly(phaseErr) {
			e.failIntegration(ctx, integ, phaseErr)
		}
		return stats, phaseErr
	}

	if err := e.Store.MarkIntegrationSynced(ctx, integ.ID, e.clock()); err != nil {
		log.Warn("failed to record sync success", zap.Error(err))
	}
	return stats, nil
}

// pushLocal creates a remote event for every locally authored appointment
// that has no external id yet, then stores the assigned id and meeting
// link. Item failures are logged and skipped.
func (e *Engine) pushLocal(ctx context.Context, log *zap.Logger, integ *models.Integration, token string, stats *RunStats) error {
	appts, err := e.Store.ListUnpushedAppointments(ctx, integ.TenantID, integ.CalendarID)
	if err != nil {
		return &StoreError{Op: "list unpushed appointments", Err: err}
	}

	for i := range appts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		appt := &appts[i]
		req := calendar.CreateEventRequest{
			Title:              appt.Title,
			Description:        appt.Description,
			Location:           appt.Location,
			Start:              calendar.NewEventTime(appt.StartTime, appt.AllDay),
			End:                calendar.NewEventTime(appt.EndTime, appt.AllDay),
			Attendees:          decodeAttendees(appt.Attendees),
			RequestMeetingLink: appt.MeetingLink == "",
		}

		var created *calendar.Event
		err := e.remoteCall(ctx, "events.create", func(ctx context.Context) error {
			ev, err := e.Gateway.CreateEvent(ctx, token, integ.CalendarID, req)
			if err != nil {
				return err
			}
			created = ev
			return nil
		})
		if err != nil {
			log.Warn("push failed for appointment",
				zap.String("appointment_id", appt.ID),
				zap.Error(err),
			)
			stats.PushErrors++
			continue
		}

		if err := e.Store.MarkAppointmentPushed(ctx, appt.ID, created.ID, created.MeetingLink); err != nil {
			log.Warn("failed to store external id",
				zap.String("appointment_id", appt.ID),
				zap.Error(err),
			)
			stats.PushErrors++
			continue
		}
		stats.Pushed++
	}
	return nil
}

// pullRemote applies one page of remote changes. With a cursor the cursor
// alone selects the result set; without one, a fixed full window ordered
// by start time. The continuation cursor, when present, replaces the old
// one exactly once per successful pass, regardless of item failures.
func (e *Engine) pullRemote(ctx context.Context, log *zap.Logger, integ *models.Integration, token string, stats *RunStats) error {
	q := calendar.ListEventsQuery{}
	if integ.SyncCursor != nil && *integ.SyncCursor != "" {
		q.Cursor = *integ.SyncCursor
	} else {
		now := e.clock()
		timeMin := now.Add(-e.pullPast())
		timeMax := now.Add(e.pullFuture())
		q.TimeMin = &timeMin
		q.TimeMax = &timeMax
		q.OrderBy = "start_time"
	}

	var resp *calendar.ListEventsResponse
	err := e.remoteCall(ctx, "events.list", func(ctx context.Context) error {
		r, err := e.Gateway.ListEvents(ctx, token, integ.CalendarID, q)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return err
	}

	for i := range resp.Events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.applyRemoteEvent(ctx, integ, &resp.Events[i], stats); err != nil {
			log.Warn("failed to apply remote event",
				zap.String("external_id", resp.Events[i].ID),
				zap.Error(err),
			)
			stats.PullErrors++
		}
	}

	if resp.NextCursor != "" {
		if err := e.Store.UpdateIntegrationCursor(ctx, integ.ID, resp.NextCursor); err != nil {
			return &StoreError{Op: "update sync cursor", Err: err}
		}
		cursor := resp.NextCursor
		integ.SyncCursor = &cursor
		stats.CursorAdvanced = true
	}
	return nil
}

func (e *Engine) applyRemoteEvent(ctx context.Context, integ *models.Integration, ev *calendar.Event, stats *RunStats) error {
	existing, err := e.Store.GetAppointmentByExternalID(ctx, integ.TenantID, ev.ID)
	if err != nil {
		return err
	}

	if ev.Cancelled() {
		if existing == nil || existing.Cancelled() {
			return nil
		}
		if err := e.Store.CancelAppointment(ctx, existing.ID, e.clock()); err != nil {
			return err
		}
		stats.Cancelled++
		return nil
	}

	start, err := ev.Start.Resolve()
	if err != nil {
		return err
	}
	end, err := ev.End.Resolve()
	if err != nil || end.IsZero() {
		end = start
	}
	allDay := ev.Start.AllDay()
	attendees := encodeAttendees(ev.Attendees)

	if existing != nil {
		// Last writer wins on pull: id, owner, and creation time stay,
		// everything mutable follows the remote record.
		existing.Title = ev.Title
		existing.Description = ev.Description
		existing.Location = ev.Location
		existing.StartTime = start
		existing.EndTime = end
		existing.AllDay = allDay
		existing.Attendees = attendees
		existing.MeetingLink = ev.MeetingLink
		existing.Status = models.AppointmentStatusScheduled
		if err := e.Store.UpdateAppointment(ctx, existing); err != nil {
			return err
		}
		stats.Pulled++
		return nil
	}

	owner := e.resolveOwner(ctx, integ.TenantID)
	externalID := ev.ID
	appt := &models.Appointment{
		ID:          uuid.NewString(),
		TenantID:    integ.TenantID,
		CalendarID:  integ.CalendarID,
		ExternalID:  &externalID,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		StartTime:   start,
		EndTime:     end,
		AllDay:      allDay,
		Attendees:   attendees,
		MeetingLink: ev.MeetingLink,
		Status:      models.AppointmentStatusScheduled,
		OwnerID:     owner,
	}
	if err := e.Store.CreateAppointment(ctx, appt); err != nil {
		return err
	}
	stats.Pulled++
	return nil
}

// sweepOrphans probes every synced, live appointment and cancels the ones
// whose remote event is gone for good. Transient probe failures skip the
// item; they never count as nonexistence.
func (e *Engine) sweepOrphans(ctx context.Context, log *zap.Logger, integ *models.Integration, token string, stats *RunStats) error {
	appts, err := e.Store.ListSyncedAppointments(ctx, integ.TenantID, integ.CalendarID)
	if err != nil {
		return &StoreError{Op: "list synced appointments", Err: err}
	}

	for i := range appts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		appt := &appts[i]
		if appt.ExternalID == nil {
			continue
		}
		err := e.remoteCall(ctx, "events.get", func(ctx context.Context) error {
			_, err := e.Gateway.GetEvent(ctx, token, integ.CalendarID, *appt.ExternalID)
			return err
		})
		if err == nil {
			continue
		}
		if !IsNotFound(err) {
			log.Debug("sweep probe inconclusive, skipping",
				zap.String("appointment_id", appt.ID),
				zap.Error(err),
			)
			stats.SweepErrors++
			continue
		}
		if err := e.Store.CancelAppointment(ctx, appt.ID, e.clock()); err != nil {
			log.Warn("failed to cancel orphan",
				zap.String("appointment_id", appt.ID),
				zap.Error(err),
			)
			stats.SweepErrors++
			continue
		}
		stats.Swept++
	}
	return nil
}

// remoteCall funnels a gateway call through the shared rate limiter and
// the retry executor, reporting latency per attempt.
func (e *Engine) remoteCall(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return e.Retry.Execute(ctx, op, func(ctx context.Context) error {
		if err := e.Limiter.Acquire(ctx); err != nil {
			return err
		}
		start := time.Now()
		err := fn(ctx)
		if e.Metrics != nil {
			e.Metrics.RemoteCall(op, time.Since(start), err)
		}
		return err
	})
}

func (e *Engine) resolveOwner(ctx context.Context, tenantID string) string {
	tenant, err := e.Store.GetTenant(ctx, tenantID)
	if err == nil && tenant != nil && tenant.AdminUserID != nil && *tenant.AdminUserID != "" {
		return *tenant.AdminUserID
	}
	return models.SystemOwnerID
}

func (e *Engine) failIntegration(ctx context.Context, integ *models.Integration, cause error) {
	integ.Status = models.IntegrationStatusError
	if err := e.Store.UpdateIntegrationStatus(ctx, integ.ID, models.IntegrationStatusError, cause.Error()); err != nil {
		e.Logger.Warn("failed to mark integration errored",
			zap.String("integration_id", integ.ID),
			zap.Error(err),
		)
	}
}

func (e *Engine) pullPast() time.Duration {
	if e.PullWindowPast > 0 {
		return e.PullWindowPast
	}
	return defaultPullWindowPast
}

func (e *Engine) pullFuture() time.Duration {
	if e.PullWindowFuture > 0 {
		return e.PullWindowFuture
	}
	return defaultPullWindowFuture
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

func decodeAttendees(raw datatypes.JSON) []calendar.Attendee {
	if len(raw) == 0 {
		return nil
	}
	var emails []string
	if err := json.Unmarshal(raw, &emails); err != nil {
		return nil
	}
	out := make([]calendar.Attendee, 0, len(emails))
	for _, email := range emails {
		out = append(out, calendar.Attendee{Email: email})
	}
	return out
}

func encodeAttendees(attendees []calendar.Attendee) datatypes.JSON {
	if len(attendees) == 0 {
		return nil
	}
	emails := make([]string, 0, len(attendees))
	for _, a := range attendees {
		emails = append(emails, a.Email)
	}
	raw, err := json.Marshal(emails)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
