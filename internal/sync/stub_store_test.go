package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/anonimouzmkt/calendar-server/internal/models"
	"github.com/anonimouzmkt/calendar-server/internal/repository"
)

// stubStore is a test-only in-memory implementation of repository.Store.
// It implements the full interface but each test only exercises a subset.
type stubStore struct {
	integrations map[string]*models.Integration
	appointments map[string]*models.Appointment
	tenants      map[string]*models.Tenant
	syncRuns     []models.SyncRun

	cursorUpdates []string
	statusUpdates []models.IntegrationStatus
	tokenUpdates  int
	syncedAt      []time.Time

	listEligibleErr  error
	createApptErr    error
	updateApptErr    error
	updateCursorErr  error
	updateTokensErr  error
	markPushedErr    error
	cancelErr        error
	listUnpushedErr  error
	listSyncedErr    error
	getByExternalErr error
}

func newStubStore() *stubStore {
	return &stubStore{
		integrations: map[string]*models.Integration{},
		appointments: map[string]*models.Appointment{},
		tenants:      map[string]*models.Tenant{},
	}
}

func (s *stubStore) addIntegration(i *models.Integration) {
	s.integrations[i.ID] = i
}

func (s *stubStore) addAppointment(a *models.Appointment) {
	s.appointments[a.ID] = a
}

func (s *stubStore) ListEligibleIntegrations(ctx context.Context, limit int) ([]models.Integration, error) {
	if s.listEligibleErr != nil {
		return nil, s.listEligibleErr
	}
	out := []models.Integration{}
	for _, i := range s.integrations {
		if !i.Enabled || !i.SyncEnabled || i.Status != models.IntegrationStatusConnected {
			continue
		}
		if !i.Credentialed() {
			continue
		}
		out = append(out, *i)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubStore) GetIntegration(ctx context.Context, id string) (*models.Integration, error) {
	i, ok := s.integrations[id]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (s *stubStore) ListIntegrations(ctx context.Context, params repository.ListIntegrationsParams) ([]models.Integration, error) {
	out := []models.Integration{}
	for _, i := range s.integrations {
		out = append(out, *i)
	}
	return out, nil
}

func (s *stubStore) UpdateIntegrationTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	if s.updateTokensErr != nil {
		return s.updateTokensErr
	}
	s.tokenUpdates++
	if i, ok := s.integrations[id]; ok {
		i.AccessToken = accessToken
		i.RefreshToken = &refreshToken
		exp := expiresAt
		i.TokenExpiresAt = &exp
	}
	return nil
}

func (s *stubStore) UpdateIntegrationCursor(ctx context.Context, id, cursor string) error {
	if s.updateCursorErr != nil {
		return s.updateCursorErr
	}
	s.cursorUpdates = append(s.cursorUpdates, cursor)
	if i, ok := s.integrations[id]; ok {
		c := cursor
		i.SyncCursor = &c
	}
	return nil
}

func (s *stubStore) UpdateIntegrationStatus(ctx context.Context, id string, status models.IntegrationStatus, lastError string) error {
	s.statusUpdates = append(s.statusUpdates, status)
	if i, ok := s.integrations[id]; ok {
		i.Status = status
		msg := lastError
		i.LastError = &msg
	}
	return nil
}

func (s *stubStore) MarkIntegrationSynced(ctx context.Context, id string, at time.Time) error {
	s.syncedAt = append(s.syncedAt, at)
	if i, ok := s.integrations[id]; ok {
		ts := at
		i.LastSyncedAt = &ts
	}
	return nil
}

func (s *stubStore) ListUnpushedAppointments(ctx context.Context, tenantID, calendarID string) ([]models.Appointment, error) {
	if s.listUnpushedErr != nil {
		return nil, s.listUnpushedErr
	}
	out := []models.Appointment{}
	for _, a := range s.appointments {
		if a.TenantID == tenantID && a.CalendarID == calendarID &&
			a.ExternalID == nil && a.Status == models.AppointmentStatusScheduled {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubStore) ListSyncedAppointments(ctx context.Context, tenantID, calendarID string) ([]models.Appointment, error) {
	if s.listSyncedErr != nil {
		return nil, s.listSyncedErr
	}
	out := []models.Appointment{}
	for _, a := range s.appointments {
		if a.TenantID == tenantID && a.CalendarID == calendarID &&
			a.ExternalID != nil && a.Status == models.AppointmentStatusScheduled {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubStore) GetAppointmentByExternalID(ctx context.Context, tenantID, externalID string) (*models.Appointment, error) {
	if s.getByExternalErr != nil {
		return nil, s.getByExternalErr
	}
	var fallback *models.Appointment
	for _, a := range s.appointments {
		if a.TenantID != tenantID || a.ExternalID == nil || *a.ExternalID != externalID {
			continue
		}
		if a.Status != models.AppointmentStatusCancelled {
			cp := *a
			return &cp, nil
		}
		cp := *a
		fallback = &cp
	}
	return fallback, nil
}

func (s *stubStore) CreateAppointment(ctx context.Context, item *models.Appointment) error {
	if s.createApptErr != nil {
		return s.createApptErr
	}
	cp := *item
	s.appointments[item.ID] = &cp
	return nil
}

func (s *stubStore) UpdateAppointment(ctx context.Context, item *models.Appointment) error {
	if s.updateApptErr != nil {
		return s.updateApptErr
	}
	cp := *item
	s.appointments[item.ID] = &cp
	return nil
}

func (s *stubStore) MarkAppointmentPushed(ctx context.Context, id, externalID, meetingLink string) error {
	if s.markPushedErr != nil {
		return s.markPushedErr
	}
	a, ok := s.appointments[id]
	if !ok {
		return fmt.Errorf("appointment %s not found", id)
	}
	ext := externalID
	a.ExternalID = &ext
	if meetingLink != "" {
		a.MeetingLink = meetingLink
	}
	return nil
}

func (s *stubStore) CancelAppointment(ctx context.Context, id string, at time.Time) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	a, ok := s.appointments[id]
	if !ok {
		return fmt.Errorf("appointment %s not found", id)
	}
	if a.Status == models.AppointmentStatusCancelled {
		return nil
	}
	a.Status = models.AppointmentStatusCancelled
	ts := at
	a.CancelledAt = &ts
	return nil
}

func (s *stubStore) ListAppointments(ctx context.Context, params repository.ListAppointmentsParams) ([]models.Appointment, error) {
	out := []models.Appointment{}
	for _, a := range s.appointments {
		out = append(out, *a)
	}
	return out, nil
}

func (s *stubStore) CountAppointments(ctx context.Context, params repository.ListAppointmentsParams) (int64, error) {
	return int64(len(s.appointments)), nil
}

func (s *stubStore) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	t, ok := s.tenants[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *stubStore) InsertSyncRun(ctx context.Context, item *models.SyncRun) error {
	s.syncRuns = append(s.syncRuns, *item)
	return nil
}

func (s *stubStore) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	return s.syncRuns, nil
}
