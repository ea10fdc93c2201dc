package repository

import (
	"context"
	"time"

	"github.com/anonimouzmkt/calendar-server/internal/models"
)

// Store is the persistence surface the sync engine and the admin API run
// against. The local store and the remote calendar are never transactionally
// coupled; every write here must stay safe to re-apply.
type Store interface {
	// Integrations.
	ListEligibleIntegrations(ctx context.Context, limit int) ([]models.Integration, error)
	GetIntegration(ctx context.Context, id string) (*models.Integration, error)
	ListIntegrations(ctx context.Context, params ListIntegrationsParams) ([]models.Integration, error)
	UpdateIntegrationTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error
	UpdateIntegrationCursor(ctx context.Context, id, cursor string) error
	UpdateIntegrationStatus(ctx context.Context, id string, status models.IntegrationStatus, lastError string) error
	MarkIntegrationSynced(ctx context.Context, id string, at time.Time) error

	// Appointments.
	ListUnpushedAppointments(ctx context.Context, tenantID, calendarID string) ([]models.Appointment, error)
	ListSyncedAppointments(ctx context.Context, tenantID, calendarID string) ([]models.Appointment, error)
	GetAppointmentByExternalID(ctx context.Context, tenantID, externalID string) (*models.Appointment, error)
	CreateAppointment(ctx context.Context, item *models.Appointment) error
	UpdateAppointment(ctx context.Context, item *models.Appointment) error
	MarkAppointmentPushed(ctx context.Context, id, externalID, meetingLink string) error
	CancelAppointment(ctx context.Context, id string, at time.Time) error
	ListAppointments(ctx context.Context, params ListAppointmentsParams) ([]models.Appointment, error)
	CountAppointments(ctx context.Context, params ListAppointmentsParams) (int64, error)

	// Tenants.
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)

	// Cycle bookkeeping.
	InsertSyncRun(ctx context.Context, item *models.SyncRun) error
	ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error)
}

type ListIntegrationsParams struct {
	Limit    int
	Offset   int
	TenantID *string
	Status   *models.IntegrationStatus
	Enabled  *bool
}

type ListAppointmentsParams struct {
	Limit      int
	Offset     int
	TenantID   *string
	CalendarID *string
	Status     *models.AppointmentStatus
	Since      *time.Time
	Until      *time.Time
	OrderBy    string
	Asc        *bool
}
