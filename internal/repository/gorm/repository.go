package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/anonimouzmkt/calendar-server/internal/models"
	"github.com/anonimouzmkt/calendar-server/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Integrations -----------------------------------------------------------

func (s *Store) ListEligibleIntegrations(ctx context.Context, limit int) ([]models.Integration, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.Integration
	err := s.db.WithContext(ctx).
		Model(&models.Integration{}).
		Where("enabled = ?", true).
		Where("sync_enabled = ?", true).
		Where("status = ?", models.IntegrationStatusConnected).
		Where("(access_token <> '' OR (refresh_token IS NOT NULL AND refresh_token <> ''))").
		Order("last_synced_at ASC NULLS FIRST").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetIntegration(ctx context.Context, id string) (*models.Integration, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Integration
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListIntegrations(ctx context.Context, params repository.ListIntegrationsParams) ([]models.Integration, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Integration{})
	if params.TenantID != nil && strings.TrimSpace(*params.TenantID) != "" {
		query = query.Where("tenant_id = ?", strings.TrimSpace(*params.TenantID))
	}
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Enabled != nil {
		query = query.Where("enabled = ?", *params.Enabled)
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Integration
	if err := query.Order("created_at ASC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateIntegrationTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{
		"access_token":     accessToken,
		"token_expires_at": expiresAt,
		"updated_at":       time.Now().UTC(),
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	return s.db.WithContext(ctx).
		Model(&models.Integration{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) UpdateIntegrationCursor(ctx context.Context, id, cursor string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Integration{}).
		Where("id = ?", id).
		Update("sync_cursor", cursor).Error
}

func (s *Store) UpdateIntegrationStatus(ctx context.Context, id string, status models.IntegrationStatus, lastError string) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if lastError != "" {
		updates["last_error"] = lastError
	} else {
		updates["last_error"] = nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Integration{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) MarkIntegrationSynced(ctx context.Context, id string, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Integration{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_synced_at": at,
			"last_error":     nil,
		}).Error
}

// --- Appointments -----------------------------------------------------------

func (s *Store) ListUnpushedAppointments(ctx context.Context, tenantID, calendarID string) ([]models.Appointment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Appointment
	err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("tenant_id = ?", tenantID).
		Where("calendar_id = ?", calendarID).
		Where("external_id IS NULL").
		Where("status <> ?", models.AppointmentStatusCancelled).
		Order("start_time ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListSyncedAppointments(ctx context.Context, tenantID, calendarID string) ([]models.Appointment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Appointment
	err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("tenant_id = ?", tenantID).
		Where("calendar_id = ?", calendarID).
		Where("external_id IS NOT NULL").
		Where("status <> ?", models.AppointmentStatusCancelled).
		Order("start_time ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetAppointmentByExternalID(ctx context.Context, tenantID, externalID string) (*models.Appointment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Appointment
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("external_id = ?", externalID).
		Where("status <> ?", models.AppointmentStatusCancelled).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// A cancelled row may still match; the caller treats both alike.
		err = s.db.WithContext(ctx).
			Where("tenant_id = ?", tenantID).
			Where("external_id = ?", externalID).
			Order("updated_at DESC").
			First(&item).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateAppointment(ctx context.Context, item *models.Appointment) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateAppointment(ctx context.Context, item *models.Appointment) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"title":        item.Title,
			"description":  item.Description,
			"location":     item.Location,
			"start_time":   item.StartTime,
			"end_time":     item.EndTime,
			"all_day":      item.AllDay,
			"attendees":    item.Attendees,
			"meeting_link": item.MeetingLink,
			"status":       item.Status,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (s *Store) MarkAppointmentPushed(ctx context.Context, id, externalID, meetingLink string) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{
		"external_id": externalID,
		"updated_at":  time.Now().UTC(),
	}
	if meetingLink != "" {
		updates["meeting_link"] = meetingLink
	}
	return s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) CancelAppointment(ctx context.Context, id string, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", id).
		Where("status <> ?", models.AppointmentStatusCancelled).
		Updates(map[string]any{
			"status":       models.AppointmentStatusCancelled,
			"cancelled_at": at,
		}).Error
}

func (s *Store) ListAppointments(ctx context.Context, params repository.ListAppointmentsParams) ([]models.Appointment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.appointmentQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "start_time")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Appointment
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAppointments(ctx context.Context, params repository.ListAppointmentsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.appointmentQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) appointmentQuery(ctx context.Context, params repository.ListAppointmentsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Appointment{})
	if params.TenantID != nil && strings.TrimSpace(*params.TenantID) != "" {
		query = query.Where("tenant_id = ?", strings.TrimSpace(*params.TenantID))
	}
	if params.CalendarID != nil && strings.TrimSpace(*params.CalendarID) != "" {
		query = query.Where("calendar_id = ?", strings.TrimSpace(*params.CalendarID))
	}
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("start_time >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("start_time < ?", *params.Until)
	}
	return query
}

// --- Tenants ----------------------------------------------------------------

func (s *Store) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Tenant
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Sync runs --------------------------------------------------------------

func (s *Store) InsertSyncRun(ctx context.Context, item *models.SyncRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.SyncRun
	err := s.db.WithContext(ctx).
		Model(&models.SyncRun{}).
		Order("started_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

var orderableColumns = map[string]bool{
	"start_time": true,
	"created_at": true,
	"updated_at": true,
	"title":      true,
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(strings.ToLower(orderBy))
	if !orderableColumns[column] {
		column = fallback
	}
	direction := "ASC"
	if asc != nil && !*asc {
		direction = "DESC"
	}
	return query.Order(column + " " + direction)
}
