package models

import "time"

type IntegrationStatus string

const (
	IntegrationStatusConnected IntegrationStatus = "connected"
	IntegrationStatusError     IntegrationStatus = "error"
	IntegrationStatusDisabled  IntegrationStatus = "disabled"
)

// Integration is one tenant's connection to a remote calendar account.
// Token fields are written by the token manager, cursor and status by the
// reconciliation engine; rows are created and reactivated outside this
// service and never deleted here.
type Integration struct {
	ID             string            `gorm:"primaryKey;type:text"`
	TenantID       string            `gorm:"type:text;index;not null"`
	Provider       string            `gorm:"type:text;not null"`
	CalendarID     string            `gorm:"type:text;not null"`
	ClientID       string            `gorm:"type:text;not null"`
	ClientSecret   string            `gorm:"type:text;not null"`
	AccessToken    string            `gorm:"type:text"`
	RefreshToken   *string           `gorm:"type:text"`
	TokenExpiresAt *time.Time        `gorm:"type:timestamptz"`
	SyncCursor     *string           `gorm:"type:text"`
	Enabled        bool              `gorm:"not null;default:true"`
	SyncEnabled    bool              `gorm:"not null;default:true"`
	Status         IntegrationStatus `gorm:"type:text;not null;default:connected;index"`
	LastSyncedAt   *time.Time        `gorm:"type:timestamptz"`
	LastError      *string           `gorm:"type:text"`
	CreatedAt      time.Time         `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Integration) TableName() string {
	return "calendar_integrations"
}

// Credentialed reports whether the integration holds enough OAuth material
// to attempt a sync cycle.
func (i *Integration) Credentialed() bool {
	if i == nil {
		return false
	}
	if i.AccessToken != "" {
		return true
	}
	return i.RefreshToken != nil && *i.RefreshToken != ""
}
