package models

import (
	"time"

	"gorm.io/datatypes"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is the locally persisted record of one calendar event. A nil
// ExternalID marks a locally authored record that has not been pushed to the
// remote calendar yet. Deletion is modeled as status=cancelled; rows are
// never hard-deleted, so the (tenant_id, external_id) pair identifies at
// most one live row.
type Appointment struct {
	ID          string            `gorm:"primaryKey;type:text"`
	TenantID    string            `gorm:"type:text;index:idx_appointments_tenant_external;not null"`
	CalendarID  string            `gorm:"type:text;index;not null"`
	ExternalID  *string           `gorm:"type:text;index:idx_appointments_tenant_external"`
	Title       string            `gorm:"type:text;not null"`
	Description string            `gorm:"type:text"`
	Location    string            `gorm:"type:text"`
	StartTime   time.Time         `gorm:"type:timestamptz;not null;index"`
	EndTime     time.Time         `gorm:"type:timestamptz;not null"`
	AllDay      bool              `gorm:"not null;default:false"`
	Attendees   datatypes.JSON    `gorm:"type:jsonb"`
	MeetingLink string            `gorm:"type:text"`
	Status      AppointmentStatus `gorm:"type:text;not null;default:scheduled;index"`
	OwnerID     string            `gorm:"type:text;not null"`
	CancelledAt *time.Time        `gorm:"type:timestamptz"`
	CreatedAt   time.Time         `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) Cancelled() bool {
	return a != nil && a.Status == AppointmentStatusCancelled
}
