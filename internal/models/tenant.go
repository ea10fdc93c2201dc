package models

import "time"

// SystemOwnerID is the sentinel owner assigned to pulled appointments when a
// tenant has no administrative user to fall back to.
const SystemOwnerID = "system"

type Tenant struct {
	ID          string    `gorm:"primaryKey;type:text"`
	Name        string    `gorm:"type:text;not null"`
	AdminUserID *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Tenant) TableName() string {
	return "tenants"
}
