package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncRun records the outcome of one batch reconciliation cycle.
type SyncRun struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	StartedAt  time.Time      `gorm:"type:timestamptz;not null;index"`
	FinishedAt time.Time      `gorm:"type:timestamptz;not null"`
	Processed  int            `gorm:"not null;default:0"`
	Succeeded  int            `gorm:"not null;default:0"`
	Failed     int            `gorm:"not null;default:0"`
	Pushed     int            `gorm:"not null;default:0"`
	Pulled     int            `gorm:"not null;default:0"`
	Cancelled  int            `gorm:"not null;default:0"`
	Swept      int            `gorm:"not null;default:0"`
	LastError  *string        `gorm:"type:text"`
	StatsJSON  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"type:timestamptz;autoCreateTime"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
