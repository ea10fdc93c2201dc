package db

import (
	"github.com/anonimouzmkt/calendar-server/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Tenant{},
		&models.Integration{},
		&models.Appointment{},
		&models.SyncRun{},
	)
}
