package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/hqv2016/salonpulse/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Staff{},
		&models.Notification{},
		&models.ChatRoom{},
		&models.ChatMessage{},
	)
}

// SeedData inserts baseline rows required for a fresh installation. The
// realtime layer has no mandatory seed data; the hook exists so start-up code
// and tests share one entry point with room to grow.
func SeedData(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	return nil
}
