package db

import (
	"fmt"

	"github.com/jitsdiary/jitsdiary/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the record store schema.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.User{},
		&models.ExternalAuth{},
		&models.Profile{},
		&models.Gym{},
		&models.Session{},
		&models.RollingRound{},
		&models.Technique{},
		&models.SessionTechnique{},
		&models.BeltProgression{},
	)
}
