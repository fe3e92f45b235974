package repository

import (
	"fmt"

	"github.com/amirphl/vetverify/models"
	"gorm.io/gorm"
)

// Models lists every table of the verification schema in dependency order
func Models() []any {
	return []any{
		&models.Account{},
		&models.ProfessionalProfile{},
		&models.VerificationDocument{},
		&models.ReviewDecision{},
		&models.Notification{},
		&models.AuditLog{},
	}
}

// AutoMigrate creates or updates the verification schema
func AutoMigrate(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", m, err)
		}
	}
	return nil
}
