package database

import (
	"github.com/metime/identity/internal/model"
	"gorm.io/gorm"
)

// AutoMigrate runs database migrations for all models and installs the
// constraints gorm tags cannot express.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}); err != nil {
		return err
	}

	// A user row must carry at least one identifier
	if err := db.Exec(`
		ALTER TABLE users DROP CONSTRAINT IF EXISTS chk_users_phone_email_null;
		ALTER TABLE users ADD CONSTRAINT chk_users_phone_email_null
			CHECK (phone IS NOT NULL OR email IS NOT NULL);
	`).Error; err != nil {
		return err
	}

	return nil
}

// EnsureIndexes creates the lookup indexes the hot paths depend on. Email
// lookups are case-insensitive, so the index is on lower(email).
func EnsureIndexes(db *gorm.DB) error {
	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (lower(email)) WHERE email IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_users_is_active ON users (is_active) WHERE is_active = true`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
