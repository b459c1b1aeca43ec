package database

import (
	"os"

	"github.com/metime/identity/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed creates the initial superuser account on first run. The account is
// created pre-verified so it can log in immediately.
func Seed(db *gorm.DB) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@example.com"
	}
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "samplepass123"
	}

	var count int64
	if err := db.Model(&model.User{}).
		Where("email = ? OR is_superuser = ?", adminEmail, true).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		Email:           &adminEmail,
		Password:        string(hash),
		IsActive:        true,
		IsEmailVerified: true,
		IsStaff:         true,
		IsSuperuser:     true,
	}

	return db.Create(admin).Error
}
