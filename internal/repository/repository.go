package repository

import (
	"context"
	"time"

	"github.com/metime/identity/internal/model"
)

// UserStore abstracts user persistence. The production implementation is
// Postgres-backed; an in-memory implementation exists for tests.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)

	// Update applies the column changes in one atomic write.
	Update(ctx context.Context, id uint, updates map[string]interface{}) error

	// UpdatePassword sets the new hash and stamps last_password_change.
	UpdatePassword(ctx context.Context, id uint, hashedPassword string, changedAt time.Time) error

	UpdateLastLogin(ctx context.Context, id uint) error
	Deactivate(ctx context.Context, id uint) error
}
