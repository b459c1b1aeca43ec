package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/metime/identity/internal/errors"
	"github.com/metime/identity/internal/model"
)

// MemoryUserStore is an in-memory UserStore for tests. It enforces the same
// uniqueness and not-found semantics as the Postgres implementation.
type MemoryUserStore struct {
	mu     sync.RWMutex
	nextID uint
	users  map[uint]*model.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		nextID: 1,
		users:  make(map[uint]*model.User),
	}
}

func (s *MemoryUserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if user.Phone != nil && existing.Phone != nil && *existing.Phone == *user.Phone {
			return apperrors.ErrDuplicateIdentifier
		}
		if user.Email != nil && existing.Email != nil &&
			strings.EqualFold(*existing.Email, *user.Email) {
			return apperrors.ErrDuplicateIdentifier
		}
	}

	user.ID = s.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.nextID++

	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id uint) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (s *MemoryUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email != nil && strings.EqualFold(*user.Email, email) {
			return cloneUser(user), nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (s *MemoryUserStore) GetByPhone(_ context.Context, phone string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Phone != nil && *user.Phone == phone {
			return cloneUser(user), nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (s *MemoryUserStore) Update(_ context.Context, id uint, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}

	for column, value := range updates {
		switch column {
		case "first_name":
			user.FirstName = value.(string)
		case "last_name":
			user.LastName = value.(string)
		case "phone":
			v := value.(string)
			user.Phone = &v
		case "email":
			v := value.(string)
			user.Email = &v
		case "is_phone_verified":
			user.IsPhoneVerified = value.(bool)
		case "is_email_verified":
			user.IsEmailVerified = value.(bool)
		case "is_active":
			user.IsActive = value.(bool)
		}
	}
	user.UpdatedAt = time.Now()

	return nil
}

func (s *MemoryUserStore) UpdatePassword(_ context.Context, id uint, hashedPassword string, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}

	user.Password = hashedPassword
	user.LastPasswordChange = &changedAt
	user.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryUserStore) UpdateLastLogin(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	now := time.Now()
	user.LastLogin = &now
	return nil
}

func (s *MemoryUserStore) Deactivate(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.IsActive = false
	return nil
}

func cloneUser(u *model.User) *model.User {
	clone := *u
	if u.Phone != nil {
		phone := *u.Phone
		clone.Phone = &phone
	}
	if u.Email != nil {
		email := *u.Email
		clone.Email = &email
	}
	if u.LastPasswordChange != nil {
		changed := *u.LastPasswordChange
		clone.LastPasswordChange = &changed
	}
	return &clone
}
