package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/metime/identity/internal/model"
)

type RegisterRequest struct {
	FirstName string         `json:"first_name" binding:"omitempty,max=150"`
	LastName  string         `json:"last_name" binding:"omitempty,max=150"`
	Phone     string         `json:"phone" binding:"omitempty,min=7,max=20"`
	Email     string         `json:"email" binding:"omitempty,email"`
	Password  string         `json:"password" binding:"required,min=8,max=128"`
	Profile   datatypes.JSON `json:"profile" binding:"omitempty"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	Phone     *string `json:"phone" binding:"omitempty,min=7,max=20"`
	Email     *string `json:"email" binding:"omitempty,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type UserResponse struct {
	ID              uint           `json:"id"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Phone           string         `json:"phone,omitempty"`
	Email           string         `json:"email,omitempty"`
	IsActive        bool           `json:"is_active"`
	IsPhoneVerified bool           `json:"is_phone_verified"`
	IsEmailVerified bool           `json:"is_email_verified"`
	IsVerified      bool           `json:"is_verified"`
	LastLogin       *time.Time     `json:"last_login,omitempty"`
	Profile         datatypes.JSON `json:"profile,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewUserResponse maps a user model onto the API shape.
func NewUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:              user.ID,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Phone:           user.PhoneValue(),
		Email:           user.EmailValue(),
		IsActive:        user.IsActive,
		IsPhoneVerified: user.IsPhoneVerified,
		IsEmailVerified: user.IsEmailVerified,
		IsVerified:      user.IsVerified(),
		LastLogin:       user.LastLogin,
		Profile:         user.Profile,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}
