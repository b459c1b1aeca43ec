package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is the identity record. Phone and email are both optional but a
// database CHECK constraint guarantees at least one is present. Phone is
// stored in E.164 form, email lower-cased.
type User struct {
	gorm.Model
	FirstName          string         `gorm:"column:first_name"`
	LastName           string         `gorm:"column:last_name"`
	Phone              *string        `gorm:"column:phone;unique"`
	Email              *string        `gorm:"column:email;unique"`
	Password           string         `gorm:"column:password;not null"`
	IsActive           bool           `gorm:"column:is_active;default:true;not null"`
	IsPhoneVerified    bool           `gorm:"column:is_phone_verified;default:false;not null"`
	IsEmailVerified    bool           `gorm:"column:is_email_verified;default:false;not null"`
	IsStaff            bool           `gorm:"column:is_staff;default:false;not null"`
	IsSuperuser        bool           `gorm:"column:is_superuser;default:false;not null"`
	LastLogin          *time.Time     `gorm:"column:last_login"`
	LastPasswordChange *time.Time     `gorm:"column:last_password_change"`
	Profile            datatypes.JSON `gorm:"column:profile"`
}

// IsVerified reports whether every supplied identifier has been confirmed.
func (u *User) IsVerified() bool {
	return u.IsPhoneVerified && u.IsEmailVerified
}

// CanLogin reports whether at least one identifier has been confirmed.
func (u *User) CanLogin() bool {
	return u.IsPhoneVerified || u.IsEmailVerified
}

// PhoneValue returns the phone string, empty when unset.
func (u *User) PhoneValue() string {
	if u.Phone == nil {
		return ""
	}
	return *u.Phone
}

// EmailValue returns the email string, empty when unset.
func (u *User) EmailValue() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// FullName joins the profile name fields.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
