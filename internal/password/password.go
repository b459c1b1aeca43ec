// Package password implements password strength validation and hashing.
package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/metime/identity/internal/errors"
)

// Weakness reasons, surfaced wrapped under ErrWeakPassword.
var (
	ErrTooShort           = errors.New("password is too short")
	ErrTooCommon          = errors.New("password is too common")
	ErrAllNumeric         = errors.New("password is entirely numeric")
	ErrSimilarToUserAttrs = errors.New("password is too similar to account details")
)

const minLength = 8

// commonPasswords holds the head of the usual breached-password lists; the
// check lower-cases input before comparing.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"qwerty123":   {},
	"qwertyuiop":  {},
	"iloveyou":    {},
	"admin123":    {},
	"letmein":     {},
	"welcome1":    {},
	"sunshine":    {},
	"princess":    {},
	"football":    {},
	"monkey123":   {},
}

// Policy validates password strength and manages hashing.
type Policy struct {
	cost int
}

// NewPolicy creates a policy using the default bcrypt cost.
func NewPolicy() *Policy {
	return &Policy{cost: bcrypt.DefaultCost}
}

// Validate checks the password against the policy. userAttrs are account
// values (email, phone, names) the password must not closely resemble.
func (p *Policy) Validate(password string, userAttrs ...string) error {
	if len(password) < minLength {
		return apperrors.WrapError(apperrors.ErrWeakPassword, ErrTooShort)
	}

	lower := strings.ToLower(password)
	if _, found := commonPasswords[lower]; found {
		return apperrors.WrapError(apperrors.ErrWeakPassword, ErrTooCommon)
	}

	if isAllNumeric(password) {
		return apperrors.WrapError(apperrors.ErrWeakPassword, ErrAllNumeric)
	}

	for _, attr := range userAttrs {
		if similar(lower, strings.ToLower(attr)) {
			return apperrors.WrapError(apperrors.ErrWeakPassword, ErrSimilarToUserAttrs)
		}
	}

	return nil
}

// Hash hashes the password using bcrypt.
func (p *Policy) Hash(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

// Verify checks the password against a stored hash.
func (p *Policy) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func isAllNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// similar reports whether the password contains, or is contained by, a user
// attribute of comparable length. Attributes shorter than four characters
// are ignored to avoid false positives on initials.
func similar(password, attr string) bool {
	if len(attr) < 4 {
		return false
	}

	// Compare against the local part of email addresses too
	if at := strings.Index(attr, "@"); at > 3 {
		if similar(password, attr[:at]) {
			return true
		}
	}

	return strings.Contains(password, attr) || strings.Contains(attr, password)
}
