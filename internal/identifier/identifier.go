// Package identifier resolves raw login identifiers into their canonical
// phone or email form.
package identifier

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	apperrors "github.com/metime/identity/internal/errors"
)

// Field names the two supported identifier channels.
type Field string

const (
	FieldPhone Field = "phone"
	FieldEmail Field = "email"
)

var validate = validator.New()

// Resolver parses raw identifier strings. Phone interpretation takes
// priority over email when both would be plausible.
type Resolver struct {
	defaultRegion string
}

// NewResolver creates a resolver. defaultRegion is the ISO 3166-1 alpha-2
// region used for phone numbers without an international prefix; empty
// means only fully qualified (+CC...) numbers parse.
func NewResolver(defaultRegion string) *Resolver {
	return &Resolver{defaultRegion: defaultRegion}
}

// Resolve classifies raw as a phone number or email address and returns the
// normalized value: E.164 for phones, trimmed lower-case for emails.
func (r *Resolver) Resolve(raw string) (Field, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", apperrors.ErrInvalidIdentifier
	}

	if num, err := phonenumbers.Parse(raw, r.defaultRegion); err == nil {
		if phonenumbers.IsValidNumber(num) {
			return FieldPhone, phonenumbers.Format(num, phonenumbers.E164), nil
		}
	}

	email := strings.ToLower(raw)
	if err := validate.Var(email, "email"); err == nil {
		return FieldEmail, email, nil
	}

	return "", "", apperrors.ErrInvalidIdentifier
}

// NormalizePhone parses a value already known to be a phone number.
func (r *Resolver) NormalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), r.defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", apperrors.ErrInvalidIdentifier
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// NormalizeEmail validates and lower-cases a value already known to be an
// email address.
func (r *Resolver) NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "email"); err != nil {
		return "", apperrors.ErrInvalidIdentifier
	}
	return email, nil
}

// Valid reports whether f is one of the two supported fields.
func (f Field) Valid() bool {
	return f == FieldPhone || f == FieldEmail
}

// Mask hides the middle of an identifier for use in API responses, e.g.
// "j***@e***.com" or "+19******90".
func Mask(field Field, value string) string {
	if value == "" {
		return ""
	}

	if field == FieldEmail {
		at := strings.LastIndex(value, "@")
		if at <= 0 {
			return value
		}
		local, domain := value[:at], value[at+1:]
		dot := strings.LastIndex(domain, ".")
		if dot <= 0 {
			return maskPart(local) + "@" + maskPart(domain)
		}
		return maskPart(local) + "@" + maskPart(domain[:dot]) + domain[dot:]
	}

	// Keep the prefix and the last two digits
	if len(value) <= 5 {
		return value
	}
	return value[:3] + strings.Repeat("*", len(value)-5) + value[len(value)-2:]
}

// MaskRaw masks an identifier whose field is not known, for log lines that
// run before resolution.
func MaskRaw(raw string) string {
	if strings.Contains(raw, "@") {
		return Mask(FieldEmail, raw)
	}
	return Mask(FieldPhone, raw)
}

func maskPart(s string) string {
	if len(s) <= 1 {
		return s
	}
	return s[:1] + "***"
}
