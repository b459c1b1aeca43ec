package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches two domain errors by code so wrapped sentinels still compare.
func (e *DomainError) Is(target error) bool {
	var domainErr *DomainError
	if errors.As(target, &domainErr) {
		return e.Code == domainErr.Code
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// Predefined domain errors
var (
	// Identifier and registration errors
	ErrInvalidIdentifier   = NewDomainError("INVALID_IDENTIFIER", "identifier is neither a valid phone number nor a valid email address")
	ErrMissingIdentifier   = NewDomainError("MISSING_IDENTIFIER", "either phone or email must be supplied")
	ErrMissingPassword     = NewDomainError("MISSING_PASSWORD", "password is required")
	ErrDuplicateIdentifier = NewDomainError("DUPLICATE_IDENTIFIER", "a user with that phone or email already exists")
	ErrWeakPassword        = NewDomainError("WEAK_PASSWORD", "password does not meet strength requirements")

	// Authentication errors. Credential failures are deliberately vague so
	// callers cannot distinguish unknown identifiers from wrong passwords.
	ErrInvalidCredentials = NewDomainError("INVALID_CREDENTIALS", "no account found with the given credentials")
	ErrAccountInactive    = NewDomainError("ACCOUNT_INACTIVE", "account is deactivated")
	ErrAccountNotVerified = NewDomainError("ACCOUNT_NOT_VERIFIED", "account has no verified identifier")

	// Token errors
	ErrTokenExpired        = NewDomainError("TOKEN_EXPIRED", "token has expired")
	ErrTokenRejected       = NewDomainError("TOKEN_REJECTED", "token is no longer accepted")
	ErrInvalidToken        = NewDomainError("INVALID_TOKEN", "invalid token")
	ErrInvalidRefreshToken = NewDomainError("INVALID_REFRESH_TOKEN", "invalid refresh token")
	ErrUserNotFound        = NewDomainError("USER_NOT_FOUND", "user not found")

	// Verification errors
	ErrAlreadyVerified = NewDomainError("ALREADY_VERIFIED", "identifier is already verified")
	ErrNoCodeFound     = NewDomainError("NO_CODE_FOUND", "no code found for the user")
	ErrInvalidCode     = NewDomainError("INVALID_CODE", "input code is not valid")

	// Password change errors
	ErrPasswordMismatch  = NewDomainError("PASSWORD_MISMATCH", "new password and confirmation do not match")
	ErrIncorrectPassword = NewDomainError("INCORRECT_PASSWORD", "current password is incorrect")

	// System errors
	ErrInternal           = NewDomainError("INTERNAL_ERROR", "internal server error")
	ErrServiceUnavailable = NewDomainError("SERVICE_UNAVAILABLE", "service unavailable")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	return http.StatusInternalServerError
}

func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "INVALID_IDENTIFIER", "MISSING_IDENTIFIER", "MISSING_PASSWORD",
		"WEAK_PASSWORD", "PASSWORD_MISMATCH", "NO_CODE_FOUND", "INVALID_CODE",
		"ALREADY_VERIFIED":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "INVALID_CREDENTIALS", "TOKEN_EXPIRED", "TOKEN_REJECTED",
		"INVALID_TOKEN", "INVALID_REFRESH_TOKEN", "INCORRECT_PASSWORD":
		return http.StatusUnauthorized

	// 403 Forbidden
	case "ACCOUNT_INACTIVE", "ACCOUNT_NOT_VERIFIED":
		return http.StatusForbidden

	// 404 Not Found
	case "USER_NOT_FOUND":
		return http.StatusNotFound

	// 409 Conflict
	case "DUPLICATE_IDENTIFIER":
		return http.StatusConflict

	// 503 Service Unavailable
	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable

	// 500 Internal Server Error (default)
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}
