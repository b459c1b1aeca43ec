package constants

import "fmt"

// Cache key formats for one-time codes. The verification key is scoped per
// identifier field so phone and email codes never collide; the reset key is
// per user only.
const (
	VerificationCacheKeyFormat  = "%s-%s-VERIFY-KEY"
	ResetPasswordCacheKeyFormat = "%s-RESET-PASS"

	TokenBlacklistCacheKeyFormat = "%s-jti-BLACKLIST"
)

// Default OTP settings, overridable through configuration.
const (
	DefaultVerificationCodeDigits  = 6
	DefaultVerificationTimeoutSecs = 43200
	DefaultResetPasswordTimeout    = 43200
)

// Notification subjects
const (
	VerificationSubject  = "Account Verification"
	ResetPasswordSubject = "Password Recovery"
)

// VerificationCacheKey builds the cache key holding the active verification
// code for one (user, identifier field) pair.
func VerificationCacheKey(userID uint, field string) string {
	return fmt.Sprintf(VerificationCacheKeyFormat, fmt.Sprint(userID), field)
}

// ResetPasswordCacheKey builds the cache key holding the active password
// recovery code for a user.
func ResetPasswordCacheKey(userID uint) string {
	return fmt.Sprintf(ResetPasswordCacheKeyFormat, fmt.Sprint(userID))
}

// TokenBlacklistCacheKey builds the cache key marking a rotated-out refresh
// token id as unusable.
func TokenBlacklistCacheKey(jti string) string {
	return fmt.Sprintf(TokenBlacklistCacheKeyFormat, jti)
}
