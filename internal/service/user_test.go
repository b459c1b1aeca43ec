package service

import (
	"context"
	"errors"
	"testing"

	"github.com/metime/identity/internal/constants"
	apperrors "github.com/metime/identity/internal/errors"
	"github.com/metime/identity/internal/identifier"
)

func strPtr(s string) *string { return &s }

func TestRegisterWithBothIdentifiers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, RegisterInput{
		FirstName: "Alice",
		LastName:  "Smith",
		Phone:     "(415) 555-0190",
		Email:     "Alice@Example.com",
		Password:  "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if user.PhoneValue() != "+14155550190" {
		t.Errorf("phone = %q, want E.164 form", user.PhoneValue())
	}
	if user.EmailValue() != "alice@example.com" {
		t.Errorf("email = %q, want lowercased form", user.EmailValue())
	}
	if !user.IsActive {
		t.Error("new accounts start active")
	}
	if user.IsPhoneVerified || user.IsEmailVerified {
		t.Error("new accounts start unverified")
	}
	if user.Password == "correct horse battery" {
		t.Error("password must be stored hashed")
	}

	// One verification code per supplied identifier.
	if got := len(env.sentMessages()); got != 2 {
		t.Errorf("expected 2 verification messages, got %d", got)
	}
	for _, field := range []identifier.Field{identifier.FieldPhone, identifier.FieldEmail} {
		key := constants.VerificationCacheKey(user.ID, string(field))
		if code := env.storedCode(t, key); len(code) != 6 {
			t.Errorf("code for %s has width %d", field, len(code))
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr *apperrors.DomainError
	}{
		{
			name:    "no identifier",
			input:   RegisterInput{Password: "correct horse battery"},
			wantErr: apperrors.ErrMissingIdentifier,
		},
		{
			name:    "no password",
			input:   RegisterInput{Email: "alice@example.com"},
			wantErr: apperrors.ErrMissingPassword,
		},
		{
			name:    "bad phone",
			input:   RegisterInput{Phone: "12", Password: "correct horse battery"},
			wantErr: apperrors.ErrInvalidIdentifier,
		},
		{
			name:    "bad email",
			input:   RegisterInput{Email: "not-an-email", Password: "correct horse battery"},
			wantErr: apperrors.ErrInvalidIdentifier,
		},
		{
			name:    "weak password",
			input:   RegisterInput{Email: "alice@example.com", Password: "12345678"},
			wantErr: apperrors.ErrWeakPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.users.Register(ctx, tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("Register error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterDuplicateIdentifier(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "", "alice@example.com")

	_, err := env.users.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	if !errors.Is(err, apperrors.ErrDuplicateIdentifier) {
		t.Errorf("expected ErrDuplicateIdentifier, got %v", err)
	}
}

func TestUpdateEmailResetsOnlyEmailFlag(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "+14155550190", "alice@example.com")
	ctx := context.Background()

	updated, err := env.users.Update(ctx, user.ID, UpdateInput{
		Email: strPtr("alice2@example.com"),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.EmailValue() != "alice2@example.com" {
		t.Errorf("email = %q", updated.EmailValue())
	}
	if updated.IsEmailVerified {
		t.Error("changing the email must clear its verified flag")
	}
	if !updated.IsPhoneVerified {
		t.Error("phone verification must survive an email change")
	}

	// The changed identifier gets a fresh code.
	if got := len(env.sentMessages()); got != 1 {
		t.Errorf("expected 1 verification message, got %d", got)
	}
}

func TestUpdateSameIdentifierKeepsFlag(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	updated, err := env.users.Update(ctx, user.ID, UpdateInput{
		Email: strPtr("Alice@Example.com"),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	// Same address in a different case normalizes to no change.
	if !updated.IsEmailVerified {
		t.Error("re-submitting the same email must not clear the flag")
	}
	if got := len(env.sentMessages()); got != 0 {
		t.Errorf("expected no verification messages, got %d", got)
	}
}

func TestUpdateNameOnly(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	updated, err := env.users.Update(ctx, user.ID, UpdateInput{
		FirstName: strPtr("Alicia"),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.FirstName != "Alicia" {
		t.Errorf("first name = %q", updated.FirstName)
	}
	if !updated.IsEmailVerified {
		t.Error("name changes must not touch verification flags")
	}
}

func TestVerifyIdentifierEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, RegisterInput{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	key := constants.VerificationCacheKey(user.ID, string(identifier.FieldEmail))
	code := env.storedCode(t, key)

	verified, err := env.users.VerifyIdentifier(ctx, user.ID, identifier.FieldEmail, code)
	if err != nil {
		t.Fatalf("VerifyIdentifier returned error: %v", err)
	}
	if !verified.IsEmailVerified {
		t.Error("expected email verified flag to be set")
	}
	if !verified.CanLogin() {
		t.Error("account should be able to log in after verification")
	}

	// The code is consumed with the verification.
	if _, err := env.cache.Get(ctx, key); err == nil {
		t.Error("expected code to be gone from the cache")
	}

	// Re-verifying an already verified field is refused.
	if _, err := env.users.VerifyIdentifier(ctx, user.ID, identifier.FieldEmail, code); !errors.Is(err, apperrors.ErrAlreadyVerified) {
		t.Errorf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestVerificationByIdentifier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, RegisterInput{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	// Requesting again replaces the code issued at registration.
	destination, err := env.users.RequestVerification(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestVerification returned error: %v", err)
	}
	if destination != "a***@e***.com" {
		t.Errorf("masked destination = %q", destination)
	}

	key := constants.VerificationCacheKey(user.ID, string(identifier.FieldEmail))
	code := env.storedCode(t, key)

	verified, err := env.users.ConfirmVerification(ctx, "Alice@Example.COM", code)
	if err != nil {
		t.Fatalf("ConfirmVerification returned error: %v", err)
	}
	if !verified.IsEmailVerified {
		t.Error("expected email verified flag to be set")
	}

	if _, err := env.users.RequestVerification(ctx, "nobody@example.com"); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestResendVerificationCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, RegisterInput{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if err := env.users.ResendVerificationCode(ctx, user.ID, identifier.FieldEmail); err != nil {
		t.Fatalf("ResendVerificationCode returned error: %v", err)
	}
	if got := len(env.sentMessages()); got != 2 {
		t.Errorf("expected 2 messages after resend, got %d", got)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	if err := env.users.ChangePassword(ctx, user.ID, "wrong", "entirely new phrase 9"); !errors.Is(err, apperrors.ErrIncorrectPassword) {
		t.Errorf("expected ErrIncorrectPassword, got %v", err)
	}

	if err := env.users.ChangePassword(ctx, user.ID, testPassword, "12345678"); !errors.Is(err, apperrors.ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}

	if err := env.users.ChangePassword(ctx, user.ID, testPassword, "entirely new phrase 9"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	if _, _, err := env.auth.Authenticate(ctx, "alice@example.com", "entirely new phrase 9"); err != nil {
		t.Errorf("new password should authenticate: %v", err)
	}
	if _, _, err := env.auth.Authenticate(ctx, "alice@example.com", testPassword); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("old password must stop working, got %v", err)
	}

	fresh, err := env.store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if fresh.LastPasswordChange == nil {
		t.Error("expected last password change to be recorded")
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	if _, err := env.users.ForgotPassword(ctx, "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}

	code := env.storedCode(t, constants.ResetPasswordCacheKey(user.ID))

	wrong := "999999"
	if wrong == code {
		wrong = "999998"
	}
	if err := env.users.ResetPassword(ctx, "alice@example.com", wrong, "entirely new phrase 9"); !errors.Is(err, apperrors.ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode, got %v", err)
	}

	if err := env.users.ResetPassword(ctx, "alice@example.com", code, "entirely new phrase 9"); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}

	if _, _, err := env.auth.Authenticate(ctx, "alice@example.com", "entirely new phrase 9"); err != nil {
		t.Errorf("new password should authenticate: %v", err)
	}

	// The recovery code is single use.
	if err := env.users.ResetPassword(ctx, "alice@example.com", code, "another new phrase 10"); !errors.Is(err, apperrors.ErrNoCodeFound) {
		t.Errorf("expected ErrNoCodeFound on reuse, got %v", err)
	}
}

func TestForgotPasswordUnknownIdentifier(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.ForgotPassword(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestResetPasswordWeakPasswordDoesNotConsumeCode(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	if _, err := env.users.ForgotPassword(ctx, "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}
	code := env.storedCode(t, constants.ResetPasswordCacheKey(user.ID))

	if err := env.users.ResetPassword(ctx, "alice@example.com", code, "12345678"); !errors.Is(err, apperrors.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	// Policy rejection happens before the code is consumed.
	if err := env.users.ResetPassword(ctx, "alice@example.com", code, "entirely new phrase 9"); err != nil {
		t.Errorf("code should still be valid after a weak-password attempt: %v", err)
	}
}

func TestDeactivate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	if err := env.users.Deactivate(ctx, user.ID); err != nil {
		t.Fatalf("Deactivate returned error: %v", err)
	}

	fresh, err := env.store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if fresh.IsActive {
		t.Error("expected account to be inactive")
	}
}

func TestPermissionPredicates(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")

	if !IsActive(user) || !CanLogin(user) {
		t.Error("seeded user should be active and able to log in")
	}
	if !IsOwner(user, user.ID) || IsOwner(user, user.ID+1) {
		t.Error("IsOwner must match on ID only")
	}
	if IsAdmin(user) {
		t.Error("regular user is not an admin")
	}

	user.IsStaff = true
	if !IsAdmin(user) || !IsOwnerOrAdmin(user, user.ID+1) {
		t.Error("staff flag grants admin")
	}

	user.IsActive = false
	if CanLogin(user) {
		t.Error("inactive user cannot log in")
	}

	if IsActive(nil) || CanLogin(nil) || IsAdmin(nil) || IsOwner(nil, 1) {
		t.Error("nil user has no capabilities")
	}
}
