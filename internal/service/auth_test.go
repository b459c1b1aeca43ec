package service

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/metime/identity/internal/errors"
)

func TestAuthenticateWithEmail(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	got, pair, err := env.auth.Authenticate(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated user ID = %d, want %d", got.ID, user.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("expected a full token pair")
	}

	fresh, err := env.store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if fresh.LastLogin == nil {
		t.Error("expected last login to be recorded")
	}
}

func TestAuthenticateWithPhoneVariants(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "+14155550190", "")

	// National formatting resolves to the same E.164 number.
	for _, raw := range []string{"+14155550190", "(415) 555-0190", "415-555-0190"} {
		if _, _, err := env.auth.Authenticate(context.Background(), raw, testPassword); err != nil {
			t.Errorf("Authenticate(%q) returned error: %v", raw, err)
		}
	}
}

func TestAuthenticateEmailCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "", "alice@example.com")

	if _, _, err := env.auth.Authenticate(context.Background(), "Alice@Example.COM", testPassword); err != nil {
		t.Errorf("Authenticate with mixed-case email returned error: %v", err)
	}
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "", "alice@example.com")

	tests := []struct {
		name       string
		identifier string
		password   string
	}{
		{"unknown email", "bob@example.com", testPassword},
		{"unknown phone", "+14155550000", testPassword},
		{"wrong password", "alice@example.com", "not the password"},
		{"unresolvable identifier", "not-an-identifier", testPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.auth.Authenticate(context.Background(), tt.identifier, tt.password)
			if !errors.Is(err, apperrors.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	if err := env.store.Deactivate(ctx, user.ID); err != nil {
		t.Fatalf("Deactivate returned error: %v", err)
	}

	_, _, err := env.auth.Authenticate(ctx, "alice@example.com", testPassword)
	if !errors.Is(err, apperrors.ErrAccountInactive) {
		t.Errorf("expected ErrAccountInactive, got %v", err)
	}
}

func TestAuthenticateUnverifiedAccount(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	if err := env.store.Update(ctx, user.ID, map[string]interface{}{"is_email_verified": false}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	_, _, err := env.auth.Authenticate(ctx, "alice@example.com", testPassword)
	if !errors.Is(err, apperrors.ErrAccountNotVerified) {
		t.Errorf("expected ErrAccountNotVerified, got %v", err)
	}
}

func TestAuthenticateOneVerifiedIdentifierSuffices(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "+14155550190", "alice@example.com")
	ctx := context.Background()

	// Email unverified, phone verified: login with either identifier works.
	if err := env.store.Update(ctx, user.ID, map[string]interface{}{"is_email_verified": false}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if _, _, err := env.auth.Authenticate(ctx, "alice@example.com", testPassword); err != nil {
		t.Errorf("Authenticate by unverified email should still pass: %v", err)
	}
	if _, _, err := env.auth.Authenticate(ctx, "+14155550190", testPassword); err != nil {
		t.Errorf("Authenticate by phone returned error: %v", err)
	}
}
