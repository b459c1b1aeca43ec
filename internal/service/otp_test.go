package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/metime/identity/internal/constants"
	apperrors "github.com/metime/identity/internal/errors"
	"github.com/metime/identity/internal/identifier"
)

func TestSendVerificationCodeStoresAndDispatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "", "alice@example.com")
	user.IsEmailVerified = false
	if err := env.store.Update(ctx, user.ID, map[string]interface{}{"is_email_verified": false}); err != nil {
		t.Fatalf("failed to reset verified flag: %v", err)
	}

	if err := env.otp.SendVerificationCode(ctx, user, identifier.FieldEmail); err != nil {
		t.Fatalf("SendVerificationCode returned error: %v", err)
	}

	key := constants.VerificationCacheKey(user.ID, string(identifier.FieldEmail))
	code := env.storedCode(t, key)
	if len(code) != 6 {
		t.Errorf("code %q has width %d, want 6", code, len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Errorf("code %q contains non-digit %q", code, r)
		}
	}

	messages := env.sentMessages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 dispatched message, got %d", len(messages))
	}
	msg := messages[0]
	if msg.Destination != "alice@example.com" {
		t.Errorf("message destination = %q", msg.Destination)
	}
	if msg.Subject != constants.VerificationSubject {
		t.Errorf("message subject = %q", msg.Subject)
	}
	if want := "Hi Test User, your verification code is: " + code; msg.Body != want {
		t.Errorf("message body = %q, want %q", msg.Body, want)
	}
}

func TestSendVerificationCodeAlreadyVerified(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")

	err := env.otp.SendVerificationCode(context.Background(), user, identifier.FieldEmail)
	if !errors.Is(err, apperrors.ErrAlreadyVerified) {
		t.Errorf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestSendVerificationCodeMissingField(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")

	err := env.otp.SendVerificationCode(context.Background(), user, identifier.FieldPhone)
	if !errors.Is(err, apperrors.ErrInvalidIdentifier) {
		t.Errorf("expected ErrInvalidIdentifier for absent phone, got %v", err)
	}
}

func TestReissueReplacesPreviousCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "+14155550190", "")
	if err := env.store.Update(ctx, user.ID, map[string]interface{}{"is_phone_verified": false}); err != nil {
		t.Fatalf("failed to reset verified flag: %v", err)
	}
	user.IsPhoneVerified = false

	key := constants.VerificationCacheKey(user.ID, string(identifier.FieldPhone))

	if err := env.otp.SendVerificationCode(ctx, user, identifier.FieldPhone); err != nil {
		t.Fatalf("first SendVerificationCode returned error: %v", err)
	}
	first := env.storedCode(t, key)

	if err := env.otp.SendVerificationCode(ctx, user, identifier.FieldPhone); err != nil {
		t.Fatalf("second SendVerificationCode returned error: %v", err)
	}
	second := env.storedCode(t, key)

	// The first code must no longer verify once replaced.
	if first != second {
		if err := env.otp.VerifyCode(ctx, user.ID, identifier.FieldPhone, first); !errors.Is(err, apperrors.ErrInvalidCode) {
			t.Errorf("expected ErrInvalidCode for replaced code, got %v", err)
		}
	}
	if err := env.otp.VerifyCode(ctx, user.ID, identifier.FieldPhone, second); err != nil {
		t.Errorf("current code should verify, got %v", err)
	}
}

func TestVerifyCodeIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "", "alice@example.com")
	if err := env.store.Update(ctx, user.ID, map[string]interface{}{"is_email_verified": false}); err != nil {
		t.Fatalf("failed to reset verified flag: %v", err)
	}
	user.IsEmailVerified = false

	if err := env.otp.SendVerificationCode(ctx, user, identifier.FieldEmail); err != nil {
		t.Fatalf("SendVerificationCode returned error: %v", err)
	}

	key := constants.VerificationCacheKey(user.ID, string(identifier.FieldEmail))
	code := env.storedCode(t, key)

	if err := env.otp.VerifyCode(ctx, user.ID, identifier.FieldEmail, code); err != nil {
		t.Fatalf("first VerifyCode returned error: %v", err)
	}
	if err := env.otp.VerifyCode(ctx, user.ID, identifier.FieldEmail, code); !errors.Is(err, apperrors.ErrNoCodeFound) {
		t.Errorf("expected ErrNoCodeFound on replay, got %v", err)
	}
}

func TestVerifyCodeWrongCodeIsNotConsumed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "", "alice@example.com")
	if err := env.store.Update(ctx, user.ID, map[string]interface{}{"is_email_verified": false}); err != nil {
		t.Fatalf("failed to reset verified flag: %v", err)
	}
	user.IsEmailVerified = false

	if err := env.otp.SendVerificationCode(ctx, user, identifier.FieldEmail); err != nil {
		t.Fatalf("SendVerificationCode returned error: %v", err)
	}

	key := constants.VerificationCacheKey(user.ID, string(identifier.FieldEmail))
	code := env.storedCode(t, key)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if err := env.otp.VerifyCode(ctx, user.ID, identifier.FieldEmail, wrong); !errors.Is(err, apperrors.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	// A failed attempt leaves the real code usable.
	if err := env.otp.VerifyCode(ctx, user.ID, identifier.FieldEmail, code); err != nil {
		t.Errorf("correct code should still verify, got %v", err)
	}
}

func TestVerifyCodeExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "", "alice@example.com")
	if err := env.store.Update(ctx, user.ID, map[string]interface{}{"is_email_verified": false}); err != nil {
		t.Fatalf("failed to reset verified flag: %v", err)
	}
	user.IsEmailVerified = false

	if err := env.otp.SendVerificationCode(ctx, user, identifier.FieldEmail); err != nil {
		t.Fatalf("SendVerificationCode returned error: %v", err)
	}

	key := constants.VerificationCacheKey(user.ID, string(identifier.FieldEmail))
	code := env.storedCode(t, key)

	env.mini.FastForward(13 * time.Hour)

	if err := env.otp.VerifyCode(ctx, user.ID, identifier.FieldEmail, code); !errors.Is(err, apperrors.ErrNoCodeFound) {
		t.Errorf("expected ErrNoCodeFound after expiry, got %v", err)
	}
}

func TestSendResetPasswordCodeIgnoresVerifiedState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Fully verified account still receives recovery codes.
	user := env.createUser(t, "", "alice@example.com")

	if err := env.otp.SendResetPasswordCode(ctx, user, identifier.FieldEmail); err != nil {
		t.Fatalf("SendResetPasswordCode returned error: %v", err)
	}

	code := env.storedCode(t, constants.ResetPasswordCacheKey(user.ID))
	if len(code) != 6 {
		t.Errorf("code %q has width %d, want 6", code, len(code))
	}

	messages := env.sentMessages()
	if len(messages) != 1 || messages[0].Subject != constants.ResetPasswordSubject {
		t.Errorf("unexpected dispatched messages: %+v", messages)
	}
}
