package service

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/metime/identity/internal/errors"
)

func TestIssueAndValidateAccessToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	pair, err := env.tokens.IssueTokenPair(ctx, user)
	if err != nil {
		t.Fatalf("IssueTokenPair returned error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be set")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Error("access and refresh tokens must differ")
	}

	got, err := env.tokens.ValidateAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess returned error: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("validated user ID = %d, want %d", got.ID, user.ID)
	}
}

func TestValidateAccessRejectsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	pair, err := env.tokens.IssueTokenPair(ctx, user)
	if err != nil {
		t.Fatalf("IssueTokenPair returned error: %v", err)
	}

	if _, err := env.tokens.ValidateAccess(ctx, pair.RefreshToken); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for refresh token, got %v", err)
	}
}

func TestValidateAccessGarbageToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.tokens.ValidateAccess(ctx, "not.a.token"); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateAccessUnknownSubject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Well-formed token whose subject has no user row.
	token, err := env.tokens.signToken(9999, tokenTypeAccess, time.Now(), time.Minute)
	if err != nil {
		t.Fatalf("signToken returned error: %v", err)
	}

	if _, err := env.tokens.ValidateAccess(ctx, token); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPasswordChangeInvalidatesOldTokens(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	oldPair, err := env.tokens.IssueTokenPair(ctx, user)
	if err != nil {
		t.Fatalf("IssueTokenPair returned error: %v", err)
	}
	if _, err := env.tokens.ValidateAccess(ctx, oldPair.AccessToken); err != nil {
		t.Fatalf("token should validate before the change: %v", err)
	}

	// A change in the same second as issuance must also invalidate, since
	// the comparison is inclusive at second resolution.
	if err := env.users.ChangePassword(ctx, user.ID, testPassword, "entirely new phrase 9"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	if _, err := env.tokens.ValidateAccess(ctx, oldPair.AccessToken); !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired for pre-change token, got %v", err)
	}
	if _, err := env.tokens.Refresh(ctx, oldPair.RefreshToken); !errors.Is(err, apperrors.ErrInvalidRefreshToken) {
		t.Errorf("expected ErrInvalidRefreshToken for pre-change refresh token, got %v", err)
	}
}

func TestTokenIssuedAfterPasswordChangeIsValid(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	// Backdate the change so a token issued now is strictly newer.
	changed := time.Now().Add(-2 * time.Second)
	if err := env.store.UpdatePassword(ctx, user.ID, user.Password, changed); err != nil {
		t.Fatalf("UpdatePassword returned error: %v", err)
	}

	fresh, err := env.store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}

	pair, err := env.tokens.IssueTokenPair(ctx, fresh)
	if err != nil {
		t.Fatalf("IssueTokenPair returned error: %v", err)
	}
	if _, err := env.tokens.ValidateAccess(ctx, pair.AccessToken); err != nil {
		t.Errorf("post-change token should validate, got %v", err)
	}
}

func TestRefreshRotatesAndBlacklistsOldToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	pair, err := env.tokens.IssueTokenPair(ctx, user)
	if err != nil {
		t.Fatalf("IssueTokenPair returned error: %v", err)
	}

	rotated, err := env.tokens.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Error("rotation should produce a new refresh token")
	}
	if _, err := env.tokens.ValidateAccess(ctx, rotated.AccessToken); err != nil {
		t.Errorf("refreshed access token should validate, got %v", err)
	}

	// The consumed refresh token must be rejected on replay.
	if _, err := env.tokens.Refresh(ctx, pair.RefreshToken); !errors.Is(err, apperrors.ErrInvalidRefreshToken) {
		t.Errorf("expected ErrInvalidRefreshToken for replayed token, got %v", err)
	}
}

func TestRevokeRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	pair, err := env.tokens.IssueTokenPair(ctx, user)
	if err != nil {
		t.Fatalf("IssueTokenPair returned error: %v", err)
	}

	if err := env.tokens.RevokeRefreshToken(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("RevokeRefreshToken returned error: %v", err)
	}
	if _, err := env.tokens.Refresh(ctx, pair.RefreshToken); !errors.Is(err, apperrors.ErrInvalidRefreshToken) {
		t.Errorf("expected ErrInvalidRefreshToken after revocation, got %v", err)
	}
}

func TestValidateAccessRejectsIneligibleAccount(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "", "alice@example.com")
	ctx := context.Background()

	pair, err := env.tokens.IssueTokenPair(ctx, user)
	if err != nil {
		t.Fatalf("IssueTokenPair returned error: %v", err)
	}

	if err := env.store.Deactivate(ctx, user.ID); err != nil {
		t.Fatalf("Deactivate returned error: %v", err)
	}

	if _, err := env.tokens.ValidateAccess(ctx, pair.AccessToken); !errors.Is(err, apperrors.ErrTokenRejected) {
		t.Errorf("expected ErrTokenRejected for deactivated account, got %v", err)
	}
}
