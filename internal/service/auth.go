package service

import (
	"context"
	"errors"

	apperrors "github.com/metime/identity/internal/errors"
	"github.com/metime/identity/internal/identifier"
	"github.com/metime/identity/internal/model"
	"github.com/metime/identity/internal/password"
	"github.com/metime/identity/internal/repository"
	ctxutil "github.com/metime/identity/pkg/context"
	"github.com/metime/identity/pkg/logger"
)

// AuthenticationService verifies credentials and hands out token pairs. A
// user may sign in with either identifier; lookup failures and password
// mismatches collapse into the same error so callers cannot probe which
// identifiers exist.
type AuthenticationService struct {
	users    repository.UserStore
	resolver *identifier.Resolver
	policy   *password.Policy
	tokens   *TokenService
}

func NewAuthenticationService(users repository.UserStore, resolver *identifier.Resolver, policy *password.Policy, tokens *TokenService) *AuthenticationService {
	return &AuthenticationService{
		users:    users,
		resolver: resolver,
		policy:   policy,
		tokens:   tokens,
	}
}

// Authenticate resolves the raw identifier, verifies the password and
// returns a token pair for an eligible account.
func (s *AuthenticationService) Authenticate(ctx context.Context, rawIdentifier, plainPassword string) (*model.User, *TokenPair, error) {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "Authenticate")

	user, err := s.verifyCredentials(ctx, rawIdentifier, plainPassword)
	if err != nil {
		return nil, nil, err
	}

	if !user.IsActive {
		logger.WarnWithContext(ctx, "Login attempt on inactive account").
			Uint("user_id", user.ID).
			Log()
		return nil, nil, apperrors.ErrAccountInactive
	}

	if !user.CanLogin() {
		logger.WarnWithContext(ctx, "Login attempt on unverified account").
			Uint("user_id", user.ID).
			Log()
		return nil, nil, apperrors.ErrAccountNotVerified
	}

	pair, err := s.tokens.IssueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		// A stale last_login timestamp must not fail the sign-in.
		logger.ErrorWithContext(ctx, "Failed to record last login").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	logger.InfoWithContext(ctx, "User authenticated").
		Uint("user_id", user.ID).
		Log()

	return user, pair, nil
}

// verifyCredentials finds the account behind the identifier and checks the
// password. Every failure mode before the eligibility checks maps to
// ErrInvalidCredentials.
func (s *AuthenticationService) verifyCredentials(ctx context.Context, rawIdentifier, plainPassword string) (*model.User, error) {
	field, value, err := s.resolver.Resolve(rawIdentifier)
	if err != nil {
		logger.DebugWithContext(ctx, "Unresolvable login identifier").Log()
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.lookup(ctx, field, value)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Burn a hash comparison so the response time does not reveal
			// whether the identifier exists.
			_ = s.policy.Verify(plainPassword, dummyPasswordHash)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.policy.Verify(plainPassword, user.Password) {
		logger.WarnWithContext(ctx, "Password mismatch").
			Uint("user_id", user.ID).
			String("field", string(field)).
			Log()
		return nil, apperrors.ErrInvalidCredentials
	}

	return user, nil
}

func (s *AuthenticationService) lookup(ctx context.Context, field identifier.Field, value string) (*model.User, error) {
	switch field {
	case identifier.FieldPhone:
		return s.users.GetByPhone(ctx, value)
	case identifier.FieldEmail:
		return s.users.GetByEmail(ctx, value)
	default:
		return nil, apperrors.ErrInvalidIdentifier
	}
}

// dummyPasswordHash is a bcrypt hash of a throwaway string, compared against
// when the identifier does not match any account.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
