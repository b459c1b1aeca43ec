package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/metime/identity/config"
	"github.com/metime/identity/internal/constants"
	apperrors "github.com/metime/identity/internal/errors"
	"github.com/metime/identity/internal/model"
	"github.com/metime/identity/internal/repository"
	ctxutil "github.com/metime/identity/pkg/context"
	"github.com/metime/identity/pkg/logger"
	"github.com/metime/identity/pkg/redis"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenPair is the result of a successful authentication or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService issues and validates the JWT pairs used by the API. Access
// tokens are stateless; refresh tokens are tracked by jti so rotation can
// blacklist the consumed token.
type TokenService struct {
	cfg   config.JWTConfig
	users repository.UserStore
	cache *redis.Client
}

func NewTokenService(cfg config.JWTConfig, users repository.UserStore, cache *redis.Client) *TokenService {
	return &TokenService{
		cfg:   cfg,
		users: users,
		cache: cache,
	}
}

// IssueTokenPair creates a fresh access/refresh pair for the user.
func (s *TokenService) IssueTokenPair(ctx context.Context, user *model.User) (*TokenPair, error) {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "IssueTokenPair")

	now := time.Now()

	access, err := s.signToken(user.ID, tokenTypeAccess, now, s.cfg.AccessTokenLifetime)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	refresh, err := s.signToken(user.ID, tokenTypeRefresh, now, s.cfg.RefreshTokenLifetime)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.DebugWithContext(ctx, "Token pair issued").
		Uint("user_id", user.ID).
		Log()

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateAccess verifies an access token and returns the user it belongs
// to. Tokens issued before the user's last password change are treated as
// expired, and tokens for users who can no longer sign in are rejected.
func (s *TokenService) ValidateAccess(ctx context.Context, tokenString string) (*model.User, error) {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "ValidateAccess")

	claims, err := s.parseToken(tokenString, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	if err := s.checkIssuedAt(claims, user); err != nil {
		logger.WarnWithContext(ctx, "Access token predates password change").
			Uint("user_id", user.ID).
			Log()
		return nil, err
	}

	if !user.IsActive || !user.CanLogin() {
		logger.WarnWithContext(ctx, "Access token for ineligible account").
			Uint("user_id", user.ID).
			Bool("is_active", user.IsActive).
			Bool("can_login", user.CanLogin()).
			Log()
		return nil, apperrors.ErrTokenRejected
	}

	return user, nil
}

// Refresh exchanges a valid refresh token for a new pair. The consumed
// token's jti is blacklisted when rotation is enabled so it cannot be
// replayed within its remaining lifetime.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "Refresh")

	claims, err := s.parseToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInvalidRefreshToken, err)
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	blacklisted, err := s.cache.Exists(ctx, constants.TokenBlacklistCacheKey(jti))
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}
	if blacklisted {
		logger.WarnWithContext(ctx, "Blacklisted refresh token presented").
			String("jti", jti).
			Log()
		return nil, apperrors.ErrInvalidRefreshToken
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInvalidRefreshToken, err)
	}

	if err := s.checkIssuedAt(claims, user); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInvalidRefreshToken, err)
	}

	if !user.IsActive || !user.CanLogin() {
		return nil, apperrors.ErrTokenRejected
	}

	pair, err := s.IssueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	if !s.cfg.RotateRefreshTokens {
		// Keep handing back the original refresh token when rotation is off.
		pair.RefreshToken = refreshToken
		return pair, nil
	}

	if s.cfg.BlacklistAfterRotation {
		if err := s.blacklist(ctx, claims, jti); err != nil {
			logger.ErrorWithContext(ctx, "Failed to blacklist rotated refresh token").
				String("jti", jti).
				Err(err).
				Log()
		}
	}

	return pair, nil
}

// RevokeRefreshToken blacklists a refresh token for its remaining lifetime.
// Used by logout.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "RevokeRefreshToken")

	claims, err := s.parseToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInvalidRefreshToken, err)
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return apperrors.ErrInvalidRefreshToken
	}

	return s.blacklist(ctx, claims, jti)
}

func (s *TokenService) signToken(userID uint, tokenType string, issuedAt time.Time, lifetime time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    userID,
		"token_type": tokenType,
		"jti":        uuid.NewString(),
		"iat":        issuedAt.Unix(),
		"exp":        issuedAt.Add(lifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *TokenService) parseToken(tokenString, wantType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.WrapError(apperrors.ErrTokenExpired, err)
		}
		return nil, apperrors.WrapError(apperrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	if tokenType, _ := claims["token_type"].(string); tokenType != wantType {
		return nil, apperrors.ErrInvalidToken
	}

	// Tokens without an issue time cannot be checked against password
	// changes, so they are never accepted.
	if _, ok := claims["iat"]; !ok {
		return nil, apperrors.ErrInvalidToken
	}

	return claims, nil
}

func (s *TokenService) userFromClaims(ctx context.Context, claims jwt.MapClaims) (*model.User, error) {
	rawID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, uint(rawID))
	if err != nil {
		return nil, err
	}

	return user, nil
}

// checkIssuedAt rejects tokens minted at or before the user's last password
// change. Claim timestamps have second resolution, so a token from the same
// second as the change is also refused.
func (s *TokenService) checkIssuedAt(claims jwt.MapClaims, user *model.User) error {
	if user.LastPasswordChange == nil {
		return nil
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return apperrors.ErrInvalidToken
	}

	if int64(iat) <= user.LastPasswordChange.Unix() {
		return apperrors.ErrTokenExpired
	}

	return nil
}

func (s *TokenService) blacklist(ctx context.Context, claims jwt.MapClaims, jti string) error {
	ttl := s.cfg.RefreshTokenLifetime
	if exp, ok := claims["exp"].(float64); ok {
		remaining := time.Until(time.Unix(int64(exp), 0))
		if remaining > 0 {
			ttl = remaining
		}
	}

	if err := s.cache.Set(ctx, constants.TokenBlacklistCacheKey(jti), "1", ttl); err != nil {
		return apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}
	return nil
}
