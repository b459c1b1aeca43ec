package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"

	"github.com/metime/identity/config"
	"github.com/metime/identity/internal/constants"
	apperrors "github.com/metime/identity/internal/errors"
	"github.com/metime/identity/internal/identifier"
	"github.com/metime/identity/internal/model"
	"github.com/metime/identity/internal/notify"
	ctxutil "github.com/metime/identity/pkg/context"
	"github.com/metime/identity/pkg/jobs"
	"github.com/metime/identity/pkg/logger"
	"github.com/metime/identity/pkg/redis"
)

// OTPService manages the one-time codes for identifier verification and
// password recovery. Codes live only in the cache under a TTL; storing the
// code is part of the request, delivering it is not.
type OTPService struct {
	cfg   config.VerificationConfig
	cache *redis.Client
	queue jobs.Queue
}

func NewOTPService(cfg config.VerificationConfig, cache *redis.Client, queue jobs.Queue) *OTPService {
	return &OTPService{
		cfg:   cfg,
		cache: cache,
		queue: queue,
	}
}

// SendVerificationCode issues a fresh code for the given identifier field
// and queues its delivery. Reissuing replaces any previous code for the
// same field. Already-verified fields are refused.
func (s *OTPService) SendVerificationCode(ctx context.Context, user *model.User, field identifier.Field) error {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "SendVerificationCode")

	verified, destination, err := fieldState(user, field)
	if err != nil {
		return err
	}
	if verified {
		return apperrors.ErrAlreadyVerified
	}

	code, err := s.generateCode()
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	key := constants.VerificationCacheKey(user.ID, string(field))
	if err := s.cache.Set(ctx, key, code, s.cfg.VerificationTimeout); err != nil {
		return apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}

	body, err := notify.RenderVerificationBody(code, user.FullName())
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.dispatch(ctx, user.ID, notify.Message{
		Field:       field,
		Destination: destination,
		Subject:     constants.VerificationSubject,
		Body:        body,
	})

	logger.InfoWithContext(ctx, "Verification code issued").
		Uint("user_id", user.ID).
		String("field", string(field)).
		Log()

	return nil
}

// SendResetPasswordCode issues a password recovery code and queues its
// delivery to the identifier the user supplied. Unlike verification, it is
// not gated on the field's verified flag.
func (s *OTPService) SendResetPasswordCode(ctx context.Context, user *model.User, field identifier.Field) error {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "SendResetPasswordCode")

	_, destination, err := fieldState(user, field)
	if err != nil {
		return err
	}

	code, err := s.generateCode()
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	key := constants.ResetPasswordCacheKey(user.ID)
	if err := s.cache.Set(ctx, key, code, s.cfg.ResetPasswordTimeout); err != nil {
		return apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}

	body, err := notify.RenderResetPasswordBody(code, user.FullName())
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.dispatch(ctx, user.ID, notify.Message{
		Field:       field,
		Destination: destination,
		Subject:     constants.ResetPasswordSubject,
		Body:        body,
	})

	logger.InfoWithContext(ctx, "Password recovery code issued").
		Uint("user_id", user.ID).
		String("field", string(field)).
		Log()

	return nil
}

// VerifyCode checks a verification code for one identifier field. A correct
// code is consumed, so a second submission of the same code fails with
// ErrNoCodeFound.
func (s *OTPService) VerifyCode(ctx context.Context, userID uint, field identifier.Field, code string) error {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "VerifyCode")
	return s.consumeCode(ctx, constants.VerificationCacheKey(userID, string(field)), code)
}

// VerifyResetPasswordCode checks and consumes a password recovery code.
func (s *OTPService) VerifyResetPasswordCode(ctx context.Context, userID uint, code string) error {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "VerifyResetPasswordCode")
	return s.consumeCode(ctx, constants.ResetPasswordCacheKey(userID), code)
}

func (s *OTPService) consumeCode(ctx context.Context, key, code string) error {
	stored, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return apperrors.ErrNoCodeFound
		}
		return apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return apperrors.ErrInvalidCode
	}

	if err := s.cache.Delete(ctx, key); err != nil {
		return apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}

	return nil
}

// generateCode produces a zero-padded numeric code of the configured width.
func (s *OTPService) generateCode() (string, error) {
	digits := s.cfg.CodeDigits
	if digits < 1 {
		digits = constants.DefaultVerificationCodeDigits
	}

	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}

// dispatch queues the notification. Delivery problems are logged, never
// surfaced: the code is already in the cache and the caller's request has
// succeeded.
func (s *OTPService) dispatch(ctx context.Context, userID uint, message notify.Message) {
	if err := s.queue.Enqueue(ctx, notify.JobName, message); err != nil {
		logger.ErrorWithContext(ctx, "Failed to queue notification").
			Uint("user_id", userID).
			String("field", string(message.Field)).
			Err(err).
			Log()
	}
}

// fieldState reports the verified flag and destination address for one of
// the user's identifier fields.
func fieldState(user *model.User, field identifier.Field) (bool, string, error) {
	switch field {
	case identifier.FieldPhone:
		if user.Phone == nil {
			return false, "", apperrors.ErrInvalidIdentifier
		}
		return user.IsPhoneVerified, *user.Phone, nil
	case identifier.FieldEmail:
		if user.Email == nil {
			return false, "", apperrors.ErrInvalidIdentifier
		}
		return user.IsEmailVerified, *user.Email, nil
	default:
		return false, "", apperrors.ErrInvalidIdentifier
	}
}
