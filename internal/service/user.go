package service

import (
	"context"
	"time"

	"gorm.io/datatypes"

	apperrors "github.com/metime/identity/internal/errors"
	"github.com/metime/identity/internal/identifier"
	"github.com/metime/identity/internal/model"
	"github.com/metime/identity/internal/password"
	"github.com/metime/identity/internal/repository"
	ctxutil "github.com/metime/identity/pkg/context"
	"github.com/metime/identity/pkg/logger"
)

// RegisterInput carries the fields accepted at sign-up. At least one of
// Phone or Email must be present.
type RegisterInput struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Password  string
	Profile   datatypes.JSON
}

// UpdateInput carries a partial profile update. Nil fields are untouched.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Email     *string
}

// UserService owns the account lifecycle: registration, profile changes,
// identifier verification and the password flows.
type UserService struct {
	users    repository.UserStore
	resolver *identifier.Resolver
	policy   *password.Policy
	otp      *OTPService
}

func NewUserService(users repository.UserStore, resolver *identifier.Resolver, policy *password.Policy, otp *OTPService) *UserService {
	return &UserService{
		users:    users,
		resolver: resolver,
		policy:   policy,
		otp:      otp,
	}
}

// Register creates an account and issues a verification code for every
// identifier supplied. Code delivery failures do not roll the account back.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "Register")

	if input.Phone == "" && input.Email == "" {
		return nil, apperrors.ErrMissingIdentifier
	}
	if input.Password == "" {
		return nil, apperrors.ErrMissingPassword
	}

	user := &model.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		IsActive:  true,
		Profile:   input.Profile,
	}

	if input.Phone != "" {
		phone, err := s.resolver.NormalizePhone(input.Phone)
		if err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInvalidIdentifier, err)
		}
		user.Phone = &phone
	}
	if input.Email != "" {
		email, err := s.resolver.NormalizeEmail(input.Email)
		if err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInvalidIdentifier, err)
		}
		user.Email = &email
	}

	if err := s.policy.Validate(input.Password, input.FirstName, input.LastName, user.EmailValue(), user.PhoneValue()); err != nil {
		return nil, err
	}

	hashed, err := s.policy.Hash(input.Password)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	user.Password = hashed

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "User registered").
		Uint("user_id", user.ID).
		Bool("has_phone", user.Phone != nil).
		Bool("has_email", user.Email != nil).
		Log()

	for _, field := range presentFields(user) {
		if err := s.otp.SendVerificationCode(ctx, user, field); err != nil {
			logger.ErrorWithContext(ctx, "Failed to issue verification code at registration").
				Uint("user_id", user.ID).
				String("field", string(field)).
				Err(err).
				Log()
		}
	}

	return user, nil
}

// GetByID loads a user profile.
func (s *UserService) GetByID(ctx context.Context, id uint) (*model.User, error) {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "GetByID")
	return s.users.GetByID(ctx, id)
}

// Update applies a partial profile update. Changing an identifier clears
// that identifier's verified flag in the same write and triggers a new
// verification code for it.
func (s *UserService) Update(ctx context.Context, id uint, input UpdateInput) (*model.User, error) {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "Update")

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	reverify := make([]identifier.Field, 0, 2)

	if input.FirstName != nil && *input.FirstName != user.FirstName {
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil && *input.LastName != user.LastName {
		updates["last_name"] = *input.LastName
	}

	if input.Phone != nil {
		phone, err := s.resolver.NormalizePhone(*input.Phone)
		if err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInvalidIdentifier, err)
		}
		if phone != user.PhoneValue() {
			updates["phone"] = phone
			updates["is_phone_verified"] = false
			reverify = append(reverify, identifier.FieldPhone)
		}
	}

	if input.Email != nil {
		email, err := s.resolver.NormalizeEmail(*input.Email)
		if err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInvalidIdentifier, err)
		}
		if email != user.EmailValue() {
			updates["email"] = email
			updates["is_email_verified"] = false
			reverify = append(reverify, identifier.FieldEmail)
		}
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.users.Update(ctx, id, updates); err != nil {
		return nil, err
	}

	updated, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, field := range reverify {
		if err := s.otp.SendVerificationCode(ctx, updated, field); err != nil {
			logger.ErrorWithContext(ctx, "Failed to issue verification code after identifier change").
				Uint("user_id", id).
				String("field", string(field)).
				Err(err).
				Log()
		}
	}

	return updated, nil
}

// VerifyIdentifier consumes a verification code and marks the field as
// verified.
func (s *UserService) VerifyIdentifier(ctx context.Context, id uint, field identifier.Field, code string) (*model.User, error) {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "VerifyIdentifier")

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	verified, _, err := fieldState(user, field)
	if err != nil {
		return nil, err
	}
	if verified {
		return nil, apperrors.ErrAlreadyVerified
	}

	if err := s.otp.VerifyCode(ctx, id, field, code); err != nil {
		return nil, err
	}

	column := "is_phone_verified"
	if field == identifier.FieldEmail {
		column = "is_email_verified"
	}
	if err := s.users.Update(ctx, id, map[string]interface{}{column: true}); err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "Identifier verified").
		Uint("user_id", id).
		String("field", string(field)).
		Log()

	return s.users.GetByID(ctx, id)
}

// RequestVerification reissues the verification code for the account and
// field behind a raw identifier. Verification happens before the account
// can sign in, so this entry point is identifier-based rather than
// token-based.
func (s *UserService) RequestVerification(ctx context.Context, rawIdentifier string) (string, error) {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "RequestVerification")

	field, user, err := s.resolveUser(ctx, rawIdentifier)
	if err != nil {
		return "", err
	}

	if err := s.otp.SendVerificationCode(ctx, user, field); err != nil {
		return "", err
	}
	return maskedDestination(user, field), nil
}

// ConfirmVerification consumes a code for the identifier's field and marks
// it verified.
func (s *UserService) ConfirmVerification(ctx context.Context, rawIdentifier, code string) (*model.User, error) {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "ConfirmVerification")

	field, user, err := s.resolveUser(ctx, rawIdentifier)
	if err != nil {
		return nil, err
	}

	return s.VerifyIdentifier(ctx, user.ID, field, code)
}

// ResendVerificationCode reissues the code for an unverified field,
// replacing any code still in the cache.
func (s *UserService) ResendVerificationCode(ctx context.Context, id uint, field identifier.Field) error {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "ResendVerificationCode")

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return s.otp.SendVerificationCode(ctx, user, field)
}

// ChangePassword verifies the current password before applying the new
// one. The password-change timestamp invalidates previously issued tokens.
func (s *UserService) ChangePassword(ctx context.Context, id uint, currentPassword, newPassword string) error {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "ChangePassword")

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.policy.Verify(currentPassword, user.Password) {
		return apperrors.ErrIncorrectPassword
	}

	return s.setPassword(ctx, user, newPassword)
}

// ForgotPassword starts the recovery flow for the account behind the
// identifier.
func (s *UserService) ForgotPassword(ctx context.Context, rawIdentifier string) (string, error) {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "ForgotPassword")

	field, user, err := s.resolveUser(ctx, rawIdentifier)
	if err != nil {
		return "", err
	}

	if err := s.otp.SendResetPasswordCode(ctx, user, field); err != nil {
		return "", err
	}
	return maskedDestination(user, field), nil
}

// ResetPassword consumes a recovery code and sets the new password. The
// code is only consumed after the new password passes policy.
func (s *UserService) ResetPassword(ctx context.Context, rawIdentifier, code, newPassword string) error {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "ResetPassword")

	_, user, err := s.resolveUser(ctx, rawIdentifier)
	if err != nil {
		return err
	}

	if err := s.policy.Validate(newPassword, user.FirstName, user.LastName, user.EmailValue(), user.PhoneValue()); err != nil {
		return err
	}

	if err := s.otp.VerifyResetPasswordCode(ctx, user.ID, code); err != nil {
		return err
	}

	return s.setPassword(ctx, user, newPassword)
}

// Deactivate soft-disables the account. Existing tokens are rejected from
// the next validation onwards.
func (s *UserService) Deactivate(ctx context.Context, id uint) error {
	ctx = ctxutil.WithModuleFunction(ctx, "service", "Deactivate")

	if err := s.users.Deactivate(ctx, id); err != nil {
		return err
	}

	logger.InfoWithContext(ctx, "User deactivated").
		Uint("user_id", id).
		Log()

	return nil
}

func (s *UserService) setPassword(ctx context.Context, user *model.User, newPassword string) error {
	if err := s.policy.Validate(newPassword, user.FirstName, user.LastName, user.EmailValue(), user.PhoneValue()); err != nil {
		return err
	}

	hashed, err := s.policy.Hash(newPassword)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hashed, time.Now()); err != nil {
		return err
	}

	logger.InfoWithContext(ctx, "Password changed").
		Uint("user_id", user.ID).
		Log()

	return nil
}

func (s *UserService) resolveUser(ctx context.Context, rawIdentifier string) (identifier.Field, *model.User, error) {
	field, value, err := s.resolver.Resolve(rawIdentifier)
	if err != nil {
		return "", nil, apperrors.WrapError(apperrors.ErrInvalidIdentifier, err)
	}

	var user *model.User
	switch field {
	case identifier.FieldPhone:
		user, err = s.users.GetByPhone(ctx, value)
	case identifier.FieldEmail:
		user, err = s.users.GetByEmail(ctx, value)
	default:
		return "", nil, apperrors.ErrInvalidIdentifier
	}
	if err != nil {
		return "", nil, err
	}

	return field, user, nil
}

func maskedDestination(user *model.User, field identifier.Field) string {
	if field == identifier.FieldEmail {
		return identifier.Mask(field, user.EmailValue())
	}
	return identifier.Mask(field, user.PhoneValue())
}

func presentFields(user *model.User) []identifier.Field {
	fields := make([]identifier.Field, 0, 2)
	if user.Phone != nil {
		fields = append(fields, identifier.FieldPhone)
	}
	if user.Email != nil {
		fields = append(fields, identifier.FieldEmail)
	}
	return fields
}
