package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/metime/identity/internal/constants"
	"github.com/metime/identity/internal/dto"
	apperrors "github.com/metime/identity/internal/errors"
	"github.com/metime/identity/internal/identifier"
	"github.com/metime/identity/internal/middleware"
	"github.com/metime/identity/internal/service"
	ctxutil "github.com/metime/identity/pkg/context"
	"github.com/metime/identity/pkg/logger"
	"github.com/metime/identity/pkg/validation"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Register creates a new account and triggers verification for every
// identifier supplied.
func (h *UserHandler) Register(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Register")

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid register request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", validation.FormatErrors(err)))
		return
	}

	user, err := h.userService.Register(ctx, service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
		Password:  req.Password,
		Profile:   req.Profile,
	})
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Registration failed").
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Registration failed", apperrors.GetErrorMessage(err)))
		return
	}

	logger.InfoWithContext(ctx, "User registered").
		Uint("user_id", user.ID).
		Log()

	c.JSON(http.StatusCreated, constants.BuildDataResponse(constants.MsgCreated, dto.NewUserResponse(user)))
}

// Me returns the authenticated user's own profile.
func (h *UserHandler) Me(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Me")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, constants.BuildErrorResponse(constants.MsgUnauthorized, nil))
		return
	}

	logger.DebugWithContext(ctx, "Profile fetched").
		Uint("user_id", user.ID).
		Log()

	c.JSON(http.StatusOK, constants.BuildDataResponse(constants.MsgSuccess, dto.NewUserResponse(user)))
}

// GetByID returns a user profile. Owners see their own record, admins see
// anyone's.
func (h *UserHandler) GetByID(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "GetByID")

	targetID, ok := h.pathID(c)
	if !ok {
		return
	}

	current, ok := middleware.CurrentUser(c)
	if !ok || !service.IsOwnerOrAdmin(current, targetID) {
		c.JSON(http.StatusForbidden, constants.BuildErrorResponse(constants.MsgForbidden, nil))
		return
	}

	user, err := h.userService.GetByID(ctx, targetID)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Failed to fetch user").
			Uint("target_id", targetID).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Failed to fetch user", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildDataResponse(constants.MsgSuccess, dto.NewUserResponse(user)))
}

// Update applies a partial profile update. Identifier changes restart
// verification for the changed field.
func (h *UserHandler) Update(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Update")

	targetID, ok := h.pathID(c)
	if !ok {
		return
	}

	current, ok := middleware.CurrentUser(c)
	if !ok || !service.IsOwnerOrAdmin(current, targetID) {
		c.JSON(http.StatusForbidden, constants.BuildErrorResponse(constants.MsgForbidden, nil))
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid update request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", validation.FormatErrors(err)))
		return
	}

	user, err := h.userService.Update(ctx, targetID, service.UpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
	})
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Profile update failed").
			Uint("target_id", targetID).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Update failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildDataResponse(constants.MsgUpdated, dto.NewUserResponse(user)))
}

// ChangePassword verifies the current password before applying the new one.
// Only the owner may change their password.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ChangePassword")

	targetID, ok := h.pathID(c)
	if !ok {
		return
	}

	current, ok := middleware.CurrentUser(c)
	if !ok || !service.IsOwner(current, targetID) {
		c.JSON(http.StatusForbidden, constants.BuildErrorResponse(constants.MsgForbidden, nil))
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid change password request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", validation.FormatErrors(err)))
		return
	}

	if req.NewPassword != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Password change failed", apperrors.GetErrorMessage(apperrors.ErrPasswordMismatch)))
		return
	}

	if err := h.userService.ChangePassword(ctx, targetID, req.CurrentPassword, req.NewPassword); err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Password change failed").
			Uint("target_id", targetID).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Password change failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Password changed"))
}

// ResendVerification reissues the verification code for one of the
// account's identifiers. Owner only.
func (h *UserHandler) ResendVerification(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ResendVerification")

	targetID, ok := h.pathID(c)
	if !ok {
		return
	}

	current, ok := middleware.CurrentUser(c)
	if !ok || !service.IsOwner(current, targetID) {
		c.JSON(http.StatusForbidden, constants.BuildErrorResponse(constants.MsgForbidden, nil))
		return
	}

	var req dto.ResendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid resend verification request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", validation.FormatErrors(err)))
		return
	}

	if err := h.userService.ResendVerificationCode(ctx, targetID, identifier.Field(req.Field)); err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Resend verification failed").
			Uint("target_id", targetID).
			String("field", req.Field).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Failed to send verification code", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Verification code sent"))
}

// Deactivate soft-disables an account.
func (h *UserHandler) Deactivate(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Deactivate")

	targetID, ok := h.pathID(c)
	if !ok {
		return
	}

	current, ok := middleware.CurrentUser(c)
	if !ok || !service.IsOwnerOrAdmin(current, targetID) {
		c.JSON(http.StatusForbidden, constants.BuildErrorResponse(constants.MsgForbidden, nil))
		return
	}

	if err := h.userService.Deactivate(ctx, targetID); err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Deactivation failed").
			Uint("target_id", targetID).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Deactivation failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Account deactivated"))
}

func (h *UserHandler) pathID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid user ID", raw))
		return 0, false
	}
	return uint(id), true
}
