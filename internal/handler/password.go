package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/metime/identity/internal/constants"
	"github.com/metime/identity/internal/dto"
	apperrors "github.com/metime/identity/internal/errors"
	"github.com/metime/identity/internal/identifier"
	"github.com/metime/identity/internal/service"
	ctxutil "github.com/metime/identity/pkg/context"
	"github.com/metime/identity/pkg/logger"
	"github.com/metime/identity/pkg/validation"
)

// PasswordHandler exposes the unauthenticated password recovery flow.
type PasswordHandler struct {
	userService *service.UserService
}

func NewPasswordHandler(userService *service.UserService) *PasswordHandler {
	return &PasswordHandler{userService: userService}
}

// Forgot sends a recovery code to the identifier's channel.
func (h *PasswordHandler) Forgot(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Forgot")

	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid forgot password request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", validation.FormatErrors(err)))
		return
	}

	logger.InfoWithContext(ctx, "Password recovery requested").
		String("identifier", identifier.MaskRaw(req.Identifier)).
		Log()

	destination, err := h.userService.ForgotPassword(ctx, req.Identifier)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Password recovery request failed").
			String("identifier", identifier.MaskRaw(req.Identifier)).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Password recovery failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildDataResponse("Recovery code sent", gin.H{
		"destination": destination,
	}))
}

// Reset consumes a recovery code and sets the new password.
func (h *PasswordHandler) Reset(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Reset")

	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid reset password request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", validation.FormatErrors(err)))
		return
	}

	if req.NewPassword != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Password reset failed", apperrors.GetErrorMessage(apperrors.ErrPasswordMismatch)))
		return
	}

	if err := h.userService.ResetPassword(ctx, req.Identifier, req.Code, req.NewPassword); err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Password reset failed").
			String("identifier", identifier.MaskRaw(req.Identifier)).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Password reset failed", apperrors.GetErrorMessage(err)))
		return
	}

	logger.InfoWithContext(ctx, "Password reset completed").
		String("identifier", identifier.MaskRaw(req.Identifier)).
		Log()

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Password reset"))
}
