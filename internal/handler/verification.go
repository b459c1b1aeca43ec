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

// VerificationHandler drives the identifier verification flow. Verification
// comes before login, so both endpoints key on the raw identifier instead of
// an access token.
type VerificationHandler struct {
	userService *service.UserService
}

func NewVerificationHandler(userService *service.UserService) *VerificationHandler {
	return &VerificationHandler{userService: userService}
}

// SendCode issues (or reissues) a verification code for the identifier.
func (h *VerificationHandler) SendCode(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "SendCode")

	var req dto.SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid send code request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", validation.FormatErrors(err)))
		return
	}

	logger.InfoWithContext(ctx, "Verification code requested").
		String("identifier", identifier.MaskRaw(req.Identifier)).
		Log()

	destination, err := h.userService.RequestVerification(ctx, req.Identifier)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Failed to send verification code").
			String("identifier", identifier.MaskRaw(req.Identifier)).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Failed to send verification code", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildDataResponse("Verification code sent", gin.H{
		"destination": destination,
	}))
}

// VerifyCode consumes a code and marks the identifier's field verified.
func (h *VerificationHandler) VerifyCode(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "VerifyCode")

	var req dto.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid verify code request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", validation.FormatErrors(err)))
		return
	}

	user, err := h.userService.ConfirmVerification(ctx, req.Identifier, req.Code)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Verification failed").
			String("identifier", identifier.MaskRaw(req.Identifier)).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Verification failed", apperrors.GetErrorMessage(err)))
		return
	}

	logger.InfoWithContext(ctx, "Identifier verified").
		Uint("user_id", user.ID).
		Log()

	c.JSON(http.StatusOK, constants.BuildDataResponse("Identifier verified", dto.NewUserResponse(user)))
}
