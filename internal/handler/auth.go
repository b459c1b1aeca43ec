package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/metime/identity/config"
	"github.com/metime/identity/internal/constants"
	"github.com/metime/identity/internal/dto"
	apperrors "github.com/metime/identity/internal/errors"
	"github.com/metime/identity/internal/identifier"
	"github.com/metime/identity/internal/service"
	ctxutil "github.com/metime/identity/pkg/context"
	"github.com/metime/identity/pkg/logger"
	"github.com/metime/identity/pkg/validation"
)

type AuthHandler struct {
	auth   *service.AuthenticationService
	tokens *service.TokenService
	jwtCfg config.JWTConfig
}

func NewAuthHandler(auth *service.AuthenticationService, tokens *service.TokenService, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		tokens: tokens,
		jwtCfg: jwtCfg,
	}
}

// Login authenticates by phone or email plus password.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Login")

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid login request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", validation.FormatErrors(err)))
		return
	}

	logger.InfoWithContext(ctx, "Login attempt").
		String("identifier", identifier.MaskRaw(req.Identifier)).
		Log()

	user, pair, err := h.auth.Authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Login failed").
			String("identifier", identifier.MaskRaw(req.Identifier)).
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Authentication failed", apperrors.GetErrorMessage(err)))
		return
	}

	logger.InfoWithContext(ctx, "Login succeeded").
		Uint("user_id", user.ID).
		Log()

	c.JSON(http.StatusOK, dto.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int(h.jwtCfg.AccessTokenLifetime.Seconds()),
		User:         dto.NewUserResponse(user),
	})
}

// RefreshToken exchanges a refresh token for a new pair.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "RefreshToken")

	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid refresh request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", validation.FormatErrors(err)))
		return
	}

	pair, err := h.tokens.Refresh(ctx, req.RefreshToken)
	if err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Token refresh failed").
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Token refresh failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, dto.RefreshTokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int(h.jwtCfg.AccessTokenLifetime.Seconds()),
	})
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Logout")

	var req dto.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid logout request").
			Err(err).
			Log()
		c.JSON(http.StatusBadRequest, constants.BuildErrorResponse("Invalid request format", validation.FormatErrors(err)))
		return
	}

	if err := h.tokens.RevokeRefreshToken(ctx, req.RefreshToken); err != nil {
		status := apperrors.ToHTTPStatus(err)
		logger.WarnWithContext(ctx, "Logout failed").
			Int("http_status", status).
			Err(err).
			Log()
		c.JSON(status, constants.BuildErrorResponse("Logout failed", apperrors.GetErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse("Logged out"))
}
