package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metime/identity/config"
	"github.com/metime/identity/internal/handler"
	"github.com/metime/identity/internal/middleware"
)

type Router struct {
	authHandler         *handler.AuthHandler
	userHandler         *handler.UserHandler
	verificationHandler *handler.VerificationHandler
	passwordHandler     *handler.PasswordHandler
	healthHandler       *handler.HealthHandler

	jwtMw  *middleware.JWTMiddleware
	Config *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	user *handler.UserHandler,
	verification *handler.VerificationHandler,
	password *handler.PasswordHandler,
	health *handler.HealthHandler,

	jwtMw *middleware.JWTMiddleware,
	config *config.Config,
) *Router {
	return &Router{
		authHandler:         auth,
		userHandler:         user,
		verificationHandler: verification,
		passwordHandler:     password,
		healthHandler:       health,

		jwtMw:  jwtMw,
		Config: config,
	}
}

// sensitiveLimit returns a fresh limiter for abuse-prone routes. Each
// route keeps its own bucket so hammering login does not starve refresh.
func (r *Router) sensitiveLimit() gin.HandlerFunc {
	return middleware.RateLimit(r.Config.RateLimit.SensitiveRequest, time.Duration(r.Config.RateLimit.Duration)*time.Second)
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.Default()

	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.CORS())

	api := router.Group("/api")
	{
		api.GET("/health", r.healthHandler.HealthCheck)

		v1 := api.Group("/v1")
		{
			v1.Use(middleware.RateLimit(r.Config.RateLimit.Request, time.Duration(r.Config.RateLimit.Duration)*time.Second))

			r.authRoutes(v1)
			r.userRoutes(v1)
			r.verificationRoutes(v1)
		}
	}

	return router
}
