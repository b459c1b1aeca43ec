package router

import "github.com/gin-gonic/gin"

func (r *Router) userRoutes(version *gin.RouterGroup) {
	users := version.Group("/users")
	{
		// Registration is public
		users.POST("", r.sensitiveLimit(), r.userHandler.Register)

		// Everything else requires JWT authentication
		protected := users.Group("")
		protected.Use(r.jwtMw.RequireAuth())
		{
			protected.GET("/me", r.userHandler.Me)

			protected.GET("/:id", r.userHandler.GetByID)

			// Partial update; changing an identifier restarts verification
			protected.PATCH("/:id", r.userHandler.Update)

			// Change password with current password verification
			protected.PUT("/:id/password", r.userHandler.ChangePassword)

			// Reissue a verification code for the other identifier
			protected.POST("/:id/verification/resend", r.userHandler.ResendVerification)

			// Soft delete
			protected.DELETE("/:id", r.userHandler.Deactivate)
		}
	}
}
