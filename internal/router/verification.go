package router

import "github.com/gin-gonic/gin"

func (r *Router) verificationRoutes(version *gin.RouterGroup) {
	verification := version.Group("/verification")
	{
		// Verification precedes login, so these endpoints are public and
		// keyed on the identifier.
		verification.POST("/send", r.sensitiveLimit(), r.verificationHandler.SendCode)
		verification.POST("/verify", r.sensitiveLimit(), r.verificationHandler.VerifyCode)
	}
}
