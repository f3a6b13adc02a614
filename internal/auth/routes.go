package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the auth endpoints on the router. requireSession
// guards the endpoints that need an authenticated user.
func RegisterRoutes(r gin.IRouter, h *Handler, requireSession gin.HandlerFunc) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", h.Signup)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", h.Logout)
		authGroup.POST("/reset-password", h.ResetPassword)
		authGroup.POST("/reset-password/confirm", h.ConfirmResetPassword)

		protected := authGroup.Group("")
		protected.Use(requireSession)
		{
			protected.GET("/me", h.Me)
			protected.PATCH("/profile", h.UpdateProfile)
			protected.PUT("/password", h.UpdatePassword)
		}
	}
}
