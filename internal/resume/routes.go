package resume

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the resume endpoints on the router. All of them
// require an authenticated session.
func RegisterRoutes(r gin.IRouter, h *Handler, requireSession gin.HandlerFunc) {
	resumes := r.Group("/resumes")
	resumes.Use(requireSession)
	{
		resumes.GET("", h.List)
		resumes.POST("", h.Upload)
		resumes.DELETE("/:id", h.Delete)
		resumes.POST("/:id/toggle", h.ToggleSelection)
	}
}
