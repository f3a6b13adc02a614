package resume

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobtrackr/internal/apperrors"
)

// Handler handles HTTP requests for the resume collection
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new resume handler
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// List handles GET /resumes
func (h *Handler) List(c *gin.Context) {
	resumes, err := h.service.List(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resumes": resumes})
}

// Upload handles POST /resumes (multipart form, field "file")
func (h *Handler) Upload(c *gin.Context) {
	// Reject oversized bodies before buffering the whole upload. The limit
	// leaves headroom for the multipart framing around the 10 MB file.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxFileSize+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()

	input := UploadInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	}

	rec, err := h.service.Upload(c.Request.Context(), c.GetString("user_id"), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// Delete handles DELETE /resumes/:id
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resume ID is required"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.GetString("user_id"), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "resume deleted successfully", "id": id})
}

// ToggleSelection handles POST /resumes/:id/toggle
func (h *Handler) ToggleSelection(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resume ID is required"})
		return
	}

	rec, err := h.service.ToggleSelection(c.Request.Context(), c.GetString("user_id"), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"field":   ve.Field,
			"message": ve.Reason,
		})
		return
	}

	if errors.Is(err, apperrors.ErrNotAuthenticated) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if errors.Is(err, ErrResumeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "resume not found"})
		return
	}

	h.logger.Error("resume request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
