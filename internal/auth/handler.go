package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"jobtrackr/internal/apperrors"
)

// SessionCookieName is the cookie the session ID travels in.
const SessionCookieName = "session_id"

// Handler handles authentication-related HTTP requests
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a new authentication handler
func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Login handles POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setSessionCookie(c, resp.SessionID, resp.SessionMaxAge)
	c.JSON(http.StatusOK, resp)
}

// Signup handles POST /auth/signup
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if resp.SessionID != "" {
		h.setSessionCookie(c, resp.SessionID, resp.SessionMaxAge)
	}
	c.JSON(http.StatusCreated, resp)
}

// Logout handles POST /auth/logout. The cookie is cleared unconditionally:
// a failed remote invalidation never leaves the client signed in.
func (h *Handler) Logout(c *gin.Context) {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "already logged out"})
		return
	}

	if err := h.service.Logout(c.Request.Context(), sessionID); err != nil {
		h.logger.Warn("logout failed", "error", err)
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

// ResetPassword handles POST /auth/reset-password
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.Email); err != nil {
		h.respondError(c, err)
		return
	}

	// Same response whether or not the email exists.
	c.JSON(http.StatusOK, gin.H{"message": "if the email is registered, a reset link has been sent"})
}

// ConfirmResetPassword handles POST /auth/reset-password/confirm
func (h *Handler) ConfirmResetPassword(c *gin.Context) {
	var req ConfirmResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.service.ConfirmResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated, please log in again"})
}

// Me handles GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	profile, err := h.service.Me(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile handles PATCH /auth/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		var pe *apperrors.PartialFailureError
		if errors.As(err, &pe) {
			// The profile change is committed; the identity update is not.
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "partial_failure",
				"message":   "profile was updated but the account email change did not complete",
				"committed": pe.Committed,
				"failed":    pe.Failed,
				"user":      profile,
			})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdatePassword handles PUT /auth/password
func (h *Handler) UpdatePassword(c *gin.Context) {
	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.service.UpdatePassword(c.Request.Context(), c.GetString("user_id"), req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated successfully"})
}

// respondError maps the error taxonomy onto HTTP statuses.
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

	var ae *apperrors.AuthError
	if errors.As(err, &ae) {
		switch ae.Kind {
		case apperrors.AuthInvalidCredentials:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		case apperrors.AuthUnverifiedEmail:
			c.JSON(http.StatusForbidden, gin.H{"error": "email not verified"})
		case apperrors.AuthAlreadyRegistered:
			c.JSON(http.StatusConflict, gin.H{
				"error":   "email_taken",
				"message": "This email is already registered",
				"field":   "email",
			})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		}
		return
	}

	if errors.Is(err, apperrors.ErrNotAuthenticated) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var pe *apperrors.PartialFailureError
	if errors.As(err, &pe) {
		h.logger.Error("partial failure", "committed", pe.Committed, "failed", pe.Failed, "error", pe.Err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "partial_failure",
			"committed": pe.Committed,
			"failed":    pe.Failed,
		})
		return
	}

	h.logger.Error("auth request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (h *Handler) setSessionCookie(c *gin.Context, sessionID string, maxAge int) {
	secure := os.Getenv("APP_ENV") == "production"
	c.SetCookie(SessionCookieName, sessionID, maxAge, "/", "", secure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	secure := os.Getenv("APP_ENV") == "production"
	c.SetCookie(SessionCookieName, "", -1, "/", "", secure, true)
}
