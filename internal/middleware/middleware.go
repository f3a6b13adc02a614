// Package middleware holds the gin middleware shared by the API routes:
// session authentication, request IDs and structured request logging.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jobtrackr/internal/auth"
	"jobtrackr/internal/session"
)

// SessionAuth validates the session cookie and injects the user context
func SessionAuth(sessions session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(auth.SessionCookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized: no session cookie",
			})
			return
		}

		sess, err := sessions.Get(c.Request.Context(), sessionID)
		if err != nil {
			slog.Warn("invalid session",
				"session_id", sessionID,
				"error", err.Error(),
				"request_id", c.GetString("request_id"),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized: invalid session",
			})
			return
		}

		// Get already rejects expired sessions; keep the check anyway so a
		// session fetched right at the boundary cannot slip through.
		if time.Now().After(sess.ExpiresAt) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized: session expired",
			})
			return
		}

		c.Set("user_id", sess.UserID)
		c.Set("email", sess.Email)

		c.Next()
	}
}

// RequestID tags every request with a unique ID for log correlation
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()

		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()
	}
}

// Logging logs every request with structured attributes, levelled by status
func Logging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rw := newResponseWriter(c.Writer)
		c.Writer = rw

		c.Next()

		latency := time.Since(start)

		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		status := c.Writer.Status()

		attrs := []any{
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", float64(latency.Milliseconds()),
			"client_ip", c.ClientIP(),
			"response_size", rw.Size(),
		}

		if query != "" {
			attrs = append(attrs, "query", query)
		}
		if userID, exists := c.Get("user_id"); exists {
			attrs = append(attrs, "user_id", userID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Error("request failed - server error", attrs...)
		case status >= 400:
			logger.Warn("request failed - client error", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}
