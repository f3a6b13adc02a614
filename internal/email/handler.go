package email

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handler serves the email worker's health and monitoring endpoints
type Handler struct {
	redis  *redis.Client
	store  *IdempotencyStore
	logger *slog.Logger
}

// NewHandler creates a new email worker handler
func NewHandler(redisClient *redis.Client, store *IdempotencyStore, logger *slog.Logger) *Handler {
	return &Handler{
		redis:  redisClient,
		store:  store,
		logger: logger,
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	redisStatus := "connected"
	if err := h.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "disconnected"
		h.logger.Error("redis health check failed", "error", err)
	}

	recordCount, err := h.store.Count(ctx)
	if err != nil {
		h.logger.Error("failed to count idempotency records", "error", err)
		recordCount = -1
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if redisStatus != "connected" {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":              status,
		"service":             "email-worker",
		"redis":               redisStatus,
		"idempotency_records": recordCount,
		"timestamp":           time.Now().UTC(),
	})
}

// Stats handles GET /stats
func (h *Handler) Stats(c *gin.Context) {
	recordCount, err := h.store.Count(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to count idempotency records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to retrieve stats",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"idempotency_records": recordCount,
		"ttl_hours":           24,
	})
}
