package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/noteharvest/models"
	"github.com/use-agent/noteharvest/session"
)

// Health returns the handler for GET /api/v1/health.
func Health(s *session.Session, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(startTime).Seconds()),
			SessionStatus: s.Snapshot().Status,
		})
	}
}
