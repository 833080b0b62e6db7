package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagent/models"
	"github.com/use-agent/pagent/store"
)

// Version is the service version reported by the health endpoint.
const Version = "1.0.0"

// Health returns a handler for GET /api/v1/health.
func Health(st *store.Store, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: Version,
		}

		stats, err := st.Stats(c.Request.Context())
		if err != nil {
			resp.Status = "degraded"
		} else {
			resp.Store = stats
		}

		c.JSON(http.StatusOK, resp)
	}
}
