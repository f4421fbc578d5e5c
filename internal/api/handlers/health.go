package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthPingTimeout = 2 * time.Second

// Pinger is anything whose backend can be checked
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	history Pinger
	backend string
}

func NewHealthHandler(history Pinger, backend string) *HealthHandler {
	return &HealthHandler{history: history, backend: backend}
}

// HealthCheck returns the health status of the API and its history backend
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	if err := h.history.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"history": gin.H{
				"backend": h.backend,
				"status":  "unavailable",
				"error":   err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"history": gin.H{
			"backend": h.backend,
			"status":  "ok",
		},
	})
}
