package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerHealth reports whether the event broker connection is usable.
type BrokerHealth interface {
	IsHealthy() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store  Pinger
	broker BrokerHealth
}

// NewHealthHandler creates a new HealthHandler instance. broker may be nil
// when event publishing is disabled.
func NewHealthHandler(store Pinger, broker BrokerHealth) *HealthHandler {
	return &HealthHandler{
		store:  store,
		broker: broker,
	}
}

// LivenessProbe checks if the application is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now().UTC(),
	})
}

// ReadinessProbe checks if the application is ready to serve traffic.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "DOWN",
			"database": "unhealthy",
			"error":    err.Error(),
			"time":     time.Now().UTC(),
		})
		return
	}

	resp := gin.H{
		"status":   "UP",
		"database": "healthy",
		"time":     time.Now().UTC(),
	}
	if h.broker != nil {
		if !h.broker.IsHealthy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "DOWN",
				"rabbitmq": "unhealthy",
				"time":     time.Now().UTC(),
			})
			return
		}
		resp["rabbitmq"] = "healthy"
	}

	c.JSON(http.StatusOK, resp)
}
