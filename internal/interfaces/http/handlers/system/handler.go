// Package system provides liveness and build information endpoints.
package system

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autotraderhub/autotrader/internal/shared/logger"
	"github.com/autotraderhub/autotrader/internal/shared/version"
)

const pingTimeout = 2 * time.Second

// Pinger is a dependency probed by the health check.
type Pinger func(ctx context.Context) error

// Handler serves /health and /version.
type Handler struct {
	checks map[string]Pinger
	logger logger.Interface
}

// NewHandler creates a system handler. checks maps dependency names to probes.
func NewHandler(checks map[string]Pinger, log logger.Interface) *Handler {
	return &Handler{checks: checks, logger: log}
}

// HealthCheck handles GET /health
//
//	@Summary	Service health
//	@Tags		system
//	@Produce	json
//	@Success	200
//	@Failure	503
//	@Router		/health [get]
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			h.logger.Warnw("health check failed", "dependency", name, "error", err)
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":       state,
		"service":      "autotrader",
		"dependencies": deps,
	})
}

// Version handles GET /version to return the current application version
func (h *Handler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}
