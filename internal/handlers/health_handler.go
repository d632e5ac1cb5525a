package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Checker reports whether a dependency is usable
type Checker func(ctx context.Context) error

// HealthHandler handles health check requests
type HealthHandler struct {
	loaded  func() bool
	checks  map[string]Checker
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler. loaded reports whether the
// working set has been fetched at least once.
func NewHealthHandler(loaded func() bool, checks map[string]Checker, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		loaded:  loaded,
		checks:  checks,
		version: version,
		logger:  logger.Named("health_handler"),
	}
}

// Health returns basic health status
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "case-dashboard",
		"version": h.version,
	})
}

// Ready returns readiness status including the working set and dependencies
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.loaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"error":  "working set not loaded",
		})
		return
	}

	dependencies := gin.H{}
	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			h.logger.Error("Health check failed", zap.String("dependency", name), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"error":  name + " check failed",
			})
			return
		}
		dependencies[name] = "connected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"dependencies": dependencies,
	})
}

// Live returns liveness status
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
