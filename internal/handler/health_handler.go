package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"attrix/internal/cache"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	results *cache.ResultCache
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(results *cache.ResultCache) *HealthHandler {
	return &HealthHandler{results: results}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz. The durable cache tier is reported but does
// not gate readiness; the pipeline runs degraded without it.
func (h *HealthHandler) Readiness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"durable_cache": h.results.DurableAvailable(),
	})
}
