package router

import (
	"github.com/gin-gonic/gin"

	"attrix/internal/handler"
	"attrix/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	extractionH *handler.ExtractionHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	extractions := v1.Group("/extractions")
	extractions.POST("", extractionH.Submit)
	extractions.GET("/:id", extractionH.GetStatus)

	return r
}
