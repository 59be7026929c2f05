package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(RequestID())
	router.Use(CORS())
	router.Use(Logger(logger.With("component", "http")))

	// Health check
	router.GET("/health", handler.HealthCheck)

	// Account analysis
	router.GET("/analyze", handler.Analyze)
	router.GET("/analyze/:username", handler.Analyze)

	// Snapshot history
	router.GET("/history", handler.History)
	router.GET("/history/latest", handler.LatestSnapshot)

	// Cache maintenance
	router.DELETE("/cache", handler.ClearCache)
	router.DELETE("/cache/:username", handler.InvalidateCache)

	return router
}
