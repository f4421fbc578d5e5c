package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/musicability-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/musicability-api/internal/api/middleware"
	"github.com/Conceptual-Machines/musicability-api/internal/config"
	"github.com/Conceptual-Machines/musicability-api/internal/metrics"
	"github.com/Conceptual-Machines/musicability-api/internal/services"
)

func SetupRouter(cfg *config.Config, svc *services.MelodyService, cloudwatch *metrics.Client, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(cloudwatch))

	// CORS middleware
	router.Use(apimiddleware.CORS(cfg.CORSAllowedOrigins))

	// Health check
	healthHandler := handlers.NewHealthHandler(svc, cfg.HistoryBackend())
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	metricsHandler := handlers.NewMetricsHandler(version, cfg.MaxNotes, svc)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	// API routes v1, guarded according to AUTH_MODE
	v1 := router.Group("/api/v1")
	v1.Use(apimiddleware.Auth(cfg))
	{
		v1.GET("/schema", handlers.GetSchema)

		melodyHandler := handlers.NewMelodyHandler(svc, cfg.MaxNotes)
		melodies := v1.Group("/melodies")
		melodies.POST("/midi", melodyHandler.RenderMIDI)
		melodies.POST("/preview", melodyHandler.RenderPreview)
		melodies.POST("/normalize", melodyHandler.Normalize)
		melodies.POST("", melodyHandler.Save)
		melodies.GET("", melodyHandler.List)
		melodies.GET("/:id", melodyHandler.Get)
		melodies.GET("/:id/midi", melodyHandler.DownloadMIDI)
		melodies.GET("/:id/preview", melodyHandler.PreviewSaved)
	}

	return router
}
