package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AnshSingh-2024/COMMIT.ENV/config"
)

// SetupRouter creates and configures the Gin router. /metrics is served only
// when gatherer is non-nil.
func SetupRouter(cfg *config.Config, handler *Handler, log *slog.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/items/resolve", handler.ResolveItem)
		v1.POST("/shopping", handler.Shopping)
	}

	// Path used by the existing frontend
	router.POST("/shopping", handler.Shopping)

	return router
}
