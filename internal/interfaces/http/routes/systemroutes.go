package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/OliSalles/StoryTeller/internal/interfaces/http/handlers"
)

// SystemRouteConfig holds dependencies for operational endpoints.
type SystemRouteConfig struct {
	HealthHandler  *handlers.HealthHandler
	MetricsHandler gin.HandlerFunc
	EnableSwagger  bool
}

// SetupSystemRoutes configures health probes, /metrics and the swagger UI.
func SetupSystemRoutes(engine *gin.Engine, cfg *SystemRouteConfig) {
	engine.GET("/health", cfg.HealthHandler.Live)
	engine.GET("/ready", cfg.HealthHandler.Ready)

	if cfg.MetricsHandler != nil {
		engine.GET("/metrics", cfg.MetricsHandler)
	}
	if cfg.EnableSwagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}
