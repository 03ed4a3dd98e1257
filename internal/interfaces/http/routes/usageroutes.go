package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/interfaces/http/handlers"
	"github.com/OliSalles/StoryTeller/internal/interfaces/http/middleware"
)

// UsageRouteConfig holds dependencies for usage routes.
type UsageRouteConfig struct {
	UsageHandler         *handlers.UsageHandler
	AuthMiddleware       *middleware.AuthMiddleware
	TokenQuotaMiddleware *middleware.TokenQuotaMiddleware
}

// SetupUsageRoutes configures /usage. Admission is gated by the token quota guard.
// Recording is not: it reports tokens that were already spent.
func SetupUsageRoutes(api *gin.RouterGroup, cfg *UsageRouteConfig) {
	usage := api.Group("/usage")
	usage.Use(cfg.AuthMiddleware.RequireAuth())
	{
		usage.GET("", cfg.UsageHandler.GetUsage)
		usage.GET("/history", cfg.UsageHandler.GetHistory)
		usage.GET("/stats", cfg.UsageHandler.GetStats)
		usage.POST("/check", cfg.UsageHandler.CheckQuota)
		usage.POST("/admit",
			cfg.TokenQuotaMiddleware.RequireTokenQuota(middleware.HeaderTokenEstimator),
			cfg.UsageHandler.Admit,
		)
		usage.POST("/record", cfg.UsageHandler.RecordUsage)
	}
}
