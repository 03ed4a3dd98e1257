package http

import (
	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/interfaces/http/middleware"
	"github.com/OliSalles/StoryTeller/internal/interfaces/http/routes"

	_ "github.com/OliSalles/StoryTeller/docs"
)

// SetupRoutes configures all HTTP routes
func (c *Container) SetupRoutes() {
	cfg := c.cfg

	c.engine.Use(middleware.RequestID())
	c.engine.Use(middleware.Logger(c.log.Named("http")))
	c.engine.Use(middleware.Recovery(c.log))
	c.engine.Use(middleware.SecurityHeaders())
	c.engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	c.engine.Use(c.metrics.Middleware())

	routes.SetupSystemRoutes(c.engine, &routes.SystemRouteConfig{
		HealthHandler:  c.hdlrs.healthHandler,
		MetricsHandler: c.metrics.Handler(),
		EnableSwagger:  cfg.Server.Mode != gin.ReleaseMode,
	})

	routes.SetupWebhookRoutes(c.engine, &routes.WebhookRouteConfig{
		WebhookHandler: c.hdlrs.webhookHandler,
	})

	api := c.engine.Group("/api")
	routes.SetupPlanRoutes(api, &routes.PlanRouteConfig{
		PlanHandler: c.hdlrs.planHandler,
	})
	routes.SetupSubscriptionRoutes(api, &routes.SubscriptionRouteConfig{
		SubscriptionHandler: c.hdlrs.subscriptionHandler,
		AuthMiddleware:      c.authMiddleware,
		SyncRateLimiter:     c.syncRateLimiter,
	})
	routes.SetupUsageRoutes(api, &routes.UsageRouteConfig{
		UsageHandler:         c.hdlrs.usageHandler,
		AuthMiddleware:       c.authMiddleware,
		TokenQuotaMiddleware: c.tokenQuotaMiddleware,
	})
	routes.SetupAdminRoutes(api, &routes.AdminRouteConfig{
		AdminBillingHandler:  c.hdlrs.adminBillingHandler,
		AuthMiddleware:       c.authMiddleware,
		PermissionMiddleware: c.permissionMiddleware,
	})
}

// Engine returns the Gin engine
func (c *Container) Engine() *gin.Engine {
	return c.engine
}

// StartScheduler starts the background jobs registered on the container.
func (c *Container) StartScheduler() {
	if c.schedulerManager != nil {
		c.schedulerManager.Start()
	}
}

// Shutdown gracefully stops background work and closes connections owned by the container.
func (c *Container) Shutdown() {
	if c.schedulerManager != nil {
		if err := c.schedulerManager.Stop(); err != nil {
			c.log.Warnw("failed to stop scheduler", "error", err)
		}
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warnw("failed to close redis client", "error", err)
		}
	}
}
