package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/infrastructure/permission"
	"github.com/OliSalles/StoryTeller/internal/interfaces/http/handlers"
	"github.com/OliSalles/StoryTeller/internal/interfaces/http/middleware"
)

// AdminRouteConfig holds dependencies for admin-only routes.
type AdminRouteConfig struct {
	AdminBillingHandler  *handlers.AdminBillingHandler
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
}

// SetupAdminRoutes configures admin-only routes. Each route checks its own casbin policy.
func SetupAdminRoutes(api *gin.RouterGroup, cfg *AdminRouteConfig) {
	admin := api.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAuth())
	{
		admin.POST("/subscriptions",
			cfg.PermissionMiddleware.RequirePermission(permission.ResourceSubscription, permission.ActionCreate),
			cfg.AdminBillingHandler.CreateManualSubscription,
		)
		admin.POST("/usage/reconcile",
			cfg.PermissionMiddleware.RequirePermission(permission.ResourceUsage, permission.ActionReconcile),
			cfg.AdminBillingHandler.ReconcileUsageCounters,
		)
	}
}
