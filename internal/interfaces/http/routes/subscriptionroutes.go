// Package routes provides HTTP route configurations.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/interfaces/http/handlers"
	"github.com/OliSalles/StoryTeller/internal/interfaces/http/middleware"
)

// SubscriptionRouteConfig holds dependencies for the user-facing billing routes.
type SubscriptionRouteConfig struct {
	SubscriptionHandler *handlers.SubscriptionHandler
	AuthMiddleware      *middleware.AuthMiddleware
	SyncRateLimiter     *middleware.RateLimiter
}

// SetupSubscriptionRoutes configures /subscriptions and /payments.
func SetupSubscriptionRoutes(api *gin.RouterGroup, cfg *SubscriptionRouteConfig) {
	subscriptions := api.Group("/subscriptions")
	subscriptions.Use(cfg.AuthMiddleware.RequireAuth())
	{
		subscriptions.GET("/current", cfg.SubscriptionHandler.GetCurrent)
		subscriptions.GET("/status", cfg.SubscriptionHandler.GetStatus)
		subscriptions.POST("/checkout", cfg.SubscriptionHandler.CreateCheckout)
		subscriptions.POST("/portal", cfg.SubscriptionHandler.CreatePortal)
		subscriptions.POST("/sync", cfg.SyncRateLimiter.Limit(), cfg.SubscriptionHandler.SyncCheckout)
		subscriptions.POST("/cancel", cfg.SubscriptionHandler.Cancel)
		subscriptions.POST("/reactivate", cfg.SubscriptionHandler.Reactivate)
	}

	api.GET("/payments", cfg.AuthMiddleware.RequireAuth(), cfg.SubscriptionHandler.ListPayments)
}
