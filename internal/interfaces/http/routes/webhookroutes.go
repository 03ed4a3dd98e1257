package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/interfaces/http/handlers"
)

// WebhookRouteConfig holds dependencies for provider callbacks.
type WebhookRouteConfig struct {
	WebhookHandler *handlers.WebhookHandler
}

// SetupWebhookRoutes configures /webhooks. These routes authenticate by signature, not by user.
func SetupWebhookRoutes(engine *gin.Engine, cfg *WebhookRouteConfig) {
	webhooks := engine.Group("/webhooks")
	{
		webhooks.POST("/stripe", cfg.WebhookHandler.HandleStripe)
	}
}
