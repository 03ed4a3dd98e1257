package http

import (
	"context"

	"github.com/OliSalles/StoryTeller/internal/interfaces/http/handlers"
	"github.com/OliSalles/StoryTeller/internal/interfaces/http/middleware"
)

// allHandlers holds all HTTP handler instances used by the application.
type allHandlers struct {
	subscriptionHandler *handlers.SubscriptionHandler
	usageHandler        *handlers.UsageHandler
	planHandler         *handlers.PlanHandler
	webhookHandler      *handlers.WebhookHandler
	adminBillingHandler *handlers.AdminBillingHandler
	healthHandler       *handlers.HealthHandler
}

func (c *Container) initHandlers() {
	log := c.log
	ucs := c.ucs

	c.tokenQuotaMiddleware = middleware.NewTokenQuotaMiddleware(ucs.quotaService, log)

	c.hdlrs = &allHandlers{
		subscriptionHandler: handlers.NewSubscriptionHandler(
			ucs.getCurrentSubscriptionUC,
			ucs.quotaService,
			ucs.createCheckoutUC,
			ucs.createPortalUC,
			ucs.syncCheckoutUC,
			ucs.cancelSubscriptionUC,
			ucs.reactivateSubscriptionUC,
			ucs.listPaymentsUC,
			log,
		),
		usageHandler: handlers.NewUsageHandler(
			ucs.quotaService,
			ucs.usageHistoryUC,
			ucs.usageStatsUC,
			ucs.recordUsageUC,
			log,
		),
		planHandler:         handlers.NewPlanHandler(ucs.planCatalog, log),
		webhookHandler:      handlers.NewWebhookHandler(ucs.handleWebhookUC, log.Named("webhook")),
		adminBillingHandler: handlers.NewAdminBillingHandler(ucs.createManualSubUC, ucs.reconcileUsageCountersUC, log),
		healthHandler: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"database": handlers.PingerFunc(c.pingDatabase),
			"redis":    handlers.PingerFunc(c.pingRedis),
		}),
	}
}

func (c *Container) pingDatabase(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Container) pingRedis(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}
