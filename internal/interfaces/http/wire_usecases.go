package http

import (
	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/cache"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/email"
	shareddb "github.com/OliSalles/StoryTeller/internal/shared/db"
)

// allUseCases holds all use case instances used by the application.
type allUseCases struct {
	// Subscription lifecycle
	getCurrentSubscriptionUC *usecases.GetCurrentSubscriptionUseCase
	createCheckoutUC         *usecases.CreateCheckoutUseCase
	createPortalUC           *usecases.CreatePortalUseCase
	syncCheckoutUC           *usecases.SyncFromCheckoutSessionUseCase
	handleWebhookUC          *usecases.HandleWebhookUseCase
	cancelSubscriptionUC     *usecases.CancelSubscriptionUseCase
	reactivateSubscriptionUC *usecases.ReactivateSubscriptionUseCase
	createManualSubUC        *usecases.CreateManualSubscriptionUseCase
	listPaymentsUC           *usecases.ListPaymentsUseCase

	// Plans
	planCatalog *usecases.PlanCatalog

	// Usage and quota
	quotaService             *usecases.QuotaService
	recordUsageUC            *usecases.RecordUsageUseCase
	usageHistoryUC           *usecases.GetUsageHistoryUseCase
	usageStatsUC             *usecases.GetUsageStatsUseCase
	reconcileUsageCountersUC *usecases.ReconcileUsageCountersUseCase
}

func (c *Container) initUseCases() {
	log := c.log
	r := c.repos
	tx := shareddb.NewTransactionManager(c.db)

	ucs := &allUseCases{
		getCurrentSubscriptionUC: usecases.NewGetCurrentSubscriptionUseCase(r.subscriptionRepo, r.planRepo, log),
		createCheckoutUC:         usecases.NewCreateCheckoutUseCase(c.gateway, r.planRepo, log),
		createPortalUC:           usecases.NewCreatePortalUseCase(c.gateway, r.subscriptionRepo, log),
		syncCheckoutUC:           usecases.NewSyncFromCheckoutSessionUseCase(c.gateway, r.subscriptionRepo, r.planRepo, tx, log),
		handleWebhookUC: usecases.NewHandleWebhookUseCase(
			c.gateway, r.subscriptionRepo, r.planRepo, r.paymentRepo, r.webhookEventRepo, tx, log.Named("webhook"),
		),
		cancelSubscriptionUC:     usecases.NewCancelSubscriptionUseCase(c.gateway, r.subscriptionRepo, log),
		reactivateSubscriptionUC: usecases.NewReactivateSubscriptionUseCase(c.gateway, r.subscriptionRepo, log),
		createManualSubUC:        usecases.NewCreateManualSubscriptionUseCase(r.subscriptionRepo, r.planRepo, tx, log),
		listPaymentsUC:           usecases.NewListPaymentsUseCase(r.paymentRepo, log),
		planCatalog:              usecases.NewPlanCatalog(r.planRepo, log),
		recordUsageUC:            usecases.NewRecordUsageUseCase(r.usageRepo, r.subscriptionRepo, log),
		usageHistoryUC:           usecases.NewGetUsageHistoryUseCase(r.usageRepo, log),
		usageStatsUC:             usecases.NewGetUsageStatsUseCase(r.usageRepo, log),
		reconcileUsageCountersUC: usecases.NewReconcileUsageCountersUseCase(r.subscriptionRepo, r.usageRepo, log),
	}

	resolver := usecases.NewPlanResolver(r.subscriptionRepo, r.planRepo, c.cfg.Billing.FreeTokensLimit)
	ucs.quotaService = usecases.NewQuotaService(resolver, r.usageRepo, log)

	ucs.handleWebhookUC.SetMetrics(c.metrics)
	ucs.syncCheckoutUC.SetMetrics(c.metrics)
	ucs.createManualSubUC.SetMetrics(c.metrics)
	ucs.quotaService.SetMetrics(c.metrics)

	if c.cfg.Email.Enabled {
		notifier := email.NewSMTPBillingNotifier(email.SMTPConfigFrom(c.cfg.Email, c.cfg.Server.BaseURL), log.Named("email"))
		ucs.handleWebhookUC.SetNotifier(cache.NewDedupingNotifier(notifier, c.redis, cache.DefaultNoticeCooldown, log.Named("notice_dedup")))
	} else {
		log.Infow("billing emails disabled")
	}

	c.ucs = ucs
}
