package http

import (
	"gorm.io/gorm"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/repository"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

// repositories holds all repository instances used by the application.
// planRepo is replaced by the Redis read-through cache once Redis is wired.
type repositories struct {
	planRepo         billing.PlanRepository
	subscriptionRepo billing.SubscriptionRepository
	paymentRepo      billing.PaymentRepository
	usageRepo        billing.UsageRepository
	webhookEventRepo billing.WebhookEventRepository
}

// newRepositories creates all repository instances from the database connection.
func newRepositories(db *gorm.DB, log logger.Interface) *repositories {
	return &repositories{
		planRepo:         repository.NewPlanRepository(db, log),
		subscriptionRepo: repository.NewSubscriptionRepository(db, log),
		paymentRepo:      repository.NewPaymentRepository(db, log),
		usageRepo:        repository.NewUsageRepository(db, log),
		webhookEventRepo: repository.NewWebhookEventRepository(db, log),
	}
}
