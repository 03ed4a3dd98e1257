package usecases

import (
	"context"
	"fmt"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

type ReconcileUsageCountersResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// ReconcileUsageCountersUseCase rewrites every live subscription's advisory counter
// from the ledger, repairing increments lost to concurrent writes or failures.
type ReconcileUsageCountersUseCase struct {
	subscriptionRepo billing.SubscriptionRepository
	usageRepo        billing.UsageRepository
	logger           logger.Interface
}

func NewReconcileUsageCountersUseCase(
	subscriptionRepo billing.SubscriptionRepository,
	usageRepo billing.UsageRepository,
	logger logger.Interface,
) *ReconcileUsageCountersUseCase {
	return &ReconcileUsageCountersUseCase{
		subscriptionRepo: subscriptionRepo,
		usageRepo:        usageRepo,
		logger:           logger,
	}
}

func (uc *ReconcileUsageCountersUseCase) Execute(ctx context.Context) (*ReconcileUsageCountersResult, error) {
	subs, err := uc.subscriptionRepo.ListUsable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	result := &ReconcileUsageCountersResult{}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		used, err := uc.usageRepo.SumTokensSince(ctx, sub.UserID(), sub.CurrentPeriodStart())
		if err != nil {
			result.Failed++
			uc.logger.Warnw("failed to sum ledger for subscription", "subscription_id", sub.ID(), "error", err)
			continue
		}
		if used == sub.TokensUsedThisPeriod() {
			continue
		}

		if err := uc.subscriptionRepo.SetTokenCounter(ctx, sub.ID(), used); err != nil {
			result.Failed++
			uc.logger.Warnw("failed to rewrite usage counter", "subscription_id", sub.ID(), "error", err)
			continue
		}
		result.Updated++
	}

	uc.logger.Infow("usage counters reconciled",
		"checked", result.Checked,
		"updated", result.Updated,
		"failed", result.Failed,
	)
	return result, nil
}
