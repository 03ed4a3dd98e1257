package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OliSalles/StoryTeller/internal/application/billing/gateway"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	"github.com/OliSalles/StoryTeller/internal/shared/biztime"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

// subscriptionMaterializer turns a provider subscription into the local row. Both the
// webhook and the fallback sync go through it so they produce identical state.
type subscriptionMaterializer struct {
	subscriptionRepo billing.SubscriptionRepository
	planRepo         billing.PlanRepository
	tx               Transactor
	metrics          BillingMetrics
	logger           logger.Interface
}

type materializeResult struct {
	Subscription *billing.Subscription
	Plan         *billing.Plan
	Created      bool
}

// materialize returns the row for snap.ID, creating it when absent. The user's other
// subscriptions are canceled in the same transaction. A unique-constraint race on the
// external id resolves to the row that won.
func (m *subscriptionMaterializer) materialize(
	ctx context.Context,
	path string,
	md gateway.CheckoutMetadata,
	snap *gateway.SubscriptionSnapshot,
	customerID string,
) (*materializeResult, error) {
	existing, err := m.subscriptionRepo.GetByExternalID(ctx, snap.ID)
	if err == nil {
		m.metrics.SubscriptionMaterialized(path, OutcomeExisting)
		return &materializeResult{Subscription: existing}, nil
	}
	if !errors.Is(err, billing.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("failed to look up subscription %s: %w", snap.ID, err)
	}

	plan, err := m.planRepo.GetByID(ctx, md.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan %d: %w", md.PlanID, err)
	}

	if customerID == "" {
		customerID = snap.CustomerID
	}
	start, end := periodBounds(snap, md.BillingCycle)
	sub, err := billing.NewSubscription(billing.SubscriptionParams{
		UserID:                 md.UserID,
		PlanID:                 plan.ID(),
		Status:                 vo.InitialStatusFromProvider(snap.Status),
		BillingCycle:           md.BillingCycle,
		CurrentPeriodStart:     start,
		CurrentPeriodEnd:       end,
		ExternalSubscriptionID: snap.ID,
		ExternalCustomerID:     customerID,
	})
	if err != nil {
		return nil, err
	}
	if snap.CancelAtPeriodEnd {
		if err := sub.ScheduleCancellation(); err != nil {
			return nil, err
		}
	}

	err = m.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		canceled, err := m.subscriptionRepo.CancelOthersForUser(ctx, md.UserID, 0)
		if err != nil {
			return err
		}
		if canceled > 0 {
			m.logger.Infow("previous subscriptions canceled", "user_id", md.UserID, "count", canceled)
		}
		return m.subscriptionRepo.Create(ctx, sub)
	})
	if err != nil {
		if billing.IsDuplicateSubscription(err) {
			winner, lookupErr := m.subscriptionRepo.GetByExternalID(ctx, snap.ID)
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to load concurrently created subscription %s: %w", snap.ID, lookupErr)
			}
			m.metrics.SubscriptionMaterialized(path, OutcomeDuplicate)
			m.logger.Infow("subscription already created concurrently",
				"external_subscription_id", snap.ID,
				"subscription_id", winner.ID(),
				"path", path,
			)
			return &materializeResult{Subscription: winner, Plan: plan}, nil
		}
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	m.metrics.SubscriptionMaterialized(path, OutcomeCreated)
	m.logger.Infow("subscription created",
		"subscription_id", sub.ID(),
		"user_id", sub.UserID(),
		"plan", plan.Name(),
		"status", sub.Status(),
		"external_subscription_id", snap.ID,
		"path", path,
	)
	return &materializeResult{Subscription: sub, Plan: plan, Created: true}, nil
}

// periodBounds uses the provider's period, or one billing cycle from now when the
// provider did not report one.
func periodBounds(snap *gateway.SubscriptionSnapshot, cycle vo.BillingCycle) (time.Time, time.Time) {
	if !snap.CurrentPeriodStart.IsZero() && !snap.CurrentPeriodEnd.IsZero() && !snap.CurrentPeriodEnd.Before(snap.CurrentPeriodStart) {
		return snap.CurrentPeriodStart, snap.CurrentPeriodEnd
	}
	start := biztime.NowUTC()
	if cycle == vo.BillingCycleYearly {
		return start, start.AddDate(1, 0, 0)
	}
	return start, start.AddDate(0, 1, 0)
}
