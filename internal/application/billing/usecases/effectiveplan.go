package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	"github.com/OliSalles/StoryTeller/internal/shared/biztime"
)

// EffectivePlan is the plan that currently governs a user's entitlements.
type EffectivePlan struct {
	Plan *billing.Plan
	// Subscription is nil when the user is on the implicit Free plan.
	Subscription *billing.Subscription
	PeriodStart  time.Time
}

func (e *EffectivePlan) IsImplicitFree() bool {
	return e.Subscription == nil
}

// PlanResolver is the only place that decides which plan applies to a user.
type PlanResolver struct {
	subscriptionRepo billing.SubscriptionRepository
	planRepo         billing.PlanRepository
	freeTokensLimit  int64
	now              func() time.Time
}

func NewPlanResolver(
	subscriptionRepo billing.SubscriptionRepository,
	planRepo billing.PlanRepository,
	freeTokensLimit int64,
) *PlanResolver {
	return &PlanResolver{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		freeTokensLimit:  freeTokensLimit,
		now:              biztime.NowUTC,
	}
}

// ResolveEffectivePlan returns the plan of the user's current subscription. A user
// without one, or whose current subscription no longer grants a plan, is on the
// implicit Free plan metered per calendar month in the business timezone.
func (r *PlanResolver) ResolveEffectivePlan(ctx context.Context, userID uint) (*EffectivePlan, error) {
	sub, err := r.subscriptionRepo.GetCurrentByUserID(ctx, userID)
	if err != nil && !errors.Is(err, billing.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}

	if sub == nil || !grantsPlan(sub.Status()) {
		return &EffectivePlan{
			Plan:        billing.NewImplicitFreePlan(r.freeTokensLimit),
			PeriodStart: biztime.StartOfMonthUTC(r.now()),
		}, nil
	}

	plan, err := r.planRepo.GetByID(ctx, sub.PlanID())
	if err != nil {
		return nil, fmt.Errorf("failed to get plan %d of subscription %d: %w", sub.PlanID(), sub.ID(), err)
	}

	return &EffectivePlan{
		Plan:         plan,
		Subscription: sub,
		PeriodStart:  sub.CurrentPeriodStart(),
	}, nil
}

// grantsPlan keeps past_due subscriptions on their plan while the provider retries
// the charge; canceled and incomplete ones fall back to Free.
func grantsPlan(status vo.SubscriptionStatus) bool {
	return status.CanUseService() || status == vo.StatusPastDue
}
