package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/OliSalles/StoryTeller/internal/application/billing/dto"
	"github.com/OliSalles/StoryTeller/internal/application/billing/gateway"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	apperrors "github.com/OliSalles/StoryTeller/internal/shared/errors"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

type CreateManualSubscriptionCommand struct {
	UserID       uint
	PlanID       uint
	BillingCycle vo.BillingCycle
	Trialing     bool
}

// CreateManualSubscriptionUseCase lets an admin grant a plan without going through
// the provider. The row has no external ids.
type CreateManualSubscriptionUseCase struct {
	subscriptionRepo billing.SubscriptionRepository
	planRepo         billing.PlanRepository
	tx               Transactor
	metrics          BillingMetrics
	logger           logger.Interface
}

func NewCreateManualSubscriptionUseCase(
	subscriptionRepo billing.SubscriptionRepository,
	planRepo billing.PlanRepository,
	tx Transactor,
	logger logger.Interface,
) *CreateManualSubscriptionUseCase {
	if tx == nil {
		tx = noTransaction{}
	}
	return &CreateManualSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		tx:               tx,
		metrics:          nopMetrics{},
		logger:           logger,
	}
}

func (uc *CreateManualSubscriptionUseCase) SetMetrics(m BillingMetrics) {
	uc.metrics = m
}

func (uc *CreateManualSubscriptionUseCase) Execute(ctx context.Context, cmd CreateManualSubscriptionCommand) (*dto.SubscriptionDTO, error) {
	if !cmd.BillingCycle.IsValid() {
		return nil, apperrors.NewValidationError("invalid billing cycle", cmd.BillingCycle.String())
	}
	plan, err := uc.planRepo.GetByID(ctx, cmd.PlanID)
	if err != nil {
		if errors.Is(err, billing.ErrPlanNotFound) {
			return nil, apperrors.NewNotFoundError("plan not found")
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	status := vo.StatusActive
	if cmd.Trialing {
		status = vo.StatusTrialing
	}
	start, end := periodBounds(&gateway.SubscriptionSnapshot{}, cmd.BillingCycle)
	sub, err := billing.NewSubscription(billing.SubscriptionParams{
		UserID:             cmd.UserID,
		PlanID:             plan.ID(),
		Status:             status,
		BillingCycle:       cmd.BillingCycle,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
	})
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	err = uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := uc.subscriptionRepo.CancelOthersForUser(ctx, cmd.UserID, 0); err != nil {
			return err
		}
		return uc.subscriptionRepo.Create(ctx, sub)
	})
	if err != nil {
		uc.logger.Errorw("failed to create manual subscription", "user_id", cmd.UserID, "error", err)
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	uc.metrics.SubscriptionMaterialized(PathManual, OutcomeCreated)
	uc.logger.Infow("manual subscription created",
		"subscription_id", sub.ID(),
		"user_id", cmd.UserID,
		"plan", plan.Name(),
	)
	return dto.ToSubscriptionDTO(sub, plan), nil
}
