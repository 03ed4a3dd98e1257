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

type CreateCheckoutCommand struct {
	UserID       uint
	UserEmail    string
	PlanID       uint
	BillingCycle vo.BillingCycle
}

type CreateCheckoutUseCase struct {
	gateway  gateway.Gateway
	planRepo billing.PlanRepository
	logger   logger.Interface
}

func NewCreateCheckoutUseCase(gw gateway.Gateway, planRepo billing.PlanRepository, logger logger.Interface) *CreateCheckoutUseCase {
	return &CreateCheckoutUseCase{gateway: gw, planRepo: planRepo, logger: logger}
}

func (uc *CreateCheckoutUseCase) Execute(ctx context.Context, cmd CreateCheckoutCommand) (*dto.CheckoutSessionDTO, error) {
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
	if !plan.IsActive() {
		return nil, apperrors.NewValidationError("plan is not available")
	}
	if !plan.IsPaid() {
		return nil, apperrors.NewValidationError("plan does not require checkout")
	}

	priceID, err := plan.PriceIDFor(cmd.BillingCycle)
	if err != nil {
		uc.logger.Errorw("plan has no provider price", "plan", plan.Name(), "billing_cycle", cmd.BillingCycle)
		return nil, err
	}

	session, err := uc.gateway.CreateCheckoutSession(ctx, gateway.CheckoutRequest{
		UserID:       cmd.UserID,
		UserEmail:    cmd.UserEmail,
		PlanID:       plan.ID(),
		BillingCycle: cmd.BillingCycle,
		PriceID:      priceID,
		TrialDays:    plan.TrialDays(),
	})
	if err != nil {
		uc.logger.Errorw("failed to create checkout session", "user_id", cmd.UserID, "plan", plan.Name(), "error", err)
		return nil, err
	}

	uc.logger.Infow("checkout session created",
		"user_id", cmd.UserID,
		"plan", plan.Name(),
		"billing_cycle", cmd.BillingCycle,
		"session_id", session.ID,
	)
	return &dto.CheckoutSessionDTO{URL: session.URL, SessionID: session.ID}, nil
}

type CreatePortalUseCase struct {
	gateway          gateway.Gateway
	subscriptionRepo billing.SubscriptionRepository
	logger           logger.Interface
}

func NewCreatePortalUseCase(gw gateway.Gateway, subscriptionRepo billing.SubscriptionRepository, logger logger.Interface) *CreatePortalUseCase {
	return &CreatePortalUseCase{gateway: gw, subscriptionRepo: subscriptionRepo, logger: logger}
}

func (uc *CreatePortalUseCase) Execute(ctx context.Context, userID uint) (*dto.PortalSessionDTO, error) {
	sub, err := uc.subscriptionRepo.GetCurrentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return nil, apperrors.NewNotFoundError("no billing account for this user")
		}
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}
	customerID := sub.ExternalCustomerIDValue()
	if customerID == "" {
		return nil, apperrors.NewNotFoundError("no billing account for this user")
	}

	portal, err := uc.gateway.CreatePortalSession(ctx, customerID)
	if err != nil {
		uc.logger.Errorw("failed to create portal session", "user_id", userID, "error", err)
		return nil, err
	}
	return &dto.PortalSessionDTO{URL: portal.URL}, nil
}
