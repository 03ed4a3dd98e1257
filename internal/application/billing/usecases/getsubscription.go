package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/OliSalles/StoryTeller/internal/application/billing/dto"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

type GetCurrentSubscriptionUseCase struct {
	subscriptionRepo billing.SubscriptionRepository
	planRepo         billing.PlanRepository
	logger           logger.Interface
}

func NewGetCurrentSubscriptionUseCase(
	subscriptionRepo billing.SubscriptionRepository,
	planRepo billing.PlanRepository,
	logger logger.Interface,
) *GetCurrentSubscriptionUseCase {
	return &GetCurrentSubscriptionUseCase{subscriptionRepo: subscriptionRepo, planRepo: planRepo, logger: logger}
}

// Execute returns the user's most recent subscription with its plan, or nil when the
// user never subscribed. The checkout success page polls it.
func (uc *GetCurrentSubscriptionUseCase) Execute(ctx context.Context, userID uint) (*dto.SubscriptionDTO, error) {
	sub, err := uc.subscriptionRepo.GetCurrentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return nil, nil
		}
		uc.logger.Errorw("failed to get current subscription", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}

	plan, err := uc.planRepo.GetByID(ctx, sub.PlanID())
	if err != nil && !errors.Is(err, billing.ErrPlanNotFound) {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return dto.ToSubscriptionDTO(sub, plan), nil
}

type ListPaymentsUseCase struct {
	paymentRepo billing.PaymentRepository
	logger      logger.Interface
}

func NewListPaymentsUseCase(paymentRepo billing.PaymentRepository, logger logger.Interface) *ListPaymentsUseCase {
	return &ListPaymentsUseCase{paymentRepo: paymentRepo, logger: logger}
}

func (uc *ListPaymentsUseCase) Execute(ctx context.Context, userID uint, page, pageSize int) ([]*dto.PaymentDTO, int64, error) {
	payments, total, err := uc.paymentRepo.ListByUserID(ctx, userID, page, pageSize)
	if err != nil {
		uc.logger.Errorw("failed to list payments", "user_id", userID, "error", err)
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	return dto.ToPaymentDTOs(payments), total, nil
}
