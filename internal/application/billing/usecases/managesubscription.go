package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/OliSalles/StoryTeller/internal/application/billing/dto"
	"github.com/OliSalles/StoryTeller/internal/application/billing/gateway"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

type CancelSubscriptionCommand struct {
	UserID    uint
	Immediate bool
}

// CancelSubscriptionUseCase cancels the user's current subscription at the provider,
// either right away or at the end of the paid period, and mirrors it locally. The
// webhook that follows finds the row already in that state.
type CancelSubscriptionUseCase struct {
	gateway          gateway.Gateway
	subscriptionRepo billing.SubscriptionRepository
	logger           logger.Interface
}

func NewCancelSubscriptionUseCase(gw gateway.Gateway, subscriptionRepo billing.SubscriptionRepository, logger logger.Interface) *CancelSubscriptionUseCase {
	return &CancelSubscriptionUseCase{gateway: gw, subscriptionRepo: subscriptionRepo, logger: logger}
}

func (uc *CancelSubscriptionUseCase) Execute(ctx context.Context, cmd CancelSubscriptionCommand) (*dto.SubscriptionDTO, error) {
	sub, err := currentLiveSubscription(ctx, uc.subscriptionRepo, cmd.UserID)
	if err != nil {
		return nil, err
	}

	if ext := sub.ExternalSubscriptionIDValue(); ext != "" {
		if _, err := uc.gateway.CancelSubscription(ctx, ext, cmd.Immediate); err != nil {
			uc.logger.Errorw("provider cancel failed", "subscription_id", sub.ID(), "error", err)
			return nil, err
		}
	}

	if cmd.Immediate {
		sub.Cancel()
	} else if err := sub.ScheduleCancellation(); err != nil {
		return nil, err
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	uc.logger.Infow("subscription cancellation requested",
		"subscription_id", sub.ID(),
		"user_id", cmd.UserID,
		"immediate", cmd.Immediate,
	)
	return dto.ToSubscriptionDTO(sub, nil), nil
}

// ReactivateSubscriptionUseCase undoes a cancellation scheduled for period end.
type ReactivateSubscriptionUseCase struct {
	gateway          gateway.Gateway
	subscriptionRepo billing.SubscriptionRepository
	logger           logger.Interface
}

func NewReactivateSubscriptionUseCase(gw gateway.Gateway, subscriptionRepo billing.SubscriptionRepository, logger logger.Interface) *ReactivateSubscriptionUseCase {
	return &ReactivateSubscriptionUseCase{gateway: gw, subscriptionRepo: subscriptionRepo, logger: logger}
}

func (uc *ReactivateSubscriptionUseCase) Execute(ctx context.Context, userID uint) (*dto.SubscriptionDTO, error) {
	sub, err := currentLiveSubscription(ctx, uc.subscriptionRepo, userID)
	if err != nil {
		return nil, err
	}
	if !sub.CancelAtPeriodEnd() {
		return dto.ToSubscriptionDTO(sub, nil), nil
	}

	if ext := sub.ExternalSubscriptionIDValue(); ext != "" {
		if _, err := uc.gateway.ReactivateSubscription(ctx, ext); err != nil {
			uc.logger.Errorw("provider reactivation failed", "subscription_id", sub.ID(), "error", err)
			return nil, err
		}
	}

	if err := sub.Reactivate(); err != nil {
		return nil, err
	}
	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	uc.logger.Infow("subscription reactivated", "subscription_id", sub.ID(), "user_id", userID)
	return dto.ToSubscriptionDTO(sub, nil), nil
}

func currentLiveSubscription(ctx context.Context, repo billing.SubscriptionRepository, userID uint) (*billing.Subscription, error) {
	sub, err := repo.GetCurrentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return nil, billing.ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}
	if sub.IsCanceled() {
		return nil, billing.ErrNoActiveSubscription
	}
	return sub, nil
}
