package handlers

import (
	"context"

	"github.com/OliSalles/StoryTeller/internal/application/billing/dto"
	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
)

// Use case interfaces for SubscriptionHandler

type getCurrentSubscriptionUseCase interface {
	Execute(ctx context.Context, userID uint) (*dto.SubscriptionDTO, error)
}

type subscriptionInfoProvider interface {
	GetSubscriptionInfo(ctx context.Context, userID uint) (*dto.SubscriptionInfoDTO, error)
}

type createCheckoutUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreateCheckoutCommand) (*dto.CheckoutSessionDTO, error)
}

type createPortalUseCase interface {
	Execute(ctx context.Context, userID uint) (*dto.PortalSessionDTO, error)
}

type syncCheckoutSessionUseCase interface {
	Execute(ctx context.Context, cmd usecases.SyncFromCheckoutSessionCommand) (*dto.SyncResultDTO, error)
}

type cancelSubscriptionUseCase interface {
	Execute(ctx context.Context, cmd usecases.CancelSubscriptionCommand) (*dto.SubscriptionDTO, error)
}

type reactivateSubscriptionUseCase interface {
	Execute(ctx context.Context, userID uint) (*dto.SubscriptionDTO, error)
}

type listPaymentsUseCase interface {
	Execute(ctx context.Context, userID uint, page, pageSize int) ([]*dto.PaymentDTO, int64, error)
}
