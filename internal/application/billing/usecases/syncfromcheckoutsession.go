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

type SyncFromCheckoutSessionCommand struct {
	UserID    uint
	SessionID string
}

// SyncFromCheckoutSessionUseCase materialises a subscription from a checkout session
// when the webhook has not arrived yet. It is safe to call repeatedly and concurrently
// with webhook processing: whichever path inserts first wins and the other returns
// the same row.
type SyncFromCheckoutSessionUseCase struct {
	gateway      gateway.Gateway
	materializer *subscriptionMaterializer
	logger       logger.Interface
}

func NewSyncFromCheckoutSessionUseCase(
	gw gateway.Gateway,
	subscriptionRepo billing.SubscriptionRepository,
	planRepo billing.PlanRepository,
	tx Transactor,
	logger logger.Interface,
) *SyncFromCheckoutSessionUseCase {
	if tx == nil {
		tx = noTransaction{}
	}
	return &SyncFromCheckoutSessionUseCase{
		gateway: gw,
		materializer: &subscriptionMaterializer{
			subscriptionRepo: subscriptionRepo,
			planRepo:         planRepo,
			tx:               tx,
			metrics:          nopMetrics{},
			logger:           logger,
		},
		logger: logger,
	}
}

func (uc *SyncFromCheckoutSessionUseCase) SetMetrics(m BillingMetrics) {
	uc.materializer.metrics = m
}

func (uc *SyncFromCheckoutSessionUseCase) Execute(ctx context.Context, cmd SyncFromCheckoutSessionCommand) (*dto.SyncResultDTO, error) {
	if cmd.SessionID == "" {
		return nil, apperrors.NewValidationError("session id is required")
	}
	log := uc.logger.With("session_id", cmd.SessionID, "user_id", cmd.UserID)

	session, err := uc.gateway.RetrieveCheckoutSession(ctx, cmd.SessionID)
	if err != nil {
		log.Warnw("failed to retrieve checkout session", "error", err)
		return nil, err
	}
	if !session.IsPaid() && !session.RequiresNoPayment() {
		return nil, fmt.Errorf("%w: payment status is %q", billing.ErrPaymentNotSettled, session.PaymentStatus)
	}
	if session.SubscriptionID == "" {
		return nil, billing.ErrNoSubscriptionOnSession
	}

	snap, err := uc.gateway.RetrieveSubscription(ctx, session.SubscriptionID)
	if err != nil {
		log.Warnw("failed to retrieve subscription", "external_subscription_id", session.SubscriptionID, "error", err)
		return nil, err
	}
	// A checkout without an up-front charge only counts as settled once it started a trial.
	if session.RequiresNoPayment() && vo.StatusFromProvider(snap.Status) != vo.StatusTrialing {
		return nil, fmt.Errorf("%w: payment status is %q with subscription status %q",
			billing.ErrPaymentNotSettled, session.PaymentStatus, snap.Status)
	}

	md, err := gateway.ParseCheckoutMetadata(session.ID, session.Metadata, cmd.UserID)
	if err != nil {
		log.Warnw("checkout session metadata unusable", "error", err)
		return nil, err
	}
	if cmd.UserID != 0 && md.UserID != cmd.UserID {
		log.Warnw("checkout session belongs to another user", "session_user_id", md.UserID)
		return nil, apperrors.NewForbiddenError("checkout session does not belong to the current user")
	}

	res, err := uc.materializer.materialize(ctx, PathSync, md, snap, session.CustomerID)
	if err != nil {
		if errors.Is(err, billing.ErrPlanNotFound) {
			return nil, apperrors.NewNotFoundError("plan referenced by checkout session not found")
		}
		log.Errorw("failed to materialize subscription", "error", err)
		return nil, err
	}

	return &dto.SyncResultDTO{
		Success:        true,
		SubscriptionID: res.Subscription.ID(),
		AlreadyExisted: !res.Created,
	}, nil
}
