package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	apperrors "github.com/OliSalles/StoryTeller/internal/shared/errors"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

type RecordUsageCommand struct {
	UserID           uint
	FeatureID        *uint
	Operation        string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
}

// RecordUsageUseCase appends a ledger row after a metered call has succeeded.
type RecordUsageUseCase struct {
	usageRepo        billing.UsageRepository
	subscriptionRepo billing.SubscriptionRepository
	logger           logger.Interface
}

func NewRecordUsageUseCase(
	usageRepo billing.UsageRepository,
	subscriptionRepo billing.SubscriptionRepository,
	logger logger.Interface,
) *RecordUsageUseCase {
	return &RecordUsageUseCase{
		usageRepo:        usageRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

// Execute writes the ledger row, then bumps the current subscription's advisory
// counter. A counter failure is logged and never undoes the ledger write.
func (uc *RecordUsageUseCase) Execute(ctx context.Context, cmd RecordUsageCommand) (*billing.UsageEntry, error) {
	entry, err := billing.NewUsageEntry(cmd.UserID, cmd.FeatureID, cmd.Operation, cmd.Model, cmd.PromptTokens, cmd.CompletionTokens)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := uc.usageRepo.Append(ctx, entry); err != nil {
		uc.logger.Errorw("failed to append usage entry", "user_id", cmd.UserID, "error", err)
		return nil, fmt.Errorf("failed to record usage: %w", err)
	}

	uc.incrementCounter(ctx, entry)

	uc.logger.Debugw("usage recorded",
		"user_id", entry.UserID(),
		"operation", entry.Operation(),
		"total_tokens", entry.TotalTokens(),
	)
	return entry, nil
}

func (uc *RecordUsageUseCase) incrementCounter(ctx context.Context, entry *billing.UsageEntry) {
	if entry.TotalTokens() == 0 {
		return
	}

	sub, err := uc.subscriptionRepo.GetCurrentByUserID(ctx, entry.UserID())
	if err != nil {
		if !errors.Is(err, billing.ErrSubscriptionNotFound) {
			uc.logger.Warnw("failed to load subscription for usage counter", "user_id", entry.UserID(), "error", err)
		}
		return
	}
	if sub.IsCanceled() {
		return
	}

	if err := uc.subscriptionRepo.IncrementTokenCounter(ctx, sub.ID(), entry.TotalTokens()); err != nil {
		uc.logger.Warnw("failed to increment usage counter",
			"user_id", entry.UserID(),
			"subscription_id", sub.ID(),
			"error", err,
		)
	}
}
