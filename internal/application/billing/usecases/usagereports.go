package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/OliSalles/StoryTeller/internal/application/billing/dto"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/biztime"
	apperrors "github.com/OliSalles/StoryTeller/internal/shared/errors"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

const (
	DefaultUsageStatsDays = 30
	MaxUsageStatsDays     = 365
)

type GetUsageHistoryQuery struct {
	UserID   uint
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

type GetUsageHistoryUseCase struct {
	usageRepo billing.UsageRepository
	logger    logger.Interface
}

func NewGetUsageHistoryUseCase(usageRepo billing.UsageRepository, logger logger.Interface) *GetUsageHistoryUseCase {
	return &GetUsageHistoryUseCase{usageRepo: usageRepo, logger: logger}
}

func (uc *GetUsageHistoryUseCase) Execute(ctx context.Context, query GetUsageHistoryQuery) ([]*dto.UsageEntryDTO, int64, error) {
	if !query.From.IsZero() && !query.To.IsZero() && query.To.Before(query.From) {
		return nil, 0, apperrors.NewValidationError("end date must not be before start date")
	}

	entries, total, err := uc.usageRepo.List(ctx, billing.UsageFilter{
		UserID:   query.UserID,
		From:     query.From,
		To:       query.To,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		uc.logger.Errorw("failed to list usage entries", "user_id", query.UserID, "error", err)
		return nil, 0, fmt.Errorf("failed to list usage: %w", err)
	}
	return dto.ToUsageEntryDTOs(entries), total, nil
}

type GetUsageStatsUseCase struct {
	usageRepo billing.UsageRepository
	logger    logger.Interface
	now       func() time.Time
}

func NewGetUsageStatsUseCase(usageRepo billing.UsageRepository, logger logger.Interface) *GetUsageStatsUseCase {
	return &GetUsageStatsUseCase{usageRepo: usageRepo, logger: logger, now: biztime.NowUTC}
}

// Execute aggregates the last days calendar days, today included.
func (uc *GetUsageStatsUseCase) Execute(ctx context.Context, userID uint, days int) (*dto.UsageStatsDTO, error) {
	if days <= 0 {
		days = DefaultUsageStatsDays
	}
	if days > MaxUsageStatsDays {
		return nil, apperrors.NewValidationError(fmt.Sprintf("days must be at most %d", MaxUsageStatsDays))
	}

	since := biztime.StartOfDayUTC(uc.now()).AddDate(0, 0, -(days - 1))
	stats, err := uc.usageRepo.Stats(ctx, userID, since)
	if err != nil {
		uc.logger.Errorw("failed to aggregate usage", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}

	out := &dto.UsageStatsDTO{
		Days:             days,
		Since:            since,
		TotalTokens:      stats.TotalTokens,
		PromptTokens:     stats.PromptTokens,
		CompletionTokens: stats.CompletionTokens,
		Calls:            stats.Calls,
		ByOperation:      stats.ByOperation,
		ByDay:            make([]dto.DailyUsageDTO, 0, len(stats.ByDay)),
	}
	if out.ByOperation == nil {
		out.ByOperation = map[string]int64{}
	}
	for _, d := range stats.ByDay {
		out.ByDay = append(out.ByDay, dto.DailyUsageDTO{Day: d.Day, Tokens: d.Tokens, Calls: d.Calls})
	}
	return out, nil
}
