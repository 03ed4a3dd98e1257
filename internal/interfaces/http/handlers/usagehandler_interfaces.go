package handlers

import (
	"context"

	"github.com/OliSalles/StoryTeller/internal/application/billing/dto"
	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
)

// Use case interfaces for UsageHandler

type usageQuotaService interface {
	GetCurrentUsage(ctx context.Context, userID uint) (*dto.UsageSnapshotDTO, error)
	CheckTokenQuota(ctx context.Context, userID uint, requested int64) (*usecases.QuotaCheckResult, error)
}

type getUsageHistoryUseCase interface {
	Execute(ctx context.Context, query usecases.GetUsageHistoryQuery) ([]*dto.UsageEntryDTO, int64, error)
}

type getUsageStatsUseCase interface {
	Execute(ctx context.Context, userID uint, days int) (*dto.UsageStatsDTO, error)
}

type recordUsageUseCase interface {
	Execute(ctx context.Context, cmd usecases.RecordUsageCommand) (*billing.UsageEntry, error)
}
