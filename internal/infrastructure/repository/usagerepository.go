package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/mappers"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
	"github.com/OliSalles/StoryTeller/internal/shared/biztime"
	"github.com/OliSalles/StoryTeller/internal/shared/db"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

// UsageRepositoryImpl stores the append-only usage ledger. Rows are never updated.
type UsageRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUsageRepository(db *gorm.DB, logger logger.Interface) billing.UsageRepository {
	return &UsageRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *UsageRepositoryImpl) Append(ctx context.Context, entry *billing.UsageEntry) error {
	model := mappers.UsageEntryToModel(entry)
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to append usage entry", "user_id", model.UserID, "error", err)
		return fmt.Errorf("failed to append usage entry: %w", err)
	}
	entry.SetID(model.ID)
	return nil
}

func (r *UsageRepositoryImpl) SumTokensSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var sum int64
	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.UsageLedgerModel{}).
		Select("COALESCE(SUM(total_tokens), 0)").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Scan(&sum).Error; err != nil {
		r.logger.Errorw("failed to sum usage", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to sum usage: %w", err)
	}
	return sum, nil
}

func (r *UsageRepositoryImpl) List(ctx context.Context, filter billing.UsageFilter) ([]*billing.UsageEntry, int64, error) {
	query := db.GetTxFromContext(ctx, r.db).
		Model(&models.UsageLedgerModel{}).
		Where("user_id = ?", filter.UserID).
		Scopes(db.CreatedBetween(filter.From, filter.To))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count usage entries: %w", err)
	}

	var rows []*models.UsageLedgerModel
	if err := query.
		Order("created_at DESC, id DESC").
		Scopes(db.Paginate(filter.Page, filter.PageSize)).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list usage entries", "user_id", filter.UserID, "error", err)
		return nil, 0, fmt.Errorf("failed to list usage entries: %w", err)
	}
	return mappers.UsageEntriesToDomain(rows), total, nil
}

type usageTotalsRow struct {
	TotalTokens      int64
	PromptTokens     int64
	CompletionTokens int64
	Calls            int64
}

type operationRow struct {
	Operation string
	Tokens    int64
}

type dayRow struct {
	CreatedAt   time.Time
	TotalTokens int64
}

// Stats aggregates totals and per-operation sums in SQL. Per-day buckets are computed
// here so day boundaries follow the business timezone on every driver.
func (r *UsageRepositoryImpl) Stats(ctx context.Context, userID uint, since time.Time) (*billing.UsageStats, error) {
	base := func() *gorm.DB {
		return db.GetTxFromContext(ctx, r.db).
			Model(&models.UsageLedgerModel{}).
			Where("user_id = ? AND created_at >= ?", userID, since)
	}

	var totals usageTotalsRow
	if err := base().
		Select("COALESCE(SUM(total_tokens), 0) AS total_tokens, " +
			"COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens, " +
			"COALESCE(SUM(completion_tokens), 0) AS completion_tokens, " +
			"COUNT(*) AS calls").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}

	var ops []operationRow
	if err := base().
		Select("operation, COALESCE(SUM(total_tokens), 0) AS tokens").
		Group("operation").
		Scan(&ops).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate usage by operation: %w", err)
	}

	var days []dayRow
	if err := base().Select("created_at, total_tokens").Scan(&days).Error; err != nil {
		return nil, fmt.Errorf("failed to load usage by day: %w", err)
	}

	stats := &billing.UsageStats{
		TotalTokens:      totals.TotalTokens,
		PromptTokens:     totals.PromptTokens,
		CompletionTokens: totals.CompletionTokens,
		Calls:            totals.Calls,
		ByOperation:      make(map[string]int64, len(ops)),
	}
	for _, op := range ops {
		stats.ByOperation[op.Operation] = op.Tokens
	}

	buckets := make(map[string]*billing.DailyUsage)
	for _, d := range days {
		key := biztime.DayKey(d.CreatedAt)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &billing.DailyUsage{Day: key}
			buckets[key] = bucket
		}
		bucket.Tokens += d.TotalTokens
		bucket.Calls++
	}
	stats.ByDay = make([]billing.DailyUsage, 0, len(buckets))
	for _, b := range buckets {
		stats.ByDay = append(stats.ByDay, *b)
	}
	sort.Slice(stats.ByDay, func(i, j int) bool { return stats.ByDay[i].Day < stats.ByDay[j].Day })

	return stats, nil
}
