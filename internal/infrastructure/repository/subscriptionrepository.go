package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/mappers"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
	"github.com/OliSalles/StoryTeller/internal/shared/db"
	apperrors "github.com/OliSalles/StoryTeller/internal/shared/errors"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) billing.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, sub *billing.Subscription) error {
	model := r.mapper.ToModel(sub)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return &billing.DuplicateSubscriptionError{ExternalSubscriptionID: sub.ExternalSubscriptionIDValue()}
		}
		r.logger.Errorw("failed to create subscription in database", "user_id", model.UserID, "error", err)
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := sub.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set subscription ID: %w", err)
	}

	r.logger.Infow("subscription created",
		"id", model.ID,
		"user_id", model.UserID,
		"plan_id", model.PlanID,
		"external_subscription_id", sub.ExternalSubscriptionIDValue())
	return nil
}

// Update overwrites the mutable columns. There is no version check: the last writer wins.
func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, sub *billing.Subscription) error {
	model := r.mapper.ToModel(sub)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"plan_id":                  model.PlanID,
			"status":                   model.Status,
			"billing_cycle":            model.BillingCycle,
			"current_period_start":     model.CurrentPeriodStart,
			"current_period_end":       model.CurrentPeriodEnd,
			"cancel_at_period_end":     model.CancelAtPeriodEnd,
			"external_subscription_id": model.ExternalSubscriptionID,
			"external_customer_id":     model.ExternalCustomerID,
			"tokens_used_this_period":  model.TokensUsedThisPeriod,
			"version":                  model.Version,
			"updated_at":               model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return billing.ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*billing.Subscription, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).Where("id = ?", id))
}

func (r *SubscriptionRepositoryImpl) GetByExternalID(ctx context.Context, externalSubscriptionID string) (*billing.Subscription, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).Where("external_subscription_id = ?", externalSubscriptionID))
}

func (r *SubscriptionRepositoryImpl) GetCurrentByUserID(ctx context.Context, userID uint) (*billing.Subscription, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC"))
}

func (r *SubscriptionRepositoryImpl) first(query *gorm.DB) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrSubscriptionNotFound
		}
		r.logger.Errorw("failed to get subscription", "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) CancelOthersForUser(ctx context.Context, userID, exceptID uint) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("user_id = ? AND id <> ? AND status <> ?", userID, exceptID, vo.StatusCanceled.String()).
		Updates(map[string]any{
			"status":               vo.StatusCanceled.String(),
			"cancel_at_period_end": false,
			"version":              gorm.Expr("version + 1"),
			"updated_at":           time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to cancel previous subscriptions", "user_id", userID, "error", result.Error)
		return 0, fmt.Errorf("failed to cancel previous subscriptions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		r.logger.Infow("previous subscriptions canceled", "user_id", userID, "count", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// IncrementTokenCounter adds delta in a single UPDATE so concurrent increments do not
// overwrite each other.
func (r *SubscriptionRepositoryImpl) IncrementTokenCounter(ctx context.Context, id uint, delta int64) error {
	if delta == 0 {
		return nil
	}
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("id = ?", id).
		UpdateColumn("tokens_used_this_period", gorm.Expr("tokens_used_this_period + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to increment token counter: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return billing.ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) SetTokenCounter(ctx context.Context, id uint, value int64) error {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("id = ?", id).
		UpdateColumn("tokens_used_this_period", value)
	if result.Error != nil {
		return fmt.Errorf("failed to set token counter: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check subscription: %w", err)
		}
		if count == 0 {
			return billing.ErrSubscriptionNotFound
		}
	}
	return nil
}

// ListUsable returns every subscription that may still grant a plan.
func (r *SubscriptionRepositoryImpl) ListUsable(ctx context.Context) ([]*billing.Subscription, error) {
	var subModels []*models.SubscriptionModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("status NOT IN ?", []string{vo.StatusCanceled.String(), vo.StatusIncomplete.String()}).
		Order("id ASC").
		Find(&subModels).Error; err != nil {
		r.logger.Errorw("failed to list usable subscriptions", "error", err)
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return r.mapper.ToEntities(subModels)
}
