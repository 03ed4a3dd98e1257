package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/mappers"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
	"github.com/OliSalles/StoryTeller/internal/shared/constants"
	"github.com/OliSalles/StoryTeller/internal/shared/db"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

type PaymentRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewPaymentRepository(db *gorm.DB, logger logger.Interface) billing.PaymentRepository {
	return &PaymentRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

// Create inserts the payment unless (external_payment_id, status) already exists.
func (r *PaymentRepositoryImpl) Create(ctx context.Context, payment *billing.Payment) (bool, error) {
	model := mappers.PaymentToModel(payment)

	result := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to create payment",
			"subscription_id", model.SubscriptionID,
			"status", model.Status,
			"error", result.Error)
		return false, fmt.Errorf("failed to create payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Infow("payment already recorded",
			"external_payment_id", payment.ExternalPaymentID(),
			"status", model.Status)
		return false, nil
	}

	if err := payment.SetID(model.ID); err != nil {
		return false, fmt.Errorf("failed to set payment ID: %w", err)
	}
	return true, nil
}

func (r *PaymentRepositoryImpl) ListBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*billing.Payment, error) {
	var paymentModels []*models.PaymentModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC, id DESC").
		Find(&paymentModels).Error; err != nil {
		r.logger.Errorw("failed to list payments", "subscription_id", subscriptionID, "error", err)
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return mappers.PaymentsToDomain(paymentModels)
}

// ListByUserID pages through the payments of every subscription the user ever owned.
func (r *PaymentRepositoryImpl) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*billing.Payment, int64, error) {
	query := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentModel{}).
		Joins(fmt.Sprintf("JOIN %s ON %s.id = %s.subscription_id",
			constants.TableSubscriptions, constants.TableSubscriptions, constants.TablePayments)).
		Where(constants.TableSubscriptions+".user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.logger.Errorw("failed to count payments", "user_id", userID, "error", err)
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	var paymentModels []*models.PaymentModel
	if err := query.
		Select(constants.TablePayments + ".*").
		Order(constants.TablePayments + ".created_at DESC, " + constants.TablePayments + ".id DESC").
		Scopes(db.Paginate(page, pageSize)).
		Find(&paymentModels).Error; err != nil {
		r.logger.Errorw("failed to list payments", "user_id", userID, "error", err)
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	payments, err := mappers.PaymentsToDomain(paymentModels)
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
