package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
	"github.com/OliSalles/StoryTeller/internal/shared/db"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

type WebhookEventRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewWebhookEventRepository(db *gorm.DB, logger logger.Interface) billing.WebhookEventRepository {
	return &WebhookEventRepositoryImpl{db: db, logger: logger}
}

func (r *WebhookEventRepositoryImpl) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var count int64
	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.WebhookEventModel{}).
		Where("event_id = ?", eventID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check webhook event: %w", err)
	}
	return count > 0, nil
}

// MarkProcessed records eventID once; recording it again is a no-op.
func (r *WebhookEventRepositoryImpl) MarkProcessed(ctx context.Context, eventID, eventType string, payload []byte) error {
	model := &models.WebhookEventModel{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now().UTC(),
	}
	if len(payload) > 0 && json.Valid(payload) {
		model.Payload = datatypes.JSON(payload)
	}

	if err := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model).Error; err != nil {
		r.logger.Errorw("failed to journal webhook event", "event_id", eventID, "event_type", eventType, "error", err)
		return fmt.Errorf("failed to journal webhook event: %w", err)
	}
	return nil
}
