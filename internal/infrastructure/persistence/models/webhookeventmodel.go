package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/OliSalles/StoryTeller/internal/shared/constants"
)

// WebhookEventModel journals provider events that were processed successfully.
type WebhookEventModel struct {
	ID          uint   `gorm:"primaryKey"`
	EventID     string `gorm:"size:255;not null;uniqueIndex:uk_webhook_events_event_id"`
	EventType   string `gorm:"size:100;not null"`
	Payload     datatypes.JSON
	ProcessedAt time.Time `gorm:"not null"`
}

func (WebhookEventModel) TableName() string {
	return constants.TableWebhookEvents
}
