package models

import (
	"time"

	"github.com/OliSalles/StoryTeller/internal/shared/constants"
)

// UsageLedgerModel is an append-only record of one metered operation.
type UsageLedgerModel struct {
	ID               uint      `gorm:"primaryKey"`
	UserID           uint      `gorm:"not null;index:idx_usage_user_created,priority:1"`
	FeatureID        *uint
	Operation        string    `gorm:"size:50;not null"`
	Model            string    `gorm:"size:100;not null;default:''"`
	PromptTokens     int64     `gorm:"not null;default:0"`
	CompletionTokens int64     `gorm:"not null;default:0"`
	TotalTokens      int64     `gorm:"not null;default:0"`
	CreatedAt        time.Time `gorm:"not null;index:idx_usage_user_created,priority:2"`
}

func (UsageLedgerModel) TableName() string {
	return constants.TableUsageLedger
}
