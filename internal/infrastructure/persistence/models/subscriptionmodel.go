package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/OliSalles/StoryTeller/internal/shared/constants"
)

// SubscriptionModel represents the database persistence model for subscriptions.
// ExternalSubscriptionID is unique; NULL (manual rows) may repeat.
type SubscriptionModel struct {
	ID                     uint      `gorm:"primarykey"`
	UserID                 uint      `gorm:"not null;index:idx_subscriptions_user_created,priority:1"`
	PlanID                 uint      `gorm:"not null"`
	Status                 string    `gorm:"not null;size:20"`
	BillingCycle           string    `gorm:"not null;size:10"`
	CurrentPeriodStart     time.Time `gorm:"not null"`
	CurrentPeriodEnd       time.Time `gorm:"not null"`
	CancelAtPeriodEnd      bool      `gorm:"not null;default:false"`
	ExternalSubscriptionID *string   `gorm:"size:255;uniqueIndex:uk_subscriptions_external_id"`
	ExternalCustomerID     *string   `gorm:"size:255;index:idx_subscriptions_customer"`
	TokensUsedThisPeriod   int64     `gorm:"not null;default:0"`
	Version                int       `gorm:"not null;default:1"`
	CreatedAt              time.Time `gorm:"index:idx_subscriptions_user_created,priority:2"`
	UpdatedAt              time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}

// BeforeCreate hook for GORM
func (s *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}
