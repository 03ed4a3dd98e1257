package models

import (
	"time"

	"github.com/OliSalles/StoryTeller/internal/shared/constants"
)

// PaymentModel is one provider invoice outcome. (external_payment_id, status, attempt_ref)
// is unique: a paid invoice is recorded once and each failed attempt once.
type PaymentModel struct {
	ID                uint    `gorm:"primaryKey"`
	SubscriptionID    uint    `gorm:"not null;index:idx_payments_subscription"`
	Amount            int64   `gorm:"not null"`
	Currency          string  `gorm:"size:3;not null"`
	Status            string  `gorm:"size:20;not null;uniqueIndex:uk_payments_external_attempt,priority:2"`
	ExternalPaymentID *string `gorm:"size:255;uniqueIndex:uk_payments_external_attempt,priority:1"`
	AttemptRef        string  `gorm:"size:255;not null;default:'';uniqueIndex:uk_payments_external_attempt,priority:3"`
	PaidAt            *time.Time
	ErrorMessage      *string `gorm:"type:text"`
	CreatedAt         time.Time
}

func (PaymentModel) TableName() string {
	return constants.TablePayments
}
