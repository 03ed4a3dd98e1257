package billing

import (
	"context"
	"time"
)

type PlanRepository interface {
	GetByID(ctx context.Context, id uint) (*Plan, error)
	GetByName(ctx context.Context, name string) (*Plan, error)
	ListActive(ctx context.Context) ([]*Plan, error)
	// Upsert inserts or updates the plan identified by its name.
	Upsert(ctx context.Context, plan *Plan) error
}

type SubscriptionRepository interface {
	// Create fails with *DuplicateSubscriptionError when the external subscription id
	// is already stored.
	Create(ctx context.Context, sub *Subscription) error
	Update(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	GetByExternalID(ctx context.Context, externalSubscriptionID string) (*Subscription, error)
	// GetCurrentByUserID returns the most recently created subscription of the user.
	GetCurrentByUserID(ctx context.Context, userID uint) (*Subscription, error)
	// CancelOthersForUser cancels every non-canceled subscription of userID except exceptID.
	CancelOthersForUser(ctx context.Context, userID, exceptID uint) (int64, error)
	IncrementTokenCounter(ctx context.Context, id uint, delta int64) error
	SetTokenCounter(ctx context.Context, id uint, value int64) error
	ListUsable(ctx context.Context) ([]*Subscription, error)
}

type PaymentRepository interface {
	// Create returns (false, nil) when the same external payment with the same status
	// was already recorded.
	Create(ctx context.Context, payment *Payment) (bool, error)
	ListBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*Payment, error)
	ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*Payment, int64, error)
}

// UsageFilter selects ledger rows for reporting. Zero bounds are open.
type UsageFilter struct {
	UserID   uint
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

type UsageRepository interface {
	Append(ctx context.Context, entry *UsageEntry) error
	// SumTokensSince returns the ledger total for userID with created_at >= since.
	SumTokensSince(ctx context.Context, userID uint, since time.Time) (int64, error)
	List(ctx context.Context, filter UsageFilter) ([]*UsageEntry, int64, error)
	Stats(ctx context.Context, userID uint, since time.Time) (*UsageStats, error)
}

// WebhookEventRepository journals provider events that were processed successfully.
type WebhookEventRepository interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, payload []byte) error
}
