package billing

import (
	"fmt"
	"strings"
	"time"
)

// UsageEntry is one immutable ledger row describing a metered LLM call.
type UsageEntry struct {
	id               uint
	userID           uint
	featureID        *uint
	operation        string
	model            string
	promptTokens     int64
	completionTokens int64
	totalTokens      int64
	createdAt        time.Time
}

// NewUsageEntry validates a ledger row. totalTokens is always prompt + completion.
func NewUsageEntry(userID uint, featureID *uint, operation, model string, promptTokens, completionTokens int64) (*UsageEntry, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user ID is required", ErrInvalidUsage)
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		return nil, fmt.Errorf("%w: operation is required", ErrInvalidUsage)
	}
	if promptTokens < 0 || completionTokens < 0 {
		return nil, fmt.Errorf("%w: token counts cannot be negative", ErrInvalidUsage)
	}
	if featureID != nil && *featureID == 0 {
		featureID = nil
	}

	return &UsageEntry{
		userID:           userID,
		featureID:        featureID,
		operation:        operation,
		model:            model,
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
		totalTokens:      promptTokens + completionTokens,
		createdAt:        time.Now().UTC(),
	}, nil
}

// ReconstructUsageEntry rebuilds a persisted ledger row.
func ReconstructUsageEntry(
	id, userID uint,
	featureID *uint,
	operation, model string,
	promptTokens, completionTokens, totalTokens int64,
	createdAt time.Time,
) *UsageEntry {
	return &UsageEntry{
		id:               id,
		userID:           userID,
		featureID:        featureID,
		operation:        operation,
		model:            model,
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
		totalTokens:      totalTokens,
		createdAt:        createdAt,
	}
}

func (u *UsageEntry) ID() uint { return u.id }
func (u *UsageEntry) UserID() uint { return u.userID }
func (u *UsageEntry) FeatureID() *uint { return u.featureID }
func (u *UsageEntry) Operation() string { return u.operation }
func (u *UsageEntry) Model() string { return u.model }
func (u *UsageEntry) PromptTokens() int64 { return u.promptTokens }
func (u *UsageEntry) CompletionTokens() int64 { return u.completionTokens }
func (u *UsageEntry) TotalTokens() int64 { return u.totalTokens }
func (u *UsageEntry) CreatedAt() time.Time { return u.createdAt }

func (u *UsageEntry) SetID(id uint) {
	u.id = id
}

// UsageStats aggregates ledger rows for reporting.
type UsageStats struct {
	TotalTokens      int64
	PromptTokens     int64
	CompletionTokens int64
	Calls            int64
	ByOperation      map[string]int64
	ByDay            []DailyUsage
}

type DailyUsage struct {
	Day    string
	Tokens int64
	Calls  int64
}
