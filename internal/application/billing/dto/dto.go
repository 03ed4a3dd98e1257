package dto

import "time"

type PlanDTO struct {
	ID                      uint   `json:"id"`
	Name                    string `json:"name"`
	DisplayName             string `json:"display_name"`
	Description             string `json:"description,omitempty"`
	DescriptionHTML         string `json:"description_html,omitempty"`
	PriceMonthly            int64  `json:"price_monthly"` // minor currency units
	PriceYearly             int64  `json:"price_yearly"`
	FeaturesLimit           *int64 `json:"features_limit"` // null = unlimited
	TokensLimit             *int64 `json:"tokens_limit"`
	CanExportToIssueTracker bool   `json:"can_export_to_issue_tracker"`
	CanExportJira           bool   `json:"can_export_jira"`
	CanExportAzure          bool   `json:"can_export_azure"`
	HasAPIAccess            bool   `json:"has_api_access"`
	HasPrioritySupport      bool   `json:"has_priority_support"`
	TrialDays               int    `json:"trial_days"`
	IsPaid                  bool   `json:"is_paid"`
	SortOrder               int    `json:"sort_order"`
}

type SubscriptionDTO struct {
	ID                   uint      `json:"id"`
	UserID               uint      `json:"user_id"`
	PlanID               uint      `json:"plan_id"`
	Plan                 *PlanDTO  `json:"plan,omitempty"`
	Status               string    `json:"status"`
	BillingCycle         string    `json:"billing_cycle"`
	CurrentPeriodStart   time.Time `json:"current_period_start"`
	CurrentPeriodEnd     time.Time `json:"current_period_end"`
	CancelAtPeriodEnd    bool      `json:"cancel_at_period_end"`
	TokensUsedThisPeriod int64     `json:"tokens_used_this_period"`
	IsActive             bool      `json:"is_active"`
	ManagedByProvider    bool      `json:"managed_by_provider"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// UsageSnapshotDTO is the read-only view of the current period's token consumption.
type UsageSnapshotDTO struct {
	PlanName        string    `json:"plan_name"`
	PlanDisplayName string    `json:"plan_display_name"`
	TokensUsed      int64     `json:"tokens_used"`
	TokensLimit     *int64    `json:"tokens_limit"`
	Percentage      float64   `json:"percentage"`
	PeriodStart     time.Time `json:"period_start"`
}

type SubscriptionInfoDTO struct {
	HasPaidPlan             bool       `json:"has_paid_plan"`
	PlanName                string     `json:"plan_name"`
	PlanDisplayName         string     `json:"plan_display_name"`
	Status                  string     `json:"status,omitempty"`
	BillingCycle            string     `json:"billing_cycle,omitempty"`
	CanExportToIssueTracker bool       `json:"can_export_to_issue_tracker"`
	HasAPIAccess            bool       `json:"has_api_access"`
	HasPrioritySupport      bool       `json:"has_priority_support"`
	CurrentPeriodEnd        *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd       bool       `json:"cancel_at_period_end"`
}

type QuotaCheckDTO struct {
	Allowed   bool   `json:"allowed"`
	PlanName  string `json:"plan_name"`
	Limit     *int64 `json:"limit"`
	Used      int64  `json:"used"`
	Requested int64  `json:"requested"`
}

type PaymentDTO struct {
	ID                uint       `json:"id"`
	SubscriptionID    uint       `json:"subscription_id"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	ExternalPaymentID string     `json:"external_payment_id,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type UsageEntryDTO struct {
	ID               uint      `json:"id"`
	FeatureID        *uint     `json:"feature_id,omitempty"`
	Operation        string    `json:"operation"`
	Model            string    `json:"model"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

type DailyUsageDTO struct {
	Day    string `json:"day"`
	Tokens int64  `json:"tokens"`
	Calls  int64  `json:"calls"`
}

type UsageStatsDTO struct {
	Days             int              `json:"days"`
	Since            time.Time        `json:"since"`
	TotalTokens      int64            `json:"total_tokens"`
	PromptTokens     int64            `json:"prompt_tokens"`
	CompletionTokens int64            `json:"completion_tokens"`
	Calls            int64            `json:"calls"`
	ByOperation      map[string]int64 `json:"by_operation"`
	ByDay            []DailyUsageDTO  `json:"by_day"`
}

type CheckoutSessionDTO struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

type PortalSessionDTO struct {
	URL string `json:"url"`
}

// SyncResultDTO is returned by the checkout-session fallback sync.
type SyncResultDTO struct {
	Success        bool `json:"success"`
	SubscriptionID uint `json:"subscription_id"`
	AlreadyExisted bool `json:"already_existed"`
}
