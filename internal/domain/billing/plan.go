package billing

import (
	"fmt"
	"strings"
	"time"

	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
)

// FreePlanName is the machine name of the implicit plan for users without a subscription.
const FreePlanName = "free"

// PlanAttributes carries every persisted plan field. It is the input of NewPlan and
// ReconstructPlan so the two stay in sync.
type PlanAttributes struct {
	ID                   uint
	Name                 string
	DisplayName          string
	Description          string
	PriceMonthly         int64
	PriceYearly          int64
	FeaturesLimit        *int64
	TokensLimit          *int64
	CanExportJira        bool
	CanExportAzure       bool
	HasAPIAccess         bool
	HasPrioritySupport   bool
	TrialDays            int
	IsActive             bool
	StripeMonthlyPriceID string
	StripeYearlyPriceID  string
	SortOrder            int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Plan is read-mostly catalog data. A nil limit means unlimited.
type Plan struct {
	attrs PlanAttributes
}

// NewPlan validates attrs for a plan that has not been persisted yet.
func NewPlan(attrs PlanAttributes) (*Plan, error) {
	attrs.Name = strings.ToLower(strings.TrimSpace(attrs.Name))
	if err := validatePlan(attrs); err != nil {
		return nil, err
	}
	if attrs.DisplayName == "" {
		attrs.DisplayName = attrs.Name
	}
	now := time.Now().UTC()
	attrs.ID = 0
	attrs.CreatedAt = now
	attrs.UpdatedAt = now
	return &Plan{attrs: attrs}, nil
}

// ReconstructPlan rebuilds a persisted plan.
func ReconstructPlan(attrs PlanAttributes) (*Plan, error) {
	if attrs.ID == 0 {
		return nil, fmt.Errorf("%w: plan ID cannot be zero", ErrInvalidPlan)
	}
	if err := validatePlan(attrs); err != nil {
		return nil, err
	}
	return &Plan{attrs: attrs}, nil
}

// NewImplicitFreePlan describes the plan applied to users with no subscription row.
// It is never persisted and has ID 0.
func NewImplicitFreePlan(tokensLimit int64) *Plan {
	return &Plan{attrs: PlanAttributes{
		Name:        FreePlanName,
		DisplayName: "Free",
		TokensLimit: &tokensLimit,
		IsActive:    true,
	}}
}

func validatePlan(attrs PlanAttributes) error {
	if attrs.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlan)
	}
	if attrs.PriceMonthly < 0 || attrs.PriceYearly < 0 {
		return fmt.Errorf("%w: prices cannot be negative", ErrInvalidPlan)
	}
	if attrs.TokensLimit != nil && *attrs.TokensLimit < 0 {
		return fmt.Errorf("%w: tokens limit cannot be negative", ErrInvalidPlan)
	}
	if attrs.FeaturesLimit != nil && *attrs.FeaturesLimit < 0 {
		return fmt.Errorf("%w: features limit cannot be negative", ErrInvalidPlan)
	}
	if attrs.TrialDays < 0 {
		return fmt.Errorf("%w: trial days cannot be negative", ErrInvalidPlan)
	}
	return nil
}

func (p *Plan) ID() uint { return p.attrs.ID }
func (p *Plan) Name() string { return p.attrs.Name }
func (p *Plan) DisplayName() string { return p.attrs.DisplayName }
func (p *Plan) Description() string { return p.attrs.Description }
func (p *Plan) PriceMonthly() int64 { return p.attrs.PriceMonthly }
func (p *Plan) PriceYearly() int64 { return p.attrs.PriceYearly }
func (p *Plan) FeaturesLimit() *int64 { return p.attrs.FeaturesLimit }
func (p *Plan) TokensLimit() *int64 { return p.attrs.TokensLimit }
func (p *Plan) CanExportJira() bool { return p.attrs.CanExportJira }
func (p *Plan) CanExportAzure() bool { return p.attrs.CanExportAzure }
func (p *Plan) HasAPIAccess() bool { return p.attrs.HasAPIAccess }
func (p *Plan) HasPrioritySupport() bool { return p.attrs.HasPrioritySupport }
func (p *Plan) TrialDays() int { return p.attrs.TrialDays }
func (p *Plan) IsActive() bool { return p.attrs.IsActive }
func (p *Plan) StripeMonthlyPriceID() string { return p.attrs.StripeMonthlyPriceID }
func (p *Plan) StripeYearlyPriceID() string { return p.attrs.StripeYearlyPriceID }
func (p *Plan) SortOrder() int { return p.attrs.SortOrder }
func (p *Plan) CreatedAt() time.Time { return p.attrs.CreatedAt }
func (p *Plan) UpdatedAt() time.Time { return p.attrs.UpdatedAt }
func (p *Plan) Attributes() PlanAttributes { return p.attrs }
func (p *Plan) IsImplicitFree() bool { return p.attrs.ID == 0 && p.attrs.Name == FreePlanName }
func (p *Plan) CanExportToIssueTracker() bool { return p.attrs.CanExportJira || p.attrs.CanExportAzure }

func (p *Plan) SetID(id uint) error {
	if p.attrs.ID != 0 {
		return fmt.Errorf("plan ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("plan ID cannot be zero")
	}
	p.attrs.ID = id
	return nil
}

// HasUnlimitedTokens reports whether token admission control is disabled for this plan.
func (p *Plan) HasUnlimitedTokens() bool {
	return p.attrs.TokensLimit == nil
}

// IsPaid reports whether the plan has a non-zero price in either cycle.
func (p *Plan) IsPaid() bool {
	return p.attrs.PriceMonthly > 0 || p.attrs.PriceYearly > 0
}

// PriceIDFor returns the provider price identifier for cycle.
func (p *Plan) PriceIDFor(cycle vo.BillingCycle) (string, error) {
	var priceID string
	switch cycle {
	case vo.BillingCycleMonthly:
		priceID = p.attrs.StripeMonthlyPriceID
	case vo.BillingCycleYearly:
		priceID = p.attrs.StripeYearlyPriceID
	}
	if priceID == "" {
		return "", fmt.Errorf("%w: plan=%s cycle=%s", ErrPriceNotConfigured, p.attrs.Name, cycle)
	}
	return priceID, nil
}
