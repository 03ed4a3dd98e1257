package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
)

func int64Ptr(v int64) *int64 { return &v }

func TestNewPlan(t *testing.T) {
	tests := []struct {
		name    string
		attrs   PlanAttributes
		wantErr bool
	}{
		{name: "valid", attrs: PlanAttributes{Name: "Pro", PriceMonthly: 4990, TokensLimit: int64Ptr(1_000_000)}},
		{name: "empty name", attrs: PlanAttributes{Name: "  "}, wantErr: true},
		{name: "negative price", attrs: PlanAttributes{Name: "x", PriceYearly: -1}, wantErr: true},
		{name: "negative tokens", attrs: PlanAttributes{Name: "x", TokensLimit: int64Ptr(-5)}, wantErr: true},
		{name: "negative trial", attrs: PlanAttributes{Name: "x", TrialDays: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPlan(tt.attrs)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPlan)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "pro", p.Name())
			assert.Equal(t, "pro", p.DisplayName())
		})
	}
}

func TestImplicitFreePlan(t *testing.T) {
	p := NewImplicitFreePlan(50_000)

	assert.True(t, p.IsImplicitFree())
	assert.False(t, p.IsPaid())
	assert.False(t, p.HasUnlimitedTokens())
	require.NotNil(t, p.TokensLimit())
	assert.Equal(t, int64(50_000), *p.TokensLimit())
}

func TestPlan_PriceIDFor(t *testing.T) {
	p, err := NewPlan(PlanAttributes{Name: "pro", PriceMonthly: 100, StripeMonthlyPriceID: "price_m"})
	require.NoError(t, err)

	id, err := p.PriceIDFor(vo.BillingCycleMonthly)
	require.NoError(t, err)
	assert.Equal(t, "price_m", id)

	_, err = p.PriceIDFor(vo.BillingCycleYearly)
	assert.ErrorIs(t, err, ErrPriceNotConfigured)
}

func TestPlan_UnlimitedAndExport(t *testing.T) {
	p, err := NewPlan(PlanAttributes{Name: "enterprise", PriceYearly: 1, CanExportAzure: true})
	require.NoError(t, err)

	assert.True(t, p.HasUnlimitedTokens())
	assert.True(t, p.IsPaid())
	assert.True(t, p.CanExportToIssueTracker())
}
