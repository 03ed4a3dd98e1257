package seed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
)

// planFileDoc mirrors configs/plans.yaml. Omitted limits mean unlimited.
type planFileDoc struct {
	Plans []planEntry `yaml:"plans"`
}

type planEntry struct {
	Name               string `yaml:"name"`
	DisplayName        string `yaml:"display_name"`
	Description        string `yaml:"description"`
	PriceMonthly       int64  `yaml:"price_monthly"`
	PriceYearly        int64  `yaml:"price_yearly"`
	FeaturesLimit      *int64 `yaml:"features_limit"`
	TokensLimit        *int64 `yaml:"tokens_limit"`
	CanExportJira      bool   `yaml:"can_export_jira"`
	CanExportAzure     bool   `yaml:"can_export_azure"`
	HasAPIAccess       bool   `yaml:"has_api_access"`
	HasPrioritySupport bool   `yaml:"has_priority_support"`
	TrialDays          int    `yaml:"trial_days"`
	Active             *bool  `yaml:"active"`
	StripeMonthlyPrice string `yaml:"stripe_monthly_price_id"`
	StripeYearlyPrice  string `yaml:"stripe_yearly_price_id"`
	SortOrder          int    `yaml:"sort_order"`
}

// LoadPlanFile reads plan definitions from a YAML file. ${VAR} references are
// expanded from the environment so price IDs can differ per deployment.
func LoadPlanFile(path string) ([]billing.PlanAttributes, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return ParsePlans(strings.NewReader(os.ExpandEnv(string(raw))))
}

// ParsePlans decodes plan definitions. Unknown keys are rejected so typos in the
// catalog do not silently drop a limit.
func ParsePlans(r io.Reader) ([]billing.PlanAttributes, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f planFileDoc
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("plan file is empty")
		}
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}
	if len(f.Plans) == 0 {
		return nil, errors.New("plan file defines no plans")
	}

	attrs := make([]billing.PlanAttributes, 0, len(f.Plans))
	for i, p := range f.Plans {
		active := true
		if p.Active != nil {
			active = *p.Active
		}
		sortOrder := p.SortOrder
		if sortOrder == 0 {
			sortOrder = i + 1
		}
		attrs = append(attrs, billing.PlanAttributes{
			Name:                 p.Name,
			DisplayName:          p.DisplayName,
			Description:          p.Description,
			PriceMonthly:         p.PriceMonthly,
			PriceYearly:          p.PriceYearly,
			FeaturesLimit:        p.FeaturesLimit,
			TokensLimit:          p.TokensLimit,
			CanExportJira:        p.CanExportJira,
			CanExportAzure:       p.CanExportAzure,
			HasAPIAccess:         p.HasAPIAccess,
			HasPrioritySupport:   p.HasPrioritySupport,
			TrialDays:            p.TrialDays,
			IsActive:             active,
			StripeMonthlyPriceID: p.StripeMonthlyPrice,
			StripeYearlyPriceID:  p.StripeYearlyPrice,
			SortOrder:            sortOrder,
		})
	}
	return attrs, nil
}
