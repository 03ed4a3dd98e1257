package dto

import (
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/utils"
)

// ToPlanDTO converts a plan. Description markdown is rendered to sanitized HTML; a
// rendering failure only drops the HTML variant.
func ToPlanDTO(p *billing.Plan) *PlanDTO {
	if p == nil {
		return nil
	}
	html, _ := utils.MarkdownToSafeHTML(p.Description())
	return &PlanDTO{
		ID:                      p.ID(),
		Name:                    p.Name(),
		DisplayName:             p.DisplayName(),
		Description:             p.Description(),
		DescriptionHTML:         html,
		PriceMonthly:            p.PriceMonthly(),
		PriceYearly:             p.PriceYearly(),
		FeaturesLimit:           p.FeaturesLimit(),
		TokensLimit:             p.TokensLimit(),
		CanExportToIssueTracker: p.CanExportToIssueTracker(),
		CanExportJira:           p.CanExportJira(),
		CanExportAzure:          p.CanExportAzure(),
		HasAPIAccess:            p.HasAPIAccess(),
		HasPrioritySupport:      p.HasPrioritySupport(),
		TrialDays:               p.TrialDays(),
		IsPaid:                  p.IsPaid(),
		SortOrder:               p.SortOrder(),
	}
}

func ToPlanDTOs(plans []*billing.Plan) []*PlanDTO {
	out := make([]*PlanDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, ToPlanDTO(p))
	}
	return out
}

// ToSubscriptionDTO converts sub; plan may be nil.
func ToSubscriptionDTO(sub *billing.Subscription, plan *billing.Plan) *SubscriptionDTO {
	if sub == nil {
		return nil
	}
	return &SubscriptionDTO{
		ID:                   sub.ID(),
		UserID:               sub.UserID(),
		PlanID:               sub.PlanID(),
		Plan:                 ToPlanDTO(plan),
		Status:               sub.Status().String(),
		BillingCycle:         sub.BillingCycle().String(),
		CurrentPeriodStart:   sub.CurrentPeriodStart(),
		CurrentPeriodEnd:     sub.CurrentPeriodEnd(),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd(),
		TokensUsedThisPeriod: sub.TokensUsedThisPeriod(),
		IsActive:             sub.Status().CanUseService(),
		ManagedByProvider:    sub.ExternalSubscriptionID() != nil,
		CreatedAt:            sub.CreatedAt(),
		UpdatedAt:            sub.UpdatedAt(),
	}
}

func ToPaymentDTO(p *billing.Payment) *PaymentDTO {
	d := &PaymentDTO{
		ID:             p.ID(),
		SubscriptionID: p.SubscriptionID(),
		Amount:         p.Amount(),
		Currency:       p.Currency(),
		Status:         p.Status().String(),
		PaidAt:         p.PaidAt(),
		CreatedAt:      p.CreatedAt(),
	}
	if p.ExternalPaymentID() != nil {
		d.ExternalPaymentID = *p.ExternalPaymentID()
	}
	if p.ErrorMessage() != nil {
		d.ErrorMessage = *p.ErrorMessage()
	}
	return d
}

func ToPaymentDTOs(payments []*billing.Payment) []*PaymentDTO {
	out := make([]*PaymentDTO, 0, len(payments))
	for _, p := range payments {
		out = append(out, ToPaymentDTO(p))
	}
	return out
}

func ToUsageEntryDTO(e *billing.UsageEntry) *UsageEntryDTO {
	return &UsageEntryDTO{
		ID:               e.ID(),
		FeatureID:        e.FeatureID(),
		Operation:        e.Operation(),
		Model:            e.Model(),
		PromptTokens:     e.PromptTokens(),
		CompletionTokens: e.CompletionTokens(),
		TotalTokens:      e.TotalTokens(),
		CreatedAt:        e.CreatedAt(),
	}
}

func ToUsageEntryDTOs(entries []*billing.UsageEntry) []*UsageEntryDTO {
	out := make([]*UsageEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToUsageEntryDTO(e))
	}
	return out
}
