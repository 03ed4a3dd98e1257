package usecases

import (
	"context"
	"fmt"
	"math"

	"github.com/OliSalles/StoryTeller/internal/application/billing/dto"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	apperrors "github.com/OliSalles/StoryTeller/internal/shared/errors"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

// paidPlanNames are the plans reported as paid by GetSubscriptionInfo.
var paidPlanNames = map[string]bool{"pro": true, "business": true}

// QuotaCheckResult describes an admitted request.
type QuotaCheckResult struct {
	PlanName  string
	Limit     *int64
	Used      int64
	Requested int64
}

// QuotaService is the admission control in front of metered operations. Usage is
// always summed from the ledger; the subscription's counter is never consulted.
type QuotaService struct {
	resolver  *PlanResolver
	usageRepo billing.UsageRepository
	metrics   BillingMetrics
	logger    logger.Interface
}

func NewQuotaService(resolver *PlanResolver, usageRepo billing.UsageRepository, logger logger.Interface) *QuotaService {
	return &QuotaService{
		resolver:  resolver,
		usageRepo: usageRepo,
		metrics:   nopMetrics{},
		logger:    logger,
	}
}

func (s *QuotaService) SetMetrics(m BillingMetrics) {
	s.metrics = m
}

// CheckTokenQuota must run before the metered operation. It fails with
// *billing.QuotaExceededError iff the plan has a limit and used+requested exceeds it.
func (s *QuotaService) CheckTokenQuota(ctx context.Context, userID uint, requested int64) (*QuotaCheckResult, error) {
	if requested < 0 {
		return nil, apperrors.NewValidationError("requested tokens cannot be negative")
	}

	eff, used, err := s.usage(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &QuotaCheckResult{
		PlanName:  eff.Plan.Name(),
		Limit:     eff.Plan.TokensLimit(),
		Used:      used,
		Requested: requested,
	}

	limit := eff.Plan.TokensLimit()
	if limit != nil && used+requested > *limit {
		s.metrics.QuotaRejected(eff.Plan.Name())
		s.logger.Infow("token quota exceeded",
			"user_id", userID,
			"plan", eff.Plan.Name(),
			"limit", *limit,
			"used", used,
			"requested", requested,
		)
		return result, &billing.QuotaExceededError{
			PlanName:  eff.Plan.Name(),
			Limit:     *limit,
			Used:      used,
			Requested: requested,
		}
	}

	return result, nil
}

// CheckFeatureQuota always admits: every plan has unlimited features.
func (s *QuotaService) CheckFeatureQuota(ctx context.Context, userID uint) error {
	return nil
}

// GetCurrentUsage reports the current period's consumption without side effects.
func (s *QuotaService) GetCurrentUsage(ctx context.Context, userID uint) (*dto.UsageSnapshotDTO, error) {
	eff, used, err := s.usage(ctx, userID)
	if err != nil {
		return nil, err
	}

	snapshot := &dto.UsageSnapshotDTO{
		PlanName:        eff.Plan.Name(),
		PlanDisplayName: eff.Plan.DisplayName(),
		TokensUsed:      used,
		TokensLimit:     eff.Plan.TokensLimit(),
		PeriodStart:     eff.PeriodStart,
	}
	if limit := eff.Plan.TokensLimit(); limit != nil && *limit > 0 {
		snapshot.Percentage = math.Round(float64(used)/float64(*limit)*10000) / 100
	}
	return snapshot, nil
}

// GetSubscriptionInfo summarises the user's plan capabilities.
func (s *QuotaService) GetSubscriptionInfo(ctx context.Context, userID uint) (*dto.SubscriptionInfoDTO, error) {
	eff, err := s.resolver.ResolveEffectivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan := eff.Plan
	info := &dto.SubscriptionInfoDTO{
		PlanName:                plan.Name(),
		PlanDisplayName:         plan.DisplayName(),
		CanExportToIssueTracker: plan.CanExportToIssueTracker(),
		HasAPIAccess:            plan.HasAPIAccess(),
		HasPrioritySupport:      plan.HasPrioritySupport(),
	}

	if sub := eff.Subscription; sub != nil {
		end := sub.CurrentPeriodEnd()
		info.Status = sub.Status().String()
		info.BillingCycle = sub.BillingCycle().String()
		info.CurrentPeriodEnd = &end
		info.CancelAtPeriodEnd = sub.CancelAtPeriodEnd()
		info.HasPaidPlan = sub.Status() == vo.StatusActive && paidPlanNames[plan.Name()]
	}
	return info, nil
}

func (s *QuotaService) usage(ctx context.Context, userID uint) (*EffectivePlan, int64, error) {
	eff, err := s.resolver.ResolveEffectivePlan(ctx, userID)
	if err != nil {
		s.logger.Errorw("failed to resolve effective plan", "user_id", userID, "error", err)
		return nil, 0, err
	}

	used, err := s.usageRepo.SumTokensSince(ctx, userID, eff.PeriodStart)
	if err != nil {
		s.logger.Errorw("failed to sum token usage", "user_id", userID, "error", err)
		return nil, 0, fmt.Errorf("failed to sum token usage: %w", err)
	}
	return eff, used, nil
}
