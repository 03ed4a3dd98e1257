package billing

import (
	"fmt"
	"time"

	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
)

// Subscription records which plan a user is on, for which period and in what state.
// A user may own many rows over time; the most recently created one is current.
//
// tokensUsedThisPeriod is an advisory counter kept for display. Quota enforcement
// always recomputes usage from the ledger.
type Subscription struct {
	id                     uint
	userID                 uint
	planID                 uint
	status                 vo.SubscriptionStatus
	billingCycle           vo.BillingCycle
	currentPeriodStart     time.Time
	currentPeriodEnd       time.Time
	cancelAtPeriodEnd      bool
	externalSubscriptionID *string
	externalCustomerID     *string
	tokensUsedThisPeriod   int64
	version                int
	createdAt              time.Time
	updatedAt              time.Time
}

// SubscriptionParams are the inputs for a new subscription row.
type SubscriptionParams struct {
	UserID                 uint
	PlanID                 uint
	Status                 vo.SubscriptionStatus
	BillingCycle           vo.BillingCycle
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	ExternalSubscriptionID string
	ExternalCustomerID     string
}

// NewSubscription creates an unsaved subscription with a zeroed usage counter.
// Empty external ids are stored as NULL (manually created rows).
func NewSubscription(p SubscriptionParams) (*Subscription, error) {
	if p.UserID == 0 {
		return nil, fmt.Errorf("%w: user ID is required", ErrInvalidSubscription)
	}
	if p.PlanID == 0 {
		return nil, fmt.Errorf("%w: plan ID is required", ErrInvalidSubscription)
	}
	if !p.Status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidSubscription, p.Status)
	}
	if !p.BillingCycle.IsValid() {
		return nil, fmt.Errorf("%w: invalid billing cycle %q", ErrInvalidSubscription, p.BillingCycle)
	}
	if p.CurrentPeriodEnd.Before(p.CurrentPeriodStart) {
		return nil, fmt.Errorf("%w: period end must not be before period start", ErrInvalidSubscription)
	}

	now := time.Now().UTC()
	return &Subscription{
		userID:                 p.UserID,
		planID:                 p.PlanID,
		status:                 p.Status,
		billingCycle:           p.BillingCycle,
		currentPeriodStart:     p.CurrentPeriodStart,
		currentPeriodEnd:       p.CurrentPeriodEnd,
		externalSubscriptionID: optionalString(p.ExternalSubscriptionID),
		externalCustomerID:     optionalString(p.ExternalCustomerID),
		version:                1,
		createdAt:              now,
		updatedAt:              now,
	}, nil
}

// ReconstructSubscription rebuilds a persisted subscription.
func ReconstructSubscription(
	id, userID, planID uint,
	status vo.SubscriptionStatus,
	billingCycle vo.BillingCycle,
	currentPeriodStart, currentPeriodEnd time.Time,
	cancelAtPeriodEnd bool,
	externalSubscriptionID, externalCustomerID *string,
	tokensUsedThisPeriod int64,
	version int,
	createdAt, updatedAt time.Time,
) (*Subscription, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: subscription ID cannot be zero", ErrInvalidSubscription)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidSubscription, status)
	}

	return &Subscription{
		id:                     id,
		userID:                 userID,
		planID:                 planID,
		status:                 status,
		billingCycle:           billingCycle,
		currentPeriodStart:     currentPeriodStart,
		currentPeriodEnd:       currentPeriodEnd,
		cancelAtPeriodEnd:      cancelAtPeriodEnd,
		externalSubscriptionID: externalSubscriptionID,
		externalCustomerID:     externalCustomerID,
		tokensUsedThisPeriod:   tokensUsedThisPeriod,
		version:                version,
		createdAt:              createdAt,
		updatedAt:              updatedAt,
	}, nil
}

func (s *Subscription) ID() uint { return s.id }
func (s *Subscription) UserID() uint { return s.userID }
func (s *Subscription) PlanID() uint { return s.planID }
func (s *Subscription) Status() vo.SubscriptionStatus { return s.status }
func (s *Subscription) BillingCycle() vo.BillingCycle { return s.billingCycle }
func (s *Subscription) CurrentPeriodStart() time.Time { return s.currentPeriodStart }
func (s *Subscription) CurrentPeriodEnd() time.Time { return s.currentPeriodEnd }
func (s *Subscription) CancelAtPeriodEnd() bool { return s.cancelAtPeriodEnd }
func (s *Subscription) ExternalSubscriptionID() *string { return s.externalSubscriptionID }
func (s *Subscription) ExternalCustomerID() *string { return s.externalCustomerID }
func (s *Subscription) TokensUsedThisPeriod() int64 { return s.tokensUsedThisPeriod }
func (s *Subscription) Version() int { return s.version }
func (s *Subscription) CreatedAt() time.Time { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time { return s.updatedAt }

// ExternalSubscriptionIDValue returns the external id or "" for manual rows.
func (s *Subscription) ExternalSubscriptionIDValue() string {
	if s.externalSubscriptionID == nil {
		return ""
	}
	return *s.externalSubscriptionID
}

// ExternalCustomerIDValue returns the external customer id or "" for manual rows.
func (s *Subscription) ExternalCustomerIDValue() string {
	if s.externalCustomerID == nil {
		return ""
	}
	return *s.externalCustomerID
}

func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = id
	return nil
}

func (s *Subscription) IsCanceled() bool {
	return s.status == vo.StatusCanceled
}

// ApplyProviderState mirrors status, period bounds and the cancel flag reported by the
// payment provider. It reports whether anything changed.
func (s *Subscription) ApplyProviderState(status vo.SubscriptionStatus, periodStart, periodEnd time.Time, cancelAtPeriodEnd bool) (bool, error) {
	if !s.status.CanTransitionTo(status) {
		return false, ErrInvalidTransition(s.status.String(), status.String())
	}

	changed := s.status != status || s.cancelAtPeriodEnd != cancelAtPeriodEnd
	s.status = status
	s.cancelAtPeriodEnd = cancelAtPeriodEnd

	if !periodStart.IsZero() && !periodEnd.IsZero() && !periodEnd.Before(periodStart) {
		if !periodStart.Equal(s.currentPeriodStart) || !periodEnd.Equal(s.currentPeriodEnd) {
			s.currentPeriodStart = periodStart
			s.currentPeriodEnd = periodEnd
			changed = true
		}
	}

	if changed {
		s.touch()
	}
	return changed, nil
}

// Cancel marks the subscription canceled. Canceling twice is a no-op and reports false.
func (s *Subscription) Cancel() bool {
	if s.status == vo.StatusCanceled {
		return false
	}
	s.status = vo.StatusCanceled
	s.cancelAtPeriodEnd = false
	s.touch()
	return true
}

// ScheduleCancellation sets cancelAtPeriodEnd; entitlements continue until the period ends.
func (s *Subscription) ScheduleCancellation() error {
	if s.status.IsTerminal() {
		return ErrInvalidTransition(s.status.String(), "cancel_at_period_end")
	}
	s.cancelAtPeriodEnd = true
	s.touch()
	return nil
}

// Reactivate clears a scheduled cancellation.
func (s *Subscription) Reactivate() error {
	if s.status.IsTerminal() {
		return ErrInvalidTransition(s.status.String(), "reactivate")
	}
	s.cancelAtPeriodEnd = false
	s.touch()
	return nil
}

// ResetPeriodUsage zeroes the advisory counter at the start of a billing period.
func (s *Subscription) ResetPeriodUsage() {
	s.tokensUsedThisPeriod = 0
	s.touch()
}

func (s *Subscription) touch() {
	s.updatedAt = time.Now().UTC()
	s.version++
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
