package valueobjects

import "slices"

type SubscriptionStatus string

const (
	StatusActive     SubscriptionStatus = "active"
	StatusTrialing   SubscriptionStatus = "trialing"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusCanceled   SubscriptionStatus = "canceled"
	StatusIncomplete SubscriptionStatus = "incomplete"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) IsValid() bool {
	return ValidStatuses[s]
}

// CanUseService reports whether the subscription currently grants its plan's entitlements.
func (s SubscriptionStatus) CanUseService() bool {
	return s == StatusActive || s == StatusTrialing
}

func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCanceled
}

// CanTransitionTo follows the provider's lifecycle. Canceled is terminal: a canceled
// provider subscription is never resumed, a new one is created instead.
func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	if s == target {
		return !s.IsTerminal()
	}
	transitions := map[SubscriptionStatus][]SubscriptionStatus{
		StatusIncomplete: {StatusActive, StatusTrialing, StatusPastDue, StatusCanceled},
		StatusTrialing:   {StatusActive, StatusPastDue, StatusCanceled, StatusIncomplete},
		StatusActive:     {StatusPastDue, StatusCanceled},
		StatusPastDue:    {StatusActive, StatusCanceled},
		StatusCanceled:   {},
	}
	return slices.Contains(transitions[s], target)
}

var ValidStatuses = map[SubscriptionStatus]bool{
	StatusActive:     true,
	StatusTrialing:   true,
	StatusPastDue:    true,
	StatusCanceled:   true,
	StatusIncomplete: true,
}

// StatusFromProvider maps a payment provider subscription status onto the local set.
// Unknown values map to incomplete so they never grant entitlements.
func StatusFromProvider(status string) SubscriptionStatus {
	switch status {
	case "active":
		return StatusActive
	case "trialing":
		return StatusTrialing
	case "past_due", "unpaid", "paused":
		return StatusPastDue
	case "canceled", "incomplete_expired":
		return StatusCanceled
	default:
		return StatusIncomplete
	}
}

// InitialStatusFromProvider is used when a subscription row is first materialised
// after checkout: the row starts trialing if the provider says so and active otherwise.
func InitialStatusFromProvider(status string) SubscriptionStatus {
	if status == "trialing" {
		return StatusTrialing
	}
	return StatusActive
}
