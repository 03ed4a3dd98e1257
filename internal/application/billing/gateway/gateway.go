// Package gateway defines the contract between the billing core and the external
// payment provider. The core never talks to the provider SDK directly.
package gateway

import (
	"context"
	"time"

	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
)

// Gateway wraps the payment provider's billing API.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID string) (*PortalSession, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*SessionSnapshot, error)
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
	// ParseWebhook verifies signature against the configured secret and decodes payload.
	// Any verification failure is returned as *billing.SignatureVerificationError.
	ParseWebhook(payload []byte, signature string) (Event, error)
	CancelSubscription(ctx context.Context, subscriptionID string, immediate bool) (*SubscriptionSnapshot, error)
	ReactivateSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
}

// CheckoutRequest carries everything the provider needs to open a hosted checkout page.
type CheckoutRequest struct {
	UserID       uint
	UserEmail    string
	PlanID       uint
	BillingCycle vo.BillingCycle
	PriceID      string
	TrialDays    int
}

type CheckoutSession struct {
	ID  string
	URL string
}

type PortalSession struct {
	URL string
}

// SessionSnapshot is the provider's view of a checkout session.
type SessionSnapshot struct {
	ID             string
	PaymentStatus  string
	SubscriptionID string
	CustomerID     string
	CustomerEmail  string
	Metadata       map[string]string
}

// IsPaid reports whether the provider considers the session settled.
func (s *SessionSnapshot) IsPaid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// RequiresNoPayment reports a checkout that collected nothing up front, as with a trial.
func (s *SessionSnapshot) RequiresNoPayment() bool {
	return s.PaymentStatus == PaymentStatusNoPaymentRequired
}

// SubscriptionSnapshot is the provider's view of a recurring subscription.
// Timestamps are already converted from Unix seconds to UTC.
type SubscriptionSnapshot struct {
	ID                 string
	CustomerID         string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	Metadata           map[string]string
}

// InvoiceSnapshot is the subset of an invoice the reconciliation needs.
type InvoiceSnapshot struct {
	ID             string
	SubscriptionID string
	CustomerEmail  string
	AmountPaid     int64
	AmountDue      int64
	Currency       string
	PaidAt         time.Time
	PeriodStart    time.Time
	PeriodEnd      time.Time
	FailureMessage string
	// AttemptCount is the provider's payment attempt number for the invoice.
	AttemptCount int64
}

const (
	PaymentStatusPaid              = "paid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)
