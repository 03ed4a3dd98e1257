// Package usecases implements the billing core: plan catalog, quota admission control,
// the usage ledger and the reconciliation of provider state into local subscriptions.
package usecases

import (
	"context"
	"time"
)

// BillingNotifier sends user-facing billing emails. Implementations must not block on
// delivery; errors are logged by the caller and never fail the billing operation.
type BillingNotifier interface {
	NotifySubscriptionActivated(ctx context.Context, cmd SubscriptionActivatedNotice) error
	NotifyPaymentSucceeded(ctx context.Context, cmd PaymentNotice) error
	NotifyPaymentFailed(ctx context.Context, cmd PaymentNotice) error
}

type SubscriptionActivatedNotice struct {
	Email            string
	PlanDisplayName  string
	BillingCycle     string
	Trialing         bool
	CurrentPeriodEnd time.Time
}

type PaymentNotice struct {
	Email        string
	Amount       int64
	Currency     string
	InvoiceID    string
	PaidAt       time.Time
	ErrorMessage string
}

// BillingMetrics records reconciliation and admission outcomes.
type BillingMetrics interface {
	WebhookProcessed(eventType, outcome string)
	SubscriptionMaterialized(path, outcome string)
	QuotaRejected(planName string)
}

// Outcomes reported to BillingMetrics.
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
	OutcomeCreated   = "created"
	OutcomeExisting  = "existing"

	PathWebhook = "webhook"
	PathSync    = "sync"
	PathManual  = "manual"
)

// Transactor runs fn in a single database transaction.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type nopMetrics struct{}

func (nopMetrics) WebhookProcessed(string, string)         {}
func (nopMetrics) SubscriptionMaterialized(string, string) {}
func (nopMetrics) QuotaRejected(string)                    {}

type noTransaction struct{}

func (noTransaction) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
