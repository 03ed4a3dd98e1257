package billing

import (
	"fmt"
	"strings"
	"time"

	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
)

// DefaultPaymentFailureMessage is stored when the provider gives no reason.
const DefaultPaymentFailureMessage = "Payment failed"

// Payment is an append-only record of one settlement attempt. A successful settlement is
// recorded once per invoice; failures carry an attempt reference so every dunning retry
// appends its own row.
type Payment struct {
	id                uint
	subscriptionID    uint
	amount            int64
	currency          string
	status            vo.PaymentStatus
	externalPaymentID *string
	attemptRef        string
	paidAt            *time.Time
	errorMessage      *string
	createdAt         time.Time
}

// NewSucceededPayment records a settled invoice.
func NewSucceededPayment(subscriptionID uint, amount int64, currency, externalPaymentID string, paidAt time.Time) (*Payment, error) {
	p, err := newPayment(subscriptionID, amount, currency, externalPaymentID, vo.PaymentStatusSucceeded)
	if err != nil {
		return nil, err
	}
	if !paidAt.IsZero() {
		p.paidAt = &paidAt
	}
	return p, nil
}

// NewFailedPayment records a failed settlement attempt with the provider's reason.
// attemptRef identifies the attempt within the invoice and is required.
func NewFailedPayment(subscriptionID uint, amount int64, currency, externalPaymentID, attemptRef, reason string) (*Payment, error) {
	p, err := newPayment(subscriptionID, amount, currency, externalPaymentID, vo.PaymentStatusFailed)
	if err != nil {
		return nil, err
	}
	attemptRef = strings.TrimSpace(attemptRef)
	if attemptRef == "" {
		return nil, fmt.Errorf("%w: attempt reference is required for a failed payment", ErrInvalidPayment)
	}
	p.attemptRef = attemptRef
	if strings.TrimSpace(reason) == "" {
		reason = DefaultPaymentFailureMessage
	}
	p.errorMessage = &reason
	return p, nil
}

func newPayment(subscriptionID uint, amount int64, currency, externalPaymentID string, status vo.PaymentStatus) (*Payment, error) {
	if subscriptionID == 0 {
		return nil, fmt.Errorf("%w: subscription ID is required", ErrInvalidPayment)
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: amount cannot be negative", ErrInvalidPayment)
	}
	return &Payment{
		subscriptionID:    subscriptionID,
		amount:            amount,
		currency:          strings.ToUpper(currency),
		status:            status,
		externalPaymentID: optionalString(externalPaymentID),
		createdAt:         time.Now().UTC(),
	}, nil
}

// ReconstructPayment rebuilds a persisted payment.
func ReconstructPayment(
	id, subscriptionID uint,
	amount int64,
	currency string,
	status vo.PaymentStatus,
	externalPaymentID *string,
	attemptRef string,
	paidAt *time.Time,
	errorMessage *string,
	createdAt time.Time,
) (*Payment, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: payment ID cannot be zero", ErrInvalidPayment)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidPayment, status)
	}
	return &Payment{
		id:                id,
		subscriptionID:    subscriptionID,
		amount:            amount,
		currency:          currency,
		status:            status,
		externalPaymentID: externalPaymentID,
		attemptRef:        attemptRef,
		paidAt:            paidAt,
		errorMessage:      errorMessage,
		createdAt:         createdAt,
	}, nil
}

func (p *Payment) ID() uint { return p.id }
func (p *Payment) SubscriptionID() uint { return p.subscriptionID }
func (p *Payment) Amount() int64 { return p.amount }
func (p *Payment) Currency() string { return p.currency }
func (p *Payment) Status() vo.PaymentStatus { return p.status }
func (p *Payment) ExternalPaymentID() *string { return p.externalPaymentID }
func (p *Payment) AttemptRef() string { return p.attemptRef }
func (p *Payment) PaidAt() *time.Time { return p.paidAt }
func (p *Payment) ErrorMessage() *string { return p.errorMessage }
func (p *Payment) CreatedAt() time.Time { return p.createdAt }

func (p *Payment) SetID(id uint) error {
	if p.id != 0 {
		return fmt.Errorf("payment ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("payment ID cannot be zero")
	}
	p.id = id
	return nil
}
