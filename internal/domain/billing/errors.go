package billing

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrPlanNotFound            = errors.New("plan not found")
	ErrSubscriptionNotFound    = errors.New("subscription not found")
	ErrNoActiveSubscription    = errors.New("no active subscription")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrPaymentNotSettled       = errors.New("payment has not been confirmed yet")
	ErrNoSubscriptionOnSession = errors.New("no subscription attached to checkout session")
	ErrPriceNotConfigured      = errors.New("price not configured for this plan and billing cycle")
	ErrInvalidPlan             = errors.New("invalid plan")
	ErrInvalidSubscription     = errors.New("invalid subscription")
	ErrInvalidUsage            = errors.New("invalid usage entry")
	ErrInvalidPayment          = errors.New("invalid payment")

	ErrGatewayNotConfigured = &ConfigurationError{Setting: "stripe.secret_key"}
	ErrWebhookSecretMissing = &ConfigurationError{Setting: "stripe.webhook_secret"}
)

func ErrInvalidTransition(from, to string) error {
	return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, from, to)
}

// ConfigurationError means the payment gateway cannot be used until Setting is configured.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("payment gateway not configured: set %s", e.Setting)
}

// SignatureVerificationError wraps any failure to authenticate an inbound webhook.
type SignatureVerificationError struct {
	Err error
}

func (e *SignatureVerificationError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.Err)
}

func (e *SignatureVerificationError) Unwrap() error {
	return e.Err
}

// MissingMetadataError lists the checkout metadata keys that were absent or unparsable.
type MissingMetadataError struct {
	SessionID string
	Fields    []string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("checkout session %s is missing metadata: %s", e.SessionID, strings.Join(e.Fields, ", "))
}

// QuotaExceededError is returned by admission control before a metered operation runs.
type QuotaExceededError struct {
	PlanName  string
	Limit     int64
	Used      int64
	Requested int64
}

var numberPrinter = message.NewPrinter(language.English)

func (e *QuotaExceededError) Error() string {
	return numberPrinter.Sprintf("token limit of %d reached on plan %s (used %d, requested %d)",
		e.Limit, e.PlanName, e.Used, e.Requested)
}

// ExternalAPIError wraps failures talking to the payment provider.
type ExternalAPIError struct {
	Op  string
	Err error
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("payment provider %s failed: %v", e.Op, e.Err)
}

func (e *ExternalAPIError) Unwrap() error {
	return e.Err
}

// DuplicateSubscriptionError reports that a row for ExternalSubscriptionID already exists.
// Reconciliation treats it as success.
type DuplicateSubscriptionError struct {
	ExternalSubscriptionID string
}

func (e *DuplicateSubscriptionError) Error() string {
	return fmt.Sprintf("subscription %s already exists", e.ExternalSubscriptionID)
}

func IsQuotaExceeded(err error) bool {
	var target *QuotaExceededError
	return errors.As(err, &target)
}

func IsDuplicateSubscription(err error) bool {
	var target *DuplicateSubscriptionError
	return errors.As(err, &target)
}

func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
