package payment

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/OliSalles/StoryTeller/internal/application/billing/gateway"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/biztime"
)

// ParseWebhook verifies the Stripe-Signature header and decodes the event. The account's
// webhook endpoint may be pinned to an older API version than the SDK, so version
// mismatches are accepted and payload fields are read in both layouts.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (gateway.Event, error) {
	if g.webhookSecret == "" {
		return nil, billing.ErrWebhookSecretMissing
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, &billing.SignatureVerificationError{Err: err}
	}

	meta := gateway.EventMeta{ID: event.ID, Type: string(event.Type), Payload: payload}
	if event.Data == nil {
		return nil, &billing.SignatureVerificationError{Err: fmt.Errorf("event %s has no data object", event.ID)}
	}
	ev, err := decodeEvent(meta, event.Data.Raw)
	if err != nil {
		return nil, &billing.SignatureVerificationError{Err: fmt.Errorf("failed to decode %s: %w", event.Type, err)}
	}
	return ev, nil
}

func decodeEvent(meta gateway.EventMeta, raw json.RawMessage) (gateway.Event, error) {
	switch meta.Type {
	case gateway.EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(raw, &session); err != nil {
			return nil, err
		}
		return gateway.CheckoutCompletedEvent{EventMeta: meta, Session: *sessionSnapshot(&session)}, nil

	case gateway.EventSubscriptionUpdated, gateway.EventSubscriptionDeleted:
		snap, err := decodeSubscription(raw)
		if err != nil {
			return nil, err
		}
		if meta.Type == gateway.EventSubscriptionDeleted {
			return gateway.SubscriptionDeletedEvent{EventMeta: meta, Subscription: *snap}, nil
		}
		return gateway.SubscriptionUpdatedEvent{EventMeta: meta, Subscription: *snap}, nil

	case gateway.EventInvoicePaid, gateway.EventInvoiceFailed:
		var inv invoicePayload
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, err
		}
		snap := inv.snapshot()
		if meta.Type == gateway.EventInvoiceFailed {
			return gateway.InvoiceFailedEvent{EventMeta: meta, Invoice: snap}, nil
		}
		return gateway.InvoicePaidEvent{EventMeta: meta, Invoice: snap}, nil

	default:
		return gateway.IgnoredEvent{EventMeta: meta}, nil
	}
}

// legacyPeriod holds the subscription-level period reported by older API versions.
type legacyPeriod struct {
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
}

func decodeSubscription(raw json.RawMessage) (*gateway.SubscriptionSnapshot, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, err
	}
	snap := subscriptionSnapshot(&sub)
	if snap.CurrentPeriodStart.IsZero() {
		var legacy legacyPeriod
		if err := json.Unmarshal(raw, &legacy); err == nil {
			snap.CurrentPeriodStart = biztime.FromUnix(legacy.CurrentPeriodStart)
			snap.CurrentPeriodEnd = biztime.FromUnix(legacy.CurrentPeriodEnd)
		}
	}
	return snap, nil
}

// expandableID accepts either an object id string or an expanded object carrying "id".
type expandableID string

func (e *expandableID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

type invoicePayload struct {
	ID            string       `json:"id"`
	CustomerEmail string       `json:"customer_email"`
	AmountPaid    int64        `json:"amount_paid"`
	AmountDue     int64        `json:"amount_due"`
	Currency      string       `json:"currency"`
	AttemptCount  int64        `json:"attempt_count"`
	Subscription  expandableID `json:"subscription"`
	Parent        *struct {
		SubscriptionDetails *struct {
			Subscription expandableID `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
	Lines struct {
		Data []struct {
			Period struct {
				Start int64 `json:"start"`
				End   int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
	LastFinalizationError *struct {
		Message string `json:"message"`
	} `json:"last_finalization_error"`
}

func (p *invoicePayload) snapshot() gateway.InvoiceSnapshot {
	snap := gateway.InvoiceSnapshot{
		ID:             p.ID,
		SubscriptionID: string(p.Subscription),
		CustomerEmail:  p.CustomerEmail,
		AmountPaid:     p.AmountPaid,
		AmountDue:      p.AmountDue,
		Currency:       p.Currency,
		AttemptCount:   p.AttemptCount,
		PaidAt:         biztime.FromUnix(p.StatusTransitions.PaidAt),
	}
	if p.Parent != nil && p.Parent.SubscriptionDetails != nil && p.Parent.SubscriptionDetails.Subscription != "" {
		snap.SubscriptionID = string(p.Parent.SubscriptionDetails.Subscription)
	}
	for _, line := range p.Lines.Data {
		if line.Period.Start > 0 {
			snap.PeriodStart = biztime.FromUnix(line.Period.Start)
			snap.PeriodEnd = biztime.FromUnix(line.Period.End)
			break
		}
	}
	if p.LastFinalizationError != nil {
		snap.FailureMessage = p.LastFinalizationError.Message
	}
	return snap
}
