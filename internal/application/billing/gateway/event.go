package gateway

// Event types the reconciliation acts on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"
)

// EventMeta identifies one provider delivery.
type EventMeta struct {
	ID      string
	Type    string
	Payload []byte
}

// Event is a verified provider event. The set of implementations is closed:
// CheckoutCompletedEvent, SubscriptionUpdatedEvent, SubscriptionDeletedEvent,
// InvoicePaidEvent, InvoiceFailedEvent and IgnoredEvent.
type Event interface {
	Meta() EventMeta
	sealed()
}

type CheckoutCompletedEvent struct {
	EventMeta
	Session SessionSnapshot
}

type SubscriptionUpdatedEvent struct {
	EventMeta
	Subscription SubscriptionSnapshot
}

type SubscriptionDeletedEvent struct {
	EventMeta
	Subscription SubscriptionSnapshot
}

type InvoicePaidEvent struct {
	EventMeta
	Invoice InvoiceSnapshot
}

type InvoiceFailedEvent struct {
	EventMeta
	Invoice InvoiceSnapshot
}

// IgnoredEvent is any verified event the billing core does not act on.
type IgnoredEvent struct {
	EventMeta
}

func (m EventMeta) Meta() EventMeta { return m }

func (CheckoutCompletedEvent) sealed()   {}
func (SubscriptionUpdatedEvent) sealed() {}
func (SubscriptionDeletedEvent) sealed() {}
func (InvoicePaidEvent) sealed()         {}
func (InvoiceFailedEvent) sealed()       {}
func (IgnoredEvent) sealed()             {}
