package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
)

// MockSignature is the only signature MockGateway accepts.
const MockSignature = "mock-signature"

// MockGateway is an in-memory Gateway used by use-case and handler tests.
type MockGateway struct {
	mu sync.Mutex

	sessions      map[string]*SessionSnapshot
	subscriptions map[string]*SubscriptionSnapshot
	events        map[string]Event

	// Err, when set, is returned by every provider call.
	Err error

	CheckoutRequests []CheckoutRequest
	Canceled         map[string]bool
	retrieveCalls    int
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		sessions:      make(map[string]*SessionSnapshot),
		subscriptions: make(map[string]*SubscriptionSnapshot),
		events:        make(map[string]Event),
		Canceled:      make(map[string]bool),
	}
}

func (m *MockGateway) AddSession(s SessionSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &s
}

func (m *MockGateway) AddSubscription(s SubscriptionSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[s.ID] = &s
}

// AddEvent makes ParseWebhook return ev for payload.
func (m *MockGateway) AddEvent(payload string, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[payload] = ev
}

func (m *MockGateway) RetrieveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retrieveCalls
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.CheckoutRequests = append(m.CheckoutRequests, req)
	id := fmt.Sprintf("cs_mock_%d", len(m.CheckoutRequests))
	m.sessions[id] = &SessionSnapshot{ID: id, PaymentStatus: "unpaid", CustomerEmail: req.UserEmail, Metadata: BuildCheckoutMetadata(req)}
	return &CheckoutSession{ID: id, URL: "https://checkout.mock.test/" + id}, nil
}

func (m *MockGateway) CreatePortalSession(ctx context.Context, customerID string) (*PortalSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return &PortalSession{URL: "https://portal.mock.test/" + customerID}, nil
}

func (m *MockGateway) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, &billing.ExternalAPIError{Op: "retrieve checkout session", Err: errors.New("no such checkout session")}
	}
	cp := *s
	return &cp, nil
}

func (m *MockGateway) RetrieveSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrieveCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.subscriptions[subscriptionID]
	if !ok {
		return nil, &billing.ExternalAPIError{Op: "retrieve subscription", Err: errors.New("no such subscription")}
	}
	cp := *s
	return &cp, nil
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if signature != MockSignature {
		return nil, &billing.SignatureVerificationError{Err: errors.New("signature mismatch")}
	}
	ev, ok := m.events[string(payload)]
	if !ok {
		return nil, &billing.SignatureVerificationError{Err: errors.New("unparsable payload")}
	}
	return ev, nil
}

func (m *MockGateway) CancelSubscription(ctx context.Context, subscriptionID string, immediate bool) (*SubscriptionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.subscriptions[subscriptionID]
	if !ok {
		return nil, &billing.ExternalAPIError{Op: "cancel subscription", Err: errors.New("no such subscription")}
	}
	if immediate {
		s.Status = "canceled"
	} else {
		s.CancelAtPeriodEnd = true
	}
	m.Canceled[subscriptionID] = true
	cp := *s
	return &cp, nil
}

func (m *MockGateway) ReactivateSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.subscriptions[subscriptionID]
	if !ok {
		return nil, &billing.ExternalAPIError{Op: "reactivate subscription", Err: errors.New("no such subscription")}
	}
	s.CancelAtPeriodEnd = false
	delete(m.Canceled, subscriptionID)
	cp := *s
	return &cp, nil
}

var _ Gateway = (*MockGateway)(nil)
