// Package payment adapts the Stripe API to the billing gateway contract.
package payment

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/OliSalles/StoryTeller/internal/application/billing/gateway"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/biztime"
	"github.com/OliSalles/StoryTeller/internal/shared/config"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

const (
	stripeMaxNetworkRetries = 2
	checkoutSessionParam    = "session_id={CHECKOUT_SESSION_ID}"
)

// StripeGateway implements gateway.Gateway on top of the Stripe API.
// Without a secret key every API call fails with *billing.ConfigurationError.
type StripeGateway struct {
	client        *stripe.Client
	webhookSecret string
	timeout       time.Duration
	successURL    string
	cancelURL     string
	portalReturn  string
	logger        logger.Interface
}

// NewStripeGateway builds the gateway. baseURL is the public origin of the web app and
// prefixes the redirect paths in cfg.
func NewStripeGateway(cfg config.StripeConfig, baseURL string, log logger.Interface) *StripeGateway {
	base := strings.TrimRight(baseURL, "/")
	g := &StripeGateway{
		webhookSecret: cfg.WebhookSecret,
		timeout:       cfg.APITimeout(),
		successURL:    base + cfg.SuccessPath + "?" + checkoutSessionParam,
		cancelURL:     base + cfg.CancelPath,
		portalReturn:  base + cfg.PortalReturnPath,
		logger:        log,
	}

	if cfg.SecretKey == "" {
		log.Warnw("stripe secret key not configured, payment gateway disabled")
		return g
	}

	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: g.timeout},
		LeveledLogger:     newStripeLogger(log),
		MaxNetworkRetries: stripe.Int64(stripeMaxNetworkRetries),
	})
	g.client = stripe.NewClient(cfg.SecretKey, stripe.WithBackends(backends))
	return g
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	if g.client == nil {
		return nil, billing.ErrGatewayNotConfigured
	}
	if req.PriceID == "" {
		return nil, billing.ErrPriceNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionCreateParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		Metadata:   gateway.BuildCheckoutMetadata(req),
		SubscriptionData: &stripe.CheckoutSessionCreateSubscriptionDataParams{
			Metadata: map[string]string{
				gateway.MetadataUserID: strconv.FormatUint(uint64(req.UserID), 10),
			},
		},
	}
	if req.UserEmail != "" {
		params.CustomerEmail = stripe.String(req.UserEmail)
	}
	if req.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(int64(req.TrialDays))
	}

	session, err := g.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, g.wrap("create checkout session", err)
	}
	return &gateway.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID string) (*gateway.PortalSession, error) {
	if g.client == nil {
		return nil, billing.ErrGatewayNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	session, err := g.client.V1BillingPortalSessions.Create(ctx, &stripe.BillingPortalSessionCreateParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(g.portalReturn),
	})
	if err != nil {
		return nil, g.wrap("create portal session", err)
	}
	return &gateway.PortalSession{URL: session.URL}, nil
}

func (g *StripeGateway) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*gateway.SessionSnapshot, error) {
	if g.client == nil {
		return nil, billing.ErrGatewayNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	session, err := g.client.V1CheckoutSessions.Retrieve(ctx, sessionID, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		return nil, g.wrap("retrieve checkout session", err)
	}
	return sessionSnapshot(session), nil
}

func (g *StripeGateway) RetrieveSubscription(ctx context.Context, subscriptionID string) (*gateway.SubscriptionSnapshot, error) {
	if g.client == nil {
		return nil, billing.ErrGatewayNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	sub, err := g.client.V1Subscriptions.Retrieve(ctx, subscriptionID, &stripe.SubscriptionRetrieveParams{})
	if err != nil {
		return nil, g.wrap("retrieve subscription", err)
	}
	return subscriptionSnapshot(sub), nil
}

// CancelSubscription cancels right away when immediate is set, otherwise at period end.
func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string, immediate bool) (*gateway.SubscriptionSnapshot, error) {
	if g.client == nil {
		return nil, billing.ErrGatewayNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		sub *stripe.Subscription
		err error
	)
	if immediate {
		sub, err = g.client.V1Subscriptions.Cancel(ctx, subscriptionID, &stripe.SubscriptionCancelParams{})
	} else {
		sub, err = g.client.V1Subscriptions.Update(ctx, subscriptionID, &stripe.SubscriptionUpdateParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		})
	}
	if err != nil {
		return nil, g.wrap("cancel subscription", err)
	}
	return subscriptionSnapshot(sub), nil
}

func (g *StripeGateway) ReactivateSubscription(ctx context.Context, subscriptionID string) (*gateway.SubscriptionSnapshot, error) {
	if g.client == nil {
		return nil, billing.ErrGatewayNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	sub, err := g.client.V1Subscriptions.Update(ctx, subscriptionID, &stripe.SubscriptionUpdateParams{
		CancelAtPeriodEnd: stripe.Bool(false),
	})
	if err != nil {
		return nil, g.wrap("reactivate subscription", err)
	}
	return subscriptionSnapshot(sub), nil
}

func (g *StripeGateway) wrap(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		g.logger.Warnw("stripe api error",
			"op", op,
			"status", stripeErr.HTTPStatusCode,
			"code", stripeErr.Code,
			"request_id", stripeErr.RequestID,
			"message", stripeErr.Msg,
		)
	} else {
		g.logger.Warnw("stripe request failed", "op", op, "error", err)
	}
	return &billing.ExternalAPIError{Op: op, Err: err}
}

func sessionSnapshot(s *stripe.CheckoutSession) *gateway.SessionSnapshot {
	snap := &gateway.SessionSnapshot{
		ID:            s.ID,
		PaymentStatus: string(s.PaymentStatus),
		CustomerEmail: s.CustomerEmail,
		Metadata:      s.Metadata,
	}
	if s.Subscription != nil {
		snap.SubscriptionID = s.Subscription.ID
	}
	if s.Customer != nil {
		snap.CustomerID = s.Customer.ID
	}
	if snap.CustomerEmail == "" && s.CustomerDetails != nil {
		snap.CustomerEmail = s.CustomerDetails.Email
	}
	return snap
}

// subscriptionSnapshot reads the billing period from the first subscription item, which
// is where current API versions report it.
func subscriptionSnapshot(s *stripe.Subscription) *gateway.SubscriptionSnapshot {
	snap := &gateway.SubscriptionSnapshot{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		snap.CustomerID = s.Customer.ID
	}
	if s.Items != nil {
		for _, item := range s.Items.Data {
			if item != nil && item.CurrentPeriodStart > 0 {
				snap.CurrentPeriodStart = biztime.FromUnix(item.CurrentPeriodStart)
				snap.CurrentPeriodEnd = biztime.FromUnix(item.CurrentPeriodEnd)
				break
			}
		}
	}
	return snap
}

var _ gateway.Gateway = (*StripeGateway)(nil)
