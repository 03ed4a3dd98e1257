package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/OliSalles/StoryTeller/internal/application/billing/gateway"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/config"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

const testWebhookSecret = "whsec_test_secret"

func newTestGateway(secretKey string) *StripeGateway {
	return NewStripeGateway(config.StripeConfig{
		SecretKey:        secretKey,
		WebhookSecret:    testWebhookSecret,
		SuccessPath:      "/subscription/success",
		CancelPath:       "/pricing",
		PortalReturnPath: "/account/subscription",
	}, "https://app.example.com/", logger.NewNopLogger())
}

func signed(t *testing.T, body string) ([]byte, string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(body),
		Secret:  testWebhookSecret,
	})
	return sp.Payload, sp.Header
}

func eventJSON(id, typ, object string) string {
	return `{"id":"` + id + `","object":"event","api_version":"2020-08-27","type":"` + typ + `","data":{"object":` + object + `}}`
}

func TestNewStripeGateway_RedirectURLs(t *testing.T) {
	g := newTestGateway("")
	assert.Equal(t, "https://app.example.com/subscription/success?session_id={CHECKOUT_SESSION_ID}", g.successURL)
	assert.Equal(t, "https://app.example.com/pricing", g.cancelURL)
	assert.Equal(t, "https://app.example.com/account/subscription", g.portalReturn)
	assert.Equal(t, 10*time.Second, g.timeout)
}

func TestStripeGateway_NotConfigured(t *testing.T) {
	g := newTestGateway("")
	ctx := context.Background()

	_, err := g.CreateCheckoutSession(ctx, gateway.CheckoutRequest{PriceID: "price_1"})
	assert.True(t, billing.IsConfigurationError(err))
	_, err = g.RetrieveSubscription(ctx, "sub_1")
	assert.True(t, billing.IsConfigurationError(err))
	_, err = g.CancelSubscription(ctx, "sub_1", true)
	assert.True(t, billing.IsConfigurationError(err))
}

func TestParseWebhook_SecretMissing(t *testing.T) {
	g := NewStripeGateway(config.StripeConfig{}, "", logger.NewNopLogger())
	_, err := g.ParseWebhook([]byte(`{}`), "t=1,v1=abc")
	assert.True(t, billing.IsConfigurationError(err))
}

func TestParseWebhook_BadSignature(t *testing.T) {
	g := newTestGateway("")
	payload, header := signed(t, eventJSON("evt_1", "customer.updated", `{"id":"cus_1"}`))

	_, err := g.ParseWebhook(payload, header+"tampered")
	var sigErr *billing.SignatureVerificationError
	assert.ErrorAs(t, err, &sigErr)

	_, err = g.ParseWebhook(append(payload, ' '), header)
	assert.ErrorAs(t, err, &sigErr)
}

func TestParseWebhook_CheckoutCompleted(t *testing.T) {
	g := newTestGateway("")
	payload, header := signed(t, eventJSON("evt_cs", gateway.EventCheckoutCompleted, `{
		"id":"cs_1","object":"checkout.session","payment_status":"paid",
		"subscription":"sub_1","customer":"cus_1","customer_details":{"email":"a@example.com"},
		"metadata":{"userId":"42","planId":"2","billingCycle":"yearly"}}`))

	ev, err := g.ParseWebhook(payload, header)
	require.NoError(t, err)

	e, ok := ev.(gateway.CheckoutCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, "evt_cs", e.ID)
	assert.Equal(t, payload, e.Payload)
	assert.True(t, e.Session.IsPaid())
	assert.Equal(t, "sub_1", e.Session.SubscriptionID)
	assert.Equal(t, "cus_1", e.Session.CustomerID)
	assert.Equal(t, "a@example.com", e.Session.CustomerEmail)
	assert.Equal(t, "42", e.Session.Metadata[gateway.MetadataUserID])
}

func TestParseWebhook_SubscriptionUpdated(t *testing.T) {
	g := newTestGateway("")

	t.Run("item level period", func(t *testing.T) {
		payload, header := signed(t, eventJSON("evt_su", gateway.EventSubscriptionUpdated, `{
			"id":"sub_1","object":"subscription","status":"past_due","customer":"cus_1",
			"cancel_at_period_end":true,
			"items":{"object":"list","data":[{"id":"si_1","current_period_start":1746057600,"current_period_end":1748736000}]}}`))

		ev, err := g.ParseWebhook(payload, header)
		require.NoError(t, err)
		e, ok := ev.(gateway.SubscriptionUpdatedEvent)
		require.True(t, ok)
		assert.Equal(t, "past_due", e.Subscription.Status)
		assert.True(t, e.Subscription.CancelAtPeriodEnd)
		assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), e.Subscription.CurrentPeriodStart)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), e.Subscription.CurrentPeriodEnd)
	})

	t.Run("legacy subscription level period", func(t *testing.T) {
		payload, header := signed(t, eventJSON("evt_sd", gateway.EventSubscriptionDeleted, `{
			"id":"sub_2","object":"subscription","status":"canceled",
			"current_period_start":1746057600,"current_period_end":1748736000}`))

		ev, err := g.ParseWebhook(payload, header)
		require.NoError(t, err)
		e, ok := ev.(gateway.SubscriptionDeletedEvent)
		require.True(t, ok)
		assert.Equal(t, "sub_2", e.Subscription.ID)
		assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), e.Subscription.CurrentPeriodStart)
	})
}

func TestParseWebhook_Invoices(t *testing.T) {
	g := newTestGateway("")

	t.Run("paid with parent subscription details", func(t *testing.T) {
		payload, header := signed(t, eventJSON("evt_ip", gateway.EventInvoicePaid, `{
			"id":"in_1","object":"invoice","amount_paid":4990,"amount_due":4990,"currency":"brl",
			"customer_email":"a@example.com",
			"parent":{"type":"subscription_details","subscription_details":{"subscription":"sub_1"}},
			"status_transitions":{"paid_at":1746057700},
			"lines":{"object":"list","data":[{"period":{"start":1746057600,"end":1748736000}}]}}`))

		ev, err := g.ParseWebhook(payload, header)
		require.NoError(t, err)
		e, ok := ev.(gateway.InvoicePaidEvent)
		require.True(t, ok)
		assert.Equal(t, "sub_1", e.Invoice.SubscriptionID)
		assert.Equal(t, int64(4990), e.Invoice.AmountPaid)
		assert.Equal(t, "brl", e.Invoice.Currency)
		assert.Equal(t, time.Unix(1746057700, 0).UTC(), e.Invoice.PaidAt)
		assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), e.Invoice.PeriodStart)
	})

	t.Run("failed with legacy subscription field", func(t *testing.T) {
		payload, header := signed(t, eventJSON("evt_if", gateway.EventInvoiceFailed, `{
			"id":"in_2","object":"invoice","amount_due":990,"currency":"usd","attempt_count":2,
			"subscription":{"id":"sub_9","object":"subscription"},
			"last_finalization_error":{"message":"Your card was declined."}}`))

		ev, err := g.ParseWebhook(payload, header)
		require.NoError(t, err)
		e, ok := ev.(gateway.InvoiceFailedEvent)
		require.True(t, ok)
		assert.Equal(t, "sub_9", e.Invoice.SubscriptionID)
		assert.Equal(t, int64(990), e.Invoice.AmountDue)
		assert.Equal(t, "Your card was declined.", e.Invoice.FailureMessage)
		assert.Equal(t, int64(2), e.Invoice.AttemptCount)
		assert.Equal(t, "evt_if", e.ID)
		assert.True(t, e.Invoice.PaidAt.IsZero())
	})
}

func TestParseWebhook_IgnoredTypes(t *testing.T) {
	g := newTestGateway("")
	for _, typ := range []string{"customer.subscription.created", "payment_method.attached", "billing_portal.session.created"} {
		payload, header := signed(t, eventJSON("evt_"+typ, typ, `{"id":"obj_1"}`))
		ev, err := g.ParseWebhook(payload, header)
		require.NoError(t, err, typ)
		_, ok := ev.(gateway.IgnoredEvent)
		assert.True(t, ok, typ)
		assert.Equal(t, typ, ev.Meta().Type)
	}
}
