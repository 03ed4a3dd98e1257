package usecases

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OliSalles/StoryTeller/internal/application/billing/gateway"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
)

func waitNotifications(t *testing.T, n *recordingNotifier, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		select {
		case <-n.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for notification %d", i+1)
		}
	}
}

func TestWebhook_CheckoutCompletedIsIdempotent(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Second)
	f.checkoutFor(1, f.pro, "cs_1", "sub_1", "trialing", start)

	payload, _ := f.checkoutEvent("evt_1", "cs_1")
	require.NoError(t, f.deliver(payload))
	require.NoError(t, f.deliver(payload))

	// Same subscription under a different event id bypasses the journal.
	payload2, _ := f.checkoutEvent("evt_2", "cs_1")
	require.NoError(t, f.deliver(payload2))

	assert.Equal(t, 1, f.subs.count())
	sub, err := f.subs.GetByExternalID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, vo.StatusTrialing, sub.Status())
	assert.Equal(t, uint(1), sub.UserID())
	assert.Equal(t, f.pro.ID(), sub.PlanID())
	assert.Equal(t, start, sub.CurrentPeriodStart())
	assert.Equal(t, "cus_cs_1", sub.ExternalCustomerIDValue())
	assert.Zero(t, sub.TokensUsedThisPeriod())
	assert.Equal(t, 2, f.gw.RetrieveCalls(), "journal short-circuits the redelivery of evt_1")

	waitNotifications(t, f.notifier, 1)
	assert.True(t, f.notifier.activated[0].Trialing)
}

func TestWebhook_CheckoutCompletedMissingMetadataIsNoop(t *testing.T) {
	f := newBillingFixture(t)
	f.gw.AddEvent("p", gateway.CheckoutCompletedEvent{
		EventMeta: gateway.EventMeta{ID: "evt_md", Type: gateway.EventCheckoutCompleted},
		Session:   gateway.SessionSnapshot{ID: "cs_x", SubscriptionID: "sub_x", Metadata: map[string]string{gateway.MetadataPlanID: "1"}},
	})

	assert.NoError(t, f.deliver("p"))
	assert.Zero(t, f.subs.count())
	assert.Zero(t, f.gw.RetrieveCalls())
}

func TestWebhook_CheckoutCompletedUnknownPlanIsNoop(t *testing.T) {
	f := newBillingFixture(t)
	f.gw.AddSubscription(gateway.SubscriptionSnapshot{ID: "sub_np", Status: "active"})
	f.gw.AddEvent("p", gateway.CheckoutCompletedEvent{
		EventMeta: gateway.EventMeta{ID: "evt_np", Type: gateway.EventCheckoutCompleted},
		Session: gateway.SessionSnapshot{ID: "cs_np", SubscriptionID: "sub_np", Metadata: map[string]string{
			gateway.MetadataUserID: "1", gateway.MetadataPlanID: "999", gateway.MetadataBillingCycle: "monthly",
		}},
	})

	assert.NoError(t, f.deliver("p"))
	assert.Zero(t, f.subs.count())
}

func TestWebhook_GatewayErrorPropagates(t *testing.T) {
	f := newBillingFixture(t)
	f.checkoutFor(1, f.pro, "cs_e", "sub_e", "active", time.Now().UTC())
	payload, _ := f.checkoutEvent("evt_e", "cs_e")
	f.gw.Err = &billing.ExternalAPIError{Op: "retrieve subscription", Err: context.DeadlineExceeded}

	err := f.deliver(payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	processed, _ := f.events.IsProcessed(context.Background(), "evt_e")
	assert.False(t, processed, "failed events are not journaled")
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	f := newBillingFixture(t)
	f.gw.AddEvent("p", gateway.IgnoredEvent{EventMeta: gateway.EventMeta{ID: "evt_i", Type: "customer.updated"}})

	err := f.webhook.Execute(context.Background(), []byte("p"), "forged")
	var sve *billing.SignatureVerificationError
	assert.ErrorAs(t, err, &sve)

	assert.NoError(t, f.deliver("p"))
}

func TestWebhook_PlanSwitchCancelsPreviousSubscription(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	f.checkoutFor(1, f.pro, "cs_a", "sub_a", "active", time.Now().UTC())
	f.checkoutFor(1, f.business, "cs_b", "sub_b", "active", time.Now().UTC())

	p1, _ := f.checkoutEvent("evt_a", "cs_a")
	p2, _ := f.checkoutEvent("evt_b", "cs_b")
	require.NoError(t, f.deliver(p1))
	require.NoError(t, f.deliver(p2))

	old, err := f.subs.GetByExternalID(ctx, "sub_a")
	require.NoError(t, err)
	assert.Equal(t, vo.StatusCanceled, old.Status())

	eff, err := f.resolver.ResolveEffectivePlan(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "business", eff.Plan.Name())
}

func TestWebhook_SubscriptionUpdated(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	createSubscription(t, f, 1, f.pro, vo.StatusActive, start, "sub_u")

	f.gw.AddEvent("upd", gateway.SubscriptionUpdatedEvent{
		EventMeta: gateway.EventMeta{ID: "evt_u", Type: gateway.EventSubscriptionUpdated},
		Subscription: gateway.SubscriptionSnapshot{
			ID:                 "sub_u",
			Status:             "unpaid",
			CurrentPeriodStart: start.AddDate(0, 1, 0),
			CurrentPeriodEnd:   start.AddDate(0, 2, 0),
			CancelAtPeriodEnd:  true,
		},
	})
	require.NoError(t, f.deliver("upd"))

	sub, err := f.subs.GetByExternalID(ctx, "sub_u")
	require.NoError(t, err)
	assert.Equal(t, vo.StatusPastDue, sub.Status())
	assert.True(t, sub.CancelAtPeriodEnd())
	assert.Equal(t, start.AddDate(0, 1, 0), sub.CurrentPeriodStart())

	f.gw.AddEvent("unknown", gateway.SubscriptionUpdatedEvent{
		EventMeta:    gateway.EventMeta{ID: "evt_unknown", Type: gateway.EventSubscriptionUpdated},
		Subscription: gateway.SubscriptionSnapshot{ID: "sub_nobody", Status: "active"},
	})
	require.NoError(t, f.deliver("unknown"))
	assert.Equal(t, 1, f.subs.count())
}

func TestWebhook_SubscriptionDeletedTwice(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	createSubscription(t, f, 1, f.pro, vo.StatusActive, time.Now().UTC(), "sub_d")

	for _, id := range []string{"evt_d1", "evt_d2"} {
		payload := "del-" + id
		f.gw.AddEvent(payload, gateway.SubscriptionDeletedEvent{
			EventMeta:    gateway.EventMeta{ID: id, Type: gateway.EventSubscriptionDeleted},
			Subscription: gateway.SubscriptionSnapshot{ID: "sub_d", Status: "canceled"},
		})
		require.NoError(t, f.deliver(payload))
	}

	sub, err := f.subs.GetByExternalID(ctx, "sub_d")
	require.NoError(t, err)
	assert.Equal(t, vo.StatusCanceled, sub.Status())
	assert.Empty(t, f.payments.payments)

	// A late update never resurrects a canceled row.
	f.gw.AddEvent("late", gateway.SubscriptionUpdatedEvent{
		EventMeta:    gateway.EventMeta{ID: "evt_late", Type: gateway.EventSubscriptionUpdated},
		Subscription: gateway.SubscriptionSnapshot{ID: "sub_d", Status: "active"},
	})
	require.NoError(t, f.deliver("late"))
	sub, err = f.subs.GetByExternalID(ctx, "sub_d")
	require.NoError(t, err)
	assert.Equal(t, vo.StatusCanceled, sub.Status())
}

func TestWebhook_InvoicePaidResetsPeriod(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	starter := f.plans.add(billing.PlanAttributes{Name: "starter", PriceMonthly: 990, TokensLimit: int64Ptr(1000), IsActive: true})

	oldStart := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	newStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sub := createSubscription(t, f, 1, starter, vo.StatusActive, oldStart, "sub_r")
	require.NoError(t, f.subs.IncrementTokenCounter(ctx, sub.ID(), 900))
	f.usage.addAt(1, 900, oldStart.Add(time.Hour))

	_, err := f.quota.CheckTokenQuota(ctx, 1, 200)
	require.True(t, billing.IsQuotaExceeded(err))

	inv := gateway.InvoiceSnapshot{
		ID:             "in_1",
		SubscriptionID: "sub_r",
		CustomerEmail:  "user@example.com",
		AmountPaid:     990,
		Currency:       "brl",
		PaidAt:         newStart,
		PeriodStart:    newStart,
		PeriodEnd:      newStart.AddDate(0, 1, 0),
	}
	for _, id := range []string{"evt_p1", "evt_p2"} {
		payload := "paid-" + id
		f.gw.AddEvent(payload, gateway.InvoicePaidEvent{
			EventMeta: gateway.EventMeta{ID: id, Type: gateway.EventInvoicePaid},
			Invoice:   inv,
		})
		require.NoError(t, f.deliver(payload))
	}

	stored, err := f.subs.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Zero(t, stored.TokensUsedThisPeriod())
	assert.Equal(t, newStart, stored.CurrentPeriodStart())

	require.Len(t, f.payments.payments, 1)
	p := f.payments.payments[0]
	assert.Equal(t, vo.PaymentStatusSucceeded, p.Status())
	assert.Equal(t, "BRL", p.Currency())
	assert.Equal(t, int64(990), p.Amount())

	_, err = f.quota.CheckTokenQuota(ctx, 1, 200)
	assert.NoError(t, err)

	waitNotifications(t, f.notifier, 1)
	assert.Equal(t, "in_1", f.notifier.succeeded[0].InvoiceID)
}

func TestWebhook_InvoiceFailedRecordsPayment(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	sub := createSubscription(t, f, 1, f.pro, vo.StatusActive, time.Now().UTC(), "sub_f")

	f.gw.AddEvent("fail", gateway.InvoiceFailedEvent{
		EventMeta: gateway.EventMeta{ID: "evt_f", Type: gateway.EventInvoiceFailed},
		Invoice:   gateway.InvoiceSnapshot{ID: "in_f", SubscriptionID: "sub_f", AmountDue: 4990, Currency: "usd"},
	})
	require.NoError(t, f.deliver("fail"))

	require.Len(t, f.payments.payments, 1)
	p := f.payments.payments[0]
	assert.Equal(t, vo.PaymentStatusFailed, p.Status())
	assert.Equal(t, billing.DefaultPaymentFailureMessage, *p.ErrorMessage())
	assert.Equal(t, int64(4990), p.Amount())

	stored, err := f.subs.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.StatusActive, stored.Status())
}

func TestWebhook_InvoiceFailedAppendsEachAttempt(t *testing.T) {
	f := newBillingFixture(t)
	createSubscription(t, f, 1, f.pro, vo.StatusPastDue, time.Now().UTC(), "sub_dun")

	reasons := []string{"card declined", "insufficient funds", "card expired"}
	for i, reason := range reasons {
		name := fmt.Sprintf("attempt-%d", i+1)
		f.gw.AddEvent(name, gateway.InvoiceFailedEvent{
			EventMeta: gateway.EventMeta{ID: fmt.Sprintf("evt_dun_%d", i+1), Type: gateway.EventInvoiceFailed},
			Invoice: gateway.InvoiceSnapshot{
				ID: "in_dun", SubscriptionID: "sub_dun", AmountDue: 4990, Currency: "usd",
				FailureMessage: reason, AttemptCount: int64(i + 1),
			},
		})
		require.NoError(t, f.deliver(name))
	}

	// Redelivery of an attempt already recorded.
	require.NoError(t, f.deliver("attempt-2"))

	require.Len(t, f.payments.payments, len(reasons))
	for i, p := range f.payments.payments {
		assert.Equal(t, vo.PaymentStatusFailed, p.Status())
		assert.Equal(t, "in_dun", *p.ExternalPaymentID())
		assert.Equal(t, fmt.Sprintf("evt_dun_%d", i+1), p.AttemptRef())
		assert.Equal(t, reasons[i], *p.ErrorMessage())
	}
}

func TestFailedAttemptRef(t *testing.T) {
	withID := gateway.InvoiceFailedEvent{
		EventMeta: gateway.EventMeta{ID: "evt_9"},
		Invoice:   gateway.InvoiceSnapshot{AttemptCount: 2},
	}
	assert.Equal(t, "evt_9", failedAttemptRef(withID))

	withoutID := gateway.InvoiceFailedEvent{Invoice: gateway.InvoiceSnapshot{AttemptCount: 3}}
	assert.Equal(t, "attempt-3", failedAttemptRef(withoutID))
}

func TestWebhook_InvoiceWithoutKnownSubscription(t *testing.T) {
	f := newBillingFixture(t)
	f.gw.AddEvent("a", gateway.InvoicePaidEvent{
		EventMeta: gateway.EventMeta{ID: "evt_a", Type: gateway.EventInvoicePaid},
		Invoice:   gateway.InvoiceSnapshot{ID: "in_a"},
	})
	f.gw.AddEvent("b", gateway.InvoicePaidEvent{
		EventMeta: gateway.EventMeta{ID: "evt_b", Type: gateway.EventInvoicePaid},
		Invoice:   gateway.InvoiceSnapshot{ID: "in_b", SubscriptionID: "sub_unknown"},
	})

	assert.NoError(t, f.deliver("a"))
	assert.NoError(t, f.deliver("b"))
	assert.Empty(t, f.payments.payments)
}

func TestEndToEnd_FreeUserUpgrades(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	f.usage.addAt(1, 49_900, now.Add(-time.Minute))

	_, err := f.quota.CheckTokenQuota(ctx, 1, 200)
	var qe *billing.QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "free", qe.PlanName)

	f.checkoutFor(1, f.pro, "cs_up", "sub_up", "active", now)
	payload, _ := f.checkoutEvent("evt_up", "cs_up")
	require.NoError(t, f.deliver(payload))

	sub, err := f.subs.GetByExternalID(ctx, "sub_up")
	require.NoError(t, err)
	assert.Equal(t, vo.StatusActive, sub.Status())
	assert.Zero(t, sub.TokensUsedThisPeriod())

	res, err := f.quota.CheckTokenQuota(ctx, 1, 200)
	require.NoError(t, err)
	assert.Equal(t, "pro", res.PlanName)
	assert.Equal(t, int64(500_000), *res.Limit)
}

func TestRaceConvergence_WebhookAndSync(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newBillingFixture(t)
		f.checkoutFor(1, f.pro, "cs_r", "sub_race", "active", time.Now().UTC())
		payload, _ := f.checkoutEvent("evt_r", "cs_r")

		var (
			wg         sync.WaitGroup
			webhookErr error
			syncErrs   [3]error
			results    [3]uint
		)
		wg.Add(4)
		go func() {
			defer wg.Done()
			webhookErr = f.deliver(payload)
		}()
		for j := 0; j < 3; j++ {
			go func(j int) {
				defer wg.Done()
				res, err := f.sync.Execute(context.Background(), SyncFromCheckoutSessionCommand{UserID: 1, SessionID: "cs_r"})
				syncErrs[j] = err
				if err == nil {
					results[j] = res.SubscriptionID
				}
			}(j)
		}
		wg.Wait()

		require.NoError(t, webhookErr)
		for j := range syncErrs {
			require.NoError(t, syncErrs[j])
		}
		require.Equal(t, 1, f.subs.count())

		sub, err := f.subs.GetByExternalID(context.Background(), "sub_race")
		require.NoError(t, err)
		assert.Equal(t, vo.StatusActive, sub.Status())
		for _, id := range results {
			assert.Equal(t, sub.ID(), id)
		}
	}
}
