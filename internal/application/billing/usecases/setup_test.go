package usecases

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/OliSalles/StoryTeller/internal/application/billing/gateway"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

const testFreeTokens int64 = 50_000

func int64Ptr(v int64) *int64 { return &v }

// billingFixture wires every use case against in-memory repositories.
type billingFixture struct {
	plans    *fakePlanRepo
	subs     *fakeSubscriptionRepo
	payments *fakePaymentRepo
	usage    *fakeUsageRepo
	events   *fakeEventRepo
	tx       *fakeTx
	gw       *gateway.MockGateway
	notifier *recordingNotifier

	pro      *billing.Plan
	business *billing.Plan

	resolver *PlanResolver
	quota    *QuotaService
	record   *RecordUsageUseCase
	webhook  *HandleWebhookUseCase
	sync     *SyncFromCheckoutSessionUseCase
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	log := logger.NewNopLogger()

	f := &billingFixture{
		plans:    newFakePlanRepo(),
		subs:     newFakeSubscriptionRepo(),
		payments: &fakePaymentRepo{},
		usage:    &fakeUsageRepo{},
		events:   newFakeEventRepo(),
		gw:       gateway.NewMockGateway(),
		notifier: newRecordingNotifier(),
	}
	f.tx = &fakeTx{subs: f.subs}

	f.pro = f.plans.add(billing.PlanAttributes{
		Name:                 "pro",
		DisplayName:          "Pro",
		PriceMonthly:         4990,
		PriceYearly:          49900,
		TokensLimit:          int64Ptr(500_000),
		CanExportJira:        true,
		IsActive:             true,
		StripeMonthlyPriceID: "price_pro_m",
		StripeYearlyPriceID:  "price_pro_y",
		TrialDays:            7,
		SortOrder:            1,
	})
	f.business = f.plans.add(billing.PlanAttributes{
		Name:                 "business",
		DisplayName:          "Business",
		PriceMonthly:         14990,
		HasAPIAccess:         true,
		IsActive:             true,
		StripeMonthlyPriceID: "price_business_m",
		SortOrder:            2,
	})

	f.resolver = NewPlanResolver(f.subs, f.plans, testFreeTokens)
	f.quota = NewQuotaService(f.resolver, f.usage, log)
	f.record = NewRecordUsageUseCase(f.usage, f.subs, log)
	f.webhook = NewHandleWebhookUseCase(f.gw, f.subs, f.plans, f.payments, f.events, f.tx, log)
	f.webhook.SetNotifier(f.notifier)
	f.sync = NewSyncFromCheckoutSessionUseCase(f.gw, f.subs, f.plans, f.tx, log)
	return f
}

// pinClock fixes the resolver clock used for the implicit Free plan period.
func (f *billingFixture) pinClock(now time.Time) {
	f.resolver.now = func() time.Time { return now }
}

// checkoutFor registers a paid checkout session and its subscription at the gateway.
func (f *billingFixture) checkoutFor(userID uint, plan *billing.Plan, sessionID, subID, status string, start time.Time) {
	f.gw.AddSubscription(gateway.SubscriptionSnapshot{
		ID:                 subID,
		CustomerID:         "cus_" + sessionID,
		Status:             status,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(0, 1, 0),
	})
	f.gw.AddSession(gateway.SessionSnapshot{
		ID:             sessionID,
		PaymentStatus:  gateway.PaymentStatusPaid,
		SubscriptionID: subID,
		CustomerID:     "cus_" + sessionID,
		CustomerEmail:  "user@example.com",
		Metadata: map[string]string{
			gateway.MetadataUserID:       uintString(userID),
			gateway.MetadataPlanID:       uintString(plan.ID()),
			gateway.MetadataBillingCycle: "monthly",
		},
	})
}

func (f *billingFixture) checkoutEvent(eventID, sessionID string) (string, gateway.Event) {
	s, err := f.gw.RetrieveCheckoutSession(context.Background(), sessionID)
	if err != nil {
		panic(err)
	}
	payload := "payload-" + eventID
	ev := gateway.CheckoutCompletedEvent{
		EventMeta: gateway.EventMeta{ID: eventID, Type: gateway.EventCheckoutCompleted, Payload: []byte(payload)},
		Session:   *s,
	}
	f.gw.AddEvent(payload, ev)
	return payload, ev
}

func (f *billingFixture) deliver(payload string) error {
	return f.webhook.Execute(context.Background(), []byte(payload), gateway.MockSignature)
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
