package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OliSalles/StoryTeller/internal/application/billing/gateway"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	apperrors "github.com/OliSalles/StoryTeller/internal/shared/errors"
)

func TestSync_CreatesThenReportsExisting(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	f.checkoutFor(1, f.pro, "cs_s", "sub_s", "active", time.Now().UTC())

	res, err := f.sync.Execute(ctx, SyncFromCheckoutSessionCommand{UserID: 1, SessionID: "cs_s"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.AlreadyExisted)

	again, err := f.sync.Execute(ctx, SyncFromCheckoutSessionCommand{UserID: 1, SessionID: "cs_s"})
	require.NoError(t, err)
	assert.True(t, again.AlreadyExisted)
	assert.Equal(t, res.SubscriptionID, again.SubscriptionID)
	assert.Equal(t, 1, f.subs.count())
}

func TestSync_AfterWebhookIsNoop(t *testing.T) {
	f := newBillingFixture(t)
	f.checkoutFor(1, f.pro, "cs_w", "sub_w", "trialing", time.Now().UTC())
	payload, _ := f.checkoutEvent("evt_w", "cs_w")
	require.NoError(t, f.deliver(payload))

	res, err := f.sync.Execute(context.Background(), SyncFromCheckoutSessionCommand{UserID: 1, SessionID: "cs_w"})
	require.NoError(t, err)
	assert.True(t, res.AlreadyExisted)
	assert.Equal(t, 1, f.subs.count())
}

func TestSync_Failures(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	f.gw.AddSubscription(gateway.SubscriptionSnapshot{ID: "sub_ok", Status: "active"})
	f.gw.AddSession(gateway.SessionSnapshot{ID: "cs_unpaid", PaymentStatus: "unpaid", SubscriptionID: "sub_ok"})
	f.gw.AddSession(gateway.SessionSnapshot{ID: "cs_nosub", PaymentStatus: gateway.PaymentStatusPaid})
	f.gw.AddSession(gateway.SessionSnapshot{ID: "cs_nomd", PaymentStatus: gateway.PaymentStatusPaid, SubscriptionID: "sub_ok"})
	f.gw.AddSession(gateway.SessionSnapshot{
		ID: "cs_other", PaymentStatus: gateway.PaymentStatusPaid, SubscriptionID: "sub_ok",
		Metadata: map[string]string{gateway.MetadataUserID: "2", gateway.MetadataPlanID: uintString(f.pro.ID()), gateway.MetadataBillingCycle: "monthly"},
	})

	_, err := f.sync.Execute(ctx, SyncFromCheckoutSessionCommand{UserID: 1, SessionID: "cs_unpaid"})
	assert.ErrorIs(t, err, billing.ErrPaymentNotSettled)

	_, err = f.sync.Execute(ctx, SyncFromCheckoutSessionCommand{UserID: 1, SessionID: "cs_nosub"})
	assert.ErrorIs(t, err, billing.ErrNoSubscriptionOnSession)

	_, err = f.sync.Execute(ctx, SyncFromCheckoutSessionCommand{UserID: 1, SessionID: "cs_nomd"})
	var mme *billing.MissingMetadataError
	require.ErrorAs(t, err, &mme)
	assert.ElementsMatch(t, []string{gateway.MetadataPlanID, gateway.MetadataBillingCycle}, mme.Fields)

	_, err = f.sync.Execute(ctx, SyncFromCheckoutSessionCommand{UserID: 1, SessionID: "cs_other"})
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeForbidden, appErr.Type)

	_, err = f.sync.Execute(ctx, SyncFromCheckoutSessionCommand{UserID: 1, SessionID: ""})
	assert.Error(t, err)

	_, err = f.sync.Execute(ctx, SyncFromCheckoutSessionCommand{UserID: 1, SessionID: "cs_missing"})
	var ext *billing.ExternalAPIError
	assert.ErrorAs(t, err, &ext)

	assert.Zero(t, f.subs.count())
}

func TestSync_FallsBackToAuthenticatedUser(t *testing.T) {
	f := newBillingFixture(t)
	f.gw.AddSubscription(gateway.SubscriptionSnapshot{ID: "sub_fb", Status: "active"})
	f.gw.AddSession(gateway.SessionSnapshot{
		ID: "cs_fb", PaymentStatus: gateway.PaymentStatusPaid, SubscriptionID: "sub_fb",
		Metadata: map[string]string{gateway.MetadataPlanID: uintString(f.pro.ID()), gateway.MetadataBillingCycle: "yearly"},
	})

	res, err := f.sync.Execute(context.Background(), SyncFromCheckoutSessionCommand{UserID: 5, SessionID: "cs_fb"})
	require.NoError(t, err)

	sub, err := f.subs.GetByID(context.Background(), res.SubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, uint(5), sub.UserID())
	assert.Equal(t, vo.BillingCycleYearly, sub.BillingCycle())
	assert.True(t, sub.CurrentPeriodEnd().After(sub.CurrentPeriodStart().AddDate(0, 11, 0)))
}

func TestSync_TrialCheckoutWithoutPayment(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Second)
	md := map[string]string{
		gateway.MetadataUserID:       "1",
		gateway.MetadataPlanID:       uintString(f.pro.ID()),
		gateway.MetadataBillingCycle: "monthly",
	}
	f.gw.AddSubscription(gateway.SubscriptionSnapshot{
		ID: "sub_trial", Status: "trialing", CurrentPeriodStart: start, CurrentPeriodEnd: start.AddDate(0, 0, 7),
	})
	f.gw.AddSubscription(gateway.SubscriptionSnapshot{
		ID: "sub_nocharge", Status: "active", CurrentPeriodStart: start, CurrentPeriodEnd: start.AddDate(0, 1, 0),
	})
	f.gw.AddSession(gateway.SessionSnapshot{
		ID: "cs_trial", PaymentStatus: gateway.PaymentStatusNoPaymentRequired, SubscriptionID: "sub_trial", Metadata: md,
	})
	f.gw.AddSession(gateway.SessionSnapshot{
		ID: "cs_nocharge", PaymentStatus: gateway.PaymentStatusNoPaymentRequired, SubscriptionID: "sub_nocharge", Metadata: md,
	})

	res, err := f.sync.Execute(ctx, SyncFromCheckoutSessionCommand{UserID: 1, SessionID: "cs_trial"})
	require.NoError(t, err)
	assert.False(t, res.AlreadyExisted)

	sub, err := f.subs.GetByID(ctx, res.SubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusTrialing, sub.Status())

	// Nothing was charged and no trial started.
	_, err = f.sync.Execute(ctx, SyncFromCheckoutSessionCommand{UserID: 1, SessionID: "cs_nocharge"})
	assert.ErrorIs(t, err, billing.ErrPaymentNotSettled)
	assert.Equal(t, 1, f.subs.count())
}
