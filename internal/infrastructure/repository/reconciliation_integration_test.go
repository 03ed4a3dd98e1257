package repository

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/OliSalles/StoryTeller/internal/application/billing/gateway"
	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/persistence/models"
	shareddb "github.com/OliSalles/StoryTeller/internal/shared/db"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

type reconciliationEnv struct {
	db       *gorm.DB
	gw       *gateway.MockGateway
	plans    billing.PlanRepository
	subs     billing.SubscriptionRepository
	payments billing.PaymentRepository
	events   billing.WebhookEventRepository
	webhook  *usecases.HandleWebhookUseCase
	sync     *usecases.SyncFromCheckoutSessionUseCase
	pro      *billing.Plan
}

func newReconciliationEnv(t *testing.T) *reconciliationEnv {
	t.Helper()
	db := setupTestDB(t)
	log := logger.NewNopLogger()
	tm := shareddb.NewTransactionManager(db)

	env := &reconciliationEnv{
		db:       db,
		gw:       gateway.NewMockGateway(),
		plans:    NewPlanRepository(db, log),
		subs:     NewSubscriptionRepository(db, log),
		payments: NewPaymentRepository(db, log),
		events:   NewWebhookEventRepository(db, log),
	}
	env.pro = seedPlan(t, env.plans, "pro", int64Ptr(500_000))
	env.webhook = usecases.NewHandleWebhookUseCase(env.gw, env.subs, env.plans, env.payments, env.events, tm, log)
	env.sync = usecases.NewSyncFromCheckoutSessionUseCase(env.gw, env.subs, env.plans, tm, log)
	return env
}

// paidCheckout registers a paid session for userID and returns its webhook payload.
func (e *reconciliationEnv) paidCheckout(userID uint, sessionID, subID string, start time.Time) string {
	e.gw.AddSubscription(gateway.SubscriptionSnapshot{
		ID:                 subID,
		CustomerID:         "cus_" + sessionID,
		Status:             "active",
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(0, 1, 0),
	})
	session := gateway.SessionSnapshot{
		ID:             sessionID,
		PaymentStatus:  gateway.PaymentStatusPaid,
		SubscriptionID: subID,
		CustomerID:     "cus_" + sessionID,
		Metadata: map[string]string{
			gateway.MetadataUserID:       strconv.FormatUint(uint64(userID), 10),
			gateway.MetadataPlanID:       strconv.FormatUint(uint64(e.pro.ID()), 10),
			gateway.MetadataBillingCycle: string(vo.BillingCycleMonthly),
		},
	}
	e.gw.AddSession(session)

	payload := `{"id":"evt_` + sessionID + `"}`
	e.gw.AddEvent(payload, gateway.CheckoutCompletedEvent{
		EventMeta: gateway.EventMeta{ID: "evt_" + sessionID, Type: gateway.EventCheckoutCompleted, Payload: []byte(payload)},
		Session:   session,
	})
	return payload
}

func TestReconciliation_WebhookAndSyncConverge(t *testing.T) {
	for i := 0; i < 5; i++ {
		env := newReconciliationEnv(t)
		ctx := context.Background()

		prior := newTestSubscription(t, 42, env.pro.ID(), vo.StatusActive, "")
		require.NoError(t, env.subs.Create(ctx, prior))

		start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
		payload := env.paidCheckout(42, "cs_42", "sub_42", start)

		var wg sync.WaitGroup
		errs := make(chan error, 4)
		wg.Add(4)
		go func() {
			defer wg.Done()
			errs <- env.webhook.Execute(ctx, []byte(payload), gateway.MockSignature)
		}()
		for j := 0; j < 3; j++ {
			go func() {
				defer wg.Done()
				_, err := env.sync.Execute(ctx, usecases.SyncFromCheckoutSessionCommand{UserID: 42, SessionID: "cs_42"})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		var withExternal int64
		require.NoError(t, env.db.Model(&models.SubscriptionModel{}).
			Where("external_subscription_id = ?", "sub_42").Count(&withExternal).Error)
		assert.Equal(t, int64(1), withExternal)

		var live int64
		require.NoError(t, env.db.Model(&models.SubscriptionModel{}).
			Where("user_id = ? AND status <> ?", 42, vo.StatusCanceled.String()).Count(&live).Error)
		assert.Equal(t, int64(1), live)

		current, err := env.subs.GetCurrentByUserID(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "sub_42", current.ExternalSubscriptionIDValue())
		assert.Equal(t, vo.StatusActive, current.Status())

		old, err := env.subs.GetByID(ctx, prior.ID())
		require.NoError(t, err)
		assert.Equal(t, vo.StatusCanceled, old.Status())

		processed, err := env.events.IsProcessed(ctx, "evt_cs_42")
		require.NoError(t, err)
		assert.True(t, processed)
	}
}

func TestReconciliation_InvoicePaidRedelivery(t *testing.T) {
	env := newReconciliationEnv(t)
	ctx := context.Background()

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	payload := env.paidCheckout(7, "cs_7", "sub_7", start)
	require.NoError(t, env.webhook.Execute(ctx, []byte(payload), gateway.MockSignature))

	sub, err := env.subs.GetByExternalID(ctx, "sub_7")
	require.NoError(t, err)
	require.NoError(t, env.subs.IncrementTokenCounter(ctx, sub.ID(), 1234))

	next := start.AddDate(0, 1, 0)
	invoice := gateway.InvoiceSnapshot{
		ID:             "in_7",
		SubscriptionID: "sub_7",
		AmountPaid:     4990,
		Currency:       "brl",
		PaidAt:         next,
		PeriodStart:    next,
		PeriodEnd:      next.AddDate(0, 1, 0),
	}
	// Two distinct provider events carrying the same invoice.
	for _, id := range []string{"evt_inv_a", "evt_inv_b"} {
		invPayload := `{"id":"` + id + `"}`
		env.gw.AddEvent(invPayload, gateway.InvoicePaidEvent{
			EventMeta: gateway.EventMeta{ID: id, Type: gateway.EventInvoicePaid, Payload: []byte(invPayload)},
			Invoice:   invoice,
		})
		require.NoError(t, env.webhook.Execute(ctx, []byte(invPayload), gateway.MockSignature))
	}

	payments, err := env.payments.ListBySubscriptionID(ctx, sub.ID())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, vo.PaymentStatusSucceeded, payments[0].Status())
	assert.Equal(t, "BRL", payments[0].Currency())

	sub, err = env.subs.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Zero(t, sub.TokensUsedThisPeriod())
	assert.True(t, next.Equal(sub.CurrentPeriodStart()))
}
