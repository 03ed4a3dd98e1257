package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/OliSalles/StoryTeller/internal/application/billing/gateway"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
	"github.com/OliSalles/StoryTeller/internal/shared/biztime"
	"github.com/OliSalles/StoryTeller/internal/shared/goroutine"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
	"github.com/OliSalles/StoryTeller/internal/shared/utils"
)

// HandleWebhookUseCase verifies a provider delivery and applies it to local state.
//
// Every handler is idempotent by external id, so redelivery is safe even without the
// event journal. Returned errors are either verification failures (the delivery is
// rejected) or processing failures (the provider redelivers later).
type HandleWebhookUseCase struct {
	gateway          gateway.Gateway
	subscriptionRepo billing.SubscriptionRepository
	paymentRepo      billing.PaymentRepository
	eventRepo        billing.WebhookEventRepository
	materializer     *subscriptionMaterializer
	tx               Transactor
	notifier         BillingNotifier
	metrics          BillingMetrics
	logger           logger.Interface
}

func NewHandleWebhookUseCase(
	gw gateway.Gateway,
	subscriptionRepo billing.SubscriptionRepository,
	planRepo billing.PlanRepository,
	paymentRepo billing.PaymentRepository,
	eventRepo billing.WebhookEventRepository,
	tx Transactor,
	logger logger.Interface,
) *HandleWebhookUseCase {
	if tx == nil {
		tx = noTransaction{}
	}
	uc := &HandleWebhookUseCase{
		gateway:          gw,
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		eventRepo:        eventRepo,
		tx:               tx,
		metrics:          nopMetrics{},
		logger:           logger,
	}
	uc.materializer = &subscriptionMaterializer{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		tx:               tx,
		metrics:          uc.metrics,
		logger:           logger,
	}
	return uc
}

// SetNotifier sets the billing notifier (optional dependency injection)
func (uc *HandleWebhookUseCase) SetNotifier(n BillingNotifier) {
	uc.notifier = n
}

func (uc *HandleWebhookUseCase) SetMetrics(m BillingMetrics) {
	uc.metrics = m
	uc.materializer.metrics = m
}

func (uc *HandleWebhookUseCase) Execute(ctx context.Context, payload []byte, signature string) error {
	event, err := uc.gateway.ParseWebhook(payload, signature)
	if err != nil {
		uc.metrics.WebhookProcessed("unverified", OutcomeFailed)
		uc.logger.Warnw("webhook rejected", "error", err)
		return err
	}

	meta := event.Meta()
	log := uc.logger.With("event_id", meta.ID, "event_type", meta.Type)

	if uc.eventRepo != nil && meta.ID != "" {
		processed, err := uc.eventRepo.IsProcessed(ctx, meta.ID)
		if err != nil {
			log.Warnw("failed to read webhook journal", "error", err)
		} else if processed {
			uc.metrics.WebhookProcessed(meta.Type, OutcomeDuplicate)
			log.Infow("webhook event already processed")
			return nil
		}
	}

	outcome := OutcomeProcessed
	switch e := event.(type) {
	case gateway.CheckoutCompletedEvent:
		err = uc.handleCheckoutCompleted(ctx, log, e)
	case gateway.SubscriptionUpdatedEvent:
		err = uc.handleSubscriptionUpdated(ctx, log, e)
	case gateway.SubscriptionDeletedEvent:
		err = uc.handleSubscriptionDeleted(ctx, log, e)
	case gateway.InvoicePaidEvent:
		err = uc.handleInvoicePaid(ctx, log, e)
	case gateway.InvoiceFailedEvent:
		err = uc.handleInvoiceFailed(ctx, log, e)
	case gateway.IgnoredEvent:
		outcome = OutcomeIgnored
	default:
		err = fmt.Errorf("unhandled webhook event %T", event)
	}

	if err != nil {
		uc.metrics.WebhookProcessed(meta.Type, OutcomeFailed)
		log.Errorw("webhook processing failed", "error", err)
		return err
	}

	if uc.eventRepo != nil && meta.ID != "" {
		if err := uc.eventRepo.MarkProcessed(ctx, meta.ID, meta.Type, meta.Payload); err != nil {
			log.Warnw("failed to journal webhook event", "error", err)
		}
	}

	uc.metrics.WebhookProcessed(meta.Type, outcome)
	log.Infow("webhook processed", "outcome", outcome)
	return nil
}

func (uc *HandleWebhookUseCase) handleCheckoutCompleted(ctx context.Context, log logger.Interface, e gateway.CheckoutCompletedEvent) error {
	md, err := gateway.ParseCheckoutMetadata(e.Session.ID, e.Session.Metadata, 0)
	if err != nil {
		log.Warnw("checkout session without usable metadata, skipping", "session_id", e.Session.ID, "error", err)
		return nil
	}
	if e.Session.SubscriptionID == "" {
		log.Warnw("checkout session has no subscription, skipping", "session_id", e.Session.ID)
		return nil
	}

	snap, err := uc.gateway.RetrieveSubscription(ctx, e.Session.SubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to retrieve subscription %s: %w", e.Session.SubscriptionID, err)
	}

	res, err := uc.materializer.materialize(ctx, PathWebhook, md, snap, e.Session.CustomerID)
	if err != nil {
		if errors.Is(err, billing.ErrPlanNotFound) || errors.Is(err, billing.ErrInvalidSubscription) {
			log.Warnw("checkout session references unusable plan, skipping",
				"session_id", e.Session.ID,
				"plan_id", md.PlanID,
				"error", err,
			)
			return nil
		}
		return err
	}

	if res.Created && e.Session.CustomerEmail != "" {
		uc.notify(log, "subscription-activated", func(ctx context.Context, n BillingNotifier) error {
			return n.NotifySubscriptionActivated(ctx, SubscriptionActivatedNotice{
				Email:            e.Session.CustomerEmail,
				PlanDisplayName:  res.Plan.DisplayName(),
				BillingCycle:     res.Subscription.BillingCycle().String(),
				Trialing:         res.Subscription.Status() == vo.StatusTrialing,
				CurrentPeriodEnd: res.Subscription.CurrentPeriodEnd(),
			})
		})
	}
	return nil
}

func (uc *HandleWebhookUseCase) handleSubscriptionUpdated(ctx context.Context, log logger.Interface, e gateway.SubscriptionUpdatedEvent) error {
	sub, ok, err := uc.findByExternalID(ctx, log, e.Subscription.ID)
	if !ok {
		return err
	}

	status := vo.StatusFromProvider(e.Subscription.Status)
	changed, err := sub.ApplyProviderState(status, e.Subscription.CurrentPeriodStart, e.Subscription.CurrentPeriodEnd, e.Subscription.CancelAtPeriodEnd)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidStatusTransition) {
			log.Warnw("ignoring subscription update", "subscription_id", sub.ID(), "error", err)
			return nil
		}
		return err
	}
	if !changed {
		return nil
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to update subscription %d: %w", sub.ID(), err)
	}
	log.Infow("subscription updated",
		"subscription_id", sub.ID(),
		"status", sub.Status(),
		"cancel_at_period_end", sub.CancelAtPeriodEnd(),
	)
	return nil
}

func (uc *HandleWebhookUseCase) handleSubscriptionDeleted(ctx context.Context, log logger.Interface, e gateway.SubscriptionDeletedEvent) error {
	sub, ok, err := uc.findByExternalID(ctx, log, e.Subscription.ID)
	if !ok {
		return err
	}

	if !sub.Cancel() {
		log.Debugw("subscription already canceled", "subscription_id", sub.ID())
		return nil
	}
	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to cancel subscription %d: %w", sub.ID(), err)
	}
	log.Infow("subscription canceled", "subscription_id", sub.ID(), "user_id", sub.UserID())
	return nil
}

// handleInvoicePaid records the payment and starts the new period. A redelivered
// invoice finds its payment already stored and leaves the counter alone.
func (uc *HandleWebhookUseCase) handleInvoicePaid(ctx context.Context, log logger.Interface, e gateway.InvoicePaidEvent) error {
	inv := e.Invoice
	if inv.SubscriptionID == "" {
		log.Infow("invoice not tied to a subscription, skipping", "invoice_id", inv.ID)
		return nil
	}
	sub, ok, err := uc.findByExternalID(ctx, log, inv.SubscriptionID)
	if !ok {
		return err
	}

	paidAt := inv.PaidAt
	if paidAt.IsZero() {
		paidAt = biztime.NowUTC()
	}
	payment, err := billing.NewSucceededPayment(sub.ID(), inv.AmountPaid, inv.Currency, inv.ID, paidAt)
	if err != nil {
		return err
	}

	var created bool
	err = uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = uc.paymentRepo.Create(ctx, payment)
		if err != nil || !created {
			return err
		}

		sub.ResetPeriodUsage()
		if !sub.IsCanceled() && inv.PeriodStart.After(sub.CurrentPeriodStart()) {
			if _, err := sub.ApplyProviderState(sub.Status(), inv.PeriodStart, inv.PeriodEnd, sub.CancelAtPeriodEnd()); err != nil {
				return err
			}
		}
		return uc.subscriptionRepo.Update(ctx, sub)
	})
	if err != nil {
		return fmt.Errorf("failed to record payment for invoice %s: %w", inv.ID, err)
	}
	if !created {
		log.Infow("payment already recorded", "invoice_id", inv.ID)
		return nil
	}

	log.Infow("payment succeeded",
		"subscription_id", sub.ID(),
		"invoice_id", inv.ID,
		"amount", payment.Amount(),
		"currency", payment.Currency(),
	)
	if inv.CustomerEmail != "" {
		uc.notify(log, "payment-succeeded", func(ctx context.Context, n BillingNotifier) error {
			return n.NotifyPaymentSucceeded(ctx, PaymentNotice{
				Email:     inv.CustomerEmail,
				Amount:    payment.Amount(),
				Currency:  payment.Currency(),
				InvoiceID: inv.ID,
				PaidAt:    paidAt,
			})
		})
	}
	return nil
}

// handleInvoiceFailed records the failed attempt. Status changes arrive separately as
// subscription updates.
func (uc *HandleWebhookUseCase) handleInvoiceFailed(ctx context.Context, log logger.Interface, e gateway.InvoiceFailedEvent) error {
	inv := e.Invoice
	if inv.SubscriptionID == "" {
		log.Infow("invoice not tied to a subscription, skipping", "invoice_id", inv.ID)
		return nil
	}
	sub, ok, err := uc.findByExternalID(ctx, log, inv.SubscriptionID)
	if !ok {
		return err
	}

	payment, err := billing.NewFailedPayment(sub.ID(), inv.AmountDue, inv.Currency, inv.ID,
		failedAttemptRef(e), utils.StripHTML(inv.FailureMessage))
	if err != nil {
		return err
	}
	created, err := uc.paymentRepo.Create(ctx, payment)
	if err != nil {
		return fmt.Errorf("failed to record failed payment for invoice %s: %w", inv.ID, err)
	}
	if !created {
		log.Infow("failed payment already recorded", "invoice_id", inv.ID, "attempt_ref", payment.AttemptRef())
		return nil
	}

	log.Warnw("payment failed",
		"subscription_id", sub.ID(),
		"invoice_id", inv.ID,
		"reason", *payment.ErrorMessage(),
	)
	if inv.CustomerEmail != "" {
		uc.notify(log, "payment-failed", func(ctx context.Context, n BillingNotifier) error {
			return n.NotifyPaymentFailed(ctx, PaymentNotice{
				Email:        inv.CustomerEmail,
				Amount:       payment.Amount(),
				Currency:     payment.Currency(),
				InvoiceID:    inv.ID,
				ErrorMessage: *payment.ErrorMessage(),
			})
		})
	}
	return nil
}

// failedAttemptRef names one failed attempt of an invoice. Each dunning retry arrives as a
// new event while a redelivery repeats the event id.
func failedAttemptRef(e gateway.InvoiceFailedEvent) string {
	if e.ID != "" {
		return e.ID
	}
	return fmt.Sprintf("attempt-%d", e.Invoice.AttemptCount)
}

// findByExternalID reports ok=false with a nil error when no row matches: events for
// subscriptions this system never materialised are acknowledged and dropped.
func (uc *HandleWebhookUseCase) findByExternalID(ctx context.Context, log logger.Interface, externalID string) (*billing.Subscription, bool, error) {
	sub, err := uc.subscriptionRepo.GetByExternalID(ctx, externalID)
	if err == nil {
		return sub, true, nil
	}
	if errors.Is(err, billing.ErrSubscriptionNotFound) {
		log.Infow("no local subscription for event, skipping", "external_subscription_id", externalID)
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("failed to look up subscription %s: %w", externalID, err)
}

func (uc *HandleWebhookUseCase) notify(log logger.Interface, name string, fn func(ctx context.Context, n BillingNotifier) error) {
	if uc.notifier == nil {
		return
	}
	n := uc.notifier
	goroutine.SafeGo(log, "notify-"+name, func() {
		if err := fn(context.Background(), n); err != nil {
			log.Warnw("failed to send billing notification", "notification", name, "error", err)
		}
	})
}
