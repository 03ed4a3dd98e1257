package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

const (
	noticeKeyPrefix = "billing:notice:"
	// DefaultNoticeCooldown bounds repeats of the same notice; Stripe retries a
	// failed invoice several times over a few days.
	DefaultNoticeCooldown = 24 * time.Hour
)

// NoticeType identifies a billing email for deduplication.
type NoticeType string

const (
	NoticeSubscriptionActivated NoticeType = "subscription_activated"
	NoticePaymentSucceeded      NoticeType = "payment_succeeded"
	NoticePaymentFailed         NoticeType = "payment_failed"
)

// DedupingNotifier suppresses repeated billing emails for the same subject
// within a cooldown. Redis errors fail open and the email is sent.
type DedupingNotifier struct {
	next     usecases.BillingNotifier
	client   *redis.Client
	cooldown time.Duration
	logger   logger.Interface
}

func NewDedupingNotifier(next usecases.BillingNotifier, client *redis.Client, cooldown time.Duration, logger logger.Interface) *DedupingNotifier {
	if cooldown <= 0 {
		cooldown = DefaultNoticeCooldown
	}
	return &DedupingNotifier{next: next, client: client, cooldown: cooldown, logger: logger}
}

// buildKey format: billing:notice:{type}:{subject}
func (d *DedupingNotifier) buildKey(t NoticeType, subject string) string {
	return fmt.Sprintf("%s%s:%s", noticeKeyPrefix, t, strings.ToLower(subject))
}

// tryAcquire uses SetNX so concurrent webhook deliveries across instances send once.
func (d *DedupingNotifier) tryAcquire(ctx context.Context, t NoticeType, subject string) bool {
	if subject == "" {
		return true
	}
	acquired, err := d.client.SetNX(ctx, d.buildKey(t, subject), "1", d.cooldown).Result()
	if err != nil {
		d.logger.Warnw("notice dedup unavailable, sending anyway", "type", t, "error", err)
		return true
	}
	if !acquired {
		d.logger.Debugw("suppressed duplicate billing notice", "type", t, "subject", subject)
	}
	return acquired
}

func (d *DedupingNotifier) release(ctx context.Context, t NoticeType, subject string) {
	if subject == "" {
		return
	}
	if err := d.client.Del(ctx, d.buildKey(t, subject)).Err(); err != nil {
		d.logger.Warnw("failed to release notice key", "type", t, "error", err)
	}
}

func (d *DedupingNotifier) NotifySubscriptionActivated(ctx context.Context, cmd usecases.SubscriptionActivatedNotice) error {
	subject := cmd.Email
	if subject != "" {
		subject = cmd.Email + ":" + cmd.PlanDisplayName
	}
	return d.send(ctx, NoticeSubscriptionActivated, subject, func() error {
		return d.next.NotifySubscriptionActivated(ctx, cmd)
	})
}

func (d *DedupingNotifier) NotifyPaymentSucceeded(ctx context.Context, cmd usecases.PaymentNotice) error {
	return d.send(ctx, NoticePaymentSucceeded, cmd.InvoiceID, func() error {
		return d.next.NotifyPaymentSucceeded(ctx, cmd)
	})
}

func (d *DedupingNotifier) NotifyPaymentFailed(ctx context.Context, cmd usecases.PaymentNotice) error {
	return d.send(ctx, NoticePaymentFailed, cmd.InvoiceID, func() error {
		return d.next.NotifyPaymentFailed(ctx, cmd)
	})
}

// send releases the key when delivery fails so a later retry can still notify.
func (d *DedupingNotifier) send(ctx context.Context, t NoticeType, subject string, deliver func() error) error {
	if !d.tryAcquire(ctx, t, subject) {
		return nil
	}
	if err := deliver(); err != nil {
		d.release(ctx, t, subject)
		return err
	}
	return nil
}
