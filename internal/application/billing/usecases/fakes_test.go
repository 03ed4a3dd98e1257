package usecases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
)

type fakePlanRepo struct {
	mu    sync.Mutex
	plans map[uint]*billing.Plan
	next  uint
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[uint]*billing.Plan)}
}

func (r *fakePlanRepo) add(attrs billing.PlanAttributes) *billing.Plan {
	p, err := billing.NewPlan(attrs)
	if err != nil {
		panic(err)
	}
	if err := r.Upsert(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}

func (r *fakePlanRepo) GetByID(ctx context.Context, id uint) (*billing.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, billing.ErrPlanNotFound
	}
	return p, nil
}

func (r *fakePlanRepo) GetByName(ctx context.Context, name string) (*billing.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, billing.ErrPlanNotFound
}

func (r *fakePlanRepo) ListActive(ctx context.Context) ([]*billing.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Plan
	for _, p := range r.plans {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder() < out[j].SortOrder() })
	return out, nil
}

func (r *fakePlanRepo) Upsert(ctx context.Context, plan *billing.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.plans {
		if p.Name() == plan.Name() {
			attrs := plan.Attributes()
			attrs.ID = id
			updated, err := billing.ReconstructPlan(attrs)
			if err != nil {
				return err
			}
			r.plans[id] = updated
			return plan.SetID(id)
		}
	}
	r.next++
	if err := plan.SetID(r.next); err != nil {
		return err
	}
	r.plans[r.next] = plan
	return nil
}

// fakeSubscriptionRepo enforces the external id uniqueness a real table has.
type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	rows map[uint]*billing.Subscription
	next uint

	incrementErr error
	creates      int
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{rows: make(map[uint]*billing.Subscription)}
}

func cloneSubscription(s *billing.Subscription) *billing.Subscription {
	c, err := billing.ReconstructSubscription(
		s.ID(), s.UserID(), s.PlanID(), s.Status(), s.BillingCycle(),
		s.CurrentPeriodStart(), s.CurrentPeriodEnd(), s.CancelAtPeriodEnd(),
		s.ExternalSubscriptionID(), s.ExternalCustomerID(),
		s.TokensUsedThisPeriod(), s.Version(), s.CreatedAt(), s.UpdatedAt(),
	)
	if err != nil {
		panic(err)
	}
	return c
}

func (r *fakeSubscriptionRepo) Create(ctx context.Context, sub *billing.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ext := sub.ExternalSubscriptionIDValue(); ext != "" {
		for _, row := range r.rows {
			if row.ExternalSubscriptionIDValue() == ext {
				return &billing.DuplicateSubscriptionError{ExternalSubscriptionID: ext}
			}
		}
	}
	r.next++
	if err := sub.SetID(r.next); err != nil {
		return err
	}
	r.rows[sub.ID()] = cloneSubscription(sub)
	r.creates++
	return nil
}

func (r *fakeSubscriptionRepo) Update(ctx context.Context, sub *billing.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[sub.ID()]; !ok {
		return billing.ErrSubscriptionNotFound
	}
	r.rows[sub.ID()] = cloneSubscription(sub)
	return nil
}

func (r *fakeSubscriptionRepo) GetByID(ctx context.Context, id uint) (*billing.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, billing.ErrSubscriptionNotFound
	}
	return cloneSubscription(row), nil
}

func (r *fakeSubscriptionRepo) GetByExternalID(ctx context.Context, externalID string) (*billing.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ExternalSubscriptionIDValue() == externalID {
			return cloneSubscription(row), nil
		}
	}
	return nil, billing.ErrSubscriptionNotFound
}

func (r *fakeSubscriptionRepo) GetCurrentByUserID(ctx context.Context, userID uint) (*billing.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cur *billing.Subscription
	for _, row := range r.rows {
		if row.UserID() != userID {
			continue
		}
		if cur == nil || row.CreatedAt().After(cur.CreatedAt()) ||
			(row.CreatedAt().Equal(cur.CreatedAt()) && row.ID() > cur.ID()) {
			cur = row
		}
	}
	if cur == nil {
		return nil, billing.ErrSubscriptionNotFound
	}
	return cloneSubscription(cur), nil
}

func (r *fakeSubscriptionRepo) CancelOthersForUser(ctx context.Context, userID, exceptID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, row := range r.rows {
		if row.UserID() == userID && id != exceptID && row.Cancel() {
			n++
		}
	}
	return n, nil
}

func (r *fakeSubscriptionRepo) IncrementTokenCounter(ctx context.Context, id uint, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incrementErr != nil {
		return r.incrementErr
	}
	return r.setCounterLocked(id, r.rows[id].TokensUsedThisPeriod()+delta)
}

func (r *fakeSubscriptionRepo) SetTokenCounter(ctx context.Context, id uint, value int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setCounterLocked(id, value)
}

func (r *fakeSubscriptionRepo) setCounterLocked(id uint, value int64) error {
	s, ok := r.rows[id]
	if !ok {
		return billing.ErrSubscriptionNotFound
	}
	c, err := billing.ReconstructSubscription(
		s.ID(), s.UserID(), s.PlanID(), s.Status(), s.BillingCycle(),
		s.CurrentPeriodStart(), s.CurrentPeriodEnd(), s.CancelAtPeriodEnd(),
		s.ExternalSubscriptionID(), s.ExternalCustomerID(),
		value, s.Version(), s.CreatedAt(), s.UpdatedAt(),
	)
	if err != nil {
		return err
	}
	r.rows[id] = c
	return nil
}

func (r *fakeSubscriptionRepo) ListUsable(ctx context.Context) ([]*billing.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Subscription
	for _, row := range r.rows {
		if row.Status() != vo.StatusCanceled && row.Status() != vo.StatusIncomplete {
			out = append(out, cloneSubscription(row))
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) snapshot() map[uint]*billing.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint]*billing.Subscription, len(r.rows))
	for id, row := range r.rows {
		out[id] = cloneSubscription(row)
	}
	return out
}

func (r *fakeSubscriptionRepo) restore(rows map[uint]*billing.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = rows
}

func (r *fakeSubscriptionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// fakeTx serialises transactions and rolls the subscription table back on error.
type fakeTx struct {
	mu   sync.Mutex
	subs *fakeSubscriptionRepo
}

func (tx *fakeTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	before := tx.subs.snapshot()
	if err := fn(ctx); err != nil {
		tx.subs.restore(before)
		return err
	}
	return nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments []*billing.Payment
}

func (r *fakePaymentRepo) Create(ctx context.Context, p *billing.Payment) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.ExternalPaymentID() != nil && p.ExternalPaymentID() != nil &&
			*existing.ExternalPaymentID() == *p.ExternalPaymentID() && existing.Status() == p.Status() &&
			existing.AttemptRef() == p.AttemptRef() {
			return false, nil
		}
	}
	if err := p.SetID(uint(len(r.payments) + 1)); err != nil {
		return false, err
	}
	r.payments = append(r.payments, p)
	return true, nil
}

func (r *fakePaymentRepo) ListBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Payment
	for _, p := range r.payments {
		if p.SubscriptionID() == subscriptionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*billing.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payments, int64(len(r.payments)), nil
}

type fakeUsageRepo struct {
	mu      sync.Mutex
	entries []*billing.UsageEntry
	err     error
}

// addAt appends a ledger row with an explicit timestamp.
func (r *fakeUsageRepo) addAt(userID uint, tokens int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, billing.ReconstructUsageEntry(uint(len(r.entries)+1), userID, nil, "feature_generation", "test", tokens, 0, tokens, at))
}

func (r *fakeUsageRepo) Append(ctx context.Context, e *billing.UsageEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	e.SetID(uint(len(r.entries) + 1))
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeUsageRepo) SumTokensSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	var sum int64
	for _, e := range r.entries {
		if e.UserID() == userID && !e.CreatedAt().Before(since) {
			sum += e.TotalTokens()
		}
	}
	return sum, nil
}

func (r *fakeUsageRepo) List(ctx context.Context, f billing.UsageFilter) ([]*billing.UsageEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.UsageEntry
	for _, e := range r.entries {
		if e.UserID() == f.UserID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeUsageRepo) Stats(ctx context.Context, userID uint, since time.Time) (*billing.UsageStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &billing.UsageStats{ByOperation: map[string]int64{}}
	for _, e := range r.entries {
		if e.UserID() != userID || e.CreatedAt().Before(since) {
			continue
		}
		stats.TotalTokens += e.TotalTokens()
		stats.Calls++
		stats.ByOperation[e.Operation()] += e.TotalTokens()
	}
	return stats, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]string)}
}

func (r *fakeEventRepo) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.events[eventID]
	return ok, nil
}

func (r *fakeEventRepo) MarkProcessed(ctx context.Context, eventID, eventType string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[eventID] = eventType
	return nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	activated []SubscriptionActivatedNotice
	succeeded []PaymentNotice
	failed    []PaymentNotice
	done      chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{}, 16)}
}

func (n *recordingNotifier) NotifySubscriptionActivated(ctx context.Context, cmd SubscriptionActivatedNotice) error {
	n.mu.Lock()
	n.activated = append(n.activated, cmd)
	n.mu.Unlock()
	n.done <- struct{}{}
	return nil
}

func (n *recordingNotifier) NotifyPaymentSucceeded(ctx context.Context, cmd PaymentNotice) error {
	n.mu.Lock()
	n.succeeded = append(n.succeeded, cmd)
	n.mu.Unlock()
	n.done <- struct{}{}
	return nil
}

func (n *recordingNotifier) NotifyPaymentFailed(ctx context.Context, cmd PaymentNotice) error {
	n.mu.Lock()
	n.failed = append(n.failed, cmd)
	n.mu.Unlock()
	n.done <- struct{}{}
	return nil
}
