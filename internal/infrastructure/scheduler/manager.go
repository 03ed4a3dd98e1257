// Package scheduler runs the billing maintenance jobs on gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	"github.com/OliSalles/StoryTeller/internal/shared/biztime"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

const counterReconcileTimeout = 5 * time.Minute

// CounterReconciler rewrites the advisory token counters from the usage ledger.
type CounterReconciler interface {
	Execute(ctx context.Context) (*usecases.ReconcileUsageCountersResult, error)
}

// ReconcileObserver receives the number of counters rewritten per run.
type ReconcileObserver interface {
	CountersReconciled(n int)
}

// SchedulerManager owns the single gocron scheduler of the process.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a scheduler that evaluates cron expressions in the business timezone.
func NewSchedulerManager(log logger.Interface, opts ...gocron.SchedulerOption) (*SchedulerManager, error) {
	opts = append([]gocron.SchedulerOption{gocron.WithLocation(biztime.Location())}, opts...)
	scheduler, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterCounterReconcileJob runs reconciler every interval. A non-positive interval
// leaves the job unregistered. observer may be nil.
func (m *SchedulerManager) RegisterCounterReconcileJob(
	reconciler CounterReconciler,
	observer ReconcileObserver,
	interval time.Duration,
) error {
	if interval <= 0 {
		m.logger.Infow("usage counter reconciliation disabled")
		return nil
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), counterReconcileTimeout)
			defer cancel()
			m.reconcileCounters(ctx, reconciler, observer)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("billing", "usage-counter"),
		gocron.WithName("usage-counter-reconcile"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered usage counter reconciliation job", "interval", interval.String())
	return nil
}

func (m *SchedulerManager) reconcileCounters(ctx context.Context, reconciler CounterReconciler, observer ReconcileObserver) {
	m.logger.Debugw("usage counter reconciliation started")

	startTime := biztime.NowUTC()
	result, err := reconciler.Execute(ctx)
	if err != nil {
		// shutdown cancels the context mid-run
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("usage counter reconciliation failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if observer != nil {
		observer.CountersReconciled(result.Updated)
	}
	if result.Updated > 0 || result.Failed > 0 {
		m.logger.Infow("usage counters repaired",
			"updated", result.Updated,
			"failed", result.Failed,
			"duration", time.Since(startTime),
		)
	}
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop waits for running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	err := m.scheduler.Shutdown()
	m.started = false
	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
