package http

import (
	"time"

	"github.com/OliSalles/StoryTeller/internal/infrastructure/scheduler"
)

func (c *Container) initScheduler() error {
	manager, err := scheduler.NewSchedulerManager(c.log.Named("scheduler"))
	if err != nil {
		return err
	}

	interval := time.Duration(c.cfg.Billing.CounterReconcileIntervalMinutes) * time.Minute
	if err := manager.RegisterCounterReconcileJob(c.ucs.reconcileUsageCountersUC, c.metrics, interval); err != nil {
		return err
	}

	c.schedulerManager = manager
	return nil
}
