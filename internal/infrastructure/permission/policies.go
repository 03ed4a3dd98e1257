package permission

import (
	"fmt"

	"github.com/OliSalles/StoryTeller/internal/shared/constants"
)

// Resources and actions guarded by RequirePermission.
const (
	ResourceSubscription = "billing_subscription"
	ResourceUsage        = "billing_usage"
	ResourcePlan         = "billing_plan"

	ActionCreate    = "create"
	ActionReconcile = "reconcile"
	ActionSeed      = "seed"
)

var billingPolicies = [][]string{
	{constants.RoleAdmin, ResourceSubscription, ActionCreate},
	{constants.RoleAdmin, ResourceUsage, ActionReconcile},
	{constants.RoleAdmin, ResourcePlan, ActionSeed},
}

// InitBillingPermissions stores the default admin policies. Existing rules are kept.
func (e *Enforcer) InitBillingPermissions() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, policy := range billingPolicies {
		if _, err := e.enforcer.AddPolicy(policy); err != nil {
			e.logger.Errorw("failed to add billing permission policy",
				"error", err,
				"role", policy[0],
				"resource", policy[1],
				"action", policy[2])
			return fmt.Errorf("failed to add policy [%s, %s, %s]: %w",
				policy[0], policy[1], policy[2], err)
		}
	}

	e.logger.Info("billing permissions initialized successfully")
	return nil
}
