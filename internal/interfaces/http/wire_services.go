package http

import (
	"fmt"
	"time"

	"github.com/OliSalles/StoryTeller/internal/infrastructure/auth"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/cache"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/metrics"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/payment"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/permission"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/ratelimit"
	"github.com/OliSalles/StoryTeller/internal/interfaces/http/middleware"
	"github.com/OliSalles/StoryTeller/internal/shared/utils"
)

const syncRateLimitScope = "billing_sync"

// initInfrastructure sets up Redis, repositories, the payment gateway, metrics,
// casbin and the cross-cutting middlewares that only need infrastructure.
func (c *Container) initInfrastructure() error {
	cfg := c.cfg
	log := c.log

	utils.RegisterBindingValidators()

	c.redis = cache.NewRedisClient(cfg.Redis, log)

	c.repos = newRepositories(c.db, log)
	ttl := time.Duration(cfg.Billing.PlanCacheTTLMinutes) * time.Minute
	c.planCache = cache.NewCachedPlanRepository(c.repos.planRepo, c.redis, ttl, log.Named("plan_cache"))
	c.repos.planRepo = c.planCache

	c.gateway = payment.NewStripeGateway(cfg.Stripe, cfg.Server.BaseURL, log)
	c.metrics = metrics.NewBillingMetrics()

	enforcer, err := permission.NewEnforcer(c.db, log)
	if err != nil {
		return fmt.Errorf("failed to initialize permission enforcer: %w", err)
	}
	if err := enforcer.InitBillingPermissions(); err != nil {
		return fmt.Errorf("failed to seed billing permissions: %w", err)
	}
	c.enforcer = enforcer

	jwtSvc := auth.NewJWTService(cfg.Auth.JWT.Secret)
	c.authMiddleware = middleware.NewAuthMiddleware(jwtSvc, log)
	c.permissionMiddleware = middleware.NewPermissionMiddleware(enforcer, log)
	c.syncRateLimiter = middleware.NewRateLimiter(
		ratelimit.NewRedisRateLimiter(c.redis),
		syncRateLimitScope,
		ratelimit.RateLimitConfig{RequestsPerMinute: cfg.Billing.SyncRateLimitPerMinute},
		log,
	)
	return nil
}
