package http

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/OliSalles/StoryTeller/internal/infrastructure/cache"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/config"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/metrics"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/payment"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/permission"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/scheduler"
	"github.com/OliSalles/StoryTeller/internal/interfaces/http/middleware"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

// Container holds all infrastructure components, repositories, use cases, handlers,
// and background services. It is responsible for wiring everything together and
// providing a Shutdown() method for graceful termination.
type Container struct {
	// Core infrastructure
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client

	repos *repositories
	ucs   *allUseCases
	hdlrs *allHandlers

	// Middlewares
	authMiddleware       *middleware.AuthMiddleware
	permissionMiddleware *middleware.PermissionMiddleware
	tokenQuotaMiddleware *middleware.TokenQuotaMiddleware
	syncRateLimiter      *middleware.RateLimiter

	// Infrastructure services
	gateway   *payment.StripeGateway
	planCache *cache.CachedPlanRepository
	metrics   *metrics.BillingMetrics
	enforcer  *permission.Enforcer

	schedulerManager *scheduler.SchedulerManager
}

// NewContainer creates a new Container with all dependencies wired together.
func NewContainer(db *gorm.DB, cfg *config.Config, log logger.Interface) (*Container, error) {
	c := &Container{
		engine: gin.New(),
		db:     db,
		cfg:    cfg,
		log:    log,
	}

	// Section 1: Infrastructure - Redis, Repositories, Gateway, Metrics, Casbin
	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}

	// Section 2: Billing use cases
	c.initUseCases()

	// Section 3: Handlers and middlewares
	c.initHandlers()

	// Section 4: Background jobs
	if err := c.initScheduler(); err != nil {
		return nil, err
	}

	return c, nil
}
