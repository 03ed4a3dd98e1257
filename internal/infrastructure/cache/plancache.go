package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

const (
	planKeyPrefix     = "billing:plan:"
	planActiveKey     = "billing:plan:active"
	planNullMarker    = "_null"
	planNullMarkerTTL = time.Minute
	defaultPlanTTL    = 10 * time.Minute
)

// CachedPlanRepository is a read-through Redis cache in front of a PlanRepository.
// Redis failures degrade to direct reads; they never fail a lookup.
type CachedPlanRepository struct {
	next   billing.PlanRepository
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger logger.Interface
}

// NewCachedPlanRepository wraps next. ttl <= 0 uses the default of ten minutes.
func NewCachedPlanRepository(next billing.PlanRepository, client *redis.Client, ttl time.Duration, logger logger.Interface) *CachedPlanRepository {
	if ttl <= 0 {
		ttl = defaultPlanTTL
	}
	return &CachedPlanRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedPlanRepository) GetByID(ctx context.Context, id uint) (*billing.Plan, error) {
	return c.getOne(ctx, fmt.Sprintf("%sid:%d", planKeyPrefix, id), func() (*billing.Plan, error) {
		return c.next.GetByID(ctx, id)
	})
}

func (c *CachedPlanRepository) GetByName(ctx context.Context, name string) (*billing.Plan, error) {
	return c.getOne(ctx, planKeyPrefix+"name:"+name, func() (*billing.Plan, error) {
		return c.next.GetByName(ctx, name)
	})
}

func (c *CachedPlanRepository) ListActive(ctx context.Context) ([]*billing.Plan, error) {
	if raw, err := c.client.Get(ctx, planActiveKey).Bytes(); err == nil {
		if plans, err := decodePlans(raw); err == nil {
			return plans, nil
		}
		c.logger.Warnw("discarding undecodable plan cache entry", "key", planActiveKey)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warnw("plan cache read failed", "key", planActiveKey, "error", err)
	}

	v, err, _ := c.group.Do(planActiveKey, func() (interface{}, error) {
		plans, err := c.next.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, planActiveKey, encodePlans(plans))
		return plans, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*billing.Plan), nil
}

// Upsert writes through and drops every cached plan entry.
func (c *CachedPlanRepository) Upsert(ctx context.Context, plan *billing.Plan) error {
	if err := c.next.Upsert(ctx, plan); err != nil {
		return err
	}
	if err := c.Invalidate(ctx); err != nil {
		c.logger.Warnw("failed to invalidate plan cache", "plan", plan.Name(), "error", err)
	}
	return nil
}

// Invalidate removes all cached plan entries.
func (c *CachedPlanRepository) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, planKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan plan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete plan cache keys: %w", err)
	}
	return nil
}

func (c *CachedPlanRepository) getOne(ctx context.Context, key string, load func() (*billing.Plan, error)) (*billing.Plan, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(raw) == planNullMarker {
			return nil, billing.ErrPlanNotFound
		}
		if plan, err := decodePlan(raw); err == nil {
			return plan, nil
		}
		c.logger.Warnw("discarding undecodable plan cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warnw("plan cache read failed", "key", key, "error", err)
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		plan, err := load()
		if err != nil {
			if errors.Is(err, billing.ErrPlanNotFound) {
				if setErr := c.client.Set(ctx, key, planNullMarker, planNullMarkerTTL).Err(); setErr != nil {
					c.logger.Warnw("failed to cache plan null marker", "key", key, "error", setErr)
				}
			}
			return nil, err
		}
		c.store(ctx, key, encodePlan(plan))
		return plan, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*billing.Plan), nil
}

func (c *CachedPlanRepository) store(ctx context.Context, key string, raw []byte) {
	if raw == nil {
		return
	}
	// Jitter spreads expiry so catalog keys do not all miss at once.
	ttl := c.ttl + time.Duration(rand.Int64N(int64(c.ttl/5)+1))
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Warnw("failed to write plan cache", "key", key, "error", err)
	}
}

func encodePlan(plan *billing.Plan) []byte {
	raw, err := json.Marshal(plan.Attributes())
	if err != nil {
		return nil
	}
	return raw
}

func encodePlans(plans []*billing.Plan) []byte {
	attrs := make([]billing.PlanAttributes, len(plans))
	for i, p := range plans {
		attrs[i] = p.Attributes()
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return nil
	}
	return raw
}

func decodePlan(raw []byte) (*billing.Plan, error) {
	var attrs billing.PlanAttributes
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, err
	}
	return billing.ReconstructPlan(attrs)
}

func decodePlans(raw []byte) ([]*billing.Plan, error) {
	var attrs []billing.PlanAttributes
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, err
	}
	plans := make([]*billing.Plan, 0, len(attrs))
	for _, a := range attrs {
		p, err := billing.ReconstructPlan(a)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

var _ billing.PlanRepository = (*CachedPlanRepository)(nil)
