package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OliSalles/StoryTeller/internal/shared/config"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

// NewRedisClient creates the Redis client. Redis only backs the plan cache and
// rate limiting, both of which degrade to the database or fail open, so an
// unreachable server is logged rather than returned as an error.
func NewRedisClient(cfg config.RedisConfig, log logger.Interface) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnw("redis unreachable, plan cache and rate limiting degraded", "addr", cfg.GetAddr(), "error", err)
		return client
	}
	log.Infow("Redis connection established successfully")

	return client
}
