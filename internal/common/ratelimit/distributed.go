package ratelimit

import (
	"context"
	"fmt"
	"time"

	"crm-connect/internal/common/logging"
)

// distributedLimiter counts requests in Redis so every instance sees the same window
type distributedLimiter struct {
	config      Config
	redisClient RedisInterface
}

// NewDistributedLimiter creates a Redis-backed limiter
func NewDistributedLimiter(config Config, redisClient RedisInterface) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required for distributed rate limiter")
	}
	return &distributedLimiter{config: config, redisClient: redisClient}, nil
}

func (rl *distributedLimiter) TryAcquireForKey(key string) bool {
	if !rl.config.Enabled {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	allowed, _, err := rl.redisClient.CheckRateLimit(ctx, rl.config.KeyPrefix+key, rl.config.BurstSize, time.Second)
	if err != nil {
		// Fail open: Redis trouble must not take the OAuth callback down with it.
		logging.Warn("Rate limit check failed, allowing request",
			logging.Field{"key", key},
			logging.Field{"error", err.Error()})
		return true
	}
	return allowed
}

func (rl *distributedLimiter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"type":                "redis",
		"enabled":             rl.config.Enabled,
		"requests_per_second": rl.config.RequestsPerSecond,
		"burst_size":          rl.config.BurstSize,
		"key_prefix":          rl.config.KeyPrefix,
	}
}
