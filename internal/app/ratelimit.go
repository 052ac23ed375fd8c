package app

import (
	"strconv"

	"crm-connect/internal/common/logging"
	"crm-connect/internal/common/ratelimit"
)

// InitializeRateLimiter builds the limiter for the public callback and
// webhook routes. It shares windows through Redis when available.
func (app *App) InitializeRateLimiter() ratelimit.Limiter {
	if !app.Config.RateLimitEnabled {
		app.Logger.Info("Rate Limiting: Disabled")
		return nil
	}

	rps, _ := strconv.Atoi(app.Config.RateLimitRPS)
	burst, _ := strconv.Atoi(app.Config.RateLimitBurst)
	rateLimitConfig := ratelimit.Config{
		Enabled:           true,
		RequestsPerSecond: rps,
		BurstSize:         burst,
		Type:              ratelimit.BackendLocal,
		KeyPrefix:         "crm:public:",
	}

	var redisClient ratelimit.RedisInterface
	if app.RedisClient != nil {
		rateLimitConfig.Type = ratelimit.BackendRedis
		redisClient = app.RedisClient
	}

	limiter, err := ratelimit.New(rateLimitConfig, redisClient)
	if err != nil {
		app.Logger.Warn("Distributed rate limiter unavailable, using local limiter", logging.Err(err))
		rateLimitConfig.Type = ratelimit.BackendLocal
		limiter, err = ratelimit.New(rateLimitConfig, nil)
		if err != nil {
			app.Logger.Error("Rate limiter disabled", err)
			return nil
		}
	}

	app.Logger.Info("Rate Limiting: Enabled",
		logging.Field{"backend", string(rateLimitConfig.Type)},
		logging.Field{"rps", rateLimitConfig.RequestsPerSecond},
		logging.Field{"burst", rateLimitConfig.BurstSize},
	)
	return limiter
}
