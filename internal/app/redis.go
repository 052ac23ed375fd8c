package app

import (
	"strconv"

	"crm-connect/internal/common/logging"
	"crm-connect/internal/locks"
	"crm-connect/internal/redis"
)

func (app *App) initializeRedis() error {
	if !app.Config.RedisEnabled() {
		app.Logger.Info("Redis: Not configured (state nonces, locks and rate limits stay in process)")
		return nil
	}

	redisDB, _ := strconv.Atoi(app.Config.RedisDB)
	redisPoolSize, _ := strconv.Atoi(app.Config.RedisPoolSize)

	redisClient, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       redisDB,
		PoolSize: redisPoolSize,
	})
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected", logging.Field{"address", app.Config.RedisAddress})
	return nil
}

func (app *App) initializeLocker() {
	if app.RedisClient != nil {
		locker, err := locks.NewRedsyncLocker(app.RedisClient)
		if err == nil {
			app.Locker = locker
			app.Logger.Info("Distributed refresh locks: Enabled")
			return
		}
		app.Logger.Warn("Distributed refresh locks unavailable", logging.Err(err))
	}
	app.Locker = locks.NewLocalLocker()
}
