// Package app wires configuration, storage, Redis, the OAuth token lifecycle
// and the HTTP surface into one runnable service.
package app

import (
	"context"

	"crm-connect/internal/auth"
	"crm-connect/internal/circuitbreaker"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/config"
	"crm-connect/internal/events"
	"crm-connect/internal/integrations"
	"crm-connect/internal/locks"
	oauth "crm-connect/internal/oauth2"
	"crm-connect/internal/redis"
	"crm-connect/internal/signature"
	"crm-connect/internal/storage"
)

// App holds all the application dependencies
type App struct {
	Config       *config.Config
	Storage      storage.Store
	RedisClient  *redis.Client
	Locker       locks.Locker
	Emitter      *events.Emitter
	Auth         *auth.Auth
	Providers    *oauth.Registry
	Breakers     *circuitbreaker.Registry
	Refresher    *oauth.Refresher
	Handshake    *oauth.Handshake
	Connections  *oauth.Connections
	Integrations *integrations.Service
	Verifier     *signature.Verifier
	Sweeper      *oauth.Sweeper
	Logger       logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{"component", "app"}),
	}
	ctx := context.Background()

	if err := app.initializeStorage(ctx); err != nil {
		return nil, err
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional; nonces, locks and rate limits fall back to process memory
		app.Logger.Warn("Redis initialization failed, continuing without Redis", logging.Err(err))
	}
	app.initializeLocker()

	if err := app.initializeEvents(ctx); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.initializeAuth()

	if err := app.initializeOAuth(); err != nil {
		app.Cleanup()
		return nil, err
	}

	return app, nil
}

// Start launches background work
func (app *App) Start(ctx context.Context) {
	if app.Sweeper != nil {
		app.Sweeper.Start(ctx)
	}
}

// Shutdown stops background work before the server drains
func (app *App) Shutdown(ctx context.Context) error {
	if app.Sweeper != nil {
		app.Sweeper.Stop()
		app.Logger.Info("Refresh sweeper stopped")
	}
	return nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Emitter != nil {
		if err := app.Emitter.Close(); err != nil {
			app.Logger.Warn("Error closing event publisher", logging.Err(err))
		}
	}
	if app.Storage != nil {
		app.Storage.Close()
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
