package app

import (
	"context"
	"strings"

	"crm-connect/internal/auth"
	"crm-connect/internal/circuitbreaker"
	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/events"
	"crm-connect/internal/integrations"
	oauth "crm-connect/internal/oauth2"
	"crm-connect/internal/providers/google"
	"crm-connect/internal/providers/ringcentral"
	"crm-connect/internal/signature"
)

func (app *App) initializeEvents(ctx context.Context) error {
	publisher, err := events.NewPublisher(ctx, app.Config, app.RedisClient)
	if err != nil {
		return err
	}
	app.Emitter = events.NewEmitter(publisher, app.Logger)
	app.Logger.Info("Credential events", logging.Field{"backend", publisher.Name()})
	return nil
}

func (app *App) initializeAuth() {
	// a typed nil would defeat the blacklist's nil check
	var blacklist auth.RedisClient
	if app.RedisClient != nil {
		blacklist = app.RedisClient
	}
	app.Auth = auth.New(app.Config, blacklist, app.Logger)
}

// buildProviders registers every provider with client credentials
func (app *App) buildProviders() (*oauth.Registry, error) {
	var providers []oauth.Provider

	if app.Config.GoogleEnabled() {
		providers = append(providers, google.New(google.Config{
			ClientID:     app.Config.GoogleClientID,
			ClientSecret: app.Config.GoogleClientSecret,
			RedirectURL:  app.Config.GoogleRedirectURI,
			Scopes:       app.Config.GoogleScopes,
			Timeout:      app.Config.OAuthHTTPTimeout,
		}))
		app.Logger.Info("Provider enabled", logging.Field{"provider", "google"})
	}

	if app.Config.RingCentralEnabled() {
		providers = append(providers, ringcentral.New(ringcentral.Config{
			ClientID:     app.Config.RingCentralClientID,
			ClientSecret: app.Config.RingCentralClientSecret,
			RedirectURL:  app.Config.RingCentralRedirectURI,
			ServerURL:    app.Config.RingCentralBaseURL(),
			Scopes:       app.Config.RingCentralScopes,
			Timeout:      app.Config.OAuthHTTPTimeout,
		}))
		app.Logger.Info("Provider enabled",
			logging.Field{"provider", "ringcentral"},
			logging.Field{"server_url", app.Config.RingCentralBaseURL()},
		)
	}

	if len(providers) == 0 {
		return nil, errors.ConfigError("no OAuth provider configured; set GOOGLE_CLIENT_ID/SECRET or RINGCENTRAL_CLIENT_ID/SECRET")
	}
	return oauth.NewRegistry(providers...), nil
}

func (app *App) initializeOAuth() error {
	providers, err := app.buildProviders()
	if err != nil {
		return err
	}
	app.Providers = providers
	app.Breakers = circuitbreaker.NewRegistry(circuitbreaker.TokenEndpointConfig, app.Logger)

	var nonces oauth.NonceStore = oauth.NewMemoryNonceStore()
	if app.RedisClient != nil {
		nonces = oauth.NewRedisNonceStore(app.RedisClient)
	}
	states, err := oauth.NewStateCodec(app.Config.StateSecret, app.Config.StateTTL, nonces)
	if err != nil {
		return err
	}

	app.Refresher = oauth.NewRefresher(app.Storage, providers,
		oauth.WithLocker(app.Locker),
		oauth.WithBreakers(app.Breakers),
		oauth.WithEmitter(app.Emitter),
		oauth.WithLogger(app.Logger),
		oauth.WithTimeout(app.Config.OAuthHTTPTimeout),
	)
	clients := oauth.NewClientFactory(app.Storage, providers, app.Refresher, app.Logger)
	executor := oauth.NewExecutor(clients, app.Refresher, app.Logger)

	app.Handshake = oauth.NewHandshake(app.Storage, providers, states, app.Emitter, app.Logger, app.Config.OAuthHTTPTimeout)
	app.Connections = oauth.NewConnections(app.Storage, providers, app.Emitter, app.Logger)
	app.Integrations = integrations.NewService(executor, app.Logger)

	// comma separated so a rotated secret can overlap with the old one
	webhookSecrets := strings.Split(app.Config.RingCentralWebhookSecret, ",")
	webhook := signature.RingCentral(webhookSecrets...)
	if !webhook.Enabled {
		app.Logger.Warn("RINGCENTRAL_WEBHOOK_SECRET not set; webhook signatures are not verified")
	}
	app.Verifier = signature.NewVerifier(webhook, app.Logger)

	if app.Config.RefreshSweepEnabled {
		sweeper, err := oauth.NewSweeper(app.Storage, app.Refresher, app.Config.RefreshSweepSchedule, app.Logger)
		if err != nil {
			return err
		}
		app.Sweeper = sweeper
	}
	return nil
}
