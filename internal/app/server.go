package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"crm-connect/internal/handlers"
	"crm-connect/internal/server"
)

// Handler builds the routed HTTP handler for the application
func (app *App) Handler() http.Handler {
	deps := handlers.Deps{
		Config:       app.Config,
		Auth:         app.Auth,
		Store:        app.Storage,
		Handshake:    app.Handshake,
		Connections:  app.Connections,
		Providers:    app.Providers,
		Integrations: app.Integrations,
		Verifier:     app.Verifier,
		Emitter:      app.Emitter,
		Breakers:     app.Breakers,
		Logger:       app.Logger,
	}
	if app.RedisClient != nil {
		deps.Redis = app.RedisClient
	}
	h := handlers.New(deps)

	router := mux.NewRouter()
	SetupRoutes(router, h, app.Auth.RequireAuth, app.InitializeRateLimiter(), app.Logger)
	return router
}

// RunServer creates the HTTP server with all handlers configured
func (app *App) RunServer() *server.Server {
	return server.New(app.Handler(), app.Config.Port, app.Config.TLSCertFile, app.Config.TLSKeyFile, app.Logger)
}
