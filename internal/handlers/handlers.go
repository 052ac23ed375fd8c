// Package handlers serves the HTTP surface of crm-connect: the OAuth connect
// flow per provider, the provider feature endpoints, the RingCentral webhook
// intake and the health check.
package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"crm-connect/internal/auth"
	"crm-connect/internal/circuitbreaker"
	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/config"
	"crm-connect/internal/events"
	"crm-connect/internal/integrations"
	"crm-connect/internal/models"
	oauth "crm-connect/internal/oauth2"
	"crm-connect/internal/signature"
	"crm-connect/internal/storage"
)

// HealthChecker is anything the health endpoint reports on besides the store
type HealthChecker interface {
	Health() error
}

// Deps are the collaborators the handlers need
type Deps struct {
	Config       *config.Config
	Auth         *auth.Auth
	Store        storage.Store
	Handshake    *oauth.Handshake
	Connections  *oauth.Connections
	Providers    *oauth.Registry
	Integrations *integrations.Service
	Verifier     *signature.Verifier
	Emitter      *events.Emitter
	Redis        HealthChecker
	Breakers     *circuitbreaker.Registry
	Logger       logging.Logger
}

type Handlers struct {
	config       *config.Config
	auth         *auth.Auth
	store        storage.Store
	handshake    *oauth.Handshake
	connections  *oauth.Connections
	providers    *oauth.Registry
	integrations *integrations.Service
	verifier     *signature.Verifier
	emitter      *events.Emitter
	redis        HealthChecker
	breakers     *circuitbreaker.Registry
	logger       logging.Logger
	now          func() time.Time
}

func New(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	verifier := deps.Verifier
	if verifier == nil {
		verifier = signature.NewVerifier(signature.RingCentral(), logger)
	}
	return &Handlers{
		config:       deps.Config,
		auth:         deps.Auth,
		store:        deps.Store,
		handshake:    deps.Handshake,
		connections:  deps.Connections,
		providers:    deps.Providers,
		integrations: deps.Integrations,
		verifier:     verifier,
		emitter:      deps.Emitter,
		redis:        deps.Redis,
		breakers:     deps.Breakers,
		logger:       logger.WithFields(logging.Field{"component", "handlers"}),
		now:          time.Now,
	}
}

// providerFromRequest reads the {provider} path variable
func providerFromRequest(r *http.Request) (models.Provider, error) {
	provider, err := models.ParseProvider(mux.Vars(r)["provider"])
	if err != nil {
		return "", errors.ValidationError(err.Error()).WithCode("UNKNOWN_PROVIDER")
	}
	return provider, nil
}

// owner resolves whose credential an authenticated request acts on
func (h *Handlers) owner(r *http.Request) (models.Owner, error) {
	return h.auth.Owner(r.Context())
}
