package oauth2

import (
	"context"
	"net/http"
	"time"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/common/utils"
	"crm-connect/internal/events"
	"crm-connect/internal/models"
	"crm-connect/internal/storage"
)

// Callback is what the provider appends to the redirect URI
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Handshake runs the authorization code flow from consent URL to stored
// credential
type Handshake struct {
	store     storage.Store
	providers *Registry
	states    *StateCodec
	emitter   *events.Emitter
	logger    logging.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewHandshake(store storage.Store, providers *Registry, states *StateCodec, emitter *events.Emitter, logger logging.Logger, timeout time.Duration) *Handshake {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	return &Handshake{
		store:     store,
		providers: providers,
		states:    states,
		emitter:   emitter,
		logger:    logger.WithFields(logging.Field{"component", "oauth2_handshake"}),
		timeout:   timeout,
		now:       time.Now,
	}
}

// Initiate returns the consent URL for owner. It refuses to build one when
// there is no user to bind the callback to.
func (h *Handshake) Initiate(ctx context.Context, owner models.Owner, providerName models.Provider) (string, error) {
	if !owner.Valid() {
		return "", errors.ValidationError("a user is required to connect a provider")
	}
	provider, err := h.providers.Get(providerName)
	if err != nil {
		return "", err
	}
	state, err := h.states.Issue(ctx, owner, providerName)
	if err != nil {
		return "", err
	}
	h.logger.Debug("Authorization initiated",
		logging.Field{"provider", string(providerName)},
		logging.Field{"owner", owner.Key()},
	)
	return provider.AuthCodeURL(state), nil
}

// HandleCallback validates the callback, exchanges the code exactly once,
// resolves the account and stores the credential
func (h *Handshake) HandleCallback(ctx context.Context, providerName models.Provider, cb Callback) (*models.Credential, error) {
	name := string(providerName)
	provider, err := h.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	if cb.Error != "" {
		// Burn the state so the same redirect cannot be replayed with a code
		if cb.State != "" {
			_, _ = h.states.Consume(ctx, cb.State, providerName)
		}
		reason := cb.Error
		if cb.ErrorDescription != "" {
			reason += ": " + cb.ErrorDescription
		}
		h.logger.Warn("Provider denied authorization",
			logging.Field{"provider", name},
			logging.Field{"reason", reason},
		)
		return nil, errors.ProviderDeniedError(name, reason)
	}

	owner, err := h.states.Consume(ctx, cb.State, providerName)
	if err != nil {
		if errors.IsType(err, errors.ErrTypeInvalidState) {
			h.logger.Warn("Rejected OAuth callback state",
				logging.Field{"provider", name},
				logging.Err(err),
			)
		}
		return nil, err
	}
	if cb.Code == "" {
		h.logger.Warn("OAuth callback without code", logging.Field{"provider", name}, logging.Field{"owner", owner.Key()})
		return nil, errors.InvalidStateError("missing authorization code")
	}

	logger := h.logger.WithFields(
		logging.Field{"provider", name},
		logging.Field{"owner", owner.Key()},
	)

	exchangeCtx, cancel := context.WithTimeout(ctx, h.timeout)
	tokens, err := provider.ExchangeCode(exchangeCtx, cb.Code)
	cancel()
	if err != nil {
		logger.Warn("Authorization code exchange failed", logging.Err(err))
		return nil, classifyExchangeError(name, err)
	}
	if tokens == nil || tokens.AccessToken == "" {
		return nil, errors.ProviderAPIError(name, http.StatusBadGateway, nil).WithCode("EMPTY_TOKEN_RESPONSE")
	}

	identityCtx, cancel := context.WithTimeout(ctx, h.timeout)
	identity, err := provider.FetchIdentity(identityCtx, tokens)
	cancel()
	if err != nil {
		logger.Warn("Failed to resolve provider account", logging.Err(err))
		if errors.GetType(err) == errors.ErrTypeProvider {
			return nil, err
		}
		return nil, errors.ConnectionError(name+" account lookup failed", err)
	}

	previous, err := h.store.Get(ctx, owner, providerName)
	if err != nil && !errors.IsType(err, errors.ErrTypeNotFound) {
		return nil, err
	}

	now := h.now().UTC()
	cred := &models.Credential{
		ID:           utils.NewCredentialID(),
		Owner:        owner,
		Provider:     providerName,
		AccountEmail: identity.Email,
		AccountID:    identity.AccountID,
		ExtensionID:  identity.ExtensionID,
		AccountName:  identity.Name,
		TokenType:    "Bearer",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	cred.ApplyTokens(tokens)

	if missing := cred.MissingScopes(provider.Scopes()); cred.Scope != "" && len(missing) > 0 {
		logger.Warn("Provider granted fewer scopes than requested", logging.Strings("missing_scopes", missing))
	}

	switched := previous != nil && previous.AccountID != "" && previous.AccountID != cred.AccountID
	if switched {
		logger.Info("Owner connected a different provider account",
			logging.Field{"previous_account", previous.AccountID},
			logging.Field{"account", cred.AccountID},
		)
		// The stored refresh token belongs to the other account
		if tokens.RefreshToken == "" {
			if _, err := h.store.Delete(ctx, owner, providerName); err != nil {
				return nil, err
			}
		}
	}

	if _, err := h.store.Upsert(ctx, cred); err != nil {
		logger.Error("Failed to store credential", err)
		return nil, err
	}
	stored, err := h.store.Get(ctx, owner, providerName)
	if err != nil {
		return nil, err
	}
	if !stored.HasRefreshToken() {
		logger.Warn("Connected credential has no refresh token; it will need re-consent when the access token expires")
	}

	logger.Info("Provider account connected",
		logging.Field{"account", stored.AccountID},
		logging.Field{"email", stored.AccountEmail},
	)
	h.emitter.Emit(ctx, events.ForCredential(events.CredentialConnected, stored).
		With("email", stored.AccountEmail).
		With("account_switched", switched))
	return stored, nil
}
