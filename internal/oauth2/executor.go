package oauth2

import (
	"context"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/models"
)

// Operation is one provider API call made with an authenticated handle
type Operation func(ctx context.Context, handle Handle) error

// Executor runs provider calls and recovers from tokens the provider rejects
// before their recorded expiry (clock skew, revocation at the provider).
type Executor struct {
	clients   *ClientFactory
	refresher *Refresher
	logger    logging.Logger
}

func NewExecutor(clients *ClientFactory, refresher *Refresher, logger logging.Logger) *Executor {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Executor{
		clients:   clients,
		refresher: refresher,
		logger:    logger.WithFields(logging.Field{"component", "oauth2_executor"}),
	}
}

// Execute runs op with a valid handle. If the provider rejects the token, the
// credential is force refreshed and op runs exactly once more; a second
// rejection is AuthExpired. Any other error from op is returned untouched.
func (e *Executor) Execute(ctx context.Context, owner models.Owner, providerName models.Provider, op Operation) error {
	provider, cred, handle, err := e.clients.acquire(ctx, owner, providerName)
	if err != nil {
		return err
	}

	err = op(ctx, handle)
	if err == nil || !provider.IsAuthFailure(err) {
		return err
	}

	logger := e.logger.WithFields(
		logging.Field{"provider", string(providerName)},
		logging.Field{"owner", owner.Key()},
	)
	logger.Info("Provider rejected access token, forcing refresh", logging.Err(err))

	refreshed, refreshErr := e.refresher.ForceRefresh(ctx, cred)
	if refreshErr != nil {
		switch errors.GetType(refreshErr) {
		case errors.ErrTypeReauthRequired, errors.ErrTypeTransient:
			return refreshErr
		}
		return errors.AuthExpiredError(string(providerName), refreshErr)
	}

	err = op(ctx, provider.NewHandle(refreshed))
	if err == nil {
		return nil
	}
	if provider.IsAuthFailure(err) {
		logger.Warn("Provider rejected refreshed access token", logging.Err(err))
		return errors.AuthExpiredError(string(providerName), err)
	}
	return err
}

// Call is Execute for operations that produce a value
func Call[T any](ctx context.Context, e *Executor, owner models.Owner, providerName models.Provider, fn func(ctx context.Context, handle Handle) (T, error)) (T, error) {
	var out T
	err := e.Execute(ctx, owner, providerName, func(ctx context.Context, handle Handle) error {
		v, err := fn(ctx, handle)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
