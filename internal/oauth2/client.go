package oauth2

import (
	"context"
	"time"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/common/utils"
	"crm-connect/internal/models"
	"crm-connect/internal/storage"
)

// transientRetryDelay is the pause before the one retry a transient refresh
// failure gets
const transientRetryDelay = 250 * time.Millisecond

// ClientFactory hands out provider handles bound to a currently valid token
type ClientFactory struct {
	store      storage.Store
	providers  *Registry
	refresher  *Refresher
	retryDelay time.Duration
	logger     logging.Logger
}

func NewClientFactory(store storage.Store, providers *Registry, refresher *Refresher, logger logging.Logger) *ClientFactory {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &ClientFactory{
		store:      store,
		providers:  providers,
		refresher:  refresher,
		retryDelay: transientRetryDelay,
		logger:     logger.WithFields(logging.Field{"component", "oauth2_clients"}),
	}
}

// GetClient loads the owner's credential, refreshes it when needed and
// returns a new handle. Handles are never cached.
func (f *ClientFactory) GetClient(ctx context.Context, owner models.Owner, providerName models.Provider) (Handle, error) {
	_, _, handle, err := f.acquire(ctx, owner, providerName)
	return handle, err
}

// Credential returns the owner's credential after EnsureValid, without
// building a handle
func (f *ClientFactory) Credential(ctx context.Context, owner models.Owner, providerName models.Provider) (*models.Credential, error) {
	_, cred, _, err := f.acquire(ctx, owner, providerName)
	return cred, err
}

func (f *ClientFactory) acquire(ctx context.Context, owner models.Owner, providerName models.Provider) (Provider, *models.Credential, Handle, error) {
	if !owner.Valid() {
		return nil, nil, nil, errors.ValidationError("a user is required to use a provider connection")
	}
	provider, err := f.providers.Get(providerName)
	if err != nil {
		return nil, nil, nil, err
	}

	cred, err := f.store.Get(ctx, owner, providerName)
	if err != nil {
		if errors.IsType(err, errors.ErrTypeNotFound) {
			return nil, nil, nil, errors.NotConnectedError(string(providerName))
		}
		return nil, nil, nil, err
	}

	var valid *models.Credential
	retry := utils.SingleRetry(f.retryDelay, func(err error) bool {
		return errors.IsType(err, errors.ErrTypeTransient)
	})
	err = utils.RetryWithBackoff(ctx, retry, func() error {
		var refreshErr error
		valid, refreshErr = f.refresher.EnsureValid(ctx, cred)
		return refreshErr
	})
	if err != nil {
		f.logger.Debug("Credential unusable",
			logging.Field{"provider", string(providerName)},
			logging.Field{"owner", owner.Key()},
			logging.Field{"error_type", string(errors.GetType(err))},
		)
		return nil, nil, nil, err
	}

	return provider, valid, provider.NewHandle(valid), nil
}
