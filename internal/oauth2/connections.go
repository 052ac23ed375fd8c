package oauth2

import (
	"context"
	"time"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/events"
	"crm-connect/internal/models"
	"crm-connect/internal/storage"
)

// Status is what the status endpoint reports for one provider
type Status struct {
	Provider    models.Provider     `json:"provider"`
	Connected   bool                `json:"connected"`
	Email       string              `json:"email,omitempty"`
	AccountInfo *models.AccountInfo `json:"accountInfo,omitempty"`
	ConnectedAt *time.Time          `json:"connectedAt,omitempty"`
	NeedsReauth bool                `json:"needsReauth,omitempty"`
}

// revokeTimeout bounds the provider call made while disconnecting
const revokeTimeout = 10 * time.Second

// Connections answers status queries and disconnects
type Connections struct {
	store     storage.Store
	providers *Registry
	emitter   *events.Emitter
	logger    logging.Logger
	now       func() time.Time
}

func NewConnections(store storage.Store, providers *Registry, emitter *events.Emitter, logger logging.Logger) *Connections {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Connections{
		store:     store,
		providers: providers,
		emitter:   emitter,
		logger:    logger.WithFields(logging.Field{"component", "oauth2_connections"}),
		now:       time.Now,
	}
}

// Status never touches the provider. Google reports the account email,
// RingCentral the account and extension.
func (c *Connections) Status(ctx context.Context, owner models.Owner, provider models.Provider) (*Status, error) {
	if !owner.Valid() {
		return nil, errors.ValidationError("a user is required")
	}
	cred, err := c.store.Get(ctx, owner, provider)
	if err != nil {
		if errors.IsType(err, errors.ErrTypeNotFound) {
			return &Status{Provider: provider}, nil
		}
		return nil, err
	}

	connectedAt := cred.CreatedAt
	status := &Status{
		Provider:    provider,
		Connected:   true,
		ConnectedAt: &connectedAt,
		NeedsReauth: !cred.HasRefreshToken() || cred.RefreshExpired(c.now()) || cred.NeedsReauth(),
	}
	if provider == models.ProviderRingCentral {
		status.AccountInfo = &models.AccountInfo{
			AccountID:   cred.AccountID,
			ExtensionID: cred.ExtensionID,
			Name:        cred.AccountName,
			Email:       cred.AccountEmail,
		}
	} else {
		status.Email = cred.AccountEmail
	}
	return status, nil
}

// Disconnect revokes the grant at the provider, best effort, then deletes
// the credential. Disconnecting something that is not connected is not an
// error; the result reports whether a row went away.
func (c *Connections) Disconnect(ctx context.Context, owner models.Owner, provider models.Provider) (bool, error) {
	if !owner.Valid() {
		return false, errors.ValidationError("a user is required")
	}
	cred, err := c.store.Get(ctx, owner, provider)
	if err != nil && !errors.IsType(err, errors.ErrTypeNotFound) {
		return false, err
	}
	revoked := false
	if cred != nil {
		revoked = c.revoke(ctx, cred)
	}

	n, err := c.store.Delete(ctx, owner, provider)
	if err != nil {
		return false, err
	}
	if n == 0 {
		c.logger.Debug("Nothing to disconnect",
			logging.Field{"provider", string(provider)},
			logging.Field{"owner", owner.Key()},
		)
		return false, nil
	}

	c.logger.Info("Provider disconnected",
		logging.Field{"provider", string(provider)},
		logging.Field{"owner", owner.Key()},
		logging.Field{"revoked", revoked},
	)
	c.emitter.Emit(ctx, events.New(events.CredentialDisconnected, owner, provider).With("revoked", revoked))
	return true, nil
}

// revoke asks the provider to drop the grant. Failures are logged and the
// credential is deleted regardless.
func (c *Connections) revoke(ctx context.Context, cred *models.Credential) bool {
	if c.providers == nil || (!cred.HasRefreshToken() && cred.AccessToken == "") {
		return false
	}
	p, err := c.providers.Get(cred.Provider)
	if err != nil {
		return false
	}

	revokeCtx, cancel := context.WithTimeout(ctx, revokeTimeout)
	defer cancel()
	if err := p.Revoke(revokeCtx, cred); err != nil {
		c.logger.Warn("Provider revoke failed, deleting credential anyway",
			logging.Field{"provider", string(cred.Provider)},
			logging.Field{"owner", cred.Owner.Key()},
			logging.Err(err),
		)
		return false
	}
	return true
}
