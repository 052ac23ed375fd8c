package oauth2

import (
	"context"
	"fmt"
	"sort"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/models"
)

// Handle is an authenticated client for one provider, bound to one access
// token. Handles are built per call and never shared between owners.
type Handle interface {
	Provider() models.Provider
}

// Provider is the capability set each OAuth provider implements
type Provider interface {
	// Name identifies the provider in routes, storage and logs
	Name() models.Provider

	// Scopes are the scopes requested on the consent screen
	Scopes() []string

	// AuthCodeURL returns the consent URL carrying state
	AuthCodeURL(state string) string

	// ExchangeCode trades an authorization code for tokens. Codes are
	// single use, so callers must not retry it.
	ExchangeCode(ctx context.Context, code string) (*models.TokenSet, error)

	// Refresh mints a new access token from the credential's refresh token.
	// Token endpoint rejections are returned as *TokenError.
	Refresh(ctx context.Context, cred *models.Credential) (*models.TokenSet, error)

	// FetchIdentity resolves the account the tokens belong to
	FetchIdentity(ctx context.Context, tokens *models.TokenSet) (*models.Identity, error)

	// NewHandle builds a fresh Handle for the credential's access token
	NewHandle(cred *models.Credential) Handle

	// Revoke invalidates the credential's grant at the provider. Callers
	// treat it as best effort.
	Revoke(ctx context.Context, cred *models.Credential) error

	// IsAuthFailure reports whether an API error means the access token was
	// rejected (expired or revoked) as opposed to any other failure
	IsAuthFailure(err error) bool
}

// Registry holds the configured providers
type Registry struct {
	providers map[models.Provider]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[models.Provider]Provider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Get returns the provider or a not_found error when it is not configured
func (r *Registry) Get(name models.Provider) (Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, errors.NotFoundError(fmt.Sprintf("provider %s", name)).WithCode("PROVIDER_NOT_CONFIGURED")
}

// Names lists configured providers in a stable order
func (r *Registry) Names() []models.Provider {
	names := make([]models.Provider, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
