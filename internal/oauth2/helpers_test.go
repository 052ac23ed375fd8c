package oauth2

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"crm-connect/internal/common/logging"
	"crm-connect/internal/events"
	"crm-connect/internal/models"
	"crm-connect/internal/storage"
)

// apiError is what fakeHandle operations fail with
type apiError struct {
	status int
}

func (e *apiError) Error() string { return fmt.Sprintf("provider api returned %d", e.status) }

type fakeHandle struct {
	provider models.Provider
	token    string
}

func (h *fakeHandle) Provider() models.Provider { return h.provider }

type fakeProvider struct {
	name   models.Provider
	scopes []string

	refreshCalls  atomic.Int32
	exchangeCalls atomic.Int32
	revokeCalls   atomic.Int32
	revokeErr     error
	revoked       []string

	mu        sync.Mutex
	refreshFn func(ctx context.Context, cred *models.Credential) (*models.TokenSet, error)
	exchange  func(ctx context.Context, code string) (*models.TokenSet, error)
	identity  *models.Identity
}

func newFakeProvider(name models.Provider) *fakeProvider {
	p := &fakeProvider{
		name:     name,
		scopes:   []string{"read", "write"},
		identity: &models.Identity{Email: "owner@example.com", AccountID: "acct-1"},
	}
	p.refreshFn = func(_ context.Context, cred *models.Credential) (*models.TokenSet, error) {
		n := p.refreshCalls.Load()
		return &models.TokenSet{
			AccessToken:  fmt.Sprintf("access-%d", n),
			AccessExpiry: time.Now().Add(time.Hour),
		}, nil
	}
	p.exchange = func(_ context.Context, code string) (*models.TokenSet, error) {
		return &models.TokenSet{
			AccessToken:  "access-" + code,
			RefreshToken: "refresh-" + code,
			TokenType:    "Bearer",
			Scope:        "read write",
			AccessExpiry: time.Now().Add(time.Hour),
		}, nil
	}
	return p
}

func (p *fakeProvider) onRefresh(fn func(ctx context.Context, cred *models.Credential) (*models.TokenSet, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshFn = fn
}

func (p *fakeProvider) Name() models.Provider { return p.name }
func (p *fakeProvider) Scopes() []string      { return p.scopes }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://consent.example.com/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, code string) (*models.TokenSet, error) {
	p.exchangeCalls.Add(1)
	return p.exchange(ctx, code)
}

func (p *fakeProvider) Refresh(ctx context.Context, cred *models.Credential) (*models.TokenSet, error) {
	p.refreshCalls.Add(1)
	p.mu.Lock()
	fn := p.refreshFn
	p.mu.Unlock()
	return fn(ctx, cred)
}

func (p *fakeProvider) FetchIdentity(_ context.Context, _ *models.TokenSet) (*models.Identity, error) {
	id := *p.identity
	return &id, nil
}

func (p *fakeProvider) NewHandle(cred *models.Credential) Handle {
	return &fakeHandle{provider: p.name, token: cred.AccessToken}
}

func (p *fakeProvider) Revoke(_ context.Context, cred *models.Credential) error {
	p.revokeCalls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, cred.RefreshToken)
	return p.revokeErr
}

func (p *fakeProvider) IsAuthFailure(err error) bool {
	var apiErr *apiError
	return stderrors.As(err, &apiErr) && apiErr.status == 401
}

type fixture struct {
	store     *storage.MemoryStore
	provider  *fakeProvider
	registry  *Registry
	recorder  *events.Recorder
	emitter   *events.Emitter
	refresher *Refresher
	clients   *ClientFactory
	executor  *Executor
}

func newFixture(t *testing.T, opts ...RefresherOption) *fixture {
	t.Helper()
	f := &fixture{
		store:    storage.NewMemoryStore(),
		provider: newFakeProvider(models.ProviderGoogle),
		recorder: &events.Recorder{},
	}
	logger := logging.NewNopLogger()
	f.registry = NewRegistry(f.provider)
	f.emitter = events.NewEmitter(f.recorder, logger)
	opts = append([]RefresherOption{WithEmitter(f.emitter), WithLogger(logger)}, opts...)
	f.refresher = NewRefresher(f.store, f.registry, opts...)
	f.clients = NewClientFactory(f.store, f.registry, f.refresher, logger)
	f.clients.retryDelay = time.Millisecond
	f.executor = NewExecutor(f.clients, f.refresher, logger)
	return f
}

// seed stores a credential for user 42 whose access token expires at expiry
func (f *fixture) seed(t *testing.T, expiry time.Time) *models.Credential {
	t.Helper()
	cred := &models.Credential{
		Owner:        models.UserOwner("42"),
		Provider:     f.provider.name,
		AccountEmail: "owner@example.com",
		AccountID:    "acct-1",
		AccessToken:  "stale-access",
		RefreshToken: "refresh-1",
		Scope:        "read write",
		AccessExpiry: expiry,
	}
	_, err := f.store.Upsert(context.Background(), cred)
	require.NoError(t, err)
	stored, err := f.store.Get(context.Background(), cred.Owner, cred.Provider)
	require.NoError(t, err)
	return stored
}
