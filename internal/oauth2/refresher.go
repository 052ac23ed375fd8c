package oauth2

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"crm-connect/internal/circuitbreaker"
	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/events"
	"crm-connect/internal/locks"
	"crm-connect/internal/models"
	"crm-connect/internal/storage"
)

const (
	defaultRefreshTimeout = 15 * time.Second
	defaultLockTTL        = 30 * time.Second
)

// Refresher keeps access tokens valid. Concurrent refreshes of the same
// credential collapse into one provider call inside this process
// (singleflight) and across replicas (distributed lock).
type Refresher struct {
	store     storage.Store
	providers *Registry
	breakers  *circuitbreaker.Registry
	locker    locks.Locker
	emitter   *events.Emitter
	logger    logging.Logger
	timeout   time.Duration
	lockTTL   time.Duration
	now       func() time.Time
	group     singleflight.Group
}

// RefresherOption configures a Refresher
type RefresherOption func(*Refresher)

// WithLocker sets the cross-process lock; the default only covers this process
func WithLocker(locker locks.Locker) RefresherOption {
	return func(r *Refresher) { r.locker = locker }
}

func WithBreakers(breakers *circuitbreaker.Registry) RefresherOption {
	return func(r *Refresher) { r.breakers = breakers }
}

func WithEmitter(emitter *events.Emitter) RefresherOption {
	return func(r *Refresher) { r.emitter = emitter }
}

func WithLogger(logger logging.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = logger }
}

// WithTimeout bounds each provider token call
func WithTimeout(timeout time.Duration) RefresherOption {
	return func(r *Refresher) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) { r.now = now }
}

func NewRefresher(store storage.Store, providers *Registry, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		store:     store,
		providers: providers,
		locker:    locks.NewLocalLocker(),
		timeout:   defaultRefreshTimeout,
		lockTTL:   defaultLockTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.GetGlobalLogger()
	}
	r.logger = r.logger.WithFields(logging.Field{"component", "oauth2_refresher"})
	if r.breakers == nil {
		r.breakers = circuitbreaker.NewRegistry(circuitbreaker.TokenEndpointConfig, r.logger)
	}
	if r.lockTTL < 2*r.timeout {
		r.lockTTL = 2 * r.timeout
	}
	return r
}

// EnsureValid returns a credential whose access token is good for at least
// SafetyMargin. A token that is still valid is returned without any network
// or lock traffic. A credential that can no longer be refreshed is rejected
// even while its access token lasts.
func (r *Refresher) EnsureValid(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if err := r.checkRefreshable(cred); err != nil {
		return nil, err
	}
	if !cred.AccessExpired(r.now(), SafetyMargin) {
		return cred, nil
	}
	return r.collapse(ctx, cred, false)
}

// ForceRefresh mints a new access token even if cred looks valid. It is used
// after a provider rejected cred's token.
func (r *Refresher) ForceRefresh(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if err := r.checkRefreshable(cred); err != nil {
		return nil, err
	}
	return r.collapse(ctx, cred, true)
}

func (r *Refresher) checkRefreshable(cred *models.Credential) error {
	provider := string(cred.Provider)
	if !cred.HasRefreshToken() {
		return errors.ReauthRequiredError(provider, nil).WithContext("reason", "no_refresh_token")
	}
	if cred.RefreshExpired(r.now()) {
		return errors.ReauthRequiredError(provider, nil).WithContext("reason", "refresh_token_expired")
	}
	if cred.NeedsReauth() {
		return errors.ReauthRequiredError(provider, nil).WithContext("reason", "grant_rejected")
	}
	return nil
}

// refreshOutcome is shared by every caller collapsed onto one refresh. The
// event is published once, by whichever caller sees the outcome first.
type refreshOutcome struct {
	cred  *models.Credential
	event *events.Event
	once  sync.Once
}

func (r *Refresher) collapse(ctx context.Context, cred *models.Credential, force bool) (*models.Credential, error) {
	key := string(cred.Provider) + ":" + cred.Owner.Key()
	if force {
		key += ":force"
	}
	seen := cred.AccessToken

	// The shared refresh must survive the first caller going away
	ch := r.group.DoChan(key, func() (interface{}, error) {
		out := &refreshOutcome{}
		var err error
		out.cred, out.event, err = r.refresh(context.WithoutCancel(ctx), cred.Owner, cred.Provider, force, seen)
		return out, err
	})

	select {
	case <-ctx.Done():
		go func() { r.publish(<-ch) }()
		return nil, errors.TransientRefreshError(string(cred.Provider), ctx.Err()).WithContext("reason", "cancelled")
	case res := <-ch:
		r.publish(res)
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*refreshOutcome).cred.Clone(), nil
	}
}

// publish runs once the refresh lock and the singleflight slot are released
func (r *Refresher) publish(res singleflight.Result) {
	out, ok := res.Val.(*refreshOutcome)
	if !ok || out.event == nil {
		return
	}
	out.once.Do(func() {
		r.emitter.Emit(context.Background(), *out.event)
	})
}

// refresh returns the refreshed credential and the lifecycle event to publish
// once the lock is gone. The event is set on success and when the provider
// rejected the grant.
func (r *Refresher) refresh(ctx context.Context, owner models.Owner, providerName models.Provider, force bool, seen string) (*models.Credential, *events.Event, error) {
	name := string(providerName)
	logger := r.logger.WithFields(
		logging.Field{"provider", name},
		logging.Field{"owner", owner.Key()},
		logging.Field{"forced", force},
	)

	provider, err := r.providers.Get(providerName)
	if err != nil {
		return nil, nil, err
	}

	lockCtx, cancelLock := context.WithTimeout(ctx, r.lockTTL)
	lock, err := r.locker.Obtain(lockCtx, "refresh:"+name+":"+owner.Key(), r.lockTTL)
	cancelLock()
	if err != nil {
		return nil, nil, errors.TransientRefreshError(name, err).WithContext("reason", "lock_unavailable")
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			logger.Warn("Failed to release refresh lock", logging.Err(err))
		}
	}()

	// Another caller or replica may have refreshed while we waited for the lock
	current, err := r.store.Get(ctx, owner, providerName)
	if err != nil {
		if errors.IsType(err, errors.ErrTypeNotFound) {
			return nil, nil, errors.NotConnectedError(name)
		}
		return nil, nil, err
	}
	fresh := !current.AccessExpired(r.now(), SafetyMargin)
	if fresh && (!force || current.AccessToken != seen) {
		logger.Debug("Credential already refreshed by a concurrent caller")
		return current, nil, nil
	}
	if err := r.checkRefreshable(current); err != nil {
		return nil, nil, err
	}

	var tokens *models.TokenSet
	breaker := r.breakers.Get("oauth2-" + name)
	err = breaker.Execute(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		var callErr error
		tokens, callErr = provider.Refresh(callCtx, current)
		return classifyRefreshError(name, callErr)
	})
	if err != nil {
		err = classifyRefreshError(name, err)
		if !errors.IsType(err, errors.ErrTypeReauthRequired) {
			logger.Warn("Token refresh failed", logging.Err(err))
			return nil, nil, err
		}
		logger.Warn("Refresh token rejected by provider", logging.Err(err))
		if markErr := r.store.MarkReauthRequired(ctx, current.ID, r.now().UTC()); markErr != nil {
			logger.Error("Failed to mark credential as needing reconnect", markErr)
		}
		ev := events.ForCredential(events.CredentialReauthRequired, current).With("reason", reasonOf(err))
		return nil, &ev, err
	}
	if tokens == nil || tokens.AccessToken == "" {
		return nil, nil, errors.TransientRefreshError(name, nil).WithContext("reason", "empty_access_token")
	}

	rotated := tokens.RefreshToken != "" && tokens.RefreshToken != current.RefreshToken
	current.ApplyTokens(tokens)
	current.UpdatedAt = r.now().UTC()

	if rotated {
		err = r.store.UpdateTokens(ctx, current)
	} else {
		err = r.store.UpdateAccessToken(ctx, current.ID, current.AccessToken, current.AccessExpiry)
	}
	if err != nil {
		logger.Error("Failed to persist refreshed token", err)
		return nil, nil, err
	}

	logger.Info("Access token refreshed",
		logging.Field{"expires_at", current.AccessExpiry},
		logging.Field{"refresh_rotated", rotated},
	)
	ev := events.ForCredential(events.CredentialRefreshed, current).
		With("expires_at", current.AccessExpiry).
		With("refresh_rotated", rotated)
	return current, &ev, nil
}

func reasonOf(err error) string {
	if appErr, ok := errors.As(err); ok {
		if reason, ok := appErr.Context["reason"].(string); ok {
			return reason
		}
	}
	return ""
}
