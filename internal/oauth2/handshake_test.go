package oauth2

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/events"
	"crm-connect/internal/models"
)

func newTestHandshake(t *testing.T, f *fixture) *Handshake {
	t.Helper()
	return NewHandshake(f.store, f.registry, newTestCodec(t, nil), f.emitter, logging.NewNopLogger(), time.Second)
}

func stateFrom(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestHandshake_InitiateRequiresOwner(t *testing.T) {
	f := newFixture(t)
	h := newTestHandshake(t, f)

	_, err := h.Initiate(context.Background(), models.Owner{}, models.ProviderGoogle)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestHandshake_InitiateUnknownProvider(t *testing.T) {
	f := newFixture(t)
	h := newTestHandshake(t, f)

	_, err := h.Initiate(context.Background(), models.UserOwner("42"), models.ProviderRingCentral)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestHandshake_ConnectsUser(t *testing.T) {
	f := newFixture(t)
	h := newTestHandshake(t, f)
	ctx := context.Background()

	authURL, err := h.Initiate(ctx, models.UserOwner("42"), models.ProviderGoogle)
	require.NoError(t, err)

	cred, err := h.HandleCallback(ctx, models.ProviderGoogle, Callback{Code: "abc", State: stateFrom(t, authURL)})
	require.NoError(t, err)

	assert.Equal(t, "42", cred.Owner.UserID)
	assert.Equal(t, "refresh-abc", cred.RefreshToken)
	assert.Equal(t, "access-abc", cred.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cred.AccessExpiry, 5*time.Second)
	assert.Equal(t, "owner@example.com", cred.AccountEmail)
	assert.Equal(t, "acct-1", cred.AccountID)
	assert.Equal(t, int32(1), f.provider.exchangeCalls.Load())

	stored, err := f.store.Get(ctx, models.UserOwner("42"), models.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, cred.ID, stored.ID)

	evs := f.recorder.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.CredentialConnected, evs[0].Type)
	assert.Equal(t, "user:42", evs[0].Owner)
	assert.Equal(t, false, evs[0].Data["account_switched"])
}

func TestHandshake_ReconsentKeepsRefreshToken(t *testing.T) {
	f := newFixture(t)
	h := newTestHandshake(t, f)
	ctx := context.Background()
	owner := models.UserOwner("42")

	authURL, err := h.Initiate(ctx, owner, models.ProviderGoogle)
	require.NoError(t, err)
	first, err := h.HandleCallback(ctx, models.ProviderGoogle, Callback{Code: "first", State: stateFrom(t, authURL)})
	require.NoError(t, err)

	f.provider.exchange = func(context.Context, string) (*models.TokenSet, error) {
		return &models.TokenSet{AccessToken: "access-second", AccessExpiry: time.Now().Add(time.Hour)}, nil
	}
	authURL, err = h.Initiate(ctx, owner, models.ProviderGoogle)
	require.NoError(t, err)
	second, err := h.HandleCallback(ctx, models.ProviderGoogle, Callback{Code: "second", State: stateFrom(t, authURL)})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "one row per owner and provider")
	assert.Equal(t, "access-second", second.AccessToken)
	assert.Equal(t, "refresh-first", second.RefreshToken)
}

func TestHandshake_AccountSwitchWithoutRefreshTokenDropsOldGrant(t *testing.T) {
	f := newFixture(t)
	h := newTestHandshake(t, f)
	ctx := context.Background()
	owner := models.UserOwner("42")
	f.seed(t, time.Now().Add(time.Hour))

	f.provider.identity = &models.Identity{Email: "other@example.com", AccountID: "acct-2"}
	f.provider.exchange = func(context.Context, string) (*models.TokenSet, error) {
		return &models.TokenSet{AccessToken: "access-other", AccessExpiry: time.Now().Add(time.Hour)}, nil
	}

	authURL, err := h.Initiate(ctx, owner, models.ProviderGoogle)
	require.NoError(t, err)
	cred, err := h.HandleCallback(ctx, models.ProviderGoogle, Callback{Code: "x", State: stateFrom(t, authURL)})
	require.NoError(t, err)

	assert.Equal(t, "acct-2", cred.AccountID)
	assert.Empty(t, cred.RefreshToken, "the other account's refresh token is not inherited")
	assert.Equal(t, true, f.recorder.Events()[0].Data["account_switched"])
}

func TestHandshake_ProviderDenied(t *testing.T) {
	f := newFixture(t)
	h := newTestHandshake(t, f)
	ctx := context.Background()

	authURL, err := h.Initiate(ctx, models.UserOwner("42"), models.ProviderGoogle)
	require.NoError(t, err)
	state := stateFrom(t, authURL)

	_, err = h.HandleCallback(ctx, models.ProviderGoogle, Callback{Error: "access_denied", State: state})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeProviderDenied))
	assert.Equal(t, http.StatusForbidden, errors.HTTPStatus(err))
	assert.Zero(t, f.provider.exchangeCalls.Load())

	_, err = h.HandleCallback(ctx, models.ProviderGoogle, Callback{Code: "abc", State: state})
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidState), "denied state cannot be reused")
}

func TestHandshake_InvalidCallbacks(t *testing.T) {
	f := newFixture(t)
	h := newTestHandshake(t, f)
	ctx := context.Background()

	authURL, err := h.Initiate(ctx, models.UserOwner("42"), models.ProviderGoogle)
	require.NoError(t, err)
	state := stateFrom(t, authURL)

	tests := []struct {
		name string
		cb   Callback
	}{
		{"missing state", Callback{Code: "abc"}},
		{"unsigned json state", Callback{Code: "abc", State: `{"userId":42}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.HandleCallback(ctx, models.ProviderGoogle, tt.cb)
			assert.True(t, errors.IsType(err, errors.ErrTypeInvalidState))
		})
	}

	t.Run("missing code", func(t *testing.T) {
		_, err := h.HandleCallback(ctx, models.ProviderGoogle, Callback{State: state})
		assert.True(t, errors.IsType(err, errors.ErrTypeInvalidState))
	})

	assert.Zero(t, f.provider.exchangeCalls.Load())
	_, err = f.store.Get(ctx, models.UserOwner("42"), models.ProviderGoogle)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestHandshake_ReplayedStateIsRejected(t *testing.T) {
	f := newFixture(t)
	h := newTestHandshake(t, f)
	ctx := context.Background()

	authURL, err := h.Initiate(ctx, models.UserOwner("42"), models.ProviderGoogle)
	require.NoError(t, err)
	state := stateFrom(t, authURL)

	_, err = h.HandleCallback(ctx, models.ProviderGoogle, Callback{Code: "abc", State: state})
	require.NoError(t, err)

	_, err = h.HandleCallback(ctx, models.ProviderGoogle, Callback{Code: "abc", State: state})
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidState))
	assert.Equal(t, int32(1), f.provider.exchangeCalls.Load())
}

func TestHandshake_ExchangeFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"rejected code", &TokenError{StatusCode: 400, Code: "invalid_grant"}, http.StatusBadRequest},
		{"provider down", &TokenError{StatusCode: 503}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			h := newTestHandshake(t, f)
			ctx := context.Background()
			f.provider.exchange = func(context.Context, string) (*models.TokenSet, error) {
				return nil, tt.err
			}

			authURL, err := h.Initiate(ctx, models.UserOwner("42"), models.ProviderGoogle)
			require.NoError(t, err)
			_, err = h.HandleCallback(ctx, models.ProviderGoogle, Callback{Code: "abc", State: stateFrom(t, authURL)})
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, errors.HTTPStatus(err))
			assert.Equal(t, int32(1), f.provider.exchangeCalls.Load(), "codes are never retried")
			assert.Empty(t, f.recorder.Events())
		})
	}
}

func TestHandshake_DefaultOwner(t *testing.T) {
	f := newFixture(t)
	h := newTestHandshake(t, f)
	ctx := context.Background()

	authURL, err := h.Initiate(ctx, models.DefaultOwner(), models.ProviderGoogle)
	require.NoError(t, err)
	cred, err := h.HandleCallback(ctx, models.ProviderGoogle, Callback{Code: "abc", State: stateFrom(t, authURL)})
	require.NoError(t, err)
	assert.True(t, cred.Owner.Default)

	_, err = f.store.Get(ctx, models.UserOwner("42"), models.ProviderGoogle)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound), "default credential is not visible to users")
}
