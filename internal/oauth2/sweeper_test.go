package oauth2

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
	"crm-connect/internal/events"
	"crm-connect/internal/models"
)

func TestNewSweeper_Schedules(t *testing.T) {
	f := newFixture(t)
	for _, schedule := range []string{"@every 1m", "*/30 * * * * *", "0 * * * *"} {
		_, err := NewSweeper(f.store, f.refresher, schedule, logging.NewNopLogger())
		assert.NoError(t, err, schedule)
	}

	_, err := NewSweeper(f.store, f.refresher, "every minute", logging.NewNopLogger())
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestSweeper_RefreshesOnlyExpiring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, time.Now().Add(time.Minute))

	fresh := &models.Credential{
		Owner:        models.UserOwner("7"),
		Provider:     models.ProviderGoogle,
		AccessToken:  "fresh",
		RefreshToken: "r",
		AccessExpiry: time.Now().Add(time.Hour),
	}
	_, err := f.store.Upsert(ctx, fresh)
	require.NoError(t, err)

	dead := &models.Credential{
		Owner:         models.UserOwner("8"),
		Provider:      models.ProviderGoogle,
		AccessToken:   "dead",
		RefreshToken:  "r",
		AccessExpiry:  time.Now().Add(-time.Hour),
		RefreshExpiry: time.Now().Add(-time.Minute),
	}
	_, err = f.store.Upsert(ctx, dead)
	require.NoError(t, err)

	s, err := NewSweeper(f.store, f.refresher, "@every 1m", logging.NewNopLogger())
	require.NoError(t, err)

	refreshed, failed := s.Sweep(ctx)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, 0, failed)
	assert.Equal(t, int32(1), f.provider.refreshCalls.Load())

	stored, err := f.store.Get(ctx, models.UserOwner("42"), models.ProviderGoogle)
	require.NoError(t, err)
	assert.NotEqual(t, "stale-access", stored.AccessToken)

	stored, err = f.store.Get(ctx, models.UserOwner("7"), models.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "fresh", stored.AccessToken)
}

func TestSweeper_CountsFailures(t *testing.T) {
	f := newFixture(t)
	f.seed(t, time.Now().Add(-time.Minute))
	f.provider.onRefresh(func(context.Context, *models.Credential) (*models.TokenSet, error) {
		return nil, &TokenError{StatusCode: 400, Code: "invalid_grant"}
	})

	s, err := NewSweeper(f.store, f.refresher, "@every 1m", logging.NewNopLogger())
	require.NoError(t, err)

	refreshed, failed := s.Sweep(context.Background())
	assert.Equal(t, 0, refreshed)
	assert.Equal(t, 1, failed)
}

func TestSweeper_RejectedGrantsDoNotStarveLiveCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provider.onRefresh(func(_ context.Context, cred *models.Credential) (*models.TokenSet, error) {
		if cred.RefreshToken == "revoked" {
			return nil, &TokenError{StatusCode: 400, Code: "invalid_grant"}
		}
		return &models.TokenSet{AccessToken: "renewed", AccessExpiry: time.Now().Add(time.Hour)}, nil
	})

	const batch = 3
	for i := 0; i < batch+2; i++ {
		_, err := f.store.Upsert(ctx, &models.Credential{
			Owner:        models.UserOwner(fmt.Sprintf("revoked-%d", i)),
			Provider:     models.ProviderGoogle,
			AccessToken:  "old",
			RefreshToken: "revoked",
			AccessExpiry: time.Now().Add(-time.Duration(24+i) * time.Hour),
		})
		require.NoError(t, err)
	}
	live := f.seed(t, time.Now().Add(-time.Minute))

	s, err := NewSweeper(f.store, f.refresher, "@every 1m", logging.NewNopLogger())
	require.NoError(t, err)
	s.batch = batch

	for tick := 0; tick < 4; tick++ {
		s.Sweep(ctx)
	}

	stored, err := f.store.Get(ctx, live.Owner, live.Provider)
	require.NoError(t, err)
	assert.Equal(t, "renewed", stored.AccessToken)

	// each rejected grant reaches the token endpoint once and is reported once
	assert.Equal(t, int32(batch+2+1), f.provider.refreshCalls.Load())
	reauth := 0
	for _, typ := range f.recorder.Types() {
		if typ == events.CredentialReauthRequired {
			reauth++
		}
	}
	assert.Equal(t, batch+2, reauth)

	revoked, err := f.store.Get(ctx, models.UserOwner("revoked-0"), models.ProviderGoogle)
	require.NoError(t, err)
	assert.True(t, revoked.NeedsReauth())
	_, err = f.refresher.EnsureValid(ctx, revoked)
	assert.True(t, errors.IsType(err, errors.ErrTypeReauthRequired))
	assert.Equal(t, int32(batch+2+1), f.provider.refreshCalls.Load())
}

func TestSweeper_StartStop(t *testing.T) {
	f := newFixture(t)
	f.seed(t, time.Now().Add(-time.Minute))

	s, err := NewSweeper(f.store, f.refresher, "@every 1s", logging.NewNopLogger())
	require.NoError(t, err)

	s.Start(context.Background())
	s.Start(context.Background())
	assert.Eventually(t, func() bool {
		return f.provider.refreshCalls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
	s.Stop()
	s.Stop()
}
