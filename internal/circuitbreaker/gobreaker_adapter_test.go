package circuitbreaker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/common/logging"
)

func TestBreaker(t *testing.T) {
	logger := logging.NewNopLogger()
	cfg := Config{MaxFailures: 3, Timeout: 50 * time.Millisecond, MaxConcurrentRequests: 1}

	t.Run("basic operation", func(t *testing.T) {
		cb := New("google-token", cfg, logger)
		require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
		assert.False(t, cb.IsOpen())
		assert.Equal(t, "closed", cb.Stats().State)
	})

	t.Run("connection failures open the circuit", func(t *testing.T) {
		cb := New("ringcentral-token", cfg, logger)
		for i := 0; i < 3; i++ {
			err := cb.Execute(context.Background(), func() error {
				return errors.ConnectionError("dial failed", fmt.Errorf("attempt %d", i))
			})
			assert.Error(t, err)
		}
		assert.True(t, cb.IsOpen())

		err := cb.Execute(context.Background(), func() error {
			t.Fatal("should not be called while open")
			return nil
		})
		require.Error(t, err)
		assert.True(t, IsRejection(err))
		assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
	})

	t.Run("rejected grants do not trip the circuit", func(t *testing.T) {
		cb := New("grant-errors", cfg, logger)
		for i := 0; i < 10; i++ {
			_ = cb.Execute(context.Background(), func() error {
				return errors.ReauthRequiredError("google", fmt.Errorf("invalid_grant"))
			})
		}
		assert.False(t, cb.IsOpen())
	})

	t.Run("half-open recovers", func(t *testing.T) {
		cb := New("recovery", cfg, logger)
		for i := 0; i < 3; i++ {
			_ = cb.Execute(context.Background(), func() error { return errors.TimeoutError("refresh") })
		}
		require.True(t, cb.IsOpen())

		time.Sleep(80 * time.Millisecond)
		require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
		assert.False(t, cb.IsOpen())
	})

	t.Run("cancelled context", func(t *testing.T) {
		cb := New("cancelled", cfg, logger)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := cb.Execute(ctx, func() error {
			t.Fatal("should not run")
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid config falls back to defaults", func(t *testing.T) {
		cb := New("defaults", Config{}, logger)
		assert.NotNil(t, cb)
		assert.Equal(t, "defaults", cb.Name())
	})
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(TokenEndpointConfig, logging.NewNopLogger())

	g1 := reg.Get("google")
	g2 := reg.Get("google")
	rc := reg.Get("ringcentral")

	assert.Same(t, g1, g2)
	assert.NotSame(t, g1, rc)

	stats := reg.AllStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "google", stats[0].Name)
	assert.Equal(t, "ringcentral", stats[1].Name)
}
