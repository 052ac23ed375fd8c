package utils

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryConfig holds configuration for retry operations with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first one
	MaxAttempts int
	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration
	// MaxDelay caps exponential growth
	MaxDelay time.Duration
	// BackoffFactor is the multiplier applied after each attempt
	BackoffFactor float64
	// JitterFactor adds up to this fraction of the delay at random
	JitterFactor float64
	// RetryableErrors decides whether an error is worth another attempt.
	// nil means every error is retryable.
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns three attempts starting at 1s, doubling, capped at 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

// SingleRetry returns a config that makes exactly one extra attempt after delay,
// and only for errors accepted by retryable.
func SingleRetry(delay time.Duration, retryable func(error) bool) RetryConfig {
	return RetryConfig{
		MaxAttempts:     2,
		InitialDelay:    delay,
		MaxDelay:        delay,
		BackoffFactor:   1.0,
		RetryableErrors: retryable,
	}
}

// RetryWithBackoff executes fn until it succeeds, returns a non-retryable
// error, exhausts MaxAttempts, or ctx is cancelled. Non-retryable errors are
// returned unchanged; exhaustion wraps the last error so callers can still
// classify it with errors.As.
func RetryWithBackoff(ctx context.Context, config RetryConfig, fn func() error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}

		wait := delay
		if config.JitterFactor > 0 && wait > 0 {
			wait += time.Duration(rand.Int64N(int64(float64(wait)*config.JitterFactor) + 1))
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(wait):
		}

		if config.BackoffFactor > 0 {
			delay = time.Duration(float64(delay) * config.BackoffFactor)
		}
		if config.MaxDelay > 0 && delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	if config.MaxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
