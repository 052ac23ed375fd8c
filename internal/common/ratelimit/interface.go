// Package ratelimit throttles the public OAuth callback and webhook routes.
// Limits are kept per key (client IP or user id) either in process with
// golang.org/x/time/rate or in Redis when several instances share traffic.
package ratelimit

import (
	"context"
	"time"
)

// Limiter defines the main interface for rate limiting
type Limiter interface {
	// TryAcquireForKey reports whether one more request for key is allowed now
	TryAcquireForKey(key string) bool
	// Stats returns a snapshot suitable for the health endpoint
	Stats() map[string]interface{}
}

// RedisInterface defines the minimal Redis interface needed for rate limiting
type RedisInterface interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}
