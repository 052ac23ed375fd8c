package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// New creates a limiter for the configured backend. redisClient is only
// consulted for BackendRedis.
func New(config Config, redisClient RedisInterface) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis client is required for distributed rate limiter")
		}
		return NewDistributedLimiter(config, redisClient)
	default:
		return NewLocalLimiter(config)
	}
}

// HTTPMiddleware rejects requests over the limit with 429
func HTTPMiddleware(limiter Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				key = "global"
			}

			if !limiter.TryAcquireForKey(key) {
				if rps, ok := limiter.Stats()["requests_per_second"].(int); ok {
					w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rps))
				}
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPKey extracts the client IP, preferring the first X-Forwarded-For hop
func IPKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// EndpointKey combines the client IP with the route path
func EndpointKey(r *http.Request) string {
	return IPKey(r) + ":" + r.URL.Path
}
