package oauth2

import (
	"context"
	"sync"
	"time"

	"crm-connect/internal/redis"
)

// NonceStore remembers issued state nonces until they are consumed or expire
type NonceStore interface {
	Put(ctx context.Context, nonce string, ttl time.Duration) error
	// Take consumes nonce and reports whether it was outstanding
	Take(ctx context.Context, nonce string) (bool, error)
}

// RedisNonceStore shares nonces between replicas, so a callback may land on
// any instance
type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client, prefix: "oauth:state:"}
}

func (s *RedisNonceStore) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+nonce, "1", ttl)
}

func (s *RedisNonceStore) Take(ctx context.Context, nonce string) (bool, error) {
	return s.client.Take(ctx, s.prefix+nonce)
}

// MemoryNonceStore is the single process fallback
type MemoryNonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time
	now    func() time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{nonces: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryNonceStore) Put(_ context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for n, exp := range s.nonces {
		if !now.Before(exp) {
			delete(s.nonces, n)
		}
	}
	s.nonces[nonce] = now.Add(ttl)
	return nil
}

func (s *MemoryNonceStore) Take(_ context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.nonces[nonce]
	if !ok {
		return false, nil
	}
	delete(s.nonces, nonce)
	return s.now().Before(exp), nil
}
