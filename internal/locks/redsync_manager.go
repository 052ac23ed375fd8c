// Package locks serialises token refreshes for one credential. RedsyncLocker
// covers several service instances with the Redlock algorithm from
// go-redsync/redsync/v4; LocalLocker covers a single instance.
package locks

import (
	"context"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/redis"
)

// Lock is a held lock
type Lock interface {
	Key() string
	Release(ctx context.Context) error
}

// Locker obtains named locks
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RedsyncLocker obtains Redlock mutexes from Redis
type RedsyncLocker struct {
	rs         *redsync.Redsync
	retryDelay time.Duration
	tries      int
}

// NewRedsyncLocker builds a locker on top of a connected Redis client.
// Acquisition retries every 50ms and gives up after roughly the refresh
// timeout or when ctx is done, whichever comes first.
func NewRedsyncLocker(redisClient *redis.Client) (*RedsyncLocker, error) {
	if redisClient == nil {
		return nil, errors.ConfigError("redis client is required")
	}
	return &RedsyncLocker{
		rs:         redsync.New(goredis.NewPool(redisClient.GoRedis())),
		retryDelay: 50 * time.Millisecond,
		tries:      400,
	}, nil
}

// Obtain blocks until the lock is held, ctx is done, or retries run out
func (l *RedsyncLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	mutex := l.rs.NewMutex("lock:"+key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelay(l.retryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, errors.ConnectionError("failed to acquire distributed lock", err).WithContext("key", key)
	}
	return &redsyncLock{mutex: mutex, key: key}, nil
}

type redsyncLock struct {
	mutex *redsync.Mutex
	key   string
	once  sync.Once
}

func (rl *redsyncLock) Key() string {
	return rl.key
}

// Release unlocks in Redis. Calling it more than once is a no-op.
func (rl *redsyncLock) Release(ctx context.Context) error {
	var err error
	rl.once.Do(func() {
		if ctx.Err() != nil {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
		}
		_, err = rl.mutex.UnlockContext(ctx)
	})
	return err
}

// LocalLocker is used when no Redis is configured. It is a keyed mutex:
// holders of the same key in this process run one at a time, whatever path
// (expiry or forced) asked for the refresh. The ttl is ignored because every
// holder releases from a defer.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*localSlot
}

type localSlot struct {
	held chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*localSlot)}
}

// Obtain blocks until key is free or ctx is done
func (l *LocalLocker) Obtain(ctx context.Context, key string, _ time.Duration) (Lock, error) {
	l.mu.Lock()
	if l.slots == nil {
		l.slots = make(map[string]*localSlot)
	}
	slot, ok := l.slots[key]
	if !ok {
		slot = &localSlot{held: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.held <- struct{}{}:
		return &localLock{locker: l, key: key, slot: slot}, nil
	case <-ctx.Done():
		l.unref(key, slot)
		return nil, errors.ConnectionError("failed to acquire local lock", ctx.Err()).WithContext("key", key)
	}
}

func (l *LocalLocker) unref(key string, slot *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 && l.slots[key] == slot {
		delete(l.slots, key)
	}
}

type localLock struct {
	locker *LocalLocker
	key    string
	slot   *localSlot
	once   sync.Once
}

func (ll *localLock) Key() string { return ll.key }

// Release frees the key. Calling it more than once is a no-op.
func (ll *localLock) Release(context.Context) error {
	ll.once.Do(func() {
		<-ll.slot.held
		ll.locker.unref(ll.key, ll.slot)
	})
	return nil
}
