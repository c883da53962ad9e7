package lock

import (
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	defaultExpiry = 10 * time.Second
	defaultTries  = 8
	keyPrefix     = "payfox:lock:"
)

// RedisLocker implements billing.Locker with a redsync mutex per key
type RedisLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
	tries  int
}

// NewRedisLocker creates a locker on top of an existing Redis client
func NewRedisLocker(rdb *redis.Client, expiry time.Duration) *RedisLocker {
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(rdb)),
		expiry: expiry,
		tries:  defaultTries,
	}
}

// Lock acquires the mutex for key. The returned func releases it and never blocks
// longer than one Redis round trip.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(
		keyPrefix+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(l.tries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}

	return func() {
		// The caller's ctx may already be done; release on a fresh one.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := mutex.UnlockContext(unlockCtx); err != nil {
			log.Warnf("[Lock] failed to release %s: %v", key, err)
		}
	}, nil
}
