package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestNewRedisLockerDefaults(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()

	l := NewRedisLocker(rdb, 0)
	assert.Equal(t, defaultExpiry, l.expiry)
	assert.Equal(t, defaultTries, l.tries)

	l = NewRedisLocker(rdb, 3*time.Second)
	assert.Equal(t, 3*time.Second, l.expiry)
}

func TestLockFailsWithoutRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	unlock, err := NewRedisLocker(rdb, time.Second).Lock(ctx, "billing:subscription:user:1")
	assert.Error(t, err)
	assert.Nil(t, unlock)
}
