// Package lock provides named, expiring locks backed by Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when another holder owns the lock.
var ErrNotObtained = errors.New("lock: not obtained")

// Locker hands out named locks.
type Locker struct {
	client *redislock.Client
}

// New wraps a go-redis client.
func New(rdb redis.UniversalClient) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

// Run executes fn while holding key. It returns ErrNotObtained without calling
// fn when the lock is held elsewhere. The lock expires after ttl even if the
// holder dies.
func (l *Locker) Run(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return fn(ctx)
	}
	held, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrNotObtained
	}
	if err != nil {
		return fmt.Errorf("lock: obtain %s: %w", key, err)
	}
	defer func() {
		_ = held.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
