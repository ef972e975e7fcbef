package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) *Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb)
}

func TestRunExcludesConcurrentHolder(t *testing.T) {
	locker := newLocker(t)
	ctx := context.Background()

	err := locker.Run(ctx, "erp:jobs:test:lock", time.Minute, func(ctx context.Context) error {
		inner := locker.Run(ctx, "erp:jobs:test:lock", time.Minute, func(context.Context) error {
			t.Fatal("nested holder must not run")
			return nil
		})
		require.ErrorIs(t, inner, ErrNotObtained)
		return nil
	})
	require.NoError(t, err)

	ran := false
	require.NoError(t, locker.Run(ctx, "erp:jobs:test:lock", time.Minute, func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran, "lock must be released after the first run")
}

func TestNilLockerRunsDirectly(t *testing.T) {
	var locker *Locker
	ran := false
	require.NoError(t, locker.Run(context.Background(), "k", time.Second, func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}
