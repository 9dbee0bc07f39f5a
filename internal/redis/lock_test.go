package redisclient

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, ttl time.Duration) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSlotLocker(client, ttl), mr
}

func slotKey(slotAt time.Time) string {
	return fmt.Sprintf("lock:slot:%d", slotAt.UTC().Unix())
}

func TestWithSlotLockAcquireAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t, 5*time.Second)
	slotAt := time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC)

	ran := false
	err := locker.WithSlotLock(context.Background(), slotAt, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists(slotKey(slotAt)), "lock key held during critical section")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists(slotKey(slotAt)), "lock released after the critical section")
}

func TestWithSlotLockContention(t *testing.T) {
	locker, _ := newTestLocker(t, 5*time.Second)
	slotAt := time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC)

	err := locker.WithSlotLock(context.Background(), slotAt, func(ctx context.Context) error {
		// While held, a second acquisition for the same instant must fail
		// without running its critical section.
		inner := locker.WithSlotLock(ctx, slotAt, func(context.Context) error {
			t.Fatal("critical section ran under contention")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestWithSlotLockDifferentInstantsDoNotContend(t *testing.T) {
	locker, _ := newTestLocker(t, 5*time.Second)
	first := time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC)
	second := first.Add(30 * time.Minute)

	err := locker.WithSlotLock(context.Background(), first, func(ctx context.Context) error {
		return locker.WithSlotLock(ctx, second, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
}

func TestWithSlotLockSameInstantAcrossZones(t *testing.T) {
	locker, _ := newTestLocker(t, 5*time.Second)

	east := time.FixedZone("east", 7*3600)
	slotUTC := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	slotEast := slotUTC.In(east)

	err := locker.WithSlotLock(context.Background(), slotUTC, func(ctx context.Context) error {
		inner := locker.WithSlotLock(ctx, slotEast, func(context.Context) error { return nil })
		assert.ErrorIs(t, inner, ErrLockNotAcquired, "same instant must share one lock key")
		return nil
	})
	require.NoError(t, err)
}

func TestWithSlotLockPropagatesError(t *testing.T) {
	locker, mr := newTestLocker(t, 5*time.Second)
	slotAt := time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC)

	boom := errors.New("insert failed")
	err := locker.WithSlotLock(context.Background(), slotAt, func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(slotKey(slotAt)), "lock released even on failure")
}

func TestWithSlotLockReleaseIgnoresStolenLock(t *testing.T) {
	locker, mr := newTestLocker(t, 5*time.Second)
	slotAt := time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC)

	err := locker.WithSlotLock(context.Background(), slotAt, func(context.Context) error {
		// Simulate the TTL expiring and another holder taking the key; the
		// deferred release must not delete a lock it no longer owns.
		mr.Set(slotKey(slotAt), "someone-else")
		return nil
	})
	require.NoError(t, err)
	val, err := mr.Get(slotKey(slotAt))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

func TestNoopLockerRunsInline(t *testing.T) {
	ran := false
	err := NoopLocker{}.WithSlotLock(context.Background(), time.Now(), func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}
