package distributed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return s, client
}

func TestLock_AcquireAndRelease(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	lock, err := Acquire(ctx, client, "lock:migrate", "a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "lock:migrate", lock.Key())

	// 다른 소유자는 실패
	_, err = Acquire(ctx, client, "lock:migrate", "b", time.Minute)
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	require.NoError(t, lock.Release(ctx))

	again, err := Acquire(ctx, client, "lock:migrate", "b", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, again.Release(ctx))
}

func TestLock_ReleaseAfterExpiry(t *testing.T) {
	s, client := setupRedis(t)
	ctx := context.Background()

	lock, err := Acquire(ctx, client, "lock:migrate", "a", time.Second)
	require.NoError(t, err)

	s.FastForward(2 * time.Second)

	// 만료 후 다른 소유자가 가져감
	other, err := Acquire(ctx, client, "lock:migrate", "b", time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)
	assert.Equal(t, "b", mustGet(t, s, "lock:migrate"))
	assert.NoError(t, other.Release(ctx))
}

func mustGet(t *testing.T, s *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := s.Get(key)
	require.NoError(t, err)
	return v
}

func TestLock_AcquireWait(t *testing.T) {
	s, client := setupRedis(t)
	ctx := context.Background()

	held, err := Acquire(ctx, client, "lock:migrate", "a", time.Minute)
	require.NoError(t, err)

	// 대기 중 다른 고루틴에서 해제
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = held.Release(ctx)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	lock, err := AcquireWait(waitCtx, client, "lock:migrate", "b", time.Minute, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "b", mustGet(t, s, "lock:migrate"))
	assert.NoError(t, lock.Release(ctx))
}

func TestLock_AcquireWaitTimeout(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	_, err := Acquire(ctx, client, "lock:migrate", "a", time.Minute)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err = AcquireWait(waitCtx, client, "lock:migrate", "b", time.Minute, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
