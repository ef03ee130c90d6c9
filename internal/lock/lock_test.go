package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coupon-admin/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()

	unlock, err := locker.TryLock(ctx, "job:1")
	require.NoError(t, err)

	_, err = locker.TryLock(ctx, "job:1")
	assert.ErrorIs(t, err, ErrHeld)
	assert.ErrorIs(t, err, model.ErrConflict)

	other, err := locker.TryLock(ctx, "job:2")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	// Releasing twice is harmless and does not drop a newer holder.
	again, err := locker.TryLock(ctx, "job:1")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))

	_, err = locker.TryLock(ctx, "job:1")
	assert.ErrorIs(t, err, ErrHeld)
	require.NoError(t, again(ctx))
}

func TestLocalLocker_SingleWinner(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := locker.TryLock(ctx, "job:7"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis test")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLocker(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	first := NewRedisLocker(client, time.Minute, zerolog.Nop())
	second := NewRedisLocker(client, time.Minute, zerolog.Nop())

	unlock, err := first.TryLock(ctx, "job:1")
	require.NoError(t, err)

	ttl, err := client.PTTL(ctx, KeyPrefix+"job:1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	_, err = second.TryLock(ctx, "job:1")
	assert.ErrorIs(t, err, ErrHeld)

	require.NoError(t, unlock(ctx))

	relock, err := second.TryLock(ctx, "job:1")
	require.NoError(t, err)
	require.NoError(t, relock(ctx))
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	locker := NewRedisLocker(client, time.Minute, zerolog.Nop())
	unlock, err := locker.TryLock(ctx, "job:9")
	require.NoError(t, err)

	// Simulate expiry followed by another runner taking the key.
	require.NoError(t, client.Set(ctx, KeyPrefix+"job:9", "someone-else", time.Minute).Err())

	require.NoError(t, unlock(ctx))

	val, err := client.Get(ctx, KeyPrefix+"job:9").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}
