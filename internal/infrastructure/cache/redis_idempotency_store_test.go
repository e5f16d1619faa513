package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newRedisStore starts a throwaway Redis container.
// The test is skipped with -short or when no container runtime is available.
func newRedisStore(t *testing.T) *RedisIdempotencyStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("container runtime unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())

	store := NewRedisIdempotencyStoreWithClient(client, "")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisIdempotencyStore_Lifecycle(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "create-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Reserve(ctx, "create-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := store.Lookup(ctx, "create-1")
	require.NoError(t, err)
	assert.False(t, found, "pending reservation has no result")

	require.NoError(t, store.Complete(ctx, "create-1", "result-1"))
	result, found, err := store.Lookup(ctx, "create-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "result-1", result)

	ttl, err := store.GetClient().TTL(ctx, defaultKeyPrefix+"create-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "completion keeps the reservation TTL")

	assert.Error(t, store.Complete(ctx, "never-reserved", "x"))

	require.NoError(t, store.Release(ctx, "create-1"))
	ok, err = store.Reserve(ctx, "create-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisIdempotencyStore_Expiry(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "short", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		ok, err := store.Reserve(ctx, "short", time.Minute)
		return err == nil && ok
	}, 2*time.Second, 25*time.Millisecond)
}
