package cache

import (
	"testing"

	"github.com/erp/reception/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// unreachableRedis points at a port nothing listens on
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestOpenIdempotencyStore_Memory(t *testing.T) {
	for _, backend := range []string{"", "memory", " MEMORY "} {
		store, err := OpenIdempotencyStore(backend, unreachableRedis, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		assert.NoError(t, store.Close())
	}
}

func TestOpenIdempotencyStore_UnknownBackend(t *testing.T) {
	_, err := OpenIdempotencyStore("memcached", unreachableRedis)
	assert.ErrorContains(t, err, "unknown idempotency backend")
}

func TestOpenIdempotencyStore_RedisUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the Redis dial to fail")
	}

	store, err := OpenIdempotencyStore(BackendRedis, unreachableRedis, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	assert.NoError(t, store.Close())

	_, err = OpenIdempotencyStore(BackendRedis, unreachableRedis, WithInMemoryFallback(false))
	assert.ErrorContains(t, err, "redis required")
}
