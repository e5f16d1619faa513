package cache

import (
	"fmt"
	"strings"

	"github.com/erp/reception/internal/domain/shared"
	"github.com/erp/reception/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Idempotency store backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type openOptions struct {
	logger   *zap.Logger
	fallback bool
}

// Option configures OpenIdempotencyStore
type Option func(*openOptions)

func WithLogger(logger *zap.Logger) Option {
	return func(o *openOptions) { o.logger = logger }
}

// WithInMemoryFallback decides whether an unreachable Redis degrades to the
// in-memory store (the default) or fails startup.
func WithInMemoryFallback(allow bool) Option {
	return func(o *openOptions) { o.fallback = allow }
}

// OpenIdempotencyStore returns the store configured by backend: "memory" (or
// empty) for a process-local store, "redis" for one shared across instances.
func OpenIdempotencyStore(backend string, redisCfg config.RedisConfig, opts ...Option) (shared.IdempotencyStore, error) {
	o := openOptions{logger: zap.NewNop(), fallback: true}
	for _, opt := range opts {
		opt(&o)
	}

	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		o.logger.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	case BackendRedis:
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}

	store, err := NewRedisIdempotencyStore(redisCfg)
	switch {
	case err == nil:
		o.logger.Info("Using Redis idempotency store", zap.String("addr", redisCfg.Addr()))
		return store, nil
	case !o.fallback:
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}
	o.logger.Warn("Redis unavailable, using in-memory idempotency store; replays reaching another instance run again",
		zap.String("addr", redisCfg.Addr()), zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}
