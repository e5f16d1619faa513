package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers the outcome of keyed client requests so that a
// replayed request returns the original result instead of re-executing.
type IdempotencyStore interface {
	// Reserve claims key for ttl.
	// Returns true if the key was free, false if it is already claimed or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete records the result of a reserved key, keeping its remaining TTL
	Complete(ctx context.Context, key, result string) error

	// Lookup returns the recorded result for key.
	// found is false when the key is unknown, expired, or still in flight.
	Lookup(ctx context.Context, key string) (result string, found bool, err error)

	// Release drops a reservation whose request failed, allowing a retry
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a key keeps returning the same result
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
