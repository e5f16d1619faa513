package testutil

import (
	"context"
	"time"

	"github.com/erp/reception/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockIdempotencyStore is a testify mock of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

// Reserve implements shared.IdempotencyStore
func (m *MockIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

// Complete implements shared.IdempotencyStore
func (m *MockIdempotencyStore) Complete(ctx context.Context, key, result string) error {
	args := m.Called(ctx, key, result)
	return args.Error(0)
}

// Lookup implements shared.IdempotencyStore
func (m *MockIdempotencyStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

// Release implements shared.IdempotencyStore
func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Close implements shared.IdempotencyStore
func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ shared.IdempotencyStore = (*MockIdempotencyStore)(nil)
