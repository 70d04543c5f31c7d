package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockDurableStore is a mock implementation of port.DurableStore.
type MockDurableStore struct {
	mock.Mock
}

func (m *MockDurableStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDurableStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockDurableStore) Available() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockDurableStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
