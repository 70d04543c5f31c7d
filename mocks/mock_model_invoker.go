package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"attrix/internal/port"
)

// MockModelInvoker is a mock implementation of port.ModelInvoker.
type MockModelInvoker struct {
	mock.Mock
}

func (m *MockModelInvoker) Invoke(ctx context.Context, input port.InvokeInput) (*port.RawResponse, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.RawResponse), args.Error(1)
}

func (m *MockModelInvoker) Name() string {
	args := m.Called()
	return args.String(0)
}
