package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"attrix/internal/domain"
)

// MockSchemaProvider is a mock implementation of port.SchemaProvider.
type MockSchemaProvider struct {
	mock.Mock
}

func (m *MockSchemaProvider) GetSchema(ctx context.Context, schemaID string) (*domain.CategorySchema, error) {
	args := m.Called(ctx, schemaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CategorySchema), args.Error(1)
}
