package port

import (
	"context"

	"attrix/internal/domain"
)

// SchemaProvider supplies category schemas. It is an external, read-only
// collaborator; the pipeline only performs a structural sanity check on what
// it returns.
type SchemaProvider interface {
	GetSchema(ctx context.Context, schemaID string) (*domain.CategorySchema, error)
}
