// Package schemas provides an in-memory stand-in for the external category
// schema provider. Schemas are loaded once from a JSON file and served
// read-only after a structural sanity check.
package schemas

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"attrix/internal/domain"
)

// Registry holds category schemas by id.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*domain.CategorySchema
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*domain.CategorySchema)}
}

// Register adds a schema after a structural sanity check: non-empty id and a
// non-empty field list. Schema content beyond that is trusted.
func (r *Registry) Register(schema *domain.CategorySchema) error {
	if schema == nil || schema.ID == "" {
		return fmt.Errorf("schema has no id")
	}
	if len(schema.Fields) == 0 {
		return domain.ErrSchemaEmpty
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[schema.ID] = schema
	return nil
}

// LoadFile reads a JSON array of schemas from path and registers each one.
func (r *Registry) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading schema file: %w", err)
	}

	var list []*domain.CategorySchema
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("parsing schema file: %w", err)
	}

	for _, s := range list {
		if err := r.Register(s); err != nil {
			return fmt.Errorf("registering schema %q: %w", s.ID, err)
		}
	}
	return nil
}

// GetSchema implements port.SchemaProvider.
func (r *Registry) GetSchema(_ context.Context, schemaID string) (*domain.CategorySchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[schemaID]
	if !ok {
		return nil, domain.ErrSchemaNotFound
	}
	return s, nil
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}
