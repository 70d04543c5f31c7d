package schemas_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attrix/internal/domain"
	"attrix/internal/schemas"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := schemas.NewRegistry()

	err := r.Register(&domain.CategorySchema{
		ID: "shoes", Version: 3,
		Fields: []domain.AttributeField{{Key: "color", Type: domain.FieldTypeText}},
	})
	require.NoError(t, err)

	got, err := r.GetSchema(context.Background(), "shoes")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_UnknownSchema(t *testing.T) {
	r := schemas.NewRegistry()

	_, err := r.GetSchema(context.Background(), "absent")
	assert.ErrorIs(t, err, domain.ErrSchemaNotFound)
}

func TestRegistry_RejectsEmptyFieldList(t *testing.T) {
	r := schemas.NewRegistry()

	err := r.Register(&domain.CategorySchema{ID: "empty", Version: 1})
	assert.ErrorIs(t, err, domain.ErrSchemaEmpty)

	err = r.Register(&domain.CategorySchema{Version: 1, Fields: []domain.AttributeField{{Key: "k"}}})
	assert.Error(t, err)
}

func TestRegistry_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.json")
	content := `[
		{"id": "apparel", "version": 1, "name": "Apparel", "fields": [
			{"key": "color", "type": "select", "allowed_values": [{"short_form": "blue"}]}
		]},
		{"id": "shoes", "version": 2, "name": "Shoes", "fields": [
			{"key": "size_eu", "type": "number"}
		]}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r := schemas.NewRegistry()
	require.NoError(t, r.LoadFile(path))
	assert.Equal(t, 2, r.Len())

	got, err := r.GetSchema(context.Background(), "apparel")
	require.NoError(t, err)
	assert.Equal(t, domain.FieldTypeSelect, got.Fields[0].Type)
}

func TestRegistry_LoadFileErrors(t *testing.T) {
	r := schemas.NewRegistry()

	assert.Error(t, r.LoadFile(filepath.Join(t.TempDir(), "missing.json")))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not a list"), 0o600))
	assert.Error(t, r.LoadFile(bad))
}
