package anychat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSchemaNormalize(t *testing.T) {
	raw := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"age":  map[string]any{"type": "integer"},
		},
		"required": []any{"name"},
	}

	schema := MapSchema("person", raw)
	got, err := schema.normalize()
	require.NoError(t, err)
	assert.Equal(t, raw, got, "map schemas pass through untouched")
}

func TestStructSchemaNormalize(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age,omitempty"`
	}

	schema := StructSchema("person", person{})
	got, err := schema.normalize()
	require.NoError(t, err)

	assert.Equal(t, "object", got["type"])
	props, ok := got["properties"].(map[string]any)
	require.True(t, ok, "reflected schema has properties")
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "age")
}

func TestSchemaKindMismatch(t *testing.T) {
	type person struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name   string
		schema OutputSchema
	}{
		{"map kind without map", OutputSchema{Kind: SchemaKindMap}},
		{"map kind with struct too", OutputSchema{Kind: SchemaKindMap, Map: map[string]any{"type": "object"}, Struct: person{}}},
		{"struct kind without struct", OutputSchema{Kind: SchemaKindStruct}},
		{"struct kind with map too", OutputSchema{Kind: SchemaKindStruct, Struct: person{}, Map: map[string]any{"type": "object"}}},
		{"unset kind", OutputSchema{Map: map[string]any{"type": "object"}}},
		{"unknown kind", OutputSchema{Kind: "duck", Map: map[string]any{"type": "object"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.schema.normalize()
			var schemaErr *StructuredOutputSchemaError
			require.ErrorAs(t, err, &schemaErr)
		})
	}
}
