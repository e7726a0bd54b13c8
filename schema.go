package anychat

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaKind tags how an output schema is expressed. The caller states the
// kind explicitly; nothing is inferred from the value at call time.
type SchemaKind string

const (
	// SchemaKindMap is a loosely-typed JSON Schema supplied as a map.
	SchemaKindMap SchemaKind = "map"
	// SchemaKindStruct is a Go struct (value or pointer) reflected into a
	// JSON Schema.
	SchemaKindStruct SchemaKind = "struct"
)

// OutputSchema requests structured decoding of the model output. Exactly one
// of Map or Struct must be populated, matching Kind.
type OutputSchema struct {
	Kind   SchemaKind     `json:"kind"`
	Name   string         `json:"name,omitempty"`
	Map    map[string]any `json:"map,omitempty"`
	Struct any            `json:"-"`
}

// MapSchema builds an OutputSchema from a raw JSON Schema map.
func MapSchema(name string, schema map[string]any) OutputSchema {
	return OutputSchema{Kind: SchemaKindMap, Name: name, Map: schema}
}

// StructSchema builds an OutputSchema from a Go struct value or pointer.
func StructSchema(name string, v any) OutputSchema {
	return OutputSchema{Kind: SchemaKindStruct, Name: name, Struct: v}
}

// normalize resolves the tagged variant into one canonical JSON Schema map.
// It fails when the declared kind does not match the populated field, so a
// misclassified schema surfaces before any network call.
func (s OutputSchema) normalize() (map[string]any, error) {
	switch s.Kind {
	case SchemaKindMap:
		if s.Map == nil {
			return nil, schemaErrorf("schema kind %q requires a non-nil Map", s.Kind)
		}
		if s.Struct != nil {
			return nil, schemaErrorf("schema kind %q must not also set Struct", s.Kind)
		}
		return s.Map, nil
	case SchemaKindStruct:
		if s.Struct == nil {
			return nil, schemaErrorf("schema kind %q requires a non-nil Struct", s.Kind)
		}
		if s.Map != nil {
			return nil, schemaErrorf("schema kind %q must not also set Map", s.Kind)
		}
		return reflectStructSchema(s.Struct)
	case "":
		return nil, schemaErrorf("schema kind is not set; use MapSchema or StructSchema")
	default:
		return nil, schemaErrorf("unsupported schema kind %q", s.Kind)
	}
}

// reflectStructSchema converts a Go struct into a self-contained JSON Schema
// map via invopop/jsonschema.
func reflectStructSchema(v any) (map[string]any, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, schemaErrorf("reflecting struct schema: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, schemaErrorf("decoding reflected schema: %v", err)
	}
	return out, nil
}
