package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ToJSONSchema converts the schema into a JSON Schema document. File schemas
// become objects that require a string file_id.
func (s *Schema) ToJSONSchema() (map[string]any, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	return toJSONSchema(s), nil
}

func toJSONSchema(s *Schema) map[string]any {
	out := map[string]any{}
	if s.Description != "" {
		out["description"] = s.Description
	}
	switch s.Type {
	case TypeString, TypeNumber, TypeBoolean:
		out["type"] = string(s.Type)
	case TypeFile:
		out["type"] = "object"
		out["required"] = []any{"file_id"}
		out["properties"] = map[string]any{
			"file_id": map[string]any{"type": "string", "minLength": 1},
			"name":    map[string]any{"type": "string"},
			"content": map[string]any{"type": "string"},
		}
	case TypeArray:
		out["type"] = "array"
		out["items"] = toJSONSchema(s.Items)
	case TypeObject:
		out["type"] = "object"
		props := make(map[string]any, len(s.Fields))
		required := make([]any, 0, len(s.Fields))
		for _, f := range s.Fields {
			props[f.Name] = toJSONSchema(f.Schema)
			required = append(required, f.Name)
		}
		out["properties"] = props
		if len(required) > 0 {
			out["required"] = required
		}
	}
	return out
}

// Validate checks a value against the schema. Values are normalized through a
// JSON round trip first, so Go structs such as FileValue and native integer
// types validate the same way as decoded JSON.
func (s *Schema) Validate(value any) error {
	doc, err := s.ToJSONSchema()
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	const resourceID = "inmemory://variable"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceID, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resourceID)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	payload, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("normalize value: %w", err)
	}
	if err := compiled.Validate(payload); err != nil {
		return err
	}
	return nil
}

func normalizeValue(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
