package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wireSchema is the serialized form. It also accepts the legacy layout in
// which arrays were expressed as an is_array flag on the element type and
// object fields were nested under a "schema" wrapper.
type wireSchema struct {
	Type        Type         `json:"type"`
	Description string       `json:"description,omitempty"`
	IsArray     bool         `json:"is_array,omitempty"`
	Items       *Schema      `json:"items,omitempty"`
	Fields      *fieldList   `json:"fields,omitempty"`
	Schema      *wireWrapper `json:"schema,omitempty"`
}

type wireWrapper struct {
	Fields *fieldList `json:"fields,omitempty"`
	Items  *Schema    `json:"items,omitempty"`
}

// fieldList decodes a JSON object while keeping the key order.
type fieldList []Field

func (fl *fieldList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fields must be an object")
	}
	var out fieldList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected field key %v", keyTok)
		}
		var fs Schema
		if err := dec.Decode(&fs); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		out = append(out, Field{Name: key, Schema: &fs})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*fl = out
	return nil
}

func (fl fieldList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fl {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Schema)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	w := wireSchema{Type: s.Type, Description: s.Description, Items: s.Items}
	if s.Type == TypeObject {
		fl := fieldList(s.Fields)
		w.Fields = &fl
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var w wireSchema
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type == "" {
		w.Type = TypeString
	}
	if !w.Type.Known() {
		return fmt.Errorf("unknown schema type %q", w.Type)
	}

	out := Schema{Type: w.Type, Description: w.Description}
	switch w.Type {
	case TypeArray:
		out.Items = w.Items
		if out.Items == nil && w.Schema != nil {
			out.Items = w.Schema.Items
		}
		if out.Items == nil {
			return fmt.Errorf("array schema requires items")
		}
	case TypeObject:
		if w.Fields != nil {
			out.Fields = []Field(*w.Fields)
		} else if w.Schema != nil && w.Schema.Fields != nil {
			out.Fields = []Field(*w.Schema.Fields)
		}
	}

	if w.IsArray && w.Type != TypeArray {
		elem := out
		*s = Schema{Type: TypeArray, Description: w.Description, Items: &elem}
		return nil
	}
	*s = out
	return nil
}

// Parse decodes a schema from JSON.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FromMap decodes a schema from an already-decoded map.
func FromMap(m map[string]any) (*Schema, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
