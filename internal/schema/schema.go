package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the tag of a Schema variant.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeFile    Type = "file"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Known reports whether t is one of the supported schema tags.
func (t Type) Known() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeFile, TypeArray, TypeObject:
		return true
	}
	return false
}

// Field is a named member of an object schema.
type Field struct {
	Name   string
	Schema *Schema
}

// Schema describes the shape of a workflow variable or a tool slot.
//
// An array schema always carries exactly one item schema in Items. An object
// schema carries an ordered list of Fields; the order is only relevant for
// display. Schemas are treated as immutable values: the With* helpers return
// modified copies and never touch the receiver.
type Schema struct {
	Type        Type
	Description string
	Items       *Schema
	Fields      []Field
}

// String returns a new string schema.
func String() *Schema { return &Schema{Type: TypeString} }

// Number returns a new number schema.
func Number() *Schema { return &Schema{Type: TypeNumber} }

// Boolean returns a new boolean schema.
func Boolean() *Schema { return &Schema{Type: TypeBoolean} }

// File returns a new file schema.
func File() *Schema { return &Schema{Type: TypeFile} }

// Array returns a new array schema with the given item schema.
func Array(items *Schema) *Schema { return &Schema{Type: TypeArray, Items: items} }

// Object returns a new object schema with the given fields in order.
func Object(fields ...Field) *Schema {
	return &Schema{Type: TypeObject, Fields: append([]Field(nil), fields...)}
}

// NewField is a convenience constructor for Field.
func NewField(name string, s *Schema) Field {
	return Field{Name: name, Schema: s}
}

// IsPrimitive reports whether the schema is a string, number or boolean.
// File schemas are not primitives: they only match other file schemas.
func (s *Schema) IsPrimitive() bool {
	if s == nil {
		return false
	}
	switch s.Type {
	case TypeString, TypeNumber, TypeBoolean:
		return true
	}
	return false
}

// Field returns the schema of the named field of an object schema.
func (s *Schema) Field(name string) (*Schema, bool) {
	if s == nil || s.Type != TypeObject {
		return nil, false
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Schema, true
		}
	}
	return nil, false
}

// FieldPath walks nested object fields. An empty path returns the receiver.
func (s *Schema) FieldPath(path []string) (*Schema, bool) {
	current := s
	for _, name := range path {
		next, ok := current.Field(name)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, current != nil
}

// WithField returns a copy of an object schema with the named field added,
// or replaced in place when it already exists.
func (s *Schema) WithField(name string, fs *Schema) *Schema {
	out := s.shallowCopy()
	out.Type = TypeObject
	out.Items = nil
	for i, f := range out.Fields {
		if f.Name == name {
			out.Fields[i] = Field{Name: name, Schema: fs}
			return out
		}
	}
	out.Fields = append(out.Fields, Field{Name: name, Schema: fs})
	return out
}

// WithoutField returns a copy of an object schema without the named field.
func (s *Schema) WithoutField(name string) *Schema {
	out := s.shallowCopy()
	fields := out.Fields[:0]
	for _, f := range out.Fields {
		if f.Name != name {
			fields = append(fields, f)
		}
	}
	out.Fields = fields
	return out
}

// WithDescription returns a copy of the schema with a new description.
func (s *Schema) WithDescription(description string) *Schema {
	out := s.shallowCopy()
	out.Description = description
	return out
}

func (s *Schema) shallowCopy() *Schema {
	if s == nil {
		return &Schema{}
	}
	out := *s
	out.Fields = append([]Field(nil), s.Fields...)
	return &out
}

// Clone returns a deep copy. Cyclic references are cut: a node already being
// copied on the current path is replaced by nil.
func (s *Schema) Clone() *Schema {
	return clone(s, map[*Schema]bool{})
}

func clone(s *Schema, onPath map[*Schema]bool) *Schema {
	if s == nil || onPath[s] {
		return nil
	}
	onPath[s] = true
	defer delete(onPath, s)

	out := &Schema{Type: s.Type, Description: s.Description}
	if s.Items != nil {
		out.Items = clone(s.Items, onPath)
	}
	if len(s.Fields) > 0 {
		out.Fields = make([]Field, len(s.Fields))
		for i, f := range s.Fields {
			out.Fields[i] = Field{Name: f.Name, Schema: clone(f.Schema, onPath)}
		}
	}
	return out
}

// Check verifies that the schema is well formed: known tags, arrays with an
// item schema, objects with unique non-empty field names and no cycles.
func (s *Schema) Check() error {
	return check(s, "", map[*Schema]bool{})
}

func check(s *Schema, path string, onPath map[*Schema]bool) error {
	where := path
	if where == "" {
		where = "<root>"
	}
	if s == nil {
		return fmt.Errorf("schema at %s is nil", where)
	}
	if onPath[s] {
		return fmt.Errorf("schema at %s is cyclic", where)
	}
	if !s.Type.Known() {
		return fmt.Errorf("schema at %s has unknown type %q", where, s.Type)
	}
	onPath[s] = true
	defer delete(onPath, s)

	switch s.Type {
	case TypeArray:
		if s.Items == nil {
			return fmt.Errorf("array schema at %s has no item schema", where)
		}
		return check(s.Items, path+"[]", onPath)
	case TypeObject:
		seen := make(map[string]bool, len(s.Fields))
		for _, f := range s.Fields {
			if f.Name == "" {
				return fmt.Errorf("object schema at %s has a field without a name", where)
			}
			if seen[f.Name] {
				return fmt.Errorf("object schema at %s has duplicate field %q", where, f.Name)
			}
			seen[f.Name] = true
			if err := check(f.Schema, joinPath(path, f.Name), onPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// String renders a compact type expression such as array<object{a:string}>.
func (s *Schema) String() string {
	var b strings.Builder
	writeType(&b, s, map[*Schema]bool{})
	return b.String()
}

func writeType(b *strings.Builder, s *Schema, onPath map[*Schema]bool) {
	if s == nil {
		b.WriteString("<nil>")
		return
	}
	if onPath[s] {
		b.WriteString("<cycle>")
		return
	}
	onPath[s] = true
	defer delete(onPath, s)

	switch s.Type {
	case TypeArray:
		b.WriteString("array<")
		writeType(b, s.Items, onPath)
		b.WriteString(">")
	case TypeObject:
		b.WriteString("object{")
		for i, f := range s.Fields {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(f.Name)
			b.WriteString(":")
			writeType(b, f.Schema, onPath)
		}
		b.WriteString("}")
	default:
		b.WriteString(string(s.Type))
	}
}

// FieldNames returns the field names of an object schema in sorted order.
func (s *Schema) FieldNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}
