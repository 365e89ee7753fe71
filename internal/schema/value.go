package schema

import (
	"encoding/json"
	"sort"
)

// FileValue is the value held by a variable whose schema is a file. Content
// is nil until the file's content has been fetched and cached.
type FileValue struct {
	FileID  string  `json:"file_id" yaml:"file_id"`
	Name    string  `json:"name,omitempty" yaml:"name,omitempty"`
	Content *string `json:"content,omitempty" yaml:"content,omitempty"`
}

// HasContent reports whether the file content is cached.
func (f FileValue) HasContent() bool {
	return f.Content != nil
}

// WithContent returns a copy of the handle carrying the given content.
func (f FileValue) WithContent(content string) FileValue {
	f.Content = &content
	return f
}

// AsFileValue accepts a FileValue, a pointer to one, or a decoded map with a
// file_id key (the shape produced by JSON or YAML decoding).
func AsFileValue(v any) (FileValue, bool) {
	switch fv := v.(type) {
	case FileValue:
		return fv, fv.FileID != ""
	case *FileValue:
		if fv == nil {
			return FileValue{}, false
		}
		return *fv, fv.FileID != ""
	case map[string]any:
		id, ok := fv["file_id"].(string)
		if !ok || id == "" {
			return FileValue{}, false
		}
		out := FileValue{FileID: id}
		if name, ok := fv["name"].(string); ok {
			out.Name = name
		}
		if content, ok := fv["content"].(string); ok {
			out.Content = &content
		}
		return out, true
	}
	return FileValue{}, false
}

// Infer derives a schema from a decoded value. It is used when a tool returns
// an output that its signature does not describe. Empty arrays default to
// array<string>; nil yields nil.
func Infer(v any) *Schema {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return String()
	case bool:
		return Boolean()
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return Number()
	case FileValue, *FileValue:
		return File()
	case []string:
		return Array(String())
	case []any:
		for _, item := range val {
			if s := Infer(item); s != nil {
				return Array(s)
			}
		}
		return Array(String())
	case map[string]any:
		if _, ok := AsFileValue(val); ok && len(val) <= 3 {
			return File()
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fs := Infer(val[k])
			if fs == nil {
				fs = String()
			}
			fields = append(fields, Field{Name: k, Schema: fs})
		}
		return Object(fields...)
	}
	return String()
}

// Lookup walks a decoded value along a field path, descending through maps.
func Lookup(v any, path []string) (any, bool) {
	current := v
	for _, part := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, exists := m[part]
		if !exists {
			return nil, false
		}
		current = next
	}
	return current, true
}

// CopyValue deep-copies decoded values (maps, slices and file handles) so that
// snapshots do not alias live data.
func CopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CopyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case FileValue:
		if val.Content != nil {
			return val.WithContent(*val.Content)
		}
		return val
	case *FileValue:
		if val == nil {
			return val
		}
		return CopyValue(*val)
	}
	return v
}
