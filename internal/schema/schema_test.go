package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_WithFieldDoesNotMutate(t *testing.T) {
	base := Object(NewField("a", String()))

	added := base.WithField("b", Number())
	replaced := base.WithField("a", Boolean())
	removed := added.WithoutField("a")

	assert.Equal(t, "object{a:string}", base.String())
	assert.Equal(t, "object{a:string,b:number}", added.String())
	assert.Equal(t, "object{a:boolean}", replaced.String())
	assert.Equal(t, "object{b:number}", removed.String())
}

func TestSchema_Check(t *testing.T) {
	cyclic := &Schema{Type: TypeObject}
	cyclic.Fields = []Field{{Name: "self", Schema: cyclic}}

	tests := []struct {
		name    string
		schema  *Schema
		wantErr string
	}{
		{"valid nested", Array(Object(NewField("x", Number()))), ""},
		{"nil", nil, "is nil"},
		{"unknown type", &Schema{Type: "date"}, "unknown type"},
		{"array without items", &Schema{Type: TypeArray}, "no item schema"},
		{"duplicate field", Object(NewField("a", String()), NewField("a", Number())), "duplicate field"},
		{"unnamed field", Object(NewField("", String())), "without a name"},
		{"cycle", cyclic, "cyclic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSchema_JSONKeepsFieldOrder(t *testing.T) {
	input := `{"type":"object","fields":{"zeta":{"type":"string"},"alpha":{"type":"array","items":{"type":"number"}}}}`

	s, err := Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, "object{zeta:string,alpha:array<number>}", s.String())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
	assert.Less(t, indexOf(string(out), "zeta"), indexOf(string(out), "alpha"))
}

func TestSchema_LegacyLayout(t *testing.T) {
	t.Run("is_array flag", func(t *testing.T) {
		s, err := Parse([]byte(`{"type":"string","is_array":true,"description":"urls"}`))
		require.NoError(t, err)
		assert.Equal(t, "array<string>", s.String())
		assert.Equal(t, "urls", s.Description)
	})

	t.Run("nested schema wrapper", func(t *testing.T) {
		s, err := Parse([]byte(`{"type":"object","schema":{"type":"object","fields":{"improvedQuestion":{"type":"string"},"explanation":{"type":"string"}}}}`))
		require.NoError(t, err)
		assert.Equal(t, "object{improvedQuestion:string,explanation:string}", s.String())
	})

	t.Run("missing type defaults to string", func(t *testing.T) {
		s, err := Parse([]byte(`{"description":"free text"}`))
		require.NoError(t, err)
		assert.Equal(t, TypeString, s.Type)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := Parse([]byte(`{"type":"date"}`))
		assert.Error(t, err)
	})
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"string", "x", "string"},
		{"float", 1.5, "number"},
		{"int", 3, "number"},
		{"bool", true, "boolean"},
		{"strings", []any{"a", "b"}, "array<string>"},
		{"empty array", []any{}, "array<string>"},
		{"object", map[string]any{"b": 1.0, "a": "x"}, "object{a:string,b:number}"},
		{"file handle", FileValue{FileID: "f1"}, "file"},
		{"decoded file handle", map[string]any{"file_id": "f1"}, "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Infer(tt.value).String())
		})
	}
	assert.Nil(t, Infer(nil))
}

func TestLookup(t *testing.T) {
	value := map[string]any{"meta": map[string]any{"score": 9.0}}

	v, ok := Lookup(value, []string{"meta", "score"})
	assert.True(t, ok)
	assert.Equal(t, 9.0, v)

	_, ok = Lookup(value, []string{"meta", "missing"})
	assert.False(t, ok)

	_, ok = Lookup("scalar", []string{"x"})
	assert.False(t, ok)
}

func TestAsFileValue(t *testing.T) {
	fv, ok := AsFileValue(map[string]any{"file_id": "f1", "content": "hello"})
	require.True(t, ok)
	assert.Equal(t, "f1", fv.FileID)
	require.True(t, fv.HasContent())
	assert.Equal(t, "hello", *fv.Content)

	_, ok = AsFileValue(map[string]any{"name": "x"})
	assert.False(t, ok)

	_, ok = AsFileValue("f1")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	answer := Object(
		NewField("text", String()),
		NewField("sources", Array(String())),
	)

	assert.NoError(t, String().Validate("hello"))
	assert.Error(t, String().Validate(42))
	assert.NoError(t, Number().Validate(42))
	assert.NoError(t, Boolean().Validate(false))
	assert.NoError(t, Array(String()).Validate([]string{"a", "b"}))
	assert.Error(t, Array(String()).Validate([]any{"a", 1}))
	assert.NoError(t, answer.Validate(map[string]any{"text": "t", "sources": []any{"s"}, "extra": true}))
	assert.Error(t, answer.Validate(map[string]any{"text": "t"}))
	assert.NoError(t, File().Validate(FileValue{FileID: "f1"}))
	assert.Error(t, File().Validate(FileValue{}.WithContent("no id")))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
