package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCompatible(t *testing.T) {
	person := Object(
		NewField("name", String()),
		NewField("age", Number()),
	)

	tests := []struct {
		name      string
		target    *Schema
		candidate *Schema
		expected  bool
	}{
		{"string matches string", String(), String(), true},
		{"number does not match string", Number(), String(), false},
		{"boolean matches boolean", Boolean(), Boolean(), true},
		{"file matches file", File(), File(), true},
		{"file does not match string", File(), String(), false},
		{"string does not match file", String(), File(), false},
		{"array of strings", Array(String()), Array(String()), true},
		{"array item mismatch", Array(String()), Array(Number()), false},
		{"array vs primitive", Array(String()), String(), false},
		{"primitive vs array", String(), Array(String()), false},
		{"primitive from object field", String(), person, true},
		{"number from object field", Number(), person, true},
		{"boolean not in object", Boolean(), person, false},
		{"file never from object field", File(), Object(NewField("doc", File())), false},
		{"object width subtyping", Object(NewField("name", String())), person, true},
		{"object missing field", Object(NewField("email", String())), person, false},
		{"object field type mismatch", Object(NewField("age", String())), person, false},
		{"object vs primitive", person, String(), false},
		{"empty object target", Object(), person, true},
		{"nil target", nil, String(), false},
		{"nil candidate", String(), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsCompatible(tt.target, tt.candidate))
		})
	}
}

func TestIsCompatible_Reflexive(t *testing.T) {
	schemas := []*Schema{
		String(),
		Number(),
		Boolean(),
		File(),
		Array(String()),
		Object(),
		Object(NewField("a", String()), NewField("b", Array(Number()))),
		Array(Object(
			NewField("title", String()),
			NewField("tags", Array(String())),
			NewField("meta", Object(NewField("score", Number()))),
		)),
	}

	for _, s := range schemas {
		t.Run(s.String(), func(t *testing.T) {
			assert.True(t, IsCompatible(s, s))
			assert.True(t, IsCompatible(s, s.Clone()))
		})
	}
}

func TestIsCompatible_PrimitiveFromAnyObjectField(t *testing.T) {
	for _, primitive := range []*Schema{String(), Number(), Boolean()} {
		candidate := Object(
			NewField("other", Array(String())),
			NewField("value", &Schema{Type: primitive.Type}),
		)
		assert.True(t, IsCompatible(primitive, candidate), primitive.String())
	}
}

func TestIsCompatible_CycleIsIncompatible(t *testing.T) {
	cyclic := &Schema{Type: TypeObject}
	cyclic.Fields = []Field{{Name: "self", Schema: cyclic}}

	done := make(chan bool, 1)
	go func() {
		done <- IsCompatible(cyclic, cyclic)
	}()
	assert.False(t, <-done)

	loop := &Schema{Type: TypeArray}
	loop.Items = loop
	assert.False(t, IsCompatible(loop, loop))
}

func TestCompatibleFields(t *testing.T) {
	candidate := Object(
		NewField("title", String()),
		NewField("count", Number()),
		NewField("summary", String()),
	)

	assert.Equal(t, []string{"title", "summary"}, CompatibleFields(String(), candidate))
	assert.Equal(t, []string{"count"}, CompatibleFields(Number(), candidate))
	assert.Nil(t, CompatibleFields(String(), String()))
}
