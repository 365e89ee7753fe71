package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
)

func TestStore_RoundTrip(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetSchema("question", schema.String(), api.RoleInput))

	_, ok := s.GetValue("question")
	assert.False(t, ok)

	require.NoError(t, s.SetValue("question", "Is X true?"))
	v, ok := s.GetValue("question")
	assert.True(t, ok)
	assert.Equal(t, "Is X true?", v)
}

func TestStore_SetValueUnknownVariable(t *testing.T) {
	s := NewStore()
	err := s.SetValue("missing", 1)
	require.Error(t, err)
	assert.True(t, api.IsUnknownVariable(err))
}

func TestStore_StrictMode(t *testing.T) {
	lenient := NewStore()
	require.NoError(t, lenient.SetSchema("count", schema.Number(), api.RoleOutput))
	assert.NoError(t, lenient.SetValue("count", "not a number"))

	strict := NewStore(WithStrict(true))
	require.NoError(t, strict.SetSchema("count", schema.Number(), api.RoleOutput))
	err := strict.SetValue("count", "not a number")
	require.Error(t, err)
	assert.True(t, api.IsSchemaMismatch(err))
	assert.NoError(t, strict.SetValue("count", 3))
}

func TestStore_SetSchemaKeepsCompatibleValue(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetSchema("answer", schema.Object(schema.NewField("text", schema.String())), api.RoleOutput))
	require.NoError(t, s.SetValue("answer", map[string]any{"text": "t", "score": 1.0}))

	// narrower object still accepts the value
	require.NoError(t, s.SetSchema("answer", schema.Object(), api.RoleOutput))
	_, ok := s.GetValue("answer")
	assert.True(t, ok)

	// a primitive schema does not accept an object value
	require.NoError(t, s.SetSchema("answer", schema.String(), api.RoleOutput))
	_, ok = s.GetValue("answer")
	assert.False(t, ok)
}

func TestStore_SetSchemaRejectsInvalid(t *testing.T) {
	s := NewStore()
	assert.Error(t, s.SetSchema("", schema.String(), api.RoleInput))
	assert.Error(t, s.SetSchema("x", schema.String(), "bogus"))
	assert.Error(t, s.SetSchema("x", &schema.Schema{Type: schema.TypeArray}, api.RoleInput))
	assert.False(t, s.Has("x"))
}

func TestStore_RemoveSchema(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetSchema("tmp", schema.String(), api.RoleIntermediate))
	require.NoError(t, s.SetValue("tmp", "x"))

	s.RemoveSchema("tmp")
	_, ok := s.GetValue("tmp")
	assert.False(t, ok)
	assert.False(t, s.Has("tmp"))
	assert.True(t, api.IsUnknownVariable(s.SetValue("tmp", "x")))
}

func TestStore_ListByRoleKeepsOrder(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetSchema("b", schema.String(), api.RoleInput))
	require.NoError(t, s.SetSchema("out", schema.String(), api.RoleOutput))
	require.NoError(t, s.SetSchema("a", schema.String(), api.RoleInput))

	assert.Equal(t, []string{"b", "a"}, s.ListByRole(api.RoleInput))
	assert.Equal(t, []string{"out"}, s.ListByRole(api.RoleOutput))
	assert.Nil(t, s.ListByRole(api.RoleIntermediate))

	// re-registration keeps the original position
	require.NoError(t, s.SetSchema("b", schema.Number(), api.RoleInput))
	assert.Equal(t, []string{"b", "a"}, s.ListByRole(api.RoleInput))
}

func TestStore_MissingInputs(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetSchema("question", schema.String(), api.RoleInput))
	require.NoError(t, s.SetSchema("context", schema.String(), api.RoleInput))
	require.NoError(t, s.SetSchema("answer", schema.String(), api.RoleOutput))

	assert.True(t, s.IsInputRequired())
	assert.Equal(t, []string{"question", "context"}, s.MissingInputs())

	require.NoError(t, s.SetValue("question", "q"))
	assert.Equal(t, []string{"context"}, s.MissingInputs())

	require.NoError(t, s.SetRequired("context", false))
	assert.False(t, s.IsInputRequired())

	require.NoError(t, s.SetRequired("context", true))
	assert.True(t, s.IsInputRequired())
	assert.True(t, api.IsUnknownVariable(s.SetRequired("nope", true)))
}

func TestStore_ClearValues(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetSchema("in", schema.String(), api.RoleInput))
	require.NoError(t, s.SetSchema("out1", schema.String(), api.RoleOutput))
	require.NoError(t, s.SetSchema("out2", schema.Number(), api.RoleOutput))
	require.NoError(t, s.SetValue("in", "keep"))
	require.NoError(t, s.SetValue("out1", "x"))
	require.NoError(t, s.SetValue("out2", 2))

	s.ClearValues(api.RoleOutput)

	v, ok := s.GetValue("in")
	assert.True(t, ok)
	assert.Equal(t, "keep", v)
	_, ok = s.GetValue("out1")
	assert.False(t, ok)
	_, ok = s.GetValue("out2")
	assert.False(t, ok)

	sch, ok := s.Schema("out2")
	require.True(t, ok)
	assert.Equal(t, schema.TypeNumber, sch.Type)
}

func TestStore_SnapshotRestore(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetSchema("doc", schema.Object(schema.NewField("tags", schema.Array(schema.String()))), api.RoleOutput))
	require.NoError(t, s.SetValue("doc", map[string]any{"tags": []any{"a"}}))

	sn := s.Snapshot()

	v, _ := s.GetValue("doc")
	v.(map[string]any)["tags"] = []any{"mutated"}
	require.NoError(t, s.SetSchema("fresh", schema.String(), api.RoleOutput))
	require.NoError(t, s.SetValue("fresh", "new"))
	s.CacheFileContent("f1", "content")

	s.Restore(sn)

	v, ok := s.GetValue("doc")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"tags": []any{"a"}}, v)
	assert.False(t, s.Has("fresh"))
	_, ok = s.FileContent("f1")
	assert.False(t, ok)
}

func TestStore_ChangeHook(t *testing.T) {
	calls := 0
	s := NewStore(WithChangeHook(func() { calls++ }))

	require.NoError(t, s.SetSchema("x", schema.String(), api.RoleInput))
	require.NoError(t, s.SetValue("x", "v"))
	s.ClearValue("x")

	assert.Equal(t, 3, calls)
}

func TestStore_VariablesView(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetSchema("q", schema.String(), api.RoleInput))
	require.NoError(t, s.SetDescription("q", "the question"))
	require.NoError(t, s.SetValue("q", "why"))

	vars := s.Variables()
	require.Len(t, vars, 1)
	assert.Equal(t, Variable{
		Name:        "q",
		Role:        api.RoleInput,
		Schema:      schema.String(),
		Description: "the question",
		Required:    true,
		Value:       "why",
		HasValue:    true,
	}, vars[0])
	assert.True(t, api.IsUnknownVariable(s.SetDescription("nope", "")))
}
