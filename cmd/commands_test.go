package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/config"
	"github.com/cliff-rosen/orchestrator-sub003/internal/workflow"
)

const greetingYAML = `
name: greeting
variables:
- name: name
  role: input
  schema:
    type: string
- name: greeting
  role: intermediate
  schema:
    type: string
- name: final
  role: output
  schema:
    type: string
steps:
- id: greet
  type: ACTION
  sequence_number: 0
  tool: echo
  parameter_mappings:
    input: name
  output_mappings:
    output: greeting
- id: join
  type: ACTION
  sequence_number: 1
  tool: concatenate
  parameter_mappings:
    first: greeting
    second: name
  output_mappings:
    result: final
`

const brokenYAML = `
name: broken
steps:
- id: lookup
  type: ACTION
  tool: does-not-exist
`

func newConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	workflows := filepath.Join(dir, config.EntityWorkflows)
	require.NoError(t, os.MkdirAll(workflows, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(workflows, "greeting.yaml"), []byte(greetingYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(workflows, "broken.yaml"), []byte(brokenYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("watchCatalog: false\n"), 0644))
	return dir
}

// executeCommand runs the root command. Output and list flags are passed on
// every call since cobra keeps flag values between executions.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := newConfigDir(t)

	out, err := executeCommand(t, "validate", "greeting", "--config-path", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	out, err = executeCommand(t, "validate", "broken", "--config-path", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCodeInvalidWorkflow, getExitCode(err))
	assert.Contains(t, out, "does-not-exist")

	_, err = executeCommand(t, "validate", "missing", "--config-path", dir)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestToolsCommand(t *testing.T) {
	dir := newConfigDir(t)

	out, err := executeCommand(t, "tools", "--config-path", dir, "-o", "table", "--no-headers=false")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "echo")
	assert.Contains(t, out, "input*")

	out, err = executeCommand(t, "tools", "--config-path", dir, "-o", "json", "--no-headers=false")
	require.NoError(t, err)
	assert.Contains(t, out, `"tool_id": "concatenate"`)

	_, err = executeCommand(t, "tools", "--config-path", dir, "-o", "xml", "--no-headers=false")
	assert.Error(t, err)
}

func TestTemplatesCommand(t *testing.T) {
	dir := newConfigDir(t)

	out, err := executeCommand(t, "templates", "--config-path", dir, "-o", "table", "--no-headers=true")
	require.NoError(t, err)
	assert.Contains(t, out, "answer-generator")
	assert.Contains(t, out, "context,question")
	assert.NotContains(t, out, "TOKENS")
}

func TestExecutionsCommand(t *testing.T) {
	dir := newConfigDir(t)
	storage := workflow.NewExecutionStorage(dir)
	require.NoError(t, storage.Store(context.Background(), &api.ExecutionRecord{
		ExecutionID:  "exec-1",
		WorkflowName: "greeting",
		StepID:       "greet",
		ToolID:       "echo",
		Status:       api.ExecutionStatusCompleted,
		StartedAt:    time.Now(),
		DurationMs:   12,
		Outputs:      map[string]any{"output": "Echo: World"},
	}))

	out, err := executeCommand(t, "executions", "--config-path", dir, "-o", "table", "--no-headers=false")
	require.NoError(t, err)
	assert.Contains(t, out, "exec-1")
	assert.Contains(t, out, "12ms")

	out, err = executeCommand(t, "executions", "show", "exec-1", "--config-path", dir, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Echo: World")

	_, err = executeCommand(t, "executions", "--config-path", dir, "--status", "lost", "-o", "table", "--no-headers=false")
	assert.Error(t, err)
}
