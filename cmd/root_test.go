package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersion(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", GetVersion())
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "flowctl", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)

	for _, name := range []string{"config-path", "log-level"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing flag %s", name)
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "flowctl version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	require.NoError(t, testCmd.Execute())
	assert.Equal(t, "flowctl version 1.0.0\n", buf.String())
}

func TestSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, expected := range []string{"version", "run", "validate", "tools", "templates", "executions"} {
		assert.True(t, found[expected], "missing subcommand %s", expected)
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCodeError, getExitCode(errors.New("boom")))
	assert.Equal(t, ExitCodeInvalidWorkflow, getExitCode(&invalidWorkflowError{name: "w", blocking: 1}))
}
