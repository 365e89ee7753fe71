package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/cliff-rosen/orchestrator-sub003/internal/config"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeInvalidWorkflow indicates a workflow with blocking validation findings.
	ExitCodeInvalidWorkflow = 2
)

var (
	configPath string
	logLevel   string
)

// rootCmd represents the base command for the flowctl application.
var rootCmd = &cobra.Command{
	Use:   "flowctl",
	Short: "Run multi-step tool workflows from the terminal",
	Long: `flowctl runs workflows that chain tool invocations (language-model
calls, search, retrieval and MCP tools) together, passing typed variables
from one step to the next. Workflows, tools and prompt templates are YAML
files below the configuration directory.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, ok := logging.ParseLevel(logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", logLevel)
		}
		logging.InitForCLI(level, cmd.ErrOrStderr())
		return nil
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "flowctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var invalid *invalidWorkflowError
	if errors.As(err, &invalid) {
		return ExitCodeInvalidWorkflow
	}
	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error), overrides logLevel in config.yaml")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newTemplatesCmd())
	rootCmd.AddCommand(newExecutionsCmd())
}
