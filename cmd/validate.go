package cmd

import (
	"fmt"

	"github.com/cliff-rosen/orchestrator-sub003/internal/cli"

	"github.com/spf13/cobra"
)

// invalidWorkflowError reports blocking validation findings.
type invalidWorkflowError struct {
	name     string
	blocking int
}

func (e *invalidWorkflowError) Error() string {
	return fmt.Sprintf("workflow %s has %d blocking problem(s)", e.name, e.blocking)
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow>",
		Short: "Check a workflow against the tool catalog",
		Long: `Checks every step of a workflow: bound tools and prompt templates exist,
parameter and output mappings name declared variables with compatible
schemas, and evaluation conditions and jump targets are well formed.

Warnings are printed but do not fail the command. Blocking problems make
the command exit with code 2.`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	instance, err := a.workflows.Open(args[0], a.engine, a.newStore())
	if err != nil {
		return err
	}

	findings := instance.Validate()
	out := cmd.OutOrStdout()
	if len(findings) == 0 {
		fmt.Fprintf(out, "Workflow %s is valid.\n", args[0])
		return nil
	}

	cli.RenderFindings(out, findings)
	if blocking := findings.Blocking(); len(blocking) > 0 {
		return &invalidWorkflowError{name: args[0], blocking: len(blocking)}
	}
	fmt.Fprintf(out, "Workflow %s is valid with %d warning(s).\n", args[0], len(findings))
	return nil
}
