package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cliff-rosen/orchestrator-sub003/internal/cli"
	"github.com/cliff-rosen/orchestrator-sub003/internal/workflow"

	"github.com/spf13/cobra"
)

var (
	runNoSpinner bool
	runNoSave    bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Run a workflow interactively",
		Long: `Runs a workflow step by step. Missing inputs are asked for, each step
shows its outputs and evaluation steps decide where the run continues.

Commands inside the runner:
  next      execute the current step if needed and move on
  run       execute the current step
  back      move to the previous step
  goto <n>  make step n the current step
  reset     clear outputs and start again
  vars      show all variables
  quit      leave the runner

Input values are saved with the workflow when the runner ends.`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}
	cmd.Flags().BoolVar(&runNoSpinner, "no-spinner", false, "Do not show a spinner while a step runs")
	cmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not save input values when the runner ends")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, configPath, appOptions{connect: true, watch: true})
	if err != nil {
		return err
	}
	defer a.Close()

	instance, err := a.workflows.Open(args[0], a.engine, a.newStore(), workflow.WithTracker(a.tracker))
	if err != nil {
		return err
	}
	if missing, err := a.workflows.MissingTools(args[0]); err == nil && len(missing) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: workflow %s uses unknown tools: %v\n", args[0], missing)
	}

	runner := cli.NewRunner(instance,
		cli.WithOutput(cmd.OutOrStdout()),
		cli.WithFiles(a.files),
		cli.WithSpinner(!runNoSpinner),
	)
	if err := runner.Run(ctx); err != nil {
		return err
	}

	if runNoSave || !instance.IsDirty() {
		return nil
	}
	if err := a.workflows.SaveInstance(instance); err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved input values of workflow %s.\n", args[0])
	return nil
}
