package cmd

import (
	"fmt"
	"strconv"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/cli"

	"github.com/spf13/cobra"
)

var (
	executionsWorkflow string
	executionsStatus   string
	executionsLimit    int
	executionsOffset   int
	showOutputFormat   string
)

func newExecutionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "executions",
		Aliases: []string{"execution", "exec"},
		Short:   "List recorded step executions",
		Long: `Lists the recorded step executions, newest first. Each executed or
evaluated step of a run is recorded with its status, duration and error.
Use 'executions show <id>' for the parameters and outputs of one record.`,
		Args: cobra.NoArgs,
		RunE: runExecutions,
	}
	addListFlags(cmd)
	cmd.Flags().StringVar(&executionsWorkflow, "workflow", "", "Only show executions of this workflow")
	cmd.Flags().StringVar(&executionsStatus, "status", "", "Only show executions with this status (inprogress, completed, failed)")
	cmd.Flags().IntVar(&executionsLimit, "limit", 0, "Maximum number of executions to show")
	cmd.Flags().IntVar(&executionsOffset, "offset", 0, "Number of executions to skip")

	show := &cobra.Command{
		Use:   "show <execution-id>",
		Short: "Show one recorded step execution",
		Args:  cobra.ExactArgs(1),
		RunE:  runExecutionShow,
	}
	show.Flags().StringVarP(&showOutputFormat, "output", "o", "yaml", "Output format (json, yaml)")
	cmd.AddCommand(show)
	return cmd
}

func runExecutions(cmd *cobra.Command, args []string) error {
	if err := cli.ValidateOutputFormat(listOutputFormat); err != nil {
		return err
	}
	switch api.ExecutionStatus(executionsStatus) {
	case "", api.ExecutionStatusInProgress, api.ExecutionStatusCompleted, api.ExecutionStatusFailed:
	default:
		return fmt.Errorf("unknown status %q (valid: inprogress, completed, failed)", executionsStatus)
	}

	a, err := newApp(cmd.Context(), configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.tracker.ListExecutions(cmd.Context(), &api.ListExecutionsRequest{
		WorkflowName: executionsWorkflow,
		Status:       api.ExecutionStatus(executionsStatus),
		Limit:        executionsLimit,
		Offset:       executionsOffset,
	})
	if err != nil {
		return err
	}

	listing := cli.Listing{
		Headers: []string{"id", "workflow", "step", "tool", "status", "started", "duration", "error"},
		Data:    resp,
	}
	for _, r := range resp.Executions {
		listing.Rows = append(listing.Rows, []string{
			r.ExecutionID,
			r.WorkflowName,
			r.StepID,
			r.ToolID,
			string(r.Status),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			strconv.FormatInt(r.DurationMs, 10) + "ms",
			r.Error,
		})
	}
	if err := cli.Print(cmd.OutOrStdout(), cli.OutputFormat(listOutputFormat), listing, listNoHeaders); err != nil {
		return err
	}
	if resp.HasMore && cli.OutputFormat(listOutputFormat) == cli.OutputFormatTable {
		fmt.Fprintf(cmd.ErrOrStderr(), "Showing %d of %d executions, use --offset for more.\n", len(resp.Executions), resp.Total)
	}
	return nil
}

func runExecutionShow(cmd *cobra.Command, args []string) error {
	format := cli.OutputFormat(showOutputFormat)
	if format != cli.OutputFormatJSON && format != cli.OutputFormatYAML {
		return fmt.Errorf("unsupported output format: %q (valid: json, yaml)", showOutputFormat)
	}

	a, err := newApp(cmd.Context(), configPath, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	record, err := a.tracker.GetExecution(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return cli.Print(cmd.OutOrStdout(), format, cli.Listing{Data: record}, false)
}
