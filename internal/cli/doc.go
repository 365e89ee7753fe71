// Package cli is the terminal front end of flowctl.
//
// Runner drives a workflow instance in run mode. It shows the active step,
// asks for missing input values, executes steps with a progress spinner and
// follows the transitions chosen by evaluation steps until the run
// completes:
//
//	runner := cli.NewRunner(instance, cli.WithFiles(fetcher))
//	if err := runner.Run(ctx); err != nil {
//		return err
//	}
//
// Input values are parsed according to the variable schema by ParseValue.
// Listing commands print through Print in table, json or yaml format.
package cli
