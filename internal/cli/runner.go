package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/workflow"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// LineReader reads user input line by line. *readline.Instance implements it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

// errQuit ends the runner loop.
var errQuit = errors.New("quit")

// Runner drives a workflow instance in run mode from a terminal. It shows
// the active step, collects missing inputs, executes steps and follows the
// transitions, including jumps, until the user quits.
type Runner struct {
	instance *workflow.Instance
	out      io.Writer
	rl       LineReader
	files    FileImporter
	spinner  bool
	registry *Registry
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithOutput sets where the runner writes. The default is stdout.
func WithOutput(w io.Writer) RunnerOption {
	return func(r *Runner) { r.out = w }
}

// WithLineReader sets the input source. By default a readline instance with
// history and command completion is created.
func WithLineReader(rl LineReader) RunnerOption {
	return func(r *Runner) { r.rl = rl }
}

// WithFiles sets the importer used for file inputs.
func WithFiles(files FileImporter) RunnerOption {
	return func(r *Runner) { r.files = files }
}

// WithSpinner enables the progress spinner while a step runs.
func WithSpinner(enabled bool) RunnerOption {
	return func(r *Runner) { r.spinner = enabled }
}

// NewRunner creates a runner for instance.
func NewRunner(instance *workflow.Instance, opts ...RunnerOption) *Runner {
	r := &Runner{
		instance: instance,
		out:      os.Stdout,
		spinner:  true,
		registry: NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.registerCommands()
	return r
}

func (r *Runner) registerCommands() {
	r.registry.Register("help", &funcCommand{
		usage: "help", description: "Show available commands", aliases: []string{"?", "h"},
		run: func(context.Context, []string) error { r.printHelp(); return nil },
	})
	r.registry.Register("run", &funcCommand{
		usage: "run", description: "Execute the current step", aliases: []string{"r", "exec"},
		run: func(ctx context.Context, _ []string) error { return r.runStep(ctx) },
	})
	r.registry.Register("next", &funcCommand{
		usage: "next", description: "Execute the current step if needed and move on", aliases: []string{"n"},
		run: func(ctx context.Context, _ []string) error { return r.next(ctx) },
	})
	r.registry.Register("back", &funcCommand{
		usage: "back", description: "Move to the previous step", aliases: []string{"b", "prev"},
		run: func(context.Context, []string) error {
			if _, err := r.instance.MoveToPreviousStep(); err != nil {
				return err
			}
			r.showCurrent()
			return nil
		},
	})
	r.registry.Register("goto", &funcCommand{
		usage: "goto <n>", description: "Make step n the current step", aliases: []string{"g"},
		run: func(_ context.Context, args []string) error { return r.gotoStep(args) },
	})
	r.registry.Register("reset", &funcCommand{
		usage: "reset", description: "Clear outputs and start again", aliases: []string{"restart"},
		run: func(context.Context, []string) error {
			if err := r.instance.ResetWorkflow(); err != nil {
				return err
			}
			fmt.Fprintln(r.out, "Workflow reset.")
			r.showCurrent()
			return nil
		},
	})
	r.registry.Register("inputs", &funcCommand{
		usage: "inputs", description: "Enter values for the input variables", aliases: []string{"i", "set"},
		run: func(context.Context, []string) error { return r.collectInputs(true) },
	})
	r.registry.Register("vars", &funcCommand{
		usage: "vars", description: "Show all variables", aliases: []string{"v"},
		run: func(context.Context, []string) error {
			RenderVariables(r.out, r.instance.Variables())
			return nil
		},
	})
	r.registry.Register("steps", &funcCommand{
		usage: "steps", description: "Show all steps", aliases: []string{"s", "ls"},
		run: func(context.Context, []string) error {
			RenderSteps(r.out, r.instance.Steps(), r.instance.ActiveStepIndex())
			return nil
		},
	})
	r.registry.Register("quit", &funcCommand{
		usage: "quit", description: "Leave the runner", aliases: []string{"q", "exit"},
		run: func(context.Context, []string) error { return errQuit },
	})
}

// Run switches the instance to run mode and processes commands until the
// user quits, input ends or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.instance.SetMode(workflow.ModeRun); err != nil {
		return err
	}

	if r.rl == nil {
		var items []readline.PrefixCompleterInterface
		for _, name := range r.registry.List() {
			items = append(items, readline.PcItem(name))
		}
		rl, err := readline.NewEx(&readline.Config{
			Prompt:            r.prompt(),
			HistoryFile:       filepath.Join(os.TempDir(), ".flowctl_history"),
			AutoComplete:      readline.NewPrefixCompleter(items...),
			InterruptPrompt:   "^C",
			EOFPrompt:         "quit",
			HistorySearchFold: true,
		})
		if err != nil {
			return fmt.Errorf("failed to create readline instance: %w", err)
		}
		r.rl = rl
	}
	defer r.rl.Close()

	fmt.Fprintf(r.out, "Running workflow %s. Type 'help' for available commands.\n", r.instance.Name())
	r.showCurrent()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		r.rl.SetPrompt(r.prompt())
		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if err := r.execute(ctx, input); err != nil {
			if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
				return nil
			}
			fmt.Fprintf(r.out, "%s %v\n", text.FgRed.Sprint("Error:"), err)
		}
	}
}

func (r *Runner) execute(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	command, exists := r.registry.Get(strings.ToLower(parts[0]))
	if !exists {
		return fmt.Errorf("unknown command: %s. Type 'help' for available commands", parts[0])
	}
	return command.Execute(ctx, parts[1:])
}

func (r *Runner) prompt() string {
	if r.instance.Completed() {
		return fmt.Sprintf("%s [done]> ", r.instance.Name())
	}
	return fmt.Sprintf("%s [%d/%d]> ", r.instance.Name(), r.instance.ActiveStepIndex(), len(r.instance.Steps())-1)
}

func (r *Runner) printHelp() {
	for _, name := range r.registry.List() {
		cmd, _ := r.registry.Get(name)
		fmt.Fprintf(r.out, "  %-10s %s\n", cmd.Usage(), cmd.Description())
	}
}

func (r *Runner) showCurrent() {
	step, ok := r.instance.CurrentStep()
	if !ok {
		fmt.Fprintln(r.out, text.FgGreen.Sprint("Workflow completed."))
		RenderVariables(r.out, r.instance.Variables())
		return
	}

	index := r.instance.ActiveStepIndex()
	switch step.Type {
	case api.StepTypeInput:
		fmt.Fprintf(r.out, "Step %d: enter the workflow inputs ('next' or 'inputs').\n", index)
	case api.StepTypeEvaluation:
		fmt.Fprintf(r.out, "Step %d: %s (evaluation)\n", index, step.DisplayName())
	default:
		tool := step.Tool
		if step.PromptTemplateID != "" {
			tool += " with template " + step.PromptTemplateID
		}
		fmt.Fprintf(r.out, "Step %d: %s (tool %s)\n", index, step.DisplayName(), tool)
	}
}

func (r *Runner) runStep(ctx context.Context) error {
	step, ok := r.instance.CurrentStep()
	if !ok {
		fmt.Fprintln(r.out, "Workflow completed. Use 'reset' to run it again.")
		return nil
	}
	if step.Type == api.StepTypeInput {
		return r.collectInputs(false)
	}
	if findings := r.instance.CanExecuteCurrentStep(); len(findings) > 0 {
		RenderFindings(r.out, findings)
		return fmt.Errorf("step %s cannot be executed", step.ID)
	}

	var s *spinner.Spinner
	if r.spinner {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Writer = r.out
		s.Suffix = " Running " + step.DisplayName()
		s.Start()
	}
	result := r.instance.ExecuteCurrentStep(ctx)
	if s != nil {
		s.Stop()
	}

	if !result.Success {
		logging.Debug("Runner", "Step %s failed: %v", step.ID, result.Error)
		return result.Error
	}

	if step.Type == api.StepTypeEvaluation {
		action, _ := result.Outputs["action"].(string)
		fmt.Fprintf(r.out, "%s %s evaluated: %s\n", text.FgGreen.Sprint("✓"), step.DisplayName(), action)
		return nil
	}
	fmt.Fprintf(r.out, "%s %s in %s\n", text.FgGreen.Sprint("✓"), result.Message(), result.Duration.Round(time.Millisecond))
	RenderOutputs(r.out, result.Outputs)
	return nil
}

func (r *Runner) next(ctx context.Context) error {
	step, ok := r.instance.CurrentStep()
	if !ok {
		fmt.Fprintln(r.out, "Workflow completed. Use 'reset' to run it again.")
		return nil
	}

	if step.Type == api.StepTypeInput {
		if r.instance.IsInputRequired() {
			// completing the inputs advances the run
			if err := r.collectInputs(false); err != nil {
				return err
			}
			r.showCurrent()
			return nil
		}
	} else if !r.instance.StepExecuted() {
		if err := r.runStep(ctx); err != nil {
			return err
		}
	}

	if _, err := r.instance.MoveToNextStep(); err != nil {
		return err
	}
	r.showCurrent()
	return nil
}

func (r *Runner) gotoStep(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: goto <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid step number %q", args[0])
	}
	if err := r.instance.SetActiveStep(n); err != nil {
		return err
	}
	r.showCurrent()
	return nil
}

// collectInputs prompts for input variables: only the missing required
// ones, or all of them when all is set. An empty answer keeps the current
// value or skips an optional input.
func (r *Runner) collectInputs(all bool) error {
	values := make(map[string]interface{})
	for _, v := range r.instance.Variables() {
		if v.Role != api.RoleInput {
			continue
		}
		if !all && (v.HasValue || !v.Required) {
			continue
		}

		for {
			label := fmt.Sprintf("%s (%s", v.Name, v.Schema)
			if v.Description != "" {
				label += ", " + v.Description
			}
			if v.HasValue {
				label += ", current " + FormatValue(v.Value, true)
			} else if !v.Required {
				label += ", optional"
			}
			r.rl.SetPrompt(label + "): ")

			line, err := r.rl.Readline()
			if err == readline.ErrInterrupt {
				return fmt.Errorf("input cancelled")
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(line) == "" {
				if v.HasValue || !v.Required {
					break
				}
				fmt.Fprintf(r.out, "%s is required\n", v.Name)
				continue
			}

			value, err := ParseValue(v.Schema, line, r.files)
			if err != nil {
				fmt.Fprintf(r.out, "%s %v\n", text.FgRed.Sprint("Invalid value:"), err)
				continue
			}
			values[v.Name] = value
			break
		}
	}

	if err := r.instance.CompleteInputStep(values); err != nil {
		return err
	}
	return nil
}
