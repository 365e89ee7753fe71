package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/engine"
	"github.com/cliff-rosen/orchestrator-sub003/internal/variables"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// Mode is the mode of a workflow instance.
type Mode string

const (
	ModeEdit Mode = "edit"
	ModeRun  Mode = "run"
)

// InputStepID identifies the input step placed before the workflow's own
// steps in run mode.
const InputStepID = "__input__"

// Instance is one workflow being edited or run: its steps, its variable
// store and the position of the run. Operations on an instance are
// serialized; a step execution in progress blocks further executions and
// edits until it returns.
type Instance struct {
	mu sync.Mutex

	name        string
	description string
	createdAt   time.Time

	steps  []api.Step
	store  *variables.Store
	engine *engine.Engine

	tracker *ExecutionTracker

	mode         Mode
	activeIndex  int
	stepExecuted bool
	executing    bool
	dirty        bool

	// jumps counts the jumps taken per evaluation step since the last reset
	jumps map[string]int
}

// InstanceOption configures an Instance.
type InstanceOption func(*Instance)

// WithTracker records every execution and evaluation through tracker.
func WithTracker(tracker *ExecutionTracker) InstanceOption {
	return func(i *Instance) { i.tracker = tracker }
}

// WithStore uses store as the instance's variable store.
func WithStore(store *variables.Store) InstanceOption {
	return func(i *Instance) {
		if store != nil {
			i.store = store
		}
	}
}

// NewInstance creates an empty workflow instance in edit mode.
func NewInstance(name string, eng *engine.Engine, opts ...InstanceOption) *Instance {
	i := &Instance{
		name:      name,
		createdAt: time.Now(),
		engine:    eng,
		mode:      ModeEdit,
		jumps:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.store == nil {
		i.store = variables.NewStore()
	}
	return i
}

// Name returns the workflow name.
func (i *Instance) Name() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.name
}

// Store returns the instance's variable store. Reading from it is safe at
// any time; writes should go through the instance.
func (i *Instance) Store() *variables.Store {
	return i.store
}

// Variables returns the variables in declaration order.
func (i *Instance) Variables() []variables.Variable {
	return i.store.Variables()
}

// Mode returns the current mode.
func (i *Instance) Mode() Mode {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mode
}

// ActiveStepIndex returns the index of the active step in the current mode's
// numbering.
func (i *Instance) ActiveStepIndex() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.activeIndex
}

// StepExecuted reports whether the active step has been executed
// successfully since it became active.
func (i *Instance) StepExecuted() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stepExecuted
}

// IsExecuting reports whether a step execution is in progress.
func (i *Instance) IsExecuting() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.executing
}

// IsDirty reports whether the instance has unsaved edits or input values.
func (i *Instance) IsDirty() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dirty
}

// MarkSaved clears the unsaved-changes flag.
func (i *Instance) MarkSaved() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.dirty = false
}

// IsInputRequired reports whether a required input variable has no value.
// It is computed from the store on every call.
func (i *Instance) IsInputRequired() bool {
	return i.store.IsInputRequired()
}

// Completed reports whether a run has moved past the last step.
func (i *Instance) Completed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.activeIndex >= i.stepCountLocked()
}

// Steps returns a copy of the steps in the current mode's numbering. In run
// mode this includes the input step when the workflow has input variables.
func (i *Instance) Steps() []api.Step {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]api.Step, 0, len(i.steps)+1)
	if i.offsetLocked() > 0 {
		out = append(out, inputStep())
	}
	for idx := range i.steps {
		out = append(out, *i.steps[idx].Clone())
	}
	return out
}

// CurrentStep returns a copy of the active step. It returns false when the
// run has completed or the workflow has no steps.
func (i *Instance) CurrentStep() (*api.Step, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	step, ok := i.currentStepLocked()
	if !ok {
		return nil, false
	}
	return step.Clone(), true
}

// Offset returns the number of synthetic steps before the workflow's own
// steps in the current mode.
func (i *Instance) Offset() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.offsetLocked()
}

// SetMode switches between edit and run mode. The active step is reset to
// the first step; variable values are kept.
func (i *Instance) SetMode(mode Mode) error {
	if mode != ModeEdit && mode != ModeRun {
		return fmt.Errorf("unknown mode %q", mode)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.executing {
		return api.ErrExecutionInProgress
	}
	if i.mode == mode {
		return nil
	}

	i.mode = mode
	i.activeIndex = 0
	i.stepExecuted = false
	logging.Debug("Workflow", "Workflow %s switched to %s mode", i.name, mode)
	return nil
}

// SetActiveStep makes the step at index active.
func (i *Instance) SetActiveStep(index int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.executing {
		return api.ErrExecutionInProgress
	}
	if index < 0 || index >= i.stepCountLocked() {
		return fmt.Errorf("step index %d out of range [0, %d)", index, i.stepCountLocked())
	}
	i.activeIndex = index
	i.stepExecuted = false
	return nil
}

// ExecuteCurrentStep executes the active step. Action steps invoke their
// tool; evaluation steps evaluate their conditions and store the selected
// branch. Input steps are completed with CompleteInputStep instead.
//
// The instance stays locked against other executions and edits while the
// tool runs; a concurrent call fails with api.ErrExecutionInProgress.
func (i *Instance) ExecuteCurrentStep(ctx context.Context) engine.ExecutionResult {
	i.mu.Lock()
	if i.executing {
		i.mu.Unlock()
		return engine.ExecutionResult{Error: api.ErrExecutionInProgress}
	}
	current, ok := i.currentStepLocked()
	if !ok {
		i.mu.Unlock()
		return engine.ExecutionResult{Error: fmt.Errorf("workflow %s has no active step", i.name)}
	}
	step := current.Clone()
	if step.Type == api.StepTypeInput {
		i.mu.Unlock()
		return engine.ExecutionResult{StepID: step.ID, Error: &api.NotExecutableError{StepID: step.ID, Type: step.Type}}
	}
	if missing := i.store.MissingInputs(); len(missing) > 0 {
		i.mu.Unlock()
		return engine.ExecutionResult{StepID: step.ID, Error: &api.MissingInputsError{Names: missing}}
	}
	name := i.name
	jumps := i.jumps[step.ID]
	i.executing = true
	i.mu.Unlock()

	var result engine.ExecutionResult
	var evaluation api.EvaluationResult
	if step.Type == api.StepTypeEvaluation {
		result, evaluation = i.evaluate(step, jumps)
	} else {
		result = i.engine.ExecuteStep(ctx, step, i.store)
	}

	i.mu.Lock()
	i.executing = false
	if result.Success {
		i.stepExecuted = true
		if evaluation.Action == api.ActionJump {
			i.jumps[step.ID]++
		}
	}
	i.mu.Unlock()

	if i.tracker != nil {
		if step.Type == api.StepTypeEvaluation {
			i.tracker.TrackEvaluation(ctx, name, step.ID, result.StartedAt, evaluation, result.Error)
		} else {
			i.tracker.TrackStep(ctx, name, result)
		}
	}
	return result
}

func (i *Instance) evaluate(step *api.Step, jumps int) (engine.ExecutionResult, api.EvaluationResult) {
	result := engine.ExecutionResult{StepID: step.ID, StartedAt: time.Now()}
	evaluation, err := i.engine.EvaluateStep(step, i.store, jumps)
	result.Duration = time.Since(result.StartedAt)
	if err != nil {
		result.Error = err
		return result, evaluation
	}
	result.Success = true
	result.Outputs = evaluation.AsMap()
	return result, evaluation
}

// MoveToNextStep advances the run and returns the new active index. After an
// evaluation step that was evaluated since it became active, the stored
// branch decides the target; otherwise, or when the branch is malformed, the
// run moves to the next step. Leaving the input step requires every required
// input to be set.
func (i *Instance) MoveToNextStep() (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.executing {
		return i.activeIndex, api.ErrExecutionInProgress
	}

	if step, ok := i.currentStepLocked(); ok && step.ID == InputStepID {
		if missing := i.store.MissingInputs(); len(missing) > 0 {
			return i.activeIndex, &api.MissingInputsError{Names: missing}
		}
	}

	offset := i.offsetLocked()
	next := i.activeIndex + 1
	if step, ok := i.currentStepLocked(); !ok || step.Type != api.StepTypeEvaluation || i.stepExecuted {
		next = engine.NextIndex(i.steps, i.activeIndex, offset, i.store)
	}
	if count := i.stepCountLocked(); next > count {
		next = count
	}
	logging.Debug("Workflow", "Workflow %s moves from step %d to %d", i.name, i.activeIndex, next)

	i.activeIndex = next
	i.stepExecuted = false
	return next, nil
}

// MoveToPreviousStep moves back one step and clears the executed flag.
func (i *Instance) MoveToPreviousStep() (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.executing {
		return i.activeIndex, api.ErrExecutionInProgress
	}
	if i.activeIndex > 0 {
		i.activeIndex--
	}
	i.stepExecuted = false
	return i.activeIndex, nil
}

// CompleteInputStep sets input variable values. The values are applied
// together: if one is rejected, none is written. When the input step is
// active and no required input is missing afterwards, the run advances.
func (i *Instance) CompleteInputStep(values map[string]any) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.executing {
		return api.ErrExecutionInProgress
	}

	for name := range values {
		v, ok := i.store.Get(name)
		if !ok {
			return &api.UnknownVariableError{Name: name}
		}
		if v.Role != api.RoleInput {
			return fmt.Errorf("variable %s is not an input", name)
		}
	}

	if len(values) > 0 {
		snapshot := i.store.Snapshot()
		for name, value := range values {
			if err := i.store.SetValue(name, value); err != nil {
				i.store.Restore(snapshot)
				return err
			}
		}
		// input values are part of the saved definition
		i.dirty = true
	}

	step, ok := i.currentStepLocked()
	if !ok || step.ID != InputStepID {
		return nil
	}
	if missing := i.store.MissingInputs(); len(missing) > 0 {
		return &api.MissingInputsError{Names: missing}
	}
	i.activeIndex++
	i.stepExecuted = false
	return nil
}

// ResetWorkflow restarts the run: output and intermediate values are cleared,
// schemas and input values are kept, and the first step becomes active.
func (i *Instance) ResetWorkflow() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.executing {
		return api.ErrExecutionInProgress
	}

	i.store.ClearValues(api.RoleOutput, api.RoleIntermediate)
	i.activeIndex = 0
	i.stepExecuted = false
	i.jumps = make(map[string]int)

	logging.Info("Workflow", "Workflow %s reset", i.name)
	return nil
}

// Validate checks every step against the store and the catalog.
func (i *Instance) Validate() engine.ValidationErrors {
	i.mu.Lock()
	steps := make([]api.Step, len(i.steps))
	copy(steps, i.steps)
	i.mu.Unlock()

	return i.engine.ValidateWorkflow(steps, i.store)
}

// CanExecuteCurrentStep returns the blocking findings of the active step
// against its bound descriptors. An empty result means the step may be
// executed.
func (i *Instance) CanExecuteCurrentStep() engine.ValidationErrors {
	step, ok := i.CurrentStep()
	if !ok || step.Type == api.StepTypeInput {
		return nil
	}
	return i.engine.CheckExecutable(step, i.store)
}

// bind resolves the tool descriptors of step. A step whose tool cannot be
// resolved stays unbound and is reported by validation.
func (i *Instance) bind(step *api.Step) {
	if i.engine == nil {
		return
	}
	if err := i.engine.Bind(step); err != nil {
		logging.Warn("Workflow", "Step %s of workflow %s is not bound: %v", step.ID, i.name, err)
	}
}

func (i *Instance) offsetLocked() int {
	if i.mode == ModeRun && len(i.store.ListByRole(api.RoleInput)) > 0 {
		return 1
	}
	return 0
}

func (i *Instance) stepCountLocked() int {
	return len(i.steps) + i.offsetLocked()
}

func (i *Instance) currentStepLocked() (*api.Step, bool) {
	offset := i.offsetLocked()
	if i.activeIndex < 0 || i.activeIndex >= len(i.steps)+offset {
		return nil, false
	}
	if i.activeIndex < offset {
		step := inputStep()
		return &step, true
	}
	return &i.steps[i.activeIndex-offset], true
}

func inputStep() api.Step {
	return api.Step{
		ID:    InputStepID,
		Type:  api.StepTypeInput,
		Label: "Inputs",
	}
}
