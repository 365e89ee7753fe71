package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/engine"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
	"github.com/cliff-rosen/orchestrator-sub003/internal/variables"
)

type testCatalog struct {
	tools map[string]*api.Tool
}

func (c *testCatalog) GetTool(id string) (*api.Tool, error) {
	if t, ok := c.tools[id]; ok {
		return t, nil
	}
	return nil, api.NewNotFoundError("tool", id)
}

func (c *testCatalog) GetPromptTemplate(id string) (*api.PromptTemplate, error) {
	return nil, api.NewNotFoundError("template", id)
}

func (c *testCatalog) ListTools() []api.Tool { return nil }

func (c *testCatalog) ListPromptTemplates() []api.PromptTemplate { return nil }

func newTestCatalog() *testCatalog {
	return &testCatalog{tools: map[string]*api.Tool{
		"search": {
			ID:   "search",
			Type: api.ToolTypeSearch,
			Signature: api.Signature{
				Parameters: []api.Slot{{Name: "query", Schema: schema.String(), Required: true}},
				Outputs:    []api.Slot{{Name: "results", Schema: schema.Array(schema.String())}},
			},
		},
	}}
}

type countingInvoker struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingInvoker) Execute(_ context.Context, _ *api.Tool, params map[string]any) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return map[string]any{"results": []any{"a", "b"}}, nil
}

func researchWorkflow(maxJumps int) *api.Workflow {
	return &api.Workflow{
		Name: "research",
		Variables: []api.VariableDefinition{
			{Name: "question", Role: api.RoleInput, Schema: schema.String()},
		},
		Steps: []api.Step{
			{
				ID:                "search",
				Type:              api.StepTypeAction,
				Tool:              "search",
				ParameterMappings: map[string]string{"query": "question"},
				OutputMappings:    map[string]string{"results": "answers"},
			},
			{
				ID:   "check",
				Type: api.StepTypeEvaluation,
				Evaluation: &api.EvaluationConfig{
					Conditions: []api.Condition{{
						ID:       "has-answers",
						Variable: "answers",
						Operator: api.OperatorExists,
						Branch:   api.Branch{Action: api.ActionJump, TargetStepIndex: "0"},
					}},
					MaximumJumps: maxJumps,
				},
			},
		},
	}
}

func newResearchInstance(t *testing.T, invoker api.ToolInvoker, maxJumps int, opts ...InstanceOption) *Instance {
	t.Helper()
	eng := engine.New(newTestCatalog(), invoker, nil)
	i, err := FromWorkflow(researchWorkflow(maxJumps), eng, nil, opts...)
	require.NoError(t, err)
	return i
}

func TestInstance_RunModeWithJump(t *testing.T) {
	invoker := &countingInvoker{}
	i := newResearchInstance(t, invoker, 1)
	ctx := context.Background()

	require.NoError(t, i.SetMode(ModeRun))
	assert.Equal(t, 1, i.Offset())
	assert.Len(t, i.Steps(), 3)

	step, ok := i.CurrentStep()
	require.True(t, ok)
	assert.Equal(t, InputStepID, step.ID)
	assert.True(t, i.IsInputRequired())

	_, err := i.MoveToNextStep()
	assert.True(t, api.IsMissingInputs(err))

	require.NoError(t, i.CompleteInputStep(map[string]any{"question": "Is X true?"}))
	assert.Equal(t, 1, i.ActiveStepIndex())
	assert.False(t, i.IsInputRequired())

	result := i.ExecuteCurrentStep(ctx)
	require.True(t, result.Success, result.Message())
	assert.True(t, i.StepExecuted())
	value, ok := i.Store().GetValue("answers")
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, value)

	next, err := i.MoveToNextStep()
	require.NoError(t, err)
	assert.Equal(t, 2, next)
	assert.False(t, i.StepExecuted())

	result = i.ExecuteCurrentStep(ctx)
	require.True(t, result.Success, result.Message())
	assert.Equal(t, "jump", result.Outputs["action"])

	// edit-mode index 0 plus the input step
	next, err = i.MoveToNextStep()
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	require.True(t, i.ExecuteCurrentStep(ctx).Success)
	_, err = i.MoveToNextStep()
	require.NoError(t, err)

	// the jump limit is reached, so the same condition continues
	result = i.ExecuteCurrentStep(ctx)
	require.True(t, result.Success)
	assert.Equal(t, "continue", result.Outputs["action"])
	next, err = i.MoveToNextStep()
	require.NoError(t, err)
	assert.Equal(t, 3, next)
	assert.True(t, i.Completed())
	assert.Equal(t, 2, invoker.calls)

	_, ok = i.CurrentStep()
	assert.False(t, ok)
}

func TestInstance_JumpLimitDegradesToContinue(t *testing.T) {
	i := newResearchInstance(t, &countingInvoker{}, 1)
	ctx := context.Background()
	require.NoError(t, i.Store().SetValue("question", "q"))

	require.NoError(t, i.SetActiveStep(0))
	require.True(t, i.ExecuteCurrentStep(ctx).Success)
	_, err := i.MoveToNextStep()
	require.NoError(t, err)

	first := i.ExecuteCurrentStep(ctx)
	require.True(t, first.Success)
	assert.Equal(t, "jump", first.Outputs["action"])
	next, err := i.MoveToNextStep()
	require.NoError(t, err)
	assert.Equal(t, 0, next)

	require.NoError(t, i.SetActiveStep(1))
	second := i.ExecuteCurrentStep(ctx)
	require.True(t, second.Success)
	assert.Equal(t, "continue", second.Outputs["action"])
}

func TestInstance_NextWithoutEvaluatingContinues(t *testing.T) {
	invoker := &countingInvoker{}
	i := newResearchInstance(t, invoker, 0)
	ctx := context.Background()

	require.NoError(t, i.SetMode(ModeRun))
	require.NoError(t, i.CompleteInputStep(map[string]any{"question": "q"}))
	require.True(t, i.ExecuteCurrentStep(ctx).Success)
	_, err := i.MoveToNextStep()
	require.NoError(t, err)
	require.Equal(t, "jump", i.ExecuteCurrentStep(ctx).Outputs["action"])
	next, err := i.MoveToNextStep()
	require.NoError(t, err)
	require.Equal(t, 1, next)

	require.True(t, i.ExecuteCurrentStep(ctx).Success)
	next, err = i.MoveToNextStep()
	require.NoError(t, err)
	require.Equal(t, 2, next)

	// the result of the previous pass does not decide this visit
	assert.False(t, i.StepExecuted())
	next, err = i.MoveToNextStep()
	require.NoError(t, err)
	assert.Equal(t, 3, next)
	assert.True(t, i.Completed())
	assert.Equal(t, 2, invoker.calls)
}

func TestInstance_BoundStepIgnoresCatalogChanges(t *testing.T) {
	catalog := newTestCatalog()
	invoker := &countingInvoker{}
	i, err := FromWorkflow(researchWorkflow(0), engine.New(catalog, invoker, nil), nil)
	require.NoError(t, err)
	require.NoError(t, i.Store().SetValue("question", "q"))

	delete(catalog.tools, "search")

	assert.Empty(t, i.CanExecuteCurrentStep())
	result := i.ExecuteCurrentStep(context.Background())
	require.True(t, result.Success, result.Message())
	assert.Equal(t, 1, invoker.calls)

	for _, step := range i.Workflow().Steps {
		assert.Nil(t, step.BoundTool)
	}

	// rebinding against the changed catalog leaves the step unbound
	step, ok := i.CurrentStep()
	require.True(t, ok)
	require.NoError(t, i.UpdateStep(*step))
	blocking := i.CanExecuteCurrentStep()
	require.Len(t, blocking, 1)
	assert.True(t, api.IsNotBound(blocking[0]))
	assert.True(t, api.IsNotBound(i.ExecuteCurrentStep(context.Background()).Error))
	assert.Equal(t, 1, invoker.calls)
}

func TestInstance_CompleteInputStepIsAtomic(t *testing.T) {
	wf := researchWorkflow(0)
	wf.Variables = append(wf.Variables, api.VariableDefinition{Name: "limit", Role: api.RoleInput, Schema: schema.Number()})
	store := variables.NewStore(variables.WithStrict(true))
	i, err := FromWorkflow(wf, engine.New(newTestCatalog(), &countingInvoker{}, nil), store)
	require.NoError(t, err)
	require.NoError(t, i.SetMode(ModeRun))

	err = i.CompleteInputStep(map[string]any{"question": "q", "limit": "many"})
	require.Error(t, err)
	_, ok := store.GetValue("question")
	assert.False(t, ok)
	_, ok = store.GetValue("limit")
	assert.False(t, ok)
	assert.False(t, i.IsDirty())
	assert.Equal(t, 0, i.ActiveStepIndex())

	require.NoError(t, i.CompleteInputStep(map[string]any{"question": "q", "limit": 3}))
	assert.Equal(t, 1, i.ActiveStepIndex())
	assert.True(t, i.IsDirty())
}

func TestInstance_ResetWorkflow(t *testing.T) {
	i := newResearchInstance(t, &countingInvoker{}, 0)
	require.NoError(t, i.DeclareVariable(api.VariableDefinition{Name: "summary", Role: api.RoleOutput, Schema: schema.String()}))
	require.NoError(t, i.Store().SetValue("question", "Is X true?"))
	require.NoError(t, i.Store().SetValue("summary", "yes"))

	require.True(t, i.ExecuteCurrentStep(context.Background()).Success)
	_, err := i.MoveToNextStep()
	require.NoError(t, err)

	require.NoError(t, i.ResetWorkflow())

	assert.Equal(t, 0, i.ActiveStepIndex())
	assert.False(t, i.StepExecuted())
	_, ok := i.Store().GetValue("answers")
	assert.False(t, ok)
	_, ok = i.Store().GetValue("summary")
	assert.False(t, ok)
	assert.True(t, i.Store().Has("answers"), "schemas survive a reset")

	value, ok := i.Store().GetValue("question")
	require.True(t, ok)
	assert.Equal(t, "Is X true?", value)
}

func TestInstance_MoveToPreviousStep(t *testing.T) {
	i := newResearchInstance(t, &countingInvoker{}, 0)
	require.NoError(t, i.Store().SetValue("question", "q"))
	require.True(t, i.ExecuteCurrentStep(context.Background()).Success)
	assert.True(t, i.StepExecuted())

	prev, err := i.MoveToPreviousStep()
	require.NoError(t, err)
	assert.Equal(t, 0, prev)
	assert.False(t, i.StepExecuted())

	require.NoError(t, i.SetActiveStep(1))
	prev, err = i.MoveToPreviousStep()
	require.NoError(t, err)
	assert.Equal(t, 0, prev)

	assert.Error(t, i.SetActiveStep(2))
}

func TestInstance_ExecuteRequiresInputs(t *testing.T) {
	invoker := &countingInvoker{}
	i := newResearchInstance(t, invoker, 0)

	result := i.ExecuteCurrentStep(context.Background())
	assert.False(t, result.Success)
	assert.True(t, api.IsMissingInputs(result.Error))
	assert.Equal(t, 0, invoker.calls)
}

func TestInstance_FailedExecution(t *testing.T) {
	invoker := &countingInvoker{err: errors.New("backend down")}
	i := newResearchInstance(t, invoker, 0)
	require.NoError(t, i.Store().SetValue("question", "q"))

	result := i.ExecuteCurrentStep(context.Background())
	assert.False(t, result.Success)
	assert.True(t, api.IsToolInvocationFailed(result.Error))
	assert.False(t, i.StepExecuted())
	assert.False(t, i.IsExecuting())
	assert.False(t, i.Store().Has("answers"))
}

func TestInstance_InputStepIsNotExecutable(t *testing.T) {
	i := newResearchInstance(t, &countingInvoker{}, 0)
	require.NoError(t, i.SetMode(ModeRun))

	result := i.ExecuteCurrentStep(context.Background())
	assert.True(t, api.IsNotExecutable(result.Error))
}

type blockingInvoker struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingInvoker) Execute(ctx context.Context, _ *api.Tool, _ map[string]any) (map[string]any, error) {
	close(b.started)
	select {
	case <-b.release:
		return map[string]any{"results": []any{"x"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestInstance_RejectsConcurrentExecution(t *testing.T) {
	invoker := &blockingInvoker{started: make(chan struct{}), release: make(chan struct{})}
	i := newResearchInstance(t, invoker, 0)
	require.NoError(t, i.Store().SetValue("question", "q"))

	done := make(chan engine.ExecutionResult)
	go func() {
		done <- i.ExecuteCurrentStep(context.Background())
	}()

	select {
	case <-invoker.started:
	case <-time.After(5 * time.Second):
		t.Fatal("tool was not invoked")
	}
	assert.True(t, i.IsExecuting())

	second := i.ExecuteCurrentStep(context.Background())
	assert.ErrorIs(t, second.Error, api.ErrExecutionInProgress)

	_, err := i.AddStep(api.Step{ID: "late", Type: api.StepTypeAction})
	assert.ErrorIs(t, err, api.ErrExecutionInProgress)
	_, err = i.MoveToNextStep()
	assert.ErrorIs(t, err, api.ErrExecutionInProgress)
	assert.ErrorIs(t, i.ResetWorkflow(), api.ErrExecutionInProgress)

	close(invoker.release)
	first := <-done
	assert.True(t, first.Success, first.Message())
	assert.False(t, i.IsExecuting())
}

func TestInstance_CancelledExecution(t *testing.T) {
	invoker := &blockingInvoker{started: make(chan struct{}), release: make(chan struct{})}
	i := newResearchInstance(t, invoker, 0)
	require.NoError(t, i.Store().SetValue("question", "q"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-invoker.started
		cancel()
	}()

	result := i.ExecuteCurrentStep(ctx)
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Error, context.Canceled)
	assert.False(t, i.Store().Has("answers"))
}

func TestInstance_Editing(t *testing.T) {
	i := NewInstance("draft", engine.New(newTestCatalog(), &countingInvoker{}, nil))
	assert.False(t, i.IsDirty())

	id, err := i.AddStep(api.Step{Label: "Search"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, i.IsDirty())

	_, err = i.AddStep(api.Step{ID: "second", Type: api.StepTypeAction})
	require.NoError(t, err)
	_, err = i.AddStep(api.Step{ID: "second"})
	assert.Error(t, err)
	_, err = i.AddStep(api.Step{ID: InputStepID})
	assert.Error(t, err)

	require.NoError(t, i.MoveStep("second", 0))
	steps := i.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "second", steps[0].ID)
	assert.Equal(t, 0, steps[0].SequenceNumber)
	assert.Equal(t, id, steps[1].ID)
	assert.Equal(t, api.StepTypeAction, steps[1].Type)
	assert.Equal(t, 1, steps[1].SequenceNumber)

	updated := steps[1]
	updated.Tool = "search"
	require.NoError(t, i.UpdateStep(updated))
	assert.Equal(t, "search", i.Steps()[1].Tool)

	require.NoError(t, i.RemoveStep("second"))
	assert.True(t, api.IsNotFound(i.RemoveStep("second")))
	assert.Len(t, i.Steps(), 1)

	require.NoError(t, i.DeclareVariable(api.VariableDefinition{Name: "topic", Role: api.RoleInput, Schema: schema.String()}))
	assert.True(t, i.IsInputRequired())
	require.NoError(t, i.RemoveVariable("topic"))
	assert.True(t, api.IsUnknownVariable(i.RemoveVariable("topic")))

	i.MarkSaved()
	assert.False(t, i.IsDirty())
}

func TestInstance_ValidateReportsDanglingMapping(t *testing.T) {
	i := newResearchInstance(t, &countingInvoker{}, 0)
	assert.Empty(t, i.CanExecuteCurrentStep())

	require.NoError(t, i.RemoveVariable("question"))
	blocking := i.CanExecuteCurrentStep()
	require.NotEmpty(t, blocking)
	assert.True(t, api.IsDanglingMapping(blocking[0]))
	assert.NotEmpty(t, i.Validate().Blocking())
}

func TestInstance_ModeWithoutInputs(t *testing.T) {
	wf := researchWorkflow(0)
	wf.Variables = nil
	wf.Steps[0].ParameterMappings = nil
	i, err := FromWorkflow(wf, engine.New(newTestCatalog(), &countingInvoker{}, nil), variables.NewStore())
	require.NoError(t, err)

	require.NoError(t, i.SetMode(ModeRun))
	assert.Equal(t, 0, i.Offset())
	step, ok := i.CurrentStep()
	require.True(t, ok)
	assert.Equal(t, "search", step.ID)

	assert.Error(t, i.SetMode("preview"))
}

type recordingStorage struct {
	mu      sync.Mutex
	records []api.ExecutionRecord
}

func (r *recordingStorage) Store(_ context.Context, record *api.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *recordingStorage) Get(_ context.Context, id string) (*api.ExecutionRecord, error) {
	return nil, api.NewNotFoundError("execution", id)
}

func (r *recordingStorage) List(_ context.Context, _ *api.ListExecutionsRequest) (*api.ListExecutionsResponse, error) {
	return &api.ListExecutionsResponse{}, nil
}

func (r *recordingStorage) Delete(_ context.Context, _ string) error { return nil }

func TestInstance_TracksExecutions(t *testing.T) {
	storage := &recordingStorage{}
	i := newResearchInstance(t, &countingInvoker{}, 0, WithTracker(NewExecutionTracker(storage)))
	require.NoError(t, i.Store().SetValue("question", "q"))

	require.True(t, i.ExecuteCurrentStep(context.Background()).Success)
	_, err := i.MoveToNextStep()
	require.NoError(t, err)
	require.True(t, i.ExecuteCurrentStep(context.Background()).Success)

	require.Len(t, storage.records, 2)
	assert.Equal(t, "search", storage.records[0].StepID)
	assert.Equal(t, "search", storage.records[0].ToolID)
	assert.Equal(t, "research", storage.records[0].WorkflowName)
	assert.Equal(t, api.ExecutionStatusCompleted, storage.records[0].Status)
	assert.Equal(t, "q", storage.records[0].Parameters["query"])

	assert.Equal(t, "check", storage.records[1].StepID)
	assert.Equal(t, "jump", storage.records[1].Outputs["action"])
	assert.NotEqual(t, storage.records[0].ExecutionID, storage.records[1].ExecutionID)
}
