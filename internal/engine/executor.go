package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
	"github.com/cliff-rosen/orchestrator-sub003/internal/variables"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// ExecutionResult is the outcome of executing one action step.
type ExecutionResult struct {
	Success bool
	Error   error

	StepID string
	ToolID string

	// Parameters are the resolved tool parameters. File content is included
	// as fetched.
	Parameters map[string]any

	// Outputs are the raw tool outputs.
	Outputs map[string]any

	// Registered lists the variables auto-registered from output mappings.
	Registered []string

	StartedAt time.Time
	Duration  time.Duration
}

// Message returns a human-readable summary of the result.
func (r ExecutionResult) Message() string {
	if r.Success {
		return fmt.Sprintf("step %s completed", r.StepID)
	}
	if r.Error == nil {
		return fmt.Sprintf("step %s failed", r.StepID)
	}
	return r.Error.Error()
}

// Engine executes and evaluates workflow steps against a variable store.
// It holds no per-workflow state and may be shared by several instances;
// each instance serializes its own calls.
type Engine struct {
	catalog       api.ToolCatalog
	invoker       api.ToolInvoker
	fetcher       api.FileContentFetcher
	eventCallback EventCallback
	toolTimeout   time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithEventCallback sets the receiver of step events.
func WithEventCallback(cb EventCallback) Option {
	return func(e *Engine) {
		if cb != nil {
			e.eventCallback = cb
		}
	}
}

// WithToolTimeout bounds tool invocations whose context has no deadline.
func WithToolTimeout(d time.Duration) Option {
	return func(e *Engine) { e.toolTimeout = d }
}

// New creates an engine. The fetcher may be nil when no workflow uses file
// variables.
func New(catalog api.ToolCatalog, invoker api.ToolInvoker, fetcher api.FileContentFetcher, opts ...Option) *Engine {
	e := &Engine{
		catalog:       catalog,
		invoker:       invoker,
		fetcher:       fetcher,
		eventCallback: &NoOpEventCallback{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the catalog the engine binds steps and validates with.
func (e *Engine) Catalog() api.ToolCatalog {
	return e.catalog
}

// ExecuteStep executes an action step bound with Bind: it resolves parameters
// from the store, invokes the bound tool and writes the mapped outputs back.
// The catalog is not consulted. On any failure the variable values are
// restored to their state before the call; file content fetched along the
// way stays cached.
func (e *Engine) ExecuteStep(ctx context.Context, step *api.Step, store *variables.Store) ExecutionResult {
	result := ExecutionResult{StepID: step.ID, ToolID: step.Tool, StartedAt: time.Now()}
	fail := func(err error) ExecutionResult {
		result.Error = err
		result.Duration = time.Since(result.StartedAt)
		logging.Warn("Engine", "Step %s failed: %v", step.ID, err)
		e.eventCallback.GenerateStepEvent(step.ID, EventStepFailed, map[string]interface{}{"error": err.Error()})
		return result
	}

	if step.Type != api.StepTypeAction {
		return fail(&api.NotExecutableError{StepID: step.ID, Type: step.Type})
	}

	errs, b := e.validate(step, store, false)
	if err := errs.Err(); err != nil {
		return fail(err)
	}

	logging.Debug("Engine", "Executing step %s with tool %s", step.ID, b.tool.ID)
	e.eventCallback.GenerateStepEvent(step.ID, EventStepStarted, map[string]interface{}{"tool": b.tool.ID})

	snapshot := store.Snapshot()
	var fetched map[string]string
	rollback := func() {
		store.Restore(snapshot)
		for id, content := range fetched {
			store.CacheFileContent(id, content)
		}
	}

	params, fetched, err := e.resolveParameters(ctx, step, store)
	if err != nil {
		rollback()
		return fail(err)
	}
	if b.tool.IsLLM() {
		params[api.TemplateIDParameter] = step.PromptTemplateID
	}
	result.Parameters = params

	callCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && e.toolTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.toolTimeout)
		defer cancel()
	}

	e.eventCallback.GenerateStepEvent(step.ID, EventToolInvoked, map[string]interface{}{"tool": b.tool.ID, "parameters": len(params)})
	outputs, err := e.invoker.Execute(callCtx, b.tool, params)
	if err != nil {
		rollback()
		if !api.IsToolInvocationFailed(err) {
			err = &api.ToolInvocationError{ToolID: b.tool.ID, Err: err}
		}
		return fail(err)
	}
	result.Outputs = outputs

	registered, err := e.registerOutputs(step, b.signature, outputs, store)
	if err != nil {
		rollback()
		return fail(err)
	}
	result.Registered = registered
	if len(registered) > 0 {
		e.eventCallback.GenerateStepEvent(step.ID, EventOutputsRegistered, map[string]interface{}{"variables": registered})
	}

	if err := e.writeOutputs(step, outputs, store); err != nil {
		rollback()
		return fail(err)
	}

	result.Success = true
	result.Duration = time.Since(result.StartedAt)
	logging.Info("Engine", "Step %s completed in %s", step.ID, result.Duration)
	e.eventCallback.GenerateStepEvent(step.ID, EventStepCompleted, map[string]interface{}{"outputs": len(outputs)})
	return result
}

// resolveParameters builds the tool parameters from the parameter mappings.
// Unset variables are left out. File handles are replaced by their content,
// which is fetched once and cached on the store. The returned map lists the
// content fetched by this call.
func (e *Engine) resolveParameters(ctx context.Context, step *api.Step, store *variables.Store) (map[string]any, map[string]string, error) {
	params := make(map[string]any, len(step.ParameterMappings)+1)
	fetched := make(map[string]string)

	for _, param := range sortedKeys(step.ParameterMappings) {
		source := step.ParameterMappings[param]
		base, path := splitSource(source)

		value, ok := store.GetValue(base)
		if !ok {
			logging.Debug("Engine", "Parameter %s of step %s: variable %s has no value", param, step.ID, base)
			continue
		}
		varSchema, ok := store.Schema(base)
		if !ok {
			return nil, fetched, &api.DanglingMappingError{StepID: step.ID, Slot: param, Variable: base}
		}
		if len(path) > 0 {
			if value, ok = schema.Lookup(value, path); !ok {
				logging.Debug("Engine", "Parameter %s of step %s: %s has no value", param, step.ID, source)
				continue
			}
			if varSchema, ok = varSchema.FieldPath(path); !ok {
				return nil, fetched, &api.DanglingMappingError{StepID: step.ID, Slot: param, Variable: source}
			}
		}

		if varSchema.Type == schema.TypeFile {
			content, err := e.fileContent(ctx, step.ID, value, store, fetched)
			if err != nil {
				return nil, fetched, err
			}
			value = content
		}
		params[param] = value
	}
	return params, fetched, nil
}

func (e *Engine) fileContent(ctx context.Context, stepID string, value any, store *variables.Store, fetched map[string]string) (string, error) {
	fv, ok := schema.AsFileValue(value)
	if !ok {
		return "", &api.FileContentFetchError{Err: fmt.Errorf("value is not a file handle")}
	}
	if fv.HasContent() {
		return *fv.Content, nil
	}
	if content, ok := store.FileContent(fv.FileID); ok {
		return content, nil
	}
	if e.fetcher == nil {
		return "", &api.FileContentFetchError{FileID: fv.FileID, Err: fmt.Errorf("no file content fetcher configured")}
	}

	content, err := e.fetcher.GetContent(ctx, fv.FileID)
	if err != nil {
		return "", &api.FileContentFetchError{FileID: fv.FileID, Err: err}
	}
	store.CacheFileContent(fv.FileID, content)
	fetched[fv.FileID] = content

	logging.Debug("Engine", "Fetched content of file %s (%d bytes)", fv.FileID, len(content))
	e.eventCallback.GenerateStepEvent(stepID, EventFileFetched, map[string]interface{}{"file_id": fv.FileID})
	return content, nil
}

// registerOutputs registers every unknown output mapping target as an output
// variable before any value is written. The schema comes from the tool's
// output slot, or is inferred from the returned value.
func (e *Engine) registerOutputs(step *api.Step, sig api.Signature, outputs map[string]any, store *variables.Store) ([]string, error) {
	var registered []string
	for _, output := range sortedKeys(step.OutputMappings) {
		target := step.OutputMappings[output]
		if store.Has(target) {
			continue
		}

		var sch *schema.Schema
		if slot, ok := sig.Output(output); ok && slot.Schema != nil {
			sch = slot.Schema
		} else if inferred := schema.Infer(outputs[output]); inferred != nil {
			sch = inferred
		} else {
			sch = schema.String()
		}

		if err := store.SetSchema(target, sch, api.RoleOutput); err != nil {
			return registered, fmt.Errorf("register output %s: %w", target, err)
		}
		logging.Debug("Engine", "Registered output variable %s as %s", target, sch)
		registered = append(registered, target)
	}
	return registered, nil
}

// writeOutputs writes the returned outputs into their mapped variables.
// Outputs the tool did not return leave the variable untouched.
func (e *Engine) writeOutputs(step *api.Step, outputs map[string]any, store *variables.Store) error {
	for _, output := range sortedKeys(step.OutputMappings) {
		value, ok := outputs[output]
		if !ok {
			logging.Warn("Engine", "Tool %s returned no output %s for step %s", step.Tool, output, step.ID)
			continue
		}
		if err := store.SetValue(step.OutputMappings[output], value); err != nil {
			return err
		}
	}
	return nil
}
