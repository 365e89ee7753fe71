package engine

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
	"github.com/cliff-rosen/orchestrator-sub003/internal/variables"
)

// ValidationError is one finding of step validation. Advisory findings are
// shown to the user but do not prevent execution.
type ValidationError struct {
	StepID   string
	Err      error
	Advisory bool
}

func (v ValidationError) Error() string {
	if v.StepID == "" {
		return v.Err.Error()
	}
	return fmt.Sprintf("step %s: %v", v.StepID, v.Err)
}

func (v ValidationError) Unwrap() error { return v.Err }

// ValidationErrors is the result of validating a step or a workflow.
type ValidationErrors []ValidationError

// Blocking returns the findings that prevent execution.
func (ve ValidationErrors) Blocking() ValidationErrors {
	var out ValidationErrors
	for _, v := range ve {
		if !v.Advisory {
			out = append(out, v)
		}
	}
	return out
}

// Err joins the blocking findings into one error, or returns nil.
func (ve ValidationErrors) Err() error {
	blocking := ve.Blocking()
	if len(blocking) == 0 {
		return nil
	}
	errs := make([]error, len(blocking))
	for i, v := range blocking {
		errs[i] = v
	}
	return errors.Join(errs...)
}

// binding is a step resolved to its tool descriptors.
type binding struct {
	tool      *api.Tool
	template  *api.PromptTemplate
	signature api.Signature
}

// Bind resolves the step's tool and prompt template in the catalog and stores
// the descriptors on the step. Steps without a tool are left unbound. When the
// prompt template cannot be found the tool stays bound and the error is
// returned.
func (e *Engine) Bind(step *api.Step) error {
	step.BoundTool, step.BoundTemplate = nil, nil
	if step.Type != api.StepTypeAction || step.Tool == "" {
		return nil
	}
	tool, err := e.catalog.GetTool(step.Tool)
	if err != nil {
		return err
	}
	step.BoundTool = tool
	if !tool.IsLLM() || step.PromptTemplateID == "" {
		return nil
	}
	tmpl, err := e.catalog.GetPromptTemplate(step.PromptTemplateID)
	if err != nil {
		return err
	}
	step.BoundTemplate = tmpl
	return nil
}

// Validate checks a step against the store. Bound steps are checked against
// their bound descriptors, unbound steps against the catalog. It never
// mutates state. Errors are ordered: tool binding problems first, then
// parameter mappings, output mappings and evaluation conditions, each sorted
// by name.
func (e *Engine) Validate(step *api.Step, store *variables.Store) ValidationErrors {
	errs, _ := e.validate(step, store, true)
	return errs
}

// CheckExecutable returns the findings that keep ExecuteStep from running the
// step. Unlike Validate it does not consult the catalog, so an unbound action
// step is reported as api.NotBoundError.
func (e *Engine) CheckExecutable(step *api.Step, store *variables.Store) ValidationErrors {
	errs, _ := e.validate(step, store, false)
	return errs.Blocking()
}

// descriptors returns the tool and prompt template of step. The bound
// descriptors are used when they match the selected ids; otherwise the
// catalog is consulted if lookup is set.
func (e *Engine) descriptors(step *api.Step, lookup bool) (*api.Tool, *api.PromptTemplate, error) {
	tool := step.BoundTool
	if tool == nil || tool.ID != step.Tool {
		if !lookup {
			return nil, nil, &api.NotBoundError{StepID: step.ID, ToolID: step.Tool}
		}
		var err error
		if tool, err = e.catalog.GetTool(step.Tool); err != nil {
			return nil, nil, err
		}
	}
	if !tool.IsLLM() || step.PromptTemplateID == "" {
		return tool, nil, nil
	}

	tmpl := step.BoundTemplate
	if tmpl == nil || tmpl.ID != step.PromptTemplateID {
		if !lookup {
			return nil, nil, &api.NotBoundError{StepID: step.ID, ToolID: step.Tool, TemplateID: step.PromptTemplateID}
		}
		var err error
		if tmpl, err = e.catalog.GetPromptTemplate(step.PromptTemplateID); err != nil {
			return nil, nil, err
		}
	}
	return tool, tmpl, nil
}

func (e *Engine) validate(step *api.Step, store *variables.Store, lookup bool) (ValidationErrors, *binding) {
	var errs ValidationErrors
	add := func(err error, advisory bool) {
		errs = append(errs, ValidationError{StepID: step.ID, Err: err, Advisory: advisory})
	}

	switch step.Type {
	case api.StepTypeInput:
		return nil, nil
	case api.StepTypeEvaluation:
		validateEvaluation(step, store, add)
		return errs, nil
	case api.StepTypeAction:
	default:
		add(fmt.Errorf("unknown step type %q", step.Type), false)
		return errs, nil
	}

	if step.Tool == "" {
		add(&api.MissingToolError{StepID: step.ID}, false)
		return errs, nil
	}
	tool, tmpl, err := e.descriptors(step, lookup)
	if err != nil {
		add(err, false)
		return errs, nil
	}
	if tool.IsLLM() && step.PromptTemplateID == "" {
		add(&api.MissingPromptTemplateError{StepID: step.ID}, false)
		return errs, nil
	}

	b := &binding{tool: tool, template: tmpl}
	b.signature = api.SignatureOf(tool, b.template)

	for _, param := range sortedKeys(step.ParameterMappings) {
		source := step.ParameterMappings[param]
		slot, known := b.signature.Parameter(param)
		if !known {
			add(&api.UnknownSlotError{StepID: step.ID, ToolID: tool.ID, Kind: "parameter", Slot: param}, false)
		}
		base, path := splitSource(source)
		varSchema, ok := store.Schema(base)
		if !ok {
			add(&api.DanglingMappingError{StepID: step.ID, Slot: param, Variable: base}, false)
			continue
		}
		if len(path) > 0 {
			varSchema, ok = varSchema.FieldPath(path)
			if !ok {
				add(&api.DanglingMappingError{StepID: step.ID, Slot: param, Variable: source}, false)
				continue
			}
		}
		if known && slot.Schema != nil && !schema.IsCompatible(slot.Schema, varSchema) {
			add(&api.SchemaMismatchError{
				Variable: source,
				Expected: slot.Schema.String(),
				Reason:   fmt.Sprintf("parameter %s cannot take %s", param, varSchema),
			}, true)
		}
	}

	for _, output := range sortedKeys(step.OutputMappings) {
		target := step.OutputMappings[output]
		slot, known := b.signature.Output(output)
		if !known {
			add(&api.UnknownSlotError{StepID: step.ID, ToolID: tool.ID, Kind: "output", Slot: output}, false)
			continue
		}
		if target == "" {
			add(fmt.Errorf("output %s is mapped to an empty variable name", output), false)
			continue
		}
		varSchema, ok := store.Schema(target)
		if !ok || slot.Schema == nil {
			continue
		}
		if !schema.IsCompatible(varSchema, slot.Schema) {
			add(&api.SchemaMismatchError{
				Variable: target,
				Expected: varSchema.String(),
				Reason:   fmt.Sprintf("output %s produces %s", output, slot.Schema),
			}, true)
		}
	}

	for _, param := range b.signature.Parameters {
		if _, mapped := step.ParameterMappings[param.Name]; param.Required && !mapped {
			add(fmt.Errorf("required parameter %s is not mapped", param.Name), true)
		}
	}

	return errs, b
}

func validateEvaluation(step *api.Step, store *variables.Store, add func(error, bool)) {
	if step.Evaluation == nil {
		return
	}
	for _, cond := range step.Evaluation.Conditions {
		if !knownOperator(cond.Operator) {
			add(fmt.Errorf("condition %s has unknown operator %q", cond.ID, cond.Operator), false)
		}
		base, _ := splitSource(cond.Variable)
		if base == "" {
			add(fmt.Errorf("condition %s has no variable", cond.ID), false)
			continue
		}
		if _, ok := store.Schema(base); !ok {
			add(&api.DanglingMappingError{StepID: step.ID, Slot: cond.ID, Variable: base}, false)
		}
	}
}

// ValidateWorkflow validates every step and the workflow as a whole: at least
// one step, unique step ids and resolvable jump targets. Jump target findings
// are advisory because bad targets degrade to a linear advance at run time.
func (e *Engine) ValidateWorkflow(steps []api.Step, store *variables.Store) ValidationErrors {
	var errs ValidationErrors
	if len(steps) == 0 {
		errs = append(errs, ValidationError{Err: fmt.Errorf("workflow has no steps")})
		return errs
	}

	ids := make(map[string]bool, len(steps))
	for i := range steps {
		step := &steps[i]
		if step.ID == "" {
			errs = append(errs, ValidationError{Err: fmt.Errorf("step at position %d has no id", i)})
		} else if ids[step.ID] {
			errs = append(errs, ValidationError{StepID: step.ID, Err: fmt.Errorf("duplicate step id")})
		}
		ids[step.ID] = true
	}

	produced := producedVariables(steps)
	for i := range steps {
		step := &steps[i]
		for _, finding := range e.Validate(step, store) {
			var dangling *api.DanglingMappingError
			if errors.As(finding.Err, &dangling) && produced[baseName(dangling.Variable)] {
				continue
			}
			errs = append(errs, finding)
		}
		if step.Type != api.StepTypeEvaluation || step.Evaluation == nil {
			continue
		}
		branches := []api.Branch{step.Evaluation.Default}
		for _, cond := range step.Evaluation.Conditions {
			branches = append(branches, cond.Branch)
		}
		for _, br := range branches {
			if err := checkJumpTarget(step.ID, br, ids, len(steps)); err != nil {
				errs = append(errs, ValidationError{StepID: step.ID, Err: err, Advisory: true})
			}
		}
	}
	return errs
}

// producedVariables returns the variables that steps register when they run:
// output mapping targets and evaluation results.
func producedVariables(steps []api.Step) map[string]bool {
	produced := make(map[string]bool)
	for i := range steps {
		for _, target := range steps[i].OutputMappings {
			produced[target] = true
		}
		if steps[i].Type == api.StepTypeEvaluation {
			produced[api.ResultVariable(steps[i].ID)] = true
		}
	}
	return produced
}

func baseName(source string) string {
	base, _ := splitSource(source)
	return base
}

func checkJumpTarget(stepID string, br api.Branch, ids map[string]bool, count int) error {
	switch br.Action {
	case "", api.ActionContinue, api.ActionEnd:
		return nil
	case api.ActionJump:
	default:
		return &api.InvalidJumpTargetError{StepID: stepID, Target: string(br.Action), Reason: "unknown action"}
	}
	if br.TargetStepID != "" {
		if !ids[br.TargetStepID] {
			return &api.InvalidJumpTargetError{StepID: stepID, Target: br.TargetStepID, Reason: "no such step"}
		}
		return nil
	}
	idx, err := strconv.Atoi(br.TargetStepIndex)
	if err != nil {
		return &api.InvalidJumpTargetError{StepID: stepID, Target: br.TargetStepIndex, Reason: "not an integer"}
	}
	if idx < 0 || idx >= count {
		return &api.InvalidJumpTargetError{StepID: stepID, Target: br.TargetStepIndex, Reason: "out of range"}
	}
	return nil
}

// splitSource splits a mapping source "var.field.sub" into the variable name
// and the field path.
func splitSource(source string) (string, []string) {
	parts := strings.Split(source, ".")
	return parts[0], parts[1:]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
