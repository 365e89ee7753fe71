package engine

import (
	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
	"github.com/cliff-rosen/orchestrator-sub003/internal/variables"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// resultSchema is the schema of an evaluation step's result variable.
var resultSchema = schema.Object(
	schema.NewField("action", schema.String()),
	schema.NewField("target_step_index", schema.String()),
	schema.NewField("target_step_id", schema.String()),
	schema.NewField("condition_id", schema.String()),
)

// ResultSchema returns the schema of evaluation result variables.
func ResultSchema() *schema.Schema {
	return resultSchema.Clone()
}

// EvaluateStep evaluates the conditions of an evaluation step in order and
// writes the selected branch to the step's result variable, registering it
// as an output variable when needed. jumpsTaken is the number of jumps this
// step has already made in the current run; once MaximumJumps is reached a
// jump degrades to continue.
func (e *Engine) EvaluateStep(step *api.Step, store *variables.Store, jumpsTaken int) (api.EvaluationResult, error) {
	if step.Type != api.StepTypeEvaluation {
		return api.EvaluationResult{}, &api.NotExecutableError{StepID: step.ID, Type: step.Type}
	}

	result := api.EvaluationResult{Action: api.ActionContinue}
	if cfg := step.Evaluation; cfg != nil {
		branch := cfg.Default
		for _, cond := range cfg.Conditions {
			actual, present := lookupVariable(store, cond.Variable)
			if conditionHolds(cond.Operator, actual, present, cond.Value) {
				logging.Debug("Engine", "Condition %s of step %s holds", cond.ID, step.ID)
				branch = cond.Branch
				result.ConditionID = cond.ID
				break
			}
		}
		if branch.Action != "" {
			result.Action = branch.Action
		}
		result.TargetStepID = branch.TargetStepID
		result.TargetStepIndex = branch.TargetStepIndex

		if result.Action == api.ActionJump && cfg.MaximumJumps > 0 && jumpsTaken >= cfg.MaximumJumps {
			logging.Info("Engine", "Step %s reached its jump limit of %d, continuing", step.ID, cfg.MaximumJumps)
			result = api.EvaluationResult{Action: api.ActionContinue, ConditionID: result.ConditionID}
		}
	}

	name := api.ResultVariable(step.ID)
	if current, ok := store.Schema(name); !ok || !schema.IsCompatible(current, resultSchema) {
		if err := store.SetSchema(name, resultSchema, api.RoleOutput); err != nil {
			return result, err
		}
	}
	if err := store.SetValue(name, result.AsMap()); err != nil {
		return result, err
	}

	e.eventCallback.GenerateStepEvent(step.ID, EventStepEvaluated, map[string]interface{}{
		"action":    string(result.Action),
		"condition": result.ConditionID,
	})
	return result, nil
}

func lookupVariable(store *variables.Store, source string) (any, bool) {
	base, path := splitSource(source)
	value, ok := store.GetValue(base)
	if !ok {
		return nil, false
	}
	if len(path) == 0 {
		return value, true
	}
	return schema.Lookup(value, path)
}
