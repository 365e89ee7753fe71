package engine

import (
	"strconv"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/variables"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// ResolveNextIndex computes the run-mode index that follows active. steps is
// the edit-mode step list and offset the number of synthetic steps placed
// before it in run mode.
//
// Without a result, or for continue, the next index is active+1. A jump goes
// to TargetStepID when set, otherwise to the edit-mode TargetStepIndex plus
// offset. end returns the index past the last step. A target that cannot be
// resolved degrades to active+1; the returned InvalidJumpTargetError is
// informational only.
func ResolveNextIndex(steps []api.Step, active int, result *api.EvaluationResult, offset int) (int, error) {
	if result == nil {
		return active + 1, nil
	}

	var stepID string
	if i := active - offset; i >= 0 && i < len(steps) {
		stepID = steps[i].ID
	}

	switch result.Action {
	case api.ActionContinue, "":
		return active + 1, nil
	case api.ActionEnd:
		return len(steps) + offset, nil
	case api.ActionJump:
	default:
		return active + 1, &api.InvalidJumpTargetError{StepID: stepID, Target: string(result.Action), Reason: "unknown action"}
	}

	if result.TargetStepID != "" {
		for i := range steps {
			if steps[i].ID == result.TargetStepID {
				return i + offset, nil
			}
		}
		return active + 1, &api.InvalidJumpTargetError{StepID: stepID, Target: result.TargetStepID, Reason: "no such step"}
	}

	idx, err := strconv.Atoi(result.TargetStepIndex)
	if err != nil {
		return active + 1, &api.InvalidJumpTargetError{StepID: stepID, Target: result.TargetStepIndex, Reason: "not an integer"}
	}
	if idx < 0 || idx >= len(steps) {
		return active + 1, &api.InvalidJumpTargetError{StepID: stepID, Target: result.TargetStepIndex, Reason: "out of range"}
	}
	return idx + offset, nil
}

// NextIndex computes the index following active. For evaluation steps the
// step's result variable decides; a missing or malformed result degrades to
// a linear advance and is logged.
func NextIndex(steps []api.Step, active, offset int, store *variables.Store) int {
	i := active - offset
	if i < 0 || i >= len(steps) || steps[i].Type != api.StepTypeEvaluation {
		return active + 1
	}

	step := &steps[i]
	value, ok := store.GetValue(api.ResultVariable(step.ID))
	if !ok {
		logging.Warn("Engine", "Evaluation step %s has no result, continuing", step.ID)
		return active + 1
	}
	result, ok := api.EvaluationResultFromValue(value)
	if !ok {
		logging.Warn("Engine", "Evaluation step %s has a malformed result, continuing", step.ID)
		return active + 1
	}

	next, err := ResolveNextIndex(steps, active, &result, offset)
	if err != nil {
		logging.Warn("Engine", "%v, continuing", err)
	}
	return next
}
