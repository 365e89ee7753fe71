package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
	"github.com/cliff-rosen/orchestrator-sub003/internal/variables"
)

func threeSteps() []api.Step {
	return []api.Step{
		{ID: "improve", Type: api.StepTypeAction},
		{ID: "answer", Type: api.StepTypeAction},
		{ID: "check", Type: api.StepTypeEvaluation},
	}
}

func TestResolveNextIndex(t *testing.T) {
	steps := threeSteps()

	tests := []struct {
		name      string
		active    int
		result    *api.EvaluationResult
		offset    int
		expected  int
		wantError bool
	}{
		{"no result advances", 1, nil, 0, 2, false},
		{"continue advances", 2, &api.EvaluationResult{Action: api.ActionContinue}, 0, 3, false},
		{"jump by index", 2, &api.EvaluationResult{Action: api.ActionJump, TargetStepIndex: "0"}, 0, 0, false},
		{"jump by index with input step", 3, &api.EvaluationResult{Action: api.ActionJump, TargetStepIndex: "0"}, 1, 1, false},
		{"jump by id", 3, &api.EvaluationResult{Action: api.ActionJump, TargetStepID: "answer", TargetStepIndex: "0"}, 1, 2, false},
		{"end", 2, &api.EvaluationResult{Action: api.ActionEnd}, 0, 3, false},
		{"unknown id degrades", 2, &api.EvaluationResult{Action: api.ActionJump, TargetStepID: "nope"}, 0, 3, true},
		{"malformed index degrades", 2, &api.EvaluationResult{Action: api.ActionJump, TargetStepIndex: "first"}, 0, 3, true},
		{"out of range degrades", 2, &api.EvaluationResult{Action: api.ActionJump, TargetStepIndex: "7"}, 0, 3, true},
		{"negative index degrades", 2, &api.EvaluationResult{Action: api.ActionJump, TargetStepIndex: "-1"}, 0, 3, true},
		{"unknown action degrades", 2, &api.EvaluationResult{Action: "loop"}, 0, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := ResolveNextIndex(steps, tt.active, tt.result, tt.offset)
			assert.Equal(t, tt.expected, next)
			if tt.wantError {
				assert.True(t, api.IsInvalidJumpTarget(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNextIndex_ReadsResultVariable(t *testing.T) {
	steps := threeSteps()

	t.Run("jump", func(t *testing.T) {
		store := variables.NewStore()
		require.NoError(t, store.SetSchema("check_result", ResultSchema(), api.RoleOutput))
		require.NoError(t, store.SetValue("check_result", map[string]any{"action": "jump", "target_step_index": "0"}))

		assert.Equal(t, 0, NextIndex(steps, 2, 0, store))
		assert.Equal(t, 1, NextIndex(steps, 3, 1, store))
	})

	t.Run("continue", func(t *testing.T) {
		store := variables.NewStore()
		require.NoError(t, store.SetSchema("check_result", ResultSchema(), api.RoleOutput))
		require.NoError(t, store.SetValue("check_result", map[string]any{"action": "continue"}))

		assert.Equal(t, 3, NextIndex(steps, 2, 0, store))
	})

	t.Run("malformed result", func(t *testing.T) {
		store := variables.NewStore()
		require.NoError(t, store.SetSchema("check_result", schema.String(), api.RoleOutput))
		require.NoError(t, store.SetValue("check_result", "jump"))

		assert.Equal(t, 3, NextIndex(steps, 2, 0, store))
	})

	t.Run("missing result", func(t *testing.T) {
		assert.Equal(t, 3, NextIndex(steps, 2, 0, variables.NewStore()))
	})

	t.Run("action step", func(t *testing.T) {
		assert.Equal(t, 1, NextIndex(steps, 0, 0, variables.NewStore()))
	})
}

func TestEvaluateStep(t *testing.T) {
	e := New(newCatalog(), &fakeInvoker{}, nil)

	step := &api.Step{
		ID:   "check",
		Type: api.StepTypeEvaluation,
		Evaluation: &api.EvaluationConfig{
			Conditions: []api.Condition{
				{ID: "low", Variable: "review.score", Operator: api.OperatorLessThan, Value: 5,
					Branch: api.Branch{Action: api.ActionJump, TargetStepIndex: "0"}},
				{ID: "done", Variable: "review.verdict", Operator: api.OperatorEquals, Value: "ok",
					Branch: api.Branch{Action: api.ActionEnd}},
			},
		},
	}

	newStore := func(score float64, verdict string) *variables.Store {
		store := variables.NewStore()
		require.NoError(t, store.SetSchema("review", schema.Object(
			schema.NewField("score", schema.Number()),
			schema.NewField("verdict", schema.String()),
		), api.RoleOutput))
		require.NoError(t, store.SetValue("review", map[string]any{"score": score, "verdict": verdict}))
		return store
	}

	t.Run("first matching condition wins", func(t *testing.T) {
		store := newStore(2, "ok")
		res, err := e.EvaluateStep(step, store, 0)
		require.NoError(t, err)
		assert.Equal(t, api.EvaluationResult{Action: api.ActionJump, TargetStepIndex: "0", ConditionID: "low"}, res)

		v, ok := store.Get("check_result")
		require.True(t, ok)
		assert.Equal(t, api.RoleOutput, v.Role)
		back, ok := api.EvaluationResultFromValue(v.Value)
		require.True(t, ok)
		assert.Equal(t, res, back)
	})

	t.Run("second condition", func(t *testing.T) {
		res, err := e.EvaluateStep(step, newStore(8, "ok"), 0)
		require.NoError(t, err)
		assert.Equal(t, api.ActionEnd, res.Action)
		assert.Equal(t, "done", res.ConditionID)
	})

	t.Run("default continues", func(t *testing.T) {
		res, err := e.EvaluateStep(step, newStore(8, "retry"), 0)
		require.NoError(t, err)
		assert.Equal(t, api.ActionContinue, res.Action)
		assert.Empty(t, res.ConditionID)
	})

	t.Run("jump limit", func(t *testing.T) {
		limited := step.Clone()
		limited.Evaluation.MaximumJumps = 2

		res, err := e.EvaluateStep(limited, newStore(2, "ok"), 1)
		require.NoError(t, err)
		assert.Equal(t, api.ActionJump, res.Action)

		res, err = e.EvaluateStep(limited, newStore(2, "ok"), 2)
		require.NoError(t, err)
		assert.Equal(t, api.ActionContinue, res.Action)
	})

	t.Run("strict store accepts result", func(t *testing.T) {
		store := variables.NewStore(variables.WithStrict(true))
		_, err := e.EvaluateStep(&api.Step{ID: "plain", Type: api.StepTypeEvaluation}, store, 0)
		require.NoError(t, err)
		_, ok := store.GetValue("plain_result")
		assert.True(t, ok)
	})

	t.Run("not an evaluation step", func(t *testing.T) {
		_, err := e.EvaluateStep(&api.Step{ID: "a", Type: api.StepTypeAction}, variables.NewStore(), 0)
		assert.True(t, api.IsNotExecutable(err))
	})
}

func TestConditionHolds(t *testing.T) {
	tests := []struct {
		name     string
		op       api.Operator
		actual   any
		present  bool
		expected any
		holds    bool
	}{
		{"exists", api.OperatorExists, "x", true, nil, true},
		{"exists unset", api.OperatorExists, nil, false, nil, false},
		{"not exists", api.OperatorNotExists, nil, false, nil, true},
		{"equals number kinds", api.OperatorEquals, 3.0, true, 3, true},
		{"equals string", api.OperatorEquals, "yes", true, "yes", true},
		{"equals numeric string", api.OperatorEquals, "3", true, 3, true},
		{"not equals", api.OperatorNotEquals, "a", true, "b", true},
		{"greater", api.OperatorGreaterThan, 10.0, true, 2, true},
		{"less", api.OperatorLessThan, 1.0, true, 2, true},
		{"less strings", api.OperatorLessThan, "a", true, "b", true},
		{"incomparable", api.OperatorGreaterThan, true, true, 1, false},
		{"contains substring", api.OperatorContains, "hello world", true, "world", true},
		{"contains element", api.OperatorContains, []any{"a", "b"}, true, "b", true},
		{"contains key", api.OperatorContains, map[string]any{"k": 1}, true, "k", true},
		{"unset equals", api.OperatorEquals, nil, false, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.holds, conditionHolds(tt.op, tt.actual, tt.present, tt.expected))
		})
	}
}
