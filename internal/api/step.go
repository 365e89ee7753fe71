package api

// StepType is the kind of a workflow step.
type StepType string

const (
	// StepTypeInput collects values for input variables from the user.
	StepTypeInput StepType = "INPUT"

	// StepTypeAction invokes a tool.
	StepTypeAction StepType = "ACTION"

	// StepTypeEvaluation decides where the run continues.
	StepTypeEvaluation StepType = "EVALUATION"
)

// Step is one node of a workflow.
//
// ParameterMappings map tool parameter names to variable names; a source may
// address a nested field with dots ("answer.text"). OutputMappings map tool
// output names to variable names.
type Step struct {
	// ID is unique within the workflow
	ID string `yaml:"id" json:"id"`

	Type StepType `yaml:"type" json:"type"`

	Label       string `yaml:"label,omitempty" json:"label,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// SequenceNumber is the zero-based position of the step in the workflow.
	// It is recomputed whenever steps are added, removed or moved.
	SequenceNumber int `yaml:"sequence_number" json:"sequence_number"`

	// Tool is the id of the bound tool for action steps
	Tool string `yaml:"tool,omitempty" json:"tool,omitempty"`

	// PromptTemplateID selects the prompt template for language-model tools
	PromptTemplateID string `yaml:"prompt_template,omitempty" json:"prompt_template,omitempty"`

	ParameterMappings map[string]string `yaml:"parameter_mappings,omitempty" json:"parameter_mappings,omitempty"`
	OutputMappings    map[string]string `yaml:"output_mappings,omitempty" json:"output_mappings,omitempty"`

	// Evaluation configures evaluation steps
	Evaluation *EvaluationConfig `yaml:"evaluation,omitempty" json:"evaluation,omitempty"`

	// BoundTool and BoundTemplate are the catalog descriptors resolved when
	// the tool was bound to the step. Execution uses them as they are, so a
	// later catalog change does not affect a bound step. They are shared
	// between clones and never modified.
	BoundTool     *Tool           `yaml:"-" json:"-"`
	BoundTemplate *PromptTemplate `yaml:"-" json:"-"`
}

// DisplayName returns the label, falling back to the id.
func (s *Step) DisplayName() string {
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}

// Unbound returns a copy of the step without bound descriptors.
func (s *Step) Unbound() *Step {
	out := s.Clone()
	if out != nil {
		out.BoundTool, out.BoundTemplate = nil, nil
	}
	return out
}

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	out := *s
	out.ParameterMappings = cloneStringMap(s.ParameterMappings)
	out.OutputMappings = cloneStringMap(s.OutputMappings)
	if s.Evaluation != nil {
		eval := *s.Evaluation
		eval.Conditions = append([]Condition(nil), s.Evaluation.Conditions...)
		out.Evaluation = &eval
	}
	return &out
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ResultVariable is the name of the variable an evaluation step writes its
// outcome to.
func ResultVariable(stepID string) string {
	return stepID + "_result"
}

// Operator compares a variable against a condition value.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorContains    Operator = "contains"
	OperatorExists      Operator = "exists"
	OperatorNotExists   Operator = "not_exists"
)

// BranchAction is what happens after an evaluation step.
type BranchAction string

const (
	ActionContinue BranchAction = "continue"
	ActionJump     BranchAction = "jump"
	ActionEnd      BranchAction = "end"
)

// Branch is the outcome of an evaluation. For jumps either TargetStepID or
// TargetStepIndex names the destination; the index is a decimal string
// relative to the persisted step list.
type Branch struct {
	Action          BranchAction `yaml:"action" json:"action"`
	TargetStepID    string       `yaml:"target_step_id,omitempty" json:"target_step_id,omitempty"`
	TargetStepIndex string       `yaml:"target_step_index,omitempty" json:"target_step_index,omitempty"`
}

// Condition is one test of an evaluation step. Conditions are checked in
// order and the first one that holds selects its branch.
type Condition struct {
	ID       string   `yaml:"id" json:"id"`
	Variable string   `yaml:"variable" json:"variable"`
	Operator Operator `yaml:"operator" json:"operator"`
	Value    any      `yaml:"value,omitempty" json:"value,omitempty"`
	Branch   Branch   `yaml:"branch" json:"branch"`
}

// EvaluationConfig configures an evaluation step.
type EvaluationConfig struct {
	Conditions []Condition `yaml:"conditions" json:"conditions"`

	// Default is taken when no condition holds. The zero value continues.
	Default Branch `yaml:"default,omitempty" json:"default,omitempty"`

	// MaximumJumps bounds how often this step may jump during one run.
	// Zero means unbounded.
	MaximumJumps int `yaml:"maximum_jumps,omitempty" json:"maximum_jumps,omitempty"`
}

// EvaluationResult is the value written to an evaluation step's result
// variable.
type EvaluationResult struct {
	Action          BranchAction `json:"action"`
	TargetStepID    string       `json:"target_step_id,omitempty"`
	TargetStepIndex string       `json:"target_step_index,omitempty"`
	ConditionID     string       `json:"condition_id,omitempty"`
}

// AsMap converts the result to the generic value stored in the variable store.
func (r EvaluationResult) AsMap() map[string]any {
	return map[string]any{
		"action":            string(r.Action),
		"target_step_id":    r.TargetStepID,
		"target_step_index": r.TargetStepIndex,
		"condition_id":      r.ConditionID,
	}
}

// EvaluationResultFromValue reads an evaluation result back from a stored value.
func EvaluationResultFromValue(v any) (EvaluationResult, bool) {
	switch r := v.(type) {
	case EvaluationResult:
		return r, true
	case *EvaluationResult:
		if r == nil {
			return EvaluationResult{}, false
		}
		return *r, true
	case map[string]any:
		action, ok := r["action"].(string)
		if !ok {
			return EvaluationResult{}, false
		}
		res := EvaluationResult{Action: BranchAction(action)}
		res.TargetStepID, _ = r["target_step_id"].(string)
		res.TargetStepIndex, _ = r["target_step_index"].(string)
		res.ConditionID, _ = r["condition_id"].(string)
		return res, true
	}
	return EvaluationResult{}, false
}
