// Package workflow provides workflow instances, their definitions and the
// records of their executions.
//
// # Workflow Definition Structure
//
// Workflows are defined in YAML with declared variables and ordered steps:
//
//	name: research
//	description: Improve a question, search for it and answer
//	variables:
//	- name: question
//	  role: input
//	  schema: {type: string}
//	- name: improved
//	  role: intermediate
//	  schema: {type: string}
//	steps:
//	- id: improve
//	  type: ACTION
//	  tool: llm
//	  prompt_template: question-improver
//	  parameter_mappings: {question: question}
//	  output_mappings: {response: improved}
//	- id: search
//	  type: ACTION
//	  tool: search
//	  parameter_mappings: {query: improved}
//	  output_mappings: {results: answers}
//	- id: check
//	  type: EVALUATION
//	  evaluation:
//	    conditions:
//	    - id: empty
//	      variable: answers
//	      operator: not_exists
//	      branch: {action: jump, target_step_id: improve}
//	    default: {action: continue}
//	    maximum_jumps: 2
//
// Output mapping targets that are not declared are registered when the step
// first runs, with the schema of the tool's output.
//
// # Instances
//
// An Instance holds the steps, the variable store and the run position of one
// workflow. In edit mode steps are numbered from zero. In run mode an input
// step is placed first when the workflow has input variables, shifting every
// step by one; jump targets given as edit-mode indices are shifted the same
// way.
//
// The operations driven by a user interface are ExecuteCurrentStep,
// MoveToNextStep, MoveToPreviousStep, ResetWorkflow, SetActiveStep and
// SetMode. Only one execution runs at a time; calls made while a tool is
// running fail with api.ErrExecutionInProgress.
//
// # Storage
//
// WorkflowManager loads definitions from the workflows directory of the
// configuration directory and implements api.WorkflowStorage on top of
// config.Storage. ExecutionTracker records every step execution through an
// api.ExecutionStorage; ExecutionStorageImpl keeps one file per record in the
// workflow_executions directory.
package workflow
