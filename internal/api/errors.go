package api

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents a resource not found error with contextual information.
// It is returned by catalogs and storages when a tool, prompt template, workflow
// or execution record does not exist.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g., "tool", "template", "workflow", "execution")
	ResourceType string

	// ResourceName is the specific identifier of the resource that was not found
	ResourceName string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// NewNotFoundError creates a new NotFoundError with the specified resource type and name.
//
// Example:
//
//	return api.NewNotFoundError("tool", "search")
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{ResourceType: resourceType, ResourceName: resourceName}
}

// IsNotFound checks if an error is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// UnknownVariableError is returned when a value is written to, or a mapping is
// resolved against, a variable that is not registered in the store.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %q", e.Name)
}

// IsUnknownVariable checks if an error is or wraps an UnknownVariableError.
func IsUnknownVariable(err error) bool {
	var target *UnknownVariableError
	return errors.As(err, &target)
}

// SchemaMismatchError reports a value or binding that does not fit a schema.
// Variable names the store entry or mapping involved; Reason carries the
// validator's explanation.
type SchemaMismatchError struct {
	Variable string
	Expected string
	Reason   string
}

func (e *SchemaMismatchError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("variable %q does not match schema %s", e.Variable, e.Expected)
	}
	return fmt.Sprintf("variable %q does not match schema %s: %s", e.Variable, e.Expected, e.Reason)
}

// IsSchemaMismatch checks if an error is or wraps a SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	var target *SchemaMismatchError
	return errors.As(err, &target)
}

// DanglingMappingError is returned when a step mapping refers to a variable
// that is no longer registered.
type DanglingMappingError struct {
	StepID   string
	Slot     string
	Variable string
}

func (e *DanglingMappingError) Error() string {
	return fmt.Sprintf("step %s maps %q to missing variable %q", e.StepID, e.Slot, e.Variable)
}

// IsDanglingMapping checks if an error is or wraps a DanglingMappingError.
func IsDanglingMapping(err error) bool {
	var target *DanglingMappingError
	return errors.As(err, &target)
}

// MissingPromptTemplateError is returned for language-model steps without a
// selected prompt template.
type MissingPromptTemplateError struct {
	StepID string
}

func (e *MissingPromptTemplateError) Error() string {
	return fmt.Sprintf("step %s uses a language model tool but has no prompt template selected", e.StepID)
}

// IsMissingPromptTemplate checks if an error is or wraps a MissingPromptTemplateError.
func IsMissingPromptTemplate(err error) bool {
	var target *MissingPromptTemplateError
	return errors.As(err, &target)
}

// MissingToolError is returned for action steps without a bound tool.
type MissingToolError struct {
	StepID string
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("step %s has no tool selected", e.StepID)
}

// IsMissingTool checks if an error is or wraps a MissingToolError.
func IsMissingTool(err error) bool {
	var target *MissingToolError
	return errors.As(err, &target)
}

// NotBoundError is returned when an action step is executed without a bound
// tool descriptor, or its descriptors no longer match the selected tool or
// prompt template.
type NotBoundError struct {
	StepID     string
	ToolID     string
	TemplateID string
}

func (e *NotBoundError) Error() string {
	if e.TemplateID != "" {
		return fmt.Sprintf("step %s is not bound to tool %s with prompt template %s", e.StepID, e.ToolID, e.TemplateID)
	}
	return fmt.Sprintf("step %s is not bound to tool %s", e.StepID, e.ToolID)
}

// IsNotBound checks if an error is or wraps a NotBoundError.
func IsNotBound(err error) bool {
	var target *NotBoundError
	return errors.As(err, &target)
}

// UnknownSlotError is returned when a mapping key is not part of the bound
// tool's signature. Kind is "parameter" or "output".
type UnknownSlotError struct {
	StepID string
	ToolID string
	Kind   string
	Slot   string
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("step %s maps %s %q which tool %s does not declare", e.StepID, e.Kind, e.Slot, e.ToolID)
}

// IsUnknownSlot checks if an error is or wraps an UnknownSlotError.
func IsUnknownSlot(err error) bool {
	var target *UnknownSlotError
	return errors.As(err, &target)
}

// ToolInvocationError wraps a failure reported by the tool invoker, including
// transport errors and timeouts.
type ToolInvocationError struct {
	ToolID string
	Err    error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.ToolID, e.Err)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }

// IsToolInvocationFailed checks if an error is or wraps a ToolInvocationError.
func IsToolInvocationFailed(err error) bool {
	var target *ToolInvocationError
	return errors.As(err, &target)
}

// FileContentFetchError wraps a failure to fetch a file's content.
type FileContentFetchError struct {
	FileID string
	Err    error
}

func (e *FileContentFetchError) Error() string {
	return fmt.Sprintf("failed to fetch content of file %s: %v", e.FileID, e.Err)
}

func (e *FileContentFetchError) Unwrap() error { return e.Err }

// IsFileContentFetchFailed checks if an error is or wraps a FileContentFetchError.
func IsFileContentFetchFailed(err error) bool {
	var target *FileContentFetchError
	return errors.As(err, &target)
}

// InvalidJumpTargetError describes an evaluation result that could not be
// turned into a step index. It is logged and degraded to a linear advance,
// never surfaced as a failure of the run.
type InvalidJumpTargetError struct {
	StepID string
	Target string
	Reason string
}

func (e *InvalidJumpTargetError) Error() string {
	return fmt.Sprintf("step %s has invalid jump target %q: %s", e.StepID, e.Target, e.Reason)
}

// IsInvalidJumpTarget checks if an error is or wraps an InvalidJumpTargetError.
func IsInvalidJumpTarget(err error) bool {
	var target *InvalidJumpTargetError
	return errors.As(err, &target)
}

// NotExecutableError is returned when execution is requested for a step that
// is not an action step.
type NotExecutableError struct {
	StepID string
	Type   StepType
}

func (e *NotExecutableError) Error() string {
	return fmt.Sprintf("step %s of type %s is not executable", e.StepID, e.Type)
}

// IsNotExecutable checks if an error is or wraps a NotExecutableError.
func IsNotExecutable(err error) bool {
	var target *NotExecutableError
	return errors.As(err, &target)
}

// MissingInputsError is returned when a step is executed or the input step
// is left while required input variables have no value.
type MissingInputsError struct {
	Names []string
}

func (e *MissingInputsError) Error() string {
	return fmt.Sprintf("missing required inputs: %s", strings.Join(e.Names, ", "))
}

// IsMissingInputs checks if an error is or wraps a MissingInputsError.
func IsMissingInputs(err error) bool {
	var target *MissingInputsError
	return errors.As(err, &target)
}

// ErrExecutionInProgress is returned when a workflow instance is asked to
// execute or mutate while a step execution is pending.
var ErrExecutionInProgress = errors.New("a step execution is already in progress")
