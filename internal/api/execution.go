package api

import "time"

// ExecutionStatus is the outcome of a recorded step execution.
type ExecutionStatus string

const (
	ExecutionStatusInProgress ExecutionStatus = "inprogress"
	ExecutionStatusCompleted  ExecutionStatus = "completed"
	ExecutionStatusFailed     ExecutionStatus = "failed"
)

// ExecutionRecord is the persisted record of one step execution.
type ExecutionRecord struct {
	ExecutionID  string          `json:"execution_id"`
	WorkflowName string          `json:"workflow"`
	StepID       string          `json:"step_id"`
	ToolID       string          `json:"tool_id,omitempty"`
	Status       ExecutionStatus `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	DurationMs   int64           `json:"duration_ms"`
	Error        string          `json:"error,omitempty"`

	// Parameters holds the resolved tool parameters, file handles without content
	Parameters map[string]any `json:"parameters,omitempty"`

	// Outputs holds the raw tool outputs
	Outputs map[string]any `json:"outputs,omitempty"`
}

// ListExecutionsRequest filters and pages execution records.
type ListExecutionsRequest struct {
	WorkflowName string          `json:"workflow,omitempty"`
	Status       ExecutionStatus `json:"status,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// ListExecutionsResponse is one page of execution records, newest first.
type ListExecutionsResponse struct {
	Executions []ExecutionRecord `json:"executions"`
	Total      int               `json:"total"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
	HasMore    bool              `json:"has_more"`
}
