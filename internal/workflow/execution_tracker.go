package workflow

import (
	"context"
	"time"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/engine"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"

	"github.com/google/uuid"
)

// ExecutionTracker records step executions. Tracking failures are logged and
// never change the outcome of the step.
type ExecutionTracker struct {
	storage api.ExecutionStorage
}

// NewExecutionTracker creates a tracker persisting to storage.
func NewExecutionTracker(storage api.ExecutionStorage) *ExecutionTracker {
	return &ExecutionTracker{storage: storage}
}

// TrackStep records the result of an executed action step.
func (et *ExecutionTracker) TrackStep(ctx context.Context, workflowName string, result engine.ExecutionResult) *api.ExecutionRecord {
	completed := result.StartedAt.Add(result.Duration)
	record := &api.ExecutionRecord{
		ExecutionID:  uuid.New().String(),
		WorkflowName: workflowName,
		StepID:       result.StepID,
		ToolID:       result.ToolID,
		Status:       api.ExecutionStatusCompleted,
		StartedAt:    result.StartedAt,
		CompletedAt:  &completed,
		DurationMs:   result.Duration.Milliseconds(),
		Parameters:   truncateParameters(result.Parameters),
		Outputs:      result.Outputs,
	}
	if !result.Success {
		record.Status = api.ExecutionStatusFailed
		record.Error = result.Message()
	}

	et.store(ctx, record)
	return record
}

// TrackEvaluation records the outcome of an evaluated step.
func (et *ExecutionTracker) TrackEvaluation(ctx context.Context, workflowName, stepID string, startedAt time.Time, result api.EvaluationResult, err error) *api.ExecutionRecord {
	completed := time.Now()
	record := &api.ExecutionRecord{
		ExecutionID:  uuid.New().String(),
		WorkflowName: workflowName,
		StepID:       stepID,
		Status:       api.ExecutionStatusCompleted,
		StartedAt:    startedAt,
		CompletedAt:  &completed,
		DurationMs:   completed.Sub(startedAt).Milliseconds(),
		Outputs:      result.AsMap(),
	}
	if err != nil {
		record.Status = api.ExecutionStatusFailed
		record.Error = err.Error()
		record.Outputs = nil
	}

	et.store(ctx, record)
	return record
}

// ListExecutions returns a page of execution records.
func (et *ExecutionTracker) ListExecutions(ctx context.Context, req *api.ListExecutionsRequest) (*api.ListExecutionsResponse, error) {
	return et.storage.List(ctx, req)
}

// GetExecution returns the full record of one execution.
func (et *ExecutionTracker) GetExecution(ctx context.Context, executionID string) (*api.ExecutionRecord, error) {
	return et.storage.Get(ctx, executionID)
}

func (et *ExecutionTracker) store(ctx context.Context, record *api.ExecutionRecord) {
	if err := et.storage.Store(ctx, record); err != nil {
		logging.Warn("ExecutionTracker", "Failed to store execution record %s: %v", record.ExecutionID, err)
		return
	}
	logging.Debug("ExecutionTracker", "Recorded %s execution %s of step %s (%dms)",
		record.Status, record.ExecutionID, record.StepID, record.DurationMs)
}

// maxRecordedString bounds recorded string parameters, which include
// fetched file content.
const maxRecordedString = 2048

func truncateParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok && len(s) > maxRecordedString {
			out[k] = s[:maxRecordedString] + "..."
			continue
		}
		out[k] = v
	}
	return out
}
