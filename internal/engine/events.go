package engine

// Step event types emitted by the engine.
const (
	EventStepStarted       = "step_started"
	EventFileFetched       = "file_fetched"
	EventToolInvoked       = "tool_invoked"
	EventOutputsRegistered = "outputs_registered"
	EventStepCompleted     = "step_completed"
	EventStepFailed        = "step_failed"
	EventStepEvaluated     = "step_evaluated"
)

// EventCallback interface for generating workflow step events
type EventCallback interface {
	// GenerateStepEvent generates an event for a workflow step operation
	GenerateStepEvent(stepID string, eventType string, data map[string]interface{})
}

// NoOpEventCallback provides a no-operation implementation of EventCallback
type NoOpEventCallback struct{}

func (n *NoOpEventCallback) GenerateStepEvent(stepID string, eventType string, data map[string]interface{}) {
	// No operation - events are disabled
}

// EventCallbackFunc adapts a function to EventCallback.
type EventCallbackFunc func(stepID string, eventType string, data map[string]interface{})

func (f EventCallbackFunc) GenerateStepEvent(stepID string, eventType string, data map[string]interface{}) {
	f(stepID, eventType, data)
}
