package api

import "context"

// ToolInvoker executes tools. Parameters are keyed by parameter name and the
// returned outputs by output name. Language-model tools receive the selected
// template id in the TemplateIDParameter parameter.
type ToolInvoker interface {
	Execute(ctx context.Context, tool *Tool, params map[string]any) (map[string]any, error)
}

// ToolInvokerFunc adapts a function to ToolInvoker.
type ToolInvokerFunc func(ctx context.Context, tool *Tool, params map[string]any) (map[string]any, error)

// Execute calls f.
func (f ToolInvokerFunc) Execute(ctx context.Context, tool *Tool, params map[string]any) (map[string]any, error) {
	return f(ctx, tool, params)
}

// FileContentFetcher returns the text content of a file handle.
type FileContentFetcher interface {
	GetContent(ctx context.Context, fileID string) (string, error)
}

// ToolCatalog resolves tools and prompt templates by id.
type ToolCatalog interface {
	GetTool(id string) (*Tool, error)
	GetPromptTemplate(id string) (*PromptTemplate, error)
	ListTools() []Tool
	ListPromptTemplates() []PromptTemplate
}

// WorkflowStorage persists workflow definitions.
type WorkflowStorage interface {
	Save(wf *Workflow) error
	Load(name string) (*Workflow, error)
	List() ([]string, error)
	Delete(name string) error
}

// ExecutionStorage persists step execution records.
type ExecutionStorage interface {
	Store(ctx context.Context, record *ExecutionRecord) error
	Get(ctx context.Context, executionID string) (*ExecutionRecord, error)
	List(ctx context.Context, req *ListExecutionsRequest) (*ListExecutionsResponse, error)
	Delete(ctx context.Context, executionID string) error
}
