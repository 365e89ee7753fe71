package tools

import (
	"context"
	"fmt"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// Router dispatches tool invocations by tool type: utility tools run in
// process, language-model tools go to the LLM invoker and search, retrieve
// and mcp tools go to the MCP invoker.
type Router struct {
	builtins map[string]BuiltinFunc
	llm      api.ToolInvoker
	remote   api.ToolInvoker
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLLM sets the invoker for language-model tools.
func WithLLM(invoker api.ToolInvoker) RouterOption {
	return func(r *Router) { r.llm = invoker }
}

// WithRemote sets the invoker for search, retrieve and mcp tools.
func WithRemote(invoker api.ToolInvoker) RouterOption {
	return func(r *Router) { r.remote = invoker }
}

// WithBuiltin adds or replaces a utility tool implementation.
func WithBuiltin(id string, fn BuiltinFunc) RouterOption {
	return func(r *Router) { r.builtins[id] = fn }
}

// NewRouter creates a router with the built-in utility tools.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{builtins: Builtins()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute implements api.ToolInvoker.
func (r *Router) Execute(ctx context.Context, tool *api.Tool, params map[string]any) (map[string]any, error) {
	if tool == nil {
		return nil, fmt.Errorf("no tool given")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logging.Debug("Router", "Dispatching %s tool %s", tool.Type, tool.ID)

	switch tool.Type {
	case api.ToolTypeUtility:
		fn, ok := r.builtins[tool.ID]
		if !ok {
			return nil, fmt.Errorf("no implementation for utility tool %s", tool.ID)
		}
		return fn(ctx, params)
	case api.ToolTypeLLM:
		if r.llm == nil {
			return nil, fmt.Errorf("no language model configured")
		}
		return r.llm.Execute(ctx, tool, params)
	case api.ToolTypeSearch, api.ToolTypeRetrieve, api.ToolTypeMCP:
		if r.remote == nil {
			return nil, fmt.Errorf("no MCP servers configured for %s tool %s", tool.Type, tool.ID)
		}
		return r.remote.Execute(ctx, tool, params)
	default:
		return nil, fmt.Errorf("unsupported tool type %q", tool.Type)
	}
}

var _ api.ToolInvoker = (*Router)(nil)
