package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/config"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// ClientFactory creates the client for a configured server.
type ClientFactory func(cfg config.MCPServerConfig) MCPClient

// MCPInvoker runs search, retrieve and mcp tools on the MCP server named by
// the tool. Server processes are started on first use and kept running
// until Close.
type MCPInvoker struct {
	mu        sync.Mutex
	servers   map[string]config.MCPServerConfig
	clients   map[string]MCPClient
	newClient ClientFactory
}

// NewMCPInvoker creates an invoker for the configured servers. A nil factory
// starts servers as local stdio processes.
func NewMCPInvoker(servers []config.MCPServerConfig, version string, factory ClientFactory) *MCPInvoker {
	if factory == nil {
		factory = func(cfg config.MCPServerConfig) MCPClient {
			return NewStdioClient(cfg.Command, cfg.Args, cfg.Env, version)
		}
	}
	m := &MCPInvoker{
		servers:   make(map[string]config.MCPServerConfig, len(servers)),
		clients:   make(map[string]MCPClient),
		newClient: factory,
	}
	for _, s := range servers {
		m.servers[s.Name] = s
	}
	return m
}

func (m *MCPInvoker) client(ctx context.Context, server string) (MCPClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[server]; ok {
		return c, nil
	}
	cfg, ok := m.servers[server]
	if !ok {
		return nil, api.NewNotFoundError("MCP server", server)
	}

	c := m.newClient(cfg)
	if err := c.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to start MCP server %s: %w", server, err)
	}
	m.clients[server] = c
	logging.Info("MCPInvoker", "Started MCP server %s", server)
	return c, nil
}

// Execute implements api.ToolInvoker.
func (m *MCPInvoker) Execute(ctx context.Context, tool *api.Tool, params map[string]any) (map[string]any, error) {
	c, err := m.client(ctx, tool.Server)
	if err != nil {
		return nil, err
	}

	name := tool.RemoteName
	if name == "" {
		name = tool.ID
	}
	args := make(map[string]interface{}, len(params))
	for k, v := range params {
		if k == api.TemplateIDParameter {
			continue
		}
		if fv, ok := schema.AsFileValue(v); ok && fv.HasContent() {
			v = *fv.Content
		}
		args[k] = v
	}

	logging.Debug("MCPInvoker", "Calling %s on server %s", name, tool.Server)
	result, err := c.CallTool(ctx, name, args)
	if err != nil {
		return nil, err
	}
	return decodeToolResult(tool, result)
}

// decodeToolResult turns the content of a tool result into outputs. A
// single JSON object whose keys cover the declared outputs is used as is.
// Otherwise a tool with one declared output receives the text content,
// collected into a list when that output is an array.
func decodeToolResult(tool *api.Tool, result *mcp.CallToolResult) (map[string]any, error) {
	var texts []string
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			texts = append(texts, text.Text)
		}
	}

	if result.IsError {
		return nil, fmt.Errorf("%s", strings.Join(texts, "\n"))
	}

	outputs := tool.Signature.Outputs
	if len(texts) == 1 {
		var obj map[string]any
		if err := json.Unmarshal([]byte(texts[0]), &obj); err == nil && coversOutputs(obj, outputs) {
			return obj, nil
		}
	}

	switch len(outputs) {
	case 0:
		return map[string]any{}, nil
	case 1:
		out := outputs[0]
		if out.Schema != nil && out.Schema.Type == schema.TypeArray {
			return map[string]any{out.Name: textList(texts)}, nil
		}
		return map[string]any{out.Name: strings.Join(texts, "\n")}, nil
	default:
		return nil, fmt.Errorf("tool %s returned no JSON object for its %d outputs", tool.ID, len(outputs))
	}
}

func coversOutputs(obj map[string]any, outputs []api.Slot) bool {
	if len(outputs) == 0 {
		return false
	}
	for _, out := range outputs {
		if _, ok := obj[out.Name]; !ok {
			return false
		}
	}
	return true
}

// textList returns the items of a single JSON array, or one item per text
// content.
func textList(texts []string) []any {
	if len(texts) == 1 {
		var items []any
		if err := json.Unmarshal([]byte(texts[0]), &items); err == nil {
			return items
		}
	}
	items := make([]any, 0, len(texts))
	for _, t := range texts {
		items = append(items, t)
	}
	return items
}

// ImportTools lists the tools of a server and describes them as mcp tools.
// Tool ids are prefixed with the server name.
func (m *MCPInvoker) ImportTools(ctx context.Context, server string) ([]api.Tool, error) {
	c, err := m.client(ctx, server)
	if err != nil {
		return nil, err
	}
	remote, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	tools := make([]api.Tool, 0, len(remote))
	for _, t := range remote {
		tools = append(tools, toolFromMCP(server, t))
	}
	return tools, nil
}

func toolFromMCP(server string, t mcp.Tool) api.Tool {
	required := make(map[string]bool, len(t.InputSchema.Required))
	for _, name := range t.InputSchema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(t.InputSchema.Properties))
	for name := range t.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var params []api.Slot
	for _, name := range names {
		prop, _ := t.InputSchema.Properties[name].(map[string]any)
		s := fromJSONSchema(prop)
		params = append(params, api.Slot{
			Name:        name,
			Description: s.Description,
			Schema:      s,
			Required:    required[name],
		})
	}

	return api.Tool{
		ID:          server + "_" + t.Name,
		Name:        t.Name,
		Description: t.Description,
		Type:        api.ToolTypeMCP,
		Server:      server,
		RemoteName:  t.Name,
		Signature: api.Signature{
			Parameters: params,
			Outputs: []api.Slot{{
				Name:   "result",
				Schema: schema.String(),
			}},
		},
	}
}

// fromJSONSchema converts a JSON Schema property. Constructs without an
// equivalent become strings.
func fromJSONSchema(prop map[string]any) *schema.Schema {
	description, _ := prop["description"].(string)

	var s *schema.Schema
	switch prop["type"] {
	case "number", "integer":
		s = schema.Number()
	case "boolean":
		s = schema.Boolean()
	case "array":
		items, _ := prop["items"].(map[string]any)
		s = schema.Array(fromJSONSchema(items))
	case "object":
		props, _ := prop["properties"].(map[string]any)
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		var fields []schema.Field
		for _, name := range names {
			fp, _ := props[name].(map[string]any)
			fields = append(fields, schema.NewField(name, fromJSONSchema(fp)))
		}
		s = schema.Object(fields...)
	default:
		s = schema.String()
	}
	s.Description = description
	return s
}

// Close stops all started servers.
func (m *MCPInvoker) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []string
	for name, c := range m.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
		delete(m.clients, name)
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to stop MCP servers: %s", strings.Join(errs, "; "))
	}
	return nil
}

var _ api.ToolInvoker = (*MCPInvoker)(nil)
