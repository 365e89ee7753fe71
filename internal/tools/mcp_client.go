package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// DefaultStdioInitTimeout bounds starting the server process and the MCP
// handshake when the context has no deadline.
const DefaultStdioInitTimeout = 10 * time.Second

// MCPClient is the part of an MCP client session used to run tools.
type MCPClient interface {
	Initialize(ctx context.Context) error
	Close() error
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
}

// StdioClient is an MCP client talking to a local server process over
// stdin/stdout.
type StdioClient struct {
	mu        sync.RWMutex
	client    client.MCPClient
	connected bool

	command string
	args    []string
	env     map[string]string
	version string
}

// NewStdioClient creates a client for a server started with command.
func NewStdioClient(command string, args []string, env map[string]string, version string) *StdioClient {
	return &StdioClient{
		command: command,
		args:    args,
		env:     env,
		version: version,
	}
}

// Initialize starts the server process and performs the protocol handshake.
func (c *StdioClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	logging.Debug("StdioClient", "Starting MCP server: %s %v", c.command, c.args)

	keys := make([]string, 0, len(c.env))
	for k := range c.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	envStrings := make([]string, 0, len(keys))
	for _, k := range keys {
		envStrings = append(envStrings, fmt.Sprintf("%s=%s", k, c.env[k]))
	}

	mcpClient, err := client.NewStdioMCPClient(c.command, envStrings, c.args...)
	if err != nil {
		return fmt.Errorf("failed to create stdio client: %w", err)
	}

	initCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, DefaultStdioInitTimeout)
		defer cancel()
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "flowctl",
		Version: c.version,
	}

	if _, err := mcpClient.Initialize(initCtx, initRequest); err != nil {
		logging.Error("StdioClient", err, "Failed to initialize MCP protocol for %s", c.command)
		if closeErr := mcpClient.Close(); closeErr != nil {
			logging.Debug("StdioClient", "Error closing failed client for %s: %v", c.command, closeErr)
		}
		return fmt.Errorf("failed to initialize MCP protocol: %w", err)
	}

	c.client = mcpClient
	c.connected = true
	logging.Debug("StdioClient", "MCP protocol initialized for %s", c.command)
	return nil
}

// Close stops the server process.
func (c *StdioClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.connected = false
	c.client = nil
	return err
}

// ListTools returns the tools offered by the server.
func (c *StdioClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected || c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}
	result, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return result.Tools, nil
}

// CallTool runs a tool on the server.
func (c *StdioClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected || c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := c.client.CallTool(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to call tool: %w", err)
	}
	return result, nil
}

var _ MCPClient = (*StdioClient)(nil)
