package config

import "time"

// FlowConfig is the top-level configuration structure for flowctl.
type FlowConfig struct {
	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"logLevel,omitempty"`

	// StrictVariables validates every variable write against its schema
	StrictVariables bool `yaml:"strictVariables,omitempty"`

	// ToolTimeout bounds a single tool invocation (e.g. "60s")
	ToolTimeout time.Duration `yaml:"toolTimeout,omitempty"`

	// CatalogDir holds tools/ and templates/ definitions. Relative paths are
	// resolved against the configuration directory.
	CatalogDir string `yaml:"catalogDir,omitempty"`

	// FilesDir holds the content of file variables, one file per file id
	FilesDir string `yaml:"filesDir,omitempty"`

	// WatchCatalog reloads the catalog when its files change
	WatchCatalog bool `yaml:"watchCatalog,omitempty"`

	OpenAI OpenAIConfig `yaml:"openai,omitempty"`

	MCPServers []MCPServerConfig `yaml:"mcpServers,omitempty"`
}

// OpenAIConfig configures the language-model backend.
type OpenAIConfig struct {
	// APIKey falls back to the OPENAI_API_KEY environment variable
	APIKey      string  `yaml:"apiKey,omitempty"`
	BaseURL     string  `yaml:"baseURL,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"maxTokens,omitempty"`
}

// MCPServerType defines the type of MCP server.
type MCPServerType string

const (
	MCPServerTypeLocalCommand MCPServerType = "localCommand"
)

const (
	// MCPTransportStdio is the standard I/O transport.
	MCPTransportStdio = "stdio"
)

// MCPServerConfig describes an MCP server started as a local command. Search,
// retrieve and mcp tools name the server they run on.
type MCPServerConfig struct {
	Name    string            `yaml:"name"`
	Type    MCPServerType     `yaml:"type,omitempty"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`

	// ImportTools adds the server's tools to the catalog as mcp tools
	ImportTools bool `yaml:"importTools,omitempty"`
}

// MCPServer returns the server with the given name.
func (c FlowConfig) MCPServer(name string) (MCPServerConfig, bool) {
	for _, s := range c.MCPServers {
		if s.Name == name {
			return s, true
		}
	}
	return MCPServerConfig{}, false
}
