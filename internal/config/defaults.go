package config

import "time"

const (
	// DefaultToolTimeout bounds tool invocations when nothing else does
	DefaultToolTimeout = 2 * time.Minute

	// DefaultOpenAIModel is used when no model is configured
	DefaultOpenAIModel = "gpt-4o-mini"

	// DefaultCatalogDir is relative to the configuration directory
	DefaultCatalogDir = "catalog"

	// DefaultFilesDir is relative to the configuration directory
	DefaultFilesDir = "files"
)

// GetDefaultConfig returns default configuration
func GetDefaultConfig() FlowConfig {
	return FlowConfig{
		LogLevel:     "warn",
		ToolTimeout:  DefaultToolTimeout,
		CatalogDir:   DefaultCatalogDir,
		FilesDir:     DefaultFilesDir,
		WatchCatalog: true,
		OpenAI: OpenAIConfig{
			Model:       DefaultOpenAIModel,
			Temperature: 0.2,
		},
	}
}
