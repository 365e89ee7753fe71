package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/flowctl"
	configFileName = "config.yaml"

	// OpenAIKeyEnv is consulted when no API key is configured
	OpenAIKeyEnv = "OPENAI_API_KEY"
)

// GetUserConfigDir returns the default configuration directory.
func GetUserConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

func GetDefaultConfigPathOrPanic() string {
	dir, err := GetUserConfigDir()
	if err != nil {
		panic(err)
	}
	return dir
}

// LoadConfig loads configuration from a single specified directory.
// The directory should contain config.yaml and subdirectories for workflows,
// the catalog and execution records. Relative directories in the file are
// resolved against configPath.
func LoadConfig(configPath string) (FlowConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config.yaml found at %s, using defaults", configFilePath)
			config.resolvePaths(configPath)
			config.applyEnv()
			return config, nil
		}
		logging.Info("Config", "Error loading config.yaml from %s: %s", configFilePath, err)
		return FlowConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		// config malformed
		return FlowConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	if err := config.Validate(); err != nil {
		return FlowConfig{}, FormatValidationError("config", configFilePath, err)
	}

	config.resolvePaths(configPath)
	config.applyEnv()
	logging.Info("Config", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// SaveConfig writes the configuration to config.yaml in configPath.
func SaveConfig(configPath string, config FlowConfig) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", configPath, err)
	}
	return os.WriteFile(filepath.Join(configPath, configFileName), data, 0644)
}

func (c *FlowConfig) resolvePaths(configPath string) {
	if c.CatalogDir != "" && !filepath.IsAbs(c.CatalogDir) {
		c.CatalogDir = filepath.Join(configPath, c.CatalogDir)
	}
	if c.FilesDir != "" && !filepath.IsAbs(c.FilesDir) {
		c.FilesDir = filepath.Join(configPath, c.FilesDir)
	}
}

func (c *FlowConfig) applyEnv() {
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv(OpenAIKeyEnv)
	}
}
