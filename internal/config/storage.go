package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// Entity types stored below the configuration directory.
const (
	EntityWorkflows  = "workflows"
	EntityExecutions = "workflow_executions"
)

// Storage provides generic storage functionality for dynamic entities
// using a single configuration directory approach
type Storage struct {
	mu         sync.RWMutex
	configPath string // Optional custom config path - when set, uses this path; otherwise uses default ~/.config/flowctl
}

// NewStorage creates a new Storage instance using the default configuration directory
func NewStorage() *Storage {
	return &Storage{}
}

// NewStorageWithPath creates a new Storage instance with a custom config path
func NewStorageWithPath(configPath string) *Storage {
	return &Storage{
		configPath: configPath,
	}
}

// Save stores data for the given entity type and name
// entityType: subdirectory name (workflows, workflow_executions)
// name: filename without extension
// data: file content to write
func (ds *Storage) Save(entityType string, name string, data []byte) error {
	if err := checkKey(entityType, name); err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	targetDir, err := ds.resolveEntityDir(entityType)
	if err != nil {
		return fmt.Errorf("failed to resolve directory for entity type %s: %w", entityType, err)
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", targetDir, err)
	}

	filePath := filepath.Join(targetDir, sanitizeFilename(name)+".yaml")

	// write through a temp file so readers never see a partial document
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}

	logging.Debug("Storage", "Saved %s/%s to %s", entityType, name, filePath)
	return nil
}

// Load retrieves data for the given entity type and name. A missing entity
// is reported as an api.NotFoundError.
func (ds *Storage) Load(entityType string, name string) ([]byte, error) {
	if err := checkKey(entityType, name); err != nil {
		return nil, err
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	filePath, err := ds.entityPath(entityType, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, api.NewNotFoundError(entityType, name)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	logging.Debug("Storage", "Loaded %s/%s from %s", entityType, name, filePath)
	return data, nil
}

// Delete removes the file for the given entity type and name
func (ds *Storage) Delete(entityType string, name string) error {
	if err := checkKey(entityType, name); err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	filePath, err := ds.entityPath(entityType, name)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return api.NewNotFoundError(entityType, name)
		}
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}

	logging.Info("Storage", "Deleted %s/%s from %s", entityType, name, filePath)
	return nil
}

// List returns all available names for the given entity type, sorted.
func (ds *Storage) List(entityType string) ([]string, error) {
	if entityType == "" {
		return nil, fmt.Errorf("entityType cannot be empty")
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	entityPath, err := ds.resolveEntityDir(entityType)
	if err != nil {
		return nil, err
	}
	names, err := listFilesInDirectory(entityPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entityType, err)
	}

	logging.Debug("Storage", "Listed %d %s entities", len(names), entityType)
	return names, nil
}

// EntityDir returns the directory holding the given entity type.
func (ds *Storage) EntityDir(entityType string) (string, error) {
	return ds.resolveEntityDir(entityType)
}

// getConfigDir returns the configuration directory to use
func (ds *Storage) getConfigDir() (string, error) {
	if ds.configPath != "" {
		return ds.configPath, nil
	}

	return GetUserConfigDir()
}

func (ds *Storage) resolveEntityDir(entityType string) (string, error) {
	configDir, err := ds.getConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get configuration directory: %w", err)
	}
	return filepath.Join(configDir, entityType), nil
}

func (ds *Storage) entityPath(entityType, name string) (string, error) {
	dir, err := ds.resolveEntityDir(entityType)
	if err != nil {
		return "", err
	}
	base := filepath.Join(dir, sanitizeFilename(name))
	if _, err := os.Stat(base + ".yml"); err == nil {
		return base + ".yml", nil
	}
	return base + ".yaml", nil
}

func checkKey(entityType, name string) error {
	if entityType == "" {
		return fmt.Errorf("entityType cannot be empty")
	}
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	return nil
}

// listFilesInDirectory lists all .yaml and .yml files in a directory and
// returns their base names
func listFilesInDirectory(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ext))
	}
	sort.Strings(names)
	return names, nil
}

var unsafeFilenameChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", ".", "_", " ", "_",
)

// sanitizeFilename ensures the filename is safe for filesystem operations
func sanitizeFilename(name string) string {
	sanitized := unsafeFilenameChars.Replace(strings.TrimSpace(name))

	// Collapse multiple consecutive underscores to single underscore
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
