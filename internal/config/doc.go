// Package config provides configuration management for flowctl.
//
// Configuration is loaded from a single directory. The default is
// ~/.config/flowctl, and commands accept --config-path to point elsewhere.
//
// # Configuration Directory
//
// The directory contains:
//   - config.yaml (main configuration file)
//   - workflows/ (saved workflow definitions)
//   - workflow_executions/ (step execution records)
//   - catalog/tools and catalog/templates (tool and prompt template definitions)
//   - files/ (content of file variables, one file per file id)
//
// # Entity Storage
//
// Storage persists entities as YAML files below the configuration directory,
// one subdirectory per entity type:
//
//	storage := config.NewStorageWithPath("/path/to/config")
//	err := storage.Save(config.EntityWorkflows, "research", data)
//	data, err := storage.Load(config.EntityWorkflows, "research")
//	names, err := storage.List(config.EntityWorkflows)
//
// Loading a missing entity returns an api.NotFoundError. Filenames are
// sanitized before they touch the filesystem.
//
// # Definition Directories
//
// LoadAndParseYAML decodes every YAML file in a directory. Broken files are
// reported through a ConfigurationErrorCollection so that one bad definition
// does not hide the others.
package config
