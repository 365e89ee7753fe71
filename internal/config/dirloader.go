package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"

	"sigs.k8s.io/yaml"
)

// LoadAndParseYAML reads every .yaml/.yml file in dir, decodes it into T and
// runs the optional validator. Files that fail to read, parse or validate are
// collected in the returned ConfigurationErrorCollection instead of aborting
// the load. A missing directory yields no definitions and no error.
func LoadAndParseYAML[T any](dir, category string, validator func(T) error) ([]T, *ConfigurationErrorCollection, error) {
	collection := NewConfigurationErrorCollection()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debug("ConfigLoader", "Directory %s does not exist, no %s loaded", dir, category)
			return nil, collection, nil
		}
		return nil, collection, fmt.Errorf("failed to read %s directory %s: %w", category, dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	var results []T
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			collection.AddError(path, category, "io", err.Error())
			continue
		}

		var item T
		if err := yaml.UnmarshalStrict(data, &item); err != nil {
			collection.AddError(path, category, "parse", err.Error())
			continue
		}
		if validator != nil {
			if err := validator(item); err != nil {
				collection.AddError(path, category, "validation", err.Error())
				continue
			}
		}
		results = append(results, item)
	}

	logging.Debug("ConfigLoader", "Loaded %d %s from %s (%d errors)", len(results), category, dir, collection.Count())
	return results, collection, nil
}
