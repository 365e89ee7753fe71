package config

import (
	"fmt"
	"sort"
	"strings"
)

// ConfigurationError represents a structured error that occurs while loading
// a definition file.
type ConfigurationError struct {
	FilePath  string `json:"filePath"`  // Full path to the file that caused the error
	FileName  string `json:"fileName"`  // Base name of the file
	Category  string `json:"category"`  // Definition category (tools, templates, workflows)
	ErrorType string `json:"errorType"` // Type of error (parse, validation, io)
	Message   string `json:"message"`   // Human-readable error message
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ce.Category, ce.FileName, ce.Message)
}

// ConfigurationErrorCollection holds multiple configuration errors
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

// NewConfigurationErrorCollection creates a new empty error collection
func NewConfigurationErrorCollection() *ConfigurationErrorCollection {
	return &ConfigurationErrorCollection{
		Errors: make([]ConfigurationError, 0),
	}
}

// Error implements the error interface for the collection
func (cec ConfigurationErrorCollection) Error() string {
	if len(cec.Errors) == 0 {
		return "no configuration errors"
	}

	if len(cec.Errors) == 1 {
		return cec.Errors[0].Error()
	}

	return fmt.Sprintf("%d configuration errors: %s (and %d more)",
		len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
}

// HasErrors returns true if there are any errors in the collection
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

// Count returns the number of errors in the collection
func (cec *ConfigurationErrorCollection) Count() int {
	return len(cec.Errors)
}

// AddError adds an error to the collection with context
func (cec *ConfigurationErrorCollection) AddError(filePath, category, errorType, message string) {
	cec.Errors = append(cec.Errors, ConfigurationError{
		FilePath:  filePath,
		FileName:  baseName(filePath),
		Category:  category,
		ErrorType: errorType,
		Message:   message,
	})
}

// GetSummary returns a summary of all errors grouped by category
func (cec *ConfigurationErrorCollection) GetSummary() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors"
	}

	groups := make(map[string][]ConfigurationError)
	for _, err := range cec.Errors {
		groups[err.Category] = append(groups[err.Category], err)
	}
	categories := make([]string, 0, len(groups))
	for category := range groups {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var parts []string
	parts = append(parts, fmt.Sprintf("Configuration Error Summary (%d total errors):", len(cec.Errors)))
	for _, category := range categories {
		parts = append(parts, fmt.Sprintf("%s:", category))
		for _, err := range groups[category] {
			parts = append(parts, fmt.Sprintf("  - %s (%s): %s", err.FileName, err.ErrorType, err.Message))
		}
	}

	return strings.Join(parts, "\n")
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		return path[i+1:]
	}
	return path
}
