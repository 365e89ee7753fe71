package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateEntityName validates that an entity name follows proper conventions
func ValidateEntityName(name, entityType string) error {
	if err := ValidateRequired("name", name, entityType); err != nil {
		return err
	}
	if len(name) > 100 {
		return ValidationError{Field: "name", Value: name, Message: "must not exceed 100 characters"}
	}
	if strings.ContainsAny(name, " /\\") {
		return ValidationError{
			Field:   "name",
			Value:   name,
			Message: "cannot contain spaces or path separators",
		}
	}
	return nil
}

// FormatValidationError creates a consistent validation error message
func FormatValidationError(entityType, entityName string, err error) error {
	if err == nil {
		return nil
	}

	if entityName != "" {
		return fmt.Errorf("validation failed for %s '%s': %w", entityType, entityName, err)
	}
	return fmt.Errorf("validation failed for %s: %w", entityType, err)
}

// Validate checks the configuration for values flowctl cannot work with.
func (c FlowConfig) Validate() error {
	var errors ValidationErrors

	if c.LogLevel != "" {
		if err := ValidateOneOf("logLevel", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "error"}); err != nil {
			errors = append(errors, err.(ValidationError))
		}
	}
	if c.ToolTimeout < 0 {
		errors.Add("toolTimeout", "must not be negative", c.ToolTimeout)
	}
	if c.OpenAI.MaxTokens < 0 {
		errors.Add("openai.maxTokens", "must not be negative", c.OpenAI.MaxTokens)
	}

	seen := make(map[string]bool)
	for i, server := range c.MCPServers {
		field := fmt.Sprintf("mcpServers[%d]", i)
		if err := ValidateEntityName(server.Name, "mcp server"); err != nil {
			errors.Add(field+".name", err.Error(), server.Name)
			continue
		}
		if seen[server.Name] {
			errors.Add(field+".name", fmt.Sprintf("duplicate server name '%s'", server.Name))
		}
		seen[server.Name] = true
		if server.Type != "" && server.Type != MCPServerTypeLocalCommand {
			errors.Add(field+".type", fmt.Sprintf("must be %s", MCPServerTypeLocalCommand), server.Type)
		}
		if strings.TrimSpace(server.Command) == "" {
			errors.Add(field+".command", "is required for mcp server")
		}
	}

	if errors.HasErrors() {
		return errors
	}
	return nil
}
