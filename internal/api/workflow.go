package api

import (
	"time"

	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
)

// VariableRole is the role of a workflow variable.
type VariableRole string

const (
	RoleInput        VariableRole = "input"
	RoleOutput       VariableRole = "output"
	RoleIntermediate VariableRole = "intermediate"
)

// Valid reports whether the role is one of the known roles.
func (r VariableRole) Valid() bool {
	switch r {
	case RoleInput, RoleOutput, RoleIntermediate:
		return true
	}
	return false
}

// VariableDefinition declares a workflow variable in a persisted workflow.
type VariableDefinition struct {
	// Name is the variable name, unique across all roles
	Name string `yaml:"name" json:"name"`

	Role VariableRole `yaml:"role" json:"role"`

	Schema *schema.Schema `yaml:"schema" json:"schema"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Required marks input variables that must be set before a run can
	// proceed past the input step. Inputs default to required.
	Required *bool `yaml:"required,omitempty" json:"required,omitempty"`

	// Value seeds the variable when the workflow is loaded
	Value any `yaml:"value,omitempty" json:"value,omitempty"`
}

// IsRequired reports whether an input variable is required.
func (v VariableDefinition) IsRequired() bool {
	if v.Role != RoleInput {
		return false
	}
	return v.Required == nil || *v.Required
}

// Workflow is a persisted workflow definition: variables and ordered steps.
type Workflow struct {
	// Name is the unique identifier for this workflow
	Name string `yaml:"name" json:"name"`

	// Description provides human-readable documentation for the workflow's purpose
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	Variables []VariableDefinition `yaml:"variables,omitempty" json:"variables,omitempty"`

	Steps []Step `yaml:"steps" json:"steps"`

	// CreatedAt indicates when this workflow was created
	CreatedAt time.Time `yaml:"createdAt,omitempty" json:"createdAt"`

	// LastModified indicates when this workflow was last updated
	LastModified time.Time `yaml:"lastModified,omitempty" json:"lastModified"`
}
