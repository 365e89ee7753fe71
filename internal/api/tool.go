package api

import (
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
)

// ToolType classifies tools by how they are invoked.
type ToolType string

const (
	ToolTypeLLM      ToolType = "llm"
	ToolTypeSearch   ToolType = "search"
	ToolTypeRetrieve ToolType = "retrieve"
	ToolTypeUtility  ToolType = "utility"
	ToolTypeMCP      ToolType = "mcp"
)

// TemplateIDParameter is the synthetic parameter carrying the selected prompt
// template to language-model tools.
const TemplateIDParameter = "templateId"

// LLMResponseOutput is the single output slot of a language-model tool whose
// template output schema is not an object.
const LLMResponseOutput = "response"

// Slot is a named, typed tool parameter or output.
type Slot struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      *schema.Schema `json:"schema" yaml:"schema"`
	Required    bool           `json:"required,omitempty" yaml:"required,omitempty"`
}

// Signature lists a tool's parameters and outputs.
type Signature struct {
	Parameters []Slot `json:"parameters" yaml:"parameters"`
	Outputs    []Slot `json:"outputs" yaml:"outputs"`
}

// Parameter returns the named parameter slot.
func (s Signature) Parameter(name string) (Slot, bool) {
	return findSlot(s.Parameters, name)
}

// Output returns the named output slot.
func (s Signature) Output(name string) (Slot, bool) {
	return findSlot(s.Outputs, name)
}

// IsEmpty reports whether the signature declares nothing.
func (s Signature) IsEmpty() bool {
	return len(s.Parameters) == 0 && len(s.Outputs) == 0
}

func findSlot(slots []Slot, name string) (Slot, bool) {
	for _, slot := range slots {
		if slot.Name == name {
			return slot, true
		}
	}
	return Slot{}, false
}

// Tool describes an invocable tool. For language-model tools the static
// Signature is empty; the effective signature comes from SignatureOf.
type Tool struct {
	ID          string    `json:"tool_id" yaml:"tool_id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Type        ToolType  `json:"tool_type" yaml:"tool_type"`
	Signature   Signature `json:"signature" yaml:"signature"`

	// Server names the configured MCP server that serves this tool. Used by
	// search, retrieve and mcp tools.
	Server string `json:"server,omitempty" yaml:"server,omitempty"`

	// RemoteName is the tool name on the MCP server when it differs from ID.
	RemoteName string `json:"remote_name,omitempty" yaml:"remote_name,omitempty"`
}

// IsLLM reports whether the tool is a language-model tool.
func (t *Tool) IsLLM() bool {
	return t != nil && t.Type == ToolTypeLLM
}

// PromptTemplate is a parameterized prompt for language-model tools. Tokens
// name the {{token}} placeholders in Template; OutputSchema describes what the
// model is asked to return.
type PromptTemplate struct {
	ID            string         `json:"template_id" yaml:"template_id"`
	Name          string         `json:"name" yaml:"name"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Template      string         `json:"template" yaml:"template"`
	SystemMessage string         `json:"system_message,omitempty" yaml:"system_message,omitempty"`
	Tokens        []string       `json:"tokens" yaml:"tokens"`
	OutputSchema  *schema.Schema `json:"output_schema,omitempty" yaml:"output_schema,omitempty"`

	// Engine selects the rendering engine: "" or "simple" for {{token}}
	// substitution, "go" for text/template with sprig functions.
	Engine string `json:"engine,omitempty" yaml:"engine,omitempty"`
}

// SignatureOf returns the effective signature of a tool. It is total: a nil
// tool, or a language-model tool without a template, yields an empty
// signature. Language-model signatures have one required string parameter per
// template token, and either one output per field of an object output schema
// or a single "response" output.
func SignatureOf(tool *Tool, tmpl *PromptTemplate) Signature {
	if tool == nil {
		return Signature{}
	}
	if !tool.IsLLM() {
		return tool.Signature
	}
	if tmpl == nil {
		return Signature{}
	}

	sig := Signature{}
	for _, token := range tmpl.Tokens {
		sig.Parameters = append(sig.Parameters, Slot{
			Name:     token,
			Schema:   schema.String(),
			Required: true,
		})
	}

	out := tmpl.OutputSchema
	if out == nil {
		out = schema.String()
	}
	if out.Type == schema.TypeObject && len(out.Fields) > 0 {
		for _, f := range out.Fields {
			sig.Outputs = append(sig.Outputs, Slot{
				Name:        f.Name,
				Description: f.Schema.Description,
				Schema:      f.Schema,
			})
		}
		return sig
	}
	sig.Outputs = []Slot{{
		Name:        LLMResponseOutput,
		Description: out.Description,
		Schema:      out,
	}}
	return sig
}
