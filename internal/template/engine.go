package template

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	gotemplate "text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
)

// Engine names accepted in PromptTemplate.Engine.
const (
	EngineSimple = "simple"
	EngineGo     = "go"
)

// Engine renders prompt templates. The simple syntax substitutes {{token}}
// placeholders; the go syntax runs text/template with the sprig function map.
type Engine struct {
	// Pattern to match template variables like {{ variableName }}
	templatePattern *regexp.Regexp
}

// New creates a new template engine
func New() *Engine {
	return &Engine{
		templatePattern: regexp.MustCompile(`\{\{\s*\.?([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`),
	}
}

// Render renders a prompt template with the given token values.
func (e *Engine) Render(tmpl *api.PromptTemplate, context map[string]interface{}) (string, error) {
	switch tmpl.Engine {
	case "", EngineSimple:
		return e.Replace(tmpl.Template, context)
	case EngineGo:
		return e.RenderGo(tmpl.ID, tmpl.Template, context)
	default:
		return "", fmt.Errorf("template %s: unknown engine %q", tmpl.ID, tmpl.Engine)
	}
}

// Replace substitutes every {{token}} in text. All referenced tokens must be
// present in the context.
func (e *Engine) Replace(text string, context map[string]interface{}) (string, error) {
	var missingVars []string
	seen := make(map[string]bool)

	result := e.templatePattern.ReplaceAllStringFunc(text, func(placeholder string) string {
		match := e.templatePattern.FindStringSubmatch(placeholder)
		varName := match[1]
		replacement, exists := context[varName]
		if !exists {
			if !seen[varName] {
				missingVars = append(missingVars, varName)
				seen[varName] = true
			}
			return placeholder
		}
		return Stringify(replacement)
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missingVars, ", "))
	}
	return result, nil
}

// RenderGo renders text as a Go text/template with sprig functions. Missing
// keys are errors.
func (e *Engine) RenderGo(name, text string, context map[string]interface{}) (string, error) {
	t, err := gotemplate.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, context); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// ExtractTokens returns the distinct {{token}} names of text in order of first
// appearance.
func (e *Engine) ExtractTokens(text string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, match := range e.templatePattern.FindAllStringSubmatch(text, -1) {
		if len(match) < 2 || seen[match[1]] {
			continue
		}
		seen[match[1]] = true
		tokens = append(tokens, match[1])
	}
	return tokens
}

// ValidateTemplate checks that the declared tokens of a prompt template match
// the placeholders used in its text.
func (e *Engine) ValidateTemplate(tmpl *api.PromptTemplate) error {
	if tmpl.Engine == EngineGo {
		_, err := gotemplate.New(tmpl.ID).Funcs(sprig.TxtFuncMap()).Parse(tmpl.Template)
		return err
	}

	declared := make(map[string]bool, len(tmpl.Tokens))
	for _, token := range tmpl.Tokens {
		declared[token] = true
	}
	var undeclared []string
	for _, token := range e.ExtractTokens(tmpl.Template) {
		if !declared[token] {
			undeclared = append(undeclared, token)
		}
	}
	if len(undeclared) > 0 {
		return fmt.Errorf("template %s uses undeclared tokens: %s", tmpl.ID, strings.Join(undeclared, ", "))
	}
	return nil
}

// ValidateContext ensures all required variables are present in the context
func (e *Engine) ValidateContext(text string, context map[string]interface{}) error {
	var missingVars []string
	for _, varName := range e.ExtractTokens(text) {
		if _, exists := context[varName]; !exists {
			missingVars = append(missingVars, varName)
		}
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingVars, ", "))
	}

	return nil
}
