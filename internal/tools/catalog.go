package tools

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/config"
	"github.com/cliff-rosen/orchestrator-sub003/internal/template"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// Catalog directory layout below the catalog root.
const (
	ToolsDir     = "tools"
	TemplatesDir = "templates"
)

// Catalog resolves tools and prompt templates. It starts with the built-in
// seed entries; definitions loaded from a catalog directory and tools
// imported from MCP servers are layered on top and replace seeds with the
// same id.
type Catalog struct {
	mu        sync.RWMutex
	dir       string
	tools     map[string]api.Tool
	templates map[string]api.PromptTemplate

	// imported tools survive directory reloads
	imported map[string]api.Tool
	engine   *template.Engine
}

// NewCatalog creates a catalog holding the seed tools and templates. dir is
// the catalog root; it may be empty when nothing is loaded from disk.
func NewCatalog(dir string) *Catalog {
	c := &Catalog{
		dir:      dir,
		imported: make(map[string]api.Tool),
		engine:   template.New(),
	}
	c.tools, c.templates = seedMaps()
	return c
}

// Dir returns the catalog root.
func (c *Catalog) Dir() string {
	return c.dir
}

func seedMaps() (map[string]api.Tool, map[string]api.PromptTemplate) {
	tools := make(map[string]api.Tool)
	for _, t := range SeedTools() {
		tools[t.ID] = t
	}
	templates := make(map[string]api.PromptTemplate)
	for _, t := range SeedTemplates() {
		templates[t.ID] = t
	}
	return tools, templates
}

// Load reads tool and template definitions from the catalog directory and
// replaces the current entries. Broken files are logged and skipped. A
// catalog update event is published after every load.
func (c *Catalog) Load() error {
	tools, templates := seedMaps()

	if c.dir != "" {
		loadedTools, toolErrors, err := config.LoadAndParseYAML(filepath.Join(c.dir, ToolsDir), ToolsDir, validateTool)
		if err != nil {
			c.publish(err)
			return err
		}
		if toolErrors.HasErrors() {
			logging.Warn("Catalog", "Some tool files had errors:\n%s", toolErrors.GetSummary())
		}
		for _, t := range loadedTools {
			tools[t.ID] = t
		}

		loadedTemplates, templateErrors, err := config.LoadAndParseYAML(filepath.Join(c.dir, TemplatesDir), TemplatesDir, c.validateTemplate)
		if err != nil {
			c.publish(err)
			return err
		}
		if templateErrors.HasErrors() {
			logging.Warn("Catalog", "Some template files had errors:\n%s", templateErrors.GetSummary())
		}
		for _, t := range loadedTemplates {
			templates[t.ID] = t
		}
	}

	c.mu.Lock()
	for id, t := range c.imported {
		tools[id] = t
	}
	c.tools = tools
	c.templates = templates
	c.mu.Unlock()

	logging.Info("Catalog", "Catalog holds %d tools and %d templates", len(tools), len(templates))
	c.publish(nil)
	return nil
}

// AddTools adds tools that do not come from the catalog directory, such as
// tools imported from an MCP server.
func (c *Catalog) AddTools(source string, tools ...api.Tool) error {
	for _, t := range tools {
		if err := validateTool(t); err != nil {
			return err
		}
	}

	c.mu.Lock()
	ids := make([]string, 0, len(tools))
	for _, t := range tools {
		c.imported[t.ID] = t
		c.tools[t.ID] = t
		ids = append(ids, t.ID)
	}
	c.mu.Unlock()

	logging.Info("Catalog", "Added %d tools from %s", len(tools), source)
	api.PublishCatalogUpdate(api.CatalogUpdateEvent{
		Source:    source,
		Tools:     ids,
		Timestamp: time.Now(),
	})
	return nil
}

func (c *Catalog) publish(loadErr error) {
	event := api.CatalogUpdateEvent{
		Source:    c.dir,
		Timestamp: time.Now(),
	}
	if loadErr != nil {
		event.Error = loadErr.Error()
	} else {
		for _, t := range c.ListTools() {
			event.Tools = append(event.Tools, t.ID)
		}
		for _, t := range c.ListPromptTemplates() {
			event.Templates = append(event.Templates, t.ID)
		}
	}
	api.PublishCatalogUpdate(event)
}

// GetTool implements api.ToolCatalog.
func (c *Catalog) GetTool(id string) (*api.Tool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, exists := c.tools[id]
	if !exists {
		return nil, api.NewNotFoundError("tool", id)
	}
	return &t, nil
}

// GetPromptTemplate implements api.ToolCatalog.
func (c *Catalog) GetPromptTemplate(id string) (*api.PromptTemplate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, exists := c.templates[id]
	if !exists {
		return nil, api.NewNotFoundError("template", id)
	}
	return &t, nil
}

// ListTools implements api.ToolCatalog. Tools are ordered by id.
func (c *Catalog) ListTools() []api.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]api.Tool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListPromptTemplates implements api.ToolCatalog. Templates are ordered by id.
func (c *Catalog) ListPromptTemplates() []api.PromptTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]api.PromptTemplate, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func validateTool(t api.Tool) error {
	var errors config.ValidationErrors

	if err := config.ValidateEntityName(t.ID, "tool"); err != nil {
		errors = append(errors, err.(config.ValidationError))
	}
	switch t.Type {
	case api.ToolTypeLLM, api.ToolTypeUtility:
	case api.ToolTypeSearch, api.ToolTypeRetrieve, api.ToolTypeMCP:
		if t.Server == "" {
			errors.Add("server", fmt.Sprintf("is required for %s tools", t.Type))
		}
	default:
		errors.Add("tool_type", "must be one of: llm, search, retrieve, utility, mcp", t.Type)
	}
	for i, slot := range append(append([]api.Slot(nil), t.Signature.Parameters...), t.Signature.Outputs...) {
		if slot.Name == "" {
			errors.Add(fmt.Sprintf("signature[%d].name", i), "slot name cannot be empty")
			continue
		}
		if slot.Schema == nil {
			errors.Add(fmt.Sprintf("signature.%s.schema", slot.Name), "is required")
		} else if err := slot.Schema.Check(); err != nil {
			errors.Add(fmt.Sprintf("signature.%s.schema", slot.Name), err.Error())
		}
	}

	if errors.HasErrors() {
		return config.FormatValidationError("tool", t.ID, errors)
	}
	return nil
}

func (c *Catalog) validateTemplate(t api.PromptTemplate) error {
	var errors config.ValidationErrors

	if err := config.ValidateEntityName(t.ID, "template"); err != nil {
		errors = append(errors, err.(config.ValidationError))
	}
	if t.Template == "" {
		errors.Add("template", "cannot be empty")
	} else if err := c.engine.ValidateTemplate(&t); err != nil {
		errors.Add("template", err.Error())
	}
	if t.OutputSchema != nil {
		if err := t.OutputSchema.Check(); err != nil {
			errors.Add("output_schema", err.Error())
		}
	}

	if errors.HasErrors() {
		return config.FormatValidationError("template", t.ID, errors)
	}
	return nil
}

var _ api.ToolCatalog = (*Catalog)(nil)
