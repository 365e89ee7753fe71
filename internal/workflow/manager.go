package workflow

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/config"
	"github.com/cliff-rosen/orchestrator-sub003/internal/engine"
	"github.com/cliff-rosen/orchestrator-sub003/internal/variables"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// WorkflowManager keeps the workflow definitions of a configuration
// directory and persists changes to them. It implements api.WorkflowStorage.
type WorkflowManager struct {
	storage   *config.Storage
	workflows map[string]*api.Workflow
	catalog   api.ToolCatalog
	mu        sync.RWMutex
}

// NewWorkflowManager creates a manager over storage. The catalog is used to
// report workflows whose tools are missing; it may be nil.
func NewWorkflowManager(storage *config.Storage, catalog api.ToolCatalog) *WorkflowManager {
	wm := &WorkflowManager{
		storage:   storage,
		workflows: make(map[string]*api.Workflow),
		catalog:   catalog,
	}

	api.SubscribeToCatalogUpdates(wm)
	logging.Debug("WorkflowManager", "Subscribed to catalog update events")
	return wm
}

// LoadDefinitions loads all workflow definitions from the workflows
// directory. Broken files are logged and skipped.
func (wm *WorkflowManager) LoadDefinitions() error {
	dir, err := wm.storage.EntityDir(config.EntityWorkflows)
	if err != nil {
		return err
	}

	definitions, errorCollection, err := config.LoadAndParseYAML(dir, config.EntityWorkflows, func(def api.Workflow) error {
		return validateWorkflowDefinition(&def)
	})
	if err != nil {
		logging.Warn("WorkflowManager", "Error loading workflows: %v", err)
		return err
	}
	if errorCollection.HasErrors() {
		logging.Warn("WorkflowManager", "Some workflow files had errors:\n%s", errorCollection.GetSummary())
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.workflows = make(map[string]*api.Workflow, len(definitions))
	for i := range definitions {
		def := definitions[i]
		wm.workflows[def.Name] = &def
	}

	logging.Info("WorkflowManager", "Loaded %d workflows from %s", len(definitions), dir)
	return nil
}

// validateWorkflowDefinition checks the structure of a definition. Tool and
// mapping checks need a variable store and are done by the engine.
func validateWorkflowDefinition(def *api.Workflow) error {
	var errors config.ValidationErrors

	if err := config.ValidateEntityName(def.Name, "workflow"); err != nil {
		errors = append(errors, err.(config.ValidationError))
	}

	vars := make(map[string]bool)
	for i, v := range def.Variables {
		field := fmt.Sprintf("variables[%d]", i)
		if v.Name == "" {
			errors.Add(field+".name", "variable name cannot be empty")
			continue
		}
		if vars[v.Name] {
			errors.Add(field+".name", fmt.Sprintf("duplicate variable '%s'", v.Name))
		}
		vars[v.Name] = true
		if v.Role != "" && !v.Role.Valid() {
			errors.Add(field+".role", "must be one of: input, output, intermediate", v.Role)
		}
		if v.Schema == nil {
			errors.Add(field+".schema", "is required for variable")
		} else if err := v.Schema.Check(); err != nil {
			errors.Add(field+".schema", err.Error())
		}
	}

	ids := make(map[string]bool)
	for i, step := range def.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		if step.ID == "" {
			errors.Add(field+".id", "step ID cannot be empty")
			continue
		}
		if step.ID == InputStepID {
			errors.Add(field+".id", fmt.Sprintf("step ID '%s' is reserved", InputStepID))
		}
		if ids[step.ID] {
			errors.Add(field+".id", fmt.Sprintf("duplicate step ID '%s'", step.ID))
		}
		ids[step.ID] = true

		switch step.Type {
		case api.StepTypeInput, api.StepTypeAction, api.StepTypeEvaluation:
		default:
			errors.Add(field+".type", "must be one of: INPUT, ACTION, EVALUATION", step.Type)
		}
	}

	if errors.HasErrors() {
		return config.FormatValidationError("workflow", def.Name, errors)
	}
	return nil
}

// GetDefinition returns a copy of a workflow definition.
func (wm *WorkflowManager) GetDefinition(name string) (api.Workflow, bool) {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	wf, exists := wm.workflows[name]
	if !exists {
		return api.Workflow{}, false
	}
	return *wf, true
}

// ListDefinitions returns all workflow definitions ordered by name.
func (wm *WorkflowManager) ListDefinitions() []api.Workflow {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	workflows := make([]api.Workflow, 0, len(wm.workflows))
	for _, wf := range wm.workflows {
		workflows = append(workflows, *wf)
	}
	sort.Slice(workflows, func(i, j int) bool { return workflows[i].Name < workflows[j].Name })
	return workflows
}

// MissingTools returns the tools referenced by a workflow's action steps
// that the catalog does not know.
func (wm *WorkflowManager) MissingTools(name string) ([]string, error) {
	wm.mu.RLock()
	wf, exists := wm.workflows[name]
	wm.mu.RUnlock()
	if !exists {
		return nil, api.NewNotFoundError("workflow", name)
	}
	return wm.missingTools(wf), nil
}

// IsAvailable reports whether a workflow exists and all its tools are known.
func (wm *WorkflowManager) IsAvailable(name string) bool {
	missing, err := wm.MissingTools(name)
	return err == nil && len(missing) == 0
}

func (wm *WorkflowManager) missingTools(wf *api.Workflow) []string {
	if wm.catalog == nil {
		return nil
	}
	seen := make(map[string]bool)
	var missing []string
	for _, step := range wf.Steps {
		if step.Type != api.StepTypeAction || step.Tool == "" || seen[step.Tool] {
			continue
		}
		seen[step.Tool] = true
		if _, err := wm.catalog.GetTool(step.Tool); err != nil {
			missing = append(missing, step.Tool)
		}
	}
	return missing
}

// Open builds an instance of a workflow. A nil store creates a fresh one.
func (wm *WorkflowManager) Open(name string, eng *engine.Engine, store *variables.Store, opts ...InstanceOption) (*Instance, error) {
	wf, err := wm.Load(name)
	if err != nil {
		return nil, err
	}
	return FromWorkflow(wf, eng, store, opts...)
}

// Save validates and persists a workflow, creating or replacing it.
func (wm *WorkflowManager) Save(wf *api.Workflow) error {
	if err := validateWorkflowDefinition(wf); err != nil {
		return err
	}

	stored := *wf
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.LastModified = time.Now()

	data, err := MarshalDefinition(&stored)
	if err != nil {
		return err
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()
	if err := wm.storage.Save(config.EntityWorkflows, stored.Name, data); err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", stored.Name, err)
	}
	wm.workflows[stored.Name] = &stored

	logging.Info("WorkflowManager", "Saved workflow %s", stored.Name)
	return nil
}

// SaveInstance persists the definition of an instance and clears its
// unsaved-changes flag.
func (wm *WorkflowManager) SaveInstance(i *Instance) error {
	if err := wm.Save(i.Workflow()); err != nil {
		return err
	}
	i.MarkSaved()
	return nil
}

// Load returns a copy of a workflow definition, reading it from storage when
// it is not loaded yet.
func (wm *WorkflowManager) Load(name string) (*api.Workflow, error) {
	wm.mu.RLock()
	wf, exists := wm.workflows[name]
	wm.mu.RUnlock()
	if exists {
		out := *wf
		return &out, nil
	}

	data, err := wm.storage.Load(config.EntityWorkflows, name)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, api.NewNotFoundError("workflow", name)
		}
		return nil, err
	}
	loaded, err := ParseDefinition(data)
	if err != nil {
		return nil, err
	}
	if err := validateWorkflowDefinition(loaded); err != nil {
		return nil, err
	}

	wm.mu.Lock()
	wm.workflows[loaded.Name] = loaded
	wm.mu.Unlock()

	out := *loaded
	return &out, nil
}

// List returns the names of all loaded workflows.
func (wm *WorkflowManager) List() ([]string, error) {
	defs := wm.ListDefinitions()
	names := make([]string, 0, len(defs))
	for _, wf := range defs {
		names = append(names, wf.Name)
	}
	return names, nil
}

// Delete removes a workflow from memory and storage.
func (wm *WorkflowManager) Delete(name string) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if err := wm.storage.Delete(config.EntityWorkflows, name); err != nil {
		if api.IsNotFound(err) {
			return api.NewNotFoundError("workflow", name)
		}
		return fmt.Errorf("failed to delete workflow %s: %w", name, err)
	}
	delete(wm.workflows, name)

	logging.Info("WorkflowManager", "Deleted workflow %s", name)
	return nil
}

// OnCatalogUpdated implements api.CatalogSubscriber. Workflows whose tools
// disappeared from the catalog are logged; availability is always checked
// on demand.
func (wm *WorkflowManager) OnCatalogUpdated(event api.CatalogUpdateEvent) {
	if event.Error != "" {
		return
	}
	for _, wf := range wm.ListDefinitions() {
		if missing := wm.missingTools(&wf); len(missing) > 0 {
			logging.Warn("WorkflowManager", "Workflow %s references unknown tools after catalog update from %s: %v",
				wf.Name, event.Source, missing)
		}
	}
}

var _ api.WorkflowStorage = (*WorkflowManager)(nil)
var _ api.CatalogSubscriber = (*WorkflowManager)(nil)
