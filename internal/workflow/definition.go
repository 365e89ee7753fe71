package workflow

import (
	"fmt"
	"sort"
	"time"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/engine"
	"github.com/cliff-rosen/orchestrator-sub003/internal/variables"

	"sigs.k8s.io/yaml"
)

// ParseDefinition decodes a workflow definition from YAML or JSON.
func ParseDefinition(data []byte) (*api.Workflow, error) {
	var wf api.Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow definition: %w", err)
	}
	return &wf, nil
}

// MarshalDefinition encodes a workflow definition as YAML.
func MarshalDefinition(wf *api.Workflow) ([]byte, error) {
	data, err := yaml.Marshal(wf)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow %s: %w", wf.Name, err)
	}
	return data, nil
}

// FromWorkflow builds an instance in edit mode from a definition. Steps are
// ordered by sequence number, keeping the listed order for ties, and bound to
// their tools in the engine's catalog.
func FromWorkflow(wf *api.Workflow, eng *engine.Engine, store *variables.Store, opts ...InstanceOption) (*Instance, error) {
	if store == nil {
		store = variables.NewStore()
	}
	for _, def := range wf.Variables {
		if err := declare(store, def); err != nil {
			return nil, fmt.Errorf("workflow %s: %w", wf.Name, err)
		}
	}

	steps := make([]api.Step, 0, len(wf.Steps))
	for idx := range wf.Steps {
		steps = append(steps, *wf.Steps[idx].Clone())
	}
	sort.SliceStable(steps, func(a, b int) bool {
		return steps[a].SequenceNumber < steps[b].SequenceNumber
	})
	for idx := range steps {
		steps[idx].SequenceNumber = idx
		if steps[idx].ID == "" {
			return nil, fmt.Errorf("workflow %s: step %d has no id", wf.Name, idx)
		}
	}

	i := NewInstance(wf.Name, eng, append([]InstanceOption{WithStore(store)}, opts...)...)
	i.description = wf.Description
	i.steps = steps
	for idx := range i.steps {
		i.bind(&i.steps[idx])
	}
	if !wf.CreatedAt.IsZero() {
		i.createdAt = wf.CreatedAt
	}
	return i, nil
}

// Workflow returns the definition of the instance. Variable values are
// included only for input variables, so that a saved workflow can be run
// again with the same inputs.
func (i *Instance) Workflow() *api.Workflow {
	i.mu.Lock()
	defer i.mu.Unlock()

	wf := &api.Workflow{
		Name:         i.name,
		Description:  i.description,
		CreatedAt:    i.createdAt,
		LastModified: time.Now(),
	}
	for _, v := range i.store.Variables() {
		def := api.VariableDefinition{
			Name:        v.Name,
			Role:        v.Role,
			Schema:      v.Schema,
			Description: v.Description,
		}
		if v.Role == api.RoleInput {
			required := v.Required
			def.Required = &required
			if v.HasValue {
				def.Value = v.Value
			}
		}
		wf.Variables = append(wf.Variables, def)
	}
	for idx := range i.steps {
		wf.Steps = append(wf.Steps, *i.steps[idx].Unbound())
	}
	return wf
}
