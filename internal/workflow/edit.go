package workflow

import (
	"fmt"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/variables"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"

	"github.com/google/uuid"
)

// AddStep appends a step and returns its id. A step without an id gets a
// generated one.
func (i *Instance) AddStep(step api.Step) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.executing {
		return "", api.ErrExecutionInProgress
	}

	s := step.Clone()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.ID == InputStepID {
		return "", fmt.Errorf("step id %s is reserved", InputStepID)
	}
	if i.indexOfLocked(s.ID) >= 0 {
		return "", fmt.Errorf("step %s already exists", s.ID)
	}
	if s.Type == "" {
		s.Type = api.StepTypeAction
	}

	i.bind(s)
	i.steps = append(i.steps, *s)
	i.editedLocked()
	logging.Debug("Workflow", "Added step %s to workflow %s", s.ID, i.name)
	return s.ID, nil
}

// UpdateStep replaces the step with the same id and binds its tool again.
func (i *Instance) UpdateStep(step api.Step) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.executing {
		return api.ErrExecutionInProgress
	}

	idx := i.indexOfLocked(step.ID)
	if idx < 0 {
		return api.NewNotFoundError("step", step.ID)
	}
	s := step.Clone()
	i.bind(s)
	i.steps[idx] = *s
	i.editedLocked()
	return nil
}

// RemoveStep deletes a step. Jumps that targeted it are left for validation
// to report.
func (i *Instance) RemoveStep(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.executing {
		return api.ErrExecutionInProgress
	}

	idx := i.indexOfLocked(id)
	if idx < 0 {
		return api.NewNotFoundError("step", id)
	}
	i.steps = append(i.steps[:idx], i.steps[idx+1:]...)
	delete(i.jumps, id)
	i.editedLocked()
	logging.Debug("Workflow", "Removed step %s from workflow %s", id, i.name)
	return nil
}

// MoveStep moves a step to a new edit-mode position.
func (i *Instance) MoveStep(id string, to int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.executing {
		return api.ErrExecutionInProgress
	}

	from := i.indexOfLocked(id)
	if from < 0 {
		return api.NewNotFoundError("step", id)
	}
	if to < 0 || to >= len(i.steps) {
		return fmt.Errorf("position %d out of range [0, %d)", to, len(i.steps))
	}
	if from == to {
		return nil
	}

	step := i.steps[from]
	i.steps = append(i.steps[:from], i.steps[from+1:]...)
	i.steps = append(i.steps[:to], append([]api.Step{step}, i.steps[to:]...)...)
	i.editedLocked()
	return nil
}

// DeclareVariable adds or replaces a workflow variable. A value that no
// longer fits the new schema is cleared.
func (i *Instance) DeclareVariable(def api.VariableDefinition) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.executing {
		return api.ErrExecutionInProgress
	}

	if err := declare(i.store, def); err != nil {
		return err
	}
	i.editedLocked()
	return nil
}

// RemoveVariable deletes a variable. Steps still mapping it fail validation.
func (i *Instance) RemoveVariable(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.executing {
		return api.ErrExecutionInProgress
	}
	if !i.store.Has(name) {
		return &api.UnknownVariableError{Name: name}
	}

	i.store.RemoveSchema(name)
	i.editedLocked()
	return nil
}

// SetDescription changes the workflow description.
func (i *Instance) SetDescription(description string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.description = description
	i.dirty = true
}

func declare(store *variables.Store, def api.VariableDefinition) error {
	role := def.Role
	if role == "" {
		role = api.RoleIntermediate
	}
	if def.Schema == nil {
		return fmt.Errorf("variable %s has no schema", def.Name)
	}
	if err := store.SetSchema(def.Name, def.Schema, role); err != nil {
		return err
	}
	if err := store.SetDescription(def.Name, def.Description); err != nil {
		return err
	}
	if role == api.RoleInput {
		if err := store.SetRequired(def.Name, def.IsRequired()); err != nil {
			return err
		}
	}
	if def.Value != nil {
		if err := store.SetValue(def.Name, def.Value); err != nil {
			return fmt.Errorf("seed value of %s: %w", def.Name, err)
		}
	}
	return nil
}

func (i *Instance) indexOfLocked(id string) int {
	for idx := range i.steps {
		if i.steps[idx].ID == id {
			return idx
		}
	}
	return -1
}

// editedLocked renumbers the steps and keeps the active index in range.
func (i *Instance) editedLocked() {
	for idx := range i.steps {
		i.steps[idx].SequenceNumber = idx
	}
	if count := i.stepCountLocked(); i.activeIndex > count {
		i.activeIndex = count
	}
	i.stepExecuted = false
	i.dirty = true
}
