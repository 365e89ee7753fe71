package variables

import (
	"fmt"
	"sync"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// Variable is a read-only view of a store entry.
type Variable struct {
	Name        string
	Role        api.VariableRole
	Schema      *schema.Schema
	Description string
	Required    bool
	Value       any
	HasValue    bool
}

type entry struct {
	role        api.VariableRole
	schema      *schema.Schema
	description string
	required    bool
	value       any
	set         bool
}

// Store holds the variables of one workflow instance. Variables keep their
// registration order, which is the order used for listing and rendering.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	order     []string
	files     map[string]string
	strict    bool
	onChanged func()
}

// Option configures a Store.
type Option func(*Store)

// WithStrict makes SetValue validate values against the variable schema.
func WithStrict(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

// WithChangeHook registers a function called after every mutation.
func WithChangeHook(fn func()) Option {
	return func(s *Store) { s.onChanged = fn }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		files:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strict reports whether values are validated on write.
func (s *Store) Strict() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strict
}

// SetSchema registers a variable or replaces its schema and role. A current
// value is kept when it still validates against the new schema and cleared
// otherwise; it is never coerced. New input variables are required.
func (s *Store) SetSchema(name string, sch *schema.Schema, role api.VariableRole) error {
	if name == "" {
		return fmt.Errorf("variable name must not be empty")
	}
	if !role.Valid() {
		return fmt.Errorf("variable %s: unknown role %q", name, role)
	}
	if err := sch.Check(); err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}

	s.mu.Lock()
	e, exists := s.entries[name]
	if !exists {
		e = &entry{required: role == api.RoleInput}
		s.entries[name] = e
		s.order = append(s.order, name)
	} else if e.set && sch.Validate(e.value) != nil {
		logging.Debug("Store", "Clearing value of %s: no longer matches %s", name, sch)
		e.value = nil
		e.set = false
	}
	e.schema = sch.Clone()
	e.role = role
	s.mu.Unlock()

	logging.Debug("Store", "Registered %s variable %s: %s", role, name, sch)
	s.changed()
	return nil
}

// SetValue writes a variable value. It fails with an UnknownVariableError when
// the variable is not registered and, in strict mode, with a
// SchemaMismatchError when the value does not match the schema.
func (s *Store) SetValue(name string, value any) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	if !ok {
		s.mu.Unlock()
		return &api.UnknownVariableError{Name: name}
	}
	if s.strict {
		if err := e.schema.Validate(value); err != nil {
			s.mu.Unlock()
			return &api.SchemaMismatchError{Variable: name, Expected: e.schema.String(), Reason: err.Error()}
		}
	}
	e.value = value
	e.set = true
	s.mu.Unlock()

	s.changed()
	return nil
}

// ClearValue unsets a variable value. Unknown names are ignored.
func (s *Store) ClearValue(name string) {
	s.mu.Lock()
	if e, ok := s.entries[name]; ok {
		e.value = nil
		e.set = false
	}
	s.mu.Unlock()
	s.changed()
}

// GetValue returns the value of a variable. The second result is false when
// the variable is unknown or has no value.
func (s *Store) GetValue(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok || !e.set {
		return nil, false
	}
	return e.value, true
}

// Schema returns the schema of a registered variable.
func (s *Store) Schema(name string) (*schema.Schema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	return e.schema, true
}

// Has reports whether a variable is registered.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[name]
	return ok
}

// Get returns a view of one variable.
func (s *Store) Get(name string) (Variable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return Variable{}, false
	}
	return view(name, e), true
}

// RemoveSchema deletes a variable and its value.
func (s *Store) RemoveSchema(name string) {
	s.mu.Lock()
	if _, ok := s.entries[name]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.entries, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	logging.Debug("Store", "Removed variable %s", name)
	s.changed()
}

// SetDescription updates the description of a registered variable.
func (s *Store) SetDescription(name, description string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	if ok {
		e.description = description
	}
	s.mu.Unlock()
	if !ok {
		return &api.UnknownVariableError{Name: name}
	}
	s.changed()
	return nil
}

// SetRequired marks an input variable as required or optional.
func (s *Store) SetRequired(name string, required bool) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	if ok {
		e.required = required
	}
	s.mu.Unlock()
	if !ok {
		return &api.UnknownVariableError{Name: name}
	}
	s.changed()
	return nil
}

// ListByRole returns the names of all variables with the given role in
// registration order.
func (s *Store) ListByRole(role api.VariableRole) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for _, name := range s.order {
		if s.entries[name].role == role {
			names = append(names, name)
		}
	}
	return names
}

// Variables returns a view of every variable in registration order.
func (s *Store) Variables() []Variable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Variable, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, view(name, s.entries[name]))
	}
	return out
}

// MissingInputs returns the required input variables without a value.
func (s *Store) MissingInputs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var missing []string
	for _, name := range s.order {
		e := s.entries[name]
		if e.role == api.RoleInput && e.required && !e.set {
			missing = append(missing, name)
		}
	}
	return missing
}

// IsInputRequired reports whether any required input variable has no value.
func (s *Store) IsInputRequired() bool {
	return len(s.MissingInputs()) > 0
}

// ClearValues unsets the values of all variables with one of the given roles.
// Schemas are kept.
func (s *Store) ClearValues(roles ...api.VariableRole) {
	s.mu.Lock()
	cleared := 0
	for _, name := range s.order {
		e := s.entries[name]
		for _, role := range roles {
			if e.role == role && e.set {
				e.value = nil
				e.set = false
				cleared++
				break
			}
		}
	}
	s.mu.Unlock()

	logging.Debug("Store", "Cleared %d values for roles %v", cleared, roles)
	s.changed()
}

// CacheFileContent remembers the fetched content of a file so it is not
// fetched again. File variable schemas and handles are left untouched.
func (s *Store) CacheFileContent(fileID, content string) {
	s.mu.Lock()
	s.files[fileID] = content
	s.mu.Unlock()
}

// FileContent returns cached file content.
func (s *Store) FileContent(fileID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.files[fileID]
	return content, ok
}

func (s *Store) changed() {
	if s.onChanged != nil {
		s.onChanged()
	}
}

func view(name string, e *entry) Variable {
	return Variable{
		Name:        name,
		Role:        e.role,
		Schema:      e.schema,
		Description: e.description,
		Required:    e.required,
		Value:       e.value,
		HasValue:    e.set,
	}
}
