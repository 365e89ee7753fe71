package variables

import (
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// Snapshot is a point-in-time copy of a store, including registrations,
// values and cached file content.
type Snapshot struct {
	entries map[string]entry
	order   []string
	files   map[string]string
}

// Len returns the number of variables in the snapshot.
func (sn Snapshot) Len() int {
	return len(sn.order)
}

// Snapshot copies the current state of the store. Values are deep-copied.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sn := Snapshot{
		entries: make(map[string]entry, len(s.entries)),
		order:   append([]string(nil), s.order...),
		files:   make(map[string]string, len(s.files)),
	}
	for name, e := range s.entries {
		cp := *e
		cp.value = schema.CopyValue(e.value)
		sn.entries[name] = cp
	}
	for id, content := range s.files {
		sn.files[id] = content
	}
	return sn
}

// Restore replaces the store's state with a snapshot. Variables registered
// after the snapshot was taken are removed.
func (s *Store) Restore(sn Snapshot) {
	s.mu.Lock()
	s.entries = make(map[string]*entry, len(sn.entries))
	for name, e := range sn.entries {
		cp := e
		cp.value = schema.CopyValue(e.value)
		s.entries[name] = &cp
	}
	s.order = append([]string(nil), sn.order...)
	s.files = make(map[string]string, len(sn.files))
	for id, content := range sn.files {
		s.files[id] = content
	}
	s.mu.Unlock()

	logging.Debug("Store", "Restored snapshot with %d variables", sn.Len())
	s.changed()
}
