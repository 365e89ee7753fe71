package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/config"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// ExecutionStorageImpl implements api.ExecutionStorage on top of config.Storage.
// Each record is stored as its own file named after the execution id.
type ExecutionStorageImpl struct {
	storage *config.Storage
	mu      sync.Mutex
	cache   map[string]api.ExecutionRecord // summaries for listing, without parameters and outputs
}

// NewExecutionStorage creates an execution storage below configPath.
func NewExecutionStorage(configPath string) *ExecutionStorageImpl {
	if configPath == "" {
		panic("Logic error: empty execution storage configPath")
	}
	return &ExecutionStorageImpl{
		storage: config.NewStorageWithPath(configPath),
		cache:   make(map[string]api.ExecutionRecord),
	}
}

// Store persists an execution record, replacing any earlier version.
func (es *ExecutionStorageImpl) Store(ctx context.Context, record *api.ExecutionRecord) error {
	if record == nil || record.ExecutionID == "" {
		return fmt.Errorf("execution record needs an id")
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", record.ExecutionID, err)
	}
	if err := es.storage.Save(config.EntityExecutions, record.ExecutionID, data); err != nil {
		return fmt.Errorf("failed to save execution %s: %w", record.ExecutionID, err)
	}

	es.cache[record.ExecutionID] = summarize(record)

	logging.Debug("ExecutionStorage", "Stored execution %s for step %s", record.ExecutionID, record.StepID)
	return nil
}

// Get loads the complete record of an execution.
func (es *ExecutionStorageImpl) Get(ctx context.Context, executionID string) (*api.ExecutionRecord, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	return es.load(executionID)
}

// List returns a page of execution records, most recent first. Listed
// records omit parameters and outputs; use Get for the full record.
func (es *ExecutionStorageImpl) List(ctx context.Context, req *api.ListExecutionsRequest) (*api.ListExecutionsResponse, error) {
	if req == nil {
		req = &api.ListExecutionsRequest{}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	if err := es.refreshCache(); err != nil {
		return nil, fmt.Errorf("failed to refresh execution cache: %w", err)
	}

	var filtered []api.ExecutionRecord
	for _, record := range es.cache {
		if req.WorkflowName != "" && record.WorkflowName != req.WorkflowName {
			continue
		}
		if req.Status != "" && record.Status != req.Status {
			continue
		}
		filtered = append(filtered, record)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].StartedAt.Equal(filtered[j].StartedAt) {
			return filtered[i].ExecutionID < filtered[j].ExecutionID
		}
		return filtered[i].StartedAt.After(filtered[j].StartedAt)
	})

	total := len(filtered)
	page := []api.ExecutionRecord{}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		page = append(page, filtered[offset:end]...)
	}

	logging.Debug("ExecutionStorage", "Listed %d executions (total: %d, offset: %d, limit: %d)",
		len(page), total, offset, limit)

	return &api.ListExecutionsResponse{
		Executions: page,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    offset+len(page) < total,
	}, nil
}

// Delete removes an execution record.
func (es *ExecutionStorageImpl) Delete(ctx context.Context, executionID string) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	if err := es.storage.Delete(config.EntityExecutions, executionID); err != nil {
		if api.IsNotFound(err) {
			return api.NewNotFoundError("execution", executionID)
		}
		return fmt.Errorf("failed to delete execution %s: %w", executionID, err)
	}
	delete(es.cache, executionID)

	logging.Debug("ExecutionStorage", "Deleted execution %s", executionID)
	return nil
}

func (es *ExecutionStorageImpl) load(executionID string) (*api.ExecutionRecord, error) {
	data, err := es.storage.Load(config.EntityExecutions, executionID)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, api.NewNotFoundError("execution", executionID)
		}
		return nil, fmt.Errorf("failed to load execution %s: %w", executionID, err)
	}

	var record api.ExecutionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", executionID, err)
	}
	return &record, nil
}

// refreshCache picks up records written by other processes and forgets
// records whose files are gone.
func (es *ExecutionStorageImpl) refreshCache() error {
	names, err := es.storage.List(config.EntityExecutions)
	if err != nil {
		return err
	}

	existing := make(map[string]bool, len(names))
	for _, id := range names {
		existing[id] = true
		if _, ok := es.cache[id]; ok {
			continue
		}
		record, err := es.load(id)
		if err != nil {
			logging.Warn("ExecutionStorage", "Failed to load execution %s for caching: %v", id, err)
			continue
		}
		es.cache[id] = summarize(record)
	}

	for id := range es.cache {
		if !existing[id] {
			delete(es.cache, id)
		}
	}
	return nil
}

func summarize(record *api.ExecutionRecord) api.ExecutionRecord {
	summary := *record
	summary.Parameters = nil
	summary.Outputs = nil
	return summary
}
