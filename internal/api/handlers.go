package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// Handler registry variables store the registered implementations.
// These variables are protected by handlerMutex for thread-safe access.
var (
	toolCatalog  ToolCatalog
	toolInvoker  ToolInvoker
	fileFetcher  FileContentFetcher
	handlerMutex sync.RWMutex

	catalogSubscribers []CatalogSubscriber
	catalogMutex       sync.Mutex
)

// CatalogUpdateEvent describes a reload of the tool catalog.
type CatalogUpdateEvent struct {
	// Source is the directory or server that triggered the reload
	Source    string    `json:"source"`
	Tools     []string  `json:"tools"`
	Templates []string  `json:"templates"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// CatalogSubscriber is notified after the tool catalog changes.
type CatalogSubscriber interface {
	OnCatalogUpdated(event CatalogUpdateEvent)
}

// RegisterToolCatalog registers the catalog used to resolve tools and prompt
// templates. Subsequent registrations replace the previous one.
//
// Example:
//
//	cat := tools.NewCatalog()
//	api.RegisterToolCatalog(cat)
func RegisterToolCatalog(c ToolCatalog) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	logging.Debug("API", "Registering tool catalog: %v", c != nil)
	toolCatalog = c
}

// GetToolCatalog returns the registered tool catalog, or nil.
func GetToolCatalog() ToolCatalog {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return toolCatalog
}

// RegisterToolInvoker registers the invoker that executes tools.
func RegisterToolInvoker(i ToolInvoker) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	logging.Debug("API", "Registering tool invoker: %v", i != nil)
	toolInvoker = i
}

// GetToolInvoker returns the registered tool invoker, or nil.
func GetToolInvoker() ToolInvoker {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return toolInvoker
}

// RegisterFileContentFetcher registers the fetcher used to dereference file
// handles.
func RegisterFileContentFetcher(f FileContentFetcher) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	logging.Debug("API", "Registering file content fetcher: %v", f != nil)
	fileFetcher = f
}

// GetFileContentFetcher returns the registered fetcher, or nil.
func GetFileContentFetcher() FileContentFetcher {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return fileFetcher
}

// SubscribeToCatalogUpdates adds a subscriber for catalog reloads.
// Subscriber callbacks run in their own goroutine and must not block.
func SubscribeToCatalogUpdates(subscriber CatalogSubscriber) {
	catalogMutex.Lock()
	defer catalogMutex.Unlock()
	catalogSubscribers = append(catalogSubscribers, subscriber)
	logging.Debug("API", "Added catalog subscriber, total subscribers: %d", len(catalogSubscribers))
}

// PublishCatalogUpdate notifies all subscribers of a catalog reload.
// Panics in subscriber callbacks are recovered and logged.
func PublishCatalogUpdate(event CatalogUpdateEvent) {
	catalogMutex.Lock()
	subscribers := make([]CatalogSubscriber, len(catalogSubscribers))
	copy(subscribers, catalogSubscribers)
	catalogMutex.Unlock()

	logging.Debug("API", "Publishing catalog update: source=%s, tools=%d, templates=%d, subscribers=%d",
		event.Source, len(event.Tools), len(event.Templates), len(subscribers))

	for _, subscriber := range subscribers {
		go func(s CatalogSubscriber) {
			defer func() {
				if r := recover(); r != nil {
					logging.Error("API", fmt.Errorf("panic in catalog subscriber: %v", r), "Catalog subscriber panicked")
				}
			}()
			s.OnCatalogUpdated(event)
		}(subscriber)
	}
}

// resetHandlers clears all registrations. Used by tests.
func resetHandlers() {
	handlerMutex.Lock()
	toolCatalog = nil
	toolInvoker = nil
	fileFetcher = nil
	handlerMutex.Unlock()

	catalogMutex.Lock()
	catalogSubscribers = nil
	catalogMutex.Unlock()
}
