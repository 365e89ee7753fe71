package cmd

import (
	"context"
	"fmt"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/config"
	"github.com/cliff-rosen/orchestrator-sub003/internal/engine"
	"github.com/cliff-rosen/orchestrator-sub003/internal/files"
	"github.com/cliff-rosen/orchestrator-sub003/internal/tools"
	"github.com/cliff-rosen/orchestrator-sub003/internal/variables"
	"github.com/cliff-rosen/orchestrator-sub003/internal/workflow"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// app holds the components shared by the commands, wired from one
// configuration directory.
type app struct {
	cfg        config.FlowConfig
	catalog    *tools.Catalog
	watcher    *tools.Watcher
	mcp        *tools.MCPInvoker
	files      *files.DirFetcher
	engine     *engine.Engine
	workflows  *workflow.WorkflowManager
	executions *workflow.ExecutionStorageImpl
	tracker    *workflow.ExecutionTracker
}

type appOptions struct {
	// connect starts MCP servers that import tools and enables the language model
	connect bool
	// watch reloads the catalog when its files change
	watch bool
}

// newApp loads the configuration below path and wires the catalog, the tool
// invokers, the file fetcher, the engine and workflow storage.
func newApp(ctx context.Context, path string, opts appOptions) (*app, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if !rootCmd.PersistentFlags().Changed("log-level") {
		if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
			logging.InitForCLI(level, rootCmd.ErrOrStderr())
		}
	}

	a := &app{cfg: cfg}
	a.catalog = tools.NewCatalog(cfg.CatalogDir)
	if err := a.catalog.Load(); err != nil {
		return nil, fmt.Errorf("failed to load tool catalog: %w", err)
	}

	a.mcp = tools.NewMCPInvoker(cfg.MCPServers, GetVersion(), nil)
	routerOpts := []tools.RouterOption{}
	if len(cfg.MCPServers) > 0 {
		routerOpts = append(routerOpts, tools.WithRemote(a.mcp))
	}

	if opts.connect {
		a.importServerTools(ctx)

		if cfg.OpenAI.APIKey != "" {
			backend, err := tools.NewOpenAIBackend(cfg.OpenAI)
			if err != nil {
				return nil, err
			}
			routerOpts = append(routerOpts, tools.WithLLM(tools.NewLLMInvoker(a.catalog, backend)))
		} else {
			logging.Info("App", "No OpenAI API key configured, language model tools are unavailable")
		}
	}
	router := tools.NewRouter(routerOpts...)

	a.files = files.NewDirFetcher(cfg.FilesDir)
	fetcher := files.NewSingleFlight(a.files)

	a.engine = engine.New(a.catalog, router, fetcher,
		engine.WithToolTimeout(cfg.ToolTimeout),
		engine.WithEventCallback(engine.EventCallbackFunc(func(stepID, eventType string, data map[string]interface{}) {
			logging.Debug("Engine", "Step %s: %s %v", stepID, eventType, data)
		})),
	)

	api.RegisterToolCatalog(a.catalog)
	api.RegisterToolInvoker(router)
	api.RegisterFileContentFetcher(fetcher)

	a.workflows = workflow.NewWorkflowManager(config.NewStorageWithPath(path), a.catalog)
	if err := a.workflows.LoadDefinitions(); err != nil {
		return nil, err
	}

	a.executions = workflow.NewExecutionStorage(path)
	a.tracker = workflow.NewExecutionTracker(a.executions)

	if opts.watch && cfg.WatchCatalog {
		a.watcher = tools.NewWatcher(a.catalog, 0)
		if err := a.watcher.Start(ctx); err != nil {
			logging.Warn("App", "Catalog hot reload disabled: %v", err)
			a.watcher = nil
		}
	}
	return a, nil
}

func (a *app) importServerTools(ctx context.Context) {
	for _, server := range a.cfg.MCPServers {
		if !server.ImportTools {
			continue
		}
		imported, err := a.mcp.ImportTools(ctx, server.Name)
		if err != nil {
			logging.Warn("App", "Failed to import tools from MCP server %s: %v", server.Name, err)
			continue
		}
		if err := a.catalog.AddTools(server.Name, imported...); err != nil {
			logging.Warn("App", "Some tools from MCP server %s were rejected: %v", server.Name, err)
		}
	}
}

// newStore creates a variable store honouring the strict variables setting.
func (a *app) newStore() *variables.Store {
	return variables.NewStore(variables.WithStrict(a.cfg.StrictVariables))
}

// Close stops the watcher and any started MCP servers.
func (a *app) Close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if err := a.mcp.Close(); err != nil {
		logging.Warn("App", "Failed to stop MCP servers: %v", err)
	}
}
