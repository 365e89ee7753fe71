// Package logging provides subsystem-tagged, leveled logging for flowctl.
//
// It is a thin layer over the standard slog package: every entry carries a
// subsystem attribute and an optional error attribute, and entries below the
// configured level are dropped before formatting.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Workflow", "Loaded workflow %s", name)
//	logging.Debug("Engine", "Resolved %d parameters for step %s", n, stepID)
//	logging.Warn("Catalog", "Skipping malformed tool file %s", path)
//	logging.Error("Engine", err, "Step %s failed", stepID)
//
// # Subsystems
//
// Logs are organized by subsystem:
//
//   - **CLI**: command handling and the interactive runner
//   - **Config**: configuration loading
//   - **Storage**: definition and execution persistence
//   - **Store**: variable store mutations
//   - **Engine**: step validation, execution and jump resolution
//   - **Workflow**: the workflow state machine
//   - **Catalog**, **Router**, **LLMTool**, **MCPTool**: tool catalog and invocation
//   - **Files**: file content fetching
//
// Until InitForCLI is called only errors are written, directly to stderr.
package logging
