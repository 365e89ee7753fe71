// Package engine executes, evaluates and validates workflow steps against a
// variables.Store.
//
// ExecuteStep runs one action step: it resolves the parameter mappings into
// concrete values, dereferences file handles through the FileContentFetcher,
// invokes the tool and writes the mapped outputs back. Output variables that
// do not exist yet are registered before any value is written. A failure at
// any point restores the store to its state before the step.
//
// EvaluateStep decides the branch of an evaluation step and records it in the
// step's "<id>_result" variable. NextIndex and ResolveNextIndex turn that
// record into the next step index; targets that cannot be resolved fall back
// to the next step.
package engine
