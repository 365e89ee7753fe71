// Package api holds the shared types of the workflow engine and the contracts
// between its packages.
//
// The engine, the workflow state machine and the tool implementations never
// import each other for their collaborators. They depend on the interfaces
// defined here:
//
//   - ToolInvoker executes a tool with resolved parameters
//   - FileContentFetcher dereferences file handles
//   - ToolCatalog resolves tools and prompt templates by id
//   - WorkflowStorage and ExecutionStorage persist definitions and records
//
// Concrete implementations are registered at startup with RegisterToolCatalog,
// RegisterToolInvoker and RegisterFileContentFetcher, and looked up with the
// matching Get functions.
//
// # Errors
//
// Every failure kind of the engine has a typed error with an Is helper, for
// example IsSchemaMismatch or IsDanglingMapping. Callers branch on the helper,
// never on message text.
//
// # Language-model tools
//
// A language-model tool has no static signature. SignatureOf derives it from
// the selected PromptTemplate: one string parameter per template token and
// either one output per field of an object output schema or a single
// "response" output.
package api
