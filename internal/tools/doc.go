// Package tools provides the tool catalog and the invokers that run tools.
//
// The Catalog starts with the built-in seed tools (echo, concatenate,
// search, retrieve and llm) and prompt templates (question-improver and
// answer-generator). Definitions under <catalog>/tools and
// <catalog>/templates replace or extend them; a Watcher reloads them when
// the files change and every reload is published as an
// api.CatalogUpdateEvent.
//
// A tool file looks like:
//
//	tool_id: summarize
//	name: Summarizer
//	tool_type: mcp
//	server: docs
//	remote_name: summarize_text
//	signature:
//	  parameters:
//	  - name: text
//	    schema: {type: string}
//	    required: true
//	  outputs:
//	  - name: summary
//	    schema: {type: string}
//
// Router is the api.ToolInvoker handed to the engine. It runs utility tools
// in process, sends language-model tools to an LLMInvoker and search,
// retrieve and mcp tools to an MCPInvoker, which starts the configured MCP
// servers as local processes on first use.
package tools
