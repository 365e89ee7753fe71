package tools

import (
	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
)

// Seed tool and template ids.
const (
	ToolEcho        = "echo"
	ToolConcatenate = "concatenate"
	ToolSearch      = "search"
	ToolRetrieve    = "retrieve"
	ToolLLM         = "llm"

	TemplateQuestionImprover = "question-improver"
	TemplateAnswerGenerator  = "answer-generator"
)

// DefaultSearchServer is the MCP server the seed search and retrieve tools
// run on unless a catalog file overrides them.
const DefaultSearchServer = "search"

func slot(name, description string, s *schema.Schema) api.Slot {
	return api.Slot{
		Name:        name,
		Description: description,
		Schema:      s.WithDescription(description),
		Required:    true,
	}
}

// SeedTools returns the built-in tools.
func SeedTools() []api.Tool {
	return []api.Tool{
		{
			ID:          ToolEcho,
			Name:        "Echo Tool",
			Description: "Echoes back the input with a prefix",
			Type:        api.ToolTypeUtility,
			Signature: api.Signature{
				Parameters: []api.Slot{slot("input", "The input to echo", schema.String())},
				Outputs:    []api.Slot{slot("output", "The echoed output", schema.String())},
			},
		},
		{
			ID:          ToolConcatenate,
			Name:        "Concatenate Tool",
			Description: "Concatenates two strings",
			Type:        api.ToolTypeUtility,
			Signature: api.Signature{
				Parameters: []api.Slot{
					slot("first", "First string to concatenate", schema.String()),
					slot("second", "Second string to concatenate", schema.String()),
				},
				Outputs: []api.Slot{slot("result", "The concatenated result", schema.String())},
			},
		},
		{
			ID:          ToolSearch,
			Name:        "Search Tool",
			Description: "Performs a web search",
			Type:        api.ToolTypeSearch,
			Server:      DefaultSearchServer,
			Signature: api.Signature{
				Parameters: []api.Slot{slot("query", "The search query text", schema.String())},
				Outputs: []api.Slot{slot("results", "Search results with title and snippet text",
					schema.Array(schema.String()))},
			},
		},
		{
			ID:          ToolRetrieve,
			Name:        "Retrieve Tool",
			Description: "Retrieves content from URLs",
			Type:        api.ToolTypeRetrieve,
			Server:      DefaultSearchServer,
			Signature: api.Signature{
				Parameters: []api.Slot{slot("urls", "URLs to retrieve content from", schema.Array(schema.String()))},
				Outputs: []api.Slot{slot("contents", "Retrieved content from each URL",
					schema.Array(schema.String()))},
			},
		},
		{
			ID:          ToolLLM,
			Name:        "Language Model",
			Description: "Executes prompts using a language model",
			Type:        api.ToolTypeLLM,
		},
	}
}

// SeedTemplates returns the built-in prompt templates.
func SeedTemplates() []api.PromptTemplate {
	return []api.PromptTemplate{
		{
			ID:          TemplateQuestionImprover,
			Name:        "Question Improver",
			Description: "Improves a research question for better results",
			Template: "Given the question: {{question}}, suggest improvements to make it more specific and answerable. " +
				"Reply in JSON format with the following fields: improvedQuestion, explanation.",
			Tokens: []string{"question"},
			OutputSchema: schema.Object(
				schema.NewField("improvedQuestion", schema.String().WithDescription("The improved version of the question")),
				schema.NewField("explanation", schema.String().WithDescription("Explanation of the improvements made")),
			).WithDescription("Improved question with explanation"),
		},
		{
			ID:           TemplateAnswerGenerator,
			Name:         "Answer Generator",
			Description:  "Generates comprehensive answers",
			Template:     "Based on the context: {{context}}, answer the question: {{question}}",
			Tokens:       []string{"context", "question"},
			OutputSchema: schema.String().WithDescription("Comprehensive answer to the question"),
		},
	}
}
