package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/config"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
	"github.com/cliff-rosen/orchestrator-sub003/internal/template"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// ChatRequest is one prompt sent to a language model.
type ChatRequest struct {
	System string
	Prompt string

	// JSON asks the model for a JSON object
	JSON bool
}

// ChatBackend sends prompts to a language model.
type ChatBackend interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// OpenAIBackend implements ChatBackend with the OpenAI chat completion API
// or any API compatible with it.
type OpenAIBackend struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIBackend creates a backend from configuration. The API key falls
// back to the OPENAI_API_KEY environment variable.
func NewOpenAIBackend(cfg config.OpenAIConfig) (*OpenAIBackend, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(config.OpenAIKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY or openai.apiKey)")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultOpenAIModel
	}

	return &OpenAIBackend{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete implements ChatBackend.
func (b *OpenAIBackend) Complete(ctx context.Context, req ChatRequest) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	completion := openai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    messages,
		Temperature: b.temperature,
	}
	if b.maxTokens > 0 {
		completion.MaxTokens = b.maxTokens
	}
	if req.JSON {
		completion.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, completion)
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// LLMInvoker runs language-model tools: it renders the selected prompt
// template with the tool parameters and maps the model's answer onto the
// template's output schema.
type LLMInvoker struct {
	catalog   api.ToolCatalog
	backend   ChatBackend
	templates *template.Engine
}

// NewLLMInvoker creates an invoker resolving templates through catalog.
func NewLLMInvoker(catalog api.ToolCatalog, backend ChatBackend) *LLMInvoker {
	return &LLMInvoker{
		catalog:   catalog,
		backend:   backend,
		templates: template.New(),
	}
}

// Execute implements api.ToolInvoker.
func (l *LLMInvoker) Execute(ctx context.Context, tool *api.Tool, params map[string]any) (map[string]any, error) {
	templateID, _ := params[api.TemplateIDParameter].(string)
	if templateID == "" {
		return nil, fmt.Errorf("no prompt template selected")
	}
	tmpl, err := l.catalog.GetPromptTemplate(templateID)
	if err != nil {
		return nil, err
	}

	prompt, err := l.templates.Render(tmpl, template.ContextFromParams(params))
	if err != nil {
		return nil, err
	}

	out := tmpl.OutputSchema
	if out == nil {
		out = schema.String()
	}
	structured := out.Type == schema.TypeObject && len(out.Fields) > 0

	logging.Debug("LLMInvoker", "Running template %s with tool %s (structured=%v)", tmpl.ID, tool.ID, structured)
	answer, err := l.backend.Complete(ctx, ChatRequest{
		System: tmpl.SystemMessage,
		Prompt: prompt,
		JSON:   structured,
	})
	if err != nil {
		return nil, err
	}

	return decodeAnswer(answer, out, structured)
}

// decodeAnswer maps a model answer onto the output slots. Object schemas
// yield one output per field; anything else is the single response output.
func decodeAnswer(answer string, out *schema.Schema, structured bool) (map[string]any, error) {
	text := stripCodeFence(answer)

	if structured {
		var fields map[string]any
		if err := json.Unmarshal([]byte(text), &fields); err != nil {
			return nil, fmt.Errorf("model answer is not a JSON object: %w", err)
		}
		outputs := make(map[string]any, len(out.Fields))
		for _, f := range out.Fields {
			if value, ok := fields[f.Name]; ok {
				outputs[f.Name] = value
			}
		}
		return outputs, nil
	}

	switch out.Type {
	case schema.TypeString, schema.TypeFile:
		return map[string]any{api.LLMResponseOutput: answer}, nil
	default:
		var value any
		if err := json.Unmarshal([]byte(text), &value); err != nil {
			return nil, fmt.Errorf("model answer is not valid %s: %w", out.Type, err)
		}
		return map[string]any{api.LLMResponseOutput: value}, nil
	}
}

// stripCodeFence removes a surrounding markdown code fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var _ api.ToolInvoker = (*LLMInvoker)(nil)
