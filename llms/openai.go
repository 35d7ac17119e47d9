package llms

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ============================================================================
// OPENAI PROVIDER
// ============================================================================

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"` // custom endpoint or proxy
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// OpenAIProvider implements Provider and FunctionCallingProvider on top of
// the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.cfg.Model }

// Complete performs a text completion.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message) (Completion, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               p.cfg.Model,
		Messages:            toOpenAIMessages(messages),
		Temperature:         p.cfg.Temperature,
		MaxCompletionTokens: p.cfg.MaxTokens,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("openai returned no choices")
	}

	return Completion{
		Content: resp.Choices[0].Message.Content,
		Usage: &Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// CompleteWithFunctions performs a structured function-calling completion.
func (p *OpenAIProvider) CompleteWithFunctions(ctx context.Context, messages []Message, functions []FunctionSpec) (FunctionResult, error) {
	tools := make([]openai.Tool, 0, len(functions))
	for _, fn := range functions {
		params, err := json.Marshal(fn.Parameters)
		if err != nil {
			return FunctionResult{}, fmt.Errorf("openai: invalid schema for function %q: %w", fn.Name, err)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  json.RawMessage(params),
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               p.cfg.Model,
		Messages:            toOpenAIMessages(messages),
		Temperature:         p.cfg.Temperature,
		MaxCompletionTokens: p.cfg.MaxTokens,
		Tools:               tools,
	})
	if err != nil {
		return FunctionResult{}, fmt.Errorf("openai function call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return FunctionResult{}, fmt.Errorf("openai returned no choices")
	}

	choice := resp.Choices[0].Message
	result := FunctionResult{
		AssistantContent: choice.Content,
		Usage: &Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if len(choice.ToolCalls) > 0 {
		call := choice.ToolCalls[0]
		result.HasFunctionCall = true
		result.FunctionName = call.Function.Name
		result.ArgumentsJSON = call.Function.Arguments
	}
	return result, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
