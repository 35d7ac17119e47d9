package llms

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ============================================================================
// ANTHROPIC PROVIDER
// ============================================================================

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// AnthropicProvider implements Provider and FunctionCallingProvider on top
// of the Anthropic Messages API. Tool use is the structured path.
type AnthropicProvider struct {
	client anthropic.Client
	cfg    AnthropicConfig
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicProvider{client: anthropic.NewClient(opts...), cfg: cfg}, nil
}

func (p *AnthropicProvider) Name() string  { return "anthropic" }
func (p *AnthropicProvider) Model() string { return p.cfg.Model }

// Complete performs a text completion.
func (p *AnthropicProvider) Complete(ctx context.Context, messages []Message) (Completion, error) {
	params := p.baseParams(messages)

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Completion{}, fmt.Errorf("anthropic completion failed: %w", err)
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return Completion{
		Content: content.String(),
		Usage: &Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

// CompleteWithFunctions performs a tool-use completion.
func (p *AnthropicProvider) CompleteWithFunctions(ctx context.Context, messages []Message, functions []FunctionSpec) (FunctionResult, error) {
	params := p.baseParams(messages)

	tools := make([]anthropic.ToolUnionParam, 0, len(functions))
	for _, fn := range functions {
		raw, err := json.Marshal(fn.Parameters)
		if err != nil {
			return FunctionResult{}, fmt.Errorf("anthropic: invalid schema for function %q: %w", fn.Name, err)
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(raw, &schema); err != nil {
			return FunctionResult{}, fmt.Errorf("anthropic: invalid schema for function %q: %w", fn.Name, err)
		}
		tool := anthropic.ToolUnionParamOfTool(schema, fn.Name)
		if tool.OfTool != nil && fn.Description != "" {
			tool.OfTool.Description = anthropic.String(fn.Description)
		}
		tools = append(tools, tool)
	}
	params.Tools = tools

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return FunctionResult{}, fmt.Errorf("anthropic function call failed: %w", err)
	}

	result := FunctionResult{
		Usage: &Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	var content strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "tool_use":
			if !result.HasFunctionCall {
				result.HasFunctionCall = true
				result.FunctionName = block.Name
				result.ArgumentsJSON = string(block.Input)
			}
		}
	}
	result.AssistantContent = content.String()
	return result, nil
}

// baseParams builds common request parameters. System-role messages become
// the system prompt; everything else maps to user/assistant turns.
func (p *AnthropicProvider) baseParams(messages []Message) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model),
		MaxTokens: int64(p.cfg.MaxTokens),
	}
	if p.cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(p.cfg.Temperature)
	}

	var system []anthropic.TextBlockParam
	var turns []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	params.System = system
	params.Messages = turns
	return params
}
