// Package llms defines the LLM provider contract, the wire types exchanged
// with providers, and the parsing of model replies into typed messages.
package llms

import (
	"context"
	"errors"
)

// ============================================================================
// PROVIDER CONTRACT
// ============================================================================

// Roles used in conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single prompt message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports provider token accounting when available.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Completion is the result of a text completion.
type Completion struct {
	Content string `json:"content"`
	Usage   *Usage `json:"usage,omitempty"`
}

// FunctionSpec describes one callable function for structured calling.
// Parameters is a JSON-Schema object.
type FunctionSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// FunctionResult is the outcome of a structured function-calling completion.
type FunctionResult struct {
	HasFunctionCall  bool   `json:"has_function_call"`
	FunctionName     string `json:"function_name,omitempty"`
	ArgumentsJSON    string `json:"function_arguments_json,omitempty"`
	AssistantContent string `json:"assistant_content,omitempty"`
	Usage            *Usage `json:"usage,omitempty"`
}

// ErrUnsupported signals that a provider does not offer a requested
// capability; callers fall back to text mode.
var ErrUnsupported = errors.New("capability not supported by provider")

// Provider is the minimal LLM client contract.
type Provider interface {
	// Name identifies the provider ("openai", "anthropic", "mock", ...).
	Name() string

	// Model returns the configured model name.
	Model() string

	// Complete performs a text completion over the full message sequence.
	Complete(ctx context.Context, messages []Message) (Completion, error)
}

// FunctionCallingProvider extends Provider with structured function calling.
// Providers that implement the interface but cannot honor a particular
// request return ErrUnsupported.
type FunctionCallingProvider interface {
	Provider

	CompleteWithFunctions(ctx context.Context, messages []Message, functions []FunctionSpec) (FunctionResult, error)
}
