package llms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erwin-beckers/AIAgentSharp-sub001/utils"
)

// ============================================================================
// MODEL MESSAGE - PARSED LLM REPLY
// ============================================================================

// Action is the normalized action a model reply requests.
type Action string

const (
	ActionToolCall      Action = "tool_call"
	ActionMultiToolCall Action = "multi_tool_call"
	ActionPlan          Action = "plan"
	ActionFinish        Action = "finish"
	ActionRetry         Action = "retry"
)

// ToolCallRequest is one entry of a multi-tool action.
type ToolCallRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params,omitempty"`
	Reason string                 `json:"reason,omitempty"`
}

// ActionInput carries the action-specific payload. Which fields are
// populated depends on the action: tool_call uses Tool/Params,
// multi_tool_call uses ToolCalls, plan and retry use Summary, finish uses
// Final.
type ActionInput struct {
	Tool      string                 `json:"tool,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
	ToolCalls []ToolCallRequest      `json:"tool_calls,omitempty"`
	Summary   string                 `json:"summary,omitempty"`
	Final     string                 `json:"final,omitempty"`
}

// ModelMessage is a parsed LLM reply. ActionRaw preserves the action string
// exactly as the model emitted it; Action is the normalized form.
type ModelMessage struct {
	Thoughts    string      `json:"thoughts,omitempty"`
	Action      Action      `json:"action"`
	ActionRaw   string      `json:"action_raw,omitempty"`
	ActionInput ActionInput `json:"action_input"`

	// Optional public status fields.
	StatusTitle   string `json:"status_title,omitempty"`
	StatusDetails string `json:"status_details,omitempty"`
	NextStepHint  string `json:"next_step_hint,omitempty"`
	ProgressPct   *int   `json:"progress_pct,omitempty"`
}

// HasStatus reports whether the model populated any public status field.
func (m *ModelMessage) HasStatus() bool {
	return m.StatusTitle != "" || m.StatusDetails != "" ||
		m.NextStepHint != "" || m.ProgressPct != nil
}

// ParseModelMessage extracts the first balanced JSON object from raw model
// output and decodes it into a ModelMessage. Unknown fields are ignored;
// the action string is trimmed and lowercased before matching. A missing or
// unknown action is an error.
func ParseModelMessage(raw string) (*ModelMessage, error) {
	body, err := utils.ExtractFirstJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("no JSON object in model reply: %w", err)
	}

	var msg ModelMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return nil, fmt.Errorf("failed to decode model reply: %w", err)
	}

	msg.ActionRaw = string(msg.Action)
	normalized := Action(strings.ToLower(strings.TrimSpace(string(msg.Action))))
	switch normalized {
	case ActionToolCall, ActionMultiToolCall, ActionPlan, ActionFinish, ActionRetry:
		msg.Action = normalized
	case "":
		return nil, fmt.Errorf("model reply is missing the action field")
	default:
		return nil, fmt.Errorf("model reply has unknown action %q", msg.ActionRaw)
	}

	return &msg, nil
}
