// Package events defines the lifecycle events emitted at every orchestrator
// boundary and the manager that dispatches them to subscribers without
// blocking step execution.
package events

import (
	"time"
)

// Type identifies an event kind.
type Type string

const (
	TypeRunStarted    Type = "run.started"
	TypeRunCompleted  Type = "run.completed"
	TypeStepStarted   Type = "step.started"
	TypeStepCompleted Type = "step.completed"
	TypeLLMStarted    Type = "llm.call.started"
	TypeLLMCompleted  Type = "llm.call.completed"
	TypeToolStarted   Type = "tool.call.started"
	TypeToolCompleted Type = "tool.call.completed"
	TypeStatusUpdate  Type = "status.update"
)

// Event is the envelope delivered to subscribers. Sequence is monotonic per
// manager; events from one agent step arrive in emission order.
type Event struct {
	Type      Type      `json:"type"`
	Time      time.Time `json:"time"`
	Sequence  uint64    `json:"sequence"`
	RunID     string    `json:"run_id,omitempty"`
	AgentID   string    `json:"agent_id"`
	TurnIndex int       `json:"turn_index"`

	LLM    *LLMCallPayload  `json:"llm,omitempty"`
	Tool   *ToolCallPayload `json:"tool,omitempty"`
	Step   *StepPayload     `json:"step,omitempty"`
	Status *StatusPayload   `json:"status,omitempty"`
}

// LLMCallPayload carries the outcome of an LLM call. Message is the raw
// JSON of the parsed model message, nil until parsing succeeds.
type LLMCallPayload struct {
	Model     string        `json:"model,omitempty"`
	Message   interface{}   `json:"message,omitempty"`
	Error     string        `json:"error,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	InTokens  int           `json:"input_tokens,omitempty"`
	OutTokens int           `json:"output_tokens,omitempty"`
}

// ToolCallPayload carries a tool invocation and its result.
type ToolCallPayload struct {
	Name    string                 `json:"name"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Success bool                   `json:"success"`
	Output  interface{}            `json:"output,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Elapsed time.Duration          `json:"elapsed,omitempty"`
}

// StepPayload summarizes a completed step.
type StepPayload struct {
	Continue     bool   `json:"continue"`
	ExecutedTool bool   `json:"executed_tool"`
	FinalOutput  string `json:"final_output,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StatusPayload is a model-emitted public status update. Fields pass through
// exactly as the model produced them; no clamping or normalization.
type StatusPayload struct {
	Title        string `json:"title"`
	Details      string `json:"details,omitempty"`
	NextStepHint string `json:"next_step_hint,omitempty"`
	ProgressPct  *int   `json:"progress_pct,omitempty"`
}
