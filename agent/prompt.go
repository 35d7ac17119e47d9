// Package agent contains the per-step orchestrator and its collaborators:
// the message builder, the LLM communicator, the dedupe lookup, and the
// loop detector.
package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
	"github.com/erwin-beckers/AIAgentSharp-sub001/llms"
	"github.com/erwin-beckers/AIAgentSharp-sub001/state"
	"github.com/erwin-beckers/AIAgentSharp-sub001/tools"
	"github.com/erwin-beckers/AIAgentSharp-sub001/utils"
)

// ============================================================================
// MESSAGE BUILDER
// ============================================================================

// thoughtsSummaryLen bounds how much of a turn's thoughts appears in a
// one-line history summary.
const thoughtsSummaryLen = 80

// previewLen is the size of the preview kept when tool output is truncated.
const previewLen = 200

// MessageBuilder renders agent state into the ordered prompt sequence:
// system contract, history context, then the goal as the final user message.
type MessageBuilder struct {
	cfg     config.AgentConfig
	counter *utils.TokenCounter
}

// NewMessageBuilder creates a message builder. Token counting falls back
// to a character estimate when no encoding is available.
func NewMessageBuilder(cfg config.AgentConfig) *MessageBuilder {
	counter, err := utils.NewTokenCounter("")
	if err != nil {
		counter = nil
	}
	return &MessageBuilder{cfg: cfg, counter: counter}
}

// Build produces the prompt for the next LLM call. At least two messages
// are always emitted: the system contract and the goal.
func (b *MessageBuilder) Build(st *state.AgentState, registry *tools.Registry) []llms.Message {
	messages := []llms.Message{
		{Role: llms.RoleSystem, Content: b.systemMessage(registry)},
	}
	if history := b.renderHistory(st); history != "" {
		messages = append(messages, llms.Message{Role: llms.RoleAssistant, Content: history})
	}
	messages = append(messages, llms.Message{Role: llms.RoleUser, Content: st.Goal})

	if estimate := b.estimateTokens(messages); estimate > 0 {
		slog.Debug("Prompt built", "agent", st.AgentID, "messages", len(messages), "tokens", estimate)
	}
	return messages
}

func (b *MessageBuilder) estimateTokens(messages []llms.Message) int {
	var total int
	for _, m := range messages {
		if b.counter != nil {
			total += b.counter.Count(m.Content)
		} else {
			total += utils.EstimateTokens(m.Content)
		}
	}
	return total
}

// systemMessage renders the agent contract, the tool catalog, and the
// conditional status-update instructions.
func (b *MessageBuilder) systemMessage(registry *tools.Registry) string {
	var sb strings.Builder
	sb.WriteString(`You are an autonomous agent. Work toward the goal one action at a time.
Reply with exactly one JSON object:
{
  "thoughts": "<your reasoning>",
  "action": "tool_call" | "multi_tool_call" | "plan" | "finish" | "retry",
  "action_input": { ... }
}
Action inputs:
- tool_call: {"tool": "<name>", "params": { ... }}
- multi_tool_call: {"tool_calls": [{"tool": "<name>", "params": { ... }, "reason": "<why>"}, ...]}
- plan: {"summary": "<your plan>"}
- finish: {"final": "<the final answer>"}
- retry: {"summary": "<what to change>"}
`)

	sb.WriteString("\nAVAILABLE TOOLS\n")
	catalog := registry.List()
	if len(catalog) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, t := range catalog {
		fmt.Fprintf(&sb, "- %s: %s\n", t.GetName(), t.GetDescription())
		if sp, ok := t.(tools.SchemaProvider); ok {
			if schema := sp.GetParameterSchema(); schema != nil {
				if raw, err := json.Marshal(schema); err == nil {
					fmt.Fprintf(&sb, "  parameters: %s\n", raw)
				}
			}
		}
	}

	if b.cfg.EmitPublicStatus {
		sb.WriteString(`
STATUS UPDATES
You may additionally include these top-level fields to report progress:
"status_title", "status_details", "next_step_hint", "progress_pct" (0-100).
`)
	}
	return sb.String()
}

// ============================================================================
// HISTORY RENDERING
// ============================================================================

// renderHistory emits older turns as one-line summaries and the most recent
// turns in full detail, per the summarization knobs.
func (b *MessageBuilder) renderHistory(st *state.AgentState) string {
	if len(st.Turns) == 0 {
		return ""
	}

	summarized := 0
	if b.cfg.EnableHistorySummarization && len(st.Turns) > b.cfg.MaxRecentTurns {
		summarized = len(st.Turns) - b.cfg.MaxRecentTurns
	}

	var sb strings.Builder
	sb.WriteString("Previous turns:\n")
	for i, turn := range st.Turns {
		if i < summarized {
			b.writeSummary(&sb, turn)
		} else {
			b.writeDetail(&sb, turn)
		}
	}
	return sb.String()
}

func (b *MessageBuilder) writeSummary(sb *strings.Builder, turn state.AgentTurn) {
	if turn.LLMMessage != nil {
		thoughts := turn.LLMMessage.Thoughts
		if len(thoughts) > thoughtsSummaryLen {
			thoughts = thoughts[:thoughtsSummaryLen]
		}
		fmt.Fprintf(sb, "LLM: %s - %s\n", turn.LLMMessage.Action, thoughts)
	}
	if len(turn.ToolCalls) > 0 {
		names := make([]string, 0, len(turn.ToolCalls))
		for _, call := range turn.ToolCalls {
			names = append(names, call.Tool)
		}
		fmt.Fprintf(sb, "MULTI_TOOLS: %s\n", strings.Join(names, ", "))

		ok, failed := 0, 0
		for _, res := range turn.ToolResults {
			if res.Success {
				ok++
			} else {
				failed++
			}
		}
		fmt.Fprintf(sb, "MULTI_RESULTS: %d ok / %d err\n", ok, failed)
	} else if turn.ToolResult != nil {
		status := "ok"
		if !turn.ToolResult.Success {
			status = "err: " + turn.ToolResult.Error
		}
		fmt.Fprintf(sb, "TOOL: %s %s\n", turn.ToolResult.Tool, status)
	}
}

func (b *MessageBuilder) writeDetail(sb *strings.Builder, turn state.AgentTurn) {
	if turn.LLMMessage != nil {
		fmt.Fprintf(sb, "LLM: %s\n", marshalCompact(turn.LLMMessage))
	}
	if turn.ToolCall != nil {
		fmt.Fprintf(sb, "TOOL_CALL: %s\n", marshalCompact(turn.ToolCall))
	}
	if len(turn.ToolCalls) > 0 {
		fmt.Fprintf(sb, "MULTI_TOOL_CALLS: %s\n", marshalCompact(turn.ToolCalls))
	}
	if turn.ToolResult != nil {
		fmt.Fprintf(sb, "TOOL_RESULT: %s\n", marshalCompact(b.truncatedResult(*turn.ToolResult)))
	}
	if len(turn.ToolResults) > 0 {
		truncated := make([]tools.ExecutionResult, 0, len(turn.ToolResults))
		for _, res := range turn.ToolResults {
			truncated = append(truncated, b.truncatedResult(res))
		}
		fmt.Fprintf(sb, "MULTI_TOOL_RESULTS: %s\n", marshalCompact(truncated))
	}
}

// truncatedResult replaces oversized tool output with a truncation marker
// carrying the original size and a short preview.
func (b *MessageBuilder) truncatedResult(res tools.ExecutionResult) tools.ExecutionResult {
	res.Output = TruncateOutput(res.Output, b.cfg.MaxToolOutputSize)
	return res
}

// TruncateOutput applies the max_tool_output_size policy to a serialized
// tool output. A non-positive limit disables truncation.
func TruncateOutput(output interface{}, maxSize int) interface{} {
	if output == nil || maxSize <= 0 {
		return output
	}
	raw, err := json.Marshal(output)
	if err != nil || len(raw) <= maxSize {
		return output
	}

	preview := string(raw)
	if len(preview) > previewLen {
		preview = preview[:previewLen]
	}
	return map[string]interface{}{
		"truncated":     true,
		"original_size": len(raw),
		"preview":       preview,
	}
}

func marshalCompact(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
