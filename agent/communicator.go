package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erwin-beckers/AIAgentSharp-sub001/agenterr"
	"github.com/erwin-beckers/AIAgentSharp-sub001/events"
	"github.com/erwin-beckers/AIAgentSharp-sub001/llms"
	"github.com/erwin-beckers/AIAgentSharp-sub001/observability"
	"github.com/erwin-beckers/AIAgentSharp-sub001/state"
	"github.com/erwin-beckers/AIAgentSharp-sub001/tools"
)

// ============================================================================
// LLM COMMUNICATOR
// ============================================================================

// Communicator drives one LLM call end to end: deadline, provider call,
// parsing, status emission, and token accounting. Expected failures are
// recorded as failed turns and reported as a nil message; only cancellation
// comes back as an error.
type Communicator struct {
	provider llms.Provider
	events   *events.Manager
	status   *events.StatusManager
	timeout  time.Duration
}

// NewCommunicator creates a communicator for a provider.
func NewCommunicator(provider llms.Provider, em *events.Manager, sm *events.StatusManager, timeout time.Duration) *Communicator {
	return &Communicator{provider: provider, events: em, status: sm, timeout: timeout}
}

// CallAndParse performs a text completion and parses the reply. On deadline
// or provider failure a failed turn is appended to the state and (nil, nil)
// is returned; the caller keeps stepping.
func (c *Communicator) CallAndParse(ctx context.Context, messages []llms.Message, agentID string, turnIndex int, turnID string, st *state.AgentState) (*llms.ModelMessage, error) {
	c.emitStarted(agentID, turnIndex)

	cctx, cancel := context.WithTimeout(ctx, c.llmTimeout())
	defer cancel()

	started := time.Now()
	completion, err := c.provider.Complete(cctx, messages)
	elapsed := time.Since(started)

	if err != nil {
		if ctx.Err() != nil {
			return nil, agenterr.Wrap(agenterr.KindCancelled, ctx.Err(), "LLM call cancelled")
		}
		msg, kind := fmt.Sprintf("LLM call failed: %v", err), agenterr.KindInternal
		if cctx.Err() == context.DeadlineExceeded {
			msg, kind = "LLM deadline exceeded", agenterr.KindTimeout
		}
		c.recordLLMFailure(ctx, st, agentID, turnIndex, turnID, msg, string(kind), elapsed)
		return nil, nil
	}

	observability.Default().RecordLLMCall(ctx, c.provider.Model(), c.provider.Name(), elapsed, true)
	if completion.Usage != nil {
		observability.Default().RecordTokenUsage(ctx, c.provider.Model(), c.provider.Name(),
			completion.Usage.InputTokens, completion.Usage.OutputTokens)
	}
	return c.ParseJSONResponse(completion.Content, agentID, turnIndex, turnID, st, elapsed)
}

// CallWithFunctions performs a structured function-calling completion.
// A provider without the capability fails with an unsupported error.
func (c *Communicator) CallWithFunctions(ctx context.Context, messages []llms.Message, functions []llms.FunctionSpec, agentID string, turnIndex int) (llms.FunctionResult, error) {
	fcp, ok := c.provider.(llms.FunctionCallingProvider)
	if !ok {
		return llms.FunctionResult{}, agenterr.Wrap(agenterr.KindUnsupported, llms.ErrUnsupported,
			"provider %q has no function calling", c.provider.Name())
	}

	c.emitStarted(agentID, turnIndex)

	cctx, cancel := context.WithTimeout(ctx, c.llmTimeout())
	defer cancel()

	started := time.Now()
	result, err := fcp.CompleteWithFunctions(cctx, messages, functions)
	elapsed := time.Since(started)

	if err != nil {
		observability.Default().RecordLLMCall(ctx, c.provider.Model(), c.provider.Name(), elapsed, false)
		return llms.FunctionResult{}, err
	}

	observability.Default().RecordLLMCall(ctx, c.provider.Model(), c.provider.Name(), elapsed, true)
	if result.Usage != nil {
		observability.Default().RecordTokenUsage(ctx, c.provider.Model(), c.provider.Name(),
			result.Usage.InputTokens, result.Usage.OutputTokens)
	}
	return result, nil
}

// ParseJSONResponse extracts and decodes the model reply, emitting status
// and completion events. Malformed JSON becomes a failed turn.
func (c *Communicator) ParseJSONResponse(raw string, agentID string, turnIndex int, turnID string, st *state.AgentState, elapsed time.Duration) (*llms.ModelMessage, error) {
	msg, err := llms.ParseModelMessage(raw)
	if err != nil {
		c.emitStatus(agentID, turnIndex, events.StatusPayload{
			Title:   "Invalid model output",
			Details: "JSON parsing failed",
		})
		errMsg := fmt.Sprintf("Invalid LLM JSON: %v", err)
		appendFailedTurn(st, turnID, errMsg, string(agenterr.KindJSONParse))
		c.emitCompleted(agentID, turnIndex, nil, errMsg, elapsed)
		return nil, nil
	}

	if msg.HasStatus() {
		c.emitStatus(agentID, turnIndex, events.StatusPayload{
			Title:        msg.StatusTitle,
			Details:      msg.StatusDetails,
			NextStepHint: msg.NextStepHint,
			ProgressPct:  msg.ProgressPct,
		})
	}
	c.emitCompleted(agentID, turnIndex, msg, "", elapsed)
	return msg, nil
}

// NormalizeFunctionCallToReact converts a structured function call into the
// equivalent tool_call message. Empty or malformed arguments degrade to an
// empty params map; a missing function call is an error.
func NormalizeFunctionCallToReact(result llms.FunctionResult) (*llms.ModelMessage, error) {
	if !result.HasFunctionCall {
		return nil, agenterr.New(agenterr.KindJSONParse, "function result carries no function call")
	}

	params := map[string]interface{}{}
	if result.ArgumentsJSON != "" {
		if err := json.Unmarshal([]byte(result.ArgumentsJSON), &params); err != nil {
			params = map[string]interface{}{}
		}
	}
	return &llms.ModelMessage{
		Thoughts:  result.AssistantContent,
		Action:    llms.ActionToolCall,
		ActionRaw: string(llms.ActionToolCall),
		ActionInput: llms.ActionInput{
			Tool:   result.FunctionName,
			Params: params,
		},
	}, nil
}

func (c *Communicator) recordLLMFailure(ctx context.Context, st *state.AgentState, agentID string, turnIndex int, turnID, errMsg, errKind string, elapsed time.Duration) {
	observability.Default().RecordLLMCall(ctx, c.provider.Model(), c.provider.Name(), elapsed, false)
	appendFailedTurn(st, turnID, errMsg, errKind)
	c.emitCompleted(agentID, turnIndex, nil, errMsg, elapsed)
}

func (c *Communicator) llmTimeout() time.Duration {
	if c.timeout > 0 {
		return c.timeout
	}
	return 60 * time.Second
}

// appendFailedTurn records an expected failure as a failed tool result so
// the model sees it in the rendered history.
func appendFailedTurn(st *state.AgentState, turnID, errMsg, errKind string) {
	st.AppendTurn(state.AgentTurn{
		TurnID: turnID,
		ToolResult: &tools.ExecutionResult{
			Success:    false,
			Error:      errMsg,
			ErrorKind:  errKind,
			TurnID:     turnID,
			CreatedUTC: time.Now().UTC(),
		},
	})
}

func (c *Communicator) emitStarted(agentID string, turnIndex int) {
	if c.events == nil {
		return
	}
	c.events.Emit(events.Event{
		Type:      events.TypeLLMStarted,
		AgentID:   agentID,
		TurnIndex: turnIndex,
		LLM:       &events.LLMCallPayload{Model: c.provider.Model()},
	})
}

func (c *Communicator) emitCompleted(agentID string, turnIndex int, msg *llms.ModelMessage, errMsg string, elapsed time.Duration) {
	if c.events == nil {
		return
	}
	payload := &events.LLMCallPayload{Model: c.provider.Model(), Error: errMsg, Elapsed: elapsed}
	if msg != nil {
		payload.Message = msg
	}
	c.events.Emit(events.Event{
		Type:      events.TypeLLMCompleted,
		AgentID:   agentID,
		TurnIndex: turnIndex,
		LLM:       payload,
	})
}

func (c *Communicator) emitStatus(agentID string, turnIndex int, status events.StatusPayload) {
	if c.status == nil {
		return
	}
	c.status.Emit(agentID, turnIndex, status)
}
