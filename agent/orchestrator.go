package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/erwin-beckers/AIAgentSharp-sub001/agenterr"
	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
	"github.com/erwin-beckers/AIAgentSharp-sub001/events"
	"github.com/erwin-beckers/AIAgentSharp-sub001/llms"
	"github.com/erwin-beckers/AIAgentSharp-sub001/observability"
	"github.com/erwin-beckers/AIAgentSharp-sub001/reasoning"
	"github.com/erwin-beckers/AIAgentSharp-sub001/state"
	"github.com/erwin-beckers/AIAgentSharp-sub001/tools"
	"github.com/erwin-beckers/AIAgentSharp-sub001/utils"
)

// ============================================================================
// ORCHESTRATOR - PER-STEP STATE MACHINE
// ============================================================================

// loopBreakerAdvice is the synthetic retry injected when the model keeps
// issuing the same failing call.
const loopBreakerAdvice = "you are repeating the same failing call; try something else"

// StepResult reports the outcome of one orchestrator step.
type StepResult struct {
	Continue     bool                   `json:"continue"`
	ExecutedTool bool                   `json:"executed_tool"`
	ToolResult   *tools.ExecutionResult `json:"tool_result,omitempty"`
	LLMMessage   *llms.ModelMessage     `json:"llm_message,omitempty"`
	FinalOutput  string                 `json:"final_output,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

// Orchestrator executes one agent step at a time: reasoning pre-pass,
// prompt, LLM call, dispatch, persistence. A step never fails for expected
// reasons; only cancellation and state store faults surface as errors.
type Orchestrator struct {
	cfg      config.AgentConfig
	provider llms.Provider
	registry *tools.Registry
	store    state.Store
	events   *events.Manager
	status   *events.StatusManager

	builder      *MessageBuilder
	communicator *Communicator
	executor     *tools.Executor
	reasoner     *reasoning.Manager
	detector     *LoopDetector
}

// NewOrchestrator wires an orchestrator and its collaborators.
func NewOrchestrator(cfg config.AgentConfig, provider llms.Provider, registry *tools.Registry, store state.Store, em *events.Manager) *Orchestrator {
	sm := events.NewStatusManager(em, cfg.EmitPublicStatus)
	return &Orchestrator{
		cfg:          cfg,
		provider:     provider,
		registry:     registry,
		store:        store,
		events:       em,
		status:       sm,
		builder:      NewMessageBuilder(cfg),
		communicator: NewCommunicator(provider, em, sm, cfg.LLMTimeout),
		executor:     tools.NewExecutor(registry, em, sm, cfg.ToolTimeout),
		reasoner:     reasoning.NewManager(provider, cfg),
		detector:     NewLoopDetector(cfg.LoopDetectionWindow),
	}
}

// ExecuteStep runs exactly one step against the loaned state. The state is
// mutated in place and persisted before returning.
func (o *Orchestrator) ExecuteStep(ctx context.Context, st *state.AgentState) (StepResult, error) {
	if st == nil {
		return StepResult{}, agenterr.New(agenterr.KindInvalidInput, "state is required")
	}
	if o.registry == nil {
		return StepResult{}, agenterr.New(agenterr.KindInvalidInput, "tool registry is required")
	}

	turnIndex := len(st.Turns)
	o.emitStep(events.TypeStepStarted, st.AgentID, turnIndex, nil)
	observability.Default().RecordStep(ctx, st.AgentID)

	result, err := o.step(ctx, st, turnIndex)
	if err != nil {
		// Persist whatever was recorded before the abort, then re-raise.
		o.persist(ctx, st)
		return StepResult{}, err
	}

	if perr := o.persist(ctx, st); perr != nil {
		result.Error = perr.Error()
	}
	o.emitStep(events.TypeStepCompleted, st.AgentID, turnIndex, &result)
	return result, nil
}

func (o *Orchestrator) step(ctx context.Context, st *state.AgentState, turnIndex int) (StepResult, error) {
	if err := o.reasoningPass(ctx, st, turnIndex); err != nil {
		return StepResult{}, err
	}

	messages := o.builder.Build(st, o.registry)

	msg, err := o.callLLM(ctx, messages, st, turnIndex)
	if err != nil {
		return StepResult{}, err
	}
	if msg == nil {
		// Failure already recorded as a failed turn.
		last := st.LastTurn()
		result := StepResult{Continue: true}
		if last != nil && last.ToolResult != nil {
			result.Error = last.ToolResult.Error
		}
		return result, nil
	}

	return o.dispatch(ctx, st, msg, turnIndex)
}

// reasoningPass runs the configured engine when the predicate fires.
// Reasoning failure is never fatal to a step.
func (o *Orchestrator) reasoningPass(ctx context.Context, st *state.AgentState, turnIndex int) error {
	if !reasoning.ShouldPerformReasoning(o.cfg, st, turnIndex) {
		return nil
	}

	result, err := o.reasoner.Reason(ctx, o.cfg.ReasoningType, reasoning.Request{
		Goal:    st.Goal,
		Context: o.recentFailureContext(st),
		Tools:   o.registry.Names(),
	})
	if err != nil {
		if agenterr.IsCancelled(err) {
			return err
		}
		slog.Warn("Reasoning pass errored, continuing without it",
			"agent", st.AgentID, "type", o.cfg.ReasoningType, "error", err)
		return nil
	}
	if !result.Success {
		slog.Warn("Reasoning pass failed, continuing without it",
			"agent", st.AgentID, "type", o.cfg.ReasoningType, "error", result.Error)
		return nil
	}

	reasoning.MergeIntoState(st, result)
	return nil
}

// recentFailureContext summarizes the latest failed tool results so the
// reasoning engines see what went wrong.
func (o *Orchestrator) recentFailureContext(st *state.AgentState) string {
	var ctx string
	for _, turn := range st.RecentTurns(o.cfg.MaxRecentTurns) {
		if turn.ToolResult != nil && !turn.ToolResult.Success {
			ctx += fmt.Sprintf("Tool %s failed: %s\n", turn.ToolResult.Tool, turn.ToolResult.Error)
		}
	}
	return ctx
}

// callLLM chooses the structured or text path and returns the parsed
// message. A nil message with nil error means the failure was recorded.
func (o *Orchestrator) callLLM(ctx context.Context, messages []llms.Message, st *state.AgentState, turnIndex int) (*llms.ModelMessage, error) {
	if o.cfg.UseFunctionCalling {
		fnResult, err := o.communicator.CallWithFunctions(ctx, messages, o.registry.FunctionSpecs(), st.AgentID, turnIndex)
		switch {
		case err == nil:
			if fnResult.HasFunctionCall {
				msg, nerr := NormalizeFunctionCallToReact(fnResult)
				if nerr == nil {
					o.communicator.emitCompleted(st.AgentID, turnIndex, msg, "", 0)
					return msg, nil
				}
				appendFailedTurn(st, "", nerr.Error(), string(agenterr.KindJSONParse))
				return nil, nil
			}
			// No structured call; the assistant text may still carry the
			// JSON contract.
			return o.communicator.ParseJSONResponse(fnResult.AssistantContent, st.AgentID, turnIndex, "", st, 0)

		case agenterr.KindOf(err) == agenterr.KindUnsupported || errors.Is(err, llms.ErrUnsupported):
			slog.Debug("Function calling unsupported, falling back to text mode",
				"agent", st.AgentID, "provider", o.provider.Name())

		case ctx.Err() != nil:
			return nil, agenterr.Wrap(agenterr.KindCancelled, ctx.Err(), "LLM call cancelled")

		default:
			appendFailedTurn(st, "", fmt.Sprintf("LLM call failed: %v", err), string(agenterr.KindInternal))
			return nil, nil
		}
	}

	return o.communicator.CallAndParse(ctx, messages, st.AgentID, turnIndex, "", st)
}

// ============================================================================
// ACTION DISPATCH
// ============================================================================

func (o *Orchestrator) dispatch(ctx context.Context, st *state.AgentState, msg *llms.ModelMessage, turnIndex int) (StepResult, error) {
	switch msg.Action {
	case llms.ActionPlan, llms.ActionRetry:
		st.AppendTurn(state.AgentTurn{LLMMessage: msg})
		return StepResult{Continue: true, LLMMessage: msg}, nil

	case llms.ActionFinish:
		st.AppendTurn(state.AgentTurn{LLMMessage: msg})
		return StepResult{
			Continue:    false,
			LLMMessage:  msg,
			FinalOutput: msg.ActionInput.Final,
		}, nil

	case llms.ActionToolCall:
		return o.dispatchTool(ctx, st, msg, msg.ActionInput.Tool, msg.ActionInput.Params)

	case llms.ActionMultiToolCall:
		return o.dispatchMultiTool(ctx, st, msg)

	default:
		// ParseModelMessage rejects unknown actions, so this is unreachable
		// for parsed messages.
		appendFailedTurn(st, "", fmt.Sprintf("unknown action %q", msg.Action), string(agenterr.KindJSONParse))
		return StepResult{Continue: true}, nil
	}
}

// dispatchTool handles a single tool call: dedupe, loop-breaker precheck,
// execution, and retry-hint injection on failure.
func (o *Orchestrator) dispatchTool(ctx context.Context, st *state.AgentState, msg *llms.ModelMessage, toolName string, params map[string]interface{}) (StepResult, error) {
	turnID := utils.TurnID(toolName, params)
	call := &llms.ToolCallRequest{Tool: toolName, Params: params}

	if reused := o.dedupeHit(st, toolName, turnID); reused != nil {
		st.AppendTurn(state.AgentTurn{
			TurnID:     turnID,
			LLMMessage: msg,
			ToolCall:   call,
			ToolResult: reused,
		})
		return StepResult{Continue: true, LLMMessage: msg, ToolResult: reused}, nil
	}

	if o.detector.DetectRepeatedFailures(st, turnID) {
		o.appendLoopBreaker(st)
	}

	result := o.executor.Execute(ctx, toolName, params, st.AgentID, len(st.Turns))

	st.AppendTurn(state.AgentTurn{
		TurnID:     turnID,
		LLMMessage: msg,
		ToolCall:   call,
		ToolResult: &result,
	})

	if result.ErrorKind == string(agenterr.KindCancelled) {
		// The cancelled call is recorded as a failed turn, then the
		// cancellation aborts the step.
		return StepResult{}, agenterr.Wrap(agenterr.KindCancelled, ctx.Err(), "tool call cancelled")
	}

	if !result.Success {
		o.appendRetryHint(st, result.Error)
		if o.detector.DetectRepeatedFailures(st, turnID) {
			o.appendLoopBreaker(st)
		}
	}

	return StepResult{
		Continue:     true,
		ExecutedTool: true,
		LLMMessage:   msg,
		ToolResult:   &result,
	}, nil
}

// dispatchMultiTool executes each sub-call in order, recording them all in
// one turn. Failures are non-fatal; cancellation aborts the remainder.
func (o *Orchestrator) dispatchMultiTool(ctx context.Context, st *state.AgentState, msg *llms.ModelMessage) (StepResult, error) {
	calls := msg.ActionInput.ToolCalls
	results := make([]tools.ExecutionResult, 0, len(calls))

	var cancelled bool
	for _, call := range calls {
		turnID := utils.TurnID(call.Tool, call.Params)

		if reused := o.dedupeHit(st, call.Tool, turnID); reused != nil {
			results = append(results, *reused)
			continue
		}
		if o.detector.DetectRepeatedFailures(st, turnID) {
			o.appendLoopBreaker(st)
		}

		result := o.executor.Execute(ctx, call.Tool, call.Params, st.AgentID, len(st.Turns))
		results = append(results, result)

		if result.ErrorKind == string(agenterr.KindCancelled) {
			cancelled = true
			break
		}
	}

	turn := st.AppendTurn(state.AgentTurn{
		LLMMessage:  msg,
		ToolCalls:   calls[:len(results)],
		ToolResults: results,
	})
	if cancelled {
		return StepResult{}, agenterr.Wrap(agenterr.KindCancelled, ctx.Err(), "tool call cancelled")
	}

	var lastFailure string
	for _, res := range results {
		if !res.Success {
			lastFailure = res.Error
		}
	}
	if lastFailure != "" {
		o.appendRetryHint(st, lastFailure)
	}

	var last *tools.ExecutionResult
	if len(turn.ToolResults) > 0 {
		last = &turn.ToolResults[len(turn.ToolResults)-1]
	}
	return StepResult{
		Continue:     true,
		ExecutedTool: len(results) > 0,
		LLMMessage:   msg,
		ToolResult:   last,
	}, nil
}

// dedupeHit resolves a reusable prior result for the call, honoring the
// tool's dedupe policy and TTL.
func (o *Orchestrator) dedupeHit(st *state.AgentState, toolName, turnID string) *tools.ExecutionResult {
	tool, ok := o.registry.Get(toolName)
	if !ok || !tools.AllowsDedupe(tool) {
		return nil
	}
	ttl := tools.TTLFor(tool, o.cfg.DedupeTTL)
	return lookupDedupe(st, turnID, ttl, time.Now().UTC())
}

func (o *Orchestrator) appendLoopBreaker(st *state.AgentState) {
	st.AppendTurn(state.AgentTurn{
		LLMMessage: &llms.ModelMessage{
			Action:      llms.ActionRetry,
			ActionInput: llms.ActionInput{Summary: loopBreakerAdvice},
		},
	})
}

func (o *Orchestrator) appendRetryHint(st *state.AgentState, errMsg string) {
	st.AppendTurn(state.AgentTurn{
		LLMMessage: &llms.ModelMessage{
			Action: llms.ActionRetry,
			ActionInput: llms.ActionInput{
				Summary: fmt.Sprintf("the last tool call failed with: %s; consider an alternative", errMsg),
			},
		},
	})
}

func (o *Orchestrator) persist(ctx context.Context, st *state.AgentState) error {
	if o.store == nil {
		return nil
	}
	if err := o.store.Save(ctx, st.AgentID, st); err != nil {
		slog.Error("Failed to persist agent state", "agent", st.AgentID, "error", err)
		return err
	}
	return nil
}

func (o *Orchestrator) emitStep(eventType events.Type, agentID string, turnIndex int, result *StepResult) {
	if o.events == nil {
		return
	}
	ev := events.Event{Type: eventType, AgentID: agentID, TurnIndex: turnIndex}
	if result != nil {
		ev.Step = &events.StepPayload{
			Continue:     result.Continue,
			ExecutedTool: result.ExecutedTool,
			FinalOutput:  result.FinalOutput,
			Error:        result.Error,
		}
	}
	o.events.Emit(ev)
}
