package reasoning

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erwin-beckers/AIAgentSharp-sub001/agenterr"
	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
	"github.com/erwin-beckers/AIAgentSharp-sub001/llms"
	"github.com/erwin-beckers/AIAgentSharp-sub001/observability"
	"github.com/erwin-beckers/AIAgentSharp-sub001/state"
)

// ============================================================================
// REASONING MANAGER
// ============================================================================

// Manager holds one engine per supported reasoning type and runs reasoning
// passes on behalf of the orchestrator. Engine faults become failed results;
// only cancellation propagates as an error.
type Manager struct {
	engines map[config.ReasoningType]Engine

	currentChain *state.ReasoningChain
	currentTree  *state.ReasoningTree
}

// NewManager builds a manager with the standard engines wired from the
// given provider and configuration.
func NewManager(provider llms.Provider, cfg config.AgentConfig) *Manager {
	chain := NewChainOfThoughtEngine(provider, cfg)
	tree := NewTreeOfThoughtsEngine(provider, cfg)
	return NewManagerWithEngines(chain, tree, NewHybridEngine(chain, tree))
}

// NewManagerWithEngines builds a manager over explicit engines, mainly for
// tests that substitute fakes.
func NewManagerWithEngines(engines ...Engine) *Manager {
	m := &Manager{engines: make(map[config.ReasoningType]Engine, len(engines))}
	for _, e := range engines {
		if e != nil {
			m.engines[e.Type()] = e
		}
	}
	return m
}

// IsSupported reports whether the manager has an engine for the type.
func (m *Manager) IsSupported(t config.ReasoningType) bool {
	_, ok := m.engines[t]
	return ok
}

// SupportedTypes lists the available reasoning types, sorted.
func (m *Manager) SupportedTypes() []config.ReasoningType {
	types := make([]config.ReasoningType, 0, len(m.engines))
	for t := range m.engines {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// GetCurrentChain returns the chain from the most recent successful pass.
func (m *Manager) GetCurrentChain() *state.ReasoningChain { return m.currentChain }

// GetCurrentTree returns the tree from the most recent successful pass.
func (m *Manager) GetCurrentTree() *state.ReasoningTree { return m.currentTree }

// Reason runs the engine for the given type. Type none is an invalid
// operation; an unknown type is unsupported. An engine fault is converted
// into a failed result with a non-negative execution time, unless the fault
// is cancellation, which is re-raised.
func (m *Manager) Reason(ctx context.Context, t config.ReasoningType, req Request) (*Result, error) {
	if t == config.ReasoningNone {
		return nil, agenterr.New(agenterr.KindInvalidOperation, "reasoning type none cannot be executed")
	}
	engine, ok := m.engines[t]
	if !ok {
		return nil, agenterr.New(agenterr.KindUnsupported, "unsupported reasoning type %q", t)
	}

	started := time.Now()
	result, err := engine.Reason(ctx, req)
	elapsed := time.Since(started)

	if err != nil {
		if agenterr.IsCancelled(err) {
			return nil, err
		}
		return &Result{
			Success:         false,
			Error:           err.Error(),
			ExecutionTimeMS: elapsed.Milliseconds(),
		}, nil
	}

	if result.Success {
		m.currentChain = result.Chain
		m.currentTree = result.Tree
		observability.Default().RecordReasoningExecutionTime(ctx, string(t), elapsed)
		observability.Default().RecordReasoningConfidence(ctx, string(t), result.Confidence)
	}
	return result, nil
}

// PerformHybrid runs the hybrid engine directly.
func (m *Manager) PerformHybrid(ctx context.Context, req Request) (*Result, error) {
	return m.Reason(ctx, config.ReasoningHybrid, req)
}

// ============================================================================
// ORCHESTRATOR INTEGRATION
// ============================================================================

// ShouldPerformReasoning decides whether the orchestrator runs a reasoning
// pass before the upcoming turn. Reasoning happens on the very first turn,
// and afterwards only when the last tool call failed and the turn index
// lands on the configured interval. The predicate is side-effect free.
func ShouldPerformReasoning(cfg config.AgentConfig, st *state.AgentState, turnIndex int) bool {
	if cfg.ReasoningType == config.ReasoningNone {
		return false
	}
	if turnIndex == 0 {
		return true
	}
	interval := cfg.ReasoningInterval
	if interval <= 0 {
		interval = 3
	}
	return st.LastToolFailed() && turnIndex%interval == 0
}

// MergeIntoState attaches a successful reasoning result to the agent state:
// the engine kind, the produced artifacts, merged metadata, and a goal
// augmented with the conclusion.
func MergeIntoState(st *state.AgentState, result *Result) {
	if result == nil || !result.Success {
		return
	}

	switch {
	case result.Chain != nil && result.Tree == nil:
		st.ReasoningType = config.ReasoningChainOfThought
	case result.Tree != nil && result.Chain == nil:
		st.ReasoningType = config.ReasoningTreeOfThoughts
	default:
		st.ReasoningType = config.ReasoningHybrid
	}
	if result.Chain != nil {
		st.CurrentChain = result.Chain
	}
	if result.Tree != nil {
		st.CurrentTree = result.Tree
	}

	if len(result.Metadata) > 0 {
		if st.ReasoningMetadata == nil {
			st.ReasoningMetadata = make(map[string]interface{}, len(result.Metadata))
		}
		for k, v := range result.Metadata {
			st.ReasoningMetadata[k] = v
		}
	}

	if conclusion := strings.TrimSpace(result.Conclusion); conclusion != "" {
		st.Goal = fmt.Sprintf("%s\n\nReasoning Insights: %s", st.Goal, conclusion)
	}
}
