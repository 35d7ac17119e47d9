package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
	"github.com/erwin-beckers/AIAgentSharp-sub001/events"
	"github.com/erwin-beckers/AIAgentSharp-sub001/llms"
	"github.com/erwin-beckers/AIAgentSharp-sub001/observability"
	"github.com/erwin-beckers/AIAgentSharp-sub001/state"
	"github.com/erwin-beckers/AIAgentSharp-sub001/tools"
)

// ============================================================================
// RUNNER
// ============================================================================

// RunResult is the outcome of driving one agent to completion.
type RunResult struct {
	AgentID     string `json:"agent_id"`
	FinalOutput string `json:"final_output,omitempty"`
	Succeeded   bool   `json:"succeeded"`
	Turns       int    `json:"turns"`
}

// Runner drives orchestrator steps until the agent finishes or the turn
// budget runs out. One runner serializes steps per agent id; independent
// agents run in parallel through RunAll.
type Runner struct {
	cfg   config.AgentConfig
	orch  *Orchestrator
	store state.Store
	em    *events.Manager

	mu     sync.Mutex
	active map[string]bool
}

// NewRunner creates a runner over a wired orchestrator.
func NewRunner(cfg config.AgentConfig, provider llms.Provider, registry *tools.Registry, store state.Store, em *events.Manager) *Runner {
	return &Runner{
		cfg:    cfg,
		orch:   NewOrchestrator(cfg, provider, registry, store, em),
		store:  store,
		em:     em,
		active: make(map[string]bool),
	}
}

// Orchestrator exposes the underlying orchestrator for callers that want
// single-step control.
func (r *Runner) Orchestrator() *Orchestrator {
	return r.orch
}

// Run loads or creates the agent's state and executes steps up to the
// configured max_turns. A run that finishes within budget succeeds; budget
// exhaustion returns the partial state without error.
func (r *Runner) Run(ctx context.Context, agentID, goal string) (RunResult, error) {
	if agentID == "" {
		return RunResult{}, fmt.Errorf("agent id is required")
	}
	if err := r.acquire(agentID); err != nil {
		return RunResult{}, err
	}
	defer r.release(agentID)

	st, err := r.loadOrCreate(ctx, agentID, goal)
	if err != nil {
		return RunResult{}, err
	}

	observability.Default().RecordAgentRun(ctx, agentID)
	observability.Default().RecordAPICall(ctx, agentID, "runner", "run")
	r.emitRun(events.TypeRunStarted, agentID, nil)

	result := RunResult{AgentID: agentID}
	for i := 0; i < r.cfg.MaxTurns; i++ {
		step, err := r.orch.ExecuteStep(ctx, st)
		if err != nil {
			r.emitRun(events.TypeRunCompleted, agentID, &result)
			return result, err
		}
		result.Turns = len(st.Turns)
		if !step.Continue {
			result.Succeeded = true
			result.FinalOutput = step.FinalOutput
			break
		}
	}

	if !result.Succeeded {
		slog.Info("Agent exhausted its turn budget", "agent", agentID, "max_turns", r.cfg.MaxTurns)
	}
	r.emitRun(events.TypeRunCompleted, agentID, &result)
	return result, nil
}

// RunAll runs several agents concurrently, one goroutine per agent. The
// first hard error cancels the rest.
func (r *Runner) RunAll(ctx context.Context, goals map[string]string) (map[string]RunResult, error) {
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	results := make(map[string]RunResult, len(goals))

	for agentID, goal := range goals {
		g.Go(func() error {
			res, err := r.Run(gctx, agentID, goal)
			if err != nil {
				return fmt.Errorf("agent %q: %w", agentID, err)
			}
			mu.Lock()
			results[agentID] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// loadOrCreate fetches existing state or starts fresh. A non-empty goal
// replaces the goal of a resumed agent.
func (r *Runner) loadOrCreate(ctx context.Context, agentID, goal string) (*state.AgentState, error) {
	if r.store != nil {
		st, err := r.store.Load(ctx, agentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load state: %w", err)
		}
		if st != nil {
			if goal != "" {
				st.Goal = goal
			}
			return st, nil
		}
	}
	return state.NewAgentState(agentID, goal), nil
}

// acquire enforces one run at a time per agent id.
func (r *Runner) acquire(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[agentID] {
		return fmt.Errorf("agent %q is already running", agentID)
	}
	r.active[agentID] = true
	return nil
}

func (r *Runner) release(agentID string) {
	r.mu.Lock()
	delete(r.active, agentID)
	r.mu.Unlock()
}

func (r *Runner) emitRun(eventType events.Type, agentID string, result *RunResult) {
	if r.em == nil {
		return
	}
	ev := events.Event{Type: eventType, AgentID: agentID}
	if result != nil {
		ev.Step = &events.StepPayload{
			Continue:    false,
			FinalOutput: result.FinalOutput,
		}
	}
	r.em.Emit(ev)
}
