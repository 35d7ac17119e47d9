package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
	"github.com/erwin-beckers/AIAgentSharp-sub001/llms"
	"github.com/erwin-beckers/AIAgentSharp-sub001/state"
	"github.com/erwin-beckers/AIAgentSharp-sub001/utils"
)

// ============================================================================
// CHAIN-OF-THOUGHT ENGINE
// Linear reasoning: one LLM call producing ordered steps plus a conclusion
// ============================================================================

// defaultStepConfidence is used when the model omits a step's confidence.
const defaultStepConfidence = 0.5

// ChainOfThoughtEngine asks the LLM for a sequence of reasoning steps and a
// final conclusion in a single structured reply.
type ChainOfThoughtEngine struct {
	provider      llms.Provider
	maxConclusion int
}

// NewChainOfThoughtEngine creates a chain-of-thought engine.
func NewChainOfThoughtEngine(provider llms.Provider, cfg config.AgentConfig) *ChainOfThoughtEngine {
	return &ChainOfThoughtEngine{
		provider:      provider,
		maxConclusion: cfg.MaxReasoningConclusionSize,
	}
}

// Type implements Engine.
func (e *ChainOfThoughtEngine) Type() config.ReasoningType {
	return config.ReasoningChainOfThought
}

// Reason implements Engine.
func (e *ChainOfThoughtEngine) Reason(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	completion, err := e.provider.Complete(ctx, []llms.Message{
		{Role: llms.RoleSystem, Content: chainSystemPrompt},
		{Role: llms.RoleUser, Content: buildChainUserPrompt(req)},
	})
	if err != nil {
		return nil, fmt.Errorf("chain of thought completion failed: %w", err)
	}

	chain, conclusion, err := parseChainReply(completion.Content)
	if err != nil {
		return nil, fmt.Errorf("chain of thought reply not parseable: %w", err)
	}
	conclusion = capConclusion(conclusion, e.maxConclusion)

	return &Result{
		Success:    true,
		Chain:      chain,
		Conclusion: conclusion,
		Confidence: chain.MeanConfidence(),
		Metadata: map[string]interface{}{
			"engine":     string(config.ReasoningChainOfThought),
			"step_count": len(chain.Steps),
		},
		ExecutionTimeMS: time.Since(started).Milliseconds(),
	}, nil
}

const chainSystemPrompt = `You are a careful reasoning assistant. Think through the goal step by step.
Reply with exactly one JSON object:
{"steps":[{"reasoning":"<one step>","confidence":<0..1>}...],"conclusion":"<final conclusion>"}
Use 3 to 7 steps. Confidence reflects how sure you are of each step.`

func buildChainUserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Goal: ")
	b.WriteString(req.Goal)
	if req.Context != "" {
		b.WriteString("\n\nContext:\n")
		b.WriteString(req.Context)
	}
	if len(req.Tools) > 0 {
		b.WriteString("\n\nAvailable tools: ")
		b.WriteString(strings.Join(req.Tools, ", "))
	}
	return b.String()
}

type chainReply struct {
	Steps []struct {
		Reasoning  string   `json:"reasoning"`
		Confidence *float64 `json:"confidence"`
	} `json:"steps"`
	Conclusion string `json:"conclusion"`
}

func parseChainReply(raw string) (*state.ReasoningChain, string, error) {
	obj, err := utils.ExtractFirstJSONObject(raw)
	if err != nil {
		return nil, "", err
	}
	var reply chainReply
	if err := json.Unmarshal([]byte(obj), &reply); err != nil {
		return nil, "", err
	}
	if len(reply.Steps) == 0 {
		return nil, "", fmt.Errorf("no reasoning steps in reply")
	}

	chain := &state.ReasoningChain{CreatedUTC: time.Now().UTC()}
	for _, s := range reply.Steps {
		confidence := defaultStepConfidence
		if s.Confidence != nil {
			confidence = clamp01(*s.Confidence)
		}
		chain.Steps = append(chain.Steps, state.ReasoningStep{
			Reasoning:  s.Reasoning,
			Confidence: confidence,
		})
	}
	chain.Conclusion = reply.Conclusion
	return chain, reply.Conclusion, nil
}

func capConclusion(conclusion string, max int) string {
	if max <= 0 || len(conclusion) <= max {
		return conclusion
	}
	return conclusion[:max]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
