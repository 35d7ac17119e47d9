// Package reasoning implements the structured reasoning engines: linear
// chain-of-thought, explored tree-of-thoughts, and the hybrid combination,
// plus the manager that selects and runs them between agent turns.
package reasoning

import (
	"context"

	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
	"github.com/erwin-beckers/AIAgentSharp-sub001/state"
)

// ============================================================================
// ENGINE CONTRACT
// ============================================================================

// Request carries what an engine reasons about.
type Request struct {
	Goal    string
	Context string
	Tools   []string
}

// Result is the outcome of one reasoning pass. Exactly one of Chain or
// Tree is set for the single engines; hybrid sets both when both succeed.
type Result struct {
	Success         bool                   `json:"success"`
	Error           string                 `json:"error,omitempty"`
	Chain           *state.ReasoningChain  `json:"chain,omitempty"`
	Tree            *state.ReasoningTree   `json:"tree,omitempty"`
	Conclusion      string                 `json:"conclusion,omitempty"`
	Confidence      float64                `json:"confidence"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	ExecutionTimeMS int64                  `json:"execution_time_ms"`
}

// Engine is one reasoning implementation.
type Engine interface {
	// Type identifies the engine.
	Type() config.ReasoningType

	// Reason performs a full reasoning pass. Engines return an error only
	// for faults; a reasoning pass that merely produced nothing useful is a
	// failed Result.
	Reason(ctx context.Context, req Request) (*Result, error)
}
