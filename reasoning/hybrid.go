package reasoning

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erwin-beckers/AIAgentSharp-sub001/agenterr"
	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
)

// ============================================================================
// HYBRID ENGINE
// Chain-of-thought first, then tree exploration enriched with the chain's
// conclusion and top insights
// ============================================================================

// Chain confidence is weighted higher than tree confidence because the
// chain is the primary analytical path.
const (
	hybridChainWeight = 0.6
	hybridTreeWeight  = 0.4
)

// topInsightCount bounds how many chain steps enrich the tree context.
const topInsightCount = 3

// HybridEngine combines the chain and tree engines.
type HybridEngine struct {
	chain *ChainOfThoughtEngine
	tree  *TreeOfThoughtsEngine
}

// NewHybridEngine creates a hybrid engine over existing sub-engines.
func NewHybridEngine(chain *ChainOfThoughtEngine, tree *TreeOfThoughtsEngine) *HybridEngine {
	return &HybridEngine{chain: chain, tree: tree}
}

// Type implements Engine.
func (e *HybridEngine) Type() config.ReasoningType {
	return config.ReasoningHybrid
}

// Reason implements Engine. Sub-engine faults are tolerated individually;
// only cancellation aborts the pass.
func (e *HybridEngine) Reason(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	chainResult, chainErr := e.chain.Reason(ctx, req)
	if chainErr != nil && agenterr.IsCancelled(chainErr) {
		return nil, chainErr
	}

	treeReq := req
	if chainErr == nil && chainResult.Success {
		treeReq.Context = enrichContext(req.Context, chainResult)
	}
	treeResult, treeErr := e.tree.Reason(ctx, treeReq)
	if treeErr != nil && agenterr.IsCancelled(treeErr) {
		return nil, treeErr
	}

	chainOK := chainErr == nil && chainResult.Success
	treeOK := treeErr == nil && treeResult.Success
	if !chainOK && !treeOK {
		return &Result{
			Success:         false,
			Error:           "All reasoning approaches failed",
			ExecutionTimeMS: time.Since(started).Milliseconds(),
		}, nil
	}

	result := &Result{
		Success: true,
		Metadata: map[string]interface{}{
			"engine":        string(config.ReasoningHybrid),
			"chain_success": chainOK,
			"tree_success":  treeOK,
		},
		ExecutionTimeMS: time.Since(started).Milliseconds(),
	}

	var chainConclusion, treeConclusion string
	var chainConfidence, treeConfidence float64
	if chainOK {
		result.Chain = chainResult.Chain
		chainConclusion = chainResult.Conclusion
		chainConfidence = chainResult.Confidence
	}
	if treeOK {
		result.Tree = treeResult.Tree
		treeConclusion = treeResult.Conclusion
		treeConfidence = treeResult.Confidence
	}

	result.Confidence = hybridChainWeight*chainConfidence + hybridTreeWeight*treeConfidence
	result.Conclusion = combineConclusions(chainConclusion, treeConclusion)
	return result, nil
}

// enrichContext appends the chain conclusion and its highest-confidence
// steps to the tree exploration context.
func enrichContext(base string, chainResult *Result) string {
	var b strings.Builder
	if base != "" {
		b.WriteString(base)
		b.WriteString("\n\n")
	}
	b.WriteString("Prior analysis concluded: ")
	b.WriteString(chainResult.Conclusion)

	var steps []int
	for i := range chainResult.Chain.Steps {
		steps = append(steps, i)
	}
	sort.Slice(steps, func(a, b int) bool {
		return chainResult.Chain.Steps[steps[a]].Confidence > chainResult.Chain.Steps[steps[b]].Confidence
	})
	if len(steps) > topInsightCount {
		steps = steps[:topInsightCount]
	}
	sort.Ints(steps)

	if len(steps) > 0 {
		b.WriteString("\nKey insights:")
		for _, i := range steps {
			fmt.Fprintf(&b, "\n- %s", chainResult.Chain.Steps[i].Reasoning)
		}
	}
	return b.String()
}

func combineConclusions(chain, tree string) string {
	switch {
	case chain != "" && tree != "":
		return fmt.Sprintf("Analysis: %s\n\nExploration: %s", chain, tree)
	case chain != "":
		return chain
	case tree != "":
		return tree
	default:
		return "Reasoning finished with no specific conclusions"
	}
}
