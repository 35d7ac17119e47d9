package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
	"github.com/erwin-beckers/AIAgentSharp-sub001/llms"
	"github.com/erwin-beckers/AIAgentSharp-sub001/state"
	"github.com/erwin-beckers/AIAgentSharp-sub001/utils"
)

// ============================================================================
// TREE-OF-THOUGHTS ENGINE
// Iterative exploration: generate a root thought, expand a frontier of
// candidate thoughts, score them, and walk the tree per strategy
// ============================================================================

// TreeOfThoughtsEngine explores alternative lines of thought under node and
// depth budgets.
type TreeOfThoughtsEngine struct {
	provider      llms.Provider
	maxDepth      int
	maxNodes      int
	strategy      config.ExplorationStrategy
	beamWidth     int
	maxConclusion int

	// rng drives monte_carlo sampling; injectable for deterministic tests.
	rng *rand.Rand
}

// NewTreeOfThoughtsEngine creates a tree-of-thoughts engine.
func NewTreeOfThoughtsEngine(provider llms.Provider, cfg config.AgentConfig) *TreeOfThoughtsEngine {
	return &TreeOfThoughtsEngine{
		provider:      provider,
		maxDepth:      cfg.MaxTreeDepth,
		maxNodes:      cfg.MaxTreeNodes,
		strategy:      cfg.TreeExplorationStrategy,
		beamWidth:     cfg.BeamWidth,
		maxConclusion: cfg.MaxReasoningConclusionSize,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Type implements Engine.
func (e *TreeOfThoughtsEngine) Type() config.ReasoningType {
	return config.ReasoningTreeOfThoughts
}

// Reason implements Engine.
func (e *TreeOfThoughtsEngine) Reason(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	tree := state.NewReasoningTree(e.maxDepth, e.maxNodes, e.strategy)

	rootThought, err := e.generateRoot(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tree of thoughts root generation failed: %w", err)
	}
	rootScore, err := e.scoreThoughts(ctx, req, []string{rootThought})
	if err != nil {
		return nil, fmt.Errorf("tree of thoughts scoring failed: %w", err)
	}
	rootID := tree.AddNode(-1, rootThought, rootScore[0])

	frontier := []int{rootID}
	for len(tree.Nodes) < e.maxNodes && len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var idx int
		idx, frontier = e.selectNext(tree, frontier)
		nodeID := frontier[idx]
		frontier = append(frontier[:idx], frontier[idx+1:]...)

		node := tree.Node(nodeID)
		node.Expanded = true
		if node.Depth >= e.maxDepth {
			continue
		}

		thoughts, err := e.generateChildren(ctx, req, tree, nodeID)
		if err != nil {
			return nil, fmt.Errorf("tree of thoughts expansion failed: %w", err)
		}
		if len(thoughts) == 0 {
			continue
		}
		scores, err := e.scoreThoughts(ctx, req, thoughts)
		if err != nil {
			return nil, fmt.Errorf("tree of thoughts scoring failed: %w", err)
		}

		for i, thought := range thoughts {
			if len(tree.Nodes) >= e.maxNodes {
				break
			}
			childID := tree.AddNode(nodeID, thought, scores[i])
			frontier = append(frontier, childID)
		}
	}

	tree.ComputeBestPath()

	conclusion, err := e.concludeFromPath(ctx, req, tree)
	if err != nil {
		return nil, fmt.Errorf("tree of thoughts conclusion failed: %w", err)
	}
	conclusion = capConclusion(conclusion, e.maxConclusion)

	return &Result{
		Success:    true,
		Tree:       tree,
		Conclusion: conclusion,
		Confidence: tree.MeanScore(),
		Metadata: map[string]interface{}{
			"engine":     string(config.ReasoningTreeOfThoughts),
			"node_count": len(tree.Nodes),
			"strategy":   string(e.strategy),
		},
		ExecutionTimeMS: time.Since(started).Milliseconds(),
	}, nil
}

// ============================================================================
// FRONTIER SELECTION
// ============================================================================

// selectNext returns the frontier index to expand next and the (possibly
// pruned) frontier. Pruning only happens for beam search.
func (e *TreeOfThoughtsEngine) selectNext(tree *state.ReasoningTree, frontier []int) (int, []int) {
	switch e.strategy {
	case config.ExplorationBreadthFirst:
		return 0, frontier

	case config.ExplorationDepthFirst:
		return len(frontier) - 1, frontier

	case config.ExplorationBeamSearch:
		return e.selectBeam(tree, frontier)

	case config.ExplorationMonteCarlo:
		return e.sampleByScore(tree, frontier), frontier

	default: // best_first
		best := 0
		for i, id := range frontier {
			if tree.Node(id).Score > tree.Node(frontier[best]).Score {
				best = i
			}
		}
		return best, frontier
	}
}

// selectBeam keeps only the top-k frontier nodes at the shallowest depth,
// then expands the best of them.
func (e *TreeOfThoughtsEngine) selectBeam(tree *state.ReasoningTree, frontier []int) (int, []int) {
	minDepth := tree.Node(frontier[0]).Depth
	for _, id := range frontier[1:] {
		if d := tree.Node(id).Depth; d < minDepth {
			minDepth = d
		}
	}

	var level, rest []int
	for _, id := range frontier {
		if tree.Node(id).Depth == minDepth {
			level = append(level, id)
		} else {
			rest = append(rest, id)
		}
	}
	sort.Slice(level, func(i, j int) bool {
		return tree.Node(level[i]).Score > tree.Node(level[j]).Score
	})
	if len(level) > e.beamWidth {
		level = level[:e.beamWidth]
	}

	pruned := append(level, rest...)
	return 0, pruned
}

// sampleByScore picks a frontier index with probability proportional to
// node score; uniform when all scores are zero.
func (e *TreeOfThoughtsEngine) sampleByScore(tree *state.ReasoningTree, frontier []int) int {
	var total float64
	for _, id := range frontier {
		total += tree.Node(id).Score
	}
	if total <= 0 {
		return e.rng.Intn(len(frontier))
	}

	target := e.rng.Float64() * total
	var acc float64
	for i, id := range frontier {
		acc += tree.Node(id).Score
		if target < acc {
			return i
		}
	}
	return len(frontier) - 1
}

// ============================================================================
// LLM SUB-CALLS
// ============================================================================

func (e *TreeOfThoughtsEngine) generateRoot(ctx context.Context, req Request) (string, error) {
	prompt := fmt.Sprintf(
		"Goal: %s\n\n%sState the single most promising initial line of thought for this goal.\n"+
			`Reply with exactly one JSON object: {"thought":"<initial thought>"}`,
		req.Goal, contextBlock(req))

	completion, err := e.provider.Complete(ctx, []llms.Message{
		{Role: llms.RoleSystem, Content: "You explore solution approaches one thought at a time."},
		{Role: llms.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", err
	}

	var reply struct {
		Thought string `json:"thought"`
	}
	if err := decodeFirstObject(completion.Content, &reply); err != nil {
		return "", err
	}
	if reply.Thought == "" {
		return "", fmt.Errorf("empty root thought")
	}
	return reply.Thought, nil
}

func (e *TreeOfThoughtsEngine) generateChildren(ctx context.Context, req Request, tree *state.ReasoningTree, nodeID int) ([]string, error) {
	path := tree.PathTo(nodeID)
	var lineage []string
	for _, id := range path {
		lineage = append(lineage, tree.Node(id).Thought)
	}

	prompt := fmt.Sprintf(
		"Goal: %s\n\n%sCurrent line of thought:\n- %s\n\n"+
			"Propose 2 or 3 distinct next thoughts that extend this line.\n"+
			`Reply with exactly one JSON object: {"thoughts":["<thought>", ...]}`,
		req.Goal, contextBlock(req), strings.Join(lineage, "\n- "))

	completion, err := e.provider.Complete(ctx, []llms.Message{
		{Role: llms.RoleSystem, Content: "You explore solution approaches one thought at a time."},
		{Role: llms.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	var reply struct {
		Thoughts []string `json:"thoughts"`
	}
	if err := decodeFirstObject(completion.Content, &reply); err != nil {
		return nil, err
	}
	if len(reply.Thoughts) > 3 {
		reply.Thoughts = reply.Thoughts[:3]
	}
	return reply.Thoughts, nil
}

// scoreThoughts asks the LLM to rate each thought in [0,1]. Missing or
// out-of-range scores are clamped; a short reply is padded with 0.5.
func (e *TreeOfThoughtsEngine) scoreThoughts(ctx context.Context, req Request, thoughts []string) ([]float64, error) {
	var listing strings.Builder
	for i, thought := range thoughts {
		fmt.Fprintf(&listing, "%d. %s\n", i+1, thought)
	}

	prompt := fmt.Sprintf(
		"Goal: %s\n\nRate how promising each thought is for reaching the goal, 0 to 1.\n%s\n"+
			`Reply with exactly one JSON object: {"scores":[<number>, ...]} in the same order.`,
		req.Goal, listing.String())

	completion, err := e.provider.Complete(ctx, []llms.Message{
		{Role: llms.RoleSystem, Content: "You are a strict evaluator of reasoning quality."},
		{Role: llms.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	var reply struct {
		Scores []float64 `json:"scores"`
	}
	if err := decodeFirstObject(completion.Content, &reply); err != nil {
		return nil, err
	}

	scores := make([]float64, len(thoughts))
	for i := range scores {
		if i < len(reply.Scores) {
			scores[i] = clamp01(reply.Scores[i])
		} else {
			scores[i] = defaultStepConfidence
		}
	}
	return scores, nil
}

func (e *TreeOfThoughtsEngine) concludeFromPath(ctx context.Context, req Request, tree *state.ReasoningTree) (string, error) {
	var lineage []string
	for _, id := range tree.BestPath {
		lineage = append(lineage, tree.Node(id).Thought)
	}

	prompt := fmt.Sprintf(
		"Goal: %s\n\nBest explored line of thought:\n- %s\n\n"+
			"State the conclusion this exploration supports.\n"+
			`Reply with exactly one JSON object: {"conclusion":"<conclusion>"}`,
		req.Goal, strings.Join(lineage, "\n- "))

	completion, err := e.provider.Complete(ctx, []llms.Message{
		{Role: llms.RoleSystem, Content: "You summarize explored reasoning into a conclusion."},
		{Role: llms.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", err
	}

	var reply struct {
		Conclusion string `json:"conclusion"`
	}
	if err := decodeFirstObject(completion.Content, &reply); err != nil {
		return "", err
	}
	return reply.Conclusion, nil
}

func contextBlock(req Request) string {
	if req.Context == "" {
		return ""
	}
	return "Context:\n" + req.Context + "\n\n"
}

func decodeFirstObject(raw string, out interface{}) error {
	obj, err := utils.ExtractFirstJSONObject(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(obj), out)
}
