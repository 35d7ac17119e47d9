// Package state holds the durable per-agent state: the goal, the ordered
// turn history, and any attached reasoning artifacts. The orchestrator
// mutates a loaned state in place and writes it back through a Store.
package state

import (
	"time"

	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
	"github.com/erwin-beckers/AIAgentSharp-sub001/llms"
	"github.com/erwin-beckers/AIAgentSharp-sub001/tools"
)

// ============================================================================
// AGENT STATE
// ============================================================================

// AgentState is the durable record of one agent. Turns are append-only;
// synthetic hint turns may be appended by the orchestrator but past turns
// are never rewritten.
type AgentState struct {
	AgentID           string                 `json:"agent_id"`
	Goal              string                 `json:"goal"`
	Turns             []AgentTurn            `json:"turns"`
	ReasoningType     config.ReasoningType   `json:"reasoning_type"`
	CurrentChain      *ReasoningChain        `json:"current_reasoning_chain,omitempty"`
	CurrentTree       *ReasoningTree         `json:"current_reasoning_tree,omitempty"`
	ReasoningMetadata map[string]interface{} `json:"reasoning_metadata,omitempty"`
}

// NewAgentState creates a fresh state for an agent and goal.
func NewAgentState(agentID, goal string) *AgentState {
	return &AgentState{
		AgentID:       agentID,
		Goal:          goal,
		ReasoningType: config.ReasoningNone,
	}
}

// AgentTurn is one entry in the turn history. Exactly one of the single
// tool fields or the multi-tool sequences is populated for tool turns.
type AgentTurn struct {
	Index       int                     `json:"index"`
	TurnID      string                  `json:"turn_id,omitempty"`
	LLMMessage  *llms.ModelMessage      `json:"llm_message,omitempty"`
	ToolCall    *llms.ToolCallRequest   `json:"tool_call,omitempty"`
	ToolResult  *tools.ExecutionResult  `json:"tool_result,omitempty"`
	ToolCalls   []llms.ToolCallRequest  `json:"tool_calls,omitempty"`
	ToolResults []tools.ExecutionResult `json:"tool_results,omitempty"`
	CreatedUTC  time.Time               `json:"created_utc"`
}

// AppendTurn appends a turn, assigning the next index and timestamp.
func (s *AgentState) AppendTurn(turn AgentTurn) *AgentTurn {
	turn.Index = len(s.Turns)
	if turn.CreatedUTC.IsZero() {
		turn.CreatedUTC = time.Now().UTC()
	}
	s.Turns = append(s.Turns, turn)
	return &s.Turns[len(s.Turns)-1]
}

// LastTurn returns the most recent turn, or nil when the history is empty.
func (s *AgentState) LastTurn() *AgentTurn {
	if len(s.Turns) == 0 {
		return nil
	}
	return &s.Turns[len(s.Turns)-1]
}

// RecentTurns returns the last n turns, oldest first.
func (s *AgentState) RecentTurns(n int) []AgentTurn {
	if n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	if n > len(s.Turns) {
		n = len(s.Turns)
	}
	return s.Turns[len(s.Turns)-n:]
}

// LastToolFailed reports whether the most recent turn carries a failed
// tool result, including any failure within a multi-tool turn.
func (s *AgentState) LastToolFailed() bool {
	last := s.LastTurn()
	if last == nil {
		return false
	}
	if last.ToolResult != nil && !last.ToolResult.Success {
		return true
	}
	for _, r := range last.ToolResults {
		if !r.Success {
			return true
		}
	}
	return false
}

// ============================================================================
// REASONING ARTIFACTS
// ============================================================================

// ReasoningStep is one link in a chain of thought.
type ReasoningStep struct {
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// ReasoningChain is a linear sequence of reasoning steps with a conclusion.
type ReasoningChain struct {
	Steps      []ReasoningStep `json:"steps"`
	Conclusion string          `json:"conclusion,omitempty"`
	CreatedUTC time.Time       `json:"created_utc"`
}

// MeanConfidence averages step confidence; 0 for an empty chain.
func (c *ReasoningChain) MeanConfidence() float64 {
	if c == nil || len(c.Steps) == 0 {
		return 0
	}
	var sum float64
	for _, step := range c.Steps {
		sum += step.Confidence
	}
	return sum / float64(len(c.Steps))
}

// ThoughtNode is one node in a reasoning tree. Nodes live in the tree's
// arena and reference each other by index.
type ThoughtNode struct {
	ID       int     `json:"id"`
	ParentID int     `json:"parent_id"` // -1 for the root
	Thought  string  `json:"thought"`
	Score    float64 `json:"score"`
	Depth    int     `json:"depth"`
	Children []int   `json:"children,omitempty"`
	Expanded bool    `json:"expanded"`
}

// ReasoningTree is an arena-allocated tree of thought nodes. BestPath is
// the highest-cumulative-score root-to-leaf path, as node IDs.
type ReasoningTree struct {
	Nodes      []ThoughtNode              `json:"nodes"`
	RootID     int                        `json:"root_id"`
	BestPath   []int                      `json:"best_path,omitempty"`
	MaxDepth   int                        `json:"max_depth"`
	MaxNodes   int                        `json:"max_nodes"`
	Strategy   config.ExplorationStrategy `json:"strategy"`
	CreatedUTC time.Time                  `json:"created_utc"`
}

// NewReasoningTree creates an empty tree with the given budgets.
func NewReasoningTree(maxDepth, maxNodes int, strategy config.ExplorationStrategy) *ReasoningTree {
	return &ReasoningTree{
		RootID:     -1,
		MaxDepth:   maxDepth,
		MaxNodes:   maxNodes,
		Strategy:   strategy,
		CreatedUTC: time.Now().UTC(),
	}
}

// AddNode appends a node to the arena and links it to its parent.
// parentID -1 makes the node the root.
func (t *ReasoningTree) AddNode(parentID int, thought string, score float64) int {
	id := len(t.Nodes)
	depth := 0
	if parentID >= 0 && parentID < len(t.Nodes) {
		depth = t.Nodes[parentID].Depth + 1
	}
	t.Nodes = append(t.Nodes, ThoughtNode{
		ID:       id,
		ParentID: parentID,
		Thought:  thought,
		Score:    score,
		Depth:    depth,
	})
	if parentID >= 0 && parentID < len(t.Nodes)-1 {
		t.Nodes[parentID].Children = append(t.Nodes[parentID].Children, id)
	} else {
		t.RootID = id
	}
	return id
}

// Node returns the node with the given id, or nil when out of range.
func (t *ReasoningTree) Node(id int) *ThoughtNode {
	if id < 0 || id >= len(t.Nodes) {
		return nil
	}
	return &t.Nodes[id]
}

// Leaves returns the IDs of all leaf nodes.
func (t *ReasoningTree) Leaves() []int {
	var leaves []int
	for i := range t.Nodes {
		if len(t.Nodes[i].Children) == 0 {
			leaves = append(leaves, t.Nodes[i].ID)
		}
	}
	return leaves
}

// PathTo returns node IDs from the root to the given node.
func (t *ReasoningTree) PathTo(id int) []int {
	var reversed []int
	for cur := id; cur >= 0 && cur < len(t.Nodes); cur = t.Nodes[cur].ParentID {
		reversed = append(reversed, cur)
	}
	path := make([]int, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}

// ComputeBestPath selects and stores the root-to-leaf path with the highest
// cumulative score.
func (t *ReasoningTree) ComputeBestPath() []int {
	if len(t.Nodes) == 0 || t.RootID < 0 {
		t.BestPath = nil
		return nil
	}

	var bestPath []int
	bestScore := -1.0
	for _, leaf := range t.Leaves() {
		path := t.PathTo(leaf)
		var score float64
		for _, id := range path {
			score += t.Nodes[id].Score
		}
		if score > bestScore {
			bestScore = score
			bestPath = path
		}
	}
	t.BestPath = bestPath
	return bestPath
}

// MeanScore averages node scores; 0 for an empty tree.
func (t *ReasoningTree) MeanScore() float64 {
	if t == nil || len(t.Nodes) == 0 {
		return 0
	}
	var sum float64
	for i := range t.Nodes {
		sum += t.Nodes[i].Score
	}
	return sum / float64(len(t.Nodes))
}
