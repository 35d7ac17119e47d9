package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
	"github.com/erwin-beckers/AIAgentSharp-sub001/llms"
	"github.com/erwin-beckers/AIAgentSharp-sub001/tools"
)

func TestAgentState_AppendTurn(t *testing.T) {
	st := NewAgentState("agent-1", "solve it")

	first := st.AppendTurn(AgentTurn{TurnID: "t0"})
	second := st.AppendTurn(AgentTurn{TurnID: "t1"})

	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 1, second.Index)
	assert.False(t, first.CreatedUTC.IsZero())
	for i, turn := range st.Turns {
		assert.Equal(t, i, turn.Index)
	}
}

func TestAgentState_RecentTurns(t *testing.T) {
	st := NewAgentState("agent-1", "g")
	for i := 0; i < 7; i++ {
		st.AppendTurn(AgentTurn{})
	}

	recent := st.RecentTurns(5)
	require.Len(t, recent, 5)
	assert.Equal(t, 2, recent[0].Index)
	assert.Equal(t, 6, recent[4].Index)

	assert.Len(t, st.RecentTurns(100), 7)
	assert.Nil(t, st.RecentTurns(0))
}

func TestAgentState_LastToolFailed(t *testing.T) {
	st := NewAgentState("agent-1", "g")
	assert.False(t, st.LastToolFailed())

	st.AppendTurn(AgentTurn{ToolResult: &tools.ExecutionResult{Success: true}})
	assert.False(t, st.LastToolFailed())

	st.AppendTurn(AgentTurn{ToolResult: &tools.ExecutionResult{Success: false}})
	assert.True(t, st.LastToolFailed())

	st.AppendTurn(AgentTurn{ToolResults: []tools.ExecutionResult{
		{Success: true}, {Success: false},
	}})
	assert.True(t, st.LastToolFailed())
}

func TestReasoningChain_MeanConfidence(t *testing.T) {
	chain := &ReasoningChain{Steps: []ReasoningStep{
		{Reasoning: "a", Confidence: 0.8},
		{Reasoning: "b", Confidence: 0.4},
	}}
	assert.InDelta(t, 0.6, chain.MeanConfidence(), 1e-9)

	var empty *ReasoningChain
	assert.Zero(t, empty.MeanConfidence())
}

func TestReasoningTree_ArenaAndBestPath(t *testing.T) {
	tree := NewReasoningTree(3, 20, config.ExplorationBestFirst)

	root := tree.AddNode(-1, "root", 0.5)
	left := tree.AddNode(root, "left", 0.9)
	right := tree.AddNode(root, "right", 0.3)
	deep := tree.AddNode(right, "deep", 0.95)

	assert.Equal(t, root, tree.RootID)
	assert.Equal(t, 1, tree.Node(left).Depth)
	assert.Equal(t, 2, tree.Node(deep).Depth)
	assert.Equal(t, []int{left, deep}, tree.Leaves())

	best := tree.ComputeBestPath()
	// root(0.5)+right(0.3)+deep(0.95)=1.75 beats root+left=1.4
	assert.Equal(t, []int{root, right, deep}, best)
	assert.Equal(t, best, tree.BestPath)

	assert.InDelta(t, (0.5+0.9+0.3+0.95)/4, tree.MeanScore(), 1e-9)
}

func TestReasoningTree_Empty(t *testing.T) {
	tree := NewReasoningTree(3, 20, config.ExplorationBestFirst)
	assert.Nil(t, tree.ComputeBestPath())
	assert.Nil(t, tree.Node(0))
	assert.Zero(t, tree.MeanScore())
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	missing, err := store.Load(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)

	st := NewAgentState("agent-1", "goal")
	st.AppendTurn(AgentTurn{
		TurnID:     "abc",
		LLMMessage: &llms.ModelMessage{Action: llms.ActionFinish},
	})
	require.NoError(t, store.Save(ctx, "agent-1", st))

	loaded, err := store.Load(ctx, "agent-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "goal", loaded.Goal)
	require.Len(t, loaded.Turns, 1)
	assert.Equal(t, llms.ActionFinish, loaded.Turns[0].LLMMessage.Action)

	// The stored snapshot is isolated from later caller mutations.
	st.Goal = "mutated"
	reloaded, err := store.Load(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "goal", reloaded.Goal)
}

func TestMemoryStore_Validation(t *testing.T) {
	store := NewMemoryStore()
	assert.Error(t, store.Save(context.Background(), "", NewAgentState("a", "g")))
	assert.Error(t, store.Save(context.Background(), "a", nil))
}

func TestSQLConfig_Validate(t *testing.T) {
	cfg := &SQLConfig{Driver: "sqlite", DSN: ":memory:"}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.MaxConns)

	assert.Error(t, (&SQLConfig{Driver: "oracle", DSN: "x"}).Validate())
	assert.Error(t, (&SQLConfig{Driver: "mysql"}).Validate())
}
