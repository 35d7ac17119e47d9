package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erwin-beckers/AIAgentSharp-sub001/agenterr"
	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
	"github.com/erwin-beckers/AIAgentSharp-sub001/llms"
	"github.com/erwin-beckers/AIAgentSharp-sub001/state"
	"github.com/erwin-beckers/AIAgentSharp-sub001/tools"
)

// scriptedProvider replays canned completions in order.
type scriptedProvider struct {
	replies []string
	calls   int
	err     error
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "test" }
func (p *scriptedProvider) Complete(_ context.Context, _ []llms.Message) (llms.Completion, error) {
	if p.err != nil {
		return llms.Completion{}, p.err
	}
	if p.calls >= len(p.replies) {
		return llms.Completion{}, fmt.Errorf("script exhausted after %d calls", p.calls)
	}
	reply := p.replies[p.calls]
	p.calls++
	return llms.Completion{Content: reply}, nil
}

func TestChainOfThought_Reason(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		`Here you go:
		{"steps":[
			{"reasoning":"decompose the goal","confidence":0.9},
			{"reasoning":"pick an approach"},
			{"reasoning":"verify","confidence":1.5}
		],"conclusion":"use the add tool"}`,
	}}
	engine := NewChainOfThoughtEngine(provider, config.DefaultConfig())

	result, err := engine.Reason(context.Background(), Request{Goal: "compute 2+2"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Chain.Steps, 3)
	assert.Equal(t, 0.9, result.Chain.Steps[0].Confidence)
	assert.Equal(t, 0.5, result.Chain.Steps[1].Confidence, "missing confidence defaults")
	assert.Equal(t, 1.0, result.Chain.Steps[2].Confidence, "clamped to [0,1]")
	assert.Equal(t, "use the add tool", result.Conclusion)
	assert.InDelta(t, (0.9+0.5+1.0)/3, result.Confidence, 1e-9)
	assert.GreaterOrEqual(t, result.ExecutionTimeMS, int64(0))
}

func TestChainOfThought_ConclusionCap(t *testing.T) {
	long := strings.Repeat("x", 5000)
	provider := &scriptedProvider{replies: []string{
		fmt.Sprintf(`{"steps":[{"reasoning":"r","confidence":0.5}],"conclusion":%q}`, long),
	}}
	cfg := config.DefaultConfig()
	engine := NewChainOfThoughtEngine(provider, cfg)

	result, err := engine.Reason(context.Background(), Request{Goal: "g"})
	require.NoError(t, err)
	assert.Len(t, result.Conclusion, cfg.MaxReasoningConclusionSize)
}

func TestChainOfThought_BadReply(t *testing.T) {
	engine := NewChainOfThoughtEngine(&scriptedProvider{replies: []string{"no json here"}}, config.DefaultConfig())
	_, err := engine.Reason(context.Background(), Request{Goal: "g"})
	assert.Error(t, err)
}

func TestTreeOfThoughts_Reason(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		`{"thought":"start broad"}`,
		`{"scores":[0.5]}`,
		`{"thoughts":["go left","go right"]}`,
		`{"scores":[0.9,0.2]}`,
		`{"thoughts":["finish left"]}`,
		`{"scores":[0.8]}`,
		`{"conclusion":"left path wins"}`,
	}}
	cfg := config.DefaultConfig()
	cfg.MaxTreeNodes = 4
	cfg.MaxTreeDepth = 2
	engine := NewTreeOfThoughtsEngine(provider, cfg)

	result, err := engine.Reason(context.Background(), Request{Goal: "choose a path"})
	require.NoError(t, err)
	require.True(t, result.Success)

	tree := result.Tree
	require.NotNil(t, tree)
	assert.Len(t, tree.Nodes, 4)
	assert.Equal(t, "left path wins", result.Conclusion)

	// root -> "go left" -> "finish left" has the highest cumulative score.
	require.Len(t, tree.BestPath, 3)
	assert.Equal(t, "start broad", tree.Node(tree.BestPath[0]).Thought)
	assert.Equal(t, "go left", tree.Node(tree.BestPath[1]).Thought)
	assert.Equal(t, "finish left", tree.Node(tree.BestPath[2]).Thought)
}

func TestTreeOfThoughts_SingleNodeBudget(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		`{"thought":"only thought"}`,
		`{"scores":[0.7]}`,
		`{"conclusion":"done"}`,
	}}
	cfg := config.DefaultConfig()
	cfg.MaxTreeNodes = 1
	engine := NewTreeOfThoughtsEngine(provider, cfg)

	result, err := engine.Reason(context.Background(), Request{Goal: "g"})
	require.NoError(t, err)
	assert.Len(t, result.Tree.Nodes, 1)
	assert.Equal(t, 3, provider.calls, "no expansion calls within a one node budget")
}

func TestTreeOfThoughts_Cancellation(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		`{"thought":"start"}`,
		`{"scores":[0.5]}`,
	}}
	engine := NewTreeOfThoughtsEngine(provider, config.DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Reason(ctx, Request{Goal: "g"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSelectNext_Strategies(t *testing.T) {
	tree := state.NewReasoningTree(3, 20, config.ExplorationBestFirst)
	root := tree.AddNode(-1, "root", 0.5)
	a := tree.AddNode(root, "a", 0.9)
	b := tree.AddNode(root, "b", 0.2)
	c := tree.AddNode(root, "c", 0.7)
	frontier := []int{a, b, c}

	cfg := config.DefaultConfig()

	bestFirst := NewTreeOfThoughtsEngine(&scriptedProvider{}, cfg)
	idx, f := bestFirst.selectNext(tree, frontier)
	assert.Equal(t, a, f[idx])

	cfg.TreeExplorationStrategy = config.ExplorationBreadthFirst
	bfs := NewTreeOfThoughtsEngine(&scriptedProvider{}, cfg)
	idx, f = bfs.selectNext(tree, frontier)
	assert.Equal(t, a, f[idx], "FIFO picks the oldest")

	cfg.TreeExplorationStrategy = config.ExplorationDepthFirst
	dfs := NewTreeOfThoughtsEngine(&scriptedProvider{}, cfg)
	idx, f = dfs.selectNext(tree, frontier)
	assert.Equal(t, c, f[idx], "LIFO picks the newest")

	cfg.TreeExplorationStrategy = config.ExplorationBeamSearch
	cfg.BeamWidth = 2
	beam := NewTreeOfThoughtsEngine(&scriptedProvider{}, cfg)
	idx, f = beam.selectNext(tree, frontier)
	assert.Equal(t, a, f[idx])
	assert.Len(t, f, 2, "beam prunes the level to top-k")

	cfg.TreeExplorationStrategy = config.ExplorationMonteCarlo
	mc := NewTreeOfThoughtsEngine(&scriptedProvider{}, cfg)
	idx, f = mc.selectNext(tree, frontier)
	assert.Contains(t, f, f[idx])
}

// fakeEngine is a canned reasoning engine for manager and hybrid tests.
type fakeEngine struct {
	kind   config.ReasoningType
	result *Result
	err    error
}

func (f *fakeEngine) Type() config.ReasoningType { return f.kind }
func (f *fakeEngine) Reason(_ context.Context, _ Request) (*Result, error) {
	return f.result, f.err
}

func TestHybrid_CombinesBothResults(t *testing.T) {
	chainProvider := &scriptedProvider{replies: []string{
		`{"steps":[{"reasoning":"think","confidence":1.0}],"conclusion":"chain says yes"}`,
	}}
	treeProvider := &scriptedProvider{replies: []string{
		`{"thought":"explore"}`,
		`{"scores":[0.5]}`,
		`{"conclusion":"tree says maybe"}`,
	}}
	cfg := config.DefaultConfig()
	cfg.MaxTreeNodes = 1

	hybrid := NewHybridEngine(
		NewChainOfThoughtEngine(chainProvider, cfg),
		NewTreeOfThoughtsEngine(treeProvider, cfg),
	)

	result, err := hybrid.Reason(context.Background(), Request{Goal: "g", Context: "c"})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.NotNil(t, result.Chain)
	assert.NotNil(t, result.Tree)
	assert.Equal(t, "Analysis: chain says yes\n\nExploration: tree says maybe", result.Conclusion)
	assert.InDelta(t, 0.6*1.0+0.4*0.5, result.Confidence, 1e-9)
}

func TestHybrid_ChainOnly(t *testing.T) {
	chainProvider := &scriptedProvider{replies: []string{
		`{"steps":[{"reasoning":"think","confidence":0.8}],"conclusion":"only chain"}`,
	}}
	treeProvider := &scriptedProvider{err: errors.New("provider down")}
	cfg := config.DefaultConfig()

	hybrid := NewHybridEngine(
		NewChainOfThoughtEngine(chainProvider, cfg),
		NewTreeOfThoughtsEngine(treeProvider, cfg),
	)

	result, err := hybrid.Reason(context.Background(), Request{Goal: "g"})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "only chain", result.Conclusion)
	assert.InDelta(t, 0.6*0.8, result.Confidence, 1e-9)
}

func TestHybrid_BothFail(t *testing.T) {
	cfg := config.DefaultConfig()
	hybrid := NewHybridEngine(
		NewChainOfThoughtEngine(&scriptedProvider{err: errors.New("down")}, cfg),
		NewTreeOfThoughtsEngine(&scriptedProvider{err: errors.New("down")}, cfg),
	)

	result, err := hybrid.Reason(context.Background(), Request{Goal: "g"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "All reasoning approaches failed", result.Error)
}

func TestManager_ReasonNone(t *testing.T) {
	m := NewManagerWithEngines()
	_, err := m.Reason(context.Background(), config.ReasoningNone, Request{Goal: "g"})
	require.Error(t, err)
	assert.Equal(t, agenterr.KindInvalidOperation, agenterr.KindOf(err))
}

func TestManager_UnsupportedType(t *testing.T) {
	m := NewManagerWithEngines()
	_, err := m.Reason(context.Background(), config.ReasoningChainOfThought, Request{Goal: "g"})
	require.Error(t, err)
	assert.Equal(t, agenterr.KindUnsupported, agenterr.KindOf(err))
}

func TestManager_EngineFaultBecomesFailedResult(t *testing.T) {
	m := NewManagerWithEngines(&fakeEngine{
		kind: config.ReasoningChainOfThought,
		err:  errors.New("llm exploded"),
	})

	result, err := m.Reason(context.Background(), config.ReasoningChainOfThought, Request{Goal: "g"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "llm exploded")
	assert.GreaterOrEqual(t, result.ExecutionTimeMS, int64(0))
}

func TestManager_CancellationPropagates(t *testing.T) {
	m := NewManagerWithEngines(&fakeEngine{
		kind: config.ReasoningChainOfThought,
		err:  context.Canceled,
	})

	_, err := m.Reason(context.Background(), config.ReasoningChainOfThought, Request{Goal: "g"})
	require.Error(t, err)
	assert.True(t, agenterr.IsCancelled(err))
}

func TestManager_TracksCurrentArtifacts(t *testing.T) {
	chain := &state.ReasoningChain{Steps: []state.ReasoningStep{{Reasoning: "r", Confidence: 0.5}}}
	m := NewManagerWithEngines(&fakeEngine{
		kind:   config.ReasoningChainOfThought,
		result: &Result{Success: true, Chain: chain, Confidence: 0.5},
	})

	assert.True(t, m.IsSupported(config.ReasoningChainOfThought))
	assert.False(t, m.IsSupported(config.ReasoningHybrid))
	assert.Equal(t, []config.ReasoningType{config.ReasoningChainOfThought}, m.SupportedTypes())

	_, err := m.Reason(context.Background(), config.ReasoningChainOfThought, Request{Goal: "g"})
	require.NoError(t, err)
	assert.Equal(t, chain, m.GetCurrentChain())
	assert.Nil(t, m.GetCurrentTree())
}

func TestShouldPerformReasoning(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ReasoningType = config.ReasoningChainOfThought

	st := state.NewAgentState("a", "g")
	assert.True(t, ShouldPerformReasoning(cfg, st, 0), "always on turn zero")

	st.AppendTurn(state.AgentTurn{ToolResult: &tools.ExecutionResult{Success: true}})
	assert.False(t, ShouldPerformReasoning(cfg, st, 3), "last tool succeeded")

	st.AppendTurn(state.AgentTurn{ToolResult: &tools.ExecutionResult{Success: false}})
	assert.True(t, ShouldPerformReasoning(cfg, st, 3))
	assert.False(t, ShouldPerformReasoning(cfg, st, 4), "off the interval")

	cfg.ReasoningType = config.ReasoningNone
	assert.False(t, ShouldPerformReasoning(cfg, st, 0))
}

func TestMergeIntoState(t *testing.T) {
	st := state.NewAgentState("a", "original goal")
	chain := &state.ReasoningChain{Steps: []state.ReasoningStep{{Reasoning: "r", Confidence: 0.9}}}

	MergeIntoState(st, &Result{
		Success:    true,
		Chain:      chain,
		Conclusion: "do the thing",
		Metadata:   map[string]interface{}{"engine": "chain_of_thought"},
	})

	assert.Equal(t, config.ReasoningChainOfThought, st.ReasoningType)
	assert.Equal(t, chain, st.CurrentChain)
	assert.Equal(t, "original goal\n\nReasoning Insights: do the thing", st.Goal)
	assert.Equal(t, "chain_of_thought", st.ReasoningMetadata["engine"])

	// A failed result leaves the state untouched.
	before := *st
	MergeIntoState(st, &Result{Success: false, Error: "nope"})
	assert.Equal(t, before.Goal, st.Goal)
}
