package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.UseFunctionCalling)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 30*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 10, cfg.MaxTurns)
	assert.Equal(t, 5, cfg.MaxRecentTurns)
	assert.True(t, cfg.EnableHistorySummarization)
	assert.Equal(t, 1000, cfg.MaxToolOutputSize)
	assert.True(t, cfg.EmitPublicStatus)
	assert.Equal(t, ReasoningNone, cfg.ReasoningType)
	assert.Equal(t, 3, cfg.MaxTreeDepth)
	assert.Equal(t, 20, cfg.MaxTreeNodes)
	assert.Equal(t, ExplorationBestFirst, cfg.TreeExplorationStrategy)
	assert.Equal(t, 5*time.Minute, cfg.DedupeTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	content := `
use_function_calling: true
max_turns: 25
llm_timeout: 10s
max_tool_output_size: 0
reasoning_type: hybrid
tree_exploration_strategy: beam_search
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.UseFunctionCalling)
	assert.Equal(t, 25, cfg.MaxTurns)
	assert.Equal(t, 10*time.Second, cfg.LLMTimeout)
	// Explicit zero disables truncation and must survive loading.
	assert.Equal(t, 0, cfg.MaxToolOutputSize)
	assert.Equal(t, ReasoningHybrid, cfg.ReasoningType)
	assert.Equal(t, ExplorationBeamSearch, cfg.TreeExplorationStrategy)
	// Untouched keys keep defaults.
	assert.Equal(t, 5, cfg.MaxRecentTurns)
	assert.True(t, cfg.EmitPublicStatus)
}

func TestLoad_InvalidEnum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reasoning_type: psychic\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFromMap(t *testing.T) {
	cfg, err := FromMap(map[string]interface{}{
		"max_turns":      3,
		"tool_timeout":   "5s",
		"reasoning_type": "chain_of_thought",
		"max_tree_nodes": 7,
		"beam_width":     2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxTurns)
	assert.Equal(t, 5*time.Second, cfg.ToolTimeout)
	assert.Equal(t, ReasoningChainOfThought, cfg.ReasoningType)
	assert.Equal(t, 7, cfg.MaxTreeNodes)
	assert.Equal(t, 2, cfg.BeamWidth)
}

func TestValidate_Bounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTurns = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.TreeExplorationStrategy = "random_walk"
	assert.Error(t, cfg.Validate())
}
