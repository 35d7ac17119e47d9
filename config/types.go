// Package config provides configuration types and utilities for the agent
// framework. All knobs carry defaults; a zero-value AgentConfig is usable
// after SetDefaults.
package config

import (
	"fmt"
	"time"
)

// ============================================================================
// ENUMS
// ============================================================================

// ReasoningType selects the reasoning engine an agent uses between turns.
type ReasoningType string

const (
	ReasoningNone           ReasoningType = "none"
	ReasoningChainOfThought ReasoningType = "chain_of_thought"
	ReasoningTreeOfThoughts ReasoningType = "tree_of_thoughts"
	ReasoningHybrid         ReasoningType = "hybrid"
)

// ExplorationStrategy selects how Tree-of-Thoughts picks the next node to expand.
type ExplorationStrategy string

const (
	ExplorationBestFirst    ExplorationStrategy = "best_first"
	ExplorationBreadthFirst ExplorationStrategy = "breadth_first"
	ExplorationDepthFirst   ExplorationStrategy = "depth_first"
	ExplorationBeamSearch   ExplorationStrategy = "beam_search"
	ExplorationMonteCarlo   ExplorationStrategy = "monte_carlo"
)

// ============================================================================
// AGENT CONFIGURATION
// ============================================================================

// AgentConfig holds all orchestrator, prompt, tool, and reasoning knobs.
type AgentConfig struct {
	// LLM interaction
	UseFunctionCalling bool          `yaml:"use_function_calling" mapstructure:"use_function_calling"`
	LLMTimeout         time.Duration `yaml:"llm_timeout" mapstructure:"llm_timeout"`
	ToolTimeout        time.Duration `yaml:"tool_timeout" mapstructure:"tool_timeout"`

	// Run bounds
	MaxTurns int `yaml:"max_turns" mapstructure:"max_turns"`

	// Prompt building
	MaxRecentTurns             int  `yaml:"max_recent_turns" mapstructure:"max_recent_turns"`
	EnableHistorySummarization bool `yaml:"enable_history_summarization" mapstructure:"enable_history_summarization"`
	MaxToolOutputSize          int  `yaml:"max_tool_output_size" mapstructure:"max_tool_output_size"`

	// Status emission
	EmitPublicStatus bool `yaml:"emit_public_status" mapstructure:"emit_public_status"`

	// Reasoning
	ReasoningType              ReasoningType       `yaml:"reasoning_type" mapstructure:"reasoning_type"`
	ReasoningInterval          int                 `yaml:"reasoning_interval" mapstructure:"reasoning_interval"`
	MaxReasoningConclusionSize int                 `yaml:"max_reasoning_conclusion_size" mapstructure:"max_reasoning_conclusion_size"`
	MaxTreeDepth               int                 `yaml:"max_tree_depth" mapstructure:"max_tree_depth"`
	MaxTreeNodes               int                 `yaml:"max_tree_nodes" mapstructure:"max_tree_nodes"`
	TreeExplorationStrategy    ExplorationStrategy `yaml:"tree_exploration_strategy" mapstructure:"tree_exploration_strategy"`
	BeamWidth                  int                 `yaml:"beam_width" mapstructure:"beam_width"`

	// Loop breaking and deduplication
	LoopDetectionWindow int           `yaml:"loop_detection_window" mapstructure:"loop_detection_window"`
	DedupeTTL           time.Duration `yaml:"dedupe_ttl" mapstructure:"dedupe_ttl"`
}

// DefaultConfig returns a fully-populated configuration. YAML loading starts
// from this value so that absent keys keep their defaults while explicit
// zero values (e.g. max_tool_output_size: 0) are honored.
func DefaultConfig() AgentConfig {
	return AgentConfig{
		UseFunctionCalling:         false,
		LLMTimeout:                 60 * time.Second,
		ToolTimeout:                30 * time.Second,
		MaxTurns:                   10,
		MaxRecentTurns:             5,
		EnableHistorySummarization: true,
		MaxToolOutputSize:          1000,
		EmitPublicStatus:           true,
		ReasoningType:              ReasoningNone,
		ReasoningInterval:          3,
		MaxReasoningConclusionSize: 2000,
		MaxTreeDepth:               3,
		MaxTreeNodes:               20,
		TreeExplorationStrategy:    ExplorationBestFirst,
		BeamWidth:                  3,
		LoopDetectionWindow:        10,
		DedupeTTL:                  5 * time.Minute,
	}
}

// SetDefaults fills zero-valued numeric and enum fields. Boolean fields are
// left alone; use DefaultConfig as the starting point when default-true
// behavior is wanted.
func (c *AgentConfig) SetDefaults() {
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = 60 * time.Second
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = 30 * time.Second
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = 10
	}
	if c.MaxRecentTurns < 0 {
		c.MaxRecentTurns = 5
	}
	if c.ReasoningType == "" {
		c.ReasoningType = ReasoningNone
	}
	if c.ReasoningInterval <= 0 {
		c.ReasoningInterval = 3
	}
	if c.MaxReasoningConclusionSize <= 0 {
		c.MaxReasoningConclusionSize = 2000
	}
	if c.MaxTreeDepth <= 0 {
		c.MaxTreeDepth = 3
	}
	if c.MaxTreeNodes <= 0 {
		c.MaxTreeNodes = 20
	}
	if c.TreeExplorationStrategy == "" {
		c.TreeExplorationStrategy = ExplorationBestFirst
	}
	if c.BeamWidth <= 0 {
		c.BeamWidth = 3
	}
	if c.LoopDetectionWindow <= 0 {
		c.LoopDetectionWindow = 10
	}
	if c.DedupeTTL <= 0 {
		c.DedupeTTL = 5 * time.Minute
	}
}

// Validate checks enum values and bounds.
func (c *AgentConfig) Validate() error {
	switch c.ReasoningType {
	case ReasoningNone, ReasoningChainOfThought, ReasoningTreeOfThoughts, ReasoningHybrid:
	default:
		return fmt.Errorf("invalid reasoning_type: %q", c.ReasoningType)
	}
	switch c.TreeExplorationStrategy {
	case ExplorationBestFirst, ExplorationBreadthFirst, ExplorationDepthFirst,
		ExplorationBeamSearch, ExplorationMonteCarlo:
	default:
		return fmt.Errorf("invalid tree_exploration_strategy: %q", c.TreeExplorationStrategy)
	}
	if c.MaxTurns <= 0 {
		return fmt.Errorf("max_turns must be positive")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("llm_timeout must be positive")
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("tool_timeout must be positive")
	}
	if c.MaxRecentTurns < 0 {
		return fmt.Errorf("max_recent_turns must be non-negative")
	}
	if c.MaxTreeDepth <= 0 || c.MaxTreeNodes <= 0 {
		return fmt.Errorf("tree bounds must be positive")
	}
	return nil
}
