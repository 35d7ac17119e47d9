package main

import (
	"fmt"

	"github.com/erwin-beckers/AIAgentSharp-sub001/config"
)

// ValidateCmd loads and validates a configuration file.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("--config is required for validate")
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	fmt.Printf("Configuration is valid: %s\n", cli.Config)
	fmt.Printf("  max_turns:            %d\n", cfg.MaxTurns)
	fmt.Printf("  function_calling:     %v\n", cfg.UseFunctionCalling)
	fmt.Printf("  reasoning:            %s", cfg.ReasoningType)
	if cfg.ReasoningType == config.ReasoningTreeOfThoughts || cfg.ReasoningType == config.ReasoningHybrid {
		fmt.Printf(" (%s, depth %d, %d nodes)", cfg.TreeExplorationStrategy, cfg.MaxTreeDepth, cfg.MaxTreeNodes)
	}
	fmt.Println()
	fmt.Printf("  history summarization: %v (recent %d)\n", cfg.EnableHistorySummarization, cfg.MaxRecentTurns)
	fmt.Printf("  dedupe_ttl:           %s\n", cfg.DedupeTTL)
	return nil
}
