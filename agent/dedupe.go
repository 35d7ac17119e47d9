package agent

import (
	"time"

	"github.com/erwin-beckers/AIAgentSharp-sub001/state"
	"github.com/erwin-beckers/AIAgentSharp-sub001/tools"
)

// ============================================================================
// DEDUPE LOOKUP
// ============================================================================

// lookupDedupe scans the turn history, newest first, for a successful tool
// result with the same turn id that is still within its TTL. The canonical
// turn id already encodes tool name and params, so matching ids means an
// identical call.
func lookupDedupe(st *state.AgentState, turnID string, ttl time.Duration, now time.Time) *tools.ExecutionResult {
	if turnID == "" || ttl <= 0 {
		return nil
	}
	cutoff := now.Add(-ttl)

	for i := len(st.Turns) - 1; i >= 0; i-- {
		turn := st.Turns[i]
		if res := matchResult(turn.ToolResult, turnID, cutoff); res != nil {
			return res
		}
		for j := range turn.ToolResults {
			if res := matchResult(&turn.ToolResults[j], turnID, cutoff); res != nil {
				return res
			}
		}
	}
	return nil
}

func matchResult(res *tools.ExecutionResult, turnID string, cutoff time.Time) *tools.ExecutionResult {
	if res == nil || !res.Success || res.TurnID != turnID {
		return nil
	}
	if res.CreatedUTC.Before(cutoff) {
		return nil
	}
	copied := *res
	return &copied
}

// ============================================================================
// LOOP DETECTOR
// ============================================================================

// LoopDetector flags tool calls that keep failing identically. Dedupe
// opt-out does not exempt a tool from loop detection.
type LoopDetector struct {
	window    int
	threshold int
}

// NewLoopDetector creates a detector over the last window turns.
func NewLoopDetector(window int) *LoopDetector {
	if window <= 0 {
		window = 10
	}
	return &LoopDetector{window: window, threshold: 3}
}

// DetectRepeatedFailures reports whether the recent window contains at
// least three failed executions of the same call, matched by turn id.
func (d *LoopDetector) DetectRepeatedFailures(st *state.AgentState, turnID string) bool {
	if turnID == "" {
		return false
	}

	failures := 0
	for _, turn := range st.RecentTurns(d.window) {
		if turn.ToolResult != nil && !turn.ToolResult.Success && turn.ToolResult.TurnID == turnID {
			failures++
		}
		for _, res := range turn.ToolResults {
			if !res.Success && res.TurnID == turnID {
				failures++
			}
		}
	}
	return failures >= d.threshold
}
