package observability

import (
	"context"
	"time"
)

// NoopMetrics discards all recordings. It is the default collector until a
// real one is installed.
type NoopMetrics struct{}

// NewNoopMetrics returns a collector that records nothing.
func NewNoopMetrics() *NoopMetrics { return &NoopMetrics{} }

func (*NoopMetrics) RecordAgentRun(context.Context, string) {}
func (*NoopMetrics) RecordStep(context.Context, string)     {}
func (*NoopMetrics) RecordLLMCall(context.Context, string, string, time.Duration, bool) {
}
func (*NoopMetrics) RecordTokenUsage(context.Context, string, string, int, int) {}
func (*NoopMetrics) RecordToolCall(context.Context, string, time.Duration, bool, string) {
}
func (*NoopMetrics) RecordReasoningExecutionTime(context.Context, string, time.Duration) {}
func (*NoopMetrics) RecordReasoningConfidence(context.Context, string, float64)          {}
func (*NoopMetrics) RecordAPICall(context.Context, string, string, string)               {}
