package observability

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ============================================================================
// METRICS COLLECTOR
// ============================================================================

// Metrics is the collector capability consumed by the orchestrator, the
// communicator, the tool executor, and the reasoning engines. All methods
// are safe for concurrent use.
type Metrics interface {
	RecordAgentRun(ctx context.Context, agentID string)
	RecordStep(ctx context.Context, agentID string)

	RecordLLMCall(ctx context.Context, model, provider string, elapsed time.Duration, success bool)
	RecordTokenUsage(ctx context.Context, model, provider string, inputTokens, outputTokens int)

	RecordToolCall(ctx context.Context, tool string, elapsed time.Duration, success bool, errorKind string)

	RecordReasoningExecutionTime(ctx context.Context, reasoningType string, elapsed time.Duration)
	RecordReasoningConfidence(ctx context.Context, reasoningType string, meanConfidence float64)

	RecordAPICall(ctx context.Context, agentID, category, sub string)
}

var defaultMetrics atomic.Pointer[metricsHolder]

type metricsHolder struct{ m Metrics }

func init() {
	defaultMetrics.Store(&metricsHolder{m: NewNoopMetrics()})
}

// Default returns the process-wide collector. It is a noop until
// SetDefault installs a real one.
func Default() Metrics {
	return defaultMetrics.Load().m
}

// SetDefault installs the process-wide collector. Call once during startup,
// before agents are constructed.
func SetDefault(m Metrics) {
	if m == nil {
		m = NewNoopMetrics()
	}
	defaultMetrics.Store(&metricsHolder{m: m})
}

// OTelMetrics records through OpenTelemetry instruments exported to
// Prometheus.
type OTelMetrics struct {
	ins instruments
}

func (m *OTelMetrics) RecordAgentRun(ctx context.Context, agentID string) {
	m.ins.agentRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agentID)))
}

func (m *OTelMetrics) RecordStep(ctx context.Context, agentID string) {
	m.ins.steps.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agentID)))
}

func (m *OTelMetrics) RecordLLMCall(ctx context.Context, model, provider string, elapsed time.Duration, success bool) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("provider", provider),
		attribute.Bool("success", success),
	)
	m.ins.llmCalls.Add(ctx, 1, attrs)
	m.ins.llmDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

func (m *OTelMetrics) RecordTokenUsage(ctx context.Context, model, provider string, inputTokens, outputTokens int) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("provider", provider),
	)
	if inputTokens > 0 {
		m.ins.inputTokens.Add(ctx, int64(inputTokens), attrs)
	}
	if outputTokens > 0 {
		m.ins.outputTokens.Add(ctx, int64(outputTokens), attrs)
	}
}

func (m *OTelMetrics) RecordToolCall(ctx context.Context, tool string, elapsed time.Duration, success bool, errorKind string) {
	attrs := []attribute.KeyValue{
		attribute.String("tool", tool),
		attribute.Bool("success", success),
	}
	if errorKind != "" {
		attrs = append(attrs, attribute.String("error_kind", errorKind))
	}
	m.ins.toolCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.ins.toolDuration.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attrs...))
}

func (m *OTelMetrics) RecordReasoningExecutionTime(ctx context.Context, reasoningType string, elapsed time.Duration) {
	m.ins.reasoningDuration.Record(ctx, float64(elapsed.Milliseconds()),
		metric.WithAttributes(attribute.String("type", reasoningType)))
}

func (m *OTelMetrics) RecordReasoningConfidence(ctx context.Context, reasoningType string, meanConfidence float64) {
	m.ins.reasoningConfidence.Record(ctx, meanConfidence,
		metric.WithAttributes(attribute.String("type", reasoningType)))
}

func (m *OTelMetrics) RecordAPICall(ctx context.Context, agentID, category, sub string) {
	m.ins.apiCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", agentID),
		attribute.String("category", category),
		attribute.String("sub", sub),
	))
}
