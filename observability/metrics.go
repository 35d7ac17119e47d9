// Package observability provides the metrics collector and tracing setup.
// The collector is the only process-wide mutable singleton in the framework;
// it is injectable, with an atomic global default for components that are
// not wired explicitly.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "agentsharp"

// MetricsConfig configures metrics initialization.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// InitMetrics builds an OTel meter backed by a Prometheus exporter and
// returns the collector plus an http.Handler serving /metrics. When
// disabled, a no-op collector and nil handler are returned.
func InitMetrics(cfg MetricsConfig) (Metrics, http.Handler, error) {
	if !cfg.Enabled {
		return NewNoopMetrics(), nil, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)

	m, err := newOTelMetrics(meter)
	if err != nil {
		return nil, nil, err
	}
	return m, promhttp.Handler(), nil
}

type instruments struct {
	agentRuns metric.Int64Counter
	steps     metric.Int64Counter
	llmCalls  metric.Int64Counter
	toolCalls metric.Int64Counter
	apiCalls  metric.Int64Counter

	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter

	llmDuration       metric.Float64Histogram
	toolDuration      metric.Float64Histogram
	reasoningDuration metric.Float64Histogram

	reasoningConfidence metric.Float64Histogram
}

func newOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	var ins instruments
	var err error

	if ins.agentRuns, err = meter.Int64Counter(
		"agentsharp_agent_runs_total",
		metric.WithDescription("Total agent runs"),
	); err != nil {
		return nil, err
	}
	if ins.steps, err = meter.Int64Counter(
		"agentsharp_steps_total",
		metric.WithDescription("Total orchestrator steps"),
	); err != nil {
		return nil, err
	}
	if ins.llmCalls, err = meter.Int64Counter(
		"agentsharp_llm_calls_total",
		metric.WithDescription("Total LLM calls"),
	); err != nil {
		return nil, err
	}
	if ins.toolCalls, err = meter.Int64Counter(
		"agentsharp_tool_calls_total",
		metric.WithDescription("Total tool calls"),
	); err != nil {
		return nil, err
	}
	if ins.apiCalls, err = meter.Int64Counter(
		"agentsharp_api_calls_total",
		metric.WithDescription("Categorized API calls"),
	); err != nil {
		return nil, err
	}
	if ins.inputTokens, err = meter.Int64Counter(
		"agentsharp_llm_tokens_input_total",
		metric.WithDescription("Total input tokens sent to the LLM"),
	); err != nil {
		return nil, err
	}
	if ins.outputTokens, err = meter.Int64Counter(
		"agentsharp_llm_tokens_output_total",
		metric.WithDescription("Total output tokens produced by the LLM"),
	); err != nil {
		return nil, err
	}
	if ins.llmDuration, err = meter.Float64Histogram(
		"agentsharp_llm_call_duration_ms",
		metric.WithDescription("LLM call duration in milliseconds"),
	); err != nil {
		return nil, err
	}
	if ins.toolDuration, err = meter.Float64Histogram(
		"agentsharp_tool_call_duration_ms",
		metric.WithDescription("Tool call duration in milliseconds"),
	); err != nil {
		return nil, err
	}
	if ins.reasoningDuration, err = meter.Float64Histogram(
		"agentsharp_reasoning_duration_ms",
		metric.WithDescription("Reasoning pass duration in milliseconds"),
	); err != nil {
		return nil, err
	}
	if ins.reasoningConfidence, err = meter.Float64Histogram(
		"agentsharp_reasoning_confidence",
		metric.WithDescription("Mean confidence of reasoning passes"),
	); err != nil {
		return nil, err
	}

	return &OTelMetrics{ins: ins}, nil
}
