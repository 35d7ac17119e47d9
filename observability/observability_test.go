package observability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsNoopUntilInstalled(t *testing.T) {
	assert.IsType(t, &NoopMetrics{}, Default())

	// Noop methods must be callable without panicking.
	m := Default()
	ctx := context.Background()
	m.RecordAgentRun(ctx, "a1")
	m.RecordLLMCall(ctx, "gpt-4o", "openai", time.Second, true)
	m.RecordToolCall(ctx, "add", time.Millisecond, false, "Timeout")
}

func TestSetDefaultSwap(t *testing.T) {
	old := Default()
	defer SetDefault(old)

	rec := &recordingMetrics{}
	SetDefault(rec)
	Default().RecordStep(context.Background(), "a1")
	Default().RecordAPICall(context.Background(), "a1", "llm", "complete")

	assert.Equal(t, 1, rec.count("step"))
	assert.Equal(t, 1, rec.count("api"))

	// nil resets to noop rather than breaking callers.
	SetDefault(nil)
	assert.IsType(t, &NoopMetrics{}, Default())
}

func TestInitMetricsDisabled(t *testing.T) {
	m, handler, err := InitMetrics(MetricsConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, &NoopMetrics{}, m)
	assert.Nil(t, handler)
}

func TestInitTracerDisabled(t *testing.T) {
	tracer, shutdown, err := InitTracer(context.Background(), TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tracer)
	assert.NoError(t, shutdown(context.Background()))
}

// recordingMetrics counts calls per kind for assertions.
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recordingMetrics) bump(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[kind]++
}

func (r *recordingMetrics) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[kind]
}

func (r *recordingMetrics) RecordAgentRun(context.Context, string) { r.bump("run") }
func (r *recordingMetrics) RecordStep(context.Context, string)     { r.bump("step") }
func (r *recordingMetrics) RecordLLMCall(context.Context, string, string, time.Duration, bool) {
	r.bump("llm")
}
func (r *recordingMetrics) RecordTokenUsage(context.Context, string, string, int, int) {
	r.bump("tokens")
}
func (r *recordingMetrics) RecordToolCall(context.Context, string, time.Duration, bool, string) {
	r.bump("tool")
}
func (r *recordingMetrics) RecordReasoningExecutionTime(context.Context, string, time.Duration) {
	r.bump("reasoning_time")
}
func (r *recordingMetrics) RecordReasoningConfidence(context.Context, string, float64) {
	r.bump("reasoning_confidence")
}
func (r *recordingMetrics) RecordAPICall(context.Context, string, string, string) { r.bump("api") }
