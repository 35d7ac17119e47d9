package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erwin-beckers/AIAgentSharp-sub001/agenterr"
	"github.com/erwin-beckers/AIAgentSharp-sub001/utils"
)

// stubTool is a hand-rolled tool for executor tests.
type stubTool struct {
	name    string
	schema  map[string]interface{}
	execute func(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

func (s *stubTool) GetName() string        { return s.name }
func (s *stubTool) GetDescription() string { return "stub " + s.name }
func (s *stubTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return s.execute(ctx, params)
}
func (s *stubTool) GetParameterSchema() map[string]interface{} { return s.schema }

func addSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"a": map[string]interface{}{"type": "number"},
			"b": map[string]interface{}{"type": "number"},
		},
		"required": []interface{}{"a", "b"},
	}
}

func newTestExecutor(t *testing.T, tools ...Tool) *Executor {
	t.Helper()
	reg := NewRegistry()
	for _, tl := range tools {
		require.NoError(t, reg.Register(tl))
	}
	return NewExecutor(reg, nil, nil, time.Second)
}

func TestExecutor_ToolNotFound(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), "ghost", nil, "agent-1", 0)
	assert.False(t, res.Success)
	assert.Equal(t, "Tool 'ghost' not found", res.Error)
}

func TestExecutor_Success(t *testing.T) {
	add := &stubTool{
		name:   "add",
		schema: addSchema(),
		execute: func(_ context.Context, params map[string]interface{}) (interface{}, error) {
			return params["a"].(float64) + params["b"].(float64), nil
		},
	}
	e := newTestExecutor(t, add)

	params := map[string]interface{}{"a": float64(5), "b": float64(3)}
	res := e.Execute(context.Background(), "add", params, "agent-1", 0)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, float64(8), res.Output)
	assert.Equal(t, utils.TurnID("add", params), res.TurnID)
	assert.False(t, res.CreatedUTC.IsZero())
	assert.Greater(t, res.ExecutionTime, time.Duration(0))
}

func TestExecutor_MissingRequired(t *testing.T) {
	add := &stubTool{
		name:   "add",
		schema: addSchema(),
		execute: func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
			t.Fatal("tool must not run on validation failure")
			return nil, nil
		},
	}
	e := newTestExecutor(t, add)

	res := e.Execute(context.Background(), "add", map[string]interface{}{"a": float64(1)}, "agent-1", 0)

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "Parameter validation failed")
	assert.Contains(t, res.Error, "b")
	assert.Equal(t, string(agenterr.KindValidation), res.ErrorKind)

	output, ok := res.Output.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, output["missing_required"])
}

func TestExecutor_FieldErrors(t *testing.T) {
	add := &stubTool{
		name:   "add",
		schema: addSchema(),
		execute: func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
			t.Fatal("tool must not run on validation failure")
			return nil, nil
		},
	}
	e := newTestExecutor(t, add)

	res := e.Execute(context.Background(), "add",
		map[string]interface{}{"a": "five", "b": float64(3)}, "agent-1", 0)

	require.False(t, res.Success)
	output, ok := res.Output.(map[string]interface{})
	require.True(t, ok)
	fieldErrors, ok := output["field_errors"].([]FieldError)
	require.True(t, ok)
	require.NotEmpty(t, fieldErrors)
	assert.Equal(t, "a", fieldErrors[0].Field)
}

func TestExecutor_ExecutionError(t *testing.T) {
	boom := &stubTool{
		name: "boom",
		execute: func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
			return nil, errors.New("disk on fire")
		},
	}
	e := newTestExecutor(t, boom)

	res := e.Execute(context.Background(), "boom", nil, "agent-1", 0)
	require.False(t, res.Success)
	assert.Equal(t, "disk on fire", res.Error)
	assert.Equal(t, string(agenterr.KindExecution), res.ErrorKind)
}

func TestExecutor_Timeout(t *testing.T) {
	slow := &stubTool{
		name: "slow",
		execute: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	reg := NewRegistry()
	require.NoError(t, reg.Register(slow))
	e := NewExecutor(reg, nil, nil, 20*time.Millisecond)

	res := e.Execute(context.Background(), "slow", nil, "agent-1", 0)
	require.False(t, res.Success)
	assert.Equal(t, "tool deadline exceeded", res.Error)
	assert.Equal(t, string(agenterr.KindTimeout), res.ErrorKind)
}

func TestExecutor_CallerCancellation(t *testing.T) {
	slow := &stubTool{
		name: "slow",
		execute: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	e := newTestExecutor(t, slow)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	res := e.Execute(ctx, "slow", nil, "agent-1", 0)
	require.False(t, res.Success)
	assert.Equal(t, "cancelled by user", res.Error)
	assert.Equal(t, string(agenterr.KindCancelled), res.ErrorKind)
}

func TestExecutor_ClassifiedToolError(t *testing.T) {
	denied := &stubTool{
		name: "denied",
		execute: func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
			return nil, agenterr.New(agenterr.KindInvalidInput, "bad account id")
		},
	}
	e := newTestExecutor(t, denied)

	res := e.Execute(context.Background(), "denied", nil, "agent-1", 0)
	require.False(t, res.Success)
	assert.Equal(t, string(agenterr.KindInvalidInput), res.ErrorKind)
}

func TestRegistry_RegisterAndList(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))

	assert.Equal(t, []string{"add", "current_time", "echo"}, reg.Names())

	_, ok := reg.Get("add")
	assert.True(t, ok)
	_, ok = reg.Get("absent")
	assert.False(t, ok)

	err := reg.Register(NewAddTool())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_FunctionSpecs(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))

	specs := reg.FunctionSpecs()
	require.Len(t, specs, 3)
	assert.Equal(t, "add", specs[0].Name)
	assert.NotEmpty(t, specs[0].Description)

	props, ok := specs[0].Parameters["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
}

type sliceSource struct {
	name  string
	tools []Tool
	err   error
}

func (s *sliceSource) Name() string { return s.name }
func (s *sliceSource) Discover(_ context.Context) ([]Tool, error) {
	return s.tools, s.err
}

func TestRegistry_RegisterSource(t *testing.T) {
	reg := NewRegistry()
	src := &sliceSource{name: "local", tools: []Tool{NewEchoTool()}}

	require.NoError(t, reg.RegisterSource(context.Background(), src))
	assert.Equal(t, []string{"echo"}, reg.Names())

	bad := &sliceSource{name: "broken", err: fmt.Errorf("no transport")}
	err := reg.RegisterSource(context.Background(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestFunctionTool_SchemaAndExecute(t *testing.T) {
	tool := NewAddTool()

	sp, ok := tool.(SchemaProvider)
	require.True(t, ok)
	schema := sp.GetParameterSchema()
	assert.Equal(t, "object", schema["type"])

	out, err := tool.Execute(context.Background(), map[string]interface{}{"a": 2.0, "b": 2.5})
	require.NoError(t, err)
	assert.Equal(t, 4.5, out)
}

func TestFunctionTool_DedupePolicy(t *testing.T) {
	assert.True(t, AllowsDedupe(NewAddTool()))
	assert.False(t, AllowsDedupe(NewTimeTool()))
	assert.Equal(t, 5*time.Minute, TTLFor(NewAddTool(), 5*time.Minute))
}
