package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/erwin-beckers/AIAgentSharp-sub001/agenterr"
	"github.com/erwin-beckers/AIAgentSharp-sub001/events"
	"github.com/erwin-beckers/AIAgentSharp-sub001/observability"
	"github.com/erwin-beckers/AIAgentSharp-sub001/utils"
)

// ============================================================================
// TOOL EXECUTOR
// ============================================================================

// Executor validates parameters, enforces the tool timeout, invokes tools,
// and classifies failures. Results always carry the canonical turn id so
// the dedupe cache and loop detector can match calls across turns.
type Executor struct {
	registry *Registry
	events   *events.Manager
	status   *events.StatusManager
	timeout  time.Duration

	// compiled schemas, keyed by tool name
	schemas sync.Map
}

// NewExecutor creates a tool executor. timeout bounds each invocation.
func NewExecutor(registry *Registry, em *events.Manager, sm *events.StatusManager, timeout time.Duration) *Executor {
	return &Executor{
		registry: registry,
		events:   em,
		status:   sm,
		timeout:  timeout,
	}
}

// Execute runs one tool call end to end. It never returns an error; every
// failure mode becomes a failed ExecutionResult the model can inspect.
// Cancellation is recorded as a failed result too, with the caller deciding
// whether to stop the run (see ExecutionResult.ErrorKind).
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]interface{}, agentID string, turnIndex int) ExecutionResult {
	started := time.Now()

	e.emitStarted(agentID, turnIndex, toolName, params)
	e.emitStatus(agentID, turnIndex, "Executing tool", toolName)

	result := e.execute(ctx, toolName, params)
	result.ExecutionTime = time.Since(started)

	e.emitCompleted(agentID, turnIndex, result)
	e.emitStatus(agentID, turnIndex, "Tool completed", toolName)
	observability.Default().RecordToolCall(ctx, toolName, result.ExecutionTime, result.Success, result.ErrorKind)

	if !result.Success {
		slog.Debug("Tool call failed",
			"agent", agentID, "tool", toolName, "error", result.Error, "kind", result.ErrorKind)
	}
	return result
}

func (e *Executor) execute(ctx context.Context, toolName string, params map[string]interface{}) ExecutionResult {
	tool, ok := e.registry.Get(toolName)
	if !ok {
		return NewFailedResult(toolName, params,
			fmt.Sprintf("Tool '%s' not found", toolName), string(agenterr.KindInvalidOperation))
	}

	if sp, ok := tool.(SchemaProvider); ok {
		if schema := sp.GetParameterSchema(); schema != nil {
			if failed, res := e.validate(toolName, schema, params); failed {
				return res
			}
		}
	}

	timeout := e.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		output interface{}
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		output, err := tool.Execute(cctx, params)
		done <- outcome{output: output, err: err}
	}()

	select {
	case <-cctx.Done():
		if ctx.Err() != nil {
			// The caller cancelled, not our deadline.
			return NewFailedResult(toolName, params, "cancelled by user", string(agenterr.KindCancelled))
		}
		return NewFailedResult(toolName, params, "tool deadline exceeded", string(agenterr.KindTimeout))
	case o := <-done:
		if o.err != nil {
			// Tools that honor the context may surface our own deadline or
			// the caller's cancellation; report those uniformly.
			switch agenterr.KindOf(o.err) {
			case agenterr.KindCancelled:
				if ctx.Err() != nil {
					return NewFailedResult(toolName, params, "cancelled by user", string(agenterr.KindCancelled))
				}
			case agenterr.KindTimeout:
				if cctx.Err() != nil {
					return NewFailedResult(toolName, params, "tool deadline exceeded", string(agenterr.KindTimeout))
				}
			}
			kind := agenterr.KindOf(o.err)
			if kind == agenterr.KindInternal {
				kind = agenterr.KindExecution
			}
			return NewFailedResult(toolName, params, o.err.Error(), string(kind))
		}
		return ExecutionResult{
			Success:    true,
			Tool:       toolName,
			Params:     params,
			Output:     o.output,
			TurnID:     utils.TurnID(toolName, params),
			CreatedUTC: time.Now().UTC(),
		}
	}
}

// ============================================================================
// PARAMETER VALIDATION
// ============================================================================

// FieldError is a single schema violation tied to a field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validate checks params against the tool's JSON-Schema. Missing required
// fields and field-level violations are reported separately so the model can
// repair the call.
func (e *Executor) validate(toolName string, schema map[string]interface{}, params map[string]interface{}) (bool, ExecutionResult) {
	missing := missingRequired(schema, params)

	var fieldErrors []FieldError
	compiled, err := e.compiledSchema(toolName, schema)
	if err != nil {
		slog.Warn("Tool schema does not compile, skipping validation", "tool", toolName, "error", err)
	} else if verr := compiled.Validate(normalizeForValidation(params)); verr != nil {
		fieldErrors = collectFieldErrors(verr, missing)
	}

	if len(missing) == 0 && len(fieldErrors) == 0 {
		return false, ExecutionResult{}
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	for _, fe := range fieldErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}

	res := NewFailedResult(toolName, params,
		"Parameter validation failed: "+strings.Join(parts, "; "), string(agenterr.KindValidation))
	res.Output = map[string]interface{}{
		"missing_required": missing,
		"field_errors":     fieldErrors,
	}
	return true, res
}

func (e *Executor) compiledSchema(toolName string, schema map[string]interface{}) (*jsonschema.Schema, error) {
	if cached, ok := e.schemas.Load(toolName); ok {
		return cached.(*jsonschema.Schema), nil
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, err
	}
	e.schemas.Store(toolName, compiled)
	return compiled, nil
}

// missingRequired lists required top-level fields absent from params.
func missingRequired(schema map[string]interface{}, params map[string]interface{}) []string {
	required, _ := schema["required"].([]interface{})
	var missing []string
	for _, entry := range required {
		name, ok := entry.(string)
		if !ok {
			continue
		}
		if _, present := params[name]; !present {
			missing = append(missing, name)
		}
	}
	// The reflector may emit []string depending on how the schema was built.
	if names, ok := schema["required"].([]string); ok {
		for _, name := range names {
			if _, present := params[name]; !present {
				missing = append(missing, name)
			}
		}
	}
	sort.Strings(missing)
	return missing
}

// collectFieldErrors flattens a validation error into per-field messages,
// skipping violations already reported as missing required fields.
func collectFieldErrors(err error, missing []string) []FieldError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []FieldError{{Field: "", Message: err.Error()}}
	}

	missingSet := make(map[string]bool, len(missing))
	for _, name := range missing {
		missingSet[name] = true
	}

	var out []FieldError
	var walk func(*jsonschema.ValidationError)
	walk = func(ve *jsonschema.ValidationError) {
		if len(ve.Causes) == 0 {
			field := strings.TrimPrefix(ve.InstanceLocation, "/")
			field = strings.ReplaceAll(field, "/", ".")
			if missingSet[field] || strings.Contains(ve.Message, "missing propert") {
				return
			}
			out = append(out, FieldError{Field: field, Message: ve.Message})
			return
		}
		for _, cause := range ve.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return out
}

// normalizeForValidation round-trips params through encoding/json so the
// validator sees the exact types it expects (json.Number free, float64 etc).
func normalizeForValidation(params map[string]interface{}) interface{} {
	if params == nil {
		return map[string]interface{}{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return params
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return params
	}
	return out
}

// ============================================================================
// EMISSIONS
// ============================================================================

func (e *Executor) emitStarted(agentID string, turnIndex int, toolName string, params map[string]interface{}) {
	if e.events == nil {
		return
	}
	e.events.Emit(events.Event{
		Type:      events.TypeToolStarted,
		AgentID:   agentID,
		TurnIndex: turnIndex,
		Tool:      &events.ToolCallPayload{Name: toolName, Params: params},
	})
}

func (e *Executor) emitCompleted(agentID string, turnIndex int, result ExecutionResult) {
	if e.events == nil {
		return
	}
	e.events.Emit(events.Event{
		Type:      events.TypeToolCompleted,
		AgentID:   agentID,
		TurnIndex: turnIndex,
		Tool: &events.ToolCallPayload{
			Name:    result.Tool,
			Params:  result.Params,
			Success: result.Success,
			Output:  result.Output,
			Error:   result.Error,
			Elapsed: result.ExecutionTime,
		},
	})
}

func (e *Executor) emitStatus(agentID string, turnIndex int, title, details string) {
	if e.status == nil {
		return
	}
	e.status.Emit(agentID, turnIndex, events.StatusPayload{Title: title, Details: details})
}
