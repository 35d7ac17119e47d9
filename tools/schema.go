package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
)

// ============================================================================
// TYPED FUNCTION TOOLS
// ============================================================================

// FunctionTool wraps a plain Go function as a Tool, deriving its parameter
// schema from the args struct tags.
//
// Supported tags:
//   - json:"name" - parameter name
//   - json:",omitempty" - optional parameter
//   - jsonschema:"required" - explicitly mark as required
//   - jsonschema:"description=..." - parameter description
//   - jsonschema:"enum=a|b" - allowed values
//   - jsonschema:"minimum=N,maximum=M" - numeric constraints
type FunctionTool[T any] struct {
	name        string
	description string
	schema      map[string]interface{}
	fn          func(ctx context.Context, args T) (interface{}, error)

	allowDedupe bool
}

// NewFunctionTool builds a typed tool from a function. The schema is
// reflected once at construction.
func NewFunctionTool[T any](name, description string, fn func(ctx context.Context, args T) (interface{}, error)) (*FunctionTool[T], error) {
	if name == "" {
		return nil, fmt.Errorf("function tool name is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("function tool %q: fn is required", name)
	}
	schema, err := reflectSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("function tool %q: %w", name, err)
	}
	return &FunctionTool[T]{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
		allowDedupe: true,
	}, nil
}

// WithoutDedupe marks the tool's results as non-reusable, for tools with
// side effects or time-dependent output.
func (t *FunctionTool[T]) WithoutDedupe() *FunctionTool[T] {
	t.allowDedupe = false
	return t
}

func (t *FunctionTool[T]) GetName() string        { return t.name }
func (t *FunctionTool[T]) GetDescription() string { return t.description }

func (t *FunctionTool[T]) GetParameterSchema() map[string]interface{} {
	return t.schema
}

func (t *FunctionTool[T]) AllowDedupe() bool { return t.allowDedupe }

func (t *FunctionTool[T]) DedupeTTL() time.Duration { return 0 }

// Execute decodes params into the typed args struct and invokes the function.
func (t *FunctionTool[T]) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	var args T
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return t.fn(ctx, args)
}

// reflectSchema derives a JSON-Schema object from a Go struct type.
func reflectSchema[T any]() (map[string]interface{}, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out, nil
}
