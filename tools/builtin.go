package tools

import (
	"context"
	"fmt"
	"time"
)

// ============================================================================
// BUILTIN TOOLS
// ============================================================================

type addArgs struct {
	A float64 `json:"a" jsonschema:"required,description=First operand"`
	B float64 `json:"b" jsonschema:"required,description=Second operand"`
}

// NewAddTool returns the arithmetic add tool.
func NewAddTool() Tool {
	t, err := NewFunctionTool("add", "Add two numbers and return their sum.",
		func(_ context.Context, args addArgs) (interface{}, error) {
			return args.A + args.B, nil
		})
	if err != nil {
		panic(fmt.Sprintf("builtin add tool: %v", err))
	}
	return t
}

type echoArgs struct {
	Text string `json:"text" jsonschema:"required,description=Text to echo back"`
}

// NewEchoTool returns a tool that echoes its input, useful for wiring checks.
func NewEchoTool() Tool {
	t, err := NewFunctionTool("echo", "Return the given text unchanged.",
		func(_ context.Context, args echoArgs) (interface{}, error) {
			return args.Text, nil
		})
	if err != nil {
		panic(fmt.Sprintf("builtin echo tool: %v", err))
	}
	return t
}

type timeArgs struct {
	Format string `json:"format,omitempty" jsonschema:"description=Go time layout,default=RFC3339"`
}

// NewTimeTool returns the current-time tool. Its output is time dependent,
// so dedupe is disabled.
func NewTimeTool() Tool {
	t, err := NewFunctionTool("current_time", "Return the current UTC time.",
		func(_ context.Context, args timeArgs) (interface{}, error) {
			layout := args.Format
			if layout == "" || layout == "RFC3339" {
				layout = time.RFC3339
			}
			return time.Now().UTC().Format(layout), nil
		})
	if err != nil {
		panic(fmt.Sprintf("builtin current_time tool: %v", err))
	}
	return t.WithoutDedupe()
}

// RegisterBuiltins adds the builtin tools to a registry.
func RegisterBuiltins(r *Registry) error {
	for _, t := range []Tool{NewAddTool(), NewEchoTool(), NewTimeTool()} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
