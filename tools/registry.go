package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/erwin-beckers/AIAgentSharp-sub001/llms"
)

// ============================================================================
// REGISTRY
// ============================================================================

// Source provides tools discovered at runtime, e.g. an MCP server.
type Source interface {
	// Name identifies the source.
	Name() string

	// Discover returns the tools this source currently exposes.
	Discover(ctx context.Context) ([]Tool, error)
}

// RegistryError reports a registry failure with its component and action.
type RegistryError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Action, e.Message)
}

func newRegistryError(action, message string, err error) *RegistryError {
	return &RegistryError{Component: "ToolRegistry", Action: action, Message: message, Err: err}
}

// Registry holds the tools available to an agent, keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are rejected.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return newRegistryError("Register", "tool cannot be nil", nil)
	}
	name := t.GetName()
	if name == "" {
		return newRegistryError("Register", "tool name cannot be empty", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return newRegistryError("Register", fmt.Sprintf("tool %q already registered", name), nil)
	}
	r.tools[name] = t
	return nil
}

// RegisterSource discovers a source's tools and registers each of them.
func (r *Registry) RegisterSource(ctx context.Context, src Source) error {
	discovered, err := src.Discover(ctx)
	if err != nil {
		return newRegistryError("RegisterSource",
			fmt.Sprintf("failed to discover tools from source %q", src.Name()), err)
	}
	for _, t := range discovered {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FunctionSpecs converts the registry into provider function declarations.
// Tools without a schema advertise an open object.
func (r *Registry) FunctionSpecs() []llms.FunctionSpec {
	tools := r.List()
	specs := make([]llms.FunctionSpec, 0, len(tools))
	for _, t := range tools {
		spec := llms.FunctionSpec{
			Name:        t.GetName(),
			Description: t.GetDescription(),
			Parameters:  map[string]interface{}{"type": "object"},
		}
		if sp, ok := t.(SchemaProvider); ok {
			if schema := sp.GetParameterSchema(); schema != nil {
				spec.Parameters = schema
			}
		}
		specs = append(specs, spec)
	}
	return specs
}
