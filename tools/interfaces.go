// Package tools provides the tool contract, the registry of tool sources,
// and the executor that validates, invokes, and classifies tool calls.
package tools

import (
	"context"
	"time"

	"github.com/erwin-beckers/AIAgentSharp-sub001/utils"
)

// ============================================================================
// TOOL CONTRACT
// ============================================================================

// Tool is the contract every callable tool implements.
type Tool interface {
	// GetName returns the unique tool name.
	GetName() string

	// GetDescription returns a human-readable description for the model.
	GetDescription() string

	// Execute runs the tool. Params arrive as decoded JSON; the returned
	// value must be JSON-serializable.
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// SchemaProvider is the optional introspection capability: tools exposing a
// JSON-Schema for their parameters get schema validation before invocation.
type SchemaProvider interface {
	// GetParameterSchema returns a JSON-Schema object for Execute params.
	GetParameterSchema() map[string]interface{}
}

// DedupeController is the optional dedupe-control capability. Tools without
// it allow dedupe with the default TTL.
type DedupeController interface {
	// AllowDedupe reports whether identical successful calls may be reused.
	AllowDedupe() bool

	// DedupeTTL returns how long a successful result stays reusable.
	// Zero means the configured default.
	DedupeTTL() time.Duration
}

// AllowsDedupe resolves the dedupe policy for a tool.
func AllowsDedupe(t Tool) bool {
	if dc, ok := t.(DedupeController); ok {
		return dc.AllowDedupe()
	}
	return true
}

// TTLFor resolves the dedupe TTL for a tool, falling back to def.
func TTLFor(t Tool, def time.Duration) time.Duration {
	if dc, ok := t.(DedupeController); ok {
		if ttl := dc.DedupeTTL(); ttl > 0 {
			return ttl
		}
	}
	return def
}

// ============================================================================
// EXECUTION RESULT
// ============================================================================

// ExecutionResult is the recorded outcome of one tool invocation.
type ExecutionResult struct {
	Success       bool                   `json:"success"`
	Tool          string                 `json:"tool"`
	Params        map[string]interface{} `json:"params,omitempty"`
	Output        interface{}            `json:"output,omitempty"`
	Error         string                 `json:"error,omitempty"`
	ErrorKind     string                 `json:"error_kind,omitempty"`
	ExecutionTime time.Duration          `json:"execution_time"`
	TurnID        string                 `json:"turn_id"`
	CreatedUTC    time.Time              `json:"created_utc"`
}

// NewFailedResult builds a failed result with the canonical turn id filled in.
func NewFailedResult(tool string, params map[string]interface{}, errMsg, errKind string) ExecutionResult {
	return ExecutionResult{
		Success:    false,
		Tool:       tool,
		Params:     params,
		Error:      errMsg,
		ErrorKind:  errKind,
		TurnID:     utils.TurnID(tool, params),
		CreatedUTC: time.Now().UTC(),
	}
}
