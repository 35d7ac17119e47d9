// Package agenterr defines the error taxonomy shared by the orchestrator,
// the LLM communicator, the tool executor, and the reasoning manager.
// Expected failures are values carrying a Kind; only cancellation is allowed
// to propagate as control flow.
package agenterr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindInvalidInput     Kind = "InvalidInput"
	KindJSONParse        Kind = "JsonParse"
	KindValidation       Kind = "Validation"
	KindExecution        Kind = "Execution"
	KindTimeout          Kind = "Timeout"
	KindCancelled        Kind = "Cancelled"
	KindUnsupported      Kind = "Unsupported"
	KindInvalidOperation Kind = "InvalidOperation"
	KindInternal         Kind = "InternalError"
)

// Error is a classified error with optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from an error chain. Context cancellation and
// deadline expiry map to Cancelled and Timeout even when unwrapped;
// everything unclassified is InternalError.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// IsCancelled reports whether the error chain represents caller cancellation.
func IsCancelled(err error) bool {
	return KindOf(err) == KindCancelled
}
