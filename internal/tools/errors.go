// Package tools provides the tool registry and execution framework.
//
// This file defines the typed errors Execute can return, so callers can
// distinguish a capability mismatch from a caller mistake from a
// genuine execution failure.
package tools

import "fmt"

// UnknownToolError is returned when a call targets a tool that is not
// present in the registry. Callers should treat this as a capability
// mismatch, not a transient failure, and stop retrying.
type UnknownToolError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// BadArgumentsError is returned when the arguments for a tool call fail
// to parse or are missing required fields.
type BadArgumentsError struct {
	Tool   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *BadArgumentsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %s: bad arguments: %s: %v", e.Tool, e.Reason, e.Err)
	}
	return fmt.Sprintf("tool %s: bad arguments: %s", e.Tool, e.Reason)
}

// Unwrap returns the underlying parse error, if any.
func (e *BadArgumentsError) Unwrap() error {
	return e.Err
}

// ExecutionError wraps a failure inside a tool handler.
type ExecutionError struct {
	Tool string
	Err  error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

// Unwrap returns the handler's error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}
