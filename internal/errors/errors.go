// Package errors provides a lightweight structured error type (StateBoxError)
// for kind-based classification across the state store and CLI. Callers match
// on the error kind (validation, concurrency, backend, domain rule) instead of
// inspecting message text.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a StateBoxError for caller-side handling.
type ErrorKind string

const (
	// KindValidation covers bad caller input: unknown task name, invalid
	// status value, empty or over-length issue text. Never retried.
	KindValidation ErrorKind = "validation"

	// KindConcurrency covers version conflicts that survived the retry
	// budget, or conflicts with retry explicitly disabled.
	KindConcurrency ErrorKind = "concurrency"

	// KindBackend covers store and codec failures: network, auth,
	// malformed content. Wrapped, never swallowed.
	KindBackend ErrorKind = "backend"

	// KindDomainRule covers rule violations inside an otherwise valid
	// document: duplicate unresolved blocker, ambiguous issue match.
	KindDomainRule ErrorKind = "domain_rule"
)

// StateBoxError is a structured error with kind, message and context.
type StateBoxError struct {
	Kind    ErrorKind     `json:"kind"`
	Message string        `json:"message"`
	Cause   error         `json:"cause,omitempty"`
	Context ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for StateBoxError.
type ContextFields map[string]any

// Error implements the error interface.
func (e *StateBoxError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *StateBoxError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *StateBoxError) WithContext(key string, value any) *StateBoxError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new StateBoxError.
func New(kind ErrorKind, message string) *StateBoxError {
	return &StateBoxError{Kind: kind, Message: message}
}

// Newf creates a new StateBoxError with a formatted message.
func Newf(kind ErrorKind, format string, args ...any) *StateBoxError {
	return &StateBoxError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new StateBoxError that wraps an existing error.
func Wrap(err error, kind ErrorKind, message string) *StateBoxError {
	return &StateBoxError{Kind: kind, Message: message, Cause: err}
}

// IsKind checks if an error (or anything it wraps) belongs to a kind.
func IsKind(err error, kind ErrorKind) bool {
	var sbe *StateBoxError
	if errors.As(err, &sbe) {
		return sbe.Kind == kind
	}
	return false
}

// GetKind extracts the kind from an error, or KindBackend if it is not a
// StateBoxError (unclassified failures are treated as backend trouble).
func GetKind(err error) ErrorKind {
	var sbe *StateBoxError
	if errors.As(err, &sbe) {
		return sbe.Kind
	}
	return KindBackend
}
