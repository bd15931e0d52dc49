package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorRecordNotFound is returned for both missing ids and ownership
// mismatches, so callers cannot probe for the existence of records they
// do not own.
var ErrorRecordNotFound = errors.New("record not found")

var ErrorUnauthenticated = errors.New("unauthenticated")

// ErrorSchemaMissing signals that an expected table/column is absent.
// Readers degrade to empty results with a diagnostic instead of crashing.
var ErrorSchemaMissing = errors.New("storage schema missing")

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError carries both the raw and normalized role plus the allowed
// set, so denied requests can be diagnosed from logs alone.
type ForbiddenError struct {
	RawRole        string
	NormalizedRole string
	Allowed        []string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: role %q (raw %q) not in [%s]",
		e.NormalizedRole, e.RawRole, strings.Join(e.Allowed, ", "))
}

// ImmutableStateError is returned when a mutation targets a record whose
// state no longer permits changes (terminal or locked).
type ImmutableStateError struct {
	Entity string
	State  string
}

func (e *ImmutableStateError) Error() string {
	return fmt.Sprintf("%s is locked in state %q", e.Entity, e.State)
}

// ConflictError is returned when a guarded status transition finds the
// record no longer in its precondition state (lost a concurrent race).
type ConflictError struct {
	Entity    string
	FromState string
	ToState   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s cannot move from %q to %q", e.Entity, e.FromState, e.ToState)
}

// DependencyError wraps a failure from an external reference provider
// (identity, inventory, profiles). Retryable by the caller.
type DependencyError struct {
	Provider string
	Err      error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s: %v", e.Provider, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
