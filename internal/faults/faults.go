package faults

import "fmt"

// ValidationError means the caller's input is missing or malformed.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError means a referenced record does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError means a state-machine guard rejected the operation.
type ConflictError struct{ Msg string }

func (e *ConflictError) Error() string { return e.Msg }

// NoCandidatesError means dispatch found zero eligible mechanics.
type NoCandidatesError struct{}

func (e *NoCandidatesError) Error() string { return "no nearby mechanics found" }

// DependencyError wraps a failure from a backing service (store, geo index).
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *DependencyError) Unwrap() error { return e.Err }

func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func NotFound(entity, id string) error { return &NotFoundError{Entity: entity, ID: id} }

func Conflict(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

func Dependency(op string, err error) error { return &DependencyError{Op: op, Err: err} }
