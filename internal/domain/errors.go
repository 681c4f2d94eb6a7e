package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface lets handlers translate domain failures
// without switching on concrete types.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates a capability check failure
	ForbiddenError struct {
		Message string
	}

	// StorageError indicates an underlying blob or relational store failure.
	// The message is logged with full context but never sent to clients.
	StorageError struct {
		Message string
		Cause   error
	}

	// ConsistencyError indicates a write would violate a structural
	// invariant (a second latest version in a chain, an orphaned row).
	// It always aborts the enclosing transaction.
	ConsistencyError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }
func (e *StorageError) Error() string      { return e.Message }
func (e *ConsistencyError) Error() string  { return e.Message }

func (e *StorageError) Unwrap() error { return e.Cause }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }
func (e *StorageError) StatusCode() int      { return http.StatusInternalServerError }
func (e *ConsistencyError) StatusCode() int  { return http.StatusConflict }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrStorage      = errors.New("storage failure")
	ErrConsistency  = errors.New("consistency violation")
)

// ConflictError represents a resource conflict with details about the
// existing resource (e.g. a concurrent upload that already claimed the
// latest slot, or a duplicate sibling name).
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (directory, file, annotation)
	ResourceID   int64  // ID of the existing/conflicting resource
	Retryable    bool   // True when a retry of the same request may succeed
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistency
}
