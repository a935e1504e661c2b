package persistence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/flowdeck/pkg/graph"
	"github.com/dukex/flowdeck/pkg/mapper"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrNotFound indicates a lookup by id found nothing.
	ErrNotFound = errors.New("not found")

	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = fmt.Errorf("workflow %w", ErrNotFound)

	// ErrAppIntegrationNotFound indicates an app integration was not found.
	ErrAppIntegrationNotFound = fmt.Errorf("app integration %w", ErrNotFound)

	// ErrTemplateNotFound indicates a template was not found.
	ErrTemplateNotFound = fmt.Errorf("template %w", ErrNotFound)

	// ErrExecutionLogNotFound indicates an execution log was not found.
	ErrExecutionLogNotFound = fmt.Errorf("execution log %w", ErrNotFound)

	// ErrValidation indicates a workflow failed validation before being written.
	ErrValidation = errors.New("validation failed")

	// ErrBackingStore indicates the record store rejected a call or could not be reached.
	ErrBackingStore = errors.New("backing store error")

	// ErrConflict indicates a workflow changed since it was read.
	ErrConflict = errors.New("conflict")

	// ErrMalformedData indicates a stored record could not be decoded.
	ErrMalformedData = mapper.ErrMalformedData
)

// MalformedDataError reports a stored field that cannot be decoded.
type MalformedDataError = mapper.MalformedDataError

// NotFoundError reports a missing entity.
type NotFoundError struct {
	ID  int64
	Err error // one of the per-kind sentinels
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %d", e.Err, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a not found error for the given sentinel and id.
func NewNotFoundError(sentinel error, id int64) *NotFoundError {
	return &NotFoundError{ID: id, Err: sentinel}
}

// ValidationError reports dangling connections in a workflow graph.
type ValidationError struct {
	Violations []graph.Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}

	return fmt.Sprintf("%v: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// BackingStoreError reports a failed record store call. Message carries the
// store's own message when it answered with success false; Err carries the
// transport error otherwise.
type BackingStoreError struct {
	Op      string
	Table   string
	Message string
	Err     error
}

func (e *BackingStoreError) Error() string {
	detail := e.Message
	if e.Err != nil {
		detail = e.Err.Error()
	}

	return fmt.Sprintf("%s on %s failed: %s", e.Op, e.Table, detail)
}

func (e *BackingStoreError) Unwrap() error {
	return e.Err
}

func (e *BackingStoreError) Is(target error) bool {
	return target == ErrBackingStore
}

// ConflictError reports a write lost to a concurrent change of the same workflow.
type ConflictError struct {
	ID       int64
	Expected time.Time
	Actual   time.Time
}

func (e *ConflictError) Error() string {
	if e.Expected.IsZero() && e.Actual.IsZero() {
		return fmt.Sprintf("%v: workflow %d was modified concurrently", ErrConflict, e.ID)
	}

	return fmt.Sprintf("%v: workflow %d was modified at %s, expected %s",
		ErrConflict, e.ID, mapper.FormatTime(e.Actual), mapper.FormatTime(e.Expected))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// IsNotFound checks if an error indicates an entity was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a ValidationError.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsBackingStore checks if an error is a BackingStoreError.
func IsBackingStore(err error) bool {
	return errors.Is(err, ErrBackingStore)
}

// IsMalformedData checks if an error is a MalformedDataError.
func IsMalformedData(err error) bool {
	return errors.Is(err, ErrMalformedData)
}

// IsConflict checks if an error is a ConflictError.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
