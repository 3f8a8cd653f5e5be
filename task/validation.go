package task

import (
	"errors"
	"fmt"
	"strings"

	"github.com/intorma/torma/internal/validation"
)

var (
	// ErrRequired is returned when a required field is empty.
	ErrRequired = errors.New("required")

	// ErrInvalidStatus is returned when an invalid status is provided.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidSource is returned when an invalid source is provided.
	ErrInvalidSource = errors.New("invalid source")

	// ErrInvalidDueDate is returned when a due date is not a calendar date.
	ErrInvalidDueDate = errors.New("invalid due date")

	// ErrTaskNotFound is returned when a task with the given ID doesn't exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAmbiguousTaskIDPrefix is returned when an ID prefix matches multiple tasks.
	ErrAmbiguousTaskIDPrefix = errors.New("ambiguous task ID prefix")

	// ErrDuplicateID is returned by Replace when two tasks share an ID.
	ErrDuplicateID = errors.New("duplicate task ID")

	// ErrStoreClosed is returned by mutations after Close.
	ErrStoreClosed = errors.New("task store is closed")
)

// ValidationError reports which field was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned for an ID that matches no task.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrTaskNotFound, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrTaskNotFound
}

// PersistenceError wraps a failed write of the task list.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ValidateFields checks the fields of a new or patched task.
func ValidateFields(f Fields) error {
	if strings.TrimSpace(f.CustomerName) == "" {
		return &ValidationError{Field: "customerName", Err: ErrRequired}
	}
	if strings.TrimSpace(f.Description) == "" {
		return &ValidationError{Field: "description", Err: ErrRequired}
	}
	if f.Status == "" {
		return &ValidationError{Field: "status", Err: ErrRequired}
	}
	if !f.Status.IsValid() {
		return &ValidationError{Field: "status", Err: validation.FormatInvalidValueError(ErrInvalidStatus, f.Status, ValidStatuses())}
	}
	if f.Source == "" {
		return &ValidationError{Field: "source", Err: ErrRequired}
	}
	if !f.Source.IsValid() {
		return &ValidationError{Field: "source", Err: validation.FormatInvalidValueError(ErrInvalidSource, f.Source, ValidSources())}
	}
	if f.DueDate != nil && !f.DueDate.IsValid() {
		return &ValidationError{Field: "dueDate", Err: fmt.Errorf("%w: %s", ErrInvalidDueDate, *f.DueDate)}
	}
	return nil
}

// ValidateTask checks a stored task, including its ID.
func ValidateTask(t Task) error {
	if strings.TrimSpace(t.ID) == "" {
		return &ValidationError{Field: "id", Err: ErrRequired}
	}
	return ValidateFields(t.Fields())
}

func normalizeFields(f Fields) Fields {
	f.CustomerName = strings.TrimSpace(f.CustomerName)
	f.Description = strings.TrimSpace(f.Description)
	f.DueDate = cloneDate(f.DueDate)
	return f
}
