// Package task implements the kanban task list: the Task model, its
// validation rules and the Store that persists the list and notifies
// subscribers on change.
//
// The public API mirrors the board operations:
//   - Create, Update, UpdateStatus, Delete for the task lifecycle
//   - ReorderWithinStatus for ordering inside a column
//   - List, Get, Resolve, Subscribe for reading
package task

import (
	"fmt"
	"strings"

	"github.com/intorma/torma/internal/validation"
)

// Status is the board column a task sits in.
type Status string

const (
	// StatusDesign means the design is in progress.
	StatusDesign Status = "Proses Desain"

	// StatusApproval means the design is waiting for customer approval.
	StatusApproval Status = "Proses ACC"

	// StatusDone means the task is finished.
	StatusDone Status = "Selesai"
)

// ValidStatuses returns all statuses in board column order.
func ValidStatuses() []Status {
	return []Status{StatusDesign, StatusApproval, StatusDone}
}

// IsValid returns true if the status is a known valid value.
func (s Status) IsValid() bool {
	for _, valid := range ValidStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// IsActive reports whether a task with this status still needs work.
func (s Status) IsActive() bool {
	return s == StatusDesign || s == StatusApproval
}

var statusAliases = map[string]Status{
	"desain":  StatusDesign,
	"design":  StatusDesign,
	"acc":     StatusApproval,
	"selesai": StatusDone,
	"done":    StatusDone,
}

// ParseStatus accepts a status value or one of its short aliases,
// case-insensitively.
func ParseStatus(input string) (Status, error) {
	normalized := strings.ToLower(strings.Join(strings.Fields(input), " "))
	if normalized == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidStatus)
	}
	for _, status := range ValidStatuses() {
		if strings.ToLower(string(status)) == normalized {
			return status, nil
		}
	}
	if status, ok := statusAliases[normalized]; ok {
		return status, nil
	}
	return "", validation.FormatInvalidValueError(ErrInvalidStatus, Status(input), ValidStatuses())
}

// Source records where a task request came from.
type Source string

const (
	SourceN     Source = "N"
	SourceCS    Source = "CS"
	SourceAdmin Source = "Admin"
	// SourceGroup marks requests that came in through a group chat.
	SourceGroup Source = "G"
)

// ValidSources returns all valid source values.
func ValidSources() []Source {
	return []Source{SourceN, SourceCS, SourceAdmin, SourceGroup}
}

// IsValid returns true if the source is a known valid value.
func (s Source) IsValid() bool {
	for _, valid := range ValidSources() {
		if s == valid {
			return true
		}
	}
	return false
}

// ParseSource accepts a source value case-insensitively.
func ParseSource(input string) (Source, error) {
	normalized := strings.TrimSpace(input)
	if normalized == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSource)
	}
	for _, source := range ValidSources() {
		if strings.EqualFold(string(source), normalized) {
			return source, nil
		}
	}
	return "", validation.FormatInvalidValueError(ErrInvalidSource, Source(input), ValidSources())
}

// Form defaults used when a draft leaves a field unset.
const (
	DefaultStatus = StatusDesign
	DefaultSource = SourceCS
)
