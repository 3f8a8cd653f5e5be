package task

import (
	"fmt"
	"slices"
	"strings"
)

// maxIDAttempts bounds retries when a minted ID collides.
const maxIDAttempts = 16

// Create validates fields, appends a new task and returns its ID.
func (s *Store) Create(fields Fields) (string, error) {
	fields = normalizeFields(fields)
	if err := ValidateFields(fields); err != nil {
		return "", err
	}

	var id string
	err := s.mutate(func(tasks []Task) ([]Task, error) {
		var err error
		id, err = s.mintID(tasks)
		if err != nil {
			return nil, err
		}
		return append(tasks, Task{
			ID:           id,
			CustomerName: fields.CustomerName,
			Description:  fields.Description,
			Status:       fields.Status,
			Source:       fields.Source,
			DueDate:      fields.DueDate,
		}), nil
	})
	if err != nil {
		return "", err
	}

	s.logger.WithField("task_id", id).Debug("created task")
	return id, nil
}

func (s *Store) mintID(tasks []Task) (string, error) {
	taken := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		taken[strings.ToLower(t.ID)] = true
	}
	for range maxIDAttempts {
		id := s.newID()
		if id != "" && !taken[strings.ToLower(id)] {
			return id, nil
		}
	}
	return "", fmt.Errorf("mint task ID: %d attempts collided", maxIDAttempts)
}

// Update merges patch into the task with the given ID. A status change
// moves the task to the end of the list, which puts it last in its new
// column.
func (s *Store) Update(id string, patch Patch) error {
	return s.mutate(func(tasks []Task) ([]Task, error) {
		index := indexOf(tasks, id)
		if index < 0 {
			return nil, &NotFoundError{ID: id}
		}

		updated := applyPatch(tasks[index], patch)
		normalized := normalizeFields(updated.Fields())
		updated.CustomerName = normalized.CustomerName
		updated.Description = normalized.Description
		if err := ValidateFields(normalized); err != nil {
			return nil, err
		}

		if updated.Status == tasks[index].Status {
			tasks[index] = updated
			return tasks, nil
		}

		tasks = slices.Delete(tasks, index, index+1)
		return append(tasks, updated), nil
	})
}

func applyPatch(t Task, patch Patch) Task {
	if patch.CustomerName != nil {
		t.CustomerName = *patch.CustomerName
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Source != nil {
		t.Source = *patch.Source
	}
	if patch.DueDate != nil {
		t.DueDate = cloneDate(patch.DueDate)
	}
	if patch.ClearDueDate {
		t.DueDate = nil
	}
	return t
}

// UpdateStatus moves a task to another column.
func (s *Store) UpdateStatus(id string, status Status) error {
	return s.Update(id, Patch{Status: &status})
}

// Delete removes the task with the given ID.
func (s *Store) Delete(id string) error {
	err := s.mutate(func(tasks []Task) ([]Task, error) {
		index := indexOf(tasks, id)
		if index < 0 {
			return nil, &NotFoundError{ID: id}
		}
		return slices.Delete(tasks, index, index+1), nil
	})
	if err != nil {
		return err
	}
	s.logger.WithField("task_id", id).Debug("deleted task")
	return nil
}

// ReorderWithinStatus gives the tasks of one column the order of ids.
//
// IDs of other columns and unknown IDs are ignored, and repeated IDs count
// once. Column members missing from ids follow the named ones in their
// previous order. The column keeps the list positions it occupied, so the
// other columns are untouched.
func (s *Store) ReorderWithinStatus(status Status, ids []string) error {
	if !status.IsValid() {
		return &ValidationError{Field: "status", Err: fmt.Errorf("%w: %q", ErrInvalidStatus, status)}
	}

	return s.mutate(func(tasks []Task) ([]Task, error) {
		return reorder(tasks, status, ids), nil
	})
}

func reorder(tasks []Task, status Status, ids []string) []Task {
	var positions []int
	members := make(map[string]Task)
	for i, t := range tasks {
		if t.Status == status {
			positions = append(positions, i)
			members[t.ID] = t
		}
	}

	ordered := make([]Task, 0, len(positions))
	placed := make(map[string]bool, len(positions))
	for _, id := range ids {
		t, ok := members[id]
		if !ok || placed[id] {
			continue
		}
		ordered = append(ordered, t)
		placed[id] = true
	}
	for _, pos := range positions {
		if !placed[tasks[pos].ID] {
			ordered = append(ordered, tasks[pos])
		}
	}

	for k, pos := range positions {
		tasks[pos] = ordered[k]
	}
	return tasks
}

// Get returns the task with the given ID.
func (s *Store) Get(id string) (Task, error) {
	for _, t := range s.List() {
		if t.ID == id {
			return t, nil
		}
	}
	return Task{}, &NotFoundError{ID: id}
}

// Resolve returns the full ID of the task whose ID starts with prefix.
func (s *Store) Resolve(prefix string) (string, error) {
	tasks := s.List()
	for _, t := range tasks {
		if t.ID == prefix {
			return t.ID, nil
		}
	}
	return NewIDIndex(tasks).Resolve(prefix)
}

// IDIndex returns an index of all task IDs in the store.
func (s *Store) IDIndex() IDIndex {
	return NewIDIndex(s.List())
}

// Replace overwrites the whole list. Tasks without an ID get one. IDs must
// be unique ignoring case, since prefixes match case-insensitively.
func (s *Store) Replace(tasks []Task) error {
	incoming := cloneTasks(tasks)
	seen := make(map[string]bool, len(incoming))
	for i := range incoming {
		fields := normalizeFields(incoming[i].Fields())
		incoming[i].CustomerName = fields.CustomerName
		incoming[i].Description = fields.Description
		if err := ValidateFields(fields); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
		if incoming[i].ID == "" {
			continue
		}
		key := strings.ToLower(incoming[i].ID)
		if seen[key] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, incoming[i].ID)
		}
		seen[key] = true
	}

	return s.mutate(func([]Task) ([]Task, error) {
		for i := range incoming {
			if incoming[i].ID != "" {
				continue
			}
			id, err := s.mintID(incoming)
			if err != nil {
				return nil, err
			}
			incoming[i].ID = id
		}
		return incoming, nil
	})
}

func indexOf(tasks []Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
