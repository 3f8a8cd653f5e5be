// Package board presents the task list as kanban columns and turns drag
// gestures into task store calls.
//
// The board keeps a working copy of the list so a drag can be shown before
// the store confirms it. Every store notification replaces the working copy
// wholesale; the store is always authoritative.
package board

import (
	"errors"
	"slices"
	"sync"

	"github.com/intorma/torma/task"
)

var (
	// ErrNoDrag is returned by DragEnd when no drag is in progress.
	ErrNoDrag = errors.New("no drag in progress")

	// ErrDragAborted is returned by DragEnd when the dragged task was
	// deleted or moved by someone else while it was being dragged.
	ErrDragAborted = errors.New("drag aborted: task changed during drag")
)

// Source is the part of the task store the board needs.
type Source interface {
	List() []task.Task
	Subscribe(fn func([]task.Task)) (unsubscribe func())
	ReorderWithinStatus(status task.Status, ids []string) error
	UpdateStatus(id string, status task.Status) error
}

// Column is one status group in display order.
type Column struct {
	Status task.Status `json:"status"`
	Tasks  []task.Task `json:"tasks"`
}

// Drop describes where a drag ended. OverID is the task under the pointer,
// if any; otherwise Status names the column that was dropped on. A drop
// with neither is a drop outside every column.
type Drop struct {
	Status task.Status `json:"status,omitempty"`
	OverID string      `json:"overId,omitempty"`
}

type dragState struct {
	id     string
	origin task.Status
}

// Board is the reconciler between the store and drag gestures.
type Board struct {
	source Source

	mu       sync.Mutex
	snapshot []task.Task
	working  []task.Task
	drag     *dragState
	aborted  bool

	unsubscribe func()
	closeOnce   sync.Once
}

// New subscribes to source and seeds the working copy from it.
func New(source Source) *Board {
	b := &Board{source: source}
	b.unsubscribe = source.Subscribe(b.replace)
	return b
}

// Close stops following the store.
func (b *Board) Close() {
	b.closeOnce.Do(func() {
		if b.unsubscribe != nil {
			b.unsubscribe()
		}
	})
}

// replace installs a store snapshot. A drag whose task vanished or changed
// column is aborted.
func (b *Board) replace(tasks []task.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.snapshot = tasks
	b.working = slices.Clone(tasks)

	if b.drag == nil {
		return
	}
	i := indexOf(tasks, b.drag.id)
	if i < 0 || tasks[i].Status != b.drag.origin {
		b.drag = nil
		b.aborted = true
	}
}

// Columns returns the three columns in fixed order. Empty columns are
// included.
func (b *Board) Columns() []Column {
	b.mu.Lock()
	defer b.mu.Unlock()
	return columnsOf(b.working)
}

// Snapshot returns the last list confirmed by the store.
func (b *Board) Snapshot() []task.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.snapshot)
}

// Dragging returns the ID of the task being dragged.
func (b *Board) Dragging() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drag == nil {
		return "", false
	}
	return b.drag.id, true
}

// DragStart records id as the dragged task and its column as the origin.
func (b *Board) DragStart(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := indexOf(b.working, id)
	if i < 0 {
		return &task.NotFoundError{ID: id}
	}
	b.drag = &dragState{id: id, origin: b.working[i].Status}
	b.aborted = false
	return nil
}

// DragCancel ends a drag without touching the store.
func (b *Board) DragCancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.drag = nil
	b.aborted = false
	b.working = slices.Clone(b.snapshot)
}

// DragEnd applies a drop.
//
// Dropping in the origin column reorders it around the task under the
// pointer; dropping on the column itself or on the dragged task changes
// nothing. Dropping in another column appends the task to that column.
// Dropping outside every column behaves like DragCancel.
func (b *Board) DragEnd(drop Drop) error {
	b.mu.Lock()
	if b.drag == nil {
		aborted := b.aborted
		b.aborted = false
		b.mu.Unlock()
		if aborted {
			return ErrDragAborted
		}
		return ErrNoDrag
	}
	drag := *b.drag
	b.drag = nil

	dest := b.destination(drop)
	if dest == "" {
		b.working = slices.Clone(b.snapshot)
		b.mu.Unlock()
		return nil
	}

	if dest == drag.origin {
		order, changed := moveWithin(b.working, dest, drag.id, drop.OverID)
		if !changed {
			b.mu.Unlock()
			return nil
		}
		b.working = placeInOrder(b.working, dest, order)
		b.mu.Unlock()

		return b.commit(b.source.ReorderWithinStatus(dest, order))
	}

	b.working = moveToEnd(b.working, drag.id, dest)
	b.mu.Unlock()

	return b.commit(b.source.UpdateStatus(drag.id, dest))
}

// destination resolves the column a drop landed in. Must hold b.mu.
func (b *Board) destination(drop Drop) task.Status {
	if drop.OverID != "" {
		if i := indexOf(b.working, drop.OverID); i >= 0 {
			return b.working[i].Status
		}
	}
	if drop.Status.IsValid() {
		return drop.Status
	}
	return ""
}

// commit rolls the working copy back to the last snapshot when the store
// call failed.
func (b *Board) commit(err error) error {
	if err == nil {
		return nil
	}
	b.mu.Lock()
	b.working = slices.Clone(b.snapshot)
	b.mu.Unlock()
	return err
}

func columnsOf(tasks []task.Task) []Column {
	statuses := task.ValidStatuses()
	columns := make([]Column, len(statuses))
	for i, status := range statuses {
		columns[i] = Column{Status: status, Tasks: task.WithStatus(tasks, status)}
	}
	return columns
}

// moveWithin returns the column's ID order after moving id to the index of
// overID. changed is false when the move is a no-op.
func moveWithin(tasks []task.Task, status task.Status, id, overID string) ([]string, bool) {
	var order []string
	for _, t := range tasks {
		if t.Status == status {
			order = append(order, t.ID)
		}
	}

	oldIndex := slices.Index(order, id)
	newIndex := slices.Index(order, overID)
	if oldIndex < 0 || newIndex < 0 || oldIndex == newIndex {
		return order, false
	}

	return arrayMove(order, oldIndex, newIndex), true
}

// arrayMove moves the element at from so that it ends up at index to.
func arrayMove(ids []string, from, to int) []string {
	moved := slices.Clone(ids)
	item := moved[from]
	moved = slices.Delete(moved, from, from+1)
	return slices.Insert(moved, to, item)
}

// placeInOrder rewrites the slots held by status so they follow order.
func placeInOrder(tasks []task.Task, status task.Status, order []string) []task.Task {
	byID := make(map[string]task.Task)
	var slots []int
	for i, t := range tasks {
		if t.Status == status {
			byID[t.ID] = t
			slots = append(slots, i)
		}
	}

	out := slices.Clone(tasks)
	for k, slot := range slots {
		out[slot] = byID[order[k]]
	}
	return out
}

func moveToEnd(tasks []task.Task, id string, status task.Status) []task.Task {
	i := indexOf(tasks, id)
	if i < 0 {
		return tasks
	}
	moved := tasks[i]
	moved.Status = status
	out := slices.Delete(slices.Clone(tasks), i, i+1)
	return append(out, moved)
}

func indexOf(tasks []task.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
