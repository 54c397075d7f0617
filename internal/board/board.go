// Package board holds the reordering logic of the kanban board. Functions
// here never touch storage: they compute the order and status updates that
// a drag-and-drop produces, and the store applies them as one batch.
package board

import (
	"errors"
	"fmt"
	"sort"

	"taskzen/internal/models"
)

var (
	// ErrEmpty is returned when moving inside an empty list.
	ErrEmpty = errors.New("list is empty")
	// ErrItemNotFound is returned when the source index or id does not
	// match an element of the list.
	ErrItemNotFound = errors.New("item not found")
	// ErrBadDestination is returned when the destination index lies
	// outside the list.
	ErrBadDestination = errors.New("destination out of range")
)

// Move returns a copy of items with the element at from moved to index to.
func Move[T any](items []T, from, to int) ([]T, error) {
	if len(items) == 0 {
		return nil, ErrEmpty
	}
	if from < 0 || from >= len(items) {
		return nil, ErrItemNotFound
	}
	if to < 0 || to >= len(items) {
		return nil, ErrBadDestination
	}

	out := make([]T, len(items))
	copy(out, items)
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	return insert(out, to, moved), nil
}

func insert[T any](items []T, at int, item T) []T {
	items = append(items, item)
	copy(items[at+1:], items[at:])
	items[at] = item
	return items
}

// OrderUpdate sets the position of one record.
type OrderUpdate struct {
	ID    string
	Order int
}

// TaskUpdate is a single write of a task batch. Status is nil when the task
// stays in its column.
type TaskUpdate struct {
	ID     string
	Order  int
	Status *string
}

// Batch is the set of task writes produced by one move.
type Batch struct {
	Updates []TaskUpdate
}

// Len returns the number of writes in the batch.
func (b Batch) Len() int { return len(b.Updates) }

// ReorderColumns moves the column at from to index to and renumbers all
// columns by their new position.
func ReorderColumns(columns []models.Column, from, to int) ([]models.Column, []OrderUpdate, error) {
	ordered := SortColumns(columns)
	moved, err := Move(ordered, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("move column: %w", err)
	}

	updates := make([]OrderUpdate, len(moved))
	for i := range moved {
		moved[i].Order = i
		updates[i] = OrderUpdate{ID: moved[i].ID, Order: i}
	}
	return moved, updates, nil
}

// TaskMove describes a drag of one task card.
type TaskMove struct {
	// TaskID is optional. When set it must be the task found at
	// SourceIndex of SourceColumn.
	TaskID            string
	SourceColumn      string
	SourceIndex       int
	DestinationColumn string
	DestinationIndex  int
}

// MoveTask computes the batch for a task drag. tasks may contain the tasks
// of every column of the project; only the source and destination columns
// are touched.
func MoveTask(tasks []models.Task, mv TaskMove) (Batch, error) {
	source := ColumnTasks(tasks, mv.SourceColumn)
	if len(source) == 0 {
		return Batch{}, fmt.Errorf("move task: %w", ErrEmpty)
	}
	if mv.SourceIndex < 0 || mv.SourceIndex >= len(source) {
		return Batch{}, fmt.Errorf("move task: %w", ErrItemNotFound)
	}
	if mv.TaskID != "" && source[mv.SourceIndex].ID != mv.TaskID {
		return Batch{}, fmt.Errorf("move task %s: %w", mv.TaskID, ErrItemNotFound)
	}

	if mv.SourceColumn == mv.DestinationColumn {
		moved, err := Move(source, mv.SourceIndex, mv.DestinationIndex)
		if err != nil {
			return Batch{}, fmt.Errorf("move task: %w", err)
		}
		return Batch{Updates: renumber(moved)}, nil
	}

	dest := ColumnTasks(tasks, mv.DestinationColumn)
	if mv.DestinationIndex < 0 || mv.DestinationIndex > len(dest) {
		return Batch{}, fmt.Errorf("move task: %w", ErrBadDestination)
	}

	movedTask := source[mv.SourceIndex]
	source = append(source[:mv.SourceIndex], source[mv.SourceIndex+1:]...)
	dest = insert(dest, mv.DestinationIndex, movedTask)

	status := mv.DestinationColumn
	updates := renumber(source)
	for _, u := range renumber(dest) {
		if u.ID == movedTask.ID {
			u.Status = &status
		}
		updates = append(updates, u)
	}
	return Batch{Updates: updates}, nil
}

// Compact renumbers the tasks of one column 0..n-1 keeping their relative
// order, and returns only the writes that change something.
func Compact(tasks []models.Task, columnID string) Batch {
	var updates []TaskUpdate
	for i, t := range ColumnTasks(tasks, columnID) {
		if t.Order != i {
			updates = append(updates, TaskUpdate{ID: t.ID, Order: i})
		}
	}
	return Batch{Updates: updates}
}

// CompactColumns renumbers columns 0..n-1 and returns the changed ones.
func CompactColumns(columns []models.Column) []OrderUpdate {
	var updates []OrderUpdate
	for i, c := range SortColumns(columns) {
		if c.Order != i {
			updates = append(updates, OrderUpdate{ID: c.ID, Order: i})
		}
	}
	return updates
}

// ColumnTasks returns the tasks whose status is columnID sorted by order.
// The result is a fresh slice.
func ColumnTasks(tasks []models.Task, columnID string) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if t.Status == columnID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// SortColumns returns a copy of columns sorted by order.
func SortColumns(columns []models.Column) []models.Column {
	out := make([]models.Column, len(columns))
	copy(out, columns)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func renumber(tasks []models.Task) []TaskUpdate {
	updates := make([]TaskUpdate, len(tasks))
	for i, t := range tasks {
		updates[i] = TaskUpdate{ID: t.ID, Order: i}
	}
	return updates
}
