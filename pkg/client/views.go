package client

import (
	"tribehub/internal/models"
	"tribehub/internal/views"
)

// TaskFilter selects tasks locally without a round trip. Zero values mean
// "predicate disabled"; enabled predicates are combined with AND.
type TaskFilter = views.TaskFilter

// Grouping keys accepted by GroupTasks.
const (
	GroupByStatus   = views.GroupByStatus
	GroupByAssignee = views.GroupByAssignee
	GroupByPriority = views.GroupByPriority
	GroupByDueDate  = views.GroupByDueDate
)

// FilterTasks returns the subset of tasks matching every enabled predicate,
// preserving order. The input slice is never mutated.
func FilterTasks(tasks []Task, f TaskFilter) []Task {
	return views.Apply(tasks, f)
}

// GroupTasks buckets tasks by the given key. For status grouping pass the
// board's column sequence so bucket order matches the board.
func GroupTasks(tasks []Task, key string, statusSequence []string) ([]string, map[string][]Task) {
	return views.Group(tasks, key, statusSequence)
}

// NextStatus and PrevStatus step a task's status through the column
// sequence, clamping at either end. Repeated calls at a boundary return the
// boundary status rather than an error.
func NextStatus(current string, sequence []string) string {
	return models.NextStatus(current, sequence)
}

func PrevStatus(current string, sequence []string) string {
	return models.PrevStatus(current, sequence)
}
