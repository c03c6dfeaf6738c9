// Package views implements the pure selection logic behind the task board's
// six renderers (board/list/table/calendar/gantt/channel): filtering is a
// conjunction of independent predicates, grouping buckets the filtered list
// by a chosen key. No predicate depends on another.
package views

import (
	"sort"
	"time"

	"tribehub/internal/models"
)

// Grouping keys
const (
	GroupByStatus   = "status"
	GroupByAssignee = "assignee"
	GroupByPriority = "priority"
	GroupByDueDate  = "due_date"
)

// TaskFilter is the filter state of the active view. Zero values mean
// "predicate disabled".
type TaskFilter struct {
	Label    string
	Assignee string
	Overdue  bool
	Now      time.Time // clock for the overdue predicate; zero = time.Now()
}

// Apply returns the subset of tasks matching every enabled predicate.
// Order is preserved; the input is never mutated.
func Apply(tasks []models.Task, f TaskFilter) []models.Task {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}

	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Label != "" && !t.HasLabel(f.Label) {
			continue
		}
		if f.Assignee != "" && t.Assignee != f.Assignee {
			continue
		}
		if f.Overdue && !t.IsOverdue(now) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Group buckets tasks by the given key. Bucket order follows the column
// sequence for status grouping and first-seen order otherwise.
func Group(tasks []models.Task, key string, statusSequence []string) ([]string, map[string][]models.Task) {
	buckets := make(map[string][]models.Task)
	var order []string

	keyOf := func(t models.Task) string {
		switch key {
		case GroupByAssignee:
			if t.Assignee == "" {
				return "unassigned"
			}
			return t.Assignee
		case GroupByPriority:
			return t.Priority
		case GroupByDueDate:
			if t.DueDate == nil {
				return "no due date"
			}
			return t.DueDate.Format("2006-01-02")
		default:
			return t.Status
		}
	}

	if key == GroupByStatus || key == "" {
		if len(statusSequence) == 0 {
			statusSequence = models.DefaultStatusSequence
		}
		for _, s := range statusSequence {
			order = append(order, s)
			buckets[s] = nil
		}
	}

	for _, t := range tasks {
		k := keyOf(t)
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], t)
	}

	if key == GroupByDueDate {
		sort.Strings(order)
	}
	return order, buckets
}
