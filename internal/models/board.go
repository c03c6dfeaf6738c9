package models

import (
	"fmt"
	"strings"
	"time"
)

// Built-in board column keys. Custom columns get a generated key and live
// alongside these in the board_columns table.
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusReview     = "REVIEW"
	StatusDone       = "DONE"
)

// Task priorities
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// DefaultStatusSequence is the ordered built-in column set every new tenant
// starts with. Custom columns are appended after these by position.
var DefaultStatusSequence = []string{StatusTodo, StatusInProgress, StatusReview, StatusDone}

// BoardColumn is a kanban column. Custom columns are first-class rows so a
// task's status is always validated against the tenant's persisted columns.
type BoardColumn struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	BuiltIn   bool      `json:"built_in"`
	CreatedAt time.Time `json:"created_at"`
}

// ChecklistItem is one entry of a task's ordered checklist
type ChecklistItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Subtask is a lightweight child item of a task
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// TaskComment is a free-text comment on a task
type TaskComment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Playbook is a resource link attached to a task, optionally enriched with
// a fetched link preview.
type Playbook struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	PreviewTitle string    `json:"preview_title,omitempty"`
	PreviewText  string    `json:"preview_text,omitempty"`
	PreviewImage string    `json:"preview_image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Task is a kanban card
type Task struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status"`
	Assignee    string          `json:"assignee,omitempty"` // free-text name, not a user FK
	Priority    string          `json:"priority"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	Progress    int             `json:"progress"` // 0-100, timeline display
	Labels      []string        `json:"labels,omitempty"`
	Checklist   []ChecklistItem `json:"checklist,omitempty"`
	Subtasks    []Subtask       `json:"subtasks,omitempty"`
	Comments    []TaskComment   `json:"comments,omitempty"`
	Playbooks   []Playbook      `json:"playbooks,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsOverdue reports whether the task is past due and not finished.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusDone
}

// HasLabel reports whether the task carries the given label.
func (t *Task) HasLabel(label string) bool {
	for _, l := range t.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// NextStatus returns the status one step forward in sequence, clamped at the
// last entry. Unknown statuses stay where they are.
func NextStatus(current string, sequence []string) string {
	if len(sequence) == 0 {
		sequence = DefaultStatusSequence
	}
	for i, s := range sequence {
		if s == current {
			if i == len(sequence)-1 {
				return current
			}
			return sequence[i+1]
		}
	}
	return current
}

// PrevStatus returns the status one step backward in sequence, clamped at the
// first entry. Unknown statuses stay where they are.
func PrevStatus(current string, sequence []string) string {
	if len(sequence) == 0 {
		sequence = DefaultStatusSequence
	}
	for i, s := range sequence {
		if s == current {
			if i == 0 {
				return current
			}
			return sequence[i-1]
		}
	}
	return current
}

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ColumnKeyFromTitle derives a stable column key from a custom column title,
// e.g. "Waiting on client" -> "WAITING_ON_CLIENT".
func ColumnKeyFromTitle(title string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(title))
	key = strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '_'
		default:
			return -1
		}
	}, key)
	key = strings.Trim(key, "_")
	if key == "" {
		return "", fmt.Errorf("column title %q yields an empty key", title)
	}
	return key, nil
}

// CreateTaskRequest is the payload for POST /api/tasks
type CreateTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status,omitempty"`
	Assignee    string          `json:"assignee,omitempty"`
	Priority    string          `json:"priority,omitempty"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	Progress    int             `json:"progress,omitempty"`
	Labels      []string        `json:"labels,omitempty"`
	Checklist   []ChecklistItem `json:"checklist,omitempty"`
}

// UpdateTaskRequest is the payload for PUT /api/tasks/:id. Nil pointers mean
// "leave unchanged".
type UpdateTaskRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Status      *string          `json:"status,omitempty"`
	Assignee    *string          `json:"assignee,omitempty"`
	Priority    *string          `json:"priority,omitempty"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
	StartDate   *time.Time       `json:"start_date,omitempty"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	Progress    *int             `json:"progress,omitempty"`
	Labels      *[]string        `json:"labels,omitempty"`
	Checklist   *[]ChecklistItem `json:"checklist,omitempty"`
	Subtasks    *[]Subtask       `json:"subtasks,omitempty"`
}

// MoveTaskRequest is the payload for POST /api/tasks/:id/move.
// Either Status is set explicitly (drag-and-drop drop target) or Direction is
// "next"/"prev" (the clamped step buttons). Both paths converge on the same
// status write.
type MoveTaskRequest struct {
	Status    string `json:"status,omitempty"`
	Direction string `json:"direction,omitempty"`
}
