package models

import "time"

// Lesson content types
const (
	LessonTypeVideo    = "VIDEO"
	LessonTypeText     = "TEXT"
	LessonTypeDocument = "DOCUMENT"
)

// Module is an ordered group of lessons within a tenant's course area.
// OrderIndex is dense 0..n-1 across the tenant's modules.
type Module struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OrderIndex  int       `json:"order_index"`
	Lessons     []Lesson  `json:"lessons,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Lesson is one unit of course content. OrderIndex is dense 0..n-1 within
// its module.
type Lesson struct {
	ID         string    `json:"id"`
	ModuleID   string    `json:"module_id"`
	TenantID   string    `json:"tenant_id"`
	Title      string    `json:"title"`
	Duration   string    `json:"duration,omitempty"` // free-text or auto-detected
	Type       string    `json:"type"`
	ContentURL string    `json:"content_url,omitempty"`
	OrderIndex int       `json:"order_index"`
	Materials  []string  `json:"materials,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Per-requesting-user completion, joined from lesson_progress
	IsCompleted bool `json:"is_completed"`
}

// ValidLessonType reports whether t is a known lesson type.
func ValidLessonType(t string) bool {
	return t == LessonTypeVideo || t == LessonTypeText || t == LessonTypeDocument
}

// LessonProgress tracks one user's completion of one lesson
type LessonProgress struct {
	LessonID    string     `json:"lesson_id"`
	UserID      string     `json:"user_id"`
	TenantID    string     `json:"tenant_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreateModuleRequest is the payload for POST /api/modules
type CreateModuleRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// CreateLessonRequest is the payload for POST /api/modules/:id/lessons
type CreateLessonRequest struct {
	Title      string   `json:"title"`
	Duration   string   `json:"duration,omitempty"`
	Type       string   `json:"type"`
	ContentURL string   `json:"content_url,omitempty"`
	Materials  []string `json:"materials,omitempty"`
}

// ReorderRequest carries the full permuted sibling id list for a reorder.
// The server rewrites order_index 0..n-1 in one transaction; a list that is
// not an exact permutation of the current siblings is rejected.
type ReorderRequest struct {
	IDs []string `json:"ids"`
}
