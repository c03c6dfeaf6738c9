package models

import (
	"testing"
	"time"
)

func TestNextStatusClampsAtEnd(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		expected string
	}{
		{"todo advances", StatusTodo, StatusInProgress},
		{"in progress advances", StatusInProgress, StatusReview},
		{"review advances", StatusReview, StatusDone},
		{"done stays done", StatusDone, StatusDone},
		{"unknown stays put", "WAITING", "WAITING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextStatus(tt.current, nil); got != tt.expected {
				t.Errorf("NextStatus(%s) = %s, want %s", tt.current, got, tt.expected)
			}
		})
	}
}

func TestPrevStatusClampsAtStart(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		expected string
	}{
		{"todo stays todo", StatusTodo, StatusTodo},
		{"in progress goes back", StatusInProgress, StatusTodo},
		{"done goes back", StatusDone, StatusReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrevStatus(tt.current, nil); got != tt.expected {
				t.Errorf("PrevStatus(%s) = %s, want %s", tt.current, got, tt.expected)
			}
		})
	}
}

func TestStatusStepNeverPanicsAtBoundary(t *testing.T) {
	// Repeated boundary presses must be stable, not an error
	s := StatusDone
	for i := 0; i < 10; i++ {
		s = NextStatus(s, nil)
	}
	if s != StatusDone {
		t.Errorf("repeated NextStatus at boundary drifted to %s", s)
	}

	s = StatusTodo
	for i := 0; i < 10; i++ {
		s = PrevStatus(s, nil)
	}
	if s != StatusTodo {
		t.Errorf("repeated PrevStatus at boundary drifted to %s", s)
	}
}

func TestStatusStepWithCustomSequence(t *testing.T) {
	seq := []string{StatusTodo, "WAITING_ON_CLIENT", StatusDone}
	if got := NextStatus(StatusTodo, seq); got != "WAITING_ON_CLIENT" {
		t.Errorf("NextStatus with custom column = %s", got)
	}
	if got := PrevStatus(StatusDone, seq); got != "WAITING_ON_CLIENT" {
		t.Errorf("PrevStatus with custom column = %s", got)
	}
}

func TestTaskIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name     string
		task     Task
		expected bool
	}{
		{"past due, open", Task{Status: StatusTodo, DueDate: &past}, true},
		{"past due, done", Task{Status: StatusDone, DueDate: &past}, false},
		{"future due", Task{Status: StatusTodo, DueDate: &future}, false},
		{"no due date", Task{Status: StatusTodo}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.IsOverdue(now); got != tt.expected {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestColumnKeyFromTitle(t *testing.T) {
	tests := []struct {
		title    string
		expected string
		wantErr  bool
	}{
		{"Waiting on client", "WAITING_ON_CLIENT", false},
		{"QA", "QA", false},
		{"  blocked  ", "BLOCKED", false},
		{"Sprint-2 review", "SPRINT_2_REVIEW", false},
		{"???", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, err := ColumnKeyFromTitle(tt.title)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got key %q", tt.title, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ColumnKeyFromTitle(%q) = %q, want %q", tt.title, got, tt.expected)
			}
		})
	}
}
