package views

import (
	"testing"
	"time"

	"tribehub/internal/models"
)

func sampleTasks(now time.Time) []models.Task {
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)
	return []models.Task{
		{ID: "1", Title: "overdue urgent", Status: models.StatusTodo, Assignee: "ana", Labels: []string{"urgent"}, DueDate: &past},
		{ID: "2", Title: "overdue but done", Status: models.StatusDone, Assignee: "ana", DueDate: &past},
		{ID: "3", Title: "future", Status: models.StatusInProgress, Assignee: "bruno", Labels: []string{"urgent"}, DueDate: &future},
		{ID: "4", Title: "no due date", Status: models.StatusTodo, Assignee: "bruno"},
	}
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestApplyOverdueFilter(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	got := Apply(sampleTasks(now), TaskFilter{Overdue: true, Now: now})

	// exactly dueDate < now && status != DONE
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("overdue filter returned %v, want [1]", ids(got))
	}
}

func TestApplyIsConjunction(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tasks := sampleTasks(now)

	tests := []struct {
		name     string
		filter   TaskFilter
		expected []string
	}{
		{"no filters returns all", TaskFilter{Now: now}, []string{"1", "2", "3", "4"}},
		{"label only", TaskFilter{Label: "urgent", Now: now}, []string{"1", "3"}},
		{"assignee only", TaskFilter{Assignee: "ana", Now: now}, []string{"1", "2"}},
		{"label and assignee", TaskFilter{Label: "urgent", Assignee: "bruno", Now: now}, []string{"3"}},
		{"label and assignee and overdue", TaskFilter{Label: "urgent", Assignee: "ana", Overdue: true, Now: now}, []string{"1"}},
		{"conjunction can be empty", TaskFilter{Label: "urgent", Assignee: "nobody", Now: now}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(tasks, tt.filter))
			if len(got) != len(tt.expected) {
				t.Fatalf("got %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("got %v, want %v", got, tt.expected)
					break
				}
			}
		})
	}
}

func TestApplyPreservesOrderAndInput(t *testing.T) {
	now := time.Now()
	tasks := sampleTasks(now)
	before := ids(tasks)

	Apply(tasks, TaskFilter{Label: "urgent", Now: now})

	after := ids(tasks)
	for i := range before {
		if before[i] != after[i] {
			t.Fatal("Apply mutated its input slice")
		}
	}
}

func TestGroupByStatusUsesColumnOrder(t *testing.T) {
	now := time.Now()
	order, buckets := Group(sampleTasks(now), GroupByStatus, nil)

	if len(order) != 4 {
		t.Fatalf("expected 4 status buckets, got %v", order)
	}
	for i, want := range models.DefaultStatusSequence {
		if order[i] != want {
			t.Errorf("bucket order[%d] = %s, want %s", i, order[i], want)
		}
	}
	if len(buckets[models.StatusTodo]) != 2 {
		t.Errorf("TODO bucket has %d tasks, want 2", len(buckets[models.StatusTodo]))
	}
	if len(buckets[models.StatusReview]) != 0 {
		t.Errorf("empty column should stay present and empty")
	}
}

func TestGroupByAssignee(t *testing.T) {
	now := time.Now()
	tasks := append(sampleTasks(now), models.Task{ID: "5", Status: models.StatusTodo})
	order, buckets := Group(tasks, GroupByAssignee, nil)

	if len(buckets["ana"]) != 2 || len(buckets["bruno"]) != 2 {
		t.Errorf("assignee buckets wrong: %v", order)
	}
	if len(buckets["unassigned"]) != 1 {
		t.Errorf("missing unassigned bucket")
	}
}
