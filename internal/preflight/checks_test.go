package preflight

import "testing"

func TestHasFailures(t *testing.T) {
	tests := []struct {
		name    string
		results []CheckResult
		want    bool
	}{
		{
			name: "all pass",
			results: []CheckResult{
				{Name: "a", Status: "pass"},
				{Name: "b", Status: "pass"},
			},
			want: false,
		},
		{
			name: "warnings are not failures",
			results: []CheckResult{
				{Name: "a", Status: "pass"},
				{Name: "b", Status: "warning"},
			},
			want: false,
		},
		{
			name: "one failure",
			results: []CheckResult{
				{Name: "a", Status: "pass"},
				{Name: "b", Status: "fail"},
			},
			want: true,
		},
		{
			name:    "empty",
			results: nil,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasFailures(tt.results); got != tt.want {
				t.Errorf("HasFailures() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequiredTablesCoverCoreDomains(t *testing.T) {
	// Guard against accidentally dropping a core table from the check list
	core := []string{"users", "tenants", "tasks", "leads", "modules", "lessons", "posts", "notifications", "subscriptions"}
	set := make(map[string]bool, len(requiredTables))
	for _, table := range requiredTables {
		set[table] = true
	}
	for _, table := range core {
		if !set[table] {
			t.Errorf("core table %q missing from preflight schema check", table)
		}
	}
}
