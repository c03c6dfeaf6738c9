package utils

import "testing"

func TestEstimateReadingDuration(t *testing.T) {
	tests := []struct {
		name  string
		words int
		want  string
	}{
		{"short floors to one minute", 50, "1 min"},
		{"exact minute", 200, "1 min"},
		{"ten minutes", 2000, "10 min"},
		{"rounds down", 2199, "10 min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateReadingDuration(tt.words); got != tt.want {
				t.Errorf("EstimateReadingDuration(%d) = %q, want %q", tt.words, got, tt.want)
			}
		})
	}
}

func TestCountWords(t *testing.T) {
	if got := countWords("one two three"); got != 3 {
		t.Errorf("Expected 3 words, got %d", got)
	}
	if got := countWords(""); got != 0 {
		t.Errorf("Expected 0 words, got %d", got)
	}
}
