package models

import (
	"reflect"
	"testing"
)

func TestMoveSibling(t *testing.T) {
	base := []string{"a", "b", "c", "d"}

	tests := []struct {
		name     string
		from, to int
		expected []string
	}{
		{"forward", 0, 2, []string{"b", "c", "a", "d"}},
		{"backward", 3, 0, []string{"d", "a", "b", "c"}},
		{"adjacent", 1, 2, []string{"a", "c", "b", "d"}},
		{"no-op", 2, 2, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MoveSibling(base, tt.from, tt.to)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("MoveSibling(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
			// input must not be mutated
			if !reflect.DeepEqual(base, []string{"a", "b", "c", "d"}) {
				t.Error("MoveSibling mutated its input")
			}
		})
	}
}

func TestMoveSiblingOutOfRange(t *testing.T) {
	ids := []string{"a", "b"}
	if _, err := MoveSibling(ids, -1, 0); err == nil {
		t.Error("expected error for negative source")
	}
	if _, err := MoveSibling(ids, 0, 2); err == nil {
		t.Error("expected error for destination past end")
	}
}

func TestIsPermutationOf(t *testing.T) {
	tests := []struct {
		name      string
		got, want []string
		expected  bool
	}{
		{"same order", []string{"a", "b"}, []string{"a", "b"}, true},
		{"shuffled", []string{"b", "a"}, []string{"a", "b"}, true},
		{"missing", []string{"a"}, []string{"a", "b"}, false},
		{"duplicate replaces", []string{"a", "a"}, []string{"a", "b"}, false},
		{"extra", []string{"a", "b", "c"}, []string{"a", "b"}, false},
		{"both empty", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermutationOf(tt.got, tt.want); got != tt.expected {
				t.Errorf("IsPermutationOf(%v, %v) = %v, want %v", tt.got, tt.want, got, tt.expected)
			}
		})
	}
}
