package models

import "fmt"

// MoveSibling returns a copy of ids with the element at from moved to to.
// This is the permutation a drag-and-drop end event produces.
func MoveSibling(ids []string, from, to int) ([]string, error) {
	n := len(ids)
	if from < 0 || from >= n {
		return nil, fmt.Errorf("source index %d out of range [0,%d)", from, n)
	}
	if to < 0 || to >= n {
		return nil, fmt.Errorf("destination index %d out of range [0,%d)", to, n)
	}
	out := make([]string, 0, n)
	out = append(out, ids[:from]...)
	out = append(out, ids[from+1:]...)
	out = append(out[:to], append([]string{ids[from]}, out[to:]...)...)
	return out, nil
}

// IsPermutationOf reports whether got contains exactly the same ids as want,
// in any order, with no duplicates or omissions.
func IsPermutationOf(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[string]int, len(want))
	for _, id := range want {
		seen[id]++
	}
	for _, id := range got {
		seen[id]--
		if seen[id] < 0 {
			return false
		}
	}
	return true
}
