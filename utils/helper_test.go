package utils

import "testing"

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"Cotton", "cotton"},
		{"  WHITE  ", "white"},
		{"Denim Blue", "denim blue"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeKey(tc.in); got != tc.expected {
			t.Fatalf("NormalizeKey(%q) = %q, expected %q", tc.in, got, tc.expected)
		}
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	if len(got) != 3 {
		t.Fatalf("expected 3 unique values, got %v", got)
	}
	// order of first occurrence is preserved
	if got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("unexpected order: %v", got)
	}
}
