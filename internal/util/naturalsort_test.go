package util

import "testing"

func TestNaturalLess(t *testing.T) {
	testCases := []struct {
		a, b     string
		expected bool
	}{
		{"Episode 2", "Episode 10", true},
		{"Episode 10", "Episode 2", false},
		{"Hindi", "hindi", false},
		{"hindi", "Hindi", false},
		{"Plan 1", "Plan 1", false},
		{"Gold", "Gold Plus", true},
		{"Gold Plus", "Gold", false},
		{"1 Day", "Day 1", true},
		{"v1.2", "v1.10", true},
		{"Tier_9", "Tier_10", true},
	}
	for _, tc := range testCases {
		if result := NaturalLess(tc.a, tc.b); result != tc.expected {
			t.Errorf("NaturalLess(%q, %q) = %v; want %v", tc.a, tc.b, result, tc.expected)
		}
	}
}

func TestSortNatural(t *testing.T) {
	names := []string{"Season 10", "season 2", "Season 1"}
	SortNatural(names, func(s string) string { return s })
	want := []string{"Season 1", "season 2", "Season 10"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("SortNatural() = %v; want %v", names, want)
		}
	}
}
