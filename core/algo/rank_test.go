package algo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type item struct {
	name  string
	value float64
	count int
}

func byValue(it item) float64 { return it.value }

// TestRankDesc tests ranking density and tie handling.
func TestRankDesc(t *testing.T) {
	tests := []struct {
		name     string
		items    []item
		include  func(item) bool
		expected []int
	}{
		{
			name:     "empty",
			items:    nil,
			expected: []int{},
		},
		{
			name:     "distinct values",
			items:    []item{{"a", 1, 1}, {"b", 3, 1}, {"c", 2, 1}},
			expected: []int{3, 1, 2},
		},
		{
			name:     "ties keep input order",
			items:    []item{{"a", 5, 1}, {"b", 7, 1}, {"c", 5, 1}, {"d", 5, 1}},
			expected: []int{2, 1, 3, 4},
		},
		{
			name:     "excluded items are unranked",
			items:    []item{{"a", 5, 1}, {"b", 0, 0}, {"c", 9, 1}},
			include:  func(it item) bool { return it.count > 0 },
			expected: []int{2, 0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RankDesc(tt.items, byValue, tt.include)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestRankDescDense checks that ranks always form exactly 1..N.
func TestRankDescDense(t *testing.T) {
	items := []item{{"a", 1, 1}, {"b", 1, 1}, {"c", 0.5, 1}, {"d", 2, 1}, {"e", 1, 1}}
	ranks := RankDesc(items, byValue, nil)

	seen := make(map[int]bool)
	for _, r := range ranks {
		seen[r] = true
	}
	for r := 1; r <= len(items); r++ {
		assert.True(t, seen[r], "missing rank %d", r)
	}
	assert.Len(t, seen, len(items))
}

// TestRankDescDeterministic checks that reruns on tied input agree.
func TestRankDescDeterministic(t *testing.T) {
	items := []item{{"a", 80, 1}, {"b", 80, 1}, {"c", 80, 1}}
	first := RankDesc(items, byValue, nil)
	for range 10 {
		assert.Equal(t, first, RankDesc(items, byValue, nil))
	}
	assert.Equal(t, []int{1, 2, 3}, first)
}
