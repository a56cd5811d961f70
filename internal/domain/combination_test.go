package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRank_KnownIndices pins Rank against hand-computed indices for four
// groups, covering the first and last ordering of each length.
func TestRank_KnownIndices(t *testing.T) {
	tests := []struct {
		name     string
		order    Ordering
		n        int
		expected int
	}{
		{name: "empty ordering is always rank zero", order: Ordering{}, n: 4, expected: 0},
		{name: "first two-group ordering", order: Ordering{0, 1}, n: 4, expected: 5},
		{name: "first three-group ordering", order: Ordering{0, 1, 2}, n: 4, expected: 17},
		{name: "first full-length ordering", order: Ordering{0, 1, 2, 3}, n: 4, expected: 41},
		{name: "last two-group ordering", order: Ordering{3, 2}, n: 4, expected: 16},
		{name: "last three-group ordering", order: Ordering{3, 2, 1}, n: 4, expected: 40},
		{name: "last full-length ordering", order: Ordering{3, 2, 1, 0}, n: 4, expected: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Rank(tt.order, tt.n))
		})
	}
}

// TestRank_MatchesEnumeration is the defining correctness property: for
// every ordering the arithmetic Rank must equal the ordering's position in
// the canonical enumeration.
func TestRank_MatchesEnumeration(t *testing.T) {
	for n := 0; n <= 7; n++ {
		t.Run(fmt.Sprintf("groups=%d", n), func(t *testing.T) {
			orderings := EnumerateOrderings(n)
			require.Len(t, orderings, CountOrderings(n))
			for want, ord := range orderings {
				got := Rank(ord, n)
				require.Equal(t, want, got, "ordering %v of %d groups", ord, n)
			}
		})
	}
}

func TestRank_EmptyAndDegenerate(t *testing.T) {
	for n := 0; n <= 10; n++ {
		assert.Equal(t, 0, Rank(Ordering{}, n), "n=%d", n)
	}
	assert.Equal(t, 0, Rank(Ordering{0, 1}, 0))
}

func TestEnumerate_LabelsForTwoGroups(t *testing.T) {
	labels := Enumerate([]string{"A", "B"})
	assert.Equal(t, []string{"None", "A", "B", "AB", "BA"}, labels)

	// The worked round-trip case: a ballot preferencing B then A must land
	// on the "BA" label.
	assert.Equal(t, 4, Rank(Ordering{1, 0}, 2))
	assert.Equal(t, "BA", labels[Rank(Ordering{1, 0}, 2)])
}

func TestCountOrderings(t *testing.T) {
	// (0!) + (4·1!) + ... known expansion for four groups is 65 orderings.
	assert.Equal(t, 1, CountOrderings(0))
	assert.Equal(t, 2, CountOrderings(1))
	assert.Equal(t, 5, CountOrderings(2))
	assert.Equal(t, 16, CountOrderings(3))
	assert.Equal(t, 65, CountOrderings(4))
}

func TestFallingFactorial(t *testing.T) {
	assert.Equal(t, 1, FallingFactorial(5, 0))
	assert.Equal(t, 5, FallingFactorial(5, 1))
	assert.Equal(t, 20, FallingFactorial(5, 2))
	assert.Equal(t, 120, FallingFactorial(5, 5))
}
