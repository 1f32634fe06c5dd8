package randx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := MessageID()
		assert.Len(t, id, 36)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestSampleIndexesDistinctAndBounded(t *testing.T) {
	for trial := 0; trial < 20; trial++ {
		indexes, err := SampleIndexes(10, 4)
		require.NoError(t, err)
		require.Len(t, indexes, 4)

		seen := make(map[int]bool)
		for _, idx := range indexes {
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, 10)
			assert.False(t, seen[idx], "indexes must be distinct")
			seen[idx] = true
		}
	}
}

func TestSampleIndexesClampsToPopulation(t *testing.T) {
	indexes, err := SampleIndexes(3, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2}, indexes)
}

func TestSampleIndexesDegenerateInputs(t *testing.T) {
	for _, args := range [][2]int{{0, 5}, {-1, 5}, {5, 0}, {5, -1}} {
		indexes, err := SampleIndexes(args[0], args[1])
		require.NoError(t, err)
		assert.Nil(t, indexes)
	}
}
