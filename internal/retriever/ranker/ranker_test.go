package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermFrequency(t *testing.T) {
	terms := []string{"apple", "banana", "apple", "cherry"}

	assert.InDelta(t, 0.5, TermFrequency("apple", terms), 1e-12)
	assert.InDelta(t, 0.25, TermFrequency("cherry", terms), 1e-12)
	assert.Zero(t, TermFrequency("durian", terms))
	assert.Zero(t, TermFrequency("apple", nil))
}

func TestRankOrdersByScoreThenPosition(t *testing.T) {
	scores := map[int]float64{
		4: 0.5,
		0: 0.2,
		2: 0.5,
		1: 0.9,
	}

	got := Rank(scores, 0, 10)

	assert.Equal(t, []ScoredDoc{
		{Position: 1, Score: 0.9},
		{Position: 2, Score: 0.5},
		{Position: 4, Score: 0.5},
		{Position: 0, Score: 0.2},
	}, got)
}

func TestRankThresholdIsInclusive(t *testing.T) {
	scores := map[int]float64{0: 0.25, 1: 0.2499, 2: 0.3}

	got := Rank(scores, 0.25, 10)

	assert.Equal(t, []ScoredDoc{{Position: 2, Score: 0.3}, {Position: 0, Score: 0.25}}, got)
}

func TestRankLimit(t *testing.T) {
	scores := map[int]float64{0: 0.1, 1: 0.2, 2: 0.3}

	assert.Len(t, Rank(scores, 0, 2), 2)
	assert.Empty(t, Rank(scores, 0, 0))
	assert.Empty(t, Rank(scores, 0, -1))
	assert.NotNil(t, Rank(nil, 0, 5))
}
