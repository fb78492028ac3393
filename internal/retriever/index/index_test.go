package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/store"
)

func buildStore(contents ...string) []store.Document {
	s := store.New()
	for i, c := range contents {
		s.Upsert(string(rune('a'+i)), c, store.Metadata{})
	}
	return s.Documents()
}

func TestBuildRecordsPresenceOnce(t *testing.T) {
	idx := Build(buildStore("apple apple banana", "banana cherry", "cherry apple"))

	assert.Equal(t, PostingList{0, 2}, idx.Lookup("apple"))
	assert.Equal(t, PostingList{0, 1}, idx.Lookup("banana"))
	assert.Equal(t, PostingList{1, 2}, idx.Lookup("cherry"))
	assert.Nil(t, idx.Lookup("durian"))
	assert.Equal(t, 3, idx.Terms())
	assert.Equal(t, 3, idx.DocCount())
}

func TestIDF(t *testing.T) {
	idx := Build(buildStore("apple banana", "banana cherry", "banana"))

	apple, ok := idx.IDF("apple")
	require.True(t, ok)
	assert.InDelta(t, math.Log(3.0/1.0)+1, apple, 1e-12)

	banana, ok := idx.IDF("banana")
	require.True(t, ok)
	assert.InDelta(t, 1.0, banana, 1e-12, "a term in every document keeps an IDF of exactly 1")

	_, ok = idx.IDF("durian")
	assert.False(t, ok)
}

func TestBuildEmpty(t *testing.T) {
	idx := Build(nil)

	assert.Equal(t, 0, idx.Terms())
	assert.Nil(t, idx.Lookup("anything"))
	assert.Empty(t, idx.Snapshot())
}

func TestBuildSkipsDocumentsWithoutTerms(t *testing.T) {
	idx := Build(buildStore("the and", "orchestration"))

	assert.Equal(t, PostingList{1}, idx.Lookup("orchestration"))
	v, _ := idx.IDF("orchestration")
	assert.InDelta(t, math.Log(2)+1, v, 1e-12)
}

func TestSnapshotSortedByTerm(t *testing.T) {
	idx := Build(buildStore("zebra apple", "mango"))
	snap := idx.Snapshot()

	require.Len(t, snap, 3)
	assert.Equal(t, "apple", snap[0].Term)
	assert.Equal(t, "mango", snap[1].Term)
	assert.Equal(t, "zebra", snap[2].Term)
	assert.Equal(t, PostingList{1}, snap[1].Postings)
}
