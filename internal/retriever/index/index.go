// Package index builds the inverted index and IDF table over a document
// collection. An Index is an immutable snapshot: it is rebuilt in full from
// the documents whenever they change.
package index

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/store"
)

// Index maps each term to the positions of the documents containing it,
// with a precomputed IDF per term.
type Index struct {
	postings map[string]PostingList
	idf      map[string]float64
	docCount int
}

// Empty returns an index with no terms.
func Empty() *Index {
	return &Index{
		postings: make(map[string]PostingList),
		idf:      make(map[string]float64),
	}
}

// Build indexes docs by position. Each document contributes its position once
// per distinct term, so postings record presence only. IDF is
// ln(N/df) + 1, with N floored at 1.
func Build(docs []store.Document) *Index {
	idx := Empty()
	idx.docCount = len(docs)
	for pos := range docs {
		seen := make(map[string]struct{}, len(docs[pos].Terms))
		for _, term := range docs[pos].Terms {
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			idx.postings[term] = append(idx.postings[term], pos)
		}
	}

	n := float64(max(len(docs), 1))
	for term, postings := range idx.postings {
		idx.idf[term] = math.Log(n/float64(len(postings))) + 1
	}
	return idx
}

// Lookup returns the postings for term, or nil if no document contains it.
func (idx *Index) Lookup(term string) PostingList {
	return idx.postings[term]
}

// IDF returns the inverse document frequency of term and whether the term is
// indexed.
func (idx *Index) IDF(term string) (float64, bool) {
	v, ok := idx.idf[term]
	return v, ok
}

// Terms returns the number of distinct indexed terms.
func (idx *Index) Terms() int {
	return len(idx.postings)
}

// DocCount returns the number of documents the index was built from.
func (idx *Index) DocCount() int {
	return idx.docCount
}

// Snapshot returns every term entry sorted by term.
func (idx *Index) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(idx.postings))
	for term, postings := range idx.postings {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: append(PostingList(nil), postings...),
			IDF:      idx.idf[term],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}
