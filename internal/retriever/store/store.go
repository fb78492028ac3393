// Package store holds the ordered document collection behind the retrieval
// engine. Documents are addressed by id; their position in the collection is
// what the inverted index records.
package store

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/tokenizer"
)

// Store is an ordered, id-unique document collection. It is not safe for
// concurrent use; the engine serialises access.
type Store struct {
	docs      []Document
	positions map[string]int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		positions: make(map[string]int),
	}
}

// Upsert tokenizes content and stores the document. An existing document with
// the same id is replaced at its current position; otherwise the document is
// appended. It reports whether an existing document was replaced.
func (s *Store) Upsert(id, content string, md Metadata) bool {
	doc := Document{
		ID:       id,
		Content:  content,
		Metadata: md.Clone(),
		Terms:    tokenizer.Tokenize(content),
	}
	if pos, exists := s.positions[id]; exists {
		s.docs[pos] = doc
		return true
	}
	s.positions[id] = len(s.docs)
	s.docs = append(s.docs, doc)
	return false
}

// Remove deletes the document with the given id, keeping the relative order
// of the remaining documents. It reports whether a document was removed.
func (s *Store) Remove(id string) bool {
	pos, exists := s.positions[id]
	if !exists {
		return false
	}
	s.docs = slices.Delete(s.docs, pos, pos+1)
	delete(s.positions, id)
	for i := pos; i < len(s.docs); i++ {
		s.positions[s.docs[i].ID] = i
	}
	return true
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	return len(s.docs)
}

// At returns the document at position pos. It panics if pos is out of range.
func (s *Store) At(pos int) *Document {
	return &s.docs[pos]
}

// Get returns the document with the given id.
func (s *Store) Get(id string) (Document, bool) {
	pos, exists := s.positions[id]
	if !exists {
		return Document{}, false
	}
	return s.docs[pos], true
}

// Documents returns the stored documents in position order. The slice is
// shared with the store and must not be modified.
func (s *Store) Documents() []Document {
	return s.docs
}

// IDs returns every stored id in position order.
func (s *Store) IDs() []string {
	ids := make([]string, len(s.docs))
	for i := range s.docs {
		ids[i] = s.docs[i].ID
	}
	return ids
}

// UseCases returns the distinct non-empty use cases in first-seen order.
func (s *Store) UseCases() []string {
	seen := make(map[string]struct{})
	useCases := make([]string, 0)
	for i := range s.docs {
		uc := s.docs[i].Metadata.UseCase
		if uc == "" {
			continue
		}
		if _, ok := seen[uc]; ok {
			continue
		}
		seen[uc] = struct{}{}
		useCases = append(useCases, uc)
	}
	return useCases
}
