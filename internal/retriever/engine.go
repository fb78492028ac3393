// Package retriever is an in-memory TF-IDF document retrieval engine. It
// indexes short text documents, ranks them against free-text queries, and
// renders the best matches as a context block for prompt injection.
//
// The inverted index is rebuilt lazily: mutations only mark it dirty, and
// the next search or stats call rebuilds it in full before reading.
package retriever

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/formatter"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/index"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/ranker"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/store"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/metrics"
)

const (
	DefaultTopK        = 5
	DefaultContextTopK = 3
	DefaultThreshold   = 0.01
)

// SearchOptions controls a single search. An empty Category disables
// category filtering. TopK of zero or less returns no results.
type SearchOptions struct {
	TopK      int
	Category  string
	Threshold float64
}

// DefaultSearchOptions returns TopK 5, no category, threshold 0.01.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		TopK:      DefaultTopK,
		Threshold: DefaultThreshold,
	}
}

// Result is a ranked document. It is a copy; mutating it does not affect
// the engine.
type Result struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata store.Metadata `json:"metadata"`
	Score    float64        `json:"score"`
}

// Stats summarises the corpus.
type Stats struct {
	TotalDocuments int      `json:"total_documents"`
	UniqueTerms    int      `json:"unique_terms"`
	UseCases       []string `json:"use_cases"`
}

// TermStat describes one indexed term.
type TermStat struct {
	Term    string  `json:"term"`
	DocFreq int     `json:"doc_freq"`
	IDF     float64 `json:"idf"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records engine activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger replaces the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// Engine owns the document store and the derived index. All methods are
// safe for concurrent use: mutations and rebuilds hold the write lock, and
// searches against a clean index share the read lock.
type Engine struct {
	mu      sync.RWMutex
	store   *store.Store
	index   *index.Index
	dirty   bool
	version uint64
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an empty Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		store:  store.New(),
		index:  index.Empty(),
		logger: slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddDocument upserts a document. Re-adding an existing id replaces its
// content and metadata. The only failure is an empty id.
func (e *Engine) AddDocument(id, content string, md store.Metadata) error {
	if id == "" {
		return fmt.Errorf("adding document: %w: id is empty", apperrors.ErrInvalidInput)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.upsertLocked(id, content, md)
	return nil
}

// AddDocuments upserts docs in order. Documents with an empty id are skipped
// and reported in the returned error; every other document is applied.
func (e *Engine) AddDocuments(docs []store.Document) error {
	var errs *multierror.Error
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, doc := range docs {
		if doc.ID == "" {
			errs = multierror.Append(errs,
				fmt.Errorf("document %d: %w: id is empty", i, apperrors.ErrInvalidInput))
			continue
		}
		e.upsertLocked(doc.ID, doc.Content, doc.Metadata)
	}
	return errs.ErrorOrNil()
}

// RemoveDocument deletes the document with id. Removing an unknown id is a
// no-op.
func (e *Engine) RemoveDocument(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.store.Remove(id) {
		return
	}
	e.markDirtyLocked("remove")
	e.logger.Debug("document removed", "doc_id", id, "total_docs", e.store.Len())
}

// Document returns a copy of the stored document with id.
func (e *Engine) Document(id string) (store.Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, ok := e.store.Get(id)
	if !ok {
		return store.Document{}, false
	}
	doc.Metadata = doc.Metadata.Clone()
	doc.Terms = append([]string(nil), doc.Terms...)
	return doc, true
}

// DocumentIDs returns every stored id in insertion order.
func (e *Engine) DocumentIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.IDs()
}

// Vocabulary returns the indexed terms sorted alphabetically, with their
// document frequency and IDF. It rebuilds the index first if needed.
func (e *Engine) Vocabulary() []TermStat {
	var entries []index.TermEntry
	e.withFreshIndex(func() {
		entries = e.index.Snapshot()
	})
	stats := make([]TermStat, len(entries))
	for i, entry := range entries {
		stats[i] = TermStat{
			Term:    entry.Term,
			DocFreq: len(entry.Postings),
			IDF:     entry.IDF,
		}
	}
	return stats
}

// Search ranks documents against query. Only documents sharing at least one
// term with the query are scored. A document is skipped when opts.Category
// is set and the document carries a different non-empty use case. Scores
// below opts.Threshold are dropped; ties keep insertion order.
func (e *Engine) Search(query string, opts SearchOptions) []Result {
	terms := tokenizer.Tokenize(query)

	var results []Result
	e.withFreshIndex(func() {
		results = e.searchLocked(terms, opts)
	})

	if e.metrics != nil {
		resultType := "hit"
		if len(results) == 0 {
			resultType = "zero_result"
		}
		e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
		e.metrics.SearchResultsCount.Observe(float64(len(results)))
	}
	e.logger.Debug("search executed",
		"query", query,
		"terms", terms,
		"category", opts.Category,
		"results", len(results),
	)
	return results
}

// GetContext searches with the default threshold and renders up to topK
// results as a context block. It returns "" when nothing matches.
func (e *Engine) GetContext(query, category string, topK int) string {
	results := e.Search(query, SearchOptions{
		TopK:      topK,
		Category:  category,
		Threshold: DefaultThreshold,
	})
	return FormatContext(results)
}

// FormatContext renders results as a context block.
func FormatContext(results []Result) string {
	chunks := make([]formatter.Chunk, len(results))
	for i, r := range results {
		chunks[i] = formatter.Chunk{
			Label:   r.Metadata.DisplayName(r.ID),
			Content: r.Content,
		}
	}
	return formatter.Format(chunks)
}

// Stats reports corpus size, index vocabulary size, and the distinct use
// cases. It rebuilds the index first if needed.
func (e *Engine) Stats() Stats {
	var stats Stats
	e.withFreshIndex(func() {
		stats = Stats{
			TotalDocuments: e.store.Len(),
			UniqueTerms:    e.index.Terms(),
			UseCases:       e.store.UseCases(),
		}
	})
	return stats
}

// Version returns a counter that increases on every mutation. Two equal
// versions observed on the same Engine mean the corpus did not change in
// between.
func (e *Engine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// withFreshIndex runs fn with the index guaranteed to match the store. A
// clean index is read under the shared lock; a dirty one is rebuilt and read
// under the exclusive lock so no reader sees a partial rebuild.
func (e *Engine) withFreshIndex(fn func()) {
	e.mu.RLock()
	if !e.dirty {
		defer e.mu.RUnlock()
		fn()
		return
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rebuildLocked()
	fn()
}

func (e *Engine) searchLocked(terms []string, opts SearchOptions) []Result {
	if opts.TopK <= 0 || len(terms) == 0 {
		return []Result{}
	}
	scores := make(map[int]float64)
	for _, term := range terms {
		postings := e.index.Lookup(term)
		if len(postings) == 0 {
			continue
		}
		idf, _ := e.index.IDF(term)
		for _, pos := range postings {
			doc := e.store.At(pos)
			if !matchesCategory(doc.Metadata.UseCase, opts.Category) {
				continue
			}
			scores[pos] += ranker.TermFrequency(term, doc.Terms) * idf
		}
	}

	ranked := ranker.Rank(scores, opts.Threshold, opts.TopK)
	results := make([]Result, len(ranked))
	for i, sd := range ranked {
		doc := e.store.At(sd.Position)
		results[i] = Result{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata.Clone(),
			Score:    sd.Score,
		}
	}
	return results
}

func (e *Engine) upsertLocked(id, content string, md store.Metadata) {
	op := "insert"
	if e.store.Upsert(id, content, md) {
		op = "replace"
	}
	e.markDirtyLocked(op)
	e.logger.Debug("document upserted", "doc_id", id, "op", op, "total_docs", e.store.Len())
}

func (e *Engine) markDirtyLocked(op string) {
	e.dirty = true
	e.version++
	if e.metrics != nil {
		e.metrics.DocumentMutations.WithLabelValues(op).Inc()
		e.metrics.DocumentsTotal.Set(float64(e.store.Len()))
	}
}

func (e *Engine) rebuildLocked() {
	if !e.dirty {
		return
	}
	start := time.Now()
	e.index = index.Build(e.store.Documents())
	e.dirty = false
	elapsed := time.Since(start)

	if e.metrics != nil {
		e.metrics.IndexRebuildsTotal.Inc()
		e.metrics.IndexRebuildDuration.Observe(elapsed.Seconds())
		e.metrics.UniqueTerms.Set(float64(e.index.Terms()))
	}
	e.logger.Debug("index rebuilt",
		"docs", e.index.DocCount(),
		"terms", e.index.Terms(),
		"duration", elapsed,
	)
}

// matchesCategory treats untagged documents as belonging to every category.
func matchesCategory(useCase, category string) bool {
	return category == "" || useCase == "" || useCase == category
}
