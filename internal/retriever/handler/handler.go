// Package handler serves the retrieval engine over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/cache"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/store"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/validator"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/metrics"
)

const maxBodyBytes = 2 << 20

// Engine is the retrieval surface the handler drives. *retriever.Engine
// satisfies it.
type Engine interface {
	Search(query string, opts retriever.SearchOptions) []retriever.Result
	AddDocument(id, content string, md store.Metadata) error
	RemoveDocument(id string)
	Document(id string) (store.Document, bool)
	DocumentIDs() []string
	Stats() retriever.Stats
	Version() uint64
}

// SearchResponse is the body of GET /api/v1/search.
type SearchResponse struct {
	Query    string             `json:"query"`
	Category string             `json:"category,omitempty"`
	Results  []retriever.Result `json:"results"`
	CacheHit bool               `json:"cache_hit"`
}

// ContextResponse is the body of GET /api/v1/context. Used is false when
// nothing matched and Context is empty.
type ContextResponse struct {
	Context string `json:"context"`
	Used    bool   `json:"used"`
	Sources int    `json:"sources"`
}

type Handler struct {
	engine  Engine
	cfg     config.RetrieverConfig
	cache   *cache.QueryCache
	tracker analytics.Tracker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Handler. queryCache, tracker, and m may be nil.
func New(engine Engine, cfg config.RetrieverConfig, queryCache *cache.QueryCache, tracker analytics.Tracker, m *metrics.Metrics) *Handler {
	return &Handler{
		engine:  engine,
		cfg:     cfg,
		cache:   queryCache,
		tracker: tracker,
		metrics: m,
		logger:  slog.Default().With("component", "retriever-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/context", h.Context)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("PUT /api/v1/documents/{id}", h.PutDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.DeleteDocument)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseSearch(r, h.cfg.DefaultTopK, true)
	if err != nil {
		h.writeRequestError(w, err)
		return
	}
	results, cacheHit := h.run(r, analytics.EventSearch, req)
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:    req.Query,
		Category: req.Category,
		Results:  results,
		CacheHit: cacheHit,
	})
}

// Context renders the best matches as a prompt-ready block using the
// configured threshold.
func (h *Handler) Context(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseSearch(r, h.cfg.ContextTopK, false)
	if err != nil {
		h.writeRequestError(w, err)
		return
	}
	results, _ := h.run(r, analytics.EventContext, req)
	text := retriever.FormatContext(results)
	h.writeJSON(w, http.StatusOK, ContextResponse{
		Context: text,
		Used:    text != "",
		Sources: len(results),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Stats())
}

// ListDocuments returns the stored ids in insertion order, which is also
// the tie-break order for equal scores.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ids := h.engine.DocumentIDs()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"ids":   ids,
		"total": len(ids),
	})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, ok := h.engine.Document(id)
	if !ok {
		h.writeAppError(w, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %q not found", id))
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	id := r.PathValue("id")

	var req validator.DocumentRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateDocument(id, &req); err != nil {
		h.writeRequestError(w, err)
		return
	}

	_, existed := h.engine.Document(id)
	if err := h.engine.AddDocument(id, req.Content, store.MetadataFromMap(req.Metadata)); err != nil {
		log.Error("document upsert failed", "doc_id", id, "error", err)
		h.writeAppError(w, err)
		return
	}
	log.Info("document upserted", "doc_id", id, "replaced", existed)

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	h.writeJSON(w, status, map[string]any{"id": id, "replaced": existed})
}

// DeleteDocument is idempotent: removing an unknown id still answers 204.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.engine.RemoveDocument(id)
	logger.FromContext(r.Context()).Info("document removed", "doc_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// run executes req through the cache when one is configured and reports
// the outcome to metrics, logs, and analytics.
func (h *Handler) run(r *http.Request, kind analytics.EventType, req validator.SearchRequest) ([]retriever.Result, bool) {
	start := time.Now()
	ctx := r.Context()
	opts := retriever.SearchOptions{
		TopK:      req.TopK,
		Category:  req.Category,
		Threshold: req.Threshold,
	}
	version := h.engine.Version()
	search := func() []retriever.Result {
		return h.engine.Search(req.Query, opts)
	}

	var (
		results  []retriever.Result
		cacheHit bool
	)
	if h.cache != nil {
		results, cacheHit = h.cache.GetOrCompute(ctx, cache.Key{Query: req.Query, Options: opts, Version: version}, search)
	} else {
		results = search()
	}

	elapsed := time.Since(start)
	if h.metrics != nil {
		status := "miss"
		switch {
		case h.cache == nil:
			status = "disabled"
		case cacheHit:
			status = "hit"
		}
		h.metrics.SearchLatency.WithLabelValues(status).Observe(elapsed.Seconds())
	}
	logger.FromContext(ctx).Info(string(kind)+" completed",
		"query", req.Query,
		"category", req.Category,
		"top_k", req.TopK,
		"returned", len(results),
		"cache_hit", cacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)
	if h.tracker != nil {
		var top float64
		if len(results) > 0 {
			top = results[0].Score
		}
		h.tracker.Track(analytics.SearchEvent{
			Type:      kind,
			Query:     req.Query,
			Terms:     tokenizer.Tokenize(req.Query),
			Category:  req.Category,
			TopK:      req.TopK,
			Returned:  len(results),
			TopScore:  top,
			LatencyMs: elapsed.Milliseconds(),
			CacheHit:  cacheHit,
			Version:   version,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}
	return results, cacheHit
}

func (h *Handler) parseSearch(r *http.Request, defaultTopK int, allowThreshold bool) (validator.SearchRequest, error) {
	q := r.URL.Query()
	req := validator.SearchRequest{
		Query:     q.Get("q"),
		Category:  q.Get("category"),
		TopK:      defaultTopK,
		Threshold: h.cfg.Threshold,
	}
	if v := q.Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, apperrors.InvalidInputf("top_k must be an integer")
		}
		req.TopK = n
	}
	if v := q.Get("threshold"); v != "" && allowThreshold {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, apperrors.InvalidInputf("threshold must be a number")
		}
		req.Threshold = f
	}
	if err := validator.ValidateSearch(&req, h.cfg.MaxTopK); err != nil {
		return req, err
	}
	return req, nil
}

func (h *Handler) writeRequestError(w http.ResponseWriter, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	h.writeAppError(w, err)
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}
	h.writeError(w, status, message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
