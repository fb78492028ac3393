// Package analytics records what the retrieval service is asked and how
// well the corpus answers. The Collector publishes search events to Kafka;
// the Aggregator consumes them and keeps running statistics, most usefully
// the queries that found nothing.
package analytics

import "time"

type EventType string

const (
	EventSearch  EventType = "search"
	EventContext EventType = "context"
)

// SearchEvent describes one search or context request.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	Category  string    `json:"category,omitempty"`
	TopK      int       `json:"top_k"`
	Returned  int       `json:"returned"`
	TopScore  float64   `json:"top_score"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Version   uint64    `json:"corpus_version"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
