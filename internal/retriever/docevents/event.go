package docevents

import "github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/kafka"

// Op is the kind of change carried by a DocumentEvent.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// DocumentEvent is the JSON payload on the document events topic. The
// message key should be the document id so changes to one document stay on
// one partition.
type DocumentEvent struct {
	Op       Op             `json:"op"`
	ID       string         `json:"id"`
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Event builds the Kafka event for ev, keyed by document id.
func Event(ev DocumentEvent) kafka.Event {
	return kafka.Event{Key: ev.ID, Value: ev}
}
