// Package docevents carries document changes over Kafka: a Publisher
// emits upsert and delete events, and HandleMessage applies them to a
// retrieval engine so the in-memory corpus follows an upstream knowledge
// base.
package docevents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/store"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/kafka"
)

// Indexer is the part of the engine the consumer drives.
type Indexer interface {
	AddDocument(id, content string, md store.Metadata) error
	RemoveDocument(id string)
}

// HandleMessage returns a MessageHandler that applies each event to idx.
// Undecodable or unknown events are logged and dropped so a single bad
// message cannot stall the topic.
func HandleMessage(idx Indexer) kafka.MessageHandler {
	logger := slog.Default().With("component", "document-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[DocumentEvent](value)
		if err != nil {
			logger.Error("failed to decode document event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if event.ID == "" {
			event.ID = string(key)
		}

		switch event.Op {
		case OpUpsert, "":
			if err := idx.AddDocument(event.ID, event.Content, store.MetadataFromMap(event.Metadata)); err != nil {
				return fmt.Errorf("applying upsert for %q: %w", event.ID, err)
			}
		case OpDelete:
			idx.RemoveDocument(event.ID)
		default:
			logger.Warn("unknown document event op, skipping",
				"op", event.Op,
				"doc_id", event.ID,
			)
			return nil
		}

		logger.Debug("document event applied",
			"op", event.Op,
			"doc_id", event.ID,
		)
		return nil
	}
}
