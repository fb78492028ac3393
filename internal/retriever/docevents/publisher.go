package docevents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/store"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/kafka"
)

// publishBatchSize caps events per PublishBatch call.
const publishBatchSize = 200

// Publisher emits document change events.
type Publisher struct {
	producer kafka.Publisher
	logger   *slog.Logger
}

func NewPublisher(producer kafka.Publisher) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   slog.Default().With("component", "document-publisher"),
	}
}

// Upsert publishes an upsert for doc.
func (p *Publisher) Upsert(ctx context.Context, doc store.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("publishing upsert: document id is empty")
	}
	if err := p.producer.Publish(ctx, Event(upsertEvent(doc))); err != nil {
		return fmt.Errorf("publishing upsert for %q: %w", doc.ID, err)
	}
	return nil
}

// Delete publishes a delete for id.
func (p *Publisher) Delete(ctx context.Context, id string) error {
	if err := p.producer.Publish(ctx, Event(DocumentEvent{Op: OpDelete, ID: id})); err != nil {
		return fmt.Errorf("publishing delete for %q: %w", id, err)
	}
	return nil
}

// UpsertAll publishes upserts for docs in batches and returns how many were
// sent before any failure.
func (p *Publisher) UpsertAll(ctx context.Context, docs []store.Document) (int, error) {
	sent := 0
	for start := 0; start < len(docs); start += publishBatchSize {
		end := min(start+publishBatchSize, len(docs))
		batch := make([]kafka.Event, 0, end-start)
		for _, doc := range docs[start:end] {
			batch = append(batch, Event(upsertEvent(doc)))
		}
		if err := p.producer.PublishBatch(ctx, batch); err != nil {
			return sent, fmt.Errorf("publishing documents %d-%d: %w", start, end-1, err)
		}
		sent += len(batch)
	}
	p.logger.Info("documents published", "count", sent)
	return sent, nil
}

func upsertEvent(doc store.Document) DocumentEvent {
	return DocumentEvent{
		Op:       OpUpsert,
		ID:       doc.ID,
		Content:  doc.Content,
		Metadata: doc.Metadata.Map(),
	}
}
