package docevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/store"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/kafka"
)

type fakeProducer struct {
	events  []kafka.Event
	batches int
	failOn  int
}

func (f *fakeProducer) Publish(_ context.Context, ev kafka.Event) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeProducer) PublishBatch(_ context.Context, evs []kafka.Event) error {
	f.batches++
	if f.failOn > 0 && f.batches == f.failOn {
		return errors.New("broker unavailable")
	}
	f.events = append(f.events, evs...)
	return nil
}

func TestPublisherRoundTrip(t *testing.T) {
	prod := &fakeProducer{}
	pub := NewPublisher(prod)
	ctx := context.Background()

	require.NoError(t, pub.Upsert(ctx, store.Document{
		ID:       "crm",
		Content:  "crm onboarding",
		Metadata: store.Metadata{UseCase: "crm", Title: "CRM", Extra: map[string]any{"owner": "ops"}},
	}))
	require.NoError(t, pub.Delete(ctx, "stale"))
	assert.Error(t, pub.Upsert(ctx, store.Document{Content: "no id"}))

	e := retriever.New()
	require.NoError(t, e.AddDocument("stale", "old", store.Metadata{}))
	h := HandleMessage(e)
	for _, ev := range prod.events {
		value, err := json.Marshal(ev.Value)
		require.NoError(t, err)
		require.NoError(t, h(ctx, []byte(ev.Key), value))
	}

	doc, ok := e.Document("crm")
	require.True(t, ok)
	assert.Equal(t, store.Metadata{UseCase: "crm", Title: "CRM", Extra: map[string]any{"owner": "ops"}}, doc.Metadata)
	_, ok = e.Document("stale")
	assert.False(t, ok)
}

func TestUpsertAllBatches(t *testing.T) {
	docs := make([]store.Document, publishBatchSize+5)
	for i := range docs {
		docs[i] = store.Document{ID: fmt.Sprintf("doc-%d", i), Content: "text"}
	}
	prod := &fakeProducer{}

	sent, err := NewPublisher(prod).UpsertAll(context.Background(), docs)

	require.NoError(t, err)
	assert.Equal(t, len(docs), sent)
	assert.Equal(t, 2, prod.batches)
	assert.Equal(t, "doc-0", prod.events[0].Key)
}

func TestUpsertAllStopsOnFailure(t *testing.T) {
	docs := make([]store.Document, publishBatchSize+5)
	for i := range docs {
		docs[i] = store.Document{ID: fmt.Sprintf("doc-%d", i)}
	}
	prod := &fakeProducer{failOn: 2}

	sent, err := NewPublisher(prod).UpsertAll(context.Background(), docs)

	assert.ErrorContains(t, err, "broker unavailable")
	assert.Equal(t, publishBatchSize, sent)
}
