// Package source loads documents into a retrieval engine from the places
// a deployment keeps them: a YAML seed file, the built-in corpus, or a
// PostgreSQL table.
package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/errors"
)

// Source produces a full set of documents.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]store.Document, error)
}

// Indexer is the engine surface a loader writes to.
type Indexer interface {
	AddDocuments(docs []store.Document) error
	RemoveDocument(id string)
}

// Load reads every document from src into idx and returns the loaded ids.
func Load(ctx context.Context, idx Indexer, src Source) ([]string, error) {
	docs, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", src.Name(), err)
	}
	if err := idx.AddDocuments(docs); err != nil {
		return nil, fmt.Errorf("indexing %s: %w", src.Name(), err)
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	slog.Default().With("component", "source").Info("documents loaded",
		"source", src.Name(),
		"documents", len(docs),
	)
	return ids, nil
}

// validate rejects empty and duplicate ids, reporting every problem at once.
func validate(docs []store.Document) error {
	var errs *multierror.Error
	seen := make(map[string]int, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			errs = multierror.Append(errs, fmt.Errorf("document %d: %w: id is empty", i, apperrors.ErrInvalidInput))
			continue
		}
		if first, dup := seen[d.ID]; dup {
			errs = multierror.Append(errs, fmt.Errorf("document %d: %w: id %q already used by document %d",
				i, apperrors.ErrInvalidInput, d.ID, first))
			continue
		}
		seen[d.ID] = i
	}
	return errs.ErrorOrNil()
}
