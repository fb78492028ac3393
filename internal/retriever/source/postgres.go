package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/store"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/resilience"
)

// Postgres loads documents from a table shaped like:
//
//	CREATE TABLE knowledge_documents (
//	    id       TEXT PRIMARY KEY,
//	    content  TEXT NOT NULL,
//	    use_case TEXT,
//	    title    TEXT,
//	    metadata JSONB
//	);
//
// Rows are read in id order. Transient failures are retried.
type Postgres struct {
	DB    *sql.DB
	Table string
	Retry resilience.RetryConfig
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func (p Postgres) Name() string { return "postgres:" + p.Table }

func (p Postgres) Load(ctx context.Context) ([]store.Document, error) {
	query, err := p.selectQuery()
	if err != nil {
		return nil, err
	}
	var docs []store.Document
	err = resilience.Retry(ctx, "postgres document load", p.Retry, func(ctx context.Context) error {
		var err error
		docs, err = p.query(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := validate(docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (p Postgres) selectQuery() (string, error) {
	if !identPattern.MatchString(p.Table) {
		return "", fmt.Errorf("invalid table name %q", p.Table)
	}
	return fmt.Sprintf(
		`SELECT id, content, COALESCE(use_case, ''), COALESCE(title, ''), metadata FROM %s ORDER BY id`,
		quoteTable(p.Table),
	), nil
}

func (p Postgres) query(ctx context.Context, query string) ([]store.Document, error) {
	rows, err := p.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(fmt.Errorf("querying documents: %w", err))
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var (
			doc   store.Document
			extra []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Metadata.UseCase, &doc.Metadata.Title, &extra); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("scanning document row: %w", err))
		}
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &doc.Metadata.Extra); err != nil {
				return nil, resilience.Permanent(fmt.Errorf("decoding metadata for %q: %w", doc.ID, err))
			}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterating document rows: %w", err))
	}
	return docs, nil
}

// classify marks SQL errors that retrying cannot fix, such as a missing
// table or a syntax error, as permanent.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code.Class() {
	case "42", "28", "3D":
		return resilience.Permanent(err)
	}
	return err
}

func quoteTable(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return pq.QuoteIdentifier(name[:i]) + "." + pq.QuoteIdentifier(name[i+1:])
		}
	}
	return pq.QuoteIdentifier(name)
}
