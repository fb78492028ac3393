package source

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/store"
)

//go:embed corpus.yaml
var defaultCorpus []byte

// seedFile is the on-disk layout:
//
//	documents:
//	  - id: agent-design
//	    content: ...
//	    metadata:
//	      use_case: workflows
//	      title: Agent Design Best Practices
type seedFile struct {
	Documents []seedDocument `yaml:"documents"`
}

type seedDocument struct {
	ID       string         `yaml:"id"`
	Content  string         `yaml:"content"`
	Metadata map[string]any `yaml:"metadata"`
}

// File loads documents from a YAML seed file.
type File struct {
	Path string
}

func (f File) Name() string { return "file:" + f.Path }

func (f File) Load(_ context.Context) ([]store.Document, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return Parse(data)
}

// Embedded is the corpus compiled into the binary.
type Embedded struct{}

func (Embedded) Name() string { return "embedded" }

func (Embedded) Load(_ context.Context) ([]store.Document, error) {
	return Parse(defaultCorpus)
}

// Parse decodes a seed file. An empty file holds no documents. Unknown fields are rejected so typos in a
// hand-edited file surface instead of silently dropping metadata.
func Parse(data []byte) ([]store.Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var sf seedFile
	if err := dec.Decode(&sf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	docs := make([]store.Document, len(sf.Documents))
	for i, d := range sf.Documents {
		docs[i] = store.Document{
			ID:       d.ID,
			Content:  d.Content,
			Metadata: store.MetadataFromMap(d.Metadata),
		}
	}
	if err := validate(docs); err != nil {
		return nil, err
	}
	return docs, nil
}
