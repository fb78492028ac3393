package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := makeApp(&out).Run(append([]string{appName}, args...))
	return out.String(), err
}

func TestSearchBuiltinCorpus(t *testing.T) {
	out, err := run(t, "search", "--top-k", "2", "agent", "design")
	require.NoError(t, err)

	var results []retriever.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 2)
	assert.Equal(t, "agent-design", results[0].ID)
}

func TestContextWithSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`documents:
  - id: runbook
    content: incident runbook escalation steps
    metadata:
      title: Runbook
`), 0o644))

	out, err := run(t, "--seed", path, "context", "escalation")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "--- Retrieved Context (RAG) ---\n[Context 1] (Runbook)\n"))
	assert.Contains(t, out, "--- End Context ---")
}

func TestContextNoMatch(t *testing.T) {
	_, err := run(t, "context", "zzzz")

	assert.ErrorContains(t, err, "no matching documents")
}

func TestStats(t *testing.T) {
	out, err := run(t, "stats")
	require.NoError(t, err)

	var stats retriever.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 5, stats.TotalDocuments)
	assert.Positive(t, stats.UniqueTerms)
}

func TestSearchRequiresQuery(t *testing.T) {
	_, err := run(t, "search")

	assert.ErrorContains(t, err, "a query is required")
}

func TestDeleteRequiresIDs(t *testing.T) {
	_, err := run(t, "delete", "--brokers", "localhost:1")

	assert.ErrorContains(t, err, "at least one document id is required")
}

func TestPublishBadSeedFile(t *testing.T) {
	_, err := run(t, "--seed", filepath.Join(t.TempDir(), "missing.yaml"), "publish")

	assert.ErrorContains(t, err, "loading file:")
}

func TestTermsPrefixAndLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`documents:
  - id: a
    content: orchestration orchard agents
  - id: b
    content: orchestration pipelines
`), 0o644))

	out, err := run(t, "--seed", path, "terms", "--prefix", "Orch")
	require.NoError(t, err)

	var terms []retriever.TermStat
	require.NoError(t, json.Unmarshal([]byte(out), &terms))
	require.Len(t, terms, 2)
	assert.Equal(t, "orchard", terms[0].Term)
	assert.Equal(t, "orchestration", terms[1].Term)
	assert.Equal(t, 2, terms[1].DocFreq)

	out, err = run(t, "--seed", path, "terms", "--limit", "1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &terms))
	assert.Len(t, terms, 1)
	assert.Equal(t, "agents", terms[0].Term)
}
