package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertAppendsAndTokenizes(t *testing.T) {
	s := New()
	replaced := s.Upsert("a", "Budget optimization for ads", Metadata{UseCase: "ads"})

	assert.False(t, replaced)
	require.Equal(t, 1, s.Len())
	doc := s.At(0)
	assert.Equal(t, "a", doc.ID)
	assert.Equal(t, []string{"budget", "optimization", "ads"}, doc.Terms)
}

func TestUpsertReplacesInPlace(t *testing.T) {
	s := New()
	s.Upsert("a", "apple banana", Metadata{})
	s.Upsert("b", "cherry", Metadata{})
	replaced := s.Upsert("a", "carrot", Metadata{Title: "Veg"})

	assert.True(t, replaced)
	assert.Equal(t, []string{"a", "b"}, s.IDs())
	doc, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "carrot", doc.Content)
	assert.Equal(t, []string{"carrot"}, doc.Terms)
	assert.Equal(t, "Veg", doc.Metadata.Title)
}

func TestRemovePreservesOrder(t *testing.T) {
	s := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		s.Upsert(id, "content "+id, Metadata{})
	}

	assert.True(t, s.Remove("b"))
	assert.False(t, s.Remove("b"))
	assert.False(t, s.Remove("missing"))
	assert.Equal(t, []string{"a", "c", "d"}, s.IDs())

	// positions are re-derived so later upserts still hit the right slot
	s.Upsert("d", "replaced", Metadata{})
	assert.Equal(t, "replaced", s.At(2).Content)
	assert.Equal(t, 3, s.Len())
}

func TestUseCasesDistinctInFirstSeenOrder(t *testing.T) {
	s := New()
	s.Upsert("1", "x", Metadata{UseCase: "crm"})
	s.Upsert("2", "x", Metadata{UseCase: "company"})
	s.Upsert("3", "x", Metadata{})
	s.Upsert("4", "x", Metadata{UseCase: "crm"})

	assert.Equal(t, []string{"crm", "company"}, s.UseCases())
}

func TestUpsertCopiesExtra(t *testing.T) {
	s := New()
	extra := map[string]any{"source": "notion"}
	s.Upsert("a", "x", Metadata{Extra: extra})
	extra["source"] = "mutated"

	doc, _ := s.Get("a")
	assert.Equal(t, "notion", doc.Metadata.Extra["source"])
}

func TestMetadataFromMap(t *testing.T) {
	md := MetadataFromMap(map[string]any{
		"use_case": "ads",
		"title":    "Ads Playbook",
		"owner":    "growth",
		"priority": 2,
	})

	assert.Equal(t, "ads", md.UseCase)
	assert.Equal(t, "Ads Playbook", md.Title)
	assert.Equal(t, map[string]any{"owner": "growth", "priority": 2}, md.Extra)
	assert.Equal(t, "Ads Playbook", md.DisplayName("id-1"))
	assert.Equal(t, "id-1", Metadata{}.DisplayName("id-1"))
}

func TestMetadataFromMapKeepsNonStringReservedValues(t *testing.T) {
	md := MetadataFromMap(map[string]any{"use_case": 42})

	assert.Empty(t, md.UseCase)
	assert.Equal(t, 42, md.Extra["use_case"])
}

func TestMetadataMapRoundTrip(t *testing.T) {
	md := Metadata{UseCase: "crm", Title: "CRM", Extra: map[string]any{"owner": "ops"}}

	assert.Equal(t, map[string]any{"use_case": "crm", "title": "CRM", "owner": "ops"}, md.Map())
	assert.Equal(t, md, MetadataFromMap(md.Map()))
	assert.Nil(t, Metadata{}.Map())
}
