package validator

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		req    DocumentRequest
		fields []string
	}{
		{name: "valid", id: "crm", req: DocumentRequest{Content: "CRM notes", Metadata: map[string]any{"use_case": "crm"}}},
		{name: "empty content allowed", id: "blank", req: DocumentRequest{}},
		{name: "missing id", id: " ", req: DocumentRequest{Content: "x"}, fields: []string{"id"}},
		{name: "long id", id: strings.Repeat("a", maxIDLength+1), fields: []string{"id"}},
		{name: "huge content", id: "big", req: DocumentRequest{Content: strings.Repeat("a", maxContentLength+1)}, fields: []string{"content"}},
		{name: "invalid utf8", id: "bad", req: DocumentRequest{Content: "\xff\xfe"}, fields: []string{"content"}},
		{
			name:   "non-string reserved metadata",
			id:     "doc",
			req:    DocumentRequest{Metadata: map[string]any{"use_case": 7, "title": true, "owner": 1}},
			fields: []string{"metadata.use_case", "metadata.title"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.id, &tt.req)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Len(t, verr.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}
}

func TestValidateSearch(t *testing.T) {
	tests := []struct {
		name   string
		req    SearchRequest
		fields []string
	}{
		{name: "valid", req: SearchRequest{Query: "agent design", TopK: 5, Threshold: 0.01}},
		{name: "zero top_k allowed", req: SearchRequest{Query: "agent"}},
		{name: "blank query", req: SearchRequest{Query: "  ", TopK: 5}, fields: []string{"q"}},
		{name: "negative top_k", req: SearchRequest{Query: "a", TopK: -1}, fields: []string{"top_k"}},
		{name: "top_k over cap", req: SearchRequest{Query: "a", TopK: 51}, fields: []string{"top_k"}},
		{name: "negative threshold", req: SearchRequest{Query: "a", Threshold: -0.1}, fields: []string{"threshold"}},
		{name: "NaN threshold", req: SearchRequest{Query: "a", Threshold: math.NaN()}, fields: []string{"threshold"}},
		{name: "infinite threshold", req: SearchRequest{Query: "a", Threshold: math.Inf(1)}, fields: []string{"threshold"}},
		{name: "long category", req: SearchRequest{Query: "a", Category: strings.Repeat("c", maxCategory+1)}, fields: []string{"category"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSearch(&tt.req, 50)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Len(t, verr.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"top_k": "bad", "q": "missing"}}

	assert.Equal(t, "q: missing; top_k: bad", err.Error())
}
