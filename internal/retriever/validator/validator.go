// Package validator checks HTTP inputs to the retrieval service before they
// reach the engine, returning per-field error details.
package validator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever/store"
)

const (
	maxIDLength      = 255
	maxContentLength = 1048576
	maxQueryLength   = 4096
	maxCategory      = 128
)

// DocumentRequest is the JSON body of a document upsert. The id comes from
// the URL path.
type DocumentRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// SearchRequest holds parsed search or context parameters.
type SearchRequest struct {
	Query     string
	Category  string
	TopK      int
	Threshold float64
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateDocument checks the id and body of an upsert.
func ValidateDocument(id string, req *DocumentRequest) error {
	errs := make(map[string]string)

	switch {
	case strings.TrimSpace(id) == "":
		errs["id"] = "id is required"
	case len(id) > maxIDLength:
		errs["id"] = fmt.Sprintf("id must be at most %d bytes", maxIDLength)
	}
	if len(req.Content) > maxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", maxContentLength)
	} else if !utf8.ValidString(req.Content) {
		errs["content"] = "content must be valid UTF-8"
	}
	for _, key := range []string{store.KeyUseCase, store.KeyTitle} {
		if v, ok := req.Metadata[key]; ok {
			if _, isString := v.(string); !isString {
				errs["metadata."+key] = "must be a string"
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateSearch checks a search request against the configured topK cap.
func ValidateSearch(req *SearchRequest, maxTopK int) error {
	errs := make(map[string]string)

	if strings.TrimSpace(req.Query) == "" {
		errs["q"] = "query is required"
	} else if len(req.Query) > maxQueryLength {
		errs["q"] = fmt.Sprintf("query must be at most %d bytes", maxQueryLength)
	}
	if len(req.Category) > maxCategory {
		errs["category"] = fmt.Sprintf("category must be at most %d bytes", maxCategory)
	}
	if req.TopK < 0 {
		errs["top_k"] = "top_k must not be negative"
	} else if maxTopK > 0 && req.TopK > maxTopK {
		errs["top_k"] = fmt.Sprintf("top_k must be at most %d", maxTopK)
	}
	switch {
	case math.IsNaN(req.Threshold) || math.IsInf(req.Threshold, 0):
		errs["threshold"] = "threshold must be a finite number"
	case req.Threshold < 0:
		errs["threshold"] = "threshold must not be negative"
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
