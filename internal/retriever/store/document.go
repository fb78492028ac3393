package store

// Reserved metadata keys understood by the engine when documents arrive as
// loose key/value maps.
const (
	KeyUseCase = "use_case"
	KeyTitle   = "title"
)

// Metadata describes a document. UseCase scopes the document to a category
// for filtered searches; an empty UseCase means the document applies to every
// category. Title is used when rendering context. Extra carries arbitrary
// caller-defined values through untouched.
type Metadata struct {
	UseCase string         `json:"use_case,omitempty" yaml:"use_case,omitempty"`
	Title   string         `json:"title,omitempty" yaml:"title,omitempty"`
	Extra   map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// MetadataFromMap splits a loose metadata map into the reserved fields and
// the passthrough remainder. Non-string values under reserved keys are kept
// in Extra.
func MetadataFromMap(m map[string]any) Metadata {
	var md Metadata
	for k, v := range m {
		s, isString := v.(string)
		switch {
		case k == KeyUseCase && isString:
			md.UseCase = s
		case k == KeyTitle && isString:
			md.Title = s
		default:
			if md.Extra == nil {
				md.Extra = make(map[string]any)
			}
			md.Extra[k] = v
		}
	}
	return md
}

// Clone returns a copy of m whose Extra map is not shared with m.
func (m Metadata) Clone() Metadata {
	if m.Extra == nil {
		return m
	}
	extra := make(map[string]any, len(m.Extra))
	for k, v := range m.Extra {
		extra[k] = v
	}
	m.Extra = extra
	return m
}

// Map is the inverse of MetadataFromMap. It returns nil for empty metadata.
func (m Metadata) Map() map[string]any {
	if m.UseCase == "" && m.Title == "" && len(m.Extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.UseCase != "" {
		out[KeyUseCase] = m.UseCase
	}
	if m.Title != "" {
		out[KeyTitle] = m.Title
	}
	return out
}

// DisplayName returns the title if set, otherwise fallback.
func (m Metadata) DisplayName(fallback string) string {
	if m.Title != "" {
		return m.Title
	}
	return fallback
}

// Document is a single indexed text. Terms always holds the tokenization of
// the current Content; the Store recomputes it on every upsert.
type Document struct {
	ID       string   `json:"id" yaml:"id"`
	Content  string   `json:"content" yaml:"content"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
	Terms    []string `json:"-" yaml:"-"`
}
