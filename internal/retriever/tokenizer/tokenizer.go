// Package tokenizer turns raw text into index terms. It lower-cases input,
// blanks out everything that is not an ASCII word character or whitespace,
// splits on whitespace, and drops short tokens and stop-words.
//
// The character rule is ASCII-oriented: scripts that do not separate words
// with whitespace, or that use non-Latin letters, produce few or no terms.
package tokenizer

import (
	"strings"
	"unicode"
)

// MinTermLength is the shortest token that survives filtering.
const MinTermLength = 3

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "day": {}, "get": {}, "has": {},
	"him": {}, "his": {}, "how": {}, "its": {}, "may": {}, "new": {},
	"now": {}, "old": {}, "see": {}, "way": {}, "who": {}, "did": {},
	"let": {}, "say": {}, "she": {}, "too": {}, "use": {}, "this": {},
	"that": {}, "with": {}, "have": {}, "from": {}, "they": {}, "been": {},
	"said": {}, "each": {}, "which": {}, "their": {}, "will": {}, "other": {},
	"about": {}, "many": {}, "then": {}, "them": {}, "these": {}, "some": {},
	"would": {}, "make": {}, "like": {}, "into": {}, "could": {}, "time": {},
	"very": {}, "when": {}, "come": {}, "made": {}, "after": {}, "back": {},
}

// Tokenize returns the ordered index terms of text. Duplicates are kept so
// callers can count term frequency. The result is never nil.
func Tokenize(text string) []string {
	text = strings.Map(normalizeRune, strings.ToLower(text))
	words := strings.Fields(text)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < MinTermLength {
			continue
		}
		if IsStopWord(word) {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// IsStopWord reports whether term is excluded from indexing.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

func normalizeRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return r
	case unicode.IsSpace(r):
		return r
	default:
		return ' '
	}
}
