// Package formatter renders retrieved documents as a delimited text block
// for injection into a prompt.
package formatter

import (
	"fmt"
	"strings"
)

const (
	OpenMarker  = "--- Retrieved Context (RAG) ---"
	CloseMarker = "--- End Context ---"
)

// Chunk is one retrieved document as it appears in the context block.
type Chunk struct {
	Label   string
	Content string
}

// Format renders chunks between the open and close marker lines, each under a
// numbered "[Context n] (label)" header and separated by a blank line. No
// chunks yields the empty string rather than an empty block.
func Format(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(OpenMarker)
	b.WriteByte('\n')
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Context %d] (%s)\n", i+1, c.Label)
		b.WriteString(c.Content)
	}
	b.WriteByte('\n')
	b.WriteString(CloseMarker)
	return b.String()
}
