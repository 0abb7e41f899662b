// Package answer turns retrieved evidence into a short answer to a claim.
package answer

import (
	"context"
	"strings"
)

// Generator writes an answer to query using only the given context passages.
type Generator interface {
	Name() string
	Generate(ctx context.Context, query string, passages []string) (string, error)
}

// BuildPrompt lays out the passages and the query for a text model.
func BuildPrompt(query string, passages []string) string {
	var b strings.Builder
	b.WriteString("Using the following context, provide a concise and informative answer:\n\n")
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(passages, "\n"))
	b.WriteString("\n\nQuery: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
