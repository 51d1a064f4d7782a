// Package rag defines the data model shared by the retrieval pipeline.
package rag

import "fmt"

// Document formats recognised after content extraction.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatPDF      = "pdf"
)

// SourceDocument is the raw text fetched for one source locator.
// It is not modified after loading.
type SourceDocument struct {
	ID      string // Origin locator, e.g. "https://example.com/article"
	Content string // Extracted text content
	Format  string // Format of Content (FormatText, FormatMarkdown...)
}

// Fragment is a contiguous slice of a SourceDocument's text.
type Fragment struct {
	SourceID string // Parent SourceDocument.ID
	Index    int    // Position within the parent document (0, 1, 2...)
	Offset   int    // Byte offset of Text within the parent content
	Section  string // Header path for markdown sources: "# Title > ## Section"
	Text     string
}

// EmbeddingText returns the text sent to the embedding model.
// Markdown fragments get their header path prepended for context.
func (f Fragment) EmbeddingText() string {
	if f.Section == "" {
		return f.Text
	}
	return fmt.Sprintf("%s\n\n%s", f.Section, f.Text)
}

// ScoredFragment is a single retrieval hit.
type ScoredFragment struct {
	Handle   uint64 // Internal index handle
	Fragment Fragment
	Metadata map[string]string
	Score    float64 // Cosine similarity in [-1, 1]
}

// RetrievalResult is ordered by descending score, ties by ascending handle.
type RetrievalResult []ScoredFragment

// Fragments returns the fragments of the result in order.
func (r RetrievalResult) Fragments() []Fragment {
	out := make([]Fragment, len(r))
	for i, sf := range r {
		out[i] = sf.Fragment
	}
	return out
}
