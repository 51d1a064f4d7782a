// Package mcp exposes a retrieval session as MCP tools.
package mcp

import "time"

// SearchFragmentsInput defines the input parameters for the search_fragments tool.
type SearchFragmentsInput struct {
	// Query is the natural-language search query.
	Query string `json:"query" jsonschema:"The natural-language query to match against indexed fragments"`
	// K is the maximum number of fragments to return.
	K int `json:"k,omitempty" jsonschema:"Maximum number of fragments to return (1-20)"`
}

// SearchFragmentsOutput contains the search results.
type SearchFragmentsOutput struct {
	Results []FragmentResult `json:"results"`
	// Message provides informational context (e.g., "No fragments indexed yet").
	Message string `json:"message,omitempty"`
}

// FragmentResult represents a single retrieved fragment.
type FragmentResult struct {
	// Source is the locator of the document the fragment came from.
	Source  string  `json:"source"`
	Section string  `json:"section,omitempty"`
	Index   int     `json:"index"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
	// Summary is the generated summary of the source document, if any.
	Summary string `json:"summary,omitempty"`
}

// AskInput defines the input parameters for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"The question to answer from the indexed documents"`
}

// AskOutput contains the generated answer and the fragments it was grounded on.
type AskOutput struct {
	Answer  string           `json:"answer"`
	Sources []FragmentResult `json:"sources"`
}

// StatusInput defines the input parameters for the index_status tool.
type StatusInput struct{}

// StatusOutput describes the session index.
type StatusOutput struct {
	Built     bool   `json:"built"`
	Backend   string `json:"backend"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	Documents int    `json:"documents"`
	Fragments int    `json:"fragments"`
	// BuiltAt is empty until the index is built.
	BuiltAt string `json:"built_at,omitempty"`
}

// formatTime renders t as RFC 3339, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
