// Package metadata derives per-document summaries and entity lists with
// the generation service.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bull/news-rag/internal/generation"
	"github.com/bull/news-rag/internal/rag"
)

// DefaultMaxTokens is the maximum content length before truncation (in tokens).
const DefaultMaxTokens = 16000

// Metadata keys attached to each fragment of a summarised document.
const (
	KeySummary  = "summary"
	KeyEntities = "entities"
)

const instructions = `You analyse news articles and research documents.
Respond only with a JSON object of the form
{"summary": "Brief description of what this document covers", "entities": ["Entity1", "Entity2"]}
The summary is one or two sentences. Entities are the people, organisations,
places and products the document is about.`

// Summary is the generated metadata for one document.
type Summary struct {
	Summary  string   `json:"summary"`
	Entities []string `json:"entities"`
}

// Metadata flattens s into fragment metadata.
func (s *Summary) Metadata() map[string]string {
	return map[string]string{
		KeySummary:  s.Summary,
		KeyEntities: strings.Join(s.Entities, ", "),
	}
}

// Summarizer asks a Generator for a JSON summary of a document.
type Summarizer struct {
	generator generation.Generator
	maxTokens int
	logger    *slog.Logger
}

// NewSummarizer creates a Summarizer. A non-positive maxTokens selects
// DefaultMaxTokens.
func NewSummarizer(generator generation.Generator, maxTokens int, logger *slog.Logger) *Summarizer {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		generator: generator,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Summarize produces a summary and entity list for doc.
func (s *Summarizer) Summarize(ctx context.Context, doc rag.SourceDocument) (*Summary, error) {
	content := s.truncateContent(doc.ID, doc.Content)

	answer, err := s.generator.Generate(ctx, generation.Request{
		SystemInstructions: instructions,
		Context:            content,
		Query:              fmt.Sprintf("Summarise the document from %s.", doc.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("summary generation failed: %w", err)
	}

	summary, err := parseSummary(answer)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return summary, nil
}

// parseSummary decodes a JSON object, tolerating markdown code fences
// around it.
func parseSummary(answer string) (*Summary, error) {
	text := strings.TrimSpace(answer)
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var summary Summary
	if err := json.Unmarshal([]byte(text), &summary); err != nil {
		return nil, err
	}
	if summary.Summary == "" {
		return nil, fmt.Errorf("response has no summary")
	}
	return &summary, nil
}

// truncateContent truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (s *Summarizer) truncateContent(id, content string) string {
	maxChars := s.maxTokens * 4
	if utf8.RuneCountInString(content) <= maxChars {
		return content
	}

	s.logger.Warn("truncating document for summary",
		"id", id, "chars", utf8.RuneCountInString(content), "max_chars", maxChars, "max_tokens", s.maxTokens)

	runes := []rune(content)
	return string(runes[:maxChars])
}
