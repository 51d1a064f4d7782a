// Package document splits source documents into bounded, overlapping fragments.
package document

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bull/news-rag/internal/markdown"
	"github.com/bull/news-rag/internal/rag"
)

const (
	// DefaultChunkSize is the maximum fragment length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared by consecutive fragments.
	DefaultChunkOverlap = 200
)

// separators are tried in order when looking for a place to end a fragment.
var separators = []string{"\n\n", "\n", " "}

// Splitter cuts documents into fragments of at most Size characters, each
// following fragment starting Overlap characters before the previous one ended.
type Splitter struct {
	size      int
	overlap   int
	sectioner *markdown.Sectioner
}

// NewSplitter creates a Splitter. Overlap must be smaller than size.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", rag.ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", rag.ErrInvalidConfig, size, overlap)
	}
	return &Splitter{
		size:      size,
		overlap:   overlap,
		sectioner: markdown.NewSectioner(),
	}, nil
}

// Size returns the maximum fragment length.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the overlap between consecutive fragments.
func (s *Splitter) Overlap() int { return s.overlap }

// Split cuts doc into fragments. Markdown documents are first divided at
// H1/H2 headers so that no fragment straddles two sections.
func (s *Splitter) Split(doc rag.SourceDocument) ([]rag.Fragment, error) {
	var fragments []rag.Fragment

	emit := func(section string, offset int, text string) {
		fragments = append(fragments, rag.Fragment{
			SourceID: doc.ID,
			Index:    len(fragments),
			Offset:   offset,
			Section:  section,
			Text:     text,
		})
	}

	if doc.Format != rag.FormatMarkdown {
		s.splitText(doc.Content, 0, "", emit)
		return fragments, nil
	}

	sections, err := s.sectioner.Sections([]byte(doc.Content))
	if err != nil {
		return nil, fmt.Errorf("sections of %s: %w", doc.ID, err)
	}
	for _, sec := range sections {
		s.splitText(sec.Content, sec.Offset, sec.HeaderPath, emit)
	}
	return fragments, nil
}

// splitText walks text with a window of s.size runes. base is the byte
// offset of text within the parent document.
func (s *Splitter) splitText(text string, base int, section string, emit func(string, int, string)) {
	runes := []rune(text)
	n := len(runes)

	// pos[i] is the byte offset of rune i; pos[n] == len(text)
	pos := make([]int, 0, n+1)
	for i := range text {
		pos = append(pos, i)
	}
	pos = append(pos, len(text))

	start := 0
	for start < n {
		end := min(start+s.size, n)
		if end < n {
			end = cutPoint(runes, start+s.overlap+1, end)
		}

		raw := text[pos[start]:pos[end]]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
			emit(section, base+pos[start]+lead, trimmed)
		}

		if end >= n {
			break
		}
		start = end - s.overlap
	}
}

// cutPoint returns the largest c in [lo, end] such that runes[:c] ends with
// one of the separators, trying separators in priority order. It returns end
// when no separator is found.
func cutPoint(runes []rune, lo, end int) int {
	for _, sep := range separators {
		sr := []rune(sep)
		for c := end; c >= lo && c >= len(sr); c-- {
			if hasSuffix(runes[:c], sr) {
				return c
			}
		}
	}
	return end
}

func hasSuffix(runes, suffix []rune) bool {
	if len(runes) < len(suffix) {
		return false
	}
	off := len(runes) - len(suffix)
	for i, r := range suffix {
		if runes[off+i] != r {
			return false
		}
	}
	return true
}
