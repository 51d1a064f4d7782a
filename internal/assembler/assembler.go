// Package assembler concatenates retrieved fragments into a bounded
// context string for the generation client.
package assembler

import (
	"strings"
	"unicode/utf8"

	"github.com/bull/news-rag/internal/rag"
)

// Delimiter separates fragments in the assembled context.
const Delimiter = "\n\n"

// Assemble joins fragment texts in result order, separated by Delimiter,
// keeping the output within maxChars characters (runes). The first fragment
// that does not fit is truncated to the remaining budget and assembly stops.
// Empty results or a non-positive budget yield "".
func Assemble(results rag.RetrievalResult, maxChars int) string {
	if len(results) == 0 || maxChars <= 0 {
		return ""
	}

	var b strings.Builder
	remaining := maxChars
	delimLen := utf8.RuneCountInString(Delimiter)

	for i, r := range results {
		if i > 0 {
			if remaining <= delimLen {
				break
			}
			b.WriteString(Delimiter)
			remaining -= delimLen
		}

		text := r.Fragment.Text
		n := utf8.RuneCountInString(text)
		if n <= remaining {
			b.WriteString(text)
			remaining -= n
			continue
		}

		b.WriteString(truncateRunes(text, remaining))
		break
	}

	return b.String()
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
