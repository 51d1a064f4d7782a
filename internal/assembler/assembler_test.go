package assembler

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/bull/news-rag/internal/rag"
)

func results(texts ...string) rag.RetrievalResult {
	out := make(rag.RetrievalResult, len(texts))
	for i, text := range texts {
		out[i] = rag.ScoredFragment{Handle: uint64(i), Fragment: rag.Fragment{Text: text}}
	}
	return out
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name     string
		results  rag.RetrievalResult
		maxChars int
		want     string
	}{
		{"empty results", nil, 100, ""},
		{"zero budget", results("abc"), 0, ""},
		{"negative budget", results("abc"), -5, ""},
		{"single fits", results("hello"), 100, "hello"},
		{"all fit", results("one", "two", "three"), 100, "one\n\ntwo\n\nthree"},
		{"exact fit", results("ab", "cd"), 6, "ab\n\ncd"},
		{"first truncated", results("abcdefgh", "ij"), 5, "abcde"},
		{"second truncated", results("abc", "defgh"), 7, "abc\n\nde"},
		{"no room after delimiter", results("abc", "def"), 5, "abc"},
		{"stops after truncation", results("abc", "defgh", "ij"), 7, "abc\n\nde"},
		{"multibyte runes", results("héllo wörld"), 4, "héll"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Assemble(tt.results, tt.maxChars))
		})
	}
}

func TestAssembleNeverExceedsBudget(t *testing.T) {
	res := results(
		strings.Repeat("a", 37),
		strings.Repeat("é", 12),
		strings.Repeat("b", 90),
		"short",
	)
	for maxChars := 0; maxChars <= 200; maxChars++ {
		out := Assemble(res, maxChars)
		assert.LessOrEqual(t, utf8.RuneCountInString(out), maxChars)
		assert.True(t, utf8.ValidString(out))
	}
}

func TestAssemblePreservesOrder(t *testing.T) {
	out := Assemble(results("second best", "best"), 1000)
	assert.Equal(t, "second best\n\nbest", out)
}
