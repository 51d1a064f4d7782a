package document

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/news-rag/internal/rag"
)

func TestNewSplitter_RejectsBadSizes(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.size, tt.overlap)
			require.Error(t, err)
			assert.True(t, errors.Is(err, rag.ErrInvalidConfig))
		})
	}
}

func TestSplit_FixedWindowWithoutSeparators(t *testing.T) {
	s, err := NewSplitter(10, 3)
	require.NoError(t, err)

	doc := rag.SourceDocument{ID: "doc", Content: "abcdefghijklmnopqrstuvwxy", Format: rag.FormatText}
	frags, err := s.Split(doc)
	require.NoError(t, err)

	want := []string{"abcdefghij", "hijklmnopq", "opqrstuvwx", "vwxy"}
	require.Len(t, frags, len(want))
	for i, f := range frags {
		assert.Equal(t, want[i], f.Text)
		assert.Equal(t, i, f.Index)
		assert.Equal(t, "doc", f.SourceID)
	}
	assert.Equal(t, 7, frags[1].Offset)
}

func TestSplit_PrefersWordBoundaries(t *testing.T) {
	s, err := NewSplitter(12, 2)
	require.NoError(t, err)

	doc := rag.SourceDocument{ID: "doc", Content: "alpha beta gamma delta epsilon", Format: rag.FormatText}
	frags, err := s.Split(doc)
	require.NoError(t, err)
	require.NotEmpty(t, frags)

	assert.Equal(t, "alpha beta", frags[0].Text)
	for _, f := range frags {
		assert.LessOrEqual(t, utf8.RuneCountInString(f.Text), 12)
	}
}

func TestSplit_InvariantsOnProse(t *testing.T) {
	s, err := NewSplitter(80, 20)
	require.NoError(t, err)

	para := "The central bank held rates steady on Tuesday. Analysts expected the move.\n"
	content := strings.Repeat(para, 6) + "\n" + strings.Repeat("Markets rallied after the news. ", 8)
	doc := rag.SourceDocument{ID: "news", Content: content, Format: rag.FormatText}

	frags, err := s.Split(doc)
	require.NoError(t, err)
	require.Greater(t, len(frags), 2)

	for i, f := range frags {
		assert.LessOrEqual(t, utf8.RuneCountInString(f.Text), 80)
		assert.Equal(t, f.Text, content[f.Offset:f.Offset+len(f.Text)], "fragment %d not a slice of the source", i)
		assert.Equal(t, i, f.Index)
		if i > 0 {
			prev := frags[i-1]
			assert.GreaterOrEqual(t, f.Offset, prev.Offset, "fragments must not move backwards")
		}
	}
}

func TestSplit_MultibyteText(t *testing.T) {
	s, err := NewSplitter(5, 1)
	require.NoError(t, err)

	content := "ñandú€€€日本語のテキスト"
	frags, err := s.Split(rag.SourceDocument{ID: "u", Content: content})
	require.NoError(t, err)
	require.NotEmpty(t, frags)

	for _, f := range frags {
		assert.True(t, utf8.ValidString(f.Text))
		assert.LessOrEqual(t, utf8.RuneCountInString(f.Text), 5)
		assert.Equal(t, f.Text, content[f.Offset:f.Offset+len(f.Text)])
	}
}

func TestSplit_OffsetSkipsUnicodeSpace(t *testing.T) {
	s, err := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)

	for _, content := range []string{
		"\u00a0\u00a0Hello world",
		"\v\fHello world",
		"\u2003 \u3000Hello world\u00a0",
	} {
		frags, err := s.Split(rag.SourceDocument{ID: "n", Content: content})
		require.NoError(t, err)
		require.Len(t, frags, 1)
		assert.Equal(t, "Hello world", frags[0].Text)
		assert.Equal(t, strings.Index(content, "Hello"), frags[0].Offset)
	}
}

func TestSplit_InvalidUTF8Offsets(t *testing.T) {
	s, err := NewSplitter(3, 0)
	require.NoError(t, err)

	content := "ab\xffcd\xfeef"
	frags, err := s.Split(rag.SourceDocument{ID: "x", Content: content})
	require.NoError(t, err)
	require.NotEmpty(t, frags)

	for _, f := range frags {
		assert.Equal(t, f.Text, content[f.Offset:f.Offset+len(f.Text)])
	}
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	s, err := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)

	frags, err := s.Split(rag.SourceDocument{ID: "e", Content: ""})
	require.NoError(t, err)
	assert.Empty(t, frags)

	frags, err = s.Split(rag.SourceDocument{ID: "w", Content: " \n\n\t "})
	require.NoError(t, err)
	assert.Empty(t, frags)
}

func TestSplit_MarkdownSections(t *testing.T) {
	s, err := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)

	content := "# Markets\n\nStocks rose.\n\n## Bonds\n\nYields fell.\n"
	frags, err := s.Split(rag.SourceDocument{ID: "md", Content: content, Format: rag.FormatMarkdown})
	require.NoError(t, err)
	require.Len(t, frags, 2)

	assert.Equal(t, "# Markets", frags[0].Section)
	assert.Contains(t, frags[0].Text, "Stocks rose.")
	assert.NotContains(t, frags[0].Text, "Yields fell.")

	assert.Equal(t, "# Markets > ## Bonds", frags[1].Section)
	assert.Equal(t, 1, frags[1].Index)
	assert.Equal(t, frags[1].Text, content[frags[1].Offset:frags[1].Offset+len(frags[1].Text)])
	assert.True(t, strings.HasPrefix(frags[1].EmbeddingText(), "# Markets > ## Bonds\n\n"))
}
