package loader

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/news-rag/internal/rag"
)

type namedFetcher string

func (n namedFetcher) Fetch(ctx context.Context, locator string) (*rag.SourceDocument, error) {
	return &rag.SourceDocument{ID: locator, Content: string(n)}, nil
}

func TestRouter_Dispatch(t *testing.T) {
	special := Route{
		Match:   func(u *url.URL) bool { return u.Host == "github.com" },
		Fetcher: namedFetcher("github"),
	}
	r := NewRouter(namedFetcher("web"), namedFetcher("file"), special)
	ctx := context.Background()

	tests := map[string]string{
		"https://github.com/o/r/blob/main/a.md": "github",
		"https://news.example.com/story":        "web",
		"http://news.example.com/story":         "web",
		"file:///tmp/a.txt":                     "file",
		"docs/a.txt":                            "file",
	}
	for locator, want := range tests {
		doc, err := r.Fetch(ctx, locator)
		require.NoError(t, err, locator)
		assert.Equal(t, want, doc.Content, locator)
	}

	_, err := r.Fetch(ctx, "ftp://example.com/x")
	assert.Error(t, err)
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brief.md")
	require.NoError(t, os.WriteFile(path, []byte("# Brief\n\nBody."), 0o600))

	f := NewFileFetcher()
	doc, err := f.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, rag.FormatMarkdown, doc.Format)
	assert.Equal(t, "# Brief\n\nBody.", doc.Content)

	_, err = f.Fetch(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
