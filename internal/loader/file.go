package loader

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/bull/news-rag/internal/rag"
)

// FileFetcher reads local files given as plain paths or file:// URLs.
type FileFetcher struct{}

// NewFileFetcher creates a FileFetcher.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Fetch reads the file behind locator and extracts its text content.
func (f *FileFetcher) Fetch(ctx context.Context, locator string) (*rag.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := locator
	if u, err := url.Parse(locator); err == nil && u.Scheme == "file" {
		path = u.Path
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	content, format, err := Extract(path, "", body)
	if err != nil {
		return nil, err
	}
	return &rag.SourceDocument{ID: locator, Content: content, Format: format}, nil
}
