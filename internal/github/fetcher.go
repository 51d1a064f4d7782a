package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v81/github"

	"github.com/bull/news-rag/internal/loader"
	"github.com/bull/news-rag/internal/rag"
)

// BlobRef identifies a file in a repository at a given ref.
type BlobRef struct {
	Owner string
	Repo  string
	Ref   string
	Path  string
}

// ParseBlobURL parses https://github.com/<owner>/<repo>/blob/<ref>/<path>.
func ParseBlobURL(u *url.URL) (BlobRef, bool) {
	if u == nil || (u.Scheme != "https" && u.Scheme != "http") {
		return BlobRef{}, false
	}
	if host := strings.TrimPrefix(u.Host, "www."); host != "github.com" {
		return BlobRef{}, false
	}

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 5)
	if len(parts) < 5 || parts[2] != "blob" || parts[4] == "" {
		return BlobRef{}, false
	}
	return BlobRef{Owner: parts[0], Repo: parts[1], Ref: parts[3], Path: parts[4]}, true
}

// IsBlobURL reports whether u points at a file on github.com.
func IsBlobURL(u *url.URL) bool {
	_, ok := ParseBlobURL(u)
	return ok
}

// Fetcher reads repository files through the GitHub contents API, which
// honours GITHUB_TOKEN and the client's rate limiting.
type Fetcher struct {
	client *Client
}

// NewFetcher creates a new document fetcher
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

// Route returns a loader route sending github.com blob URLs to f.
func (f *Fetcher) Route() loader.Route {
	return loader.Route{Match: IsBlobURL, Fetcher: f}
}

// Fetch fetches the file behind a github.com blob URL.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (*rag.SourceDocument, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("parse locator: %w", err)
	}
	ref, ok := ParseBlobURL(u)
	if !ok {
		return nil, fmt.Errorf("not a github blob URL: %s", locator)
	}

	fileContent, _, _, err := f.client.Repositories.GetContents(
		ctx,
		ref.Owner,
		ref.Repo,
		ref.Path,
		&github.RepositoryContentGetOptions{Ref: ref.Ref},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", ref.Path, err)
	}
	if fileContent == nil || fileContent.Content == nil {
		return nil, fmt.Errorf("no file content returned for %s", ref.Path)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(*fileContent.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", ref.Path, err)
	}

	content, format, err := loader.Extract(ref.Path, "", raw)
	if err != nil {
		return nil, err
	}
	return &rag.SourceDocument{ID: locator, Content: content, Format: format}, nil
}
