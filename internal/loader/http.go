package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bull/news-rag/internal/rag"
)

// DefaultMaxBodyBytes caps the size of a fetched page.
const DefaultMaxBodyBytes = 10 << 20

const userAgent = "news-rag/0.1 (+https://github.com/bull/news-rag)"

// HTTPFetcher downloads web pages and extracts their text.
// Rate limits (429) and server errors are retried with exponential backoff.
type HTTPFetcher struct {
	client     *http.Client
	maxBytes   int64
	maxElapsed time.Duration
}

// NewHTTPFetcher creates a fetcher using client, or http.DefaultClient if nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{
		client:     client,
		maxBytes:   DefaultMaxBodyBytes,
		maxElapsed: 30 * time.Second,
	}
}

// Fetch downloads locator and extracts its text content.
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) (*rag.SourceDocument, error) {
	var body []byte
	var contentType string

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return err // Transport errors are retried
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return backoff.Permanent(fmt.Errorf("unexpected status %s", resp.Status))
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if int64(len(body)) > f.maxBytes {
			return backoff.Permanent(fmt.Errorf("body exceeds %d bytes", f.maxBytes))
		}
		contentType = resp.Header.Get("Content-Type")
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = f.maxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}

	content, format, err := Extract(locator, contentType, body)
	if err != nil {
		return nil, err
	}
	return &rag.SourceDocument{ID: locator, Content: content, Format: format}, nil
}
