// Package loader fetches source documents for a set of locators.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bull/news-rag/internal/rag"
)

const (
	// DefaultConcurrency bounds the number of in-flight fetches.
	DefaultConcurrency = 4

	// DefaultTimeout bounds a single fetch, retries included.
	DefaultTimeout = 30 * time.Second
)

var errEmptyContent = errors.New("no text content")

// Fetcher retrieves the content behind one source locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (*rag.SourceDocument, error)
}

// LoadResult contains the documents that loaded and the locators that did not.
type LoadResult struct {
	Documents []rag.SourceDocument // In input order
	Failed    []*rag.FetchError    // In input order
	Total     int                  // Distinct locators attempted
}

// Loader fetches documents concurrently. A failing locator is recorded and
// skipped; loading only fails when no locator succeeds.
type Loader struct {
	fetcher     Fetcher
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// NewLoader creates a Loader. Zero concurrency or timeout selects the defaults.
func NewLoader(fetcher Fetcher, concurrency int, timeout time.Duration, logger *slog.Logger) *Loader {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher:     fetcher,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      logger,
	}
}

// Load fetches every distinct locator. It returns rag.ErrNoDocumentsLoaded
// when locators is empty or every fetch failed; the partial LoadResult is
// returned alongside that error so callers can report the failures.
func (l *Loader) Load(ctx context.Context, locators []string) (*LoadResult, error) {
	unique := Dedupe(locators)
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: no source locators given", rag.ErrNoDocumentsLoaded)
	}

	docs := make([]*rag.SourceDocument, len(unique))
	errs := make([]error, len(unique))

	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, locator := range unique {
		g.Go(func() error {
			docs[i], errs[i] = l.fetchOne(ctx, locator)
			return nil // Failures are per locator, never abort the group
		})
	}
	_ = g.Wait()

	result := &LoadResult{Total: len(unique)}
	for i, locator := range unique {
		if errs[i] != nil {
			fe := &rag.FetchError{Locator: locator, Err: errs[i]}
			l.logger.Warn("Failed to fetch source", "locator", locator, "error", errs[i])
			result.Failed = append(result.Failed, fe)
			continue
		}
		l.logger.Debug("Fetched source", "locator", locator, "format", docs[i].Format, "size", len(docs[i].Content))
		result.Documents = append(result.Documents, *docs[i])
	}

	if len(result.Documents) == 0 {
		joined := make([]error, len(result.Failed))
		for i, fe := range result.Failed {
			joined[i] = fe
		}
		return result, fmt.Errorf("%w: all %d locators failed: %w",
			rag.ErrNoDocumentsLoaded, len(unique), errors.Join(joined...))
	}

	l.logger.Info("Loaded sources",
		"loaded", len(result.Documents),
		"failed", len(result.Failed),
	)
	return result, nil
}

// fetchOne fetches a single locator under the per-fetch timeout.
func (l *Loader) fetchOne(ctx context.Context, locator string) (*rag.SourceDocument, error) {
	fctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	doc, err := l.fetcher.Fetch(fctx, locator)
	if err != nil {
		if errors.Is(fctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s: %w", l.timeout, err)
		}
		return nil, err
	}
	if doc == nil || strings.TrimSpace(doc.Content) == "" {
		return nil, errEmptyContent
	}
	if doc.ID == "" {
		doc.ID = locator
	}
	return doc, nil
}

// Dedupe trims locators and drops blanks and repeats, keeping first-seen order.
func Dedupe(locators []string) []string {
	seen := make(map[string]bool, len(locators))
	out := make([]string, 0, len(locators))
	for _, l := range locators {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// ParseLocators splits a comma-separated list of locators.
func ParseLocators(list string) []string {
	return Dedupe(strings.Split(list, ","))
}
