package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/news-rag/internal/rag"
)

// fakeFetcher serves canned content and fails for locators in fail.
type fakeFetcher struct {
	mu      sync.Mutex
	content map[string]string
	fail    map[string]bool
	delay   time.Duration
	calls   []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, locator string) (*rag.SourceDocument, error) {
	f.mu.Lock()
	f.calls = append(f.calls, locator)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail[locator] {
		return nil, fmt.Errorf("connection refused")
	}
	return &rag.SourceDocument{ID: locator, Content: f.content[locator], Format: rag.FormatText}, nil
}

func TestLoad_PartialFailure(t *testing.T) {
	f := &fakeFetcher{
		content: map[string]string{"a": "alpha", "b": "beta", "c": "gamma"},
		fail:    map[string]bool{"b": true},
	}
	l := NewLoader(f, 2, time.Second, nil)

	result, err := l.Load(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	require.Len(t, result.Documents, 2)
	assert.Equal(t, "a", result.Documents[0].ID)
	assert.Equal(t, "c", result.Documents[1].ID)
	assert.Equal(t, 3, result.Total)

	require.Len(t, result.Failed, 1)
	assert.Equal(t, "b", result.Failed[0].Locator)
	assert.Contains(t, result.Failed[0].Error(), "connection refused")
}

func TestLoad_AllFail(t *testing.T) {
	f := &fakeFetcher{fail: map[string]bool{"a": true, "b": true, "c": true}}
	l := NewLoader(f, 0, 0, nil)

	result, err := l.Load(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rag.ErrNoDocumentsLoaded))

	var fe *rag.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "a", fe.Locator)

	require.NotNil(t, result)
	assert.Len(t, result.Failed, 3)
	assert.Empty(t, result.Documents)
}

func TestLoad_NoLocators(t *testing.T) {
	l := NewLoader(&fakeFetcher{}, 0, 0, nil)

	_, err := l.Load(context.Background(), []string{" ", ""})
	assert.True(t, errors.Is(err, rag.ErrNoDocumentsLoaded))
}

func TestLoad_DeduplicatesPreservingOrder(t *testing.T) {
	f := &fakeFetcher{content: map[string]string{"x": "1", "y": "2"}}
	l := NewLoader(f, 1, time.Second, nil)

	result, err := l.Load(context.Background(), []string{"y", " x", "y", "x "})
	require.NoError(t, err)

	require.Len(t, result.Documents, 2)
	assert.Equal(t, "y", result.Documents[0].ID)
	assert.Equal(t, "x", result.Documents[1].ID)
	assert.Len(t, f.calls, 2)
}

func TestLoad_EmptyContentIsAFailure(t *testing.T) {
	f := &fakeFetcher{content: map[string]string{"a": "text", "b": "  \n"}}
	l := NewLoader(f, 0, 0, nil)

	result, err := l.Load(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, result.Documents, 1)
	require.Len(t, result.Failed, 1)
	assert.ErrorIs(t, result.Failed[0], errEmptyContent)
}

func TestLoad_FetchTimeout(t *testing.T) {
	f := &fakeFetcher{content: map[string]string{"slow": "x", "fast": "y"}, delay: 200 * time.Millisecond}
	l := NewLoader(f, 2, 20*time.Millisecond, nil)

	_, err := l.Load(context.Background(), []string{"slow"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rag.ErrNoDocumentsLoaded))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "timed out")
}

func TestParseLocators(t *testing.T) {
	got := ParseLocators("https://a.example/1, https://b.example/2,,https://a.example/1")
	assert.Equal(t, []string{"https://a.example/1", "https://b.example/2"}, got)
}
