// Package retriever turns a natural-language query into the top-k most
// similar indexed fragments.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/bull/news-rag/internal/rag"
	"github.com/bull/news-rag/internal/vectorindex"
)

// QueryEmbedder embeds a single query text.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Retriever composes a query embedder with a vector index. It holds no
// state of its own and is safe for concurrent use when both parts are.
type Retriever struct {
	embedder QueryEmbedder
	index    vectorindex.Index
}

// New creates a Retriever over the given embedder and index.
func New(embedder QueryEmbedder, index vectorindex.Index) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
	}
}

// Retrieve embeds query and returns the k most similar fragments.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (rag.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", rag.ErrInvalidQuery)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", rag.ErrInvalidQuery, k)
	}

	vector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.index.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	return results, nil
}
