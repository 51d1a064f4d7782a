// Package vectorindex stores fragment embeddings and answers top-k
// cosine-similarity queries.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/bull/news-rag/internal/rag"
)

// Entry is one fragment with its embedding and optional metadata.
type Entry struct {
	Fragment rag.Fragment
	Vector   []float32
	Metadata map[string]string
}

// Index is built once from a batch of entries and then queried.
// Queries are safe for concurrent use once Build has returned.
type Index interface {
	// Build stores entries under handles 0..len(entries)-1 in entry order.
	Build(ctx context.Context, entries []Entry) error

	// Query returns at most k entries ordered by descending cosine
	// similarity to vector, ties broken by ascending handle.
	Query(ctx context.Context, vector []float32, k int) (rag.RetrievalResult, error)

	// Len returns the number of queryable entries.
	Len() int

	// Dimension returns the vector dimension, or 0 before Build.
	Dimension() int

	// Close releases resources held by the index.
	Close() error
}

// validateEntries checks that entries is non-empty, of uniform dimension
// and finite. It returns that dimension.
func validateEntries(entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: no entries to index", rag.ErrNoDocumentsLoaded)
	}
	dim := len(entries[0].Vector)
	if dim == 0 {
		return 0, fmt.Errorf("%w: entry 0 has an empty vector", rag.ErrDimensionMismatch)
	}
	for i, e := range entries {
		if len(e.Vector) != dim {
			return 0, fmt.Errorf("%w: entry %d has %d dimensions, expected %d",
				rag.ErrDimensionMismatch, i, len(e.Vector), dim)
		}
		if !finite(e.Vector) {
			return 0, fmt.Errorf("%w: entry %d", rag.ErrInvalidVector, i)
		}
	}
	return dim, nil
}

// validateQuery checks k and the query dimension against an index of dimension dim.
func validateQuery(vector []float32, k, dim int) error {
	if k <= 0 {
		return fmt.Errorf("%w: k must be at least 1, got %d", rag.ErrInvalidQuery, k)
	}
	if len(vector) != dim {
		return fmt.Errorf("%w: query has %d dimensions, expected %d",
			rag.ErrDimensionMismatch, len(vector), dim)
	}
	if !finite(vector) {
		return fmt.Errorf("%w: query vector", rag.ErrInvalidVector)
	}
	return nil
}

func finite(v []float32) bool {
	for _, x := range v {
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// rank sorts results by descending score then ascending handle, and keeps k.
func rank(results rag.RetrievalResult, k int) rag.RetrievalResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Handle < results[j].Handle
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}
