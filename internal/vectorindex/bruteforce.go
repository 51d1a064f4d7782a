package vectorindex

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/bull/news-rag/internal/rag"
)

// BruteForceIndex answers queries with an exact linear scan, O(n·d) per
// query. Suitable for the tens to hundreds of fragments of a session.
type BruteForceIndex struct {
	mu      sync.RWMutex
	built   bool
	dim     int
	entries []Entry // entries[h] is the entry for handle h
	removed map[uint64]bool
}

// NewBruteForceIndex creates an empty, unbuilt index.
func NewBruteForceIndex() *BruteForceIndex {
	return &BruteForceIndex{
		removed: make(map[uint64]bool),
	}
}

// Build copies entries into the index. It may only be called once.
func (b *BruteForceIndex) Build(_ context.Context, entries []Entry) error {
	dim, err := validateEntries(entries)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built {
		return rag.ErrIndexAlreadyBuilt
	}

	b.entries = make([]Entry, len(entries))
	for i, e := range entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		b.entries[i] = Entry{
			Fragment: e.Fragment,
			Vector:   vec,
			Metadata: maps.Clone(e.Metadata),
		}
	}
	b.dim = dim
	b.built = true
	return nil
}

// Query returns the k entries most similar to vector.
func (b *BruteForceIndex) Query(_ context.Context, vector []float32, k int) (rag.RetrievalResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.built {
		return nil, rag.ErrIndexNotBuilt
	}
	if err := validateQuery(vector, k, b.dim); err != nil {
		return nil, err
	}

	results := make(rag.RetrievalResult, 0, len(b.entries))
	for h, e := range b.entries {
		handle := uint64(h)
		if b.removed[handle] {
			continue
		}
		results = append(results, rag.ScoredFragment{
			Handle:   handle,
			Fragment: e.Fragment,
			Metadata: maps.Clone(e.Metadata),
			Score:    CosineSimilarity(vector, e.Vector),
		})
	}

	return rank(results, k), nil
}

// Remove hides the entry with the given handle from future queries.
// Handles are never reassigned.
func (b *BruteForceIndex) Remove(handle uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.built {
		return rag.ErrIndexNotBuilt
	}
	if handle >= uint64(len(b.entries)) {
		return fmt.Errorf("unknown handle %d", handle)
	}
	b.removed[handle] = true
	return nil
}

// Len returns the number of queryable entries.
func (b *BruteForceIndex) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries) - len(b.removed)
}

// Dimension returns the vector dimension of the index.
func (b *BruteForceIndex) Dimension() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dim
}

// Close is a no-op for the in-memory index.
func (b *BruteForceIndex) Close() error {
	return nil
}

// SourceIDs returns the distinct source ids of queryable entries in
// handle order.
func (b *BruteForceIndex) SourceIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for h, e := range b.entries {
		if b.removed[uint64(h)] || seen[e.Fragment.SourceID] {
			continue
		}
		seen[e.Fragment.SourceID] = true
		ids = append(ids, e.Fragment.SourceID)
	}
	return ids
}
