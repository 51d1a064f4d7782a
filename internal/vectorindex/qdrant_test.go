//go:build integration

package vectorindex

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/news-rag/internal/rag"
)

// setupQdrantIndex connects to a local Qdrant. Skips the test if Qdrant is not running.
func setupQdrantIndex(t *testing.T) *QdrantIndex {
	idx, err := NewQdrantIndex(context.Background(), "localhost", 6334)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestQdrantIndexMatchesBruteForce(t *testing.T) {
	ctx := context.Background()
	entries := []Entry{
		{
			Fragment: rag.Fragment{SourceID: "https://example.com/a", Index: 0, Section: "Intro", Text: "north"},
			Vector:   []float32{1, 0},
			Metadata: map[string]string{"summary": "about north"},
		},
		entry("east", 0, 1),
		entry("north-east", 1, 1),
	}

	q := setupQdrantIndex(t)
	require.NoError(t, q.Build(ctx, entries))
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 2, q.Dimension())

	bf := builtIndex(t, entries...)

	got, err := q.Query(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	want, err := bf.Query(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Handle, got[i].Handle)
		assert.Equal(t, want[i].Fragment, got[i].Fragment)
		assert.InDelta(t, want[i].Score, got[i].Score, 1e-4)
	}
	assert.Equal(t, "about north", got[0].Metadata["summary"])
}

func TestQdrantIndexValidation(t *testing.T) {
	ctx := context.Background()
	q := setupQdrantIndex(t)

	_, err := q.Query(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, rag.ErrIndexNotBuilt)

	require.NoError(t, q.Build(ctx, []Entry{entry("a", 1, 0)}))

	_, err = q.Query(ctx, []float32{1, 0}, 0)
	assert.ErrorIs(t, err, rag.ErrInvalidQuery)

	_, err = q.Query(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, rag.ErrDimensionMismatch)

	assert.ErrorIs(t, q.Build(ctx, []Entry{entry("b", 0, 1)}), rag.ErrIndexAlreadyBuilt)
}

func TestQdrantIndexRemove(t *testing.T) {
	ctx := context.Background()
	q := setupQdrantIndex(t)
	require.NoError(t, q.Build(ctx, []Entry{entry("a", 1, 0), entry("b", 0, 1)}))

	require.NoError(t, q.Remove(ctx, 0))
	results, err := q.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(1), results[0].Handle)
}

func TestQdrantIndexFailedBuildDropsCollection(t *testing.T) {
	ctx := context.Background()
	q := setupQdrantIndex(t)

	failing := errors.New("upsert rejected")
	q.upsert = func(context.Context, []*qdrant.PointStruct) error { return failing }

	err := q.Build(ctx, []Entry{entry("a", 1, 0)})
	require.ErrorIs(t, err, failing)
	assert.False(t, q.Created())

	exists, err := q.client.CollectionExists(ctx, q.Collection())
	require.NoError(t, err)
	assert.False(t, exists, "collection should be dropped after a failed build")

	// The same index can be built again
	q.upsert = q.upsertWithRetry
	require.NoError(t, q.Build(ctx, []Entry{entry("a", 1, 0)}))
	assert.Equal(t, 1, q.Len())
}

func TestQdrantIndexCloseDropsCollection(t *testing.T) {
	ctx := context.Background()
	q, err := NewQdrantIndex(ctx, "localhost", 6334)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	require.NoError(t, q.Build(ctx, []Entry{entry("a", 1, 0)}))

	other, err := qdrant.NewClient(&qdrant.Config{Host: "localhost", Port: 6334})
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, q.Close())
	exists, err := other.CollectionExists(ctx, q.Collection())
	require.NoError(t, err)
	assert.False(t, exists)
}
