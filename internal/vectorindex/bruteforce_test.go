package vectorindex

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/news-rag/internal/rag"
)

func entry(text string, vec ...float32) Entry {
	return Entry{
		Fragment: rag.Fragment{SourceID: "doc", Text: text},
		Vector:   vec,
	}
}

func builtIndex(t *testing.T, entries ...Entry) *BruteForceIndex {
	t.Helper()
	idx := NewBruteForceIndex()
	require.NoError(t, idx.Build(context.Background(), entries))
	return idx
}

func TestBruteForceQueryOrder(t *testing.T) {
	idx := builtIndex(t,
		entry("north", 1, 0),
		entry("east", 0, 1),
		entry("north-east", 1, 1),
	)

	results, err := idx.Query(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "north", results[0].Fragment.Text)
	assert.Equal(t, uint64(0), results[0].Handle)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "north-east", results[1].Fragment.Text)
	assert.InDelta(t, 0.7071, results[1].Score, 1e-3)
}

func TestBruteForceKLargerThanIndex(t *testing.T) {
	idx := builtIndex(t, entry("a", 1, 0), entry("b", 0, 1))

	results, err := idx.Query(context.Background(), []float32{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestBruteForceTiesBrokenByHandle(t *testing.T) {
	idx := builtIndex(t,
		entry("first", 1, 0),
		entry("second", 1, 0),
		entry("third", 1, 0),
	)

	results, err := idx.Query(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, uint64(i), r.Handle)
	}
}

func TestBruteForceZeroQueryVector(t *testing.T) {
	idx := builtIndex(t, entry("a", 1, 0), entry("b", 0, 1))

	results, err := idx.Query(context.Background(), []float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Zero(t, r.Score)
	}
	assert.Equal(t, uint64(0), results[0].Handle)
}

func TestBruteForceErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("query before build", func(t *testing.T) {
		_, err := NewBruteForceIndex().Query(ctx, []float32{1}, 1)
		assert.ErrorIs(t, err, rag.ErrIndexNotBuilt)
	})

	t.Run("empty batch", func(t *testing.T) {
		err := NewBruteForceIndex().Build(ctx, nil)
		assert.ErrorIs(t, err, rag.ErrNoDocumentsLoaded)
	})

	t.Run("mixed dimensions", func(t *testing.T) {
		err := NewBruteForceIndex().Build(ctx, []Entry{entry("a", 1, 0), entry("b", 1, 0, 0)})
		assert.ErrorIs(t, err, rag.ErrDimensionMismatch)
	})

	t.Run("build twice", func(t *testing.T) {
		idx := builtIndex(t, entry("a", 1, 0))
		err := idx.Build(ctx, []Entry{entry("b", 0, 1)})
		assert.ErrorIs(t, err, rag.ErrIndexAlreadyBuilt)
		assert.Equal(t, 1, idx.Len())
	})

	t.Run("k zero", func(t *testing.T) {
		idx := builtIndex(t, entry("a", 1, 0))
		_, err := idx.Query(ctx, []float32{1, 0}, 0)
		assert.ErrorIs(t, err, rag.ErrInvalidQuery)
	})

	t.Run("query dimension", func(t *testing.T) {
		idx := builtIndex(t, entry("a", 1, 0))
		_, err := idx.Query(ctx, []float32{1, 0, 0}, 1)
		assert.ErrorIs(t, err, rag.ErrDimensionMismatch)
	})

	t.Run("NaN entry", func(t *testing.T) {
		idx := NewBruteForceIndex()
		err := idx.Build(ctx, []Entry{entry("a", 1, 0), entry("b", float32(math.NaN()), 1)})
		assert.ErrorIs(t, err, rag.ErrInvalidVector)
		assert.Zero(t, idx.Len())
	})

	t.Run("infinite query", func(t *testing.T) {
		idx := builtIndex(t, entry("a", 1, 0), entry("b", 0, 1))
		_, err := idx.Query(ctx, []float32{float32(math.Inf(1)), 0}, 1)
		assert.ErrorIs(t, err, rag.ErrInvalidVector)
	})
}

func TestBruteForceBuildCopiesInput(t *testing.T) {
	vec := []float32{1, 0}
	meta := map[string]string{"summary": "before"}
	idx := builtIndex(t, Entry{Fragment: rag.Fragment{Text: "a"}, Vector: vec, Metadata: meta})

	vec[0], vec[1] = 0, 1
	meta["summary"] = "after"

	results, err := idx.Query(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "before", results[0].Metadata["summary"])
}

func TestBruteForceRemove(t *testing.T) {
	idx := builtIndex(t, entry("a", 1, 0), entry("b", 0.9, 0.1), entry("c", 0, 1))

	require.NoError(t, idx.Remove(0))
	assert.Equal(t, 2, idx.Len())

	results, err := idx.Query(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint64(1), results[0].Handle)
	assert.Equal(t, uint64(2), results[1].Handle)

	assert.Error(t, idx.Remove(7))
}

func TestBruteForceConcurrentQueries(t *testing.T) {
	entries := make([]Entry, 50)
	for i := range entries {
		entries[i] = entry(fmt.Sprintf("f%d", i), float32(i), float32(50-i), 1)
	}
	idx := builtIndex(t, entries...)

	want, err := idx.Query(context.Background(), []float32{3, 1, 0}, 5)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := idx.Query(context.Background(), []float32{3, 1, 0}, 5)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestBruteForceDimension(t *testing.T) {
	idx := NewBruteForceIndex()
	assert.Zero(t, idx.Dimension())
	require.NoError(t, idx.Build(context.Background(), []Entry{entry("a", 1, 2, 3)}))
	assert.Equal(t, 3, idx.Dimension())
	assert.NoError(t, idx.Close())
}

func TestBruteForceFiveFragmentsTopTwo(t *testing.T) {
	idx := builtIndex(t,
		entry("a", 1, 0, 0),
		entry("b", 0, 1, 0),
		entry("c", 0, 0, 1),
		entry("d", 1, 1, 0),
		entry("e", 0.2, 0.9, 0.1),
	)

	results, err := idx.Query(context.Background(), []float32{0.1, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestBruteForceResultsSortedAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	randomVector := func() []float32 {
		v := make([]float32, 16)
		for i := range v {
			v[i] = float32(rng.NormFloat64())
		}
		return v
	}

	entries := make([]Entry, 40)
	for i := range entries {
		entries[i] = entry(fmt.Sprintf("f%d", i), randomVector()...)
	}
	idx := builtIndex(t, entries...)

	for _, k := range []int{1, 3, 10, 40, 100} {
		results, err := idx.Query(context.Background(), randomVector(), k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), k)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	}
}

func TestBruteForceRebuildIsDeterministic(t *testing.T) {
	entries := []Entry{
		entry("a", 1, 1),
		entry("b", 1, 1),
		entry("c", 0.5, 0.5),
		entry("d", -1, 0),
	}
	first := builtIndex(t, entries...)
	second := builtIndex(t, entries...)

	q := []float32{1, 1}
	r1, err := first.Query(context.Background(), q, 3)
	require.NoError(t, err)
	r2, err := second.Query(context.Background(), q, 3)
	require.NoError(t, err)
	assert.Equal(t, r1.Fragments(), r2.Fragments())
}
