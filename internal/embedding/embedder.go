package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bull/news-rag/internal/rag"
)

const (
	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
	// OpenAI supports up to 2048 texts per batch, but smaller batches reduce TPM pressure.
	DefaultBatchSize = 500

	// DefaultTimeout bounds a single batch request, retries included.
	DefaultTimeout = 60 * time.Second
)

// Embedder batches texts through a Model and validates what comes back: one
// finite vector per text, all of the same dimension. Vectors produced by
// Embed are cached per text so indexed content always maps to the same
// vector for the lifetime of the Embedder. EmbedOne reads the cache but
// never adds to it. Safe for concurrent use.
type Embedder struct {
	model     Model
	batchSize int
	timeout   time.Duration

	mu    sync.Mutex
	dim   int
	cache map[string][]float32
}

// NewEmbedder creates a new Embedder with the given model and optional batch size.
// If batchSize is 0, DefaultBatchSize (500) is used; a zero timeout selects DefaultTimeout.
func NewEmbedder(model Model, batchSize int, timeout time.Duration) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Embedder{
		model:     model,
		batchSize: batchSize,
		timeout:   timeout,
		cache:     make(map[string][]float32),
	}
}

// ModelName returns the name of the underlying model.
func (e *Embedder) ModelName() string {
	return e.model.Name()
}

// Dimension returns the vector length seen so far, or 0 before the first call.
func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dim
}

// Embed returns one vector per text, preserving order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	// Only send texts that are not cached, once each
	var pending []string
	positions := make(map[string][]int)
	e.mu.Lock()
	for i, text := range texts {
		if v, ok := e.cache[text]; ok {
			out[i] = v
			continue
		}
		if _, queued := positions[text]; !queued {
			pending = append(pending, text)
		}
		positions[text] = append(positions[text], i)
	}
	e.mu.Unlock()

	for i := 0; i < len(pending); i += e.batchSize {
		end := min(i+e.batchSize, len(pending))
		batch := pending[i:end]

		vectors, err := e.embedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		if err := e.validate(vectors); err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		e.remember(batch, vectors)
		for j, text := range batch {
			for _, pos := range positions[text] {
				out[pos] = vectors[j]
			}
		}
	}

	return out, nil
}

// EmbedOne embeds a single text, typically a query. A text already embedded
// by Embed is served from the cache; anything else is embedded uncached.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	v, ok := e.cache[text]
	e.mu.Unlock()
	if ok {
		return v, nil
	}

	vectors, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if err := e.validate(vectors); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedBatch calls the model under the per-batch timeout.
func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	bctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vectors, err := e.model.Embed(bctx, batch)
	if err != nil {
		if errors.Is(bctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", rag.ErrEmbeddingTimeout, e.timeout, err)
		}
		return nil, err
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("%w: model returned %d vectors for %d texts",
			rag.ErrDimensionMismatch, len(vectors), len(batch))
	}
	return vectors, nil
}

// validate checks vector lengths against the established dimension, fixing
// it on first use, and rejects NaN or infinite components.
func (e *Embedder) validate(vectors [][]float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	dim := e.dim
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: empty vector for input %d", rag.ErrDimensionMismatch, i)
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				rag.ErrDimensionMismatch, i, len(v), dim)
		}
		if j := nonFinite(v); j >= 0 {
			return fmt.Errorf("%w: vector %d component %d is %v", rag.ErrInvalidVector, i, j, v[j])
		}
	}

	e.dim = dim
	return nil
}

func (e *Embedder) remember(batch []string, vectors [][]float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, text := range batch {
		e.cache[text] = vectors[i]
	}
}

// nonFinite returns the index of the first NaN or infinite component, or -1.
func nonFinite(v []float32) int {
	for i, x := range v {
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return i
		}
	}
	return -1
}
