package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimension matches the size of small sentence-transformer models.
const DefaultHashDimension = 384

// HashModel is a deterministic bag-of-words model using feature hashing.
// It needs no network access and is used for offline runs and tests.
type HashModel struct {
	dim int
}

// NewHashModel creates a HashModel producing vectors of length dim.
func NewHashModel(dim int) *HashModel {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashModel{dim: dim}
}

// Name returns ModelLocalHash.
func (m *HashModel) Name() string {
	return ModelLocalHash
}

// Embed hashes lower-cased word tokens into m.dim buckets with a signed
// hash and L2-normalises the result. Text without tokens maps to the zero vector.
func (m *HashModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = m.embedOne(text)
	}
	return out, nil
}

func (m *HashModel) embedOne(text string) []float32 {
	vec := make([]float32, m.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(m.dim))
		if sum&(1<<63) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
