package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashModel_DeterministicAndNormalised(t *testing.T) {
	m := NewHashModel(64)
	ctx := context.Background()

	v, err := m.Embed(ctx, []string{"Central bank holds rates", "Central bank holds rates", "Football final tonight"})
	require.NoError(t, err)
	require.Len(t, v, 3)

	assert.Equal(t, v[0], v[1])
	assert.NotEqual(t, v[0], v[2])
	assert.Len(t, v[0], 64)

	var norm float64
	for _, x := range v[0] {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestHashModel_CaseAndPunctuationInsensitive(t *testing.T) {
	m := NewHashModel(0)
	v, err := m.Embed(context.Background(), []string{"Rates, held!", "rates held"})
	require.NoError(t, err)
	assert.Equal(t, v[0], v[1])
	assert.Len(t, v[0], DefaultHashDimension)
}

func TestHashModel_EmptyTextIsZeroVector(t *testing.T) {
	v, err := NewHashModel(8).Embed(context.Background(), []string{"   "})
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v[0])
}
