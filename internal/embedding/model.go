package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/bull/news-rag/internal/rag"
)

// Known embedding model names.
const (
	ModelTextEmbedding3Small = "text-embedding-3-small"
	ModelTextEmbedding3Large = "text-embedding-3-large"
	ModelLocalHash           = "local-hash"
)

// Model is an external embedding model. Implementations return one vector
// per input text in input order.
type Model interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// NewModel selects a model by name. OpenAI models need a non-nil client.
func NewModel(name string, client *Client) (Model, error) {
	switch strings.TrimSpace(name) {
	case "", ModelTextEmbedding3Small:
		if client == nil {
			return nil, fmt.Errorf("%w: model %s needs an OpenAI client", rag.ErrInvalidConfig, ModelTextEmbedding3Small)
		}
		return NewOpenAIModel(client, ModelTextEmbedding3Small), nil
	case ModelTextEmbedding3Large:
		if client == nil {
			return nil, fmt.Errorf("%w: model %s needs an OpenAI client", rag.ErrInvalidConfig, ModelTextEmbedding3Large)
		}
		return NewOpenAIModel(client, ModelTextEmbedding3Large), nil
	case ModelLocalHash:
		return NewHashModel(DefaultHashDimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding model %q", rag.ErrInvalidConfig, name)
	}
}

// NeedsAPI reports whether the named model calls a hosted API.
func NeedsAPI(name string) bool {
	return strings.TrimSpace(name) != ModelLocalHash
}
