package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

// OpenAIModel generates embeddings with the OpenAI embeddings API and
// retries rate-limited requests with exponential backoff.
type OpenAIModel struct {
	client *Client
	model  string
}

// NewOpenAIModel creates a model backed by the named OpenAI embedding model.
func NewOpenAIModel(client *Client, model string) *OpenAIModel {
	return &OpenAIModel{client: client, model: model}
}

// Name returns the OpenAI model name.
func (m *OpenAIModel) Name() string {
	return m.model
}

// Embed embeds texts in a single request.
// Retries with exponential backoff on rate limit errors (HTTP 429).
// Other errors are treated as permanent and fail immediately.
func (m *OpenAIModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	operation := func() error {
		resp, err := m.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(m.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		// The API reports each vector's input position; restore input order
		embeddings = make([][]float32, len(texts))
		for _, data := range resp.Data {
			idx := int(data.Index)
			if idx < 0 || idx >= len(texts) {
				return backoff.Permanent(fmt.Errorf("embedding index %d out of range", idx))
			}
			embeddings[idx] = toFloat32(data.Embedding)
		}
		for i, e := range embeddings {
			if e == nil {
				return backoff.Permanent(fmt.Errorf("no embedding returned for input %d", i))
			}
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return embeddings, err
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but the index uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
