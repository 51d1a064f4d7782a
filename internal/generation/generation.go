// Package generation is the boundary to the external text-generation
// service. Instructions, retrieved context and the user query travel as
// separate chat messages so retrieved text is never spliced into the
// instruction string.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bull/news-rag/internal/rag"
)

// Provider names a generation backend.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Defaults for generation requests.
const (
	DefaultModel           = "gemini-2.0-flash"
	DefaultTemperature     = 0.2
	DefaultTopP            = 0.95
	DefaultMaxOutputTokens = 1024
	DefaultTimeout         = 60 * time.Second

	// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
)

// DefaultSystemInstructions steer the model towards grounded answers.
const DefaultSystemInstructions = "You are a news research assistant. " +
	"Answer the question using only the provided context. " +
	"If the context does not contain the answer, say that you don't know."

// Request carries the three inputs of a generation call as distinct fields.
type Request struct {
	SystemInstructions string
	Context            string
	Query              string
}

// Generator produces an answer for a Request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Options configures a Generator.
type Options struct {
	Provider        string
	Model           string
	Temperature     float64
	TopP            float64
	MaxOutputTokens int
	Timeout         time.Duration

	// APIKey overrides the provider's environment variable.
	APIKey string
	// BaseURL overrides the provider's endpoint.
	BaseURL string
}

func (o Options) withDefaults() Options {
	if o.Provider == "" {
		o.Provider = ProviderGemini
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// contextMessage frames retrieved text as reference material.
func contextMessage(context string) string {
	return "Context:\n" + context
}

// classify maps a provider failure onto the generation sentinels. A call
// that ran out of time is ErrGenerationTimeout; anything else is
// ErrGenerationUnavailable.
func classify(ctx context.Context, timeout time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", rag.ErrGenerationTimeout, timeout, err)
	}
	return fmt.Errorf("%w: %v", rag.ErrGenerationUnavailable, err)
}
