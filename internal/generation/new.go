package generation

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bull/news-rag/internal/rag"
)

// New builds the Generator for opts.Provider. API keys come from
// opts.APIKey or, failing that, OPENAI_API_KEY / GEMINI_API_KEY.
func New(opts Options) (Generator, error) {
	opts = opts.withDefaults()

	switch opts.Provider {
	case ProviderOpenAI:
		key := firstNonEmpty(opts.APIKey, os.Getenv("OPENAI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY environment variable not set", rag.ErrGenerationUnavailable)
		}
		reqOpts := []option.RequestOption{
			option.WithAPIKey(key),
			option.WithMaxRetries(0),
		}
		if opts.BaseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
		}
		client := openai.NewClient(reqOpts...)
		return NewOpenAIGenerator(&client, opts), nil

	case ProviderGemini:
		key := firstNonEmpty(opts.APIKey, os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", rag.ErrGenerationUnavailable)
		}
		return NewCompatGenerator(key, firstNonEmpty(opts.BaseURL, GeminiBaseURL), opts), nil

	default:
		return nil, fmt.Errorf("%w: unknown generation provider %q", rag.ErrInvalidConfig, opts.Provider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
