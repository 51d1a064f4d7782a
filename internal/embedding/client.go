// Package embedding maps text fragments to embedding vectors.
package embedding

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client for embedding generation.
type Client struct {
	client *openai.Client
}

// NewClient creates a new OpenAI client for embedding generation.
// It reads the OPENAI_API_KEY from the environment and returns an error if not set.
// Extra options (base URL, HTTP client) are passed through to openai-go.
func NewClient(opts ...option.RequestOption) (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)

	return &Client{client: &client}, nil
}

// NewClientWithOptions creates a client from explicit options only.
func NewClientWithOptions(opts ...option.RequestOption) *Client {
	client := openai.NewClient(opts...)
	return &Client{client: &client}
}
