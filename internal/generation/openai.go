package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

// OpenAIGenerator calls the chat completions API through openai-go.
// The client should be created with option.WithMaxRetries(0); failed
// generations are reported, not retried.
type OpenAIGenerator struct {
	client *openai.Client
	opts   Options
}

// NewOpenAIGenerator creates a generator using client.
func NewOpenAIGenerator(client *openai.Client, opts Options) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: client,
		opts:   opts.withDefaults(),
	}
}

// Generate sends one chat completion request bounded by the configured timeout.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemInstructions != "" {
		messages = append(messages, openai.SystemMessage(req.SystemInstructions))
	}
	if req.Context != "" {
		messages = append(messages, openai.SystemMessage(contextMessage(req.Context)))
	}
	messages = append(messages, openai.UserMessage(req.Query))

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               openai.ChatModel(g.opts.Model),
		Temperature:         openai.Float(g.opts.Temperature),
		MaxCompletionTokens: openai.Int(int64(g.opts.MaxOutputTokens)),
	}
	if g.opts.TopP > 0 {
		params.TopP = openai.Float(g.opts.TopP)
	}

	resp, err := g.client.Chat.Completions.New(gctx, params)
	if err != nil {
		return "", classify(gctx, g.opts.Timeout, err)
	}
	if len(resp.Choices) == 0 {
		return "", classify(gctx, g.opts.Timeout, errors.New("response contained no choices"))
	}

	answer := resp.Choices[0].Message.Content
	if answer == "" {
		return "", classify(gctx, g.opts.Timeout, fmt.Errorf("empty answer (finish reason %q)", resp.Choices[0].FinishReason))
	}
	return answer, nil
}
