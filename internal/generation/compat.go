package generation

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
)

// CompatGenerator talks to any OpenAI-compatible chat endpoint, such as
// Gemini's, through go-openai.
type CompatGenerator struct {
	client *goopenai.Client
	opts   Options
}

// NewCompatGenerator creates a generator for the endpoint at baseURL.
func NewCompatGenerator(apiKey, baseURL string, opts Options) *CompatGenerator {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &CompatGenerator{
		client: goopenai.NewClientWithConfig(cfg),
		opts:   opts.withDefaults(),
	}
}

// Generate sends one chat completion request bounded by the configured timeout.
func (g *CompatGenerator) Generate(ctx context.Context, req Request) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	var messages []goopenai.ChatCompletionMessage
	if req.SystemInstructions != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.SystemInstructions,
		})
	}
	if req.Context != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: contextMessage(req.Context),
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Query,
	})

	resp, err := g.client.CreateChatCompletion(gctx, goopenai.ChatCompletionRequest{
		Model:       g.opts.Model,
		Messages:    messages,
		Temperature: float32(g.opts.Temperature),
		TopP:        float32(g.opts.TopP),
		MaxTokens:   g.opts.MaxOutputTokens,
	})
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
