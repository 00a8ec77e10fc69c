package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/foxseedlab/mensetsu/internal/llm"
)

// Feedback for a long transcript fits comfortably; the API requires a value.
const anthropicDefaultMaxTokens = 4096

// The Messages API has no JSON mode. A JSON request prefills the answer with
// an opening brace, which is added back to the returned text.
const anthropicJSONPrefill = "{"

type anthropicClient struct {
	client anthropic.Client
	model  string
}

func newAnthropicClient(apiKey, model string, opts *clientOptions) (*anthropicClient, error) {
	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if opts.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.baseURL))
	}
	return &anthropicClient{client: anthropic.NewClient(clientOpts...), model: model}, nil
}

func (c *anthropicClient) messageParams(req llm.Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicDefaultMaxTokens,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case llm.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case llm.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}
	if req.JSON {
		params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(anthropicJSONPrefill)))
	}
	return params
}

func (c *anthropicClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	resp, err := c.client.Messages.New(ctx, c.messageParams(req))
	if err != nil {
		return "", fmt.Errorf("anthropic message with %s: %w", c.model, err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("anthropic returned no text blocks")
	}
	if req.JSON && !strings.HasPrefix(text, anthropicJSONPrefill) {
		text = anthropicJSONPrefill + text
	}
	return text, nil
}
