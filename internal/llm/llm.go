package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Request is one completion call. Zero Temperature and MaxTokens leave the
// provider defaults in place.
type Request struct {
	Messages []Message
	// JSON asks the provider for a single JSON object. Top-level arrays are
	// not covered by every provider's JSON mode, so array prompts stay text.
	JSON        bool
	Temperature float64
	MaxTokens   int
}

// Client returns the trimmed text of a single completion.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

func ParseModel(model string) (provider, modelName string, err error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model format %q: expected provider/model_name", model)
	}
	return parts[0], parts[1], nil
}
