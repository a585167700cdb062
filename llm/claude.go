package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"go.aimuz.me/glint/internal/types"
)

const defaultClaudeBaseURL = "https://api.anthropic.com/v1/messages"

// The Messages API rejects requests without max_tokens.
const claudeDefaultMaxTokens = 1024

// claudeCompleter speaks the Anthropic Messages API.
type claudeCompleter struct {
	cfg completerConfig
}

type claudeRequest struct {
	Model     string          `json:"model"`
	Messages  []claudeMessage `json:"messages"`
	System    string          `json:"system,omitempty"`
	MaxTokens int             `json:"max_tokens"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Usage   *claudeUsage    `json:"usage,omitempty"`
	Error   *claudeError    `json:"error,omitempty"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (c *claudeCompleter) Complete(ctx context.Context, messages []Message) (string, types.Usage, error) {
	rest, system := splitSystem(messages)

	msgs := make([]claudeMessage, 0, len(rest))
	for _, m := range rest {
		msgs = append(msgs, claudeMessage{Role: m.Role, Content: m.Content})
	}

	maxTokens := c.cfg.maxTokens
	if maxTokens == 0 {
		maxTokens = claudeDefaultMaxTokens
	}

	url := c.cfg.baseURL
	if url == "" {
		url = defaultClaudeBaseURL
	}

	body, _, err := c.cfg.postJSON(ctx, url, map[string]string{
		"x-api-key":         c.cfg.apiKey,
		"anthropic-version": "2023-06-01",
	}, claudeRequest{
		Model:     c.cfg.model,
		Messages:  msgs,
		System:    system,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", types.Usage{}, err
	}

	var out claudeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", types.Usage{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Error != nil {
		return "", types.Usage{}, fmt.Errorf("claude: %s: %s", out.Error.Type, out.Error.Message)
	}
	if len(out.Content) == 0 {
		return "", types.Usage{}, fmt.Errorf("claude: empty response")
	}

	var usage types.Usage
	if out.Usage != nil {
		usage = types.Usage{
			PromptTokens:     out.Usage.InputTokens,
			CompletionTokens: out.Usage.OutputTokens,
			TotalTokens:      out.Usage.InputTokens + out.Usage.OutputTokens,
		}
	}
	return out.Content[0].Text, usage, nil
}
