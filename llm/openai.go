package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.aimuz.me/glint/internal/types"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1/chat/completions"

// openaiCompleter speaks the OpenAI chat-completions wire format, the
// lingua franca of self-hosted gateways and compatible providers.
type openaiCompleter struct {
	cfg          completerConfig
	isCompatible bool // honor cfg.baseURL instead of the OpenAI endpoint
}

type openaiRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiMessage struct {
	Content string `json:"content"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (c *openaiCompleter) Complete(ctx context.Context, messages []Message) (string, types.Usage, error) {
	url := defaultOpenAIBaseURL
	if c.isCompatible && c.cfg.baseURL != "" {
		url = c.cfg.baseURL
	}

	body, status, err := c.cfg.postJSON(ctx, url, map[string]string{
		"Authorization": "Bearer " + c.cfg.apiKey,
	}, openaiRequest{
		Model:       c.cfg.model,
		Messages:    messages,
		MaxTokens:   c.cfg.maxTokens,
		Temperature: c.cfg.temperature,
	})
	if err != nil {
		return "", types.Usage{}, err
	}
	if status != http.StatusOK {
		return "", types.Usage{}, fmt.Errorf("openai: status %d: %s", status, body)
	}

	var out openaiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", types.Usage{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", types.Usage{}, fmt.Errorf("openai: no choices returned")
	}

	usage := types.Usage{
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
		TotalTokens:      out.Usage.TotalTokens,
	}
	return out.Choices[0].Message.Content, usage, nil
}
