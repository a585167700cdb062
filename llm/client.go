// Package llm implements the chat-completion clients behind the
// suggestion pipeline. Each analysis pass issues one small completion
// against whichever provider the user configured.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.aimuz.me/glint/internal/types"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes completion behavior across providers.
type Options struct {
	MaxTokens       int
	Temperature     float64
	DisableThinking bool // Gemini only: sets thinkingBudget to 0
}

// Completer performs chat completions.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, types.Usage, error)
}

// Analysis passes run on a short cadence; a hung request must not stall
// the passes queued behind it.
const requestTimeout = 60 * time.Second

// completerConfig holds the parameters shared by all completers.
type completerConfig struct {
	http            *http.Client
	apiKey          string
	baseURL         string
	model           string
	maxTokens       int
	temperature     float64
	disableThinking bool
}

// NewCompleter creates a Completer for the given provider type. Unknown
// types fall back to the OpenAI wire format, which most gateways speak.
func NewCompleter(apiType, apiKey, baseURL, model string, opts Options) Completer {
	cfg := completerConfig{
		http:            &http.Client{Timeout: requestTimeout},
		apiKey:          apiKey,
		baseURL:         baseURL,
		model:           model,
		maxTokens:       opts.MaxTokens,
		temperature:     opts.Temperature,
		disableThinking: opts.DisableThinking,
	}

	switch apiType {
	case "gemini":
		return &geminiCompleter{cfg: cfg}
	case "claude":
		return &claudeCompleter{cfg: cfg}
	case "openai", "openai-compatible":
		return &openaiCompleter{cfg: cfg, isCompatible: apiType == "openai-compatible"}
	default:
		return &openaiCompleter{cfg: cfg}
	}
}

// postJSON marshals body, POSTs it to url with the given extra headers,
// and returns the raw response bytes and status code.
func (c completerConfig) postJSON(ctx context.Context, url string, headers map[string]string, body any) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return out, resp.StatusCode, nil
}

// splitSystem separates system turns from the conversation. Claude and
// Gemini carry the system prompt out of band.
func splitSystem(messages []Message) (rest []Message, system string) {
	for _, m := range messages {
		if m.Role == "system" {
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return rest, system
}
