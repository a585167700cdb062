// Package types provides shared type definitions for the application.
package types

import "time"

// Provider represents an LLM provider configuration.
type Provider struct {
	ID              string  `json:"id,omitempty"`
	Name            string  `json:"name"`
	Type            string  `json:"type"` // "openai", "openai-compatible", "gemini", "claude"
	BaseURL         string  `json:"base_url,omitempty"`
	APIKey          string  `json:"api_key"`
	Model           string  `json:"model"`
	SystemPrompt    string  `json:"system_prompt,omitempty"`
	MaxTokens       int     `json:"max_tokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
	Active          bool    `json:"active"`
	DisableThinking bool    `json:"disable_thinking,omitempty"` // For Gemini: set thinkingBudget to 0
}

// DefaultMaxTokens is the default max tokens if not specified.
const DefaultMaxTokens = 1000

// DefaultTemperature is the default temperature if not specified.
const DefaultTemperature = 0.3

// Usage represents token usage statistics from LLM API calls.
type Usage struct {
	PromptTokens     int  `json:"promptTokens"`
	CompletionTokens int  `json:"completionTokens"`
	TotalTokens      int  `json:"totalTokens"`
	CacheHit         bool `json:"cacheHit"`
}

// Suggestion is one assistant reply line shown on the glasses and in the UI.
type Suggestion struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// TranscriptUpdate is a live transcript snapshot for the frontend.
type TranscriptUpdate struct {
	Text      string `json:"text"`      // committed transcript
	Pending   string `json:"pending"`   // interim hypothesis, replaced in place
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// SessionStatus describes the glasses connection for the frontend.
type SessionStatus struct {
	State     string `json:"state"`
	PairKey   string `json:"pairKey,omitempty"`
	Listening bool   `json:"listening"` // microphone capture in progress
}

// PairInfo is one discovered glasses pair.
type PairInfo struct {
	Key   string `json:"key"`
	Left  string `json:"left"`  // left peripheral identity
	Right string `json:"right"` // right peripheral identity
}
