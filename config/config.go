// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"go.aimuz.me/glint/internal/types"
)

const (
	appName        = "glint"
	configFileName = "config.json"
)

// Overridable in tests so Load/Save never touch the real user directory.
var userConfigDir = os.UserConfigDir

// SpeechConfig selects and configures the speech-to-text provider.
type SpeechConfig struct {
	Provider string `json:"provider"` // "whisper" or "realtime"
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url,omitempty"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"` // ISO 639-1 hint, empty = auto
}

// GlassesConfig holds device-session tunables.
type GlassesConfig struct {
	AnalysisIntervalSec int  `json:"analysis_interval_sec"`
	DisplayWidth        int  `json:"display_width"`
	MinTranscriptLen    int  `json:"min_transcript_len"`
	AutoStopSec         int  `json:"auto_stop_sec"`
	ReconnectDelayMS    int  `json:"reconnect_delay_ms"`
	ReconnectAttempts   int  `json:"reconnect_attempts"` // 0 = retry until cancelled
	Emulate             bool `json:"emulate,omitempty"`
}

// Config represents the application configuration.
type Config struct {
	Providers []types.Provider `json:"providers,omitempty"`
	Speech    *SpeechConfig    `json:"speech,omitempty"`
	Glasses   GlassesConfig    `json:"glasses"`
}

// Load loads configuration from the config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Glasses.applyDefaults()
	return &cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Provider Management
// ─────────────────────────────────────────────────────────────────────────────

// AddProvider adds a new LLM provider. Assigns an ID if missing.
func (c *Config) AddProvider(p types.Provider) error {
	if err := validateProvider(p); err != nil {
		return err
	}
	applyProviderDefaults(&p)

	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	// First provider or explicitly active: deactivate others
	if len(c.Providers) == 0 || p.Active {
		for i := range c.Providers {
			c.Providers[i].Active = false
		}
		p.Active = true
	}

	c.Providers = append(c.Providers, p)
	return c.Save()
}

// UpdateProvider updates an existing provider by ID.
func (c *Config) UpdateProvider(id string, p types.Provider) error {
	if err := validateProvider(p); err != nil {
		return err
	}
	applyProviderDefaults(&p)

	idx := slices.IndexFunc(c.Providers, func(x types.Provider) bool {
		return x.ID == id
	})
	if idx == -1 {
		return fmt.Errorf("provider not found: %s", id)
	}

	wasActive := c.Providers[idx].Active
	if p.Active && !wasActive {
		for i := range c.Providers {
			c.Providers[i].Active = false
		}
	} else {
		p.Active = wasActive
	}

	p.ID = id // Preserve ID
	c.Providers[idx] = p
	return c.Save()
}

// RemoveProvider removes a provider by ID.
func (c *Config) RemoveProvider(id string) error {
	idx := slices.IndexFunc(c.Providers, func(p types.Provider) bool {
		return p.ID == id
	})
	if idx == -1 {
		return fmt.Errorf("provider not found: %s", id)
	}

	wasActive := c.Providers[idx].Active
	c.Providers = slices.Delete(c.Providers, idx, idx+1)

	if wasActive && len(c.Providers) > 0 {
		c.Providers[0].Active = true
	}

	return c.Save()
}

// SetProviderActive checks if provider exists and sets it active.
func (c *Config) SetProviderActive(id string) error {
	found := false
	for i := range c.Providers {
		if c.Providers[i].ID == id {
			c.Providers[i].Active = true
			found = true
		} else {
			c.Providers[i].Active = false
		}
	}
	if !found {
		return fmt.Errorf("provider not found: %s", id)
	}
	return c.Save()
}

// GetActiveProvider returns the currently active provider.
func (c *Config) GetActiveProvider() *types.Provider {
	for i := range c.Providers {
		if c.Providers[i].Active {
			p := c.Providers[i]
			return &p
		}
	}
	// Auto-activate first if none active
	if len(c.Providers) > 0 {
		c.Providers[0].Active = true
		_ = c.Save()
		p := c.Providers[0]
		return &p
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Speech Configuration
// ─────────────────────────────────────────────────────────────────────────────

// GetSpeechConfig returns the speech configuration.
func (c *Config) GetSpeechConfig() *SpeechConfig {
	return c.Speech
}

// SetSpeechConfig validates and sets the speech configuration.
func (c *Config) SetSpeechConfig(cfg SpeechConfig) error {
	switch cfg.Provider {
	case "whisper", "realtime":
	default:
		return fmt.Errorf("unknown speech provider: %s", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("api key required")
	}

	c.Speech = &cfg
	return c.Save()
}

// ─────────────────────────────────────────────────────────────────────────────
// Glasses Settings
// ─────────────────────────────────────────────────────────────────────────────

// SetGlasses persists the glasses settings, filling zero fields with
// defaults first.
func (c *Config) SetGlasses(g GlassesConfig) error {
	g.applyDefaults()
	c.Glasses = g
	return c.Save()
}

func (g *GlassesConfig) applyDefaults() {
	if g.AnalysisIntervalSec == 0 {
		g.AnalysisIntervalSec = 5
	}
	if g.DisplayWidth == 0 {
		g.DisplayWidth = 40
	}
	if g.MinTranscriptLen == 0 {
		g.MinTranscriptLen = 12
	}
	if g.AutoStopSec == 0 {
		g.AutoStopSec = 30
	}
	if g.ReconnectDelayMS == 0 {
		g.ReconnectDelayMS = 2000
	}
}

// Helper functions

func validateProvider(p types.Provider) error {
	if p.Name == "" {
		return fmt.Errorf("provider name required")
	}
	if p.APIKey == "" {
		return fmt.Errorf("api key required")
	}
	if p.Model == "" {
		return fmt.Errorf("model required")
	}
	if p.Type == "openai-compatible" && p.BaseURL == "" {
		return fmt.Errorf("base url required for openai-compatible")
	}
	return nil
}

func applyProviderDefaults(p *types.Provider) {
	if p.MaxTokens == 0 {
		p.MaxTokens = types.DefaultMaxTokens
	}
	if p.Temperature == 0 {
		p.Temperature = types.DefaultTemperature
	}
}

func configPath() (string, error) {
	dir, err := userConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

func defaultConfig() *Config {
	cfg := &Config{Providers: []types.Provider{}}
	cfg.Glasses.applyDefaults()
	return cfg
}
