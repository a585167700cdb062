package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.aimuz.me/glint/internal/types"
)

// useTempConfigDir points the package at a throwaway directory for the
// duration of the test.
func useTempConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig := userConfigDir
	userConfigDir = func() (string, error) { return dir, nil }
	t.Cleanup(func() { userConfigDir = orig })
	return dir
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	useTempConfigDir(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Glasses.AnalysisIntervalSec != 5 {
		t.Errorf("AnalysisIntervalSec = %d, want 5", cfg.Glasses.AnalysisIntervalSec)
	}
	if cfg.Glasses.DisplayWidth != 40 {
		t.Errorf("DisplayWidth = %d, want 40", cfg.Glasses.DisplayWidth)
	}
	if cfg.Glasses.AutoStopSec != 30 {
		t.Errorf("AutoStopSec = %d, want 30", cfg.Glasses.AutoStopSec)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := useTempConfigDir(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Glasses.Emulate = true
	if err := cfg.SetSpeechConfig(SpeechConfig{Provider: "realtime", APIKey: "sk-test"}); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, appName, configFileName)); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Speech == nil || loaded.Speech.Provider != "realtime" {
		t.Errorf("speech config = %+v", loaded.Speech)
	}
	if !loaded.Glasses.Emulate {
		t.Error("Emulate not persisted")
	}
}

func TestAddProviderActivation(t *testing.T) {
	useTempConfigDir(t)

	cfg := defaultConfig()
	first := types.Provider{Name: "OpenAI", Type: "openai", APIKey: "sk-a", Model: "gpt-4o-mini"}
	if err := cfg.AddProvider(first); err != nil {
		t.Fatal(err)
	}
	if !cfg.Providers[0].Active {
		t.Error("first provider should auto-activate")
	}
	if cfg.Providers[0].ID == "" {
		t.Error("provider ID not assigned")
	}
	if cfg.Providers[0].MaxTokens != types.DefaultMaxTokens {
		t.Errorf("MaxTokens = %d, want default", cfg.Providers[0].MaxTokens)
	}

	second := types.Provider{Name: "Claude", Type: "claude", APIKey: "sk-b", Model: "claude-sonnet", Active: true}
	if err := cfg.AddProvider(second); err != nil {
		t.Fatal(err)
	}
	if cfg.Providers[0].Active {
		t.Error("adding an active provider should deactivate the rest")
	}
	if !cfg.Providers[1].Active {
		t.Error("second provider should be active")
	}
}

func TestRemoveProviderReactivates(t *testing.T) {
	useTempConfigDir(t)

	cfg := defaultConfig()
	for _, p := range []types.Provider{
		{Name: "A", Type: "openai", APIKey: "k", Model: "m"},
		{Name: "B", Type: "openai", APIKey: "k", Model: "m", Active: true},
	} {
		if err := cfg.AddProvider(p); err != nil {
			t.Fatal(err)
		}
	}

	if err := cfg.RemoveProvider(cfg.Providers[1].ID); err != nil {
		t.Fatal(err)
	}
	if len(cfg.Providers) != 1 || !cfg.Providers[0].Active {
		t.Errorf("providers after remove = %+v", cfg.Providers)
	}

	if err := cfg.RemoveProvider("no-such-id"); err == nil {
		t.Error("expected error removing unknown provider")
	}
}

func TestValidateProvider(t *testing.T) {
	tests := []struct {
		name    string
		p       types.Provider
		wantErr bool
	}{
		{"valid", types.Provider{Name: "x", Type: "openai", APIKey: "k", Model: "m"}, false},
		{"missing name", types.Provider{Type: "openai", APIKey: "k", Model: "m"}, true},
		{"missing key", types.Provider{Name: "x", Type: "openai", Model: "m"}, true},
		{"missing model", types.Provider{Name: "x", Type: "openai", APIKey: "k"}, true},
		{"compatible without base url", types.Provider{Name: "x", Type: "openai-compatible", APIKey: "k", Model: "m"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateProvider(tt.p)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetSpeechConfigValidation(t *testing.T) {
	useTempConfigDir(t)

	cfg := defaultConfig()
	if err := cfg.SetSpeechConfig(SpeechConfig{Provider: "teleport", APIKey: "k"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if err := cfg.SetSpeechConfig(SpeechConfig{Provider: "whisper"}); err == nil {
		t.Error("expected error for missing api key")
	}
	if err := cfg.SetSpeechConfig(SpeechConfig{Provider: "whisper", APIKey: "k"}); err != nil {
		t.Errorf("valid speech config rejected: %v", err)
	}
}
