// Package app provides the core application service for Wails bindings.
package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.aimuz.me/glint/analysis"
	"go.aimuz.me/glint/cache"
	"go.aimuz.me/glint/config"
	"go.aimuz.me/glint/glasses"
	"go.aimuz.me/glint/hotkey"
	"go.aimuz.me/glint/internal/types"

	"github.com/wailsapp/wails/v3/pkg/application"
)

// Service provides application functionality bound to Wails.
// This struct focuses on orchestration; business logic lives in sub-components.
type Service struct {
	cfg    *config.Config
	cache  *cache.Cache
	hotkey *hotkey.HotkeyManager

	// UI references - set via Init
	app    *application.App
	window application.Window

	// Glasses pipeline
	transport glasses.Transport
	registry  *glasses.Registry
	session   *glasses.Session
	keepalive *glasses.Keepalive
	relay     *glasses.Relay
	buffer    *analysis.TranscriptBuffer
	scheduler *analysis.Scheduler

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc

	scanMu     sync.Mutex
	scanCancel context.CancelFunc

	// Suggestion display paging
	pageMu      sync.Mutex
	suggestions []types.Suggestion
	lines       []string
	curPage     int

	// Version info (set by caller)
	version string
}

// New creates a new Service. Call Init() after Wails app is created.
func New(version string) *Service {
	return &Service{version: version}
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Init initializes the service with app and window references.
// Must be called after Wails application is created.
func (s *Service) Init(app *application.App, window application.Window) {
	s.app = app
	s.window = window
	s.ctx, s.cancel = context.WithCancel(context.Background())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		cfg = &config.Config{}
	}
	s.cfg = cfg

	s.setupCache()
	s.setupGlasses()
	s.setupHotkey()
}

// Shutdown cleans up resources.
func (s *Service) Shutdown() {
	if s.hotkey != nil {
		s.hotkey.Stop()
	}
	s.StopScan()
	if s.relay != nil && s.relay.Active() {
		if _, err := s.relay.Stop(); err != nil {
			slog.Error("stop mic capture", "error", err)
		}
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.keepalive != nil {
		s.keepalive.Stop()
	}
	if s.session != nil {
		s.session.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("close cache", "error", err)
		}
	}
}

func (s *Service) setupCache() {
	configDir, err := os.UserConfigDir()
	if err != nil {
		slog.Error("get config dir for cache", "error", err)
		return
	}

	cachePath := filepath.Join(configDir, "glint", "cache")
	c, err := cache.Open(cachePath)
	if err != nil {
		slog.Error("init cache", "error", err)
		return
	}
	s.cache = c
	slog.Info("cache initialized", "path", cachePath)
}

func (s *Service) setupHotkey() {
	s.hotkey = hotkey.NewHotkeyManager(
		func() {
			// Run in goroutine to not block the hotkey listener
			go s.toggleVoice()
		},
		func() {
			go s.AnalyzeNow()
		},
	)

	s.hotkey.SetStatusCallback(func(granted bool) {
		s.emit(EventAccessibilityPerm, granted)
		if granted {
			slog.Info("accessibility permission granted")
		} else {
			slog.Warn("accessibility permission denied")
		}
	})

	if err := s.hotkey.Start(); err != nil {
		slog.Error("start hotkey", "error", err)
	}
}

func (s *Service) toggleVoice() {
	if s.relay == nil {
		return
	}
	if s.relay.Active() {
		if _, err := s.StopVoice(); err != nil {
			slog.Error("stop voice", "error", err)
		}
		return
	}
	if err := s.StartVoice(); err != nil {
		slog.Error("start voice", "error", err)
	}
}

// emit is a safe wrapper around app.Event.Emit
func (s *Service) emit(name string, data any) {
	if s.app != nil {
		s.app.Event.Emit(name, data)
	}
}

// GetAccessibilityPermission returns whether accessibility is enabled.
func (s *Service) GetAccessibilityPermission() bool {
	return hotkey.IsAccessibilityEnabled(false)
}

// ─────────────────────────────────────────────────────────────────────────────
// Provider Management (Delegated to Config)
// ─────────────────────────────────────────────────────────────────────────────

// GetProviders returns all configured LLM providers.
func (s *Service) GetProviders() []types.Provider {
	return s.cfg.Providers
}

// AddProvider adds a new LLM provider.
func (s *Service) AddProvider(p types.Provider) error {
	return s.cfg.AddProvider(p)
}

// UpdateProvider updates an existing provider.
func (s *Service) UpdateProvider(id string, p types.Provider) error {
	return s.cfg.UpdateProvider(id, p)
}

// RemoveProvider removes a provider by ID.
func (s *Service) RemoveProvider(id string) error {
	return s.cfg.RemoveProvider(id)
}

// SetProviderActive sets a provider as active.
func (s *Service) SetProviderActive(id string) error {
	return s.cfg.SetProviderActive(id)
}

// GetActiveProvider returns the currently active provider.
func (s *Service) GetActiveProvider() *types.Provider {
	return s.cfg.GetActiveProvider()
}

// ─────────────────────────────────────────────────────────────────────────────
// Speech Configuration
// ─────────────────────────────────────────────────────────────────────────────

// GetSpeechConfig returns the speech service configuration.
func (s *Service) GetSpeechConfig() *config.SpeechConfig {
	return s.cfg.GetSpeechConfig()
}

// SetSpeechConfig sets the speech service configuration.
func (s *Service) SetSpeechConfig(cfg config.SpeechConfig) error {
	return s.cfg.SetSpeechConfig(cfg)
}
