// Package hotkey registers global keyboard shortcuts for hands-free
// control: toggling the glasses microphone and forcing an analysis run.
package hotkey

import (
	"fmt"
	"log/slog"
	"sync"

	hook "github.com/robotn/gohook"
)

// Default chords. gohook key names are lowercase.
var (
	voiceToggleChord = []string{"ctrl", "shift", "g"}
	analyzeNowChord  = []string{"ctrl", "shift", "a"}
)

// HotkeyManager owns the global event hook. On macOS the hook only
// delivers events once the app has Accessibility permission; the status
// callback reports whether it was granted.
type HotkeyManager struct {
	onVoiceToggle func()
	onAnalyzeNow  func()
	onStatus      func(granted bool)

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewHotkeyManager creates a manager. Callbacks run on the hook
// goroutine; long work should be dispatched elsewhere.
func NewHotkeyManager(onVoiceToggle, onAnalyzeNow func()) *HotkeyManager {
	return &HotkeyManager{
		onVoiceToggle: onVoiceToggle,
		onAnalyzeNow:  onAnalyzeNow,
	}
}

// SetStatusCallback sets the permission status callback. Must be called
// before Start.
func (m *HotkeyManager) SetStatusCallback(fn func(granted bool)) {
	m.onStatus = fn
}

// Start registers the shortcuts and begins listening. It is an error to
// start a running manager.
func (m *HotkeyManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("hotkey manager already running")
	}

	granted := IsAccessibilityEnabled(true)
	if m.onStatus != nil {
		m.onStatus(granted)
	}
	if !granted {
		return fmt.Errorf("accessibility permission not granted")
	}

	hook.Register(hook.KeyDown, voiceToggleChord, func(e hook.Event) {
		slog.Debug("hotkey", "action", "voice toggle")
		if m.onVoiceToggle != nil {
			m.onVoiceToggle()
		}
	})
	hook.Register(hook.KeyDown, analyzeNowChord, func(e hook.Event) {
		slog.Debug("hotkey", "action", "analyze now")
		if m.onAnalyzeNow != nil {
			m.onAnalyzeNow()
		}
	})

	m.running = true
	m.done = make(chan struct{})
	done := m.done

	go func() {
		defer close(done)
		// Blocks until hook.End.
		<-hook.Process(hook.Start())
	}()

	slog.Info("hotkeys registered",
		"voice_toggle", voiceToggleChord,
		"analyze_now", analyzeNowChord,
	)
	return nil
}

// Stop unregisters the hook and waits for the listener to exit.
func (m *HotkeyManager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	done := m.done
	m.mu.Unlock()

	hook.End()
	<-done
}
