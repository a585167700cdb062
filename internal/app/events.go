// Package app provides the core application service for Wails bindings.
package app

// Event names for frontend communication.
const (
	EventSessionStatus     = "glasses-session-status"
	EventPairDiscovered    = "glasses-pair-discovered"
	EventTranscript        = "transcript-update"
	EventSuggestions       = "suggestions-update"
	EventAnalysisError     = "analysis-error"
	EventVoiceError        = "voice-error"
	EventAccessibilityPerm = "accessibility-permission"
)
