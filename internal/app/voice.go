package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.aimuz.me/glint/glasses"
	"go.aimuz.me/glint/stt"
	"go.aimuz.me/glint/stt/realtime"
)

// transcriberFunc adapts a function to glasses.Transcriber so the relay
// builds a fresh provider per capture, picking up config changes.
type transcriberFunc func(ctx context.Context) (glasses.TranscriptionSession, error)

func (f transcriberFunc) Start(ctx context.Context) (glasses.TranscriptionSession, error) {
	return f(ctx)
}

func (s *Service) setupRelay() *glasses.Relay {
	return glasses.NewRelay(glasses.RelayConfig{
		Sender:      s.session,
		Transcriber: transcriberFunc(s.startTranscription),
		MaxDuration: time.Duration(s.cfg.Glasses.AutoStopSec) * time.Second,
		OnTranscript: func(text string) {
			s.buffer.Commit(text)
			s.emitTranscript()
			s.emitStatus()
		},
		OnError: func(err error) {
			s.emit(EventVoiceError, err.Error())
			s.emitStatus()
		},
	})
}

// startTranscription opens a speech recognition session with the
// configured provider.
func (s *Service) startTranscription(ctx context.Context) (glasses.TranscriptionSession, error) {
	sc := s.cfg.GetSpeechConfig()
	if sc == nil || sc.APIKey == "" {
		return nil, fmt.Errorf("speech recognition not configured: %w", stt.ErrUnavailable)
	}

	var provider stt.Provider
	switch sc.Provider {
	case "realtime":
		provider = realtime.NewProvider(realtime.Config{
			APIKey:   sc.APIKey,
			Model:    sc.Model,
			Language: sc.Language,
			Decoder:  stt.PCM16Decoder,
			Callbacks: stt.Callbacks{
				OnPartial: func(text string) {
					s.buffer.SetPending(text)
					s.emitTranscript()
				},
			},
		})
	default:
		provider = stt.NewWhisperAPI(stt.WhisperAPIConfig{
			APIKey:   sc.APIKey,
			BaseURL:  sc.BaseURL,
			Model:    sc.Model,
			Language: sc.Language,
			Decoder:  stt.PCM16Decoder,
		})
	}

	slog.Info("starting speech recognition", "provider", provider.Name())
	return provider.Start(ctx)
}

// StartVoice switches the glasses microphone on, mirroring the voice
// gesture.
func (s *Service) StartVoice() error {
	if err := s.relay.Start(s.ctx); err != nil {
		return err
	}
	s.emitStatus()
	return nil
}

// StopVoice switches the microphone off and returns the capture's final
// transcript.
func (s *Service) StopVoice() (string, error) {
	text, err := s.relay.Stop()
	s.emitStatus()
	return text, err
}
