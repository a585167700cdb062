// Package realtime implements a streaming speech-to-text provider on the
// OpenAI Realtime API over WebRTC. Audio goes out as an Opus track; interim
// and final transcripts come back on the data channel.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.aimuz.me/glint/stt"
)

// Config holds configuration for the realtime provider.
type Config struct {
	APIKey   string
	Model    string // defaults to DefaultModel
	Language string // source language code, empty for English
	Prompt   string // optional transcription prompt

	// Decoder converts device audio chunks to 16 kHz mono PCM. Defaults to
	// stt.PCM16Decoder.
	Decoder stt.Decoder

	// Callbacks receive interim hypotheses.
	Callbacks stt.Callbacks

	// VAD overrides the server-side turn detection once the data channel
	// opens. Zero value keeps the session default (semantic VAD, high
	// eagerness).
	VAD *TurnDetection
}

// Provider opens one realtime WebRTC session per capture.
type Provider struct {
	cfg Config
}

// NewProvider creates the provider. No connection is made until Start.
func NewProvider(cfg Config) *Provider {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Decoder == nil {
		cfg.Decoder = stt.PCM16Decoder
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) Name() string { return "openai-realtime" }

func (p *Provider) Close() error { return nil }

// Start connects a WebRTC session for one capture.
func (p *Provider) Start(ctx context.Context) (stt.Session, error) {
	if p.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key required", stt.ErrUnavailable)
	}

	client := NewClient(ClientConfig{
		APIKey: p.cfg.APIKey,
		Session: SessionConfig{
			Model:    p.cfg.Model,
			Language: p.cfg.Language,
			Prompt:   p.cfg.Prompt,
		},
	})

	if vad := p.cfg.VAD; vad != nil {
		client.OnDataChannelOpen(func() {
			if err := client.ConfigureVAD(*vad); err != nil {
				slog.Warn("configure VAD", "error", err)
			}
		})
	}

	if err := client.Connect(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", stt.ErrUnavailable, err)
	}

	s := &session{
		client:    client,
		decode:    p.cfg.Decoder,
		onPartial: p.cfg.Callbacks.OnPartial,
		pending:   make(map[string]string),
		settled:   make(chan struct{}),
	}
	go s.processEvents()
	return s, nil
}

// session is one capture's streaming transcription.
type session struct {
	client    *Client
	decode    stt.Decoder
	onPartial func(string)

	mu      sync.Mutex
	finals  []string
	pending map[string]string // itemID -> interim text
	failed  error
	settled chan struct{} // closed when the event stream ends
}

// Feed decodes one device chunk and streams it out on the audio track.
func (s *session) Feed(chunk []byte) error {
	s.mu.Lock()
	failed := s.failed
	s.mu.Unlock()
	if failed != nil {
		return fmt.Errorf("%w: %v", stt.ErrUnavailable, failed)
	}

	pcm, err := s.decode(chunk)
	if err != nil {
		return fmt.Errorf("decode audio chunk: %w", err)
	}

	err = s.client.SendAudio(upsampleStereo48k(pcm))
	switch err {
	case nil, ErrNotReady:
		// ErrNotReady: connection still warming up, drop the chunk.
		return nil
	case ErrClosed:
		return fmt.Errorf("%w: session closed", stt.ErrUnavailable)
	default:
		return fmt.Errorf("send audio: %w", err)
	}
}

// Finalize waits briefly for in-flight transcription to settle and returns
// the joined final segments.
func (s *session) Finalize(ctx context.Context) (string, error) {
	// Give the server a moment to flush the last item.
	deadline := time.After(3 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

wait:
	for {
		s.mu.Lock()
		pendingLeft := len(s.pending)
		failed := s.failed
		s.mu.Unlock()
		if pendingLeft == 0 || failed != nil {
			break
		}

		select {
		case <-ctx.Done():
			break wait
		case <-deadline:
			break wait
		case <-s.settled:
			break wait
		case <-ticker.C:
		}
	}

	s.client.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed != nil && len(s.finals) == 0 {
		return "", fmt.Errorf("%w: %v", stt.ErrUnavailable, s.failed)
	}

	parts := s.finals
	// Unfinished interim text still beats losing the tail of the capture.
	for _, interim := range s.pending {
		if t := strings.TrimSpace(interim); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}

func (s *session) Close() error {
	return s.client.Close()
}

func (s *session) processEvents() {
	defer close(s.settled)

	for {
		select {
		case event, ok := <-s.client.Messages():
			if !ok {
				return
			}
			s.handleEvent(event)
		case err := <-s.client.Errors():
			s.mu.Lock()
			s.failed = err
			s.mu.Unlock()
			return
		}
	}
}

func (s *session) handleEvent(event Event) {
	switch e := event.(type) {
	case TranscriptDeltaEvent:
		s.mu.Lock()
		s.pending[e.ItemID] += e.Delta
		text := s.pending[e.ItemID]
		s.mu.Unlock()
		if s.onPartial != nil {
			s.onPartial(text)
		}

	case TranscriptEvent:
		text := strings.TrimSpace(e.Transcript)
		s.mu.Lock()
		delete(s.pending, e.ItemID)
		if text != "" {
			s.finals = append(s.finals, text)
		}
		s.mu.Unlock()

	case ErrorEvent:
		slog.Error("realtime api error", "code", e.Error.Code, "message", e.Error.Message)
		s.mu.Lock()
		s.failed = fmt.Errorf("api error: %s (%s)", e.Error.Message, e.Error.Code)
		s.mu.Unlock()

	case SpeechStartedEvent, SpeechStoppedEvent:
		// VAD bookkeeping only; the capture window is enforced upstream.

	case UnknownEvent:
		slog.Debug("unhandled realtime event", "type", e.Type)
	}
}

// upsampleStereo48k converts 16 kHz mono PCM to the 48 kHz interleaved
// stereo the Opus track expects, using linear interpolation between source
// samples.
func upsampleStereo48k(mono16k []float32) []float32 {
	if len(mono16k) == 0 {
		return nil
	}

	const factor = 3 // 16 kHz -> 48 kHz
	out := make([]float32, 0, len(mono16k)*factor*2)
	for i, cur := range mono16k {
		next := cur
		if i+1 < len(mono16k) {
			next = mono16k[i+1]
		}
		for step := 0; step < factor; step++ {
			v := cur + (next-cur)*float32(step)/factor
			out = append(out, v, v) // interleave L/R
		}
	}
	return out
}
